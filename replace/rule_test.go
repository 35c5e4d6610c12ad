package replace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestApply_Literal verifies literal rules replace every occurrence
func TestApply_Literal(t *testing.T) {
	r := Rule{Pattern: "a.b", Replacement: "x"}
	out, err := r.Apply("a.b acb a.b")
	require.NoError(t, err)
	assert.Equal(t, "x acb x", out)
}

// TestApply_Regex verifies regex rules with group references
func TestApply_Regex(t *testing.T) {
	r := Rule{Pattern: `(\d+)章`, Replacement: "Chapter $1", IsRegex: true}
	out, err := r.Apply("第12章 start")
	require.NoError(t, err)
	assert.Equal(t, "第Chapter 12 start", out)
}

// TestApply_Lookaround verifies patterns that need lookbehind compile
func TestApply_Lookaround(t *testing.T) {
	r := Rule{Pattern: `(?<=www\.)\w+(?=\.com)`, Replacement: "***", IsRegex: true}
	out, err := r.Apply("visit www.ads.com now")
	require.NoError(t, err)
	assert.Equal(t, "visit www.***.com now", out)
}

// TestApply_EmptyPattern verifies an empty pattern is a no-op
func TestApply_EmptyPattern(t *testing.T) {
	out, err := Rule{IsRegex: true}.Apply("text")
	require.NoError(t, err)
	assert.Equal(t, "text", out)
}

// TestApply_InvalidRegex verifies a bad pattern fails and keeps the text
func TestApply_InvalidRegex(t *testing.T) {
	out, err := Rule{Pattern: "(unclosed", IsRegex: true}.Apply("text")
	assert.Error(t, err)
	assert.Equal(t, "text", out)
}

// TestMatches verifies scope matching by book name or origin
func TestMatches(t *testing.T) {
	assert.True(t, Rule{}.Matches("Book", "http://a"))
	assert.True(t, Rule{Scope: "Book"}.Matches("Book", "http://a"))
	assert.True(t, Rule{Scope: "Other; http://a"}.Matches("Book", "http://a"))
	assert.True(t, Rule{Scope: "x,Book"}.Matches("Book", ""))
	assert.False(t, Rule{Scope: "Other"}.Matches("Book", "http://a"))
	assert.False(t, Rule{Scope: "Bo"}.Matches("Book", "http://a"))
	assert.False(t, Rule{Scope: ","}.Matches("", ""))
}
