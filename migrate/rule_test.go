package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestRule_Blank verifies empty and whitespace rules are treated as absent
func TestRule_Blank(t *testing.T) {
	assert.Equal(t, "", Rule(""))
	assert.Equal(t, "", Rule("   "))
	assert.Equal(t, "", Rule("\t\n"))
}

// TestRule_Separators verifies legacy single-character separators are
// doubled
func TestRule_Separators(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"hash", "class.content@text#广告", "class.content@text##广告"},
		{"pipe", "class.a@text|class.b@text", "class.a@text||class.b@text"},
		{"ampersand", "class.a@text&class.b@text", "class.a@text&&class.b@text"},
		{"hash and pipe", "a#b|c", "a##b||c"},
		{"pipe only in selector", "a|b#c|d", "a||b##c|d"},
		{"pipe in replacement only", "a##b|c", "a##b|c"},
		{"already doubled", "a||b&&c", "a||b&&c"},
		{"ampersand with http", "tag.a@href&http://x", "tag.a@href&http://x"},
		{"ampersand with leading slash", "/html/body&x", "/html/body&x"},
		{"no separators", "class.title@text", "class.title@text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rule(tt.in))
		})
	}
}

// TestRule_ModernPrefixesUntouched verifies explicit selector types and
// scripts skip separator rewriting
func TestRule_ModernPrefixesUntouched(t *testing.T) {
	rules := []string{
		"@CSS:div.a|div.b",
		"@css:div#main",
		"@XPath://div[@id='a']|//p",
		"@xpath://a&b",
		"//div[@class='x']|//p",
		"##regex#x",
		":a|b",
		"class.a@text@js:result.replace('#','|')",
		"<JS>a & b</js>",
	}

	for _, rule := range rules {
		assert.Equal(t, rule, Rule(rule), "rule %q should be unchanged", rule)
	}
}

// TestRule_Flags verifies reverse and all-in-one flags are preserved in order
func TestRule_Flags(t *testing.T) {
	assert.Equal(t, "-+foo##bar", Rule("-+foo#bar"))
	assert.Equal(t, "-foo||bar", Rule("-foo|bar"))
	assert.Equal(t, "+foo&&bar", Rule("+foo&bar"))
	assert.Equal(t, "-@CSS:a|b", Rule("-@CSS:a|b"))
	assert.Equal(t, "-", Rule("-"))
}

// TestRule_Idempotent verifies migrating twice equals migrating once
func TestRule_Idempotent(t *testing.T) {
	rules := []string{
		"a#b|c",
		"-+foo#bar",
		"a|b#c|d",
		"class.a@text&class.b@text",
		"#leading",
		"id.list@li!0",
		"tag.a.0@href&http",
		"-class.c@tag.dd|tag.p#\\s+",
		"@js:java.ajax(baseUrl)",
	}

	for _, rule := range rules {
		once := Rule(rule)
		assert.Equal(t, once, Rule(once), "rule %q is not idempotent", rule)
	}
}
