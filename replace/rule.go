// Package replace holds user-defined find/replace rules, their SQLite store
// and the per-book registry that keeps enabled rules ready for rendering.
package replace

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
	"github.com/google/uuid"
)

// matchTimeout bounds a single regex replacement so that a pathological
// community pattern cannot stall rendering.
const matchTimeout = 3 * time.Second

// Rule is an ordered find/replace applied to chapter titles, chapter content
// or both.
type Rule struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Group        string    `json:"group,omitempty"`
	Pattern      string    `json:"pattern"`
	Replacement  string    `json:"replacement"`
	IsRegex      bool      `json:"isRegex"`
	Scope        string    `json:"scope,omitempty"` // book names or origins, comma separated
	ScopeTitle   bool      `json:"scopeTitle"`
	ScopeContent bool      `json:"scopeContent"`
	Enabled      bool      `json:"isEnabled"`
	Order        int       `json:"order"`
}

// Apply runs the rule against text. Regex rules use .NET/Java style syntax
// (lookaround, $1 group references). An empty pattern is a no-op.
func (r Rule) Apply(text string) (string, error) {
	if r.Pattern == "" {
		return text, nil
	}
	if !r.IsRegex {
		return strings.ReplaceAll(text, r.Pattern, r.Replacement), nil
	}

	re, err := regexp2.Compile(r.Pattern, regexp2.None)
	if err != nil {
		return text, fmt.Errorf("failed to compile pattern: %w", err)
	}
	re.MatchTimeout = matchTimeout

	out, err := re.Replace(text, r.Replacement, -1, -1)
	if err != nil {
		return text, fmt.Errorf("failed to replace: %w", err)
	}
	return out, nil
}

// Matches reports whether the rule's scope covers the given book name or
// origin. An empty scope is global.
func (r Rule) Matches(bookName, origin string) bool {
	scope := strings.TrimSpace(r.Scope)
	if scope == "" {
		return true
	}
	for _, s := range strings.FieldsFunc(scope, func(c rune) bool { return c == ',' || c == ';' }) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if s == bookName || s == origin {
			return true
		}
	}
	return false
}
