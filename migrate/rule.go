// Package migrate rewrites legacy book-source rule strings and URL templates
// into the current DSL syntax. Every function here is pure and safe for
// concurrent use, and applying a function to its own output is a no-op.
package migrate

import (
	"strings"
)

// modernRulePrefixes mark rules that already use an explicit selector type.
var modernRulePrefixes = []string{"//", "##", ":"}

// Rule upgrades a single legacy extraction rule. Blank input yields "".
//
// Legacy rules used single-character separators: "#" for regex replacement,
// "|" for fallbacks and "&" for combination. The current syntax doubles them.
// Rules with an explicit selector prefix or an embedded script are left
// untouched apart from their "-" / "+" flags.
func Rule(oldRule string) string {
	if strings.TrimSpace(oldRule) == "" {
		return ""
	}

	rule := oldRule
	reverse := false
	allInOne := false
	if strings.HasPrefix(rule, "-") {
		reverse = true
		rule = rule[1:]
	}
	if strings.HasPrefix(rule, "+") {
		allInOne = true
		rule = rule[1:]
	}

	if !isModernRule(rule) {
		rule = doubleSeparators(rule)
	}

	if allInOne {
		rule = "+" + rule
	}
	if reverse {
		rule = "-" + rule
	}
	return rule
}

func isModernRule(rule string) bool {
	if hasPrefixFold(rule, "@CSS:") || hasPrefixFold(rule, "@XPath:") {
		return true
	}
	for _, prefix := range modernRulePrefixes {
		if strings.HasPrefix(rule, prefix) {
			return true
		}
	}
	return containsFold(rule, "@js:") || containsFold(rule, "<js>")
}

// doubleSeparators applies the "#", "|" and "&" rewrites in that order. The
// "#" pass must run first because it decides where the "##" split falls.
func doubleSeparators(rule string) string {
	if strings.Contains(rule, "#") && !strings.Contains(rule, "##") {
		rule = strings.ReplaceAll(rule, "#", "##")
	}

	if strings.Contains(rule, "|") && !strings.Contains(rule, "||") {
		if strings.Contains(rule, "##") {
			// Only the selector part; replacement regexes keep their "|".
			parts := strings.Split(rule, "##")
			parts[0] = strings.ReplaceAll(parts[0], "|", "||")
			rule = strings.Join(parts, "##")
		} else {
			rule = strings.ReplaceAll(rule, "|", "||")
		}
	}

	if strings.Contains(rule, "&") &&
		!strings.Contains(rule, "&&") &&
		!strings.Contains(rule, "http") &&
		!strings.HasPrefix(rule, "/") {
		rule = strings.ReplaceAll(rule, "&", "&&")
	}

	return rule
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
