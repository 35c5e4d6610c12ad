package migrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/htmlindex"
)

var (
	headerPattern    = regexp.MustCompile(`(?i)@Header:\{.+?\}`)
	scriptPattern    = regexp.MustCompile(`\{\{.+?\}\}`)
	optionsPattern   = regexp.MustCompile(`,\s*\{`)
	urlListSeparator = regexp.MustCompile(`(&&|\r?\n)+`)
	newlineArtifacts = regexp.MustCompile(`\n\s*`)
	bracedPageOffset = regexp.MustCompile(`<searchPage([-+]1)>`)
	barePageOffset   = regexp.MustCompile(`searchPage([-+]1)`)
)

// placeholderFormat wraps a script index in private-use runes that cannot
// appear in a real template.
const placeholderFormat = "\ue000%d\ue001"

// URL upgrades a single legacy URL template.
//
// Inline headers ("@Header:{...}"), a "|charset=X" suffix and an "@body" POST
// payload are moved into a JSON options object appended after a comma.
// Legacy searchKey/searchPage macros become {{key}} and {{page}}; the
// contents of {{...}} script fragments only have the variable names renamed.
// Blank input yields "".
func URL(oldURL string) string {
	if strings.TrimSpace(oldURL) == "" {
		return ""
	}

	if isScript(oldURL) {
		url := strings.ReplaceAll(oldURL, "=searchKey", "={{key}}")
		return strings.ReplaceAll(url, "=searchPage", "={{page}}")
	}

	url, existing := splitOptions(oldURL)
	options := map[string]string{}

	if loc := headerPattern.FindStringIndex(url); loc != nil {
		header := url[loc[0]:loc[1]]
		url = strings.ReplaceAll(url, header, "")
		options["headers"] = header[len("@Header:"):]
	}

	// Protect scripts from the separator splits and macro rewrites below.
	var scripts []string
	url = scriptPattern.ReplaceAllStringFunc(url, func(script string) string {
		scripts = append(scripts, script)
		return fmt.Sprintf(placeholderFormat, len(scripts)-1)
	})

	if parts := strings.Split(url, "|"); len(parts) > 1 {
		url = parts[0]
		charset := parts[1]
		if kv := strings.Split(charset, "="); len(kv) > 1 {
			charset = kv[1]
		}
		charset = strings.TrimSpace(charset)
		if _, err := htmlindex.Get(charset); err != nil {
			log.Warn().Str("charset", charset).Msg("Unknown charset in URL template")
		}
		options["charset"] = charset
	}

	url = strings.NewReplacer("{", "<", "}", ">").Replace(url)
	url = strings.ReplaceAll(url, "searchKey", "{{key}}")
	url = bracedPageOffset.ReplaceAllString(url, "{{page$1}}")
	url = barePageOffset.ReplaceAllString(url, "{{page$1}}")
	url = strings.ReplaceAll(url, "searchPage", "{{page}}")

	if parts := strings.SplitN(url, "@", 2); len(parts) > 1 {
		url = parts[0]
		options["method"] = "POST"
		options["body"] = restoreScripts(parts[1], scripts)
	}
	url = restoreScripts(url, scripts)

	if len(options) == 0 {
		return url + existing
	}
	return url + "," + encodeOptions(existing, options)
}

// URLs upgrades a template that may list several fallback URLs separated by
// "&&" or newlines. The result is one normalized URL per line.
func URLs(oldURLs string) string {
	if strings.TrimSpace(oldURLs) == "" {
		return ""
	}
	if isScript(oldURLs) {
		return oldURLs
	}
	if !strings.Contains(oldURLs, "\n") && !strings.Contains(oldURLs, "&&") {
		return URL(oldURLs)
	}

	var urls []string
	for _, part := range urlListSeparator.Split(oldURLs, -1) {
		url := URL(part)
		if url == "" {
			continue
		}
		urls = append(urls, newlineArtifacts.ReplaceAllString(url, ""))
	}
	return strings.Join(urls, "\n")
}

func isScript(s string) bool {
	return hasPrefixFold(s, "@js:") || hasPrefixFold(s, "<js>")
}

func restoreScripts(s string, scripts []string) string {
	for i, script := range scripts {
		script = strings.ReplaceAll(script, "searchKey", "key")
		script = strings.ReplaceAll(script, "searchPage", "page")
		s = strings.ReplaceAll(s, fmt.Sprintf(placeholderFormat, i), script)
	}
	return s
}

// splitOptions separates an already-present trailing options object so that
// a normalized template survives another pass unchanged. The returned suffix
// includes its leading comma.
func splitOptions(url string) (string, string) {
	for _, loc := range optionsPattern.FindAllStringIndex(url, -1) {
		candidate := strings.TrimSpace(url[loc[1]-1:])
		var obj map[string]any
		if json.Unmarshal([]byte(candidate), &obj) == nil {
			return url[:loc[0]], url[loc[0]:]
		}
	}
	return url, ""
}

// encodeOptions merges newly extracted options over an existing suffix and
// encodes them with sorted keys and without HTML escaping.
func encodeOptions(existing string, options map[string]string) string {
	merged := map[string]any{}
	if existing != "" {
		raw := strings.TrimSpace(strings.TrimSpace(existing)[1:])
		_ = json.Unmarshal([]byte(raw), &merged)
	}
	for k, v := range options {
		merged[k] = v
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(merged); err != nil {
		return "{}"
	}
	return strings.TrimRight(buf.String(), "\n")
}
