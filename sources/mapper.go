package sources

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pevans/booksrc/migrate"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Mapping errors
var (
	ErrMissingSourceURL = errors.New("book source has no bookSourceUrl")
	ErrInvalidDocument  = errors.New("book source document is not valid JSON")
)

// Mapper turns legacy or current book source documents into BookSource
// records. Field-level problems are logged and leave the field at its
// default; only a missing identity rejects a document.
type Mapper struct {
	logger zerolog.Logger
}

// NewMapper creates a Mapper that reports field problems to logger.
func NewMapper(logger zerolog.Logger) *Mapper {
	return &Mapper{logger: logger}
}

// FromJSON maps one document with the global logger.
func FromJSON(data []byte) (*BookSource, error) {
	return NewMapper(log.Logger).FromJSON(data)
}

// FromJSONArray maps a batch with the global logger.
func FromJSONArray(data []byte) (*BatchResult, error) {
	return NewMapper(log.Logger).FromJSONArray(data)
}

// RejectedDocument is a batch element that could not be mapped.
type RejectedDocument struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// BatchResult holds the mapped sources of a batch in input order plus the
// elements that were rejected.
type BatchResult struct {
	Sources  []BookSource
	Rejected []RejectedDocument
}

// FromJSONArray maps every element of a JSON array. A single object is
// treated as a one-element batch. Rejected elements do not stop the batch.
func (m *Mapper) FromJSONArray(data []byte) (*BatchResult, error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return nil, ErrInvalidDocument
	}
	var docs []json.RawMessage
	if shapeOf(data) == shapeObject {
		docs = []json.RawMessage{data}
	} else if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	result := &BatchResult{}
	for i, doc := range docs {
		source, err := m.FromJSON(doc)
		if err != nil {
			m.logger.Warn().Err(err).Int("index", i).Msg("Skipping book source")
			result.Rejected = append(result.Rejected, RejectedDocument{Index: i, Reason: err.Error(), Err: err})
			continue
		}
		result.Sources = append(result.Sources, *source)
	}
	return result, nil
}

// FromJSON maps a single document. Documents without a "ruleToc" field use
// the legacy flat schema and have their rules and URLs migrated.
func (m *Mapper) FromJSON(data []byte) (*BookSource, error) {
	var doc document
	if err := json.Unmarshal(bytes.TrimSpace(data), &doc.fields); err != nil || doc.fields == nil {
		return nil, ErrInvalidDocument
	}
	doc.logger = m.logger

	if shapeOf(doc.fields["ruleToc"]) == shapeAbsent {
		return doc.legacy()
	}
	return doc.current()
}

// document is a decoded JSON object whose fields are read one at a time so
// that a malformed field only affects itself.
type document struct {
	fields map[string]json.RawMessage
	logger zerolog.Logger
	url    string
}

func (d *document) fieldError(key string, err error) {
	d.logger.Warn().Err(err).
		Str("source_url", d.url).
		Str("field", key).
		Msg("Ignoring malformed book source field")
}

// str reads a scalar as a string. Numbers and booleans keep their JSON text.
func (d *document) str(key string) (string, bool) {
	raw := d.fields[key]
	switch shapeOf(raw) {
	case shapeAbsent:
		return "", false
	case shapeString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			d.fieldError(key, err)
			return "", false
		}
		return s, true
	case shapeScalar:
		return string(raw), true
	default:
		d.fieldError(key, fmt.Errorf("expected a string, got %s", raw))
		return "", false
	}
}

func (d *document) text(key string) string {
	s, _ := d.str(key)
	return s
}

func (d *document) readInt64(key string, def int64) int64 {
	s, ok := d.str(key)
	if !ok || strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		d.fieldError(key, err)
		return def
	}
	return int64(n)
}

func (d *document) readInt(key string, def int) int {
	return int(d.readInt64(key, int64(def)))
}

func (d *document) readBool(key string, def bool) bool {
	s, ok := d.str(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		d.fieldError(key, err)
		return def
	}
	return b
}

// stringOrJSON reads a field that is usually a string but may hold any JSON
// value, which is kept in compact form.
func (d *document) stringOrJSON(key string) string {
	raw := d.fields[key]
	switch shapeOf(raw) {
	case shapeAbsent:
		return ""
	case shapeString, shapeScalar:
		return d.text(key)
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			d.fieldError(key, err)
			return ""
		}
		return buf.String()
	}
}

func (d *document) legacy() (*BookSource, error) {
	url, ok := d.str("bookSourceUrl")
	if !ok || strings.TrimSpace(url) == "" {
		return nil, ErrMissingSourceURL
	}
	d.url = url

	s := newBookSource()
	s.BookSourceURL = url
	s.BookSourceName = d.text("bookSourceName")
	s.BookSourceGroup = d.text("bookSourceGroup")
	s.LoginURL = d.text("loginUrl")
	s.LoginUI = d.text("loginUi")
	s.LoginCheckJs = d.text("loginCheckJs")
	s.BookSourceComment = d.text("bookSourceComment")
	s.BookURLPattern = d.text("ruleBookUrlPattern")
	s.CustomOrder = d.readInt("serialNumber", 0)
	s.Header = userAgentHeader(d.text("httpUserAgent"))
	s.SearchURL = migrate.URL(d.text("ruleSearchUrl"))
	s.ExploreURL = migrate.URLs(d.text("ruleFindUrl"))
	if d.text("bookSourceType") == "AUDIO" {
		s.BookSourceType = TypeAudio
	}
	s.Enabled = d.readBool("enable", true)
	if strings.TrimSpace(s.ExploreURL) == "" {
		s.EnabledExplore = false
	}

	rule := func(key string) string { return migrate.Rule(d.text(key)) }

	s.RuleSearch = &SearchRule{
		BookList:    rule("ruleSearchList"),
		Name:        rule("ruleSearchName"),
		Author:      rule("ruleSearchAuthor"),
		Intro:       rule("ruleSearchIntroduce"),
		Kind:        rule("ruleSearchKind"),
		BookURL:     rule("ruleSearchNoteUrl"),
		CoverURL:    rule("ruleSearchCoverUrl"),
		LastChapter: rule("ruleSearchLastChapter"),
	}
	s.RuleExplore = &ExploreRule{
		BookList:    rule("ruleFindList"),
		Name:        rule("ruleFindName"),
		Author:      rule("ruleFindAuthor"),
		Intro:       rule("ruleFindIntroduce"),
		Kind:        rule("ruleFindKind"),
		BookURL:     rule("ruleFindNoteUrl"),
		CoverURL:    rule("ruleFindCoverUrl"),
		LastChapter: rule("ruleFindLastChapter"),
	}
	s.RuleBookInfo = &BookInfoRule{
		Init:        rule("ruleBookInfoInit"),
		Name:        rule("ruleBookName"),
		Author:      rule("ruleBookAuthor"),
		Intro:       rule("ruleIntroduce"),
		Kind:        rule("ruleBookKind"),
		CoverURL:    rule("ruleCoverUrl"),
		LastChapter: rule("ruleBookLastChapter"),
		TocURL:      rule("ruleChapterUrl"),
	}
	s.RuleToc = &TocRule{
		ChapterList: rule("ruleChapterList"),
		ChapterName: rule("ruleChapterName"),
		ChapterURL:  rule("ruleContentUrl"),
		NextTocURL:  rule("ruleChapterUrlNext"),
	}

	// "$" once marked a JSONPath content rule; only "$." still does.
	content := rule("ruleBookContent")
	if strings.HasPrefix(content, "$") && !strings.HasPrefix(content, "$.") {
		content = content[1:]
	}
	s.RuleContent = &ContentRule{
		Content:        content,
		ReplaceRegex:   rule("ruleBookContentReplace"),
		NextContentURL: rule("ruleContentUrlNext"),
	}

	return s, nil
}

func (d *document) current() (*BookSource, error) {
	url, ok := d.str("bookSourceUrl")
	if !ok || strings.TrimSpace(url) == "" {
		return nil, ErrMissingSourceURL
	}
	d.url = url

	s := newBookSource()
	s.BookSourceURL = url
	s.BookSourceName = d.text("bookSourceName")
	s.BookSourceGroup = d.text("bookSourceGroup")
	s.BookSourceType = d.readInt("bookSourceType", TypeText)
	s.BookURLPattern = d.text("bookUrlPattern")
	s.CustomOrder = d.readInt("customOrder", 0)
	s.Enabled = d.readBool("enabled", true)
	s.EnabledExplore = d.readBool("enabledExplore", true)
	s.ConcurrentRate = d.text("concurrentRate")
	s.Header = d.text("header")
	s.LoginURL = d.loginURL()
	s.LoginUI = d.stringOrJSON("loginUi")
	s.LoginCheckJs = d.text("loginCheckJs")
	s.BookSourceComment = d.text("bookSourceComment")
	s.LastUpdateTime = d.readInt64("lastUpdateTime", 0)
	s.RespondTime = d.readInt64("respondTime", DefaultRespondTime)
	s.Weight = d.readInt("weight", 0)
	s.ExploreURL = d.stringOrJSON("exploreUrl")
	s.SearchURL = d.text("searchUrl")

	s.RuleExplore = decodeGroup[ExploreRule](d, "ruleExplore")
	s.RuleSearch = decodeGroup[SearchRule](d, "ruleSearch")
	s.RuleBookInfo = decodeGroup[BookInfoRule](d, "ruleBookInfo")
	s.RuleToc = decodeGroup[TocRule](d, "ruleToc")
	s.RuleContent = decodeGroup[ContentRule](d, "ruleContent")

	return s, nil
}

// loginURL accepts either a URL string or an object carrying a "url" field.
func (d *document) loginURL() string {
	raw := d.fields["loginUrl"]
	if shapeOf(raw) != shapeObject {
		return d.text("loginUrl")
	}
	var obj struct {
		URL json.RawMessage `json:"url"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		d.fieldError("loginUrl", err)
		return ""
	}
	inner := &document{fields: map[string]json.RawMessage{"url": obj.URL}, logger: d.logger, url: d.url}
	return inner.text("url")
}

// decodeGroup resolves a rule group given either as an object or as a JSON
// string containing the object. Unknown keys are dropped.
func decodeGroup[T any](d *document, key string) *T {
	raw := d.fields[key]
	switch shapeOf(raw) {
	case shapeAbsent:
		return nil
	case shapeString:
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			d.fieldError(key, err)
			return nil
		}
		if strings.TrimSpace(encoded) == "" {
			return nil
		}
		raw = json.RawMessage(encoded)
	case shapeObject:
	default:
		d.fieldError(key, fmt.Errorf("expected an object, got %s", raw))
		return nil
	}

	var group T
	if err := json.Unmarshal(raw, &group); err != nil {
		d.fieldError(key, err)
		return nil
	}
	return &group
}

func userAgentHeader(ua string) string {
	if ua == "" {
		return ""
	}
	data, err := json.Marshal(map[string]string{"User-Agent": ua})
	if err != nil {
		return ""
	}
	return string(data)
}

// jsonShape is the kind of a raw JSON value, resolved once per field.
type jsonShape int

const (
	shapeAbsent jsonShape = iota // missing or null
	shapeString
	shapeObject
	shapeArray
	shapeScalar // number or boolean
)

func shapeOf(raw json.RawMessage) jsonShape {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return shapeAbsent
	}
	switch raw[0] {
	case '"':
		return shapeString
	case '{':
		return shapeObject
	case '[':
		return shapeArray
	default:
		return shapeScalar
	}
}
