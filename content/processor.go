// Package content turns raw scraped chapter text into display paragraphs.
//
// Rendering runs a fixed sequence of stages: title-line stripping,
// resegmentation, script conversion, replacement rules, title prefixing and
// paragraph formatting. Every stage reports a StageResult; a failed stage is
// logged and its input passes through unchanged to the next one.
package content

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pevans/booksrc/chinese"
	"github.com/pevans/booksrc/notify"
	"github.com/pevans/booksrc/replace"
	"github.com/rs/zerolog"
)

// DefaultIndent is two ideographic spaces.
const DefaultIndent = "　　"

// Book is the part of a library book that rendering depends on.
type Book struct {
	Name           string
	Origin         string
	UseReplaceRule bool
	ReSegment      bool
}

// Chapter is the chapter being rendered.
type Chapter struct {
	Title string
}

// Options toggles the optional stages for one render.
type Options struct {
	IncludeTitle   bool
	UseReplace     bool
	ChineseConvert bool
	ReSegment      bool
}

// DefaultOptions enables every stage.
func DefaultOptions() Options {
	return Options{IncludeTitle: true, UseReplace: true, ChineseConvert: true, ReSegment: true}
}

// Request is the input of a single render.
type Request struct {
	Book    Book
	Chapter Chapter
	Content string
	Options Options
}

// Segmenter re-flows paragraph breaks.
type Segmenter interface {
	Resegment(text, chapterTitle string) string
}

// Converter converts between Chinese scripts.
type Converter interface {
	Convert(text string, mode chinese.Mode) (string, error)
}

// RuleProvider supplies the replace rules for the book being rendered. A
// replace.Entry satisfies it.
type RuleProvider interface {
	TitleRules() []replace.Rule
	ContentRules() []replace.Rule
}

// StageResult is the outcome of one stage. When Err is set Text is ignored.
type StageResult struct {
	Text string
	Err  error
}

func ok(text string) StageResult { return StageResult{Text: text} }

func failed(err error) StageResult { return StageResult{Err: err} }

// Config wires a Processor's collaborators. Nil fields fall back to no-ops.
type Config struct {
	Segmenter       Segmenter
	Converter       Converter
	ConverterMode   chinese.Mode
	ParagraphIndent string
	Notifier        notify.Notifier
	Logger          zerolog.Logger
}

// Processor renders chapters for one book. It holds no mutable state and is
// safe for concurrent use.
type Processor struct {
	rules     RuleProvider
	segmenter Segmenter
	converter Converter
	mode      chinese.Mode
	indent    string
	notifier  notify.Notifier
	logger    zerolog.Logger
}

// NewProcessor creates a Processor drawing replace rules from rules.
func NewProcessor(rules RuleProvider, cfg Config) *Processor {
	p := &Processor{
		rules:     rules,
		segmenter: cfg.Segmenter,
		converter: cfg.Converter,
		mode:      cfg.ConverterMode,
		indent:    cfg.ParagraphIndent,
		notifier:  cfg.Notifier,
		logger:    cfg.Logger,
	}
	if p.rules == nil {
		p.rules = noRules{}
	}
	if p.segmenter == nil {
		p.segmenter = LineSegmenter{}
	}
	if p.converter == nil {
		p.converter = chinese.NewConverter()
	}
	if p.notifier == nil {
		p.notifier = notify.Discard{}
	}
	return p
}

// Render returns the chapter's paragraphs. The result never contains empty
// strings; when Options.IncludeTitle is set the first element is the display
// title and every other element starts with the paragraph indent.
func (p *Processor) Render(req Request) []string {
	opts := req.Options
	text := req.Content

	text = p.pass(text, "strip title", "", stripTitle(text, req.Book.Name, req.Chapter.Title))

	if opts.ReSegment && req.Book.ReSegment {
		text = p.segmenter.Resegment(text, req.Chapter.Title)
	}

	if opts.ChineseConvert && p.mode != chinese.None {
		res := p.convert(text)
		text = p.pass(text, "chinese conversion", "Chinese conversion failed", res)
	}

	if opts.UseReplace && req.Book.UseReplaceRule {
		text = p.applyRules(text, p.rules.ContentRules())
	}

	if opts.IncludeTitle {
		text = p.DisplayTitle(req.Chapter) + "\n" + text
	}

	return formatParagraphs(text, opts.IncludeTitle, p.indent)
}

// DisplayTitle applies the title-scope replace rules to the chapter title.
func (p *Processor) DisplayTitle(chapter Chapter) string {
	return p.applyRules(chapter.Title, p.rules.TitleRules())
}

// ReplaceContent applies the content-scope replace rules to text.
func (p *Processor) ReplaceContent(text string) string {
	return p.applyRules(text, p.rules.ContentRules())
}

// pass returns the stage output, or in unchanged when the stage failed. A
// non-empty userMessage is shown to the user on failure.
func (p *Processor) pass(in, stage, userMessage string, res StageResult) string {
	if res.Err == nil {
		return res.Text
	}
	p.logger.Error().Err(res.Err).Str("stage", stage).Msg("Content stage failed")
	p.notifier.LogError(stage+" failed", res.Err)
	if userMessage != "" {
		p.notifier.NotifyUser(userMessage)
	}
	return in
}

func (p *Processor) convert(text string) StageResult {
	out, err := p.converter.Convert(text, p.mode)
	if err != nil {
		return failed(err)
	}
	return ok(out)
}

// applyRules runs rules in order. A failing rule is reported by name and
// skipped; the remaining rules still run.
func (p *Processor) applyRules(text string, rules []replace.Rule) string {
	for _, rule := range rules {
		if rule.Pattern == "" {
			continue
		}
		out, err := rule.Apply(text)
		res := ok(out)
		if err != nil {
			res = failed(err)
		}
		text = p.pass(text, "replace "+rule.Name, fmt.Sprintf("%s replacement failed", rule.Name), res)
	}
	return text
}

// stripTitle removes a leading copy of the chapter title, optionally preceded
// by whitespace, punctuation or the book name, together with the whitespace
// and punctuation that follow it.
func stripTitle(text, bookName, title string) StageResult {
	if title == "" {
		return ok(text)
	}

	prefix := `\s|\p{P}`
	if bookName != "" {
		prefix += "|" + regexp.QuoteMeta(bookName)
	}
	pattern := "^(" + prefix + ")*" + regexp.QuoteMeta(title) + `(\s|\p{P})+`

	re, err := regexp.Compile(pattern)
	if err != nil {
		return failed(fmt.Errorf("failed to compile title pattern: %w", err))
	}
	if loc := re.FindStringIndex(text); loc != nil {
		return ok(text[loc[1]:])
	}
	return ok(text)
}

func isTrimmable(r rune) bool {
	return r <= 0x20 || r == '　'
}

func formatParagraphs(text string, firstIsTitle bool, indent string) []string {
	paragraphs := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimFunc(line, isTrimmable)
		if line == "" {
			continue
		}
		if len(paragraphs) == 0 && firstIsTitle {
			paragraphs = append(paragraphs, line)
		} else {
			paragraphs = append(paragraphs, indent+line)
		}
	}
	return paragraphs
}

type noRules struct{}

func (noRules) TitleRules() []replace.Rule   { return nil }
func (noRules) ContentRules() []replace.Rule { return nil }
