package main

import (
	"fmt"
	"strings"

	"github.com/pevans/booksrc/chinese"
	"github.com/pevans/booksrc/config"
	"github.com/pevans/booksrc/content"
	"github.com/pevans/booksrc/notify"
	"github.com/pevans/booksrc/replace"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// RenderRequest is one chapter to render, as accepted by the render command
// and the render endpoint.
type RenderRequest struct {
	BookName       string `json:"bookName"`
	Origin         string `json:"origin"`
	ChapterTitle   string `json:"chapterTitle"`
	Content        string `json:"content"`
	HTML           bool   `json:"html"`
	UseReplaceRule *bool  `json:"useReplaceRule,omitempty"` // default true
	ReSegment      bool   `json:"reSegment"`
}

// RenderResponse holds the rendered paragraphs.
type RenderResponse struct {
	Paragraphs []string `json:"paragraphs"`
}

// renderer renders chapters with the stored reader preferences and the
// replace rules cached per book.
type renderer struct {
	registry  *replace.Registry
	prefs     *config.ConfigStore
	converter *chinese.Converter
	notifier  notify.Notifier
	logger    zerolog.Logger
}

func newRenderer(registry *replace.Registry, prefs *config.ConfigStore, notifier notify.Notifier, logger zerolog.Logger) *renderer {
	return &renderer{
		registry:  registry,
		prefs:     prefs,
		converter: chinese.NewConverter(),
		notifier:  notifier,
		logger:    logger,
	}
}

func (r *renderer) Render(req RenderRequest) ([]string, error) {
	prefs, err := r.prefs.GetConfig()
	if err != nil {
		return nil, err
	}

	text := req.Content
	if req.HTML {
		if text, err = content.TextFromHTML(text); err != nil {
			return nil, err
		}
	}

	useReplaceRule := req.UseReplaceRule == nil || *req.UseReplaceRule
	entry := r.registry.Get(replace.Key{BookName: req.BookName, Origin: req.Origin})

	p := content.NewProcessor(entry, content.Config{
		Converter:       r.converter,
		ConverterMode:   prefs.ConverterMode(),
		ParagraphIndent: prefs.ParagraphIndent,
		Notifier:        r.notifier,
		Logger:          r.logger,
	})

	return p.Render(content.Request{
		Book: content.Book{
			Name:           req.BookName,
			Origin:         req.Origin,
			UseReplaceRule: useReplaceRule,
			ReSegment:      req.ReSegment,
		},
		Chapter: content.Chapter{Title: req.ChapterTitle},
		Content: text,
		Options: content.Options{
			IncludeTitle:   prefs.IncludeTitle,
			UseReplace:     prefs.UseReplace,
			ChineseConvert: prefs.ConverterMode() != chinese.None,
			ReSegment:      prefs.ReSegment,
		},
	}), nil
}

func newRenderCmd(a *app) *cobra.Command {
	var req RenderRequest
	var noReplace bool

	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Render chapter text into display paragraphs",
		Long: `Render a chapter from a file or stdin using the stored reader
preferences and the enabled replace rules for the book.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			data, err := readInput(cmd, name)
			if err != nil {
				return err
			}
			req.Content = string(data)
			if noReplace {
				off := false
				req.UseReplaceRule = &off
			}

			rules, err := a.openRuleStore()
			if err != nil {
				return err
			}
			defer rules.Close()

			prefs, err := a.openConfigStore()
			if err != nil {
				return err
			}
			defer prefs.Close()

			r := newRenderer(
				replace.NewRegistry(rules, a.cfg.Cache.MaxEntries, a.logger),
				prefs,
				notify.New(a.logger, cmd.ErrOrStderr()),
				a.logger,
			)
			paragraphs, err := r.Render(req)
			if err != nil {
				return fmt.Errorf("failed to render chapter: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(paragraphs, "\n"))
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.BookName, "book", "", "Book name, used for title stripping and rule scope")
	flags.StringVar(&req.Origin, "origin", "", "Book source URL, used for rule scope")
	flags.StringVar(&req.ChapterTitle, "title", "", "Chapter title")
	flags.BoolVar(&req.HTML, "html", false, "Input is an HTML fragment")
	flags.BoolVar(&req.ReSegment, "resegment", false, "Allow resegmenting this book")
	flags.BoolVar(&noReplace, "no-replace", false, "Skip replace rules for this book")
	return cmd
}
