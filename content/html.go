package content

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// blockElements start and end on their own line.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "blockquote": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "pre": true,
}

// inlineSpace folds source newlines and non-breaking spaces inside text.
var inlineSpace = strings.NewReplacer("\n", " ", "\u00a0", " ")

// TextFromHTML flattens an HTML chapter body into newline-separated text.
// Block elements and <br> become line breaks; scripts and styles are dropped.
func TextFromHTML(body string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	var sb strings.Builder
	writeText(&sb, doc.Find("body").Contents())
	return strings.TrimSpace(sb.String()), nil
}

func writeText(sb *strings.Builder, sel *goquery.Selection) {
	sel.Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		switch node.Type {
		case html.TextNode:
			sb.WriteString(inlineSpace.Replace(node.Data))
		case html.ElementNode:
			name := goquery.NodeName(s)
			if name == "br" {
				sb.WriteByte('\n')
				return
			}
			block := blockElements[name]
			if block {
				sb.WriteByte('\n')
			}
			writeText(sb, s.Contents())
			if block {
				sb.WriteByte('\n')
			}
		}
	})
}
