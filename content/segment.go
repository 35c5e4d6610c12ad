package content

import (
	"strings"
	"unicode/utf8"
)

// sentenceEnders close a paragraph when they end a line.
const sentenceEnders = "。！？…」』”’）.!?\"')~"

// LineSegmenter rejoins hard-wrapped lines: a line that does not end with
// sentence-final punctuation is merged with the next one. Blank lines and a
// line equal to the chapter title always break.
type LineSegmenter struct{}

func (LineSegmenter) Resegment(text, chapterTitle string) string {
	var out []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			out = append(out, current.String())
			current.Reset()
		}
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimFunc(line, isTrimmable)
		if line == "" {
			flush()
			continue
		}
		if chapterTitle != "" && line == chapterTitle {
			flush()
			out = append(out, line)
			continue
		}

		current.WriteString(line)
		last, _ := utf8.DecodeLastRuneInString(line)
		if strings.ContainsRune(sentenceEnders, last) {
			flush()
		}
	}
	flush()

	return strings.Join(out, "\n")
}
