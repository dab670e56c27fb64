package chunker

import (
	"strings"
	"unicode/utf8"
)

// paragraphSeparator joins paragraphs inside a block and marks paragraph
// boundaries inside a section body.
const paragraphSeparator = "\n\n"

var separatorLen = utf8.RuneCountInString(paragraphSeparator)

// PackParagraphs greedily groups consecutive paragraphs into blocks of at most
// maxChars characters.
//
// A block is flushed when the next paragraph would push its joined length past
// maxChars. Flushed blocks shorter than minChars are dropped, not merged into a
// neighbour. A paragraph longer than maxChars on its own becomes a block of its
// own; paragraphs are never split.
func PackParagraphs(paragraphs []string, minChars, maxChars int) []string {
	var blocks []string
	var acc []string
	accLen := 0

	flush := func() {
		if len(acc) == 0 {
			return
		}
		if accLen >= minChars {
			blocks = append(blocks, strings.Join(acc, paragraphSeparator))
		}
		acc = acc[:0]
		accLen = 0
	}

	for _, para := range paragraphs {
		if para == "" {
			continue
		}
		paraLen := utf8.RuneCountInString(para)

		if len(acc) > 0 && accLen+separatorLen+paraLen > maxChars {
			flush()
		}

		if len(acc) > 0 {
			accLen += separatorLen
		}
		acc = append(acc, para)
		accLen += paraLen
	}
	flush()

	return blocks
}

// splitParagraphs splits a section body on blank lines, trimming each
// paragraph and discarding empty ones.
func splitParagraphs(body string) []string {
	parts := strings.Split(body, paragraphSeparator)
	paragraphs := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}
