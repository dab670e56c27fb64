package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

// maxHeadingLevel is the deepest heading marker run that opens a section
const maxHeadingLevel = 6

// isHeadingLine reports whether s starts with a heading line: 1-6 '#'
// markers, a whitespace rune, then content. Whitespace is Unicode aware so
// full-width spaces count. The content may follow on a later line, so a bare
// "#" line followed by text still opens a section.
func isHeadingLine(s string) bool {
	n := 0
	for n < len(s) && s[n] == '#' {
		n++
	}
	if n == 0 || n > maxHeadingLevel {
		return false
	}

	r, size := utf8.DecodeRuneInString(s[n:])
	if size == 0 || !isHeadingSpace(r) {
		return false
	}
	return strings.TrimLeft(s[n+size:], "\n") != ""
}

// isHeadingSpace also accepts the ASCII separator controls 0x1c-0x1f
func isHeadingSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}

// SplitSections divides text into ordered sections at heading lines.
//
// Every line start where a heading line begins is a split point; the heading
// line belongs to the section it opens. Pieces that are blank after trimming
// are dropped. Sections with an empty body are kept so the caller can track
// the heading they introduce.
func SplitSections(text string) []types.Section {
	cuts := splitPoints(text)

	sections := make([]types.Section, 0, len(cuts))
	for i := 0; i+1 < len(cuts); i++ {
		if sec, ok := parseSection(text[cuts[i]:cuts[i+1]], cuts[i]); ok {
			sections = append(sections, sec)
		}
	}
	return sections
}

// splitPoints returns 0, every heading line start after 0, and len(text)
func splitPoints(text string) []int {
	cuts := []int{0}
	for _, start := range headingStarts(text) {
		if start > 0 {
			cuts = append(cuts, start)
		}
	}
	return append(cuts, len(text))
}

// headingStarts returns the byte offsets of all line starts that open a heading line
func headingStarts(text string) []int {
	var starts []int
	lineStart := 0
	for {
		if isHeadingLine(text[lineStart:]) {
			starts = append(starts, lineStart)
		}

		nl := strings.IndexByte(text[lineStart:], '\n')
		if nl < 0 {
			return starts
		}
		lineStart += nl + 1
	}
}

// parseSection turns one piece of the document into a Section.
// The first line is treated as the heading when it starts with '#'.
func parseSection(piece string, offset int) (types.Section, bool) {
	trimmed := strings.TrimSpace(piece)
	if trimmed == "" {
		return types.Section{}, false
	}

	sec := types.Section{
		Offset: offset + len(piece) - len(strings.TrimLeftFunc(piece, unicode.IsSpace)),
	}

	first, rest, _ := strings.Cut(trimmed, "\n")
	if strings.HasPrefix(first, "#") {
		sec.HasHeading = true
		sec.Heading = strings.TrimSpace(strings.TrimLeft(first, "#"))
		sec.Body = strings.TrimSpace(rest)
		return sec, true
	}

	sec.Body = trimmed
	return sec, true
}
