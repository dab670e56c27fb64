package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func para(ch string, n int) string {
	return strings.Repeat(ch, n)
}

func TestPackParagraphs_FivePlainParagraphs(t *testing.T) {
	paragraphs := []string{
		para("a", 300), para("b", 300), para("c", 300), para("d", 300), para("e", 300),
	}

	blocks := PackParagraphs(paragraphs, 80, 800)

	require.Len(t, blocks, 3)
	assert.Equal(t, paragraphs[0]+"\n\n"+paragraphs[1], blocks[0])
	assert.Equal(t, paragraphs[2]+"\n\n"+paragraphs[3], blocks[1])
	assert.Equal(t, paragraphs[4], blocks[2])
	for _, b := range blocks {
		assert.LessOrEqual(t, utf8.RuneCountInString(b), 800)
		assert.GreaterOrEqual(t, utf8.RuneCountInString(b), 80)
	}
}

func TestPackParagraphs_ExactFitStaysTogether(t *testing.T) {
	// 399 + 2 + 399 = 800, not above the limit
	blocks := PackParagraphs([]string{para("a", 399), para("b", 399)}, 80, 800)

	require.Len(t, blocks, 1)
	assert.Equal(t, 800, utf8.RuneCountInString(blocks[0]))
}

func TestPackParagraphs_OneOverLimitSplits(t *testing.T) {
	blocks := PackParagraphs([]string{para("a", 400), para("b", 399)}, 80, 800)

	require.Len(t, blocks, 2)
	assert.Equal(t, para("a", 400), blocks[0])
	assert.Equal(t, para("b", 399), blocks[1])
}

func TestPackParagraphs_SmallBlockDropped(t *testing.T) {
	paragraphs := []string{para("a", 750), para("b", 60), para("c", 760)}

	blocks := PackParagraphs(paragraphs, 80, 800)

	require.Len(t, blocks, 2)
	assert.Equal(t, paragraphs[0], blocks[0])
	assert.Equal(t, paragraphs[2], blocks[1])
}

func TestPackParagraphs_TrailingSmallBlockDropped(t *testing.T) {
	blocks := PackParagraphs([]string{para("a", 790), para("b", 20)}, 80, 800)

	require.Len(t, blocks, 1)
	assert.Equal(t, para("a", 790), blocks[0])
}

func TestPackParagraphs_OversizedParagraphKeptWhole(t *testing.T) {
	paragraphs := []string{para("a", 200), para("b", 1200), para("c", 200)}

	blocks := PackParagraphs(paragraphs, 80, 800)

	require.Len(t, blocks, 3)
	assert.Equal(t, paragraphs[1], blocks[1])
	assert.Equal(t, 1200, utf8.RuneCountInString(blocks[1]))
}

func TestPackParagraphs_CountsCharactersNotBytes(t *testing.T) {
	// 300 CJK characters are 900 bytes
	cjk := para("仓", 300)

	blocks := PackParagraphs([]string{cjk, cjk}, 80, 800)

	require.Len(t, blocks, 1)
	assert.Equal(t, 602, utf8.RuneCountInString(blocks[0]))
}

func TestPackParagraphs_EmptyInput(t *testing.T) {
	assert.Empty(t, PackParagraphs(nil, 80, 800))
	assert.Empty(t, PackParagraphs([]string{"", ""}, 80, 800))
}

func TestSplitParagraphs(t *testing.T) {
	body := "  first  \n\n\n\nsecond\nline\n\n   \n\nthird"

	got := splitParagraphs(body)

	assert.Equal(t, []string{"first", "second\nline", "third"}, got)
}
