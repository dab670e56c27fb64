package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

func chunkText(c *Chunker, text string) []types.Chunk {
	return c.ChunkDocument(types.Document{Source: "docs/test.md", Text: text})
}

func TestNew_AppliesDefaults(t *testing.T) {
	c := New(Config{})
	assert.Equal(t, DefaultConfig(), c.Config())

	c = New(Config{MinChars: 10, MaxChars: 100})
	assert.Equal(t, Config{MinChars: 10, MaxChars: 100}, c.Config())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, Config{}.Validate())
	assert.Error(t, Config{MinChars: 900, MaxChars: 800}.Validate())
	assert.Error(t, Config{MinChars: -1, MaxChars: 800}.Validate())
}

func TestChunkDocument_ShortSectionMergesBackward(t *testing.T) {
	c := New(DefaultConfig())

	chunks := chunkText(c, "# A\nHello world.\n\n# B\nShort.")

	require.Len(t, chunks, 1)
	assert.Equal(t, "Hello world.\n\nShort.", chunks[0].Text)
	assert.Equal(t, "A", chunks[0].Metadata.Heading)
	assert.Equal(t, "docs/test.md", chunks[0].Metadata.Source)
}

func TestChunkDocument_SingleSectionWithinBounds(t *testing.T) {
	c := New(DefaultConfig())
	body := strings.Repeat("word ", 40) // 200 chars before trimming

	chunks := chunkText(c, "\n\n"+body+"\n")

	require.Len(t, chunks, 1)
	assert.Equal(t, strings.TrimSpace(body), chunks[0].Text)
	assert.Equal(t, "", chunks[0].Metadata.Heading)
}

func TestChunkDocument_ShortOnlySectionStillEmitted(t *testing.T) {
	c := New(DefaultConfig())

	chunks := chunkText(c, "## Tiny\nok")

	require.Len(t, chunks, 1)
	assert.Equal(t, "ok", chunks[0].Text)
	assert.Equal(t, "Tiny", chunks[0].Metadata.Heading)
}

func TestChunkDocument_EmptyInput(t *testing.T) {
	c := New(DefaultConfig())

	assert.Empty(t, chunkText(c, ""))
	assert.Empty(t, chunkText(c, " \n\t\n "))
	assert.Empty(t, chunkText(c, "# Only a heading\n"))
}

func TestChunkDocument_NoHeadingsGivesEmptyHeading(t *testing.T) {
	c := New(Config{MinChars: 10, MaxChars: 100})
	var paragraphs []string
	for i := 0; i < 12; i++ {
		paragraphs = append(paragraphs, strings.Repeat(string(rune('a'+i)), 40))
	}

	chunks := chunkText(c, strings.Join(paragraphs, "\n\n"))

	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.Equal(t, "", ch.Metadata.Heading)
	}
}

func TestChunkDocument_OversizedSectionPacked(t *testing.T) {
	c := New(DefaultConfig())
	var paragraphs []string
	for _, ch := range []string{"a", "b", "c", "d", "e"} {
		paragraphs = append(paragraphs, strings.Repeat(ch, 300))
	}
	text := "# Big\n" + strings.Join(paragraphs, "\n\n")

	chunks := chunkText(c, text)

	require.Len(t, chunks, 3)
	assert.Equal(t, paragraphs[0]+"\n\n"+paragraphs[1], chunks[0].Text)
	assert.Equal(t, paragraphs[2]+"\n\n"+paragraphs[3], chunks[1].Text)
	assert.Equal(t, paragraphs[4], chunks[2].Text)
	for _, ch := range chunks {
		assert.Equal(t, "Big", ch.Metadata.Heading)
		assert.LessOrEqual(t, ch.CharCount(), DefaultMaxChars)
	}
}

func TestChunkDocument_OversizedParagraphIsOwnChunk(t *testing.T) {
	c := New(DefaultConfig())
	huge := strings.Repeat("x", 1500)
	text := "# Big\n" + strings.Repeat("a", 100) + "\n\n" + huge + "\n\n" + strings.Repeat("b", 100)

	chunks := chunkText(c, text)

	require.Len(t, chunks, 3)
	assert.Equal(t, huge, chunks[1].Text)
	for i, ch := range chunks {
		if ch.Text == huge {
			continue
		}
		assert.LessOrEqual(t, ch.CharCount(), DefaultMaxChars, "chunk %d", i)
	}
}

func TestChunkDocument_PackedBlocksAreNotMergedBackward(t *testing.T) {
	c := New(DefaultConfig())
	first := strings.Repeat("f", 100)
	// packs into 750 + dropped 60 + 760
	big := strings.Repeat("a", 750) + "\n\n" + strings.Repeat("b", 60) + "\n\n" + strings.Repeat("c", 760)

	chunks := chunkText(c, "# One\n"+first+"\n# Two\n"+big)

	require.Len(t, chunks, 3)
	assert.Equal(t, first, chunks[0].Text)
	assert.Equal(t, strings.Repeat("a", 750), chunks[1].Text)
	assert.Equal(t, strings.Repeat("c", 760), chunks[2].Text)
	assert.NotContains(t, strings.Join([]string{chunks[0].Text, chunks[1].Text, chunks[2].Text}, ""), "b")
}

func TestChunkDocument_MergeKeepsFirstChunkHeading(t *testing.T) {
	c := New(DefaultConfig())
	long := strings.Repeat("l", 120)

	chunks := chunkText(c, "# First\n"+long+"\n## Second\ntiny\n## Third\n"+long)

	require.Len(t, chunks, 2)
	assert.Equal(t, long+"\n\ntiny", chunks[0].Text)
	assert.Equal(t, "First", chunks[0].Metadata.Heading)
	assert.Equal(t, "Third", chunks[1].Metadata.Heading)
}

func TestChunkDocument_BackToBackHeadingLost(t *testing.T) {
	c := New(DefaultConfig())
	body := strings.Repeat("z", 100)

	chunks := chunkText(c, "# Chapter\n## Section\n"+body)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Section", chunks[0].Metadata.Heading)
}

func TestChunkDocument_EmptySectionHeadingCarriesToHeadlessContent(t *testing.T) {
	c := New(DefaultConfig())
	sections := []types.Section{
		{Heading: "Carried", HasHeading: true},
		{Body: strings.Repeat("q", 100)},
	}

	chunks := c.Assemble("docs/x.md", sections)

	require.Len(t, chunks, 1)
	assert.Equal(t, "Carried", chunks[0].Metadata.Heading)
}

func TestChunkDocument_PreambleHasNoHeading(t *testing.T) {
	c := New(DefaultConfig())
	intro := strings.Repeat("i", 90)
	body := strings.Repeat("b", 90)

	chunks := chunkText(c, intro+"\n# Heading\n"+body)

	require.Len(t, chunks, 2)
	assert.Equal(t, "", chunks[0].Metadata.Heading)
	assert.Equal(t, "Heading", chunks[1].Metadata.Heading)
}

func TestChunkDocument_CountsCharacters(t *testing.T) {
	c := New(Config{MinChars: 80, MaxChars: 200})
	// 150 characters, 450 bytes: fits in one chunk by character count
	body := strings.Repeat("仓", 150)

	chunks := chunkText(c, "# 标题\n"+body)

	require.Len(t, chunks, 1)
	assert.Equal(t, body, chunks[0].Text)
	assert.Equal(t, "标题", chunks[0].Metadata.Heading)
	assert.Equal(t, 150, utf8.RuneCountInString(chunks[0].Text))
}

func TestChunkDocument_PreservesOrder(t *testing.T) {
	c := New(Config{MinChars: 5, MaxChars: 50})
	text := "# H1\nalpha alpha\n# H2\nbravo bravo\n# H3\ncharlie charlie\n# H4\ndelta delta"

	chunks := chunkText(c, text)

	require.Len(t, chunks, 4)
	last := -1
	for _, ch := range chunks {
		idx := strings.Index(text, ch.Text)
		require.GreaterOrEqual(t, idx, 0)
		assert.Greater(t, idx, last)
		last = idx
	}
}

func TestChunkDocument_Deterministic(t *testing.T) {
	c := New(DefaultConfig())
	text := "# Intro\nshort\n\n# Long\n" + strings.Repeat("para one. ", 50) + "\n\n" +
		strings.Repeat("para two. ", 60) + "\n\n## Tail\nend"

	first := chunkText(c, text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, chunkText(c, text))
	}
}

func TestChunkDocument_NoFabricatedContent(t *testing.T) {
	c := New(Config{MinChars: 20, MaxChars: 120})
	text := "# One\n" + strings.Repeat("one ", 20) + "\n\n" + strings.Repeat("uno ", 20) +
		"\n\n# Two\nsmall\n\n# Three\n" + strings.Repeat("three ", 30)

	for _, ch := range chunkText(c, text) {
		for _, part := range strings.Split(ch.Text, "\n\n") {
			assert.Contains(t, text, part)
		}
	}
}

func TestChunkDocument_FullWidthSpaceHeading(t *testing.T) {
	c := New(DefaultConfig())
	text := "# 前言\n" + strings.Repeat("内", 100) + "\n#\u3000标题\n" + strings.Repeat("文", 100)

	chunks := chunkText(c, text)

	require.Len(t, chunks, 2)
	assert.Equal(t, "前言", chunks[0].Metadata.Heading)
	assert.Equal(t, "标题", chunks[1].Metadata.Heading)
	assert.Equal(t, strings.Repeat("文", 100), chunks[1].Text)
}
