package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/docsearch-mcp/pkg/types"
)

const (
	// DefaultMinChars is the size below which a section is merged into the
	// previous chunk (or an overflow block is dropped)
	DefaultMinChars = 80

	// DefaultMaxChars is the size above which a section is split into paragraphs
	DefaultMaxChars = 800
)

// Config controls chunk size bounds, in characters
type Config struct {
	MinChars int
	MaxChars int
}

// DefaultConfig returns the bounds used for corpus ingestion
func DefaultConfig() Config {
	return Config{
		MinChars: DefaultMinChars,
		MaxChars: DefaultMaxChars,
	}
}

// Validate checks that the bounds are usable
func (c Config) Validate() error {
	if c.MinChars < 0 || c.MaxChars < 0 {
		return fmt.Errorf("chunk bounds must not be negative (min=%d, max=%d)", c.MinChars, c.MaxChars)
	}
	if c.MinChars > 0 && c.MaxChars > 0 && c.MinChars > c.MaxChars {
		return fmt.Errorf("min chunk size %d exceeds max chunk size %d", c.MinChars, c.MaxChars)
	}
	return nil
}

// Chunker splits documents into heading-tagged chunks.
// It holds no per-document state and is safe for concurrent use.
type Chunker struct {
	cfg Config
}

// New creates a Chunker. Zero or negative bounds fall back to the defaults.
func New(cfg Config) *Chunker {
	if cfg.MinChars <= 0 {
		cfg.MinChars = DefaultMinChars
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	return &Chunker{cfg: cfg}
}

// Config returns the effective bounds
func (c *Chunker) Config() Config {
	return c.cfg
}

// ChunkDocument splits one document into its ordered chunk sequence.
// Empty or whitespace-only documents yield no chunks.
func (c *Chunker) ChunkDocument(doc types.Document) []types.Chunk {
	return c.Assemble(doc.Source, SplitSections(doc.Text))
}

// Assemble builds the chunk sequence for one document from its sections.
//
// Bodies within bounds become one chunk each. A body shorter than MinChars is
// appended to the previous chunk of the same document, unless it would be the
// first chunk. A body longer than MaxChars is packed paragraph by paragraph.
// Each chunk is tagged with the most recent heading seen so far, including
// headings of sections that produced no chunk.
func (c *Chunker) Assemble(source string, sections []types.Section) []types.Chunk {
	chunks := make([]types.Chunk, 0, len(sections))
	currentHeading := ""

	for _, sec := range sections {
		if sec.HasHeading {
			currentHeading = sec.Heading
		}

		body := strings.TrimSpace(sec.Body)
		if body == "" {
			continue
		}

		if utf8.RuneCountInString(body) <= c.cfg.MaxChars {
			if utf8.RuneCountInString(body) >= c.cfg.MinChars || len(chunks) == 0 {
				chunks = append(chunks, newChunk(body, source, currentHeading))
			} else {
				last := &chunks[len(chunks)-1]
				last.Text += paragraphSeparator + body
			}
			continue
		}

		for _, block := range PackParagraphs(splitParagraphs(body), c.cfg.MinChars, c.cfg.MaxChars) {
			chunks = append(chunks, newChunk(block, source, currentHeading))
		}
	}

	return chunks
}

func newChunk(text, source, heading string) types.Chunk {
	return types.Chunk{
		Text: text,
		Metadata: types.ChunkMetadata{
			Source:  source,
			Heading: heading,
		},
	}
}
