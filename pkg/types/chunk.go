package types

import (
	"crypto/sha256"
	"unicode/utf8"
)

// ChunkMetadata records where a chunk came from
type ChunkMetadata struct {
	Source  string `json:"source" yaml:"source"`
	Heading string `json:"heading" yaml:"heading"` // Empty when no heading encloses the chunk
}

// Chunk is a bounded-size passage of document text, the unit handed to embedding
type Chunk struct {
	Text     string        `json:"text" yaml:"text"`
	Metadata ChunkMetadata `json:"metadata" yaml:"metadata"`
}

// CharCount returns the length of the chunk text in characters
func (c *Chunk) CharCount() int {
	return utf8.RuneCountInString(c.Text)
}

// ContentHash computes the SHA-256 hash of the chunk text
func (c *Chunk) ContentHash() [32]byte {
	return sha256.Sum256([]byte(c.Text))
}

// Validate checks that the chunk can be stored
func (c *Chunk) Validate() error {
	if c.Text == "" {
		return ErrEmptyText
	}
	if c.Metadata.Source == "" {
		return ErrMissingSource
	}
	return nil
}
