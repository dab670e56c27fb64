package types

import "errors"

// Domain errors for type validation
var (
	// Chunk errors
	ErrEmptyText     = errors.New("chunk text cannot be empty")
	ErrMissingSource = errors.New("chunk source is required")

	// Search result errors
	ErrInvalidChunkID        = errors.New("invalid chunk ID")
	ErrInvalidRank           = errors.New("rank must be >= 1")
	ErrInvalidRelevanceScore = errors.New("relevance score must be between 0 and 1")
)
