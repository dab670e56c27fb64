package types

// SearchResult represents a single search result with relevance information
type SearchResult struct {
	// Identification
	ID   string `json:"id"` // Chunk key, e.g. "chunk_42"
	Rank int    `json:"rank"` // Position in result set (1-based)

	// Scoring
	RelevanceScore float64 `json:"score"`

	// Content and metadata
	Text    string `json:"text"`
	Source  string `json:"source"`
	Heading string `json:"heading"`
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.ID == "" {
		return ErrInvalidChunkID
	}

	if sr.Rank < 1 {
		return ErrInvalidRank
	}

	if sr.RelevanceScore < 0 || sr.RelevanceScore > 1 {
		return ErrInvalidRelevanceScore
	}

	if sr.Source == "" {
		return ErrMissingSource
	}

	if sr.Text == "" {
		return ErrEmptyText
	}

	return nil
}
