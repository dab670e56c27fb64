package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// minFTSTermRunes is the shortest term the trigram tokenizer can match
const minFTSTermRunes = 3

// searchVector performs vector similarity search using cosine similarity
func searchVector(ctx context.Context, q querier, collectionID int64, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	if limit <= 0 {
		return []VectorResult{}, nil
	}
	if VectorExtensionAvailable {
		results, err := searchVectorOptimized(ctx, q, collectionID, queryVector, limit, filters)
		if err == nil {
			return results, nil
		}
		// vec0 functions are missing when the extension was not loaded into this connection
	}
	return searchVectorFallback(ctx, q, collectionID, queryVector, limit, filters)
}

// searchVectorOptimized computes cosine distance inside SQLite via sqlite-vec
func searchVectorOptimized(ctx context.Context, q querier, collectionID int64, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	queryVectorBlob := serializeVector(queryVector)

	// vec_distance_cosine returns a distance, so similarity is 1 - distance
	query := `
		SELECT
			c.id as chunk_id,
			1.0 - vec_distance_cosine(e.vector, ?) as similarity
		FROM chunks c
		INNER JOIN embeddings e ON c.id = e.chunk_id
		WHERE c.collection_id = ?
		AND e.dimension = ?
	`
	args := []interface{}{queryVectorBlob, collectionID, len(queryVector)}

	query, args = applyFilters(query, args, filters)

	if filters != nil && filters.MinRelevance > 0 {
		query += " AND (1.0 - vec_distance_cosine(e.vector, ?)) >= ?"
		args = append(args, queryVectorBlob, filters.MinRelevance)
	}

	query += " ORDER BY similarity DESC, c.position LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var result VectorResult
		if err := rows.Scan(&result.ChunkID, &result.SimilarityScore); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// searchVectorFallback scores every candidate embedding in Go
func searchVectorFallback(ctx context.Context, q querier, collectionID int64, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	query := `
		SELECT
			c.id as chunk_id,
			e.vector
		FROM chunks c
		INNER JOIN embeddings e ON c.id = e.chunk_id
		WHERE c.collection_id = ?
	`
	args := []interface{}{collectionID}

	query, args = applyFilters(query, args, filters)
	query += " ORDER BY c.position"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates, err := computeSimilarityScores(rows, queryVector, filters)
	if err != nil {
		return nil, err
	}

	sortCandidates(candidates)

	return buildVectorResults(candidates, limit), nil
}

// searchText performs BM25 full-text search using FTS5. Queries made only of
// terms too short for the trigram index fall back to substring matching.
func searchText(ctx context.Context, q querier, collectionID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		return []TextResult{}, nil
	}

	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return searchSubstring(ctx, q, collectionID, terms, limit, filters)
	}

	sqlQuery := `
		SELECT
			c.id as chunk_id,
			bm25(chunks_fts) as score
		FROM chunks_fts
		INNER JOIN chunks c ON c.id = chunks_fts.rowid
		WHERE chunks_fts MATCH ?
		AND c.collection_id = ?
	`
	args := []interface{}{sanitized, collectionID}

	sqlQuery, args = applyFilters(sqlQuery, args, filters)

	// bm25 is negative, lower is better
	sqlQuery += " ORDER BY score, c.position LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectTextResults(rows, filters)
}

// searchSubstring matches chunks containing every term. All hits score 1.0.
func searchSubstring(ctx context.Context, q querier, collectionID int64, terms []string, limit int, filters *SearchFilters) ([]TextResult, error) {
	sqlQuery := `
		SELECT c.id
		FROM chunks c
		WHERE c.collection_id = ?
	`
	args := []interface{}{collectionID}
	for _, term := range terms {
		sqlQuery += ` AND (c.text LIKE ? ESCAPE '\' OR c.heading LIKE ? ESCAPE '\')`
		pattern := "%" + escapeLike(term) + "%"
		args = append(args, pattern, pattern)
	}

	sqlQuery, args = applyFilters(sqlQuery, args, filters)
	sqlQuery += " ORDER BY c.position LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute substring search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]TextResult, 0)
	for rows.Next() {
		var result TextResult
		if err := rows.Scan(&result.ChunkID); err != nil {
			return nil, err
		}
		result.BM25Score = 1.0
		results = append(results, result)
	}
	return results, rows.Err()
}

// Helper functions

// applyFilters adds WHERE clause filters shared by every search
func applyFilters(query string, args []interface{}, filters *SearchFilters) (string, []interface{}) {
	if filters == nil {
		return query, args
	}

	if filters.SourcePattern != "" {
		query += " AND c.source GLOB ?"
		args = append(args, filters.SourcePattern)
	}

	if len(filters.Headings) > 0 {
		query += " AND c.heading IN ("
		for i, heading := range filters.Headings {
			if i > 0 {
				query += ","
			}
			query += "?"
			args = append(args, heading)
		}
		query += ")"
	}

	return query, args
}

// computeSimilarityScores processes rows and computes cosine similarity
func computeSimilarityScores(rows *sql.Rows, queryVector []float32, filters *SearchFilters) ([]candidate, error) {
	candidates := make([]candidate, 0, 256)

	for rows.Next() {
		var chunkID int64
		var vectorBlob []byte
		if err := rows.Scan(&chunkID, &vectorBlob); err != nil {
			return nil, err
		}

		vector := deserializeVector(vectorBlob)
		if len(vector) != len(queryVector) {
			continue // Embedded with another model
		}

		similarity := cosineSimilarity(queryVector, vector)

		if filters != nil && filters.MinRelevance > 0 && similarity < filters.MinRelevance {
			continue
		}

		candidates = append(candidates, candidate{chunkID: chunkID, score: similarity})
	}

	return candidates, rows.Err()
}

// buildVectorResults creates VectorResult slice from candidates
func buildVectorResults(candidates []candidate, limit int) []VectorResult {
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}

	results := make([]VectorResult, limit)
	for i := 0; i < limit; i++ {
		results[i] = VectorResult{
			ChunkID:         candidates[i].chunkID,
			SimilarityScore: candidates[i].score,
		}
	}
	return results
}

// collectTextResults processes text search results and normalizes scores
func collectTextResults(rows *sql.Rows, filters *SearchFilters) ([]TextResult, error) {
	results := make([]TextResult, 0)

	for rows.Next() {
		var result TextResult
		if err := rows.Scan(&result.ChunkID, &result.BM25Score); err != nil {
			return nil, err
		}

		result.BM25Score = normalizeBM25(result.BM25Score)

		if filters != nil && filters.MinRelevance > 0 && result.BM25Score < filters.MinRelevance {
			continue
		}

		results = append(results, result)
	}

	return results, rows.Err()
}

// normalizeBM25 maps a raw bm25 value (typically [-50, 0]) into (0, 1]
func normalizeBM25(score float64) float64 {
	return 1.0 / (1.0 + math.Abs(score)/50.0)
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// candidate represents a chunk with its similarity score
type candidate struct {
	chunkID int64
	score   float64
}

// sortCandidates orders by score descending. Ties keep corpus order.
func sortCandidates(candidates []candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
}

// sanitizeFTSQuery turns free text into an FTS5 expression. Every term is
// quoted as a phrase so operators and punctuation lose their meaning, and
// terms shorter than a trigram are dropped. Returns "" when nothing is left.
func sanitizeFTSQuery(query string) string {
	terms := strings.Fields(query)
	phrases := make([]string, 0, len(terms))
	for _, term := range terms {
		if utf8.RuneCountInString(term) < minFTSTermRunes {
			continue
		}
		phrases = append(phrases, `"`+strings.ReplaceAll(term, `"`, `""`)+`"`)
	}
	return strings.Join(phrases, " OR ")
}

// escapeLike escapes LIKE wildcards with a backslash
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineSimilarity is an exported helper for testing
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
