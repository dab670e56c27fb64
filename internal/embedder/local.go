package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultLocalModel names the offline feature-hashing embedding
const DefaultLocalModel = "feature-hash-384"

// Token weights for the local embedding
const (
	wordWeight    = 1.0
	unigramWeight = 0.5
	bigramWeight  = 1.0
)

// LocalProvider is an offline, deterministic embedder.
//
// Words of alphabetic scripts and digits are lowercased tokens. Han text has
// no word boundaries, so every Han character and every pair of adjacent Han
// characters is a token. Tokens are hashed into LocalDimension signed buckets
// and the result is L2-normalised, so cosine similarity measures token overlap.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates the offline embedder
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model: DefaultLocalModel,
		cache: cache,
	}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash := ComputeHash(req.Text)
	if l.cache != nil {
		if emb, ok := l.cache.Get(hash); ok {
			return emb, nil
		}
	}

	emb := &Embedding{
		Vector:    HashEmbedding(req.Text, LocalDimension),
		Dimension: LocalDimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      hash,
	}

	if l.cache != nil {
		l.cache.Set(hash, emb)
	}

	return emb, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}

// HashEmbedding computes the feature-hashing vector of text with dim buckets.
// Text without any token yields the zero vector.
func HashEmbedding(text string, dim int) []float32 {
	vector := make([]float32, dim)
	for _, tok := range tokenize(text) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok.text))
		sum := h.Sum64()

		idx := int(sum % uint64(dim))
		if sum>>63 == 1 {
			vector[idx] -= tok.weight
		} else {
			vector[idx] += tok.weight
		}
	}
	return NormalizeVector(vector)
}

type token struct {
	text   string
	weight float32
}

func tokenize(text string) []token {
	var tokens []token
	var word strings.Builder
	var prevHan rune

	flushWord := func() {
		if word.Len() > 0 {
			tokens = append(tokens, token{text: "w:" + word.String(), weight: wordWeight})
			word.Reset()
		}
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			tokens = append(tokens, token{text: "u:" + string(r), weight: unigramWeight})
			if prevHan != 0 {
				tokens = append(tokens, token{text: "b:" + string(prevHan) + string(r), weight: bigramWeight})
			}
			prevHan = r
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			prevHan = 0
			word.WriteRune(unicode.ToLower(r))
		default:
			prevHan = 0
			flushWord()
		}
	}
	flushWord()

	return tokens
}

// NormalizeVector scales v to unit length. A zero vector is returned unchanged.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
