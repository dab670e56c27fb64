package embedder

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func mustNewLocalProvider(t *testing.T) *LocalProvider {
	t.Helper()
	p, err := NewLocalProvider(NewCache(100))
	require.NoError(t, err)
	return p
}

func TestLocalProvider_Metadata(t *testing.T) {
	p := mustNewLocalProvider(t)
	defer p.Close()

	assert.Equal(t, ProviderLocal, p.Provider())
	assert.Equal(t, LocalDimension, p.Dimension())
	assert.Equal(t, DefaultLocalModel, p.Model())
}

func TestLocalProvider_Deterministic(t *testing.T) {
	p1 := mustNewLocalProvider(t)
	p2, err := NewLocalProvider(nil)
	require.NoError(t, err)
	ctx := context.Background()

	e1, err := p1.GenerateEmbedding(ctx, EmbeddingRequest{Text: "func main() { println(\"hello\") }"})
	require.NoError(t, err)
	e2, err := p2.GenerateEmbedding(ctx, EmbeddingRequest{Text: "func main() { println(\"hello\") }"})
	require.NoError(t, err)

	assert.Equal(t, e1.Vector, e2.Vector)
	assert.Len(t, e1.Vector, LocalDimension)
	assert.Equal(t, ComputeHash("func main() { println(\"hello\") }"), e1.Hash)
}

func TestLocalProvider_UnitLength(t *testing.T) {
	p := mustNewLocalProvider(t)
	emb, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "仓颉编程语言 supports pattern matching"})
	require.NoError(t, err)

	var sum float64
	for _, v := range emb.Vector {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, sum, 1e-5)
}

func TestLocalProvider_SimilarTextsScoreHigher(t *testing.T) {
	p := mustNewLocalProvider(t)
	ctx := context.Background()

	query, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "如何定义泛型函数"})
	require.NoError(t, err)
	related, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "泛型函数的定义需要在函数名后声明类型形参"})
	require.NoError(t, err)
	unrelated, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "socket network connection timeout"})
	require.NoError(t, err)

	assert.Greater(t, cosine(query.Vector, related.Vector), cosine(query.Vector, unrelated.Vector))
}

func TestLocalProvider_Batch(t *testing.T) {
	p := mustNewLocalProvider(t)
	ctx := context.Background()

	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"alpha", "beta", "alpha"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 3)
	assert.Equal(t, resp.Embeddings[0].Vector, resp.Embeddings[2].Vector)
	assert.NotEqual(t, resp.Embeddings[0].Vector, resp.Embeddings[1].Vector)
	assert.Equal(t, int64(1), p.cache.Stats().Hits)

	_, err = p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"ok", ""}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLocalProvider_CancelledContext(t *testing.T) {
	p := mustNewLocalProvider(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHashEmbedding_NoTokens(t *testing.T) {
	v := HashEmbedding("... --- !!!", 16)
	assert.Equal(t, make([]float32, 16), v)
}

func TestTokenize(t *testing.T) {
	tokens := tokenize("Let x 仓颉!")

	var texts []string
	for _, tok := range tokens {
		texts = append(texts, tok.text)
	}
	assert.Equal(t, []string{"w:let", "w:x", "u:仓", "u:颉", "b:仓颉"}, texts)
}

func TestNormalizeVector(t *testing.T) {
	v := NormalizeVector([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := []float32{0, 0}
	assert.Equal(t, zero, NormalizeVector(zero))
}
