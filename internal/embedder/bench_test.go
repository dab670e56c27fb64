package embedder

import (
	"context"
	"strings"
	"testing"
)

func BenchmarkComputeHash(b *testing.B) {
	text := strings.Repeat("仓颉语言文档 ", 100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ComputeHash(text)
	}
}

func BenchmarkHashEmbedding(b *testing.B) {
	text := strings.Repeat("泛型函数 generic functions ", 40)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		HashEmbedding(text, LocalDimension)
	}
}

func BenchmarkLocalProviderBatch(b *testing.B) {
	p, _ := NewLocalProvider(nil)
	texts := make([]string, DefaultBatchSize)
	for i := range texts {
		texts[i] = strings.Repeat("chunk text ", 50) + string(rune('a'+i%26))
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: texts}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkConcurrentCache(b *testing.B) {
	cache := NewCache(1000)
	emb := &Embedding{Vector: make([]float32, LocalDimension)}
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			hash := ComputeHash(string(rune(i % 2000)))
			if _, ok := cache.Get(hash); !ok {
				cache.Set(hash, emb)
			}
			i++
		}
	})
}
