// Package embedder turns chunk and query text into vectors.
//
// Three providers implement the Embedder interface:
//
//   - jina: Jina AI embeddings API (1024 dimensions)
//   - openai: OpenAI embeddings API (1536 dimensions)
//   - local: offline feature hashing over words and Han character n-grams
//     (384 dimensions), deterministic and free of network access
//
// The HTTP providers share one implementation: batches of at most
// MaxBatchSize texts, exponential backoff on transient failures, and an
// optional LRU Cache keyed by the SHA-256 of each text. Only texts missing
// from the cache are sent to the API.
//
// # Provider Selection
//
// New takes an explicit Config. With Provider empty or "auto" the choice is:
//
//  1. Jina when an API key is configured or JINA_API_KEY is set
//  2. OpenAI when OPENAI_API_KEY is set
//  3. local otherwise
//
// NewFromEnv does the same from DOCSEARCH_EMBEDDING_PROVIDER.
//
//	emb, err := embedder.New(embedder.Config{Provider: "local"})
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: []string{chunk1.Text, chunk2.Text},
//	})
//
// # Error Handling
//
// Provider failures wrap ErrProviderFailed. Client errors other than 429 are
// not retried.
//
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // API unavailable or key rejected
//	}
package embedder
