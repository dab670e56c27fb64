package embedder

import (
	"fmt"
	"os"
	"strings"
)

// EnvProvider selects the provider when no configuration names one
const EnvProvider = "DOCSEARCH_EMBEDDING_PROVIDER"

// ProviderAuto picks a provider from the available API keys
const ProviderAuto = "auto"

// Config holds embedder configuration
type Config struct {
	Provider  string // jina, openai, local, or auto/empty to detect
	APIKey    string
	BaseURL   string
	Model     string
	CacheSize int // Zero uses DefaultCacheSize, negative disables the cache
}

// New creates an embedder from explicit configuration.
// Auto detection prefers Jina, then OpenAI, then the local provider.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize >= 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" || provider == ProviderAuto {
		provider = detect(cfg.APIKey)
	}

	opts := ProviderOptions{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Cache:   cache,
	}

	switch provider {
	case ProviderJina:
		return NewJinaProvider(opts)
	case ProviderOpenAI:
		return NewOpenAIProvider(opts)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
}

// NewFromEnv creates an embedder from DOCSEARCH_EMBEDDING_PROVIDER and the
// provider API key variables
func NewFromEnv() (Embedder, error) {
	return New(Config{Provider: os.Getenv(EnvProvider)})
}

// DetectProvider returns the provider NewFromEnv would use
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	return detect("")
}

// detect chooses a provider from the environment. An explicit key without a
// provider name is taken as a Jina key.
func detect(apiKey string) string {
	switch {
	case apiKey != "":
		return ProviderJina
	case os.Getenv(EnvJinaAPIKey) != "":
		return ProviderJina
	case os.Getenv(EnvOpenAIAPIKey) != "":
		return ProviderOpenAI
	default:
		return ProviderLocal
	}
}
