// Package config loads docsearch settings from a YAML file, DOCSEARCH_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DOCSEARCH_STORE_DIR
const EnvPrefix = "DOCSEARCH"

// Config holds the application configuration.
type Config struct {
	Corpus struct {
		Dir     string   `mapstructure:"dir"`
		Repo    string   `mapstructure:"repo"`
		Tag     string   `mapstructure:"tag"`
		Subdirs []string `mapstructure:"subdirs"`
		Pattern string   `mapstructure:"pattern"`
	} `mapstructure:"corpus"`
	Store struct {
		Dir         string `mapstructure:"dir"`
		Collection  string `mapstructure:"collection"`
		Description string `mapstructure:"description"`
	} `mapstructure:"store"`
	Chunk struct {
		MinChars int `mapstructure:"min_chars"`
		MaxChars int `mapstructure:"max_chars"`
	} `mapstructure:"chunk"`
	Embedding struct {
		Provider  string `mapstructure:"provider"`
		APIKey    string `mapstructure:"api_key"`
		BaseURL   string `mapstructure:"base_url"`
		Model     string `mapstructure:"model"`
		CacheSize int    `mapstructure:"cache_size"`
	} `mapstructure:"embedding"`
	Ingest struct {
		Workers        int `mapstructure:"workers"`
		EmbedBatchSize int `mapstructure:"embed_batch_size"`
		StoreBatchSize int `mapstructure:"store_batch_size"`
	} `mapstructure:"ingest"`
	Query struct {
		Results      int    `mapstructure:"results"`
		PreviewChars int    `mapstructure:"preview_chars"`
		Mode         string `mapstructure:"mode"`
	} `mapstructure:"query"`
	Watch struct {
		Debounce time.Duration `mapstructure:"debounce"`
	} `mapstructure:"watch"`
}

// StorePath returns the SQLite database file inside the store directory
func (c *Config) StorePath() string {
	return filepath.Join(c.Store.Dir, "docsearch.db")
}

// New returns a viper instance with defaults and environment bindings applied.
// Callers bind their flags to it before calling Load.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("corpus.dir", filepath.Join("data", "CangjieCorpus"))
	v.SetDefault("corpus.repo", "https://github.com/Cangjie-Pub/CangjieCorpus")
	v.SetDefault("corpus.tag", "1.0.0")
	v.SetDefault("corpus.subdirs", []string{"manual/source_zh_cn", "libs/std", "tools/source_zh_cn", "extra"})
	v.SetDefault("corpus.pattern", "**/*.md")

	v.SetDefault("store.dir", filepath.Join("data", "docsearch"))
	v.SetDefault("store.collection", "cangjie_corpus")
	v.SetDefault("store.description", "Cangjie language documentation corpus")

	v.SetDefault("chunk.min_chars", 80)
	v.SetDefault("chunk.max_chars", 800)

	v.SetDefault("embedding.provider", "auto")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.cache_size", 10000)

	v.SetDefault("ingest.workers", runtime.NumCPU())
	v.SetDefault("ingest.embed_batch_size", 50)
	v.SetDefault("ingest.store_batch_size", 4000)

	v.SetDefault("query.results", 5)
	v.SetDefault("query.preview_chars", 1200)
	v.SetDefault("query.mode", "vector")

	v.SetDefault("watch.debounce", 500*time.Millisecond)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the configuration into a Config.
// An explicit cfgFile must exist; otherwise ~/.docsearch/config.yaml and
// ./docsearch.yaml are used when present.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if v == nil {
		v = New()
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(Dir())
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
			if _, statErr := os.Stat("docsearch.yaml"); statErr == nil {
				v.SetConfigFile("docsearch.yaml")
				if err := v.ReadInConfig(); err != nil {
					return nil, fmt.Errorf("read config docsearch.yaml: %w", err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	var errs []error

	if c.Chunk.MinChars < 0 || c.Chunk.MaxChars < 0 {
		errs = append(errs, fmt.Errorf("chunk bounds must not be negative"))
	}
	if c.Chunk.MinChars > 0 && c.Chunk.MaxChars > 0 && c.Chunk.MinChars > c.Chunk.MaxChars {
		errs = append(errs, fmt.Errorf("chunk.min_chars (%d) exceeds chunk.max_chars (%d)", c.Chunk.MinChars, c.Chunk.MaxChars))
	}
	if c.Ingest.EmbedBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.embed_batch_size must be positive"))
	}
	if c.Ingest.StoreBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("ingest.store_batch_size must be positive"))
	}
	if c.Ingest.Workers < 0 {
		errs = append(errs, fmt.Errorf("ingest.workers must not be negative"))
	}
	if c.Query.Results <= 0 {
		errs = append(errs, fmt.Errorf("query.results must be positive"))
	}
	if c.Store.Collection == "" {
		errs = append(errs, fmt.Errorf("store.collection is required"))
	}
	switch c.Embedding.Provider {
	case "auto", "jina", "openai", "local":
	default:
		errs = append(errs, fmt.Errorf("unknown embedding.provider %q (want auto, jina, openai or local)", c.Embedding.Provider))
	}
	switch c.Query.Mode {
	case "vector", "keyword", "hybrid":
	default:
		errs = append(errs, fmt.Errorf("unknown query.mode %q (want vector, keyword or hybrid)", c.Query.Mode))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Dir returns the per-user configuration directory
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docsearch"
	}
	return filepath.Join(home, ".docsearch")
}
