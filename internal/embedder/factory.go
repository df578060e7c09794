package embedder

import (
	"fmt"
	"os"
	"strings"

	"github.com/dshills/codescout/pkg/types"
)

// Config holds embedder configuration.
type Config struct {
	Provider  string `json:"provider"`
	BaseURL   string `json:"base_url,omitempty"`
	APIKey    string `json:"-"`
	Model     string `json:"model,omitempty"`
	Dimension int    `json:"dimension,omitempty"`
	BatchSize int    `json:"batch_size,omitempty"`
	CacheSize int    `json:"cache_size,omitempty"`
}

// DefaultConfig returns the local provider defaults.
func DefaultConfig() Config {
	return Config{
		Provider:  ProviderLocal,
		Dimension: LocalDimension,
		BatchSize: DefaultBatchSize,
		CacheSize: defaultCacheSize,
	}
}

// New creates an embedder with explicit configuration.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv(EnvAPIKey)
		}
		return NewHTTPProvider(cfg.BaseURL, apiKey, cfg.Model, cfg.Dimension, cache)
	case ProviderLocal, "":
		return NewLocalProvider(cfg.Dimension, cache)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", types.ErrInvalidConfig, cfg.Provider)
	}
}

// NewFromEnv creates an embedder from environment variables. An
// explicit CODESCOUT_EMBEDDING_PROVIDER wins; otherwise a present
// OPENAI_API_KEY selects the OpenAI provider and local is the fallback.
func NewFromEnv() (Embedder, error) {
	cfg := DefaultConfig()
	cfg.Provider = DetectProvider()
	cfg.BaseURL = os.Getenv(EnvBaseURL)
	if cfg.Provider == ProviderOpenAI {
		cfg.Dimension = DefaultDimension
	}
	return New(cfg)
}

// DetectProvider returns the provider name the current environment
// selects.
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}
