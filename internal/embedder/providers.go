package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dshills/codescout/pkg/types"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "text-embedding-3-small"

	DefaultDimension = DimensionFull
	LocalDimension   = DimensionSmall

	DefaultBatchSize = 50
	MaxBatchSize     = 100
)

// Environment variables consulted by NewFromEnv.
const (
	EnvProvider = "CODESCOUT_EMBEDDING_PROVIDER"
	EnvBaseURL  = "CODESCOUT_EMBEDDING_BASE_URL"
	EnvAPIKey   = "OPENAI_API_KEY"
)

// HTTPProvider implements Embedder against any OpenAI-compatible
// /embeddings endpoint.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
	cache      *Cache
}

// NewHTTPProvider creates an embedder backed by an OpenAI-compatible
// API. Empty baseURL, model, and dimension fall back to the OpenAI
// defaults.
func NewHTTPProvider(baseURL, apiKey, model string, dimension int, cache *Cache) (*HTTPProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", types.ErrEmbeddingUnavailable)
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if dimension <= 0 {
		dimension = DefaultDimension
	}

	return &HTTPProvider{
		baseURL:   baseURL,
		apiKey:    apiKey,
		model:     model,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
	}, nil
}

func (p *HTTPProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}
	if len(texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch of %d exceeds limit %d", types.ErrInvalidConfig, len(texts), MaxBatchSize)
	}

	vectors, missing := lookupBatch(p.cache, texts)
	if len(missing) == 0 {
		return vectors, nil
	}

	pending := make([]string, len(missing))
	for i, idx := range missing {
		pending[i] = texts[idx]
	}

	config := DefaultRetryConfig()
	fetched, err := retryWithBackoff(ctx, config, func() ([][]float32, error) {
		return p.callAPI(ctx, pending)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingUnavailable, err)
	}
	if len(fetched) != len(pending) {
		return nil, fmt.Errorf("%w: requested %d embeddings, got %d",
			types.ErrEmbeddingUnavailable, len(pending), len(fetched))
	}

	for i, idx := range missing {
		vec := Truncate(fetched[i], p.dimension)
		vectors[idx] = vec
		if p.cache != nil {
			p.cache.Set(ComputeHash(texts[idx]), vec)
		}
	}
	return vectors, nil
}

func (p *HTTPProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"input": texts,
		"model": p.model,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	vectors := make([][]float32, len(apiResp.Data))
	for _, data := range apiResp.Data {
		if data.Index < 0 || data.Index >= len(vectors) {
			return nil, fmt.Errorf("response index %d out of range", data.Index)
		}
		vectors[data.Index] = data.Embedding
	}
	return vectors, nil
}

func (p *HTTPProvider) Dimension() int {
	return p.dimension
}

func (p *HTTPProvider) Provider() string {
	return ProviderOpenAI
}

func (p *HTTPProvider) Model() string {
	return p.model
}

func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider produces deterministic hash-derived vectors without any
// network dependency. Useful offline and in tests; identical text
// always yields the identical unit-length vector.
type LocalProvider struct {
	model     string
	dimension int
	cache     *Cache
}

// NewLocalProvider creates a local embedder. dimension <= 0 uses
// LocalDimension.
func NewLocalProvider(dimension int, cache *Cache) (*LocalProvider, error) {
	if dimension <= 0 {
		dimension = LocalDimension
	}
	return &LocalProvider{
		model:     "local-hash",
		dimension: dimension,
		cache:     cache,
	}, nil
}

func (l *LocalProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hash := ComputeHash(text)
		if l.cache != nil {
			if vec, ok := l.cache.Get(hash); ok {
				vectors[i] = vec
				continue
			}
		}

		vec := l.derive(text)
		vectors[i] = vec
		if l.cache != nil {
			l.cache.Set(hash, vec)
		}
	}
	return vectors, nil
}

// derive expands the text's sha256 digest into a deterministic vector
// of the configured dimension and normalizes it.
func (l *LocalProvider) derive(text string) []float32 {
	vec := make([]float32, l.dimension)
	digest := sha256.Sum256([]byte(text))
	block := digest
	for i := 0; i < l.dimension; i++ {
		if i > 0 && i%len(block) == 0 {
			block = sha256.Sum256(block[:])
		}
		vec[i] = float32(block[i%len(block)])/127.5 - 1.0
	}

	// Mix in length so near-identical texts of different sizes diverge.
	var lenBytes [8]byte
	binary.LittleEndian.PutUint64(lenBytes[:], uint64(len(text)))
	vec[0] += float32(lenBytes[0]) / 255.0

	return NormalizeVector(vec)
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
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
