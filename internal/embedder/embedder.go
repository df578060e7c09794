package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/codescout/pkg/types"
)

// Embedder converts text into dense vectors. Implementations must be
// safe for concurrent use; every vector returned by one instance has
// the same dimension.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimension this embedder produces.
	Dimension() int

	// Provider returns the provider name.
	Provider() string

	// Model returns the model name.
	Model() string

	// Close releases any resources held by the embedder.
	Close() error
}

// Matryoshka truncation dimensions accepted by Truncate.
const (
	DimensionSmall  = 256
	DimensionMedium = 512
	DimensionFull   = 768
)

// Truncate reduces a Matryoshka-trained vector to dim by slicing its
// prefix. Vectors shorter than dim are returned unchanged.
func Truncate(vector []float32, dim int) []float32 {
	if dim <= 0 || dim >= len(vector) {
		return vector
	}
	return vector[:dim]
}

// NormalizeVector scales a vector to unit length for cosine scoring.
// The zero vector is returned unchanged.
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

// ComputeHash hashes text for cache keys.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// validateTexts rejects empty batches and empty elements before any
// network work.
func validateTexts(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts provided", types.ErrInvalidConfig)
	}
	for i, text := range texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d is empty", types.ErrInvalidConfig, i)
		}
	}
	return nil
}

// Cache is an LRU of vectors keyed by content hash. Values are copied
// on both get and put so cached vectors cannot be mutated by callers.
type Cache struct {
	cache *lru.Cache[string, []float32]
}

const defaultCacheSize = 10000

// NewCache creates an embedding cache; maxLen <= 0 uses the default
// size.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = defaultCacheSize
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		cache, _ = lru.New[string, []float32](defaultCacheSize)
	}
	return &Cache{cache: cache}
}

// Get returns a copy of the cached vector for hash.
func (c *Cache) Get(hash string) ([]float32, bool) {
	vec, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Set stores a copy of the vector under hash.
func (c *Cache) Set(hash string, vec []float32) {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	c.cache.Add(hash, stored)
}

// Size returns the current number of cached vectors.
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.cache.Purge()
}

// lookupBatch splits texts into cached vectors and the indices still
// needing an API call.
func lookupBatch(cache *Cache, texts []string) (vectors [][]float32, missing []int) {
	vectors = make([][]float32, len(texts))
	if cache == nil {
		missing = make([]int, len(texts))
		for i := range texts {
			missing[i] = i
		}
		return vectors, missing
	}
	for i, text := range texts {
		if vec, ok := cache.Get(ComputeHash(text)); ok {
			vectors[i] = vec
			continue
		}
		missing = append(missing, i)
	}
	return vectors, missing
}
