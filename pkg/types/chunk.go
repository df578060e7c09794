package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ChunkMetadata carries structural metadata extracted during chunking.
// All fields are optional; unsupported languages leave them empty.
type ChunkMetadata struct {
	Imports    []string `json:"imports,omitempty"`
	Signature  string   `json:"signature,omitempty"`
	DocComment string   `json:"doc_comment,omitempty"`
}

// Chunk is a contiguous, semantically bounded span of a source file
// treated as one retrievable unit.
type Chunk struct {
	// ID is content-addressed: identical chunks across reindexing
	// collapse to the same identifier.
	ID string `json:"id"`

	// Location
	Path      string `json:"path"` // Relative to project root
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`

	// Content
	Language      string `json:"language,omitempty"`
	Content       string `json:"content"`
	TokenEstimate int    `json:"token_estimate"`

	Metadata ChunkMetadata `json:"metadata,omitempty"`
}

// ComputeID derives the content-addressed identifier from the chunk's
// location and content. Must be called after all other fields are set.
func (c *Chunk) ComputeID() {
	h := sha256.Sum256(fmt.Appendf(nil, "%s:%d:%d:%s", c.Path, c.StartLine, c.EndLine, c.Content))
	c.ID = hex.EncodeToString(h[:])
}

// ComputeTokenEstimate sets TokenEstimate using the chars/4 heuristic,
// rounded up.
func (c *Chunk) ComputeTokenEstimate() int {
	c.TokenEstimate = EstimateTokens(c.Content)
	return c.TokenEstimate
}

// EstimateTokens estimates the language-model token cost of a string.
// Average code token is ~4 chars; ceil so one-char content still costs.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// LineCount returns the number of lines the chunk spans.
func (c *Chunk) LineCount() int {
	if c.EndLine < c.StartLine {
		return 0
	}
	return c.EndLine - c.StartLine + 1
}

// Validate performs comprehensive validation of the chunk.
func (c *Chunk) Validate() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}
	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}
	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}
	if c.Path == "" {
		return errors.New("chunk path is required")
	}
	if c.ID == "" {
		return errors.New("chunk ID must be computed")
	}
	return nil
}

// Extension returns the chunk's file extension without the dot, lowercased.
func (c *Chunk) Extension() string {
	idx := strings.LastIndex(c.Path, ".")
	if idx < 0 || idx == len(c.Path)-1 {
		return ""
	}
	return strings.ToLower(c.Path[idx+1:])
}

// EmbeddingRecord pairs a chunk with its embedding vector.
type EmbeddingRecord struct {
	ChunkID string    `json:"chunk_id"`
	Vector  []float32 `json:"vector"`
	Dim     int       `json:"dim"`
}

// Validate checks the record's internal consistency.
func (r *EmbeddingRecord) Validate() error {
	if r.ChunkID == "" {
		return ErrInvalidChunkID
	}
	if len(r.Vector) == 0 {
		return errors.New("embedding vector cannot be empty")
	}
	if r.Dim != len(r.Vector) {
		return fmt.Errorf("%w: declared dim %d, vector length %d", ErrDimensionMismatch, r.Dim, len(r.Vector))
	}
	return nil
}
