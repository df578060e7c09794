package types

import "errors"

// Domain errors shared across the indexing and retrieval pipeline.
// Callers match with errors.Is; packages wrap these with context via %w.
var (
	// ErrInvalidConfig marks configuration rejected before any I/O.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrFileTooLarge is returned when a file exceeds the chunker's hard
	// size ceiling. Callers should exclude the file rather than truncate.
	ErrFileTooLarge = errors.New("file exceeds size limit")

	// ErrPersist marks an index persistence failure. The previously
	// saved payload is guaranteed intact.
	ErrPersist = errors.New("persist failed")

	// ErrDimensionMismatch signals embedding dimension disagreement,
	// usually configuration or model-version drift.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrEmbeddingUnavailable means the embedding collaborator failed or
	// is unreachable. Fatal for indexing, degrade-to-fuzzy for search.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrNotFound is returned for lookups against a chunk or path that
	// does not exist in the index.
	ErrNotFound = errors.New("not found")

	// ErrQueryTooShort rejects queries below the configured minimum.
	ErrQueryTooShort = errors.New("query too short")

	// Result validation errors
	ErrInvalidChunkID = errors.New("invalid chunk ID")
	ErrInvalidScore   = errors.New("score must be non-negative")
	ErrInvalidSource  = errors.New("invalid search source")
)
