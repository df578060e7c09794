// Package retrieval implements hybrid code search: concurrent fuzzy
// and semantic candidate generation, Reciprocal Rank Fusion with
// deterministic tie-breaking, contextual reranking, and an LRU cache
// of final orderings keyed by query-plus-config fingerprint.
//
// RRF is the default fusion strategy because it is rank-based: the
// lexical matcher's wide integer scores and the bounded cosine
// similarities never need to share a scale. A failing semantic stage
// degrades a query to fuzzy-only results with the error recorded in
// SearchStats rather than failing the search.
package retrieval
