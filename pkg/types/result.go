package types

// SearchSource identifies which stage produced a result's score.
type SearchSource string

const (
	SourceFuzzy    SearchSource = "fuzzy"
	SourceSemantic SearchSource = "semantic"
	SourceHybrid   SearchSource = "hybrid"
)

// SearchResult is a scored chunk. Results are never mutated after
// creation; reranking and ranking stages produce new values so score
// provenance stays auditable.
type SearchResult struct {
	Chunk  Chunk        `json:"chunk"`
	Score  float32      `json:"score"`
	Source SearchSource `json:"source"`
}

// WithScore returns a copy of the result carrying a new score and source.
func (sr SearchResult) WithScore(score float32, source SearchSource) SearchResult {
	return SearchResult{Chunk: sr.Chunk, Score: score, Source: source}
}

// Validate checks if the search result is well-formed.
func (sr *SearchResult) Validate() error {
	if sr.Chunk.ID == "" {
		return ErrInvalidChunkID
	}
	if sr.Score < 0 {
		return ErrInvalidScore
	}
	switch sr.Source {
	case SourceFuzzy, SourceSemantic, SourceHybrid:
		return nil
	default:
		return ErrInvalidSource
	}
}

// CopyResults deep-copies a result slice so cached rankings cannot be
// mutated by callers.
func CopyResults(results []SearchResult) []SearchResult {
	if results == nil {
		return nil
	}
	out := make([]SearchResult, len(results))
	copy(out, results)
	for i := range out {
		if imports := results[i].Chunk.Metadata.Imports; imports != nil {
			out[i].Chunk.Metadata.Imports = append([]string(nil), imports...)
		}
	}
	return out
}
