package chunker

import (
	"fmt"
	"os"
	"strings"

	"github.com/dshills/codescout/pkg/types"
)

// Strategy selects how a file is split into chunks.
type Strategy string

const (
	// StrategyFixed partitions lines into blocks of roughly
	// MaxChunkTokens worth of characters, language-independent.
	StrategyFixed Strategy = "fixed"

	// StrategySemantic chunks at top-level declaration boundaries via a
	// structural parse. Declarations over the token ceiling are split
	// with the fixed strategy.
	StrategySemantic Strategy = "semantic"

	// StrategyAdaptive is semantic chunking with the fixed-split
	// fallback named explicitly; behavior matches StrategySemantic.
	StrategyAdaptive Strategy = "adaptive"

	// StrategySlidingWindow emits overlapping fixed windows advancing
	// by windowLines - OverlapLines. Every line lands in at least one
	// chunk; the last window may be short.
	StrategySlidingWindow Strategy = "sliding_window"
)

// Config controls chunk extraction.
type Config struct {
	Strategy       Strategy `json:"strategy"`
	MaxChunkTokens int      `json:"max_chunk_tokens"`
	MinChunkTokens int      `json:"min_chunk_tokens"`
	OverlapLines   int      `json:"overlap_lines"`

	// MaxFileBytes is the hard file-size ceiling. Larger files fail
	// with ErrFileTooLarge so callers can exclude them instead of
	// indexing a truncated view.
	MaxFileBytes int64 `json:"max_file_bytes,omitempty"`
}

const (
	minTokenFloor   = 128
	maxTokenCeiling = 2048
	maxOverlapLines = 50

	defaultMaxFileBytes = 2 << 20
)

// DefaultConfig returns the chunker defaults.
func DefaultConfig() Config {
	return Config{
		Strategy:       StrategyAdaptive,
		MaxChunkTokens: 450,
		MinChunkTokens: 50,
		OverlapLines:   10,
		MaxFileBytes:   defaultMaxFileBytes,
	}
}

// Validate rejects out-of-range parameters before any I/O.
func (c Config) Validate() error {
	switch c.Strategy {
	case StrategyFixed, StrategySemantic, StrategyAdaptive, StrategySlidingWindow:
	default:
		return fmt.Errorf("%w: unknown strategy %q", types.ErrInvalidConfig, c.Strategy)
	}
	if c.MaxChunkTokens < minTokenFloor || c.MaxChunkTokens > maxTokenCeiling {
		return fmt.Errorf("%w: max_chunk_tokens %d outside [%d,%d]",
			types.ErrInvalidConfig, c.MaxChunkTokens, minTokenFloor, maxTokenCeiling)
	}
	if c.MinChunkTokens < 0 || c.MinChunkTokens >= c.MaxChunkTokens {
		return fmt.Errorf("%w: min_chunk_tokens %d must be in [0,%d)",
			types.ErrInvalidConfig, c.MinChunkTokens, c.MaxChunkTokens)
	}
	if c.OverlapLines < 0 || c.OverlapLines > maxOverlapLines {
		return fmt.Errorf("%w: overlap_lines %d outside [0,%d]",
			types.ErrInvalidConfig, c.OverlapLines, maxOverlapLines)
	}
	return nil
}

// Fingerprint is a stable string of the settings that invalidate
// existing chunks when changed. Stored in index state for drift checks.
func (c Config) Fingerprint() string {
	return fmt.Sprintf("%s|%d|%d|%d", c.Strategy, c.MaxChunkTokens, c.MinChunkTokens, c.OverlapLines)
}

// Chunker splits source files into retrievable chunks.
type Chunker struct {
	registry *Registry
}

// New creates a Chunker. A nil registry disables semantic parsing, in
// which case every file falls back to fixed chunking.
func New(registry *Registry) *Chunker {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Chunker{registry: registry}
}

// ChunkFile reads and chunks the file at path. The chunk Path field is
// set to path as given.
func (c *Chunker) ChunkFile(path string, cfg Config) ([]types.Chunk, error) {
	return c.ChunkFileAs(path, path, cfg)
}

// ChunkFileAs reads from path but records name as the chunk path.
// Indexers use this to store project-relative paths.
func (c *Chunker) ChunkFileAs(path, name string, cfg Config) ([]types.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	maxBytes := cfg.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxFileBytes
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", types.ErrFileTooLarge, path, info.Size(), maxBytes)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return c.Chunk(name, src, cfg)
}

// Chunk splits in-memory source. Language detection is by file
// extension; unsupported languages silently fall back to fixed
// chunking without metadata.
func (c *Chunker) Chunk(name string, src []byte, cfg Config) ([]types.Chunk, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lines := strings.Split(string(src), "\n")
	// A newline-terminated file splits into a trailing empty element
	// that is not a real line; keeping it would shift EndLine past the
	// end of the file.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	lang := c.registry.LanguageName(name)

	var chunks []types.Chunk
	switch cfg.Strategy {
	case StrategySemantic, StrategyAdaptive:
		chunks = c.chunkSemantic(name, src, lines, lang, cfg)
	case StrategySlidingWindow:
		chunks = chunkSliding(name, lines, lang, cfg)
	default:
		chunks = chunkFixed(name, lines, 0, lang, cfg)
	}

	for i := range chunks {
		chunks[i].ComputeTokenEstimate()
		chunks[i].ComputeID()
	}
	return chunks, nil
}

// chunkFixed partitions lines into blocks of roughly MaxChunkTokens
// worth of characters. lineOffset shifts reported line numbers when
// splitting a slice out of a larger file.
func chunkFixed(name string, lines []string, lineOffset int, lang string, cfg Config) []types.Chunk {
	maxChars := cfg.MaxChunkTokens * 4
	minChars := cfg.MinChunkTokens * 4

	var chunks []types.Chunk
	start := 0
	for start < len(lines) {
		end := start
		chars := 0
		for end < len(lines) {
			lineChars := len(lines[end]) + 1
			if chars+lineChars > maxChars && chars >= minChars {
				break
			}
			chars += lineChars
			end++
			if chars >= maxChars {
				break
			}
		}
		if end == start {
			end = start + 1 // single oversized line still makes progress
		}

		content := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(content) != "" {
			chunks = append(chunks, types.Chunk{
				Path:      name,
				StartLine: lineOffset + start + 1,
				EndLine:   lineOffset + end,
				Language:  lang,
				Content:   content,
			})
		}
		start = end
	}
	return chunks
}

// chunkSliding emits overlapping windows. The advance step is the
// window's line count minus OverlapLines, floored at 1 so the loop
// always progresses.
func chunkSliding(name string, lines []string, lang string, cfg Config) []types.Chunk {
	maxChars := cfg.MaxChunkTokens * 4

	var chunks []types.Chunk
	start := 0
	for start < len(lines) {
		end := start
		chars := 0
		for end < len(lines) && chars < maxChars {
			chars += len(lines[end]) + 1
			end++
		}

		content := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(content) != "" {
			chunks = append(chunks, types.Chunk{
				Path:      name,
				StartLine: start + 1,
				EndLine:   end,
				Language:  lang,
				Content:   content,
			})
		}

		if end >= len(lines) {
			break
		}
		step := (end - start) - cfg.OverlapLines
		if step < 1 {
			step = 1
		}
		start += step
	}
	return chunks
}

// chunkSemantic extracts one chunk per top-level declaration. Files in
// unsupported languages, and files where the parse finds nothing, fall
// back to fixed chunking. Declarations over the token ceiling are split
// by the fixed strategy.
func (c *Chunker) chunkSemantic(name string, src []byte, lines []string, lang string, cfg Config) []types.Chunk {
	decls, err := c.registry.Parse(name, src)
	if err != nil || len(decls) == 0 {
		return chunkFixed(name, lines, 0, lang, cfg)
	}

	imports := c.registry.Imports(name, src)
	prefix := c.registry.CommentPrefix(name)

	var chunks []types.Chunk
	for _, d := range decls {
		startIdx := d.StartLine - 1
		endIdx := d.EndLine
		if startIdx < 0 || startIdx >= len(lines) {
			continue
		}
		if endIdx > len(lines) {
			endIdx = len(lines)
		}

		content := strings.Join(lines[startIdx:endIdx], "\n")
		meta := types.ChunkMetadata{
			Imports:    imports,
			Signature:  strings.TrimSpace(lines[startIdx]),
			DocComment: docCommentAbove(lines, startIdx, prefix),
		}

		if types.EstimateTokens(content) > cfg.MaxChunkTokens {
			split := chunkFixed(name, lines[startIdx:endIdx], startIdx, lang, cfg)
			for i := range split {
				split[i].Metadata = meta
			}
			chunks = append(chunks, split...)
			continue
		}

		chunks = append(chunks, types.Chunk{
			Path:      name,
			StartLine: d.StartLine,
			EndLine:   d.EndLine,
			Language:  lang,
			Content:   content,
			Metadata:  meta,
		})
	}

	if len(chunks) == 0 {
		return chunkFixed(name, lines, 0, lang, cfg)
	}
	return chunks
}

// docCommentAbove collects the contiguous comment block immediately
// preceding line index start.
func docCommentAbove(lines []string, start int, prefix string) string {
	if prefix == "" {
		return ""
	}
	var doc []string
	for i := start - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, prefix) {
			break
		}
		doc = append([]string{trimmed}, doc...)
	}
	return strings.Join(doc, "\n")
}
