package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/codescout/internal/chunker"
	"github.com/dshills/codescout/internal/embedder"
	"github.com/dshills/codescout/internal/vectorstore"
	"github.com/dshills/codescout/pkg/types"
)

// Config contains configuration for the indexer.
type Config struct {
	RootDir        string   `json:"root_dir"`
	IndexDir       string   `json:"index_dir"`
	Workers        int      `json:"workers,omitempty"`          // default runtime.NumCPU()
	BatchSize      int      `json:"batch_size,omitempty"`       // state save cadence, default 20
	EmbedBatchSize int      `json:"embed_batch_size,omitempty"` // texts per Embed call, default embedder.DefaultBatchSize
	Incremental    bool     `json:"incremental"`
	IgnorePatterns []string `json:"ignore_patterns,omitempty"`
}

// Stats summarizes one indexing run.
type Stats struct {
	FilesProcessed int           `json:"files_processed"`
	FilesSkipped   int           `json:"files_skipped"`
	FilesFailed    int           `json:"files_failed"`
	FilesRemoved   int           `json:"files_removed"`
	ChunksCreated  int           `json:"chunks_created"`
	ChunksEmbedded int           `json:"chunks_embedded"`
	Duration       time.Duration `json:"duration"`
	Errors         []string      `json:"errors,omitempty"`
}

// Status describes the current index contents.
type Status struct {
	ChunkCount        int       `json:"chunk_count"`
	FileCount         int       `json:"file_count"`
	LastIndexed       time.Time `json:"last_indexed"`
	EmbeddingProvider string    `json:"embedding_provider"`
	EmbeddingModel    string    `json:"embedding_model"`
	EmbeddingDim      int       `json:"embedding_dim"`
}

// Indexer coordinates the pipeline: discover -> chunk -> embed ->
// store. File processing fans out to a bounded worker pool; all store
// and state mutation happens in a single aggregator goroutine fed by
// per-file result messages.
type Indexer struct {
	chunker  *chunker.Chunker
	chunkCfg chunker.Config
	embedder embedder.Embedder
	store    *vectorstore.Store
	cfg      Config
}

// fileResult is the message a worker sends the aggregator after
// processing one file.
type fileResult struct {
	path    string
	skipped bool
	err     error
	chunks  []types.Chunk
	records []types.EmbeddingRecord
	state   FileState
}

// New creates an Indexer.
func New(ck *chunker.Chunker, chunkCfg chunker.Config, emb embedder.Embedder, store *vectorstore.Store, cfg Config) (*Indexer, error) {
	if err := chunkCfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.RootDir == "" {
		return nil, fmt.Errorf("%w: root_dir is required", types.ErrInvalidConfig)
	}
	if cfg.IndexDir == "" {
		return nil, fmt.Errorf("%w: index_dir is required", types.ErrInvalidConfig)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = embedder.DefaultBatchSize
	}
	if cfg.EmbedBatchSize > embedder.MaxBatchSize {
		cfg.EmbedBatchSize = embedder.MaxBatchSize
	}

	return &Indexer{
		chunker:  ck,
		chunkCfg: chunkCfg,
		embedder: emb,
		store:    store,
		cfg:      cfg,
	}, nil
}

func (idx *Indexer) statePath() string {
	return filepath.Join(idx.cfg.IndexDir, StateFile)
}

// Index indexes the project. With a non-empty paths argument only
// those project-relative files are considered; otherwise the full tree
// is walked. Unchanged files are skipped in incremental mode, and
// files present in state but gone from disk have their chunks removed.
// An unreachable embedding provider aborts the whole run.
func (idx *Indexer) Index(ctx context.Context, paths []string) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	state, err := idx.loadOrResetState()
	if err != nil {
		return nil, err
	}

	var files []string
	fullWalk := len(paths) == 0
	if fullWalk {
		w, err := newWalker(idx.cfg.RootDir, idx.cfg.IgnorePatterns)
		if err != nil {
			return nil, err
		}
		files, err = w.walk()
		if err != nil {
			return nil, err
		}
	} else {
		files = append([]string(nil), paths...)
	}

	// Workers read the pre-run file states; the aggregator owns the
	// live state map. Keeping the two separate avoids a map race.
	prev := make(map[string]FileState, len(state.Files))
	for k, v := range state.Files {
		prev[k] = v
	}

	results := make(chan fileResult)
	aggDone := make(chan error, 1)
	go func() {
		aggDone <- idx.aggregate(results, state, stats)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.cfg.Workers)
	for _, file := range files {
		g.Go(func() error {
			res := idx.processFile(gctx, file, prev)
			if res.err != nil && errors.Is(res.err, types.ErrEmbeddingUnavailable) {
				return res.err
			}
			select {
			case results <- res:
				return nil
			case <-gctx.Done():
				return gctx.Err()
			}
		})
	}

	workerErr := g.Wait()
	close(results)
	if aggErr := <-aggDone; aggErr != nil && workerErr == nil {
		workerErr = aggErr
	}
	if workerErr != nil {
		return nil, workerErr
	}

	if fullWalk {
		if err := idx.removeDeleted(files, state, stats); err != nil {
			return nil, err
		}
	}

	if err := state.Save(idx.statePath()); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	log.Printf("index complete: %d processed, %d skipped, %d failed, %d chunks in %s",
		stats.FilesProcessed, stats.FilesSkipped, stats.FilesFailed, stats.ChunksCreated, stats.Duration)
	return stats, nil
}

// loadOrResetState loads the incremental state, discarding it (and the
// stored vectors) when the chunker or embedding configuration changed
// or incremental mode is off.
func (idx *Indexer) loadOrResetState() (*State, error) {
	fingerprint := idx.chunkCfg.Fingerprint()
	provider := idx.embedder.Provider()
	model := idx.embedder.Model()
	dim := idx.embedder.Dimension()

	fresh := func() (*State, error) {
		if err := idx.store.Clear(); err != nil {
			return nil, err
		}
		return NewState(fingerprint, provider, model, dim), nil
	}

	if !idx.cfg.Incremental {
		return fresh()
	}

	state, err := LoadState(idx.statePath())
	if err != nil {
		log.Printf("index state unreadable, rebuilding: %v", err)
		return fresh()
	}
	if state == nil {
		return NewState(fingerprint, provider, model, dim), nil
	}
	if state.Drifted(fingerprint, provider, model, dim) {
		log.Printf("chunker or embedding configuration changed, rebuilding index")
		return fresh()
	}
	return state, nil
}

// processFile chunks and embeds one file. Runs on a pool worker and
// never touches the store or the live state; all it knows about prior
// runs comes from the immutable prev snapshot.
func (idx *Indexer) processFile(ctx context.Context, rel string, prevStates map[string]FileState) fileResult {
	res := fileResult{path: rel}

	abs := filepath.Join(idx.cfg.RootDir, rel)
	hash, modTime, err := computeFileHash(abs)
	if err != nil {
		res.err = err
		return res
	}

	if prev, ok := prevStates[rel]; ok && prev.ContentHash == hash && prev.ModTime.Equal(modTime) {
		res.skipped = true
		return res
	}

	chunks, err := idx.chunker.ChunkFileAs(abs, rel, idx.chunkCfg)
	if err != nil {
		res.err = err
		return res
	}

	if len(chunks) == 0 {
		res.state = FileState{Path: rel, ContentHash: hash, ModTime: modTime}
		return res
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := idx.embedBatched(ctx, texts)
	if err != nil {
		res.err = err
		return res
	}

	records := make([]types.EmbeddingRecord, len(chunks))
	chunkIDs := make([]string, len(chunks))
	for i := range chunks {
		records[i] = types.EmbeddingRecord{
			ChunkID: chunks[i].ID,
			Vector:  vectors[i],
			Dim:     len(vectors[i]),
		}
		chunkIDs[i] = chunks[i].ID
	}

	res.chunks = chunks
	res.records = records
	res.state = FileState{Path: rel, ContentHash: hash, ModTime: modTime, ChunkIDs: chunkIDs}
	return res
}

// embedBatched splits texts into configured-size batches.
func (idx *Indexer) embedBatched(ctx context.Context, texts []string) ([][]float32, error) {
	batchSize := idx.cfg.EmbedBatchSize
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := idx.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// aggregate is the single writer for the store and the state. It
// replaces each file's chunks atomically (remove old, add new) and
// saves state every BatchSize processed files so an interrupted run
// resumes close to where it stopped.
func (idx *Indexer) aggregate(results <-chan fileResult, state *State, stats *Stats) error {
	// On a store failure keep draining so workers never block on send;
	// the first error is what the caller sees.
	var firstErr error
	sinceSave := 0
	for res := range results {
		if firstErr != nil {
			continue
		}
		switch {
		case res.skipped:
			stats.FilesSkipped++
			continue
		case res.err != nil:
			stats.FilesFailed++
			stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", res.path, res.err))
			continue
		}

		if _, err := idx.store.RemoveByPath(res.path); err != nil {
			firstErr = err
			continue
		}
		if len(res.chunks) > 0 {
			if err := idx.store.AddChunks(res.chunks, res.records); err != nil {
				firstErr = err
				continue
			}
		}

		state.Files[res.path] = res.state
		stats.FilesProcessed++
		stats.ChunksCreated += len(res.chunks)
		stats.ChunksEmbedded += len(res.records)

		sinceSave++
		if sinceSave >= idx.cfg.BatchSize {
			if err := state.Save(idx.statePath()); err != nil {
				firstErr = err
				continue
			}
			sinceSave = 0
		}
	}
	return firstErr
}

// removeDeleted drops chunks of files recorded in state but absent
// from the current walk.
func (idx *Indexer) removeDeleted(walked []string, state *State, stats *Stats) error {
	present := make(map[string]bool, len(walked))
	for _, f := range walked {
		present[f] = true
	}

	for path := range state.Files {
		if present[path] {
			continue
		}
		if _, err := idx.store.RemoveByPath(path); err != nil {
			return err
		}
		delete(state.Files, path)
		stats.FilesRemoved++
	}
	return nil
}

// Status reports the index contents from state and store.
func (idx *Indexer) Status() (*Status, error) {
	st := &Status{
		ChunkCount:        idx.store.Count(),
		EmbeddingProvider: idx.embedder.Provider(),
		EmbeddingModel:    idx.embedder.Model(),
		EmbeddingDim:      idx.embedder.Dimension(),
	}

	state, err := LoadState(idx.statePath())
	if err != nil {
		return nil, err
	}
	if state != nil {
		st.FileCount = len(state.Files)
		st.LastIndexed = state.LastIndexed
	}
	return st, nil
}

// Clear empties the store and removes the incremental state.
func (idx *Indexer) Clear() error {
	if err := idx.store.Clear(); err != nil {
		return err
	}
	if err := os.Remove(idx.statePath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove state: %w", err)
	}
	return nil
}

// computeFileHash returns the sha256 hex digest and mod time of a file.
func computeFileHash(path string) (string, time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", time.Time{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", time.Time{}, err
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", time.Time{}, err
	}
	return hex.EncodeToString(h.Sum(nil)), info.ModTime(), nil
}
