package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/codescout/internal/config"
	"github.com/dshills/codescout/internal/engine"
	"github.com/dshills/codescout/internal/mcp"
	"github.com/dshills/codescout/internal/watcher"
)

var (
	version = "dev"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "codescout",
		Short:         "Local codebase indexing and hybrid retrieval",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newIndexCmd(),
		newSearchCmd(),
		newContextCmd(),
		newStatusCmd(),
		newClearCmd(),
		newServeCmd(),
		newWatchCmd(),
	)
	return root
}

// openEngine resolves the project root and index directory flags into
// a ready engine.
func openEngine(rootDir, indexDir string) (*engine.Engine, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if indexDir == "" {
		indexDir = filepath.Join(abs, ".codescout")
	}

	cfg, err := config.Load(indexDir, abs)
	if err != nil {
		return nil, err
	}
	return engine.Open(cfg)
}

func newIndexCmd() *cobra.Command {
	var indexDir string
	var force bool

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a project tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}

			e, err := openEngine(root, indexDir)
			if err != nil {
				return err
			}
			defer e.Close()

			if force {
				if err := e.Clear(); err != nil {
					return err
				}
			}

			stats, err := e.Index(cmd.Context(), nil)
			if err != nil {
				return err
			}

			fmt.Printf("Indexed %d files (%d skipped, %d failed, %d removed)\n",
				stats.FilesProcessed, stats.FilesSkipped, stats.FilesFailed, stats.FilesRemoved)
			fmt.Printf("%d chunks created in %s\n", stats.ChunksCreated, stats.Duration.Round(time.Millisecond))
			for _, msg := range stats.Errors {
				fmt.Fprintf(os.Stderr, "  error: %s\n", msg)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&indexDir, "index-dir", "", "index directory (default <root>/.codescout)")
	cmd.Flags().BoolVar(&force, "force", false, "clear the index and rebuild from scratch")
	return cmd
}

func newSearchCmd() *cobra.Command {
	var indexDir, rootDir string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed codebase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(rootDir, indexDir)
			if err != nil {
				return err
			}
			defer e.Close()

			results, stats, err := e.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(results) > limit {
				results = results[:limit]
			}

			if len(results) == 0 {
				fmt.Printf("No results (fuzzy: %d, semantic: %d)\n", stats.FuzzyCount, stats.SemanticCount)
				if stats.SemanticError != "" {
					fmt.Fprintf(os.Stderr, "semantic search degraded: %s\n", stats.SemanticError)
				}
				return nil
			}

			for i, r := range results {
				fmt.Printf("%2d. %s:%d-%d  (%.4f via %s)\n",
					i+1, r.Chunk.Path, r.Chunk.StartLine, r.Chunk.EndLine, r.Score, r.Source)
			}
			fmt.Printf("\n%d fuzzy + %d semantic candidates fused in %s",
				stats.FuzzyCount, stats.SemanticCount, stats.TotalTime.Round(time.Millisecond))
			if stats.CacheHit {
				fmt.Printf(" (cached)")
			}
			fmt.Println()
			if stats.SemanticError != "" {
				fmt.Fprintf(os.Stderr, "semantic search degraded: %s\n", stats.SemanticError)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rootDir, "root", ".", "project root")
	cmd.Flags().StringVar(&indexDir, "index-dir", "", "index directory (default <root>/.codescout)")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results to print")
	return cmd
}

func newContextCmd() *cobra.Command {
	var indexDir, rootDir string
	var budget int

	cmd := &cobra.Command{
		Use:   "context <query>",
		Short: "Print a token-budgeted context bundle for a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(rootDir, indexDir)
			if err != nil {
				return err
			}
			defer e.Close()

			bundle, err := e.Provider.ProvideContext(cmd.Context(), args[0], budget, nil)
			if err != nil {
				return err
			}
			if bundle == nil || len(bundle.Chunks) == 0 {
				fmt.Println("No relevant context found")
				return nil
			}

			fmt.Print(bundle.Text)
			fmt.Fprintf(os.Stderr, "\n%d chunks, %d tokens\n", len(bundle.Chunks), bundle.TokensUsed)
			return nil
		},
	}

	cmd.Flags().StringVar(&rootDir, "root", ".", "project root")
	cmd.Flags().StringVar(&indexDir, "index-dir", "", "index directory (default <root>/.codescout)")
	cmd.Flags().IntVar(&budget, "budget", 0, "token budget (default from project config)")
	return cmd
}

func newStatusCmd() *cobra.Command {
	var indexDir, rootDir string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Report index status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(rootDir, indexDir)
			if err != nil {
				return err
			}
			defer e.Close()

			status, err := e.Indexer.Status()
			if err != nil {
				return err
			}

			if status.FileCount == 0 {
				fmt.Println("Not indexed. Run 'codescout index' first.")
				return nil
			}

			fmt.Printf("Files indexed:  %d\n", status.FileCount)
			fmt.Printf("Chunks stored:  %d\n", status.ChunkCount)
			fmt.Printf("Embeddings:     %s/%s (%d dims)\n",
				status.EmbeddingProvider, status.EmbeddingModel, status.EmbeddingDim)
			fmt.Printf("Last indexed:   %s\n", status.LastIndexed.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&rootDir, "root", ".", "project root")
	cmd.Flags().StringVar(&indexDir, "index-dir", "", "index directory (default <root>/.codescout)")
	return cmd
}

func newClearCmd() *cobra.Command {
	var indexDir, rootDir string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all indexed data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEngine(rootDir, indexDir)
			if err != nil {
				return err
			}
			defer e.Close()

			if err := e.Clear(); err != nil {
				return err
			}
			fmt.Println("Index cleared")
			return nil
		},
	}

	cmd.Flags().StringVar(&rootDir, "root", ".", "project root")
	cmd.Flags().StringVar(&indexDir, "index-dir", "", "index directory (default <root>/.codescout)")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run as an MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := mcp.NewServer()
			return server.Serve(ctx)
		},
	}
}

func newWatchCmd() *cobra.Command {
	var indexDir string
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Watch a project and keep its index current",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) > 0 {
				root = args[0]
			}

			e, err := openEngine(root, indexDir)
			if err != nil {
				return err
			}
			defer e.Close()

			// Bring the index up to date before watching.
			if _, err := e.Index(cmd.Context(), nil); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("Watching %s (Ctrl-C to stop)\n", e.Config.RootDir)
			w := watcher.New(e, debounce)
			if err := w.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&indexDir, "index-dir", "", "index directory (default <root>/.codescout)")
	cmd.Flags().DurationVar(&debounce, "debounce", watcher.DefaultDebounce, "quiet period before reindexing")
	return cmd
}
