package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/codescout/internal/provider"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleIndexCodebase handles the index_codebase tool invocation
func (s *Server) handleIndexCodebase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	e, err := s.engineFor(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open project", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if force, _ := args["force"].(bool); force {
		if err := e.Clear(); err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to clear index", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	stats, err := e.Index(ctx, nil)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":         true,
		"files_processed": stats.FilesProcessed,
		"files_skipped":   stats.FilesSkipped,
		"files_failed":    stats.FilesFailed,
		"files_removed":   stats.FilesRemoved,
		"chunks_created":  stats.ChunksCreated,
		"chunks_embedded": stats.ChunksEmbedded,
		"duration_ms":     stats.Duration.Milliseconds(),
	}
	if len(stats.Errors) > 0 {
		errorCount := len(stats.Errors)
		if errorCount > 5 {
			response["errors"] = stats.Errors[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.Errors
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	e, err := s.engineFor(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open project", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results, stats, err := e.Search(ctx, query)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if len(results) > limit {
		results = results[:limit]
	}

	items := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		items = append(items, map[string]interface{}{
			"path":       r.Chunk.Path,
			"start_line": r.Chunk.StartLine,
			"end_line":   r.Chunk.EndLine,
			"language":   r.Chunk.Language,
			"score":      r.Score,
			"source":     r.Source,
			"content":    r.Chunk.Content,
		})
	}

	response := map[string]interface{}{
		"results": items,
		"stats": map[string]interface{}{
			"fuzzy_count":    stats.FuzzyCount,
			"semantic_count": stats.SemanticCount,
			"fused_count":    stats.FusedCount,
			"cache_hit":      stats.CacheHit,
			"semantic_error": stats.SemanticError,
			"total_ms":       stats.TotalTime.Milliseconds(),
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetContext handles the get_context tool invocation
func (s *Server) handleGetContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	tokenBudget := getIntDefault(args, "token_budget", 0)

	var meta *provider.Metadata
	if confidence, ok := args["confidence"].(float64); ok {
		meta = &provider.Metadata{Confidence: confidence}
		meta.ForceSearch, _ = args["force_search"].(bool)
	}

	e, err := s.engineFor(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open project", map[string]interface{}{
			"error": err.Error(),
		})
	}

	bundle, err := e.Provider.ProvideContext(ctx, query, tokenBudget, meta)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "context retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if bundle == nil {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"provided": false,
			"reason":   "confidence below threshold",
		})), nil
	}

	response := map[string]interface{}{
		"provided":    true,
		"context":     bundle.Text,
		"tokens_used": bundle.TokensUsed,
		"chunk_count": len(bundle.Chunks),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	e, err := s.engineFor(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open project", map[string]interface{}{
			"error": err.Error(),
		})
	}

	status, err := e.Indexer.Status()
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if status.FileCount == 0 {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"indexed": false,
			"path":    path,
			"message": "Project not indexed. Use index_codebase tool to index this project.",
		})), nil
	}

	response := map[string]interface{}{
		"indexed": true,
		"path":    path,
		"statistics": map[string]interface{}{
			"file_count":  status.FileCount,
			"chunk_count": status.ChunkCount,
		},
		"embedding": map[string]interface{}{
			"provider":  status.EmbeddingProvider,
			"model":     status.EmbeddingModel,
			"dimension": status.EmbeddingDim,
		},
		"last_indexed_at": status.LastIndexed.Format("2006-01-02T15:04:05Z07:00"),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleClearIndex handles the clear_index tool invocation
func (s *Server) handleClearIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, err := requirePath(args)
	if err != nil {
		return nil, err
	}

	e, err := s.engineFor(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to open project", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := e.Clear(); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to clear index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"cleared": true,
		"path":    path,
	})), nil
}

// requirePath extracts and validates the path argument.
func requirePath(args map[string]interface{}) (string, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}
	if err := validatePath(path); err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return path, nil
}

func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks if a path exists and is an accessible directory.
func validatePath(path string) error {
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}
	if !info.IsDir() {
		return ErrNotDirectory
	}
	return nil
}

func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
