// Package mcp exposes the indexing and retrieval pipeline as an MCP
// server over stdio, for use by coding agents.
package mcp

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/codescout/internal/config"
	"github.com/dshills/codescout/internal/engine"
)

const (
	// ServerName is the MCP server name
	ServerName = "codescout"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with per-project engines. Engines are
// created lazily on the first tool call naming a project root and
// reused afterwards.
type Server struct {
	mcp *server.MCPServer

	mu      sync.Mutex
	engines map[string]*engine.Engine // project root -> engine
}

// NewServer creates an MCP server with all tools registered.
func NewServer() *Server {
	s := &Server{
		mcp:     server.NewMCPServer(ServerName, ServerVersion),
		engines: make(map[string]*engine.Engine),
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	defer s.closeEngines()
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(indexCodebaseTool(), s.handleIndexCodebase)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(getContextTool(), s.handleGetContext)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(clearIndexTool(), s.handleClearIndex)
}

// engineFor returns the engine for a project root, creating it from
// the project's persisted configuration on first use.
func (s *Server) engineFor(root string) (*engine.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.engines[root]; ok {
		return e, nil
	}

	cfg := config.Default(root)
	loaded, err := config.Load(cfg.IndexDir, root)
	if err != nil {
		return nil, fmt.Errorf("load project config: %w", err)
	}

	e, err := engine.Open(loaded)
	if err != nil {
		return nil, err
	}
	s.engines[root] = e
	return e, nil
}

func (s *Server) closeEngines() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.engines {
		_ = e.Close()
	}
	s.engines = make(map[string]*engine.Engine)
}
