package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePath(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, validatePath(dir))
	assert.ErrorIs(t, validatePath("relative/path"), ErrPathNotAbsolute)
	assert.ErrorIs(t, validatePath(dir+"/missing"), ErrPathNotFound)
}

func TestGetIntDefault(t *testing.T) {
	args := map[string]interface{}{
		"float": float64(7), // JSON numbers decode as float64
		"int":   3,
	}
	assert.Equal(t, 7, getIntDefault(args, "float", 1))
	assert.Equal(t, 3, getIntDefault(args, "int", 1))
	assert.Equal(t, 1, getIntDefault(args, "absent", 1))
}

func TestToolSchemas(t *testing.T) {
	tools := []struct {
		name     string
		required []string
	}{
		{"index_codebase", []string{"path"}},
		{"search_code", []string{"path", "query"}},
		{"get_context", []string{"path", "query"}},
		{"get_status", []string{"path"}},
		{"clear_index", []string{"path"}},
	}

	defs := map[string]interface{}{
		"index_codebase": indexCodebaseTool(),
		"search_code":    searchCodeTool(),
		"get_context":    getContextTool(),
		"get_status":     getStatusTool(),
		"clear_index":    clearIndexTool(),
	}

	for _, tt := range tools {
		def := defs[tt.name]
		require.NotNil(t, def, tt.name)
	}

	assert.Equal(t, "search_code", searchCodeTool().Name)
	assert.Equal(t, []string{"path", "query"}, searchCodeTool().InputSchema.Required)
	assert.Equal(t, []string{"path"}, getStatusTool().InputSchema.Required)
}

func TestNewServer_RegistersEngineMap(t *testing.T) {
	s := NewServer()
	require.NotNil(t, s)
	assert.NotNil(t, s.engines)
	assert.Empty(t, s.engines)
}
