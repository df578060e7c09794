package languages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codescout/internal/chunker"
)

func TestDefaultRegistry_LooksUpByExtension(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, "go", r.LanguageName("internal/indexer/indexer.go"))
	assert.Equal(t, "python", r.LanguageName("scripts/build.py"))
	assert.Equal(t, "javascript", r.LanguageName("web/app.jsx"))
	assert.Equal(t, "typescript", r.LanguageName("web/app.tsx"))
	assert.Equal(t, "rust", r.LanguageName("src/main.rs"))
	assert.Empty(t, r.LanguageName("README.md"))
}

func TestParse_GoDeclarations(t *testing.T) {
	src := []byte(`package calc

import "fmt"

// Add returns a + b.
func Add(a, b int) int {
	return a + b
}

type Counter struct {
	n int
}

func (c *Counter) Incr() {
	c.n++
	fmt.Println(c.n)
}
`)

	r := DefaultRegistry()
	decls, err := r.Parse("calc.go", src)
	require.NoError(t, err)
	require.Len(t, decls, 3)

	names := make([]string, 0, len(decls))
	for _, d := range decls {
		names = append(names, d.Name)
	}
	assert.Contains(t, names, "Add")
	assert.Contains(t, names, "Counter")
	assert.Contains(t, names, "Incr")

	imports := r.Imports("calc.go", src)
	require.Len(t, imports, 1)
	assert.Equal(t, `"fmt"`, imports[0])
}

func TestParse_PythonDeclarations(t *testing.T) {
	src := []byte(`import os

def main():
    print(os.getcwd())

class Runner:
    def run(self):
        pass
`)

	r := DefaultRegistry()
	decls, err := r.Parse("tool.py", src)
	require.NoError(t, err)
	// Nested methods fold into their class.
	require.Len(t, decls, 2)
	assert.Equal(t, "main", decls[0].Name)
	assert.Equal(t, "Runner", decls[1].Name)
}

func TestParse_RustDeclarations(t *testing.T) {
	src := []byte(`use std::fmt;

struct Point {
    x: i32,
}

impl Point {
    fn origin() -> Point {
        Point { x: 0 }
    }
}
`)

	r := DefaultRegistry()
	decls, err := r.Parse("point.rs", src)
	require.NoError(t, err)
	require.Len(t, decls, 2)
	assert.Equal(t, "Point", decls[0].Name)

	imports := r.Imports("point.rs", src)
	require.Len(t, imports, 1)
	assert.Contains(t, imports[0], "std::fmt")
}

func TestChunker_SemanticGoFile(t *testing.T) {
	src := []byte(`package greet

// Hello returns a greeting.
func Hello(name string) string {
	return "hello " + name
}
`)

	c := chunker.New(DefaultRegistry())
	chunks, err := c.Chunk("greet.go", src, chunker.DefaultConfig())
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	ch := chunks[0]
	assert.Equal(t, "go", ch.Language)
	assert.Contains(t, ch.Content, "func Hello")
	assert.Equal(t, "func Hello(name string) string {", ch.Metadata.Signature)
	assert.Equal(t, "// Hello returns a greeting.", ch.Metadata.DocComment)
}
