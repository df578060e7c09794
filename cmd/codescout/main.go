package main

import (
	"log"
	"os"
)

func main() {
	// Log to stderr; stdout is reserved for command output and the MCP
	// protocol when serving.
	log.SetOutput(os.Stderr)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
