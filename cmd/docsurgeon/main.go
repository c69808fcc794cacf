// Docsurgeon: documentation write & surgical update MCP server
//
// A stdio MCP server that lets AI coding agents write and update
// sectioned Markdown documentation inside git repositories without
// ever touching the trunk branch or overwriting human edits.
//
// Usage:
//
//	docsurgeon          # Start MCP server (stdio transport)
//	docsurgeon serve    # Same, explicit
//	docsurgeon version  # Print version
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	docserver "github.com/scribeworks/docsurgeon/internal/server"
)

func main() {
	// No argument means serve: MCP hosts usually launch the bare binary.
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("docsurgeon v%s\n", docserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	s, err := docserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Stdout belongs to the MCP transport; everything else goes to
	// stderr via the stdlib logger.
	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Docsurgeon v%s — documentation write & surgical update MCP server

Usage:
  docsurgeon [serve]    Start the MCP server (stdio transport)
  docsurgeon version    Print version

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "docsurgeon": {
        "command": "docsurgeon",
        "args": ["serve"]
      }
    }
  }

Per-repository settings live in .docsurgeon.yaml at the repository
root: trunk_branch, protected_branches, branch_prefix,
impact_threshold, session_idle_minutes, vcs_timeout_seconds,
commit_author_name, commit_author_email. Every field is optional.
`, docserver.Version)
}
