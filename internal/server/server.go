// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates the concrete session
// registry, git backend and review client and injects them into the
// tools that depend on abstractions. No business logic lives here,
// only wiring.
package server

import (
	"fmt"
	"log"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/scribeworks/docsurgeon/internal/config"
	"github.com/scribeworks/docsurgeon/internal/gitrepo"
	"github.com/scribeworks/docsurgeon/internal/review"
	"github.com/scribeworks/docsurgeon/internal/session"
	"github.com/scribeworks/docsurgeon/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all documentation
// tools registered. This is the single place where dependencies are
// resolved.
//
// Server-wide settings (session idle timeout) come from a
// .docsurgeon.yaml in the server's working directory when present;
// repository-level settings are re-read from each repository on every
// tool call.
func New() (*server.MCPServer, error) {
	// --- Create shared dependencies ---

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolving working directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}

	reg := session.NewRegistry(cfg.IdleTimeout())
	vcs := gitrepo.GoGit{}

	// Review is an independent concern: without a working gh CLI every
	// other tool keeps functioning, only doc_open_review reports the
	// missing binary when called.
	reviews := review.GHClient{}
	if !reviews.Available() {
		log.Printf("WARNING: gh CLI not found or not authenticated, doc_open_review will fail until it is")
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"docsurgeon",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register session lifecycle tools ---

	sessionStart := tools.NewSessionStartTool(reg, vcs)
	s.AddTool(sessionStart.Definition(), sessionStart.Handle)

	sessionStatus := tools.NewSessionStatusTool(reg)
	s.AddTool(sessionStatus.Definition(), sessionStatus.Handle)

	sessionEnd := tools.NewSessionEndTool(reg)
	s.AddTool(sessionEnd.Definition(), sessionEnd.Handle)

	// --- Register writing tools ---

	selectBranch := tools.NewSelectBranchTool(reg, vcs)
	s.AddTool(selectBranch.Definition(), selectBranch.Handle)

	writeDocument := tools.NewWriteDocumentTool(reg, vcs)
	s.AddTool(writeDocument.Definition(), writeDocument.Handle)

	updateSections := tools.NewUpdateSectionsTool(reg, vcs)
	s.AddTool(updateSections.Definition(), updateSections.Handle)

	// --- Register analysis and review tools ---

	analyzeImpact := tools.NewAnalyzeImpactTool(reg)
	s.AddTool(analyzeImpact.Definition(), analyzeImpact.Handle)

	openReview := tools.NewOpenReviewTool(reg, vcs, reviews)
	s.AddTool(openReview.Definition(), openReview.Handle)

	return s, nil
}

// serverInstructions returns the system instructions that tell the AI
// how to write documentation safely through docsurgeon.
func serverInstructions() string {
	return `You have access to docsurgeon, an MCP server for writing and
surgically updating Markdown documentation inside git repositories.

## WHEN TO USE docsurgeon

Use it whenever you create or refresh documentation files in a git
repository: README sections, architecture notes, API references,
runbooks. It guarantees three things plain file edits do not:

- Writes land on a documentation branch, never on main/master
- Machine-generated sections are updated in place while every
  human-written line survives byte for byte
- Each write becomes an atomic commit, reviewable as a pull request

Do NOT use it for code files or for repositories you only read.

## WORKFLOW

1. doc_session_start(repo_path, caller_id) — one session per
   repository. Keep the returned session_id; every other tool needs it.
2. doc_select_branch to pick or create the documentation branch.
   Writes are refused while the repository is on its trunk, so call
   this before the first write; omitting 'branch' derives a
   'docs/<file>-<date>' name.
3. doc_write_document(file_path, title, content) for new files.
   Every '## ' heading becomes a section with a stable id; remember
   the ids from the response.
4. When the documented code changes, doc_analyze_impact(file_path,
   changes) tells you which sections went stale. Describe the code
   changes as a JSON array of {kind, target_name} entries.
5. doc_update_sections(file_path, updates) rewrites exactly the
   sections you name. Text humans added around the marked spans is
   never touched, so do not try to reproduce it in your content.
6. doc_open_review(title, body) pushes the branch and opens (or
   reuses) a pull request for human review.
7. doc_session_end when done. Sessions also expire on their own after
   idling.

## RULES

- Never edit documentation files in a docsurgeon-managed repository
  with plain file writes while a session is open: you would bypass the
  provenance markers and the trunk protection.
- Do not remove or rewrite the '<!-- docsurgeon:begin/end -->' marker
  comments; they are how the tool knows which text it owns.
- If a tool reports a malformed marker, stop and tell the user; the
  file needs a human look before further machine writes.
- Use doc_session_status after long pauses — an expired session means
  you must start a new one.`
}
