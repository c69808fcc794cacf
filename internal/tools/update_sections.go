package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/scribeworks/docsurgeon/internal/document"
	"github.com/scribeworks/docsurgeon/internal/gitrepo"
	"github.com/scribeworks/docsurgeon/internal/session"
)

// UpdateSectionsTool handles the doc_update_sections MCP tool.
// It surgically rewrites the machine-owned spans of named sections,
// leaves every human-authored byte alone, verifies the result survives
// a reparse and commits it on the session's branch.
type UpdateSectionsTool struct {
	reg *session.Registry
	vcs gitrepo.VCS
}

// NewUpdateSectionsTool creates an UpdateSectionsTool.
func NewUpdateSectionsTool(reg *session.Registry, vcs gitrepo.VCS) *UpdateSectionsTool {
	return &UpdateSectionsTool{reg: reg, vcs: vcs}
}

// Definition returns the MCP tool definition for registration.
func (t *UpdateSectionsTool) Definition() mcp.Tool {
	return mcp.NewTool("doc_update_sections",
		mcp.WithDescription(
			"Rewrite the machine-owned spans of named sections in an existing "+
				"document. Human edits — text outside the span markers — are "+
				"never touched; a section that has no machine span yet gets one "+
				"appended after its existing content. The write is atomic, "+
				"verified against a reparse, and committed on the session's "+
				"branch. Fails without writing if any marker in the file is "+
				"malformed or any section id is unknown.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session from doc_session_start"),
		),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Document to update, relative to the repository root"),
		),
		mcp.WithString("updates",
			mcp.Required(),
			mcp.Description(`JSON object mapping section ids to their new Markdown content, e.g. {"api-reference": "New body.\n", "quick-start": "..."}. Get the ids from doc_write_document, doc_analyze_impact or a previous update.`),
		),
		mcp.WithString("summary",
			mcp.Description("Commit message subject. Defaults to 'update <file_path>: <section ids>'."),
		),
	)
}

// Handle processes the doc_update_sections tool call.
func (t *UpdateSectionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	filePath := strings.TrimSpace(req.GetString("file_path", ""))
	updatesJSON := req.GetString("updates", "")
	summary := strings.TrimSpace(req.GetString("summary", ""))

	if filePath == "" {
		return mcp.NewToolResultError("'file_path' is required — the document to update, relative to the repository root"), nil
	}

	var updates map[string]string
	if err := json.Unmarshal([]byte(updatesJSON), &updates); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf(
			"'updates' must be a JSON object mapping section ids to Markdown, like {\"api-reference\": \"New body.\"}: %v", err)), nil
	}
	if len(updates) == 0 {
		return mcp.NewToolResultError("'updates' must name at least one section"), nil
	}

	s, err := t.reg.BeginOperation(sessionID)
	if err != nil {
		return errorResult(err)
	}
	defer t.reg.EndOperation(s.ID)

	cfg, rc, err := loadRepo(ctx, t.vcs, s.RootPath)
	if err != nil {
		return errorResult(err)
	}

	abs, err := gitrepo.ResolveWithinRoot(rc.RootPath, filePath)
	if err != nil {
		return errorResult(err)
	}
	rel, err := filepath.Rel(rc.RootPath, abs)
	if err != nil {
		return nil, fmt.Errorf("relativizing %s: %w", abs, err)
	}
	rel = filepath.ToSlash(rel)

	vctx, cancel := context.WithTimeout(ctx, cfg.VCSTimeout())
	defer cancel()

	// The branch comes first so the file is read from the worktree the
	// rewrite will land on.
	branch, err := ensureActiveBranch(vctx, t.vcs, t.reg, s, cfg, rc)
	if err != nil {
		return errorResult(err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return mcp.NewToolResultError(fmt.Sprintf(
				"%s does not exist — create it first with doc_write_document", rel)), nil
		}
		return nil, fmt.Errorf("reading %s: %w", abs, err)
	}

	doc, err := document.Parse(rel, data)
	if err != nil {
		return errorResult(err)
	}

	ids := make([]string, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	merged, updated, err := document.Merge(doc, ids, updates)
	if err != nil {
		return errorResult(err)
	}
	if err := document.VerifyRoundTrip(merged); err != nil {
		return errorResult(err)
	}

	if err := document.WriteFileAtomic(abs, merged.Serialize()); err != nil {
		return nil, fmt.Errorf("writing %s: %w", abs, err)
	}

	if summary == "" {
		summary = fmt.Sprintf("update %s: %s", rel, strings.Join(updated, ", "))
	}
	hash, err := t.vcs.Commit(vctx, rc.RootPath, []string{rel}, gitrepo.BuildCommitMessage(summary, s.ID), commitAuthor(cfg))
	if err != nil {
		return errorResult(err)
	}

	if _, err := t.reg.SetTargetFile(s.ID, rel); err != nil {
		return errorResult(err)
	}

	var list strings.Builder
	for _, id := range updated {
		fmt.Fprintf(&list, "- `%s`\n", id)
	}

	response := fmt.Sprintf(
		"# Sections Updated\n\n"+
			"**File:** %s\n"+
			"**Branch:** `%s`\n"+
			"**Commit:** `%s`\n\n"+
			"## Rewritten (%d)\n\n"+
			"%s\n"+
			"## Next Step\n\n"+
			"Call `doc_open_review` to push the branch and open a pull request, "+
			"or keep updating sections — each call commits separately.",
		rel, branch, shortHash(hash), len(updated), list.String(),
	)
	return mcp.NewToolResultText(response), nil
}
