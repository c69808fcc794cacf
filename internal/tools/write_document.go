package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/scribeworks/docsurgeon/internal/document"
	"github.com/scribeworks/docsurgeon/internal/gitrepo"
	"github.com/scribeworks/docsurgeon/internal/session"
)

// WriteDocumentTool handles the doc_write_document MCP tool.
// It creates a new sectioned document with every section machine-owned,
// writes it atomically and commits it on the session's branch.
type WriteDocumentTool struct {
	reg *session.Registry
	vcs gitrepo.VCS
}

// NewWriteDocumentTool creates a WriteDocumentTool.
func NewWriteDocumentTool(reg *session.Registry, vcs gitrepo.VCS) *WriteDocumentTool {
	return &WriteDocumentTool{reg: reg, vcs: vcs}
}

// Definition returns the MCP tool definition for registration.
func (t *WriteDocumentTool) Definition() mcp.Tool {
	return mcp.NewTool("doc_write_document",
		mcp.WithDescription(
			"Create a new Markdown document in the repository. Each '## ' heading "+
				"in the content becomes an addressable section wrapped in machine "+
				"span markers, so later doc_update_sections calls can rewrite it "+
				"without touching human edits. Refuses to overwrite an existing "+
				"file. The result is committed on the session's branch, never on "+
				"the trunk — call doc_select_branch first if the repository is "+
				"still on its trunk.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session from doc_session_start"),
		),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Where to create the document, relative to the repository root, e.g. 'docs/enrollment.md'"),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Document title, rendered as the H1 line"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Markdown body. Must contain at least one '## ' section heading; section ids are derived from the headings ('API Reference' becomes 'api-reference')."),
		),
		mcp.WithString("summary",
			mcp.Description("Commit message subject. Defaults to 'create <file_path>'."),
		),
	)
}

// Handle processes the doc_write_document tool call.
func (t *WriteDocumentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	filePath := strings.TrimSpace(req.GetString("file_path", ""))
	title := strings.TrimSpace(req.GetString("title", ""))
	content := req.GetString("content", "")
	summary := strings.TrimSpace(req.GetString("summary", ""))

	if filePath == "" {
		return mcp.NewToolResultError("'file_path' is required — where to create the document, relative to the repository root"), nil
	}
	if title == "" {
		return mcp.NewToolResultError("'title' is required — the document's H1 title"), nil
	}
	if strings.TrimSpace(content) == "" {
		return mcp.NewToolResultError("'content' is required — Markdown with at least one '## ' section heading"), nil
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

	d, err := document.NewFromMarkdown(rel, title, content)
	if err != nil {
		// Every failure here is a content problem the caller can fix.
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := document.VerifyRoundTrip(d); err != nil {
		return errorResult(err)
	}

	vctx, cancel := context.WithTimeout(ctx, cfg.VCSTimeout())
	defer cancel()

	// The branch comes first: existence is checked against the worktree
	// the commit will land on.
	branch, err := ensureActiveBranch(vctx, t.vcs, t.reg, s, cfg, rc)
	if err != nil {
		return errorResult(err)
	}

	if _, err := os.Stat(abs); err == nil {
		return mcp.NewToolResultError(fmt.Sprintf(
			"%s already exists — use doc_update_sections to rewrite its sections, or pick another path", rel)), nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("checking %s: %w", abs, err)
	}

	if err := document.WriteFileAtomic(abs, d.Serialize()); err != nil {
		return nil, fmt.Errorf("writing %s: %w", abs, err)
	}

	if summary == "" {
		summary = "create " + rel
	}
	hash, err := t.vcs.Commit(vctx, rc.RootPath, []string{rel}, gitrepo.BuildCommitMessage(summary, s.ID), commitAuthor(cfg))
	if err != nil {
		return errorResult(err)
	}

	if _, err := t.reg.SetTargetFile(s.ID, rel); err != nil {
		return errorResult(err)
	}

	var sections strings.Builder
	for _, sec := range d.Sections {
		fmt.Fprintf(&sections, "- `%s` — %s\n", sec.ID, sec.Heading)
	}

	response := fmt.Sprintf(
		"# Document Created\n\n"+
			"**File:** %s\n"+
			"**Branch:** `%s`\n"+
			"**Commit:** `%s`\n\n"+
			"## Sections (%d)\n\n"+
			"%s\n"+
			"## Next Step\n\n"+
			"Use these section ids in `doc_update_sections` when the content "+
			"goes stale, and `doc_analyze_impact` to find out which ones a code "+
			"change invalidates. Call `doc_open_review` to push the branch and "+
			"open a pull request.",
		rel, branch, shortHash(hash), len(d.Sections), sections.String(),
	)
	return mcp.NewToolResultText(response), nil
}
