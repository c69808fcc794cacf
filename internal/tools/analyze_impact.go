package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/scribeworks/docsurgeon/internal/config"
	"github.com/scribeworks/docsurgeon/internal/document"
	"github.com/scribeworks/docsurgeon/internal/gitrepo"
	"github.com/scribeworks/docsurgeon/internal/impact"
	"github.com/scribeworks/docsurgeon/internal/session"
)

// AnalyzeImpactTool handles the doc_analyze_impact MCP tool.
// It reads a document from the worktree and reports which sections a
// described artifact change invalidates. Pure analysis: nothing is
// written and no report is persisted.
type AnalyzeImpactTool struct {
	reg *session.Registry
}

// NewAnalyzeImpactTool creates an AnalyzeImpactTool.
func NewAnalyzeImpactTool(reg *session.Registry) *AnalyzeImpactTool {
	return &AnalyzeImpactTool{reg: reg}
}

// Definition returns the MCP tool definition for registration.
func (t *AnalyzeImpactTool) Definition() mcp.Tool {
	return mcp.NewTool("doc_analyze_impact",
		mcp.WithDescription(
			"Report which sections of a document are made stale by changes to "+
				"the documented artifact. Matching is token-based against section "+
				"headings and machine-owned spans: 'exact' means the target is "+
				"fully covered, 'probable' means the term overlap crossed the "+
				"configured threshold. Removed artifacts flag every mention. "+
				"Advisory only — nothing is modified.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session from doc_session_start"),
		),
		mcp.WithString("file_path",
			mcp.Required(),
			mcp.Description("Document to analyze, relative to the repository root"),
		),
		mcp.WithString("changes",
			mcp.Required(),
			mcp.Description(`JSON array describing what changed in the documented artifact. Each entry: {"kind": "added|removed|modified", "target_name": "enrollUser", "before_signature": "...", "after_signature": "..."}. The signatures are optional context for the report.`),
		),
	)
}

// Handle processes the doc_analyze_impact tool call.
func (t *AnalyzeImpactTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	filePath := strings.TrimSpace(req.GetString("file_path", ""))
	changesJSON := req.GetString("changes", "")

	if filePath == "" {
		return mcp.NewToolResultError("'file_path' is required — the document to analyze, relative to the repository root"), nil
	}

	var changes []impact.ArtifactChange
	if err := json.Unmarshal([]byte(changesJSON), &changes); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf(
			"'changes' must be a JSON array like [{\"kind\": \"modified\", \"target_name\": \"enrollUser\"}]: %v", err)), nil
	}
	if len(changes) == 0 {
		return mcp.NewToolResultError("'changes' must describe at least one change"), nil
	}
	for i, c := range changes {
		if err := c.Validate(); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("changes[%d]: %v", i, err)), nil
		}
	}

	s, err := t.reg.BeginOperation(sessionID)
	if err != nil {
		return errorResult(err)
	}
	defer t.reg.EndOperation(s.ID)

	cfg, err := config.Load(s.RootPath)
	if err != nil {
		return errorResult(err)
	}

	abs, err := gitrepo.ResolveWithinRoot(s.RootPath, filePath)
	if err != nil {
		return errorResult(err)
	}
	rel, err := filepath.Rel(s.RootPath, abs)
	if err != nil {
		return nil, fmt.Errorf("relativizing %s: %w", abs, err)
	}
	rel = filepath.ToSlash(rel)

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

	report := impact.Analyze(doc, changes, cfg.ImpactThreshold)

	if len(report.Affected) == 0 {
		response := fmt.Sprintf(
			"# Impact Report\n\n"+
				"**File:** %s\n"+
				"**Changes analyzed:** %d\n\n"+
				"No sections appear stale: headings and machine-owned spans share "+
				"no terms with the change targets.",
			rel, len(changes),
		)
		return mcp.NewToolResultText(response), nil
	}

	var list strings.Builder
	for _, a := range report.Affected {
		fmt.Fprintf(&list, "- `%s` (%s) — %s\n", a.SectionID, a.Confidence, a.Reason)
	}

	response := fmt.Sprintf(
		"# Impact Report\n\n"+
			"**File:** %s\n"+
			"**Changes analyzed:** %d\n"+
			"**Affected sections:** %d\n\n"+
			"%s\n"+
			"## Next Step\n\n"+
			"Write fresh Markdown for the stale sections and call "+
			"`doc_update_sections` with an `updates` object keyed by these "+
			"section ids. Human-authored notes inside them survive the rewrite.",
		rel, len(changes), len(report.Affected), list.String(),
	)
	return mcp.NewToolResultText(response), nil
}
