package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/scribeworks/docsurgeon/internal/config"
	"github.com/scribeworks/docsurgeon/internal/gitrepo"
	"github.com/scribeworks/docsurgeon/internal/session"
)

// SessionStartTool handles the doc_session_start MCP tool.
// It discovers the repository around repo_path, loads its config and
// opens the caller's exclusive documentation session.
type SessionStartTool struct {
	reg *session.Registry
	vcs gitrepo.VCS
}

// NewSessionStartTool creates a SessionStartTool.
func NewSessionStartTool(reg *session.Registry, vcs gitrepo.VCS) *SessionStartTool {
	return &SessionStartTool{reg: reg, vcs: vcs}
}

// Definition returns the MCP tool definition for registration.
func (t *SessionStartTool) Definition() mcp.Tool {
	return mcp.NewTool("doc_session_start",
		mcp.WithDescription(
			"Open a documentation session on a git repository. "+
				"Discovers the repository containing repo_path, reads its optional "+
				".docsurgeon.yaml and returns the session_id every other doc_* tool "+
				"requires. One session per caller per repository; call "+
				"doc_session_end when the work is done.",
		),
		mcp.WithString("repo_path",
			mcp.Required(),
			mcp.Description("Any path inside the target repository. The repository root is discovered upward from here, like git itself does."),
		),
		mcp.WithString("caller_id",
			mcp.Required(),
			mcp.Description("Stable identifier of the calling agent, e.g. 'refactor-agent'. Two sessions with the same caller_id on the same repository conflict."),
		),
	)
}

// Handle processes the doc_session_start tool call.
func (t *SessionStartTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repoPath := strings.TrimSpace(req.GetString("repo_path", ""))
	callerID := strings.TrimSpace(req.GetString("caller_id", ""))

	if repoPath == "" {
		return mcp.NewToolResultError("'repo_path' is required — any path inside the target repository"), nil
	}
	if callerID == "" {
		return mcp.NewToolResultError("'caller_id' is required — a stable identifier for the calling agent"), nil
	}

	// Root discovery runs before the repo's config can be read, so it
	// gets the default timeout.
	fctx, cancel := context.WithTimeout(ctx, config.Default().VCSTimeout())
	root, err := t.vcs.FindRoot(fctx, repoPath)
	cancel()
	if err != nil {
		return errorResult(err)
	}

	cfg, rc, err := loadRepo(ctx, t.vcs, root)
	if err != nil {
		return errorResult(err)
	}

	s, err := t.reg.Start(callerID, rc.RootPath)
	if err != nil {
		return errorResult(err)
	}

	current := rc.CurrentBranch
	if current == "" {
		current = "(detached HEAD)"
	}
	state := "clean"
	if !rc.IsClean {
		state = "has uncommitted changes"
	}

	response := fmt.Sprintf(
		"# Session Started\n\n"+
			"**Session:** `%s`\n"+
			"**Repository:** %s\n"+
			"**Current branch:** %s\n"+
			"**Trunk:** %s (protected)\n"+
			"**Worktree:** %s\n\n"+
			"## Next Step\n\n"+
			"Call `doc_select_branch` to pick or create a documentation branch "+
			"before writing — writes are refused while the repository sits on "+
			"`%s`. Omit the branch argument to get a derived `%s<file>-<date>` "+
			"name.",
		s.ID, rc.RootPath, current, rc.TrunkBranch, state, rc.TrunkBranch, cfg.BranchPrefix,
	)
	return mcp.NewToolResultText(response), nil
}
