package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/scribeworks/docsurgeon/internal/gitrepo"
	"github.com/scribeworks/docsurgeon/internal/session"
)

// SelectBranchTool handles the doc_select_branch MCP tool.
// It puts the session's worktree on a writable branch: an explicitly
// requested one, or a dated branch derived from the document name.
type SelectBranchTool struct {
	reg *session.Registry
	vcs gitrepo.VCS
}

// NewSelectBranchTool creates a SelectBranchTool.
func NewSelectBranchTool(reg *session.Registry, vcs gitrepo.VCS) *SelectBranchTool {
	return &SelectBranchTool{reg: reg, vcs: vcs}
}

// Definition returns the MCP tool definition for registration.
func (t *SelectBranchTool) Definition() mcp.Tool {
	return mcp.NewTool("doc_select_branch",
		mcp.WithDescription(
			"Select or create the branch this session writes documentation to. "+
				"Without 'branch', a name like 'docs/<file>-<date>' is derived and "+
				"branched off the trunk. The trunk and the configured protected "+
				"branches are always refused. Switching preserves uncommitted "+
				"changes in the worktree.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session from doc_session_start"),
		),
		mcp.WithString("branch",
			mcp.Description("Branch to write on. An existing branch is switched to; a missing one is created off the trunk when 'create' is true."),
		),
		mcp.WithBoolean("create",
			mcp.Description("Create the requested branch off the trunk when it does not exist (default true)"),
		),
		mcp.WithString("file_path",
			mcp.Description("Document path used to derive the branch name when 'branch' is omitted, e.g. 'docs/enrollment.md' derives 'docs/enrollment-20260823'"),
		),
	)
}

// Handle processes the doc_select_branch tool call.
func (t *SelectBranchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	branch := strings.TrimSpace(req.GetString("branch", ""))
	create := boolArg(req, "create", true)
	filePath := strings.TrimSpace(req.GetString("file_path", ""))

	s, err := t.reg.BeginOperation(sessionID)
	if err != nil {
		return errorResult(err)
	}
	defer t.reg.EndOperation(s.ID)

	cfg, rc, err := loadRepo(ctx, t.vcs, s.RootPath)
	if err != nil {
		return errorResult(err)
	}

	slugSource := filePath
	if slugSource == "" {
		slugSource = s.TargetFile
	}

	vctx, cancel := context.WithTimeout(ctx, cfg.VCSTimeout())
	defer cancel()
	name, created, err := gitrepo.EnsureWritableBranch(vctx, t.vcs, rc, gitrepo.BranchRequest{
		Requested:     branch,
		FileSlug:      slugFromFile(slugSource),
		Prefix:        cfg.BranchPrefix,
		CreateMissing: create,
		IsProtected:   protectedBy(cfg, rc),
	})
	if err != nil {
		return errorResult(err)
	}

	if _, err := t.reg.SetActiveBranch(s.ID, name); err != nil {
		return errorResult(err)
	}
	if filePath != "" {
		if _, err := t.reg.SetTargetFile(s.ID, filePath); err != nil {
			return errorResult(err)
		}
	}

	action := "switched to existing branch"
	if created {
		action = fmt.Sprintf("created off %s", rc.TrunkBranch)
	}

	response := fmt.Sprintf(
		"# Branch Selected\n\n"+
			"**Branch:** `%s` (%s)\n\n"+
			"## Next Step\n\n"+
			"Call `doc_write_document` to create a new file, or "+
			"`doc_update_sections` to rewrite machine-owned sections of an "+
			"existing one. Commits land on this branch.",
		name, action,
	)
	return mcp.NewToolResultText(response), nil
}
