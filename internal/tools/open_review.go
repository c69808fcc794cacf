package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/scribeworks/docsurgeon/internal/gitrepo"
	"github.com/scribeworks/docsurgeon/internal/review"
	"github.com/scribeworks/docsurgeon/internal/session"
)

// OpenReviewTool handles the doc_open_review MCP tool.
// It pushes the session's branch and opens a pull request against the
// trunk, reusing an already-open one instead of stacking duplicates.
type OpenReviewTool struct {
	reg     *session.Registry
	vcs     gitrepo.VCS
	reviews review.Client
}

// NewOpenReviewTool creates an OpenReviewTool.
func NewOpenReviewTool(reg *session.Registry, vcs gitrepo.VCS, reviews review.Client) *OpenReviewTool {
	return &OpenReviewTool{reg: reg, vcs: vcs, reviews: reviews}
}

// Definition returns the MCP tool definition for registration.
func (t *OpenReviewTool) Definition() mcp.Tool {
	return mcp.NewTool("doc_open_review",
		mcp.WithDescription(
			"Push the session's documentation branch and open a pull request "+
				"against the trunk via the GitHub CLI. Idempotent: an open pull "+
				"request for the same branch is returned instead of a duplicate. "+
				"Requires 'gh' to be installed and authenticated, and at least "+
				"one commit made through this session.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session from doc_session_start"),
		),
		mcp.WithString("title",
			mcp.Description("Pull request title. Defaults to 'docs: update <target file>'."),
		),
		mcp.WithString("body",
			mcp.Description("Pull request body in Markdown. A short default naming the branch is used when omitted."),
		),
	)
}

// Handle processes the doc_open_review tool call.
func (t *OpenReviewTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")
	title := strings.TrimSpace(req.GetString("title", ""))
	body := strings.TrimSpace(req.GetString("body", ""))

	s, err := t.reg.BeginOperation(sessionID)
	if err != nil {
		return errorResult(err)
	}
	defer t.reg.EndOperation(s.ID)

	if s.ActiveBranch == "" {
		return mcp.NewToolResultError(
			"session has no documentation branch yet — commit something with doc_write_document or doc_update_sections first"), nil
	}

	cfg, rc, err := loadRepo(ctx, t.vcs, s.RootPath)
	if err != nil {
		return errorResult(err)
	}

	vctx, cancel := context.WithTimeout(ctx, cfg.VCSTimeout())
	defer cancel()

	// Push and forge failures surface as tool errors: fixing the remote
	// or gh auth is on the operator's side, and the agent should relay
	// the message rather than crash the call.
	if err := t.vcs.Push(vctx, rc.RootPath, s.ActiveBranch); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("pushing %s: %v", s.ActiveBranch, err)), nil
	}

	if title == "" {
		if s.TargetFile != "" {
			title = fmt.Sprintf("docs: update %s", s.TargetFile)
		} else {
			title = fmt.Sprintf("docs: %s", s.ActiveBranch)
		}
	}
	if body == "" {
		body = fmt.Sprintf("Documentation changes on `%s`, written through docsurgeon session %s.", s.ActiveBranch, s.ID)
	}

	url, reused, err := review.OpenOrReuse(vctx, t.reviews, rc.RootPath, review.Request{
		Title: title,
		Body:  body,
		Head:  s.ActiveBranch,
		Base:  rc.TrunkBranch,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("opening pull request for %s: %v", s.ActiveBranch, err)), nil
	}

	state := "opened"
	if reused {
		state = "already open, reused"
	}

	response := fmt.Sprintf(
		"# Review Ready\n\n"+
			"**Pull request:** %s (%s)\n"+
			"**Branch:** `%s` → `%s`\n\n"+
			"## Next Step\n\n"+
			"Review and merge on the forge. Further doc_update_sections calls "+
			"in this session keep landing on the same branch and pull request; "+
			"call `doc_session_end` when the work is done.",
		url, state, s.ActiveBranch, rc.TrunkBranch,
	)
	return mcp.NewToolResultText(response), nil
}
