package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/scribeworks/docsurgeon/internal/session"
)

// SessionEndTool handles the doc_session_end MCP tool.
type SessionEndTool struct {
	reg *session.Registry
}

// NewSessionEndTool creates a SessionEndTool.
func NewSessionEndTool(reg *session.Registry) *SessionEndTool {
	return &SessionEndTool{reg: reg}
}

// Definition returns the MCP tool definition for registration.
func (t *SessionEndTool) Definition() mcp.Tool {
	return mcp.NewTool("doc_session_end",
		mcp.WithDescription(
			"Close a documentation session and release its repository lease so "+
				"the caller can start a fresh one. Commits and branches created "+
				"during the session are untouched. Idle sessions expire on their "+
				"own, so ending is polite rather than mandatory.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session from doc_session_start"),
		),
	)
}

// Handle processes the doc_session_end tool call.
func (t *SessionEndTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")

	// BeginOperation first so an in-flight write is not yanked away
	// mid-commit; EndOperation on the removed session is a no-op.
	s, err := t.reg.BeginOperation(sessionID)
	if err != nil {
		return errorResult(err)
	}
	defer t.reg.EndOperation(s.ID)

	if _, err := t.reg.End(s.ID); err != nil {
		return errorResult(err)
	}

	branch := s.ActiveBranch
	if branch == "" {
		branch = "(none selected)"
	}

	response := fmt.Sprintf(
		"# Session Ended\n\n"+
			"**Session:** `%s`\n"+
			"**Repository:** %s\n"+
			"**Branch:** `%s`\n\n"+
			"The repository lease is released. Commits stay on the branch; "+
			"merge them through the pull request, or start a new session to "+
			"keep editing.",
		s.ID, s.RootPath, branch,
	)
	return mcp.NewToolResultText(response), nil
}
