package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/scribeworks/docsurgeon/internal/session"
)

// SessionStatusTool handles the doc_session_status MCP tool.
// Read-only: it does not take the operation lock and does not refresh
// the idle clock, so polling never keeps a dead session alive.
type SessionStatusTool struct {
	reg *session.Registry
}

// NewSessionStatusTool creates a SessionStatusTool.
func NewSessionStatusTool(reg *session.Registry) *SessionStatusTool {
	return &SessionStatusTool{reg: reg}
}

// Definition returns the MCP tool definition for registration.
func (t *SessionStatusTool) Definition() mcp.Tool {
	return mcp.NewTool("doc_session_status",
		mcp.WithDescription(
			"Inspect a documentation session: repository, selected branch, "+
				"target document and timing. Useful after a long pause to check "+
				"whether the session idled out before resuming work.",
		),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session from doc_session_start"),
		),
	)
}

// Handle processes the doc_session_status tool call.
func (t *SessionStatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID := req.GetString("session_id", "")

	s, err := t.reg.Get(sessionID)
	if err != nil {
		return errorResult(err)
	}

	branch := s.ActiveBranch
	if branch == "" {
		branch = "(none selected)"
	}
	target := s.TargetFile
	if target == "" {
		target = "(none)"
	}

	response := fmt.Sprintf(
		"# Session Status\n\n"+
			"**Session:** `%s`\n"+
			"**Caller:** %s\n"+
			"**Repository:** %s\n"+
			"**Branch:** `%s`\n"+
			"**Target file:** %s\n"+
			"**Started:** %s\n"+
			"**Last activity:** %s\n",
		s.ID, s.CallerID, s.RootPath, branch, target,
		s.StartedAt.Format(time.RFC3339), s.LastTouched.Format(time.RFC3339),
	)
	return mcp.NewToolResultText(response), nil
}
