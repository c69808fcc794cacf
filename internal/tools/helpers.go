// Package tools implements the MCP tool handlers for the
// documentation engine.
//
// Each tool lives in its own file as a struct whose dependencies
// (session registry, VCS, review client) are injected via constructor,
// so handlers are tested against fakes. Handlers classify failures two
// ways: anything the caller can fix (bad arguments, protected branch,
// session conflicts, malformed documents) comes back as a tool result
// error; infrastructure failures are returned as wrapped Go errors.
package tools

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/scribeworks/docsurgeon/internal/config"
	"github.com/scribeworks/docsurgeon/internal/document"
	"github.com/scribeworks/docsurgeon/internal/gitrepo"
	"github.com/scribeworks/docsurgeon/internal/session"
)

// callerErrors are the failures the calling agent can act on; they
// become tool result errors instead of protocol errors.
var callerErrors = []error{
	gitrepo.ErrRepositoryNotFound,
	gitrepo.ErrAmbiguousTrunk,
	gitrepo.ErrBranchNotFound,
	gitrepo.ErrProtectedBranch,
	gitrepo.ErrNothingToCommit,
	gitrepo.ErrVCSTimeout,
	gitrepo.ErrPathEscapesRepo,
	session.ErrSessionNotFound,
	session.ErrSessionConflict,
	session.ErrSessionBusy,
	document.ErrMalformedMarker,
	document.ErrSectionNotFound,
	document.ErrRoundTrip,
	config.ErrInvalidConfig,
}

// errorResult turns a domain error into a caller-facing tool result,
// or passes an unexpected failure up as a protocol error.
func errorResult(err error) (*mcp.CallToolResult, error) {
	for _, target := range callerErrors {
		if errors.Is(err, target) {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	return nil, err
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// slugFromFile derives a branch-name slug from a document path:
// "docs/Enrollment Service.md" -> "enrollment-service". Empty input
// stays empty so branch derivation can fall back to its default.
func slugFromFile(path string) string {
	if path == "" {
		return ""
	}
	base := filepath.Base(filepath.FromSlash(path))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return document.Slugify(base)
}

// loadRepo reads the repository's config and re-resolves its context.
// Called at the top of every repository-touching handler; snapshots
// from earlier calls are never trusted.
func loadRepo(ctx context.Context, vcs gitrepo.VCS, root string) (*config.Config, *gitrepo.Context, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, err
	}

	tctx, cancel := context.WithTimeout(ctx, cfg.VCSTimeout())
	defer cancel()
	rc, err := vcs.Resolve(tctx, root, cfg.TrunkBranch)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rc, nil
}

// protectedBy builds the protection predicate for one resolved
// repository: its trunk plus the configured protected list.
func protectedBy(cfg *config.Config, rc *gitrepo.Context) func(string) bool {
	return func(name string) bool {
		return cfg.IsProtected(name, rc.TrunkBranch)
	}
}

// ensureActiveBranch puts the worktree on the session's writable
// branch. A session that never called doc_select_branch writes to the
// branch it is already on, unless that branch is protected: a write
// aimed at the trunk is a hard stop, never a silent redirect, so the
// violation stays visible to the caller. The guard is re-checked here
// on every write path.
func ensureActiveBranch(ctx context.Context, vcs gitrepo.VCS, reg *session.Registry, s session.Session, cfg *config.Config, rc *gitrepo.Context) (string, error) {
	isProtected := protectedBy(cfg, rc)

	if s.ActiveBranch != "" {
		if isProtected(s.ActiveBranch) {
			return "", fmt.Errorf("%w: %s", gitrepo.ErrProtectedBranch, s.ActiveBranch)
		}
		if rc.CurrentBranch != s.ActiveBranch {
			if err := vcs.SwitchBranch(ctx, rc.RootPath, s.ActiveBranch); err != nil {
				return "", err
			}
		}
		return s.ActiveBranch, nil
	}

	if rc.CurrentBranch == "" {
		return "", fmt.Errorf("%w: HEAD is detached (select a documentation branch with doc_select_branch)", gitrepo.ErrBranchNotFound)
	}
	if isProtected(rc.CurrentBranch) {
		return "", fmt.Errorf("%w: %s (select a documentation branch with doc_select_branch first)", gitrepo.ErrProtectedBranch, rc.CurrentBranch)
	}
	if _, err := reg.SetActiveBranch(s.ID, rc.CurrentBranch); err != nil {
		return "", err
	}
	return rc.CurrentBranch, nil
}

// commitAuthor builds the commit identity from config.
func commitAuthor(cfg *config.Config) gitrepo.Author {
	return gitrepo.Author{Name: cfg.CommitAuthorName, Email: cfg.CommitAuthorEmail}
}

// shortHash abbreviates a commit hash for display.
func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
