// Package gitrepo resolves repository context and performs the few
// git operations the documentation engine needs: finding the root and
// trunk, moving to a writable branch, committing document files, and
// pushing a branch for review.
//
// The VCS interface exists so tool handlers can be tested against a
// fake; GoGit is the real implementation. All mutating operations
// stay inside the repository the caller named, never on its trunk.
package gitrepo

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Context describes a resolved repository at one point in time.
type Context struct {
	// RootPath is the absolute path of the worktree root.
	RootPath string

	// CurrentBranch is the checked-out branch name, empty on a
	// detached HEAD.
	CurrentBranch string

	// TrunkBranch is the resolved trunk (configured override, a lone
	// main/master, or the remote HEAD target).
	TrunkBranch string

	// IsClean reports whether the worktree had no uncommitted changes
	// at resolution time.
	IsClean bool
}

// Author identifies the committer of documentation changes.
type Author struct {
	Name  string
	Email string
}

// VCS is the slice of version control the engine relies on.
type VCS interface {
	// FindRoot locates the worktree root of the repository containing
	// path, without touching refs. Lets callers read root-level config
	// before full resolution.
	FindRoot(ctx context.Context, path string) (string, error)

	// Resolve locates the repository containing path and determines
	// its trunk. configuredTrunk, when non-empty, overrides detection
	// but must name an existing branch.
	Resolve(ctx context.Context, path, configuredTrunk string) (*Context, error)

	// BranchExists reports whether a local branch exists.
	BranchExists(ctx context.Context, root, name string) (bool, error)

	// CreateBranch creates name starting at the tip of from and
	// switches the worktree to it, carrying uncommitted changes along.
	CreateBranch(ctx context.Context, root, name, from string) error

	// SwitchBranch checks out an existing branch, carrying uncommitted
	// changes along.
	SwitchBranch(ctx context.Context, root, name string) error

	// Commit stages the given worktree-relative paths and commits
	// them, returning the commit hash. ErrNothingToCommit when the
	// paths hold no changes.
	Commit(ctx context.Context, root string, paths []string, message string, author Author) (string, error)

	// Push sends a branch to the origin remote. Already up to date is
	// not an error.
	Push(ctx context.Context, root, branch string) error
}

// ResolveWithinRoot joins a caller-supplied relative path onto the
// repository root, rejecting anything that climbs out of it.
func ResolveWithinRoot(root, rel string) (string, error) {
	if rel == "" {
		return "", fmt.Errorf("document path is empty")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %s is absolute", ErrPathEscapesRepo, rel)
	}
	abs := filepath.Join(root, filepath.FromSlash(rel))
	relBack, err := filepath.Rel(root, abs)
	if err != nil {
		return "", err
	}
	if relBack == "." || strings.HasPrefix(relBack, "..") {
		return "", fmt.Errorf("%w: %s", ErrPathEscapesRepo, rel)
	}
	return abs, nil
}

// BuildCommitMessage renders the conventional documentation commit
// message with a session trailer, so a reviewer can trace any commit
// back to the session that produced it.
func BuildCommitMessage(summary, sessionID string) string {
	return fmt.Sprintf("docs: %s\n\nDocsurgeon-Session: %s\n", summary, sessionID)
}
