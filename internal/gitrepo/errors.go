package gitrepo

import "errors"

var (
	// ErrRepositoryNotFound means no .git directory was found at or
	// above the given path.
	ErrRepositoryNotFound = errors.New("no git repository found")

	// ErrAmbiguousTrunk means trunk detection could not settle on a
	// single branch and no override is configured.
	ErrAmbiguousTrunk = errors.New("cannot determine trunk branch")

	// ErrBranchNotFound means a branch named by the caller or the
	// config does not exist.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrProtectedBranch means a write would have landed on the trunk
	// or another protected branch.
	ErrProtectedBranch = errors.New("branch is protected from documentation writes")

	// ErrNothingToCommit means the worktree had no staged changes for
	// the requested paths.
	ErrNothingToCommit = errors.New("no changes to commit")

	// ErrVCSTimeout means a git operation exceeded its deadline.
	ErrVCSTimeout = errors.New("git operation timed out")

	// ErrPathEscapesRepo means a document path resolved outside the
	// repository root.
	ErrPathEscapesRepo = errors.New("path escapes repository root")
)
