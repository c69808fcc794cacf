package gitrepo

import (
	"context"
	"fmt"
)

// BranchRequest describes where documentation writes should land.
type BranchRequest struct {
	// Requested is the caller's branch choice. Empty means derive one.
	Requested string

	// FileSlug seeds the derived branch name, typically the slug of
	// the target document's file name.
	FileSlug string

	// Prefix is prepended to derived names, e.g. "docs/".
	Prefix string

	// CreateMissing allows creating a requested branch that does not
	// exist yet. Derived branches are always created.
	CreateMissing bool

	// IsProtected reports whether a branch must never be written to.
	IsProtected func(name string) bool
}

// EnsureWritableBranch moves the worktree onto a branch that may
// receive documentation commits, creating it from the trunk when
// needed. It returns the branch name and whether it was created.
//
// A requested branch is taken as-is: protected names are refused,
// missing ones are an error unless CreateMissing is set. With no
// request, a fresh name is derived as <prefix><slug>-<yyyymmdd>,
// suffixed with a counter until it is unused.
func EnsureWritableBranch(ctx context.Context, vcs VCS, rc *Context, req BranchRequest) (string, bool, error) {
	if req.IsProtected == nil {
		req.IsProtected = func(string) bool { return false }
	}
	if req.Requested != "" {
		return ensureRequested(ctx, vcs, rc, req)
	}

	slug := req.FileSlug
	if slug == "" {
		slug = "doc"
	}
	base := fmt.Sprintf("%s%s-%s", req.Prefix, slug, timeNow().Format("20060102"))

	name := base
	for n := 2; ; n++ {
		exists, err := vcs.BranchExists(ctx, rc.RootPath, name)
		if err != nil {
			return "", false, err
		}
		if !exists {
			break
		}
		name = fmt.Sprintf("%s-%d", base, n)
	}

	if req.IsProtected(name) {
		return "", false, fmt.Errorf("%w: derived name %s, adjust branch_prefix", ErrProtectedBranch, name)
	}
	if err := vcs.CreateBranch(ctx, rc.RootPath, name, rc.TrunkBranch); err != nil {
		return "", false, err
	}
	return name, true, nil
}

func ensureRequested(ctx context.Context, vcs VCS, rc *Context, req BranchRequest) (string, bool, error) {
	if req.IsProtected(req.Requested) {
		return "", false, fmt.Errorf("%w: %s", ErrProtectedBranch, req.Requested)
	}

	exists, err := vcs.BranchExists(ctx, rc.RootPath, req.Requested)
	if err != nil {
		return "", false, err
	}
	if exists {
		if err := vcs.SwitchBranch(ctx, rc.RootPath, req.Requested); err != nil {
			return "", false, err
		}
		return req.Requested, false, nil
	}

	if !req.CreateMissing {
		return "", false, fmt.Errorf("%w: %s (set create to branch it off %s)", ErrBranchNotFound, req.Requested, rc.TrunkBranch)
	}
	if err := vcs.CreateBranch(ctx, rc.RootPath, req.Requested, rc.TrunkBranch); err != nil {
		return "", false, err
	}
	return req.Requested, true, nil
}
