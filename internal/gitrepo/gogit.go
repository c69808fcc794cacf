package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GoGit implements VCS on top of go-git. It is stateless: every call
// opens the repository fresh, so one value serves any number of
// repositories concurrently.
type GoGit struct{}

func (GoGit) FindRoot(ctx context.Context, path string) (string, error) {
	repo, err := openRepo(path)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("resolving worktree: %w", err)
	}
	return wt.Filesystem.Root(), nil
}

func (GoGit) Resolve(ctx context.Context, path, configuredTrunk string) (*Context, error) {
	repo, err := openRepo(path)
	if err != nil {
		return nil, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("resolving worktree: %w", err)
	}

	rc := &Context{RootPath: wt.Filesystem.Root()}

	// Read HEAD unresolved so an unborn branch still yields its name.
	if ref, err := repo.Reference(plumbing.HEAD, false); err == nil && ref.Type() == plumbing.SymbolicReference {
		rc.CurrentBranch = ref.Target().Short()
	}

	trunk, err := detectTrunk(repo, configuredTrunk)
	if err != nil {
		return nil, err
	}
	rc.TrunkBranch = trunk

	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading worktree status: %w", err)
	}
	rc.IsClean = status.IsClean()

	return rc, nil
}

func (GoGit) BranchExists(ctx context.Context, root, name string) (bool, error) {
	repo, err := openRepo(root)
	if err != nil {
		return false, err
	}
	return localBranchExists(repo, name), nil
}

func (GoGit) CreateBranch(ctx context.Context, root, name, from string) error {
	repo, err := openRepo(root)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("resolving worktree: %w", err)
	}

	hash, err := branchTip(repo, from)
	if err != nil {
		return err
	}

	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Hash:   hash,
		Create: true,
		Keep:   true,
	})
	if err != nil {
		return fmt.Errorf("creating branch %s from %s: %w", name, from, err)
	}
	return nil
}

func (GoGit) SwitchBranch(ctx context.Context, root, name string) error {
	repo, err := openRepo(root)
	if err != nil {
		return err
	}
	if !localBranchExists(repo, name) {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, name)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("resolving worktree: %w", err)
	}

	err = wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Keep:   true,
	})
	if err != nil {
		return fmt.Errorf("switching to branch %s: %w", name, err)
	}
	return nil
}

func (GoGit) Commit(ctx context.Context, root string, paths []string, message string, author Author) (string, error) {
	repo, err := openRepo(root)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("resolving worktree: %w", err)
	}

	for _, p := range paths {
		if _, err := wt.Add(filepath.ToSlash(p)); err != nil {
			return "", fmt.Errorf("staging %s: %w", p, err)
		}
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author.Name,
			Email: author.Email,
			When:  time.Now(),
		},
	})
	if err != nil {
		if errors.Is(err, git.ErrEmptyCommit) {
			return "", fmt.Errorf("%w: %s unchanged", ErrNothingToCommit, strings.Join(paths, ", "))
		}
		return "", fmt.Errorf("committing: %w", err)
	}
	return hash.String(), nil
}

func (GoGit) Push(ctx context.Context, root, branch string) error {
	repo, err := openRepo(root)
	if err != nil {
		return err
	}

	refspec := gitconfig.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []gitconfig.RefSpec{refspec},
	})
	switch {
	case err == nil, errors.Is(err, git.NoErrAlreadyUpToDate):
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: pushing %s", ErrVCSTimeout, branch)
	default:
		return fmt.Errorf("pushing %s: %w", branch, err)
	}
}

func openRepo(path string) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: searched upward from %s", ErrRepositoryNotFound, path)
		}
		return nil, fmt.Errorf("opening repository: %w", err)
	}
	return repo, nil
}

// detectTrunk picks the trunk branch: the configured override when
// set, a lone local main or master, then the origin HEAD target.
func detectTrunk(repo *git.Repository, configured string) (string, error) {
	if configured != "" {
		if !localBranchExists(repo, configured) && !remoteBranchExists(repo, configured) {
			return "", fmt.Errorf("%w: configured trunk %q", ErrBranchNotFound, configured)
		}
		return configured, nil
	}

	hasMain := localBranchExists(repo, "main")
	hasMaster := localBranchExists(repo, "master")
	switch {
	case hasMain && hasMaster:
		return "", fmt.Errorf("%w: both main and master exist, set trunk_branch in .docsurgeon.yaml", ErrAmbiguousTrunk)
	case hasMain:
		return "main", nil
	case hasMaster:
		return "master", nil
	}

	if ref, err := repo.Reference(plumbing.NewRemoteHEADReferenceName("origin"), false); err == nil && ref.Type() == plumbing.SymbolicReference {
		return strings.TrimPrefix(ref.Target().Short(), "origin/"), nil
	}

	return "", fmt.Errorf("%w: no main or master branch and no origin HEAD, set trunk_branch in .docsurgeon.yaml", ErrAmbiguousTrunk)
}

func localBranchExists(repo *git.Repository, name string) bool {
	_, err := repo.Reference(plumbing.NewBranchReferenceName(name), true)
	return err == nil
}

func remoteBranchExists(repo *git.Repository, name string) bool {
	_, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", name), true)
	return err == nil
}

// branchTip resolves the tip of a branch, falling back to its
// origin remote-tracking ref for repositories cloned with a single
// local branch.
func branchTip(repo *git.Repository, name string) (plumbing.Hash, error) {
	if ref, err := repo.Reference(plumbing.NewBranchReferenceName(name), true); err == nil {
		return ref.Hash(), nil
	}
	if ref, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", name), true); err == nil {
		return ref.Hash(), nil
	}
	return plumbing.ZeroHash, fmt.Errorf("%w: %s", ErrBranchNotFound, name)
}
