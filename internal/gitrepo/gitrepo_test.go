package gitrepo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// initRepo creates a repository with one commit on the default branch
// (go-git initializes repositories on master).
func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit failed: %v", err)
	}
	commitFile(t, repo, dir, "README.md", "# Readme\n", "initial commit")
	return dir, repo
}

func commitFile(t *testing.T, repo *git.Repository, dir, name, content, msg string) plumbing.Hash {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree failed: %v", err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	return hash
}

func makeBranch(t *testing.T, repo *git.Repository, name string) {
	t.Helper()
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), head.Hash())
	if err := repo.Storer.SetReference(ref); err != nil {
		t.Fatalf("SetReference failed: %v", err)
	}
}

func currentBranch(t *testing.T, repo *git.Repository) string {
	t.Helper()
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	return head.Name().Short()
}

func samePath(t *testing.T, a, b string) bool {
	t.Helper()
	ra, err := filepath.EvalSymlinks(a)
	if err != nil {
		t.Fatalf("EvalSymlinks(%s) failed: %v", a, err)
	}
	rb, err := filepath.EvalSymlinks(b)
	if err != nil {
		t.Fatalf("EvalSymlinks(%s) failed: %v", b, err)
	}
	return ra == rb
}

// --- Resolve ---

func TestResolveFromSubdirectory(t *testing.T) {
	dir, _ := initRepo(t)
	sub := filepath.Join(dir, "docs", "deep")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	rc, err := GoGit{}.Resolve(context.Background(), sub, "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !samePath(t, rc.RootPath, dir) {
		t.Errorf("RootPath = %s, want %s", rc.RootPath, dir)
	}
	if rc.CurrentBranch != "master" {
		t.Errorf("CurrentBranch = %q, want master", rc.CurrentBranch)
	}
	if rc.TrunkBranch != "master" {
		t.Errorf("TrunkBranch = %q, want master", rc.TrunkBranch)
	}
	if !rc.IsClean {
		t.Error("IsClean = false for a freshly committed repo")
	}
}

func TestResolveNotARepository(t *testing.T) {
	_, err := GoGit{}.Resolve(context.Background(), t.TempDir(), "")
	if !errors.Is(err, ErrRepositoryNotFound) {
		t.Errorf("err = %v, want ErrRepositoryNotFound", err)
	}
}

func TestFindRoot(t *testing.T) {
	dir, _ := initRepo(t)
	sub := filepath.Join(dir, "docs")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	root, err := GoGit{}.FindRoot(context.Background(), sub)
	if err != nil {
		t.Fatalf("FindRoot failed: %v", err)
	}
	if !samePath(t, root, dir) {
		t.Errorf("root = %s, want %s", root, dir)
	}

	if _, err := (GoGit{}).FindRoot(context.Background(), t.TempDir()); !errors.Is(err, ErrRepositoryNotFound) {
		t.Errorf("err = %v, want ErrRepositoryNotFound", err)
	}
}

func TestResolveDirtyWorktree(t *testing.T) {
	dir, _ := initRepo(t)
	if err := os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("wip"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	rc, err := GoGit{}.Resolve(context.Background(), dir, "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if rc.IsClean {
		t.Error("IsClean = true with an untracked file present")
	}
}

func TestResolveConfiguredTrunk(t *testing.T) {
	dir, repo := initRepo(t)
	makeBranch(t, repo, "develop")

	rc, err := GoGit{}.Resolve(context.Background(), dir, "develop")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if rc.TrunkBranch != "develop" {
		t.Errorf("TrunkBranch = %q, want develop", rc.TrunkBranch)
	}
}

func TestResolveConfiguredTrunkMissing(t *testing.T) {
	dir, _ := initRepo(t)

	_, err := GoGit{}.Resolve(context.Background(), dir, "no-such-branch")
	if !errors.Is(err, ErrBranchNotFound) {
		t.Errorf("err = %v, want ErrBranchNotFound", err)
	}
}

func TestResolveAmbiguousTrunk(t *testing.T) {
	dir, repo := initRepo(t)
	makeBranch(t, repo, "main") // master already exists

	_, err := GoGit{}.Resolve(context.Background(), dir, "")
	if !errors.Is(err, ErrAmbiguousTrunk) {
		t.Errorf("err = %v, want ErrAmbiguousTrunk", err)
	}
}

func TestResolveTrunkFromOriginHead(t *testing.T) {
	dir, repo := initRepo(t)

	// Rename the only branch away from the well-known defaults, then
	// point origin/HEAD at its remote-tracking ref.
	head, err := repo.Head()
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	trunkRef := plumbing.NewBranchReferenceName("trunk")
	if err := repo.Storer.SetReference(plumbing.NewHashReference(trunkRef, head.Hash())); err != nil {
		t.Fatalf("SetReference failed: %v", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, trunkRef)); err != nil {
		t.Fatalf("SetReference failed: %v", err)
	}
	if err := repo.Storer.RemoveReference(plumbing.NewBranchReferenceName("master")); err != nil {
		t.Fatalf("RemoveReference failed: %v", err)
	}
	remoteTrunk := plumbing.NewRemoteReferenceName("origin", "trunk")
	if err := repo.Storer.SetReference(plumbing.NewHashReference(remoteTrunk, head.Hash())); err != nil {
		t.Fatalf("SetReference failed: %v", err)
	}
	originHead := plumbing.NewRemoteHEADReferenceName("origin")
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(originHead, remoteTrunk)); err != nil {
		t.Fatalf("SetReference failed: %v", err)
	}

	rc, err := GoGit{}.Resolve(context.Background(), dir, "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if rc.TrunkBranch != "trunk" {
		t.Errorf("TrunkBranch = %q, want trunk", rc.TrunkBranch)
	}
}

// --- Branch operations ---

func TestBranchExists(t *testing.T) {
	dir, repo := initRepo(t)
	ctx := context.Background()

	exists, err := GoGit{}.BranchExists(ctx, dir, "docs/x")
	if err != nil || exists {
		t.Errorf("BranchExists(docs/x) = %v, %v; want false, nil", exists, err)
	}

	makeBranch(t, repo, "docs/x")
	exists, err = GoGit{}.BranchExists(ctx, dir, "docs/x")
	if err != nil || !exists {
		t.Errorf("BranchExists(docs/x) = %v, %v; want true, nil", exists, err)
	}
}

func TestCreateBranchSwitchesAndKeepsChanges(t *testing.T) {
	dir, repo := initRepo(t)

	// Uncommitted edit must survive the branch switch.
	readme := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readme, []byte("# Readme\n\nedited\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := (GoGit{}).CreateBranch(context.Background(), dir, "docs/update", "master"); err != nil {
		t.Fatalf("CreateBranch failed: %v", err)
	}

	if got := currentBranch(t, repo); got != "docs/update" {
		t.Errorf("current branch = %q, want docs/update", got)
	}
	data, err := os.ReadFile(readme)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "edited") {
		t.Error("uncommitted edit lost during branch creation")
	}
}

func TestCreateBranchMissingBase(t *testing.T) {
	dir, _ := initRepo(t)

	err := GoGit{}.CreateBranch(context.Background(), dir, "docs/x", "no-such-base")
	if !errors.Is(err, ErrBranchNotFound) {
		t.Errorf("err = %v, want ErrBranchNotFound", err)
	}
}

func TestCreateBranchFromRemoteTrackingBase(t *testing.T) {
	dir, repo := initRepo(t)

	head, err := repo.Head()
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	remoteRef := plumbing.NewRemoteReferenceName("origin", "develop")
	if err := repo.Storer.SetReference(plumbing.NewHashReference(remoteRef, head.Hash())); err != nil {
		t.Fatalf("SetReference failed: %v", err)
	}

	if err := (GoGit{}).CreateBranch(context.Background(), dir, "docs/x", "develop"); err != nil {
		t.Errorf("CreateBranch from remote-tracking base failed: %v", err)
	}
}

func TestSwitchBranch(t *testing.T) {
	dir, repo := initRepo(t)
	makeBranch(t, repo, "docs/existing")

	if err := (GoGit{}).SwitchBranch(context.Background(), dir, "docs/existing"); err != nil {
		t.Fatalf("SwitchBranch failed: %v", err)
	}
	if got := currentBranch(t, repo); got != "docs/existing" {
		t.Errorf("current branch = %q, want docs/existing", got)
	}

	err := GoGit{}.SwitchBranch(context.Background(), dir, "docs/missing")
	if !errors.Is(err, ErrBranchNotFound) {
		t.Errorf("err = %v, want ErrBranchNotFound", err)
	}
}

// --- Commit ---

func TestCommitCreatesCommitWithAuthor(t *testing.T) {
	dir, repo := initRepo(t)

	path := filepath.Join(dir, "docs", "guide.md")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(path, []byte("# Guide\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	msg := BuildCommitMessage("update guide", "sess-1")
	hashStr, err := GoGit{}.Commit(context.Background(), dir, []string{"docs/guide.md"}, msg, Author{Name: "docsurgeon", Email: "docsurgeon@localhost"})
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	commit, err := repo.CommitObject(plumbing.NewHash(hashStr))
	if err != nil {
		t.Fatalf("CommitObject failed: %v", err)
	}
	if commit.Message != msg {
		t.Errorf("message = %q, want %q", commit.Message, msg)
	}
	if commit.Author.Name != "docsurgeon" || commit.Author.Email != "docsurgeon@localhost" {
		t.Errorf("author = %s <%s>", commit.Author.Name, commit.Author.Email)
	}
}

func TestCommitNothingToCommit(t *testing.T) {
	dir, _ := initRepo(t)

	_, err := GoGit{}.Commit(context.Background(), dir, []string{"README.md"}, "docs: noop", Author{Name: "t", Email: "t@t"})
	if !errors.Is(err, ErrNothingToCommit) {
		t.Errorf("err = %v, want ErrNothingToCommit", err)
	}
}

// --- Push ---

func TestPushToLocalRemote(t *testing.T) {
	dir, repo := initRepo(t)

	bare := t.TempDir()
	if _, err := git.PlainInit(bare, true); err != nil {
		t.Fatalf("PlainInit bare failed: %v", err)
	}
	_, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{bare}})
	if err != nil {
		t.Fatalf("CreateRemote failed: %v", err)
	}

	ctx := context.Background()
	if err := (GoGit{}).Push(ctx, dir, "master"); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	bareRepo, err := git.PlainOpen(bare)
	if err != nil {
		t.Fatalf("PlainOpen bare failed: %v", err)
	}
	if _, err := bareRepo.Reference(plumbing.NewBranchReferenceName("master"), true); err != nil {
		t.Errorf("pushed branch missing on remote: %v", err)
	}

	// Pushing again with nothing new is not an error.
	if err := (GoGit{}).Push(ctx, dir, "master"); err != nil {
		t.Errorf("up-to-date push failed: %v", err)
	}
}

func TestPushWithoutRemote(t *testing.T) {
	dir, _ := initRepo(t)

	if err := (GoGit{}).Push(context.Background(), dir, "master"); err == nil {
		t.Error("Push without an origin remote should fail")
	}
}

// --- EnsureWritableBranch ---

func protectedSet(names ...string) func(string) bool {
	return func(name string) bool {
		for _, n := range names {
			if name == n {
				return true
			}
		}
		return false
	}
}

func TestEnsureWritableBranchRefusesProtected(t *testing.T) {
	dir, repo := initRepo(t)
	rc, err := GoGit{}.Resolve(context.Background(), dir, "")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	for _, name := range []string{"master", "main", "release"} {
		_, _, err := EnsureWritableBranch(context.Background(), GoGit{}, rc, BranchRequest{
			Requested:   name,
			IsProtected: protectedSet("master", "main", "release"),
		})
		if !errors.Is(err, ErrProtectedBranch) {
			t.Errorf("requesting %s: err = %v, want ErrProtectedBranch", name, err)
		}
	}
	// The trunk stayed checked out and untouched.
	if got := currentBranch(t, repo); got != "master" {
		t.Errorf("current branch = %q after refusals, want master", got)
	}
}

func TestEnsureWritableBranchSwitchesToExisting(t *testing.T) {
	dir, repo := initRepo(t)
	makeBranch(t, repo, "docs/manual")
	rc, _ := GoGit{}.Resolve(context.Background(), dir, "")

	name, created, err := EnsureWritableBranch(context.Background(), GoGit{}, rc, BranchRequest{
		Requested:   "docs/manual",
		IsProtected: protectedSet("master"),
	})
	if err != nil {
		t.Fatalf("EnsureWritableBranch failed: %v", err)
	}
	if name != "docs/manual" || created {
		t.Errorf("got (%q, %v), want (docs/manual, false)", name, created)
	}
	if got := currentBranch(t, repo); got != "docs/manual" {
		t.Errorf("current branch = %q, want docs/manual", got)
	}
}

func TestEnsureWritableBranchRequestedMissing(t *testing.T) {
	dir, repo := initRepo(t)
	rc, _ := GoGit{}.Resolve(context.Background(), dir, "")

	_, _, err := EnsureWritableBranch(context.Background(), GoGit{}, rc, BranchRequest{
		Requested:   "docs/new",
		IsProtected: protectedSet("master"),
	})
	if !errors.Is(err, ErrBranchNotFound) {
		t.Fatalf("err = %v, want ErrBranchNotFound without CreateMissing", err)
	}

	name, created, err := EnsureWritableBranch(context.Background(), GoGit{}, rc, BranchRequest{
		Requested:     "docs/new",
		CreateMissing: true,
		IsProtected:   protectedSet("master"),
	})
	if err != nil {
		t.Fatalf("EnsureWritableBranch failed: %v", err)
	}
	if name != "docs/new" || !created {
		t.Errorf("got (%q, %v), want (docs/new, true)", name, created)
	}
	if got := currentBranch(t, repo); got != "docs/new" {
		t.Errorf("current branch = %q, want docs/new", got)
	}
}

func TestEnsureWritableBranchDerivesDatedName(t *testing.T) {
	orig := timeNow
	timeNow = func() time.Time { return time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC) }
	defer func() { timeNow = orig }()

	dir, repo := initRepo(t)
	rc, _ := GoGit{}.Resolve(context.Background(), dir, "")

	name, created, err := EnsureWritableBranch(context.Background(), GoGit{}, rc, BranchRequest{
		FileSlug:    "readme",
		Prefix:      "docs/",
		IsProtected: protectedSet("master"),
	})
	if err != nil {
		t.Fatalf("EnsureWritableBranch failed: %v", err)
	}
	if name != "docs/readme-20260823" || !created {
		t.Errorf("got (%q, %v), want (docs/readme-20260823, true)", name, created)
	}
	if got := currentBranch(t, repo); got != "docs/readme-20260823" {
		t.Errorf("current branch = %q", got)
	}
}

func TestEnsureWritableBranchSuffixesOnCollision(t *testing.T) {
	orig := timeNow
	timeNow = func() time.Time { return time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC) }
	defer func() { timeNow = orig }()

	dir, repo := initRepo(t)
	makeBranch(t, repo, "docs/readme-20260823")
	rc, _ := GoGit{}.Resolve(context.Background(), dir, "")

	name, _, err := EnsureWritableBranch(context.Background(), GoGit{}, rc, BranchRequest{
		FileSlug:    "readme",
		Prefix:      "docs/",
		IsProtected: protectedSet("master"),
	})
	if err != nil {
		t.Fatalf("EnsureWritableBranch failed: %v", err)
	}
	if name != "docs/readme-20260823-2" {
		t.Errorf("name = %q, want docs/readme-20260823-2", name)
	}
}

// --- Path guard ---

func TestResolveWithinRoot(t *testing.T) {
	root := filepath.FromSlash("/repo")

	tests := []struct {
		name    string
		rel     string
		wantErr bool
	}{
		{"plain file", "docs/service.md", false},
		{"dot prefixed", "./docs/service.md", false},
		{"internal dotdot that stays inside", "docs/../README.md", false},
		{"empty", "", true},
		{"parent escape", "../outside.md", true},
		{"nested escape", "docs/../../outside.md", true},
		{"absolute path", "/etc/passwd", true},
		{"root itself", ".", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveWithinRoot(root, tt.rel)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveWithinRoot(%q) error = %v, wantErr = %v", tt.rel, err, tt.wantErr)
			}
			if err == nil && !strings.HasPrefix(got, root) {
				t.Errorf("resolved path %q not under root", got)
			}
		})
	}
}

func TestResolveWithinRootEscapeError(t *testing.T) {
	_, err := ResolveWithinRoot("/repo", "../secrets.md")
	if !errors.Is(err, ErrPathEscapesRepo) {
		t.Errorf("err = %v, want ErrPathEscapesRepo", err)
	}
}

// --- Commit message ---

func TestBuildCommitMessage(t *testing.T) {
	got := BuildCommitMessage("update API docs", "3e1f")
	want := "docs: update API docs\n\nDocsurgeon-Session: 3e1f\n"
	if got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}
