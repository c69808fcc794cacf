package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// GHClient implements Client via the gh CLI, which carries the
// caller's existing GitHub authentication.
type GHClient struct{}

func (GHClient) FindOpen(ctx context.Context, root, head, base string) (string, error) {
	out, err := runGH(ctx, root, "pr", "list", "--head", head, "--base", base, "--state", "open", "--json", "url")
	if err != nil {
		return "", fmt.Errorf("listing pull requests: %w", err)
	}

	var prs []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal([]byte(out), &prs); err != nil {
		return "", fmt.Errorf("parsing gh pr list output: %w", err)
	}
	if len(prs) == 0 {
		return "", nil
	}
	return prs[0].URL, nil
}

func (GHClient) Create(ctx context.Context, root string, req Request) (string, error) {
	out, err := runGH(ctx, root, "pr", "create",
		"--title", req.Title,
		"--body", req.Body,
		"--base", req.Base,
		"--head", req.Head,
	)
	if err != nil {
		return "", fmt.Errorf("creating pull request: %w", err)
	}
	// gh prints the new PR's URL on stdout; progress goes to stderr.
	return strings.TrimSpace(out), nil
}

// runGH executes a gh command in the repo directory and returns its
// stdout. gh writes update notices and auth hints to stderr even when
// a command succeeds, so output that gets parsed must come from stdout
// alone; stderr only ever feeds error text.
func runGH(ctx context.Context, root string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "gh", args...)
	cmd.Dir = root

	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("gh %s: %w", args[0], ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("gh %s: %w", args[0], err)
	}
	return string(output), nil
}

// Available checks if the gh CLI is installed and authenticated.
func (GHClient) Available() bool {
	return exec.Command("gh", "auth", "status").Run() == nil
}
