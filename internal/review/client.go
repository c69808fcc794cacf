// Package review opens pull requests for documentation branches.
//
// The Client interface isolates the review platform behind the two
// calls the engine needs, so tool handlers can be tested against a
// fake and another forge could be swapped in later. GHClient is the
// real implementation, shelling out to the gh CLI.
package review

import "context"

// Request describes the review to open.
type Request struct {
	// Title and Body are the review's human-facing description.
	Title string
	Body  string

	// Head is the documentation branch, Base the trunk it targets.
	Head string
	Base string
}

// Client is the review-platform surface the engine needs.
type Client interface {
	// FindOpen returns the URL of an open review from head into base,
	// or the empty string when none exists.
	FindOpen(ctx context.Context, root, head, base string) (string, error)

	// Create opens a new review and returns its URL.
	Create(ctx context.Context, root string, req Request) (string, error)
}

// OpenOrReuse returns the open review for the branch pair, creating
// one only when none exists. Calling it again for the same pair hands
// back the same review instead of a duplicate.
func OpenOrReuse(ctx context.Context, c Client, root string, req Request) (url string, reused bool, err error) {
	existing, err := c.FindOpen(ctx, root, req.Head, req.Base)
	if err != nil {
		return "", false, err
	}
	if existing != "" {
		return existing, true, nil
	}

	url, err = c.Create(ctx, root, req)
	if err != nil {
		return "", false, err
	}
	return url, false, nil
}
