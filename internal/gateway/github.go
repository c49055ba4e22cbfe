// Package gateway queries GitHub through the gh CLI. gh owns authentication
// and the API protocol; this package only shapes commands and parses JSON.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/workboard/internal/core/review"
	"github.com/colonyops/workboard/pkg/executil"
)

// Requested field sets. They are part of the cache key shape: adding a field
// changes the key and invalidates stale-shaped cache entries by construction.
const (
	// SearchFields is what `gh search prs --json` is asked for.
	SearchFields = "author,repository,state,updatedAt,url,title"

	// DetailFields is what `gh pr view --json` is asked for. The search API
	// doesn't support all fields (such as `closed`), hence the second lookup.
	DetailFields = "author,closed,state,updatedAt,title"
)

var roleFlags = map[review.Role]string{
	review.RoleAuthored:        "--author",
	review.RoleAssigned:        "--assignee",
	review.RoleReviewRequested: "--review-requested",
}

// CallError reports a failed gh invocation. It aborts the refresh cycle that
// triggered it; merges already committed in the same cycle stay committed.
type CallError struct {
	Args   []string
	Output string
	Err    error
}

func (e *CallError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("gh %s: %v", strings.Join(e.Args, " "), e.Err)
	}
	return fmt.Sprintf("gh %s: %v: %s", strings.Join(e.Args, " "), e.Err, out)
}

func (e *CallError) Unwrap() error { return e.Err }

// Client shells out to gh.
type Client struct {
	exec executil.Executor
	log  zerolog.Logger
}

// NewClient creates a gateway client using the given executor.
func NewClient(exec executil.Executor, log zerolog.Logger) *Client {
	return &Client{exec: exec, log: log}
}

type searchRow struct {
	Author struct {
		Login string `json:"login"`
	} `json:"author"`
	Repository struct {
		Name          string `json:"name"`
		NameWithOwner string `json:"nameWithOwner"`
	} `json:"repository"`
	State     string `json:"state"`
	UpdatedAt string `json:"updatedAt"`
	URL       string `json:"url"`
	Title     string `json:"title"`
}

type detailRow struct {
	Author struct {
		Login string `json:"login"`
	} `json:"author"`
	Closed    bool   `json:"closed"`
	State     string `json:"state"`
	UpdatedAt string `json:"updatedAt"`
	Title     string `json:"title"`
}

// Search runs one open-PR search for the given role and user and returns the
// partial field set the search API covers.
func (c *Client) Search(ctx context.Context, role review.Role, user string) ([]review.RemoteFields, error) {
	flag, ok := roleFlags[role]
	if !ok {
		return nil, fmt.Errorf("unknown search role %q", role)
	}

	args := []string{"search", "prs", flag, user, "--state", "open", "--json", SearchFields}
	out, err := c.run(ctx, args)
	if err != nil {
		return nil, err
	}

	var rows []searchRow
	if err := json.Unmarshal(out, &rows); err != nil {
		return nil, fmt.Errorf("parse gh search output: %w", err)
	}

	results := make([]review.RemoteFields, 0, len(rows))
	for _, row := range rows {
		updatedAt, err := parseTimestamp(row.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("search result %q: %w", row.URL, err)
		}
		repo := row.Repository.NameWithOwner
		if repo == "" {
			repo = row.Repository.Name
		}
		results = append(results, review.RemoteFields{
			URL:       row.URL,
			Title:     row.Title,
			Author:    row.Author.Login,
			Repo:      repo,
			State:     strings.ToLower(row.State),
			UpdatedAt: updatedAt,
		})
	}

	c.log.Debug().Str("role", string(role)).Int("results", len(results)).Msg("searched PRs")
	return results, nil
}

// Detail fetches the fields the search API doesn't cover for one PR.
func (c *Client) Detail(ctx context.Context, url string) (review.RemoteDetail, error) {
	args := []string{"pr", "view", url, "--json", DetailFields}
	out, err := c.run(ctx, args)
	if err != nil {
		return review.RemoteDetail{}, err
	}

	var row detailRow
	if err := json.Unmarshal(out, &row); err != nil {
		return review.RemoteDetail{}, fmt.Errorf("parse gh pr view output: %w", err)
	}

	updatedAt, err := parseTimestamp(row.UpdatedAt)
	if err != nil {
		return review.RemoteDetail{}, fmt.Errorf("detail %q: %w", url, err)
	}

	return review.RemoteDetail{
		Author:    row.Author.Login,
		Title:     row.Title,
		State:     strings.ToLower(row.State),
		Closed:    row.Closed,
		UpdatedAt: updatedAt,
	}, nil
}

func (c *Client) run(ctx context.Context, args []string) ([]byte, error) {
	out, err := c.exec.Run(ctx, "gh", args...)
	if err != nil {
		return nil, &CallError{Args: args, Output: string(out), Err: err}
	}
	return out, nil
}

// parseTimestamp converts GitHub's RFC 3339 timestamps (2023-12-01T10:45:55Z)
// to unix seconds.
func parseTimestamp(s string) (int64, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.Unix(), nil
}
