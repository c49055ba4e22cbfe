package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/workboard/internal/core/review"
	"github.com/colonyops/workboard/pkg/executil"
)

func newTestClient(exec *executil.RecordingExecutor) *Client {
	return NewClient(exec, zerolog.Nop())
}

func TestClient_Search(t *testing.T) {
	exec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{
			"gh": []byte(`[
				{
					"author": {"login": "octocat"},
					"repository": {"name": "widgets", "nameWithOwner": "acme/widgets"},
					"state": "OPEN",
					"updatedAt": "2023-12-01T10:45:55Z",
					"url": "https://github.com/acme/widgets/pull/7",
					"title": "Add flux capacitor"
				}
			]`),
		},
	}
	client := newTestClient(exec)

	results, err := client.Search(context.Background(), review.RoleAuthored, "octocat")
	require.NoError(t, err)

	require.Len(t, results, 1)
	got := results[0]
	assert.Equal(t, "https://github.com/acme/widgets/pull/7", got.URL)
	assert.Equal(t, "Add flux capacitor", got.Title)
	assert.Equal(t, "octocat", got.Author)
	assert.Equal(t, "acme/widgets", got.Repo)
	assert.Equal(t, review.RemoteStateOpen, got.State)
	assert.EqualValues(t, 1701427555, got.UpdatedAt)

	require.Len(t, exec.Commands, 1)
	assert.Equal(t, "gh", exec.Commands[0].Cmd)
	assert.Equal(t, []string{"search", "prs", "--author", "octocat", "--state", "open", "--json", SearchFields}, exec.Commands[0].Args)
}

func TestClient_SearchRoleFlags(t *testing.T) {
	tests := []struct {
		role review.Role
		flag string
	}{
		{review.RoleAuthored, "--author"},
		{review.RoleAssigned, "--assignee"},
		{review.RoleReviewRequested, "--review-requested"},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			exec := &executil.RecordingExecutor{
				Outputs: map[string][]byte{"gh": []byte(`[]`)},
			}
			client := newTestClient(exec)

			_, err := client.Search(context.Background(), tt.role, "octocat")
			require.NoError(t, err)

			require.Len(t, exec.Commands, 1)
			assert.Equal(t, tt.flag, exec.Commands[0].Args[2])
		})
	}
}

func TestClient_SearchUnknownRole(t *testing.T) {
	client := newTestClient(&executil.RecordingExecutor{})

	_, err := client.Search(context.Background(), review.Role("watcher"), "octocat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown search role")
}

func TestClient_Detail(t *testing.T) {
	url := "https://github.com/acme/widgets/pull/7"
	exec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{
			"gh": []byte(`{
				"author": {"login": "hubot"},
				"closed": true,
				"state": "MERGED",
				"updatedAt": "2023-12-01T10:45:55Z",
				"title": "Add flux capacitor"
			}`),
		},
	}
	client := newTestClient(exec)

	detail, err := client.Detail(context.Background(), url)
	require.NoError(t, err)

	assert.Equal(t, "hubot", detail.Author)
	assert.Equal(t, review.RemoteStateMerged, detail.State)
	assert.True(t, detail.Closed)
	assert.EqualValues(t, 1701427555, detail.UpdatedAt)

	require.Len(t, exec.Commands, 1)
	assert.Equal(t, []string{"pr", "view", url, "--json", DetailFields}, exec.Commands[0].Args)
}

func TestClient_CallError(t *testing.T) {
	cause := errors.New("exit status 1")
	exec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{"gh": []byte("HTTP 404: Not Found")},
		Errors:  map[string]error{"gh": cause},
	}
	client := newTestClient(exec)

	_, err := client.Detail(context.Background(), "https://github.com/acme/widgets/pull/404")

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, callErr.Error(), "HTTP 404")
}

func TestClient_SearchBadJSON(t *testing.T) {
	exec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{"gh": []byte("not json")},
	}
	client := newTestClient(exec)

	_, err := client.Search(context.Background(), review.RoleAuthored, "octocat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse gh search output")
}

func TestClient_SearchBadTimestamp(t *testing.T) {
	exec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{
			"gh": []byte(`[{"updatedAt": "yesterday", "url": "https://example.com/pr/1"}]`),
		},
	}
	client := newTestClient(exec)

	_, err := client.Search(context.Background(), review.RoleAuthored, "octocat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse timestamp")
}

func TestClient_RepoFallsBackToName(t *testing.T) {
	exec := &executil.RecordingExecutor{
		Outputs: map[string][]byte{
			"gh": []byte(`[{"repository": {"name": "widgets"}, "updatedAt": "2023-12-01T10:45:55Z", "url": "https://example.com/pr/1"}]`),
		},
	}
	client := newTestClient(exec)

	results, err := client.Search(context.Background(), review.RoleAuthored, "octocat")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "widgets", results[0].Repo)
}
