package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid https", "https://github.com/acme/widgets/pull/1", false},
		{"valid http", "http://example.com/pr/2", false},
		{"empty", "", true},
		{"relative", "/acme/widgets/pull/1", true},
		{"no host", "https:///pull/1", true},
		{"wrong scheme", "ftp://example.com/pr/2", true},
		{"too long", "https://example.com/" + strings.Repeat("a", 300), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				var invalid *InvalidInputError
				require.ErrorAs(t, err, &invalid)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func validItem(url string, status Status) Item {
	return Item{
		URL:    url,
		Remote: RemoteFields{URL: url, State: RemoteStateOpen},
		Board:  BoardFields{Status: status},
	}
}

func TestValidateSet(t *testing.T) {
	url := "https://github.com/acme/widgets/pull/1"

	t.Run("valid set", func(t *testing.T) {
		items := map[string]Item{url: validItem(url, StatusMustReview)}
		assert.NoError(t, ValidateSet(items))
	})

	t.Run("key mismatch", func(t *testing.T) {
		items := map[string]Item{url: validItem("https://github.com/acme/widgets/pull/2", StatusMustReview)}
		var invariant *InvariantError
		require.ErrorAs(t, ValidateSet(items), &invariant)
	})

	t.Run("bad key", func(t *testing.T) {
		items := map[string]Item{"not-a-url": validItem("not-a-url", StatusMustReview)}
		var invariant *InvariantError
		require.ErrorAs(t, ValidateSet(items), &invariant)
	})

	t.Run("unknown status", func(t *testing.T) {
		items := map[string]Item{url: validItem(url, Status("bogus"))}
		var invariant *InvariantError
		require.ErrorAs(t, ValidateSet(items), &invariant)
	})

	t.Run("aux field on wrong status", func(t *testing.T) {
		item := validItem(url, StatusMustReview)
		item.Board.SnoozeUntil = 12345
		items := map[string]Item{url: item}
		var invariant *InvariantError
		require.ErrorAs(t, ValidateSet(items), &invariant)
	})

	t.Run("aux field on matching status", func(t *testing.T) {
		item := validItem(url, StatusSnoozedUntilTime)
		item.Board.SnoozeUntil = 12345
		items := map[string]Item{url: item}
		assert.NoError(t, ValidateSet(items))
	})
}

func TestVisibleFiltersDeleted(t *testing.T) {
	a := validItem("https://example.com/pr/1", StatusMustReview)
	b := validItem("https://example.com/pr/2", StatusDeleted)

	visible := Visible(map[string]Item{a.URL: a, b.URL: b})

	require.Len(t, visible, 1)
	assert.Equal(t, a.URL, visible[0].URL)
}

func TestSortForDisplay(t *testing.T) {
	mk := func(url string, status Status, updatedAt, lastChange int64) Item {
		item := validItem(url, status)
		item.Remote.UpdatedAt = updatedAt
		item.Board.LastChange = lastChange
		return item
	}

	items := []Item{
		mk("https://example.com/pr/snoozed", StatusSnoozedUntilMentioned, 500, 0),
		mk("https://example.com/pr/review-old", StatusMustReview, 100, 50),
		mk("https://example.com/pr/merged", StatusMerged, 10, 0),
		mk("https://example.com/pr/review-new", StatusMustReview, 200, 50),
		mk("https://example.com/pr/unknown", StatusUnknown, 900, 0),
	}

	SortForDisplay(items)

	var urls []string
	for _, item := range items {
		urls = append(urls, item.URL)
	}
	assert.Equal(t, []string{
		"https://example.com/pr/merged",     // bucket 1
		"https://example.com/pr/review-new", // bucket 2, newer remote update
		"https://example.com/pr/review-old",
		"https://example.com/pr/unknown", // bucket 4
		"https://example.com/pr/snoozed", // bucket 5
	}, urls)
}

func TestSortForDisplayTieBreakOnLastChange(t *testing.T) {
	mk := func(url string, lastChange int64) Item {
		item := validItem(url, StatusMustReview)
		item.Remote.UpdatedAt = 100
		item.Board.LastChange = lastChange
		return item
	}

	items := []Item{
		mk("https://example.com/pr/never-touched", 0),
		mk("https://example.com/pr/touched", 500),
	}

	SortForDisplay(items)

	// Records without a change time sort after everything in the bucket.
	assert.Equal(t, "https://example.com/pr/touched", items[0].URL)
}

func TestApplyDetail(t *testing.T) {
	r := RemoteFields{
		URL:       "https://example.com/pr/1",
		Title:     "old",
		Author:    "old-author",
		Repo:      "acme/widgets",
		State:     RemoteStateOpen,
		UpdatedAt: 100,
	}

	r.ApplyDetail(RemoteDetail{
		Author:    "new-author",
		Title:     "new",
		State:     RemoteStateMerged,
		Closed:    true,
		UpdatedAt: 200,
	})

	assert.Equal(t, "new-author", r.Author)
	assert.Equal(t, "new", r.Title)
	assert.Equal(t, RemoteStateMerged, r.State)
	assert.True(t, r.Closed)
	assert.EqualValues(t, 200, r.UpdatedAt)
	// fields the detail lookup doesn't cover stay put
	assert.Equal(t, "acme/widgets", r.Repo)
	assert.Equal(t, "https://example.com/pr/1", r.URL)
}
