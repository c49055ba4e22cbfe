// Package review holds the domain model of the workboard: tracked pull
// requests, their triage status machine, and the record-set invariants.
package review

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"time"
)

// Remote state values as normalized by the gateway.
const (
	RemoteStateOpen   = "open"
	RemoteStateClosed = "closed"
	RemoteStateMerged = "merged"
)

// Role selects one of the remote searches that feed a refresh cycle.
type Role string

const (
	RoleAuthored        Role = "authored"
	RoleAssigned        Role = "assigned"
	RoleReviewRequested Role = "review-requested"
)

// Roles returns all search roles in the order they are processed.
func Roles() []Role {
	return []Role{RoleAuthored, RoleAssigned, RoleReviewRequested}
}

// RemoteFields is the latest snapshot of PR attributes owned by GitHub.
// It is overwritten wholesale on every merge.
type RemoteFields struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Repo      string `json:"repo"`
	State     string `json:"state"`
	Closed    bool   `json:"closed"`
	UpdatedAt int64  `json:"updatedAt"`
}

// RemoteDetail is the field set returned by the per-item detail lookup.
// The search API does not cover all fields (such as `closed`), so these are
// fetched separately and layered over the search result.
type RemoteDetail struct {
	Author    string `json:"author"`
	Title     string `json:"title"`
	State     string `json:"state"`
	Closed    bool   `json:"closed"`
	UpdatedAt int64  `json:"updatedAt"`
}

// ApplyDetail overlays detail-lookup fields onto r.
func (r *RemoteFields) ApplyDetail(d RemoteDetail) {
	r.Author = d.Author
	r.Title = d.Title
	r.State = d.State
	r.Closed = d.Closed
	r.UpdatedAt = d.UpdatedAt
}

// BoardFields is the locally-owned triage state attached to an item.
// Auxiliary fields are only legal for the status they belong to, see
// allowedAux.
type BoardFields struct {
	Status     Status `json:"status"`
	LastChange int64  `json:"lastChange,omitempty"`

	SnoozeUntil                       int64 `json:"snoozeUntil,omitempty"`
	SnoozeUntilUpdatedAtChangedFrom   int64 `json:"snoozeUntilUpdatedAtChangedFrom,omitempty"`
	BringBackToReviewIfNotMergedUntil int64 `json:"bringBackToReviewIfNotMergedUntil,omitempty"`
	DeleteAfter                       int64 `json:"deleteAfter,omitempty"`
}

// Item is one tracked pull request: remote snapshot plus board state, keyed
// by the PR's canonical URL. Persisted records carry exactly these fields,
// never presentation-only data.
type Item struct {
	URL    string       `json:"url"`
	Remote RemoteFields `json:"remoteFields"`
	Board  BoardFields  `json:"boardFields"`
}

// Lifecycle durations.
const (
	// DeleteRetention is how long a soft-deleted record is kept before it is
	// physically removed on the next merge that revisits it.
	DeleteRetention = 30 * 24 * time.Hour

	// BringBackDelay is how long a reviewed-delete-on-merge item may stay
	// unmerged before it pops back up as must-review.
	BringBackDelay = 4 * time.Hour

	// SnoozeDuration is the length of a snooze-until-time.
	SnoozeDuration = 24 * time.Hour
)

// maxURLLen guards mutation input against abuse; real PR URLs are far shorter.
const maxURLLen = 300

// ValidateURL checks that id is a plausible item identifier: an absolute
// http(s) URL of sane length. Returns an InvalidInputError otherwise.
func ValidateURL(id string) error {
	if id == "" || len(id) > maxURLLen {
		return &InvalidInputError{Field: "url", Reason: "empty or too long"}
	}
	u, err := url.Parse(id)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return &InvalidInputError{Field: "url", Reason: "not an absolute URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &InvalidInputError{Field: "url", Reason: "unsupported scheme"}
	}
	return nil
}

// ValidateSet checks the structural invariants of a full record set before it
// is persisted: keys are item URLs with a URL scheme, statuses are known
// values, and no record carries auxiliary fields illegal for its status.
// A failure means a logic bug upstream and must abort the transaction.
func ValidateSet(items map[string]Item) error {
	for id, item := range items {
		if err := ValidateURL(id); err != nil {
			return &InvariantError{URL: id, Reason: fmt.Sprintf("invalid identifier: %v", err)}
		}
		if item.URL != id {
			return &InvariantError{URL: id, Reason: fmt.Sprintf("record URL %q differs from key", item.URL)}
		}
		if !item.Board.Status.Valid() {
			return &InvariantError{URL: id, Reason: fmt.Sprintf("unknown status %q", item.Board.Status)}
		}
		allowed := allowedAux[item.Board.Status]
		b := item.Board
		switch {
		case b.SnoozeUntil != 0 && !allowed.snoozeUntil:
			return &InvariantError{URL: id, Reason: "snoozeUntil set outside snoozed-until-time"}
		case b.SnoozeUntilUpdatedAtChangedFrom != 0 && !allowed.snapshot:
			return &InvariantError{URL: id, Reason: "update snapshot set outside snoozed-until-update"}
		case b.BringBackToReviewIfNotMergedUntil != 0 && !allowed.bringBack:
			return &InvariantError{URL: id, Reason: "bring-back deadline set outside reviewed-delete-on-merge"}
		case b.DeleteAfter != 0 && !allowed.deleteAfter:
			return &InvariantError{URL: id, Reason: "deleteAfter set outside deleted"}
		}
	}
	return nil
}

// Visible returns the records to render: everything not soft-deleted.
func Visible(items map[string]Item) []Item {
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Board.Status == StatusDeleted {
			continue
		}
		out = append(out, item)
	}
	return out
}

// missingLastChange sorts records without a recorded status change after
// everything else (ordering is descending by LastChange).
const missingLastChange = math.MinInt64

// SortForDisplay orders items by status bucket ascending, then remote update
// time descending, then local change time descending. Freshly moved items
// float to the top of their bucket.
func SortForDisplay(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if pa, pb := a.Board.Status.Priority(), b.Board.Status.Priority(); pa != pb {
			return pa < pb
		}
		if a.Remote.UpdatedAt != b.Remote.UpdatedAt {
			return a.Remote.UpdatedAt > b.Remote.UpdatedAt
		}
		return lastChangeSortValue(a) > lastChangeSortValue(b)
	})
}

func lastChangeSortValue(item Item) int64 {
	if item.Board.LastChange == 0 {
		return missingLastChange
	}
	return item.Board.LastChange
}
