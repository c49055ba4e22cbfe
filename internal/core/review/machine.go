package review

import "time"

// Advance runs the refresh-pass status transitions against item, in fixed
// order. Order matters: a later check may override an earlier one in the same
// pass (e.g. a snoozed PR that got merged ends up merged, not unsnoozed).
// Reports whether the board fields changed.
//
// Advance only reads the merged remote snapshot and the clock; user-initiated
// transitions are applied directly by the service layer.
func Advance(item *Item, now time.Time) bool {
	nowUnix := now.Unix()
	before := item.Board
	b := &item.Board
	remote := item.Remote

	// Migration from the rename of the old catch-all `snoozed` value.
	if b.Status == legacyStatusSnoozed && b.SnoozeUntilUpdatedAtChangedFrom != 0 {
		b.Status = StatusSnoozedUntilUpdate
	}

	if b.Status != StatusDeleted && b.Status != StatusMerged &&
		remote.State == RemoteStateMerged && remote.Closed {
		if b.Status == StatusReviewedDeleteOnMerge {
			// The user already reviewed it and wanted it gone once merged.
			b.Status = StatusDeleted
			b.DeleteAfter = nowUnix + int64(DeleteRetention/time.Second)
		} else {
			b.Status = StatusMerged
		}
		b.LastChange = nowUnix
	}

	if b.Status == StatusReviewedDeleteOnMerge && b.BringBackToReviewIfNotMergedUntil <= nowUnix {
		// Expected merge never happened, surface the PR again.
		b.Status = StatusMustReview
		b.BringBackToReviewIfNotMergedUntil = 0
		b.LastChange = nowUnix
	}

	if b.Status != StatusDeleted && b.Status != StatusClosed &&
		remote.State == RemoteStateClosed && remote.Closed {
		b.Status = StatusClosed
		b.LastChange = nowUnix
	}

	if b.Status == StatusSnoozedUntilTime && b.SnoozeUntil <= nowUnix {
		b.Status = StatusMustReview
		b.SnoozeUntil = 0
		b.LastChange = nowUnix
	}

	if b.Status == StatusSnoozedUntilUpdate && remote.UpdatedAt != 0 &&
		remote.UpdatedAt != b.SnoozeUntilUpdatedAtChangedFrom {
		b.Status = StatusUpdatedAfterSnooze
		b.SnoozeUntilUpdatedAtChangedFrom = 0
		b.LastChange = nowUnix
	}

	ClearDisallowedAux(b)

	return *b != before
}

// DueForRemoval reports whether a soft-deleted record has outlived its
// retention and should be physically removed instead of written back.
func DueForRemoval(item Item, now time.Time) bool {
	return item.Board.Status == StatusDeleted && item.Board.DeleteAfter <= now.Unix()
}
