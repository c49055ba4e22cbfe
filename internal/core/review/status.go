package review

// Status is the triage state of a tracked pull request.
type Status string

// All persistable status values. When adding a value here, amend Priority and
// allowedAux or record-set validation will reject it.
const (
	StatusUnknown               Status = "unknown"
	StatusMustReview            Status = "must-review"
	StatusMerged                Status = "merged"
	StatusClosed                Status = "closed"
	StatusDeleted               Status = "deleted"
	StatusReviewedDeleteOnMerge Status = "reviewed-delete-on-merge"

	// StatusSnoozedUntilMentioned means someone else takes care of the review.
	// Only makes sense for PRs authored by others.
	StatusSnoozedUntilMentioned Status = "snoozed-until-mentioned"

	StatusSnoozedUntilTime   Status = "snoozed-until-time"
	StatusSnoozedUntilUpdate Status = "snoozed-until-update"
	StatusUpdatedAfterSnooze Status = "updated-after-snooze"
)

// legacyStatusSnoozed predates the snooze-until-update/snooze-until-time split.
// Advance migrates it; it is not valid in storage.
const legacyStatusSnoozed Status = "snoozed"

// statusPriorities drives display ordering: lower buckets float to the top.
// Deleted records are filtered out before rendering, the 999 is a guard value.
var statusPriorities = map[Status]int{
	StatusClosed:                1,
	StatusDeleted:               999,
	StatusMerged:                1,
	StatusMustReview:            2,
	StatusReviewedDeleteOnMerge: 5,
	StatusSnoozedUntilMentioned: 5,
	StatusSnoozedUntilTime:      5,
	StatusSnoozedUntilUpdate:    5,
	StatusUpdatedAfterSnooze:    1,
	StatusUnknown:               4,
}

// Valid reports whether s is a known, persistable status value.
func (s Status) Valid() bool {
	_, ok := statusPriorities[s]
	return ok
}

// Priority returns the sort bucket for s. Unknown values sort like
// StatusUnknown so a half-migrated record never panics the view.
func (s Status) Priority() int {
	if p, ok := statusPriorities[s]; ok {
		return p
	}
	return statusPriorities[StatusUnknown]
}

// auxFields enumerates the status-specific auxiliary fields of BoardFields.
type auxFields struct {
	snoozeUntil bool
	snapshot    bool
	bringBack   bool
	deleteAfter bool
}

// allowedAux maps each status to the auxiliary fields legal for it.
// Statuses not listed allow none.
var allowedAux = map[Status]auxFields{
	StatusSnoozedUntilTime:      {snoozeUntil: true},
	StatusSnoozedUntilUpdate:    {snapshot: true},
	StatusReviewedDeleteOnMerge: {bringBack: true},
	StatusDeleted:               {deleteAfter: true},
}

// ClearDisallowedAux zeroes auxiliary fields that are not legal for the
// current status. Transitions only clear the field they consumed, so a
// record leaving e.g. snoozed-until-time for merged would otherwise carry a
// stale snooze_until forever.
func ClearDisallowedAux(b *BoardFields) {
	allowed := allowedAux[b.Status]
	if !allowed.snoozeUntil {
		b.SnoozeUntil = 0
	}
	if !allowed.snapshot {
		b.SnoozeUntilUpdatedAtChangedFrom = 0
	}
	if !allowed.bringBack {
		b.BringBackToReviewIfNotMergedUntil = 0
	}
	if !allowed.deleteAfter {
		b.DeleteAfter = 0
	}
}
