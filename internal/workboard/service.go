package workboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/workboard/internal/core/config"
	"github.com/colonyops/workboard/internal/core/kv"
	"github.com/colonyops/workboard/internal/core/review"
	"github.com/colonyops/workboard/internal/data/stores"
)

// lastClickedTTL is how long the most recently opened item stays highlighted.
const lastClickedTTL = 4 * time.Hour

const lastClickedKey = "item"

// Service orchestrates refresh cycles and triage mutations. It is the only
// writer of the board; the web UI and CLI commands consume it.
type Service struct {
	cfg         *config.Config
	board       *stores.BoardStore
	fetcher     *Fetcher
	lastClicked *kv.TypedKV[string]
	log         zerolog.Logger
	now         func() time.Time
}

// NewService wires the board store and the caching fetcher into a service.
func NewService(cfg *config.Config, board *stores.BoardStore, fetcher *Fetcher, cache kv.KV, log zerolog.Logger) *Service {
	return &Service{
		cfg:         cfg,
		board:       board,
		fetcher:     fetcher,
		lastClicked: kv.Scoped[string](cache, "last-clicked"),
		log:         log,
		now:         time.Now,
	}
}

// Refresh runs one reconciliation cycle: search every role, merge each result
// once, then revisit board items the searches no longer return. Any gateway
// failure aborts the cycle; merges already committed stay committed.
func (s *Service) Refresh(ctx context.Context) error {
	seen := map[string]bool{}

	for _, role := range review.Roles() {
		results, err := s.fetcher.Search(ctx, role, s.cfg.GitHub.User)
		if err != nil {
			return fmt.Errorf("search %s: %w", role, err)
		}

		for _, r := range results {
			if seen[r.URL] {
				continue
			}
			seen[r.URL] = true

			if s.cfg.IgnoresRepo(r.Repo) {
				continue
			}

			detail, err := s.fetcher.Detail(ctx, r.URL)
			if err != nil {
				return fmt.Errorf("detail %s: %w", r.URL, err)
			}
			r.ApplyDetail(detail)

			if err := s.board.Merge(ctx, r); err != nil {
				return fmt.Errorf("merge %s: %w", r.URL, err)
			}
		}
	}

	return s.refreshMissing(ctx, seen)
}

// refreshMissing revisits tracked items absent from all searches: merged and
// closed PRs drop out of open-PR searches, so their terminal state only shows
// up through a direct lookup. Deterministic URL order keeps cycles comparable.
func (s *Service) refreshMissing(ctx context.Context, seen map[string]bool) error {
	items, err := s.board.List(ctx)
	if err != nil {
		return fmt.Errorf("list board: %w", err)
	}

	missing := make([]string, 0, len(items))
	for url := range items {
		if !seen[url] {
			missing = append(missing, url)
		}
	}
	sort.Strings(missing)

	for _, url := range missing {
		detail, err := s.fetcher.Detail(ctx, url)
		if err != nil {
			return fmt.Errorf("detail %s: %w", url, err)
		}

		remote := items[url].Remote
		remote.URL = url
		remote.ApplyDetail(detail)

		if err := s.board.Merge(ctx, remote); err != nil {
			return fmt.Errorf("merge %s: %w", url, err)
		}
	}
	return nil
}

// List returns the visible records in display order. It never touches the
// network; callers wanting fresh data run Refresh first.
func (s *Service) List(ctx context.Context) ([]review.Item, error) {
	items, err := s.board.List(ctx)
	if err != nil {
		return nil, err
	}
	visible := review.Visible(items)
	review.SortForDisplay(visible)
	return visible, nil
}

// RefreshAndList runs a refresh cycle and returns the resulting visible
// records in display order.
func (s *Service) RefreshAndList(ctx context.Context) ([]review.Item, error) {
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s.List(ctx)
}

// MarkMustReview moves an item back into the must-review bucket.
func (s *Service) MarkMustReview(ctx context.Context, url string) error {
	return s.update(ctx, url, func(item *review.Item) error {
		item.Board.Status = review.StatusMustReview
		return nil
	})
}

// MarkReviewedDeleteOnMerge records a finished review. The item leaves the
// board on merge; if still unmerged after the bring-back delay it returns to
// must-review.
func (s *Service) MarkReviewedDeleteOnMerge(ctx context.Context, url string) error {
	deadline := s.now().Add(review.BringBackDelay).Unix()
	return s.update(ctx, url, func(item *review.Item) error {
		item.Board.Status = review.StatusReviewedDeleteOnMerge
		item.Board.BringBackToReviewIfNotMergedUntil = deadline
		return nil
	})
}

// SnoozeUntilMentioned parks an item until the user acts on it again.
func (s *Service) SnoozeUntilMentioned(ctx context.Context, url string) error {
	return s.update(ctx, url, func(item *review.Item) error {
		item.Board.Status = review.StatusSnoozedUntilMentioned
		return nil
	})
}

// SnoozeUntilTime parks an item for a fixed duration.
func (s *Service) SnoozeUntilTime(ctx context.Context, url string) error {
	until := s.now().Add(review.SnoozeDuration).Unix()
	return s.update(ctx, url, func(item *review.Item) error {
		item.Board.Status = review.StatusSnoozedUntilTime
		item.Board.SnoozeUntil = until
		return nil
	})
}

// SnoozeUntilUpdate parks an item until it changes remotely. The comparison
// snapshot is fetched fresh so an already-stale cache entry can't arm the
// watch against an old timestamp.
func (s *Service) SnoozeUntilUpdate(ctx context.Context, url string) error {
	if err := review.ValidateURL(url); err != nil {
		return err
	}

	detail, err := s.fetcher.DetailFresh(ctx, url)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", url, err)
	}

	return s.update(ctx, url, func(item *review.Item) error {
		item.Remote.ApplyDetail(detail)
		item.Board.Status = review.StatusSnoozedUntilUpdate
		item.Board.SnoozeUntilUpdatedAtChangedFrom = detail.UpdatedAt
		return nil
	})
}

// Delete soft-deletes an item. It stays invisible for the retention window
// and is physically removed by the first merge after that.
func (s *Service) Delete(ctx context.Context, url string) error {
	after := s.now().Add(review.DeleteRetention).Unix()
	return s.update(ctx, url, func(item *review.Item) error {
		item.Board.Status = review.StatusDeleted
		item.Board.DeleteAfter = after
		return nil
	})
}

// MarkClicked records that the user opened an item: its cached results are
// invalidated so the next refresh sees the consequences of the visit, and the
// item is remembered as last-clicked for the UI.
func (s *Service) MarkClicked(ctx context.Context, url string) error {
	if err := review.ValidateURL(url); err != nil {
		return err
	}

	if err := s.fetcher.Invalidate(ctx, url); err != nil {
		return err
	}
	if err := s.lastClicked.SetTTL(ctx, lastClickedKey, url, lastClickedTTL); err != nil {
		return fmt.Errorf("record last-clicked: %w", err)
	}

	s.log.Debug().Str("url", url).Msg("marked clicked")
	return nil
}

// LastClicked returns the most recently opened item URL, or "" when none was
// opened within the highlight window.
func (s *Service) LastClicked(ctx context.Context) string {
	url, err := s.lastClicked.Get(ctx, lastClickedKey)
	if err != nil {
		return ""
	}
	return url
}

func (s *Service) update(ctx context.Context, url string, fn func(*review.Item) error) error {
	if err := review.ValidateURL(url); err != nil {
		return err
	}
	return s.board.Update(ctx, url, fn)
}
