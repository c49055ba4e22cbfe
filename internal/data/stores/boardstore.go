package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/colonyops/workboard/internal/core/review"
	"github.com/colonyops/workboard/internal/data/db"
)

const (
	boardBucket = "board"

	// boardKey is the well-known key holding the whole serialized record
	// set. The set is small (one user's open reviews), so a single-key
	// read-modify-write keeps every merge and mutation trivially atomic.
	boardKey = "pull_requests"
)

// BoardStore holds the durable, authoritative record set. All writes go
// through one transaction: load set, mutate, validate invariants, persist.
type BoardStore struct {
	db  *db.DB
	now func() time.Time
}

// NewBoardStore creates a new SQLite-backed board store.
func NewBoardStore(database *db.DB) *BoardStore {
	return &BoardStore{db: database, now: time.Now}
}

// List returns the full record set; an empty board yields an empty map.
func (s *BoardStore) List(ctx context.Context) (map[string]review.Item, error) {
	items, err := loadItems(ctx, s.db.Queries())
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Merge folds a freshly fetched remote snapshot into the record set as one
// atomic transaction: overwrite remote fields wholesale, run the status
// machine, physically remove the record if its soft-delete retention expired,
// validate the whole set, persist.
func (s *BoardStore) Merge(ctx context.Context, remote review.RemoteFields) error {
	now := s.now()

	return s.db.WithTx(ctx, func(q *db.Queries) error {
		items, err := loadItems(ctx, q)
		if err != nil {
			return err
		}

		item, ok := items[remote.URL]
		if !ok {
			// First observation: status and change time are all we can say.
			item = review.Item{
				URL: remote.URL,
				Board: review.BoardFields{
					Status:     review.StatusUnknown,
					LastChange: remote.UpdatedAt,
				},
			}
		}
		item.Remote = remote

		review.Advance(&item, now)

		if review.DueForRemoval(item, now) {
			delete(items, remote.URL)
		} else {
			items[remote.URL] = item
		}

		return saveItems(ctx, q, items, now)
	})
}

// Update applies fn to an existing record as one atomic transaction and
// stamps LastChange. Returns review.ErrNotFound (untouched state) when the
// identifier is unknown.
func (s *BoardStore) Update(ctx context.Context, url string, fn func(*review.Item) error) error {
	now := s.now()

	return s.db.WithTx(ctx, func(q *db.Queries) error {
		items, err := loadItems(ctx, q)
		if err != nil {
			return err
		}

		item, ok := items[url]
		if !ok {
			return fmt.Errorf("update %q: %w", url, review.ErrNotFound)
		}

		if err := fn(&item); err != nil {
			return err
		}
		item.Board.LastChange = now.Unix()
		review.ClearDisallowedAux(&item.Board)
		items[url] = item

		return saveItems(ctx, q, items, now)
	})
}

func loadItems(ctx context.Context, q *db.Queries) (map[string]review.Item, error) {
	items := map[string]review.Item{}

	row, err := q.KVGet(ctx, boardBucket, boardKey)
	if IsNotFoundError(err) {
		return items, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load board: %w", err)
	}

	if err := json.Unmarshal(row.Value, &items); err != nil {
		return nil, fmt.Errorf("load board unmarshal: %w", err)
	}
	return items, nil
}

func saveItems(ctx context.Context, q *db.Queries, items map[string]review.Item, now time.Time) error {
	if err := review.ValidateSet(items); err != nil {
		return err
	}

	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("save board marshal: %w", err)
	}

	nowNano := now.UnixNano()
	if err := q.KVSet(ctx, db.KVSetParams{
		Bucket:    boardBucket,
		Key:       boardKey,
		Value:     data,
		ExpiresAt: sql.NullInt64{},
		CreatedAt: nowNano,
		UpdatedAt: nowNano,
	}); err != nil {
		return fmt.Errorf("save board: %w", err)
	}
	return nil
}
