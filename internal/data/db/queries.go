package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so queries compose with
// WithTx transparently.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New returns a query layer bound to the given connection or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Queries holds the hand-written SQL for the kv_entries table.
type Queries struct {
	db DBTX
}

// WithTx returns a Queries bound to the transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// KvEntry mirrors one kv_entries row.
type KvEntry struct {
	Bucket    string
	Key       string
	Value     []byte
	ExpiresAt sql.NullInt64
	CreatedAt int64
	UpdatedAt int64
}

// KVGet returns the row for (bucket, key), including expired rows; expiry is
// the caller's concern so stores can delete lazily inside the same
// transaction.
func (q *Queries) KVGet(ctx context.Context, bucket, key string) (KvEntry, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT bucket, key, value, expires_at, created_at, updated_at
		FROM kv_entries
		WHERE bucket = ? AND key = ?
	`, bucket, key)

	var e KvEntry
	err := row.Scan(&e.Bucket, &e.Key, &e.Value, &e.ExpiresAt, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// KVSetParams are the arguments for KVSet.
type KVSetParams struct {
	Bucket    string
	Key       string
	Value     []byte
	ExpiresAt sql.NullInt64
	CreatedAt int64
	UpdatedAt int64
}

// KVSet inserts or replaces an entry, preserving created_at on replace.
func (q *Queries) KVSet(ctx context.Context, arg KVSetParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO kv_entries (bucket, key, value, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (bucket, key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, arg.Bucket, arg.Key, arg.Value, arg.ExpiresAt, arg.CreatedAt, arg.UpdatedAt)
	return err
}

// KVDelete removes one entry.
func (q *Queries) KVDelete(ctx context.Context, bucket, key string) error {
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM kv_entries WHERE bucket = ? AND key = ?
	`, bucket, key)
	return err
}

// KVDeleteContaining removes every entry in bucket whose key contains substr.
// instr avoids LIKE wildcard escaping for keys that embed URLs.
func (q *Queries) KVDeleteContaining(ctx context.Context, bucket, substr string) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM kv_entries WHERE bucket = ? AND instr(key, ?) > 0
	`, bucket, substr)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// KVListKeys returns all non-expired keys in bucket in sorted order.
func (q *Queries) KVListKeys(ctx context.Context, bucket string, now int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT key FROM kv_entries
		WHERE bucket = ? AND (expires_at IS NULL OR expires_at >= ?)
		ORDER BY key
	`, bucket, now)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// KVSweepExpired deletes all entries in bucket whose TTL has passed.
func (q *Queries) KVSweepExpired(ctx context.Context, bucket string, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		DELETE FROM kv_entries
		WHERE bucket = ? AND expires_at IS NOT NULL AND expires_at < ?
	`, bucket, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
