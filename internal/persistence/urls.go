package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// URLAdapter implements the §6 `urls` logical adapter: ensure(url) ->
// url_id, touch(url_id).
type URLAdapter struct {
	db *sqlx.DB
}

func NewURLAdapter(db *sqlx.DB) URLAdapter {
	return URLAdapter{db: db}
}

// Ensure inserts url if it is not already present and returns its id in
// either case. Per spec §3, a URL row is created on first reference and
// never deleted; a unique-constraint race between two concurrent workers
// is retried once as a get, per spec §7's "Database conflict" policy.
func (a URLAdapter) Ensure(ctx context.Context, rawURL, host string, depth int) (int64, error) {
	id, err := a.insert(ctx, rawURL, host, depth)
	if err == nil {
		return id, nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return a.idFor(ctx, rawURL)
	}
	return 0, err
}

func (a URLAdapter) insert(ctx context.Context, rawURL, host string, depth int) (int64, error) {
	const query = `
		INSERT INTO urls (url, host, depth)
		VALUES ($1, $2, $3)
		ON CONFLICT (url) DO NOTHING
		RETURNING id`

	var id int64
	err := a.db.QueryRowxContext(ctx, query, rawURL, host, depth).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		// ON CONFLICT DO NOTHING with no RETURNING row: another writer
		// won the race. Fall through to the get-by-url path.
		return a.idFor(ctx, rawURL)
	}
	if err != nil {
		return 0, fmt.Errorf("persistence: insert url: %w", err)
	}
	return id, nil
}

func (a URLAdapter) idFor(ctx context.Context, rawURL string) (int64, error) {
	const query = `SELECT id FROM urls WHERE url = $1`
	var id int64
	if err := a.db.GetContext(ctx, &id, query, rawURL); err != nil {
		return 0, fmt.Errorf("persistence: get url id: %w", err)
	}
	return id, nil
}

// Touch updates last_touched_at for a re-referenced URL.
func (a URLAdapter) Touch(ctx context.Context, urlID int64) error {
	const query = `UPDATE urls SET last_touched_at = now() WHERE id = $1`
	if _, err := a.db.ExecContext(ctx, query, urlID); err != nil {
		return fmt.Errorf("persistence: touch url: %w", err)
	}
	return nil
}

// Get loads a URL row by id, used by callers that need host/depth after
// only holding the id (e.g. the coverage and planner adapters).
func (a URLAdapter) Get(ctx context.Context, urlID int64) (URLRow, error) {
	const query = `SELECT * FROM urls WHERE id = $1`
	var row URLRow
	if err := a.db.GetContext(ctx, &row, query, urlID); err != nil {
		return URLRow{}, fmt.Errorf("persistence: get url: %w", err)
	}
	return row, nil
}
