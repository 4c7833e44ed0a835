package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// FetchAdapter implements the §6 `fetches` logical adapter: append and
// latest_by_url.
type FetchAdapter struct {
	db *sqlx.DB
}

func NewFetchAdapter(db *sqlx.DB) FetchAdapter {
	return FetchAdapter{db: db}
}

// Append inserts a new FetchAttempt row. FetchAttempt rows are never
// mutated, only appended, per spec §3's ownership rules.
func (a FetchAdapter) Append(ctx context.Context, urlID int64, outcome NewFetchAttempt) (int64, error) {
	headers, err := json.Marshal(outcome.ResponseHeaders)
	if err != nil {
		return 0, fmt.Errorf("persistence: marshal response headers: %w", err)
	}

	const query = `
		INSERT INTO fetch_attempts
			(url_id, http_status, dns_ms, connect_ms, ttfb_ms, download_ms,
			 byte_count, content_type, response_headers, kind)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	var id int64
	err = a.db.QueryRowxContext(ctx, query, urlID,
		outcome.HTTPStatus, outcome.DNSMs, outcome.ConnectMs, outcome.TTFBMs, outcome.DownloadMs,
		outcome.ByteCount, outcome.ContentType, headers, outcome.Kind,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("persistence: append fetch attempt: %w", err)
	}
	return id, nil
}

// LatestByURL returns the most recent FetchAttempt for urlID, per spec
// §3's "exactly one latest attempt per URL is queryable".
func (a FetchAdapter) LatestByURL(ctx context.Context, urlID int64) (FetchAttemptRow, error) {
	const query = `
		SELECT * FROM fetch_attempts
		WHERE url_id = $1
		ORDER BY fetched_at DESC
		LIMIT 1`

	var row FetchAttemptRow
	if err := a.db.GetContext(ctx, &row, query, urlID); err != nil {
		return FetchAttemptRow{}, fmt.Errorf("persistence: latest fetch attempt: %w", err)
	}
	return row, nil
}
