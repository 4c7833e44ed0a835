package persistence

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rohmanhakim/newscrawl/internal/storage"
)

// ContentAdapter implements the §6 `content` logical adapter: put and
// get. It binds a storage.Blob (already written to the content-
// addressable disk store) to the FetchAttempt that produced it, per
// spec §3's "Bound 1:1 to the FetchAttempt... only on 2xx with a body".
type ContentAdapter struct {
	db *sqlx.DB
}

func NewContentAdapter(db *sqlx.DB) ContentAdapter {
	return ContentAdapter{db: db}
}

func (a ContentAdapter) Put(ctx context.Context, fetchID int64, blob storage.Blob) (int64, error) {
	const query = `
		INSERT INTO content_blobs (fetch_id, content_hash, byte_length, media_type, charset)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fetch_id) DO UPDATE SET content_hash = EXCLUDED.content_hash
		RETURNING id`

	var id int64
	err := a.db.QueryRowxContext(ctx, query, fetchID, blob.ContentHash(), blob.ByteLength(), blob.MediaType(), blob.Charset()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("persistence: put content blob: %w", err)
	}
	return id, nil
}

func (a ContentAdapter) Get(ctx context.Context, contentID int64) (ContentBlobRow, error) {
	const query = `SELECT * FROM content_blobs WHERE id = $1`
	var row ContentBlobRow
	if err := a.db.GetContext(ctx, &row, query, contentID); err != nil {
		return ContentBlobRow{}, fmt.Errorf("persistence: get content blob: %w", err)
	}
	return row, nil
}
