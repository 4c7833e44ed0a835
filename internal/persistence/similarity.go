package persistence

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rohmanhakim/newscrawl/internal/similarity"
)

// SimilarityAdapter implements the §6 `similarity` logical adapter.
type SimilarityAdapter struct {
	db *sqlx.DB
}

func NewSimilarityAdapter(db *sqlx.DB) SimilarityAdapter {
	return SimilarityAdapter{db: db}
}

// SaveFingerprint persists the SimHash and (optional) MinHash signature
// for a content_id, per spec §3's SimilarityFingerprint and §6's on-wire
// formats (8 bytes little-endian SimHash, 512 bytes little-endian
// MinHash).
func (a SimilarityAdapter) SaveFingerprint(ctx context.Context, contentID int64, simHash uint64, minHash []uint32, wordCount int) error {
	simBytes := similarity.SimHashToBytes(simHash)

	var minBytes []byte
	if minHash != nil {
		minBytes = similarity.MinHashToBytes(minHash)
	}

	const query = `
		INSERT INTO similarity_fingerprints (content_id, simhash, minhash, word_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (content_id) DO UPDATE SET
			simhash = EXCLUDED.simhash, minhash = EXCLUDED.minhash, word_count = EXCLUDED.word_count`

	if _, err := a.db.ExecContext(ctx, query, contentID, simBytes[:], minBytes, wordCount); err != nil {
		return fmt.Errorf("persistence: save fingerprint: %w", err)
	}
	return nil
}

func (a SimilarityAdapter) GetFingerprint(ctx context.Context, contentID int64) (similarity.Fingerprint, error) {
	const query = `SELECT * FROM similarity_fingerprints WHERE content_id = $1`
	var row SimilarityFingerprintRow
	if err := a.db.GetContext(ctx, &row, query, contentID); err != nil {
		return similarity.Fingerprint{}, fmt.Errorf("persistence: get fingerprint: %w", err)
	}
	return rowToFingerprint(row), nil
}

// ListAll returns up to limit fingerprints, used to rebuild the in-memory
// LSH index on startup.
func (a SimilarityAdapter) ListAll(ctx context.Context, limit int) ([]similarity.Fingerprint, error) {
	const query = `SELECT * FROM similarity_fingerprints ORDER BY content_id LIMIT $1`
	var rows []SimilarityFingerprintRow
	if err := a.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("persistence: list fingerprints: %w", err)
	}

	out := make([]similarity.Fingerprint, 0, len(rows))
	for _, row := range rows {
		out = append(out, rowToFingerprint(row))
	}
	return out, nil
}

// ArticlesWithoutFingerprints pages through content_blobs whose latest
// analysis is an article but carry no similarity_fingerprints row yet —
// used by a backfill job to catch up content indexed before the
// similarity engine was wired in.
func (a SimilarityAdapter) ArticlesWithoutFingerprints(ctx context.Context, limit, offset int) ([]int64, error) {
	const query = `
		SELECT a.content_id
		FROM analyses a
		LEFT JOIN similarity_fingerprints f ON f.content_id = a.content_id
		WHERE a.kind = 'article' AND f.content_id IS NULL
		ORDER BY a.content_id
		LIMIT $1 OFFSET $2`

	var ids []int64
	if err := a.db.SelectContext(ctx, &ids, query, limit, offset); err != nil {
		return nil, fmt.Errorf("persistence: articles without fingerprints: %w", err)
	}
	return ids, nil
}

func rowToFingerprint(row SimilarityFingerprintRow) similarity.Fingerprint {
	var simArr [8]byte
	copy(simArr[:], row.SimHash)

	var minHash []uint32
	if row.MinHash != nil {
		minHash = similarity.MinHashFromBytes(row.MinHash)
	}

	return similarity.Fingerprint{
		ContentID: fmt.Sprintf("%d", row.ContentID),
		SimHash:   similarity.SimHashFromBytes(simArr),
		MinHash:   minHash,
		WordCount: row.WordCount,
	}
}
