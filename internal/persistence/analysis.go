package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// AnalysisAdapter implements the §6 `analysis` logical adapter: put and
// latest_by_content. analysis_version monotonically increases per
// content_id; readers always filter to the latest, per spec §3.
type AnalysisAdapter struct {
	db *sqlx.DB
}

func NewAnalysisAdapter(db *sqlx.DB) AnalysisAdapter {
	return AnalysisAdapter{db: db}
}

type NewAnalysis struct {
	Kind         string
	Title        string
	Section      string
	WordCount    int
	ArticleXPath string
	Findings     Findings
}

// Put inserts the next analysis_version for contentID. The caller is
// responsible for serialising writes per content_id if it needs
// sequential versions without gaps; concurrent inserts simply race to
// claim distinct version numbers via the unique (content_id, version)
// constraint.
func (a AnalysisAdapter) Put(ctx context.Context, contentID int64, analysis NewAnalysis) (int64, error) {
	findingsJSON, err := json.Marshal(analysis.Findings)
	if err != nil {
		return 0, fmt.Errorf("persistence: marshal findings: %w", err)
	}

	const versionQuery = `
		SELECT COALESCE(MAX(analysis_version), 0) + 1
		FROM analyses WHERE content_id = $1`
	var version int
	if err := a.db.GetContext(ctx, &version, versionQuery, contentID); err != nil {
		return 0, fmt.Errorf("persistence: next analysis version: %w", err)
	}

	const insertQuery = `
		INSERT INTO analyses
			(content_id, analysis_version, kind, title, section, word_count, article_xpath, findings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	var id int64
	err = a.db.QueryRowxContext(ctx, insertQuery, contentID, version,
		analysis.Kind, analysis.Title, analysis.Section, analysis.WordCount, analysis.ArticleXPath, findingsJSON,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("persistence: put analysis: %w", err)
	}
	return id, nil
}

// LatestByContent returns the highest analysis_version row for contentID.
func (a AnalysisAdapter) LatestByContent(ctx context.Context, contentID int64) (AnalysisRow, Findings, error) {
	const query = `
		SELECT * FROM analyses
		WHERE content_id = $1
		ORDER BY analysis_version DESC
		LIMIT 1`

	var row AnalysisRow
	if err := a.db.GetContext(ctx, &row, query, contentID); err != nil {
		return AnalysisRow{}, Findings{}, fmt.Errorf("persistence: latest analysis: %w", err)
	}

	var findings Findings
	if err := json.Unmarshal(row.FindingsJSON, &findings); err != nil {
		return row, Findings{}, fmt.Errorf("persistence: unmarshal findings: %w", err)
	}
	return row, findings, nil
}
