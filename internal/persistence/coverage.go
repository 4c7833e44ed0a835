package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CoverageAdapter implements the §6 `coverage` logical adapter: snapshot,
// record_gap, resolve_gap, record_milestone.
type CoverageAdapter struct {
	db *sqlx.DB
}

func NewCoverageAdapter(db *sqlx.DB) CoverageAdapter {
	return CoverageAdapter{db: db}
}

// Snapshot persists a point-in-time CoverageSnapshot (spec §3): expected
// vs. discovered hub counts and the active problem list for jobID.
func (a CoverageAdapter) Snapshot(ctx context.Context, jobID string, expectedHubs, discoveredHubs int, activeProblems []string) error {
	problemsJSON, err := json.Marshal(activeProblems)
	if err != nil {
		return fmt.Errorf("persistence: marshal active problems: %w", err)
	}

	const query = `
		INSERT INTO coverage_snapshots (job_id, expected_hubs, discovered_hubs, active_problems)
		VALUES ($1, $2, $3, $4)`

	if _, err := a.db.ExecContext(ctx, query, jobID, expectedHubs, discoveredHubs, problemsJSON); err != nil {
		return fmt.Errorf("persistence: coverage snapshot: %w", err)
	}
	return nil
}

// RecordGap opens a coverage gap for placeSlug/topicSlug under jobID.
func (a CoverageAdapter) RecordGap(ctx context.Context, jobID, placeSlug, topicSlug string) (int64, error) {
	const query = `
		INSERT INTO coverage_gaps (job_id, place_slug, topic_slug)
		VALUES ($1, $2, $3)
		RETURNING id`

	var id int64
	if err := a.db.QueryRowxContext(ctx, query, jobID, placeSlug, topicSlug).Scan(&id); err != nil {
		return 0, fmt.Errorf("persistence: record gap: %w", err)
	}
	return id, nil
}

// ResolveGap marks a previously opened gap resolved.
func (a CoverageAdapter) ResolveGap(ctx context.Context, gapID int64) error {
	const query = `UPDATE coverage_gaps SET resolved_at = now() WHERE id = $1 AND resolved_at IS NULL`
	if _, err := a.db.ExecContext(ctx, query, gapID); err != nil {
		return fmt.Errorf("persistence: resolve gap: %w", err)
	}
	return nil
}

// OpenGaps lists currently unresolved gaps for jobID, consumed by the
// frontier's GapPredictor to boost priority toward under-covered hubs.
func (a CoverageAdapter) OpenGaps(ctx context.Context, jobID string) ([]CoverageGapRow, error) {
	const query = `
		SELECT * FROM coverage_gaps
		WHERE job_id = $1 AND resolved_at IS NULL
		ORDER BY opened_at`

	var rows []CoverageGapRow
	if err := a.db.SelectContext(ctx, &rows, query, jobID); err != nil {
		return nil, fmt.Errorf("persistence: open gaps: %w", err)
	}
	return rows, nil
}

// RecordMilestone appends a reached milestone label for jobID (e.g. "50
// hubs discovered").
func (a CoverageAdapter) RecordMilestone(ctx context.Context, jobID, label string) error {
	const query = `INSERT INTO coverage_milestones (job_id, label) VALUES ($1, $2)`
	if _, err := a.db.ExecContext(ctx, query, jobID, label); err != nil {
		return fmt.Errorf("persistence: record milestone: %w", err)
	}
	return nil
}
