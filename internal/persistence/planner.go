package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// PlannerAdapter implements the §6 `planner` logical adapter: the
// learned-XPath-pattern store that backs the extractor's per-domain
// pattern cache (spec §4.2 step "XPath pattern lookup/learn").
type PlannerAdapter struct {
	db *sqlx.DB
}

func NewPlannerAdapter(db *sqlx.DB) PlannerAdapter {
	return PlannerAdapter{db: db}
}

// RecordPattern learns a new extraction pattern for domain, or leaves an
// existing (domain, expr) pair untouched.
func (a PlannerAdapter) RecordPattern(ctx context.Context, domain, expr string, confidence float64) (int64, error) {
	const query = `
		INSERT INTO xpath_patterns (domain, expr, confidence)
		VALUES ($1, $2, $3)
		ON CONFLICT (domain, expr) DO NOTHING
		RETURNING id`

	var id int64
	err := a.db.QueryRowxContext(ctx, query, domain, expr, confidence).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return a.idFor(ctx, domain, expr)
	}
	if err != nil {
		return 0, fmt.Errorf("persistence: record pattern: %w", err)
	}
	return id, nil
}

func (a PlannerAdapter) idFor(ctx context.Context, domain, expr string) (int64, error) {
	const query = `SELECT id FROM xpath_patterns WHERE domain = $1 AND expr = $2`
	var id int64
	if err := a.db.GetContext(ctx, &id, query, domain, expr); err != nil {
		return 0, fmt.Errorf("persistence: lookup xpath pattern: %w", err)
	}
	return id, nil
}

// PatternsByDomain returns domain's learned patterns with confidence at
// or above minConfidence, highest confidence first.
func (a PlannerAdapter) PatternsByDomain(ctx context.Context, domain string, minConfidence float64) ([]XPathPatternRow, error) {
	const query = `
		SELECT * FROM xpath_patterns
		WHERE domain = $1 AND confidence >= $2
		ORDER BY confidence DESC`

	var rows []XPathPatternRow
	if err := a.db.SelectContext(ctx, &rows, query, domain, minConfidence); err != nil {
		return nil, fmt.Errorf("persistence: patterns by domain: %w", err)
	}
	return rows, nil
}

// UpdatePatternSuccess bumps success_count and nudges confidence upward,
// per spec §4.2's "learned pattern gains confidence on repeated success".
func (a PlannerAdapter) UpdatePatternSuccess(ctx context.Context, patternID int64) error {
	const query = `
		UPDATE xpath_patterns
		SET success_count = success_count + 1,
		    confidence = LEAST(1.0, confidence + 0.05)
		WHERE id = $1`
	if _, err := a.db.ExecContext(ctx, query, patternID); err != nil {
		return fmt.Errorf("persistence: update pattern success: %w", err)
	}
	return nil
}

// UpdatePatternFailure bumps failure_count and decays confidence.
func (a PlannerAdapter) UpdatePatternFailure(ctx context.Context, patternID int64) error {
	const query = `
		UPDATE xpath_patterns
		SET failure_count = failure_count + 1,
		    confidence = GREATEST(0.0, confidence - 0.15)
		WHERE id = $1`
	if _, err := a.db.ExecContext(ctx, query, patternID); err != nil {
		return fmt.Errorf("persistence: update pattern failure: %w", err)
	}
	return nil
}

// HubValidations counts, per topic_slug, how many distinct hub_candidates
// rows under domain carry a non-empty topic — a proxy for how well the
// gazetteer's hub detection is validating against real pages for that
// domain, consumed when deciding whether to keep trusting a domain's
// learned patterns. hub_candidates has no confidence column of its own,
// so this reads through urls.host rather than xpath_patterns.domain.
func (a PlannerAdapter) HubValidations(ctx context.Context, domain string) (map[string]int, error) {
	const query = `
		SELECT hc.topic_slug, COUNT(*) AS n
		FROM hub_candidates hc
		JOIN urls u ON u.id = hc.url_id
		WHERE u.host = $1 AND hc.topic_slug <> ''
		GROUP BY hc.topic_slug`

	rows, err := a.db.QueryxContext(ctx, query, domain)
	if err != nil {
		return nil, fmt.Errorf("persistence: hub validations: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var topicSlug string
		var n int
		if err := rows.Scan(&topicSlug, &n); err != nil {
			return nil, fmt.Errorf("persistence: scan hub validation: %w", err)
		}
		counts[topicSlug] = n
	}
	return counts, rows.Err()
}
