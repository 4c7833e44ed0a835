package persistence

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rohmanhakim/newscrawl/internal/telemetry"
)

// QueueEventsAdapter implements the §6 `queue_events` logical adapter.
type QueueEventsAdapter struct {
	db *sqlx.DB
}

func NewQueueEventsAdapter(db *sqlx.DB) QueueEventsAdapter {
	return QueueEventsAdapter{db: db}
}

// Append writes one frontier admission/dispatch event. jobID scopes the
// row to the crawl job that produced it; telemetry.QueueEvent itself
// carries no job identity, so the scheduler supplies it here.
func (a QueueEventsAdapter) Append(ctx context.Context, jobID string, priorityScore float64, action string, ev telemetry.QueueEvent) error {
	const query = `
		INSERT INTO queue_events (job_id, ts, action, url, host, depth, priority_score, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := a.db.ExecContext(ctx, query,
		jobID, ev.ObservedAt, action, ev.URL, ev.Host, ev.Depth, priorityScore, ev.Reason,
	)
	if err != nil {
		return fmt.Errorf("persistence: append queue event: %w", err)
	}
	return nil
}

// CountsByAction returns the per-action event counts for jobID, used to
// check spec §8's invariant that enqueue == dequeue + dropped + dedup.
func (a QueueEventsAdapter) CountsByAction(ctx context.Context, jobID string) (map[string]int, error) {
	const query = `
		SELECT action, COUNT(*) AS n FROM queue_events
		WHERE job_id = $1 GROUP BY action`

	rows, err := a.db.QueryxContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("persistence: count queue events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, fmt.Errorf("persistence: scan queue event count: %w", err)
		}
		counts[action] = n
	}
	return counts, rows.Err()
}
