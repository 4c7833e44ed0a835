// Package coverage tracks, per crawl job, how much of the expected hub
// surface has been discovered and which coverage gaps remain open. It is
// a thin struct over the persistence layer's coverage adapter (spec §3's
// CoverageSnapshot, §4.1's gap-prediction boost), not an independent
// store of its own.
package coverage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/rohmanhakim/newscrawl/internal/persistence"
)

// Snapshot mirrors spec §3's CoverageSnapshot: a per-job rolling view of
// expected vs. discovered hubs, gap list, and active problems.
type Snapshot struct {
	JobID          string
	ExpectedHubs   int
	DiscoveredHubs int
	ActiveProblems []string
}

// milestoneThresholds are the hub-discovery counts that trigger a
// recorded milestone. 10/50/100/500/1000 mirrors the round numbers an
// operator dashboard would actually want to see.
var milestoneThresholds = []int{10, 50, 100, 500, 1000}

// Tracker accumulates in-memory coverage state for one job and persists
// snapshots/milestones through a persistence.CoverageAdapter.
type Tracker struct {
	mu sync.Mutex

	jobID   string
	adapter persistence.CoverageAdapter

	expectedHubs      int
	discoveredHubs    int
	milestonesReached map[int]bool

	// problemHosts holds hosts currently flagged as a "problem cluster"
	// (spec §4.1's −0.2 problem-cluster boost), keyed by host.
	problemHosts map[string]string

	// openGapsBySlug indexes currently open gaps by place slug for the
	// frontier's gap predictor, avoiding a DB round-trip per enqueue.
	openGapsBySlug map[string][]int64
}

func NewTracker(jobID string, adapter persistence.CoverageAdapter, expectedHubs int) *Tracker {
	return &Tracker{
		jobID:             jobID,
		adapter:           adapter,
		expectedHubs:      expectedHubs,
		milestonesReached: make(map[int]bool),
		problemHosts:      make(map[string]string),
		openGapsBySlug:    make(map[string][]int64),
	}
}

// Seed loads currently-open gaps from persistence, for resuming a job
// whose gap list predates this process.
func (t *Tracker) Seed(ctx context.Context) error {
	gaps, err := t.adapter.OpenGaps(ctx, t.jobID)
	if err != nil {
		return fmt.Errorf("coverage: seed open gaps: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, g := range gaps {
		t.openGapsBySlug[g.PlaceSlug] = append(t.openGapsBySlug[g.PlaceSlug], g.ID)
	}
	return nil
}

// RecordHubDiscovered increments the discovered-hub count and records a
// milestone the first time a threshold is crossed.
func (t *Tracker) RecordHubDiscovered(ctx context.Context) error {
	t.mu.Lock()
	t.discoveredHubs++
	n := t.discoveredHubs
	var crossed int
	for _, threshold := range milestoneThresholds {
		if n >= threshold && !t.milestonesReached[threshold] {
			t.milestonesReached[threshold] = true
			crossed = threshold
			break
		}
	}
	t.mu.Unlock()

	if crossed == 0 {
		return nil
	}
	return t.adapter.RecordMilestone(ctx, t.jobID, fmt.Sprintf("%d hubs discovered", crossed))
}

// HasOpenGap reports whether placeSlug already has an open gap, so
// callers don't record duplicate gap rows for every page seen under an
// unconfirmed place/topic combination.
func (t *Tracker) HasOpenGap(placeSlug string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.openGapsBySlug[placeSlug]) > 0
}

// OpenGap records a new coverage gap for placeSlug/topicSlug.
func (t *Tracker) OpenGap(ctx context.Context, placeSlug, topicSlug string) (int64, error) {
	id, err := t.adapter.RecordGap(ctx, t.jobID, placeSlug, topicSlug)
	if err != nil {
		return 0, err
	}
	t.mu.Lock()
	t.openGapsBySlug[placeSlug] = append(t.openGapsBySlug[placeSlug], id)
	t.mu.Unlock()
	return id, nil
}

// ResolveGap marks gapID resolved and drops it from the in-memory index.
func (t *Tracker) ResolveGap(ctx context.Context, gapID int64, placeSlug string) error {
	if err := t.adapter.ResolveGap(ctx, gapID); err != nil {
		return err
	}
	t.mu.Lock()
	ids := t.openGapsBySlug[placeSlug]
	for i, id := range ids {
		if id == gapID {
			t.openGapsBySlug[placeSlug] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	t.mu.Unlock()
	return nil
}

// ResolveGapsForSlug resolves every currently open gap for placeSlug, for
// when a hub page for that place is finally discovered.
func (t *Tracker) ResolveGapsForSlug(ctx context.Context, placeSlug string) error {
	t.mu.Lock()
	ids := append([]int64(nil), t.openGapsBySlug[placeSlug]...)
	t.mu.Unlock()

	for _, id := range ids {
		if err := t.ResolveGap(ctx, id, placeSlug); err != nil {
			return err
		}
	}
	return nil
}

// MarkProblem flags host as an active problem cluster, applying the
// frontier's −0.2 problem-cluster deprioritisation (spec §4.1) to every
// URL on that host until cleared.
func (t *Tracker) MarkProblem(host, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.problemHosts[host] = reason
}

func (t *Tracker) ClearProblem(host string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.problemHosts, host)
}

// Snapshot persists the current rolling view and returns it.
func (t *Tracker) Snapshot(ctx context.Context) (Snapshot, error) {
	t.mu.Lock()
	snap := Snapshot{
		JobID:          t.jobID,
		ExpectedHubs:   t.expectedHubs,
		DiscoveredHubs: t.discoveredHubs,
		ActiveProblems: problemList(t.problemHosts),
	}
	t.mu.Unlock()

	if err := t.adapter.Snapshot(ctx, snap.JobID, snap.ExpectedHubs, snap.DiscoveredHubs, snap.ActiveProblems); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func problemList(hosts map[string]string) []string {
	out := make([]string, 0, len(hosts))
	for host, reason := range hosts {
		out = append(out, host+": "+reason)
	}
	return out
}

// GapPredictor implements frontier.GapPredictor: URLs with any path
// segment matching a place slug with an open gap get the full +0.3 boost
// from spec §4.1's gap-prediction component.
func (t *Tracker) GapPredictor(u url.URL) float64 {
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, seg := range segments {
		if len(t.openGapsBySlug[seg]) > 0 {
			return 0.3
		}
	}
	return 0
}

// ProblemPenalizer implements frontier.ProblemPenalizer: URLs on a host
// flagged as an active problem cluster take the full −0.2 penalty from
// spec §4.1's problem-cluster component.
func (t *Tracker) ProblemPenalizer(u url.URL) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.problemHosts[u.Host]; ok {
		return 0.2
	}
	return 0
}
