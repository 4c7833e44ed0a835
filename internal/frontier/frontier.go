// Package frontier: see data.go for the public types.
package frontier

import (
	"container/heap"
	"net/url"
	"sync"
	"time"

	"github.com/rohmanhakim/newscrawl/internal/telemetry"
	"github.com/rohmanhakim/newscrawl/pkg/limiter"
	"github.com/rohmanhakim/newscrawl/pkg/urlutil"
)

// Frontier is the prioritized URL queue for one running crawl job, per
// spec §4.1. It owns visited-set dedup, per-host politeness (delegated to
// a limiter.RateLimiter), a bounded in-flight set, and the priority heap.
// All methods are safe for concurrent use by multiple workers.
type Frontier struct {
	mu         sync.Mutex
	heap       priorityHeap
	hostQueues map[string][]*ticketItem
	visited    Set[string]
	inFlight   map[string]struct{}
	seq        uint64
	draining   bool
	stats      Stats

	concurrency int
	maxAttempts int

	recorder         *telemetry.Recorder
	limiter          limiter.RateLimiter
	scope            ScopePredicate
	robots           RobotsDecider
	gapPredictor     GapPredictor
	problemPenalizer ProblemPenalizer
}

// NewFrontier builds an empty frontier. scope must not be nil; it is the
// only admission gate Enqueue applies besides dedup and robots.
func NewFrontier(concurrency, maxAttempts int, rl limiter.RateLimiter, recorder *telemetry.Recorder, scope ScopePredicate) *Frontier {
	if concurrency <= 0 {
		concurrency = 1
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Frontier{
		hostQueues:  make(map[string][]*ticketItem),
		visited:     NewSet[string](),
		inFlight:    make(map[string]struct{}),
		concurrency: concurrency,
		maxAttempts: maxAttempts,
		recorder:    recorder,
		limiter:     rl,
		scope:       scope,
	}
}

func (f *Frontier) WithRobotsDecider(d RobotsDecider) *Frontier {
	f.robots = d
	return f
}

func (f *Frontier) WithGapPredictor(g GapPredictor) *Frontier {
	f.gapPredictor = g
	return f
}

func (f *Frontier) WithProblemPenalizer(p ProblemPenalizer) *Frontier {
	f.problemPenalizer = p
	return f
}

// Enqueue canonicalises u, checks scope/robots/dedup admission in order,
// and — if accepted — pushes it onto the priority heap. The atomic
// "insert-if-absent into visited" happens before the heap push, per
// spec §5's enqueue-before-dequeue ordering guarantee.
func (f *Frontier) Enqueue(u url.URL, depth int, attempt int) AdmissionOutcome {
	canonical := urlutil.Canonicalize(u)
	key := canonical.String()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.draining {
		f.stats.Dropped++
		f.emitQueueEvent(canonical, depth, Dropped, ReasonDraining)
		return Dropped
	}

	if f.scope != nil && !f.scope(canonical) {
		f.stats.Dropped++
		f.emitQueueEvent(canonical, depth, Dropped, ReasonScope)
		return Dropped
	}

	if f.robots != nil {
		if allowed, crawlDelay := f.robots(canonical); !allowed {
			f.stats.Dropped++
			f.emitQueueEvent(canonical, depth, Dropped, ReasonRobots)
			return Dropped
		} else if crawlDelay > 0 {
			f.limiter.SetCrawlDelay(canonical.Host, crawlDelay)
		}
	}

	if f.visited.Contains(key) {
		f.stats.Deduped++
		f.emitQueueEvent(canonical, depth, Dedup, "")
		return Dedup
	}
	f.visited.Add(key)

	priority := f.priorityFor(canonical, depth)
	f.seq++
	item := &ticketItem{
		seq: f.seq,
		ticket: UrlTicket{
			URL:        canonical,
			Host:       canonical.Host,
			Depth:      depth,
			Priority:   priority,
			Attempt:    attempt,
			EnqueuedAt: time.Now(),
		},
	}
	heap.Push(&f.heap, item)
	f.stats.Enqueued++
	f.emitQueueEvent(canonical, depth, Accepted, "")
	return Accepted
}

func (f *Frontier) priorityFor(u url.URL, depth int) float64 {
	var gapBoost, problemPenalty float64
	if f.gapPredictor != nil {
		gapBoost = f.gapPredictor(u)
	}
	if f.problemPenalizer != nil {
		problemPenalty = f.problemPenalizer(u)
	}
	return computePriority(depth, u.Path, gapBoost, problemPenalty)
}

// Dequeue returns the next eligible ticket: the highest-priority URL
// whose host politeness delay has elapsed, as long as fewer than
// concurrency tickets are currently in flight. It blocks on nothing —
// non-blocking mode per spec §4.1 — returning ok=false when no URL is
// presently eligible (the caller should back off and retry).
func (f *Frontier) Dequeue() (UrlTicket, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.promoteEligibleHostQueues()

	if len(f.inFlight) >= f.concurrency {
		return UrlTicket{}, false
	}

	var buffered []*ticketItem
	for f.heap.Len() > 0 {
		item := heap.Pop(&f.heap).(*ticketItem)
		if f.limiter.ResolveDelay(item.ticket.Host) > 0 {
			f.hostQueues[item.ticket.Host] = append(f.hostQueues[item.ticket.Host], item)
			continue
		}
		for _, b := range buffered {
			heap.Push(&f.heap, b)
		}
		f.inFlight[item.ticket.URL.String()] = struct{}{}
		f.limiter.MarkLastFetchAsNow(item.ticket.Host)
		f.stats.Dequeued++
		f.emitQueueEvent(item.ticket.URL, item.ticket.Depth, "", "")
		return item.ticket, true
	}
	for _, b := range buffered {
		heap.Push(&f.heap, b)
	}
	return UrlTicket{}, false
}

// promoteEligibleHostQueues moves any parked per-host tickets whose
// politeness delay has now elapsed back onto the global heap.
func (f *Frontier) promoteEligibleHostQueues() {
	for host, queue := range f.hostQueues {
		if len(queue) == 0 {
			continue
		}
		if f.limiter.ResolveDelay(host) > 0 {
			continue
		}
		ready := queue[0]
		f.hostQueues[host] = queue[1:]
		heap.Push(&f.heap, ready)
	}
}

// Complete removes ticket from the in-flight set, updates host politeness
// bookkeeping, and — for a retryable transient outcome within
// max_attempts — re-enqueues it with decayed priority, per spec §4.1.
func (f *Frontier) Complete(ticket UrlTicket, outcome CompletionOutcome) {
	f.mu.Lock()
	delete(f.inFlight, ticket.URL.String())
	f.mu.Unlock()

	switch outcome {
	case OutcomeSuccess:
		f.limiter.ResetBackoff(ticket.Host)
	case OutcomeRetryableTransient:
		f.limiter.Backoff(ticket.Host)
		if ticket.Attempt+1 < f.maxAttempts {
			f.mu.Lock()
			// A retried URL is no longer "new"; bypass visited-set dedup
			// by removing its key so Enqueue re-admits it.
			f.visited.Remove(ticket.URL.String())
			f.mu.Unlock()
			f.Enqueue(ticket.URL, ticket.Depth, ticket.Attempt+1)
		}
	case OutcomePermanentError:
		// No retry; the URL stays visited so it is never re-queued.
	}
}

// DrainStop refuses new enqueues from this point on. In-flight tickets
// already dequeued are left for the caller to finish via Complete.
func (f *Frontier) DrainStop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draining = true
}

// Draining reports whether DrainStop has been called.
func (f *Frontier) Draining() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draining
}

// Empty reports whether the frontier has no pending work: nothing on the
// heap, nothing parked in a host queue, and nothing in flight.
func (f *Frontier) Empty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.heap.Len() > 0 || len(f.inFlight) > 0 {
		return false
	}
	for _, q := range f.hostQueues {
		if len(q) > 0 {
			return false
		}
	}
	return true
}

// InFlightCount reports how many tickets are currently dispatched.
func (f *Frontier) InFlightCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.inFlight)
}

// Stats returns a snapshot of the frontier's lifetime counters.
func (f *Frontier) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// emitQueueEvent publishes a telemetry.QueueEvent. Dedup and Dropped map
// to their telemetry outcomes; any other outcome, including the empty one
// Dequeue passes, is recorded as telemetry.QueueAccepted, so dequeues are
// not distinguished from accepted enqueues in the event stream.
func (f *Frontier) emitQueueEvent(u url.URL, depth int, outcome AdmissionOutcome, reason string) {
	if f.recorder == nil {
		return
	}
	qOutcome := telemetry.QueueAccepted
	switch outcome {
	case Dedup:
		qOutcome = telemetry.QueueDedup
	case Dropped:
		qOutcome = telemetry.QueueDropped
	}
	f.recorder.RecordQueueEvent(telemetry.QueueEvent{
		URL:        u.String(),
		Host:       u.Host,
		Depth:      depth,
		Outcome:    qOutcome,
		Reason:     reason,
		ObservedAt: time.Now(),
	})
}
