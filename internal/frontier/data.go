// Package frontier holds the prioritized URL queue for one running crawl
// job: a global max-heap keyed by priority, per-host politeness queues, a
// dedup set, and a bounded in-flight set, per spec §4.1.
package frontier

import (
	"net/url"
	"time"
)

// UrlTicket is what Dequeue hands a worker: an admitted URL plus the
// ordering/depth metadata it was enqueued with. It carries no semantic
// policy decisions — those were already settled by Enqueue.
type UrlTicket struct {
	URL        url.URL
	Host       string
	Depth      int
	Priority   float64
	Attempt    int
	EnqueuedAt time.Time
}

// AdmissionOutcome is Enqueue's return value, per spec §4.1's
// "Returns accepted|dedup|dropped".
type AdmissionOutcome string

const (
	Accepted AdmissionOutcome = "accepted"
	Dedup    AdmissionOutcome = "dedup"
	Dropped  AdmissionOutcome = "dropped"
)

// CompletionOutcome classifies how a dispatched ticket finished, per
// spec §4.1's complete() and §4's failure semantics.
type CompletionOutcome string

const (
	OutcomeSuccess            CompletionOutcome = "success"
	OutcomeRetryableTransient CompletionOutcome = "retryable_transient"
	OutcomePermanentError     CompletionOutcome = "permanent_error"
)

// StopReason is one of the four terminal conditions spec §4.1 names.
type StopReason string

const (
	StopMaxDownloads     StopReason = "max_downloads"
	StopEmptyFrontier    StopReason = "empty_frontier"
	StopDeadlineExceeded StopReason = "deadline_exceeded"
	StopOperatorStop     StopReason = "operator_stop"
)

// DropReason names why Enqueue refused a URL, mirrored into the
// queue_events persistence adapter's `reason` column.
const (
	ReasonRobots    = "robots"
	ReasonScope     = "scope"
	ReasonMalformed = "malformed_url"
	ReasonDraining  = "draining"
)

// ScopePredicate decides whether a URL is in-crawl-scope (same
// registrable domain, allowed path prefix, …). Frontier never encodes
// scope policy itself; it only consults this hook, per spec §9's
// preference for explicit collaborators over hidden global state.
type ScopePredicate func(u url.URL) bool

// RobotsDecider reports whether u may be crawled and any crawl-delay the
// host's robots.txt declared. A nil decider allows every URL, matching
// the "fail open" posture internal/robots.CachedRobot already uses.
type RobotsDecider func(u url.URL) (allowed bool, crawlDelay time.Duration)

// GapPredictor supplies the §4.1 priority component 2 ("Gap-prediction
// boost"): unresolved coverage gaps whose target matches this URL.
// Returned value is clamped to [0, 0.3] by the caller.
type GapPredictor func(u url.URL) float64

// ProblemPenalizer supplies §4.1 priority component 3 ("Problem-cluster
// boost"): deprioritises URLs whose sibling has a cluster of recent
// failures. Returned value is clamped to [0, 0.2] by the caller.
type ProblemPenalizer func(u url.URL) float64

// Stats is a point-in-time snapshot of the frontier's lifetime counters,
// exposed for telemetry and the §8 invariant
// "enqueue == dequeue + dropped + dedup".
type Stats struct {
	Enqueued uint64
	Dequeued uint64
	Dropped  uint64
	Deduped  uint64
}
