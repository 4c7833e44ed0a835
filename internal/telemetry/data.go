package telemetry

import "time"

// FetchEvent is emitted once per fetch attempt, successful or not.
type FetchEvent struct {
	FetchURL    string
	HTTPStatus  int
	Duration    time.Duration
	ContentType string
	RetryCount  int
	CrawlDepth  int
}

// CrawlStats is a terminal, derived summary of a completed crawl.
//
//   - Contains only aggregate counts and durations.
//   - Computed by the scheduler after crawl termination.
//   - Recorded exactly once.
//   - Must not influence scheduling, retries, or crawl termination.
type CrawlStats struct {
	TotalPages   int
	TotalErrors  int
	TotalAssets  int
	DurationMs   int64
	PlacesFound  int
	HubsDetected int
}

type ArtifactRecord struct {
	Kind  ArtifactKind
	Path  string
	Attrs []Attribute
}

type ArtifactKind string

const (
	ArtifactContentBlob ArtifactKind = "content_blob"
	ArtifactAnalysis    ArtifactKind = "analysis"
)

// ErrorCause is a closed, canonical classification used exclusively for
// observability (logging, metrics, reporting).
//
// Rules:
//   - ErrorCause is for observability only.
//   - It must never be used to derive retry, continuation, or abort decisions.
//   - ErrorCause values have stable, package-agnostic semantics.
//   - Pipeline packages map their local errors to ErrorCause but never invent
//     new meanings.
//
// If a failure does not clearly match a defined cause, CauseUnknown is used.
type ErrorCause int

const (
	CauseUnknown ErrorCause = iota
	CauseNetworkFailure
	CausePolicyDisallow
	CauseContentInvalid
	CauseStorageFailure
	CauseInvariantViolation
	CauseRateLimited
)

func (c ErrorCause) String() string {
	switch c {
	case CauseNetworkFailure:
		return "network_failure"
	case CausePolicyDisallow:
		return "policy_disallow"
	case CauseContentInvalid:
		return "content_invalid"
	case CauseStorageFailure:
		return "storage_failure"
	case CauseInvariantViolation:
		return "invariant_violation"
	case CauseRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

type ErrorRecord struct {
	PackageName string
	Action      string
	Cause       ErrorCause
	ErrorString string
	ObservedAt  time.Time
	Attrs       []Attribute
}

type Attribute struct {
	Key   AttributeKey
	Value string
}

func NewAttr(key AttributeKey, val string) Attribute {
	return Attribute{Key: key, Value: val}
}

type AttributeKey string

const (
	AttrTime        AttributeKey = "time"
	AttrURL         AttributeKey = "url"
	AttrHost        AttributeKey = "host"
	AttrPath        AttributeKey = "path"
	AttrDepth       AttributeKey = "depth"
	AttrField       AttributeKey = "field"
	AttrHTTPStatus  AttributeKey = "http_status"
	AttrAssetURL    AttributeKey = "asset_url"
	AttrWritePath   AttributeKey = "write_path"
	AttrJobID       AttributeKey = "job_id"
	AttrStage       AttributeKey = "stage"
	AttrContentID   AttributeKey = "content_id"
	AttrDuplicateOf AttributeKey = "duplicate_of"
)

// QueueEvent mirrors a single frontier admission decision, for the
// queue_events persistence adapter.
type QueueEvent struct {
	URL        string
	Host       string
	Depth      int
	Outcome    QueueOutcome
	Reason     string
	ObservedAt time.Time
}

type QueueOutcome string

const (
	QueueAccepted QueueOutcome = "accepted"
	QueueDedup    QueueOutcome = "dedup"
	QueueDropped  QueueOutcome = "dropped"
)
