// Package scheduler composes the frontier, fetch/classify pipeline,
// place/topic extractor, similarity engine, and persistence adapters
// into the bounded worker pool that drives one crawl job end to end.
package scheduler

import (
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rohmanhakim/newscrawl/internal/classify"
	"github.com/rohmanhakim/newscrawl/internal/extractor"
	"github.com/rohmanhakim/newscrawl/internal/fetcher"
	"github.com/rohmanhakim/newscrawl/internal/frontier"
	"github.com/rohmanhakim/newscrawl/internal/gazetteer"
	"github.com/rohmanhakim/newscrawl/internal/robots"
	"github.com/rohmanhakim/newscrawl/internal/sanitizer"
	"github.com/rohmanhakim/newscrawl/internal/similarity"
	"github.com/rohmanhakim/newscrawl/internal/storage"
	"github.com/rohmanhakim/newscrawl/internal/telemetry"
	"github.com/rohmanhakim/newscrawl/pkg/hashutil"
	"github.com/rohmanhakim/newscrawl/pkg/limiter"
)

// Deps bundles every collaborator the scheduler drives. Deps fields are
// exported so cmd/crawl and internal/daemon can construct a job without
// the scheduler package owning wiring decisions that belong to its
// callers (e.g. which sink implementation, which hash algorithm).
type Deps struct {
	DB         *sqlx.DB
	Recorder   *telemetry.Recorder
	Gazetteer  gazetteer.Gazetteer
	Robots     *robots.CachedRobot
	RateLimit  *limiter.ConcurrentRateLimiter
	Sink       storage.Sink
	LSH        *similarity.LSHIndex
	HashAlgo   hashutil.HashAlgo
	Sanitizer  sanitizer.HtmlSanitizer
	Classifier classify.Classifier
	Extractor  extractor.ArticleExtractor
	Fetcher    fetcher.HtmlFetcher
}

// RunSummary is returned when a job terminates: the terminal reason plus
// the aggregate counts a completed-job summary needs.
type RunSummary struct {
	JobID        string
	StopReason   frontier.StopReason
	PagesFetched int
	Errors       int
	PlacesFound  int
	HubsDetected int
	Duration     time.Duration
}

// xpathCacheEntry is the in-process cache of a host's best-known
// article XPath, refreshed from the planner adapter on first use per
// host and replaced when extraction learns a new XPath.
type xpathCacheEntry struct {
	expr      string
	patternID int64
	learnedAt time.Time
}

func newConditionalHeaders(headers map[string]string) (etag, lastModified string) {
	return headers["Etag"], headers["Last-Modified"]
}
