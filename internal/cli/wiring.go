// Package cli assembles a runnable scheduler.Scheduler from a
// config.Config: the fetcher/extractor/sanitizer/classifier stack,
// gazetteer, robots cache, rate limiter, similarity index, and (when a
// DSN is configured) the persistence adapters and migrations. Both
// cmd/crawl and internal/daemon share this wiring so the two front
// ends never drift on how a job gets built.
package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rohmanhakim/newscrawl/internal/classify"
	"github.com/rohmanhakim/newscrawl/internal/config"
	"github.com/rohmanhakim/newscrawl/internal/extractor"
	"github.com/rohmanhakim/newscrawl/internal/fetcher"
	"github.com/rohmanhakim/newscrawl/internal/gazetteer"
	"github.com/rohmanhakim/newscrawl/internal/persistence"
	"github.com/rohmanhakim/newscrawl/internal/robots"
	"github.com/rohmanhakim/newscrawl/internal/sanitizer"
	"github.com/rohmanhakim/newscrawl/internal/scheduler"
	"github.com/rohmanhakim/newscrawl/internal/similarity"
	"github.com/rohmanhakim/newscrawl/internal/storage"
	"github.com/rohmanhakim/newscrawl/internal/telemetry"
	"github.com/rohmanhakim/newscrawl/pkg/hashutil"
	"github.com/rohmanhakim/newscrawl/pkg/limiter"
)

// BuildOptions carries the pieces of wiring that live outside cfg
// itself: where the gazetteer's NDJSON tables live, and the postgres
// DSN to persist to (both optional — an empty GazetteerDir runs
// without place/topic data, and an empty DSN runs memory-only).
type BuildOptions struct {
	GazetteerDir string
	DSN          string
	HashAlgo     hashutil.HashAlgo
}

// Build wires one scheduler.Scheduler for jobID from cfg and opts. The
// returned cleanup func closes anything Build opened (the database
// connection); callers must defer it regardless of error.
func Build(jobID string, cfg config.Config, opts BuildOptions, recorder *telemetry.Recorder) (*scheduler.Scheduler, func(), error) {
	closers := make([]func(), 0, 1)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	hashAlgo := opts.HashAlgo
	if hashAlgo == "" {
		hashAlgo = hashutil.HashAlgoBLAKE3
	}

	extractParam := extractor.DefaultExtractParam()
	if v := cfg.LinkDensityThreshold(); v > 0 {
		extractParam.LinkDensityThreshold = v
	}
	if v := cfg.BodySpecificityBias(); v > 0 {
		extractParam.BodySpecificityBias = v
	}

	htmlFetcher := fetcher.NewHtmlFetcher(recorder)
	htmlFetcher.Init(&http.Client{Timeout: 2 * time.Minute})

	rl := limiter.NewConcurrentRateLimiter()
	rl.SetBaseDelay(cfg.BaseDelay())
	rl.SetJitter(cfg.Jitter())
	rl.SetRandomSeed(cfg.RandomSeed())

	robotsCache := robots.NewCachedRobot(recorder, cfg.UserAgent())

	deps := scheduler.Deps{
		Recorder:   recorder,
		Sanitizer:  sanitizer.NewHTMLSanitizer(recorder),
		Classifier: classify.NewClassifier(classify.DefaultClassifyParam()),
		Extractor:  extractor.NewArticleExtractor(recorder, extractParam),
		Sink:       storage.NewLocalSink(recorder),
		LSH:        similarity.NewLSHIndex(),
		HashAlgo:   hashAlgo,
		Fetcher:    htmlFetcher,
		RateLimit:  rl,
		Robots:     &robotsCache,
	}

	if opts.GazetteerDir != "" {
		gz, gzErr := gazetteer.LoadFromDir(opts.GazetteerDir)
		if gzErr != nil {
			return nil, closeAll, fmt.Errorf("cli: load gazetteer: %w", gzErr)
		}
		deps.Gazetteer = gz
	}

	if opts.DSN != "" {
		db, err := persistence.Open(opts.DSN)
		if err != nil {
			return nil, closeAll, fmt.Errorf("cli: open database: %w", err)
		}
		closers = append(closers, func() { _ = db.Close() })

		if err := persistence.Migrate(db); err != nil {
			return nil, closeAll, fmt.Errorf("cli: migrate database: %w", err)
		}
		deps.DB = db
	}

	s := scheduler.New(jobID, cfg, deps)
	return s, closeAll, nil
}
