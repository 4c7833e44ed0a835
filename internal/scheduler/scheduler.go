package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/sync/semaphore"

	"github.com/rohmanhakim/newscrawl/internal/classify"
	"github.com/rohmanhakim/newscrawl/internal/config"
	"github.com/rohmanhakim/newscrawl/internal/coverage"
	"github.com/rohmanhakim/newscrawl/internal/extractor"
	"github.com/rohmanhakim/newscrawl/internal/fetcher"
	"github.com/rohmanhakim/newscrawl/internal/frontier"
	"github.com/rohmanhakim/newscrawl/internal/gazetteer"
	"github.com/rohmanhakim/newscrawl/internal/persistence"
	"github.com/rohmanhakim/newscrawl/internal/sanitizer"
	"github.com/rohmanhakim/newscrawl/internal/similarity"
	"github.com/rohmanhakim/newscrawl/internal/telemetry"
	"github.com/rohmanhakim/newscrawl/pkg/failure"
	"github.com/rohmanhakim/newscrawl/pkg/retry"
	"github.com/rohmanhakim/newscrawl/pkg/timeutil"
)

const minWordCountForFingerprint = 50
const minWordCountForMinHash = 50
const nearDuplicateHammingThreshold = 3
const minNavLinkDensityForHub = 8
const problemHostFailureThreshold = 3

// Scheduler drives one crawl job: it owns the frontier and dispatches
// bounded concurrent workers through the eight-step fetch/classify
// pipeline described below.
type Scheduler struct {
	jobID string
	cfg   config.Config
	deps  Deps

	frontier *frontier.Frontier
	coverage *coverage.Tracker

	urls       persistence.URLAdapter
	fetches    persistence.FetchAdapter
	content    persistence.ContentAdapter
	analyses   persistence.AnalysisAdapter
	simStore   persistence.SimilarityAdapter
	queueEvts  persistence.QueueEventsAdapter
	planner    persistence.PlannerAdapter

	xpathCacheMu sync.Mutex
	xpathCache   map[string]*xpathCacheEntry

	fetchedMu    sync.Mutex
	fetched      int
	errorsN      int
	placesFound  int
	hubsDetected int

	hostFailuresMu sync.Mutex
	hostFailures   map[string]int
}

// New wires a Scheduler from cfg and deps. jobID identifies this run for
// the queue_events/coverage_snapshots/coverage_gaps/coverage_milestones
// tables, all scoped by job_id.
func New(jobID string, cfg config.Config, deps Deps) *Scheduler {
	s := &Scheduler{
		jobID:        jobID,
		cfg:          cfg,
		deps:         deps,
		xpathCache:   make(map[string]*xpathCacheEntry),
		hostFailures: make(map[string]int),
	}

	if deps.DB != nil {
		s.urls = persistence.NewURLAdapter(deps.DB)
		s.fetches = persistence.NewFetchAdapter(deps.DB)
		s.content = persistence.NewContentAdapter(deps.DB)
		s.analyses = persistence.NewAnalysisAdapter(deps.DB)
		s.simStore = persistence.NewSimilarityAdapter(deps.DB)
		s.queueEvts = persistence.NewQueueEventsAdapter(deps.DB)
		s.planner = persistence.NewPlannerAdapter(deps.DB)
		s.coverage = coverage.NewTracker(jobID, persistence.NewCoverageAdapter(deps.DB), 0)
	} else {
		s.coverage = coverage.NewTracker(jobID, persistence.CoverageAdapter{}, 0)
	}

	f := frontier.NewFrontier(cfg.Concurrency(), cfg.MaxAttempt(), deps.RateLimit, deps.Recorder, scopeFromConfig(cfg)).
		WithGapPredictor(s.coverage.GapPredictor).
		WithProblemPenalizer(s.coverage.ProblemPenalizer)

	if deps.Robots != nil {
		f = f.WithRobotsDecider(func(u url.URL) (bool, time.Duration) {
			decision := deps.Robots.Decide(context.Background(), u)
			var delay time.Duration
			if decision.CrawlDelay != nil {
				delay = *decision.CrawlDelay
			}
			return decision.Allowed, delay
		})
	}

	s.frontier = f
	return s
}

// Run seeds the frontier from cfg.SeedURLs and drives the worker pool
// until one of the four stop conditions fires.
func (s *Scheduler) Run(ctx context.Context) (RunSummary, error) {
	start := time.Now()

	for _, seed := range s.cfg.SeedURLs() {
		s.frontier.Enqueue(seed, 0, 0)
	}

	if deadline := s.cfg.Deadline(); deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	sem := semaphore.NewWeighted(int64(maxInt(s.cfg.Concurrency(), 1)))
	var wg sync.WaitGroup
	stopReason := frontier.StopEmptyFrontier

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

runLoop:
	for {
		select {
		case <-ctx.Done():
			stopReason = frontier.StopDeadlineExceeded
			if ctx.Err() == context.Canceled {
				stopReason = frontier.StopOperatorStop
			}
			break runLoop
		case <-ticker.C:
			if s.maxDownloadsReached() {
				stopReason = frontier.StopMaxDownloads
				break runLoop
			}
			for {
				ticket, ok := s.frontier.Dequeue()
				if !ok {
					break
				}
				if !sem.TryAcquire(1) {
					break
				}
				wg.Add(1)
				go func(t frontier.UrlTicket) {
					defer wg.Done()
					defer sem.Release(1)
					s.processTicket(ctx, t)
				}(ticket)
			}
			if s.frontier.Empty() && s.frontier.InFlightCount() == 0 {
				stopReason = frontier.StopEmptyFrontier
				break runLoop
			}
		}
	}

	s.frontier.DrainStop()
	wg.Wait()

	if s.deps.Recorder != nil {
		s.deps.Recorder.RecordFinalCrawlStats(telemetry.CrawlStats{
			TotalPages:   s.fetched,
			TotalErrors:  s.errorsN,
			DurationMs:   time.Since(start).Milliseconds(),
			PlacesFound:  s.placesFound,
			HubsDetected: s.hubsDetected,
		})
	}

	return RunSummary{
		JobID:        s.jobID,
		StopReason:   stopReason,
		PagesFetched: s.fetched,
		Errors:       s.errorsN,
		PlacesFound:  s.placesFound,
		HubsDetected: s.hubsDetected,
		Duration:     time.Since(start),
	}, nil
}

func (s *Scheduler) maxDownloadsReached() bool {
	max := s.cfg.MaxDownloads()
	if max <= 0 {
		return false
	}
	s.fetchedMu.Lock()
	defer s.fetchedMu.Unlock()
	return s.fetched >= max
}

func (s *Scheduler) incFetched() {
	s.fetchedMu.Lock()
	s.fetched++
	s.fetchedMu.Unlock()
}

func (s *Scheduler) incError() {
	s.fetchedMu.Lock()
	s.errorsN++
	s.fetchedMu.Unlock()
}

func (s *Scheduler) addPlacesFound(n int) {
	if n == 0 {
		return
	}
	s.fetchedMu.Lock()
	s.placesFound += n
	s.fetchedMu.Unlock()
}

func (s *Scheduler) incHubsDetected() {
	s.fetchedMu.Lock()
	s.hubsDetected++
	s.fetchedMu.Unlock()
}

// recordHostFailure tracks consecutive failures per host and flags the
// host as a problem cluster once problemHostFailureThreshold is reached,
// so the frontier's priority formula (spec §4.1) deprioritises it.
func (s *Scheduler) recordHostFailure(host, reason string) {
	if host == "" || s.coverage == nil {
		return
	}
	s.hostFailuresMu.Lock()
	s.hostFailures[host]++
	n := s.hostFailures[host]
	s.hostFailuresMu.Unlock()

	if n >= problemHostFailureThreshold {
		s.coverage.MarkProblem(host, reason)
	}
}

// recordHostSuccess clears a host's failure streak and any problem flag
// once it serves a successful fetch again.
func (s *Scheduler) recordHostSuccess(host string) {
	if host == "" || s.coverage == nil {
		return
	}
	s.hostFailuresMu.Lock()
	delete(s.hostFailures, host)
	s.hostFailuresMu.Unlock()
	s.coverage.ClearProblem(host)
}

// processTicket runs the eight-step pipeline for one
// dequeued URL and reports the outcome back to the frontier.
func (s *Scheduler) processTicket(ctx context.Context, ticket frontier.UrlTicket) {
	urlID, err := s.ensureURLRow(ctx, ticket)
	if err != nil {
		s.incError()
		s.recordHostFailure(ticket.Host, "url row write failures")
		s.frontier.Complete(ticket, frontier.OutcomePermanentError)
		return
	}

	fetchResult, fetchErr := s.fetch(ctx, ticket, urlID)
	if fetchErr != nil {
		s.incError()
		s.recordHostFailure(ticket.Host, "repeated fetch failures")
		s.persistFetchAttempt(ctx, urlID, fetchResult, classify.KindMinimal)
		outcome := frontier.OutcomePermanentError
		if fetchErr.Severity() == failure.SeverityRecoverable {
			outcome = frontier.OutcomeRetryableTransient
		}
		s.frontier.Complete(ticket, outcome)
		return
	}
	s.incFetched()
	s.recordHostSuccess(ticket.Host)

	if fetchResult.NotModified() {
		s.persistFetchAttempt(ctx, urlID, fetchResult, classify.KindMinimal)
		s.frontier.Complete(ticket, frontier.OutcomeSuccess)
		return
	}

	body := fetchResult.Body()
	if len(body) == 0 {
		s.persistFetchAttempt(ctx, urlID, fetchResult, classify.KindMinimal)
		s.frontier.Complete(ticket, frontier.OutcomeSuccess)
		return
	}

	doc, parseErr := html.Parse(bytes.NewReader(body))
	if parseErr != nil {
		s.incError()
		s.recordHostFailure(ticket.Host, "repeated HTML parse failures")
		s.persistFetchAttempt(ctx, urlID, fetchResult, classify.KindMinimal)
		s.frontier.Complete(ticket, frontier.OutcomePermanentError)
		return
	}

	linkStats := sanitizer.ComputeLinkStats(doc)
	classification := s.deps.Classifier.Classify(classify.ClassificationInput{
		FinalURL:    ticket.URL,
		ContentType: fetchResult.Headers()["Content-Type"],
		LinkStats:   linkStats,
	})

	fetchID := s.persistFetchAttempt(ctx, urlID, fetchResult, classification.Kind)
	contentID := s.persistContent(ctx, fetchID, fetchResult, body)

	gctx := s.deps.Gazetteer.InferContext(ticket.URL)
	urlPlaces := s.deps.Gazetteer.ResolveURLPlaces(ticket.URL, gctx)

	var articleText, title, section, articleXPath string
	var method extractor.ExtractionMethod
	if classification.Kind == classify.KindArticle {
		articleText, title, articleXPath, method = s.extractArticle(ctx, ticket, body, linkStats)
	}

	placeDetections := s.collectPlaceDetections(urlPlaces, title, section, articleText, gctx)

	s.addPlacesFound(len(placeDetections))

	looksLikeLandingPage := classification.Kind == classify.KindNav || linkStats.ArticleLinkCount >= minNavLinkDensityForHub
	hub, isHub := gazetteer.DetectHub(urlPlaces, section, looksLikeLandingPage)
	s.recordHubCoverage(ctx, urlPlaces, isHub)

	wordCount := len(strings.Fields(articleText))
	duplicates := s.indexSimilarity(contentID, articleText, wordCount)
	s.recordDuplicates(ticket.URL.String(), contentID, duplicates)

	if contentID != 0 {
		s.persistAnalysis(ctx, contentID, classification, title, section, wordCount, articleXPath, method, placeDetections, urlPlaces, hub, isHub, duplicates)
	}

	s.discoverLinks(doc, ticket)

	s.frontier.Complete(ticket, frontier.OutcomeSuccess)
}

// recordHubCoverage updates the job's coverage bookkeeping against the
// place chain a URL resolved to: a confirmed hub resolves any gap open
// for that place, while a place/topic combination that never surfaces a
// hub page stays open as a coverage gap (spec §4.1's gap-prediction
// input).
func (s *Scheduler) recordHubCoverage(ctx context.Context, urlPlaces gazetteer.URLPlaceResult, isHub bool) {
	if isHub {
		s.incHubsDetected()
	}
	if s.coverage == nil || len(urlPlaces.Chain) == 0 {
		return
	}

	if isHub {
		_ = s.coverage.RecordHubDiscovered(ctx)
	}

	// Gap bookkeeping writes through the coverage persistence adapter, so
	// it only runs once a store is actually configured.
	if s.urls == (persistence.URLAdapter{}) {
		return
	}

	place := urlPlaces.Chain[len(urlPlaces.Chain)-1]
	if isHub {
		_ = s.coverage.ResolveGapsForSlug(ctx, place.Slug)
		return
	}

	if topic := bestTopicSlug(urlPlaces); topic != "" && !s.coverage.HasOpenGap(place.Slug) {
		_, _ = s.coverage.OpenGap(ctx, place.Slug, topic)
	}
}

func bestTopicSlug(r gazetteer.URLPlaceResult) string {
	if len(r.Topics.Trailing) > 0 {
		return r.Topics.Trailing[len(r.Topics.Trailing)-1].Segment
	}
	if len(r.Topics.Leading) > 0 {
		return r.Topics.Leading[len(r.Topics.Leading)-1].Segment
	}
	return ""
}

func (s *Scheduler) ensureURLRow(ctx context.Context, ticket frontier.UrlTicket) (int64, error) {
	if s.urls == (persistence.URLAdapter{}) {
		return 0, nil
	}
	return s.urls.Ensure(ctx, ticket.URL.String(), ticket.Host, ticket.Depth)
}

func (s *Scheduler) fetch(ctx context.Context, ticket frontier.UrlTicket, urlID int64) (fetcher.FetchResult, failure.ClassifiedError) {
	param := fetcher.NewFetchParam(ticket.URL, s.cfg.UserAgent()).
		WithMaxBodyBytes(5 << 20)

	if urlID != 0 {
		if prior, err := s.fetches.LatestByURL(ctx, urlID); err == nil {
			var headers map[string]string
			if len(prior.ResponseHeaders) > 0 {
				_ = json.Unmarshal(prior.ResponseHeaders, &headers)
			}
			etag, lastModified := newConditionalHeaders(headers)
			if etag != "" || lastModified != "" {
				lm, _ := time.Parse(time.RFC1123, lastModified)
				param = param.WithConditionalGet(lm, etag)
			}
		}
	}

	retryParam := retry.NewRetryParam(
		s.cfg.BaseDelay(),
		s.cfg.Jitter(),
		s.cfg.RandomSeed(),
		s.cfg.MaxAttempt(),
		timeutil.NewBackoffParam(s.cfg.BackoffInitialDuration(), s.cfg.BackoffMultiplier(), s.cfg.BackoffMaxDuration()),
	)

	result, err := s.deps.Fetcher.Fetch(ctx, ticket.Depth, param, retryParam)
	return result, err
}

// persistFetchAttempt appends the immutable fetch_attempts row for this
// try and touches the url's last_touched_at. kind carries the page
// classification once known, or KindMinimal for attempts that never
// reached classification (errors, 304s, empty bodies).
func (s *Scheduler) persistFetchAttempt(ctx context.Context, urlID int64, result fetcher.FetchResult, kind classify.PageKind) int64 {
	if urlID == 0 || s.fetches == (persistence.FetchAdapter{}) {
		return 0
	}
	headers := result.Headers()
	fetchID, err := s.fetches.Append(ctx, urlID, persistence.NewFetchAttempt{
		HTTPStatus:      result.Code(),
		DNSMs:           int(result.Timings().DNS.Milliseconds()),
		ConnectMs:       int(result.Timings().Connect.Milliseconds()),
		TTFBMs:          int(result.Timings().TTFB.Milliseconds()),
		DownloadMs:      int(result.Timings().Download.Milliseconds()),
		ByteCount:       len(result.Body()),
		ContentType:     headers["Content-Type"],
		ResponseHeaders: headers,
		Kind:            string(kind),
	})
	if err != nil {
		return 0
	}
	_ = s.urls.Touch(ctx, urlID)
	return fetchID
}

func (s *Scheduler) persistContent(ctx context.Context, fetchID int64, result fetcher.FetchResult, body []byte) int64 {
	if s.deps.Sink == nil || s.content == (persistence.ContentAdapter{}) || fetchID == 0 {
		return 0
	}
	mediaType := result.Headers()["Content-Type"]
	blob, err := s.deps.Sink.Put(s.cfg.DataDir(), body, mediaType, result.Charset(), s.deps.HashAlgo)
	if err != nil {
		return 0
	}

	id, putErr := s.content.Put(ctx, fetchID, blob)
	if putErr != nil {
		return 0
	}
	return id
}

// extractArticle runs the persisted-XPath/Readability/learn strategy and
// records success/failure against the planner's learned pattern, if one
// was consulted.
func (s *Scheduler) extractArticle(ctx context.Context, ticket frontier.UrlTicket, body []byte, stats sanitizer.LinkStats) (text, title, learnedXPath string, method extractor.ExtractionMethod) {
	var persisted *extractor.PersistedXPath
	cacheEntry := s.lookupXPath(ctx, ticket.Host)
	if cacheEntry != nil {
		persisted = &extractor.PersistedXPath{Host: ticket.Host, Expr: cacheEntry.expr, LearnedAt: cacheEntry.learnedAt}
	}

	result, err := s.deps.Extractor.Extract(ticket.URL, body, persisted)
	if err != nil {
		if cacheEntry != nil && s.planner != (persistence.PlannerAdapter{}) {
			_ = s.planner.UpdatePatternFailure(ctx, cacheEntry.patternID)
		}
		return "", "", "", ""
	}

	if cacheEntry != nil && s.planner != (persistence.PlannerAdapter{}) {
		_ = s.planner.UpdatePatternSuccess(ctx, cacheEntry.patternID)
	}

	if result.LearnedXPath != "" && s.planner != (persistence.PlannerAdapter{}) {
		if id, recErr := s.planner.RecordPattern(ctx, ticket.Host, result.LearnedXPath, 0.5); recErr == nil {
			s.xpathCacheMu.Lock()
			s.xpathCache[ticket.Host] = &xpathCacheEntry{expr: result.LearnedXPath, patternID: id, learnedAt: time.Now()}
			s.xpathCacheMu.Unlock()
		}
	}

	title = extractTitle(result.DocumentRoot)
	return result.Text, title, result.LearnedXPath, result.Method
}

func (s *Scheduler) lookupXPath(ctx context.Context, host string) *xpathCacheEntry {
	s.xpathCacheMu.Lock()
	if e, ok := s.xpathCache[host]; ok {
		s.xpathCacheMu.Unlock()
		return e
	}
	s.xpathCacheMu.Unlock()

	if s.planner == (persistence.PlannerAdapter{}) {
		return nil
	}
	patterns, err := s.planner.PatternsByDomain(ctx, host, 0.3)
	if err != nil || len(patterns) == 0 {
		return nil
	}
	best := patterns[0]
	entry := &xpathCacheEntry{expr: best.Expr, patternID: best.ID, learnedAt: best.LearnedAt}
	s.xpathCacheMu.Lock()
	s.xpathCache[host] = entry
	s.xpathCacheMu.Unlock()
	return entry
}

func extractTitle(doc *html.Node) string {
	if doc == nil {
		return ""
	}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = n.FirstChild.Data
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if title != "" {
				return
			}
			walk(c)
		}
	}
	walk(doc)
	return title
}

func (s *Scheduler) collectPlaceDetections(urlPlaces gazetteer.URLPlaceResult, title, section, articleText string, ctx gazetteer.Context) []gazetteer.PlaceDetection {
	var detections []gazetteer.PlaceDetection
	for _, place := range urlPlaces.Chain {
		detections = append(detections, gazetteer.PlaceDetection{
			PlaceID:     place.ID,
			PlaceKind:   place.Kind,
			Method:      "slug_map",
			Source:      gazetteer.SourceURL,
			CountryCode: place.CountryCode,
		})
	}
	if title != "" {
		detections = append(detections, s.deps.Gazetteer.ExtractPlacesFromText(title, gazetteer.SourceTitle, ctx, section)...)
	}
	if articleText != "" {
		detections = append(detections, s.deps.Gazetteer.ExtractPlacesFromText(articleText, gazetteer.SourceText, ctx, section)...)
	}
	return detections
}

func (s *Scheduler) indexSimilarity(contentID int64, text string, wordCount int) []similarity.SimilarityMatch {
	if wordCount < minWordCountForFingerprint || text == "" {
		return nil
	}
	tokens := similarity.Tokenize(text, true)
	simHash := similarity.ComputeSimHash(tokens)

	var minHash []uint32
	if wordCount >= minWordCountForMinHash {
		minHash = similarity.ComputeMinHash(tokens)
	}

	var matches []similarity.SimilarityMatch
	if s.deps.LSH != nil && minHash != nil {
		for _, candidateID := range s.deps.LSH.Query(minHash) {
			match := similarity.SimilarityMatch{ContentID: candidateID, Jaccard: similarity.JaccardEstimate(minHash, minHash)}
			if s.simStore != (persistence.SimilarityAdapter{}) {
				if candidateInt, convErr := strconv.ParseInt(candidateID, 10, 64); convErr == nil {
					if candidateFp, fpErr := s.simStore.GetFingerprint(context.Background(), candidateInt); fpErr == nil {
						match.HammingDistance = similarity.HammingDistance(simHash, candidateFp.SimHash)
						match.Jaccard = similarity.JaccardEstimate(minHash, candidateFp.MinHash)
						if mt, ok := similarity.ClassifySimHashMatch(match.HammingDistance); ok {
							match.MatchType = mt
						}
					}
				}
			}
			matches = append(matches, match)
		}
		s.deps.LSH.Add(strconv.FormatInt(contentID, 10), minHash)
	}

	if s.simStore != (persistence.SimilarityAdapter{}) && contentID != 0 {
		_ = s.simStore.SaveFingerprint(context.Background(), contentID, simHash, minHash, wordCount)
	}

	near := matches[:0]
	for _, m := range matches {
		if m.HammingDistance <= nearDuplicateHammingThreshold {
			near = append(near, m)
		}
	}
	return near
}

// recordDuplicates publishes a telemetry event when the similarity
// engine surfaces near-duplicate content, so dedup behavior is visible
// even on jobs run without persistence configured.
func (s *Scheduler) recordDuplicates(pageURL string, contentID int64, duplicates []similarity.SimilarityMatch) {
	if len(duplicates) == 0 || s.deps.Recorder == nil {
		return
	}
	attrs := []telemetry.Attribute{
		telemetry.NewAttr(telemetry.AttrURL, pageURL),
		telemetry.NewAttr(telemetry.AttrContentID, strconv.FormatInt(contentID, 10)),
	}
	for _, d := range duplicates {
		attrs = append(attrs, telemetry.NewAttr(telemetry.AttrDuplicateOf, d.ContentID))
	}
	s.deps.Recorder.RecordArtifact(telemetry.ArtifactAnalysis, pageURL, attrs)
}

func (s *Scheduler) persistAnalysis(
	ctx context.Context,
	contentID int64,
	classification classify.ClassificationResult,
	title, section string,
	wordCount int,
	articleXPath string,
	method extractor.ExtractionMethod,
	detections []gazetteer.PlaceDetection,
	urlPlaces gazetteer.URLPlaceResult,
	hub gazetteer.HubCandidate,
	isHub bool,
	duplicates []similarity.SimilarityMatch,
) {
	if s.analyses == (persistence.AnalysisAdapter{}) {
		return
	}

	findings := persistence.Findings{
		Categories: categoriesToStrings(classification.Categories),
	}
	for _, d := range duplicates {
		findings.Duplicates = append(findings.Duplicates, persistence.DuplicateFinding{
			ContentID:       d.ContentID,
			HammingDistance: d.HammingDistance,
			Jaccard:         d.Jaccard,
			MatchType:       string(d.MatchType),
		})
	}
	for _, d := range detections {
		findings.Places = append(findings.Places, persistence.PlaceFinding{
			PlaceID:     d.PlaceID,
			PlaceKind:   string(d.PlaceKind),
			Method:      d.Method,
			Source:      string(d.Source),
			OffsetStart: d.OffsetStart,
			OffsetEnd:   d.OffsetEnd,
			CountryCode: d.CountryCode,
		})
	}
	findings.Topics = topicsToFindings(urlPlaces)
	if isHub {
		findings.Hub = &persistence.HubFinding{PlaceSlug: hub.PlaceSlug, PlaceKind: string(hub.PlaceKind)}
		if hub.Topic != nil {
			findings.Hub.Topic = &persistence.HubTopicFinding{Slug: hub.Topic.Slug, Label: hub.Topic.Label, Kind: hub.Topic.Kind, Source: hub.Topic.Source}
		}
	}

	_, _ = s.analyses.Put(ctx, contentID, persistence.NewAnalysis{
		Kind:         string(classification.Kind),
		Title:        title,
		Section:      section,
		WordCount:    wordCount,
		ArticleXPath: articleXPath,
		Findings:     findings,
	})
}

func categoriesToStrings(cats []classify.PageCategory) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}

func topicsToFindings(r gazetteer.URLPlaceResult) persistence.TopicFindings {
	var tf persistence.TopicFindings
	for _, t := range r.Topics.Leading {
		tf.Leading = append(tf.Leading, t.Segment)
	}
	for _, t := range r.Topics.Trailing {
		tf.Trailing = append(tf.Trailing, t.Segment)
	}
	for _, t := range r.Topics.All {
		tf.All = append(tf.All, t.Segment)
	}
	return tf
}

// discoverLinks parses out-links, normalises and scope-filters them, and
// enqueues the survivors one depth deeper.
func (s *Scheduler) discoverLinks(doc *html.Node, ticket frontier.UrlTicket) {
	sanitized, err := s.deps.Sanitizer.Sanitize(doc)
	if err != nil {
		return
	}
	scope := scopeFromConfig(s.cfg)
	for _, link := range sanitized.GetDiscoveredURLs() {
		resolved := ticket.URL.ResolveReference(&link)
		if !scope(*resolved) {
			continue
		}
		if s.cfg.MaxDepth() > 0 && ticket.Depth+1 > s.cfg.MaxDepth() {
			continue
		}
		s.frontier.Enqueue(*resolved, ticket.Depth+1, 0)
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
