// Package persistence implements the §6 logical adapters (urls, fetches,
// content, analysis, similarity, queue_events, coverage, planner) as
// prepared-statement wrappers over a transactional relational store. The
// store itself is an external collaborator (spec §1); this package only
// owns the SQL that talks to it.
package persistence

import "time"

// Findings is the Analysis.findings JSON blob, represented as an explicit
// tagged-variant struct rather than a raw map, per spec §9's "Dynamic
// objects" design note: serialise to JSON only at this persistence
// boundary, never pass a bag of interface{} through the pipeline.
type Findings struct {
	Places     []PlaceFinding     `json:"places,omitempty"`
	Topics     TopicFindings      `json:"topics,omitempty"`
	Categories []string           `json:"categories,omitempty"`
	Hub        *HubFinding        `json:"hub,omitempty"`
	Duplicates []DuplicateFinding `json:"duplicates,omitempty"`
}

// DuplicateFinding records a near-duplicate match surfaced by the
// similarity engine (spec §4.4's "Final match type" output).
type DuplicateFinding struct {
	ContentID       string  `json:"contentId"`
	HammingDistance int     `json:"hammingDistance"`
	Jaccard         float64 `json:"jaccard"`
	MatchType       string  `json:"matchType,omitempty"`
}

type PlaceFinding struct {
	PlaceID     string `json:"placeId"`
	PlaceKind   string `json:"placeKind"`
	Method      string `json:"method"`
	Source      string `json:"source"`
	OffsetStart int    `json:"offsetStart"`
	OffsetEnd   int    `json:"offsetEnd"`
	CountryCode string `json:"countryCode,omitempty"`
}

type TopicFindings struct {
	Leading  []string `json:"leading,omitempty"`
	Trailing []string `json:"trailing,omitempty"`
	All      []string `json:"all,omitempty"`
}

type HubFinding struct {
	PlaceSlug string      `json:"placeSlug"`
	PlaceKind string      `json:"placeKind"`
	Topic     *HubTopicFinding `json:"topic,omitempty"`
}

type HubTopicFinding struct {
	Slug   string `json:"slug"`
	Label  string `json:"label"`
	Kind   string `json:"kind"`
	Source string `json:"source"`
}

// URLRow mirrors the `urls` table (spec §3).
type URLRow struct {
	ID            int64     `db:"id"`
	URL           string    `db:"url"`
	Host          string    `db:"host"`
	Depth         int       `db:"depth"`
	FirstSeenAt   time.Time `db:"first_seen_at"`
	LastTouchedAt time.Time `db:"last_touched_at"`
}

// FetchAttemptRow mirrors the `fetch_attempts` table.
type FetchAttemptRow struct {
	ID               int64     `db:"id"`
	URLID            int64     `db:"url_id"`
	FetchedAt        time.Time `db:"fetched_at"`
	HTTPStatus       int       `db:"http_status"`
	DNSMs            int       `db:"dns_ms"`
	ConnectMs        int       `db:"connect_ms"`
	TTFBMs           int       `db:"ttfb_ms"`
	DownloadMs       int       `db:"download_ms"`
	ByteCount        int       `db:"byte_count"`
	ContentType      string    `db:"content_type"`
	ResponseHeaders  []byte    `db:"response_headers"`
	Kind             string    `db:"kind"`
}

// NewFetchAttempt is the adapter-facing write model for fetches.Append.
type NewFetchAttempt struct {
	HTTPStatus      int
	DNSMs           int
	ConnectMs       int
	TTFBMs          int
	DownloadMs      int
	ByteCount       int
	ContentType     string
	ResponseHeaders map[string]string
	Kind            string
}

// ContentBlobRow mirrors the `content_blobs` table.
type ContentBlobRow struct {
	ID          int64     `db:"id"`
	FetchID     int64     `db:"fetch_id"`
	ContentHash string    `db:"content_hash"`
	ByteLength  int       `db:"byte_length"`
	MediaType   string    `db:"media_type"`
	Charset     string    `db:"charset"`
	WrittenAt   time.Time `db:"written_at"`
}

// AnalysisRow mirrors the `analyses` table.
type AnalysisRow struct {
	ID              int64     `db:"id"`
	ContentID       int64     `db:"content_id"`
	AnalysisVersion int       `db:"analysis_version"`
	Kind            string    `db:"kind"`
	Title           string    `db:"title"`
	Section         string    `db:"section"`
	WordCount       int       `db:"word_count"`
	ArticleXPath    string    `db:"article_xpath"`
	FindingsJSON    []byte    `db:"findings"`
	CreatedAt       time.Time `db:"created_at"`
}

// SimilarityFingerprintRow mirrors `similarity_fingerprints`.
type SimilarityFingerprintRow struct {
	ContentID int64     `db:"content_id"`
	SimHash   []byte    `db:"simhash"`
	MinHash   []byte    `db:"minhash"`
	WordCount int       `db:"word_count"`
	CreatedAt time.Time `db:"created_at"`
}

// QueueEventRow mirrors `queue_events`.
type QueueEventRow struct {
	JobID         string    `db:"job_id"`
	TS            time.Time `db:"ts"`
	Action        string    `db:"action"`
	URL           string    `db:"url"`
	Host          string    `db:"host"`
	Depth         int       `db:"depth"`
	PriorityScore float64   `db:"priority_score"`
	Reason        string    `db:"reason"`
}

// CoverageGapRow mirrors `coverage_gaps`.
type CoverageGapRow struct {
	ID         int64      `db:"id"`
	JobID      string     `db:"job_id"`
	PlaceSlug  string     `db:"place_slug"`
	TopicSlug  string     `db:"topic_slug"`
	OpenedAt   time.Time  `db:"opened_at"`
	ResolvedAt *time.Time `db:"resolved_at"`
}

// XPathPatternRow mirrors `xpath_patterns`, the planner's learned
// extraction patterns keyed by domain (spec §6 planner adapter).
type XPathPatternRow struct {
	ID            int64     `db:"id"`
	Domain        string    `db:"domain"`
	Expr          string    `db:"expr"`
	Confidence    float64   `db:"confidence"`
	SuccessCount  int       `db:"success_count"`
	FailureCount  int       `db:"failure_count"`
	LearnedAt     time.Time `db:"learned_at"`
}
