// Package gazetteer resolves place and topic mentions in crawled pages
// against an in-memory, read-mostly index built once at startup per spec
// §3's "Gazetteer (read-mostly)" data model.
package gazetteer

// PlaceKind enumerates the granularity of a gazetteer entry.
type PlaceKind string

const (
	PlaceKindCountry  PlaceKind = "country"
	PlaceKindRegion   PlaceKind = "region"
	PlaceKindCity     PlaceKind = "city"
	PlaceKindDistrict PlaceKind = "district"
)

// PlaceRecord is one row of the imported gazetteer (the `places` /
// `place_names` / `place_attributes` NDJSON tables joined together).
type PlaceRecord struct {
	ID          string
	Name        string
	Slug        string
	Kind        PlaceKind
	CountryCode string
	Population  int64
}

// HierarchyEdge is one `place_hierarchy` row: ParentID is an ancestor of
// ChildID.
type HierarchyEdge struct {
	ParentID string
	ChildID  string
}

// DomainLocale is one row of the domain_locales table §4.3's context
// inference joins against: a host declares a country/language pair.
type DomainLocale struct {
	Host        string
	CountryCode string
	Language    string
}

// PlaceSource identifies where a detection came from, per the
// PlaceDetection data model (§3): text, title, or url.
type PlaceSource string

const (
	SourceText  PlaceSource = "text"
	SourceTitle PlaceSource = "title"
	SourceURL   PlaceSource = "url"
)

// PlaceDetection is one emitted match, deduped by (source, place_id,
// offsets) per spec §3.
type PlaceDetection struct {
	PlaceID     string
	PlaceKind   PlaceKind
	Method      string
	Source      PlaceSource
	OffsetStart int
	OffsetEnd   int
	CountryCode string
}

// Context is the output of infer_context: the signals used to bias
// disambiguation scoring and slug tie-breaks.
type Context struct {
	Host            string
	TLDCountryCode  string
	DomainCountry   string
	DomainLanguage  string
	URLCountryCodes []string
}

// TopicPartition splits the non-place URL segments resolve_url_places
// leaves over into leading/trailing/all groups, each entry flagged
// `recognized` when it appears in topic_tokens.
type TopicToken struct {
	Segment    string
	Recognized bool
}

type TopicPartition struct {
	Leading  []TopicToken
	Trailing []TopicToken
	All      []TopicToken
}

// URLPlaceResult is resolve_url_places' output: the best matching chain
// of places plus the leftover topic segments.
type URLPlaceResult struct {
	Chain  []PlaceRecord
	Topics TopicPartition
}

// HubCandidate is emitted when a URL looks like a place/topic landing
// page, per §4.3's "Hub detection output".
type HubCandidate struct {
	PlaceSlug string
	PlaceKind PlaceKind
	Topic     *HubTopic
}

type HubTopic struct {
	Slug   string
	Label  string
	Kind   string
	Source string
}
