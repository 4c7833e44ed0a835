package fetcher

import (
	"net/url"
	"time"
)

// HTTP boundary

// defaultMaxBodyBytes bounds a single fetch when FetchParam does not
// override it (spec §4.2 step 1, "Enforce max_body_bytes").
const defaultMaxBodyBytes = 5 << 20 // 5 MiB

type FetchParam struct {
	fetchUrl        url.URL
	userAgent       string
	maxBodyBytes    int64
	ifModifiedSince time.Time
	ifNoneMatch     string
}

func NewFetchParam(fetchUrl url.URL, userAgent string) FetchParam {
	return FetchParam{
		fetchUrl:     fetchUrl,
		userAgent:    userAgent,
		maxBodyBytes: defaultMaxBodyBytes,
	}
}

// WithMaxBodyBytes overrides the truncation ceiling for this fetch.
func (p FetchParam) WithMaxBodyBytes(n int64) FetchParam {
	p.maxBodyBytes = n
	return p
}

// WithConditionalGet attaches the per-host cache validators recorded from a
// prior response, per spec §4.2 step 1 ("Respect per-host conditional-GET
// headers from prior responses").
func (p FetchParam) WithConditionalGet(ifModifiedSince time.Time, ifNoneMatch string) FetchParam {
	p.ifModifiedSince = ifModifiedSince
	p.ifNoneMatch = ifNoneMatch
	return p
}

func (p FetchParam) URL() url.URL {
	return p.fetchUrl
}

// PhaseTimings records the fetch lifecycle timestamps spec §4.2 step 1
// requires (start, first_byte, end), plus the DNS/connect breakdown
// httptrace exposes along the way.
type PhaseTimings struct {
	DNS      time.Duration
	Connect  time.Duration
	TTFB     time.Duration
	Download time.Duration
	Total    time.Duration
}

type FetchResult struct {
	url         url.URL
	body        []byte
	meta        ResponseMeta
	fetchedAt   time.Time
	timings     PhaseTimings
	notModified bool
	truncated   bool
	charset     string
}

func (f *FetchResult) URL() url.URL {
	return f.url
}

func (f *FetchResult) Body() []byte {
	return f.body
}

func (f *FetchResult) Code() int {
	return f.meta.statusCode
}

func (f *FetchResult) SizeByte() uint64 {
	return uint64(len(f.body))
}

func (f *FetchResult) Headers() map[string]string {
	return f.meta.responseHeaders
}

func (f *FetchResult) FetchedAt() time.Time {
	return f.fetchedAt
}

func (f *FetchResult) Timings() PhaseTimings {
	return f.timings
}

// NotModified reports a 304 response to a conditional GET: the prior
// ContentBlob is still current and no new one is written.
func (f *FetchResult) NotModified() bool {
	return f.notModified
}

// Truncated reports whether the body was cut off at max_body_bytes.
func (f *FetchResult) Truncated() bool {
	return f.truncated
}

// Charset is the name x/net/html/charset settled on when decoding the body
// to UTF-8 (e.g. "utf-8", "windows-1252").
func (f *FetchResult) Charset() string {
	return f.charset
}

type ResponseMeta struct {
	statusCode      int
	responseHeaders map[string]string
}

// NewFetchResultForTest creates a FetchResult for testing purposes.
// This allows test packages to construct FetchResult values without
// accessing unexported fields directly.
func NewFetchResultForTest(
	url url.URL,
	body []byte,
	statusCode int,
	contentType string,
	responseHeaders map[string]string,
	fetchedAt time.Time,
) FetchResult {
	if responseHeaders == nil {
		responseHeaders = map[string]string{}
	}
	if contentType != "" {
		if _, ok := responseHeaders["Content-Type"]; !ok {
			responseHeaders["Content-Type"] = contentType
		}
	}
	return FetchResult{
		url:       url,
		body:      body,
		fetchedAt: fetchedAt,
		charset:   "utf-8",
		meta: ResponseMeta{
			statusCode:      statusCode,
			responseHeaders: responseHeaders,
		},
	}
}
