package fetcher

/*
Responsibilities

- Perform HTTP requests
- Apply headers and timeouts
- Handle redirects safely
- Classify responses

Fetch Semantics

- Only successful HTML responses are processed
- Non-HTML content is discarded
- Redirect chains are bounded
- All responses are logged through telemetry
- A 304 from a conditional GET is a success, not an error: the caller
  keeps the prior ContentBlob

The fetcher never parses content; it only returns bytes and metadata.
*/

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/rohmanhakim/newscrawl/internal/telemetry"
	"github.com/rohmanhakim/newscrawl/pkg/failure"
	"github.com/rohmanhakim/newscrawl/pkg/retry"
)

type HtmlFetcher struct {
	recorder   *telemetry.Recorder
	httpClient *http.Client
}

func NewHtmlFetcher(recorder *telemetry.Recorder) HtmlFetcher {
	return HtmlFetcher{
		recorder:   recorder,
		httpClient: &http.Client{},
	}
}

// Init swaps in a caller-configured http.Client (timeouts, transport,
// redirect policy). Tests use this to point at an httptest.Server.
func (h *HtmlFetcher) Init(httpClient *http.Client) {
	h.httpClient = httpClient
}

func (h *HtmlFetcher) Fetch(
	ctx context.Context,
	crawlDepth int,
	fetchParam FetchParam,
	retryParam retry.RetryParam,
) (FetchResult, failure.ClassifiedError) {
	callerMethod := "HtmlFetcher.Fetch"
	startTime := time.Now()

	fetchTask := func() (FetchResult, failure.ClassifiedError) {
		return h.performFetch(ctx, fetchParam)
	}

	res := retry.Retry(retryParam, fetchTask)
	duration := time.Since(startTime)

	var statusCode int
	var contentType string
	result := res.Value()
	err := res.Err()
	if err == nil {
		statusCode = result.Code()
		contentType = h.extractContentType(result.Headers())
	}

	h.recorder.RecordFetch(
		fetchParam.fetchUrl.String(),
		statusCode,
		duration,
		contentType,
		res.Attempts(),
		crawlDepth,
	)

	if err != nil {
		var retryErr *retry.RetryError
		if errors.As(err, &retryErr) {
			h.recordRetryError(callerMethod, fetchParam.fetchUrl, err)
		} else {
			h.recordFetchError(callerMethod, fetchParam.fetchUrl, err)
		}
		return FetchResult{}, err
	}

	return result, nil
}

func (h *HtmlFetcher) extractContentType(headers map[string]string) string {
	if ct, ok := headers["Content-Type"]; ok {
		return ct
	}
	return ""
}

func (h *HtmlFetcher) recordFetchError(callerMethod string, fetchUrl url.URL, err failure.ClassifiedError) {
	var fetchError *FetchError
	if errors.As(err, &fetchError) {
		h.recorder.RecordError(
			time.Now(),
			"fetcher",
			callerMethod,
			mapFetchErrorToTelemetryCause(fetchError),
			err.Error(),
			[]telemetry.Attribute{
				telemetry.NewAttr(telemetry.AttrURL, fetchUrl.String()),
			},
		)
	}
}

func (h *HtmlFetcher) recordRetryError(callerMethod string, fetchUrl url.URL, err failure.ClassifiedError) {
	var retryError *retry.RetryError
	if errors.As(err, &retryError) {
		h.recorder.RecordError(
			time.Now(),
			"fetcher",
			callerMethod,
			telemetry.CauseNetworkFailure,
			err.Error(),
			[]telemetry.Attribute{
				telemetry.NewAttr(telemetry.AttrField, retryError.Error()),
				telemetry.NewAttr(telemetry.AttrURL, fetchUrl.String()),
			},
		)
	}
}

// performFetch runs a single HTTP attempt: request construction, phase
// timing via httptrace, status classification, body truncation, and
// charset decoding. Retries around this call are handled by the caller.
func (h *HtmlFetcher) performFetch(ctx context.Context, fetchParam FetchParam) (FetchResult, failure.ClassifiedError) {
	fetchStart := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchParam.fetchUrl.String(), nil)
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseNetworkFailure,
		}
	}

	for key, value := range requestHeaders(fetchParam.userAgent) {
		req.Header.Set(key, value)
	}
	if !fetchParam.ifModifiedSince.IsZero() {
		req.Header.Set("If-Modified-Since", fetchParam.ifModifiedSince.UTC().Format(http.TimeFormat))
	}
	if fetchParam.ifNoneMatch != "" {
		req.Header.Set("If-None-Match", fetchParam.ifNoneMatch)
	}

	var timings PhaseTimings
	var dnsStart, connectStart, wroteReq time.Time
	trace := &httptrace.ClientTrace{
		DNSStart: func(httptrace.DNSStartInfo) { dnsStart = time.Now() },
		DNSDone: func(httptrace.DNSDoneInfo) {
			if !dnsStart.IsZero() {
				timings.DNS = time.Since(dnsStart)
			}
		},
		ConnectStart: func(string, string) { connectStart = time.Now() },
		ConnectDone: func(string, string, error) {
			if !connectStart.IsZero() {
				timings.Connect = time.Since(connectStart)
			}
		},
		WroteRequest: func(httptrace.WroteRequestInfo) { wroteReq = time.Now() },
		GotFirstResponseByte: func() {
			base := wroteReq
			if base.IsZero() {
				base = fetchStart
			}
			timings.TTFB = time.Since(base)
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	resp, err := h.httpClient.Do(req)
	if err != nil {
		// Network/transport errors are retryable
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: true,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		timings.Total = time.Since(fetchStart)
		return FetchResult{
			url:         fetchParam.fetchUrl,
			fetchedAt:   time.Now(),
			timings:     timings,
			notModified: true,
			meta: ResponseMeta{
				statusCode:      resp.StatusCode,
				responseHeaders: collectHeaders(resp.Header),
			},
		}, nil
	}

	// Handle HTTP status codes
	switch {
	case resp.StatusCode >= 500:
		// Server errors (5xx) are retryable
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("server error: %d", resp.StatusCode),
			Retryable: true,
			Cause:     ErrCauseRequest5xx,
		}

	case resp.StatusCode == 429:
		// Too Many Requests is retryable
		return FetchResult{}, &FetchError{
			Message:   "rate limited (429)",
			Retryable: true,
			Cause:     ErrCauseRequestTooMany,
		}

	case resp.StatusCode == 403:
		// Forbidden is not retryable
		return FetchResult{}, &FetchError{
			Message:   "access forbidden (403)",
			Retryable: false,
			Cause:     ErrCauseRequestPageForbidden,
		}

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Other client errors are not retryable
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("client error: %d", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseRequestPageForbidden,
		}

	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		// http.Client follows redirects itself; landing here means the
		// redirect chain was too long and the client gave up.
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("redirect error: %d", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseRedirectLimitExceeded,
		}
	}

	// Check Content-Type for HTML
	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContent(contentType) {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("non-HTML content type: %s", contentType),
			Retryable: false,
			Cause:     ErrCauseContentTypeInvalid,
		}
	}

	downloadStart := time.Now()
	maxBytes := fetchParam.maxBodyBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return FetchResult{}, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}
	timings.Download = time.Since(downloadStart)
	timings.Total = time.Since(fetchStart)

	truncated := false
	if int64(len(rawBody)) > maxBytes {
		rawBody = rawBody[:maxBytes]
		truncated = true
	}

	decodedBody, decodedCharset := decodeToUTF8(rawBody, contentType)

	result := FetchResult{
		url:       fetchParam.fetchUrl,
		body:      decodedBody,
		fetchedAt: time.Now(),
		timings:   timings,
		truncated: truncated,
		charset:   decodedCharset,
		meta: ResponseMeta{
			statusCode:      resp.StatusCode,
			responseHeaders: collectHeaders(resp.Header),
		},
	}

	return result, nil
}

// decodeToUTF8 decodes body per its declared Content-Type charset,
// falling back to treating it as already-UTF-8 when detection or
// transcoding fails (spec §4.2 step 1: "Decode body per Content-Type
// charset with UTF-8 fallback").
func decodeToUTF8(body []byte, contentType string) ([]byte, string) {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body, "utf-8"
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return body, "utf-8"
	}
	_, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "" {
		name = "utf-8"
	}
	return decoded, name
}

func collectHeaders(h http.Header) map[string]string {
	responseHeaders := make(map[string]string, len(h))
	for key, values := range h {
		if len(values) > 0 {
			responseHeaders[key] = values[0]
		}
	}
	return responseHeaders
}

func isHTMLContent(contentType string) bool {
	// Check if content type is HTML
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml")
}

func requestHeaders(userAgent string) map[string]string {
	return map[string]string{
		"User-Agent":      userAgent,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
		"Accept-Encoding": "gzip, deflate, br",
		"DNT":             "1",
		"Connection":      "keep-alive",
	}
}
