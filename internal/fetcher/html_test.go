package fetcher_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rohmanhakim/newscrawl/internal/fetcher"
	"github.com/rohmanhakim/newscrawl/internal/telemetry"
	"github.com/rohmanhakim/newscrawl/pkg/failure"
	"github.com/rohmanhakim/newscrawl/pkg/retry"
	"github.com/rohmanhakim/newscrawl/pkg/timeutil"
)

// capturingSink is a Sink that records every event it is handed, so tests
// can assert on fetch/error telemetry without standing up zap or prometheus.
type capturingSink struct {
	fetches []telemetry.FetchEvent
	errs    []telemetry.ErrorRecord
}

func newCapturingSink() *capturingSink {
	return &capturingSink{}
}

func (s *capturingSink) Handle(ev telemetry.Event) {
	switch ev.Kind {
	case telemetry.KindFetch:
		s.fetches = append(s.fetches, *ev.Fetch)
	case telemetry.KindError:
		s.errs = append(s.errs, *ev.Err)
	}
}

func newTestFetcher(t *testing.T) (fetcher.HtmlFetcher, *capturingSink, *telemetry.Recorder) {
	t.Helper()
	sink := newCapturingSink()
	recorder := telemetry.NewRecorder(32, sink)
	t.Cleanup(recorder.Close)
	f := fetcher.NewHtmlFetcher(recorder)
	return f, sink, recorder
}

// drainRecorder waits briefly for the recorder's background drain
// goroutine to flush buffered events into the sink.
func drainRecorder(t *testing.T, r *telemetry.Recorder) {
	t.Helper()
	time.Sleep(20 * time.Millisecond)
}

func createTestRetryParam(maxAttempts int) retry.RetryParam {
	return retry.NewRetryParam(
		10*time.Millisecond, // baseDelay
		5*time.Millisecond,  // jitter
		42,                  // randomSeed
		maxAttempts,
		timeutil.NewBackoffParam(
			10*time.Millisecond,
			2.0,
			100*time.Millisecond,
		),
	)
}

func TestHtmlFetcher_Fetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>Hello World</body></html>"))
	}))
	defer server.Close()

	f, sink, recorder := newTestFetcher(t)
	f.Init(&http.Client{})

	fetchUrl, _ := url.Parse(server.URL)
	param := fetcher.NewFetchParam(*fetchUrl, "test-user-agent")
	retryParam := createTestRetryParam(3)

	result, err := f.Fetch(context.Background(), 0, param, retryParam)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if result.Code() != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, result.Code())
	}
	if string(result.Body()) != "<html><body>Hello World</body></html>" {
		t.Errorf("unexpected body: %s", string(result.Body()))
	}
	if result.Charset() != "utf-8" {
		t.Errorf("expected charset utf-8, got %s", result.Charset())
	}
	if result.Truncated() {
		t.Error("expected body not truncated")
	}

	drainRecorder(t, recorder)

	if len(sink.fetches) != 1 {
		t.Fatalf("expected 1 fetch event, got %d", len(sink.fetches))
	}
	fetchEvt := sink.fetches[0]
	if fetchEvt.FetchURL != server.URL {
		t.Errorf("expected URL %s, got %s", server.URL, fetchEvt.FetchURL)
	}
	if fetchEvt.HTTPStatus != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, fetchEvt.HTTPStatus)
	}
	if fetchEvt.CrawlDepth != 0 {
		t.Errorf("expected crawl depth 0, got %d", fetchEvt.CrawlDepth)
	}
	if fetchEvt.RetryCount != 1 {
		t.Errorf("expected retry count 1 (actual attempts), got %d", fetchEvt.RetryCount)
	}
	if len(sink.errs) != 0 {
		t.Errorf("expected 0 error events, got %d", len(sink.errs))
	}
}

func TestHtmlFetcher_Fetch_NotModified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer server.Close()

	f, _, _ := newTestFetcher(t)
	f.Init(&http.Client{})

	fetchUrl, _ := url.Parse(server.URL)
	param := fetcher.NewFetchParam(*fetchUrl, "test-user-agent").
		WithConditionalGet(time.Now().Add(-time.Hour), `"etag-value"`)
	retryParam := createTestRetryParam(3)

	result, err := f.Fetch(context.Background(), 0, param, retryParam)
	if err != nil {
		t.Fatalf("expected no error for 304, got: %v", err)
	}
	if !result.NotModified() {
		t.Error("expected NotModified() true")
	}
}

func TestHtmlFetcher_Fetch_TruncatesOversizedBody(t *testing.T) {
	body := strings.Repeat("a", 1000)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html>" + body + "</html>"))
	}))
	defer server.Close()

	f, _, _ := newTestFetcher(t)
	f.Init(&http.Client{})

	fetchUrl, _ := url.Parse(server.URL)
	param := fetcher.NewFetchParam(*fetchUrl, "test-user-agent").WithMaxBodyBytes(50)
	retryParam := createTestRetryParam(1)

	result, err := f.Fetch(context.Background(), 0, param, retryParam)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !result.Truncated() {
		t.Error("expected Truncated() true")
	}
	if len(result.Body()) != 50 {
		t.Errorf("expected truncated body of 50 bytes, got %d", len(result.Body()))
	}
}

func TestHtmlFetcher_Fetch_NonHTMLContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message": "not html"}`))
	}))
	defer server.Close()

	f, sink, recorder := newTestFetcher(t)
	f.Init(&http.Client{})

	fetchUrl, _ := url.Parse(server.URL)
	param := fetcher.NewFetchParam(*fetchUrl, "test-user-agent")
	retryParam := createTestRetryParam(3)

	_, err := f.Fetch(context.Background(), 1, param, retryParam)
	if err == nil {
		t.Fatal("expected error for non-HTML content, got nil")
	}

	var fetchErr *fetcher.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if fetchErr.IsRetryable() {
		t.Error("expected non-retryable error for invalid content type")
	}

	drainRecorder(t, recorder)

	if len(sink.fetches) != 1 {
		t.Fatalf("expected 1 fetch event, got %d", len(sink.fetches))
	}
	if len(sink.errs) != 1 {
		t.Fatalf("expected 1 error event, got %d", len(sink.errs))
	}
	if sink.errs[0].PackageName != "fetcher" {
		t.Errorf("expected package name 'fetcher', got %s", sink.errs[0].PackageName)
	}
}

func TestHtmlFetcher_Fetch_HTTP404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f, _, _ := newTestFetcher(t)
	f.Init(&http.Client{})

	fetchUrl, _ := url.Parse(server.URL)
	param := fetcher.NewFetchParam(*fetchUrl, "test-user-agent")
	retryParam := createTestRetryParam(3)

	_, err := f.Fetch(context.Background(), 0, param, retryParam)
	if err == nil {
		t.Fatal("expected error for 404, got nil")
	}

	var fetchErr *fetcher.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if fetchErr.IsRetryable() {
		t.Error("expected non-retryable error for 404")
	}
}

func TestHtmlFetcher_Fetch_HTTP403(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	f, _, _ := newTestFetcher(t)
	f.Init(&http.Client{})

	fetchUrl, _ := url.Parse(server.URL)
	param := fetcher.NewFetchParam(*fetchUrl, "test-user-agent")
	retryParam := createTestRetryParam(3)

	_, err := f.Fetch(context.Background(), 0, param, retryParam)
	if err == nil {
		t.Fatal("expected error for 403, got nil")
	}

	var fetchErr *fetcher.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if fetchErr.IsRetryable() {
		t.Error("expected non-retryable error for 403")
	}
}

func TestHtmlFetcher_Fetch_HTTP500_Retryable(t *testing.T) {
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	f, sink, recorder := newTestFetcher(t)
	f.Init(&http.Client{})

	fetchUrl, _ := url.Parse(server.URL)
	param := fetcher.NewFetchParam(*fetchUrl, "test-user-agent")
	retryParam := createTestRetryParam(2)

	_, err := f.Fetch(context.Background(), 0, param, retryParam)
	if err == nil {
		t.Fatal("expected error after retries exhausted, got nil")
	}
	if requestCount < 2 {
		t.Errorf("expected at least 2 requests due to retry, got %d", requestCount)
	}

	var retryErr *retry.RetryError
	if !errors.As(err, &retryErr) {
		t.Fatalf("expected RetryError after exhausted retries, got %T", err)
	}

	drainRecorder(t, recorder)

	if len(sink.errs) != 1 {
		t.Fatalf("expected 1 error event, got %d", len(sink.errs))
	}
	if sink.errs[0].Cause != telemetry.CauseNetworkFailure {
		t.Errorf("expected cause CauseNetworkFailure, got %v", sink.errs[0].Cause)
	}

	if len(sink.fetches) != 1 {
		t.Fatalf("expected 1 fetch event, got %d", len(sink.fetches))
	}
	if sink.fetches[0].RetryCount != 2 {
		t.Errorf("expected retry count 2 (actual attempts), got %d", sink.fetches[0].RetryCount)
	}
}

func TestHtmlFetcher_Fetch_HTTP429_Retryable(t *testing.T) {
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f, _, _ := newTestFetcher(t)
	f.Init(&http.Client{})

	fetchUrl, _ := url.Parse(server.URL)
	param := fetcher.NewFetchParam(*fetchUrl, "test-user-agent")
	retryParam := createTestRetryParam(2)

	_, err := f.Fetch(context.Background(), 0, param, retryParam)
	if err == nil {
		t.Fatal("expected error after retries exhausted, got nil")
	}
	if requestCount < 2 {
		t.Errorf("expected at least 2 requests due to retry, got %d", requestCount)
	}

	var retryErr *retry.RetryError
	if !errors.As(err, &retryErr) {
		t.Fatalf("expected RetryError after exhausted retries, got %T", err)
	}
}

func TestHtmlFetcher_Fetch_SuccessAfterRetry(t *testing.T) {
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		if requestCount == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html>Success</html>"))
	}))
	defer server.Close()

	f, sink, recorder := newTestFetcher(t)
	f.Init(&http.Client{})

	fetchUrl, _ := url.Parse(server.URL)
	param := fetcher.NewFetchParam(*fetchUrl, "test-user-agent")
	retryParam := createTestRetryParam(3)

	result, err := f.Fetch(context.Background(), 0, param, retryParam)
	if err != nil {
		t.Fatalf("expected success after retry, got error: %v", err)
	}
	if requestCount != 2 {
		t.Errorf("expected 2 requests (1 fail + 1 success), got %d", requestCount)
	}
	if result.Code() != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, result.Code())
	}

	drainRecorder(t, recorder)

	if len(sink.fetches) != 1 {
		t.Fatalf("expected 1 fetch event, got %d", len(sink.fetches))
	}
	if sink.fetches[0].RetryCount != 2 {
		t.Errorf("expected retry count 2 (actual attempts), got %d", sink.fetches[0].RetryCount)
	}
	if len(sink.errs) != 0 {
		t.Errorf("expected 0 error events, got %d", len(sink.errs))
	}
}

func TestHtmlFetcher_FetchResult_Accessors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("X-Custom-Header", "test-value")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html>Test</html>"))
	}))
	defer server.Close()

	f, _, _ := newTestFetcher(t)
	f.Init(&http.Client{})

	fetchUrl, _ := url.Parse(server.URL)
	param := fetcher.NewFetchParam(*fetchUrl, "test-user-agent")
	retryParam := createTestRetryParam(3)

	result, err := f.Fetch(context.Background(), 0, param, retryParam)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resultURL := result.URL()
	if resultURL.String() != fetchUrl.String() {
		t.Errorf("expected URL %s, got %s", fetchUrl.String(), resultURL.String())
	}
	if result.Code() != http.StatusOK {
		t.Errorf("expected code %d, got %d", http.StatusOK, result.Code())
	}

	expectedSize := uint64(len("<html>Test</html>"))
	if result.SizeByte() != expectedSize {
		t.Errorf("expected size %d, got %d", expectedSize, result.SizeByte())
	}

	headers := result.Headers()
	if headers["Content-Type"] != "text/html; charset=utf-8" {
		t.Errorf("unexpected Content-Type header: %s", headers["Content-Type"])
	}
	if headers["X-Custom-Header"] != "test-value" {
		t.Errorf("unexpected X-Custom-Header: %s", headers["X-Custom-Header"])
	}
	if result.Timings().Total <= 0 {
		t.Error("expected a non-zero total phase timing")
	}
}

func TestFetchError_Classification(t *testing.T) {
	tests := []struct {
		name            string
		statusCode      int
		contentType     string
		expectRetryable bool
	}{
		{name: "500 Internal Server Error - retryable", statusCode: http.StatusInternalServerError, contentType: "text/html", expectRetryable: true},
		{name: "502 Bad Gateway - retryable", statusCode: http.StatusBadGateway, contentType: "text/html", expectRetryable: true},
		{name: "503 Service Unavailable - retryable", statusCode: http.StatusServiceUnavailable, contentType: "text/html", expectRetryable: true},
		{name: "400 Bad Request - not retryable", statusCode: http.StatusBadRequest, contentType: "text/html", expectRetryable: false},
		{name: "401 Unauthorized - not retryable", statusCode: http.StatusUnauthorized, contentType: "text/html", expectRetryable: false},
		{name: "403 Forbidden - not retryable", statusCode: http.StatusForbidden, contentType: "text/html", expectRetryable: false},
		{name: "404 Not Found - not retryable", statusCode: http.StatusNotFound, contentType: "text/html", expectRetryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			f, _, _ := newTestFetcher(t)
			f.Init(&http.Client{})

			fetchUrl, _ := url.Parse(server.URL)
			param := fetcher.NewFetchParam(*fetchUrl, "test-user-agent")
			retryParam := createTestRetryParam(1)

			_, err := f.Fetch(context.Background(), 0, param, retryParam)
			if err == nil {
				t.Fatal("expected error")
			}

			var fetchErr *fetcher.FetchError
			if errors.As(err, &fetchErr) {
				if fetchErr.IsRetryable() != tt.expectRetryable {
					t.Errorf("expected retryable=%v, got retryable=%v", tt.expectRetryable, fetchErr.IsRetryable())
				}
			}
		})
	}
}

func TestHtmlFetcher_FetchError_Severity(t *testing.T) {
	err := &fetcher.FetchError{
		Message:   "test error",
		Retryable: true,
		Cause:     fetcher.ErrCauseNetworkFailure,
	}

	var classifiedErr failure.ClassifiedError = err
	if classifiedErr.Severity() != failure.SeverityRecoverable {
		t.Errorf("expected SeverityRecoverable for retryable error, got %s", classifiedErr.Severity())
	}

	nonRetryableErr := &fetcher.FetchError{
		Message:   "test error",
		Retryable: false,
		Cause:     fetcher.ErrCauseContentTypeInvalid,
	}

	classifiedErr = nonRetryableErr
	if classifiedErr.Severity() != failure.SeverityFatal {
		t.Errorf("expected SeverityFatal for non-retryable error, got %s", classifiedErr.Severity())
	}
}

func TestHtmlFetcher_Fetch_ReadResponseBodyError(t *testing.T) {
	// Hijack the connection and abruptly close it after a partial body to
	// force an io.ReadAll failure mid-download.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("response writer does not support hijacking")
		}
		conn, bufrw, err := hj.Hijack()
		if err != nil {
			t.Fatal("hijack failed:", err)
		}
		defer conn.Close()

		headers := "HTTP/1.1 200 OK\r\n" +
			"Content-Type: text/html; charset=utf-8\r\n" +
			"Content-Length: 100\r\n" +
			"\r\n"
		if _, err := bufrw.WriteString(headers); err != nil {
			t.Fatal("write headers failed:", err)
		}
		if _, err := bufrw.WriteString("partial"); err != nil {
			t.Fatal("write body failed:", err)
		}
		bufrw.Flush()
		conn.Close()
	}))
	defer server.Close()

	f, sink, recorder := newTestFetcher(t)
	f.Init(&http.Client{})

	fetchUrl, _ := url.Parse(server.URL)
	param := fetcher.NewFetchParam(*fetchUrl, "test-user-agent")
	retryParam := createTestRetryParam(1)

	_, err := f.Fetch(context.Background(), 0, param, retryParam)
	if err == nil {
		t.Fatal("expected error for read response body failure, got nil")
	}

	var retryErr *retry.RetryError
	if !errors.As(err, &retryErr) {
		t.Fatalf("expected RetryError, got %T", err)
	}
	if !strings.Contains(retryErr.Error(), fetcher.ErrCauseReadResponseBodyError) {
		t.Errorf("expected error message to contain cause %q, got %q", fetcher.ErrCauseReadResponseBodyError, retryErr.Error())
	}

	drainRecorder(t, recorder)

	if len(sink.fetches) != 1 {
		t.Fatalf("expected 1 fetch event, got %d", len(sink.fetches))
	}
	if len(sink.errs) != 1 {
		t.Fatalf("expected 1 error event, got %d", len(sink.errs))
	}
	if sink.errs[0].PackageName != "fetcher" {
		t.Errorf("expected package name 'fetcher', got %s", sink.errs[0].PackageName)
	}
	if sink.errs[0].Cause != telemetry.CauseNetworkFailure {
		t.Errorf("expected cause CauseNetworkFailure, got %v", sink.errs[0].Cause)
	}
}
