package daemon_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/newscrawl/internal/daemon"
	"github.com/rohmanhakim/newscrawl/internal/telemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) *daemon.Server {
	t.Helper()
	recorder := telemetry.NewRecorder(16)
	t.Cleanup(func() { recorder.Close() })
	return daemon.NewServer(recorder)
}

func TestServer_Healthz(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_StartJob_RejectsEmptySeedURLs(t *testing.T) {
	srv := newTestServer(t)
	body := strings.NewReader(`{"seedUrls": []}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_StartJob_RejectsInvalidSeedURL(t *testing.T) {
	srv := newTestServer(t)
	body := strings.NewReader(`{"seedUrls": [":not a url"]}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GetJob_NotFound(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/does-not-exist", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_StopJob_NotRunning(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/does-not-exist/stop", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestServer_ListJobs_EmptyInitially(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var got []any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Empty(t, got)
}

func TestServer_StartJob_AcceptsValidSeedAndReportsConflictOnSecond(t *testing.T) {
	srv := newTestServer(t)

	seed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><p>hello</p></body></html>"))
	}))
	t.Cleanup(seed.Close)

	reqBody := `{"seedUrls": ["` + seed.URL + `"], "concurrency": 1}`
	req1 := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(reqBody))
	req1.Header.Set("Content-Type", "application/json")
	rec1 := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec1, req1)

	require.Equal(t, http.StatusAccepted, rec1.Code)

	var started struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec1.Body.Bytes(), &started))
	require.NotEmpty(t, started.ID)

	req2 := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(reqBody))
	req2.Header.Set("Content-Type", "application/json")
	rec2 := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec2, req2)

	require.Equal(t, http.StatusConflict, rec2.Code)

	stopReq := httptest.NewRequest(http.MethodPost, "/v1/jobs/"+started.ID+"/stop", nil)
	stopRec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(stopRec, stopReq)
	require.Equal(t, http.StatusAccepted, stopRec.Code)

	require.Eventually(t, func() bool {
		getReq := httptest.NewRequest(http.MethodGet, "/v1/jobs/"+started.ID, nil)
		getRec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(getRec, getReq)
		return getRec.Code == http.StatusOK && strings.Contains(getRec.Body.String(), `"status"`)
	}, 2*time.Second, 10*time.Millisecond)
}
