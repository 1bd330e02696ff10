package httpx

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/config"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/feed"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/manuallog"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/models"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/query"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer wires a full stack with no connected platforms; every run
// yields a dense empty feed.
func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	log := testLogger()
	st := store.NewMemoryStore()
	policy := config.Policy{
		LookbackDays:    30,
		WindowDays:      7,
		PostSources:     []string{"manual"},
		CampaignSources: []string{"manual"},
	}
	fs := feed.New(policy, feed.Sources{}, st, nil, nil, log)
	h := NewRouter(log, Deps{
		Feed:        fs,
		Query:       query.NewService(st),
		Store:       st,
		Manual:      manuallog.New(t.TempDir(), log),
		DefaultDays: policy.LookbackDays,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, st
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func post(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

func TestHealthAndReadiness(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv.URL+"/healthz")
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "ok", string(body))

	resp, _ = get(t, srv.URL+"/readyz")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = post(t, srv.URL+"/feed/run?days=5", "")
	require.Equal(t, 200, resp.StatusCode)

	resp, body = get(t, srv.URL+"/readyz")
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "ready", string(body))
}

func TestFeedRunReturnsReport(t *testing.T) {
	srv, st := newTestServer(t)

	resp, body := post(t, srv.URL+"/feed/run?days=5", "")
	require.Equal(t, 200, resp.StatusCode)

	var rep models.RunReport
	require.NoError(t, json.Unmarshal(body, &rep))
	require.NotEmpty(t, rep.RunID)
	require.Equal(t, 5, rep.Days)
	require.True(t, st.Ready())
}

func TestFeedRunRejectsBadDays(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := post(t, srv.URL+"/feed/run?days=abc", "")
	require.Equal(t, 400, resp.StatusCode)

	resp, _ = post(t, srv.URL+"/feed/run?days=0", "")
	require.Equal(t, 400, resp.StatusCode)
}

func TestTimelineEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	post(t, srv.URL+"/feed/run?days=5", "")

	resp, body := get(t, srv.URL+"/feed/timeline")
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var rows []models.TimelineRecord
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 5)

	resp, _ = get(t, srv.URL+"/feed/timeline?from=bogus")
	require.Equal(t, 400, resp.StatusCode)

	resp, body = get(t, srv.URL+"/feed/timeline?events_only=1")
	require.Equal(t, 200, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Empty(t, rows)
}

func TestSummaryLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := get(t, srv.URL+"/feed/summary")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	post(t, srv.URL+"/feed/run?days=5", "")

	resp, body := get(t, srv.URL+"/feed/summary")
	require.Equal(t, 200, resp.StatusCode)
	require.Contains(t, string(body), `"total_days": 5`)
}

func TestDashboardEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	post(t, srv.URL+"/feed/run?days=5", "")

	resp, body := get(t, srv.URL+"/feed/dashboard")
	require.Equal(t, 200, resp.StatusCode)
	require.Contains(t, string(body), `"dateRange"`)
	require.Contains(t, string(body), `"weeklyData"`)
}

func TestManualPostLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := post(t, srv.URL+"/feed/posts", `{
		"date": "2026-03-05",
		"platform": "Instagram",
		"influencer": "ana",
		"post_url": "https://instagram.com/p/abc",
		"views": 900,
		"likes": 40
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Contains(t, string(body), `"post_url": "https://instagram.com/p/abc"`)

	// Missing URL is a validation error, not a server error.
	resp, _ = post(t, srv.URL+"/feed/posts", `{"date": "2026-03-05", "platform": "Instagram"}`)
	require.Equal(t, 400, resp.StatusCode)

	resp, _ = post(t, srv.URL+"/feed/posts", `{"date": "05/03/2026", "post_url": "x"}`)
	require.Equal(t, 400, resp.StatusCode)

	resp, _ = post(t, srv.URL+"/feed/posts", `{not json`)
	require.Equal(t, 400, resp.StatusCode)
}

func TestManualCampaignValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := post(t, srv.URL+"/feed/campaigns", `{
		"date": "2026-03-05",
		"platform": "Email",
		"campaign_name": "spring_drop",
		"event_type": "launch",
		"budget": 150
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = post(t, srv.URL+"/feed/campaigns", `{
		"date": "2026-03-05",
		"campaign_name": "spring_drop",
		"event_type": "explosion"
	}`)
	require.Equal(t, 400, resp.StatusCode)
}

func TestMetricsEndpointExposed(t *testing.T) {
	srv, _ := newTestServer(t)
	post(t, srv.URL+"/feed/run?days=5", "")

	resp, body := get(t, srv.URL+"/metrics")
	require.Equal(t, 200, resp.StatusCode)
	require.Contains(t, string(body), "marketing_feed_runs_total")
}

func TestHTTPMetricsMiddlewareCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg, "test")

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			http.Error(w, "no", 500)
			return
		}
		w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/ok", "/ok", "/boom"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.InDelta(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/ok", "200")), 1e-9)
	require.InDelta(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET", "/boom", "500")), 1e-9)
	require.InDelta(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("GET", "/boom", "500")), 1e-9)
	require.InDelta(t, 0.0, testutil.ToFloat64(m.InFlight), 1e-9)
}
