package ingest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient() *Client {
	return NewClient(NewHTTPClient(0), 1000, testLogger())
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	var dst struct {
		OK bool `json:"ok"`
	}
	err := newTestClient().getJSON(context.Background(), srv.URL, nil, &dst)
	require.NoError(t, err)
	require.True(t, dst.OK)
	require.EqualValues(t, 3, calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such thing", http.StatusNotFound)
	}))
	defer srv.Close()

	err := newTestClient().getJSON(context.Background(), srv.URL, nil, &struct{}{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "non-2xx: 404")
	require.EqualValues(t, 1, calls.Load())
}

func TestClientRetriesRateLimitResponses(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	err := newTestClient().getJSON(context.Background(), srv.URL, nil, &struct{}{})
	require.NoError(t, err)
	require.EqualValues(t, 2, calls.Load())
}

func TestClientSendsHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.JSONEq(t, `{"query":"hello"}`, string(body))
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	err := newTestClient().postJSON(context.Background(), srv.URL,
		map[string]string{"Authorization": "Bearer tok"},
		map[string]string{"query": "hello"},
		&struct{}{})
	require.NoError(t, err)
}

func TestClientEmptyURL(t *testing.T) {
	err := newTestClient().getJSON(context.Background(), "", nil, &struct{}{})
	require.Error(t, err)
}

func TestClientHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newTestClient().getJSON(ctx, srv.URL, nil, &struct{}{})
	require.ErrorIs(t, err, context.Canceled)
}
