package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(opts ...Option) *Client {
	base := []Option{WithRateLimit(0), WithBackoff(time.Millisecond)}
	return New(append(base, opts...)...)
}

func TestGetJSONSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AusCal/1.0 (ops@example.com)", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"init":"2024060100"}`))
	}))
	defer srv.Close()

	client := testClient(WithUserAgent("AusCal/1.0 (ops@example.com)"))

	var out struct {
		Init string `json:"init"`
	}
	require.NoError(t, client.GetJSON(context.Background(), srv.URL, &out))
	require.Equal(t, "2024060100", out.Init)
}

func TestGetJSONRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	var out []any
	require.NoError(t, testClient().GetJSON(context.Background(), srv.URL, &out))
	require.Equal(t, int32(3), calls.Load())
}

func TestGetJSONGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	var out []any
	err := testClient(WithRetries(1)).GetJSON(context.Background(), srv.URL, &out)
	require.ErrorContains(t, err, "max retries exceeded")
	require.True(t, IsStatus(err, http.StatusBadGateway))
	require.Equal(t, int32(2), calls.Load())
}

func TestGetJSONClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "no such year", http.StatusNotFound)
	}))
	defer srv.Close()

	var out []any
	err := testClient().GetJSON(context.Background(), srv.URL, &out)
	require.True(t, IsStatus(err, http.StatusNotFound))
	require.Equal(t, int32(1), calls.Load())
}

func TestGetJSONBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	var out map[string]any
	require.ErrorContains(t, testClient().GetJSON(context.Background(), srv.URL, &out), "parse json")
}

func TestGetJSONHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	var out []any
	err := testClient(WithBackoff(time.Second), WithRetries(5)).GetJSON(ctx, srv.URL, &out)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", truncate("abc", 5))
	require.Equal(t, "ab...", truncate("abcdef", 2))
}
