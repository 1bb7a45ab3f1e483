package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jeremytraini/auscal/internal/config"
	"github.com/jeremytraini/auscal/internal/domain/events"
	"github.com/jeremytraini/auscal/internal/enrichment"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// routedService records which operation a request reached.
type routedService struct {
	calls []string
}

func (s *routedService) List(context.Context, url.Values) (*events.ListPage, error) {
	s.calls = append(s.calls, "list")
	return &events.ListPage{Page: 1, PageSize: 10, Events: []events.Record{}}, nil
}

func (s *routedService) Get(_ context.Context, id int64) (*events.EventView, error) {
	s.calls = append(s.calls, "get")
	return &events.EventView{ID: id}, nil
}

func (s *routedService) Create(context.Context, events.CreateInput) (*events.Mutation, error) {
	s.calls = append(s.calls, "create")
	return &events.Mutation{ID: 1, Links: events.Links{Self: events.Link{Href: "/events/1"}}}, nil
}

func (s *routedService) Update(_ context.Context, id int64, _ events.PatchInput) (*events.Mutation, error) {
	s.calls = append(s.calls, "update")
	return &events.Mutation{ID: id}, nil
}

func (s *routedService) Delete(_ context.Context, id int64) (*events.Deletion, error) {
	s.calls = append(s.calls, "delete")
	return &events.Deletion{ID: id, Message: "removed"}, nil
}

func (s *routedService) Statistics(context.Context) (*events.Statistics, error) {
	s.calls = append(s.calls, "statistics")
	return &events.Statistics{}, nil
}

func (s *routedService) Range(context.Context, time.Time, time.Time) ([]events.Event, error) {
	s.calls = append(s.calls, "range")
	return nil, nil
}

func (s *routedService) Now() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

type noForecasts struct{}

func (noForecasts) CityForecasts(context.Context, []config.City, time.Time) ([]enrichment.CityForecast, error) {
	return nil, enrichment.ErrNoForecast
}

func newTestRouter(t *testing.T, cfg config.Config) (http.Handler, *routedService) {
	t.Helper()
	service := &routedService{}
	router := NewRouter(Deps{
		Config:    cfg,
		Logger:    zerolog.Nop(),
		Events:    service,
		Forecasts: noForecasts{},
		Build:     BuildInfo{Version: "1.2.3"},
	})
	return router, service
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Database.URL = "postgres://unused"
	cfg.Environment = "test"
	return cfg
}

func TestRouterDispatch(t *testing.T) {
	router, service := newTestRouter(t, testConfig())

	cases := []struct {
		method string
		target string
		body   string
		status int
		call   string
	}{
		{http.MethodGet, "/events", "", http.StatusOK, "list"},
		{http.MethodPost, "/events", `{"name":"x"}`, http.StatusCreated, "create"},
		{http.MethodGet, "/events/statistics?format=json", "", http.StatusOK, "statistics"},
		{http.MethodGet, "/events/calendar.ics", "", http.StatusOK, "range"},
		{http.MethodGet, "/events/7", "", http.StatusOK, "get"},
		{http.MethodPatch, "/events/7", `{}`, http.StatusOK, "update"},
		{http.MethodDelete, "/events/7", "", http.StatusOK, "delete"},
	}
	for _, tc := range cases {
		res := httptest.NewRecorder()
		router.ServeHTTP(res, httptest.NewRequest(tc.method, tc.target, strings.NewReader(tc.body)))
		require.Equal(t, tc.status, res.Code, "%s %s", tc.method, tc.target)
		require.NotEmpty(t, service.calls)
		require.Equal(t, tc.call, service.calls[len(service.calls)-1], "%s %s", tc.method, tc.target)
	}
}

func TestRouterWeatherNoData(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/weather?date=01-06-2024", nil))

	require.Equal(t, http.StatusNotFound, res.Code)
	require.Contains(t, res.Body.String(), "No weather data found for this date!")
}

func TestRouterProblemsForUnknownRoutes(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, res.Code)
	require.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodPut, "/events/1", nil))
	require.Equal(t, http.StatusMethodNotAllowed, res.Code)
	require.Contains(t, res.Header().Get("Allow"), http.MethodPatch)
}

func TestRouterAmbientEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	res := httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/version", nil))
	require.Equal(t, http.StatusOK, res.Code)
	var build BuildInfo
	require.NoError(t, json.NewDecoder(res.Body).Decode(&build))
	require.Equal(t, "1.2.3", build.Version)

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/events", nil))
	require.Len(t, res.Header().Get("X-Request-ID"), 36)
	require.Equal(t, "nosniff", res.Header().Get("X-Content-Type-Options"))

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "auscal_http_requests_total")

	res = httptest.NewRecorder()
	router.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, res.Code)
}

func TestRouterRateLimitsWrites(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.WritePerMinute = 1
	router, _ := newTestRouter(t, cfg)

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodDelete, "/events/1", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodDelete, "/events/1", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)
}
