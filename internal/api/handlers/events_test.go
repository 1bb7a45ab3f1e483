package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jeremytraini/auscal/internal/audit"
	"github.com/jeremytraini/auscal/internal/domain/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubEventService struct {
	listFn   func(values url.Values) (*events.ListPage, error)
	getFn    func(id int64) (*events.EventView, error)
	createFn func(input events.CreateInput) (*events.Mutation, error)
	updateFn func(id int64, patch events.PatchInput) (*events.Mutation, error)
	deleteFn func(id int64) (*events.Deletion, error)
	statsFn  func() (*events.Statistics, error)
	rangeFn  func(from, to time.Time) ([]events.Event, error)
	now      time.Time
}

func (s stubEventService) List(_ context.Context, values url.Values) (*events.ListPage, error) {
	return s.listFn(values)
}
func (s stubEventService) Get(_ context.Context, id int64) (*events.EventView, error) {
	return s.getFn(id)
}
func (s stubEventService) Create(_ context.Context, input events.CreateInput) (*events.Mutation, error) {
	return s.createFn(input)
}
func (s stubEventService) Update(_ context.Context, id int64, patch events.PatchInput) (*events.Mutation, error) {
	return s.updateFn(id, patch)
}
func (s stubEventService) Delete(_ context.Context, id int64) (*events.Deletion, error) {
	return s.deleteFn(id)
}
func (s stubEventService) Statistics(context.Context) (*events.Statistics, error) {
	return s.statsFn()
}
func (s stubEventService) Range(_ context.Context, from, to time.Time) ([]events.Event, error) {
	return s.rangeFn(from, to)
}
func (s stubEventService) Now() time.Time { return s.now }

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeMessage(t *testing.T, res *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	return body.Message
}

func TestEventsHandlerListKeepsLiteralPlus(t *testing.T) {
	handler := NewEventsHandler(stubEventService{
		listFn: func(values url.Values) (*events.ListPage, error) {
			require.Equal(t, "+id,-name", values.Get("order"))
			return &events.ListPage{Page: 1, PageSize: 10, Events: []events.Record{}}, nil
		},
	}, "test", "", nil)

	req := httptest.NewRequest(http.MethodGet, "/events?order=+id,-name&page=1&size=10", nil)
	res := httptest.NewRecorder()
	handler.List(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "application/json", res.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.EqualValues(t, 10, body["page-size"])
}

func TestEventsHandlerListValidationError(t *testing.T) {
	handler := NewEventsHandler(stubEventService{
		listFn: func(url.Values) (*events.ListPage, error) {
			return nil, events.ValidationError{Kind: events.KindOrder, Field: "order", Message: "Invalid order!"}
		},
	}, "test", "", nil)

	res := httptest.NewRecorder()
	handler.List(res, httptest.NewRequest(http.MethodGet, "/events?order=id", nil))

	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "Invalid order!", decodeMessage(t, res))
}

func TestEventsHandlerListServiceError(t *testing.T) {
	handler := NewEventsHandler(stubEventService{
		listFn: func(url.Values) (*events.ListPage, error) {
			return nil, errors.New("connection reset")
		},
	}, "production", "", nil)

	res := httptest.NewRecorder()
	handler.List(res, httptest.NewRequest(http.MethodGet, "/events", nil))

	require.Equal(t, http.StatusInternalServerError, res.Code)
	require.NotContains(t, res.Body.String(), "connection reset")
}

func TestEventsHandlerCreate(t *testing.T) {
	handler := NewEventsHandler(stubEventService{
		createFn: func(input events.CreateInput) (*events.Mutation, error) {
			require.Equal(t, "Meetup", input.Name)
			require.NotNil(t, input.Location)
			require.Equal(t, "2033", input.Location.PostCode)
			return &events.Mutation{
				ID:         7,
				LastUpdate: "2024-05-01 12:00:00",
				Links:      events.Links{Self: events.Link{Href: "/events/7"}},
			}, nil
		},
	}, "test", "", nil)

	body := `{"name":"Meetup","date":"01-06-2024","from":"09:00:00","to":"10:00:00",` +
		`"location":{"street":"215B Night Ave","suburb":"Kensington","state":"NSW","post-code":"2033"},"description":"x"}`
	res := httptest.NewRecorder()
	handler.Create(res, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, res.Code)
	require.Equal(t, "/events/7", res.Header().Get("Location"))
	var created events.Mutation
	require.NoError(t, json.NewDecoder(res.Body).Decode(&created))
	require.EqualValues(t, 7, created.ID)
	require.Equal(t, "/events/7", created.Links.Self.Href)
}

func TestEventsHandlerCreateRejectsBadBodies(t *testing.T) {
	handler := NewEventsHandler(stubEventService{
		createFn: func(events.CreateInput) (*events.Mutation, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}, "test", "", nil)

	for _, body := range []string{"", "{", `{"name": 5}`} {
		res := httptest.NewRecorder()
		handler.Create(res, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body)))
		require.Equal(t, http.StatusBadRequest, res.Code, "body %q", body)
		require.Equal(t, "Input payload validation failed", decodeMessage(t, res))
	}
}

func TestEventsHandlerCreateTooLarge(t *testing.T) {
	handler := NewEventsHandler(stubEventService{}, "test", "", nil)

	req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"name":"`+strings.Repeat("x", 100)+`"}`))
	res := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(res, req.Body, 16)
	handler.Create(res, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, res.Code)
}

func TestEventsHandlerCreateConflict(t *testing.T) {
	handler := NewEventsHandler(stubEventService{
		createFn: func(events.CreateInput) (*events.Mutation, error) {
			return nil, events.ConflictError{Message: "The event overlaps with another event."}
		},
	}, "test", "", nil)

	res := httptest.NewRecorder()
	handler.Create(res, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"name":"x"}`)))

	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "The event overlaps with another event.", decodeMessage(t, res))
}

func TestEventsHandlerGet(t *testing.T) {
	handler := NewEventsHandler(stubEventService{
		getFn: func(id int64) (*events.EventView, error) {
			require.EqualValues(t, 3, id)
			return &events.EventView{
				ID:       3,
				Name:     "Meetup",
				Metadata: events.Metadata{Weekend: true, Temperature: "15 C"},
				Links:    events.Links{Self: events.Link{Href: "/events/3"}},
			}, nil
		},
	}, "test", "", nil)

	res := httptest.NewRecorder()
	handler.Get(res, withURLParam(httptest.NewRequest(http.MethodGet, "/events/3", nil), "id", "3"))

	require.Equal(t, http.StatusOK, res.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	metadata := body["_metadata"].(map[string]any)
	require.Equal(t, true, metadata["weekend"])
	require.Equal(t, "15 C", metadata["temperature"])
	require.NotContains(t, metadata, "holiday")
}

func TestEventsHandlerGetInvalidID(t *testing.T) {
	handler := NewEventsHandler(stubEventService{
		getFn: func(int64) (*events.EventView, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}, "test", "", nil)

	for _, raw := range []string{"abc", "0", "-4"} {
		res := httptest.NewRecorder()
		handler.Get(res, withURLParam(httptest.NewRequest(http.MethodGet, "/events/"+raw, nil), "id", raw))
		require.Equal(t, http.StatusBadRequest, res.Code, raw)
		require.Equal(t, "Invalid event ID", decodeMessage(t, res))
	}
}

func TestEventsHandlerGetNotFound(t *testing.T) {
	handler := NewEventsHandler(stubEventService{
		getFn: func(id int64) (*events.EventView, error) {
			return nil, events.NotFoundError{ID: id}
		},
	}, "test", "", nil)

	res := httptest.NewRecorder()
	handler.Get(res, withURLParam(httptest.NewRequest(http.MethodGet, "/events/99", nil), "id", "99"))

	require.Equal(t, http.StatusNotFound, res.Code)
	require.Equal(t, "Event 99 not found", decodeMessage(t, res))
}

func TestEventsHandlerUpdate(t *testing.T) {
	handler := NewEventsHandler(stubEventService{
		updateFn: func(id int64, patch events.PatchInput) (*events.Mutation, error) {
			require.EqualValues(t, 4, id)
			require.Nil(t, patch.Name)
			require.NotNil(t, patch.To)
			require.Equal(t, "18:00:00", *patch.To)
			return &events.Mutation{ID: 4, LastUpdate: "2024-05-02 08:00:00", Links: events.Links{Self: events.Link{Href: "/events/4"}}}, nil
		},
	}, "test", "", nil)

	req := withURLParam(httptest.NewRequest(http.MethodPatch, "/events/4", strings.NewReader(`{"to":"18:00:00"}`)), "id", "4")
	res := httptest.NewRecorder()
	handler.Update(res, req)

	require.Equal(t, http.StatusOK, res.Code)
}

func TestEventsHandlerUpdateTimeOrder(t *testing.T) {
	handler := NewEventsHandler(stubEventService{
		updateFn: func(int64, events.PatchInput) (*events.Mutation, error) {
			return nil, events.ErrTimeOrder
		},
	}, "test", "", nil)

	req := withURLParam(httptest.NewRequest(http.MethodPatch, "/events/4", strings.NewReader(`{"from":"23:00:00"}`)), "id", "4")
	res := httptest.NewRecorder()
	handler.Update(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "From time is after to time!", decodeMessage(t, res))
}

func TestEventsHandlerDelete(t *testing.T) {
	handler := NewEventsHandler(stubEventService{
		deleteFn: func(id int64) (*events.Deletion, error) {
			return &events.Deletion{Message: "The event with id 5 was removed from the database!", ID: id}, nil
		},
	}, "test", "", nil)

	res := httptest.NewRecorder()
	handler.Delete(res, withURLParam(httptest.NewRequest(http.MethodDelete, "/events/5", nil), "id", "5"))

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "The event with id 5 was removed from the database!", decodeMessage(t, res))
}

func sampleStatistics() *events.Statistics {
	return &events.Statistics{
		Total:        3,
		CurrentWeek:  1,
		CurrentMonth: 2,
		PerDay: []events.DayCount{
			{Day: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), Count: 2},
			{Day: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Count: 1},
		},
	}
}

func TestEventsHandlerStatisticsFormats(t *testing.T) {
	handler := NewEventsHandler(stubEventService{
		statsFn: func() (*events.Statistics, error) { return sampleStatistics(), nil },
	}, "test", "", nil)

	res := httptest.NewRecorder()
	handler.Statistics(res, httptest.NewRequest(http.MethodGet, "/events/statistics?format=json", nil))
	require.Equal(t, http.StatusOK, res.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
	require.EqualValues(t, 3, body["total"])
	require.EqualValues(t, 1, body["total-current-week"])
	require.EqualValues(t, 2, body["per-days"].(map[string]any)["01-06-2024"])

	res = httptest.NewRecorder()
	handler.Statistics(res, httptest.NewRequest(http.MethodGet, "/events/statistics?format=image", nil))
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "image/png", res.Header().Get("Content-Type"))
	_, err := png.Decode(bytes.NewReader(res.Body.Bytes()))
	require.NoError(t, err)
}

func TestEventsHandlerStatisticsErrors(t *testing.T) {
	handler := NewEventsHandler(stubEventService{
		statsFn: func() (*events.Statistics, error) { return &events.Statistics{}, nil },
	}, "test", "", nil)

	cases := []struct {
		query   string
		status  int
		message string
	}{
		{"", http.StatusBadRequest, "Missing required parameter: format"},
		{"?format=xml", http.StatusBadRequest, "Invalid format!"},
		{"?format=image", http.StatusNotFound, "No events to display"},
	}
	for _, tc := range cases {
		res := httptest.NewRecorder()
		handler.Statistics(res, httptest.NewRequest(http.MethodGet, "/events/statistics"+tc.query, nil))
		require.Equal(t, tc.status, res.Code, tc.query)
		require.Equal(t, tc.message, decodeMessage(t, res), tc.query)
	}
}

func TestEventsHandlerCalendar(t *testing.T) {
	handler := NewEventsHandler(stubEventService{
		now: time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC),
		rangeFn: func(from, to time.Time) ([]events.Event, error) {
			require.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), from)
			require.Equal(t, time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC), to)
			return []events.Event{{
				ID:         1,
				Name:       "Meetup",
				From:       time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
				To:         time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
				LastUpdate: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
			}}, nil
		},
	}, "test", "http://calendar.example", nil)

	res := httptest.NewRecorder()
	handler.Calendar(res, httptest.NewRequest(http.MethodGet, "/events/calendar.ics?to=07-06-2024", nil))

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "text/calendar; charset=utf-8", res.Header().Get("Content-Type"))
	require.Contains(t, res.Body.String(), "BEGIN:VCALENDAR")
	require.Contains(t, res.Body.String(), "SUMMARY:Meetup")
	require.Contains(t, res.Body.String(), "UID:event-1@auscal")
}

func TestEventsHandlerCalendarValidation(t *testing.T) {
	handler := NewEventsHandler(stubEventService{
		now: time.Date(2024, 6, 1, 15, 0, 0, 0, time.UTC),
		rangeFn: func(time.Time, time.Time) ([]events.Event, error) {
			t.Fatal("range must not be called")
			return nil, nil
		},
	}, "test", "", nil)

	cases := map[string]string{
		"?from=2024-06-01":               "Invalid from date!",
		"?to=June":                       "Invalid to date!",
		"?from=10-06-2024&to=01-06-2024": "From date is after to date!",
		"?from=01-01-2024&to=01-06-2025": "Date range must not exceed one year",
	}
	for query, message := range cases {
		res := httptest.NewRecorder()
		handler.Calendar(res, httptest.NewRequest(http.MethodGet, "/events/calendar.ics"+query, nil))
		require.Equal(t, http.StatusBadRequest, res.Code, query)
		require.Equal(t, message, decodeMessage(t, res), query)
	}
}

func TestEventsHandlerAuditsWrites(t *testing.T) {
	var buf bytes.Buffer
	handler := NewEventsHandler(stubEventService{
		createFn: func(events.CreateInput) (*events.Mutation, error) {
			return &events.Mutation{ID: 11, Links: events.Links{Self: events.Link{Href: "/events/11"}}}, nil
		},
		deleteFn: func(id int64) (*events.Deletion, error) {
			return nil, events.NotFoundError{ID: id}
		},
	}, "test", "", nil)
	handler.Audit = audit.NewLogger(zerolog.New(&buf))

	res := httptest.NewRecorder()
	handler.Create(res, httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"name":"Meetup"}`)))
	require.Equal(t, http.StatusCreated, res.Code)

	res = httptest.NewRecorder()
	handler.Delete(res, withURLParam(httptest.NewRequest(http.MethodDelete, "/events/5", nil), "id", "5"))
	require.Equal(t, http.StatusNotFound, res.Code)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var entries []audit.Entry
	for _, line := range lines {
		var wrapper struct {
			Audit audit.Entry `json:"audit"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &wrapper))
		entries = append(entries, wrapper.Audit)
	}
	require.Equal(t, audit.ActionEventCreate, entries[0].Action)
	require.Equal(t, "11", entries[0].ResourceID)
	require.Equal(t, "Meetup", entries[0].Details["name"])
	require.Equal(t, audit.ActionEventDelete, entries[1].Action)
	require.Equal(t, audit.StatusFailure, entries[1].Status)
	require.Equal(t, "Event 5 not found", entries[1].Details["reason"])
}
