package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jeremytraini/auscal/internal/api/problem"
	"github.com/jeremytraini/auscal/internal/audit"
	"github.com/jeremytraini/auscal/internal/calendar"
	"github.com/jeremytraini/auscal/internal/domain/events"
	"github.com/jeremytraini/auscal/internal/render"
)

// maxFeedSpan bounds one calendar export.
const maxFeedSpan = 366 * 24 * time.Hour

const defaultFeedSpan = 90 * 24 * time.Hour

// EventService is the domain surface the HTTP layer drives.
type EventService interface {
	List(ctx context.Context, values url.Values) (*events.ListPage, error)
	Get(ctx context.Context, id int64) (*events.EventView, error)
	Create(ctx context.Context, input events.CreateInput) (*events.Mutation, error)
	Update(ctx context.Context, id int64, patch events.PatchInput) (*events.Mutation, error)
	Delete(ctx context.Context, id int64) (*events.Deletion, error)
	Statistics(ctx context.Context) (*events.Statistics, error)
	Range(ctx context.Context, from, to time.Time) ([]events.Event, error)
	Now() time.Time
}

type EventsHandler struct {
	Service  EventService
	Env      string
	BaseURL  string
	Location *time.Location
	Audit    *audit.Logger
}

func NewEventsHandler(service EventService, env, baseURL string, loc *time.Location) *EventsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &EventsHandler{Service: service, Env: env, BaseURL: baseURL, Location: loc}
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.Service.List(r.Context(), queryValues(r))
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input events.CreateInput
	if err := decodeJSON(r, &input); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}

	created, err := h.Service.Create(r.Context(), input)
	if err != nil {
		h.auditFailure(r, audit.ActionEventCreate, "", err)
		writeServiceError(w, r, err, h.Env)
		return
	}
	h.Audit.LogFromRequest(r, audit.ActionEventCreate, strconv.FormatInt(created.ID, 10), audit.StatusSuccess, map[string]string{"name": input.Name})
	w.Header().Set("Location", created.Links.Self.Href)
	writeJSON(w, http.StatusCreated, created)
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := events.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}

	view, err := h.Service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := events.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}

	var patch events.PatchInput
	if err := decodeJSON(r, &patch); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}

	updated, err := h.Service.Update(r.Context(), id, patch)
	if err != nil {
		h.auditFailure(r, audit.ActionEventUpdate, strconv.FormatInt(id, 10), err)
		writeServiceError(w, r, err, h.Env)
		return
	}
	h.Audit.LogFromRequest(r, audit.ActionEventUpdate, strconv.FormatInt(id, 10), audit.StatusSuccess, nil)
	writeJSON(w, http.StatusOK, updated)
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := events.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}

	deleted, err := h.Service.Delete(r.Context(), id)
	if err != nil {
		h.auditFailure(r, audit.ActionEventDelete, strconv.FormatInt(id, 10), err)
		writeServiceError(w, r, err, h.Env)
		return
	}
	h.Audit.LogFromRequest(r, audit.ActionEventDelete, strconv.FormatInt(id, 10), audit.StatusSuccess, nil)
	writeJSON(w, http.StatusOK, deleted)
}

// auditFailure records rejected writes. Server faults are already logged by
// the problem writer.
func (h *EventsHandler) auditFailure(r *http.Request, action, resourceID string, err error) {
	if !events.IsValidation(err) && !errors.Is(err, events.ErrNotFound) {
		return
	}
	h.Audit.LogFromRequest(r, action, resourceID, audit.StatusFailure, map[string]string{"reason": events.Message(err)})
}

// Statistics answers format=json with the counters and format=image with a
// PNG bar chart of events per day.
func (h *EventsHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	values := queryValues(r)
	format, err := events.ParseStatisticsFormat(values.Get("format"), values.Has("format"))
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}

	stats, err := h.Service.Statistics(r.Context())
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}

	if format == "json" {
		writeJSON(w, http.StatusOK, stats)
		return
	}

	if len(stats.PerDay) == 0 {
		notFound(w, r, "No events to display", h.Env)
		return
	}
	chart := statisticsChart(stats)
	var buf bytes.Buffer
	if err := chart.Render(&buf); err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Internal Server Error", err, h.Env,
			problem.WithMessage("Could not render chart"))
		return
	}
	writePNG(w, buf.Bytes())
}

func statisticsChart(stats *events.Statistics) render.BarChart {
	bars := make([]render.Bar, 0, len(stats.PerDay))
	for _, day := range stats.PerDay {
		bars = append(bars, render.Bar{Label: day.Day.Format("02/01/2006"), Value: day.Count})
	}
	return render.BarChart{
		Title:  "Number of Events on each day",
		XLabel: "Date",
		YLabel: "Number of Events",
		Bars:   bars,
		Notes: []string{
			"Total: " + strconv.FormatInt(stats.Total, 10),
			"Total current week: " + strconv.FormatInt(stats.CurrentWeek, 10),
			"Total current month: " + strconv.FormatInt(stats.CurrentMonth, 10),
		},
	}
}

// Calendar exports events starting in [from, to] as iCalendar. Both bounds
// are DD-MM-YYYY days; from defaults to today and to to 90 days later.
func (h *EventsHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	values := queryValues(r)
	now := h.Service.Now()

	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if raw := values.Get("from"); raw != "" {
		parsed, err := time.Parse(events.DateLayout, raw)
		if err != nil {
			badRequest(w, r, "Invalid from date!", h.Env)
			return
		}
		from = parsed
	}
	to := from.Add(defaultFeedSpan)
	if raw := values.Get("to"); raw != "" {
		parsed, err := time.Parse(events.DateLayout, raw)
		if err != nil {
			badRequest(w, r, "Invalid to date!", h.Env)
			return
		}
		to = parsed.AddDate(0, 0, 1)
	}
	if !to.After(from) {
		badRequest(w, r, "From date is after to date!", h.Env)
		return
	}
	if to.Sub(from) > maxFeedSpan {
		badRequest(w, r, "Date range must not exceed one year", h.Env)
		return
	}

	items, err := h.Service.Range(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, r, err, h.Env)
		return
	}

	body := calendar.Feed(items, calendar.FeedOptions{
		Name:     "AusCal events",
		Location: h.Location,
		BaseURL:  h.BaseURL,
		Now:      time.Now(),
	})
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="auscal.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
