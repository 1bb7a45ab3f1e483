package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jeremytraini/auscal/internal/api/handlers"
	"github.com/jeremytraini/auscal/internal/api/middleware"
	"github.com/jeremytraini/auscal/internal/api/problem"
	"github.com/jeremytraini/auscal/internal/audit"
	"github.com/jeremytraini/auscal/internal/config"
	"github.com/jeremytraini/auscal/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Config    config.Config
	Logger    zerolog.Logger
	Events    handlers.EventService
	Forecasts handlers.CityForecaster
	Health    *handlers.HealthChecker
	Build     BuildInfo
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	eventsHandler := handlers.NewEventsHandler(deps.Events, cfg.Environment, cfg.Server.BaseURL, cfg.Location())
	eventsHandler.Audit = audit.NewLogger(deps.Logger)
	weatherHandler := handlers.NewWeatherHandler(deps.Forecasts, cfg.Weather.Cities, cfg.Environment, deps.Events.Now)

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CorrelationID(deps.Logger))
	r.Use(middleware.Tracing)
	r.Use(metrics.HTTPMiddleware)
	r.Use(middleware.RequestLogging(deps.Logger))
	r.Use(middleware.SecurityHeaders(cfg.Environment == "production"))
	r.Use(middleware.RateLimit(cfg.RateLimit))
	r.Use(middleware.RequestSize(middleware.DefaultMaxBodySize))
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not Found", nil, cfg.Environment,
			problem.WithMessage("The requested URL was not found on the server."))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusMethodNotAllowed, "about:blank", "Method Not Allowed", nil, cfg.Environment,
			problem.WithMessage("The method is not allowed for the requested URL."))
	})

	r.Get("/healthz", handlers.Healthz())
	if deps.Health != nil {
		r.Get("/health", deps.Health.Health())
	}
	r.Method(http.MethodGet, "/version", VersionHandler(deps.Build))
	r.Get("/openapi.json", OpenAPIHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	r.Route("/events", func(r chi.Router) {
		r.Get("/", eventsHandler.List)
		r.Post("/", eventsHandler.Create)
		r.Get("/statistics", eventsHandler.Statistics)
		r.Get("/calendar.ics", eventsHandler.Calendar)
		r.Get("/{id}", eventsHandler.Get)
		r.Patch("/{id}", eventsHandler.Update)
		r.Delete("/{id}", eventsHandler.Delete)
	})
	r.Get("/weather", weatherHandler.Map)

	return r
}
