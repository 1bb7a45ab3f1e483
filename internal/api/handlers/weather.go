package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jeremytraini/auscal/internal/api/problem"
	"github.com/jeremytraini/auscal/internal/config"
	"github.com/jeremytraini/auscal/internal/domain/events"
	"github.com/jeremytraini/auscal/internal/enrichment"
	"github.com/jeremytraini/auscal/internal/render"
)

type CityForecaster interface {
	CityForecasts(ctx context.Context, cities []config.City, at time.Time) ([]enrichment.CityForecast, error)
}

// labelOffsets nudge labels of cities whose markers sit close together.
var labelOffsets = map[string][2]float64{
	"Adelaide":  {0.5, -1.3},
	"Melbourne": {-1, 0},
	"Sydney":    {0, 1.2},
}

type WeatherHandler struct {
	Forecasts CityForecaster
	Cities    []config.City
	Env       string
	// Now supplies the time of day looked up on the requested date.
	Now func() time.Time
}

func NewWeatherHandler(forecasts CityForecaster, cities []config.City, env string, now func() time.Time) *WeatherHandler {
	if now == nil {
		now = time.Now
	}
	return &WeatherHandler{Forecasts: forecasts, Cities: cities, Env: env, Now: now}
}

// Map draws the forecast for every configured city on the requested date at
// the current time of day.
func (h *WeatherHandler) Map(w http.ResponseWriter, r *http.Request) {
	values := queryValues(r)
	raw := values.Get("date")
	if raw == "" {
		badRequest(w, r, "Missing required parameter: date", h.Env)
		return
	}
	day, err := time.Parse(events.DateLayout, raw)
	if err != nil {
		badRequest(w, r, "Invalid date!", h.Env)
		return
	}
	now := h.Now()
	at := time.Date(day.Year(), day.Month(), day.Day(), now.Hour(), now.Minute(), now.Second(), 0, time.UTC)

	forecasts, err := h.Forecasts.CityForecasts(r.Context(), h.Cities, at)
	if err != nil {
		var gatewayErr *enrichment.GatewayError
		switch {
		case errors.Is(err, enrichment.ErrNoForecast):
			notFound(w, r, "No weather data found for this date!", h.Env)
		case errors.As(err, &gatewayErr):
			problem.Write(w, r, http.StatusBadGateway, problem.TypeUpstream, "Bad Gateway", err, h.Env,
				problem.WithMessage("Weather provider unavailable"))
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Internal Server Error", err, h.Env,
				problem.WithMessage("Internal server error"))
		}
		return
	}

	weatherMap := render.Map{Title: "Weather Forecast for " + day.Format("02/01/2006")}
	for _, forecast := range forecasts {
		offset := labelOffsets[forecast.City.Name]
		weatherMap.Markers = append(weatherMap.Markers, render.Marker{
			Lat:       forecast.City.Lat,
			Lng:       forecast.City.Lng,
			OffsetLat: offset[0],
			OffsetLng: offset[1],
			Lines:     []string{forecast.City.Name, forecast.Temperature + " C " + forecast.Weather},
		})
	}

	var buf bytes.Buffer
	if err := weatherMap.Render(&buf); err != nil {
		if errors.Is(err, render.ErrNoMarkers) {
			notFound(w, r, "No weather data found for this date!", h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeInternal, "Internal Server Error", err, h.Env,
			problem.WithMessage("Could not render map"))
		return
	}
	writePNG(w, buf.Bytes())
}
