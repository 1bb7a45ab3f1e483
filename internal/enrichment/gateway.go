// Package enrichment adds weather and public-holiday context to events. It is
// best effort: provider failures are logged and counted, never returned to
// the event read path.
package enrichment

import (
	"context"
	"errors"
	"time"

	"github.com/jeremytraini/auscal/internal/config"
	"github.com/jeremytraini/auscal/internal/domain/events"
	"github.com/jeremytraini/auscal/internal/enrichment/holidays"
	"github.com/jeremytraini/auscal/internal/enrichment/weather"
	"github.com/jeremytraini/auscal/internal/geocoding"
	"github.com/jeremytraini/auscal/internal/metrics"
	"github.com/jeremytraini/auscal/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const (
	tracerName = "github.com/jeremytraini/auscal/internal/enrichment"

	providerGeocoding = "geocoding"
	providerWeather   = "weather"
	providerHolidays  = "holidays"

	// cityFanOut bounds concurrent forecast requests for the weather map.
	cityFanOut = 4
)

type Geocoder interface {
	Geocode(ctx context.Context, suburb, state string) (*geocoding.GeocodeResult, error)
}

type ForecastProvider interface {
	Forecast(ctx context.Context, lat, lng float64) (*weather.Forecast, error)
}

type HolidayProvider interface {
	Holidays(ctx context.Context, year int) ([]holidays.Holiday, error)
}

// Gateway implements events.Enricher. Any provider may be nil, which simply
// leaves its fields empty.
type Gateway struct {
	geocoder  Geocoder
	forecasts ForecastProvider
	holidays  HolidayProvider
	loc       *time.Location
	logger    zerolog.Logger
	tracer    trace.Tracer
}

var _ events.Enricher = (*Gateway)(nil)

type Option func(*Gateway)

// WithLocation sets the zone event wall-clock times are interpreted in when
// they are compared against forecast times. The default is UTC.
func WithLocation(loc *time.Location) Option {
	return func(g *Gateway) {
		if loc != nil {
			g.loc = loc
		}
	}
}

func NewGateway(geocoder Geocoder, forecasts ForecastProvider, holidays HolidayProvider, logger zerolog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		geocoder:  geocoder,
		forecasts: forecasts,
		holidays:  holidays,
		loc:       time.UTC,
		logger:    logger.With().Str("component", "enrichment").Logger(),
		tracer:    telemetry.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Enrich fetches weather and holidays concurrently.
func (g *Gateway) Enrich(ctx context.Context, e events.Event) events.Metadata {
	ctx, span := g.tracer.Start(ctx, "enrichment.Enrich", trace.WithAttributes(attribute.Int64("event.id", e.ID)))
	defer span.End()

	var (
		point   *weather.DataPoint
		holiday string
	)

	var group errgroup.Group
	group.Go(func() error {
		p, err := g.weatherFor(ctx, e)
		if err != nil {
			g.report(ctx, e, err)
			return nil
		}
		point = p
		return nil
	})
	group.Go(func() error {
		name, err := g.holidayFor(ctx, e)
		if err != nil {
			g.report(ctx, e, err)
			return nil
		}
		holiday = name
		return nil
	})
	_ = group.Wait()

	var md events.Metadata
	if point != nil {
		md.WindSpeed = point.WindSpeed()
		md.Weather = point.Weather
		md.Humidity = point.Rh2m
		md.Temperature = point.Temperature()
	}
	md.Holiday = holiday
	md.Weekend = e.Weekend()
	return md
}

func (g *Gateway) weatherFor(ctx context.Context, e events.Event) (*weather.DataPoint, error) {
	if g.geocoder == nil || g.forecasts == nil {
		return nil, nil
	}

	located, err := g.geocoder.Geocode(ctx, e.Location.Suburb, e.Location.State)
	switch {
	case errors.Is(err, geocoding.ErrUnknownState), errors.Is(err, geocoding.ErrNoResults):
		g.logger.Debug().Int64("event_id", e.ID).Err(err).Msg("no coordinates for event location")
		return nil, nil
	case err != nil:
		return nil, &GatewayError{Provider: providerGeocoding, Err: err}
	}

	forecast, err := g.forecast(ctx, located.Point)
	if err != nil {
		return nil, err
	}
	point, ok := forecast.Select(g.instant(e.From), g.instant(e.To))
	if !ok {
		return nil, nil
	}
	return point, nil
}

func (g *Gateway) forecast(ctx context.Context, at geocoding.Point) (*weather.Forecast, error) {
	ctx, span := g.tracer.Start(ctx, "enrichment.weather", trace.WithAttributes(
		attribute.Float64("geo.lat", at.Lat),
		attribute.Float64("geo.lng", at.Lng),
	))
	defer span.End()

	start := time.Now()
	forecast, err := g.forecasts.Forecast(ctx, at.Lat, at.Lng)
	if err != nil {
		metrics.RecordProvider(providerWeather, "error", start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "forecast failed")
		return nil, &GatewayError{Provider: providerWeather, Err: err}
	}
	outcome := "success"
	if len(forecast.Dataseries) == 0 {
		outcome = "empty"
	}
	metrics.RecordProvider(providerWeather, outcome, start)
	return forecast, nil
}

func (g *Gateway) holidayFor(ctx context.Context, e events.Event) (string, error) {
	if g.holidays == nil {
		return "", nil
	}

	ctx, span := g.tracer.Start(ctx, "enrichment.holidays", trace.WithAttributes(attribute.Int("holiday.year", e.From.Year())))
	defer span.End()

	start := time.Now()
	list, err := g.holidays.Holidays(ctx, e.From.Year())
	if err != nil {
		metrics.RecordProvider(providerHolidays, "error", start)
		span.RecordError(err)
		span.SetStatus(codes.Error, "holiday lookup failed")
		return "", &GatewayError{Provider: providerHolidays, Err: err}
	}
	outcome := "success"
	if len(list) == 0 {
		outcome = "empty"
	}
	metrics.RecordProvider(providerHolidays, outcome, start)

	name, _ := holidays.On(list, e.From)
	return name, nil
}

func (g *Gateway) report(ctx context.Context, e events.Event, err error) {
	var gwErr *GatewayError
	provider := "unknown"
	if errors.As(err, &gwErr) {
		provider = gwErr.Provider
	}
	if ctx.Err() != nil {
		g.logger.Warn().Err(err).Int64("event_id", e.ID).Str("provider", provider).Msg("enrichment timed out")
		return
	}
	g.logger.Warn().Err(err).Int64("event_id", e.ID).Str("provider", provider).Msg("enrichment provider failed")
}

// instant reads a zone-less wall-clock time in the gateway's location.
func (g *Gateway) instant(wall time.Time) time.Time {
	return time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, g.loc)
}

// CityForecast is one labelled point on the weather map.
type CityForecast struct {
	City        config.City
	Temperature string
	Weather     string
}

// CityForecasts returns the forecast for every city at the wall-clock time
// at. It fails with ErrNoForecast if any city has no data point for that
// time, and with a GatewayError if a provider call fails.
func (g *Gateway) CityForecasts(ctx context.Context, cities []config.City, at time.Time) ([]CityForecast, error) {
	if g.forecasts == nil {
		return nil, &GatewayError{Provider: providerWeather, Err: errors.New("weather provider not configured")}
	}

	ctx, span := g.tracer.Start(ctx, "enrichment.CityForecasts", trace.WithAttributes(attribute.Int("cities", len(cities))))
	defer span.End()

	moment := g.instant(at)
	out := make([]CityForecast, len(cities))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(cityFanOut)
	for i, city := range cities {
		group.Go(func() error {
			forecast, err := g.forecast(groupCtx, geocoding.Point{Lat: city.Lat, Lng: city.Lng})
			if err != nil {
				return err
			}
			point, ok := forecast.Select(moment, moment)
			if !ok {
				return ErrNoForecast
			}
			out[i] = CityForecast{
				City:        city,
				Temperature: point.TemperatureValue(),
				Weather:     point.Weather,
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		if !errors.Is(err, ErrNoForecast) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "city forecasts failed")
		}
		return nil, err
	}
	return out, nil
}
