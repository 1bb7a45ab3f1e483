// Package geocoding resolves an event's suburb and state to coordinates.
package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jeremytraini/auscal/internal/cache"
	"github.com/jeremytraini/auscal/internal/geocoding/nominatim"
	"github.com/jeremytraini/auscal/internal/metrics"
	"github.com/rs/zerolog"
)

const (
	cacheNamespace = "geocode"
	// Negative answers are kept briefly so a new suburb is retried the same day.
	notFoundTTL = time.Hour
	DefaultTTL  = 7 * 24 * time.Hour
)

var (
	// ErrUnknownState is returned for a state that is not an Australian state
	// or territory.
	ErrUnknownState = errors.New("unknown state")

	// ErrNoResults is returned when neither the gazetteer nor Nominatim knows the suburb.
	ErrNoResults = errors.New("no geocoding results found")

	// ErrGeocodingFailed is returned when the Nominatim lookup itself fails.
	ErrGeocodingFailed = errors.New("geocoding failed")
)

// Searcher is the part of the Nominatim client the service needs.
type Searcher interface {
	Search(ctx context.Context, query string, opts nominatim.SearchOptions) ([]nominatim.SearchResult, error)
}

// GeocodeResult represents the result of a geocoding operation.
type GeocodeResult struct {
	Point
	Source string // "gazetteer", "cache" or "nominatim"
}

type cachedGeocode struct {
	Point
	Found bool `json:"found"`
}

// Service checks the gazetteer, then the cache, then Nominatim. Any of the
// three may be nil.
type Service struct {
	gazetteer    *Gazetteer
	client       Searcher
	cache        cache.Cache
	countryCodes string
	ttl          time.Duration
	logger       zerolog.Logger
}

func NewService(gazetteer *Gazetteer, client Searcher, c cache.Cache, countryCodes string, logger zerolog.Logger) *Service {
	return &Service{
		gazetteer:    gazetteer,
		client:       client,
		cache:        c,
		countryCodes: strings.ToLower(countryCodes),
		ttl:          DefaultTTL,
		logger:       logger,
	}
}

// Geocode resolves suburb and state to a point.
func (s *Service) Geocode(ctx context.Context, suburb, state string) (*GeocodeResult, error) {
	fullState, ok := NormalizeState(state)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownState, state)
	}
	suburb = strings.ToLower(strings.TrimSpace(suburb))
	if suburb == "" {
		return nil, ErrNoResults
	}

	if point, ok := s.gazetteer.Lookup(fullState, suburb); ok {
		metrics.GeocodingRequestsTotal.WithLabelValues("gazetteer").Inc()
		return &GeocodeResult{Point: point, Source: "gazetteer"}, nil
	}

	key := fullState + "|" + suburb
	if s.cache != nil {
		var cached cachedGeocode
		hit, err := cache.GetJSON(ctx, s.cache, cacheNamespace, key, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Str("suburb", suburb).Msg("failed to check geocoding cache")
		}
		if hit {
			metrics.GeocodingRequestsTotal.WithLabelValues("cache").Inc()
			if !cached.Found {
				return nil, ErrNoResults
			}
			return &GeocodeResult{Point: cached.Point, Source: "cache"}, nil
		}
	}

	if s.client == nil {
		metrics.GeocodingFailuresTotal.WithLabelValues("not_found").Inc()
		return nil, ErrNoResults
	}

	metrics.GeocodingRequestsTotal.WithLabelValues("nominatim").Inc()
	query := fmt.Sprintf("%s, %s, Australia", suburb, fullState)
	start := time.Now()
	results, err := s.client.Search(ctx, query, nominatim.SearchOptions{CountryCodes: s.countryCodes, Limit: 1})
	metrics.GeocodingNominatimLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GeocodingNominatimRequestsTotal.WithLabelValues("error").Inc()
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		metrics.GeocodingFailuresTotal.WithLabelValues(reason).Inc()
		return nil, fmt.Errorf("%w: %w", ErrGeocodingFailed, err)
	}
	metrics.GeocodingNominatimRequestsTotal.WithLabelValues("success").Inc()

	var point Point
	found := false
	for _, r := range results {
		lat, lng, err := r.Coordinates()
		if err != nil {
			s.logger.Debug().Err(err).Str("query", query).Msg("skipping unparseable nominatim result")
			continue
		}
		point, found = Point{Lat: lat, Lng: lng}, true
		break
	}

	s.remember(ctx, key, cachedGeocode{Point: point, Found: found})
	if !found {
		metrics.GeocodingFailuresTotal.WithLabelValues("not_found").Inc()
		return nil, ErrNoResults
	}

	s.logger.Debug().
		Str("query", query).
		Float64("lat", point.Lat).
		Float64("lng", point.Lng).
		Dur("latency", time.Since(start)).
		Msg("geocoded via nominatim")
	return &GeocodeResult{Point: point, Source: "nominatim"}, nil
}

func (s *Service) remember(ctx context.Context, key string, entry cachedGeocode) {
	if s.cache == nil {
		return
	}
	ttl := s.ttl
	if !entry.Found {
		ttl = notFoundTTL
	}
	if err := cache.SetJSON(ctx, s.cache, cacheNamespace, key, entry, ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to cache geocoding result")
	}
}
