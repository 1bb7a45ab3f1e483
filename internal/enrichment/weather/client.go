// Package weather fetches point forecasts from the 7Timer! civil product.
package weather

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jeremytraini/auscal/internal/cache"
	"github.com/jeremytraini/auscal/internal/fetch"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://www.7timer.info"
	// Forecasts are regenerated every six hours; an hour keeps them fresh.
	DefaultTTL     = time.Hour
	cacheNamespace = "forecast"
)

type Client struct {
	http    *fetch.Client
	baseURL string
	cache   cache.Cache
	ttl     time.Duration
	logger  zerolog.Logger
}

// NewClient returns a 7Timer! client. c may be nil to disable caching.
func NewClient(baseURL string, httpClient *fetch.Client, c cache.Cache, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = fetch.New()
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   c,
		ttl:     DefaultTTL,
		logger:  logger,
	}
}

// Forecast returns the civil forecast for a point. Coordinates are rounded to
// two decimals (about 1km) for the request and the cache key.
func (c *Client) Forecast(ctx context.Context, lat, lng float64) (*Forecast, error) {
	lat, lng = round2(lat), round2(lng)
	key := strconv.FormatFloat(lat, 'f', 2, 64) + "," + strconv.FormatFloat(lng, 'f', 2, 64)

	if c.cache != nil {
		var cached Forecast
		hit, err := cache.GetJSON(ctx, c.cache, cacheNamespace, key, &cached)
		if err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("forecast cache lookup failed")
		}
		if hit {
			return &cached, nil
		}
	}

	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	params.Set("ac", "1")
	params.Set("unit", "metric")
	params.Set("output", "json")
	params.Set("product", "two")

	var forecast Forecast
	if err := c.http.GetJSON(ctx, c.baseURL+"/bin/civil.php?"+params.Encode(), &forecast); err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}
	if _, err := forecast.InitTime(); err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := cache.SetJSON(ctx, c.cache, cacheNamespace, key, forecast, c.ttl); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("forecast cache store failed")
		}
	}
	return &forecast, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
