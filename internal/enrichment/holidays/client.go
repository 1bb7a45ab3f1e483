// Package holidays fetches public holidays from Nager.Date.
package holidays

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jeremytraini/auscal/internal/cache"
	"github.com/jeremytraini/auscal/internal/fetch"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://date.nager.at"
	DefaultTTL     = 24 * time.Hour
	cacheNamespace = "holidays"
	dateLayout     = "2006-01-02"
)

type Holiday struct {
	Date      string   `json:"date"`
	LocalName string   `json:"localName"`
	Name      string   `json:"name"`
	Country   string   `json:"countryCode"`
	Global    bool     `json:"global"`
	Counties  []string `json:"counties"`
	Types     []string `json:"types"`
}

type Client struct {
	http    *fetch.Client
	baseURL string
	country string
	cache   cache.Cache
	ttl     time.Duration
	logger  zerolog.Logger
}

func NewClient(baseURL, country string, httpClient *fetch.Client, c cache.Cache, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if country == "" {
		country = "AU"
	}
	if httpClient == nil {
		httpClient = fetch.New()
	}
	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		country: strings.ToUpper(country),
		cache:   c,
		ttl:     DefaultTTL,
		logger:  logger,
	}
}

// Holidays returns every public holiday in year. A year Nager.Date has no
// data for yields an empty list.
func (c *Client) Holidays(ctx context.Context, year int) ([]Holiday, error) {
	key := c.country + ":" + strconv.Itoa(year)
	if c.cache != nil {
		var cached []Holiday
		hit, err := cache.GetJSON(ctx, c.cache, cacheNamespace, key, &cached)
		if err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("holiday cache lookup failed")
		}
		if hit {
			return cached, nil
		}
	}

	requestURL := fmt.Sprintf("%s/api/v3/PublicHolidays/%d/%s", c.baseURL, year, c.country)
	var list []Holiday
	err := c.http.GetJSON(ctx, requestURL, &list)
	switch {
	case fetch.IsStatus(err, http.StatusNoContent), fetch.IsStatus(err, http.StatusNotFound):
		list = []Holiday{}
	case err != nil:
		return nil, fmt.Errorf("fetch holidays %d: %w", year, err)
	}
	if list == nil {
		list = []Holiday{}
	}

	if c.cache != nil {
		if err := cache.SetJSON(ctx, c.cache, cacheNamespace, key, list, c.ttl); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("holiday cache store failed")
		}
	}
	return list, nil
}

// On returns the name of the first holiday falling on day, if any.
func On(list []Holiday, day time.Time) (string, bool) {
	date := day.Format(dateLayout)
	for _, h := range list {
		if h.Date == date {
			return h.Name, true
		}
	}
	return "", false
}
