package nominatim

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jeremytraini/auscal/internal/fetch"
)

const (
	// DefaultBaseURL is the public Nominatim API endpoint
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	// DefaultRateLimit is 1 request per second (OSM policy)
	DefaultRateLimit = 1.0
)

// Client handles communication with the Nominatim geocoding API.
type Client struct {
	http    *fetch.Client
	baseURL string
}

// NewClient creates a Nominatim client. email is appended to the User-Agent
// as the OSM usage policy asks. opts are passed through to the fetch client
// after the Nominatim defaults, so they win.
func NewClient(baseURL, email string, opts ...fetch.Option) *Client {
	userAgent := fetch.DefaultUserAgent
	if email != "" {
		userAgent = fmt.Sprintf("%s (%s)", fetch.DefaultUserAgent, email)
	}
	base := []fetch.Option{
		fetch.WithUserAgent(userAgent),
		fetch.WithRateLimit(DefaultRateLimit),
	}
	return &Client{
		http:    fetch.New(append(base, opts...)...),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Search performs forward geocoding (query -> coordinates).
func (c *Client) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	if opts.CountryCodes != "" {
		params.Set("countrycodes", opts.CountryCodes)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 1
	}
	if limit > 50 {
		limit = 50
	}
	params.Set("limit", strconv.Itoa(limit))

	var results []SearchResult
	if err := c.http.GetJSON(ctx, c.baseURL+"/search?"+params.Encode(), &results); err != nil {
		return nil, fmt.Errorf("search geocoding: %w", err)
	}
	return results, nil
}
