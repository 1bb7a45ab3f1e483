package nominatim

import (
	"fmt"
	"strconv"
)

// SearchOptions contains optional parameters for geocoding searches.
type SearchOptions struct {
	// CountryCodes limits results to specific countries (comma-separated ISO 3166-1 alpha-2 codes, e.g. "au")
	CountryCodes string
	// Limit controls the maximum number of results (default: 1, max: 50)
	Limit int
}

// SearchResult is a single result from the search endpoint (format=jsonv2).
type SearchResult struct {
	PlaceID     int64    `json:"place_id"`
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	DisplayName string   `json:"display_name"`
	Type        string   `json:"type"`
	Class       string   `json:"class"`
	Importance  float64  `json:"importance"`
	Address     *Address `json:"address,omitempty"`
}

// Coordinates parses the string lat/lon Nominatim returns.
func (r SearchResult) Coordinates() (lat, lng float64, err error) {
	lat, err = strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse latitude %q: %w", r.Lat, err)
	}
	lng, err = strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse longitude %q: %w", r.Lon, err)
	}
	return lat, lng, nil
}

// Address contains structured address components from Nominatim.
type Address struct {
	Suburb      string `json:"suburb,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Postcode    string `json:"postcode,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}
