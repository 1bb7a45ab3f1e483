package enrichment

import (
	"errors"
	"fmt"
)

// ErrNoForecast means a forecast was fetched but has no data point for the
// requested time.
var ErrNoForecast = errors.New("no weather data found for this date")

// GatewayError wraps a failure from one upstream provider.
type GatewayError struct {
	Provider string
	Err      error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
