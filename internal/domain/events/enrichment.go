package events

import "context"

// Enricher supplies best-effort weather and holiday context for one event.
// It never fails: anything it cannot resolve is left empty.
type Enricher interface {
	Enrich(ctx context.Context, e Event) Metadata
}

type Metadata struct {
	WindSpeed   string `json:"wind_speed,omitempty"`
	Weather     string `json:"weather,omitempty"`
	Humidity    string `json:"humidity,omitempty"`
	Temperature string `json:"temperature,omitempty"`
	Holiday     string `json:"holiday,omitempty"`
	Weekend     bool   `json:"weekend"`
}

type noopEnricher struct{}

func (noopEnricher) Enrich(context.Context, Event) Metadata {
	return Metadata{}
}
