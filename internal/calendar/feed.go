// Package calendar exports events as an iCalendar (RFC 5545) feed.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/jeremytraini/auscal/internal/domain/events"
	"github.com/jeremytraini/auscal/internal/sanitize"
)

const productID = "-//AusCal//Events//EN"

type FeedOptions struct {
	Name     string
	Location *time.Location // zone event wall-clock times belong to
	BaseURL  string         // prefix for per-event URLs, may be empty
	Now      time.Time
}

// Feed renders items as a VCALENDAR. Times are written in UTC and any markup
// in event text is stripped.
func Feed(items []events.Event, opts FeedOptions) string {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	cal.SetXWRTimezone(loc.String())

	for _, e := range items {
		ve := cal.AddEvent(fmt.Sprintf("event-%d@auscal", e.ID))
		ve.SetDtStampTime(now.UTC())
		ve.SetModifiedAt(inZone(e.LastUpdate, loc).UTC())
		ve.SetStartAt(inZone(e.From, loc).UTC())
		ve.SetEndAt(inZone(e.To, loc).UTC())
		ve.SetSummary(sanitize.Text(e.Name))
		ve.SetLocation(sanitize.Text(formatLocation(e.Location)))
		if description := sanitize.Text(e.Description); description != "" {
			ve.SetDescription(description)
		}
		if opts.BaseURL != "" {
			ve.SetURL(strings.TrimRight(opts.BaseURL, "/") + fmt.Sprintf("/events/%d", e.ID))
		}
	}
	return cal.Serialize()
}

func inZone(wall time.Time, loc *time.Location) time.Time {
	return time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), 0, loc)
}

func formatLocation(l events.Location) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{l.Street, l.Suburb, strings.TrimSpace(l.State + " " + l.PostCode)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
