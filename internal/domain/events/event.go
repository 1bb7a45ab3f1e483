package events

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Wire layouts for dates and times. Event timestamps are wall-clock values
// with no zone; they are carried as UTC-labelled time.Time everywhere.
const (
	DateLayout       = "02-01-2006"
	TimeLayout       = "15:04:05"
	LastUpdateLayout = "2006-01-02 15:04:05"
	dateTimeLayout   = DateLayout + " " + TimeLayout
)

type Location struct {
	Street   string `json:"street"`
	Suburb   string `json:"suburb"`
	State    string `json:"state"`
	PostCode string `json:"post-code"`
}

type Event struct {
	ID          int64
	Name        string
	From        time.Time
	To          time.Time
	Location    Location
	Description string
	LastUpdate  time.Time
}

// Date is the calendar day the event starts on.
func (e Event) Date() string {
	return e.From.Format(DateLayout)
}

// Weekend reports whether the event starts on a Saturday or Sunday.
func (e Event) Weekend() bool {
	day := e.From.Weekday()
	return day == time.Saturday || day == time.Sunday
}

// Overlaps uses half-open intervals, so events that only touch do not overlap.
func (e Event) Overlaps(other Event) bool {
	return e.From.Before(other.To) && other.From.Before(e.To)
}

// WallClock drops the zone from t while keeping its calendar fields.
func WallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

func parseDateTime(date, clock string) (time.Time, error) {
	return time.Parse(dateTimeLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(clock))
}

// ParseID validates a path identifier. Anything that is not a positive
// integer is rejected with the same message.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 1 {
		return 0, ValidationError{Kind: KindID, Field: "id", Message: "Invalid event ID"}
	}
	return id, nil
}

func eventHref(id int64) string {
	return fmt.Sprintf("/events/%d", id)
}
