package events

import (
	"context"
	"time"
)

// Repository is the event store. Implementations must run the overlap check
// and the write of Insert and Update as one serialized unit, so that two
// writers with intersecting windows can never both succeed.
type Repository interface {
	// Insert stores e under a fresh id. ErrConflict when it overlaps.
	Insert(ctx context.Context, e Event) (*Event, error)
	Get(ctx context.Context, id int64) (*Event, error)
	// Update loads the row for writing, lets apply mutate it, then re-checks
	// the overlap invariant excluding the row itself before persisting.
	Update(ctx context.Context, id int64, apply func(*Event) error) (*Event, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, plan QueryPlan) (ListResult, error)
	// Neighbors finds the events immediately before and after id in
	// (from_time, id) order, so events sharing a start time stay reachable.
	Neighbors(ctx context.Context, id int64) (Neighbors, error)
	// Between returns events starting in [from, to) ordered by start time.
	Between(ctx context.Context, from, to time.Time) ([]Event, error)
	Count(ctx context.Context) (int64, error)
	CountBetween(ctx context.Context, from, to time.Time) (int64, error)
	CountsPerDay(ctx context.Context) ([]DayCount, error)
}

type Neighbors struct {
	Previous *int64
	Next     *int64
}

type DayCount struct {
	Day   time.Time
	Count int64
}
