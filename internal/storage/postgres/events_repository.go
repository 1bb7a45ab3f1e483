package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jeremytraini/auscal/internal/domain/events"
	"github.com/jeremytraini/auscal/internal/metrics"
)

var _ events.Repository = (*EventRepository)(nil)

// eventsLockKey is the advisory lock every event writer takes before its
// overlap check.
const eventsLockKey int64 = 0x61757363616c

const (
	sqlStateExclusionViolation = "23P01"
	sqlStateCheckViolation     = "23514"
)

type EventRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

type eventRow struct {
	ID          int64     `db:"id"`
	LastUpdate  time.Time `db:"last_update"`
	Name        string    `db:"name"`
	FromTime    time.Time `db:"from_time"`
	ToTime      time.Time `db:"to_time"`
	Street      string    `db:"street"`
	Suburb      string    `db:"suburb"`
	State       string    `db:"state"`
	PostCode    string    `db:"post_code"`
	Description string    `db:"description"`
}

func (row eventRow) event() events.Event {
	return events.Event{
		ID:   row.ID,
		Name: row.Name,
		From: row.FromTime,
		To:   row.ToTime,
		Location: events.Location{
			Street:   row.Street,
			Suburb:   row.Suburb,
			State:    row.State,
			PostCode: row.PostCode,
		},
		Description: row.Description,
		LastUpdate:  row.LastUpdate,
	}
}

var selectAllColumns = "SELECT " + columnList(events.AllColumns) + " FROM events"

func (r *EventRepository) Insert(ctx context.Context, e events.Event) (_ *events.Event, err error) {
	start := time.Now()
	defer func() { observe("insert_event", start, err) }()

	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockWriters(ctx, tx); err != nil {
			return err
		}
		if err := checkOverlap(ctx, tx, e.From, e.To, 0); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
INSERT INTO events (last_update, name, from_time, to_time, street, suburb, state, post_code, description)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id`,
			e.LastUpdate, e.Name, e.From, e.To,
			e.Location.Street, e.Location.Suburb, e.Location.State, e.Location.PostCode,
			e.Description,
		).Scan(&e.ID)
	})
	if err != nil {
		return nil, writeError("insert event", err)
	}
	return &e, nil
}

func (r *EventRepository) Get(ctx context.Context, id int64) (_ *events.Event, err error) {
	start := time.Now()
	defer func() { observe("get_event", start, err) }()

	rows, err := r.queryer().Query(ctx, selectAllColumns+" WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[eventRow])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	event := row.event()
	return &event, nil
}

func (r *EventRepository) Update(ctx context.Context, id int64, apply func(*events.Event) error) (_ *events.Event, err error) {
	start := time.Now()
	defer func() { observe("update_event", start, err) }()

	var updated events.Event
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		if err := lockWriters(ctx, tx); err != nil {
			return err
		}
		rows, err := tx.Query(ctx, selectAllColumns+" WHERE id = $1 FOR UPDATE", id)
		if err != nil {
			return err
		}
		row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[eventRow])
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return events.ErrNotFound
			}
			return err
		}

		updated = row.event()
		if err := apply(&updated); err != nil {
			return err
		}
		updated.ID = id
		if err := checkOverlap(ctx, tx, updated.From, updated.To, id); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
UPDATE events
   SET last_update = $2, name = $3, from_time = $4, to_time = $5,
       street = $6, suburb = $7, state = $8, post_code = $9, description = $10
 WHERE id = $1`,
			id, updated.LastUpdate, updated.Name, updated.From, updated.To,
			updated.Location.Street, updated.Location.Suburb, updated.Location.State, updated.Location.PostCode,
			updated.Description,
		)
		return err
	})
	if err != nil {
		return nil, writeError("update event", err)
	}
	return &updated, nil
}

func (r *EventRepository) Delete(ctx context.Context, id int64) (err error) {
	start := time.Now()
	defer func() { observe("delete_event", start, err) }()

	tag, err := r.execer().Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

// List reads one page plus a single lookahead row; that row only decides
// whether a next page exists and is not returned.
func (r *EventRepository) List(ctx context.Context, plan events.QueryPlan) (_ events.ListResult, err error) {
	start := time.Now()
	defer func() { observe("list_events", start, err) }()

	query := fmt.Sprintf("SELECT %s FROM events ORDER BY %s LIMIT $1 OFFSET $2",
		columnList(plan.Columns()), orderBy(plan.Sort))

	rows, err := r.queryer().Query(ctx, query, plan.FetchLimit(), plan.Offset())
	if err != nil {
		return events.ListResult{}, fmt.Errorf("list events: %w", err)
	}
	collected, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[eventRow])
	if err != nil {
		return events.ListResult{}, fmt.Errorf("list events: %w", err)
	}

	result := events.ListResult{Events: make([]events.Event, 0, len(collected))}
	if len(collected) > plan.Limit() {
		result.HasNext = true
		collected = collected[:plan.Limit()]
	}
	for _, row := range collected {
		result.Events = append(result.Events, row.event())
	}
	return result, nil
}

func (r *EventRepository) Neighbors(ctx context.Context, id int64) (_ events.Neighbors, err error) {
	start := time.Now()
	defer func() { observe("event_neighbors", start, err) }()

	var neighbors events.Neighbors
	neighbors.Previous, err = r.neighbor(ctx, `
SELECT e.id FROM events e, events self
 WHERE self.id = $1 AND (e.from_time, e.id) < (self.from_time, self.id)
 ORDER BY e.from_time DESC, e.id DESC
 LIMIT 1`, id)
	if err != nil {
		return events.Neighbors{}, fmt.Errorf("previous event: %w", err)
	}
	neighbors.Next, err = r.neighbor(ctx, `
SELECT e.id FROM events e, events self
 WHERE self.id = $1 AND (e.from_time, e.id) > (self.from_time, self.id)
 ORDER BY e.from_time ASC, e.id ASC
 LIMIT 1`, id)
	if err != nil {
		return events.Neighbors{}, fmt.Errorf("next event: %w", err)
	}
	return neighbors, nil
}

func (r *EventRepository) neighbor(ctx context.Context, query string, id int64) (*int64, error) {
	var neighborID int64
	if err := r.queryer().QueryRow(ctx, query, id).Scan(&neighborID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &neighborID, nil
}

func (r *EventRepository) Between(ctx context.Context, from, to time.Time) (_ []events.Event, err error) {
	start := time.Now()
	defer func() { observe("events_between", start, err) }()

	rows, err := r.queryer().Query(ctx,
		selectAllColumns+" WHERE from_time >= $1 AND from_time < $2 ORDER BY from_time ASC, id ASC", from, to)
	if err != nil {
		return nil, fmt.Errorf("events between: %w", err)
	}
	collected, err := pgx.CollectRows(rows, pgx.RowToStructByName[eventRow])
	if err != nil {
		return nil, fmt.Errorf("events between: %w", err)
	}
	items := make([]events.Event, 0, len(collected))
	for _, row := range collected {
		items = append(items, row.event())
	}
	return items, nil
}

func (r *EventRepository) Count(ctx context.Context) (total int64, err error) {
	start := time.Now()
	defer func() { observe("count_events", start, err) }()

	if err = r.queryer().QueryRow(ctx, `SELECT count(*) FROM events`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return total, nil
}

func (r *EventRepository) CountBetween(ctx context.Context, from, to time.Time) (total int64, err error) {
	start := time.Now()
	defer func() { observe("count_events_between", start, err) }()

	err = r.queryer().QueryRow(ctx,
		`SELECT count(*) FROM events WHERE from_time >= $1 AND from_time < $2`, from, to,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count events between: %w", err)
	}
	return total, nil
}

func (r *EventRepository) CountsPerDay(ctx context.Context) (_ []events.DayCount, err error) {
	start := time.Now()
	defer func() { observe("count_events_per_day", start, err) }()

	rows, err := r.queryer().Query(ctx, `
SELECT from_time::date AS day, count(*) AS count
  FROM events
 GROUP BY day
 ORDER BY day ASC`)
	if err != nil {
		return nil, fmt.Errorf("count events per day: %w", err)
	}
	counts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (events.DayCount, error) {
		var day events.DayCount
		err := row.Scan(&day.Day, &day.Count)
		return day, err
	})
	if err != nil {
		return nil, fmt.Errorf("count events per day: %w", err)
	}
	return counts, nil
}

func lockWriters(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, eventsLockKey); err != nil {
		return fmt.Errorf("lock event writers: %w", err)
	}
	return nil
}

// checkOverlap applies the half-open overlap test against every other row.
func checkOverlap(ctx context.Context, tx pgx.Tx, from, to time.Time, self int64) error {
	var overlaps bool
	err := tx.QueryRow(ctx, `
SELECT EXISTS (
  SELECT 1 FROM events
   WHERE from_time < $2 AND to_time > $1 AND id <> $3
)`, from, to, self).Scan(&overlaps)
	if err != nil {
		return fmt.Errorf("check overlap: %w", err)
	}
	if overlaps {
		return events.ErrConflict
	}
	return nil
}

// writeError maps constraint violations onto domain errors and leaves domain
// errors returned from inside the transaction untouched.
func writeError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateExclusionViolation:
			return events.ErrConflict
		case sqlStateCheckViolation:
			return events.ErrTimeOrder
		}
	}
	if errors.Is(err, events.ErrConflict) || errors.Is(err, events.ErrNotFound) || events.IsValidation(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}

func columnList(columns []events.Column) string {
	names := make([]string, len(columns))
	for i, column := range columns {
		names[i] = string(column)
	}
	return strings.Join(names, ", ")
}

func orderBy(keys []events.SortKey) string {
	if len(keys) == 0 {
		return string(events.ColumnID) + " ASC"
	}
	terms := make([]string, len(keys))
	for i, key := range keys {
		terms[i] = string(key.Column) + " " + key.Direction()
	}
	return strings.Join(terms, ", ")
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

func (r *EventRepository) queryer() queryer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

func (r *EventRepository) execer() execer {
	if r.tx != nil {
		return r.tx
	}
	return r.pool
}

// inTx runs fn in a new transaction, or in a savepoint when the repository
// is already bound to one.
func (r *EventRepository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	var db beginner = r.pool
	if r.tx != nil {
		db = r.tx
	}
	return pgx.BeginFunc(ctx, db, fn)
}

func observe(operation string, start time.Time, err error) {
	metrics.RecordStoreCall(operation, start, outcome(err))
}

// outcome labels a store result. Conflict is checked before validation
// because IsValidation also covers overlaps.
func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, events.ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, events.ErrConflict):
		return metrics.OutcomeConflict
	case events.IsValidation(err):
		return metrics.OutcomeRejected
	case errors.Is(err, context.Canceled):
		return metrics.OutcomeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeTimeout
	}
	return metrics.OutcomeError
}
