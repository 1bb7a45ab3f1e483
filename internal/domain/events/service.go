package events

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
)

const DefaultEnrichTimeout = 4 * time.Second

type Service struct {
	repo          Repository
	enricher      Enricher
	validate      *validator.Validate
	now           func() time.Time
	enrichTimeout time.Duration
}

type Option func(*Service)

func WithEnricher(enricher Enricher) Option {
	return func(s *Service) {
		if enricher != nil {
			s.enricher = enricher
		}
	}
}

// WithClock sets the source of "now" for last-update stamps and statistics
// windows. Its zone decides what local wall-clock time means.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func WithEnrichTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.enrichTimeout = timeout
		}
	}
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		enricher:      noopEnricher{},
		validate:      newValidator(),
		now:           time.Now,
		enrichTimeout: DefaultEnrichTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return WallClock(s.now())
}

// EventView is the full single-event representation.
type EventView struct {
	ID          int64    `json:"id"`
	LastUpdate  string   `json:"last-update"`
	Name        string   `json:"name"`
	Date        string   `json:"date"`
	From        string   `json:"from"`
	To          string   `json:"to"`
	Location    Location `json:"location"`
	Description string   `json:"description"`
	Metadata    Metadata `json:"_metadata"`
	Links       Links    `json:"_links"`
}

// Mutation is returned by create and update.
type Mutation struct {
	ID         int64  `json:"id"`
	LastUpdate string `json:"last-update"`
	Links      Links  `json:"_links"`
}

type Deletion struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

func (s *Service) List(ctx context.Context, values url.Values) (*ListPage, error) {
	plan, err := ParseQuery(values)
	if err != nil {
		return nil, err
	}
	result, err := s.repo.List(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return newListPage(plan, result), nil
}

func (s *Service) Get(ctx context.Context, id int64) (*EventView, error) {
	if id < 1 {
		return nil, ValidationError{Kind: KindID, Field: "id", Message: "Invalid event ID"}
	}
	event, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.notFound(id, err)
	}
	neighbors, err := s.repo.Neighbors(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("event neighbors: %w", err)
	}

	enrichCtx, cancel := context.WithTimeout(ctx, s.enrichTimeout)
	metadata := s.enricher.Enrich(enrichCtx, *event)
	cancel()
	metadata.Weekend = event.Weekend()

	links := Links{Self: Link{Href: eventHref(event.ID)}}
	if neighbors.Previous != nil {
		links.Previous = &Link{Href: eventHref(*neighbors.Previous)}
	}
	if neighbors.Next != nil {
		links.Next = &Link{Href: eventHref(*neighbors.Next)}
	}

	return &EventView{
		ID:          event.ID,
		LastUpdate:  event.LastUpdate.Format(LastUpdateLayout),
		Name:        event.Name,
		Date:        event.Date(),
		From:        event.From.Format(TimeLayout),
		To:          event.To.Format(TimeLayout),
		Location:    event.Location,
		Description: event.Description,
		Metadata:    metadata,
		Links:       links,
	}, nil
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*Mutation, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, payloadError(err)
	}
	event, err := input.event()
	if err != nil {
		return nil, err
	}
	event.LastUpdate = s.clock()

	created, err := s.repo.Insert(ctx, event)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, ConflictError{Message: createConflictMessage}
		}
		return nil, fmt.Errorf("create event: %w", err)
	}
	return mutation(created), nil
}

func (s *Service) Update(ctx context.Context, id int64, patch PatchInput) (*Mutation, error) {
	if id < 1 {
		return nil, ValidationError{Kind: KindID, Field: "id", Message: "Invalid event ID"}
	}
	if err := s.validate.Struct(patch); err != nil {
		return nil, payloadError(err)
	}
	now := s.clock()
	updated, err := s.repo.Update(ctx, id, func(e *Event) error {
		if err := patch.apply(e); err != nil {
			return err
		}
		e.LastUpdate = now
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, NotFoundError{ID: id}
		case errors.Is(err, ErrConflict):
			return nil, ConflictError{Message: updateConflictMessage}
		case IsValidation(err):
			return nil, err
		}
		return nil, fmt.Errorf("update event %d: %w", id, err)
	}
	return mutation(updated), nil
}

func (s *Service) Delete(ctx context.Context, id int64) (*Deletion, error) {
	if id < 1 {
		return nil, ValidationError{Kind: KindID, Field: "id", Message: "Invalid event ID"}
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return nil, s.notFound(id, err)
	}
	return &Deletion{
		Message: fmt.Sprintf("The event with id %d was removed from the database!", id),
		ID:      id,
	}, nil
}

// Range returns events starting in [from, to), for calendar feeds.
func (s *Service) Range(ctx context.Context, from, to time.Time) ([]Event, error) {
	items, err := s.repo.Between(ctx, WallClock(from), WallClock(to))
	if err != nil {
		return nil, fmt.Errorf("events between: %w", err)
	}
	return items, nil
}

// Now is the service clock as a zoneless wall-clock time.
func (s *Service) Now() time.Time {
	return s.clock()
}

func (s *Service) notFound(id int64, err error) error {
	if errors.Is(err, ErrNotFound) {
		return NotFoundError{ID: id}
	}
	return fmt.Errorf("event %d: %w", id, err)
}

func mutation(e *Event) *Mutation {
	return &Mutation{
		ID:         e.ID,
		LastUpdate: e.LastUpdate.Format(LastUpdateLayout),
		Links:      Links{Self: Link{Href: eventHref(e.ID)}},
	}
}
