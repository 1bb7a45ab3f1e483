package storage

import (
	"context"

	"github.com/jeremytraini/auscal/internal/domain/events"
)

// Repository groups data access by domain.
type Repository interface {
	Events() events.Repository
	Ping(ctx context.Context) error

	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}
