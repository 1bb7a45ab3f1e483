package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jeremytraini/auscal/internal/enrichment/holidays"
)

type HolidayProvider interface {
	Holidays(ctx context.Context, year int) ([]holidays.Holiday, error)
}

// HolidayPrefetchWorker warms the holiday cache for this year and the next so
// event reads rarely wait on Nager.Date.
type HolidayPrefetchWorker struct {
	Provider HolidayProvider
	Now      func() time.Time
}

func (HolidayPrefetchWorker) Kind() string { return JobKindHolidayPrefetch }

func (w HolidayPrefetchWorker) Work(ctx context.Context) error {
	if w.Provider == nil {
		return fmt.Errorf("holiday provider not configured")
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	year := now().Year()
	for _, y := range []int{year, year + 1} {
		if _, err := w.Provider.Holidays(ctx, y); err != nil {
			return fmt.Errorf("prefetch holidays %d: %w", y, err)
		}
	}
	return nil
}

type Sweeper interface {
	Sweep() int
}

// CacheSweepWorker drops expired entries from the in-process cache.
type CacheSweepWorker struct {
	Cache Sweeper
}

func (CacheSweepWorker) Kind() string { return JobKindCacheSweep }

func (w CacheSweepWorker) Work(ctx context.Context) error {
	if w.Cache == nil {
		return fmt.Errorf("cache not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	w.Cache.Sweep()
	return nil
}
