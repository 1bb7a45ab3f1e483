// Package cache stores provider responses for a bounded time. Redis is used
// when configured so every replica shares one copy; otherwise entries live in
// process memory.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeremytraini/auscal/internal/metrics"
)

// Cache is a byte store with per-entry expiry. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// GetJSON looks up namespace:key and decodes it into out. Lookup failures are
// reported as misses to the metrics and returned to the caller.
func GetJSON(ctx context.Context, c Cache, namespace, key string, out any) (bool, error) {
	data, ok, err := c.Get(ctx, namespace+":"+key)
	if err != nil {
		metrics.CacheLookupsTotal.WithLabelValues(namespace, "error").Inc()
		return false, fmt.Errorf("cache get %s: %w", namespace, err)
	}
	if !ok {
		metrics.CacheLookupsTotal.WithLabelValues(namespace, "miss").Inc()
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		metrics.CacheLookupsTotal.WithLabelValues(namespace, "error").Inc()
		return false, fmt.Errorf("cache decode %s: %w", namespace, err)
	}
	metrics.CacheLookupsTotal.WithLabelValues(namespace, "hit").Inc()
	return true, nil
}

func SetJSON(ctx context.Context, c Cache, namespace, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", namespace, err)
	}
	if err := c.Set(ctx, namespace+":"+key, data, ttl); err != nil {
		return fmt.Errorf("cache set %s: %w", namespace, err)
	}
	return nil
}
