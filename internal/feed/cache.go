package feed

import (
	"context"
	"time"

	"github.com/crimengo/crimengo/internal/model"
)

// Cache holds the last fetched feed page with its fetch time. It replaces
// the ambient session-state caching of earlier versions: callers own the
// cache and pass it explicitly, and staleness is a pure predicate.
type Cache struct {
	Records   []model.Incident `json:"records"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// Stale reports whether the cache is older than interval at the given time.
// An empty cache is always stale.
func (c *Cache) Stale(now time.Time, interval time.Duration) bool {
	if c == nil || c.FetchedAt.IsZero() {
		return true
	}
	return now.Sub(c.FetchedAt) >= interval
}

// Refresh fetches the latest records through client when the cache is stale
// or force is set, updating the cache in place. On fetch failure a warm
// cache is returned alongside the error so callers can degrade to stale
// data; an empty cache returns the error alone.
func (c *Cache) Refresh(ctx context.Context, client *Client, limit int, interval time.Duration, force bool) ([]model.Incident, error) {
	now := time.Now().UTC()
	if !force && !c.Stale(now, interval) {
		return c.Records, nil
	}

	records, err := client.FetchLatest(ctx, limit)
	if err != nil {
		if len(c.Records) > 0 {
			return c.Records, err
		}
		return nil, err
	}

	c.Records = records
	c.FetchedAt = now
	return records, nil
}
