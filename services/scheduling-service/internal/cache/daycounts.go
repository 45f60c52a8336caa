package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DayCounts caches the per-day appointment counts behind the month calendar.
// Entries are short-lived and deleted on every mutation, so a cold Redis only
// costs an extra index rebuild.
type DayCounts struct {
	rdb    *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

func NewDayCounts(rdb *redis.Client, logger *slog.Logger, ttl time.Duration) *DayCounts {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &DayCounts{rdb: rdb, logger: logger, ttl: ttl}
}

func (c *DayCounts) key(clinicID, month string) string {
	return "sched:daycounts:" + clinicID + ":" + month
}

// Get returns the cached counts keyed by "YYYY-MM-DD". A miss, a decode
// failure or a Redis error all read as a miss.
func (c *DayCounts) Get(ctx context.Context, clinicID, month string) (map[string]int, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, c.key(clinicID, month)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("day count cache read failed", "err", err)
		return nil, false
	}
	var counts map[string]int
	if err := json.Unmarshal(raw, &counts); err != nil {
		return nil, false
	}
	return counts, true
}

func (c *DayCounts) Set(ctx context.Context, clinicID, month string, counts map[string]int) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(counts)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.key(clinicID, month), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("day count cache write failed", "err", err)
	}
}

// Invalidate drops the cached months touched by a mutation. Best effort.
func (c *DayCounts) Invalidate(ctx context.Context, clinicID string, months ...string) {
	if c.rdb == nil || len(months) == 0 {
		return
	}
	keys := make([]string, 0, len(months))
	for _, m := range months {
		keys = append(keys, c.key(clinicID, m))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("day count cache invalidate failed", "err", err)
	}
}
