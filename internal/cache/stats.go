package cache

import (
	"context"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/rohankatakam/torvalds/internal/graph"
	"github.com/rohankatakam/torvalds/internal/metrics"
)

// DefaultStatsTTL matches the HTTP Cache-Control max-age of /api/stats.
const DefaultStatsTTL = time.Hour

const statsKey = "graph_counts"

// StatsLoader computes fresh counts, normally graph.Store.Counts.
type StatsLoader func(ctx context.Context) (graph.Counts, error)

// StatsCache keeps the graph counts in process memory, optionally backed
// by Redis. Concurrent misses share one load.
type StatsCache struct {
	mem     *gocache.Cache
	redis   *RedisClient
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewStatsCache creates the cache. redis and m may be nil.
func NewStatsCache(ttl time.Duration, redis *RedisClient, m *metrics.Metrics) *StatsCache {
	if ttl <= 0 {
		ttl = DefaultStatsTTL
	}
	return &StatsCache{
		mem:     gocache.New(ttl, 2*ttl),
		redis:   redis,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "stats_cache"),
	}
}

// GetOrLoad returns cached counts or calls load. Load errors are not cached.
func (c *StatsCache) GetOrLoad(ctx context.Context, load StatsLoader) (graph.Counts, error) {
	if v, ok := c.mem.Get(statsKey); ok {
		c.metrics.StatsCacheLookup(true)
		return v.(graph.Counts), nil
	}

	v, err, _ := c.group.Do(statsKey, func() (interface{}, error) {
		if v, ok := c.mem.Get(statsKey); ok {
			return v, nil
		}
		if c.redis != nil {
			var counts graph.Counts
			found, err := c.redis.Get(ctx, Key("stats", statsKey), &counts)
			if err != nil {
				c.logger.Warn("redis stats lookup failed", "error", err)
			} else if found {
				c.mem.Set(statsKey, counts, gocache.DefaultExpiration)
				return counts, nil
			}
		}

		counts, err := load(ctx)
		if err != nil {
			return graph.Counts{}, err
		}
		c.mem.Set(statsKey, counts, gocache.DefaultExpiration)
		if c.redis != nil {
			if err := c.redis.Set(ctx, Key("stats", statsKey), counts); err != nil {
				c.logger.Warn("redis stats store failed", "error", err)
			}
		}
		return counts, nil
	})
	c.metrics.StatsCacheLookup(false)
	if err != nil {
		return graph.Counts{}, err
	}
	return v.(graph.Counts), nil
}

// Invalidate drops the cached counts so the next read reloads them.
func (c *StatsCache) Invalidate(ctx context.Context) {
	c.mem.Delete(statsKey)
	if c.redis != nil {
		if err := c.redis.Delete(ctx, Key("stats", statsKey)); err != nil {
			c.logger.Warn("redis stats delete failed", "error", err)
		}
	}
}

// TTL is how long a loaded value is served.
func (c *StatsCache) TTL() time.Duration {
	return c.ttl
}

// CachedCounts binds a StatsCache to its loader so it can stand in for the
// store wherever counts are read.
type CachedCounts struct {
	Cache *StatsCache
	Load  StatsLoader
}

func (c CachedCounts) Counts(ctx context.Context) (graph.Counts, error) {
	return c.Cache.GetOrLoad(ctx, c.Load)
}
