package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/torvalds/internal/github"
	"github.com/rohankatakam/torvalds/internal/graph"
	"github.com/rohankatakam/torvalds/internal/metrics"
)

func TestStatsCache_GetOrLoad(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewStatsCache(time.Hour, nil, metrics.New(reg))

	var loads atomic.Int32
	load := func(ctx context.Context) (graph.Counts, error) {
		loads.Add(1)
		return graph.Counts{Developers: 10, Repositories: 3, Contributions: 14}, nil
	}

	for i := 0; i < 3; i++ {
		counts, err := c.GetOrLoad(context.Background(), load)
		require.NoError(t, err)
		assert.Equal(t, int64(10), counts.Developers)
	}
	assert.Equal(t, int32(1), loads.Load())
	series, err := testutil.GatherAndCount(reg, "tnum_stats_cache_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series, "one hit and one miss series")

	c.Invalidate(context.Background())
	_, err = c.GetOrLoad(context.Background(), load)
	require.NoError(t, err)
	assert.Equal(t, int32(2), loads.Load())
}

func TestStatsCache_ErrorsNotCached(t *testing.T) {
	c := NewStatsCache(0, nil, nil)
	assert.Equal(t, DefaultStatsTTL, c.TTL())

	_, err := c.GetOrLoad(context.Background(), func(ctx context.Context) (graph.Counts, error) {
		return graph.Counts{}, errors.New("neo4j down")
	})
	require.Error(t, err)

	counts, err := c.GetOrLoad(context.Background(), func(ctx context.Context) (graph.Counts, error) {
		return graph.Counts{Developers: 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Developers)
}

func TestStatsCache_ConcurrentMissesShareLoad(t *testing.T) {
	c := NewStatsCache(time.Hour, nil, nil)
	release := make(chan struct{})
	var loads atomic.Int32
	load := func(ctx context.Context) (graph.Counts, error) {
		loads.Add(1)
		<-release
		return graph.Counts{Repositories: 7}, nil
	}

	var wg sync.WaitGroup
	results := make([]graph.Counts, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.GetOrLoad(context.Background(), load)
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for _, r := range results {
		assert.Equal(t, int64(7), r.Repositories)
	}
}

func TestSuggestCache(t *testing.T) {
	var nilCache *SuggestCache
	_, ok := nilCache.Get("lin", 3)
	assert.False(t, ok)
	nilCache.Add("lin", 3, []string{"linus"})
	assert.Nil(t, NewSuggestCache(0, time.Minute))

	c := NewSuggestCache(2, time.Minute)
	c.Add("Lin", 3, []string{"linus", "linda"})

	got, ok := c.Get("lin", 3)
	require.True(t, ok, "keys are case-insensitive")
	assert.Equal(t, []string{"linus", "linda"}, got)

	_, ok = c.Get("lin", 5)
	assert.False(t, ok, "limit is part of the key")

	c.Add("a", 3, nil)
	c.Add("b", 3, nil)
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get("lin", 3)
	assert.False(t, ok, "evicted")
}

func TestAccountStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "accounts.db")
	store, err := OpenAccountStore(path, time.Hour)
	require.NoError(t, err)
	defer store.Close()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, ok := store.Get("octocat")
	assert.False(t, ok)

	require.NoError(t, store.Put(&github.Account{ID: 583231, Login: "Octocat"}))
	require.NoError(t, store.Put(nil))

	acct, ok := store.Get("  OCTOCAT ")
	require.True(t, ok)
	assert.Equal(t, int64(583231), acct.ID)
	assert.Equal(t, "Octocat", acct.Login)

	now = now.Add(2 * time.Hour)
	_, ok = store.Get("octocat")
	assert.False(t, ok, "expired")

	removed, err := store.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestAccountStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.db")
	store, err := OpenAccountStore(path, 0)
	require.NoError(t, err)
	require.NoError(t, store.Put(&github.Account{ID: 1, Login: "torvalds"}))
	require.NoError(t, store.Close())

	reopened, err := OpenAccountStore(path, 0)
	require.NoError(t, err)
	defer reopened.Close()

	acct, ok := reopened.Get("torvalds")
	require.True(t, ok)
	assert.Equal(t, int64(1), acct.ID)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "tnum:stats:graph_counts", Key("stats", statsKey))
}

var _ github.AccountCache = (*AccountStore)(nil)

func TestCachedCounts(t *testing.T) {
	calls := 0
	counts := CachedCounts{
		Cache: NewStatsCache(time.Hour, nil, nil),
		Load: func(ctx context.Context) (graph.Counts, error) {
			calls++
			return graph.Counts{Contributions: 5}, nil
		},
	}
	for i := 0; i < 2; i++ {
		c, err := counts.Counts(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(5), c.Contributions)
	}
	assert.Equal(t, 1, calls)
}
