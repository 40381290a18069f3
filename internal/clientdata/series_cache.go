package clientdata

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// ReturnsProvider fetches the monthly return series of a symbol.
type ReturnsProvider interface {
	FetchReturns(ctx context.Context, symbol string) ([]float64, error)
}

// Period returns the cache period key for a fetch made at t: the month whose
// first day closes the lookback window.
func Period(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// SeriesCache puts an in-memory LRU and the SQLite repository in front of a
// ReturnsProvider. When the provider fails, an expired series stored for the
// same period is served instead. Series from other periods cover a different
// window and are never served. It is safe for concurrent use.
type SeriesCache struct {
	provider ReturnsProvider
	repo     *Repository
	memory   *lru.Cache[string, []float64]
	now      func() time.Time
	log      zerolog.Logger
}

// NewSeriesCache creates a cache holding up to size series in memory.
// repo may be nil to disable persistence.
func NewSeriesCache(provider ReturnsProvider, repo *Repository, size int, log zerolog.Logger) (*SeriesCache, error) {
	memory, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create series cache: %w", err)
	}
	return &SeriesCache{
		provider: provider,
		repo:     repo,
		memory:   memory,
		now:      time.Now,
		log:      log.With().Str("component", "series_cache").Logger(),
	}, nil
}

// FetchReturns implements ReturnsProvider.
func (c *SeriesCache) FetchReturns(ctx context.Context, symbol string) ([]float64, error) {
	period := Period(c.now())
	key := symbol + "@" + period

	if returns, ok := c.memory.Get(key); ok {
		return clone(returns), nil
	}

	if c.repo != nil {
		cached, err := c.repo.GetIfFresh(ctx, symbol, period)
		if err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read series cache")
		} else if cached != nil {
			c.log.Debug().Str("symbol", symbol).Str("period", period).Msg("Cache hit")
			c.memory.Add(key, cached.Returns)
			return clone(cached.Returns), nil
		}
	}

	returns, err := c.provider.FetchReturns(ctx, symbol)
	if err != nil {
		if stale, ok := c.stale(ctx, symbol, period); ok {
			c.log.Warn().
				Err(err).
				Str("symbol", symbol).
				Str("period", period).
				Msg("Provider failed, using expired cached series")
			return stale, nil
		}
		return nil, err
	}

	c.memory.Add(key, clone(returns))
	if c.repo != nil {
		series := Series{Returns: returns, FetchedAt: c.now().Unix()}
		if err := c.repo.Store(ctx, symbol, period, series, TTLMonthlyReturns); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache series")
		}
	}
	return returns, nil
}

// Purge drops every in-memory entry. Persisted rows are left alone.
func (c *SeriesCache) Purge() {
	c.memory.Purge()
}

func (c *SeriesCache) stale(ctx context.Context, symbol, period string) ([]float64, bool) {
	if c.repo == nil {
		return nil, false
	}
	cached, err := c.repo.Get(ctx, symbol, period)
	if err != nil || cached == nil {
		return nil, false
	}
	return cached.Returns, true
}

func clone(xs []float64) []float64 {
	return append([]float64(nil), xs...)
}
