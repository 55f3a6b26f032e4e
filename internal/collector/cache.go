package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MinerviniScreener/internal/model"

	"github.com/rs/zerolog"
)

// HistoryCache stores fetched bar series for a limited time.
type HistoryCache interface {
	Get(ctx context.Context, key string) ([]model.PriceBar, bool, error)
	Set(ctx context.Context, key string, bars []model.PriceBar, ttl time.Duration) error
}

// CachedFetcher serves repeated history requests from a HistoryCache.
// Cache failures are logged and fall through to the wrapped fetcher.
type CachedFetcher struct {
	Next  Fetcher
	Cache HistoryCache
	TTL   time.Duration
	log   zerolog.Logger
}

// NewCachedFetcher wraps next with cache.
func NewCachedFetcher(next Fetcher, cache HistoryCache, ttl time.Duration, log zerolog.Logger) *CachedFetcher {
	return &CachedFetcher{
		Next:  next,
		Cache: cache,
		TTL:   ttl,
		log:   log.With().Str("component", "history_cache").Logger(),
	}
}

func (c *CachedFetcher) Name() string { return c.Next.Name() + "+cache" }

func (c *CachedFetcher) FetchHistory(ctx context.Context, symbol string, days int) ([]model.PriceBar, error) {
	key := fmt.Sprintf("history:%s:%s:%d", c.Next.Name(), symbol, days)
	bars, ok, err := c.Cache.Get(ctx, key)
	if err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("cache read failed")
	} else if ok {
		return bars, nil
	}

	bars, err = c.Next.FetchHistory(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	if err := c.Cache.Set(ctx, key, bars, c.TTL); err != nil {
		c.log.Warn().Err(err).Str("symbol", symbol).Msg("cache write failed")
	}
	return bars, nil
}

type memoryEntry struct {
	bars    []model.PriceBar
	expires time.Time
}

// MemoryCache is an in-process HistoryCache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]model.PriceBar, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if m.now().After(e.expires) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.bars, true, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, bars []model.PriceBar, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{bars: bars, expires: m.now().Add(ttl)}
	return nil
}
