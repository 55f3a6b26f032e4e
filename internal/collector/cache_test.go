package collector

import (
	"context"
	"testing"
	"time"

	"MinerviniScreener/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedFetcher_ServesFromCache(t *testing.T) {
	mock := &MockFetcher{Price: 50}
	cf := NewCachedFetcher(mock, NewMemoryCache(), time.Hour, zerolog.Nop())

	first, err := cf.FetchHistory(context.Background(), "AAPL", 10)
	require.NoError(t, err)
	second, err := cf.FetchHistory(context.Background(), "AAPL", 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, mock.Calls("AAPL"))
	assert.Equal(t, "mock+cache", cf.Name())
}

func TestCachedFetcher_DoesNotCacheErrors(t *testing.T) {
	mock := &MockFetcher{Errors: map[string]error{"BAD": model.ErrRateLimited}}
	cf := NewCachedFetcher(mock, NewMemoryCache(), time.Hour, zerolog.Nop())

	for i := 0; i < 2; i++ {
		_, err := cf.FetchHistory(context.Background(), "BAD", 10)
		assert.ErrorIs(t, err, model.ErrRateLimited)
	}
	assert.Equal(t, 2, mock.Calls("BAD"))
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(context.Background(), "k", []model.PriceBar{{Close: 1}}, time.Minute))
	_, ok, _ := c.Get(context.Background(), "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestMockFetcher(t *testing.T) {
	m := &MockFetcher{Price: 100}
	bars, err := m.FetchHistory(context.Background(), "ANY", 260)
	require.NoError(t, err)
	assert.Len(t, bars, 260)

	empty := &MockFetcher{}
	_, err = empty.FetchHistory(context.Background(), "ANY", 10)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
