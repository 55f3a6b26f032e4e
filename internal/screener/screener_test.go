package screener

import (
	"context"
	"errors"
	"testing"
	"time"

	"MinerviniScreener/internal/collector"
	"MinerviniScreener/internal/metrics"
	"MinerviniScreener/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// risingBars returns 200 sessions: 49 at 100, then 110, ending at last.
func risingBars(last float64) []model.PriceBar {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, 200)
	for i := range bars {
		c := 110.0
		if i < 49 {
			c = 100
		}
		if i == 199 {
			c = last
		}
		bars[i] = model.PriceBar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1_000_000}
	}
	return bars
}

func testConfig() model.ScreeningConfig {
	cfg := model.DefaultScreeningConfig()
	cfg.MinVolumeRatio = 1.0
	return cfg
}

func newTestScreener(f collector.Fetcher, opts Options) (*Screener, *metrics.Metrics) {
	m := metrics.NewMetrics(nil)
	return New(f, opts, m, zerolog.Nop()), m
}

func syms(tickers ...string) []model.Symbol {
	out := make([]model.Symbol, len(tickers))
	for i, t := range tickers {
		out[i] = model.Symbol{Ticker: t, Name: t + " Inc"}
	}
	return out
}

func TestRun_OrdersByRewardToRisk(t *testing.T) {
	f := &collector.MockFetcher{Data: map[string][]model.PriceBar{
		"AAA": risingBars(112),
		"BBB": risingBars(111),
		"CCC": risingBars(110),
	}}
	s, m := newTestScreener(f, Options{Concurrency: 2})

	rs, err := s.Run(context.Background(), syms("AAA", "BBB", "CCC"), testConfig(), nil)
	require.NoError(t, err)

	require.Len(t, rs.Results, 2)
	assert.Equal(t, "BBB", rs.Results[0].Symbol)
	assert.Equal(t, "AAA", rs.Results[1].Symbol)
	assert.Greater(t, rs.Results[0].RewardToRisk, rs.Results[1].RewardToRisk)
	assert.Equal(t, "BBB Inc", rs.Results[0].Name)

	require.Len(t, rs.Excluded, 1)
	assert.Equal(t, "CCC", rs.Excluded[0].Symbol)
	assert.Equal(t, model.RuleAboveSMA50, rs.Excluded[0].Reason)

	assert.Equal(t, 3, rs.Total)
	assert.Equal(t, 3, rs.Processed)
	assert.False(t, rs.Cancelled)
	assert.NotEmpty(t, rs.ID)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SymbolsTotal.WithLabelValues("qualified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SymbolsTotal.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.LastRunResults))
}

func TestRun_EqualRewardToRiskSortsByTicker(t *testing.T) {
	f := &collector.MockFetcher{Data: map[string][]model.PriceBar{
		"ZZZ": risingBars(111),
		"MMM": risingBars(111),
	}}
	s, _ := newTestScreener(f, Options{})

	rs, err := s.Run(context.Background(), syms("ZZZ", "MMM"), testConfig(), nil)
	require.NoError(t, err)
	require.Len(t, rs.Results, 2)
	assert.Equal(t, "MMM", rs.Results[0].Symbol)
	assert.Equal(t, "ZZZ", rs.Results[1].Symbol)
}

func TestRun_ProviderFailureIsIsolated(t *testing.T) {
	f := &collector.MockFetcher{
		Data:   map[string][]model.PriceBar{"GOOD": risingBars(111)},
		Errors: map[string]error{"GONE": model.ErrNotFound, "FLAKY": errors.New("connection reset")},
	}
	s, m := newTestScreener(f, Options{})

	rs, err := s.Run(context.Background(), syms("GONE", "GOOD", "FLAKY"), testConfig(), nil)
	require.NoError(t, err)

	require.Len(t, rs.Results, 1)
	assert.Equal(t, "GOOD", rs.Results[0].Symbol)
	require.Len(t, rs.Excluded, 2)
	assert.Equal(t, "GONE", rs.Excluded[0].Symbol)
	assert.Equal(t, model.RuleFetch, rs.Excluded[0].Reason)
	assert.Contains(t, rs.Excluded[0].Detail, "symbol not found")
	assert.Equal(t, "FLAKY", rs.Excluded[1].Symbol)
	assert.Contains(t, rs.Excluded[1].Detail, "provider failure")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SymbolsTotal.WithLabelValues("fetch_error")))
}

func TestRun_InsufficientHistoryIsExcluded(t *testing.T) {
	f := &collector.MockFetcher{Data: map[string][]model.PriceBar{
		"NEW": risingBars(111)[:150],
	}}
	s, _ := newTestScreener(f, Options{})

	rs, err := s.Run(context.Background(), syms("NEW"), testConfig(), nil)
	require.NoError(t, err)
	assert.Empty(t, rs.Results)
	require.Len(t, rs.Excluded, 1)
	assert.Equal(t, model.RuleInsufficientHistory, rs.Excluded[0].Reason)
}

func TestRun_FetchTimeout(t *testing.T) {
	f := &collector.MockFetcher{Price: 50, Delay: time.Second}
	s, _ := newTestScreener(f, Options{FetchTimeout: 20 * time.Millisecond})

	rs, err := s.Run(context.Background(), syms("SLOW"), testConfig(), nil)
	require.NoError(t, err)
	require.Len(t, rs.Excluded, 1)
	assert.Equal(t, model.RuleFetch, rs.Excluded[0].Reason)
	assert.Contains(t, rs.Excluded[0].Detail, "timeout")
	assert.False(t, rs.Cancelled)
}

func TestRun_DeduplicatesSymbols(t *testing.T) {
	f := &collector.MockFetcher{Data: map[string][]model.PriceBar{"BBB": risingBars(111)}}
	s, _ := newTestScreener(f, Options{})

	rs, err := s.Run(context.Background(), syms("BBB", "bbb", " ", "BBB "), testConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Total)
	assert.Len(t, rs.Results, 1)
	assert.Equal(t, 1, f.Calls("BBB"))
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	f := &collector.MockFetcher{Price: 50}
	s, m := newTestScreener(f, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rs, err := s.Run(ctx, syms("A", "B"), testConfig(), nil)
	require.NoError(t, err)
	assert.True(t, rs.Cancelled)
	assert.Zero(t, rs.Processed)
	assert.Empty(t, rs.Results)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("cancelled")))
}

func TestRun_CancelMidRunKeepsPartialResults(t *testing.T) {
	f := &collector.MockFetcher{Data: map[string][]model.PriceBar{
		"AAA": risingBars(111),
		"BBB": risingBars(111),
		"CCC": risingBars(111),
	}}
	s, _ := newTestScreener(f, Options{Concurrency: 1, BatchSize: 1})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rs, err := s.Run(ctx, syms("AAA", "BBB", "CCC"), testConfig(), func(processed, total int) {
		cancel()
	})
	require.NoError(t, err)
	assert.True(t, rs.Cancelled)
	assert.Equal(t, 1, rs.Processed)
	require.Len(t, rs.Results, 1)
	assert.Equal(t, "AAA", rs.Results[0].Symbol)
	assert.Zero(t, f.Calls("CCC"))
}

func TestRun_ReportsProgressPerBatch(t *testing.T) {
	f := &collector.MockFetcher{Price: 50}
	s, _ := newTestScreener(f, Options{Concurrency: 1, BatchSize: 2})

	var calls [][2]int
	_, err := s.Run(context.Background(), syms("A", "B", "C"), testConfig(), func(processed, total int) {
		calls = append(calls, [2]int{processed, total})
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{2, 3}, {3, 3}}, calls)
}

func TestRun_InvalidConfig(t *testing.T) {
	s, _ := newTestScreener(&collector.MockFetcher{Price: 50}, Options{})
	cfg := testConfig()
	cfg.SMASlow = 0

	_, err := s.Run(context.Background(), syms("A"), cfg, nil)
	assert.Error(t, err)
}

func TestRun_ResultsRespectPlanInvariants(t *testing.T) {
	data := map[string][]model.PriceBar{}
	tickers := []string{}
	for i, last := range []float64{110.5, 111, 112, 115, 120, 105} {
		tk := string(rune('A' + i))
		data[tk] = risingBars(last)
		tickers = append(tickers, tk)
	}
	f := &collector.MockFetcher{Data: data}
	s, _ := newTestScreener(f, Options{Concurrency: 3})
	cfg := testConfig()

	rs, err := s.Run(context.Background(), syms(tickers...), cfg, nil)
	require.NoError(t, err)
	require.NotEmpty(t, rs.Results)
	assert.Equal(t, len(tickers), len(rs.Results)+len(rs.Excluded))
	for _, r := range rs.Results {
		assert.Greater(t, r.Entry, r.Stop, r.Symbol)
		assert.GreaterOrEqual(t, r.RewardToRisk, cfg.MinRewardToRisk, r.Symbol)
		assert.GreaterOrEqual(t, r.PositionSize, 0.0, r.Symbol)
	}
}

type failingUniverse struct{}

func (failingUniverse) ListSymbols(context.Context, string) ([]model.Symbol, error) {
	return nil, errors.New("dns lookup failed")
}

func TestRunUniverse_Unavailable(t *testing.T) {
	s, m := newTestScreener(&collector.MockFetcher{Price: 50}, Options{})

	rs, err := s.RunUniverse(context.Background(), failingUniverse{}, "sp500", 0, testConfig(), nil)
	assert.Nil(t, rs)
	assert.ErrorIs(t, err, model.ErrUniverseUnavailable)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RunsTotal.WithLabelValues("failed")))

	_, err = s.RunUniverse(context.Background(), collector.StaticUniverse{}, "dax", 0, testConfig(), nil)
	assert.ErrorIs(t, err, model.ErrUniverseUnavailable)
}

func TestRunUniverse_Limit(t *testing.T) {
	f := &collector.MockFetcher{Price: 50}
	s, _ := newTestScreener(f, Options{})
	u := collector.StaticUniverse{"sp500": syms("A", "B", "C", "D")}

	rs, err := s.RunUniverse(context.Background(), u, "SP500", 2, testConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Total)
	assert.Equal(t, 1, f.Calls("A"))
	assert.Equal(t, 1, f.Calls("B"))
	assert.Zero(t, f.Calls("C"))
}
