package screener

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"MinerviniScreener/internal/collector"
	"MinerviniScreener/internal/metrics"
	"MinerviniScreener/internal/model"
	"MinerviniScreener/internal/strategy"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ProgressFunc receives the number of processed symbols after each batch.
type ProgressFunc func(processed, total int)

// Options tune how a run talks to the market data provider. None of them
// change which symbols qualify.
type Options struct {
	LookbackDays int
	FetchTimeout time.Duration
	Concurrency  int
	BatchSize    int
}

// DefaultOptions fetches ~14 months of sessions, four symbols at a time.
func DefaultOptions() Options {
	return Options{
		LookbackDays: 300,
		FetchTimeout: 20 * time.Second,
		Concurrency:  4,
		BatchSize:    10,
	}
}

// Screener drives the per-symbol pipeline across a universe.
type Screener struct {
	fetcher collector.Fetcher
	opts    Options
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// New creates a Screener. m may be nil.
func New(fetcher collector.Fetcher, opts Options, m *metrics.Metrics, log zerolog.Logger) *Screener {
	def := DefaultOptions()
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = def.LookbackDays
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = def.FetchTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	return &Screener{
		fetcher: fetcher,
		opts:    opts,
		metrics: m,
		log:     log.With().Str("component", "screener").Logger(),
		now:     time.Now,
	}
}

type outcome struct {
	done      bool
	result    *model.ScreenResult
	exclusion *model.Exclusion
}

// Run screens symbols with cfg. Per-symbol failures are recorded as
// exclusions and never abort the run. Cancelling ctx stops dispatching new
// symbols; the partial result set is returned with Cancelled set.
func (s *Screener) Run(ctx context.Context, symbols []model.Symbol, cfg model.ScreeningConfig, progress ProgressFunc) (*model.ResultSet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("screening config: %w", err)
	}
	symbols = Dedupe(symbols)
	start := s.now()
	rs := &model.ResultSet{
		ID:        uuid.NewString(),
		Total:     len(symbols),
		StartedAt: start,
	}
	s.log.Info().Str("run", rs.ID).Int("symbols", len(symbols)).Str("source", s.fetcher.Name()).Msg("screening started")

	outcomes := make([]outcome, len(symbols))
	var (
		mu        sync.Mutex
		processed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, sym := range symbols {
		if ctx.Err() != nil {
			rs.Cancelled = true
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res, excl := s.screenOne(gctx, sym, cfg)
			if res == nil && excl == nil {
				return nil // cancelled mid-flight
			}
			mu.Lock()
			defer mu.Unlock()
			outcomes[i] = outcome{done: true, result: res, exclusion: excl}
			processed++
			if progress != nil && (processed%s.opts.BatchSize == 0 || processed == len(symbols)) {
				progress(processed, len(symbols))
			}
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		rs.Cancelled = true
	}

	for _, o := range outcomes {
		if !o.done {
			continue
		}
		rs.Processed++
		if o.result != nil {
			rs.Results = append(rs.Results, *o.result)
		} else {
			rs.Excluded = append(rs.Excluded, *o.exclusion)
		}
	}
	SortResults(rs.Results)
	rs.FinishedAt = s.now()
	s.observeRun(rs)

	s.log.Info().
		Str("run", rs.ID).
		Int("qualified", len(rs.Results)).
		Int("excluded", len(rs.Excluded)).
		Int("processed", rs.Processed).
		Bool("cancelled", rs.Cancelled).
		Dur("elapsed", rs.FinishedAt.Sub(start)).
		Msg("screening finished")
	return rs, nil
}

// RunUniverse lists the members of index and screens the first limit of
// them (all when limit <= 0). Failing to obtain the universe is fatal.
func (s *Screener) RunUniverse(ctx context.Context, provider collector.UniverseProvider, index string, limit int, cfg model.ScreeningConfig, progress ProgressFunc) (*model.ResultSet, error) {
	symbols, err := provider.ListSymbols(ctx, index)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RunsTotal.WithLabelValues("failed").Inc()
		}
		if !errors.Is(err, model.ErrUniverseUnavailable) {
			err = fmt.Errorf("%v: %w", err, model.ErrUniverseUnavailable)
		}
		return nil, fmt.Errorf("list %s: %w", index, err)
	}
	symbols = Dedupe(symbols)
	if limit > 0 && limit < len(symbols) {
		symbols = symbols[:limit]
	}
	return s.Run(ctx, symbols, cfg, progress)
}

// screenOne fetches and screens a single symbol. Both return values are nil
// when the run was cancelled while the symbol was in flight.
func (s *Screener) screenOne(ctx context.Context, sym model.Symbol, cfg model.ScreeningConfig) (*model.ScreenResult, *model.Exclusion) {
	fctx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()

	began := s.now()
	bars, err := s.fetcher.FetchHistory(fctx, sym.Ticker, s.opts.LookbackDays)
	if s.metrics != nil {
		s.metrics.FetchDuration.Observe(time.Since(began).Seconds())
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		err = classifyFetchError(fctx, err)
		s.log.Debug().Err(err).Str("symbol", sym.Ticker).Msg("fetch failed")
		s.count("fetch_error")
		return nil, &model.Exclusion{Symbol: sym.Ticker, Reason: model.RuleFetch, Detail: err.Error()}
	}

	res, err := strategy.Screen(sym, bars, cfg)
	if err != nil {
		excl := &model.Exclusion{Symbol: sym.Ticker, Detail: err.Error()}
		var se *model.ScreenError
		if errors.As(err, &se) {
			excl.Reason = se.Reason
		}
		s.count(outcomeLabel(err))
		s.log.Debug().Str("symbol", sym.Ticker).Str("reason", string(excl.Reason)).Msg("excluded")
		return nil, excl
	}
	s.count("qualified")
	return res, nil
}

func classifyFetchError(fctx context.Context, err error) error {
	switch {
	case errors.Is(err, model.ErrProviderFailure):
		return err
	case errors.Is(fctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%v: %w", err, model.ErrTimeout)
	default:
		return fmt.Errorf("%v: %w", err, model.ErrProviderFailure)
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, model.ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, model.ErrInvalidStop), errors.Is(err, model.ErrDegenerateRisk):
		return "trade_plan"
	default:
		return "rejected"
	}
}

func (s *Screener) count(label string) {
	if s.metrics != nil {
		s.metrics.SymbolsTotal.WithLabelValues(label).Inc()
	}
}

func (s *Screener) observeRun(rs *model.ResultSet) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if rs.Cancelled {
		status = "cancelled"
	}
	s.metrics.RunsTotal.WithLabelValues(status).Inc()
	s.metrics.RunDuration.Observe(rs.FinishedAt.Sub(rs.StartedAt).Seconds())
	s.metrics.LastRunResults.Set(float64(len(rs.Results)))
}

// Dedupe drops blank and repeated tickers, keeping the first occurrence.
func Dedupe(symbols []model.Symbol) []model.Symbol {
	seen := make(map[string]bool, len(symbols))
	out := make([]model.Symbol, 0, len(symbols))
	for _, sym := range symbols {
		t := strings.ToUpper(strings.TrimSpace(sym.Ticker))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		sym.Ticker = t
		out = append(out, sym)
	}
	return out
}

// SortResults orders results by descending reward/risk, ties by ticker.
func SortResults(results []model.ScreenResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].RewardToRisk != results[j].RewardToRisk {
			return results[i].RewardToRisk > results[j].RewardToRisk
		}
		return results[i].Symbol < results[j].Symbol
	})
}

// Source names the market data provider behind this screener.
func (s *Screener) Source() string { return s.fetcher.Name() }
