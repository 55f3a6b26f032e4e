package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"MinerviniScreener/internal/collector"
	"MinerviniScreener/internal/config"
	"MinerviniScreener/internal/journal"
	"MinerviniScreener/internal/metrics"
	"MinerviniScreener/internal/model"
	"MinerviniScreener/internal/recorder"
	"MinerviniScreener/internal/screener"
	"MinerviniScreener/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app wires the components a command needs from the loaded config.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	closers  []func() error
}

func newApp(cmd *cobra.Command) (*app, error) {
	path := configPath
	if v := os.Getenv("CONFIG_PATH"); v != "" && !cmd.Flags().Changed("config") {
		path = v
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if prettyLog {
		cfg.Log.Pretty = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &app{
		cfg:      cfg,
		log:      log,
		registry: reg,
		metrics:  metrics.NewMetrics(reg),
	}, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn().Err(err).Msg("close")
		}
	}
}

func (a *app) fetcher(ctx context.Context) collector.Fetcher {
	ds := a.cfg.DataSource
	var f collector.Fetcher
	switch ds.Provider {
	case "rest":
		f = collector.NewRESTFetcher(ds.BaseURL, ds.APIKey, a.cfg.Proxy)
	case "mock":
		f = &collector.MockFetcher{Price: 100}
	default:
		f = collector.NewYahooFetcher(a.cfg.Proxy, ds.RequestsPerSecond)
	}
	a.log.Info().Str("source", f.Name()).Msg("data source")

	if a.cfg.Cache.TTL <= 0 {
		return f
	}
	var cache collector.HistoryCache = collector.NewMemoryCache()
	if addr := a.cfg.Cache.RedisAddr; addr != "" {
		rc, err := collector.NewRedisCache(ctx, addr, a.cfg.Cache.RedisPassword, a.cfg.Cache.RedisDB)
		if err != nil {
			a.log.Warn().Err(err).Str("addr", addr).Msg("redis unavailable, using in-memory history cache")
		} else {
			cache = rc
			a.closers = append(a.closers, rc.Close)
		}
	}
	return collector.NewCachedFetcher(f, cache, a.cfg.Cache.TTL, a.log)
}

func (a *app) universe() collector.UniverseProvider {
	return collector.ChainUniverse{
		collector.StaticUniverse(a.cfg.StaticUniverse()),
		collector.NewCSVUniverse(a.cfg.Proxy, a.cfg.Universe.Sources),
	}
}

// symbols looks up display names for tickers in index. Without a listing the
// tickers are used as they are.
func (a *app) symbols(ctx context.Context, index string, tickers []string) []model.Symbol {
	syms, err := collector.ResolveSymbols(ctx, a.universe(), index, tickers)
	if err != nil {
		a.log.Warn().Err(err).Str("index", index).Msg("symbol names unavailable")
	}
	return syms
}

func (a *app) screener(ctx context.Context) *screener.Screener {
	ds := a.cfg.DataSource
	return screener.New(a.fetcher(ctx), screener.Options{
		LookbackDays: ds.LookbackDays,
		FetchTimeout: ds.FetchTimeout,
		Concurrency:  ds.Concurrency,
	}, a.metrics, a.log)
}

func (a *app) journal(ctx context.Context) (*journal.Journal, error) {
	var store journal.Store
	switch a.cfg.Journal.Backend {
	case "sqlite":
		if err := ensureDir(a.cfg.Database.SQLitePath); err != nil {
			return nil, err
		}
		s, err := journal.NewSQLiteStore(a.cfg.Database.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open journal database: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		store = s
	default:
		store = journal.NewFileStore(a.cfg.Journal.FilePath)
	}
	return journal.Open(ctx, store, a.metrics, a.log)
}

// recorder falls back to a no-op recorder when the database cannot be opened.
func (a *app) recorder() recorder.Recorder {
	if a.cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	if err := ensureDir(a.cfg.Database.SQLitePath); err != nil {
		a.log.Warn().Err(err).Msg("create database directory")
	}
	r, err := recorder.NewSQLiteRecorder(a.cfg.Database.SQLitePath, a.log)
	if err != nil {
		a.log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	a.closers = append(a.closers, r.Close)
	return r
}

func ensureDir(path string) error {
	if path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
