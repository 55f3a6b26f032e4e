package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"MinerviniScreener/internal/notifier"
	"MinerviniScreener/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	params, err := a.cfg.ScreeningConfig()
	if err != nil {
		return err
	}
	j, err := a.journal(ctx)
	if err != nil {
		return err
	}

	var (
		n  notifier.Notifier
		tn *notifier.TelegramNotifier
	)
	if err := a.cfg.RequireTelegram(); err != nil {
		a.log.Warn().Err(err).Msg("telegram disabled")
	} else {
		tn = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, a.log)
		n = tn
	}

	job := scheduler.Job{
		Index:  a.cfg.Universe.Index,
		Limit:  a.cfg.Universe.Limit,
		TopN:   a.cfg.Telegram.TopN,
		Params: params,
	}
	sched := scheduler.NewScheduler(ctx, a.screener(ctx), a.universe(), j, n, a.recorder(), job, a.log)
	if err := sched.RegisterAll(a.cfg.Schedule.ScreeningCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if addr := a.cfg.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{Registry: a.registry}))
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("ok"))
		})
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			a.log.Info().Str("addr", addr).Msg("metrics listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if tn != nil {
		g.Go(func() error {
			tn.StartPolling(gctx, sched.HandleCommand)
			return nil
		})
	}

	if runOnStart {
		g.Go(func() error {
			if _, err := sched.RunScreeningNow(gctx, "startup"); err != nil {
				a.log.Warn().Err(err).Msg("startup screening failed")
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	a.log.Info().Str("cron", a.cfg.Schedule.ScreeningCron).Msg("screener running, press Ctrl+C to stop")
	err = g.Wait()
	a.log.Info().Msg("shutting down")
	return err
}
