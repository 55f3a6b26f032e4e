package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"MinerviniScreener/internal/collector"
	"MinerviniScreener/internal/journal"
	"MinerviniScreener/internal/model"
	"MinerviniScreener/internal/notifier"
	"MinerviniScreener/internal/recorder"
	"MinerviniScreener/internal/screener"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrBusy is returned when a screening run is requested while one is active.
var ErrBusy = errors.New("screening already running")

// Job describes the scheduled screening run.
type Job struct {
	Index  string
	Limit  int
	TopN   int
	Params model.ScreeningConfig
}

// Scheduler runs screenings on a cron schedule and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Screener *screener.Screener
	Universe collector.UniverseProvider
	Journal  *journal.Journal
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Job      Job
	Ctx      context.Context

	log     zerolog.Logger
	mu      sync.Mutex
	wg      sync.WaitGroup
	running bool
	last    *model.ResultSet
}

// NewScheduler creates a new Scheduler. j may be nil when no journal is kept.
func NewScheduler(ctx context.Context, sc *screener.Screener, u collector.UniverseProvider, j *journal.Journal,
	n notifier.Notifier, rec recorder.Recorder, job Job, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		Screener: sc,
		Universe: u,
		Journal:  j,
		Notifier: n,
		Recorder: rec,
		Job:      job,
		Ctx:      ctx,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterAll registers the screening task.
func (s *Scheduler) RegisterAll(screeningCron string) error {
	if _, err := s.Cron.AddFunc(screeningCron, s.screeningTask); err != nil {
		return fmt.Errorf("register screening task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	s.log.Info().Msg("scheduler stopped")
}

// Last returns the most recent result set, or nil.
func (s *Scheduler) Last() *model.ResultSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Scheduler) screeningTask() {
	if _, err := s.RunScreeningNow(s.Ctx, "cron"); err != nil && !errors.Is(err, ErrBusy) {
		s.log.Error().Err(err).Msg("scheduled screening failed")
	}
}

// RunScreeningNow screens the configured universe, records the run and sends
// the report.
func (s *Scheduler) RunScreeningNow(ctx context.Context, trigger string) (*model.ResultSet, error) {
	if !s.tryAcquire() {
		return nil, ErrBusy
	}
	defer s.release()
	return s.runScreening(ctx, trigger)
}

// Wait blocks until screenings started from chat commands have finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *Scheduler) release() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

func (s *Scheduler) runScreening(ctx context.Context, trigger string) (*model.ResultSet, error) {
	s.log.Info().Str("trigger", trigger).Str("index", s.Job.Index).Msg("running screening")
	rs, err := s.Screener.RunUniverse(ctx, s.Universe, s.Job.Index, s.Job.Limit, s.Job.Params, func(processed, total int) {
		s.log.Debug().Int("processed", processed).Int("total", total).Msg("progress")
	})
	if err != nil {
		s.trySend(ctx, notifier.FormatRunFailure(err))
		return nil, err
	}

	s.mu.Lock()
	s.last = rs
	s.mu.Unlock()

	if err := s.Recorder.RecordRun(ctx, recorder.RunInfo{
		Universe: s.Job.Index,
		Trigger:  trigger,
		Source:   s.Screener.Source(),
	}, rs); err != nil {
		s.log.Error().Err(err).Str("run", rs.ID).Msg("record run")
	}
	s.trySend(ctx, notifier.FormatScreeningReport(rs, s.Job.TopN))
	return rs, nil
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	var cmd string
	if f := strings.Fields(command); len(f) > 0 {
		cmd = strings.ToLower(f[0])
	}
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i] // "/screen@MyBot" in group chats
	}

	switch cmd {
	case "/screen":
		if !s.tryAcquire() {
			return "⏳ Screening läuft bereits."
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.release()
			if _, err := s.runScreening(s.Ctx, "telegram"); err != nil {
				s.log.Error().Err(err).Msg("telegram screening failed")
			}
		}()
		return "🔎 Screening gestartet, der Bericht folgt."
	case "/journal":
		if s.Journal == nil {
			return "Kein Journal konfiguriert."
		}
		stats, err := s.Journal.Stats(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("journal stats")
			return "❌ Journal konnte nicht gelesen werden."
		}
		return notifier.FormatJournalStats(stats)
	case "/open":
		if s.Journal == nil {
			return "Kein Journal konfiguriert."
		}
		trades, err := s.Journal.List(ctx, journal.Filter{Status: model.StatusOpen})
		if err != nil {
			s.log.Error().Err(err).Msg("journal list")
			return "❌ Journal konnte nicht gelesen werden."
		}
		return notifier.FormatOpenTrades(trades)
	default:
		return "Verfügbare Befehle:\n• /screen\n• /journal\n• /open"
	}
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
