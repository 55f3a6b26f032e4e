package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"MinerviniScreener/internal/collector"
	"MinerviniScreener/internal/journal"
	"MinerviniScreener/internal/model"
	"MinerviniScreener/internal/recorder"
	"MinerviniScreener/internal/screener"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeNotifier) SendWithRetry(ctx context.Context, text string, _ int) error {
	return f.Send(ctx, text)
}

func (f *fakeNotifier) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newTestScheduler(t *testing.T, u collector.UniverseProvider, f collector.Fetcher) (*Scheduler, *fakeNotifier, *recorder.SQLiteRecorder) {
	t.Helper()
	ctx := context.Background()
	rec, err := recorder.NewSQLiteRecorder(":memory:", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	j, err := journal.Open(ctx, journal.NewFileStore(filepath.Join(t.TempDir(), "journal.json")), nil, zerolog.Nop())
	require.NoError(t, err)

	n := &fakeNotifier{}
	sc := screener.New(f, screener.Options{Concurrency: 2}, nil, zerolog.Nop())
	job := Job{Index: "test", TopN: 5, Params: model.DefaultScreeningConfig()}
	return NewScheduler(ctx, sc, u, j, n, rec, job, zerolog.Nop()), n, rec
}

func TestRunScreeningNow_RecordsAndReports(t *testing.T) {
	u := collector.StaticUniverse{"test": {{Ticker: "AAA"}, {Ticker: "BBB"}}}
	s, n, rec := newTestScheduler(t, u, &collector.MockFetcher{Price: 50})

	rs, err := s.RunScreeningNow(context.Background(), "cli")
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Processed)
	assert.Same(t, rs, s.Last())

	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Geprüft: 2/2")

	runs, err := rec.RecentRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "cli", runs[0].Trigger)
	assert.Equal(t, "mock", runs[0].Source)
	assert.Equal(t, "test", runs[0].Universe)
}

func TestRunScreeningNow_UniverseFailure(t *testing.T) {
	s, n, rec := newTestScheduler(t, collector.StaticUniverse{}, &collector.MockFetcher{Price: 50})

	_, err := s.RunScreeningNow(context.Background(), "cron")
	assert.ErrorIs(t, err, model.ErrUniverseUnavailable)
	require.Len(t, n.messages(), 1)
	assert.Contains(t, n.messages()[0], "fehlgeschlagen")

	runs, _ := rec.RecentRuns(context.Background(), 5)
	assert.Empty(t, runs)
}

func TestRunScreeningNow_Busy(t *testing.T) {
	u := collector.StaticUniverse{"test": {{Ticker: "SLOW"}}}
	s, _, _ := newTestScheduler(t, u, &collector.MockFetcher{Price: 50, Delay: 200 * time.Millisecond})

	done := make(chan error, 1)
	go func() {
		_, err := s.RunScreeningNow(context.Background(), "cron")
		done <- err
	}()

	require.Eventually(t, func() bool {
		_, err := s.RunScreeningNow(context.Background(), "telegram")
		return errors.Is(err, ErrBusy)
	}, time.Second, 5*time.Millisecond)
	assert.NoError(t, <-done)
}

func TestHandleCommand(t *testing.T) {
	ctx := context.Background()
	u := collector.StaticUniverse{"test": {{Ticker: "AAA"}}}
	s, n, _ := newTestScheduler(t, u, &collector.MockFetcher{Price: 50})

	rec, err := s.Journal.Create(ctx, model.ScreenResult{Symbol: "ACME", Entry: 100, Stop: 95, Target: 120, PositionSize: 10})
	require.NoError(t, err)

	assert.Contains(t, s.HandleCommand(ctx, "/open"), "ACME")
	_, err = s.Journal.Close(ctx, rec.ID, 120)
	require.NoError(t, err)
	assert.Equal(t, "Keine offenen Trades.", s.HandleCommand(ctx, "/open"))
	assert.Contains(t, s.HandleCommand(ctx, "/journal"), "+200.00")

	assert.Contains(t, s.HandleCommand(ctx, "/screen@MinerviniBot"), "gestartet")
	s.Wait()
	require.Len(t, n.messages(), 1)
	assert.Contains(t, n.messages()[0], "Geprüft: 1/1")
	assert.Equal(t, "telegram", lastTrigger(t, s))

	assert.Contains(t, s.HandleCommand(ctx, "hello"), "/screen")
	assert.Contains(t, s.HandleCommand(ctx, "   "), "/screen")
}

func lastTrigger(t *testing.T, s *Scheduler) string {
	t.Helper()
	runs, err := s.Recorder.RecentRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	return runs[0].Trigger
}

func TestHandleCommand_ScreenDoesNotBlockOtherCommands(t *testing.T) {
	ctx := context.Background()
	u := collector.StaticUniverse{"test": {{Ticker: "SLOW"}}}
	s, n, _ := newTestScheduler(t, u, &collector.MockFetcher{Price: 50, Delay: 300 * time.Millisecond})

	start := time.Now()
	assert.Contains(t, s.HandleCommand(ctx, "/screen"), "gestartet")
	assert.Contains(t, s.HandleCommand(ctx, "/screen"), "läuft bereits")
	assert.Equal(t, "Keine offenen Trades.", s.HandleCommand(ctx, "/open"))
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	_, err := s.RunScreeningNow(ctx, "cron")
	assert.ErrorIs(t, err, ErrBusy)

	s.Wait()
	assert.Len(t, n.messages(), 1)
	_, err = s.RunScreeningNow(ctx, "cron")
	assert.NoError(t, err)
}

func TestHandleCommand_NoJournal(t *testing.T) {
	s, _, _ := newTestScheduler(t, collector.StaticUniverse{}, &collector.MockFetcher{})
	s.Journal = nil
	assert.Equal(t, "Kein Journal konfiguriert.", s.HandleCommand(context.Background(), "/journal"))
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newTestScheduler(t, collector.StaticUniverse{}, &collector.MockFetcher{})
	require.NoError(t, s.RegisterAll("0 30 22 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.RegisterAll("not a schedule"))
}
