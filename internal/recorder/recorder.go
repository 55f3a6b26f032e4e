package recorder

import (
	"context"
	"time"

	"MinerviniScreener/internal/model"
)

// RunInfo describes how a run was started.
type RunInfo struct {
	Universe string // index name or "manual"
	Trigger  string // "cli", "cron" or "telegram"
	Source   string // fetcher name
}

// RunSummary is one row of run history.
type RunSummary struct {
	ID         string
	Universe   string
	Trigger    string
	Source     string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Processed  int
	Qualified  int
	Excluded   int
	Cancelled  bool
}

// Recorder persists screening runs for later analysis.
type Recorder interface {
	RecordRun(ctx context.Context, info RunInfo, rs *model.ResultSet) error
	RecentRuns(ctx context.Context, limit int) ([]RunSummary, error)
	Close() error
}
