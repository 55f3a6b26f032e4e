package recorder

import (
	"context"

	"MinerviniScreener/internal/model"
)

// NoopRecorder is used when no history database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordRun(context.Context, RunInfo, *model.ResultSet) error { return nil }
func (n *NoopRecorder) RecentRuns(context.Context, int) ([]RunSummary, error)      { return nil, nil }
func (n *NoopRecorder) Close() error                                               { return nil }
