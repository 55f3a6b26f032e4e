package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"MinerviniScreener/internal/model"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder stores run summaries, qualifying results and exclusions.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, log zerolog.Logger) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		// WAL lets dashboards read while a run is being written
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: log.With().Str("component", "recorder").Logger()}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS screening_runs (
			id          TEXT PRIMARY KEY,
			universe    TEXT,
			triggered_by TEXT,
			source      TEXT,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER,
			total       INTEGER,
			processed   INTEGER,
			qualified   INTEGER,
			excluded    INTEGER,
			cancelled   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON screening_runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS screen_results (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id         TEXT NOT NULL,
			rank           INTEGER,
			ticker         TEXT,
			name           TEXT,
			close          REAL,
			entry          REAL,
			stop           REAL,
			target         REAL,
			tp_50          REAL,
			tp_75          REAL,
			crv            REAL,
			pattern        TEXT,
			position_size  REAL,
			position_value REAL,
			volume_ratio   REAL,
			rsi            REAL,
			as_of          INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run ON screen_results(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_ticker ON screen_results(ticker)`,

		`CREATE TABLE IF NOT EXISTS screen_exclusions (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			ticker TEXT,
			reason TEXT,
			detail TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exclusions_run ON screen_exclusions(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordRun(ctx context.Context, info RunInfo, rs *model.ResultSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO screening_runs
		(id, universe, triggered_by, source, started_at, finished_at,
		 total, processed, qualified, excluded, cancelled)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		rs.ID, info.Universe, info.Trigger, info.Source,
		rs.StartedAt.Unix(), rs.FinishedAt.Unix(),
		rs.Total, rs.Processed, len(rs.Results), len(rs.Excluded), rs.Cancelled,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, res := range rs.Results {
		_, err := tx.ExecContext(ctx, `INSERT INTO screen_results
			(run_id, rank, ticker, name, close, entry, stop, target, tp_50, tp_75,
			 crv, pattern, position_size, position_value, volume_ratio, rsi, as_of)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			rs.ID, i+1, res.Symbol, res.Name, res.Close, res.Entry, res.Stop,
			res.Target, res.TP50, res.TP75, res.RewardToRisk, string(res.Pattern),
			res.PositionSize, res.PositionValue, res.VolumeRatio, nullable(res.RSI),
			res.AsOf.Unix(),
		)
		if err != nil {
			return fmt.Errorf("insert result %s: %w", res.Symbol, err)
		}
	}

	for _, ex := range rs.Excluded {
		_, err := tx.ExecContext(ctx, `INSERT INTO screen_exclusions
			(run_id, ticker, reason, detail) VALUES (?,?,?,?)`,
			rs.ID, ex.Symbol, string(ex.Reason), ex.Detail,
		)
		if err != nil {
			return fmt.Errorf("insert exclusion %s: %w", ex.Symbol, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `SELECT
		id, universe, triggered_by, source, started_at, finished_at,
		total, processed, qualified, excluded, cancelled
		FROM screening_runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			s                 RunSummary
			started, finished int64
		)
		if err := rows.Scan(&s.ID, &s.Universe, &s.Trigger, &s.Source, &started, &finished,
			&s.Total, &s.Processed, &s.Qualified, &s.Excluded, &s.Cancelled); err != nil {
			return nil, err
		}
		s.StartedAt = time.Unix(started, 0)
		s.FinishedAt = time.Unix(finished, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

// nullable stores NaN indicator values as NULL.
func nullable(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v == v}
}
