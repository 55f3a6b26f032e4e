package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"MinerviniScreener/internal/model"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps journal entries in a trades table, one row per id.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) the database and runs migrations. File
// databases start every transaction with BEGIN IMMEDIATE and wait up to five
// seconds for a competing writer, so read-modify-write updates from several
// processes serialize instead of failing.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", withWriterOptions(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dsn == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func withWriterOptions(dsn string) string {
	if dsn == ":memory:" {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_txlock=immediate"
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id                    TEXT PRIMARY KEY,
			seq                   INTEGER NOT NULL,
			ticker                TEXT NOT NULL,
			name                  TEXT,
			entry_price           REAL NOT NULL,
			entry_date            INTEGER NOT NULL,
			stop                  REAL,
			tp_50                 REAL,
			tp_75                 REAL,
			target                REAL,
			crv                   REAL,
			pattern               TEXT,
			planned_position_size REAL,
			actual_position_size  REAL,
			trade_type            TEXT,
			leverage              REAL,
			barrier               REAL,
			ko_investment         REAL,
			status                TEXT NOT NULL,
			exit_price            REAL,
			exit_date             INTEGER,
			pnl                   REAL,
			pnl_pct               REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status)`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return fmt.Errorf("exec %q: %w", st[:40], err)
		}
	}
	return nil
}

type tradeRow struct {
	ID                  string          `db:"id"`
	Seq                 int             `db:"seq"`
	Ticker              string          `db:"ticker"`
	Name                sql.NullString  `db:"name"`
	EntryPrice          float64         `db:"entry_price"`
	EntryDate           int64           `db:"entry_date"`
	Stop                float64         `db:"stop"`
	TP50                float64         `db:"tp_50"`
	TP75                float64         `db:"tp_75"`
	Target              float64         `db:"target"`
	RewardToRisk        float64         `db:"crv"`
	Pattern             sql.NullString  `db:"pattern"`
	PlannedPositionSize float64         `db:"planned_position_size"`
	ActualPositionSize  float64         `db:"actual_position_size"`
	TradeType           sql.NullString  `db:"trade_type"`
	Leverage            float64         `db:"leverage"`
	Barrier             float64         `db:"barrier"`
	KOInvestment        float64         `db:"ko_investment"`
	Status              string          `db:"status"`
	ExitPrice           sql.NullFloat64 `db:"exit_price"`
	ExitDate            sql.NullInt64   `db:"exit_date"`
	PnL                 sql.NullFloat64 `db:"pnl"`
	PnLPct              sql.NullFloat64 `db:"pnl_pct"`
}

func toRow(seq int, r model.TradeRecord) tradeRow {
	row := tradeRow{
		ID:                  r.ID,
		Seq:                 seq,
		Ticker:              r.Ticker,
		Name:                sql.NullString{String: r.Name, Valid: r.Name != ""},
		EntryPrice:          r.EntryPrice,
		EntryDate:           r.EntryDate.UnixMilli(),
		Stop:                r.Stop,
		TP50:                r.TP50,
		TP75:                r.TP75,
		Target:              r.Target,
		RewardToRisk:        r.RewardToRisk,
		Pattern:             sql.NullString{String: string(r.Pattern), Valid: r.Pattern != ""},
		PlannedPositionSize: r.PlannedPositionSize,
		ActualPositionSize:  r.ActualPositionSize,
		TradeType:           sql.NullString{String: string(r.TradeType), Valid: r.TradeType != ""},
		Leverage:            r.Leverage,
		Barrier:             r.Barrier,
		KOInvestment:        r.KOInvestment,
		Status:              string(r.Status),
	}
	if r.ExitPrice != nil {
		row.ExitPrice = sql.NullFloat64{Float64: *r.ExitPrice, Valid: true}
	}
	if r.ExitDate != nil {
		row.ExitDate = sql.NullInt64{Int64: r.ExitDate.UnixMilli(), Valid: true}
	}
	if r.PnL != nil {
		row.PnL = sql.NullFloat64{Float64: *r.PnL, Valid: true}
	}
	if r.PnLPct != nil {
		row.PnLPct = sql.NullFloat64{Float64: *r.PnLPct, Valid: true}
	}
	return row
}

func (row tradeRow) record() model.TradeRecord {
	r := model.TradeRecord{
		ID:                  row.ID,
		Ticker:              row.Ticker,
		Name:                row.Name.String,
		EntryPrice:          row.EntryPrice,
		EntryDate:           time.UnixMilli(row.EntryDate).UTC(),
		Stop:                row.Stop,
		TP50:                row.TP50,
		TP75:                row.TP75,
		Target:              row.Target,
		RewardToRisk:        row.RewardToRisk,
		Pattern:             model.Pattern(row.Pattern.String),
		PlannedPositionSize: row.PlannedPositionSize,
		ActualPositionSize:  row.ActualPositionSize,
		TradeType:           model.TradeType(row.TradeType.String),
		Leverage:            row.Leverage,
		Barrier:             row.Barrier,
		KOInvestment:        row.KOInvestment,
		Status:              model.TradeStatus(row.Status),
	}
	if row.ExitPrice.Valid {
		v := row.ExitPrice.Float64
		r.ExitPrice = &v
	}
	if row.ExitDate.Valid {
		v := time.UnixMilli(row.ExitDate.Int64).UTC()
		r.ExitDate = &v
	}
	if row.PnL.Valid {
		v := row.PnL.Float64
		r.PnL = &v
	}
	if row.PnLPct.Valid {
		v := row.PnLPct.Float64
		r.PnLPct = &v
	}
	return r
}

func (s *SQLiteStore) LoadAll(ctx context.Context) ([]model.TradeRecord, error) {
	var rows []tradeRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM trades ORDER BY seq, entry_date`); err != nil {
		return nil, fmt.Errorf("select trades: %w", err)
	}
	out := make([]model.TradeRecord, len(rows))
	for i, row := range rows {
		out[i] = row.record()
	}
	return out, nil
}

const insertTrade = `INSERT INTO trades (
	id, seq, ticker, name, entry_price, entry_date, stop, tp_50, tp_75, target, crv,
	pattern, planned_position_size, actual_position_size, trade_type, leverage,
	barrier, ko_investment, status, exit_price, exit_date, pnl, pnl_pct
) VALUES (
	:id, :seq, :ticker, :name, :entry_price, :entry_date, :stop, :tp_50, :tp_75, :target, :crv,
	:pattern, :planned_position_size, :actual_position_size, :trade_type, :leverage,
	:barrier, :ko_investment, :status, :exit_price, :exit_date, :pnl, :pnl_pct
)`

// updateTrade only touches the fields a trade may change after booking, and
// only if nobody changed its status since it was read.
const updateTrade = `UPDATE trades SET
	actual_position_size = :actual_position_size,
	trade_type = :trade_type,
	leverage = :leverage,
	barrier = :barrier,
	ko_investment = :ko_investment,
	status = :status,
	exit_price = :exit_price,
	exit_date = :exit_date,
	pnl = :pnl,
	pnl_pct = :pnl_pct
WHERE id = :id AND status = :prev_status`

type updateArgs struct {
	tradeRow
	PrevStatus string `db:"prev_status"`
}

func (s *SQLiteStore) Insert(ctx context.Context, rec model.TradeRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var seq int
	if err := tx.GetContext(ctx, &seq, `SELECT COALESCE(MAX(seq) + 1, 0) FROM trades`); err != nil {
		return fmt.Errorf("next seq: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, insertTrade, toRow(seq, rec)); err != nil {
		return fmt.Errorf("insert trade %s: %w", rec.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, fn func(*model.TradeRecord) error) (model.TradeRecord, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return model.TradeRecord{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var row tradeRow
	if err := tx.GetContext(ctx, &row, `SELECT * FROM trades WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.TradeRecord{}, fmt.Errorf("trade %s: %w", id, model.ErrTradeNotFound)
		}
		return model.TradeRecord{}, fmt.Errorf("select trade %s: %w", id, err)
	}
	rec := row.record()
	if err := fn(&rec); err != nil {
		return model.TradeRecord{}, err
	}

	res, err := tx.NamedExecContext(ctx, updateTrade, updateArgs{tradeRow: toRow(row.Seq, rec), PrevStatus: row.Status})
	if err != nil {
		return model.TradeRecord{}, fmt.Errorf("update trade %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.TradeRecord{}, fmt.Errorf("update trade %s: %w", id, err)
	} else if n == 0 {
		return model.TradeRecord{}, fmt.Errorf("trade %s changed concurrently: %w", id, model.ErrInvalidState)
	}
	if err := tx.Commit(); err != nil {
		return model.TradeRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
