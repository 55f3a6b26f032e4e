package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"MinerviniScreener/internal/metrics"
	"MinerviniScreener/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInvalidArgument is returned for prices or sizes the journal cannot book.
var ErrInvalidArgument = errors.New("invalid argument")

// Adjustment overwrites the "actual" fields of an open trade. Nil fields are
// left unchanged.
type Adjustment struct {
	PositionSize *float64
	TradeType    *model.TradeType
	KOInvestment *float64
	Leverage     *float64
	Barrier      *float64
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Status model.TradeStatus
	Ticker string
}

// Journal books trades through a Store. It keeps no copy of the records:
// every read goes to the store, and every mutation is a single-record update
// the store applies atomically, so several journals (or processes) may share
// one store.
type Journal struct {
	store   Store
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// Open checks that store is readable. m may be nil.
func Open(ctx context.Context, store Store, m *metrics.Metrics, log zerolog.Logger) (*Journal, error) {
	recs, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load journal: %w", err)
	}
	j := &Journal{
		store:   store,
		metrics: m,
		log:     log.With().Str("component", "journal").Logger(),
		now:     time.Now,
	}
	j.observe(recs)
	j.log.Info().Int("trades", len(recs)).Msg("journal loaded")
	return j, nil
}

// Create books a qualifying screen result as an open trade. The planned
// fields are a snapshot and never change afterwards.
func (j *Journal) Create(ctx context.Context, res model.ScreenResult) (model.TradeRecord, error) {
	if res.Symbol == "" || res.Entry <= 0 {
		return model.TradeRecord{}, fmt.Errorf("create trade %q at %v: %w", res.Symbol, res.Entry, ErrInvalidArgument)
	}

	rec := model.TradeRecord{
		ID:                  uuid.NewString(),
		Ticker:              res.Symbol,
		Name:                res.Name,
		EntryPrice:          res.Entry,
		EntryDate:           j.now().UTC(),
		Stop:                res.Stop,
		TP50:                res.TP50,
		TP75:                res.TP75,
		Target:              res.Target,
		RewardToRisk:        res.RewardToRisk,
		Pattern:             res.Pattern,
		PlannedPositionSize: res.PositionSize,
		ActualPositionSize:  res.PositionSize,
		TradeType:           model.TradeDirect,
		Status:              model.StatusOpen,
	}
	if err := j.store.Insert(ctx, rec); err != nil {
		j.log.Error().Err(err).Str("ticker", rec.Ticker).Msg("failed to save trade")
		return model.TradeRecord{}, fmt.Errorf("save journal: %w", err)
	}
	j.refresh(ctx)
	j.log.Info().Str("id", rec.ID).Str("ticker", rec.Ticker).Float64("entry", rec.EntryPrice).Msg("trade opened")
	return rec, nil
}

// Adjust edits the actual position of an open trade.
func (j *Journal) Adjust(ctx context.Context, id string, adj Adjustment) (model.TradeRecord, error) {
	if err := adj.validate(); err != nil {
		return model.TradeRecord{}, err
	}

	rec, err := j.update(ctx, id, func(rec *model.TradeRecord) error {
		if err := requireOpen(rec); err != nil {
			return err
		}
		if adj.PositionSize != nil {
			rec.ActualPositionSize = *adj.PositionSize
		}
		if adj.TradeType != nil {
			rec.TradeType = *adj.TradeType
		}
		if adj.KOInvestment != nil {
			rec.KOInvestment = *adj.KOInvestment
		}
		if adj.Leverage != nil {
			rec.Leverage = *adj.Leverage
		}
		if adj.Barrier != nil {
			rec.Barrier = *adj.Barrier
		}
		return nil
	})
	if err != nil {
		return model.TradeRecord{}, err
	}
	j.log.Info().Str("id", id).Float64("size", rec.ActualPositionSize).Str("type", string(rec.TradeType)).Msg("trade adjusted")
	return rec, nil
}

// Close realizes the P&L of an open trade at exitPrice. A trade closes
// exactly once; later attempts fail with model.ErrInvalidState.
func (j *Journal) Close(ctx context.Context, id string, exitPrice float64) (model.TradeRecord, error) {
	if !(exitPrice > 0) {
		return model.TradeRecord{}, fmt.Errorf("exit price %v: %w", exitPrice, ErrInvalidArgument)
	}

	rec, err := j.update(ctx, id, func(rec *model.TradeRecord) error {
		if err := requireOpen(rec); err != nil {
			return err
		}
		exit := exitPrice
		date := j.now().UTC()
		pnl := (exitPrice - rec.EntryPrice) * rec.ActualPositionSize
		pct := (exitPrice/rec.EntryPrice - 1) * 100
		rec.Status = model.StatusClosed
		rec.ExitPrice = &exit
		rec.ExitDate = &date
		rec.PnL = &pnl
		rec.PnLPct = &pct
		return nil
	})
	if err != nil {
		return model.TradeRecord{}, err
	}
	j.log.Info().Str("id", id).Str("ticker", rec.Ticker).Float64("pnl", *rec.PnL).Float64("pnl_pct", *rec.PnLPct).Msg("trade closed")
	return rec, nil
}

// Get returns the trade with id.
func (j *Journal) Get(ctx context.Context, id string) (model.TradeRecord, error) {
	recs, err := j.load(ctx)
	if err != nil {
		return model.TradeRecord{}, err
	}
	for _, rec := range recs {
		if rec.ID == id {
			return rec, nil
		}
	}
	return model.TradeRecord{}, fmt.Errorf("trade %s: %w", id, model.ErrTradeNotFound)
}

// List returns matching trades in booking order.
func (j *Journal) List(ctx context.Context, f Filter) ([]model.TradeRecord, error) {
	recs, err := j.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.TradeRecord, 0, len(recs))
	for _, rec := range recs {
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		if f.Ticker != "" && !strings.EqualFold(rec.Ticker, f.Ticker) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Stats derives win rate and realized P&L from closed trades.
func (j *Journal) Stats(ctx context.Context) (model.JournalStats, error) {
	recs, err := j.load(ctx)
	if err != nil {
		return model.JournalStats{}, err
	}

	var s model.JournalStats
	for _, rec := range recs {
		if rec.Status != model.StatusClosed {
			s.Open++
			continue
		}
		s.Closed++
		if rec.PnL == nil {
			continue
		}
		s.TotalPnL += *rec.PnL
		switch {
		case *rec.PnL > 0:
			s.Wins++
		case *rec.PnL < 0:
			s.Losses++
		}
	}
	if s.Closed > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Closed)
	}
	return s, nil
}

func requireOpen(rec *model.TradeRecord) error {
	if rec.Status != model.StatusOpen {
		return fmt.Errorf("trade %s is %s: %w", rec.ID, rec.Status, model.ErrInvalidState)
	}
	return nil
}

// update applies fn to one stored record. Domain errors from fn pass through
// unwrapped; anything else is a persistence failure.
func (j *Journal) update(ctx context.Context, id string, fn func(*model.TradeRecord) error) (model.TradeRecord, error) {
	rec, err := j.store.Update(ctx, id, fn)
	switch {
	case err == nil:
	case errors.Is(err, model.ErrTradeNotFound), errors.Is(err, model.ErrInvalidState):
		return model.TradeRecord{}, err
	default:
		j.log.Error().Err(err).Str("id", id).Msg("failed to save trade")
		return model.TradeRecord{}, fmt.Errorf("save journal: %w", err)
	}
	j.refresh(ctx)
	return rec, nil
}

func (j *Journal) load(ctx context.Context) ([]model.TradeRecord, error) {
	recs, err := j.store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load journal: %w", err)
	}
	j.observe(recs)
	return recs, nil
}

// refresh updates the gauges after a write; a failed read only costs freshness.
func (j *Journal) refresh(ctx context.Context) {
	if j.metrics == nil {
		return
	}
	if _, err := j.load(ctx); err != nil {
		j.log.Warn().Err(err).Msg("refresh journal metrics")
	}
}

func (j *Journal) observe(recs []model.TradeRecord) {
	if j.metrics == nil {
		return
	}
	var open, closed int
	for _, rec := range recs {
		if rec.Status == model.StatusClosed {
			closed++
		} else {
			open++
		}
	}
	j.metrics.JournalTrades.WithLabelValues(string(model.StatusOpen)).Set(float64(open))
	j.metrics.JournalTrades.WithLabelValues(string(model.StatusClosed)).Set(float64(closed))
}

func (a Adjustment) validate() error {
	for _, f := range []struct {
		name string
		v    *float64
	}{
		{"position size", a.PositionSize},
		{"ko investment", a.KOInvestment},
		{"leverage", a.Leverage},
		{"barrier", a.Barrier},
	} {
		if f.v != nil && !(*f.v >= 0) {
			return fmt.Errorf("%s %v: %w", f.name, *f.v, ErrInvalidArgument)
		}
	}
	if a.TradeType != nil && *a.TradeType != model.TradeDirect && *a.TradeType != model.TradeKO {
		return fmt.Errorf("trade type %q: %w", *a.TradeType, ErrInvalidArgument)
	}
	return nil
}
