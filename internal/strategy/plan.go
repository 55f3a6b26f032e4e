package strategy

import (
	"fmt"
	"math"

	"MinerviniScreener/internal/model"
)

// TradePlan is the derived entry/exit plan for a qualifying symbol.
type TradePlan struct {
	Entry         float64
	Stop          float64
	Target        float64
	TP50          float64
	TP75          float64
	RewardToRisk  float64
	PositionSize  float64
	PositionValue float64
}

// CalculatePlan derives entry, stop, target, partial take-profits, CRV and
// position size from the latest close, the fast SMA and the 52-week high.
//
//	entry  = close * (1 + EntryBuffer)
//	stop   = max(sma50 * (1 - StopBelowSMA), close * (1 - MaxStopPct))
//	target = max(high52w, close * (1 + MinTargetPct))
func CalculatePlan(close, sma50, high52w float64, cfg model.ScreeningConfig) (TradePlan, error) {
	entry := close * (1 + cfg.EntryBuffer)
	stop := math.Max(sma50*(1-cfg.StopBelowSMA), close*(1-cfg.MaxStopPct))
	if stop >= entry {
		return TradePlan{}, fmt.Errorf("stop %.2f >= entry %.2f: %w", stop, entry, model.ErrInvalidStop)
	}
	risk := entry - stop
	if !(risk > 0) || math.IsInf(risk, 0) {
		return TradePlan{}, fmt.Errorf("risk per share %.4f: %w", risk, model.ErrDegenerateRisk)
	}

	target := math.Max(high52w, close*(1+cfg.MinTargetPct))
	reward := target - entry
	crv := reward / risk
	if math.IsNaN(crv) || math.IsInf(crv, 0) || crv <= 0 {
		return TradePlan{}, fmt.Errorf("reward/risk %.4f: %w", crv, model.ErrDegenerateRisk)
	}

	plan := TradePlan{
		Entry:        entry,
		Stop:         stop,
		Target:       target,
		TP50:         entry + 0.5*reward,
		TP75:         entry + 0.75*reward,
		RewardToRisk: crv,
	}
	plan.PositionSize = math.Floor(cfg.PortfolioSize * cfg.RiskPerTrade / risk)
	if plan.PositionSize < 0 {
		plan.PositionSize = 0
	}
	plan.PositionValue = plan.PositionSize * entry
	return plan, nil
}
