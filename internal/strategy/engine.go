package strategy

import (
	"errors"
	"fmt"

	"MinerviniScreener/internal/calculator"
	"MinerviniScreener/internal/model"
)

// Screen runs the full per-symbol pipeline on a bar series: indicators,
// criteria, trade plan and the reward/risk post-filter. A symbol that does not
// qualify yields a *model.ScreenError.
func Screen(sym model.Symbol, bars []model.PriceBar, cfg model.ScreeningConfig) (*model.ScreenResult, error) {
	set, err := calculator.Compute(bars, cfg)
	if err != nil {
		reason := model.RuleInsufficientHistory
		if !errors.Is(err, model.ErrInsufficientHistory) {
			reason = ""
		}
		return nil, &model.ScreenError{Symbol: sym.Ticker, Reason: reason, Err: err}
	}
	snap := set.Latest()

	d := Evaluate(snap, cfg)
	if d.FailedRule == model.RuleInsufficientHistory {
		return nil, &model.ScreenError{Symbol: sym.Ticker, Reason: d.FailedRule, Err: model.ErrInsufficientHistory}
	}
	if !d.Qualifies {
		return nil, &model.ScreenError{Symbol: sym.Ticker, Reason: d.FailedRule, Err: model.ErrRejected}
	}

	plan, err := CalculatePlan(snap.Close, snap.SMA50, snap.High52w, cfg)
	if err != nil {
		return nil, &model.ScreenError{Symbol: sym.Ticker, Reason: model.RuleTradePlan, Err: err}
	}
	if plan.RewardToRisk < cfg.MinRewardToRisk {
		return nil, &model.ScreenError{
			Symbol: sym.Ticker,
			Reason: model.RuleMinRewardToRisk,
			Err:    fmt.Errorf("crv %.2f < %.2f: %w", plan.RewardToRisk, cfg.MinRewardToRisk, model.ErrRejected),
		}
	}

	return &model.ScreenResult{
		Symbol:        sym.Ticker,
		Name:          sym.Name,
		Close:         snap.Close,
		Entry:         plan.Entry,
		Stop:          plan.Stop,
		Target:        plan.Target,
		TP50:          plan.TP50,
		TP75:          plan.TP75,
		RewardToRisk:  plan.RewardToRisk,
		Pattern:       d.Pattern,
		PositionSize:  plan.PositionSize,
		PositionValue: plan.PositionValue,
		VolumeRatio:   snap.VolumeRatio,
		RSI:           snap.RSI14,
		AsOf:          snap.AsOf,
	}, nil
}
