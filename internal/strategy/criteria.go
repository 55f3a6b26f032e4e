package strategy

import (
	"math"

	"MinerviniScreener/internal/model"
)

// RuleCheck is the outcome of a single rule.
type RuleCheck struct {
	Rule   model.Rule
	Passed bool
}

// Decision is the verdict of the criteria evaluator for one symbol.
type Decision struct {
	Qualifies  bool
	Pattern    model.Pattern
	FailedRule model.Rule // first failed rule in evaluation order, empty when qualifying
	Checks     []RuleCheck
}

// Evaluate applies the Minervini trend rules and the optional EMA filters
// to the latest indicator values. Every active rule is evaluated; the pattern
// label is derived independently of the verdict.
func Evaluate(snap model.IndicatorSnapshot, cfg model.ScreeningConfig) Decision {
	if undefined(snap, cfg) {
		return Decision{FailedRule: model.RuleInsufficientHistory}
	}

	c := snap.Close
	aboveSMA50 := c > snap.SMA50
	aboveSMA200 := c > snap.SMA200
	nearHigh := c >= (1-cfg.NearHighPct)*snap.High52w

	checks := []RuleCheck{
		{model.RuleAboveSMA50, aboveSMA50},
		{model.RuleAboveSMA200, aboveSMA200},
		{model.RuleNearHigh, nearHigh},
		{model.RuleMinPrice, c >= cfg.MinPrice},
		{model.RuleMinVolumeRatio, snap.VolumeRatio >= cfg.MinVolumeRatio},
	}
	if cfg.EMA10Filter != model.EMADisabled && cfg.EMA10Filter != "" {
		checks = append(checks, RuleCheck{model.RuleEMA10, emaPasses(c, snap.EMA10, cfg.EMA10Filter)})
	}
	if cfg.EMA20Filter != model.EMADisabled && cfg.EMA20Filter != "" {
		checks = append(checks, RuleCheck{model.RuleEMA20, emaPasses(c, snap.EMA20, cfg.EMA20Filter)})
	}

	d := Decision{Qualifies: true, Checks: checks}
	for _, ch := range checks {
		if !ch.Passed {
			d.Qualifies = false
			d.FailedRule = ch.Rule
			break
		}
	}
	d.Pattern = classify(aboveSMA50, aboveSMA200, nearHigh, snap.VolumeRatio)
	return d
}

func classify(aboveSMA50, aboveSMA200, nearHigh bool, volumeRatio float64) model.Pattern {
	if !aboveSMA50 || !aboveSMA200 || !nearHigh {
		return model.PatternNone
	}
	if volumeRatio > 1 {
		return model.PatternBreakout
	}
	return model.PatternNearHigh
}

func emaPasses(close, ema float64, dir model.EMAFilter) bool {
	if dir == model.EMABelow {
		return close < ema
	}
	return close > ema
}

// undefined reports whether any value a rule depends on is missing.
func undefined(snap model.IndicatorSnapshot, cfg model.ScreeningConfig) bool {
	vals := []float64{snap.Close, snap.SMA50, snap.SMA200, snap.High52w, snap.VolumeRatio}
	if cfg.EMA10Filter != model.EMADisabled && cfg.EMA10Filter != "" {
		vals = append(vals, snap.EMA10)
	}
	if cfg.EMA20Filter != model.EMADisabled && cfg.EMA20Filter != "" {
		vals = append(vals, snap.EMA20)
	}
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
