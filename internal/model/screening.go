package model

import (
	"fmt"
	"strings"
	"time"
)

// EMAFilter selects how the close must relate to an EMA for a symbol to pass.
type EMAFilter string

const (
	EMADisabled EMAFilter = "disabled"
	EMAAbove    EMAFilter = "above"
	EMABelow    EMAFilter = "below"
)

// ParseEMAFilter accepts "", "off", "disabled", "above" and "below".
func ParseEMAFilter(s string) (EMAFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "disabled", "none":
		return EMADisabled, nil
	case "above":
		return EMAAbove, nil
	case "below":
		return EMABelow, nil
	default:
		return "", fmt.Errorf("unknown ema filter %q", s)
	}
}

// ScreeningConfig parameterizes one screening run. It is passed by value and
// never modified by the screening code.
type ScreeningConfig struct {
	MinPrice        float64
	MinVolumeRatio  float64
	MinRewardToRisk float64
	EMA10Filter     EMAFilter
	EMA20Filter     EMAFilter
	PortfolioSize   float64
	RiskPerTrade    float64

	SMAFast        int
	SMASlow        int
	EMAFast        int
	EMASlow        int
	HighWindow     int
	HighMinPeriods int
	NearHighPct    float64
	EntryBuffer    float64
	StopBelowSMA   float64
	MaxStopPct     float64
	MinTargetPct   float64
}

// DefaultScreeningConfig returns the classic Minervini screen parameters.
func DefaultScreeningConfig() ScreeningConfig {
	return ScreeningConfig{
		MinPrice:        20,
		MinVolumeRatio:  1.5,
		MinRewardToRisk: 2.0,
		EMA10Filter:     EMADisabled,
		EMA20Filter:     EMADisabled,
		PortfolioSize:   10000,
		RiskPerTrade:    0.01,

		SMAFast:        50,
		SMASlow:        200,
		EMAFast:        10,
		EMASlow:        20,
		HighWindow:     252,
		HighMinPeriods: 200,
		NearHighPct:    0.10,
		EntryBuffer:    0.01,
		StopBelowSMA:   0.01,
		MaxStopPct:     0.08,
		MinTargetPct:   0.20,
	}
}

// MinHistory is the number of bars needed before every indicator is defined.
func (c ScreeningConfig) MinHistory() int {
	n := c.SMASlow
	for _, v := range []int{c.SMAFast, c.EMAFast, c.EMASlow, c.HighMinPeriods} {
		if v > n {
			n = v
		}
	}
	return n
}

// Rule identifies a single screening check.
type Rule string

const (
	RuleAboveSMA50          Rule = "close_above_sma50"
	RuleAboveSMA200         Rule = "close_above_sma200"
	RuleNearHigh            Rule = "near_52w_high"
	RuleMinPrice            Rule = "min_price"
	RuleMinVolumeRatio      Rule = "min_volume_ratio"
	RuleEMA10               Rule = "ema10"
	RuleEMA20               Rule = "ema20"
	RuleMinRewardToRisk     Rule = "min_reward_to_risk"
	RuleInsufficientHistory Rule = "insufficient_history"
	RuleTradePlan           Rule = "trade_plan"
	RuleFetch               Rule = "fetch"
)

// Pattern is an informational label describing why a symbol qualified.
type Pattern string

const (
	PatternNone     Pattern = ""
	PatternBreakout Pattern = "Breakout"
	PatternNearHigh Pattern = "Near High"
)

// ScreenResult is one qualifying symbol together with its trade plan.
type ScreenResult struct {
	Symbol        string    `json:"ticker"`
	Name          string    `json:"name"`
	Close         float64   `json:"close"`
	Entry         float64   `json:"entry"`
	Stop          float64   `json:"stop"`
	Target        float64   `json:"target"`
	TP50          float64   `json:"tp_50"`
	TP75          float64   `json:"tp_75"`
	RewardToRisk  float64   `json:"crv"`
	Pattern       Pattern   `json:"pattern"`
	PositionSize  float64   `json:"position_size"`
	PositionValue float64   `json:"position_value"`
	VolumeRatio   float64   `json:"volume_ratio"`
	RSI           float64   `json:"rsi"`
	AsOf          time.Time `json:"as_of"`
}

// Exclusion records a symbol that did not make it into the result set.
type Exclusion struct {
	Symbol string `json:"ticker"`
	Reason Rule   `json:"reason"`
	Detail string `json:"detail"`
}

// ResultSet is the output of one screening run.
type ResultSet struct {
	ID         string         `json:"id"`
	Results    []ScreenResult `json:"results"`
	Excluded   []Exclusion    `json:"excluded"`
	Total      int            `json:"total"`
	Processed  int            `json:"processed"`
	Cancelled  bool           `json:"cancelled"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// AsOf returns the latest data date among the results.
func (rs *ResultSet) AsOf() time.Time {
	var t time.Time
	for _, r := range rs.Results {
		if r.AsOf.After(t) {
			t = r.AsOf
		}
	}
	return t
}

// Validate rejects parameter sets the pipeline cannot evaluate.
func (c ScreeningConfig) Validate() error {
	for _, p := range []struct {
		name string
		v    int
	}{
		{"sma fast", c.SMAFast},
		{"sma slow", c.SMASlow},
		{"ema fast", c.EMAFast},
		{"ema slow", c.EMASlow},
		{"high window", c.HighWindow},
		{"high min periods", c.HighMinPeriods},
	} {
		if p.v <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.v)
		}
	}
	if c.HighMinPeriods > c.HighWindow {
		return fmt.Errorf("high min periods %d exceeds window %d", c.HighMinPeriods, c.HighWindow)
	}
	if c.MaxStopPct <= 0 || c.MaxStopPct >= 1 {
		return fmt.Errorf("max stop pct must be in (0, 1), got %v", c.MaxStopPct)
	}
	if c.PortfolioSize < 0 || c.RiskPerTrade < 0 || c.RiskPerTrade > 1 {
		return fmt.Errorf("invalid sizing: portfolio %v, risk per trade %v", c.PortfolioSize, c.RiskPerTrade)
	}
	for _, f := range []EMAFilter{c.EMA10Filter, c.EMA20Filter} {
		if _, err := ParseEMAFilter(string(f)); err != nil {
			return err
		}
	}
	return nil
}
