package calculator

import (
	"fmt"

	"MinerviniScreener/internal/model"
)

const rsiPeriod = 14

// Compute derives the full IndicatorSet for a bar series. It fails with
// model.ErrInsufficientHistory unless every indicator can produce a value at
// the latest bar.
func Compute(bars []model.PriceBar, cfg model.ScreeningConfig) (*model.IndicatorSet, error) {
	if need := cfg.MinHistory(); len(bars) < need {
		return nil, fmt.Errorf("need %d bars, have %d: %w", need, len(bars), model.ErrInsufficientHistory)
	}
	closes := model.Closes(bars)

	set := &model.IndicatorSet{Closes: closes, LatestTime: bars[len(bars)-1].Time}
	var err error
	if set.SMA50, err = SMASeries(closes, cfg.SMAFast); err != nil {
		return nil, fmt.Errorf("sma fast: %w", err)
	}
	if set.SMA200, err = SMASeries(closes, cfg.SMASlow); err != nil {
		return nil, fmt.Errorf("sma slow: %w", err)
	}
	if set.EMA10, err = EMASeries(closes, cfg.EMAFast); err != nil {
		return nil, fmt.Errorf("ema fast: %w", err)
	}
	if set.EMA20, err = EMASeries(closes, cfg.EMASlow); err != nil {
		return nil, fmt.Errorf("ema slow: %w", err)
	}
	if set.High52w, err = RollingMax(closes, cfg.HighWindow, cfg.HighMinPeriods); err != nil {
		return nil, fmt.Errorf("52w high: %w", err)
	}
	if set.RSI14, err = RSISeries(closes, rsiPeriod); err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}
	if set.VolumeRatio, err = VolumeRatio(model.Volumes(bars)); err != nil {
		return nil, fmt.Errorf("volume ratio: %w", err)
	}
	return set, nil
}
