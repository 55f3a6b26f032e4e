package model

import (
	"math"
	"time"
)

// IndicatorSet holds the derived series for one symbol. Every series has the
// same length as the source closes; entries without enough history are NaN.
type IndicatorSet struct {
	Closes      []float64
	SMA50       []float64
	SMA200      []float64
	EMA10       []float64
	EMA20       []float64
	High52w     []float64
	RSI14       []float64
	VolumeRatio float64
	LatestTime  time.Time
}

// IndicatorSnapshot is an IndicatorSet evaluated at a single bar.
type IndicatorSnapshot struct {
	Close       float64
	SMA50       float64
	SMA200      float64
	EMA10       float64
	EMA20       float64
	High52w     float64
	RSI14       float64
	VolumeRatio float64
	AsOf        time.Time
}

// Latest returns the snapshot at the last bar. Missing series yield NaN.
func (s *IndicatorSet) Latest() IndicatorSnapshot {
	return IndicatorSnapshot{
		Close:       last(s.Closes),
		SMA50:       last(s.SMA50),
		SMA200:      last(s.SMA200),
		EMA10:       last(s.EMA10),
		EMA20:       last(s.EMA20),
		High52w:     last(s.High52w),
		RSI14:       last(s.RSI14),
		VolumeRatio: s.VolumeRatio,
		AsOf:        s.LatestTime,
	}
}

func last(series []float64) float64 {
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}
