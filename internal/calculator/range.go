package calculator

import (
	"errors"
	"fmt"
	"math"

	"MinerviniScreener/internal/model"

	"gonum.org/v1/gonum/floats"
)

// RollingMax returns the maximum of the trailing window closes. A value is
// reported once minPeriods samples are available, so the series warms up
// before the full window is filled.
func RollingMax(closes []float64, window, minPeriods int) ([]float64, error) {
	if window <= 0 {
		return nil, errors.New("window must be positive")
	}
	if minPeriods <= 0 || minPeriods > window {
		return nil, fmt.Errorf("min periods must be in [1, %d], got %d", window, minPeriods)
	}
	if len(closes) < minPeriods {
		return nil, fmt.Errorf("rolling max needs %d bars, have %d: %w", minPeriods, len(closes), model.ErrInsufficientHistory)
	}
	out := make([]float64, len(closes))
	for i := range closes {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		if i-start+1 < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = floats.Max(closes[start : i+1])
	}
	return out, nil
}
