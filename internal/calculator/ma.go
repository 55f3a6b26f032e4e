package calculator

import (
	"errors"
	"fmt"
	"math"

	"MinerviniScreener/internal/model"

	"github.com/markcheno/go-talib"
)

// SMASeries computes the simple moving average of closes over a trailing
// window. Entries before index period-1 are NaN.
func SMASeries(closes []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if len(closes) < period {
		return nil, fmt.Errorf("sma%d needs %d bars, have %d: %w", period, period, len(closes), model.ErrInsufficientHistory)
	}
	out := talib.Sma(closes, period)
	for i := 0; i < period-1; i++ {
		out[i] = math.NaN()
	}
	return out, nil
}

// EMASeries computes the exponential moving average with α = 2/(span+1),
// seeded with the first close. Every entry is defined, but values before
// index span-1 should not be used for decisions.
func EMASeries(closes []float64, span int) ([]float64, error) {
	if span <= 0 {
		return nil, errors.New("span must be positive")
	}
	if len(closes) == 0 {
		return nil, fmt.Errorf("ema%d needs at least 1 bar: %w", span, model.ErrInsufficientHistory)
	}
	alpha := 2.0 / float64(span+1)
	out := make([]float64, len(closes))
	out[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		out[i] = alpha*closes[i] + (1-alpha)*out[i-1]
	}
	return out, nil
}
