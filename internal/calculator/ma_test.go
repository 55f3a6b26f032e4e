package calculator

import (
	"math"
	"testing"

	"MinerviniScreener/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMASeries_AlignmentAndValues(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	sma, err := SMASeries(closes, 3)
	require.NoError(t, err)
	require.Len(t, sma, len(closes))

	assert.True(t, math.IsNaN(sma[0]))
	assert.True(t, math.IsNaN(sma[1]))
	assert.InDelta(t, 2.0, sma[2], 1e-9)
	assert.InDelta(t, 3.0, sma[3], 1e-9)
	assert.InDelta(t, 4.0, sma[4], 1e-9)
}

func TestSMASeries_InsufficientHistory(t *testing.T) {
	_, err := SMASeries(make([]float64, 199), 200)
	assert.ErrorIs(t, err, model.ErrInsufficientHistory)

	_, err = SMASeries([]float64{1, 2}, 0)
	assert.Error(t, err)
}

func TestEMASeries_SeededWithFirstValue(t *testing.T) {
	closes := []float64{10, 20, 30}
	ema, err := EMASeries(closes, 3) // alpha = 0.5
	require.NoError(t, err)

	assert.InDelta(t, 10.0, ema[0], 1e-9)
	assert.InDelta(t, 15.0, ema[1], 1e-9)
	assert.InDelta(t, 22.5, ema[2], 1e-9)
}

func TestEMASeries_ConstantSeries(t *testing.T) {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 42
	}
	ema, err := EMASeries(closes, 20)
	require.NoError(t, err)
	for _, v := range ema {
		assert.InDelta(t, 42.0, v, 1e-9)
	}
}

func TestEMASeries_Empty(t *testing.T) {
	_, err := EMASeries(nil, 10)
	assert.ErrorIs(t, err, model.ErrInsufficientHistory)
}
