package strategy

import (
	"math"
	"testing"

	"MinerviniScreener/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatePlan_Scenario(t *testing.T) {
	plan, err := CalculatePlan(111, 110, 111, testConfig())
	require.NoError(t, err)

	assert.InDelta(t, 112.11, plan.Entry, 1e-9)
	assert.InDelta(t, 108.9, plan.Stop, 1e-9)
	assert.InDelta(t, 133.2, plan.Target, 1e-9)
	assert.InDelta(t, 21.09/3.21, plan.RewardToRisk, 1e-9)
	assert.InDelta(t, 112.11+0.5*21.09, plan.TP50, 1e-9)
	assert.InDelta(t, 112.11+0.75*21.09, plan.TP75, 1e-9)
	assert.Equal(t, math.Floor(100/3.21), plan.PositionSize)
	assert.InDelta(t, plan.PositionSize*112.11, plan.PositionValue, 1e-9)
}

func TestCalculatePlan_StopChoosesShallower(t *testing.T) {
	// sma50 far below close: the 8% stop is the shallower one.
	plan, err := CalculatePlan(100, 80, 100, testConfig())
	require.NoError(t, err)
	assert.InDelta(t, 92.0, plan.Stop, 1e-9)
}

func TestCalculatePlan_TargetUsesPriorHigh(t *testing.T) {
	plan, err := CalculatePlan(100, 95, 150, testConfig())
	require.NoError(t, err)
	assert.InDelta(t, 150.0, plan.Target, 1e-9)
}

func TestCalculatePlan_InvalidStop(t *testing.T) {
	// sma50 above entry pushes the stop over the entry.
	_, err := CalculatePlan(100, 110, 100, testConfig())
	assert.ErrorIs(t, err, model.ErrInvalidStop)
}

func TestCalculatePlan_DegenerateRisk(t *testing.T) {
	_, err := CalculatePlan(math.NaN(), 100, 100, testConfig())
	assert.ErrorIs(t, err, model.ErrDegenerateRisk)
}

func TestCalculatePlan_EntryAboveStopProperty(t *testing.T) {
	cfg := testConfig()
	for close := 5.0; close < 500; close += 7.3 {
		for _, smaFactor := range []float64{0.7, 0.9, 0.95, 0.99, 1.0} {
			plan, err := CalculatePlan(close, close*smaFactor, close*1.05, cfg)
			if err != nil {
				continue
			}
			assert.Greater(t, plan.Entry, plan.Stop)
			assert.Greater(t, plan.RewardToRisk, 0.0)
			assert.LessOrEqual(t, plan.TP50, plan.TP75)
			assert.LessOrEqual(t, plan.TP75, plan.Target)
		}
	}
}
