package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScreeningConfig_ValidateDefaults(t *testing.T) {
	assert.NoError(t, DefaultScreeningConfig().Validate())
}

func TestScreeningConfig_ValidateReportsFirstBadPeriod(t *testing.T) {
	cfg := DefaultScreeningConfig()
	cfg.SMAFast = 0
	cfg.EMASlow = -1
	cfg.HighWindow = 0

	for i := 0; i < 20; i++ {
		err := cfg.Validate()
		require.Error(t, err)
		assert.Equal(t, "sma fast must be positive, got 0", err.Error())
	}
}

func TestScreeningConfig_ValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ScreeningConfig)
	}{
		{"min periods above window", func(c *ScreeningConfig) { c.HighMinPeriods = c.HighWindow + 1 }},
		{"max stop zero", func(c *ScreeningConfig) { c.MaxStopPct = 0 }},
		{"risk above one", func(c *ScreeningConfig) { c.RiskPerTrade = 1.5 }},
		{"negative portfolio", func(c *ScreeningConfig) { c.PortfolioSize = -1 }},
		{"unknown ema filter", func(c *ScreeningConfig) { c.EMA20Filter = "sideways" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultScreeningConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
