package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"MinerviniScreener/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "sp500", cfg.Universe.Index)
	assert.Equal(t, "yahoo", cfg.DataSource.Provider)
	assert.Equal(t, 300, cfg.DataSource.LookbackDays)
	assert.Equal(t, 20*time.Second, cfg.DataSource.FetchTimeout)
	assert.Equal(t, "file", cfg.Journal.Backend)
	assert.Equal(t, "0 30 22 * * 1-5", cfg.Schedule.ScreeningCron)

	sc, err := cfg.ScreeningConfig()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultScreeningConfig(), sc)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	path := writeConfig(t, `
screening:
  min_price: 15
  min_crv: 3
  ema10_filter: above
  portfolio_size: 50000
universe:
  index: dax
  static:
    DAX: [sap, " sie "]
data_source:
  provider: rest
  base_url: https://bars.example.com
  fetch_timeout: 5s
cache:
  ttl: 30m
journal:
  backend: sqlite
`)
	t.Setenv("SCREENER_MIN_CRV", "2.5")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("SCREENER_LIMIT", "50")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "dax", cfg.Universe.Index)
	assert.Equal(t, 50, cfg.Universe.Limit)
	assert.Equal(t, 5*time.Second, cfg.DataSource.FetchTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "token", cfg.Telegram.BotToken)
	assert.Equal(t, "sqlite", cfg.Journal.Backend)
	assert.Equal(t, map[string][]model.Symbol{"dax": {{Ticker: "SAP"}, {Ticker: "SIE"}}}, cfg.StaticUniverse())

	sc, err := cfg.ScreeningConfig()
	require.NoError(t, err)
	assert.Equal(t, 15.0, sc.MinPrice)
	assert.Equal(t, 2.5, sc.MinRewardToRisk)
	assert.Equal(t, model.EMAAbove, sc.EMA10Filter)
	assert.Equal(t, model.EMADisabled, sc.EMA20Filter)
	assert.Equal(t, 50000.0, sc.PortfolioSize)
	assert.Equal(t, 1.5, sc.MinVolumeRatio)
}

func TestLoad_ExplicitZeroKept(t *testing.T) {
	path := writeConfig(t, `
screening:
  min_price: 0
  min_volume_ratio: 0
  near_high_pct: 0
  entry_buffer: 0
cache:
  ttl: 0s
`)
	t.Setenv("SCREENER_MIN_CRV", "0")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Zero(t, cfg.Cache.TTL)

	sc, err := cfg.ScreeningConfig()
	require.NoError(t, err)
	assert.Zero(t, sc.MinPrice)
	assert.Zero(t, sc.MinVolumeRatio)
	assert.Zero(t, sc.NearHighPct)
	assert.Zero(t, sc.EntryBuffer)
	assert.Zero(t, sc.MinRewardToRisk)
	assert.Equal(t, model.DefaultScreeningConfig().MaxStopPct, sc.MaxStopPct)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown provider", "data_source:\n  provider: bloomberg\n"},
		{"rest without url", "data_source:\n  provider: rest\n"},
		{"bad ema filter", "screening:\n  ema20_filter: sideways\n"},
		{"risk above one", "screening:\n  risk_per_trade: 2\n"},
		{"max stop out of range", "screening:\n  max_stop_pct: 1.5\n"},
		{"zero portfolio", "screening:\n  portfolio_size: 0\n"},
		{"unknown journal backend", "journal:\n  backend: postgres\n"},
		{"bad log level", "log:\n  level: verbose\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.yaml))
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "screening: [unclosed"))
	assert.Error(t, err)
}

func TestRequireTelegram(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireTelegram())
	cfg.Telegram.BotToken = "t"
	assert.Error(t, cfg.RequireTelegram())
	cfg.Telegram.ChatID = "1"
	assert.NoError(t, cfg.RequireTelegram())
}
