package notifier

import (
	"errors"
	"math"
	"testing"
	"time"

	"MinerviniScreener/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestFormatScreeningReport(t *testing.T) {
	asOf := time.Date(2025, 6, 13, 0, 0, 0, 0, time.UTC)
	rs := &model.ResultSet{
		Results: []model.ScreenResult{
			{Symbol: "AAA", Name: "A&A Inc", Entry: 112.11, Stop: 108.92, Target: 133.2, RewardToRisk: 6.61, Pattern: model.PatternNearHigh, PositionSize: 31, VolumeRatio: 1, RSI: 72, AsOf: asOf},
			{Symbol: "BBB", Entry: 10, Stop: 9, Target: 13, RewardToRisk: 3, Pattern: model.PatternBreakout, RSI: math.NaN(), AsOf: asOf},
			{Symbol: "CCC", Entry: 10, Stop: 9, Target: 12, RewardToRisk: 2, AsOf: asOf},
		},
		Excluded:  []model.Exclusion{{Symbol: "DDD"}},
		Total:     4,
		Processed: 4,
	}

	msg := FormatScreeningReport(rs, 2)
	assert.Contains(t, msg, "Daten vom 2025-06-13")
	assert.Contains(t, msg, "Treffer: 3")
	assert.Contains(t, msg, "1. <b>AAA</b> A&amp;A Inc")
	assert.Contains(t, msg, "CRV 6.61")
	assert.Contains(t, msg, "RSI 72")
	assert.Contains(t, msg, "2. <b>BBB</b>")
	assert.NotContains(t, msg, "CCC")
	assert.Contains(t, msg, "1 weitere")
	assert.NotContains(t, msg, "abgebrochen")
}

func TestFormatScreeningReport_EmptyAndCancelled(t *testing.T) {
	msg := FormatScreeningReport(&model.ResultSet{Total: 10, Processed: 3, Cancelled: true}, 5)
	assert.Contains(t, msg, "Daten vom n/a")
	assert.Contains(t, msg, "Geprüft: 3/10")
	assert.Contains(t, msg, "abgebrochen")
	assert.Contains(t, msg, "Keine Aktien")
}

func TestFormatJournalStats(t *testing.T) {
	msg := FormatJournalStats(model.JournalStats{Open: 2, Closed: 4, Wins: 3, Losses: 1, WinRate: 0.75, TotalPnL: 412.5})
	assert.Contains(t, msg, "Offen: 2 | Geschlossen: 4")
	assert.Contains(t, msg, "Trefferquote: 75.0%")
	assert.Contains(t, msg, "+412.50")
}

func TestFormatOpenTrades(t *testing.T) {
	assert.Equal(t, "Keine offenen Trades.", FormatOpenTrades(nil))

	msg := FormatOpenTrades([]model.TradeRecord{
		{Ticker: "ACME", TradeType: model.TradeDirect, EntryPrice: 100, EntryDate: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{Ticker: "KNOX", TradeType: model.TradeKO, Leverage: 5, Barrier: 80},
	})
	assert.Contains(t, msg, "(2)")
	assert.Contains(t, msg, "<b>ACME</b> Direct seit 2025-01-02")
	assert.Contains(t, msg, "Hebel 5.0 | Barriere 80.00")
}

func TestFormatRunFailure(t *testing.T) {
	msg := FormatRunFailure(errors.New("list sp500: <timeout>"))
	assert.Contains(t, msg, "&lt;timeout&gt;")
}
