package model

import "time"

// TradeType distinguishes direct share purchases from knockout certificates.
type TradeType string

const (
	TradeDirect TradeType = "Direct"
	TradeKO     TradeType = "KO"
)

// TradeStatus is the lifecycle state of a journal entry.
type TradeStatus string

const (
	StatusOpen   TradeStatus = "Open"
	StatusClosed TradeStatus = "Closed"
)

// TradeRecord is a journal entry. The planned fields are a snapshot of the
// ScreenResult at commit time. Exit and P&L fields are set iff Status is
// Closed.
type TradeRecord struct {
	ID           string    `json:"id"`
	Ticker       string    `json:"ticker"`
	Name         string    `json:"name"`
	EntryPrice   float64   `json:"entry_price"`
	EntryDate    time.Time `json:"entry_date"`
	Stop         float64   `json:"stop"`
	TP50         float64   `json:"tp_50"`
	TP75         float64   `json:"tp_75"`
	Target       float64   `json:"target"`
	RewardToRisk float64   `json:"crv"`
	Pattern      Pattern   `json:"pattern"`

	PlannedPositionSize float64   `json:"planned_position_size"`
	ActualPositionSize  float64   `json:"actual_position_size"`
	TradeType           TradeType `json:"trade_type"`
	Leverage            float64   `json:"leverage,omitempty"`
	Barrier             float64   `json:"barrier,omitempty"`
	KOInvestment        float64   `json:"ko_investment,omitempty"`

	Status    TradeStatus `json:"status"`
	ExitPrice *float64    `json:"exit_price,omitempty"`
	ExitDate  *time.Time  `json:"exit_date,omitempty"`
	PnL       *float64    `json:"pnl,omitempty"`
	PnLPct    *float64    `json:"pnl_pct,omitempty"`
}

// JournalStats are aggregate figures derived from closed trades.
type JournalStats struct {
	Open     int     `json:"open"`
	Closed   int     `json:"closed"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	WinRate  float64 `json:"win_rate"`
	TotalPnL float64 `json:"total_pnl"`
}
