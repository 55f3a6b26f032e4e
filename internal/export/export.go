package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"time"

	"MinerviniScreener/internal/model"
)

var resultHeader = []string{
	"ticker", "name", "close", "entry", "stop", "tp_50", "tp_75", "target",
	"crv", "pattern", "position_size", "position_value", "volume_ratio", "rsi", "as_of",
}

var tradeHeader = []string{
	"id", "ticker", "name", "status", "trade_type", "entry_date", "entry_price",
	"stop", "tp_50", "tp_75", "target", "crv", "pattern",
	"planned_position_size", "actual_position_size", "leverage", "barrier", "ko_investment",
	"exit_date", "exit_price", "pnl", "pnl_pct",
}

// WriteResultsCSV writes one row per qualifying symbol in result order.
func WriteResultsCSV(w io.Writer, results []model.ScreenResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultHeader); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.Symbol, r.Name, num(r.Close), num(r.Entry), num(r.Stop), num(r.TP50), num(r.TP75),
			num(r.Target), num(r.RewardToRisk), string(r.Pattern),
			strconv.FormatFloat(r.PositionSize, 'f', 0, 64), num(r.PositionValue),
			num(r.VolumeRatio), num(r.RSI), date(r.AsOf),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTradesCSV writes the journal, leaving exit columns empty for open trades.
func WriteTradesCSV(w io.Writer, trades []model.TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		row := []string{
			t.ID, t.Ticker, t.Name, string(t.Status), string(t.TradeType), date(t.EntryDate),
			num(t.EntryPrice), num(t.Stop), num(t.TP50), num(t.TP75), num(t.Target),
			num(t.RewardToRisk), string(t.Pattern),
			num(t.PlannedPositionSize), num(t.ActualPositionSize),
			num(t.Leverage), num(t.Barrier), num(t.KOInvestment),
			"", "", "", "",
		}
		if t.ExitDate != nil {
			row[18] = date(*t.ExitDate)
		}
		if t.ExitPrice != nil {
			row[19] = num(*t.ExitPrice)
		}
		if t.PnL != nil {
			row[20] = num(*t.PnL)
		}
		if t.PnLPct != nil {
			row[21] = num(*t.PnLPct)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes v as indented JSON. NaN indicator values must already be
// replaced; see Sanitize.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ResultJSON is a screen result as exported to JSON. RSI is null while the
// indicator is still warming up.
type ResultJSON struct {
	model.ScreenResult
	RSI *float64 `json:"rsi"`
}

// ResultSetJSON is a result set as exported to JSON.
type ResultSetJSON struct {
	*model.ResultSet
	Results []ResultJSON `json:"results"`
}

// Sanitize wraps rs for JSON export. NaN RSI values, which encoding/json
// cannot represent, become null.
func Sanitize(rs *model.ResultSet) ResultSetJSON {
	out := ResultSetJSON{ResultSet: rs, Results: make([]ResultJSON, len(rs.Results))}
	for i, r := range rs.Results {
		v := ResultJSON{ScreenResult: r}
		if !math.IsNaN(r.RSI) && !math.IsInf(r.RSI, 0) {
			rsi := r.RSI
			v.RSI = &rsi
		}
		out.Results[i] = v
	}
	return out
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
