package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"

	"MinerviniScreener/internal/model"
)

// FormatScreeningReport lists the top qualifying symbols of a run.
func FormatScreeningReport(rs *model.ResultSet, top int) string {
	var b strings.Builder

	asOf := "n/a"
	if t := rs.AsOf(); !t.IsZero() {
		asOf = t.Format("2006-01-02")
	}
	fmt.Fprintf(&b, "📊 <b>Minervini Screener</b> | Daten vom %s\n\n", asOf)
	fmt.Fprintf(&b, "Geprüft: %d/%d | Treffer: %d | Ausgeschlossen: %d\n",
		rs.Processed, rs.Total, len(rs.Results), len(rs.Excluded))
	if rs.Cancelled {
		b.WriteString("⚠️ Lauf abgebrochen, Ergebnis unvollständig\n")
	}

	if len(rs.Results) == 0 {
		b.WriteString("\nKeine Aktien erfüllen die Kriterien.\n")
		return b.String()
	}

	b.WriteString("\n")
	results := rs.Results
	if top > 0 && len(results) > top {
		results = results[:top]
	}
	for i, r := range results {
		fmt.Fprintf(&b, "%d. <b>%s</b> %s\n", i+1, html.EscapeString(r.Symbol), html.EscapeString(r.Name))
		fmt.Fprintf(&b, "   Entry %.2f | Stop %.2f | Ziel %.2f | CRV %.2f\n", r.Entry, r.Stop, r.Target, r.RewardToRisk)
		fmt.Fprintf(&b, "   %s | Stück %.0f (%.0f) | Vol %.2fx%s\n",
			r.Pattern, r.PositionSize, r.PositionValue, r.VolumeRatio, formatRSI(r.RSI))
	}
	if rest := len(rs.Results) - len(results); rest > 0 {
		fmt.Fprintf(&b, "\n… und %d weitere\n", rest)
	}
	return b.String()
}

// FormatJournalStats summarizes journal performance.
func FormatJournalStats(s model.JournalStats) string {
	var b strings.Builder
	b.WriteString("📒 <b>Trading-Journal</b>\n\n")
	fmt.Fprintf(&b, "Offen: %d | Geschlossen: %d\n", s.Open, s.Closed)
	fmt.Fprintf(&b, "Gewinner: %d | Verlierer: %d\n", s.Wins, s.Losses)
	fmt.Fprintf(&b, "Trefferquote: %.1f%%\n", s.WinRate*100)
	fmt.Fprintf(&b, "Gesamt P&amp;L: %+.2f\n", s.TotalPnL)
	return b.String()
}

// FormatOpenTrades lists open journal entries with their plan levels.
func FormatOpenTrades(trades []model.TradeRecord) string {
	if len(trades) == 0 {
		return "Keine offenen Trades."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📂 <b>Offene Trades</b> (%d)\n\n", len(trades))
	for _, t := range trades {
		fmt.Fprintf(&b, "<b>%s</b> %s seit %s\n", html.EscapeString(t.Ticker), t.TradeType, t.EntryDate.Format("2006-01-02"))
		fmt.Fprintf(&b, "   Entry %.2f | Stop %.2f | TP50 %.2f | Ziel %.2f | Stück %.0f\n",
			t.EntryPrice, t.Stop, t.TP50, t.Target, t.ActualPositionSize)
		if t.TradeType == model.TradeKO {
			fmt.Fprintf(&b, "   Hebel %.1f | Barriere %.2f | Einsatz %.0f\n", t.Leverage, t.Barrier, t.KOInvestment)
		}
	}
	return b.String()
}

// FormatRunFailure reports a run that could not start.
func FormatRunFailure(err error) string {
	return fmt.Sprintf("❌ <b>Screening fehlgeschlagen</b>\n%s", html.EscapeString(err.Error()))
}

func formatRSI(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf(" | RSI %.0f", v)
}
