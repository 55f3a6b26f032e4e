package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"MinerviniScreener/internal/export"
	"MinerviniScreener/internal/journal"
	"MinerviniScreener/internal/model"
	"MinerviniScreener/internal/strategy"

	"github.com/spf13/cobra"
)

func withJournal(cmd *cobra.Command, fn func(a *app, j *journal.Journal) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	j, err := a.journal(cmd.Context())
	if err != nil {
		return err
	}
	return fn(a, j)
}

func runJournalList(cmd *cobra.Command, _ []string) error {
	return withJournal(cmd, func(_ *app, j *journal.Journal) error {
		filter := journal.Filter{}
		switch strings.ToLower(journalStatus) {
		case "":
		case "open":
			filter.Status = model.StatusOpen
		case "closed":
			filter.Status = model.StatusClosed
		default:
			return fmt.Errorf("unknown status %q", journalStatus)
		}
		trades, err := j.List(cmd.Context(), filter)
		if err != nil {
			return err
		}

		out, done, err := openOutput(journalOutput)
		if err != nil {
			return err
		}
		defer done()

		switch journalFormat {
		case "csv":
			return export.WriteTradesCSV(out, trades)
		case "json":
			return export.WriteJSON(out, trades)
		default:
			return writeTradesTable(out, trades)
		}
	})
}

// runJournalAdd books the current trade plan of a ticker. Tickers that do not
// qualify today are refused.
func runJournalAdd(cmd *cobra.Command, args []string) error {
	return withJournal(cmd, func(a *app, j *journal.Journal) error {
		ctx := cmd.Context()
		params, err := a.cfg.ScreeningConfig()
		if err != nil {
			return err
		}

		sym := a.symbols(ctx, a.cfg.Universe.Index, args[:1])[0]
		bars, err := a.fetcher(ctx).FetchHistory(ctx, sym.Ticker, a.cfg.DataSource.LookbackDays)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", sym.Ticker, err)
		}
		res, err := strategy.Screen(sym, bars, params)
		if err != nil {
			return err
		}
		rec, err := j.Create(ctx, *res)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "opened %s %s entry %.2f stop %.2f target %.2f size %.0f\n",
			rec.ID, rec.Ticker, rec.EntryPrice, rec.Stop, rec.Target, rec.ActualPositionSize)
		return nil
	})
}

func runJournalAdjust(cmd *cobra.Command, args []string) error {
	return withJournal(cmd, func(_ *app, j *journal.Journal) error {
		f := cmd.Flags()
		var adj journal.Adjustment
		if f.Changed("size") {
			adj.PositionSize = &adjustSize
		}
		if f.Changed("type") {
			tt := model.TradeDirect
			if strings.EqualFold(adjustType, string(model.TradeKO)) {
				tt = model.TradeKO
			} else if !strings.EqualFold(adjustType, string(model.TradeDirect)) {
				return fmt.Errorf("unknown trade type %q", adjustType)
			}
			adj.TradeType = &tt
		}
		if f.Changed("ko-investment") {
			adj.KOInvestment = &adjustKO
		}
		if f.Changed("leverage") {
			adj.Leverage = &adjustLev
		}
		if f.Changed("barrier") {
			adj.Barrier = &adjustBarrier
		}

		rec, err := j.Adjust(cmd.Context(), args[0], adj)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "adjusted %s %s: %s, size %.0f (planned %.0f)\n",
			rec.ID, rec.Ticker, rec.TradeType, rec.ActualPositionSize, rec.PlannedPositionSize)
		return nil
	})
}

func runJournalClose(cmd *cobra.Command, args []string) error {
	price, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("exit price %q: %w", args[1], err)
	}
	return withJournal(cmd, func(_ *app, j *journal.Journal) error {
		rec, err := j.Close(cmd.Context(), args[0], price)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "closed %s %s at %.2f: P&L %+.2f (%+.2f%%)\n",
			rec.ID, rec.Ticker, *rec.ExitPrice, *rec.PnL, *rec.PnLPct)
		return nil
	})
}

func runJournalStats(cmd *cobra.Command, _ []string) error {
	return withJournal(cmd, func(_ *app, j *journal.Journal) error {
		s, err := j.Stats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "open %d, closed %d, wins %d, losses %d, win rate %.1f%%, total P&L %+.2f\n",
			s.Open, s.Closed, s.Wins, s.Losses, s.WinRate*100, s.TotalPnL)
		return nil
	})
}

func writeTradesTable(w io.Writer, trades []model.TradeRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTICKER\tSTATUS\tTYPE\tENTRY DATE\tENTRY\tSTOP\tTARGET\tSIZE\tEXIT\tP&L\tP&L %")
	for _, t := range trades {
		exit, pnl, pct := "-", "-", "-"
		if t.ExitPrice != nil {
			exit = fmt.Sprintf("%.2f", *t.ExitPrice)
		}
		if t.PnL != nil {
			pnl = fmt.Sprintf("%+.2f", *t.PnL)
		}
		if t.PnLPct != nil {
			pct = fmt.Sprintf("%+.2f", *t.PnLPct)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.0f\t%s\t%s\t%s\n",
			t.ID, t.Ticker, t.Status, t.TradeType, t.EntryDate.Format("2006-01-02"),
			t.EntryPrice, t.Stop, t.Target, t.ActualPositionSize, exit, pnl, pct)
	}
	return tw.Flush()
}
