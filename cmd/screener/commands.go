package main

import (
	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	prettyLog  bool

	// screen
	screenIndex    string
	screenSymbols  []string
	screenLimit    int
	screenFormat   string
	screenOutput   string
	screenNoRecord bool
	minPrice       float64
	minVolumeRatio float64
	minCRV         float64
	ema10Filter    string
	ema20Filter    string
	portfolioSize  float64
	riskPerTrade   float64

	// journal
	journalStatus string
	journalFormat string
	journalOutput string
	adjustSize    float64
	adjustType    string
	adjustKO      float64
	adjustLev     float64
	adjustBarrier float64

	// serve
	runOnStart bool

	rootCmd = &cobra.Command{
		Use:           "screener",
		Short:         "Minervini trend template screener with trade plans and a trade journal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	screenCmd = &cobra.Command{
		Use:   "screen",
		Short: "Screen an index (or the given symbols) and print qualifying trade plans",
		RunE:  runScreen, // cmd_screen.go
	}

	journalCmd = &cobra.Command{
		Use:   "journal",
		Short: "Manage the trade journal",
	}
	journalListCmd = &cobra.Command{
		Use:   "list",
		Short: "List journal entries",
		RunE:  runJournalList, // cmd_journal.go
	}
	journalAddCmd = &cobra.Command{
		Use:   "add [ticker]",
		Short: "Screen a single ticker and book its trade plan as an open trade",
		Args:  cobra.ExactArgs(1),
		RunE:  runJournalAdd,
	}
	journalAdjustCmd = &cobra.Command{
		Use:   "adjust [id]",
		Short: "Change the actual position of an open trade",
		Args:  cobra.ExactArgs(1),
		RunE:  runJournalAdjust,
	}
	journalCloseCmd = &cobra.Command{
		Use:   "close [id] [exit-price]",
		Short: "Close an open trade and realize its P&L",
		Args:  cobra.ExactArgs(2),
		RunE:  runJournalClose,
	}
	journalStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show win rate and realized P&L",
		RunE:  runJournalStats,
	}

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show recent screening runs",
		RunE:  runHistory, // cmd_screen.go
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled screenings, Telegram commands and the metrics endpoint",
		RunE:  runServe, // cmd_serve.go
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "configs/config.yaml", "path to the YAML config (CONFIG_PATH)")
	pf.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&prettyLog, "pretty", false, "human readable console logs")

	sf := screenCmd.Flags()
	sf.StringVar(&screenIndex, "index", "", "universe to screen (default from config)")
	sf.StringSliceVar(&screenSymbols, "symbols", nil, "screen these tickers instead of an index")
	sf.IntVar(&screenLimit, "limit", -1, "screen only the first N index members, 0 for all")
	sf.StringVar(&screenFormat, "format", "table", "table, csv or json")
	sf.StringVarP(&screenOutput, "output", "o", "", "write to file instead of stdout")
	sf.BoolVar(&screenNoRecord, "no-record", false, "do not store the run in the history database")
	sf.Float64Var(&minPrice, "min-price", 0, "minimum close")
	sf.Float64Var(&minVolumeRatio, "min-volume-ratio", 0, "minimum 3-day/average volume ratio")
	sf.Float64Var(&minCRV, "min-crv", 0, "minimum reward/risk")
	sf.StringVar(&ema10Filter, "ema10", "", "EMA10 filter: disabled, above or below")
	sf.StringVar(&ema20Filter, "ema20", "", "EMA20 filter: disabled, above or below")
	sf.Float64Var(&portfolioSize, "portfolio", 0, "portfolio size for position sizing")
	sf.Float64Var(&riskPerTrade, "risk", 0, "fraction of the portfolio risked per trade")

	journalListCmd.Flags().StringVar(&journalStatus, "status", "", "Open or Closed")
	journalListCmd.Flags().StringVar(&journalFormat, "format", "table", "table, csv or json")
	journalListCmd.Flags().StringVarP(&journalOutput, "output", "o", "", "write to file instead of stdout")

	af := journalAdjustCmd.Flags()
	af.Float64Var(&adjustSize, "size", 0, "actual position size")
	af.StringVar(&adjustType, "type", "", "Direct or KO")
	af.Float64Var(&adjustKO, "ko-investment", 0, "amount invested in the KO certificate")
	af.Float64Var(&adjustLev, "leverage", 0, "KO leverage")
	af.Float64Var(&adjustBarrier, "barrier", 0, "KO barrier")

	serveCmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "screen once immediately after startup")

	journalCmd.AddCommand(journalListCmd, journalAddCmd, journalAdjustCmd, journalCloseCmd, journalStatsCmd)
	rootCmd.AddCommand(screenCmd, journalCmd, historyCmd, serveCmd)
}
