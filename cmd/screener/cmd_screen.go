package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"MinerviniScreener/internal/export"
	"MinerviniScreener/internal/model"
	"MinerviniScreener/internal/recorder"

	"github.com/spf13/cobra"
)

func runScreen(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	params, err := a.cfg.ScreeningConfig()
	if err != nil {
		return err
	}
	if err := applyScreenFlags(cmd, &params); err != nil {
		return err
	}

	ctx := cmd.Context()
	sc := a.screener(ctx)
	progress := func(processed, total int) {
		a.log.Info().Int("processed", processed).Int("total", total).Msg("progress")
	}

	index := a.cfg.Universe.Index
	if screenIndex != "" {
		index = screenIndex
	}
	limit := a.cfg.Universe.Limit
	if screenLimit >= 0 {
		limit = screenLimit
	}

	var rs *model.ResultSet
	if len(screenSymbols) > 0 {
		syms := a.symbols(ctx, index, screenSymbols)
		index = "manual"
		rs, err = sc.Run(ctx, syms, params, progress)
	} else {
		rs, err = sc.RunUniverse(ctx, a.universe(), index, limit, params, progress)
	}
	if err != nil {
		return err
	}

	if !screenNoRecord {
		info := recorder.RunInfo{Universe: index, Trigger: "cli", Source: sc.Source()}
		if err := a.recorder().RecordRun(ctx, info, rs); err != nil {
			a.log.Warn().Err(err).Msg("record run")
		}
	}

	out, done, err := openOutput(screenOutput)
	if err != nil {
		return err
	}
	defer done()

	switch screenFormat {
	case "csv":
		return export.WriteResultsCSV(out, rs.Results)
	case "json":
		return export.WriteJSON(out, export.Sanitize(rs))
	default:
		return writeResultsTable(out, rs)
	}
}

func applyScreenFlags(cmd *cobra.Command, p *model.ScreeningConfig) error {
	f := cmd.Flags()
	if f.Changed("min-price") {
		p.MinPrice = minPrice
	}
	if f.Changed("min-volume-ratio") {
		p.MinVolumeRatio = minVolumeRatio
	}
	if f.Changed("min-crv") {
		p.MinRewardToRisk = minCRV
	}
	if f.Changed("portfolio") {
		p.PortfolioSize = portfolioSize
	}
	if f.Changed("risk") {
		p.RiskPerTrade = riskPerTrade
	}
	if f.Changed("ema10") {
		v, err := model.ParseEMAFilter(ema10Filter)
		if err != nil {
			return err
		}
		p.EMA10Filter = v
	}
	if f.Changed("ema20") {
		v, err := model.ParseEMAFilter(ema20Filter)
		if err != nil {
			return err
		}
		p.EMA20Filter = v
	}
	return p.Validate()
}

func writeResultsTable(w io.Writer, rs *model.ResultSet) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTICKER\tNAME\tCLOSE\tENTRY\tSTOP\tTP50\tTP75\tTARGET\tCRV\tPATTERN\tSIZE\tVALUE\tVOL\tRSI")
	for i, r := range rs.Results {
		rsi := "-"
		if !math.IsNaN(r.RSI) {
			rsi = fmt.Sprintf("%.0f", r.RSI)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t%.0f\t%.2f\t%.2f\t%s\n",
			i+1, r.Symbol, r.Name, r.Close, r.Entry, r.Stop, r.TP50, r.TP75, r.Target,
			r.RewardToRisk, r.Pattern, r.PositionSize, r.PositionValue, r.VolumeRatio, rsi)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	asOf := "n/a"
	if t := rs.AsOf(); !t.IsZero() {
		asOf = t.Format("2006-01-02")
	}
	fmt.Fprintf(w, "\n%d qualified, %d excluded, %d/%d processed, data as of %s\n",
		len(rs.Results), len(rs.Excluded), rs.Processed, rs.Total, asOf)
	if rs.Cancelled {
		fmt.Fprintln(w, "run was cancelled, results are partial")
	}
	return nil
}

func runHistory(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	runs, err := a.recorder().RecentRuns(cmd.Context(), 20)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tUNIVERSE\tTRIGGER\tSOURCE\tPROCESSED\tQUALIFIED\tEXCLUDED\tCANCELLED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t%d\t%d\t%v\n",
			r.StartedAt.Format("2006-01-02 15:04"), r.Universe, r.Trigger, r.Source,
			r.Processed, r.Total, r.Qualified, r.Excluded, r.Cancelled)
	}
	return tw.Flush()
}

// openOutput returns stdout for an empty path.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
