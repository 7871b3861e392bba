package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ksfraser/WealthSystem-sub021/internal/backtest"
	"github.com/ksfraser/WealthSystem-sub021/internal/series"
	"github.com/ksfraser/WealthSystem-sub021/internal/storage/archive"
)

var (
	backtestSymbol string
	backtestFrom   string
	backtestTo     string
	backtestParams []string
	backtestJSON   bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest [strategy]",
	Short: "Run backtest on a strategy",
	Long:  "Run a strategy against historical data and show performance statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestSymbol, "symbol", "", "Symbol to backtest (required)")
	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "Start date YYYY-MM-DD")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "End date YYYY-MM-DD")
	backtestCmd.Flags().StringArrayVarP(&backtestParams, "param", "p", nil, "Strategy parameter name=value, overrides the config file")
	backtestCmd.Flags().BoolVar(&backtestJSON, "json", false, "Print the full result as JSON")

	backtestCmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	name := args[0]
	start, end, err := parseRange(backtestFrom, backtestTo)
	if err != nil {
		return err
	}

	e, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := e.context()
	defer cancel()

	params, err := e.cfg.StrategyParams(name)
	if err != nil {
		return err
	}
	overrides, err := parseParams(backtestParams)
	if err != nil {
		return err
	}
	strat, err := e.registry.New(name, params.Merge(overrides))
	if err != nil {
		return err
	}

	engineCfg, err := e.cfg.Backtest.EngineConfig()
	if err != nil {
		return err
	}
	engine, err := backtest.New(engineCfg,
		backtest.WithLogger(e.log),
		backtest.WithProvider(series.NewFileProvider(e.cfg.Data.Dir, e.log)),
		backtest.WithMetrics(e.metrics),
	)
	if err != nil {
		return err
	}

	res, err := engine.RunSymbol(ctx, strat, backtestSymbol, start, end)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if backtestJSON {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else {
		printBacktest(out, res)
	}
	return e.finish(ctx, archive.KindBacktest, res.ID, res)
}

func printBacktest(w io.Writer, res *backtest.Result) {
	s := res.Stats
	fmt.Fprintln(w, "=== WealthSim Backtest ===")
	fmt.Fprintf(w, "Strategy: %s\n", res.Strategy)
	fmt.Fprintf(w, "Symbol:   %s\n", res.Symbol)
	fmt.Fprintf(w, "Period:   %s to %s\n", res.StartDate.Format("2006-01-02"), res.EndDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Run ID:   %s\n", res.ID)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Initial capital: %12.2f\n", res.InitialCapital)
	fmt.Fprintf(w, "Final value:     %12.2f\n", res.FinalValue)
	fmt.Fprintf(w, "Total return:    %11.2f%%\n", s.TotalReturn)
	fmt.Fprintf(w, "Max drawdown:    %11.2f%%\n", s.MaxDrawdown)
	fmt.Fprintf(w, "Sharpe ratio:    %12.3f\n", s.SharpeRatio)
	fmt.Fprintf(w, "Trades:          %12d (win rate %.1f%%, profit factor %.2f)\n", s.TotalTrades, s.WinRate, s.ProfitFactor)
	if len(res.Trades) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%-10s %-5s %-10s %-10s %10s %10s %10s  %s\n", "SYMBOL", "SIDE", "ENTRY", "EXIT", "QTY", "ENTRY_PX", "RETURN", "REASON")
	for _, t := range res.Trades {
		fmt.Fprintf(w, "%-10s %-5s %-10s %-10s %10.2f %10.2f %9.2f%%  %s\n",
			t.Symbol, t.Direction, t.EntryDate.Format("2006-01-02"), t.ExitDate.Format("2006-01-02"),
			t.Quantity, t.EntryPrice, t.Return*100, t.ExitReason)
	}
}
