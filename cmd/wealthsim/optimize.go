package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ksfraser/WealthSystem-sub021/internal/backtest"
	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/optimizer"
	"github.com/ksfraser/WealthSystem-sub021/internal/series"
	"github.com/ksfraser/WealthSystem-sub021/internal/storage/archive"
)

var (
	optSymbol string
	optFrom   string
	optTo     string
	optMethod string
	optMetric string
	optSeed   uint64
	optParams []string
	optGrid   []string
	optGenes  []string
	optJSON   bool
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize [strategy]",
	Short: "Search a strategy's parameter space",
	Long: `Backtest a strategy over many parameter sets and report the best ones.
The search space comes from the optimizer section of the config file or from
--grid name=v1,v2,... (grid search) and --gene name=min:max[:int] (genetic).`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

func init() {
	f := optimizeCmd.Flags()
	f.StringVar(&optSymbol, "symbol", "", "Symbol to optimize on (required)")
	f.StringVar(&optFrom, "from", "", "Start date YYYY-MM-DD")
	f.StringVar(&optTo, "to", "", "End date YYYY-MM-DD")
	f.StringVar(&optMethod, "method", "", "grid or genetic (default from config)")
	f.StringVar(&optMetric, "metric", "", "sharpe_ratio, total_return, win_rate, profit_factor or max_drawdown")
	f.Uint64Var(&optSeed, "seed", 0, "Random seed for the genetic search")
	f.StringArrayVarP(&optParams, "param", "p", nil, "Fixed strategy parameter name=value")
	f.StringArrayVar(&optGrid, "grid", nil, "Grid dimension name=v1,v2,...")
	f.StringArrayVar(&optGenes, "gene", nil, "Gene name=min:max, append :int for whole numbers")
	f.BoolVar(&optJSON, "json", false, "Print the full result as JSON")

	optimizeCmd.MarkFlagRequired("symbol")

	rootCmd.AddCommand(optimizeCmd)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	name := args[0]
	start, end, err := parseRange(optFrom, optTo)
	if err != nil {
		return err
	}

	e, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := e.context()
	defer cancel()

	oc := e.cfg.Optimizer
	if optMethod != "" {
		oc.Method = optMethod
	}
	if optMetric != "" {
		oc.Metric = optMetric
	}
	if optSeed != 0 {
		oc.Seed = optSeed
	}
	metric, err := optimizer.ParseMetric(oc.Metric)
	if err != nil {
		return err
	}

	factory, ok := e.registry.Factory(name)
	if !ok {
		return core.WrapError(core.ErrUnknownName, fmt.Errorf("%q (known: %v)", name, e.registry.Names()))
	}
	base, err := e.cfg.StrategyParams(name)
	if err != nil {
		return err
	}
	fixed, err := parseParams(optParams)
	if err != nil {
		return err
	}
	base = base.Merge(fixed)

	bars, err := series.NewFileProvider(e.cfg.Data.Dir, e.log).FetchHistory(ctx, optSymbol, start, end, e.cfg.Data.Interval)
	if err != nil {
		return err
	}

	engineCfg, err := e.cfg.Backtest.EngineConfig()
	if err != nil {
		return err
	}
	// per-candidate run logs would drown the optimizer's own output
	engine, err := backtest.New(engineCfg, backtest.WithLogger(e.log.WithOptions(zap.IncreaseLevel(zap.WarnLevel))))
	if err != nil {
		return err
	}
	objective := optimizer.BacktestObjective(engine, factory, base, bars, metric, e.log)

	opts := []optimizer.Option{
		optimizer.WithLogger(e.log),
		optimizer.WithMetrics(e.metrics),
		optimizer.WithWorkers(oc.Workers),
	}
	if oc.TopN > 0 {
		opts = append(opts, optimizer.WithTopN(oc.TopN))
	}

	var res *optimizer.Result
	switch oc.Method {
	case optimizer.MethodGrid:
		grid := optimizer.Grid(oc.Grid)
		if len(optGrid) > 0 {
			if grid, err = parseGrid(optGrid); err != nil {
				return err
			}
		}
		res, err = optimizer.NewGridSearch(opts...).Optimize(ctx, grid, objective)
	case optimizer.MethodGenetic:
		genes := oc.Genes
		if len(optGenes) > 0 {
			if genes, err = parseGenes(optGenes); err != nil {
				return err
			}
		}
		var g *optimizer.Genetic
		if g, err = optimizer.NewGenetic(oc.GeneticConfig(), genes, opts...); err != nil {
			return err
		}
		res, err = g.Optimize(ctx, objective)
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown optimizer method %q", oc.Method))
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if optJSON {
		if err := printJSON(out, res); err != nil {
			return err
		}
	} else {
		printOptimization(out, name, metric, res)
	}
	return e.finish(ctx, archive.KindOptimization, res.ID, res)
}

// parseGrid reads name=v1,v2,... dimensions
func parseGrid(specs []string) (optimizer.Grid, error) {
	grid := make(optimizer.Grid, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("grid %q: expected name=v1,v2,...", spec)
		}
		for _, raw := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("grid %s: %w", name, err)
			}
			grid[name] = append(grid[name], v)
		}
	}
	return grid, nil
}

// parseGenes reads name=min:max or name=min:max:int
func parseGenes(specs []string) ([]optimizer.Gene, error) {
	genes := make([]optimizer.Gene, 0, len(specs))
	for _, spec := range specs {
		name, rng, ok := strings.Cut(spec, "=")
		parts := strings.Split(rng, ":")
		if !ok || name == "" || len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("gene %q: expected name=min:max[:int]", spec)
		}
		lo, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("gene %s min: %w", name, err)
		}
		hi, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("gene %s max: %w", name, err)
		}
		gene := optimizer.Gene{Name: name, Min: lo, Max: hi}
		if len(parts) == 3 {
			if parts[2] != "int" {
				return nil, fmt.Errorf("gene %s: unknown modifier %q", name, parts[2])
			}
			gene.Integer = true
		}
		genes = append(genes, gene)
	}
	return genes, nil
}

func printOptimization(w io.Writer, strategy string, metric optimizer.Metric, res *optimizer.Result) {
	fmt.Fprintln(w, "=== WealthSim Optimization ===")
	fmt.Fprintf(w, "Strategy:  %s\n", strategy)
	fmt.Fprintf(w, "Method:    %s\n", res.Method)
	fmt.Fprintf(w, "Metric:    %s\n", metric)
	fmt.Fprintf(w, "Evaluated: %d in %s\n", res.Evaluated, res.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Run ID:    %s\n", res.ID)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Best score: %.4f\n", res.BestScore)
	for _, name := range res.Best.Names() {
		fmt.Fprintf(w, "  %-24s %g\n", name, res.Best[name])
	}

	if len(res.Top) > 1 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Top candidates:")
		for i, c := range res.Top {
			fmt.Fprintf(w, "  %2d. %10.4f  %v\n", i+1, c.Score, c.Params)
		}
	}
}
