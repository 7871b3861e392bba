package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/portfolio"
	"github.com/ksfraser/WealthSystem-sub021/internal/series"
	"github.com/ksfraser/WealthSystem-sub021/internal/storage/archive"
)

// Mean-variance modes of the risk command
const (
	modeMaxSharpe   = "max-sharpe"
	modeMinVariance = "min-variance"
	modeTarget      = "target"
	modeFrontier    = "frontier"
)

var (
	riskReturns  string
	riskWeights  []string
	riskMarket   string
	riskOptimize string
	riskTarget   float64
	riskPoints   int
	riskJSON     bool
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Analyze portfolio risk and optimize weights",
	Long: `Compute volatility, Sharpe and Sortino ratios, drawdown, VaR, beta and the
correlation matrix of a weighted portfolio from a CSV return matrix, and
optionally search mean-variance optimal weights.`,
	Args: cobra.NoArgs,
	RunE: runRisk,
}

func init() {
	f := riskCmd.Flags()
	f.StringVar(&riskReturns, "returns", "", "CSV of daily returns, one column per asset (required)")
	f.StringArrayVarP(&riskWeights, "weight", "w", nil, "Asset weight asset=fraction")
	f.StringVar(&riskMarket, "market", "", "Column holding the market benchmark used for beta")
	f.StringVar(&riskOptimize, "optimize", "", "max-sharpe, min-variance, target or frontier")
	f.Float64Var(&riskTarget, "target", 0, "Annual expected return for --optimize target")
	f.IntVar(&riskPoints, "points", 10, "Number of points for --optimize frontier")
	f.BoolVar(&riskJSON, "json", false, "Print the report as JSON")

	riskCmd.MarkFlagRequired("returns")

	rootCmd.AddCommand(riskCmd)
}

type riskReport struct {
	ID         string                  `json:"id"`
	Weights    portfolio.Weights       `json:"weights,omitempty"`
	Metrics    *portfolio.RiskMetrics  `json:"metrics,omitempty"`
	Allocation *portfolio.Allocation   `json:"allocation,omitempty"`
	Frontier   []*portfolio.Allocation `json:"frontier,omitempty"`
}

func runRisk(cmd *cobra.Command, args []string) error {
	e, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := e.context()
	defer cancel()

	returns, err := series.LoadReturns(riskReturns)
	if err != nil {
		return err
	}
	opts := e.cfg.Risk.Options()
	if riskMarket != "" {
		market, ok := returns[riskMarket]
		if !ok {
			return core.WrapError(core.ErrSeriesMismatch, fmt.Errorf("market column %q not in %s", riskMarket, riskReturns))
		}
		opts.MarketReturns = market
		delete(returns, riskMarket)
	}

	report := riskReport{ID: uuid.NewString()}
	if len(riskWeights) > 0 {
		if report.Weights, err = parseWeights(riskWeights); err != nil {
			return err
		}
	}

	if riskOptimize != "" {
		mv, err := portfolio.NewMeanVariance(returns, e.cfg.Risk.OptimizerConfig())
		if err != nil {
			return err
		}
		switch riskOptimize {
		case modeMaxSharpe:
			report.Allocation = mv.MaximizeSharpe()
		case modeMinVariance:
			report.Allocation = mv.MinimizeVariance()
		case modeTarget:
			if report.Allocation, err = mv.TargetReturn(riskTarget); err != nil {
				return err
			}
		case modeFrontier:
			if report.Frontier, err = mv.EfficientFrontier(riskPoints); err != nil {
				return err
			}
		default:
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown optimization %q", riskOptimize))
		}
		e.log.Info("mean-variance optimization complete",
			zap.String("mode", riskOptimize),
			zap.Strings("assets", mv.Assets()),
		)
		if report.Weights == nil && report.Allocation != nil {
			report.Weights = report.Allocation.Weights
		}
	}

	if report.Weights != nil {
		if report.Metrics, err = portfolio.Analyze(report.Weights, returns, opts); err != nil {
			return err
		}
	} else if report.Frontier == nil {
		return fmt.Errorf("nothing to do: pass --weight or --optimize")
	}

	out := cmd.OutOrStdout()
	if riskJSON {
		if err := printJSON(out, report); err != nil {
			return err
		}
	} else {
		printRisk(out, report)
	}
	return e.finish(ctx, archive.KindRisk, report.ID, report)
}

// parseWeights reads asset=fraction pairs; each pair may also hold a
// comma-separated list
func parseWeights(specs []string) (portfolio.Weights, error) {
	w := make(portfolio.Weights)
	for _, spec := range specs {
		for _, pair := range strings.Split(spec, ",") {
			asset, raw, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok || asset == "" {
				return nil, fmt.Errorf("weight %q: expected asset=fraction", pair)
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("weight %s: %w", asset, err)
			}
			w[asset] = v
		}
	}
	return w, nil
}

func printRisk(w io.Writer, r riskReport) {
	fmt.Fprintln(w, "=== WealthSim Risk ===")
	fmt.Fprintf(w, "Report ID: %s\n", r.ID)

	if r.Allocation != nil {
		fmt.Fprintln(w)
		printAllocation(w, "Optimized allocation", r.Allocation)
	}
	if len(r.Frontier) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Efficient frontier:")
		fmt.Fprintf(w, "  %10s %10s %8s  %s\n", "RETURN", "VOL", "SHARPE", "WEIGHTS")
		for _, a := range r.Frontier {
			fmt.Fprintf(w, "  %9.2f%% %9.2f%% %8.3f  %s\n", a.ExpectedReturn*100, a.Volatility*100, a.SharpeRatio, formatWeights(a.Weights))
		}
	}

	m := r.Metrics
	if m == nil {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Weights:         %s\n", formatWeights(r.Weights))
	fmt.Fprintf(w, "Expected return: %9.2f%%\n", m.ExpectedReturn*100)
	fmt.Fprintf(w, "Volatility:      %9.2f%%\n", m.Volatility*100)
	fmt.Fprintf(w, "Sharpe ratio:    %10.3f\n", m.SharpeRatio)
	fmt.Fprintf(w, "Sortino ratio:   %10.3f\n", m.SortinoRatio)
	fmt.Fprintf(w, "Max drawdown:    %9.2f%%\n", m.MaxDrawdown*100)
	fmt.Fprintf(w, "VaR 95%%:         %9.2f%%\n", m.VaR95*100)
	fmt.Fprintf(w, "VaR 99%%:         %9.2f%%\n", m.VaR99*100)
	fmt.Fprintf(w, "VaR %.1f%%:       %9.2f%%\n", m.ConfidenceLevel*100, m.ValueAtRisk*100)
	if m.Beta != nil {
		fmt.Fprintf(w, "Beta:            %10.3f\n", *m.Beta)
	}

	assets := make([]string, 0, len(m.Correlation))
	for a := range m.Correlation {
		assets = append(assets, a)
	}
	sort.Strings(assets)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Correlation:")
	fmt.Fprintf(w, "  %-8s", "")
	for _, a := range assets {
		fmt.Fprintf(w, " %8s", a)
	}
	fmt.Fprintln(w)
	for _, a := range assets {
		fmt.Fprintf(w, "  %-8s", a)
		for _, b := range assets {
			fmt.Fprintf(w, " %8.3f", m.Correlation[a][b])
		}
		fmt.Fprintln(w)
	}
}

func printAllocation(w io.Writer, title string, a *portfolio.Allocation) {
	fmt.Fprintf(w, "%s:\n", title)
	fmt.Fprintf(w, "  Weights:         %s\n", formatWeights(a.Weights))
	fmt.Fprintf(w, "  Expected return: %9.2f%%\n", a.ExpectedReturn*100)
	fmt.Fprintf(w, "  Volatility:      %9.2f%%\n", a.Volatility*100)
	fmt.Fprintf(w, "  Sharpe ratio:    %10.3f\n", a.SharpeRatio)
}

func formatWeights(w portfolio.Weights) string {
	assets := make([]string, 0, len(w))
	for a := range w {
		assets = append(assets, a)
	}
	sort.Strings(assets)

	parts := make([]string, len(assets))
	for i, a := range assets {
		parts[i] = fmt.Sprintf("%s=%.4f", a, w[a])
	}
	return strings.Join(parts, " ")
}
