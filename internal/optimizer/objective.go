package optimizer

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/ksfraser/WealthSystem-sub021/internal/backtest"
	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/strategy"
)

// Metric selects the backtest statistic an objective maximizes
type Metric string

const (
	MetricSharpe       Metric = "sharpe_ratio"
	MetricTotalReturn  Metric = "total_return"
	MetricWinRate      Metric = "win_rate"
	MetricProfitFactor Metric = "profit_factor"
	// MetricDrawdown maximizes the negated drawdown, preferring shallow ones
	MetricDrawdown Metric = "max_drawdown"
)

// ParseMetric validates a metric name
func ParseMetric(name string) (Metric, error) {
	switch m := Metric(name); m {
	case MetricSharpe, MetricTotalReturn, MetricWinRate, MetricProfitFactor, MetricDrawdown:
		return m, nil
	default:
		return "", core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown optimization metric %q", name))
	}
}

// Score extracts the metric from backtest statistics
func (m Metric) Score(s backtest.Stats) float64 {
	switch m {
	case MetricTotalReturn:
		return s.TotalReturn
	case MetricWinRate:
		return s.WinRate
	case MetricProfitFactor:
		return s.ProfitFactor
	case MetricDrawdown:
		return -s.MaxDrawdown
	default:
		return s.SharpeRatio
	}
}

// BacktestObjective builds an Objective that constructs the strategy from
// base overlaid with the candidate parameters, backtests it over series and
// scores the chosen metric. Candidates the strategy rejects as invalid
// configuration (e.g. fast period not below slow period) score -Inf and are
// logged at Warn; any other failure is returned.
func BacktestObjective(engine *backtest.Engine, factory strategy.Factory, base core.ParameterSet, series []core.OHLCV, metric Metric, logger ...*zap.Logger) Objective {
	log := zap.NewNop()
	if len(logger) > 0 && logger[0] != nil {
		log = logger[0]
	}
	return func(ctx context.Context, params core.ParameterSet) (float64, error) {
		strat, err := factory(base.Merge(params))
		if err != nil {
			if core.IsConfigError(err) {
				log.Warn("skipping invalid candidate", zap.Any("params", params), zap.Error(err))
				return math.Inf(-1), nil
			}
			return 0, err
		}

		res, err := engine.Run(ctx, strat, series)
		if err != nil {
			return 0, err
		}
		return metric.Score(res.Stats), nil
	}
}
