// Package portfolio computes risk metrics for a weighted basket of assets
// and searches for mean-variance optimal weights. Inputs are daily returns
// keyed by asset; results are annualized over 252 trading days.
package portfolio

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
)

// TradingDays is the annualization convention
const TradingDays = 252

var annualizer = math.Sqrt(TradingDays)

// Weights maps asset to portfolio weight
type Weights map[string]float64

// Returns maps asset to its daily return series. All series must have the
// same length and line up period by period.
type Returns map[string][]float64

// Assets returns the asset names in sorted order
func (r Returns) Assets() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Periods returns the common series length, or an error if the series differ
func (r Returns) Periods() (int, error) {
	n := -1
	for _, name := range r.Assets() {
		if n == -1 {
			n = len(r[name])
			continue
		}
		if len(r[name]) != n {
			return 0, core.WrapError(core.ErrSeriesMismatch, fmt.Errorf("asset %s has %d returns, expected %d", name, len(r[name]), n))
		}
	}
	if n == -1 {
		return 0, core.ErrNoData
	}
	return n, nil
}

// Options tunes Analyze
type Options struct {
	RiskFreeRate    float64   `mapstructure:"risk_free_rate" json:"risk_free_rate"`
	ConfidenceLevel float64   `mapstructure:"confidence_level" json:"confidence_level"`
	MarketReturns   []float64 `mapstructure:"-" json:"-"`
}

// DefaultOptions returns a 2% risk-free rate and 95% VaR confidence
func DefaultOptions() Options {
	return Options{RiskFreeRate: 0.02, ConfidenceLevel: 0.95}
}

// RiskMetrics describes a portfolio's return distribution. Ratios and
// drawdown are fractions, not percentages.
type RiskMetrics struct {
	ExpectedReturn  float64                       `json:"expected_return"`
	Volatility      float64                       `json:"volatility"`
	SharpeRatio     float64                       `json:"sharpe_ratio"`
	SortinoRatio    float64                       `json:"sortino_ratio"`
	MaxDrawdown     float64                       `json:"max_drawdown"`
	VaR95           float64                       `json:"var_95"`
	VaR99           float64                       `json:"var_99"`
	ValueAtRisk     float64                       `json:"value_at_risk"`
	ConfidenceLevel float64                       `json:"confidence_level"`
	Beta            *float64                      `json:"beta"`
	Correlation     map[string]map[string]float64 `json:"correlation_matrix"`
}

// MarshalJSON encodes an unbounded Sortino ratio (no losing periods) as the
// string "+Inf" since JSON has no infinity.
func (m RiskMetrics) MarshalJSON() ([]byte, error) {
	type plain RiskMetrics
	out := struct {
		plain
		SortinoRatio any `json:"sortino_ratio"`
	}{plain: plain(m), SortinoRatio: m.SortinoRatio}
	if math.IsInf(m.SortinoRatio, 1) {
		out.SortinoRatio = "+Inf"
	}
	return json.Marshal(out)
}

// Analyze computes the risk metrics of the weighted portfolio. Every
// weighted asset needs a return series and every series needs a weight.
// Weights are used as given; they are expected to sum to 1.
func Analyze(weights Weights, returns Returns, opts Options) (*RiskMetrics, error) {
	if opts.ConfidenceLevel == 0 {
		opts.ConfidenceLevel = DefaultOptions().ConfidenceLevel
	}
	if opts.ConfidenceLevel <= 0 || opts.ConfidenceLevel >= 1 {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("confidence_level must be in (0, 1), got %g", opts.ConfidenceLevel))
	}

	daily, err := PortfolioReturns(weights, returns)
	if err != nil {
		return nil, err
	}
	if len(daily) == 0 {
		return nil, core.WrapError(core.ErrInsufficientData, fmt.Errorf("return series are empty"))
	}

	m := &RiskMetrics{
		ExpectedReturn:  mean(daily) * TradingDays,
		Volatility:      Volatility(daily),
		SharpeRatio:     SharpeRatio(daily, opts.RiskFreeRate),
		SortinoRatio:    SortinoRatio(daily, opts.RiskFreeRate),
		MaxDrawdown:     MaxDrawdown(daily),
		VaR95:           ValueAtRisk(daily, 0.95),
		VaR99:           ValueAtRisk(daily, 0.99),
		ValueAtRisk:     ValueAtRisk(daily, opts.ConfidenceLevel),
		ConfidenceLevel: opts.ConfidenceLevel,
		Correlation:     CorrelationMatrix(returns),
	}

	if opts.MarketReturns != nil {
		if len(opts.MarketReturns) != len(daily) {
			return nil, core.WrapError(core.ErrSeriesMismatch, fmt.Errorf("market has %d returns, portfolio has %d", len(opts.MarketReturns), len(daily)))
		}
		beta := Beta(daily, opts.MarketReturns)
		m.Beta = &beta
	}
	return m, nil
}

// PortfolioReturns returns the weighted sum of asset returns per period
func PortfolioReturns(weights Weights, returns Returns) ([]float64, error) {
	if len(weights) == 0 {
		return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("no weights"))
	}
	for asset, w := range weights {
		if _, ok := returns[asset]; !ok {
			return nil, core.WrapError(core.ErrSeriesMismatch, fmt.Errorf("no returns for weighted asset %s", asset))
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("asset %s: weight %v", asset, w))
		}
	}
	for asset := range returns {
		if _, ok := weights[asset]; !ok {
			return nil, core.WrapError(core.ErrSeriesMismatch, fmt.Errorf("no weight for asset %s", asset))
		}
	}
	n, err := returns.Periods()
	if err != nil {
		return nil, err
	}

	out := make([]float64, n)
	for _, asset := range returns.Assets() {
		w := weights[asset]
		for t, r := range returns[asset] {
			out[t] += w * r
		}
	}
	return out, nil
}

// Volatility is the annualized sample standard deviation; 0 for fewer than
// two returns
func Volatility(daily []float64) float64 {
	if len(daily) < 2 {
		return 0
	}
	sd, err := stats.StandardDeviationSample(daily)
	if err != nil {
		return 0
	}
	return sd * annualizer
}

// SharpeRatio is annualized excess return over volatility; 0 when
// volatility is 0
func SharpeRatio(daily []float64, riskFree float64) float64 {
	vol := Volatility(daily)
	if vol < 1e-12 {
		return 0
	}
	return (mean(daily)*TradingDays - riskFree) / vol
}

// SortinoRatio divides excess return by the downside deviation, the root
// mean square of the negative daily returns annualized. It is 0 when the
// series has no volatility and +Inf when no return is negative.
func SortinoRatio(daily []float64, riskFree float64) float64 {
	if Volatility(daily) < 1e-12 {
		return 0
	}
	var sumSq float64
	var n int
	for _, r := range daily {
		if r < 0 {
			sumSq += r * r
			n++
		}
	}
	if n == 0 {
		return math.Inf(1)
	}
	downside := math.Sqrt(sumSq/float64(n)) * annualizer
	return (mean(daily)*TradingDays - riskFree) / downside
}

// MaxDrawdown is the largest fractional peak-to-trough decline of the
// compounded return curve starting at 1
func MaxDrawdown(daily []float64) float64 {
	value, peak, maxDD := 1.0, 1.0, 0.0
	for _, r := range daily {
		value *= 1 + r
		if value > peak {
			peak = value
		}
		if dd := (peak - value) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// ValueAtRisk returns the annualized loss at the (1-confidence) quantile of
// the sorted daily returns, as a positive number. Gains at that quantile
// and an empty series give 0.
func ValueAtRisk(daily []float64, confidence float64) float64 {
	if len(daily) == 0 {
		return 0
	}
	sorted := append([]float64(nil), daily...)
	sort.Float64s(sorted)

	idx := int(math.Floor((1 - confidence) * float64(len(sorted))))
	idx = min(max(idx, 0), len(sorted)-1)
	return math.Max(0, -sorted[idx]) * annualizer
}

// Beta is cov(portfolio, market) / var(market), or 1 when the market does
// not move
func Beta(portfolio, market []float64) float64 {
	if len(market) < 2 || len(portfolio) != len(market) {
		return 1
	}
	variance, err := stats.SampleVariance(market)
	if err != nil || variance < 1e-18 {
		return 1
	}
	cov, err := stats.Covariance(portfolio, market)
	if err != nil {
		return 1
	}
	return cov / variance
}

// Correlation is the Pearson correlation of two series; 0 if either has no
// variance
func Correlation(a, b []float64) float64 {
	if len(a) < 2 || len(a) != len(b) {
		return 0
	}
	sa, err := stats.StandardDeviationSample(a)
	if err != nil || sa < 1e-12 {
		return 0
	}
	sb, err := stats.StandardDeviationSample(b)
	if err != nil || sb < 1e-12 {
		return 0
	}
	cov, err := stats.Covariance(a, b)
	if err != nil {
		return 0
	}
	return math.Max(-1, math.Min(1, cov/(sa*sb)))
}

// CorrelationMatrix returns pairwise correlations. The diagonal is 1 and
// matrix[a][b] == matrix[b][a] exactly.
func CorrelationMatrix(returns Returns) map[string]map[string]float64 {
	assets := returns.Assets()
	out := make(map[string]map[string]float64, len(assets))
	for _, a := range assets {
		out[a] = make(map[string]float64, len(assets))
	}
	for i, a := range assets {
		out[a][a] = 1
		for _, b := range assets[i+1:] {
			c := Correlation(returns[a], returns[b])
			out[a][b] = c
			out[b][a] = c
		}
	}
	return out
}

func mean(xs []float64) float64 {
	m, err := stats.Mean(xs)
	if err != nil {
		return 0
	}
	return m
}
