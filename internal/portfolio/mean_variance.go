package portfolio

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
)

const (
	sumTolerance    = 1e-9
	returnTolerance = 1e-7
	maxInnerIter    = 5000
	maxOuterIter    = 100
	stepTolerance   = 1e-13
)

// Bound limits one asset's weight
type Bound struct {
	Min float64 `mapstructure:"min" json:"min"`
	Max float64 `mapstructure:"max" json:"max"`
}

// OptimizerConfig configures a MeanVariance optimizer. Bounds applies to
// every asset without an entry in AssetBounds.
type OptimizerConfig struct {
	RiskFreeRate   float64          `mapstructure:"risk_free_rate"`
	Bounds         Bound            `mapstructure:"bounds"`
	AssetBounds    map[string]Bound `mapstructure:"asset_bounds"`
	FrontierPoints int              `mapstructure:"frontier_points"`
}

// DefaultOptimizerConfig allows long-only weights and samples 50 frontier
// points when searching for the maximum Sharpe ratio
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		RiskFreeRate:   0.02,
		Bounds:         Bound{Min: 0, Max: 1},
		FrontierPoints: 50,
	}
}

// Allocation is an optimized weight vector with its annualized statistics
type Allocation struct {
	Weights        Weights `json:"weights"`
	ExpectedReturn float64 `json:"expected_return"`
	Volatility     float64 `json:"volatility"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
}

// MeanVariance finds long-run optimal weights from the annualized mean
// returns and covariance of the assets' daily returns
type MeanVariance struct {
	assets []string
	mu     []float64
	cov    [][]float64
	lo, hi []float64
	rf     float64
	points int
	// lipschitz bound of the variance gradient
	lipschitz float64
}

// NewMeanVariance estimates expected returns and covariances from returns
// and checks the weight bounds admit a fully invested portfolio
func NewMeanVariance(returns Returns, cfg OptimizerConfig) (*MeanVariance, error) {
	n, err := returns.Periods()
	if err != nil {
		return nil, err
	}
	if n < 2 {
		return nil, core.WrapError(core.ErrInsufficientData, fmt.Errorf("need at least 2 return periods, got %d", n))
	}
	if cfg.FrontierPoints == 0 {
		cfg.FrontierPoints = DefaultOptimizerConfig().FrontierPoints
	}
	if cfg.FrontierPoints < 2 {
		return nil, invalid("frontier_points must be at least 2, got %d", cfg.FrontierPoints)
	}

	assets := returns.Assets()
	for name := range cfg.AssetBounds {
		if _, ok := returns[name]; !ok {
			return nil, core.WrapError(core.ErrSeriesMismatch, fmt.Errorf("bounds given for unknown asset %s", name))
		}
	}

	mv := &MeanVariance{
		assets: assets,
		mu:     make([]float64, len(assets)),
		cov:    make([][]float64, len(assets)),
		lo:     make([]float64, len(assets)),
		hi:     make([]float64, len(assets)),
		rf:     cfg.RiskFreeRate,
		points: cfg.FrontierPoints,
	}

	var sumLo, sumHi float64
	for i, a := range assets {
		b := cfg.Bounds
		if ab, ok := cfg.AssetBounds[a]; ok {
			b = ab
		}
		if b.Min > b.Max {
			return nil, invalid("asset %s: min weight %g above max %g", a, b.Min, b.Max)
		}
		mv.lo[i], mv.hi[i] = b.Min, b.Max
		sumLo += b.Min
		sumHi += b.Max

		m, err := stats.Mean(returns[a])
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("asset %s: %w", a, err))
		}
		mv.mu[i] = m * TradingDays
	}
	if sumLo > 1+sumTolerance || sumHi < 1-sumTolerance {
		return nil, invalid("bounds allow weights summing to [%g, %g], which excludes 1", sumLo, sumHi)
	}

	for i, a := range assets {
		mv.cov[i] = make([]float64, len(assets))
		for j := 0; j <= i; j++ {
			c, err := stats.Covariance(returns[a], returns[assets[j]])
			if err != nil {
				return nil, core.WrapError(core.ErrInvalidData, fmt.Errorf("covariance %s/%s: %w", a, assets[j], err))
			}
			c *= TradingDays
			mv.cov[i][j] = c
			mv.cov[j][i] = c
		}
	}

	// Gershgorin: the largest eigenvalue is at most the largest absolute row sum
	for _, row := range mv.cov {
		var s float64
		for _, v := range row {
			s += math.Abs(v)
		}
		mv.lipschitz = math.Max(mv.lipschitz, 2*s)
	}
	return mv, nil
}

// Assets returns the asset order used by weight vectors
func (mv *MeanVariance) Assets() []string {
	return append([]string(nil), mv.assets...)
}

// MinimizeVariance returns the fully invested portfolio with the lowest
// variance inside the bounds
func (mv *MeanVariance) MinimizeVariance() *Allocation {
	w := mv.solve(nil)
	return mv.allocation(w)
}

// TargetReturn returns the lowest-variance portfolio whose annualized
// expected return equals target. Targets outside what the bounds can reach
// are a configuration error.
func (mv *MeanVariance) TargetReturn(target float64) (*Allocation, error) {
	lowest, highest := mv.returnRange()
	if target < lowest-returnTolerance || target > highest+returnTolerance {
		return nil, invalid("target return %g outside achievable range [%g, %g]", target, lowest, highest)
	}
	w := mv.solve(&target)
	return mv.allocation(w), nil
}

// EfficientFrontier returns points allocations with expected returns evenly
// spaced from the minimum-variance portfolio up to the highest achievable
// return
func (mv *MeanVariance) EfficientFrontier(points int) ([]*Allocation, error) {
	if points < 2 {
		return nil, invalid("frontier needs at least 2 points, got %d", points)
	}
	start := mv.MinimizeVariance()
	_, highest := mv.returnRange()

	frontier := make([]*Allocation, 0, points)
	frontier = append(frontier, start)
	step := (highest - start.ExpectedReturn) / float64(points-1)
	for k := 1; k < points; k++ {
		target := start.ExpectedReturn + float64(k)*step
		if k == points-1 {
			target = highest
		}
		frontier = append(frontier, mv.allocation(mv.solve(&target)))
	}
	return frontier, nil
}

// MaximizeSharpe returns the frontier portfolio with the highest Sharpe
// ratio, sampling the configured number of frontier points
func (mv *MeanVariance) MaximizeSharpe() *Allocation {
	frontier, _ := mv.EfficientFrontier(mv.points)
	best := frontier[0]
	for _, a := range frontier[1:] {
		if a.SharpeRatio > best.SharpeRatio {
			best = a
		}
	}
	return best
}

// solve minimizes w'Σw over the bounded simplex, optionally with μ'w equal
// to *target, by projected gradient descent inside an augmented Lagrangian
// loop for the return constraint
func (mv *MeanVariance) solve(target *float64) []float64 {
	n := len(mv.assets)
	w := mv.project(uniform(n))
	if n == 1 {
		return w
	}

	var rho, lambda, muNorm float64
	if target != nil {
		for _, m := range mv.mu {
			muNorm += m * m
		}
		if muNorm < 1e-18 {
			target = nil
		} else {
			rho = 10 * math.Max(mv.lipschitz, 1e-6) / muNorm
		}
	}

	lip := mv.lipschitz + rho*muNorm
	if lip < 1e-12 {
		return w
	}
	step := 1 / lip

	grad := make([]float64, n)
	next := make([]float64, n)
	outer := 1
	if target != nil {
		outer = maxOuterIter
	}

	for o := 0; o < outer; o++ {
		for it := 0; it < maxInnerIter; it++ {
			mv.gradient(w, grad)
			if target != nil {
				g := lambda + rho*(dot(mv.mu, w)-*target)
				for i := range grad {
					grad[i] += g * mv.mu[i]
				}
			}
			for i := range next {
				next[i] = w[i] - step*grad[i]
			}
			next = mv.project(next)

			var moved float64
			for i := range w {
				moved = math.Max(moved, math.Abs(next[i]-w[i]))
			}
			w, next = next, w
			if moved < stepTolerance {
				break
			}
		}
		if target == nil {
			break
		}
		gap := dot(mv.mu, w) - *target
		if math.Abs(gap) < returnTolerance*1e-2 {
			break
		}
		lambda += rho * gap
	}
	return w
}

// gradient of w'Σw
func (mv *MeanVariance) gradient(w, out []float64) {
	for i, row := range mv.cov {
		out[i] = 2 * dot(row, w)
	}
}

// project maps v onto {w : Σw = 1, lo <= w <= hi}. The projection is
// clamp(v - τ) for the τ that makes the weights sum to 1, found by bisection.
func (mv *MeanVariance) project(v []float64) []float64 {
	lowT, highT := math.Inf(1), math.Inf(-1)
	for i := range v {
		lowT = math.Min(lowT, v[i]-mv.hi[i])
		highT = math.Max(highT, v[i]-mv.lo[i])
	}

	out := make([]float64, len(v))
	sumAt := func(tau float64) float64 {
		var s float64
		for i := range v {
			out[i] = clamp(v[i]-tau, mv.lo[i], mv.hi[i])
			s += out[i]
		}
		return s
	}
	for k := 0; k < 200 && highT-lowT > 1e-15; k++ {
		mid := (lowT + highT) / 2
		if sumAt(mid) > 1 {
			lowT = mid
		} else {
			highT = mid
		}
	}
	sumAt((lowT + highT) / 2)
	return out
}

// returnRange gives the lowest and highest expected return the bounds allow,
// filling weights greedily from the lower bounds
func (mv *MeanVariance) returnRange() (lowest, highest float64) {
	fill := func(less func(a, b int) bool) float64 {
		idx := make([]int, len(mv.mu))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(x, y int) bool { return less(idx[x], idx[y]) })
		w := append([]float64(nil), mv.lo...)
		left := 1.0
		for _, v := range mv.lo {
			left -= v
		}
		for _, i := range idx {
			add := math.Min(mv.hi[i]-mv.lo[i], math.Max(left, 0))
			w[i] += add
			left -= add
		}
		return dot(mv.mu, w)
	}
	highest = fill(func(a, b int) bool { return mv.mu[a] > mv.mu[b] })
	lowest = fill(func(a, b int) bool { return mv.mu[a] < mv.mu[b] })
	return lowest, highest
}

func (mv *MeanVariance) allocation(w []float64) *Allocation {
	a := &Allocation{Weights: make(Weights, len(w)), ExpectedReturn: dot(mv.mu, w)}
	var variance float64
	for i, row := range mv.cov {
		variance += w[i] * dot(row, w)
		a.Weights[mv.assets[i]] = w[i]
	}
	a.Volatility = math.Sqrt(math.Max(variance, 0))
	if a.Volatility > 1e-12 {
		a.SharpeRatio = (a.ExpectedReturn - mv.rf) / a.Volatility
	}
	return a
}

func uniform(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}
	return w
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func invalid(format string, args ...any) error {
	return core.WrapError(core.ErrConfigInvalid, fmt.Errorf(format, args...))
}
