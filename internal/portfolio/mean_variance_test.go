package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
)

// patterned builds daily returns drift + amp*sign, repeating sign. The sign
// patterns used below are mutually orthogonal, so the sample covariance
// matrix is diagonal.
func patterned(drift, amp float64, sign [4]float64, repeats int) []float64 {
	out := make([]float64, 0, 4*repeats)
	for r := 0; r < repeats; r++ {
		for _, s := range sign {
			out = append(out, drift+amp*s)
		}
	}
	return out
}

var (
	signA = [4]float64{1, -1, 1, -1}
	signB = [4]float64{1, 1, -1, -1}
	signC = [4]float64{1, -1, -1, 1}
)

func threeAssets() Returns {
	return Returns{
		"A": patterned(0.0002, 0.01, signA, 25),
		"B": patterned(0.0010, 0.02, signB, 25),
		"C": patterned(0.0006, 0.015, signC, 25),
	}
}

func assertValidWeights(t *testing.T, w Weights, lo, hi float64) {
	t.Helper()
	var sum float64
	for asset, v := range w {
		sum += v
		assert.GreaterOrEqual(t, v, lo-1e-12, asset)
		assert.LessOrEqual(t, v, hi+1e-12, asset)
	}
	assert.InDelta(t, 1.0, sum, 1e-4)
}

func TestMinimizeVariance_Diagonal(t *testing.T) {
	mv, err := NewMeanVariance(threeAssets(), DefaultOptimizerConfig())
	require.NoError(t, err)

	// inverse-variance weights
	inv := map[string]float64{"A": 1 / 0.0001, "B": 1 / 0.0004, "C": 1 / 0.000225}
	total := inv["A"] + inv["B"] + inv["C"]

	alloc := mv.MinimizeVariance()
	assertValidWeights(t, alloc.Weights, 0, 1)
	for asset, v := range inv {
		assert.InDelta(t, v/total, alloc.Weights[asset], 1e-4, asset)
	}
	assert.Equal(t, []string{"A", "B", "C"}, mv.Assets())
}

func TestMinimizeVariance_RespectsBounds(t *testing.T) {
	cfg := DefaultOptimizerConfig()
	cfg.Bounds = Bound{Min: 0, Max: 0.5}
	mv, err := NewMeanVariance(threeAssets(), cfg)
	require.NoError(t, err)

	alloc := mv.MinimizeVariance()
	assertValidWeights(t, alloc.Weights, 0, 0.5)
	assert.InDelta(t, 0.5, alloc.Weights["A"], 1e-4)
	// the rest splits between B and C by inverse variance
	assert.InDelta(t, 0.5*0.25/(0.25+1/2.25), alloc.Weights["B"], 1e-4)
	assert.InDelta(t, 0.5*(1/2.25)/(0.25+1/2.25), alloc.Weights["C"], 1e-4)
}

func TestMeanVariance_AssetBounds(t *testing.T) {
	cfg := DefaultOptimizerConfig()
	cfg.AssetBounds = map[string]Bound{"B": {Min: 0.3, Max: 0.6}}
	mv, err := NewMeanVariance(threeAssets(), cfg)
	require.NoError(t, err)

	alloc := mv.MinimizeVariance()
	assertValidWeights(t, alloc.Weights, 0, 1)
	assert.GreaterOrEqual(t, alloc.Weights["B"], 0.3-1e-9)
}

func TestTargetReturn_TwoAssets(t *testing.T) {
	returns := Returns{
		"A": patterned(0.001, 0.01, signA, 25),
		"B": patterned(0.002, 0.02, signB, 25),
	}
	mv, err := NewMeanVariance(returns, DefaultOptimizerConfig())
	require.NoError(t, err)

	// with two assets the target pins the weights: wB = (t - 0.252) / 0.252
	alloc, err := mv.TargetReturn(0.378)
	require.NoError(t, err)
	assertValidWeights(t, alloc.Weights, 0, 1)
	assert.InDelta(t, 0.5, alloc.Weights["B"], 1e-4)
	assert.InDelta(t, 0.378, alloc.ExpectedReturn, 1e-4)
}

func TestTargetReturn_ThreeAssets(t *testing.T) {
	mv, err := NewMeanVariance(threeAssets(), DefaultOptimizerConfig())
	require.NoError(t, err)

	minVar := mv.MinimizeVariance()
	target := minVar.ExpectedReturn + 0.03
	alloc, err := mv.TargetReturn(target)
	require.NoError(t, err)

	assertValidWeights(t, alloc.Weights, 0, 1)
	assert.InDelta(t, target, alloc.ExpectedReturn, 1e-4)
	assert.GreaterOrEqual(t, alloc.Volatility, minVar.Volatility-1e-9)
}

func TestTargetReturn_Unreachable(t *testing.T) {
	mv, err := NewMeanVariance(threeAssets(), DefaultOptimizerConfig())
	require.NoError(t, err)

	// B has the highest mean, 0.001 * 252
	_, err = mv.TargetReturn(0.5)
	assert.True(t, core.IsConfigError(err))
	_, err = mv.TargetReturn(-0.5)
	assert.True(t, core.IsConfigError(err))
}

func TestEfficientFrontier(t *testing.T) {
	mv, err := NewMeanVariance(threeAssets(), DefaultOptimizerConfig())
	require.NoError(t, err)

	frontier, err := mv.EfficientFrontier(6)
	require.NoError(t, err)
	require.Len(t, frontier, 6)

	assert.InDelta(t, 0.252, frontier[5].ExpectedReturn, 1e-4)
	for i, a := range frontier {
		assertValidWeights(t, a.Weights, 0, 1)
		if i > 0 {
			assert.Greater(t, a.ExpectedReturn, frontier[i-1].ExpectedReturn)
			assert.GreaterOrEqual(t, a.Volatility, frontier[i-1].Volatility-1e-6)
		}
	}

	_, err = mv.EfficientFrontier(1)
	assert.True(t, core.IsConfigError(err))
}

func TestMaximizeSharpe(t *testing.T) {
	cfg := DefaultOptimizerConfig()
	cfg.RiskFreeRate = 0.01
	cfg.FrontierPoints = 20
	mv, err := NewMeanVariance(threeAssets(), cfg)
	require.NoError(t, err)

	best := mv.MaximizeSharpe()
	assertValidWeights(t, best.Weights, 0, 1)

	frontier, err := mv.EfficientFrontier(20)
	require.NoError(t, err)
	for _, a := range frontier {
		assert.GreaterOrEqual(t, best.SharpeRatio, a.SharpeRatio-1e-9)
	}
	assert.GreaterOrEqual(t, best.SharpeRatio, mv.MinimizeVariance().SharpeRatio-1e-9)
}

func TestNewMeanVariance_Errors(t *testing.T) {
	cfg := DefaultOptimizerConfig()
	cfg.Bounds = Bound{Min: 0, Max: 0.3}
	_, err := NewMeanVariance(threeAssets(), cfg)
	assert.True(t, core.IsConfigError(err), "three assets capped at 30% cannot be fully invested")

	cfg = DefaultOptimizerConfig()
	cfg.Bounds = Bound{Min: 0.5, Max: 1}
	_, err = NewMeanVariance(threeAssets(), cfg)
	assert.True(t, core.IsConfigError(err))

	cfg = DefaultOptimizerConfig()
	cfg.AssetBounds = map[string]Bound{"Z": {Max: 1}}
	_, err = NewMeanVariance(threeAssets(), cfg)
	assert.True(t, core.IsDataError(err))

	_, err = NewMeanVariance(Returns{"A": {0.01}}, DefaultOptimizerConfig())
	assert.True(t, core.IsDataError(err))

	_, err = NewMeanVariance(Returns{}, DefaultOptimizerConfig())
	assert.True(t, core.IsDataError(err))
}
