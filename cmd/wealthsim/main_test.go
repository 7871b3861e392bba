package main

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/optimizer"
	"github.com/ksfraser/WealthSystem-sub021/internal/portfolio"
)

func TestParseParams(t *testing.T) {
	ps, err := parseParams([]string{"fast_period=5", "min_separation=0.01"})
	require.NoError(t, err)
	assert.Equal(t, core.ParameterSet{"fast_period": 5, "min_separation": 0.01}, ps)

	_, err = parseParams([]string{"fast_period"})
	assert.Error(t, err)
	_, err = parseParams([]string{"fast_period=abc"})
	assert.Error(t, err)
}

func TestParseRange(t *testing.T) {
	start, end, err := parseRange("2024-01-01", "2024-06-30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC), end)

	start, end, err = parseRange("", "")
	require.NoError(t, err)
	assert.True(t, start.IsZero() && end.IsZero())

	_, _, err = parseRange("2024-06-30", "2024-01-01")
	assert.Error(t, err)
	_, _, err = parseRange("01/01/2024", "")
	assert.Error(t, err)
}

func TestParseGridAndGenes(t *testing.T) {
	grid, err := parseGrid([]string{"fast_period=5,10", "slow_period=20"})
	require.NoError(t, err)
	assert.Equal(t, optimizer.Grid{"fast_period": {5, 10}, "slow_period": {20}}, grid)

	_, err = parseGrid([]string{"fast_period=5,x"})
	assert.Error(t, err)

	genes, err := parseGenes([]string{"slow_period=20:60:int", "min_separation=0:0.02"})
	require.NoError(t, err)
	assert.Equal(t, []optimizer.Gene{
		{Name: "slow_period", Min: 20, Max: 60, Integer: true},
		{Name: "min_separation", Min: 0, Max: 0.02},
	}, genes)

	for _, bad := range []string{"x=1", "x=1:2:float", "=1:2", "x=a:2"} {
		_, err := parseGenes([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestParseWeights(t *testing.T) {
	w, err := parseWeights([]string{"SPY=0.6,TLT=0.3", "GLD=0.1"})
	require.NoError(t, err)
	assert.Equal(t, portfolio.Weights{"SPY": 0.6, "TLT": 0.3, "GLD": 0.1}, w)
	assert.Equal(t, "GLD=0.1000 SPY=0.6000 TLT=0.3000", formatWeights(w))

	_, err = parseWeights([]string{"SPY"})
	assert.Error(t, err)
}

// workspace writes a config, a price file and a return matrix to a temp dir
func workspace(t *testing.T) (cfgPath, dir string) {
	t.Helper()
	dir = t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "data"), 0o755))

	var prices strings.Builder
	prices.WriteString("date,open,high,low,close,volume\n")
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 120; i++ {
		c := 100 + 10*math.Sin(float64(i)/8)
		fmt.Fprintf(&prices, "%s,%.4f,%.4f,%.4f,%.4f,%d\n", start.AddDate(0, 0, i).Format("2006-01-02"), c, c*1.01, c*0.99, c, 10000)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data", "TEST.csv"), []byte(prices.String()), 0o644))

	var returns strings.Builder
	returns.WriteString("date,A,B,MKT\n")
	for i := 0; i < 60; i++ {
		a := 0.001 + 0.01*math.Sin(float64(i))
		b := 0.0005 + 0.008*math.Cos(float64(i)*1.3)
		fmt.Fprintf(&returns, "%s,%.6f,%.6f,%.6f\n", start.AddDate(0, 0, i).Format("2006-01-02"), a, b, (a+b)/2)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "returns.csv"), []byte(returns.String()), 0o644))

	cfg := fmt.Sprintf(`
log:
  level: error
data:
  dir: %q
strategies:
  ma_crossover:
    params:
      require_confirmation: 0
      min_separation: 0
archive:
  enabled: true
  type: localfs
  path: %q
metrics:
  enabled: true
  textfile: %q
`, filepath.Join(dir, "data"), filepath.Join(dir, "reports"), filepath.Join(dir, "wealthsim.prom"))
	cfgPath = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))
	return cfgPath, dir
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestBacktestCommand(t *testing.T) {
	cfgPath, dir := workspace(t)

	out := execute(t, "--config", cfgPath, "backtest", "ma_crossover", "--symbol", "TEST",
		"-p", "fast_period=3", "-p", "slow_period=10", "-p", "ma_type=0")
	assert.Contains(t, out, "=== WealthSim Backtest ===")
	assert.Contains(t, out, "Symbol:   TEST")

	reports, err := filepath.Glob(filepath.Join(dir, "reports", "backtests", "*.json"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
	assert.FileExists(t, filepath.Join(dir, "wealthsim.prom"))
}

func TestRiskCommand(t *testing.T) {
	cfgPath, dir := workspace(t)

	out := execute(t, "--config", cfgPath, "risk", "--returns", filepath.Join(dir, "returns.csv"),
		"--market", "MKT", "--optimize", "min-variance")
	assert.Contains(t, out, "Optimized allocation")
	assert.Contains(t, out, "Beta:")
	assert.Contains(t, out, "Correlation:")

	reports, err := filepath.Glob(filepath.Join(dir, "reports", "risk", "*.json"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestOptimizeCommand(t *testing.T) {
	cfgPath, dir := workspace(t)

	out := execute(t, "--config", cfgPath, "optimize", "ma_crossover", "--symbol", "TEST",
		"--method", "grid", "--metric", "total_return", "-p", "ma_type=0",
		"--grid", "fast_period=3,5", "--grid", "slow_period=10,20")
	assert.Contains(t, out, "=== WealthSim Optimization ===")
	assert.Contains(t, out, "Evaluated: 4")
	assert.Contains(t, out, "fast_period")

	reports, err := filepath.Glob(filepath.Join(dir, "reports", "optimizations", "*.json"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}
