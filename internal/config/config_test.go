package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/optimizer"
	"github.com/ksfraser/WealthSystem-sub021/internal/position"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
backtest:
  initial_capital: 50000
  commission_rate: 0.001
  stop_loss: 0.08
  profit_levels:
    - profit: 0.20
      sell_pct: 0.5
    - profit: 0.10
      sell_pct: 0.25
strategies:
  ma_crossover:
    params:
      fast_period: 10
      slow_period: 30
      require_confirmation: false
optimizer:
  method: genetic
  seed: 42
  grid:
    fast_period: [5, 10]
  genes:
    - name: slow_period
      min: 20
      max: 60
      integer: true
risk:
  asset_bounds:
    - asset: SPY
      max: 0.6
archive:
  enabled: true
  type: s3
  s3:
    bucket: reports
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Backtest.InitialCapital != 50000 {
		t.Errorf("expected initial_capital 50000, got %f", cfg.Backtest.InitialCapital)
	}
	// keys missing from the file keep their defaults
	if cfg.Backtest.TrailingStopActivation != 0.05 {
		t.Errorf("expected default trailing activation, got %f", cfg.Backtest.TrailingStopActivation)
	}
	if cfg.Optimizer.Method != optimizer.MethodGenetic || cfg.Optimizer.Seed != 42 {
		t.Errorf("optimizer = %+v", cfg.Optimizer)
	}
	if got := cfg.Optimizer.Grid["fast_period"]; len(got) != 2 || got[1] != 10 {
		t.Errorf("grid fast_period = %v", got)
	}
	if len(cfg.Optimizer.Genes) != 1 || !cfg.Optimizer.Genes[0].Integer {
		t.Errorf("genes = %+v", cfg.Optimizer.Genes)
	}
	if cfg.Archive.Type != "s3" || cfg.Archive.S3.Bucket != "reports" {
		t.Errorf("archive = %+v", cfg.Archive)
	}
	if b := cfg.Risk.OptimizerConfig().AssetBounds["SPY"]; b.Max != 0.6 {
		t.Errorf("asset bound for SPY = %+v", b)
	}

	params, err := cfg.StrategyParams("ma_crossover")
	if err != nil {
		t.Fatalf("StrategyParams: %v", err)
	}
	want := core.ParameterSet{"fast_period": 10, "slow_period": 30, "require_confirmation": 0}
	for k, v := range want {
		if params[k] != v {
			t.Errorf("param %s = %v, want %v", k, params[k], v)
		}
	}

	engine, err := cfg.Backtest.EngineConfig()
	if err != nil {
		t.Fatalf("EngineConfig: %v", err)
	}
	if engine.Costs.CommissionRate != 0.001 || engine.Rules.StopLoss != 0.08 {
		t.Errorf("engine config = %+v", engine)
	}
	if engine.Rules.ProfitLevels[0].Profit != 0.10 {
		t.Errorf("profit levels should be sorted ascending, got %+v", engine.Rules.ProfitLevels)
	}
	if engine.Rules.TierBasis != position.BasisRemaining {
		t.Errorf("tier basis = %q", engine.Rules.TierBasis)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("WEALTHSIM_TEST_SECRET", "s3cret")
	path := writeConfig(t, `
archive:
  s3:
    secret_key: "${WEALTHSIM_TEST_SECRET}"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Archive.S3.SecretKey != "s3cret" {
		t.Errorf("expected expanded secret, got %q", cfg.Archive.S3.SecretKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Backtest.InitialCapital != 100000 {
		t.Errorf("expected default capital 100000, got %f", cfg.Backtest.InitialCapital)
	}
	if cfg.Backtest.StopLoss != 0.10 {
		t.Errorf("expected default stop loss 0.10, got %f", cfg.Backtest.StopLoss)
	}
	if cfg.Risk.ConfidenceLevel != 0.95 {
		t.Errorf("expected default confidence 0.95, got %f", cfg.Risk.ConfidenceLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		missing bool
	}{
		{name: "zero capital", mutate: func(c *Config) { c.Backtest.InitialCapital = 0 }},
		{name: "negative commission", mutate: func(c *Config) { c.Backtest.CommissionRate = -0.01 }},
		{name: "position size above one", mutate: func(c *Config) { c.Backtest.PositionSize = 1.5 }},
		{name: "bad tier basis", mutate: func(c *Config) { c.Backtest.TierBasis = "sometimes" }},
		{name: "string strategy param", mutate: func(c *Config) {
			c.Strategies = map[string]StrategyConfig{"vwap": {Params: map[string]any{"period": "twenty"}}}
		}},
		{name: "unknown method", mutate: func(c *Config) { c.Optimizer.Method = "annealing" }},
		{name: "unknown metric", mutate: func(c *Config) { c.Optimizer.Metric = "alpha" }},
		{name: "confidence out of range", mutate: func(c *Config) { c.Risk.ConfidenceLevel = 1 }},
		{name: "archive without bucket", mutate: func(c *Config) {
			c.Archive.Enabled = true
			c.Archive.Type = "s3"
		}, missing: true},
		{name: "metrics without textfile", mutate: func(c *Config) { c.Metrics.Enabled = true }, missing: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !core.IsConfigError(err) {
				t.Fatalf("Validate() = %v, want configuration error", err)
			}
			if tt.missing && !errors.Is(err, core.ErrConfigMissing) {
				t.Errorf("want ErrConfigMissing, got %v", err)
			}
		})
	}
}
