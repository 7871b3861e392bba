// Package config loads the simulator configuration from YAML with viper.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/ksfraser/WealthSystem-sub021/internal/backtest"
	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/logger"
	"github.com/ksfraser/WealthSystem-sub021/internal/optimizer"
	"github.com/ksfraser/WealthSystem-sub021/internal/portfolio"
	"github.com/ksfraser/WealthSystem-sub021/internal/position"
	"github.com/ksfraser/WealthSystem-sub021/internal/storage/archive"
)

type Config struct {
	Log        logger.Options            `mapstructure:"log"`
	Data       DataConfig                `mapstructure:"data"`
	Backtest   BacktestConfig            `mapstructure:"backtest"`
	Strategies map[string]StrategyConfig `mapstructure:"strategies"`
	Optimizer  OptimizerConfig           `mapstructure:"optimizer"`
	Risk       RiskConfig                `mapstructure:"risk"`
	Archive    ArchiveConfig             `mapstructure:"archive"`
	Metrics    MetricsConfig             `mapstructure:"metrics"`
}

// DataConfig locates the CSV price history, one <symbol>.csv per symbol
type DataConfig struct {
	Dir      string `mapstructure:"dir"`
	Interval string `mapstructure:"interval"`
}

type BacktestConfig struct {
	InitialCapital         float64                `mapstructure:"initial_capital"`
	PositionSize           float64                `mapstructure:"position_size"`
	MaxPositionPct         float64                `mapstructure:"max_position_pct"`
	CommissionRate         float64                `mapstructure:"commission_rate"`
	SlippageRate           float64                `mapstructure:"slippage_rate"`
	RiskFreeRate           float64                `mapstructure:"risk_free_rate"`
	AllowShort             bool                   `mapstructure:"allow_short"`
	StopLoss               float64                `mapstructure:"stop_loss"`
	TrailingStopActivation float64                `mapstructure:"trailing_stop_activation"`
	TrailingStopDistance   float64                `mapstructure:"trailing_stop_distance"`
	ProfitLevels           []position.ProfitLevel `mapstructure:"profit_levels"`
	TierBasis              string                 `mapstructure:"tier_basis"`
}

type StrategyConfig struct {
	Params map[string]any `mapstructure:"params"`
}

type OptimizerConfig struct {
	Method         string               `mapstructure:"method"` // "grid" or "genetic"
	Metric         string               `mapstructure:"metric"`
	Workers        int                  `mapstructure:"workers"`
	TopN           int                  `mapstructure:"top_n"`
	PopulationSize int                  `mapstructure:"population_size"`
	Generations    int                  `mapstructure:"generations"`
	MutationRate   float64              `mapstructure:"mutation_rate"`
	Seed           uint64               `mapstructure:"seed"`
	Grid           map[string][]float64 `mapstructure:"grid"`
	Genes          []optimizer.Gene     `mapstructure:"genes"`
}

type RiskConfig struct {
	RiskFreeRate    float64         `mapstructure:"risk_free_rate"`
	ConfidenceLevel float64         `mapstructure:"confidence_level"`
	Bounds          portfolio.Bound `mapstructure:"bounds"`
	// a list rather than a map: viper lowercases map keys, asset names are case-sensitive
	AssetBounds    []AssetBound `mapstructure:"asset_bounds"`
	FrontierPoints int          `mapstructure:"frontier_points"`
}

type AssetBound struct {
	Asset string  `mapstructure:"asset"`
	Min   float64 `mapstructure:"min"`
	Max   float64 `mapstructure:"max"`
}

type ArchiveConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	archive.Config `mapstructure:",squash"`
}

// MetricsConfig controls the prometheus textfile written after a run
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Textfile string `mapstructure:"textfile"`
}

// Load reads configuration from file on top of Defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a config with the documented defaults
func Defaults() *Config {
	engine := backtest.DefaultConfig()
	rules := position.DefaultExitRules()
	genetic := optimizer.DefaultGeneticConfig()
	risk := portfolio.DefaultOptimizerConfig()

	return &Config{
		Log: logger.Options{Level: "info"},
		Data: DataConfig{
			Dir:      "data",
			Interval: "1d",
		},
		Backtest: BacktestConfig{
			InitialCapital:         engine.InitialCapital,
			PositionSize:           engine.Sizing.PositionSize,
			MaxPositionPct:         engine.Sizing.MaxPositionPct,
			RiskFreeRate:           engine.RiskFreeRate,
			StopLoss:               rules.StopLoss,
			TrailingStopActivation: rules.TrailingActivation,
			TrailingStopDistance:   rules.TrailingDistance,
			TierBasis:              string(rules.TierBasis),
		},
		Optimizer: OptimizerConfig{
			Method:         optimizer.MethodGrid,
			Metric:         string(optimizer.MetricSharpe),
			TopN:           10,
			PopulationSize: genetic.PopulationSize,
			Generations:    genetic.Generations,
			MutationRate:   genetic.MutationRate,
		},
		Risk: RiskConfig{
			RiskFreeRate:    risk.RiskFreeRate,
			ConfidenceLevel: portfolio.DefaultOptions().ConfidenceLevel,
			Bounds:          risk.Bounds,
			FrontierPoints:  risk.FrontierPoints,
		},
		Archive: ArchiveConfig{
			Config: archive.Config{Type: archive.TypeLocalFS, Path: "reports"},
		},
	}
}

// EngineConfig converts the backtest section, validating every rule
func (b BacktestConfig) EngineConfig() (backtest.Config, error) {
	cfg := backtest.Config{
		InitialCapital: b.InitialCapital,
		RiskFreeRate:   b.RiskFreeRate,
		AllowShort:     b.AllowShort,
		Sizing: position.SizingConfig{
			PositionSize:   b.PositionSize,
			MaxPositionPct: b.MaxPositionPct,
		},
		Costs: position.CostModel{
			CommissionRate: b.CommissionRate,
			SlippageRate:   b.SlippageRate,
		},
		Rules: position.ExitRules{
			StopLoss:           b.StopLoss,
			TrailingActivation: b.TrailingStopActivation,
			TrailingDistance:   b.TrailingStopDistance,
			ProfitLevels:       append([]position.ProfitLevel(nil), b.ProfitLevels...),
			TierBasis:          position.TierBasis(b.TierBasis),
		},
	}

	if cfg.InitialCapital <= 0 {
		return cfg, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %g", cfg.InitialCapital))
	}
	if err := cfg.Sizing.Validate(); err != nil {
		return cfg, err
	}
	if err := cfg.Costs.Validate(); err != nil {
		return cfg, err
	}
	if err := cfg.Rules.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// StrategyParams returns the configured parameters of a strategy as a
// ParameterSet. Booleans become 1 or 0.
func (c *Config) StrategyParams(name string) (core.ParameterSet, error) {
	sc, ok := c.Strategies[name]
	if !ok {
		return core.ParameterSet{}, nil
	}
	ps := make(core.ParameterSet, len(sc.Params))
	for key, raw := range sc.Params {
		switch v := raw.(type) {
		case float64:
			ps[key] = v
		case int:
			ps[key] = float64(v)
		case int64:
			ps[key] = float64(v)
		case bool:
			if v {
				ps[key] = 1
			} else {
				ps[key] = 0
			}
		default:
			return nil, core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("strategy %s: param %s must be numeric, got %T", name, key, raw))
		}
	}
	return ps, nil
}

// GeneticConfig converts the optimizer section for the genetic search
func (o OptimizerConfig) GeneticConfig() optimizer.GeneticConfig {
	return optimizer.GeneticConfig{
		PopulationSize: o.PopulationSize,
		Generations:    o.Generations,
		MutationRate:   o.MutationRate,
		Seed:           o.Seed,
	}
}

// Options converts the risk section for the analyzer
func (r RiskConfig) Options() portfolio.Options {
	return portfolio.Options{
		RiskFreeRate:    r.RiskFreeRate,
		ConfidenceLevel: r.ConfidenceLevel,
	}
}

// OptimizerConfig converts the risk section for the mean-variance optimizer
func (r RiskConfig) OptimizerConfig() portfolio.OptimizerConfig {
	cfg := portfolio.OptimizerConfig{
		RiskFreeRate:   r.RiskFreeRate,
		Bounds:         r.Bounds,
		FrontierPoints: r.FrontierPoints,
	}
	if len(r.AssetBounds) > 0 {
		cfg.AssetBounds = make(map[string]portfolio.Bound, len(r.AssetBounds))
		for _, ab := range r.AssetBounds {
			cfg.AssetBounds[ab.Asset] = portfolio.Bound{Min: ab.Min, Max: ab.Max}
		}
	}
	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, err := c.Backtest.EngineConfig(); err != nil {
		return err
	}
	for name := range c.Strategies {
		if _, err := c.StrategyParams(name); err != nil {
			return err
		}
	}

	switch c.Optimizer.Method {
	case optimizer.MethodGrid, optimizer.MethodGenetic:
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("optimizer method must be grid or genetic, got %q", c.Optimizer.Method))
	}
	if _, err := optimizer.ParseMetric(c.Optimizer.Metric); err != nil {
		return err
	}
	if c.Optimizer.Workers < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("optimizer workers cannot be negative, got %d", c.Optimizer.Workers))
	}

	if c.Risk.ConfidenceLevel <= 0 || c.Risk.ConfidenceLevel >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("confidence_level must be between 0 and 1, got %f", c.Risk.ConfidenceLevel))
	}
	if c.Risk.Bounds.Min > c.Risk.Bounds.Max {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("risk bounds min %g above max %g", c.Risk.Bounds.Min, c.Risk.Bounds.Max))
	}

	if c.Archive.Enabled {
		switch c.Archive.Type {
		case archive.TypeLocalFS:
			if c.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive path required for localfs"))
			}
		case archive.TypeS3:
			if c.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing, fmt.Errorf("archive s3 bucket required"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("archive type must be localfs or s3, got %q", c.Archive.Type))
		}
	}
	if c.Metrics.Enabled && c.Metrics.Textfile == "" {
		return core.WrapError(core.ErrConfigMissing, fmt.Errorf("metrics textfile path required when metrics are enabled"))
	}
	return nil
}
