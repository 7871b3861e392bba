// Package turtle implements the Turtle channel-breakout system with
// ATR-based ("N") stops and unit sizing.
package turtle

import (
	"fmt"
	"math"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/indicator"
	"github.com/ksfraser/WealthSystem-sub021/internal/strategy"
)

const Name = "turtle"

// Channel lengths of the two classic systems
var systems = map[int]struct{ entry, exit int }{
	1: {entry: 20, exit: 10},
	2: {entry: 55, exit: 20},
}

// Turtle implements the breakout strategy
type Turtle struct {
	system         int
	entryPeriod    int
	exitPeriod     int
	atrPeriod      int
	stopMultiplier float64
	riskPerTrade   float64
}

// Defaults returns the default parameters. entry_period and exit_period
// default to the chosen system's channels when not set.
func Defaults() core.ParameterSet {
	return core.ParameterSet{
		"system":          1,
		"atr_period":      20,
		"stop_multiplier": 2,
		"risk_per_trade":  0.01,
	}
}

// New creates a Turtle strategy from params overlaid on Defaults
func New(params core.ParameterSet) (*Turtle, error) {
	p := Defaults().Merge(params)
	system := p.Int("system", 1)
	channels, ok := systems[system]
	if !ok {
		return nil, strategy.ConfigError(Name, "system must be 1 or 2, got %d", system)
	}

	t := &Turtle{
		system:         system,
		entryPeriod:    p.Int("entry_period", channels.entry),
		exitPeriod:     p.Int("exit_period", channels.exit),
		atrPeriod:      p.Int("atr_period", 20),
		stopMultiplier: p.Float("stop_multiplier", 2),
		riskPerTrade:   p.Float("risk_per_trade", 0.01),
	}

	switch {
	case t.entryPeriod <= 0 || t.exitPeriod <= 0 || t.atrPeriod <= 0:
		return nil, strategy.ConfigError(Name, "periods must be positive")
	case t.exitPeriod >= t.entryPeriod:
		return nil, strategy.ConfigError(Name, "exit_period (%d) must be below entry_period (%d)", t.exitPeriod, t.entryPeriod)
	case t.stopMultiplier <= 0:
		return nil, strategy.ConfigError(Name, "stop_multiplier must be positive")
	case t.riskPerTrade <= 0 || t.riskPerTrade > 1:
		return nil, strategy.ConfigError(Name, "risk_per_trade must be in (0, 1], got %g", t.riskPerTrade)
	}
	return t, nil
}

// Factory adapts New to strategy.Factory
func Factory(params core.ParameterSet) (strategy.Strategy, error) {
	s, err := New(params)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (t *Turtle) Name() string {
	return Name
}

func (t *Turtle) Description() string {
	return fmt.Sprintf("Turtle system %d (%d/%d breakout, %d-bar N)", t.system, t.entryPeriod, t.exitPeriod, t.atrPeriod)
}

func (t *Turtle) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{
		PriceHistory: max(t.entryPeriod, t.exitPeriod, t.atrPeriod) + 1,
		Indicators:   []string{"ATR", "Donchian"},
	}
}

func (t *Turtle) Evaluate(ctx strategy.AnalysisContext) (core.Signal, error) {
	if err := strategy.CheckWindow(ctx, t.RequiredData()); err != nil {
		return core.Signal{}, err
	}

	history := ctx.History()
	entryHigh, entryLow := channel(history[len(history)-t.entryPeriod:])
	exitHigh, exitLow := channel(history[len(history)-t.exitPeriod:])

	atr := indicator.ATR(ctx.OHLCV, t.atrPeriod)
	n := atr[len(atr)-1]
	price := ctx.Current().Close

	meta := map[string]any{
		"n_value":    n,
		"entry_high": entryHigh,
		"entry_low":  entryLow,
		"exit_high":  exitHigh,
		"exit_low":   exitLow,
		"system":     t.system,
	}

	var sig core.Signal
	switch {
	case price > entryHigh:
		sig = strategy.NewSignal(ctx, core.ActionBuy, t.breakoutStrength(price-entryHigh, n),
			fmt.Sprintf("Price %.2f broke %d-bar high %.2f", price, t.entryPeriod, entryHigh))
		sig.StopPrice = price - t.stopMultiplier*n
		sig.SizeHint = t.unitSize(price, n)
	case price < entryLow:
		sig = strategy.NewSignal(ctx, core.ActionShort, t.breakoutStrength(entryLow-price, n),
			fmt.Sprintf("Price %.2f broke %d-bar low %.2f", price, t.entryPeriod, entryLow))
		sig.StopPrice = price + t.stopMultiplier*n
		sig.SizeHint = t.unitSize(price, n)
	case price < exitLow:
		sig = strategy.NewSignal(ctx, core.ActionSell, 0.6,
			fmt.Sprintf("Price %.2f broke %d-bar exit low %.2f", price, t.exitPeriod, exitLow))
	case price > exitHigh:
		sig = strategy.NewSignal(ctx, core.ActionCover, 0.6,
			fmt.Sprintf("Price %.2f broke %d-bar exit high %.2f", price, t.exitPeriod, exitHigh))
	default:
		sig = strategy.NewSignal(ctx, core.ActionHold, 0, "Price inside channels")
	}

	if sig.StopPrice != 0 {
		meta["stop_price"] = sig.StopPrice
		meta["unit_size"] = sig.SizeHint
	}
	sig.Strategy = Name
	sig.Metadata = meta
	return sig, nil
}

// breakoutStrength grows with the breakout distance measured in N
func (t *Turtle) breakoutStrength(distance, n float64) float64 {
	if n <= 0 {
		return 0.6
	}
	return math.Min(1, 0.6+0.2*distance/n)
}

// unitSize is the fraction of equity that risks riskPerTrade for a 1N move
func (t *Turtle) unitSize(price, n float64) float64 {
	if n <= 0 {
		return 0
	}
	return math.Min(1, t.riskPerTrade*price/n)
}

func channel(bars []core.OHLCV) (high, low float64) {
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}
	return indicator.Highest(highs), indicator.Lowest(lows)
}
