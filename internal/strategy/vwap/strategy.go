// Package vwap implements a mean-reversion strategy around the
// volume-weighted average of the typical price.
package vwap

import (
	"fmt"
	"math"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/strategy"
)

const Name = "vwap"

// VWAP signals when the typical price strays too far from VWAP
type VWAP struct {
	period        int
	threshold     float64
	strengthScale float64
}

// Defaults returns the default parameters
func Defaults() core.ParameterSet {
	return core.ParameterSet{
		"period":         20,
		"threshold":      0.02,
		"strength_scale": 10,
	}
}

// New creates a VWAP strategy from params overlaid on Defaults
func New(params core.ParameterSet) (*VWAP, error) {
	p := Defaults().Merge(params)
	v := &VWAP{
		period:        p.Int("period", 20),
		threshold:     p.Float("threshold", 0.02),
		strengthScale: p.Float("strength_scale", 10),
	}
	if v.period <= 0 {
		return nil, strategy.ConfigError(Name, "period must be positive, got %d", v.period)
	}
	if v.threshold <= 0 {
		return nil, strategy.ConfigError(Name, "threshold must be positive, got %g", v.threshold)
	}
	if v.strengthScale <= 0 {
		return nil, strategy.ConfigError(Name, "strength_scale must be positive, got %g", v.strengthScale)
	}
	return v, nil
}

// Factory adapts New to strategy.Factory
func Factory(params core.ParameterSet) (strategy.Strategy, error) {
	s, err := New(params)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (v *VWAP) Name() string {
	return Name
}

func (v *VWAP) Description() string {
	return fmt.Sprintf("VWAP deviation (%d bars, %.1f%%)", v.period, v.threshold*100)
}

func (v *VWAP) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{
		PriceHistory: v.period,
		Indicators:   []string{"VWAP"},
	}
}

func (v *VWAP) Evaluate(ctx strategy.AnalysisContext) (core.Signal, error) {
	if err := strategy.CheckWindow(ctx, v.RequiredData()); err != nil {
		return core.Signal{}, err
	}

	window := ctx.OHLCV[len(ctx.OHLCV)-v.period:]
	vwap, ok := Calculate(window)
	if !ok {
		return core.Signal{}, core.WrapError(core.ErrInvalidData,
			fmt.Errorf("%s: no volume in the last %d bars", ctx.Symbol, v.period))
	}

	typical := ctx.Current().TypicalPrice()
	deviation := (typical - vwap) / vwap
	strength := math.Min(1, math.Abs(deviation)*v.strengthScale)

	var sig core.Signal
	switch {
	case deviation < -v.threshold:
		sig = strategy.NewSignal(ctx, core.ActionBuy, strength,
			fmt.Sprintf("Price %.2f is %.2f%% below VWAP %.2f", typical, -deviation*100, vwap))
	case deviation > v.threshold:
		sig = strategy.NewSignal(ctx, core.ActionSell, strength,
			fmt.Sprintf("Price %.2f is %.2f%% above VWAP %.2f", typical, deviation*100, vwap))
	default:
		sig = strategy.NewSignal(ctx, core.ActionHold, 0,
			fmt.Sprintf("Price within %.1f%% of VWAP", v.threshold*100))
	}

	sig.Strategy = Name
	sig.Metadata = map[string]any{
		"vwap":          vwap,
		"typical_price": typical,
		"deviation":     deviation,
	}
	return sig, nil
}

// Calculate returns the volume-weighted average typical price of bars.
// ok is false when the bars carry no volume.
func Calculate(bars []core.OHLCV) (vwap float64, ok bool) {
	var pv, volume float64
	for _, b := range bars {
		pv += b.TypicalPrice() * float64(b.Volume)
		volume += float64(b.Volume)
	}
	if volume == 0 {
		return 0, false
	}
	return pv / volume, true
}
