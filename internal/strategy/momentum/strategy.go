// Package momentum implements a momentum strategy combining trailing price
// change, RSI and a volume-confirmed breakout check.
package momentum

import (
	"fmt"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/indicator"
	"github.com/ksfraser/WealthSystem-sub021/internal/strategy"
)

// Name is the registry key of the strategy
const Name = "momentum"

// Momentum implements the momentum strategy
type Momentum struct {
	momentumPeriod    int
	rsiPeriod         int
	rsiOversold       float64
	rsiOverbought     float64
	strongMomentum    float64
	weakMomentum      float64
	breakoutWindow    int
	breakoutThreshold float64
	volumePeriod      int
	volumeMultiplier  float64
}

// Defaults returns the default parameters
func Defaults() core.ParameterSet {
	return core.ParameterSet{
		"momentum_period":    10,
		"rsi_period":         14,
		"rsi_oversold":       30,
		"rsi_overbought":     70,
		"strong_momentum":    0.10,
		"weak_momentum":      -0.05,
		"breakout_window":    5,
		"breakout_threshold": 0.05,
		"volume_period":      10,
		"volume_multiplier":  1.5,
	}
}

// New creates a momentum strategy from params overlaid on Defaults
func New(params core.ParameterSet) (*Momentum, error) {
	p := Defaults().Merge(params)
	m := &Momentum{
		momentumPeriod:    p.Int("momentum_period", 10),
		rsiPeriod:         p.Int("rsi_period", 14),
		rsiOversold:       p.Float("rsi_oversold", 30),
		rsiOverbought:     p.Float("rsi_overbought", 70),
		strongMomentum:    p.Float("strong_momentum", 0.10),
		weakMomentum:      p.Float("weak_momentum", -0.05),
		breakoutWindow:    p.Int("breakout_window", 5),
		breakoutThreshold: p.Float("breakout_threshold", 0.05),
		volumePeriod:      p.Int("volume_period", 10),
		volumeMultiplier:  p.Float("volume_multiplier", 1.5),
	}

	switch {
	case m.momentumPeriod <= 0 || m.rsiPeriod <= 0 || m.breakoutWindow <= 0 || m.volumePeriod <= 0:
		return nil, strategy.ConfigError(Name, "periods must be positive")
	case m.rsiOversold >= m.rsiOverbought:
		return nil, strategy.ConfigError(Name, "rsi_oversold (%.0f) must be below rsi_overbought (%.0f)", m.rsiOversold, m.rsiOverbought)
	case m.volumeMultiplier <= 0:
		return nil, strategy.ConfigError(Name, "volume_multiplier must be positive")
	}
	return m, nil
}

// Factory adapts New to strategy.Factory
func Factory(params core.ParameterSet) (strategy.Strategy, error) {
	s, err := New(params)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Momentum) Name() string {
	return Name
}

func (m *Momentum) Description() string {
	return fmt.Sprintf("Momentum (%d bars, RSI %d)", m.momentumPeriod, m.rsiPeriod)
}

func (m *Momentum) RequiredData() strategy.DataRequirements {
	return strategy.DataRequirements{
		PriceHistory: max(m.momentumPeriod+1, m.rsiPeriod+1, 2*m.breakoutWindow, m.volumePeriod+1),
		Indicators:   []string{"RSI"},
	}
}

func (m *Momentum) Evaluate(ctx strategy.AnalysisContext) (core.Signal, error) {
	if err := strategy.CheckWindow(ctx, m.RequiredData()); err != nil {
		return core.Signal{}, err
	}

	closes := core.Closes(ctx.OHLCV)
	n := len(closes)

	momentum := indicator.PercentChange(closes[n-1-m.momentumPeriod], closes[n-1])
	rsiSeries := indicator.RSI(closes, m.rsiPeriod)
	rsi := rsiSeries[len(rsiSeries)-1]
	rise, volumeRatio := m.breakout(ctx.OHLCV, closes)
	breakout := rise > m.breakoutThreshold && volumeRatio >= m.volumeMultiplier

	var sig core.Signal
	switch {
	case momentum > 0 && breakout:
		sig = strategy.NewSignal(ctx, core.ActionBuy, 0.9,
			fmt.Sprintf("Volume-confirmed breakout: +%.1f%% on %.1fx volume", rise*100, volumeRatio))
	case rsi < m.rsiOversold:
		sig = strategy.NewSignal(ctx, core.ActionBuy, 0.7, fmt.Sprintf("RSI oversold (%.1f)", rsi))
	case momentum > m.strongMomentum:
		sig = strategy.NewSignal(ctx, core.ActionBuy, 0.6, fmt.Sprintf("Strong momentum (%.1f%%)", momentum*100))
	case rsi > m.rsiOverbought && momentum < 0:
		sig = strategy.NewSignal(ctx, core.ActionSell, 0.8,
			fmt.Sprintf("RSI overbought (%.1f) with negative momentum (%.1f%%)", rsi, momentum*100))
	case momentum < m.weakMomentum:
		sig = strategy.NewSignal(ctx, core.ActionSell, 0.6, fmt.Sprintf("Negative momentum (%.1f%%)", momentum*100))
	case rsi > m.rsiOverbought:
		sig = strategy.NewSignal(ctx, core.ActionSell, 0.4, fmt.Sprintf("RSI overbought (%.1f)", rsi))
	default:
		sig = strategy.NewSignal(ctx, core.ActionHold, 0, "No momentum condition met")
	}

	sig.Strategy = Name
	sig.Metadata = map[string]any{
		"momentum":     momentum,
		"rsi":          rsi,
		"breakout":     breakout,
		"price_rise":   rise,
		"volume_ratio": volumeRatio,
	}
	return sig, nil
}

// breakout compares the mean close of the latest sub-window with the one
// before it, and the current volume with the trailing average volume.
func (m *Momentum) breakout(bars []core.OHLCV, closes []float64) (rise, volumeRatio float64) {
	n := len(closes)
	recent := indicator.Mean(closes[n-m.breakoutWindow:])
	prior := indicator.Mean(closes[n-2*m.breakoutWindow : n-m.breakoutWindow])
	rise = indicator.PercentChange(prior, recent)

	volumes := make([]float64, 0, m.volumePeriod)
	for _, b := range bars[n-1-m.volumePeriod : n-1] {
		volumes = append(volumes, float64(b.Volume))
	}
	if avg := indicator.Mean(volumes); avg > 0 {
		volumeRatio = float64(bars[n-1].Volume) / avg
	}
	return rise, volumeRatio
}
