package ma_crossover

import (
	"fmt"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/indicator"
	"github.com/ksfraser/WealthSystem-sub021/internal/strategy"
)

const Name = "ma_crossover"

const (
	baseConfidence   = 0.6
	minConfidence    = 0.5
	confirmBonus     = 0.1
	confirmPenalty   = 0.1
	trendFailPenalty = 0.15
)

// MACrossover implements a moving average crossover strategy
type MACrossover struct {
	fastPeriod    int
	slowPeriod    int
	maType        indicator.MAType
	minSeparation float64
	confirm       bool
	volumePeriod  int
}

// Defaults returns the default parameters. ma_type is 0 for SMA, 1 for EMA.
func Defaults() core.ParameterSet {
	return core.ParameterSet{
		"fast_period":          12,
		"slow_period":          26,
		"ma_type":              float64(indicator.MAExponential),
		"min_separation":       0.005,
		"require_confirmation": 1,
		"volume_period":        20,
	}
}

// New creates a new MA Crossover strategy
func New(params core.ParameterSet) (*MACrossover, error) {
	p := Defaults().Merge(params)
	m := &MACrossover{
		fastPeriod:    p.Int("fast_period", 12),
		slowPeriod:    p.Int("slow_period", 26),
		maType:        indicator.MAType(p.Int("ma_type", int(indicator.MAExponential))),
		minSeparation: p.Float("min_separation", 0.005),
		confirm:       p.Bool("require_confirmation", true),
		volumePeriod:  p.Int("volume_period", 20),
	}

	switch {
	case m.fastPeriod <= 0:
		return nil, strategy.ConfigError(Name, "fast_period must be positive, got %d", m.fastPeriod)
	case m.fastPeriod >= m.slowPeriod:
		return nil, strategy.ConfigError(Name, "fast_period (%d) must be below slow_period (%d)", m.fastPeriod, m.slowPeriod)
	case m.maType != indicator.MASimple && m.maType != indicator.MAExponential:
		return nil, strategy.ConfigError(Name, "unknown ma_type %d", m.maType)
	case m.minSeparation < 0:
		return nil, strategy.ConfigError(Name, "min_separation must not be negative")
	case m.confirm && m.volumePeriod <= 0:
		return nil, strategy.ConfigError(Name, "volume_period must be positive")
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

func (m *MACrossover) Name() string {
	return Name
}

func (m *MACrossover) Description() string {
	return fmt.Sprintf("MA Crossover (%s %d/%d)", m.maType, m.fastPeriod, m.slowPeriod)
}

func (m *MACrossover) RequiredData() strategy.DataRequirements {
	history := m.slowPeriod + 1
	if m.confirm {
		history = max(history, m.volumePeriod+1)
	}
	return strategy.DataRequirements{
		PriceHistory: history,
		Indicators:   []string{m.maType.String()},
	}
}

func (m *MACrossover) Evaluate(ctx strategy.AnalysisContext) (core.Signal, error) {
	if err := strategy.CheckWindow(ctx, m.RequiredData()); err != nil {
		return core.Signal{}, err
	}

	prices := core.Closes(ctx.OHLCV)
	fastMA := indicator.MovingAverage(prices, m.fastPeriod, m.maType)
	slowMA := indicator.MovingAverage(prices, m.slowPeriod, m.maType)

	// Both series end at the current bar
	currFast, prevFast := fastMA[len(fastMA)-1], fastMA[len(fastMA)-2]
	currSlow, prevSlow := slowMA[len(slowMA)-1], slowMA[len(slowMA)-2]
	prevDiff := prevFast - prevSlow
	currDiff := currFast - currSlow

	meta := map[string]any{
		"fast_ma": currFast,
		"slow_ma": currSlow,
	}
	hold := func(reason string) core.Signal {
		sig := strategy.NewSignal(ctx, core.ActionHold, 0, reason)
		sig.Strategy = Name
		sig.Metadata = meta
		return sig
	}

	var golden bool
	switch {
	case prevDiff <= 0 && currDiff > 0:
		golden = true
		meta["type"] = "golden_cross"
	case prevDiff >= 0 && currDiff < 0:
		meta["type"] = "death_cross"
	default:
		return hold("No crossover"), nil
	}

	separation := currDiff / currSlow
	if separation < 0 {
		separation = -separation
	}
	meta["separation"] = separation
	if separation < m.minSeparation {
		return hold(fmt.Sprintf("Crossover separation %.3f%% below minimum %.3f%%", separation*100, m.minSeparation*100)), nil
	}

	confidence := baseConfidence
	if m.confirm {
		confidence += m.confirmations(ctx, golden, currSlow, prevSlow, meta)
	}
	meta["confidence"] = confidence
	if confidence < minConfidence {
		return hold(fmt.Sprintf("Crossover suppressed: confidence %.2f", confidence)), nil
	}

	action := core.ActionSell
	reason := fmt.Sprintf("Death Cross: MA%d (%.2f) crossed below MA%d (%.2f)", m.fastPeriod, currFast, m.slowPeriod, currSlow)
	if golden {
		action = core.ActionBuy
		reason = fmt.Sprintf("Golden Cross: MA%d (%.2f) crossed above MA%d (%.2f)", m.fastPeriod, currFast, m.slowPeriod, currSlow)
	}
	sig := strategy.NewSignal(ctx, action, confidence, reason)
	sig.Strategy = Name
	sig.Metadata = meta
	return sig, nil
}

// confirmations returns the confidence adjustment from the price, volume and
// trend checks. Each check agrees with the cross direction or counts against it.
func (m *MACrossover) confirmations(ctx strategy.AnalysisContext, golden bool, currSlow, prevSlow float64, meta map[string]any) float64 {
	cur := ctx.Current()

	priceOK := cur.Close < currSlow
	trendOK := currSlow < prevSlow
	if golden {
		priceOK = cur.Close > currSlow
		trendOK = currSlow > prevSlow
	}

	history := ctx.History()
	volumes := make([]float64, 0, m.volumePeriod)
	for _, b := range history[len(history)-m.volumePeriod:] {
		volumes = append(volumes, float64(b.Volume))
	}
	volumeOK := float64(cur.Volume) > indicator.Mean(volumes)

	meta["price_confirmed"] = priceOK
	meta["volume_confirmed"] = volumeOK
	meta["trend_confirmed"] = trendOK

	var adj float64
	adj += pick(priceOK, confirmBonus, -confirmPenalty)
	adj += pick(volumeOK, confirmBonus, -confirmPenalty)
	adj += pick(trendOK, confirmBonus, -trendFailPenalty)
	return adj
}

func pick(ok bool, yes, no float64) float64 {
	if ok {
		return yes
	}
	return no
}
