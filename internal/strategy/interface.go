package strategy

import (
	"fmt"
	"time"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
)

// DataRequirements specifies what data a strategy needs
type DataRequirements struct {
	PriceHistory int // Minimum bars in the window, current bar included
	Indicators   []string
}

// AnalysisContext provides data to strategies. OHLCV is the chronological
// window ending with the bar being evaluated.
type AnalysisContext struct {
	Symbol string
	OHLCV  []core.OHLCV
	Now    time.Time
}

// Current returns the bar being evaluated
func (c AnalysisContext) Current() core.OHLCV {
	if len(c.OHLCV) == 0 {
		return core.OHLCV{}
	}
	return c.OHLCV[len(c.OHLCV)-1]
}

// History returns the bars before the current one
func (c AnalysisContext) History() []core.OHLCV {
	if len(c.OHLCV) == 0 {
		return nil
	}
	return c.OHLCV[:len(c.OHLCV)-1]
}

// Strategy defines the interface for trading strategies.
// Implementations hold only immutable configuration, so the same instance can
// be evaluated repeatedly and from several goroutines.
type Strategy interface {
	Name() string
	Description() string
	RequiredData() DataRequirements
	Evaluate(ctx AnalysisContext) (core.Signal, error)
}

// Factory builds a configured strategy from a parameter set. Unknown
// parameters are ignored; missing ones take the strategy defaults.
type Factory func(params core.ParameterSet) (Strategy, error)

// CheckWindow returns a data error when the window is shorter than the
// strategy's minimum lookback.
func CheckWindow(ctx AnalysisContext, req DataRequirements) error {
	if len(ctx.OHLCV) < req.PriceHistory {
		return core.WrapError(core.ErrInsufficientData,
			fmt.Errorf("%s: have %d bars, need %d", ctx.Symbol, len(ctx.OHLCV), req.PriceHistory))
	}
	return nil
}

// NewSignal fills the fields every strategy sets the same way
func NewSignal(ctx AnalysisContext, action core.Action, strength float64, reason string) core.Signal {
	cur := ctx.Current()
	at := ctx.Now
	if at.IsZero() {
		at = cur.Time
	}
	return core.Signal{
		Symbol:      ctx.Symbol,
		Action:      action,
		Strength:    clamp01(strength),
		Price:       cur.Close,
		Reason:      reason,
		GeneratedAt: at,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ConfigError wraps a parameter validation failure for the named strategy
func ConfigError(name string, format string, args ...any) error {
	return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("%s: %s", name, fmt.Sprintf(format, args...)))
}
