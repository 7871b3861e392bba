package position

import (
	"fmt"
	"sort"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
)

// TierBasis selects the quantity a tier's sell fraction applies to
type TierBasis string

const (
	// BasisRemaining sells a fraction of what is still open when the tier fires
	BasisRemaining TierBasis = "remaining"
	// BasisOriginal sells a fraction of the quantity opened at entry
	BasisOriginal TierBasis = "original"
)

// ProfitLevel is one partial profit-taking tier
type ProfitLevel struct {
	Profit  float64 `mapstructure:"profit" json:"profit"`     // gain threshold, e.g. 0.10
	SellPct float64 `mapstructure:"sell_pct" json:"sell_pct"` // fraction to sell, 1 closes the position
}

// ExitRules configures how open positions are closed. Zero values disable
// the corresponding rule.
type ExitRules struct {
	StopLoss           float64
	TrailingActivation float64
	TrailingDistance   float64
	ProfitLevels       []ProfitLevel
	TierBasis          TierBasis
}

// DefaultExitRules returns the rules used when none are configured
func DefaultExitRules() ExitRules {
	return ExitRules{
		StopLoss:           0.10,
		TrailingActivation: 0.05,
		TrailingDistance:   0.03,
		TierBasis:          BasisRemaining,
	}
}

// Validate checks ranges and sorts the profit tiers by threshold
func (r *ExitRules) Validate() error {
	if r.StopLoss < 0 || r.StopLoss >= 1 {
		return invalid("stop_loss must be in [0, 1), got %g", r.StopLoss)
	}
	if r.TrailingActivation < 0 {
		return invalid("trailing_stop_activation must not be negative, got %g", r.TrailingActivation)
	}
	if r.TrailingDistance < 0 || r.TrailingDistance >= 1 {
		return invalid("trailing_stop_distance must be in [0, 1), got %g", r.TrailingDistance)
	}
	switch r.TierBasis {
	case "":
		r.TierBasis = BasisRemaining
	case BasisRemaining, BasisOriginal:
	default:
		return invalid("unknown tier_basis %q", r.TierBasis)
	}
	for i, lvl := range r.ProfitLevels {
		if lvl.Profit <= 0 {
			return invalid("profit_levels[%d].profit must be positive, got %g", i, lvl.Profit)
		}
		if lvl.SellPct <= 0 || lvl.SellPct > 1 {
			return invalid("profit_levels[%d].sell_pct must be in (0, 1], got %g", i, lvl.SellPct)
		}
	}
	sort.SliceStable(r.ProfitLevels, func(i, j int) bool {
		return r.ProfitLevels[i].Profit < r.ProfitLevels[j].Profit
	})
	return nil
}

// CostModel holds the per-side execution costs as fractions of price
type CostModel struct {
	CommissionRate float64
	SlippageRate   float64
}

// Validate rejects negative or absurd rates
func (c CostModel) Validate() error {
	if c.CommissionRate < 0 || c.CommissionRate >= 1 {
		return invalid("commission_rate must be in [0, 1), got %g", c.CommissionRate)
	}
	if c.SlippageRate < 0 || c.SlippageRate >= 1 {
		return invalid("slippage_rate must be in [0, 1), got %g", c.SlippageRate)
	}
	return nil
}

// EntryPrice is the effective price paid (long) or received (short) on entry
func (c CostModel) EntryPrice(d Direction, price float64) float64 {
	if d == Short {
		return price * (1 - c.SlippageRate) * (1 - c.CommissionRate)
	}
	return price * (1 + c.SlippageRate) * (1 + c.CommissionRate)
}

// ExitPrice is the effective price received (long) or paid (short) on exit
func (c CostModel) ExitPrice(d Direction, price float64) float64 {
	if d == Short {
		return price * (1 + c.SlippageRate) * (1 + c.CommissionRate)
	}
	return price * (1 - c.SlippageRate) * (1 - c.CommissionRate)
}

func invalid(format string, args ...any) error {
	return core.WrapError(core.ErrConfigInvalid, fmt.Errorf(format, args...))
}
