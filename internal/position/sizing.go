package position

import "fmt"

// SizingConfig defines how much capital an entry may commit.
type SizingConfig struct {
	// PositionSize is the fraction of equity committed per entry when the
	// signal carries no size hint.
	PositionSize float64
	// MaxPositionPct caps any single entry as a fraction of equity. 0 disables the cap.
	MaxPositionPct float64
}

// DefaultSizingConfig returns a SizingConfig with sensible default values.
func DefaultSizingConfig() SizingConfig {
	return SizingConfig{
		PositionSize:   1.0,
		MaxPositionPct: 1.0,
	}
}

// Validate rejects fractions outside (0, 1]
func (c SizingConfig) Validate() error {
	if c.PositionSize <= 0 || c.PositionSize > 1 {
		return invalid("position_size must be in (0, 1], got %g", c.PositionSize)
	}
	if c.MaxPositionPct < 0 || c.MaxPositionPct > 1 {
		return invalid("max_position_pct must be in [0, 1], got %g", c.MaxPositionPct)
	}
	return nil
}

// SizeResult represents the outcome of sizing an entry.
type SizeResult struct {
	// Allowed indicates whether the entry may be opened.
	Allowed bool
	// Quantity to open when allowed.
	Quantity float64
	// Reason provides explanation when the entry is rejected.
	Reason string
}

// Sizer turns an entry signal into a quantity under the sizing rules.
type Sizer struct {
	config SizingConfig
}

// NewSizer creates a new Sizer with the given configuration.
func NewSizer(config SizingConfig) *Sizer {
	return &Sizer{config: config}
}

// Size computes the entry quantity. price is the cost-adjusted entry price,
// hint an optional fraction of equity supplied by the signal.
func (s *Sizer) Size(equity, cash, price, hint float64) SizeResult {
	if price <= 0 {
		return SizeResult{Reason: fmt.Sprintf("invalid entry price %.4f", price)}
	}
	if equity <= 0 {
		return SizeResult{Reason: fmt.Sprintf("no equity left: %.2f", equity)}
	}

	fraction := s.config.PositionSize
	if hint > 0 {
		fraction = hint
	}
	if s.config.MaxPositionPct > 0 && fraction > s.config.MaxPositionPct {
		fraction = s.config.MaxPositionPct
	}

	value := equity * fraction
	if value > cash {
		value = cash
	}
	if value <= 0 {
		return SizeResult{Reason: fmt.Sprintf("insufficient cash: %.2f", cash)}
	}

	return SizeResult{
		Allowed:  true,
		Quantity: value / price,
	}
}
