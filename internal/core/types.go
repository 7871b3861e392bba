package core

import (
	"fmt"
	"math"
	"time"
)

// OHLCV represents one price bar for a symbol on one trading session.
// Bars are produced by the data layer and never modified afterwards.
type OHLCV struct {
	Symbol   string
	Interval string // "1d", "1h"
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   int64
	Time     time.Time
}

// TypicalPrice returns (high + low + close) / 3
func (b OHLCV) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Validate checks the bar for missing or inconsistent fields
func (b OHLCV) Validate() error {
	if b.Time.IsZero() {
		return WrapError(ErrInvalidData, fmt.Errorf("bar has no date"))
	}
	fields := []struct {
		name  string
		value float64
	}{{"open", b.Open}, {"high", b.High}, {"low", b.Low}, {"close", b.Close}}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value <= 0 {
			return WrapError(ErrInvalidData, fmt.Errorf("bar %s: %s must be positive, got %v", b.Time.Format("2006-01-02"), f.name, f.value))
		}
	}
	if b.High < b.Low {
		return WrapError(ErrInvalidData, fmt.Errorf("bar %s: high %.4f below low %.4f", b.Time.Format("2006-01-02"), b.High, b.Low))
	}
	if b.Volume < 0 {
		return WrapError(ErrInvalidData, fmt.Errorf("bar %s: negative volume %d", b.Time.Format("2006-01-02"), b.Volume))
	}
	return nil
}

// Closes extracts closing prices from a series of bars
func Closes(bars []OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Action represents a trading signal action
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionShort Action = "short"
	ActionCover Action = "cover"
	ActionHold  Action = "hold"
)

// IsEntry reports whether the action opens a position
func (a Action) IsEntry() bool {
	return a == ActionBuy || a == ActionShort
}

// Signal represents a trading signal from a strategy.
// A signal is created fresh for every evaluation and never mutated afterwards.
type Signal struct {
	Symbol   string
	Action   Action
	Strength float64 // 0..1
	Price    float64 // Close of the evaluated bar
	Reason   string
	Strategy string
	Metadata map[string]any

	// StopPrice is an absolute protective stop requested by the strategy, 0 if none.
	StopPrice float64
	// SizeHint is the requested position size as a fraction of equity, 0 to use the engine default.
	SizeHint float64

	GeneratedAt time.Time
}

// Hold builds a HOLD signal with the given reason
func Hold(symbol, reason string) Signal {
	return Signal{Symbol: symbol, Action: ActionHold, Reason: reason}
}
