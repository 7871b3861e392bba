// Package position tracks open positions bar by bar and applies the exit
// rules: fixed stop-loss, trailing stop and tiered partial profit-taking.
package position

import (
	"math"
	"strconv"
	"time"
)

// Direction is the side of a position
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// sign is +1 for longs and -1 for shorts
func (d Direction) sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

// Exit reasons recorded on trades
const (
	ExitStopLoss     = "stop_loss"
	ExitTrailingStop = "trailing_stop"
	ExitSignal       = "signal"
	ExitEndOfData    = "end_of_data"
)

// PartialProfitReason names the exit of a profit tier, e.g. "partial_profit_10%"
func PartialProfitReason(threshold float64) string {
	pct := math.Round(threshold*100*100) / 100
	return "partial_profit_" + strconv.FormatFloat(pct, 'f', -1, 64) + "%"
}

// Position is an open position. EntryPrice already includes slippage and
// commission.
type Position struct {
	Symbol            string
	Direction         Direction
	EntryPrice        float64
	EntryDate         time.Time
	OriginalQuantity  float64
	RemainingQuantity float64
	// HighestFavorable is the best close since entry: the highest for longs,
	// the lowest for shorts.
	HighestFavorable float64
	TrailingActive   bool
	TrailingStop     float64
	StopPrice        float64 // signal-supplied stop, 0 when unset
	TriggeredTiers   []int   // indices into ExitRules.ProfitLevels
}

// Gain returns the unrealized fractional gain at price
func (p *Position) Gain(price float64) float64 {
	return p.Direction.sign() * (price - p.EntryPrice) / p.EntryPrice
}

// ClosedQuantity is the quantity already exited
func (p *Position) ClosedQuantity() float64 {
	return p.OriginalQuantity - p.RemainingQuantity
}

func (p *Position) tierTriggered(i int) bool {
	for _, t := range p.TriggeredTiers {
		if t == i {
			return true
		}
	}
	return false
}

func (p *Position) clone() Position {
	c := *p
	c.TriggeredTiers = append([]int(nil), p.TriggeredTiers...)
	return c
}

// Trade is a closed quantity of a position, full or partial. Prices
// include costs; Return is fractional.
type Trade struct {
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	EntryDate  time.Time `json:"entry_date"`
	ExitDate   time.Time `json:"exit_date"`
	ExitReason string    `json:"exit_reason"`
	Return     float64   `json:"return"`
}

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return t.Return > 0
}

// PnL returns the realized profit or loss of the trade
func (t Trade) PnL() float64 {
	return t.Direction.sign() * (t.ExitPrice - t.EntryPrice) * t.Quantity
}
