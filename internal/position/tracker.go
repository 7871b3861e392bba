package position

import (
	"fmt"
	"sort"
	"time"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
)

// eps absorbs float noise when comparing prices and gains against thresholds
const eps = 1e-9

// Tracker owns the open positions of one simulation run and the trade log
// they produce. It is not safe for concurrent use.
type Tracker struct {
	rules     ExitRules
	costs     CostModel
	positions map[string]*Position // symbol -> position
	trades    []Trade
}

// NewTracker validates the rules and costs and creates an empty tracker
func NewTracker(rules ExitRules, costs CostModel) (*Tracker, error) {
	rules.ProfitLevels = append([]ProfitLevel(nil), rules.ProfitLevels...)
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if err := costs.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{
		rules:     rules,
		costs:     costs,
		positions: make(map[string]*Position),
	}, nil
}

// Rules returns the validated exit rules
func (t *Tracker) Rules() ExitRules {
	return t.rules
}

// Costs returns the cost model
func (t *Tracker) Costs() CostModel {
	return t.costs
}

// Open starts a position at the market price adjusted for costs. stop is an
// optional absolute stop price, 0 for none.
func (t *Tracker) Open(symbol string, dir Direction, price, quantity float64, at time.Time, stop float64) (Position, error) {
	if _, exists := t.positions[symbol]; exists {
		return Position{}, fmt.Errorf("position already open for %s", symbol)
	}
	if quantity <= 0 || price <= 0 {
		return Position{}, core.WrapError(core.ErrInvalidData,
			fmt.Errorf("cannot open %s: quantity %g at price %g", symbol, quantity, price))
	}

	entry := t.costs.EntryPrice(dir, price)
	pos := &Position{
		Symbol:            symbol,
		Direction:         dir,
		EntryPrice:        entry,
		EntryDate:         at,
		OriginalQuantity:  quantity,
		RemainingQuantity: quantity,
		HighestFavorable:  entry,
		StopPrice:         stop,
	}
	t.positions[symbol] = pos
	return pos.clone(), nil
}

// Update applies the exit rules to the symbol's open position using the
// bar's close, and returns the trades it produced.
func (t *Tracker) Update(bar core.OHLCV) []Trade {
	pos, ok := t.positions[bar.Symbol]
	if !ok {
		return nil
	}
	price := bar.Close
	sign := pos.Direction.sign()

	if sign*(price-pos.HighestFavorable) > 0 {
		pos.HighestFavorable = price
	}

	if t.rules.TrailingDistance > 0 {
		if !pos.TrailingActive && pos.Gain(pos.HighestFavorable) >= t.rules.TrailingActivation-eps {
			pos.TrailingActive = true
		}
		if pos.TrailingActive {
			level := pos.HighestFavorable * (1 - sign*t.rules.TrailingDistance)
			// The stop only ever moves in the position's favour
			if pos.TrailingStop == 0 || sign*(level-pos.TrailingStop) > 0 {
				pos.TrailingStop = level
			}
		}
	}

	if !pos.TrailingActive && t.stopHit(pos, price) {
		return []Trade{t.exit(pos, price, pos.RemainingQuantity, bar.Time, ExitStopLoss)}
	}
	if pos.TrailingActive {
		if sign*(price-pos.TrailingStop) <= eps {
			return []Trade{t.exit(pos, price, pos.RemainingQuantity, bar.Time, ExitTrailingStop)}
		}
		if t.stopHit(pos, price) {
			return []Trade{t.exit(pos, price, pos.RemainingQuantity, bar.Time, ExitStopLoss)}
		}
	}

	return t.takeProfits(pos, price, bar.Time)
}

func (t *Tracker) stopHit(pos *Position, price float64) bool {
	if t.rules.StopLoss > 0 && pos.Gain(price) <= -t.rules.StopLoss+eps {
		return true
	}
	return pos.StopPrice > 0 && pos.Direction.sign()*(price-pos.StopPrice) <= eps
}

// takeProfits fires every untriggered tier whose threshold the gain has
// reached, lowest threshold first.
func (t *Tracker) takeProfits(pos *Position, price float64, at time.Time) []Trade {
	gain := pos.Gain(price)
	var trades []Trade
	for i, lvl := range t.rules.ProfitLevels {
		if pos.tierTriggered(i) || gain < lvl.Profit-eps {
			continue
		}

		basis := pos.RemainingQuantity
		if t.rules.TierBasis == BasisOriginal {
			basis = pos.OriginalQuantity
		}
		qty := basis * lvl.SellPct
		if lvl.SellPct >= 1 || qty > pos.RemainingQuantity-eps {
			qty = pos.RemainingQuantity
		}

		pos.TriggeredTiers = append(pos.TriggeredTiers, i)
		trades = append(trades, t.exit(pos, price, qty, at, PartialProfitReason(lvl.Profit)))
		if _, open := t.positions[pos.Symbol]; !open {
			break
		}
	}
	return trades
}

// Close exits the remaining quantity of the symbol's position at the market
// price. ok is false when no position is open.
func (t *Tracker) Close(symbol string, price float64, at time.Time, reason string) (trade Trade, ok bool) {
	pos, exists := t.positions[symbol]
	if !exists {
		return Trade{}, false
	}
	return t.exit(pos, price, pos.RemainingQuantity, at, reason), true
}

func (t *Tracker) exit(pos *Position, price, qty float64, at time.Time, reason string) Trade {
	exitPrice := t.costs.ExitPrice(pos.Direction, price)
	trade := Trade{
		Symbol:     pos.Symbol,
		Direction:  pos.Direction,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   qty,
		EntryDate:  pos.EntryDate,
		ExitDate:   at,
		ExitReason: reason,
		Return:     pos.Direction.sign() * (exitPrice - pos.EntryPrice) / pos.EntryPrice,
	}
	t.trades = append(t.trades, trade)

	pos.RemainingQuantity -= qty
	if pos.RemainingQuantity <= eps {
		pos.RemainingQuantity = 0
		delete(t.positions, pos.Symbol)
	}
	return trade
}

// Position returns a copy of the symbol's open position
func (t *Tracker) Position(symbol string) (Position, bool) {
	pos, ok := t.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return pos.clone(), true
}

// Positions returns copies of all open positions ordered by symbol
func (t *Tracker) Positions() []Position {
	out := make([]Position, 0, len(t.positions))
	for _, pos := range t.positions {
		out = append(out, pos.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Trades returns the trade log in the order trades were closed
func (t *Tracker) Trades() []Trade {
	return append([]Trade(nil), t.trades...)
}

// MarketValue returns the signed value of the open positions at the given
// prices: positive for longs, negative for shorts.
func (t *Tracker) MarketValue(prices map[string]float64) float64 {
	var total float64
	for sym, pos := range t.positions {
		if p, ok := prices[sym]; ok {
			total += pos.Direction.sign() * pos.RemainingQuantity * p
		}
	}
	return total
}
