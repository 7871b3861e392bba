package turtle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/strategy"
)

func TestTurtle_ImplementsStrategy(t *testing.T) {
	var _ strategy.Strategy = (*Turtle)(nil)
}

// bars builds a window where each bar spans close±1.
func bars(closes ...float64) []core.OHLCV {
	base := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	out := make([]core.OHLCV, len(closes))
	for i, c := range closes {
		out[i] = core.OHLCV{Symbol: "TEST", Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000, Time: base.AddDate(0, 0, i)}
	}
	return out
}

func small(t *testing.T) *Turtle {
	t.Helper()
	s, err := New(core.ParameterSet{"entry_period": 5, "exit_period": 3, "atr_period": 3})
	require.NoError(t, err)
	return s
}

func TestTurtle_Systems(t *testing.T) {
	s1, err := New(nil)
	require.NoError(t, err)
	assert.Equal(t, 21, s1.RequiredData().PriceHistory)

	s2, err := New(core.ParameterSet{"system": 2})
	require.NoError(t, err)
	assert.Equal(t, 56, s2.RequiredData().PriceHistory)
	assert.Equal(t, 55, s2.entryPeriod)
	assert.Equal(t, 20, s2.exitPeriod)
}

func TestTurtle_LongBreakout(t *testing.T) {
	s := small(t)
	sig, err := s.Evaluate(strategy.AnalysisContext{Symbol: "TEST", OHLCV: bars(100, 100, 100, 100, 100, 105)})
	require.NoError(t, err)

	// True ranges 2,2,2,2,6 -> Wilder ATR(3) = (2*2+6)/3
	n := 10.0 / 3
	assert.Equal(t, core.ActionBuy, sig.Action)
	assert.InDelta(t, n, sig.Metadata["n_value"], 1e-9)
	assert.InDelta(t, 105-2*n, sig.StopPrice, 1e-9)
	assert.InDelta(t, 0.01*105/n, sig.SizeHint, 1e-9)
	assert.InDelta(t, 0.6+0.2*(105-101)/n, sig.Strength, 1e-9)
}

func TestTurtle_ShortBreakout(t *testing.T) {
	s := small(t)
	sig, err := s.Evaluate(strategy.AnalysisContext{Symbol: "TEST", OHLCV: bars(100, 100, 100, 100, 100, 95)})
	require.NoError(t, err)

	assert.Equal(t, core.ActionShort, sig.Action)
	assert.Greater(t, sig.StopPrice, 95.0)
}

func TestTurtle_Exits(t *testing.T) {
	s := small(t)

	// Exit low over the last 3 bars is 103, entry low over 5 bars is 94
	sig, err := s.Evaluate(strategy.AnalysisContext{Symbol: "TEST", OHLCV: bars(100, 95, 104, 106, 104, 102)})
	require.NoError(t, err)
	assert.Equal(t, core.ActionSell, sig.Action)
	assert.Zero(t, sig.StopPrice)

	sig, err = s.Evaluate(strategy.AnalysisContext{Symbol: "TEST", OHLCV: bars(100, 105, 96, 94, 96, 98)})
	require.NoError(t, err)
	assert.Equal(t, core.ActionCover, sig.Action)
}

func TestTurtle_Hold(t *testing.T) {
	s := small(t)
	sig, err := s.Evaluate(strategy.AnalysisContext{Symbol: "TEST", OHLCV: bars(100, 100, 100, 100, 100, 100)})
	require.NoError(t, err)
	assert.Equal(t, core.ActionHold, sig.Action)
}

func TestTurtle_Errors(t *testing.T) {
	_, err := small(t).Evaluate(strategy.AnalysisContext{Symbol: "TEST", OHLCV: bars(1, 2, 3)})
	assert.True(t, errors.Is(err, core.ErrInsufficientData))

	for _, params := range []core.ParameterSet{
		{"system": 3},
		{"entry_period": 10, "exit_period": 10},
		{"risk_per_trade": 0},
		{"stop_multiplier": -1},
	} {
		_, err := New(params)
		assert.True(t, core.IsConfigError(err), "params %v", params)
	}
}
