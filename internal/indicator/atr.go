package indicator

import (
	"math"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
)

// TrueRange returns the true range of every bar after the first.
// Returns slice of length len(bars) - 1.
func TrueRange(bars []core.OHLCV) []float64 {
	if len(bars) < 2 {
		return []float64{}
	}
	out := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prevClose := bars[i-1].Close
		tr := math.Max(bars[i].High-bars[i].Low,
			math.Max(math.Abs(bars[i].High-prevClose), math.Abs(bars[i].Low-prevClose)))
		out = append(out, tr)
	}
	return out
}

// ATR calculates the Average True Range with Wilder smoothing, seeded by the
// simple average of the first period true ranges. Needs period+1 bars.
func ATR(bars []core.OHLCV, period int) []float64 {
	tr := TrueRange(bars)
	if period <= 0 || len(tr) < period {
		return []float64{}
	}

	var sum float64
	for i := 0; i < period; i++ {
		sum += tr[i]
	}
	atr := sum / float64(period)
	result := make([]float64, 0, len(tr)-period+1)
	result = append(result, atr)

	for i := period; i < len(tr); i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		result = append(result, atr)
	}
	return result
}
