package indicator

import "github.com/ksfraser/WealthSystem-sub021/internal/core"

// StochasticResult holds the latest %K and %D readings
type StochasticResult struct {
	K float64
	D float64
}

// Stochastic computes %K over kPeriod bars and %D as the SMA of the last
// dPeriod %K values. Needs kPeriod + dPeriod - 1 bars.
func Stochastic(bars []core.OHLCV, kPeriod, dPeriod int) (StochasticResult, bool) {
	if kPeriod <= 0 || dPeriod <= 0 || len(bars) < kPeriod+dPeriod-1 {
		return StochasticResult{}, false
	}

	ks := make([]float64, 0, dPeriod)
	for end := len(bars) - dPeriod + 1; end <= len(bars); end++ {
		ks = append(ks, percentK(bars[end-kPeriod:end]))
	}

	d := SMA(ks, dPeriod)
	return StochasticResult{K: ks[len(ks)-1], D: d[len(d)-1]}, true
}

// StochasticLegacy reproduces the historical approximation where %D is %K
// scaled by LegacySignalFactor.
func StochasticLegacy(bars []core.OHLCV, kPeriod int) (StochasticResult, bool) {
	if kPeriod <= 0 || len(bars) < kPeriod {
		return StochasticResult{}, false
	}
	k := percentK(bars[len(bars)-kPeriod:])
	return StochasticResult{K: k, D: k * LegacySignalFactor}, true
}

func percentK(window []core.OHLCV) float64 {
	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	for i, b := range window {
		highs[i] = b.High
		lows[i] = b.Low
	}
	hh := Highest(highs)
	ll := Lowest(lows)
	if hh == ll {
		return 50
	}
	return (window[len(window)-1].Close - ll) / (hh - ll) * 100
}
