package indicator

// LegacySignalFactor is the constant the legacy approximations multiply the
// main line by in place of a smoothed signal line.
const LegacySignalFactor = 0.9

// MACDResult holds the latest MACD reading
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD computes the latest MACD line, its EMA signal line and histogram.
// ok is false when prices cannot fill slow + signal - 1 bars.
func MACD(prices []float64, fast, slow, signal int) (MACDResult, bool) {
	line := macdLine(prices, fast, slow)
	if len(line) < signal || signal <= 0 {
		return MACDResult{}, false
	}
	sig := EMA(line, signal)
	m := line[len(line)-1]
	s := sig[len(sig)-1]
	return MACDResult{MACD: m, Signal: s, Histogram: m - s}, true
}

// MACDLegacy reproduces the historical approximation where the signal line is
// the MACD line scaled by LegacySignalFactor. Kept for reproducing old backtests.
func MACDLegacy(prices []float64, fast, slow int) (MACDResult, bool) {
	line := macdLine(prices, fast, slow)
	if len(line) == 0 {
		return MACDResult{}, false
	}
	m := line[len(line)-1]
	s := m * LegacySignalFactor
	return MACDResult{MACD: m, Signal: s, Histogram: m - s}, true
}

func macdLine(prices []float64, fast, slow int) []float64 {
	if fast <= 0 || slow <= fast {
		return nil
	}
	fastEMA := EMA(prices, fast)
	slowEMA := EMA(prices, slow)
	if len(slowEMA) == 0 {
		return nil
	}
	offset := slow - fast
	line := make([]float64, len(slowEMA))
	for i := range slowEMA {
		line[i] = fastEMA[i+offset] - slowEMA[i]
	}
	return line
}
