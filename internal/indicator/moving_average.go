// Package indicator holds stateless technical indicators computed over price windows.
package indicator

// MAType selects how a moving average is smoothed
type MAType int

const (
	MASimple MAType = iota
	MAExponential
)

func (t MAType) String() string {
	switch t {
	case MASimple:
		return "SMA"
	case MAExponential:
		return "EMA"
	default:
		return "MA"
	}
}

// SMA calculates Simple Moving Average
// Returns slice of length: len(prices) - period + 1
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result = append(result, sum/float64(period))

	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result = append(result, sum/float64(period))
	}

	return result
}

// EMA calculates Exponential Moving Average seeded with the SMA of the first period.
// Returns slice of length: len(prices) - period + 1
func EMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)
	multiplier := 2.0 / float64(period+1)

	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	ema := sum / float64(period)
	result = append(result, ema)

	for i := period; i < len(prices); i++ {
		ema = (prices[i]-ema)*multiplier + ema
		result = append(result, ema)
	}

	return result
}

// MovingAverage dispatches to SMA or EMA
func MovingAverage(prices []float64, period int, kind MAType) []float64 {
	if kind == MAExponential {
		return EMA(prices, period)
	}
	return SMA(prices, period)
}
