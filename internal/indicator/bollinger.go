package indicator

import "github.com/montanaflynn/stats"

// Bands holds Bollinger Band levels for the latest bar
type Bands struct {
	Upper     float64
	Middle    float64
	Lower     float64
	Bandwidth float64 // (Upper - Lower) / Middle
	PercentB  float64 // position of the last price inside the bands, 0 = lower, 1 = upper
}

// Bollinger computes bands of k population standard deviations around the
// period SMA of the most recent prices.
func Bollinger(prices []float64, period int, k float64) (Bands, bool) {
	if period <= 1 || len(prices) < period {
		return Bands{}, false
	}
	window := prices[len(prices)-period:]

	mean, err := stats.Mean(window)
	if err != nil {
		return Bands{}, false
	}
	sd, err := stats.StandardDeviationPopulation(window)
	if err != nil {
		return Bands{}, false
	}

	b := Bands{
		Upper:  mean + k*sd,
		Middle: mean,
		Lower:  mean - k*sd,
	}
	if mean != 0 {
		b.Bandwidth = (b.Upper - b.Lower) / mean
	}
	if b.Upper != b.Lower {
		b.PercentB = (prices[len(prices)-1] - b.Lower) / (b.Upper - b.Lower)
	} else {
		b.PercentB = 0.5
	}
	return b, true
}
