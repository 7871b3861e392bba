package indicator

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Highest returns the maximum value, or NaN for an empty slice
func Highest(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	hi := values[0]
	for _, v := range values[1:] {
		if v > hi {
			hi = v
		}
	}
	return hi
}

// Lowest returns the minimum value, or NaN for an empty slice
func Lowest(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	lo := values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
	}
	return lo
}

// PercentChange returns (to - from) / from, 0 when from is 0
func PercentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from
}

// Mean returns the arithmetic mean, 0 for an empty slice
func Mean(values []float64) float64 {
	m, err := stats.Mean(values)
	if err != nil {
		return 0
	}
	return m
}
