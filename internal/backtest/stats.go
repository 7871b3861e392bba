package backtest

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/ksfraser/WealthSystem-sub021/internal/position"
)

// CalculateStats computes performance statistics from the trade log and
// the equity curve.
func CalculateStats(trades []position.Trade, curve []EquityPoint, initialCapital, riskFreeRate float64) Stats {
	var s Stats
	if len(curve) > 0 && initialCapital > 0 {
		s.TotalReturn = (curve[len(curve)-1].Equity/initialCapital - 1) * 100
		s.MaxDrawdown = calculateMaxDrawdown(curve) * 100
	}
	if len(trades) == 0 {
		return s
	}

	returns := make([]float64, len(trades))
	var grossProfit, grossLoss float64
	for i, t := range trades {
		returns[i] = t.Return
		pnl := t.PnL()
		if t.IsWin() {
			s.WinningTrades++
			grossProfit += pnl
		} else {
			s.LosingTrades++
			grossLoss -= pnl
		}
	}

	s.TotalTrades = len(trades)
	s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades) * 100
	if grossLoss > 0 {
		s.ProfitFactor = grossProfit / grossLoss
	}

	mean, _ := stats.Mean(returns)
	best, _ := stats.Max(returns)
	worst, _ := stats.Min(returns)
	s.AverageReturn = mean * 100
	s.BestTrade = best * 100
	s.WorstTrade = worst * 100
	if len(returns) > 1 {
		sd, _ := stats.StandardDeviationSample(returns)
		s.ReturnStdDev = sd * 100
	}
	s.SharpeRatio = SharpeRatio(returns, riskFreeRate)
	return s
}

// calculateMaxDrawdown finds the largest peak-to-trough decline as a fraction
func calculateMaxDrawdown(curve []EquityPoint) float64 {
	var maxDD, peak float64
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// SharpeRatio annualizes per-period returns over TradingDays:
// (mean*252 - rf) / (stddev*sqrt(252)). It is 0 with fewer than two
// returns or zero deviation.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	mean, _ := stats.Mean(returns)
	sd, _ := stats.StandardDeviationSample(returns)
	if sd < 1e-12 {
		return 0
	}
	return (mean*TradingDays - riskFreeRate) / (sd * math.Sqrt(TradingDays))
}
