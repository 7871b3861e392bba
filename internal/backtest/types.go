package backtest

import (
	"time"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/position"
)

// TradingDays is the annualization convention used throughout
const TradingDays = 252

// Config holds the run settings of the engine
type Config struct {
	InitialCapital float64
	RiskFreeRate   float64 // annual
	AllowShort     bool
	Sizing         position.SizingConfig
	Costs          position.CostModel
	Rules          position.ExitRules
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 100000,
		RiskFreeRate:   0.02,
		Sizing:         position.DefaultSizingConfig(),
		Rules:          position.DefaultExitRules(),
	}
}

// Result holds the complete backtest output
type Result struct {
	ID             string            `json:"id"`
	Strategy       string            `json:"strategy"`
	Symbol         string            `json:"symbol"`
	Params         core.ParameterSet `json:"params,omitempty"`
	StartDate      time.Time         `json:"start_date"`
	EndDate        time.Time         `json:"end_date"`
	InitialCapital float64           `json:"initial_capital"`
	FinalValue     float64           `json:"final_value"`
	Signals        []core.Signal     `json:"signals"`
	Trades         []position.Trade  `json:"trades"`
	EquityCurve    []EquityPoint     `json:"equity_curve"`
	Stats          Stats             `json:"stats"`
}

// EquityPoint is the marked-to-market account value after a bar
type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

// Stats holds performance statistics. Percentages are expressed as 0-100.
type Stats struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`     // Percentage of profitable trades
	TotalReturn   float64 `json:"total_return"` // Net return percentage of the account
	MaxDrawdown   float64 `json:"max_drawdown"` // Largest peak-to-trough equity decline, percentage
	SharpeRatio   float64 `json:"sharpe_ratio"` // Annualized, from trade returns
	ProfitFactor  float64 `json:"profit_factor"`
	AverageReturn float64 `json:"average_return"` // Mean trade return, percentage
	BestTrade     float64 `json:"best_trade"`
	WorstTrade    float64 `json:"worst_trade"`
	ReturnStdDev  float64 `json:"return_std_dev"`
}
