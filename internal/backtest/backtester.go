package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/metrics"
	"github.com/ksfraser/WealthSystem-sub021/internal/position"
	"github.com/ksfraser/WealthSystem-sub021/internal/strategy"
)

// OHLCVProvider defines the interface for fetching historical OHLCV data
type OHLCVProvider interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.OHLCV, error)
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProvider sets the data source used by RunSymbol
func WithProvider(p OHLCVProvider) Option {
	return func(e *Engine) { e.provider = p }
}

// WithMetrics records backtest, signal and trade metrics into m
func WithMetrics(m *metrics.Registry) Option {
	return func(e *Engine) { e.metrics = m }
}

// Engine runs strategy backtests against historical data. An Engine holds
// only configuration; each Run builds its own position tracker, so one
// Engine may serve concurrent runs.
type Engine struct {
	cfg      Config
	provider OHLCVProvider
	logger   *zap.Logger
	metrics  *metrics.Registry
}

// New validates cfg and creates an Engine
func New(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.InitialCapital <= 0 {
		return nil, core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %g", cfg.InitialCapital))
	}
	if err := cfg.Sizing.Validate(); err != nil {
		return nil, err
	}
	if _, err := position.NewTracker(cfg.Rules, cfg.Costs); err != nil {
		return nil, err
	}

	e := &Engine{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// RunSymbol fetches daily bars for symbol from the provider and runs the backtest
func (e *Engine) RunSymbol(ctx context.Context, strat strategy.Strategy, symbol string, start, end time.Time) (*Result, error) {
	if e.provider == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no OHLCV provider configured"))
	}
	series, err := e.provider.FetchHistory(ctx, symbol, start, end, "1d")
	if err != nil {
		return nil, fmt.Errorf("fetching %s history: %w", symbol, err)
	}
	return e.Run(ctx, strat, series)
}

// Run simulates strat over series, which must be chronological bars of a
// single symbol.
func (e *Engine) Run(ctx context.Context, strat strategy.Strategy, series []core.OHLCV) (*Result, error) {
	started := time.Now()
	res, err := e.run(ctx, strat, series)

	if e.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		e.metrics.RecordBacktest(strat.Name(), status, time.Since(started).Seconds())
		if res != nil {
			for _, t := range res.Trades {
				e.metrics.RecordTrade(res.Strategy, t.ExitReason)
			}
			for _, s := range res.Signals {
				e.metrics.RecordSignal(res.Strategy, string(s.Action))
			}
		}
	}

	if err != nil {
		e.logger.Warn("backtest failed", zap.String("strategy", strat.Name()), zap.Error(err))
		return nil, err
	}
	e.logger.Info("backtest completed",
		zap.String("id", res.ID),
		zap.String("strategy", res.Strategy),
		zap.String("symbol", res.Symbol),
		zap.Int("bars", len(series)),
		zap.Int("trades", len(res.Trades)),
		zap.Float64("total_return", res.Stats.TotalReturn),
		zap.Duration("elapsed", time.Since(started)),
	)
	return res, nil
}

// run is one simulation; state lives on its stack
func (e *Engine) run(ctx context.Context, strat strategy.Strategy, series []core.OHLCV) (*Result, error) {
	if err := validateSeries(series); err != nil {
		return nil, err
	}

	tracker, err := position.NewTracker(e.cfg.Rules, e.cfg.Costs)
	if err != nil {
		return nil, err
	}
	sim := &simulation{
		engine:  e,
		tracker: tracker,
		sizer:   position.NewSizer(e.cfg.Sizing),
		symbol:  series[0].Symbol,
		cash:    e.cfg.InitialCapital,
	}

	windowSize := max(strat.RequiredData().PriceHistory, 1)
	curve := make([]EquityPoint, 0, len(series))
	var signals []core.Signal

	for i, bar := range series {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Exits for positions opened on earlier bars
		for _, t := range tracker.Update(bar) {
			sim.settle(t)
		}

		// Bars before the minimum lookback are not evaluated
		if i+1 >= windowSize {
			sig, err := strat.Evaluate(strategy.AnalysisContext{
				Symbol: sim.symbol,
				OHLCV:  series[i+1-windowSize : i+1],
				Now:    bar.Time,
			})
			if err != nil {
				return nil, fmt.Errorf("%s at %s: %w", strat.Name(), bar.Time.Format(time.DateOnly), err)
			}
			if sig.Action != core.ActionHold {
				signals = append(signals, sig)
				sim.apply(sig, bar)
			}
		}

		if i == len(series)-1 {
			if t, ok := tracker.Close(sim.symbol, bar.Close, bar.Time, position.ExitEndOfData); ok {
				sim.settle(t)
			}
		}

		curve = append(curve, EquityPoint{Time: bar.Time, Equity: sim.equity(bar.Close)})
	}

	trades := tracker.Trades()
	return &Result{
		ID:             uuid.NewString(),
		Strategy:       strat.Name(),
		Symbol:         sim.symbol,
		StartDate:      series[0].Time,
		EndDate:        series[len(series)-1].Time,
		InitialCapital: e.cfg.InitialCapital,
		FinalValue:     curve[len(curve)-1].Equity,
		Signals:        signals,
		Trades:         trades,
		EquityCurve:    curve,
		Stats:          CalculateStats(trades, curve, e.cfg.InitialCapital, e.cfg.RiskFreeRate),
	}, nil
}

// simulation is the mutable account state of a single run
type simulation struct {
	engine  *Engine
	tracker *position.Tracker
	sizer   *position.Sizer
	symbol  string
	cash    float64
}

func (s *simulation) equity(price float64) float64 {
	return s.cash + s.tracker.MarketValue(map[string]float64{s.symbol: price})
}

// settle books the cash flow of a closed trade: sale proceeds for longs,
// buy-back cost for shorts.
func (s *simulation) settle(t position.Trade) {
	if t.Direction == position.Short {
		s.cash -= t.ExitPrice * t.Quantity
	} else {
		s.cash += t.ExitPrice * t.Quantity
	}
	s.engine.logger.Debug("trade closed",
		zap.String("symbol", t.Symbol),
		zap.String("reason", t.ExitReason),
		zap.Float64("quantity", t.Quantity),
		zap.Float64("return", t.Return),
	)
}

// apply acts on a non-hold signal. An opposing signal only liquidates the
// open position; it never reverses it on the same bar.
func (s *simulation) apply(sig core.Signal, bar core.OHLCV) {
	pos, open := s.tracker.Position(s.symbol)

	switch sig.Action {
	case core.ActionBuy:
		if open && pos.Direction == position.Short {
			s.liquidate(bar)
		} else if !open {
			s.enter(position.Long, sig, bar)
		}
	case core.ActionShort:
		if open && pos.Direction == position.Long {
			s.liquidate(bar)
		} else if !open && s.engine.cfg.AllowShort {
			s.enter(position.Short, sig, bar)
		}
	case core.ActionSell:
		if open && pos.Direction == position.Long {
			s.liquidate(bar)
		}
	case core.ActionCover:
		if open && pos.Direction == position.Short {
			s.liquidate(bar)
		}
	}
}

func (s *simulation) liquidate(bar core.OHLCV) {
	if t, ok := s.tracker.Close(s.symbol, bar.Close, bar.Time, position.ExitSignal); ok {
		s.settle(t)
	}
}

func (s *simulation) enter(dir position.Direction, sig core.Signal, bar core.OHLCV) {
	entryPrice := s.tracker.Costs().EntryPrice(dir, bar.Close)
	size := s.sizer.Size(s.equity(bar.Close), s.cash, entryPrice, sig.SizeHint)
	if !size.Allowed {
		s.engine.logger.Debug("entry skipped",
			zap.String("symbol", s.symbol),
			zap.String("action", string(sig.Action)),
			zap.String("reason", size.Reason),
		)
		return
	}

	pos, err := s.tracker.Open(s.symbol, dir, bar.Close, size.Quantity, bar.Time, sig.StopPrice)
	if err != nil {
		s.engine.logger.Warn("entry failed", zap.String("symbol", s.symbol), zap.Error(err))
		return
	}
	if dir == position.Short {
		s.cash += pos.EntryPrice * pos.OriginalQuantity
	} else {
		s.cash -= pos.EntryPrice * pos.OriginalQuantity
	}
}

// validateSeries checks bar fields, ordering and that all bars share a symbol
func validateSeries(series []core.OHLCV) error {
	if len(series) == 0 {
		return core.ErrNoData
	}
	symbol := series[0].Symbol
	for i, bar := range series {
		if err := bar.Validate(); err != nil {
			return fmt.Errorf("bar %d: %w", i, err)
		}
		if bar.Symbol != symbol {
			return core.WrapError(core.ErrSeriesMismatch,
				fmt.Errorf("bar %d has symbol %q, series is %q", i, bar.Symbol, symbol))
		}
		if i > 0 && !bar.Time.After(series[i-1].Time) {
			return core.WrapError(core.ErrInvalidData,
				fmt.Errorf("bar %d at %s is not after the previous bar", i, bar.Time.Format(time.DateOnly)))
		}
	}
	return nil
}
