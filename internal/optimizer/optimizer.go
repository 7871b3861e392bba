// Package optimizer searches a strategy's parameter space by exhaustive
// grid search or a genetic algorithm, treating a backtest as the objective.
package optimizer

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
	"github.com/ksfraser/WealthSystem-sub021/internal/metrics"
)

// Objective scores a parameter set; higher is better. It must be safe to
// call from several goroutines.
type Objective func(ctx context.Context, params core.ParameterSet) (float64, error)

// Candidate is an evaluated parameter set
type Candidate struct {
	Params core.ParameterSet `json:"params"`
	Score  float64           `json:"score"`
}

// GenerationStats summarises one generation of the genetic search. Best and
// Mean cover the Scored individuals with a finite fitness.
type GenerationStats struct {
	Generation int     `json:"generation"`
	Best       float64 `json:"best"`
	Mean       float64 `json:"mean"`
	Scored     int     `json:"scored"`
}

// Result is the outcome of an optimization run
type Result struct {
	ID        string            `json:"id"`
	Method    string            `json:"method"`
	Best      core.ParameterSet `json:"best"`
	BestScore float64           `json:"best_score"`
	Evaluated int               `json:"evaluated"`
	Duration  time.Duration     `json:"duration"`
	Top       []Candidate       `json:"top"`
	History   []GenerationStats `json:"history,omitempty"`
}

// Option configures an optimizer
type Option func(*settings)

type settings struct {
	workers int
	topN    int
	logger  *zap.Logger
	metrics *metrics.Registry
}

func newSettings(opts []Option) settings {
	s := settings{
		workers: runtime.GOMAXPROCS(0),
		topN:    10,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithWorkers bounds the number of concurrent objective evaluations
func WithWorkers(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithTopN sets how many of the best candidates a Result keeps
func WithTopN(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.topN = n
		}
	}
}

// WithLogger sets the optimizer logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records evaluation counts and best scores into m
func WithMetrics(m *metrics.Registry) Option {
	return func(s *settings) { s.metrics = m }
}

// evaluate scores every set concurrently and returns scores in input order.
// NaN scores count as -Inf. The first objective error cancels the rest and
// is returned wrapped in ErrObjectiveFailed.
func (s settings) evaluate(ctx context.Context, method string, objective Objective, sets []core.ParameterSet) ([]float64, error) {
	scores := make([]float64, len(sets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, params := range sets {
		g.Go(func() error {
			score, err := objective(gctx, params.Clone())
			if err != nil {
				return core.WrapError(core.ErrObjectiveFailed, fmt.Errorf("params %v: %w", params, err))
			}
			if math.IsNaN(score) {
				score = math.Inf(-1)
			}
			scores[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordEvaluations(method, len(sets))
	}
	return scores, nil
}

// topCandidates returns the n best finite-scored candidates, ties kept in
// evaluation order
func topCandidates(all []Candidate, n int) []Candidate {
	sorted := make([]Candidate, 0, len(all))
	for _, c := range all {
		if !math.IsInf(c.Score, 0) {
			sorted = append(sorted, c)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// finish stamps the duration, records metrics and logs the outcome. A run
// where no candidate scored above -Inf is an error.
func (s settings) finish(res *Result, started time.Time) error {
	res.Duration = time.Since(started)
	if math.IsInf(res.BestScore, -1) {
		return core.WrapError(core.ErrObjectiveFailed,
			fmt.Errorf("%s: none of %d candidates produced a finite score", res.Method, res.Evaluated))
	}
	if s.metrics != nil {
		s.metrics.RecordOptimization(res.Method, res.BestScore, res.Duration.Seconds())
	}
	s.logger.Info("optimization complete",
		zap.String("method", res.Method),
		zap.Int("evaluated", res.Evaluated),
		zap.Float64("best_score", res.BestScore),
		zap.Any("best", res.Best),
		zap.Duration("duration", res.Duration),
	)
	return nil
}
