package optimizer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
)

// MethodGrid names grid search in results and metrics
const MethodGrid = "grid"

// Grid maps each parameter name to its candidate values
type Grid map[string][]float64

// Size returns the number of combinations in the grid
func (g Grid) Size() int {
	if len(g) == 0 {
		return 0
	}
	n := 1
	for _, values := range g {
		n *= len(values)
	}
	return n
}

// Combinations enumerates the Cartesian product. Parameters vary in name
// order with the last name changing fastest, so the order is deterministic.
func (g Grid) Combinations() ([]core.ParameterSet, error) {
	if len(g) == 0 {
		return nil, core.ErrEmptyGrid
	}
	names := make([]string, 0, len(g))
	for name, values := range g {
		if len(values) == 0 {
			return nil, core.WrapError(core.ErrEmptyGrid, fmt.Errorf("parameter %q has no candidate values", name))
		}
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]core.ParameterSet, 0, g.Size())
	var build func(idx int, current core.ParameterSet)
	build = func(idx int, current core.ParameterSet) {
		if idx == len(names) {
			out = append(out, current.Clone())
			return
		}
		name := names[idx]
		for _, v := range g[name] {
			current[name] = v
			build(idx+1, current)
		}
	}
	build(0, core.ParameterSet{})
	return out, nil
}

// GridSearch performs exhaustive search over a Grid
type GridSearch struct {
	settings
}

// NewGridSearch creates a grid search optimizer
func NewGridSearch(opts ...Option) *GridSearch {
	return &GridSearch{settings: newSettings(opts)}
}

// Optimize evaluates every combination of grid and returns the best one.
// Ties go to the combination enumerated first.
func (gs *GridSearch) Optimize(ctx context.Context, grid Grid, objective Objective) (*Result, error) {
	started := time.Now()
	combos, err := grid.Combinations()
	if err != nil {
		return nil, err
	}

	gs.logger.Info("starting grid search",
		zap.Int("parameters", len(grid)),
		zap.Int("combinations", len(combos)),
		zap.Int("workers", gs.workers),
	)

	scores, err := gs.evaluate(ctx, MethodGrid, objective, combos)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, len(combos))
	bestIdx := 0
	for i, params := range combos {
		candidates[i] = Candidate{Params: params, Score: scores[i]}
		if scores[i] > scores[bestIdx] {
			bestIdx = i
		}
	}

	res := &Result{
		ID:        uuid.NewString(),
		Method:    MethodGrid,
		Best:      combos[bestIdx].Clone(),
		BestScore: scores[bestIdx],
		Evaluated: len(combos),
		Top:       topCandidates(candidates, gs.topN),
	}
	if err := gs.finish(res, started); err != nil {
		return nil, err
	}
	return res, nil
}
