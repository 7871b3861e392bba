package optimizer

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
)

// bowl peaks at x=3, y=-1
func bowl(ctx context.Context, p core.ParameterSet) (float64, error) {
	dx, dy := p["x"]-3, p["y"]+1
	return -(dx*dx + dy*dy), nil
}

var bowlGenes = []Gene{
	{Name: "x", Min: -10, Max: 10},
	{Name: "y", Min: -10, Max: 10},
}

func TestNewGenetic_Validation(t *testing.T) {
	tests := []struct {
		name  string
		cfg   GeneticConfig
		genes []Gene
	}{
		{"tiny population", GeneticConfig{PopulationSize: 1, Generations: 5}, bowlGenes},
		{"no generations", GeneticConfig{PopulationSize: 10}, bowlGenes},
		{"mutation rate", GeneticConfig{PopulationSize: 10, Generations: 5, MutationRate: 2}, bowlGenes},
		{"no genes", GeneticConfig{PopulationSize: 10, Generations: 5}, nil},
		{"inverted range", GeneticConfig{PopulationSize: 10, Generations: 5}, []Gene{{Name: "x", Min: 5, Max: 1}}},
		{"duplicate gene", GeneticConfig{PopulationSize: 10, Generations: 5}, []Gene{{Name: "x", Max: 1}, {Name: "x", Max: 2}}},
		{"no integer in range", GeneticConfig{PopulationSize: 10, Generations: 5}, []Gene{{Name: "x", Min: 1.2, Max: 1.8, Integer: true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGenetic(tt.cfg, tt.genes)
			assert.True(t, core.IsConfigError(err), "got %v", err)
		})
	}
}

func TestGenetic_FindsOptimum(t *testing.T) {
	g, err := NewGenetic(GeneticConfig{PopulationSize: 30, Generations: 40, MutationRate: 0.2, Seed: 7}, bowlGenes, WithWorkers(4))
	require.NoError(t, err)

	res, err := g.Optimize(context.Background(), bowl)
	require.NoError(t, err)

	assert.Equal(t, 30*40, res.Evaluated)
	assert.Greater(t, res.BestScore, -1.0)
	assert.InDelta(t, 3, res.Best["x"], 1)
	assert.InDelta(t, -1, res.Best["y"], 1)
	assert.Len(t, res.History, 40)
}

func TestGenetic_BestAcrossGenerations(t *testing.T) {
	g, err := NewGenetic(GeneticConfig{PopulationSize: 10, Generations: 15, MutationRate: 0.5, Seed: 11}, bowlGenes)
	require.NoError(t, err)

	res, err := g.Optimize(context.Background(), bowl)
	require.NoError(t, err)

	maxSeen := math.Inf(-1)
	for i, h := range res.History {
		assert.LessOrEqual(t, h.Best, res.BestScore)
		maxSeen = math.Max(maxSeen, h.Best)
		if i > 0 {
			// Elitism: a generation's best never falls below the previous one
			assert.GreaterOrEqual(t, h.Best, res.History[i-1].Best)
		}
	}
	assert.Equal(t, maxSeen, res.BestScore)
}

func TestGenetic_Reproducible(t *testing.T) {
	run := func() *Result {
		g, err := NewGenetic(GeneticConfig{PopulationSize: 12, Generations: 8, MutationRate: 0.1, Seed: 99}, bowlGenes, WithWorkers(3))
		require.NoError(t, err)
		res, err := g.Optimize(context.Background(), bowl)
		require.NoError(t, err)
		return res
	}
	first, second := run(), run()
	assert.Equal(t, first.Best, second.Best)
	assert.Equal(t, first.BestScore, second.BestScore)
	assert.Equal(t, first.History, second.History)
}

func TestGenetic_EvolveKeepsElite(t *testing.T) {
	g, err := NewGenetic(GeneticConfig{PopulationSize: 6, Generations: 2, MutationRate: 0.3, Seed: 3}, bowlGenes)
	require.NoError(t, err)
	rng := g.NewRand()

	pop, err := g.Evaluate(context.Background(), g.Initial(rng), bowl)
	require.NoError(t, err)
	require.True(t, pop.Evaluated)
	before := pop.Individuals[0].Params.Clone()

	next := g.Evolve(pop, rng)
	assert.Equal(t, 1, next.Generation)
	assert.False(t, next.Evaluated)
	assert.Len(t, next.Individuals, 6)
	assert.Equal(t, pop.Best().Params, next.Individuals[0].Params)
	assert.Equal(t, before, pop.Individuals[0].Params, "Evolve must not modify its input")

	for _, ind := range next.Individuals {
		for _, gene := range bowlGenes {
			v := ind.Params[gene.Name]
			assert.True(t, v >= gene.Min && v <= gene.Max, "%s=%f out of range", gene.Name, v)
		}
	}
}

func TestGenetic_EmptyPopulation(t *testing.T) {
	g, err := NewGenetic(GeneticConfig{PopulationSize: 4, Generations: 1, MutationRate: 0.1, Seed: 1}, bowlGenes)
	require.NoError(t, err)

	best := Population{}.Best()
	assert.True(t, math.IsInf(best.Fitness, -1))
	assert.Empty(t, best.Params)

	next := g.Evolve(Population{Generation: 2}, g.NewRand())
	assert.Equal(t, 3, next.Generation)
	assert.Len(t, next.Individuals, 4)
	for _, ind := range next.Individuals {
		assert.Len(t, ind.Params, len(bowlGenes))
	}
}

func TestGenetic_IntegerGenes(t *testing.T) {
	genes := []Gene{{Name: "period", Min: 5, Max: 30, Integer: true}}
	g, err := NewGenetic(GeneticConfig{PopulationSize: 20, Generations: 5, MutationRate: 0.5, Seed: 5}, genes)
	require.NoError(t, err)
	rng := g.NewRand()

	pop := g.Initial(rng)
	for i := 0; i < 5; i++ {
		pop, err = g.Evaluate(context.Background(), pop, func(ctx context.Context, p core.ParameterSet) (float64, error) {
			return -math.Abs(p["period"] - 14), nil
		})
		require.NoError(t, err)
		for _, ind := range pop.Individuals {
			v := ind.Params["period"]
			assert.Equal(t, math.Round(v), v)
			assert.True(t, v >= 5 && v <= 30)
		}
		pop = g.Evolve(pop, rng)
	}
}

func TestGenetic_ObjectiveErrorPropagates(t *testing.T) {
	boom := errors.New("backtest failed")
	g, err := NewGenetic(GeneticConfig{PopulationSize: 4, Generations: 3, Seed: 1}, bowlGenes)
	require.NoError(t, err)

	_, err = g.Optimize(context.Background(), func(ctx context.Context, p core.ParameterSet) (float64, error) {
		return 0, boom
	})
	assert.True(t, errors.Is(err, core.ErrObjectiveFailed))
	assert.True(t, errors.Is(err, boom))
}
