package optimizer

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ksfraser/WealthSystem-sub021/internal/core"
)

// MethodGenetic names the genetic algorithm in results and metrics
const MethodGenetic = "genetic"

// Gene declares a searchable parameter and its range
type Gene struct {
	Name    string  `mapstructure:"name" json:"name"`
	Min     float64 `mapstructure:"min" json:"min"`
	Max     float64 `mapstructure:"max" json:"max"`
	Integer bool    `mapstructure:"integer" json:"integer"` // keep values whole, e.g. periods
}

func (g Gene) random(rng *rand.Rand) float64 {
	if g.Integer {
		lo, hi := math.Ceil(g.Min), math.Floor(g.Max)
		return lo + float64(rng.IntN(int(hi-lo)+1))
	}
	return g.Min + rng.Float64()*(g.Max-g.Min)
}

// GeneticConfig holds the evolution settings
type GeneticConfig struct {
	PopulationSize int
	Generations    int
	MutationRate   float64
	// Seed makes runs reproducible; 0 seeds from the clock.
	Seed uint64
}

// DefaultGeneticConfig returns the default evolution settings
func DefaultGeneticConfig() GeneticConfig {
	return GeneticConfig{
		PopulationSize: 20,
		Generations:    50,
		MutationRate:   0.1,
	}
}

// Individual is one member of a population. Fitness is only meaningful
// after the population has been evaluated.
type Individual struct {
	Params  core.ParameterSet
	Fitness float64
}

// Population is one generation. Evaluate and Evolve return new values and
// never modify their input.
type Population struct {
	Generation  int
	Individuals []Individual
	Evaluated   bool
}

// Best returns the fittest individual, the earliest one on ties. An empty
// population yields an individual with no params and -Inf fitness.
func (p Population) Best() Individual {
	if len(p.Individuals) == 0 {
		return Individual{Fitness: math.Inf(-1)}
	}
	best := p.Individuals[0]
	for _, ind := range p.Individuals[1:] {
		if ind.Fitness > best.Fitness {
			best = ind
		}
	}
	return best
}

// summary reports best and mean over the finite fitness values only; both
// are 0 when nothing scored
func (p Population) summary() GenerationStats {
	stats := GenerationStats{Generation: p.Generation + 1}
	var sum float64
	for _, ind := range p.Individuals {
		if math.IsInf(ind.Fitness, 0) {
			continue
		}
		if stats.Scored == 0 || ind.Fitness > stats.Best {
			stats.Best = ind.Fitness
		}
		sum += ind.Fitness
		stats.Scored++
	}
	if stats.Scored > 0 {
		stats.Mean = sum / float64(stats.Scored)
	}
	return stats
}

// Genetic evolves parameter sets toward higher objective scores
type Genetic struct {
	settings
	cfg   GeneticConfig
	genes []Gene
}

// NewGenetic validates the configuration and gene ranges
func NewGenetic(cfg GeneticConfig, genes []Gene, opts ...Option) (*Genetic, error) {
	switch {
	case cfg.PopulationSize < 2:
		return nil, invalid("population_size must be at least 2, got %d", cfg.PopulationSize)
	case cfg.Generations < 1:
		return nil, invalid("generations must be at least 1, got %d", cfg.Generations)
	case cfg.MutationRate < 0 || cfg.MutationRate > 1:
		return nil, invalid("mutation_rate must be in [0, 1], got %g", cfg.MutationRate)
	case len(genes) == 0:
		return nil, invalid("no genes to optimize")
	}

	seen := make(map[string]bool, len(genes))
	for _, g := range genes {
		if g.Name == "" || seen[g.Name] {
			return nil, invalid("gene names must be unique and non-empty, got %q", g.Name)
		}
		seen[g.Name] = true
		if g.Min > g.Max {
			return nil, invalid("gene %s: min %g above max %g", g.Name, g.Min, g.Max)
		}
		if g.Integer && math.Ceil(g.Min) > math.Floor(g.Max) {
			return nil, invalid("gene %s: no integer in [%g, %g]", g.Name, g.Min, g.Max)
		}
	}

	if cfg.Seed == 0 {
		cfg.Seed = uint64(time.Now().UnixNano())
	}
	return &Genetic{
		settings: newSettings(opts),
		cfg:      cfg,
		genes:    append([]Gene(nil), genes...),
	}, nil
}

// NewRand returns the generator a run with this configuration uses
func (g *Genetic) NewRand() *rand.Rand {
	return rand.New(rand.NewPCG(g.cfg.Seed, g.cfg.Seed^0x9e3779b97f4a7c15))
}

// Initial draws a random first generation
func (g *Genetic) Initial(rng *rand.Rand) Population {
	inds := make([]Individual, g.cfg.PopulationSize)
	for i := range inds {
		params := make(core.ParameterSet, len(g.genes))
		for _, gene := range g.genes {
			params[gene.Name] = gene.random(rng)
		}
		inds[i] = Individual{Params: params}
	}
	return Population{Individuals: inds}
}

// Evaluate scores every individual of pop
func (g *Genetic) Evaluate(ctx context.Context, pop Population, objective Objective) (Population, error) {
	sets := make([]core.ParameterSet, len(pop.Individuals))
	for i, ind := range pop.Individuals {
		sets[i] = ind.Params
	}
	scores, err := g.evaluate(ctx, MethodGenetic, objective, sets)
	if err != nil {
		return Population{}, err
	}

	out := Population{Generation: pop.Generation, Individuals: make([]Individual, len(sets)), Evaluated: true}
	for i := range sets {
		out.Individuals[i] = Individual{Params: sets[i].Clone(), Fitness: scores[i]}
	}
	return out, nil
}

// Evolve breeds the next generation from an evaluated population. The best
// individual survives unchanged; the rest come from tournament selection,
// uniform crossover and mutation. An empty population is reseeded at random.
func (g *Genetic) Evolve(pop Population, rng *rand.Rand) Population {
	if len(pop.Individuals) == 0 {
		next := g.Initial(rng)
		next.Generation = pop.Generation + 1
		return next
	}
	next := Population{
		Generation:  pop.Generation + 1,
		Individuals: make([]Individual, 0, g.cfg.PopulationSize),
	}
	elite := pop.Best()
	next.Individuals = append(next.Individuals, Individual{Params: elite.Params.Clone()})

	for len(next.Individuals) < g.cfg.PopulationSize {
		p1 := g.tournament(pop, rng)
		p2 := g.tournament(pop, rng)
		child := g.mutate(g.crossover(p1.Params, p2.Params, rng), rng)
		next.Individuals = append(next.Individuals, Individual{Params: child})
	}
	return next
}

// tournament picks two individuals at random; the fitter one wins
func (g *Genetic) tournament(pop Population, rng *rand.Rand) Individual {
	a := pop.Individuals[rng.IntN(len(pop.Individuals))]
	b := pop.Individuals[rng.IntN(len(pop.Individuals))]
	if b.Fitness > a.Fitness {
		return b
	}
	return a
}

func (g *Genetic) crossover(p1, p2 core.ParameterSet, rng *rand.Rand) core.ParameterSet {
	child := make(core.ParameterSet, len(g.genes))
	for _, gene := range g.genes {
		if rng.Float64() < 0.5 {
			child[gene.Name] = p1[gene.Name]
		} else {
			child[gene.Name] = p2[gene.Name]
		}
	}
	return child
}

func (g *Genetic) mutate(params core.ParameterSet, rng *rand.Rand) core.ParameterSet {
	for _, gene := range g.genes {
		if rng.Float64() < g.cfg.MutationRate {
			params[gene.Name] = gene.random(rng)
		}
	}
	return params
}

// Optimize runs the configured number of generations and returns the best
// individual seen in any generation.
func (g *Genetic) Optimize(ctx context.Context, objective Objective) (*Result, error) {
	started := time.Now()
	rng := g.NewRand()

	g.logger.Info("starting genetic optimization",
		zap.Int("population", g.cfg.PopulationSize),
		zap.Int("generations", g.cfg.Generations),
		zap.Float64("mutation_rate", g.cfg.MutationRate),
		zap.Uint64("seed", g.cfg.Seed),
	)

	res := &Result{
		ID:        uuid.NewString(),
		Method:    MethodGenetic,
		BestScore: math.Inf(-1),
	}
	var all []Candidate
	pop := g.Initial(rng)

	for gen := 0; gen < g.cfg.Generations; gen++ {
		evaluated, err := g.Evaluate(ctx, pop, objective)
		if err != nil {
			return nil, fmt.Errorf("generation %d: %w", gen+1, err)
		}
		res.Evaluated += len(evaluated.Individuals)

		best := evaluated.Best()
		if res.Best == nil || best.Fitness > res.BestScore {
			res.Best = best.Params.Clone()
			res.BestScore = best.Fitness
		}
		for _, ind := range evaluated.Individuals {
			all = append(all, Candidate{Params: ind.Params, Score: ind.Fitness})
		}
		stats := evaluated.summary()
		res.History = append(res.History, stats)

		g.logger.Debug("generation complete",
			zap.Int("generation", stats.Generation),
			zap.Float64("best_score", stats.Best),
			zap.Float64("mean_score", stats.Mean),
		)

		if gen < g.cfg.Generations-1 {
			pop = g.Evolve(evaluated, rng)
		}
	}

	res.Top = topCandidates(all, g.topN)
	if err := g.finish(res, started); err != nil {
		return nil, err
	}
	return res, nil
}

func invalid(format string, args ...any) error {
	return core.WrapError(core.ErrConfigInvalid, fmt.Errorf(format, args...))
}
