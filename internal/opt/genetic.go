package opt

import (
	"context"
	"math/rand"
	"sort"
	"time"
)

const (
	DefaultPopulationSize = 50
	DefaultGenerations    = 100
	DefaultEliteDivisor   = 5
	DefaultMutationRate   = 0.1
)

// GeneticParams tunes the genetic search. Generations may be zero, in which
// case the best of the initial population is returned.
type GeneticParams struct {
	PopulationSize int     `yaml:"populationSize" json:"populationSize"`
	Generations    int     `yaml:"generations" json:"generations"`
	EliteDivisor   int     `yaml:"eliteDivisor" json:"eliteDivisor"`
	MutationRate   float64 `yaml:"mutationRate" json:"mutationRate"`
}

func DefaultGeneticParams() GeneticParams {
	return GeneticParams{
		PopulationSize: DefaultPopulationSize,
		Generations:    DefaultGenerations,
		EliteDivisor:   DefaultEliteDivisor,
		MutationRate:   DefaultMutationRate,
	}
}

func (p GeneticParams) normalized() GeneticParams {
	if p.PopulationSize < 1 {
		p.PopulationSize = DefaultPopulationSize
	}
	if p.Generations < 0 {
		p.Generations = DefaultGenerations
	}
	if p.EliteDivisor < 1 {
		p.EliteDivisor = DefaultEliteDivisor
	}
	if p.MutationRate < 0 || p.MutationRate > 1 {
		p.MutationRate = DefaultMutationRate
	}
	return p
}

// GeneticSearch evolves a population of destination permutations using
// elitism, ordered crossover and swap mutation. Rand must not be shared
// between goroutines.
type GeneticSearch struct {
	Params GeneticParams
	Rand   *rand.Rand
}

func (*GeneticSearch) Algorithm() Algorithm { return AlgorithmGenetic }

type individual struct {
	genes []int
	dist  float64
}

func chromosomeLength(mx Matrix, genes []int) float64 {
	total := mx.At(0, genes[0])
	for i := 0; i+1 < len(genes); i++ {
		total += mx.At(genes[i], genes[i+1])
	}
	return total
}

func (g *GeneticSearch) Sequence(ctx context.Context, mx Matrix) (Tour, error) {
	if t, ok := trivialTour(mx); ok {
		return t, nil
	}
	p := g.Params.normalized()
	rng := g.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	n := len(mx) - 1
	pop := make([]individual, p.PopulationSize)
	for i := range pop {
		genes := make([]int, n)
		for k := range genes {
			genes[k] = k + 1
		}
		rng.Shuffle(n, func(a, b int) { genes[a], genes[b] = genes[b], genes[a] })
		pop[i] = individual{genes: genes, dist: chromosomeLength(mx, genes)}
	}

	// At least one elite survives each generation so the best distance never
	// regresses, even for populations smaller than EliteDivisor.
	elite := p.PopulationSize / p.EliteDivisor
	if elite < 1 {
		elite = 1
	}
	parents := p.PopulationSize / 2
	if parents < 1 {
		parents = 1
	}

	stats := SearchStats{InitialBest: pop[bestIndex(pop)].dist}
	best := stats.InitialBest
	for gen := 0; gen < p.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return Tour{}, err
		}
		// Fitness is 1/(d+1); ranking on distance gives the same order without
		// the float collisions of the reciprocal.
		sort.SliceStable(pop, func(a, b int) bool { return pop[a].dist < pop[b].dist })

		next := make([]individual, 0, p.PopulationSize)
		next = append(next, pop[:elite]...)
		for len(next) < p.PopulationSize {
			p1 := pop[rng.Intn(parents)]
			p2 := pop[rng.Intn(parents)]
			child := orderedCrossover(p1.genes, p2.genes, rng)
			mutateSwap(child, p.MutationRate, rng)
			next = append(next, individual{genes: child, dist: chromosomeLength(mx, child)})
		}
		pop = next

		stats.Generations++
		if d := pop[bestIndex(pop)].dist; d < best {
			best = d
			stats.Improvements++
		}
	}

	winner := pop[bestIndex(pop)]
	stats.FinalBest = winner.dist
	order := make([]int, 0, n+1)
	order = append(order, 0)
	order = append(order, winner.genes...)
	return Tour{Order: order, Distance: winner.dist, Stats: stats}, nil
}

// bestIndex returns the first individual with the minimum distance.
func bestIndex(pop []individual) int {
	best := 0
	for i := 1; i < len(pop); i++ {
		if pop[i].dist < pop[best].dist {
			best = i
		}
	}
	return best
}

// orderedCrossover copies a random slice [i, j] of p1 into the child, then
// fills the remaining positions left to right with p2's genes in p2 order,
// skipping genes already placed. The result is always a permutation.
func orderedCrossover(p1, p2 []int, rng *rand.Rand) []int {
	n := len(p1)
	child := make([]int, n)
	if n == 1 {
		child[0] = p1[0]
		return child
	}
	i := rng.Intn(n)
	j := i + rng.Intn(n-i)

	placed := make(map[int]bool, n)
	for k := i; k <= j; k++ {
		child[k] = p1[k]
		placed[p1[k]] = true
	}
	src := 0
	for k := 0; k < n; k++ {
		if k >= i && k <= j {
			continue
		}
		for placed[p2[src]] {
			src++
		}
		child[k] = p2[src]
		placed[p2[src]] = true
	}
	return child
}

// mutateSwap swaps two distinct positions with probability rate.
func mutateSwap(genes []int, rate float64, rng *rand.Rand) {
	n := len(genes)
	if n < 2 || rng.Float64() >= rate {
		return
	}
	a := rng.Intn(n)
	b := rng.Intn(n - 1)
	if b >= a {
		b++
	}
	genes[a], genes[b] = genes[b], genes[a]
}
