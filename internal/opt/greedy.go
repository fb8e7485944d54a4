package opt

import (
	"context"
	"math"
)

// NearestNeighbor always moves to the closest unvisited destination.
// Ties go to the destination that came first in the input.
type NearestNeighbor struct{}

func (NearestNeighbor) Algorithm() Algorithm { return AlgorithmNearestNeighbor }

func (NearestNeighbor) Sequence(_ context.Context, mx Matrix) (Tour, error) {
	if t, ok := trivialTour(mx); ok {
		return t, nil
	}
	n := len(mx)
	visited := make([]bool, n)
	visited[0] = true
	order := make([]int, 1, n)
	total := 0.0
	cur := 0
	for len(order) < n {
		best, bestDist := -1, math.Inf(1)
		for c := 1; c < n; c++ {
			if visited[c] {
				continue
			}
			if d := mx.At(cur, c); d < bestDist {
				best, bestDist = c, d
			}
		}
		visited[best] = true
		order = append(order, best)
		total += bestDist
		cur = best
	}
	return Tour{Order: order, Distance: total, Stats: SearchStats{InitialBest: total, FinalBest: total}}, nil
}

// WeightedGreedy scores each candidate as g + 0.5*h, where g is its distance
// from the current position and h its mean distance to the other unvisited
// destinations. Ties go to the earlier destination.
type WeightedGreedy struct {
	// Weight scales the lookahead term; zero means 0.5.
	Weight float64
}

func (WeightedGreedy) Algorithm() Algorithm { return AlgorithmWeightedGreedy }

func (w WeightedGreedy) Sequence(_ context.Context, mx Matrix) (Tour, error) {
	if t, ok := trivialTour(mx); ok {
		return t, nil
	}
	weight := w.Weight
	if weight == 0 {
		weight = 0.5
	}
	n := len(mx)
	visited := make([]bool, n)
	visited[0] = true
	remaining := n - 1
	order := make([]int, 1, n)
	total := 0.0
	cur := 0
	for remaining > 0 {
		best, bestScore, bestG := -1, math.Inf(1), 0.0
		for c := 1; c < n; c++ {
			if visited[c] {
				continue
			}
			g := mx.At(cur, c)
			h := 0.0
			if remaining > 1 {
				sum := 0.0
				for r := 1; r < n; r++ {
					if r != c && !visited[r] {
						sum += mx.At(c, r)
					}
				}
				h = sum / float64(remaining-1)
			}
			if score := g + weight*h; score < bestScore {
				best, bestScore, bestG = c, score, g
			}
		}
		visited[best] = true
		remaining--
		order = append(order, best)
		total += bestG
		cur = best
	}
	return Tour{Order: order, Distance: total, Stats: SearchStats{InitialBest: total, FinalBest: total}}, nil
}
