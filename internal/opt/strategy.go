package opt

import (
	"context"
	"strings"
)

// Algorithm is the wire label a caller uses to pick a search strategy.
//
// The labels "dijkstra" and "astar" are kept for API compatibility. Neither
// runs the classical graph algorithm: both are greedy nearest-neighbor
// variants with different scoring.
type Algorithm string

const (
	AlgorithmNearestNeighbor Algorithm = "dijkstra"
	AlgorithmWeightedGreedy  Algorithm = "astar"
	AlgorithmGenetic         Algorithm = "genetic"
)

// ParseAlgorithm resolves a label case-insensitively. Unknown, empty and
// padded labels resolve to the genetic search.
func ParseAlgorithm(s string) Algorithm {
	switch Algorithm(strings.ToLower(s)) {
	case AlgorithmNearestNeighbor:
		return AlgorithmNearestNeighbor
	case AlgorithmWeightedGreedy:
		return AlgorithmWeightedGreedy
	default:
		return AlgorithmGenetic
	}
}

// Tour is a visiting order over matrix indices. Order[0] is always the
// origin (index 0); indices 1..n are the destinations in input order.
type Tour struct {
	Order    []int
	Distance float64
	Stats    SearchStats
}

// SearchStats describes one search run. Only the genetic search fills the
// generation fields.
type SearchStats struct {
	Generations  int     `json:"generations"`
	Improvements int     `json:"improvements"`
	InitialBest  float64 `json:"initialBest"`
	FinalBest    float64 `json:"finalBest"`
}

// Strategy sequences the destinations of a distance matrix whose row 0 is
// the origin.
type Strategy interface {
	Algorithm() Algorithm
	Sequence(ctx context.Context, mx Matrix) (Tour, error)
}

// trivialTour handles the zero and one destination cases shared by every
// strategy.
func trivialTour(mx Matrix) (Tour, bool) {
	switch len(mx) {
	case 0, 1:
		return Tour{Order: []int{0}}, true
	case 2:
		d := mx.At(0, 1)
		return Tour{Order: []int{0, 1}, Distance: d, Stats: SearchStats{InitialBest: d, FinalBest: d}}, true
	}
	return Tour{}, false
}
