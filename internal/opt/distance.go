package opt

import (
	"math"
	"sync"

	"fleetopt/internal/model"
)

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// Haversine returns the great-circle distance in kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

type pairKey struct{ a, b string }

// pairEntry remembers the coordinates a distance was computed from, in key
// order, so a reused name with moved coordinates is recomputed.
type pairEntry struct {
	a, b [2]float64
	d    float64
}

func coords(l model.Location) [2]float64 { return [2]float64{l.Latitude, l.Longitude} }

func keyOf(a, b model.Location) (pairKey, [2]float64, [2]float64) {
	if b.Name < a.Name {
		a, b = b, a
	}
	return pairKey{a.Name, b.Name}, coords(a), coords(b)
}

// DistanceModel memoizes pairwise distances by unordered location-name pair.
// An entry is only reused while both locations keep the coordinates it was
// computed from. Entries are never evicted. Safe for concurrent use.
type DistanceModel struct {
	mu    sync.RWMutex
	cache map[pairKey]pairEntry
}

func NewDistanceModel() *DistanceModel {
	return &DistanceModel{cache: map[pairKey]pairEntry{}}
}

// Distance returns the cached Haversine distance between a and b in km.
func (m *DistanceModel) Distance(a, b model.Location) float64 {
	if a.Name == b.Name && coords(a) == coords(b) {
		return 0
	}
	k, ca, cb := keyOf(a, b)
	m.mu.RLock()
	e, ok := m.cache[k]
	m.mu.RUnlock()
	if ok && e.a == ca && e.b == cb {
		return e.d
	}
	d := Haversine(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	m.mu.Lock()
	m.cache[k] = pairEntry{a: ca, b: cb, d: d}
	m.mu.Unlock()
	return d
}

// Len reports the number of cached pairs.
func (m *DistanceModel) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.cache)
}

// Matrix is a dense symmetric distance table indexed like the point slice
// it was built from.
type Matrix [][]float64

// At returns the distance between points i and j.
func (mx Matrix) At(i, j int) float64 { return mx[i][j] }

// PathLength sums consecutive legs of order, starting at order[0].
func (mx Matrix) PathLength(order []int) float64 {
	total := 0.0
	for i := 0; i+1 < len(order); i++ {
		total += mx[order[i]][order[i+1]]
	}
	return total
}

// BuildMatrix returns all pairwise distances for points, filling the cache.
func (m *DistanceModel) BuildMatrix(points []model.Location) Matrix {
	n := len(points)
	mx := make(Matrix, n)
	for i := range mx {
		mx[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := m.Distance(points[i], points[j])
			mx[i][j] = d
			mx[j][i] = d
		}
	}
	return mx
}
