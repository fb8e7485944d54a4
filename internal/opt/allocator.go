package opt

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"fleetopt/internal/metrics"
	"fleetopt/internal/model"
)

// MultiResult is the outcome of a multi-vehicle allocation. Unassigned holds
// the trailing destinations no available vehicle received.
type MultiResult struct {
	Routes     []model.Route    `json:"routes"`
	Unassigned []model.Location `json:"unassigned"`
}

// AllocationCounts returns how many destinations each vehicle receives.
//
// The split is computed over the whole roster: vehicle i is owed
// n/len(vehicles) destinations plus one if i < n%len(vehicles). Vehicles that
// are not available get zero and their share is not passed on, so some
// destinations can stay unassigned when the roster has unavailable vehicles.
func AllocationCounts(n int, vehicles []model.Vehicle) []int {
	counts := make([]int, len(vehicles))
	if n <= 0 || len(vehicles) == 0 {
		return counts
	}
	base, rem := n/len(vehicles), n%len(vehicles)
	for i, v := range vehicles {
		if !v.Available() {
			continue
		}
		counts[i] = base
		if i < rem {
			counts[i]++
		}
	}
	return counts
}

// OptimizeMultiVehicle splits destinations into consecutive chunks, one per
// available vehicle, and sequences each chunk with the genetic search.
func (o *Optimizer) OptimizeMultiVehicle(ctx context.Context, origin model.Location, destinations []model.Location, vehicles []model.Vehicle) (MultiResult, error) {
	if len(vehicles) == 0 || len(destinations) == 0 {
		return MultiResult{}, nil
	}
	if err := ValidateInput(origin, destinations, nil); err != nil {
		return MultiResult{}, err
	}

	var res MultiResult
	cursor := 0
	for i, n := range AllocationCounts(len(destinations), vehicles) {
		if n == 0 {
			continue
		}
		chunk := destinations[cursor : cursor+n]
		cursor += n
		v := vehicles[i]
		route, err := o.OptimizeRoute(ctx, origin, chunk, &v, string(AlgorithmGenetic))
		if err != nil {
			return MultiResult{}, fmt.Errorf("vehicle %s: %w", v.ID, err)
		}
		res.Routes = append(res.Routes, route)
	}
	if cursor < len(destinations) {
		res.Unassigned = append([]model.Location(nil), destinations[cursor:]...)
		metrics.UnassignedDestinations.Add(float64(len(res.Unassigned)))
		o.log.WithFields(logrus.Fields{
			"unassigned": len(res.Unassigned),
			"vehicles":   len(vehicles),
		}).Warn("destinations left without a vehicle")
	}
	return res, nil
}
