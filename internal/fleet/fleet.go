// Package fleet holds the vehicle roster used for route assignment.
package fleet

import (
	"errors"
	"fmt"
	"sync"

	"fleetopt/internal/model"
)

var (
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrInvalidStatus   = errors.New("invalid vehicle status")
	ErrInvalidLoad     = errors.New("invalid vehicle load")
)

// Roster is an in-memory, insertion-ordered vehicle registry.
type Roster struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]model.Vehicle
}

func NewRoster(vehicles ...model.Vehicle) *Roster {
	r := &Roster{byID: map[string]model.Vehicle{}}
	for _, v := range vehicles {
		r.Put(v)
	}
	return r
}

// Put adds or replaces a vehicle. New vehicles go to the end of the list.
func (r *Roster) Put(v model.Vehicle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[v.ID]; !ok {
		r.order = append(r.order, v.ID)
	}
	r.byID[v.ID] = v
}

func (r *Roster) Get(id string) (model.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.byID[id]
	if !ok {
		return model.Vehicle{}, fmt.Errorf("%w: %s", ErrVehicleNotFound, id)
	}
	return v, nil
}

// List returns vehicles in insertion order.
func (r *Roster) List() []model.Vehicle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Vehicle, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Select returns the vehicles with the given ids, in the order given. An
// empty id list selects the whole roster.
func (r *Roster) Select(ids []string) ([]model.Vehicle, error) {
	if len(ids) == 0 {
		return r.List(), nil
	}
	out := make([]model.Vehicle, 0, len(ids))
	for _, id := range ids {
		v, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Update is a partial vehicle change; nil fields are left alone.
type Update struct {
	Status      *model.VehicleStatus `json:"status,omitempty"`
	CurrentLoad *float64             `json:"current_load,omitempty"`
}

func (r *Roster) Update(id string, u Update) (model.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.byID[id]
	if !ok {
		return model.Vehicle{}, fmt.Errorf("%w: %s", ErrVehicleNotFound, id)
	}
	if u.Status != nil {
		if !u.Status.Valid() {
			return v, fmt.Errorf("%w: %q", ErrInvalidStatus, *u.Status)
		}
		v.Status = *u.Status
	}
	if u.CurrentLoad != nil {
		if *u.CurrentLoad < 0 || *u.CurrentLoad > v.Capacity {
			return v, fmt.Errorf("%w: %v not in [0, %v]", ErrInvalidLoad, *u.CurrentLoad, v.Capacity)
		}
		v.CurrentLoad = *u.CurrentLoad
	}
	r.byID[id] = v
	return v, nil
}

// StatusCounts tallies vehicles by status. Every known status is present.
func (r *Roster) StatusCounts() map[model.VehicleStatus]int {
	counts := map[model.VehicleStatus]int{
		model.VehicleAvailable:   0,
		model.VehicleInTransit:   0,
		model.VehicleMaintenance: 0,
	}
	for _, v := range r.List() {
		counts[v.Status]++
	}
	return counts
}
