package model

import (
	"errors"
	"fmt"
	"time"
)

// Location is a named point. Name is the identity key.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "available"
	VehicleInTransit   VehicleStatus = "in_transit"
	VehicleMaintenance VehicleStatus = "maintenance"
)

// Valid reports whether s is a known vehicle status.
func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleAvailable, VehicleInTransit, VehicleMaintenance:
		return true
	}
	return false
}

type Vehicle struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Capacity    float64       `json:"capacity"`
	CurrentLoad float64       `json:"current_load"`
	Status      VehicleStatus `json:"status"`
}

// AvailableCapacity is derived, never stored.
func (v Vehicle) AvailableCapacity() float64 { return v.Capacity - v.CurrentLoad }

// Available reports whether the vehicle can take a route.
func (v Vehicle) Available() bool { return v.Status == VehicleAvailable }

// UnassignedVehicle is attached to routes planned without a vehicle.
func UnassignedVehicle() Vehicle {
	return Vehicle{ID: "V000", Name: "Unassigned", Capacity: 1000, Status: VehicleAvailable}
}

type RouteStatus string

const (
	RoutePlanned    RouteStatus = "planned"
	RouteInProgress RouteStatus = "in_progress"
	RouteCompleted  RouteStatus = "completed"
)

var ErrInvalidTransition = errors.New("invalid route status transition")

// CanAdvanceTo reports whether a route in status s may move to next.
// Status only moves forward: planned -> in_progress -> completed.
func (s RouteStatus) CanAdvanceTo(next RouteStatus) bool {
	switch s {
	case RoutePlanned:
		return next == RouteInProgress
	case RouteInProgress:
		return next == RouteCompleted
	}
	return false
}

// Advance returns next if the transition is allowed.
func (s RouteStatus) Advance(next RouteStatus) (RouteStatus, error) {
	if !s.CanAdvanceTo(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// Route is the result of one optimization call.
type Route struct {
	ID            string      `json:"id"`
	Vehicle       Vehicle     `json:"vehicle"`
	Stops         []Location  `json:"stops"`
	TotalDistance float64     `json:"total_distance"`
	EstimatedTime float64     `json:"estimated_time"`
	Status        RouteStatus `json:"status"`
	Algorithm     string      `json:"algorithm_used"`
	CreatedAt     time.Time   `json:"created_at"`
}

// RouteStats aggregates the route history for analytics views.
type RouteStats struct {
	Total               int            `json:"total"`
	TotalDistanceKm     float64        `json:"total_distance_km"`
	AverageDistanceKm   float64        `json:"average_distance_km"`
	TotalEstimatedHours float64        `json:"total_estimated_hours"`
	ByAlgorithm         map[string]int `json:"by_algorithm"`
	Daily               []DailyStats   `json:"daily"`
}

type DailyStats struct {
	Date            string  `json:"date"`
	Routes          int     `json:"routes"`
	TotalDistanceKm float64 `json:"total_distance_km"`
	AverageDistance float64 `json:"average_distance_km"`
}

// RouteHistoryEntry is one row of the route-efficiency view.
type RouteHistoryEntry struct {
	Date     string  `json:"date"`
	Distance float64 `json:"distance"`
	Time     float64 `json:"time"`
	Stops    int     `json:"stops"`
}
