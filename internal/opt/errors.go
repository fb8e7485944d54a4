package opt

import (
	"fmt"
	"math"

	"fleetopt/internal/model"
)

// ValidationError reports malformed optimizer input. Field names the
// offending input, e.g. "destinations[2].latitude".
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func validateLocation(field string, l model.Location) error {
	if l.Name == "" {
		return invalid(field+".name", "must not be empty")
	}
	if !finite(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return invalid(field+".latitude", "%v out of range [-90, 90]", l.Latitude)
	}
	if !finite(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return invalid(field+".longitude", "%v out of range [-180, 180]", l.Longitude)
	}
	return nil
}

// ValidateInput checks coordinates, names and the optional vehicle.
func ValidateInput(origin model.Location, destinations []model.Location, vehicle *model.Vehicle) error {
	if err := validateLocation("start", origin); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(destinations))
	for i, d := range destinations {
		field := fmt.Sprintf("destinations[%d]", i)
		if err := validateLocation(field, d); err != nil {
			return err
		}
		if d.Name == origin.Name {
			return invalid(field+".name", "%q is also the start location", d.Name)
		}
		if _, dup := seen[d.Name]; dup {
			return invalid(field+".name", "duplicate destination %q", d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	if vehicle != nil {
		if !finite(vehicle.Capacity) || vehicle.Capacity < 0 {
			return invalid("vehicle.capacity", "%v must be a non-negative number", vehicle.Capacity)
		}
		if !finite(vehicle.CurrentLoad) || vehicle.CurrentLoad < 0 {
			return invalid("vehicle.current_load", "%v must be a non-negative number", vehicle.CurrentLoad)
		}
	}
	return nil
}
