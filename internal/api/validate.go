package api

import (
    "encoding/json"
    "errors"

    "fleetopt/internal/model"
)

// locationRef accepts either a catalog location name or a full location
// object.
type locationRef struct {
    model.Location
    byName bool
}

func (l *locationRef) UnmarshalJSON(b []byte) error {
    var name string
    if err := json.Unmarshal(b, &name); err == nil {
        *l = locationRef{Location: model.Location{Name: name}, byName: true}
        return nil
    }
    l.byName = false
    return json.Unmarshal(b, &l.Location)
}

type optimizeRequest struct {
    Start        *locationRef  `json:"start"`
    Destinations []locationRef `json:"destinations"`
    VehicleID    string        `json:"vehicle_id"`
    Algorithm    string        `json:"algorithm"`
}

type multiRequest struct {
    Start        *locationRef  `json:"start"`
    Destinations []locationRef `json:"destinations"`
    VehicleIDs   []string      `json:"vehicle_ids"`
}

func validateStops(start *locationRef, destinations []locationRef) error {
    if start == nil || (start.byName && start.Name == "") {
        return errors.New("missing required field: start")
    }
    if len(destinations) == 0 {
        return errors.New("missing required field: destinations")
    }
    return nil
}

// resolve looks names up in the catalog; explicit objects pass through.
func (s *Server) resolve(ref locationRef) (model.Location, bool) {
    if !ref.byName {
        return ref.Location, true
    }
    for _, l := range s.Locations {
        if l.Name == ref.Name { return l, true }
    }
    return model.Location{}, false
}

// resolveStops resolves the start and destinations. Unknown destination
// names are skipped. The returned message is non-empty when the start is
// unknown or no destination resolved.
func (s *Server) resolveStops(start *locationRef, refs []locationRef) (model.Location, []model.Location, string) {
    origin, ok := s.resolve(*start)
    if !ok {
        return origin, nil, "Start location '" + start.Name + "' not found"
    }
    dests := make([]model.Location, 0, len(refs))
    for _, ref := range refs {
        if l, ok := s.resolve(ref); ok {
            dests = append(dests, l)
        } else {
            s.Log.WithField("destination", ref.Name).Debug("skipping unknown destination")
        }
    }
    if len(dests) == 0 {
        return origin, nil, "No valid destinations found"
    }
    return origin, dests, ""
}
