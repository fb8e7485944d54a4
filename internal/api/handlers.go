package api

import (
    "context"
    "fmt"
    "net/http"
    "strings"
    "time"

    "github.com/sirupsen/logrus"

    "fleetopt/internal/fleet"
    "fleetopt/internal/model"
)

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]string{
        "status":    "healthy",
        "timestamp": time.Now().UTC().Format(time.RFC3339),
        "service":   "fleetopt",
    })
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
    defer cancel()
    if err := s.Store.Ping(ctx); err != nil { writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path); return }
    writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) LocationsHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{"locations": s.Locations})
}

type vehicleView struct {
    model.Vehicle
    AvailableCapacity float64 `json:"available_capacity"`
}

func viewVehicle(v model.Vehicle) vehicleView {
    return vehicleView{Vehicle: v, AvailableCapacity: v.AvailableCapacity()}
}

func (s *Server) VehiclesHandler(w http.ResponseWriter, r *http.Request) {
    list := s.Fleet.List()
    out := make([]vehicleView, len(list))
    for i, v := range list { out[i] = viewVehicle(v) }
    writeJSON(w, http.StatusOK, map[string]any{"vehicles": out})
}

// VehicleUpdateHandler handles PATCH /v1/vehicles/{id}
func (s *Server) VehicleUpdateHandler(w http.ResponseWriter, r *http.Request) {
    var req fleet.Update
    if err := decodeJSON(w, r, &req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    v, err := s.Fleet.Update(r.PathValue("id"), req)
    if err != nil { s.fail(w, r, "Update vehicle failed", err); return }
    writeJSON(w, http.StatusOK, viewVehicle(v))
}

// OptimizeHandler handles POST /v1/optimize
func (s *Server) OptimizeHandler(w http.ResponseWriter, r *http.Request) {
    var req optimizeRequest
    if err := decodeJSON(w, r, &req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validateStops(req.Start, req.Destinations); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid request", err.Error(), r.URL.Path)
        return
    }
    origin, dests, msg := s.resolveStops(req.Start, req.Destinations)
    if msg != "" { writeProblem(w, http.StatusNotFound, msg, "", r.URL.Path); return }

    var vehicle *model.Vehicle
    if req.VehicleID != "" {
        v, err := s.Fleet.Get(req.VehicleID)
        if err != nil { s.fail(w, r, "Vehicle not found", err); return }
        vehicle = &v
    }

    route, err := s.Optimizer.OptimizeRoute(r.Context(), origin, dests, vehicle, req.Algorithm)
    if err != nil { s.fail(w, r, "Optimize failed", err); return }
    if err := s.Store.SaveRoute(r.Context(), route); err != nil { s.fail(w, r, "Save route failed", err); return }
    s.publishPlanned(route)
    writeJSON(w, http.StatusOK, map[string]any{"success": true, "route": route})
}

// OptimizeMultiHandler handles POST /v1/optimize/multi
func (s *Server) OptimizeMultiHandler(w http.ResponseWriter, r *http.Request) {
    var req multiRequest
    if err := decodeJSON(w, r, &req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if err := validateStops(req.Start, req.Destinations); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid request", err.Error(), r.URL.Path)
        return
    }
    origin, dests, msg := s.resolveStops(req.Start, req.Destinations)
    if msg != "" { writeProblem(w, http.StatusNotFound, msg, "", r.URL.Path); return }

    vehicles, err := s.Fleet.Select(req.VehicleIDs)
    if err != nil { s.fail(w, r, "Vehicle not found", err); return }

    res, err := s.Optimizer.OptimizeMultiVehicle(r.Context(), origin, dests, vehicles)
    if err != nil { s.fail(w, r, "Optimize failed", err); return }
    // Save every route before announcing any; a partial failure names the
    // routes already stored.
    saved := make([]string, 0, len(res.Routes))
    for _, route := range res.Routes {
        if err := s.Store.SaveRoute(r.Context(), route); err != nil {
            s.Log.WithError(err).WithField("saved", saved).Error("Save route failed")
            writeProblem(w, statusFor(err), "Save route failed",
                fmt.Sprintf("%v (saved: %s)", err, strings.Join(saved, ", ")), r.URL.Path)
            return
        }
        saved = append(saved, route.ID)
    }
    for _, route := range res.Routes { s.publishPlanned(route) }
    if res.Routes == nil { res.Routes = []model.Route{} }
    if res.Unassigned == nil { res.Unassigned = []model.Location{} }
    writeJSON(w, http.StatusOK, res)
}

func (s *Server) publishPlanned(route model.Route) {
    s.publish(EventRoutePlanned, route.ID, map[string]any{
        "vehicle":   route.Vehicle.ID,
        "stops":     len(route.Stops),
        "distance":  route.TotalDistance,
        "algorithm": route.Algorithm,
    })
}

func (s *Server) OptimizerConfigHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, s.Optimizer.Config())
}

// OptimizerRunsHandler reports search statistics per algorithm for one day
// (?date=YYYY-MM-DD, default today).
func (s *Server) OptimizerRunsHandler(w http.ResponseWriter, r *http.Request) {
    date := r.URL.Query().Get("date")
    if date == "" {
        date = time.Now().Format("2006-01-02")
    } else if _, err := time.Parse("2006-01-02", date); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid date", "date must be YYYY-MM-DD", r.URL.Path)
        return
    }
    runs := s.Optimizer.Runs().Runs(date)
    s.Log.WithFields(logrus.Fields{"date": date, "algorithms": len(runs)}).Debug("optimizer runs")
    writeJSON(w, http.StatusOK, map[string]any{"date": date, "runs": runs})
}
