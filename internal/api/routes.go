package api

import (
    "encoding/json"
    "fmt"
    "net/http"
    "time"

    "fleetopt/internal/geo"
    "fleetopt/internal/model"
)

type routeSummary struct {
    ID            string            `json:"id"`
    VehicleID     string            `json:"vehicle_id"`
    VehicleName   string            `json:"vehicle_name"`
    StopsCount    int               `json:"stops_count"`
    TotalDistance float64           `json:"total_distance"`
    EstimatedTime float64           `json:"estimated_time"`
    Status        model.RouteStatus `json:"status"`
    Algorithm     string            `json:"algorithm_used"`
    CreatedAt     time.Time         `json:"created_at"`
}

func summarize(r model.Route) routeSummary {
    return routeSummary{
        ID:            r.ID,
        VehicleID:     r.Vehicle.ID,
        VehicleName:   r.Vehicle.Name,
        StopsCount:    len(r.Stops),
        TotalDistance: r.TotalDistance,
        EstimatedTime: r.EstimatedTime,
        Status:        r.Status,
        Algorithm:     r.Algorithm,
        CreatedAt:     r.CreatedAt,
    }
}

// RoutesIndexHandler lists the most recent routes, oldest first (?limit=, default 100).
func (s *Server) RoutesIndexHandler(w http.ResponseWriter, r *http.Request) {
    limit, err := intQuery(r, "limit", 100, 1000)
    if err != nil { writeProblem(w, http.StatusBadRequest, "Invalid limit", err.Error(), r.URL.Path); return }
    routes, err := s.Store.ListRoutes(r.Context(), limit)
    if err != nil { s.fail(w, r, "List routes failed", err); return }
    out := make([]routeSummary, len(routes))
    for i, rt := range routes { out[i] = summarize(rt) }
    writeJSON(w, http.StatusOK, map[string]any{"routes": out, "count": len(out)})
}

func (s *Server) RouteHandler(w http.ResponseWriter, r *http.Request) {
    route, err := s.Store.GetRoute(r.Context(), r.PathValue("id"))
    if err != nil { s.fail(w, r, "Route not found", err); return }
    writeJSON(w, http.StatusOK, route)
}

// RouteStatusHandler handles PATCH /v1/routes/{id} with {"status": ...}.
// Status only moves forward.
func (s *Server) RouteStatusHandler(w http.ResponseWriter, r *http.Request) {
    var req struct {
        Status model.RouteStatus `json:"status"`
    }
    if err := decodeJSON(w, r, &req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if req.Status == "" { writeProblem(w, http.StatusBadRequest, "Invalid request", "missing required field: status", r.URL.Path); return }
    id := r.PathValue("id")
    route, err := s.Store.UpdateRouteStatus(r.Context(), id, req.Status)
    if err != nil { s.fail(w, r, "Update route failed", err); return }
    s.publish(EventRouteStatus, id, map[string]any{"status": route.Status})
    writeJSON(w, http.StatusOK, route)
}

func (s *Server) RouteGeoJSONHandler(w http.ResponseWriter, r *http.Request) {
    route, err := s.Store.GetRoute(r.Context(), r.PathValue("id"))
    if err != nil { s.fail(w, r, "Route not found", err); return }
    b, err := geo.MarshalRoute(route)
    if err != nil { s.fail(w, r, "Encode GeoJSON failed", err); return }
    w.Header().Set("Content-Type", "application/geo+json")
    _, _ = w.Write(b)
}

// RouteEventsHandler streams events of one route as Server-Sent Events,
// with a heartbeat every s.Heartbeat.
func (s *Server) RouteEventsHandler(w http.ResponseWriter, r *http.Request) {
    id := r.PathValue("id")
    if _, err := s.Store.GetRoute(r.Context(), id); err != nil { s.fail(w, r, "Route not found", err); return }
    flusher, ok := w.(http.Flusher)
    if !ok { writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path); return }
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("Connection", "keep-alive")

    ch := s.Broker.Subscribe(id)
    defer s.Broker.Unsubscribe(id, ch)
    heartbeat := func() {
        fmt.Fprintf(w, "event: heartbeat\n")
        fmt.Fprintf(w, "data: {\"routeId\":%q,\"ts\":%q}\n\n", id, time.Now().UTC().Format(time.RFC3339))
        flusher.Flush()
    }
    heartbeat()

    every := s.Heartbeat
    if every <= 0 { every = 15 * time.Second }
    ticker := time.NewTicker(every)
    defer ticker.Stop()
    for {
        select {
        case <-r.Context().Done():
            return
        case evt, ok := <-ch:
            if !ok { return }
            b, _ := json.Marshal(evt)
            fmt.Fprintf(w, "event: %s\n", evt.Type)
            fmt.Fprintf(w, "data: %s\n\n", b)
            flusher.Flush()
        case <-ticker.C:
            heartbeat()
        }
    }
}
