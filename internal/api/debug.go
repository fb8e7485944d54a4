package api

import (
    "net/http"
    "time"

    "fleetopt/internal/buildinfo"
)

// DebugJSON reports build metadata, the redacted configuration and the
// distance cache size.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]any{
        "build":          buildinfo.Info(),
        "time":           time.Now().UTC().Format(time.RFC3339),
        "config":         s.Config.Redacted(),
        "distanceCache":  s.Optimizer.Distances().Len(),
        "vehicles":       len(s.Fleet.List()),
        "inventoryItems": len(s.Inventory.Items()),
    })
}
