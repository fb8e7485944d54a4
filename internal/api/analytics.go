package api

import (
    "net/http"

    "fleetopt/internal/inventory"
    "fleetopt/internal/model"
    "fleetopt/internal/store"
)

// routeEfficiencyWindow is how many recent routes the efficiency view shows.
const routeEfficiencyWindow = 10

func (s *Server) warehouseStats() ([]inventory.Utilization, error) {
    whs := s.Inventory.Warehouses()
    out := make([]inventory.Utilization, 0, len(whs))
    for _, wh := range whs {
        u, err := s.Inventory.WarehouseUtilization(wh.ID)
        if err != nil { return nil, err }
        out = append(out, u)
    }
    return out, nil
}

// AnalyticsHandler reports route, fleet, inventory and warehouse KPIs.
func (s *Server) AnalyticsHandler(w http.ResponseWriter, r *http.Request) {
    routes, err := s.Store.RouteStats(r.Context())
    if err != nil { s.fail(w, r, "Route stats failed", err); return }
    whs, err := s.warehouseStats()
    if err != nil { s.fail(w, r, "Warehouse stats failed", err); return }
    counts := s.Fleet.StatusCounts()
    health := s.Inventory.Health()
    writeJSON(w, http.StatusOK, map[string]any{
        "routes": routes,
        "vehicles": map[string]int{
            "total":       len(s.Fleet.List()),
            "available":   counts[model.VehicleAvailable],
            "in_use":      counts[model.VehicleInTransit],
            "maintenance": counts[model.VehicleMaintenance],
        },
        "inventory": map[string]any{
            "total_items":             health.TotalItems,
            "low_stock":               health.LowStockItems,
            "out_of_stock":            health.OutOfStockItems,
            "stock_health_percentage": health.HealthPercentage,
        },
        "warehouses": whs,
    })
}

func (s *Server) RouteEfficiencyHandler(w http.ResponseWriter, r *http.Request) {
    routes, err := s.Store.ListRoutes(r.Context(), routeEfficiencyWindow)
    if err != nil { s.fail(w, r, "List routes failed", err); return }
    writeJSON(w, http.StatusOK, map[string]any{"route_history": store.History(routes)})
}
