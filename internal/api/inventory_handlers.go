package api

import (
    "net/http"

    "fleetopt/internal/model"
)

type itemView struct {
    model.InventoryItem
    Status     model.StockStatus `json:"status"`
    IsLowStock bool              `json:"is_low_stock"`
}

func viewItem(it model.InventoryItem) itemView {
    return itemView{InventoryItem: it, Status: it.StockStatus(), IsLowStock: it.IsLowStock()}
}

func (s *Server) InventoryHandler(w http.ResponseWriter, r *http.Request) {
    items := s.Inventory.Items()
    out := make([]itemView, len(items))
    for i, it := range items { out[i] = viewItem(it) }
    writeJSON(w, http.StatusOK, map[string]any{
        "items":              out,
        "total_items":        len(items),
        "low_stock_count":    len(s.Inventory.LowStock()),
        "out_of_stock_count": len(s.Inventory.OutOfStock()),
    })
}

func (s *Server) InventoryAlertsHandler(w http.ResponseWriter, r *http.Request) {
    alerts := s.Inventory.Alerts()
    critical, warning := 0, 0
    for _, a := range alerts {
        switch a.Severity {
        case "critical":
            critical++
        case "warning":
            warning++
        }
    }
    writeJSON(w, http.StatusOK, map[string]any{
        "alerts":         alerts,
        "total_alerts":   len(alerts),
        "critical_count": critical,
        "warning_count":  warning,
    })
}

func (s *Server) InventoryItemHandler(w http.ResponseWriter, r *http.Request) {
    it, err := s.Inventory.Item(r.PathValue("id"))
    if err != nil { s.fail(w, r, "Item not found", err); return }
    writeJSON(w, http.StatusOK, viewItem(it))
}

// InventoryUpdateHandler applies {"quantity_change": n}; negative values
// are consumption and are recorded as demand.
func (s *Server) InventoryUpdateHandler(w http.ResponseWriter, r *http.Request) {
    var req struct {
        QuantityChange int `json:"quantity_change"`
    }
    if err := decodeJSON(w, r, &req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    it, err := s.Inventory.UpdateQuantity(r.PathValue("id"), req.QuantityChange)
    if err != nil { s.fail(w, r, "Failed to update inventory", err); return }
    writeJSON(w, http.StatusOK, map[string]any{
        "success": true,
        "item": map[string]any{
            "id":       it.ID,
            "name":     it.Name,
            "quantity": it.Quantity,
            "status":   it.StockStatus(),
        },
    })
}

func (s *Server) InventoryForecastHandler(w http.ResponseWriter, r *http.Request) {
    days, err := intQuery(r, "days", 7, 365)
    if err != nil { writeProblem(w, http.StatusBadRequest, "Invalid days", err.Error(), r.URL.Path); return }
    f, err := s.Inventory.Forecast(r.PathValue("id"), days)
    if err != nil { s.fail(w, r, "Forecast failed", err); return }
    writeJSON(w, http.StatusOK, f)
}

func (s *Server) InventoryPredictHandler(w http.ResponseWriter, r *http.Request) {
    it, err := s.Inventory.Item(r.PathValue("id"))
    if err != nil { s.fail(w, r, "Item not found", err); return }
    res, err := s.Predictor.PredictItem(it.ID, it.Quantity)
    if err != nil { s.fail(w, r, "Prediction failed", err); return }
    writeJSON(w, http.StatusOK, res)
}

func (s *Server) InventoryTurnoverHandler(w http.ResponseWriter, r *http.Request) {
    days, err := intQuery(r, "days", 30, 365)
    if err != nil { writeProblem(w, http.StatusBadRequest, "Invalid days", err.Error(), r.URL.Path); return }
    t, err := s.Inventory.Turnover(r.PathValue("id"), days)
    if err != nil { s.fail(w, r, "Turnover failed", err); return }
    writeJSON(w, http.StatusOK, t)
}

func (s *Server) WarehousesHandler(w http.ResponseWriter, r *http.Request) {
    stats, err := s.warehouseStats()
    if err != nil { s.fail(w, r, "Warehouse stats failed", err); return }
    writeJSON(w, http.StatusOK, map[string]any{"warehouses": stats})
}
