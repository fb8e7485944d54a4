package store

import (
    "context"
    "errors"

    "fleetopt/internal/model"
)

// Store is the route history used by the API server. The optimizer never
// touches it; handlers save what the optimizer returns.
type Store interface {
    SaveRoute(ctx context.Context, r model.Route) error
    GetRoute(ctx context.Context, id string) (model.Route, error)
    // ListRoutes returns up to limit of the most recent routes, oldest first.
    ListRoutes(ctx context.Context, limit int) ([]model.Route, error)
    // UpdateRouteStatus advances a route's status; only forward moves are allowed.
    UpdateRouteStatus(ctx context.Context, id string, next model.RouteStatus) (model.Route, error)
    RouteStats(ctx context.Context) (model.RouteStats, error)
    Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

const (
    defaultListLimit = 100
    maxListLimit     = 1000
)

func clampLimit(limit int) int {
    if limit <= 0 { return defaultListLimit }
    if limit > maxListLimit { return maxListLimit }
    return limit
}

// History converts routes into route-efficiency rows.
func History(routes []model.Route) []model.RouteHistoryEntry {
    out := make([]model.RouteHistoryEntry, 0, len(routes))
    for _, r := range routes {
        out = append(out, model.RouteHistoryEntry{
            Date:     r.CreatedAt.Format("2006-01-02 15:04"),
            Distance: r.TotalDistance,
            Time:     r.EstimatedTime,
            Stops:    len(r.Stops),
        })
    }
    return out
}
