package store

import (
    "context"
    "fmt"
    "sync"

    "fleetopt/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
    mu     sync.Mutex
    routes map[string]model.Route // id -> route
    order  []string               // ids in save order
}

func NewMemory() *Memory {
    return &Memory{routes: map[string]model.Route{}}
}

func (m *Memory) SaveRoute(ctx context.Context, r model.Route) error {
    m.mu.Lock(); defer m.mu.Unlock()
    if _, ok := m.routes[r.ID]; !ok {
        m.order = append(m.order, r.ID)
    }
    m.routes[r.ID] = r
    return nil
}

func (m *Memory) GetRoute(ctx context.Context, id string) (model.Route, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    r, ok := m.routes[id]
    if !ok { return model.Route{}, fmt.Errorf("route %s: %w", id, ErrNotFound) }
    return r, nil
}

func (m *Memory) ListRoutes(ctx context.Context, limit int) ([]model.Route, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    limit = clampLimit(limit)
    start := 0
    if len(m.order) > limit { start = len(m.order) - limit }
    out := make([]model.Route, 0, len(m.order)-start)
    for _, id := range m.order[start:] {
        out = append(out, m.routes[id])
    }
    return out, nil
}

func (m *Memory) UpdateRouteStatus(ctx context.Context, id string, next model.RouteStatus) (model.Route, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    r, ok := m.routes[id]
    if !ok { return model.Route{}, fmt.Errorf("route %s: %w", id, ErrNotFound) }
    st, err := r.Status.Advance(next)
    if err != nil { return r, err }
    r.Status = st
    m.routes[id] = r
    return r, nil
}

func (m *Memory) RouteStats(ctx context.Context) (model.RouteStats, error) {
    m.mu.Lock()
    all := make([]model.Route, 0, len(m.order))
    for _, id := range m.order { all = append(all, m.routes[id]) }
    m.mu.Unlock()
    return Aggregate(all), nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
