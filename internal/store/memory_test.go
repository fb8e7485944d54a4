package store

import (
    "context"
    "errors"
    "fmt"
    "testing"
    "time"

    "fleetopt/internal/model"
)

func testRoute(id string, at time.Time, km float64, algo string) model.Route {
    return model.Route{
        ID:            id,
        Vehicle:       model.UnassignedVehicle(),
        Stops:         []model.Location{{Name: "Depot A"}, {Name: "Customer 1"}},
        TotalDistance: km,
        EstimatedTime: km/40 + 0.25,
        Status:        model.RoutePlanned,
        Algorithm:     algo,
        CreatedAt:     at,
    }
}

func TestMemorySaveGetList(t *testing.T) {
    ctx := context.Background()
    m := NewMemory()
    base := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
    for i := 0; i < 5; i++ {
        if err := m.SaveRoute(ctx, testRoute(fmt.Sprintf("R%d", i), base.Add(time.Duration(i)*time.Hour), 10, "genetic")); err != nil {
            t.Fatalf("SaveRoute: %v", err)
        }
    }
    r, err := m.GetRoute(ctx, "R3")
    if err != nil || r.ID != "R3" { t.Fatalf("GetRoute: %+v %v", r, err) }
    if _, err := m.GetRoute(ctx, "nope"); !errors.Is(err, ErrNotFound) {
        t.Fatalf("want ErrNotFound, got %v", err)
    }
    list, err := m.ListRoutes(ctx, 2)
    if err != nil { t.Fatalf("ListRoutes: %v", err) }
    if len(list) != 2 || list[0].ID != "R3" || list[1].ID != "R4" {
        t.Fatalf("want R3,R4 got %+v", list)
    }
    all, _ := m.ListRoutes(ctx, 0)
    if len(all) != 5 { t.Fatalf("default limit: got %d", len(all)) }
}

func TestMemoryStatusTransitions(t *testing.T) {
    ctx := context.Background()
    m := NewMemory()
    _ = m.SaveRoute(ctx, testRoute("R1", time.Now(), 5, "dijkstra"))
    if _, err := m.UpdateRouteStatus(ctx, "R1", model.RouteCompleted); !errors.Is(err, model.ErrInvalidTransition) {
        t.Fatalf("skip to completed: want ErrInvalidTransition, got %v", err)
    }
    r, err := m.UpdateRouteStatus(ctx, "R1", model.RouteInProgress)
    if err != nil || r.Status != model.RouteInProgress { t.Fatalf("advance: %+v %v", r, err) }
    got, _ := m.GetRoute(ctx, "R1")
    if got.Status != model.RouteInProgress { t.Fatalf("status not persisted: %s", got.Status) }
    if _, err := m.UpdateRouteStatus(ctx, "R9", model.RouteInProgress); !errors.Is(err, ErrNotFound) {
        t.Fatalf("missing route: got %v", err)
    }
}

func TestMemoryRouteStats(t *testing.T) {
    ctx := context.Background()
    m := NewMemory()
    d1 := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
    d2 := d1.AddDate(0, 0, 1)
    _ = m.SaveRoute(ctx, testRoute("A", d2, 30, "genetic"))
    _ = m.SaveRoute(ctx, testRoute("B", d1, 10, "genetic"))
    _ = m.SaveRoute(ctx, testRoute("C", d1, 20, "astar"))

    st, err := m.RouteStats(ctx)
    if err != nil { t.Fatalf("RouteStats: %v", err) }
    if st.Total != 3 || st.TotalDistanceKm != 60 || st.AverageDistanceKm != 20 {
        t.Fatalf("totals: %+v", st)
    }
    if st.TotalEstimatedHours != 2.25 { t.Fatalf("hours: %v", st.TotalEstimatedHours) }
    if st.ByAlgorithm["genetic"] != 2 || st.ByAlgorithm["astar"] != 1 { t.Fatalf("by algorithm: %+v", st.ByAlgorithm) }
    if len(st.Daily) != 2 || st.Daily[0].Date != "2024-01-02" || st.Daily[0].AverageDistance != 15 {
        t.Fatalf("daily: %+v", st.Daily)
    }

    empty, _ := NewMemory().RouteStats(ctx)
    if empty.Total != 0 || empty.AverageDistanceKm != 0 { t.Fatalf("empty: %+v", empty) }
}

func TestHistory(t *testing.T) {
    at := time.Date(2024, 1, 2, 8, 30, 0, 0, time.UTC)
    h := History([]model.Route{testRoute("A", at, 12.5, "genetic")})
    if len(h) != 1 || h[0].Date != "2024-01-02 08:30" || h[0].Stops != 2 || h[0].Distance != 12.5 {
        t.Fatalf("history: %+v", h)
    }
}
