package api

import (
    "bufio"
    "bytes"
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/gorilla/websocket"
    "github.com/stretchr/testify/require"

    "fleetopt/internal/config"
    "fleetopt/internal/logging"
    "fleetopt/internal/metrics"
    "fleetopt/internal/model"
)

func testConfig() config.Config {
    cfg := config.Default()
    cfg.Optimizer.Seed = 7
    cfg.Optimizer.Genetic.Generations = 20
    cfg.Rate = config.RateConfig{RPS: 1000, Burst: 1000}
    return cfg
}

func newTestServer(t *testing.T, cfg config.Config) *Server {
    t.Helper()
    s, err := NewServer(context.Background(), cfg, logging.Discard())
    if err != nil { t.Fatalf("NewServer: %v", err) }
    t.Cleanup(func() { _ = s.Close() })
    return s
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
    t.Helper()
    var rd *bytes.Reader
    switch b := body.(type) {
    case nil:
        rd = bytes.NewReader(nil)
    case string:
        rd = bytes.NewReader([]byte(b))
    default:
        raw, err := json.Marshal(b)
        require.NoError(t, err)
        rd = bytes.NewReader(raw)
    }
    req := httptest.NewRequest(method, path, rd)
    req.Header.Set("Content-Type", "application/json")
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
    t.Helper()
    var v T
    require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
    return v
}

type optimizeResponse struct {
    Success bool        `json:"success"`
    Route   model.Route `json:"route"`
}

func planRoute(t *testing.T, h http.Handler) model.Route {
    t.Helper()
    rr := do(t, h, http.MethodPost, "/v1/optimize", map[string]any{
        "start":        "Depot A",
        "destinations": []string{"Customer 1", "Customer 2", "Customer 3"},
    })
    require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
    return decode[optimizeResponse](t, rr).Route
}

func TestHealthReady(t *testing.T) {
    h := newTestServer(t, testConfig()).Routes()
    if rr := do(t, h, http.MethodGet, "/healthz", nil); rr.Code != 200 { t.Fatalf("health: got %d", rr.Code) }
    if rr := do(t, h, http.MethodGet, "/readyz", nil); rr.Code != 200 { t.Fatalf("ready: got %d", rr.Code) }
}

func TestOptimizeByName(t *testing.T) {
    h := newTestServer(t, testConfig()).Routes()
    rr := do(t, h, http.MethodPost, "/v1/optimize", map[string]any{
        "start":        "Depot A",
        "destinations": []string{"Customer 1", "Nowhere", "Customer 2"},
        "vehicle_id":   "V001",
        "algorithm":    "astar",
    })
    require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
    res := decode[optimizeResponse](t, rr)
    require.True(t, res.Success)
    require.Len(t, res.Route.Stops, 3, "unknown destination names are skipped")
    require.Equal(t, "Depot A", res.Route.Stops[0].Name)
    require.Equal(t, "V001", res.Route.Vehicle.ID)
    require.Equal(t, "astar", res.Route.Algorithm)
    require.Equal(t, model.RoutePlanned, res.Route.Status)

    rr = do(t, h, http.MethodGet, "/v1/routes/"+res.Route.ID, nil)
    require.Equal(t, http.StatusOK, rr.Code)
    require.Equal(t, res.Route.ID, decode[model.Route](t, rr).ID)

    rr = do(t, h, http.MethodGet, "/v1/routes", nil)
    require.Equal(t, http.StatusOK, rr.Code)
    idx := decode[struct {
        Routes []routeSummary `json:"routes"`
        Count  int            `json:"count"`
    }](t, rr)
    require.Equal(t, 1, idx.Count)
    require.Equal(t, 3, idx.Routes[0].StopsCount)
}

func TestOptimizeWithExplicitLocations(t *testing.T) {
    h := newTestServer(t, testConfig()).Routes()
    rr := do(t, h, http.MethodPost, "/v1/optimize", `{
        "start": {"name": "Yard", "latitude": 12.97, "longitude": 77.59},
        "destinations": [{"name": "Dock", "latitude": 12.93, "longitude": 77.62}, "Customer 5"],
        "algorithm": "dijkstra"
    }`)
    require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
    res := decode[optimizeResponse](t, rr)
    require.Equal(t, "Yard", res.Route.Stops[0].Name)
    require.Equal(t, "V000", res.Route.Vehicle.ID)
    require.Len(t, res.Route.Stops, 3)
}

func TestOptimizeErrors(t *testing.T) {
    h := newTestServer(t, testConfig()).Routes()
    cases := []struct {
        name string
        body any
        code int
    }{
        {"invalid json", `{"start":`, http.StatusBadRequest},
        {"missing start", map[string]any{"destinations": []string{"Customer 1"}}, http.StatusBadRequest},
        {"missing destinations", map[string]any{"start": "Depot A"}, http.StatusBadRequest},
        {"unknown start", map[string]any{"start": "Atlantis", "destinations": []string{"Customer 1"}}, http.StatusNotFound},
        {"no known destination", map[string]any{"start": "Depot A", "destinations": []string{"Nowhere"}}, http.StatusNotFound},
        {"unknown vehicle", map[string]any{"start": "Depot A", "destinations": []string{"Customer 1"}, "vehicle_id": "V999"}, http.StatusNotFound},
        {"bad latitude", `{"start":{"name":"X","latitude":120,"longitude":0},"destinations":["Customer 1"]}`, http.StatusBadRequest},
        {"duplicate destination", map[string]any{"start": "Depot A", "destinations": []string{"Customer 1", "Customer 1"}}, http.StatusBadRequest},
        {"start repeated as destination", map[string]any{"start": "Depot A", "destinations": []string{"Customer 1", "Depot A"}}, http.StatusBadRequest},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            rr := do(t, h, http.MethodPost, "/v1/optimize", tc.body)
            require.Equal(t, tc.code, rr.Code, rr.Body.String())
            require.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
            require.Equal(t, tc.code, decode[Problem](t, rr).Status)
        })
    }
}

func TestOptimizeMulti(t *testing.T) {
    h := newTestServer(t, testConfig()).Routes()
    dests := []string{"Customer 1", "Customer 2", "Customer 3", "Customer 4", "Customer 5", "Customer 6", "Customer 7", "Customer 8"}
    rr := do(t, h, http.MethodPost, "/v1/optimize/multi", map[string]any{"start": "Depot A", "destinations": dests})
    require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
    res := decode[struct {
        Routes     []model.Route    `json:"routes"`
        Unassigned []model.Location `json:"unassigned"`
    }](t, rr)
    // 8 destinations over 5 vehicles: 2,2,2,1 and the maintenance van's share is dropped
    require.Len(t, res.Routes, 4)
    require.Len(t, res.Unassigned, 1)
    require.Equal(t, "Customer 8", res.Unassigned[0].Name)
    for _, r := range res.Routes {
        require.Equal(t, "genetic", r.Algorithm)
    }

    rr = do(t, h, http.MethodPost, "/v1/optimize/multi", map[string]any{"start": "Depot A", "destinations": dests[:2], "vehicle_ids": []string{"V003"}})
    require.Equal(t, http.StatusOK, rr.Code)
    rr = do(t, h, http.MethodPost, "/v1/optimize/multi", map[string]any{"start": "Depot A", "destinations": dests[:2], "vehicle_ids": []string{"V404"}})
    require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouteStatusAndGeoJSON(t *testing.T) {
    h := newTestServer(t, testConfig()).Routes()
    route := planRoute(t, h)
    path := "/v1/routes/" + route.ID

    rr := do(t, h, http.MethodPatch, path, map[string]string{"status": "completed"})
    require.Equal(t, http.StatusConflict, rr.Code, "planned cannot skip to completed")
    rr = do(t, h, http.MethodPatch, path, map[string]string{"status": "in_progress"})
    require.Equal(t, http.StatusOK, rr.Code)
    require.Equal(t, model.RouteInProgress, decode[model.Route](t, rr).Status)
    rr = do(t, h, http.MethodPatch, "/v1/routes/nope", map[string]string{"status": "in_progress"})
    require.Equal(t, http.StatusNotFound, rr.Code)

    rr = do(t, h, http.MethodGet, path+"/geojson", nil)
    require.Equal(t, http.StatusOK, rr.Code)
    require.Equal(t, "application/geo+json", rr.Header().Get("Content-Type"))
    fc := decode[struct {
        Type     string            `json:"type"`
        Features []json.RawMessage `json:"features"`
    }](t, rr)
    require.Equal(t, "FeatureCollection", fc.Type)
    require.Len(t, fc.Features, 5)
}

func TestVehicles(t *testing.T) {
    h := newTestServer(t, testConfig()).Routes()
    rr := do(t, h, http.MethodGet, "/v1/vehicles", nil)
    require.Equal(t, http.StatusOK, rr.Code)
    vs := decode[struct {
        Vehicles []vehicleView `json:"vehicles"`
    }](t, rr).Vehicles
    require.Len(t, vs, 5)
    require.Equal(t, 1000.0, vs[0].AvailableCapacity)

    rr = do(t, h, http.MethodPatch, "/v1/vehicles/V002", map[string]any{"status": "in_transit", "current_load": 500})
    require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
    v := decode[vehicleView](t, rr)
    require.Equal(t, model.VehicleInTransit, v.Status)
    require.Equal(t, 1000.0, v.AvailableCapacity)

    require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPatch, "/v1/vehicles/V002", map[string]any{"status": "flying"}).Code)
    require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPatch, "/v1/vehicles/V003", map[string]any{"current_load": 501}).Code)
    require.Equal(t, http.StatusNotFound, do(t, h, http.MethodPatch, "/v1/vehicles/V404", map[string]any{"status": "available"}).Code)
}

func TestInventoryEndpoints(t *testing.T) {
    h := newTestServer(t, testConfig()).Routes()

    rr := do(t, h, http.MethodGet, "/v1/inventory", nil)
    require.Equal(t, http.StatusOK, rr.Code)
    list := decode[struct {
        Items      []itemView `json:"items"`
        Total      int        `json:"total_items"`
        LowStock   int        `json:"low_stock_count"`
        OutOfStock int        `json:"out_of_stock_count"`
    }](t, rr)
    require.Equal(t, 12, list.Total)
    require.Equal(t, 3, list.LowStock)
    require.Equal(t, 0, list.OutOfStock)

    rr = do(t, h, http.MethodGet, "/v1/inventory/alerts", nil)
    alerts := decode[map[string]any](t, rr)
    require.Equal(t, 3.0, alerts["warning_count"])
    require.Equal(t, 0.0, alerts["critical_count"])

    require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/inventory/INV-999", nil).Code)
    rr = do(t, h, http.MethodGet, "/v1/inventory/INV-001", nil)
    require.Equal(t, http.StatusOK, rr.Code)
    require.Equal(t, model.InStock, decode[itemView](t, rr).Status)

    rr = do(t, h, http.MethodPost, "/v1/inventory/INV-001/update", map[string]int{"quantity_change": -5})
    require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
    upd := decode[struct {
        Item struct {
            Quantity int `json:"quantity"`
        } `json:"item"`
    }](t, rr)
    require.Equal(t, 40, upd.Item.Quantity)
    require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/v1/inventory/INV-001/update", map[string]int{"quantity_change": -1000}).Code)
    require.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/v1/inventory/INV-999/update", map[string]int{"quantity_change": 1}).Code)

    rr = do(t, h, http.MethodGet, "/v1/inventory/INV-002/forecast?days=14", nil)
    require.Equal(t, http.StatusOK, rr.Code)
    fc := decode[map[string]any](t, rr)
    require.Equal(t, 14.0, fc["forecast_days"])
    require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/inventory/INV-002/forecast?days=0", nil).Code)

    rr = do(t, h, http.MethodGet, "/v1/inventory/INV-003/predict", nil)
    require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
    pred := decode[struct {
        P7  []json.RawMessage `json:"predictions_7day"`
        P30 []json.RawMessage `json:"predictions_30day"`
    }](t, rr)
    require.Len(t, pred.P7, 7)
    require.Len(t, pred.P30, 30)

    rr = do(t, h, http.MethodGet, "/v1/inventory/INV-004/turnover?days=30", nil)
    require.Equal(t, http.StatusOK, rr.Code)
    require.Contains(t, []any{"fast_moving", "moderate", "slow_moving"}, decode[map[string]any](t, rr)["turnover_category"])

    rr = do(t, h, http.MethodGet, "/v1/warehouses", nil)
    require.Equal(t, http.StatusOK, rr.Code)
    require.Len(t, decode[map[string][]any](t, rr)["warehouses"], 2)
}

func TestAnalytics(t *testing.T) {
    h := newTestServer(t, testConfig()).Routes()
    route := planRoute(t, h)

    rr := do(t, h, http.MethodGet, "/v1/analytics", nil)
    require.Equal(t, http.StatusOK, rr.Code)
    a := decode[struct {
        Routes     model.RouteStats `json:"routes"`
        Vehicles   map[string]int   `json:"vehicles"`
        Inventory  map[string]any   `json:"inventory"`
        Warehouses []any            `json:"warehouses"`
    }](t, rr)
    require.Equal(t, 1, a.Routes.Total)
    require.Equal(t, route.TotalDistance, a.Routes.TotalDistanceKm)
    require.Equal(t, 1, a.Routes.ByAlgorithm["genetic"])
    require.Equal(t, 5, a.Vehicles["total"])
    require.Equal(t, 4, a.Vehicles["available"])
    require.Equal(t, 1, a.Vehicles["maintenance"])
    require.Equal(t, 75.0, a.Inventory["stock_health_percentage"])
    require.Len(t, a.Warehouses, 2)

    rr = do(t, h, http.MethodGet, "/v1/analytics/route-efficiency", nil)
    require.Equal(t, http.StatusOK, rr.Code)
    hist := decode[struct {
        History []model.RouteHistoryEntry `json:"route_history"`
    }](t, rr).History
    require.Len(t, hist, 1)
    require.Equal(t, 4, hist[0].Stops)
}

func TestOptimizerConfigAndRuns(t *testing.T) {
    h := newTestServer(t, testConfig()).Routes()
    rr := do(t, h, http.MethodGet, "/v1/optimizer/config", nil)
    require.Equal(t, http.StatusOK, rr.Code)
    require.Equal(t, 40.0, decode[map[string]any](t, rr)["averageSpeedKph"])

    planRoute(t, h)
    rr = do(t, h, http.MethodGet, "/v1/optimizer/runs", nil)
    require.Equal(t, http.StatusOK, rr.Code)
    runs := decode[struct {
        Runs map[string]map[string]any `json:"runs"`
    }](t, rr).Runs
    require.Contains(t, runs, "genetic")
    require.Equal(t, 20.0, runs["genetic"]["generations"])

    require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/optimizer/runs?date=yesterday", nil).Code)
}

func TestCORSAndRateLimit(t *testing.T) {
    cfg := testConfig()
    cfg.AllowOrigin = []string{"http://dispatch.local"}
    cfg.Rate = config.RateConfig{RPS: 0.001, Burst: 1}
    h := newTestServer(t, cfg).Routes()

    req := httptest.NewRequest(http.MethodOptions, "/v1/optimize", nil)
    req.Header.Set("Origin", "http://dispatch.local")
    req.Header.Set("Access-Control-Request-Method", "POST")
    rr := httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    require.Equal(t, http.StatusNoContent, rr.Code)
    require.Equal(t, "http://dispatch.local", rr.Header().Get("Access-Control-Allow-Origin"))

    req = httptest.NewRequest(http.MethodGet, "/v1/locations", nil)
    req.Header.Set("Origin", "http://evil.local")
    rr = httptest.NewRecorder()
    h.ServeHTTP(rr, req)
    require.Equal(t, http.StatusOK, rr.Code)
    require.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))

    // the preflight is answered before the limiter, so the GET above took the only token
    require.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/v1/locations", nil).Code)
    require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", nil).Code)
}

func TestMetricsAndDocs(t *testing.T) {
    metrics.RegisterDefault()
    h := newTestServer(t, testConfig()).Routes()
    do(t, h, http.MethodGet, "/v1/locations", nil)

    rr := do(t, h, http.MethodGet, "/metrics", nil)
    require.Equal(t, http.StatusOK, rr.Code)
    require.Contains(t, rr.Body.String(), `http_requests_total{method="GET",path="GET /v1/locations",status="200"}`)

    rr = do(t, h, http.MethodGet, "/openapi.json", nil)
    require.Equal(t, http.StatusOK, rr.Code)
    require.Equal(t, "3.0.3", decode[map[string]any](t, rr)["openapi"])

    rr = do(t, h, http.MethodGet, "/debug/info", nil)
    require.Equal(t, http.StatusOK, rr.Code)
    info := decode[map[string]any](t, rr)
    require.Contains(t, info, "build")
    require.Equal(t, false, info["config"].(map[string]any)["hasDatabaseUrl"])
}

func TestRouteEventsSSE(t *testing.T) {
    s := newTestServer(t, testConfig())
    ts := httptest.NewServer(s.Routes())
    defer ts.Close()
    route := planRoute(t, s.Routes())

    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/routes/"+route.ID+"/events/stream", nil)
    resp, err := http.DefaultClient.Do(req)
    require.NoError(t, err)
    defer resp.Body.Close()
    require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

    lines := bufio.NewScanner(resp.Body)
    waitFor := func(prefix string) string {
        for lines.Scan() {
            if strings.HasPrefix(lines.Text(), prefix) { return lines.Text() }
        }
        t.Fatalf("stream ended before %q: %v", prefix, lines.Err())
        return ""
    }
    waitFor("event: heartbeat")

    rr := do(t, s.Routes(), http.MethodPatch, "/v1/routes/"+route.ID, map[string]string{"status": "in_progress"})
    require.Equal(t, http.StatusOK, rr.Code)
    waitFor("event: " + EventRouteStatus)
    data := strings.TrimPrefix(waitFor("data: "), "data: ")
    var evt Event
    require.NoError(t, json.Unmarshal([]byte(data), &evt))
    require.Equal(t, route.ID, evt.RouteID)
    require.Equal(t, "in_progress", evt.Data["status"])

    require.Equal(t, http.StatusNotFound, do(t, s.Routes(), http.MethodGet, "/v1/routes/nope/events/stream", nil).Code)
}

func TestEventsWebSocket(t *testing.T) {
    s := newTestServer(t, testConfig())
    ts := httptest.NewServer(s.Routes())
    defer ts.Close()

    c, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/events/ws", nil)
    require.NoError(t, err)
    defer c.Close()
    _ = c.SetReadDeadline(time.Now().Add(5 * time.Second))

    read := func() wsMessage {
        var m wsMessage
        require.NoError(t, c.ReadJSON(&m))
        return m
    }
    require.NoError(t, c.WriteJSON(wsMessage{Type: "connection_init"}))
    require.Equal(t, "connection_ack", read().Type)
    require.NoError(t, c.WriteJSON(wsMessage{Type: "subscribe", ID: "all"}))
    // messages are handled in order, so the pong means the subscription is live
    require.NoError(t, c.WriteJSON(wsMessage{Type: "ping"}))
    require.Equal(t, "pong", read().Type)

    route := planRoute(t, s.Routes())
    m := read()
    require.Equal(t, "next", m.Type)
    require.Equal(t, "all", m.ID)
    var evt Event
    require.NoError(t, json.Unmarshal(m.Payload, &evt))
    require.Equal(t, EventRoutePlanned, evt.Type)
    require.Equal(t, route.ID, evt.RouteID)

    require.NoError(t, c.WriteJSON(wsMessage{Type: "complete", ID: "all"}))
    m = read()
    require.Equal(t, "complete", m.Type)
    require.Equal(t, "all", m.ID)
}
