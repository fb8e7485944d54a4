// Package api exposes the route optimizer, fleet roster and inventory
// services over HTTP, SSE and WebSocket.
package api

import (
    "context"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"
    "github.com/sirupsen/logrus"
    "golang.org/x/time/rate"

    "fleetopt/internal/config"
    "fleetopt/internal/fleet"
    "fleetopt/internal/forecast"
    "fleetopt/internal/inventory"
    "fleetopt/internal/metrics"
    "fleetopt/internal/model"
    "fleetopt/internal/opt"
    "fleetopt/internal/sample"
    "fleetopt/internal/store"
    "fleetopt/internal/webhooks"
)

// simulatedDemandDays of consumption history are backfilled at boot so the
// moving-average forecast has data to work with.
const simulatedDemandDays = 30

type Server struct {
    Store     store.Store
    Optimizer *opt.Optimizer
    Fleet     *fleet.Roster
    Inventory *inventory.Manager
    Predictor *forecast.Predictor
    Broker    EventBroker
    // Webhooks is nil when no endpoints are configured.
    Webhooks  *webhooks.Publisher
    Locations []model.Location
    Config    config.Config
    Log       logrus.FieldLogger
    // Heartbeat is the SSE keepalive interval.
    Heartbeat time.Duration

    worker *webhooks.Worker
}

// NewServer wires the services from cfg. An empty DATABASE_URL selects the
// in-memory store; an empty or unreachable REDIS_URL the in-memory broker.
func NewServer(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*Server, error) {
    var s store.Store
    if strings.TrimSpace(cfg.DatabaseURL) == "" {
        s = store.NewMemory()
    } else {
        sp, err := store.NewPostgres(cfg.DatabaseURL)
        if err != nil {
            return nil, err
        }
        if cfg.DBMigrate {
            if err := sp.Migrate(ctx); err != nil { _ = sp.Close(); return nil, err }
        }
        s = sp
    }

    var broker EventBroker
    if cfg.RedisURL != "" {
        rb, err := NewRedisBroker(cfg.RedisURL, log)
        if err != nil {
            log.WithError(err).Warn("redis unavailable, using in-memory broker")
            broker = NewBroker()
        } else {
            broker = rb
        }
    } else {
        broker = NewBroker()
    }

    var hooks *webhooks.Worker
    if len(cfg.Webhooks.URLs) > 0 {
        hooks = webhooks.NewWorker(cfg.Webhooks.URLs, cfg.Webhooks.Secret, cfg.Webhooks.MaxAttempts, log)
    }

    inv := inventory.NewManager()
    for _, it := range sample.Inventory() { inv.AddItem(it) }
    for _, wh := range sample.Warehouses() { inv.AddWarehouse(wh) }
    inv.SimulateDemand(simulatedDemandDays)

    srv := &Server{
        Store:     s,
        Optimizer: opt.NewOptimizer(cfg.Optimizer, opt.WithLogger(log)),
        Fleet:     fleet.NewRoster(sample.Vehicles()...),
        Inventory: inv,
        Predictor: forecast.NewPredictor(),
        Broker:    broker,
        Locations: sample.Locations(),
        Config:    cfg,
        Log:       log,
        Heartbeat: 15 * time.Second,
        worker:    hooks,
    }
    if hooks != nil {
        srv.Webhooks = webhooks.NewPublisher(hooks)
    }
    return srv, nil
}

// Start launches background delivery of webhooks until ctx is done.
func (s *Server) Start(ctx context.Context) {
    if s.worker != nil {
        s.worker.Start(ctx)
    }
}

// Close releases the broker and, for Postgres, the database pool.
func (s *Server) Close() error {
    err := s.Broker.Close()
    if c, ok := s.Store.(io.Closer); ok {
        if cerr := c.Close(); err == nil { err = cerr }
    }
    return err
}

// Routes returns the full handler: the mux behind recovery, observability,
// CORS and rate limiting.
func (s *Server) Routes() http.Handler {
    mux := http.NewServeMux()

    mux.HandleFunc("GET /healthz", s.HealthHandler)
    mux.HandleFunc("GET /readyz", s.ReadyHandler)
    mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
    mux.HandleFunc("GET /debug/info", s.DebugJSON)
    mux.HandleFunc("GET /openapi.yaml", s.OpenAPIHandler)
    mux.HandleFunc("GET /openapi.json", s.OpenAPIJSONHandler)
    mux.HandleFunc("GET /docs", s.DocsHandler)

    // Catalog and fleet
    mux.HandleFunc("GET /v1/locations", s.LocationsHandler)
    mux.HandleFunc("GET /v1/vehicles", s.VehiclesHandler)
    mux.HandleFunc("PATCH /v1/vehicles/{id}", s.VehicleUpdateHandler)

    // Optimization
    mux.HandleFunc("POST /v1/optimize", s.OptimizeHandler)
    mux.HandleFunc("POST /v1/optimize/multi", s.OptimizeMultiHandler)
    mux.HandleFunc("GET /v1/optimizer/config", s.OptimizerConfigHandler)
    mux.HandleFunc("GET /v1/optimizer/runs", s.OptimizerRunsHandler)

    // Routes and their event streams
    mux.HandleFunc("GET /v1/routes", s.RoutesIndexHandler)
    mux.HandleFunc("GET /v1/routes/{id}", s.RouteHandler)
    mux.HandleFunc("PATCH /v1/routes/{id}", s.RouteStatusHandler)
    mux.HandleFunc("GET /v1/routes/{id}/geojson", s.RouteGeoJSONHandler)
    mux.HandleFunc("GET /v1/routes/{id}/events/stream", s.RouteEventsHandler)
    mux.HandleFunc("GET /v1/events/ws", s.EventsWSHandler)

    // Inventory
    mux.HandleFunc("GET /v1/inventory", s.InventoryHandler)
    mux.HandleFunc("GET /v1/inventory/alerts", s.InventoryAlertsHandler)
    mux.HandleFunc("GET /v1/inventory/{id}", s.InventoryItemHandler)
    mux.HandleFunc("POST /v1/inventory/{id}/update", s.InventoryUpdateHandler)
    mux.HandleFunc("GET /v1/inventory/{id}/forecast", s.InventoryForecastHandler)
    mux.HandleFunc("GET /v1/inventory/{id}/predict", s.InventoryPredictHandler)
    mux.HandleFunc("GET /v1/inventory/{id}/turnover", s.InventoryTurnoverHandler)
    mux.HandleFunc("GET /v1/warehouses", s.WarehousesHandler)

    // Analytics
    mux.HandleFunc("GET /v1/analytics", s.AnalyticsHandler)
    mux.HandleFunc("GET /v1/analytics/route-efficiency", s.RouteEfficiencyHandler)

    var h http.Handler = mux
    limit := rate.Limit(s.Config.Rate.RPS)
    if limit <= 0 {
        limit = rate.Inf
    }
    h = limitRate(rate.NewLimiter(limit, s.Config.Rate.Burst), h)
    h = cors(s.Config.AllowOrigin, h)
    h = observe(s.Log, h)
    return recoverer(s.Log, h)
}

// publish stamps and fans out a route event.
func (s *Server) publish(typ, routeID string, data map[string]any) {
    s.Broker.Publish(Event{Type: typ, RouteID: routeID, Data: data, At: time.Now().UTC()})
    if s.Webhooks != nil {
        s.Webhooks.Emit(typ, routeID, data)
    }
}
