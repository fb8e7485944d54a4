package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/collectors"
)

var (
    // Registry is the dedicated Prometheus registry for the API
    Registry = prometheus.NewRegistry()
    // HTTPRequests counts requests by method, path, and status
    HTTPRequests = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
        []string{"method", "path", "status"},
    )
    // HTTPDuration records request durations in seconds
    HTTPDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
        []string{"method", "path", "status"},
    )

    // Optimizations counts optimizer runs by resolved algorithm and outcome
    Optimizations = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "route_optimizations_total", Help: "Route optimizations by algorithm and outcome."},
        []string{"algorithm", "outcome"},
    )
    // OptimizeDuration records optimizer wall time in seconds
    OptimizeDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{Name: "route_optimization_duration_seconds", Help: "Route optimization duration in seconds.", Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5}},
        []string{"algorithm"},
    )
    // RouteDistance records planned route lengths in kilometers
    RouteDistance = prometheus.NewHistogram(
        prometheus.HistogramOpts{Name: "route_distance_km", Help: "Planned route distance in km.", Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500}},
    )
    // UnassignedDestinations counts destinations the allocator left without a vehicle
    UnassignedDestinations = prometheus.NewCounter(
        prometheus.CounterOpts{Name: "allocator_unassigned_destinations_total", Help: "Destinations left unassigned by multi-vehicle allocation."},
    )
    // DistanceCacheEntries reports the size of the shared distance memo
    DistanceCacheEntries = prometheus.NewGauge(
        prometheus.GaugeOpts{Name: "distance_cache_entries", Help: "Cached location pair distances."},
    )
    // BrokerEvents counts published route events by type
    BrokerEvents = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "route_events_published_total", Help: "Route events published by type."},
        []string{"type"},
    )
    // WebhookDeliveries counts webhook delivery attempts by outcome (delivered, retry, dropped)
    WebhookDeliveries = prometheus.NewCounterVec(
        prometheus.CounterOpts{Name: "webhook_deliveries_total", Help: "Webhook delivery attempts by outcome."},
        []string{"outcome"},
    )
)

// RegisterDefault registers collectors to the API registry.
func RegisterDefault() {
    regOnce.Do(func(){
        Registry.MustRegister(HTTPRequests)
        Registry.MustRegister(HTTPDuration)
        Registry.MustRegister(Optimizations)
        Registry.MustRegister(OptimizeDuration)
        Registry.MustRegister(RouteDistance)
        Registry.MustRegister(UnassignedDestinations)
        Registry.MustRegister(DistanceCacheEntries)
        Registry.MustRegister(BrokerEvents)
        Registry.MustRegister(WebhookDeliveries)
        // Go/process collectors on our registry
        Registry.MustRegister(collectors.NewGoCollector())
        Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
    })
}

var regOnce sync.Once
