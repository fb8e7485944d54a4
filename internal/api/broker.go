package api

import (
    "sync"
    "time"

    "fleetopt/internal/metrics"
)

// Event is a route lifecycle notification fanned out to SSE and WebSocket
// subscribers.
type Event struct {
    Type    string         `json:"type"`
    RouteID string         `json:"routeId"`
    Data    map[string]any `json:"data"`
    At      time.Time      `json:"ts"`
}

const (
    EventRoutePlanned = "route.planned"
    EventRouteStatus  = "route.status"
)

// AllRoutes subscribes to events of every route.
const AllRoutes = "*"

type EventBroker interface {
    Subscribe(routeID string) chan Event
    Unsubscribe(routeID string, ch chan Event)
    // Publish delivers evt to subscribers of evt.RouteID and of AllRoutes.
    Publish(evt Event)
    Close() error
}

// Broker is the in-process EventBroker. Slow subscribers drop events
// rather than block publishers.
type Broker struct {
    mu   sync.Mutex
    subs map[string]map[chan Event]struct{} // routeId -> set of channels
}

func NewBroker() *Broker {
    return &Broker{subs: map[string]map[chan Event]struct{}{}}
}

func (b *Broker) Subscribe(routeID string) chan Event {
    if routeID == "" { routeID = AllRoutes }
    ch := make(chan Event, 8)
    b.mu.Lock()
    if b.subs[routeID] == nil { b.subs[routeID] = map[chan Event]struct{}{} }
    b.subs[routeID][ch] = struct{}{}
    b.mu.Unlock()
    return ch
}

func (b *Broker) Unsubscribe(routeID string, ch chan Event) {
    if routeID == "" { routeID = AllRoutes }
    b.mu.Lock()
    defer b.mu.Unlock()
    m := b.subs[routeID]
    if _, ok := m[ch]; !ok { return }
    delete(m, ch)
    if len(m) == 0 { delete(b.subs, routeID) }
    close(ch)
}

func (b *Broker) Publish(evt Event) {
    metrics.BrokerEvents.WithLabelValues(evt.Type).Inc()
    b.mu.Lock()
    defer b.mu.Unlock()
    for _, key := range []string{evt.RouteID, AllRoutes} {
        for ch := range b.subs[key] {
            select { case ch <- evt: default: }
        }
    }
}

func (b *Broker) Close() error { return nil }
