package api

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    redis "github.com/redis/go-redis/v9"
    "github.com/sirupsen/logrus"

    "fleetopt/internal/metrics"
)

// RedisBroker implements EventBroker over Redis Pub/Sub. Events for a route
// go to channel route:<id>; the all-routes feed pattern-subscribes route:*.
type RedisBroker struct {
    rdb *redis.Client
    log logrus.FieldLogger

    mu   sync.Mutex
    subs map[chan Event]*redis.PubSub
}

func NewRedisBroker(url string, log logrus.FieldLogger) (*RedisBroker, error) {
    opt, err := redis.ParseURL(url)
    if err != nil { return nil, err }
    return newRedisBroker(redis.NewClient(opt), log)
}

func newRedisBroker(rdb *redis.Client, log logrus.FieldLogger) (*RedisBroker, error) {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := rdb.Ping(ctx).Err(); err != nil {
        _ = rdb.Close()
        return nil, err
    }
    return &RedisBroker{rdb: rdb, log: log, subs: map[chan Event]*redis.PubSub{}}, nil
}

func (b *RedisBroker) Subscribe(routeID string) chan Event {
    ch := make(chan Event, 16)
    ctx := context.Background()
    var ps *redis.PubSub
    if routeID == "" || routeID == AllRoutes {
        ps = b.rdb.PSubscribe(ctx, chanName(AllRoutes))
    } else {
        ps = b.rdb.Subscribe(ctx, chanName(routeID))
    }
    // wait for the subscription to be confirmed so no publish is missed
    if _, err := ps.Receive(ctx); err != nil {
        b.log.WithError(err).WithField("route", routeID).Warn("redis subscribe failed")
    }
    b.mu.Lock()
    b.subs[ch] = ps
    b.mu.Unlock()
    go func() {
        defer close(ch)
        for msg := range ps.Channel() {
            var evt Event
            if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
                b.log.WithError(err).WithField("channel", msg.Channel).Warn("dropping malformed route event")
                continue
            }
            select { case ch <- evt: default: }
        }
    }()
    return ch
}

// Unsubscribe closes the underlying PubSub; the relay goroutine then closes ch.
func (b *RedisBroker) Unsubscribe(routeID string, ch chan Event) {
    b.mu.Lock()
    ps, ok := b.subs[ch]
    delete(b.subs, ch)
    b.mu.Unlock()
    if ok { _ = ps.Close() }
}

func (b *RedisBroker) Publish(evt Event) {
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    data, err := json.Marshal(evt)
    if err != nil { b.log.WithError(err).Error("encode route event"); return }
    if err := b.rdb.Publish(ctx, chanName(evt.RouteID), data).Err(); err != nil {
        b.log.WithError(err).WithField("route", evt.RouteID).Warn("redis publish failed")
        return
    }
    metrics.BrokerEvents.WithLabelValues(evt.Type).Inc()
}

func (b *RedisBroker) Close() error {
    b.mu.Lock()
    for ch, ps := range b.subs {
        _ = ps.Close()
        delete(b.subs, ch)
    }
    b.mu.Unlock()
    return b.rdb.Close()
}

func chanName(routeID string) string { return "route:" + routeID }
