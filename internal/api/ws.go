package api

import (
    "encoding/json"
    "net/http"
    "sync"
    "time"

    "github.com/gorilla/websocket"
)

// Route events over WebSocket. The message flow follows graphql-transport-ws:
// connection_init/connection_ack, subscribe/next/complete and ping/pong.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

const (
    wsReadTimeout = 60 * time.Second
    wsKeepalive   = 20 * time.Second
)

type wsMessage struct {
    Type    string          `json:"type"`
    ID      string          `json:"id,omitempty"`
    Payload json.RawMessage `json:"payload,omitempty"`
}

type subscribePayload struct {
    RouteID string `json:"routeId"`
}

// EventsWSHandler handles /v1/events/ws. A subscription without a routeId
// uses the routeId query parameter, and without either it follows all routes.
func (s *Server) EventsWSHandler(w http.ResponseWriter, r *http.Request) {
    conn, err := upgrader.Upgrade(w, r, nil)
    if err != nil {
        return
    }
    defer func() { _ = conn.Close() }()
    defaultRoute := r.URL.Query().Get("routeId")

    // gorilla connections allow one concurrent writer
    var wmu sync.Mutex
    write := func(v wsMessage) error {
        wmu.Lock()
        defer wmu.Unlock()
        return conn.WriteJSON(v)
    }

    type sub struct {
        routeID string
        ch      chan Event
    }
    var smu sync.Mutex
    subs := map[string]sub{}
    drop := func(id string) {
        smu.Lock()
        s0, ok := subs[id]
        delete(subs, id)
        smu.Unlock()
        if ok { s.Broker.Unsubscribe(s0.routeID, s0.ch) }
    }

    done := make(chan struct{})
    defer close(done)

    conn.SetReadLimit(1 << 20)
    _ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
    conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsReadTimeout)) })

    acked := false
    for {
        var msg wsMessage
        if err := conn.ReadJSON(&msg); err != nil {
            break
        }
        _ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
        switch msg.Type {
        case "connection_init":
            _ = write(wsMessage{Type: "connection_ack"})
            if acked { continue }
            acked = true
            go func() {
                ticker := time.NewTicker(wsKeepalive)
                defer ticker.Stop()
                for {
                    select {
                    case <-done:
                        return
                    case <-ticker.C:
                        if err := write(wsMessage{Type: "ping"}); err != nil { return }
                    }
                }
            }()
        case "ping":
            _ = write(wsMessage{Type: "pong"})
        case "subscribe":
            if msg.ID == "" {
                _ = write(wsMessage{Type: "error", Payload: json.RawMessage(`{"message":"subscription id required"}`)})
                continue
            }
            var pl subscribePayload
            if len(msg.Payload) > 0 {
                if err := json.Unmarshal(msg.Payload, &pl); err != nil {
                    _ = write(wsMessage{Type: "error", ID: msg.ID, Payload: json.RawMessage(`{"message":"invalid payload"}`)})
                    continue
                }
            }
            rid := pl.RouteID
            if rid == "" { rid = defaultRoute }
            if rid == "" { rid = AllRoutes }
            drop(msg.ID)
            ch := s.Broker.Subscribe(rid)
            smu.Lock()
            subs[msg.ID] = sub{routeID: rid, ch: ch}
            smu.Unlock()
            go func(id string, c chan Event) {
                for evt := range c {
                    payload, _ := json.Marshal(evt)
                    if err := write(wsMessage{Type: "next", ID: id, Payload: payload}); err != nil { return }
                }
                _ = write(wsMessage{Type: "complete", ID: id})
            }(msg.ID, ch)
        case "complete":
            drop(msg.ID)
        }
    }

    smu.Lock()
    ids := make([]string, 0, len(subs))
    for id := range subs { ids = append(ids, id) }
    smu.Unlock()
    for _, id := range ids { drop(id) }
}
