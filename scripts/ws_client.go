// Package main runs a demo WebSocket client for route events: it plans a
// route, follows it over /v1/events/ws and advances it so an event shows up.
package main

import (
    "bytes"
    "encoding/json"
    "fmt"
    "log"
    "net/http"
    "net/url"
    "os"
    "time"

    "github.com/gorilla/websocket"
)

type wsMessage struct {
    Type    string          `json:"type"`
    ID      string          `json:"id,omitempty"`
    Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
    port := os.Getenv("PORT")
    if port == "" {
        port = "8080"
    }
    base := fmt.Sprintf("http://localhost:%s", port)

    body := []byte(`{"start":"Depot A","destinations":["Customer 1","Customer 4","Customer 7"],"algorithm":"genetic"}`)
    resp, err := http.Post(base+"/v1/optimize", "application/json", bytes.NewReader(body))
    if err != nil {
        log.Fatal(err)
    }
    defer func() { _ = resp.Body.Close() }()
    var optResp struct {
        Route struct {
            ID string `json:"id"`
        } `json:"route"`
    }
    if err := json.NewDecoder(resp.Body).Decode(&optResp); err != nil {
        log.Fatal(err)
    }
    routeID := optResp.Route.ID
    if routeID == "" {
        log.Fatal("no route returned")
    }
    log.Printf("Route ID: %s", routeID)

    u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/v1/events/ws", RawQuery: "routeId=" + url.QueryEscape(routeID)}
    c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
    if err != nil {
        log.Fatal("dial:", err)
    }
    defer func() { _ = c.Close() }()

    if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
        log.Fatal(err)
    }
    // routeId comes from the query string
    if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1"}); err != nil {
        log.Fatal(err)
    }

    done := make(chan struct{})
    go func() {
        defer close(done)
        for {
            var m wsMessage
            if err := c.ReadJSON(&m); err != nil {
                log.Printf("read: %v", err)
                return
            }
            log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
        }
    }()

    time.Sleep(500 * time.Millisecond)
    req, _ := http.NewRequest(http.MethodPatch, base+"/v1/routes/"+routeID, bytes.NewReader([]byte(`{"status":"in_progress"}`)))
    req.Header.Set("Content-Type", "application/json")
    if r, err := http.DefaultClient.Do(req); err == nil {
        _ = r.Body.Close()
    }

    select {
    case <-time.After(2 * time.Second):
    case <-done:
    }
}
