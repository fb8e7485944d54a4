package api

import (
    "context"
    "encoding/json"
    "io"
    "net/http"
    "net/http/httptest"
    "sync"
    "testing"
    "time"

    "github.com/stretchr/testify/require"

    "fleetopt/internal/webhooks"
)

func TestRouteEventsReachWebhooks(t *testing.T) {
    var mu sync.Mutex
    var got []webhooks.Payload
    hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        b, _ := io.ReadAll(r.Body)
        if !webhooks.VerifyHMAC("k", b, r.Header.Get("X-Signature")) { w.WriteHeader(http.StatusUnauthorized); return }
        var p webhooks.Payload
        if err := json.Unmarshal(b, &p); err == nil {
            mu.Lock(); got = append(got, p); mu.Unlock()
        }
        w.WriteHeader(http.StatusNoContent)
    }))
    defer hook.Close()

    cfg := testConfig()
    cfg.Webhooks.URLs = []string{hook.URL}
    cfg.Webhooks.Secret = "k"
    s := newTestServer(t, cfg)
    require.NotNil(t, s.Webhooks)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    s.Start(ctx)

    h := s.Routes()
    route := planRoute(t, h)

    require.Eventually(t, func() bool {
        mu.Lock(); defer mu.Unlock()
        return len(got) == 1
    }, 5*time.Second, 50*time.Millisecond)
    mu.Lock()
    defer mu.Unlock()
    require.Equal(t, EventRoutePlanned, got[0].Type)
    require.Equal(t, route.ID, got[0].RouteID)
}

func TestWebhooksDisabledByDefault(t *testing.T) {
    s := newTestServer(t, testConfig())
    require.Nil(t, s.Webhooks)
    s.Start(context.Background())
}
