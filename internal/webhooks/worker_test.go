package webhooks

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

	"fleetopt/internal/logging"
)

type hit struct {
	sig, typ string
	body     []byte
}

func recorder(t *testing.T, status int) (*httptest.Server, func() []hit) {
	t.Helper()
	var mu sync.Mutex
	var hits []hit
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		hits = append(hits, hit{sig: r.Header.Get("X-Signature"), typ: r.Header.Get("X-Event-Type"), body: b})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []hit {
		mu.Lock()
		defer mu.Unlock()
		return append([]hit(nil), hits...)
	}
}

func TestPublisherDeliversSignedPayload(t *testing.T) {
	srv, hits := recorder(t, http.StatusOK)
	w := NewWorker([]string{srv.URL}, "secret", 3, logging.Discard())
	w.HTTP = srv.Client()
	NewPublisher(w).Emit("route.status", "ROUTE-1", map[string]any{"status": "completed"})
	require.Equal(t, 1, w.Pending())

	w.processOnce(context.Background())
	require.Equal(t, 0, w.Pending())

	got := hits()
	require.Len(t, got, 1)
	require.Equal(t, "route.status", got[0].typ)
	require.True(t, VerifyHMAC("secret", got[0].body, got[0].sig))

	var p Payload
	require.NoError(t, json.Unmarshal(got[0].body, &p))
	require.Equal(t, "ROUTE-1", p.RouteID)
	require.Equal(t, "completed", p.Data["status"])
	require.Contains(t, p.ID, "evt_")
}

func TestWorkerRetriesThenDrops(t *testing.T) {
	srv, hits := recorder(t, http.StatusInternalServerError)
	w := NewWorker([]string{srv.URL}, "", 2, logging.Discard())
	w.HTTP = srv.Client()
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	w.Enqueue(Delivery{URL: srv.URL, EventType: "route.planned", Payload: []byte(`{}`)})
	w.processOnce(context.Background())
	require.Len(t, hits(), 1)
	require.Empty(t, hits()[0].sig, "no secret, no signature")
	require.Equal(t, 1, w.Pending(), "first failure is requeued")

	// not yet due
	w.processOnce(context.Background())
	require.Len(t, hits(), 1)

	now = now.Add(nextBackoff(0))
	w.processOnce(context.Background())
	require.Len(t, hits(), 2)
	require.Equal(t, 0, w.Pending(), "dropped after max attempts")
}

func TestNextBackoff(t *testing.T) {
	require.Equal(t, time.Second, nextBackoff(-1))
	require.Equal(t, 4*time.Second, nextBackoff(2))
	require.Equal(t, 1024*time.Second, nextBackoff(50))
}

func TestVerifyHMACRejectsGarbage(t *testing.T) {
	body := []byte(`{"a":1}`)
	require.True(t, VerifyHMAC("k", body, SignHMAC("k", body)))
	require.False(t, VerifyHMAC("other", body, SignHMAC("k", body)))
	require.False(t, VerifyHMAC("k", body, "not-hex"))
}
