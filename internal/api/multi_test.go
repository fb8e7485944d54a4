package api

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "testing"

    "github.com/stretchr/testify/require"

    "fleetopt/internal/model"
    "fleetopt/internal/store"
)

// flakyStore accepts okSaves routes and then fails every save.
type flakyStore struct {
    *store.Memory
    okSaves int
}

func (f *flakyStore) SaveRoute(ctx context.Context, r model.Route) error {
    if f.okSaves == 0 { return errors.New("disk full") }
    f.okSaves--
    return f.Memory.SaveRoute(ctx, r)
}

func TestOptimizeMultiPartialSaveAnnouncesNothing(t *testing.T) {
    s := newTestServer(t, testConfig())
    fs := &flakyStore{Memory: store.NewMemory(), okSaves: 2}
    s.Store = fs
    all := s.Broker.Subscribe(AllRoutes)
    defer s.Broker.Unsubscribe(AllRoutes, all)

    dests := []string{"Customer 1", "Customer 2", "Customer 3", "Customer 4", "Customer 5", "Customer 6", "Customer 7", "Customer 8"}
    rr := do(t, s.Routes(), http.MethodPost, "/v1/optimize/multi", map[string]any{"start": "Depot A", "destinations": dests})
    require.Equal(t, http.StatusInternalServerError, rr.Code, rr.Body.String())

    p := decode[Problem](t, rr)
    require.Equal(t, "Save route failed", p.Title)
    require.Contains(t, p.Detail, "disk full")

    stored, err := fs.Memory.ListRoutes(context.Background(), 10)
    require.NoError(t, err)
    require.Len(t, stored, 2)
    for _, r := range stored {
        require.True(t, strings.Contains(p.Detail, r.ID), "detail %q should name %s", p.Detail, r.ID)
    }

    select {
    case evt := <-all:
        t.Fatalf("unexpected event %s for %s", evt.Type, evt.RouteID)
    default:
    }
}
