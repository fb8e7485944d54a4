package api

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strconv"

    "fleetopt/internal/fleet"
    "fleetopt/internal/inventory"
    "fleetopt/internal/model"
    "fleetopt/internal/opt"
    "fleetopt/internal/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Problem represents an RFC7807 problem details response body.
type Problem struct {
    Type     string `json:"type"`
    Title    string `json:"title"`
    Status   int    `json:"status"`
    Detail   string `json:"detail,omitempty"`
    Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
    w.Header().Set("Content-Type", "application/problem+json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(Problem{
        Type:     "about:blank",
        Title:    title,
        Status:   status,
        Detail:   detail,
        Instance: instance,
    })
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
    dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
    if err := dec.Decode(v); err != nil {
        return fmt.Errorf("decode body: %w", err)
    }
    return nil
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
    var verr *opt.ValidationError
    switch {
    case errors.As(err, &verr):
        return http.StatusBadRequest
    case errors.Is(err, store.ErrNotFound), errors.Is(err, fleet.ErrVehicleNotFound),
        errors.Is(err, inventory.ErrItemNotFound), errors.Is(err, inventory.ErrWarehouseNotFound):
        return http.StatusNotFound
    case errors.Is(err, model.ErrInvalidTransition):
        return http.StatusConflict
    case errors.Is(err, inventory.ErrInsufficientStock), errors.Is(err, fleet.ErrInvalidStatus),
        errors.Is(err, fleet.ErrInvalidLoad):
        return http.StatusBadRequest
    case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
        return http.StatusServiceUnavailable
    }
    return http.StatusInternalServerError
}

// fail writes err as a problem. Server errors are logged; client errors are not.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, title string, err error) {
    status := statusFor(err)
    if status >= 500 {
        s.Log.WithError(err).WithField("path", r.URL.Path).Error(title)
    }
    writeProblem(w, status, title, err.Error(), r.URL.Path)
}

// intQuery parses an optional positive integer query parameter bounded by max.
func intQuery(r *http.Request, name string, def, max int) (int, error) {
    v := r.URL.Query().Get(name)
    if v == "" { return def, nil }
    n, err := strconv.Atoi(v)
    if err != nil || n <= 0 || n > max {
        return 0, fmt.Errorf("%s must be an integer in [1, %d]", name, max)
    }
    return n, nil
}
