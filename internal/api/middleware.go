package api

import (
    "bufio"
    "errors"
    "net"
    "net/http"
    "slices"
    "strconv"
    "time"

    "github.com/sirupsen/logrus"
    "golang.org/x/time/rate"

    "fleetopt/internal/metrics"
)

// statusRecorder captures the response status. It passes Flush and Hijack
// through so SSE and WebSocket handlers keep working behind middleware.
type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (r *statusRecorder) WriteHeader(code int) {
    if r.status == 0 { r.status = code }
    r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
    if r.status == 0 { r.status = http.StatusOK }
    return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
    if f, ok := r.ResponseWriter.(http.Flusher); ok { f.Flush() }
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
    h, ok := r.ResponseWriter.(http.Hijacker)
    if !ok { return nil, nil, errors.New("hijack not supported") }
    if r.status == 0 { r.status = http.StatusSwitchingProtocols }
    return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (r *statusRecorder) code() int {
    if r.status == 0 { return http.StatusOK }
    return r.status
}

// observe logs every request and records it in the HTTP metrics. The
// metrics path label is the matched mux pattern, not the raw URL.
func observe(log logrus.FieldLogger, next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := &statusRecorder{ResponseWriter: w}
        next.ServeHTTP(rec, r)
        dur := time.Since(start)
        path := r.Pattern
        if path == "" { path = "unmatched" }
        status := strconv.Itoa(rec.code())
        metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
        metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(dur.Seconds())
        entry := log.WithFields(logrus.Fields{
            "method":   r.Method,
            "path":     r.URL.Path,
            "status":   rec.code(),
            "duration": dur,
            "remote":   r.RemoteAddr,
        })
        if rec.code() >= 500 { entry.Warn("request failed") } else { entry.Debug("request") }
    })
}

// limitRate rejects requests beyond the token bucket with 429. Probes and
// the metrics endpoint are exempt.
func limitRate(l *rate.Limiter, next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        switch r.URL.Path {
        case "/healthz", "/readyz", "/metrics":
            next.ServeHTTP(w, r)
            return
        }
        if !l.Allow() {
            w.Header().Set("Retry-After", "1")
            writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded", r.URL.Path)
            return
        }
        next.ServeHTTP(w, r)
    })
}

// cors allows the configured origins; "*" allows any. Preflight requests
// are answered directly.
func cors(origins []string, next http.Handler) http.Handler {
    wildcard := slices.Contains(origins, "*")
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        origin := r.Header.Get("Origin")
        if origin != "" && (wildcard || slices.Contains(origins, origin)) {
            h := w.Header()
            if wildcard { h.Set("Access-Control-Allow-Origin", "*") } else {
                h.Set("Access-Control-Allow-Origin", origin)
                h.Add("Vary", "Origin")
            }
            h.Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
            h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
            if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
                w.WriteHeader(http.StatusNoContent)
                return
            }
        }
        next.ServeHTTP(w, r)
    })
}

func recoverer(log logrus.FieldLogger, next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        defer func() {
            if v := recover(); v != nil {
                if v == http.ErrAbortHandler { panic(v) }
                log.WithFields(logrus.Fields{"panic": v, "path": r.URL.Path}).Error("handler panicked")
                writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "", r.URL.Path)
            }
        }()
        next.ServeHTTP(w, r)
    })
}
