package webhooks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fleetopt/internal/metrics"
)

// batchSize bounds how many due deliveries one tick sends.
const batchSize = 50

// Delivery is one queued POST of an event payload to one endpoint.
type Delivery struct {
	ID        string
	URL       string
	EventType string
	Payload   []byte
	Attempts  int
	NextAt    time.Time
	LastError string
}

type Worker struct {
	HTTP        *http.Client
	MaxAttempts int
	Interval    time.Duration

	urls   []string
	secret string
	log    logrus.FieldLogger
	now    func() time.Time

	mu      sync.Mutex
	pending []Delivery
}

func NewWorker(urls []string, secret string, maxAttempts int, log logrus.FieldLogger) *Worker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Worker{
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		MaxAttempts: maxAttempts,
		Interval:    time.Second,
		urls:        urls,
		secret:      secret,
		log:         log,
		now:         time.Now,
	}
}

// Enqueue schedules d for immediate delivery.
func (w *Worker) Enqueue(d Delivery) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.NextAt.IsZero() {
		d.NextAt = w.now()
	}
	w.mu.Lock()
	w.pending = append(w.pending, d)
	w.mu.Unlock()
}

// Pending returns the number of queued deliveries.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Start polls the queue until ctx is done.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.processOnce(ctx)
			}
		}
	}()
}

// due removes and returns up to batchSize deliveries whose NextAt has passed.
func (w *Worker) due() []Delivery {
	now := w.now()
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Delivery
	keep := w.pending[:0]
	for _, d := range w.pending {
		if len(out) < batchSize && !d.NextAt.After(now) {
			out = append(out, d)
			continue
		}
		keep = append(keep, d)
	}
	w.pending = keep
	return out
}

func (w *Worker) processOnce(ctx context.Context) {
	items := w.due()
	if len(items) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	for _, it := range items {
		code, err := w.send(ctx, it)
		l := w.log.WithFields(logrus.Fields{"delivery": it.ID, "url": it.URL, "type": it.EventType, "status": code})
		if err == nil {
			metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
			l.Debug("webhook delivered")
			continue
		}
		it.Attempts++
		it.LastError = err.Error()
		if it.Attempts >= w.MaxAttempts {
			metrics.WebhookDeliveries.WithLabelValues("dropped").Inc()
			l.WithError(err).WithField("attempts", it.Attempts).Warn("webhook dropped")
			continue
		}
		metrics.WebhookDeliveries.WithLabelValues("retry").Inc()
		it.NextAt = w.now().Add(nextBackoff(it.Attempts - 1))
		w.Enqueue(it)
	}
}

func (w *Worker) send(ctx context.Context, it Delivery) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, it.URL, bytes.NewReader(it.Payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", it.EventType)
	if w.secret != "" {
		req.Header.Set("X-Signature", SignHMAC(w.secret, it.Payload))
	}
	resp, err := w.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return resp.StatusCode, nil
}

// nextBackoff doubles from one second and caps at an hour.
func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
