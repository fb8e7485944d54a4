// Package webhooks pushes route events to configured HTTP endpoints with
// signed, retried deliveries.
package webhooks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Payload is the JSON body POSTed to every endpoint.
type Payload struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	RouteID string         `json:"routeId"`
	At      time.Time      `json:"ts"`
	Data    map[string]any `json:"data,omitempty"`
}

type Publisher struct {
	worker *Worker
	now    func() time.Time
}

func NewPublisher(w *Worker) *Publisher {
	return &Publisher{worker: w, now: time.Now}
}

// Emit fans one event out to every configured endpoint.
func (p *Publisher) Emit(eventType, routeID string, data map[string]any) {
	body, err := json.Marshal(Payload{
		ID:      "evt_" + uuid.NewString(),
		Type:    eventType,
		RouteID: routeID,
		At:      p.now().UTC(),
		Data:    data,
	})
	if err != nil {
		p.worker.log.WithError(err).WithField("type", eventType).Warn("webhook payload not encodable")
		return
	}
	for _, u := range p.worker.urls {
		p.worker.Enqueue(Delivery{URL: u, EventType: eventType, Payload: body})
	}
}
