// Package fanout distributes broadcast events to all currently-connected
// realtime subscribers. Delivery is at-most-once and best-effort: there is
// no backlog, no replay, and no per-subscriber persistence — a client that
// reconnects re-derives current state from the record store.
package fanout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trailhaven/ecowatch/internal/domain"
	"github.com/trailhaven/ecowatch/internal/observability"
)

// Subscriber is one long-lived connection's view of the shared topic.
type Subscriber struct {
	id     string
	events chan domain.BroadcastEvent
}

// ID identifies the subscriber in logs.
func (s *Subscriber) ID() string { return s.id }

// Events is the subscriber's receive channel. It is closed on Unsubscribe.
func (s *Subscriber) Events() <-chan domain.BroadcastEvent { return s.events }

// Hub is the shared broadcast topic. Each subscriber gets its own buffered
// queue; when a queue is full the event is dropped for that subscriber so
// one slow consumer never blocks publication to the others.
type Hub struct {
	buffer  int
	logger  *slog.Logger
	metrics *observability.Metrics

	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

// NewHub creates a hub with the given per-subscriber queue depth.
func NewHub(buffer int, logger *slog.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		buffer:  buffer,
		logger:  logger,
		metrics: metrics,
		subs:    make(map[*Subscriber]struct{}),
	}
}

// Subscribe registers a new connection. Events published before the call
// returns are not delivered to it.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{
		id:     uuid.NewString(),
		events: make(chan domain.BroadcastEvent, h.buffer),
	}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	count := len(h.subs)
	h.mu.Unlock()

	h.metrics.FanoutSubscribers.Set(float64(count))
	h.logger.Debug("subscriber connected", "subscriber_id", s.id, "subscribers", count)
	return s
}

// Unsubscribe removes the connection and closes its channel. Safe to call
// once per subscriber; reconnection is the client's job.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	_, ok := h.subs[s]
	if ok {
		delete(h.subs, s)
		close(s.events)
	}
	count := len(h.subs)
	h.mu.Unlock()

	if ok {
		h.metrics.FanoutSubscribers.Set(float64(count))
		h.logger.Debug("subscriber disconnected", "subscriber_id", s.id, "subscribers", count)
	}
}

// Publish copies the event to every current subscriber. The publisher
// never blocks: a full subscriber queue drops the event for that
// subscriber only.
func (h *Hub) Publish(ev domain.BroadcastEvent) {
	h.metrics.EventsPublished.WithLabelValues(string(ev.Type)).Inc()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for s := range h.subs {
		select {
		case s.events <- ev:
		default:
			h.metrics.EventsDropped.Inc()
			h.logger.Warn("subscriber queue full, event dropped",
				"subscriber_id", s.id, "event_type", ev.Type)
		}
	}
}

// Run emits heartbeat events at the given interval until the context is
// cancelled, keeping idle streaming connections alive through proxies.
func (h *Hub) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Publish(domain.BroadcastEvent{Type: domain.EventHeartbeat})
		}
	}
}
