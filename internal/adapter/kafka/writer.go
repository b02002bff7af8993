// Package kafka mirrors broadcast events onto a Kafka topic for consumers
// outside the realtime subscriber population. The mirror is feature-flagged
// and best-effort: a write failure is logged, never propagated into the
// sweep.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/trailhaven/ecowatch/internal/config"
	"github.com/trailhaven/ecowatch/internal/domain"
)

const writeTimeout = 5 * time.Second

// Mirror publishes broadcast events to the configured topic.
type Mirror struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewMirror creates a Kafka producer for the event mirror topic.
func NewMirror(cfg *config.Config, logger *slog.Logger) *Mirror {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Mirror{writer: w, logger: logger}
}

// Publish serializes and writes one event. Implements fanout.Publisher.
func (m *Mirror) Publish(ev domain.BroadcastEvent) {
	msg, err := serializeToMessage(ev)
	if err != nil {
		m.logger.Warn("mirror serialize failed", "event_type", ev.Type, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := m.writer.WriteMessages(ctx, msg); err != nil {
		m.logger.Warn("mirror write failed", "event_type", ev.Type, "error", err)
	}
}

func (m *Mirror) Close() error {
	return m.writer.Close()
}

// serializeToMessage marshals a broadcast event into a Kafka message keyed
// by destination so per-destination ordering survives partitioning.
func serializeToMessage(ev domain.BroadcastEvent) (kafkago.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize broadcast event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ev.DestinationID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
		},
	}, nil
}
