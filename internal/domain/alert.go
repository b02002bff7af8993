package domain

import (
	"time"

	"github.com/google/uuid"
)

// AlertType classifies an alert. At most one alert per (destination, type)
// pair may be active at any instant; the lifecycle manager enforces this,
// not the record store.
type AlertType string

const (
	AlertWeather     AlertType = "weather"
	AlertCapacity    AlertType = "capacity"
	AlertEcological  AlertType = "ecological"
	AlertEmergency   AlertType = "emergency"
	AlertMaintenance AlertType = "maintenance"
)

// Severity ranks an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert is one alert row in the record store.
type Alert struct {
	ID            string    `json:"id"`
	DestinationID string    `json:"destination_id"`
	Type          AlertType `json:"type"`
	Severity      Severity  `json:"severity"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	Active        bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewAlert builds an active alert with a fresh ID and the current clock time.
func NewAlert(destinationID string, typ AlertType, severity Severity, title, message string) Alert {
	return Alert{
		ID:            uuid.NewString(),
		DestinationID: destinationID,
		Type:          typ,
		Severity:      severity,
		Title:         title,
		Message:       message,
		Active:        true,
		CreatedAt:     clock.Now().UTC(),
	}
}

// EventType tags a BroadcastEvent.
type EventType string

const (
	EventWeatherUpdate EventType = "weather_update"
	EventAlertCreated  EventType = "alert_created"
	EventHeartbeat     EventType = "heartbeat"
)

// BroadcastEvent is the ephemeral wire message fanned out to realtime
// subscribers. It is never persisted; latest state is always re-derivable
// from the record store.
type BroadcastEvent struct {
	Type          EventType `json:"type"`
	DestinationID string    `json:"destination_id,omitempty"`
	Payload       any       `json:"payload,omitempty"`
}
