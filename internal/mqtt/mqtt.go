// Package mqtt publishes DC-01 events and system lifecycle messages.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/dc01-interlock/internal/logic"
)

// TopicEvents is the MQTT topic for interlock events.
const TopicEvents = "dcc/dc01/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "dcc/dc01/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends an interlock event. A failure must not stop the device.
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Event is a controller event stamped with the time it was drained.
type Event struct {
	Timestamp time.Time
	logic.Event
}

// SystemEvent represents a system lifecycle event (startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g. "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g. "SIGTERM" (shutdown only)
	RawPayload []byte // pre-formatted JSON; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Payload is the MQTT message body for interlock events.
type Payload struct {
	DC01 EventPayload `json:"dc01"`
}

// EventPayload contains the event details.
type EventPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Mode      string `json:"mode"`
	Connected bool   `json:"connected"`
	Failure   string `json:"failure"`
}

// FormatPayload creates the JSON payload for an interlock event.
func FormatPayload(event Event) ([]byte, error) {
	return json.Marshal(Payload{
		DC01: EventPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Mode:      event.Mode.String(),
			Connected: event.Connected,
			Failure:   event.Failure.String(),
		},
	})
}

// SystemPayload is the body of simple system events (will message,
// RECONNECTED) that carry no status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// A set RawPayload is returned unchanged.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	return json.Marshal(SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	})
}
