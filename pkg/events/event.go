package events

import "time"

// Event types raised by the client.
const (
	TypeUserLogin      = "USER_LOGIN"
	TypeUserLogout     = "USER_LOGOUT"
	TypeProjectLoaded  = "PROJECT_LOADED"
	TypeAlertTriggered = "ALERT_TRIGGERED"
	TypePlaybackTick   = "PLAYBACK_TICK"
	TypeStateChanged   = "STATE_CHANGED"
)

// Event defines the contract for all client events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "USER_LOGIN").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
