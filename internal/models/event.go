package models

import "encoding/json"

// EventType tags messages pushed to dashboard websocket clients.
type EventType string

const (
	EventPresence     EventType = "presence"
	EventMutation     EventType = "mutation"
	EventAction       EventType = "action"
	EventMetric       EventType = "metric"
	EventNotification EventType = "notification"
	EventError        EventType = "error"
)

type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

func EncodeEvent(t EventType, payload any) ([]byte, error) {
	return json.Marshal(Event{Type: t, Payload: payload})
}

// ClientMessage is what a dashboard client may send over its websocket.
type ClientMessage struct {
	Type string  `json:"type"` // "cursor" or "view"
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
	View string  `json:"view,omitempty"`
}
