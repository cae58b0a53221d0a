package live

import (
	"encoding/json"
	"fmt"
)

// MessageType tags a server-to-client message.
type MessageType string

const (
	MessageHello    MessageType = "hello"
	MessageFrame    MessageType = "frame"
	MessageStatus   MessageType = "status"
	MessageNavigate MessageType = "navigate"
	MessageError    MessageType = "error"
	MessagePong     MessageType = "pong"
)

// Message is the server-to-client envelope.
type Message struct {
	Type    MessageType `json:"type"`
	Session string      `json:"session,omitempty"`
	Seq     uint64      `json:"seq,omitempty"`
	Data    any         `json:"data,omitempty"`
}

// EventType represents client-side event types
type EventType string

const (
	EventHover       EventType = "hover"
	EventUnhover     EventType = "unhover"
	EventClick       EventType = "click"
	EventBackground  EventType = "background"
	EventZoomIn      EventType = "zoomIn"
	EventZoomOut     EventType = "zoomOut"
	EventReset       EventType = "reset"
	EventSearch      EventType = "search"
	EventClearSearch EventType = "clearSearch"
	EventPointer     EventType = "pointer"
	EventPointerDown EventType = "pointerDown"
	EventPan         EventType = "pan"
	EventWheel       EventType = "wheel"
	EventResize      EventType = "resize"
	EventPing        EventType = "ping"
)

// Event represents a client-side event
type Event struct {
	Type   EventType `json:"type"`
	NodeID string    `json:"id,omitempty"`
	Query  string    `json:"query,omitempty"`
	X      float64   `json:"x,omitempty"`
	Y      float64   `json:"y,omitempty"`
	DX     float64   `json:"dx,omitempty"`
	DY     float64   `json:"dy,omitempty"`
	Factor float64   `json:"factor,omitempty"`
	Width  float64   `json:"width,omitempty"`
	Height float64   `json:"height,omitempty"`
}

// DecodeEvent parses and validates a client event.
func DecodeEvent(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	switch ev.Type {
	case EventHover, EventClick:
		if ev.NodeID == "" {
			return Event{}, fmt.Errorf("decode event: %s requires id", ev.Type)
		}
	case EventWheel:
		if ev.Factor <= 0 {
			return Event{}, fmt.Errorf("decode event: wheel requires a positive factor")
		}
	case EventResize:
		if ev.Width <= 0 || ev.Height <= 0 {
			return Event{}, fmt.Errorf("decode event: resize requires a positive size")
		}
	case EventUnhover, EventBackground, EventZoomIn, EventZoomOut, EventReset,
		EventSearch, EventClearSearch, EventPointer, EventPointerDown, EventPan, EventPing:
	default:
		return Event{}, fmt.Errorf("decode event: unknown type %q", ev.Type)
	}
	return ev, nil
}
