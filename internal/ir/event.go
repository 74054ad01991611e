package ir

// Payload is the constraint for application-defined event payloads.
//
// A store is instantiated with exactly one payload type. That type is expected
// to be a closed tagged variant: EventType reports the tag, and the reducer
// switches on it exhaustively.
type Payload interface {
	EventType() string
}

// Event is a single immutable fact recorded in the log.
//
// ID is the identity of the event. Timestamp is wall-clock milliseconds at
// append time; it is used for time-based navigation only. Ordering is always
// the log position.
type Event[P Payload] struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	Type      string `json:"type"`
	Payload   P      `json:"payload"`
}

// NewEvent builds an event, deriving Type from the payload tag.
func NewEvent[P Payload](id string, timestamp int64, payload P) Event[P] {
	return Event[P]{
		ID:        id,
		Timestamp: timestamp,
		Type:      payload.EventType(),
		Payload:   payload,
	}
}
