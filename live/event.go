package live

import (
	"encoding/json"
)

// Live events.
const (
	EventError    = "err"
	EventPatch    = "patch"
	EventAck      = "ack"
	EventConnect  = "connect"
	EventParams   = "params"
	EventHash     = "hash"
	EventRedirect = "redirect"
)

// Event messages that are sent and received by the
// socket.
type Event struct {
	// T the type of the event.
	T string `json:"t"`
	// ID an optional ID, used so that the client can match
	// an ack to the event it sent.
	ID int `json:"i,omitempty"`
	// Data the payload of the event as it travels over the wire.
	Data json.RawMessage `json:"d,omitempty"`
	// SelfData data sent by the server to itself, this never leaves
	// the process.
	SelfData any `json:"-"`
}

// EventConfig configures an event.
type EventConfig func(e *Event) error

// WithID sets the ID of an event.
func WithID(ID int) EventConfig {
	return func(e *Event) error {
		e.ID = ID
		return nil
	}
}

// ErrorEvent is sent to the client when an event handler
// returns an error.
type ErrorEvent struct {
	Source Event  `json:"source"`
	Err    string `json:"err"`
}

// Params extract params from inbound message.
func (e Event) Params() (Params, error) {
	if len(e.Data) == 0 {
		return Params{}, nil
	}
	var p Params
	if err := json.Unmarshal(e.Data, &p); err != nil {
		return nil, ErrMessageMalformed
	}
	if p == nil {
		return Params{}, nil
	}
	return p, nil
}

// Payload returns the data carried by an event, preferring
// in process data over data that arrived on the wire.
func (e Event) Payload() any {
	if e.SelfData != nil {
		return e.SelfData
	}
	if len(e.Data) == 0 {
		return nil
	}
	return e.Data
}
