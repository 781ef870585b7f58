package live

import "errors"

var (
	// ErrViewMisconfigured returned when a view is not configured
	// correctly.
	ErrViewMisconfigured = errors.New("view misconfigured")
	// ErrNoRenderer returned when no renderer has been set on the handler.
	ErrNoRenderer = errors.New("no renderer has been set on the handler")
	// ErrNoEventHandler returned when a handler has no event handler for
	// the event type.
	ErrNoEventHandler = errors.New("view missing event handler")
	// ErrMessageMalformed returned when a message could not be parsed
	// correctly.
	ErrMessageMalformed = errors.New("message malformed")
	// ErrNoSocket returned when a socket doesn't exist.
	ErrNoSocket = errors.New("no socket")
)
