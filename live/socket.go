package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/net/html"
)

const (
	// maxMessageBufferSize the maximum number of messages per socket in a buffer.
	maxMessageBufferSize = 16
)

// SocketID a unique identifier for a socket.
type SocketID string

// Socket describes a connected user, and the state that they
// are in.
type Socket struct {
	id      SocketID
	session Session
	engine  *Engine

	connected bool
	msgs      chan Event
	closeSlow func()

	// eventMu serialises event handling and rendering for this socket.
	eventMu       sync.Mutex
	currentRender *html.Node

	data   any
	dataMu sync.Mutex
}

// NewSocket creates a new socket for a session.
func NewSocket(session Session, e *Engine, connected bool) *Socket {
	return &Socket{
		id:        SocketID(NewID()),
		session:   session,
		engine:    e,
		connected: connected,
		msgs:      make(chan Event, maxMessageBufferSize),
		closeSlow: func() {},
	}
}

// ID returns the unique ID of this socket.
func (s *Socket) ID() SocketID {
	return s.id
}

// Session returns the sockets session.
func (s *Socket) Session() Session {
	return s.session
}

// Assigns returns the data currently assigned to this
// socket.
func (s *Socket) Assigns() any {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	return s.data
}

// Assign set data to this socket. This will happen automatically
// if you return data from an `EventHander`.
func (s *Socket) Assign(data any) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.data = data
}

// Connected returns if this socket is connected via the websocket.
func (s *Socket) Connected() bool {
	return s.connected
}

// Self sends an event to this socket itself. Will be handled in the
// handlers HandleSelf function. It must not be called from inside an
// event handler of the same socket, as handling blocks until the
// current event is finished.
func (s *Socket) Self(ctx context.Context, event string, data any) error {
	if s.engine == nil {
		return ErrNoSocket
	}
	return s.engine.self(ctx, s, Event{T: event, SelfData: data})
}

// Broadcast sends an event to all sockets on the same engine.
func (s *Socket) Broadcast(event string, data any) error {
	if s.engine == nil {
		return ErrNoSocket
	}
	return s.engine.Broadcast(event, data)
}

// Send an event to this socket's client, to be handled there.
func (s *Socket) Send(event string, data any, options ...EventConfig) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("could not encode data for send: %w", err)
	}
	msg := Event{T: event, Data: payload}
	for _, o := range options {
		if err := o(&msg); err != nil {
			return fmt.Errorf("could not configure event: %w", err)
		}
	}
	select {
	case s.msgs <- msg:
	default:
		go s.closeSlow()
	}
	return nil
}

// PatchURL sends an event to the client to update the
// query params in the URL.
func (s *Socket) PatchURL(values url.Values) {
	s.Send(EventParams, values.Encode())
}

// PushHash sends an event to the client to set the URL fragment,
// pushing a new history entry without reloading the page.
func (s *Socket) PushHash(fragment string) {
	s.Send(EventHash, fragment)
}

// Redirect sends a redirect event to the client. This will trigger the browser to
// redirect to a URL.
func (s *Socket) Redirect(u *url.URL) {
	s.Send(EventRedirect, u.String())
}

// LatestRender return the latest render that this socket generated.
func (s *Socket) LatestRender() *html.Node {
	return s.currentRender
}

// UpdateRender set the latest render.
func (s *Socket) UpdateRender(render *html.Node) {
	s.currentRender = render
}

// Messages returns the channel of events on this socket.
func (s *Socket) Messages() chan Event {
	return s.msgs
}
