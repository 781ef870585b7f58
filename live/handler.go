package live

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// HandlerConfig applies config to a handler.
type HandlerConfig func(h *Handler) error

// MountHandler the func that is called by a handler to gather data to
// be rendered in a template. This is called on first GET and then later when
// the web socket first connects. It should return the state to be maintained
// in the socket.
type MountHandler func(ctx context.Context, s *Socket) (any, error)

// UnmountHandler the func that is called by a handler to report that a connection
// is closed. This is called on websocket close. Can be used to track number of
// connected users, or to release resources owned by the socket.
type UnmountHandler func(s *Socket) error

// RenderHandler the func that is called to render the current state of the
// data for the socket.
type RenderHandler func(ctx context.Context, rc *RenderContext) (io.Reader, error)

// ErrorHandler if an error occurs during the mount and render cycle
// a handler of this type will be called.
type ErrorHandler func(ctx context.Context, err error)

// EventHandler a function to handle events, returns the data that should
// be set to the socket after handling.
type EventHandler func(ctx context.Context, s *Socket, p Params) (any, error)

// SelfHandler a function to handle self events, returns the data that should
// be set to the socket after handling.
type SelfHandler func(ctx context.Context, s *Socket, data any) (any, error)

// Handler contains the developer defined logic of a view.
type Handler struct {
	// MountHandler a user should provide the mount function. This is what
	// is called on initial GET request and later when the websocket connects.
	// Data to render the handler should be fetched here and returned.
	MountHandler MountHandler
	// UnmountHandler used to track webocket disconnections.
	UnmountHandler UnmountHandler
	// Render is called to generate the HTML of a Socket. It is defined
	// by default and will render any template provided.
	RenderHandler RenderHandler
	// Error is called when an error occurs during the mount and render
	// stages of the handler lifecycle.
	ErrorHandler ErrorHandler

	handlersMu sync.RWMutex
	// eventHandlers the map of client event handlers.
	eventHandlers map[string]EventHandler
	// selfHandlers the map of handler event handlers.
	selfHandlers map[string]SelfHandler
	// paramsHandlers a slice of handlers which respond to a change in URL parameters.
	paramsHandlers []EventHandler
	// hashHandlers a slice of handlers which respond to a change in the URL fragment.
	hashHandlers []EventHandler
}

// NewHandler sets up a base handler for live.
func NewHandler(configs ...HandlerConfig) *Handler {
	h := &Handler{
		eventHandlers:  make(map[string]EventHandler),
		selfHandlers:   make(map[string]SelfHandler),
		paramsHandlers: []EventHandler{},
		hashHandlers:   []EventHandler{},
		MountHandler: func(ctx context.Context, s *Socket) (any, error) {
			return nil, nil
		},
		UnmountHandler: func(s *Socket) error {
			return nil
		},
		RenderHandler: func(ctx context.Context, rc *RenderContext) (io.Reader, error) {
			return nil, ErrNoRenderer
		},
		ErrorHandler: func(ctx context.Context, err error) {
			w := Writer(ctx)
			if w != nil {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(err.Error()))
			}
		},
	}
	for _, conf := range configs {
		if err := conf(h); err != nil {
			panic(fmt.Sprintf("could not apply config to handler: %s", err))
		}
	}
	return h
}

// HandleMount sets the mount handler.
func (h *Handler) HandleMount(f MountHandler) {
	h.MountHandler = f
}

// HandleUnmount sets the unmount handler.
func (h *Handler) HandleUnmount(f UnmountHandler) {
	h.UnmountHandler = f
}

// HandleRender sets the render handler.
func (h *Handler) HandleRender(f RenderHandler) {
	h.RenderHandler = f
}

// HandleError sets the error handler.
func (h *Handler) HandleError(f ErrorHandler) {
	h.ErrorHandler = f
}

// HandleEvent handles an event that comes from the client. For example a click
// from `live-click="myevent"`.
func (h *Handler) HandleEvent(t string, handler EventHandler) {
	h.handlersMu.Lock()
	defer h.handlersMu.Unlock()
	h.eventHandlers[t] = handler
}

// HandleSelf handles an event that comes from the server side socket. For example calling
// s.Self(ctx, event, data) will be handled here.
func (h *Handler) HandleSelf(t string, handler SelfHandler) {
	h.handlersMu.Lock()
	defer h.handlersMu.Unlock()
	h.selfHandlers[t] = handler
}

// HandleParams handles a URL query parameter change. This is useful for handling
// things like pagination, or some filtering.
func (h *Handler) HandleParams(handler EventHandler) {
	h.handlersMu.Lock()
	defer h.handlersMu.Unlock()
	h.paramsHandlers = append(h.paramsHandlers, handler)
}

// HandleHash handles a change to the URL fragment. The client sends the
// fragment once connected and again on every hashchange. The raw fragment,
// without the leading "#", is found under the "hash" key of the params.
func (h *Handler) HandleHash(handler EventHandler) {
	h.handlersMu.Lock()
	defer h.handlersMu.Unlock()
	h.hashHandlers = append(h.hashHandlers, handler)
}

func (h *Handler) getEvent(t string) (EventHandler, error) {
	h.handlersMu.RLock()
	defer h.handlersMu.RUnlock()
	handler, ok := h.eventHandlers[t]
	if !ok {
		return nil, fmt.Errorf("no event handler for %s: %w", t, ErrNoEventHandler)
	}
	return handler, nil
}

func (h *Handler) getSelf(t string) (SelfHandler, error) {
	h.handlersMu.RLock()
	defer h.handlersMu.RUnlock()
	handler, ok := h.selfHandlers[t]
	if !ok {
		return nil, fmt.Errorf("no self event handler for %s: %w", t, ErrNoEventHandler)
	}
	return handler, nil
}

func (h *Handler) getParams() []EventHandler {
	h.handlersMu.RLock()
	defer h.handlersMu.RUnlock()
	return append([]EventHandler(nil), h.paramsHandlers...)
}

func (h *Handler) getHash() []EventHandler {
	h.handlersMu.RLock()
	defer h.handlersMu.RUnlock()
	return append([]EventHandler(nil), h.hashHandlers...)
}
