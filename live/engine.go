package live

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
)

// EngineConfig applies configuration to an engine.
type EngineConfig func(e *Engine) error

// WithWebsocketAcceptOptions apply websocket accept options to the HTTP engine.
func WithWebsocketAcceptOptions(options *websocket.AcceptOptions) EngineConfig {
	return func(e *Engine) error {
		e.acceptOptions = options
		return nil
	}
}

// WithWebsocketMaxMessageSize sets the read limit of the websocket, -1
// disables the limit.
func WithWebsocketMaxMessageSize(n int64) EngineConfig {
	return func(e *Engine) error {
		e.MaxMessageSize = max(n, -1)
		return nil
	}
}

// WithLogger sets the logger of the engine.
func WithLogger(l *zap.Logger) EngineConfig {
	return func(e *Engine) error {
		if l == nil {
			return errors.New("nil logger")
		}
		e.logger = l
		return nil
	}
}

// BroadcastHandler a way for processes to communicate.
type BroadcastHandler func(ctx context.Context, e *Engine, msg Event)

// Engine serves a Handler over net/http, first as a plain GET and then over a
// websocket.
type Engine struct {
	// Handler implements all the developer defined logic.
	Handler *Handler

	// BroadcastLimiter limit broadcast rate.
	BroadcastLimiter *rate.Limiter
	// BroadcastHandler handle a broadcast.
	BroadcastHandler BroadcastHandler

	// IgnoreFaviconRequest setting to ignore requests for /favicon.ico.
	IgnoreFaviconRequest bool

	// MaxMessageSize is the maximum size of websocket messages before they are
	// rejected. Defaults to 32K (32768). Can be set to -1 to disable.
	MaxMessageSize int64

	// socket handling channels.
	addSocketC      chan engineAddSocket
	getSocketC      chan engineGetSocket
	deleteSocketC   chan engineDeleteSocket
	iterateSocketsC chan engineIterateSockets
	done            <-chan struct{}

	sessionStore  HttpSessionStore
	acceptOptions *websocket.AcceptOptions
	logger        *zap.Logger
}

type engineAddSocket struct {
	Socket *Socket
	resp   chan struct{}
}

type engineGetSocket struct {
	ID   SocketID
	resp chan *Socket
	err  chan error
}

type engineDeleteSocket struct {
	ID   SocketID
	resp chan struct{}
}

type engineIterateSockets struct {
	resp chan []*Socket
}

// NewHttpHandler returns the net/http handler for a live Handler. The engine
// stops tracking sockets when ctx is done.
func NewHttpHandler(ctx context.Context, store HttpSessionStore, h *Handler, configs ...EngineConfig) *Engine {
	e := &Engine{
		Handler:              h,
		BroadcastLimiter:     rate.NewLimiter(rate.Every(time.Millisecond*100), 8),
		IgnoreFaviconRequest: true,
		MaxMessageSize:       32768,
		addSocketC:           make(chan engineAddSocket),
		getSocketC:           make(chan engineGetSocket),
		deleteSocketC:        make(chan engineDeleteSocket),
		iterateSocketsC:      make(chan engineIterateSockets),
		done:                 ctx.Done(),
		sessionStore:         store,
		logger:               zap.NewNop(),
	}
	e.BroadcastHandler = func(ctx context.Context, e *Engine, msg Event) {
		e.self(ctx, nil, msg)
	}
	for _, conf := range configs {
		if err := conf(e); err != nil {
			e.logger.Warn("could not apply config to engine", zap.Error(err))
		}
	}
	go e.operate(ctx)
	return e
}

func (e *Engine) operate(ctx context.Context) {
	socketMap := map[SocketID]*Socket{}
	for {
		select {
		case op := <-e.addSocketC:
			socketMap[op.Socket.ID()] = op.Socket
			op.resp <- struct{}{}
		case op := <-e.getSocketC:
			s, ok := socketMap[op.ID]
			if !ok {
				op.err <- ErrNoSocket
				continue
			}
			op.resp <- s
		case op := <-e.deleteSocketC:
			delete(socketMap, op.ID)
			op.resp <- struct{}{}
		case op := <-e.iterateSocketsC:
			sockets := make([]*Socket, 0, len(socketMap))
			for _, s := range socketMap {
				sockets = append(sockets, s)
			}
			op.resp <- sockets
		case <-ctx.Done():
			return
		}
	}
}

// Logger returns the engines logger.
func (e *Engine) Logger() *zap.Logger {
	return e.logger
}

// HandleBroadcast sets the broadcast handler. Used by PubSub to route
// broadcasts through a transport.
func (e *Engine) HandleBroadcast(f BroadcastHandler) {
	e.BroadcastHandler = f
}

// Broadcast send a message to all sockets connected to this engine.
func (e *Engine) Broadcast(event string, data any) error {
	ev := Event{T: event, SelfData: data}
	ctx := context.Background()
	if err := e.BroadcastLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("broadcast limited: %w", err)
	}
	e.BroadcastHandler(ctx, e, ev)
	return nil
}

// self sends a message to a socket on this engine. A nil socket means the
// message goes to every socket.
func (e *Engine) self(ctx context.Context, sock *Socket, msg Event) error {
	if sock == nil {
		for _, socket := range e.sockets() {
			e.handleEmittedEvent(ctx, socket, msg)
		}
		return nil
	}
	if err := e.hasSocket(sock); err != nil {
		return err
	}
	e.handleEmittedEvent(ctx, sock, msg)
	return nil
}

func (e *Engine) handleEmittedEvent(ctx context.Context, s *Socket, msg Event) {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()
	if err := e.handleSelf(ctx, msg.T, s, msg); err != nil {
		e.logger.Error("server event error", zap.String("event", msg.T), zap.Error(err))
	}
	render, err := RenderSocket(ctx, e, s)
	if err != nil {
		e.logger.Error("socket render error", zap.Error(err))
		return
	}
	s.UpdateRender(render)
}

// AddSocket add a socket to the engine.
func (e *Engine) AddSocket(sock *Socket) {
	op := engineAddSocket{
		Socket: sock,
		resp:   make(chan struct{}),
	}
	select {
	case e.addSocketC <- op:
		<-op.resp
	case <-e.done:
	}
}

// GetSocket get a socket by its ID.
func (e *Engine) GetSocket(ID SocketID) (*Socket, error) {
	op := engineGetSocket{
		ID:   ID,
		resp: make(chan *Socket),
		err:  make(chan error),
	}
	select {
	case e.getSocketC <- op:
	case <-e.done:
		return nil, ErrNoSocket
	}
	select {
	case s := <-op.resp:
		return s, nil
	case err := <-op.err:
		return nil, err
	}
}

// DeleteSocket remove a socket from the engine and unmount it.
func (e *Engine) DeleteSocket(sock *Socket) {
	op := engineDeleteSocket{
		ID:   sock.ID(),
		resp: make(chan struct{}),
	}
	select {
	case e.deleteSocketC <- op:
		<-op.resp
	case <-e.done:
	}
	if err := e.Handler.UnmountHandler(sock); err != nil {
		e.logger.Error("socket unmount error", zap.Error(err))
	}
}

func (e *Engine) sockets() []*Socket {
	op := engineIterateSockets{resp: make(chan []*Socket)}
	select {
	case e.iterateSocketsC <- op:
		return <-op.resp
	case <-e.done:
		return nil
	}
}

// hasSocket check a socket is there error if it isn't connected or
// doesn't exist.
func (e *Engine) hasSocket(s *Socket) error {
	if _, err := e.GetSocket(s.ID()); err != nil {
		return ErrNoSocket
	}
	return nil
}

// CallEvent route an event to the correct handler.
func (e *Engine) CallEvent(ctx context.Context, t string, sock *Socket, msg Event) error {
	handler, err := e.Handler.getEvent(t)
	if err != nil {
		return err
	}

	params, err := msg.Params()
	if err != nil {
		return fmt.Errorf("received message and could not extract params: %w", err)
	}

	data, err := handler(ctx, sock, params)
	if err != nil {
		return err
	}
	sock.Assign(data)

	return nil
}

// handleSelf route an event to the correct handler.
func (e *Engine) handleSelf(ctx context.Context, t string, sock *Socket, msg Event) error {
	handler, err := e.Handler.getSelf(t)
	if err != nil {
		return err
	}

	data, err := handler(ctx, sock, msg.Payload())
	if err != nil {
		return fmt.Errorf("handler self event handler error [%s]: %w", t, err)
	}
	sock.Assign(data)

	return nil
}

// CallParams on params change run the handler.
func (e *Engine) CallParams(ctx context.Context, sock *Socket, msg Event) error {
	params, err := msg.Params()
	if err != nil {
		return fmt.Errorf("received params message and could not extract params: %w", err)
	}
	return e.callParams(ctx, sock, e.Handler.getParams(), params)
}

// CallHash on fragment change run the handler.
func (e *Engine) CallHash(ctx context.Context, sock *Socket, msg Event) error {
	params, err := msg.Params()
	if err != nil {
		return fmt.Errorf("received hash message and could not extract params: %w", err)
	}
	return e.callParams(ctx, sock, e.Handler.getHash(), params)
}

func (e *Engine) callParams(ctx context.Context, sock *Socket, handlers []EventHandler, params Params) error {
	for _, ph := range handlers {
		data, err := ph(ctx, sock, params)
		if err != nil {
			return fmt.Errorf("handler params handler error: %w", err)
		}
		sock.Assign(data)
	}
	return nil
}

// ServeHTTP serves this handler.
func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/favicon.ico" {
		if e.IgnoreFaviconRequest {
			w.WriteHeader(http.StatusNotFound)
			return
		}
	}

	// Check if we are going to upgrade to a websocket.
	upgrade := slices.Contains(r.Header["Upgrade"], "websocket")

	ctx := httpContext(w, r)

	if !upgrade {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			e.get(ctx, w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	// Upgrade to the websocket version.
	e.serveWS(ctx, w, r)
}

// get renderer.
func (e *Engine) get(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	// Get session.
	session, err := e.sessionStore.Get(r)
	if err != nil {
		if r.URL.Query().Get("live-repair") != "" {
			e.Handler.ErrorHandler(ctx, fmt.Errorf("session corrupted: %w", err))
			return
		}
		e.logger.Warn("session corrupted trying to repair", zap.Error(err))
		e.sessionStore.Clear(w, r)
		q := r.URL.Query()
		q.Set("live-repair", "1")
		r.URL.RawQuery = q.Encode()
		http.Redirect(w, r, r.URL.String(), http.StatusTemporaryRedirect)
		return
	}

	// Get socket.
	sock := NewSocket(session, e, false)

	// Run mount, this generates the state for the page we are on.
	data, err := e.Handler.MountHandler(ctx, sock)
	if err != nil {
		e.Handler.ErrorHandler(ctx, err)
		return
	}
	sock.Assign(data)

	// Handle any query parameters that are on the page.
	if err := e.callParams(ctx, sock, e.Handler.getParams(), NewParamsFromRequest(r)); err != nil {
		e.Handler.ErrorHandler(ctx, err)
		return
	}

	// Render the HTML to display the page.
	render, err := RenderSocket(ctx, e, sock)
	if err != nil {
		e.Handler.ErrorHandler(ctx, err)
		return
	}
	sock.UpdateRender(render)

	var rendered bytes.Buffer
	if err := html.Render(&rendered, render); err != nil {
		e.Handler.ErrorHandler(ctx, err)
		return
	}

	if err := e.sessionStore.Save(w, r, session); err != nil {
		e.Handler.ErrorHandler(ctx, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	io.Copy(w, &rendered)
}

// serveWS serve a websocket request to the handler.
func (e *Engine) serveWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	session, err := e.sessionStore.Get(r)
	if err != nil {
		e.Handler.ErrorHandler(ctx, fmt.Errorf("no session found: %w", err))
		return
	}

	opts := e.acceptOptions
	if strings.Contains(r.UserAgent(), "Safari") {
		if opts == nil {
			opts = &websocket.AcceptOptions{}
		} else {
			copied := *opts
			opts = &copied
		}
		opts.CompressionMode = websocket.CompressionDisabled
	}

	c, err := websocket.Accept(w, r, opts)
	if err != nil {
		e.Handler.ErrorHandler(ctx, err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "")
	c.SetReadLimit(e.MaxMessageSize)
	writeTimeout(ctx, time.Second*5, c, Event{T: EventConnect})
	{
		err := e._serveWS(ctx, r, session, c)
		if errors.Is(err, context.Canceled) {
			return
		}
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure:
			return
		case websocket.StatusGoingAway:
			return
		case -1:
			return
		default:
			e.logger.Error("ws closed", zap.Int("status", int(websocket.CloseStatus(err))), zap.Error(err))
			return
		}
	}
}

// _serveWS implement the logic for a web socket connection.
func (e *Engine) _serveWS(ctx context.Context, r *http.Request, session Session, c *websocket.Conn) error {
	sock := NewSocket(session, e, true)
	sock.closeSlow = func() {
		c.Close(websocket.StatusPolicyViolation, "socket too slow to keep up with messages")
	}
	e.AddSocket(sock)
	defer e.DeleteSocket(sock)

	// Run mount again now that the socket is connected.
	if err := e.mountConnected(ctx, r, sock); err != nil {
		return err
	}

	// Internal errors.
	internalErrors := make(chan error, 1)

	// Event errors.
	eventErrors := make(chan ErrorEvent, maxMessageBufferSize)

	// Handle events coming from the websocket connection.
	go func() {
		defer close(internalErrors)
		for {
			t, d, err := c.Read(ctx)
			if err != nil {
				internalErrors <- err
				return
			}
			if t != websocket.MessageText {
				e.logger.Warn("binary messages unhandled")
				continue
			}
			var m Event
			if err := json.Unmarshal(d, &m); err != nil {
				internalErrors <- err
				return
			}
			if err := e.handleClientEvent(ctx, sock, m); err != nil {
				switch {
				case errors.Is(err, ErrNoEventHandler):
					e.logger.Warn("event error", zap.String("event", m.T), zap.Error(err))
				default:
					select {
					case eventErrors <- ErrorEvent{Source: m, Err: err.Error()}:
					default:
					}
				}
			}
			if err := sock.Send(EventAck, nil, WithID(m.ID)); err != nil {
				internalErrors <- fmt.Errorf("socket send error: %w", err)
				return
			}
		}
	}()

	// Send events to the websocket connection.
	for {
		select {
		case msg := <-sock.msgs:
			if err := writeTimeout(ctx, time.Second*5, c, msg); err != nil {
				return fmt.Errorf("writing to socket error: %w", err)
			}
		case ee := <-eventErrors:
			d, err := json.Marshal(ee)
			if err != nil {
				return fmt.Errorf("writing to socket error: %w", err)
			}
			if err := writeTimeout(ctx, time.Second*5, c, Event{T: EventError, Data: d}); err != nil {
				return fmt.Errorf("writing to socket error: %w", err)
			}
		case err := <-internalErrors:
			if err != nil {
				d, merr := json.Marshal(err.Error())
				if merr == nil {
					writeTimeout(ctx, time.Second*5, c, Event{T: EventError, Data: d})
				}
				// Something catastrophic has happened.
				return fmt.Errorf("internal error: %w", err)
			}
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// mountConnected runs mount, params and the first connected render for a
// socket.
func (e *Engine) mountConnected(ctx context.Context, r *http.Request, sock *Socket) error {
	sock.eventMu.Lock()
	defer sock.eventMu.Unlock()

	data, err := e.Handler.MountHandler(ctx, sock)
	if err != nil {
		return fmt.Errorf("socket mount error: %w", err)
	}
	sock.Assign(data)

	if err := e.callParams(ctx, sock, e.Handler.getParams(), NewParamsFromRequest(r)); err != nil {
		return fmt.Errorf("socket params error: %w", err)
	}

	render, err := RenderSocket(ctx, e, sock)
	if err != nil {
		return fmt.Errorf("socket render error: %w", err)
	}
	sock.UpdateRender(render)
	return nil
}

// handleClientEvent routes one event from the client and re-renders.
func (e *Engine) handleClientEvent(ctx context.Context, sock *Socket, m Event) error {
	sock.eventMu.Lock()
	defer sock.eventMu.Unlock()

	var err error
	switch m.T {
	case EventParams:
		err = e.CallParams(ctx, sock, m)
	case EventHash:
		err = e.CallHash(ctx, sock, m)
	default:
		err = e.CallEvent(ctx, m.T, sock, m)
	}

	render, rerr := RenderSocket(ctx, e, sock)
	if rerr != nil {
		return errors.Join(err, fmt.Errorf("socket handle error: %w", rerr))
	}
	sock.UpdateRender(render)
	return err
}

func writeTimeout(ctx context.Context, timeout time.Duration, c *websocket.Conn, msg Event) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	data, err := json.Marshal(&msg)
	if err != nil {
		return fmt.Errorf("failed writeTimeout: %w", err)
	}

	return c.Write(ctx, websocket.MessageText, data)
}
