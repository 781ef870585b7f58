package postfetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMinHold how long the loading flag stays up at minimum.
const DefaultMinHold = 500 * time.Millisecond

// Phase of the loader. Loading and Holding both show as Store.Loading.
type Phase int

const (
	// Idle nothing in flight.
	Idle Phase = iota
	// Loading a request is in flight.
	Loading
	// Holding the request settled, the minimum hold has not elapsed.
	Holding
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Holding:
		return "holding"
	}
	return "unknown"
}

// Option configures a Loader.
type Option func(l *Loader)

// WithMinHold sets the minimum time the loading flag is shown.
func WithMinHold(d time.Duration) Option {
	return func(l *Loader) {
		l.minHold = d
	}
}

// WithOnChange sets a func called after the store changed. Calls are made
// from one goroutine, are coalesced, and always see the latest store. It
// must not call Close.
func WithOnChange(f func(Store)) Option {
	return func(l *Loader) {
		l.onChange = f
	}
}

// WithLogger sets the logger for failed requests.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// token one fetch attempt. Only the loader's current token may change the
// store.
type token struct {
	id      uuid.UUID
	postID  int
	cancel  context.CancelFunc
	settled bool
	held    bool
}

// Loader fetches posts one at a time. Starting a new load supersedes the
// previous one, whose result is then ignored.
type Loader struct {
	fetcher  Fetcher
	minHold  time.Duration
	onChange func(Store)
	logger   *zap.Logger

	mu     sync.Mutex
	store  Store
	phase  Phase
	token  *token
	closed bool

	changed chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewLoader creates a loader using f to fetch posts.
func NewLoader(f Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher: f,
		minHold: DefaultMinHold,
		logger:  zap.NewNop(),
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	l.wg.Add(1)
	go l.dispatch()
	return l
}

// Store returns the current state.
func (l *Loader) Store() Store {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.store
	if s.Post != nil {
		p := *s.Post
		s.Post = &p
	}
	return s
}

// Phase returns the current phase.
func (l *Loader) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Load starts fetching post id, cancelling any request in flight. The
// loading flag is set before Load returns.
func (l *Loader) Load(id int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if l.token != nil {
		l.token.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &token{id: uuid.New(), postID: id, cancel: cancel}
	l.token = t
	l.phase = Loading
	l.applyLocked(RequestStarted{})

	l.wg.Add(2)
	go func() {
		defer l.wg.Done()
		post, err := l.fetcher.Get(ctx, id)
		l.settle(t, post, err)
	}()
	go func() {
		defer l.wg.Done()
		hold := time.NewTimer(l.minHold)
		defer hold.Stop()
		select {
		case <-hold.C:
			l.holdElapsed(t)
		case <-ctx.Done():
		}
	}()
}

// Close cancels the request in flight and waits for the loader's
// goroutines. The store is not changed and no change is reported after
// Close returns.
func (l *Loader) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	if l.token != nil {
		l.token.cancel()
		l.token = nil
	}
	close(l.done)
	l.mu.Unlock()
	l.wg.Wait()
}

func (l *Loader) settle(t *token, post Post, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.token != t {
		return
	}
	t.settled = true

	switch {
	case err == nil:
		l.applyLocked(RequestSucceeded{Post: post})
	case errors.Is(err, ErrCancelled):
		// Only superseded or closed requests are cancelled.
	default:
		l.logger.Warn("post request failed",
			zap.Int("post", t.postID),
			zap.String("token", t.id.String()),
			zap.Error(err),
		)
		l.applyLocked(RequestFailed{Err: err})
	}

	if t.held {
		l.finishLocked(t)
		return
	}
	l.phase = Holding
}

func (l *Loader) holdElapsed(t *token) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.token != t {
		return
	}
	t.held = true
	if t.settled {
		l.finishLocked(t)
	}
}

func (l *Loader) finishLocked(t *token) {
	l.phase = Idle
	l.applyLocked(LoadingFinished{})
	t.cancel()
}

func (l *Loader) applyLocked(a Action) {
	l.store = Reduce(l.store, a)
	select {
	case l.changed <- struct{}{}:
	default:
	}
}

func (l *Loader) dispatch() {
	defer l.wg.Done()
	for {
		select {
		case <-l.changed:
			if l.onChange == nil {
				continue
			}
			l.mu.Lock()
			closed := l.closed
			l.mu.Unlock()
			if closed {
				return
			}
			l.onChange(l.Store())
		case <-l.done:
			return
		}
	}
}
