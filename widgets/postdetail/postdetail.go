// Package postdetail shows one post fetched from a JSON API, selected by the
// "post" URL parameter.
package postdetail

import (
	"context"
	"encoding/json"
	"html/template"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jfyne/answers/live"
	"github.com/jfyne/answers/postfetch"
)

const (
	next    = "next"
	prev    = "prev"
	changed = "post-changed"

	// Param the URL parameter holding the post id.
	Param = "post"
)

// Config configures the widget.
type Config struct {
	Fetcher postfetch.Fetcher
	MinHold time.Duration
	Logger  *zap.Logger
}

// Detail the state of one view.
type Detail struct {
	PostID int
	Store  postfetch.Store

	mu     sync.Mutex
	loader *postfetch.Loader
	closed bool
}

// current returns the view's loader, creating it with mk on first use. It is
// nil once the view was closed.
func (d *Detail) current(mk func() *postfetch.Loader) *postfetch.Loader {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	if d.loader == nil && mk != nil {
		d.loader = mk()
	}
	return d.loader
}

func (d *Detail) setStore(st postfetch.Store) {
	d.mu.Lock()
	d.Store = st
	d.mu.Unlock()
}

// Snapshot returns the post id and store under the view's lock.
func (d *Detail) Snapshot() (int, postfetch.Store) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.PostID, d.Store
}

// close stops the loader. Later events leave the view as it is.
func (d *Detail) close() {
	d.mu.Lock()
	l := d.loader
	d.loader = nil
	d.closed = true
	d.mu.Unlock()
	if l != nil {
		l.Close()
	}
}

// JSON the post as JSON, or null.
func (d *Detail) JSON() string {
	if d.Store.Post == nil {
		return "null"
	}
	b, err := json.Marshal(d.Store.Post)
	if err != nil {
		return "null"
	}
	return string(b)
}

var view = template.Must(template.New("postdetail").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8">
  <title>Post {{.Assigns.PostID}}</title>
</head>
<body>
  <nav>
    <button live-click="prev">prev</button>
    <span>{{.Assigns.PostID}}</span>
    <button live-click="next">next</button>
  </nav>
  {{ if .Assigns.Store.Loading }}<div class="loading">loading</div>{{ else }}<pre>{{.Assigns.JSON}}</pre>{{ end }}
  <script src="/live.js"></script>
</body>
</html>`))

type detail struct {
	cfg Config
}

// New returns the live handler of the widget.
func New(cfg Config) *live.Handler {
	if cfg.Fetcher == nil {
		cfg.Fetcher = postfetch.NewClient(postfetch.DefaultBaseURL, nil, 0)
	}
	if cfg.MinHold == 0 {
		cfg.MinHold = postfetch.DefaultMinHold
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	d := &detail{cfg: cfg}

	h := live.NewHandler(live.WithTemplateRenderer(view))
	h.HandleMount(func(ctx context.Context, s *live.Socket) (any, error) {
		return &Detail{PostID: 1, Store: postfetch.Store{Loading: true}}, nil
	})
	h.HandleUnmount(d.unmount)
	h.HandleParams(d.params)
	h.HandleEvent(next, d.step(1))
	h.HandleEvent(prev, d.step(-1))
	h.HandleSelf(changed, d.changed)
	return h
}

func assigns(s *live.Socket) *Detail {
	m, ok := s.Assigns().(*Detail)
	if !ok {
		return &Detail{PostID: 1}
	}
	return m
}

// newLoader creates the loader of a socket. Changes reach the socket as
// self events.
func (d *detail) newLoader(ctx context.Context, s *live.Socket) func() *postfetch.Loader {
	return func() *postfetch.Loader {
		return postfetch.NewLoader(d.cfg.Fetcher,
			postfetch.WithMinHold(d.cfg.MinHold),
			postfetch.WithLogger(d.cfg.Logger),
			postfetch.WithOnChange(func(st postfetch.Store) {
				if err := s.Self(ctx, changed, st); err != nil {
					d.cfg.Logger.Debug("post change dropped", zap.String("socket", string(s.ID())), zap.Error(err))
				}
			}),
		)
	}
}

func (d *detail) params(ctx context.Context, s *live.Socket, p live.Params) (any, error) {
	m := assigns(s)
	id := p.IntDefault(Param, 1)
	if id < 1 {
		id = 1
	}
	if !s.Connected() {
		m.PostID = id
		return m, nil
	}
	l := m.current(d.newLoader(ctx, s))
	if l == nil {
		return m, nil
	}
	m.mu.Lock()
	m.PostID = id
	m.mu.Unlock()
	l.Load(id)
	m.setStore(l.Store())
	return m, nil
}

func (d *detail) step(delta int) live.EventHandler {
	return func(ctx context.Context, s *live.Socket, _ live.Params) (any, error) {
		m := assigns(s)
		id := m.PostID + delta
		if id < 1 {
			id = 1
		}
		s.PatchURL(url.Values{Param: []string{strconv.Itoa(id)}})
		return m, nil
	}
}

// changed renders the loader's store as it is now. The notified store may
// already be outdated by a load started since.
func (d *detail) changed(ctx context.Context, s *live.Socket, _ any) (any, error) {
	m := assigns(s)
	if l := m.current(nil); l != nil {
		m.setStore(l.Store())
	}
	return m, nil
}

func (d *detail) unmount(s *live.Socket) error {
	if m, ok := s.Assigns().(*Detail); ok {
		m.close()
	}
	return nil
}
