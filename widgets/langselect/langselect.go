// Package langselect is a language selector whose choice is remembered per
// session in key-value storage.
package langselect

import (
	"context"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/jfyne/answers/internal/kv"
	"github.com/jfyne/answers/live"
)

const (
	change  = "change"
	changed = "lang-changed"
)

// Language a selectable language.
type Language struct {
	ID   string
	Name string
}

// DefaultLanguages the languages offered when none are configured.
func DefaultLanguages() []Language {
	return []Language{
		{ID: "ru", Name: "Русский"},
		{ID: "en", Name: "English"},
	}
}

// DefaultStorageKey the key the selection is stored under.
const DefaultStorageKey = "lang"

// Config configures the selector.
type Config struct {
	Languages  []Language
	StorageKey string
	Store      kv.Store
	Logger     *zap.Logger
}

type model struct {
	Languages []Language
	Value     string
}

var view = template.Must(template.New("langselect").Parse(`<!doctype html>
<html lang="{{.Assigns.Value}}">
<head>
  <meta charset="utf-8">
  <title>Language</title>
</head>
<body>
  <form live-change="change">
    <select name="lang">
      {{ range .Assigns.Languages }}
      <option value="{{.ID}}" {{ if eq .ID $.Assigns.Value }}selected{{ end }}>{{.Name}}</option>
      {{ end }}
    </select>
  </form>
  <script src="/live.js"></script>
</body>
</html>`))

type selector struct {
	cfg Config
}

// New returns the live handler of the selector.
func New(cfg Config) (*live.Handler, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("langselect: no store: %w", live.ErrViewMisconfigured)
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = DefaultLanguages()
	}
	if cfg.StorageKey == "" {
		cfg.StorageKey = DefaultStorageKey
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	sel := &selector{cfg: cfg}

	h := live.NewHandler(live.WithTemplateRenderer(view))
	h.HandleMount(sel.mount)
	h.HandleEvent(change, sel.change)
	h.HandleSelf(changed, sel.changed)
	return h, nil
}

func (sel *selector) known(id string) bool {
	for _, l := range sel.cfg.Languages {
		if l.ID == id {
			return true
		}
	}
	return false
}

// load reads the stored selection, falling back to the first language.
func (sel *selector) load(ctx context.Context, s *live.Socket) *model {
	m := &model{Languages: sel.cfg.Languages, Value: sel.cfg.Languages[0].ID}
	v, ok, err := sel.cfg.Store.Get(ctx, kv.Key(s.Session().ID, sel.cfg.StorageKey))
	if err != nil {
		sel.cfg.Logger.Warn("read language", zap.String("session", s.Session().ID), zap.Error(err))
		return m
	}
	if ok && sel.known(v) {
		m.Value = v
	}
	return m
}

func (sel *selector) mount(ctx context.Context, s *live.Socket) (any, error) {
	return sel.load(ctx, s), nil
}

func (sel *selector) change(ctx context.Context, s *live.Socket, p live.Params) (any, error) {
	m, ok := s.Assigns().(*model)
	if !ok {
		m = sel.load(ctx, s)
	}
	lang := p.String("lang")
	if !sel.known(lang) || lang == m.Value {
		return m, nil
	}
	if err := sel.cfg.Store.Set(ctx, kv.Key(s.Session().ID, sel.cfg.StorageKey), lang); err != nil {
		sel.cfg.Logger.Warn("store language", zap.String("session", s.Session().ID), zap.Error(err))
	}
	m.Value = lang

	// Other tabs of the same session pick the change up.
	go func(session string) {
		if err := s.Broadcast(changed, session); err != nil {
			sel.cfg.Logger.Warn("broadcast language", zap.Error(err))
		}
	}(s.Session().ID)
	return m, nil
}

func (sel *selector) changed(ctx context.Context, s *live.Socket, data any) (any, error) {
	session, _ := data.(string)
	if session != s.Session().ID {
		return s.Assigns(), nil
	}
	return sel.load(ctx, s), nil
}
