// Package hashlang is a language switcher keeping its value in the URL
// fragment, so a link carries the language with it.
package hashlang

import (
	"context"
	"slices"

	"github.com/jfyne/answers/internal/urlstate"
	"github.com/jfyne/answers/live"
	"github.com/jfyne/answers/live/page"
)

// DefaultParam the fragment parameter holding the language.
const DefaultParam = "lang"

// Language a selectable language.
type Language struct {
	ID   string
	Name string
}

// DefaultLanguages the languages offered when none are configured.
func DefaultLanguages() []Language {
	return []Language{
		{ID: "en", Name: "English"},
		{ID: "ua", Name: "Українська"},
	}
}

// Config configures the switcher.
type Config struct {
	Languages []Language
	Param     string
}

// Switcher is the root component of the widget.
type Switcher struct {
	page.Component

	Languages []Language
	Param     string
	Value     string
	// Fragment the last known URL fragment, without "#".
	Fragment string
}

// NewSwitcher creates a switcher showing the first language.
func NewSwitcher(cfg Config) *Switcher {
	if len(cfg.Languages) == 0 {
		cfg.Languages = DefaultLanguages()
	}
	if cfg.Param == "" {
		cfg.Param = DefaultParam
	}
	return &Switcher{
		Languages: cfg.Languages,
		Param:     cfg.Param,
		Value:     cfg.Languages[0].ID,
	}
}

func (c *Switcher) known(id string) bool {
	return slices.ContainsFunc(c.Languages, func(l Language) bool { return l.ID == id })
}

// Hash reads the language from the fragment. Reading never writes the
// fragment back.
func (c *Switcher) Hash(ctx context.Context, fragment string) error {
	c.Fragment = fragment
	v := urlstate.Read(fragment, c.Param, c.Languages[0].ID)
	if !c.known(v) {
		v = c.Languages[0].ID
	}
	c.Value = v
	return nil
}

// OnChange switches the language and pushes it to the fragment.
func (c *Switcher) OnChange(ctx context.Context, p live.Params) error {
	id := p.String("lang")
	if id == c.Value || !c.known(id) {
		return nil
	}
	c.Value = id
	c.Fragment = urlstate.SetFragment(c.Fragment, c.Param, id)
	if c.Socket != nil {
		c.Socket.PushHash(c.Fragment)
	}
	return nil
}

// Render the select and the radio group.
func (c *Switcher) Render() page.RenderFunc {
	return page.HTML(`<!doctype html>
<html lang="{{.Value}}">
<head>
  <meta charset="utf-8">
  <title>Language</title>
</head>
<body>
  <form live-change="{{ Event "change" }}">
    <select name="lang">
      {{ range .Languages }}<option value="{{.ID}}" {{ if eq .ID $.Value }}selected{{ end }}>{{.Name}}</option>{{ end }}
    </select>
  </form>
  <form live-change="{{ Event "change" }}">
    {{ range .Languages }}<label><input type="radio" name="lang" value="{{.ID}}" {{ if eq .ID $.Value }}checked{{ end }}>{{.Name}}</label>{{ end }}
  </form>
  <p>{{.Value}}</p>
  <script src="/live.js"></script>
</body>
</html>`, c)
}

// New returns the live handler of the widget.
func New(cfg Config) *live.Handler {
	return page.NewHandler(func(ctx context.Context, h *live.Handler, s *live.Socket) (page.ComponentLifecycle, error) {
		return NewSwitcher(cfg), nil
	})
}
