// Package router switches its content on the matched route and reports,
// on click, whether the home page is showing.
package router

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jfyne/answers/live"
	"github.com/jfyne/answers/live/page"
)

// Messages shown after a click.
const (
	HomeMessage = "Home page"
	AnyMessage  = "any page"
)

// Link a navigation entry.
type Link struct {
	Title string
	Href  string
}

// Config configures the widget.
type Config struct {
	// Prefix the path the widget is mounted under, for example "/router".
	Prefix string
}

// Content is the root component of the widget.
type Content struct {
	page.Component

	Links []Link
	// RouteID the matched ":id" segment, empty on the home route.
	RouteID string
	Matched bool
	Message string
}

// OnClick reports which page is showing.
func (c *Content) OnClick(ctx context.Context, p live.Params) error {
	if c.RouteID == "" {
		c.Message = HomeMessage
		return nil
	}
	c.Message = AnyMessage
	return nil
}

// Render the navigation and the content.
func (c *Content) Render() page.RenderFunc {
	return page.HTML(`<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Router</title>
</head>
<body>
  <div class="App">
    <header class="App-header">
      <ul>
        {{ range .Links }}<li><a href="{{.Href}}">{{.Title}}</a></li>{{ end }}
      </ul>
    </header>
    <div>
      {{ if .Matched }}
      <button live-click="{{ Event "click" }}">click</button>
      {{ if .Message }}<p role="status">{{.Message}}</p>{{ end }}
      {{ else }}
      <p>Page not found</p>
      {{ end }}
    </div>
  </div>
  <script src="/live.js"></script>
</body>
</html>`, c)
}

// routes matches the paths the content knows about.
func routes() *chi.Mux {
	mux := chi.NewRouter()
	found := func(http.ResponseWriter, *http.Request) {}
	mux.Get("/", found)
	mux.Get("/{id}", found)
	mux.Get("/{id}/*", found)
	return mux
}

// Match returns the ":id" of path and whether any route matched.
func Match(mux *chi.Mux, path string) (string, bool) {
	rctx := chi.NewRouteContext()
	if !mux.Match(rctx, http.MethodGet, path) {
		return "", false
	}
	return rctx.URLParam("id"), true
}

// New returns the live handler of the widget.
func New(cfg Config) *live.Handler {
	prefix := strings.TrimRight(cfg.Prefix, "/")
	mux := routes()
	links := []Link{
		{Title: "Home", Href: prefix + "/"},
		{Title: "About", Href: prefix + "/about"},
	}

	return page.NewHandler(func(ctx context.Context, h *live.Handler, s *live.Socket) (page.ComponentLifecycle, error) {
		path := "/"
		if r := live.Request(ctx); r != nil {
			path = strings.TrimPrefix(r.URL.Path, prefix)
			if path == "" {
				path = "/"
			}
		}
		id, ok := Match(mux, path)
		return &Content{Links: links, RouteID: id, Matched: ok}, nil
	})
}
