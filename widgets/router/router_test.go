package router

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jfyne/answers/live"
)

func TestMatch(t *testing.T) {
	mux := routes()
	tests := []struct {
		path string
		id   string
		ok   bool
	}{
		{path: "/", id: "", ok: true},
		{path: "/about", id: "about", ok: true},
		{path: "/42", id: "42", ok: true},
		{path: "/a/b", id: "a", ok: true},
		{path: "/about/x/y", id: "about", ok: true},
	}
	for _, tt := range tests {
		id, ok := Match(mux, tt.path)
		require.Equal(t, tt.ok, ok, tt.path)
		require.Equal(t, tt.id, id, tt.path)
	}
}

func TestClickMessage(t *testing.T) {
	ctx := context.Background()

	home := &Content{Matched: true}
	require.NoError(t, home.OnClick(ctx, live.Params{}))
	require.Equal(t, HomeMessage, home.Message)

	about := &Content{Matched: true, RouteID: "about"}
	require.NoError(t, about.OnClick(ctx, live.Params{}))
	require.Equal(t, AnyMessage, about.Message)
}

func serve(t *testing.T, path string) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := live.NewHttpHandler(ctx, live.NewCookieStore("t", []byte("0123456789abcdef0123456789abcdef")), New(Config{Prefix: "/router"}))
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
	require.Equal(t, 200, rr.Code)
	return rr.Body.String()
}

func TestRoutesUnderPrefix(t *testing.T) {
	body := serve(t, "/router/about")
	require.Contains(t, body, `href="/router/about"`)
	require.Contains(t, body, `live-click="root--click"`)

	body = serve(t, "/router")
	require.Contains(t, body, `live-click="root--click"`)

	// Deeper paths match on their first segment.
	body = serve(t, "/router/a/b")
	require.Contains(t, body, `live-click="root--click"`)
	require.NotContains(t, body, "Page not found")
}

func TestClickThroughEngine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(Config{Prefix: "/router"})
	e := live.NewHttpHandler(ctx, live.NewCookieStore("t", []byte("0123456789abcdef0123456789abcdef")), h)

	req := httptest.NewRequest("GET", "/router/about", nil)
	mctx := live.ContextWithRequest(ctx, req)

	s := live.NewSocket(live.NewSession(), e, true)
	data, err := h.MountHandler(mctx, s)
	require.NoError(t, err)
	s.Assign(data)

	require.NoError(t, e.CallEvent(ctx, "root--click", s, live.Event{T: "root--click"}))
	require.Equal(t, AnyMessage, s.Assigns().(*Content).Message)
}
