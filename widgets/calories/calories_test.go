package calories

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jfyne/answers/live"
)

func TestSelect(t *testing.T) {
	ctx := context.Background()
	c := NewCalories(DefaultButtons())
	require.Equal(t, "male", c.Active)
	require.Equal(t, "bw show", c.Class("male"))
	require.Equal(t, "bw", c.Class("female"))

	require.NoError(t, c.OnSelect(ctx, live.Params{"id": "female"}))
	require.Equal(t, "female", c.Active)

	// Selecting the active one or an unknown id changes nothing.
	require.NoError(t, c.OnSelect(ctx, live.Params{"id": "female"}))
	require.NoError(t, c.OnSelect(ctx, live.Params{"id": "kids"}))
	require.Equal(t, "female", c.Active)
}

func TestNoButtons(t *testing.T) {
	c := NewCalories(nil)
	require.Equal(t, "", c.Active)
	var buf bytes.Buffer
	require.NoError(t, c.Render()(&buf))
	require.NotContains(t, buf.String(), "<table")
}

func TestRender(t *testing.T) {
	c := NewCalories([]string{"male", "female"})
	c.ID = "root"

	var buf bytes.Buffer
	require.NoError(t, c.Render()(&buf))
	out := buf.String()
	require.Contains(t, out, `<table id="table-male" class="bw show"><tbody><tr><td>... male: bw show</td></tr></tbody></table>`)
	require.Contains(t, out, `<table id="table-female" class="bw"><tbody><tr><td>... female: bw</td></tr></tbody></table>`)
	require.Contains(t, out, `<button live-click="root--select" live-value-id="female">female</button>`)
}

func TestServe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(Config{Buttons: []string{"a", "b", "c"}})
	e := live.NewHttpHandler(ctx, live.NewCookieStore("t", []byte("0123456789abcdef0123456789abcdef")), h)

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest("GET", "/calories", nil))
	require.Equal(t, 200, rr.Code)
	require.Contains(t, rr.Body.String(), "... a: bw show")

	s := live.NewSocket(live.NewSession(), e, true)
	data, err := h.MountHandler(ctx, s)
	require.NoError(t, err)
	s.Assign(data)
	require.NoError(t, e.CallEvent(ctx, "root--select", s, live.Event{T: "root--select", Data: []byte(`{"id":"c"}`)}))
	require.Equal(t, "c", s.Assigns().(*Calories).Active)
}
