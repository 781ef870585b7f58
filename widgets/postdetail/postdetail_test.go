package postdetail

import (
	"context"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jfyne/answers/live"
	"github.com/jfyne/answers/postfetch"
)

func fetcher(calls *atomic.Int32) postfetch.Fetcher {
	return postfetch.FetchFunc(func(ctx context.Context, id int) (postfetch.Post, error) {
		calls.Add(1)
		return postfetch.Post{UserID: 1, ID: id, Title: "title", Body: "body"}, nil
	})
}

func TestJSON(t *testing.T) {
	d := &Detail{}
	require.Equal(t, "null", d.JSON())
	d.Store.Post = &postfetch.Post{UserID: 1, ID: 2, Title: "t", Body: "b"}
	require.Equal(t, `{"userId":1,"id":2,"title":"t","body":"b"}`, d.JSON())
}

func TestGetRendersLoading(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	h := New(Config{Fetcher: fetcher(&calls), MinHold: time.Millisecond})
	e := live.NewHttpHandler(ctx, live.NewCookieStore("t", []byte("0123456789abcdef0123456789abcdef")), h)

	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, httptest.NewRequest("GET", "/postdetail?post=7", nil))
	require.Equal(t, 200, rr.Code)
	require.Contains(t, rr.Body.String(), "Post 7")
	require.Contains(t, rr.Body.String(), "loading")
	require.Zero(t, calls.Load(), "nothing is fetched before the socket connects")
}

func mountConnected(t *testing.T, ctx context.Context, f postfetch.Fetcher) (*live.Engine, *live.Socket) {
	t.Helper()
	h := New(Config{Fetcher: f, MinHold: 10 * time.Millisecond})
	e := live.NewHttpHandler(ctx, live.NewCookieStore("t", []byte("0123456789abcdef0123456789abcdef")), h)

	s := live.NewSocket(live.NewSession(), e, true)
	e.AddSocket(s)
	data, err := h.MountHandler(ctx, s)
	require.NoError(t, err)
	s.Assign(data)
	return e, s
}

func paramsEvent(id string) live.Event {
	return live.Event{T: live.EventParams, Data: []byte(`{"post":"` + id + `"}`)}
}

func waitLoaded(t *testing.T, s *live.Socket, id int) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, st := s.Assigns().(*Detail).Snapshot()
		return !st.Loading && st.Post != nil && st.Post.ID == id
	}, time.Second, 5*time.Millisecond)
}

func TestLoad(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	e, s := mountConnected(t, ctx, fetcher(&calls))

	require.NoError(t, e.CallParams(ctx, s, paramsEvent("3")))
	_, st := s.Assigns().(*Detail).Snapshot()
	require.True(t, st.Loading)
	waitLoaded(t, s, 3)
	require.Equal(t, int32(1), calls.Load())

	e.DeleteSocket(s)
}

func TestNothingRunsAfterUnmount(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	e, s := mountConnected(t, ctx, fetcher(&calls))

	require.NoError(t, e.CallParams(ctx, s, paramsEvent("3")))
	waitLoaded(t, s, 3)
	e.DeleteSocket(s)

	// An event still in flight when the socket went away.
	require.NoError(t, e.CallParams(ctx, s, paramsEvent("4")))
	time.Sleep(30 * time.Millisecond)

	require.Equal(t, int32(1), calls.Load())
	id, st := s.Assigns().(*Detail).Snapshot()
	require.Equal(t, 3, id)
	require.False(t, st.Loading)
	require.Equal(t, 3, st.Post.ID)
}

func TestChangeRendersCurrentStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	e, s := mountConnected(t, ctx, fetcher(&calls))
	defer e.DeleteSocket(s)

	require.NoError(t, e.CallParams(ctx, s, paramsEvent("3")))
	waitLoaded(t, s, 3)

	// A notification carrying an older store does not win over the loader.
	stale := postfetch.Store{Post: &postfetch.Post{ID: 1}}
	require.NoError(t, s.Self(ctx, changed, stale))
	_, st := s.Assigns().(*Detail).Snapshot()
	require.Equal(t, 3, st.Post.ID)
}

func TestStep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(Config{Fetcher: postfetch.FetchFunc(func(ctx context.Context, id int) (postfetch.Post, error) {
		return postfetch.Post{ID: id}, nil
	})})
	e := live.NewHttpHandler(ctx, live.NewCookieStore("t", []byte("0123456789abcdef0123456789abcdef")), h)

	s := live.NewSocket(live.NewSession(), e, false)
	s.Assign(&Detail{PostID: 1})

	require.NoError(t, e.CallEvent(ctx, prev, s, live.Event{T: prev}))
	msg := <-s.Messages()
	require.Equal(t, live.EventParams, msg.T)
	require.JSONEq(t, `"post=1"`, string(msg.Data))

	s.Assign(&Detail{PostID: 4})
	require.NoError(t, e.CallEvent(ctx, next, s, live.Event{T: next}))
	msg = <-s.Messages()
	require.JSONEq(t, `"post=5"`, string(msg.Data))
}
