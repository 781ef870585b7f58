package postfetch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReduce(t *testing.T) {
	s := Store{}

	s = Reduce(s, RequestStarted{})
	require.True(t, s.Loading)
	require.Nil(t, s.Post)

	s = Reduce(s, RequestSucceeded{Post: Post{ID: 1, Title: "a"}})
	require.True(t, s.Loading, "success leaves the flag alone")
	require.Equal(t, &Post{ID: 1, Title: "a"}, s.Post)

	s = Reduce(s, RequestStarted{})
	require.Equal(t, 1, s.Post.ID, "start leaves the record alone")

	s = Reduce(s, LoadingFinished{})
	require.False(t, s.Loading)
	require.NotNil(t, s.Post)

	s = Reduce(s, RequestFailed{Err: errors.New("boom")})
	require.Nil(t, s.Post)

	s = Reduce(Store{Post: &Post{ID: 2}}, RequestCleared{})
	require.Nil(t, s.Post)
}

func TestReduceReplacesWholesale(t *testing.T) {
	p := Post{ID: 1, Title: "a"}
	s := Reduce(Store{}, RequestSucceeded{Post: p})
	p.Title = "changed"
	require.Equal(t, "a", s.Post.Title)
}

type bogus struct{ Action }

func TestReduceUnknownPanics(t *testing.T) {
	require.Panics(t, func() { Reduce(Store{}, bogus{}) })
}
