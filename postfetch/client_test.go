package postfetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestClientGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/posts/7":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"userId":1,"id":7,"title":"a","body":"b"}`))
		case "/posts/8":
			w.Write([]byte(`{"id":`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", nil, time.Second)

	p, err := c.Get(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, Post{UserID: 1, ID: 7, Title: "a", Body: "b"}, p)

	_, err = c.Get(context.Background(), 8)
	require.ErrorIs(t, err, ErrNetwork)

	_, err = c.Get(context.Background(), 9)
	require.ErrorIs(t, err, ErrNetwork)
	require.NotErrorIs(t, err, ErrCancelled)
}

func TestClientCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, nil, 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := c.Get(ctx, 1)
	require.ErrorIs(t, err, ErrCancelled)
	require.NotErrorIs(t, err, ErrNetwork)
}

func TestClientTransportError(t *testing.T) {
	var gotURL string
	c := NewClient("http://posts.test", &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		gotURL = r.URL.String()
		return nil, errors.New("connection refused")
	})}, 0)

	_, err := c.Get(context.Background(), 3)
	require.ErrorIs(t, err, ErrNetwork)
	require.Equal(t, "http://posts.test/posts/3", gotURL)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("", nil, time.Second)
	require.Equal(t, DefaultBaseURL, c.BaseURL)
	require.NotNil(t, c.HTTP)
}
