package postfetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrCancelled returned when the request context ended before the
	// request completed.
	ErrCancelled = errors.New("request cancelled")
	// ErrNetwork returned for transport failures, unexpected statuses and
	// undecodable bodies.
	ErrNetwork = errors.New("network error")
)

// DefaultBaseURL the public posts API.
const DefaultBaseURL = "https://jsonplaceholder.typicode.com"

// Fetcher issues one cancellable fetch for a post.
type Fetcher interface {
	Get(ctx context.Context, id int) (Post, error)
}

// FetchFunc adapts a function to a Fetcher.
type FetchFunc func(ctx context.Context, id int) (Post, error)

// Get calls f.
func (f FetchFunc) Get(ctx context.Context, id int) (Post, error) {
	return f(ctx, id)
}

var _ Fetcher = &Client{}

// Client fetches posts over HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client for baseURL. A nil httpClient gets a client with
// the given timeout.
func NewClient(baseURL string, httpClient *http.Client, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: httpClient}
}

// Get fetches post id. It makes exactly one attempt.
func (c *Client) Get(ctx context.Context, id int) (Post, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/posts/%d", c.BaseURL, id), nil)
	if err != nil {
		return Post{}, fmt.Errorf("%w: build request: %w", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Post{}, c.classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Post{}, fmt.Errorf("%w: status %d", ErrNetwork, resp.StatusCode)
	}
	var p Post
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return Post{}, c.classify(ctx, fmt.Errorf("decode post: %w", err))
	}
	return p, nil
}

func (c *Client) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}
