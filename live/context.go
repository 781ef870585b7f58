package live

import (
	"context"
	"net/http"
)

type contextKey string

const (
	requestKey contextKey = "context_request"
	writerKey  contextKey = "context_writer"
)

// ContextWithRequest embed the initiating request within the context.
func ContextWithRequest(ctx context.Context, r *http.Request) context.Context {
	return context.WithValue(ctx, requestKey, r)
}

// Request pulls out an initiating request from a context.
func Request(ctx context.Context) *http.Request {
	r, ok := ctx.Value(requestKey).(*http.Request)
	if !ok {
		return nil
	}
	return r
}

// contextWithWriter embed the response writer within the context.
func contextWithWriter(ctx context.Context, w http.ResponseWriter) context.Context {
	return context.WithValue(ctx, writerKey, w)
}

// Writer pulls out the response writer from a context. This is only
// present while serving the initial GET request.
func Writer(ctx context.Context) http.ResponseWriter {
	w, ok := ctx.Value(writerKey).(http.ResponseWriter)
	if !ok {
		return nil
	}
	return w
}

func httpContext(w http.ResponseWriter, r *http.Request) context.Context {
	ctx := r.Context()
	ctx = ContextWithRequest(ctx, r)
	ctx = contextWithWriter(ctx, w)
	return ctx
}
