// Package httpserver serves the widgets behind one chi router.
package httpserver

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	g "github.com/maragudk/gomponents"
	comps "github.com/maragudk/gomponents/components"
	h "github.com/maragudk/gomponents/html"
	"go.uber.org/zap"

	"github.com/jfyne/answers/internal/bootstrap"
	"github.com/jfyne/answers/live"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestID returns the id of the request carried by ctx.
func RequestID(ctx context.Context) string {
	rid, _ := ctx.Value(requestIDKey).(string)
	return rid
}

// NewRouter routes each mount, the client script and an index page.
func NewRouter(mounts []bootstrap.Mount, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(requestID())
	r.Use(recoverer(logger))
	r.Use(accessLog(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/live.js", live.Javascript{})
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := index(mounts).Render(w); err != nil {
			logger.Error("render index", zap.Error(err))
		}
	})

	for _, m := range mounts {
		r.Handle(m.Path, m.Engine)
		if m.Subtree {
			r.Handle(m.Path+"/*", m.Engine)
		}
	}
	return r
}

func index(mounts []bootstrap.Mount) g.Node {
	return comps.HTML5(comps.HTML5Props{
		Title:    "Answers",
		Language: "en",
		Body: []g.Node{
			h.H1(g.Text("Answers")),
			h.Ul(g.Group(g.Map(mounts, func(m bootstrap.Mount) g.Node {
				return h.Li(h.A(h.Href(m.Path), g.Text(m.Title)))
			}))),
		},
	})
}

func requestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get("X-Request-ID")
			if rid == "" {
				rid = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", rid)
			ctx := context.WithValue(r.Context(), requestIDKey, rid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec), zap.String("request_id", RequestID(r.Context())))
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// Hijack lets websocket upgrades through the recorder.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	if sr.status == 0 {
		sr.status = http.StatusSwitchingProtocols
	}
	return hj.Hijack()
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(sr, r)
			logger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sr.status),
				zap.Int("bytes", sr.bytes),
				zap.String("request_id", RequestID(r.Context())),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
