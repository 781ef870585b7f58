package live

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"

	"golang.org/x/net/html"
)

// RenderContext contains the sockets current data for rendering.
type RenderContext struct {
	Socket  *Socket
	Assigns any
}

// RenderSocket takes the engine and current socket and renders it to html. If the
// socket has rendered before the differences are sent to the client as patches.
func RenderSocket(ctx context.Context, e *Engine, s *Socket) (*html.Node, error) {
	rc := &RenderContext{
		Socket:  s,
		Assigns: s.Assigns(),
	}

	output, err := e.Handler.RenderHandler(ctx, rc)
	if err != nil {
		return nil, fmt.Errorf("render error: %w", err)
	}
	render, err := html.Parse(output)
	if err != nil {
		return nil, fmt.Errorf("html parse error: %w", err)
	}
	shapeTree(render)
	anchorTree(render)

	if s.LatestRender() != nil {
		patches := Diff(s.LatestRender(), render)
		if len(patches) != 0 {
			if err := s.Send(EventPatch, patches); err != nil {
				return nil, fmt.Errorf("patch send error: %w", err)
			}
		}
	}

	return render, nil
}

// WithTemplateRenderer set the handler to use an `html/template` renderer. The
// template is executed with the RenderContext.
func WithTemplateRenderer(t *template.Template) HandlerConfig {
	return func(h *Handler) error {
		if t == nil {
			return ErrViewMisconfigured
		}
		h.HandleRender(func(ctx context.Context, rc *RenderContext) (io.Reader, error) {
			var buf bytes.Buffer
			if err := t.Execute(&buf, rc); err != nil {
				return nil, err
			}
			return &buf, nil
		})
		return nil
	}
}
