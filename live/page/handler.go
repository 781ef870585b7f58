package page

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/jfyne/answers/live"
)

// rootID the ID given to the root component of a handler.
const rootID = "root"

// ComponentConstructor a func for creating a new component.
type ComponentConstructor func(ctx context.Context, h *live.Handler, s *live.Socket) (ComponentLifecycle, error)

// NewHandler creates a new handler for components.
func NewHandler(construct ComponentConstructor, configs ...live.HandlerConfig) *live.Handler {
	return live.NewHandler(append([]live.HandlerConfig{
		withComponentMount(construct),
		withComponentRenderer(),
		withComponentParams(),
	}, configs...)...)
}

// withComponentMount set the live.Handler to mount the root component.
func withComponentMount(construct ComponentConstructor) live.HandlerConfig {
	return func(h *live.Handler) error {
		h.HandleMount(func(ctx context.Context, s *live.Socket) (any, error) {
			comp, err := construct(ctx, h, s)
			if err != nil {
				return nil, fmt.Errorf("could not create root component: %w", err)
			}
			comp.init(rootID, h, s)
			if s.Connected() {
				if err := register(rootID, h, comp); err != nil {
					return nil, err
				}
			}
			if err := comp.Mount(ctx); err != nil {
				return nil, err
			}
			return comp, nil
		})
		return nil
	}
}

// withComponentRenderer set the live.Handler to use a root component to render.
func withComponentRenderer() live.HandlerConfig {
	return func(h *live.Handler) error {
		h.HandleRender(func(_ context.Context, data *live.RenderContext) (io.Reader, error) {
			c, ok := data.Assigns.(ComponentLifecycle)
			if !ok {
				return nil, fmt.Errorf("root render data is not a component")
			}
			var buf bytes.Buffer
			if err := c.Render()(&buf); err != nil {
				return nil, err
			}
			return &buf, nil
		})
		return nil
	}
}

// withComponentParams routes URL changes to root components which want them.
func withComponentParams() live.HandlerConfig {
	return func(h *live.Handler) error {
		h.HandleParams(func(ctx context.Context, s *live.Socket, p live.Params) (any, error) {
			if r, ok := s.Assigns().(ParamsReceiver); ok {
				if err := r.Params(ctx, p); err != nil {
					return s.Assigns(), err
				}
			}
			return s.Assigns(), nil
		})
		h.HandleHash(func(ctx context.Context, s *live.Socket, p live.Params) (any, error) {
			if r, ok := s.Assigns().(HashReceiver); ok {
				if err := r.Hash(ctx, p.String("hash")); err != nil {
					return s.Assigns(), err
				}
			}
			return s.Assigns(), nil
		})
		return nil
	}
}
