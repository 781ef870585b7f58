package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"

	"github.com/jfyne/answers/live"
)

// ErrNotComponent returned when a socket's assigns are not the component an
// event was registered for.
var ErrNotComponent = errors.New("socket assigns are not a component")

// ComponentMount describes the needed function for mounting a component.
type ComponentMount interface {
	Mount(context.Context) error
}

// ComponentRender describes the needed functions for rendering a component.
type ComponentRender interface {
	Render() RenderFunc
	Event(string) string
}

// ComponentLifecycle describes all that is needed to describe a component.
type ComponentLifecycle interface {
	componentInit
	ComponentMount
	ComponentRender
}

// ParamsReceiver is implemented by root components that react to URL query
// parameter changes.
type ParamsReceiver interface {
	Params(ctx context.Context, p live.Params) error
}

// HashReceiver is implemented by root components that react to URL fragment
// changes. The fragment is passed without its leading "#".
type HashReceiver interface {
	Hash(ctx context.Context, fragment string) error
}

type componentInit interface {
	init(ID string, h *live.Handler, s *live.Socket)
}

// Component is a self contained component on the page. Embed it in a struct
// and declare methods named OnSomething to handle events.
//
// A method with the signature OnToggleUnit(ctx context.Context, p live.Params) error
// handles the client event "toggle-unit", scoped by Event. A method whose
// second argument is anything else handles the server side Self event of the
// same name.
type Component struct {
	// ID identifies the component on the page. This should be something stable, so that during the mount
	// it can be found again by the socket.
	ID string

	// Handler a reference to the host handler.
	Handler *live.Handler

	// Socket a reference to the socket that this component
	// is scoped too.
	Socket *live.Socket
}

func (c *Component) init(ID string, h *live.Handler, s *live.Socket) {
	c.ID = ID
	c.Handler = h
	c.Socket = s
}

// Mount a default component mount function.
func (c *Component) Mount(ctx context.Context) error {
	return nil
}

// Render a default component render function.
func (c *Component) Render() RenderFunc {
	return func(w io.Writer) error {
		return nil
	}
}

// Event scopes an event string so that it applies to this instance of this component
// only.
func (c Component) Event(event string) string {
	return c.ID + "--" + event
}

// Self sends an event scoped to this component. It must not be called from
// inside one of the components own event handlers, start a goroutine instead.
func (c *Component) Self(ctx context.Context, event string, data any) error {
	if c.Socket == nil {
		return live.ErrNoSocket
	}
	return c.Socket.Self(ctx, c.Event(event), data)
}

var compMethodDetect = regexp.MustCompile(`^On[A-Z]`)
var compMethodSplit = regexp.MustCompile(`[A-Z][^A-Z]*`)

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	paramsType  = reflect.TypeOf(live.Params{})
)

// register finds the OnXxx methods of comp and installs handlers for them.
// Handlers look the component up from the socket at call time, so one
// registration serves every socket of the handler.
func register(ID string, h *live.Handler, comp ComponentLifecycle) error {
	ty := reflect.TypeOf(comp)
	for i := 0; i < ty.NumMethod(); i++ {
		method := ty.Method(i)
		if !compMethodDetect.MatchString(method.Name) {
			continue
		}
		mt := method.Type
		if mt.NumIn() != 3 || mt.In(1) != contextType || mt.NumOut() != 1 || mt.Out(0) != errorType {
			return fmt.Errorf("component method %s has the wrong signature", method.Name)
		}
		parts := compMethodSplit.FindAllString(method.Name, -1)
		event := ID + "--" + eventName(parts)
		name := method.Name
		argType := mt.In(2)

		if argType == paramsType {
			h.HandleEvent(event, func(ctx context.Context, s *live.Socket, p live.Params) (any, error) {
				return call(ctx, s, ty, name, reflect.ValueOf(p))
			})
			continue
		}
		h.HandleSelf(event, func(ctx context.Context, s *live.Socket, data any) (any, error) {
			arg := reflect.Zero(argType)
			if data != nil {
				v := reflect.ValueOf(data)
				if !v.Type().AssignableTo(argType) {
					return s.Assigns(), fmt.Errorf("event %s: cannot use %T as %s", event, data, argType)
				}
				arg = v
			}
			return call(ctx, s, ty, name, arg)
		})
	}
	return nil
}

func call(ctx context.Context, s *live.Socket, ty reflect.Type, name string, arg reflect.Value) (any, error) {
	target := s.Assigns()
	va := reflect.ValueOf(target)
	if !va.IsValid() || va.Type() != ty {
		return target, ErrNotComponent
	}
	res := va.MethodByName(name).Call([]reflect.Value{reflect.ValueOf(ctx), arg})
	if err, ok := res[0].Interface().(error); ok && err != nil {
		return target, err
	}
	return target, nil
}

func eventName(parts []string) string {
	out := []string{}
	for _, p := range parts[1:] {
		out = append(out, strings.ToLower(p))
	}
	return strings.Join(out, "-")
}
