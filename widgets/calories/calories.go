// Package calories shows one table per button, the table of the last
// pressed button is highlighted.
package calories

import (
	"context"
	"fmt"
	"slices"

	g "github.com/maragudk/gomponents"
	comps "github.com/maragudk/gomponents/components"
	h "github.com/maragudk/gomponents/html"

	"github.com/jfyne/answers/live"
	"github.com/jfyne/answers/live/page"
)

// DefaultButtons the buttons shown when none are configured.
func DefaultButtons() []string {
	return []string{"male", "female"}
}

// Config configures the widget.
type Config struct {
	Buttons []string
}

// Calories is the root component of the widget.
type Calories struct {
	page.Component

	Buttons []string
	Active  string
}

// NewCalories creates the component with the first button active.
func NewCalories(buttons []string) *Calories {
	c := &Calories{Buttons: buttons}
	if len(buttons) > 0 {
		c.Active = buttons[0]
	}
	return c
}

// OnSelect activates the table of the pressed button.
func (c *Calories) OnSelect(ctx context.Context, p live.Params) error {
	id := p.String("id")
	if id == c.Active || !slices.Contains(c.Buttons, id) {
		return nil
	}
	c.Active = id
	return nil
}

// Class of the table for button id.
func (c *Calories) Class(id string) string {
	if id == c.Active {
		return "bw show"
	}
	return "bw"
}

func (c *Calories) table(id string) g.Node {
	class := c.Class(id)
	return h.Table(h.ID("table-"+id), h.Class(class),
		h.TBody(h.Tr(h.Td(g.Text(fmt.Sprintf("... %s: %s", id, class))))),
	)
}

// Render the buttons and tables.
func (c *Calories) Render() page.RenderFunc {
	return page.Nodes(comps.HTML5(comps.HTML5Props{
		Title:    "Calories",
		Language: "en",
		Head: []g.Node{
			h.StyleEl(h.Type("text/css"), g.Raw(`.bw { display: none; } .bw.show { display: table; }`)),
		},
		Body: []g.Node{
			h.Section(h.ID("calories"),
				g.Group(g.Map(c.Buttons, func(id string) g.Node {
					return h.Button(
						g.Attr("live-click", c.Event("select")),
						g.Attr("live-value-id", id),
						g.Text(id),
					)
				})),
				g.Group(g.Map(c.Buttons, c.table)),
			),
			h.Script(h.Src("/live.js")),
		},
	}))
}

// New returns the live handler of the widget.
func New(cfg Config) *live.Handler {
	buttons := cfg.Buttons
	if len(buttons) == 0 {
		buttons = DefaultButtons()
	}
	return page.NewHandler(func(ctx context.Context, h *live.Handler, s *live.Socket) (page.ComponentLifecycle, error) {
		return NewCalories(slices.Clone(buttons)), nil
	})
}
