// Package coltable is a data table whose visible columns are picked in a
// dropdown and applied or discarded as a whole.
package coltable

import (
	"context"
	"encoding/json"
	"io"
	"slices"
	"strings"

	g "github.com/maragudk/gomponents"
	comps "github.com/maragudk/gomponents/components"
	h "github.com/maragudk/gomponents/html"

	"github.com/jfyne/answers/live"
)

const (
	toggle = "toggle"
	check  = "check"
	apply  = "apply"
	cancel = "cancel"
)

// Column a table column and the row key it shows.
type Column struct {
	Header   string
	Accessor string
}

// Row maps accessors to cell values.
type Row map[string]string

// DefaultColumns the columns of the demo table.
func DefaultColumns() []Column {
	return []Column{
		{Header: "Column 1", Accessor: "col1"},
		{Header: "Column 2", Accessor: "col2"},
	}
}

// DefaultRows the rows of the demo table.
func DefaultRows() []Row {
	return []Row{
		{"col1": "Hello", "col2": "World"},
		{"col1": "react-table", "col2": "rocks"},
		{"col1": "whatever", "col2": "you want"},
	}
}

// Table the state of one table.
type Table struct {
	Columns []Column
	Rows    []Row

	// Filter the accessors of the visible columns.
	Filter []string
	// Draft the filter being edited in the dropdown.
	Draft []string
	Open  bool
}

// NewTable creates a table showing every column.
func NewTable(columns []Column, rows []Row) *Table {
	t := &Table{Columns: columns, Rows: rows, Filter: []string{}}
	for _, c := range columns {
		t.Filter = append(t.Filter, c.Accessor)
	}
	return t
}

// Toggle opens the dropdown with a draft of the filter, or closes it.
func (t *Table) Toggle() {
	t.Open = !t.Open
	t.Draft = slices.Clone(t.Filter)
}

// Check flips accessor in the draft.
func (t *Table) Check(accessor string) {
	if !t.Open {
		return
	}
	if i := slices.Index(t.Draft, accessor); i >= 0 {
		t.Draft = slices.Delete(t.Draft, i, i+1)
		return
	}
	if slices.ContainsFunc(t.Columns, func(c Column) bool { return c.Accessor == accessor }) {
		t.Draft = append(t.Draft, accessor)
	}
}

// Apply commits the draft and closes the dropdown.
func (t *Table) Apply() {
	if !t.Open {
		return
	}
	t.Filter = append([]string{}, t.Draft...)
	t.Open = false
	t.Draft = nil
}

// Cancel closes the dropdown and drops the draft.
func (t *Table) Cancel() {
	t.Open = false
	t.Draft = nil
}

// Visible the filtered columns in table order.
func (t *Table) Visible() []Column {
	out := []Column{}
	for _, c := range t.Columns {
		if slices.Contains(t.Filter, c.Accessor) {
			out = append(out, c)
		}
	}
	return out
}

func jsonList(l []string) string {
	if l == nil {
		l = []string{}
	}
	b, err := json.Marshal(l)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func (t *Table) dropdown() g.Node {
	return h.Ul(h.Class("dropdown"),
		h.Li(g.Text("filter: "+jsonList(t.Draft))),
		g.Group(g.Map(t.Columns, func(c Column) g.Node {
			return h.Li(g.El("label",
				h.Input(h.Type("checkbox"),
					g.Attr("live-change", check),
					g.Attr("live-value-col", c.Accessor),
					g.If(slices.Contains(t.Draft, c.Accessor), h.Checked()),
				),
				h.Span(g.Text(c.Header)),
			))
		})),
		h.Li(
			h.Button(g.Attr("live-click", apply), g.Text("Сохранить")),
			h.Button(g.Attr("live-click", cancel), g.Text("Отмена")),
		),
	)
}

func (t *Table) table() g.Node {
	visible := t.Visible()
	return h.Table(
		h.THead(h.Tr(g.Group(g.Map(visible, func(c Column) g.Node {
			return h.Th(g.Text(c.Header))
		})))),
		h.TBody(g.Group(g.Map(t.Rows, func(r Row) g.Node {
			return h.Tr(g.Group(g.Map(visible, func(c Column) g.Node {
				return h.Td(g.Text(r[c.Accessor]))
			})))
		}))),
	)
}

// Render writes the page.
func (t *Table) Render(w io.Writer) error {
	return comps.HTML5(comps.HTML5Props{
		Title:    "Column filter",
		Language: "en",
		Body: []g.Node{
			h.Div(h.Class("filter"),
				h.Button(g.Attr("live-click", toggle), g.Text("Edit filter - "+jsonList(t.Filter))),
				g.If(t.Open, t.dropdown()),
			),
			t.table(),
			h.Script(h.Src("/live.js")),
		},
	}).Render(w)
}

// New returns the live handler of the widget.
func New() *live.Handler {
	lh := live.NewHandler()
	lh.HandleMount(func(ctx context.Context, s *live.Socket) (any, error) {
		return NewTable(DefaultColumns(), DefaultRows()), nil
	})
	lh.HandleRender(func(ctx context.Context, rc *live.RenderContext) (io.Reader, error) {
		t, ok := rc.Assigns.(*Table)
		if !ok {
			return nil, live.ErrNoRenderer
		}
		var b strings.Builder
		if err := t.Render(&b); err != nil {
			return nil, err
		}
		return strings.NewReader(b.String()), nil
	})

	on := func(f func(t *Table, p live.Params)) live.EventHandler {
		return func(ctx context.Context, s *live.Socket, p live.Params) (any, error) {
			t, ok := s.Assigns().(*Table)
			if !ok {
				t = NewTable(DefaultColumns(), DefaultRows())
			}
			f(t, p)
			return t, nil
		}
	}
	lh.HandleEvent(toggle, on(func(t *Table, _ live.Params) { t.Toggle() }))
	lh.HandleEvent(check, on(func(t *Table, p live.Params) { t.Check(p.String("col")) }))
	lh.HandleEvent(apply, on(func(t *Table, _ live.Params) { t.Apply() }))
	lh.HandleEvent(cancel, on(func(t *Table, _ live.Params) { t.Cancel() }))
	return lh
}
