package live

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"
)

type diffTest struct {
	root     string
	proposed string
	patches  []Patch
}

func TestSingleTextChange(t *testing.T) {
	runDiffTest(diffTest{
		root:     "<div>Hello</div>",
		proposed: "<div>World</div>",
		patches: []Patch{
			{Anchor: "_l_0_1_0", Action: Replace, HTML: `<div _l_0_1_0="">World</div>`},
		},
	}, t)
}

func TestMultipleTextChange(t *testing.T) {
	runDiffTest(diffTest{
		root:     `<div>Hello</div><div>World</div>`,
		proposed: `<div>World</div><div>Hello</div>`,
		patches: []Patch{
			{Anchor: "_l_0_1_0", Action: Replace, HTML: `<div _l_0_1_0="">World</div>`},
			{Anchor: "_l_0_1_1", Action: Replace, HTML: `<div _l_0_1_1="">Hello</div>`},
		},
	}, t)
}

func TestNoChange(t *testing.T) {
	runDiffTest(diffTest{
		root:     `<div class="a">Hello</div>`,
		proposed: `<div class="a">Hello</div>`,
		patches:  []Patch{},
	}, t)
}

func TestNodeAppend(t *testing.T) {
	runDiffTest(diffTest{
		root:     `<div>World</div>`,
		proposed: `<div>Hello</div><div>World</div>`,
		patches: []Patch{
			{Anchor: "_l_0_1_0", Action: Replace, HTML: `<div _l_0_1_0="">Hello</div>`},
			{Anchor: "_l_0_1", Action: Append, HTML: `<div _l_0_1_1="">World</div>`},
		},
	}, t)
	runDiffTest(diffTest{
		root:     `<div>Hello</div>`,
		proposed: `<div>Hello</div><div>World</div>`,
		patches: []Patch{
			{Anchor: "_l_0_1", Action: Append, HTML: `<div _l_0_1_1="">World</div>`},
		},
	}, t)
}

func TestNodeDeletion(t *testing.T) {
	runDiffTest(diffTest{
		root:     `<div>Hello</div><div>World</div>`,
		proposed: `<div>World</div>`,
		patches: []Patch{
			{Anchor: "_l_0_1_0", Action: Replace, HTML: `<div _l_0_1_0="">World</div>`},
			{Anchor: "_l_0_1_1", Action: Replace, HTML: ""},
		},
	}, t)
	runDiffTest(diffTest{
		root:     `<div>Hello</div><div>World</div>`,
		proposed: `<div>Hello</div>`,
		patches: []Patch{
			{Anchor: "_l_0_1_1", Action: Replace, HTML: ""},
		},
	}, t)
}

func TestAttributeValueChange(t *testing.T) {
	runDiffTest(diffTest{
		root:     `<div place="World">Hello</div>`,
		proposed: `<div place="Change">Hello</div>`,
		patches: []Patch{
			{Anchor: "_l_0_1_0", Action: Replace, HTML: `<div place="Change" _l_0_1_0="">Hello</div>`},
		},
	}, t)
}

func TestNestedAppend(t *testing.T) {
	runDiffTest(diffTest{
		root:     `<form><input type="text"/><input type="submit"/></form>`,
		proposed: `<form><div>Extra</div><input type="text"/><input type="submit"/></form>`,
		patches: []Patch{
			{Anchor: "_l_0_1_0_0", Action: Replace, HTML: `<div _l_0_1_0_0="">Extra</div>`},
			{Anchor: "_l_0_1_0_1", Action: Replace, HTML: `<input type="text" _l_0_1_0_1=""/>`},
			{Anchor: "_l_0_1_0", Action: Append, HTML: `<input type="submit" _l_0_1_0_2=""/>`},
		},
	}, t)
}

func TestEarlyChildDeletion(t *testing.T) {
	runDiffTest(diffTest{
		root: `
		    <form>
		        <div>1</div>
		        <div>2</div>
		        <div>3</div>
		        <input type="text"/>
		        <input type="submit"/>
		    </form>`,
		proposed: `
		    <form>
		        <input type="text"/>
		        <input type="submit"/>
		    </form>`,
		patches: []Patch{
			{Anchor: "_l_0_1_0_0", Action: Replace, HTML: `<input type="text" _l_0_1_0_0=""/>`},
			{Anchor: "_l_0_1_0_1", Action: Replace, HTML: `<input type="submit" _l_0_1_0_1=""/>`},
			{Anchor: "_l_0_1_0_2", Action: Replace, HTML: ``},
			{Anchor: "_l_0_1_0_3", Action: Replace, HTML: ``},
			{Anchor: "_l_0_1_0_4", Action: Replace, HTML: ``},
		},
	}, t)
}

func TestDoc(t *testing.T) {
	runDiffTest(diffTest{
		root:     "<!doctype><html><head><title>1</title></head><body><div>1</div></body></html>",
		proposed: "<!doctype><html><head><title>2</title></head><body><div>2</div></body></html>",
		patches: []Patch{
			{Anchor: "_l_1_0_0", Action: Replace, HTML: `<title _l_1_0_0="">2</title>`},
			{Anchor: "_l_1_1_0", Action: Replace, HTML: `<div _l_1_1_0="">2</div>`},
		},
	}, t)
}

func TestListReplace(t *testing.T) {
	runDiffTest(diffTest{
		root: `
        <table>
            <tbody>
                <tr><td>1</td><td>Thinger 1</td></tr>
                <tr><td>2</td><td>Thinger 2</td></tr>
                <tr><td>3</td><td>Thinger 3</td></tr>
            </tbody>
        </table>
        `,
		proposed: `
        <table>
            <tbody>
                <tr><td colspan="2">No thingers</td></tr>
            </tbody>
        </table>
        `,
		patches: []Patch{
			{Anchor: "_l_0_1_0_0_0_0", Action: Replace, HTML: `<td colspan="2" _l_0_1_0_0_0_0="">No thingers</td>`},
			{Anchor: "_l_0_1_0_0_0_1", Action: Replace, HTML: ``},
			{Anchor: "_l_0_1_0_0_1", Action: Replace, HTML: ``},
			{Anchor: "_l_0_1_0_0_2", Action: Replace, HTML: ``},
		},
	}, t)
}

func TestMixedContentReplacesParent(t *testing.T) {
	runDiffTest(diffTest{
		root:     `<p>Count <b>1</b></p>`,
		proposed: `<p>Total <b>1</b></p>`,
		patches: []Patch{
			{Anchor: "_l_0_1_0", Action: Replace, HTML: `<p _l_0_1_0="">Total <b _l_0_1_0_1="">1</b></p>`},
		},
	}, t)
}

func TestTreeShape(t *testing.T) {
	h := `<html>
            <head></head>
            <body>
                <form>
                    <div>1</div>
                    <div>2</div>
                    <input type="text"/>
                </form>
            </body>
        </html>
    `
	e := `<html><head></head><body live-rendered=""><form><div>1</div><div>2</div><input type="text"/></form></body></html>`
	tree, err := html.Parse(strings.NewReader(h))
	if err != nil {
		t.Fatal(err)
	}
	shapeTree(tree)

	var d bytes.Buffer
	html.Render(&d, tree)
	if e != d.String() {
		t.Fatalf("prune failed\nexpected\n'%s'\ngot\n'%s'\n", e, d.String())
	}
}

func runDiffTest(tt diffTest, t *testing.T) {
	t.Helper()
	rootNode, err := html.Parse(strings.NewReader(tt.root))
	if err != nil {
		t.Fatal(err)
	}
	shapeTree(rootNode)
	anchorTree(rootNode)

	proposedNode, err := html.Parse(strings.NewReader(tt.proposed))
	if err != nil {
		t.Fatal(err)
	}
	shapeTree(proposedNode)
	anchorTree(proposedNode)

	patches := Diff(rootNode, proposedNode)
	if diff := cmp.Diff(tt.patches, patches); diff != "" {
		t.Errorf("patches mismatch (-want +got):\n%s", diff)
	}
}
