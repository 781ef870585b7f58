package live

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"
)

// anchorPrefix prefixes the attribute used to find nodes on the client.
const anchorPrefix = "_l"

// renderedAttr marks the body of a live rendered document.
const renderedAttr = "live-rendered"

// PatchAction available actions to take by a patch.
type PatchAction uint32

// Actions available.
const (
	Noop PatchAction = iota
	Replace
	Append
	Prepend
)

// Patch a location in the frontend dom.
type Patch struct {
	Anchor string
	Action PatchAction
	HTML   string
}

func (p Patch) String() string {
	action := ""
	switch p.Action {
	case Noop:
		action = "NO"
	case Replace:
		action = "RE"
	case Append:
		action = "AP"
	case Prepend:
		action = "PR"
	}
	return fmt.Sprintf("%s %s %s", p.Anchor, action, p.HTML)
}

// Diff compares two anchored html documents and outputs the patches
// needed to turn current into proposed.
func Diff(current, proposed *html.Node) []Patch {
	if current == nil || proposed == nil {
		return []Patch{}
	}
	return compareChildren(current, proposed)
}

func compareNodes(current, proposed *html.Node) []Patch {
	if !sameElement(current, proposed) {
		return []Patch{{Anchor: anchorOf(current), Action: Replace, HTML: renderNode(proposed)}}
	}
	return compareChildren(current, proposed)
}

func compareChildren(current, proposed *html.Node) []Patch {
	patches := []Patch{}
	c, p := current.FirstChild, proposed.FirstChild
	for c != nil || p != nil {
		switch {
		case c != nil && p != nil:
			if c.Type == html.ElementNode && p.Type == html.ElementNode {
				patches = append(patches, compareNodes(c, p)...)
				break
			}
			if !sameLeaf(c, p) {
				return replaceWhole(current, proposed, patches)
			}
		case p != nil:
			if p.Type != html.ElementNode {
				return replaceWhole(current, proposed, patches)
			}
			patches = append(patches, Patch{Anchor: anchorOf(proposed), Action: Append, HTML: renderNode(p)})
		default:
			if c.Type != html.ElementNode {
				return replaceWhole(current, proposed, patches)
			}
			patches = append(patches, Patch{Anchor: anchorOf(c), Action: Replace, HTML: ""})
		}
		if c != nil {
			c = c.NextSibling
		}
		if p != nil {
			p = p.NextSibling
		}
	}
	return patches
}

// replaceWhole replaces the parent when a non element child changed. The
// document itself cannot be replaced so the patches found so far stand.
func replaceWhole(current, proposed *html.Node, sofar []Patch) []Patch {
	anchor := anchorOf(current)
	if anchor == "" {
		return sofar
	}
	return []Patch{{Anchor: anchor, Action: Replace, HTML: renderNode(proposed)}}
}

func sameElement(current, proposed *html.Node) bool {
	if current.Type != proposed.Type || current.Data != proposed.Data {
		return false
	}
	if len(current.Attr) != len(proposed.Attr) {
		return false
	}
	for _, p := range proposed.Attr {
		found := false
		for _, c := range current.Attr {
			if cmp.Equal(p, c) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sameLeaf(current, proposed *html.Node) bool {
	return current.Type == proposed.Type && current.Data == proposed.Data
}

func anchorOf(n *html.Node) string {
	for _, a := range n.Attr {
		if strings.HasPrefix(a.Key, anchorPrefix+"_") {
			return a.Key
		}
	}
	return ""
}

func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// shapeTree removes insignificant whitespace and marks the body as live
// rendered.
func shapeTree(root *html.Node) {
	var next *html.Node
	for c := root.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
			root.RemoveChild(c)
			continue
		}
		shapeTree(c)
	}
	if root.Type == html.ElementNode && root.Data == "body" {
		for _, a := range root.Attr {
			if a.Key == renderedAttr {
				return
			}
		}
		root.Attr = append(root.Attr, html.Attribute{Key: renderedAttr})
	}
}

// anchorTree gives every element an attribute describing its
// position in the tree.
func anchorTree(root *html.Node) {
	anchorChildren(root, anchorPrefix)
}

func anchorChildren(n *html.Node, path string) {
	idx := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		childPath := fmt.Sprintf("%s_%d", path, idx)
		if c.Type == html.ElementNode {
			c.Attr = append(c.Attr, html.Attribute{Key: childPath})
		}
		anchorChildren(c, childPath)
		idx++
	}
}
