// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package odis loads ODIS export documents and extracts the PARAMETER_DATA
// dataset records they carry.
package odis

import "encoding/xml"

// Node is either an element or a run of character data in a parsed
// document. Text nodes have an empty Name.
type Node struct {
	Name     string
	Attrs    []xml.Attr
	Children []*Node
	Text     string
}

// IsText reports whether n is a character-data node.
func (n *Node) IsText() bool { return n.Name == "" }

// Attr returns the value of the attribute with the given local name.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// FirstText returns the data of n's first child when that child is a text
// node. An element that is empty or starts with a child element has no
// first text.
func (n *Node) FirstText() (string, bool) {
	if len(n.Children) == 0 || !n.Children[0].IsText() {
		return "", false
	}
	return n.Children[0].Text, true
}

// Descendants returns every element below n whose local name matches, in
// document order. n itself is never included.
func (n *Node) Descendants(name string) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(cur *Node) {
		for _, c := range cur.Children {
			if c.IsText() {
				continue
			}
			if c.Name == name {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

func (n *Node) appendText(s string) {
	if k := len(n.Children); k > 0 && n.Children[k-1].IsText() {
		n.Children[k-1].Text += s
		return
	}
	n.Children = append(n.Children, &Node{Text: s})
}

// Document is a parsed ODIS file.
type Document struct {
	// Source is the path the document was loaded from, if any.
	Source string

	// Root is the document element.
	Root *Node
}

// Elements returns all elements with the given local name below the
// document element, in document order.
func (d *Document) Elements(name string) []*Node {
	if d == nil || d.Root == nil {
		return nil
	}
	return d.Root.Descendants(name)
}
