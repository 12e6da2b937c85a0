package tvlist

import (
	"strings"

	"golang.org/x/net/html"
)

// flatten returns every node of the tree in document order.
func flatten(root *html.Node) []*html.Node {
	var nodes []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		nodes = append(nodes, n)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return nodes
}

// tablesAfter returns the tables that follow the element with the given
// id in document order. The listing page anchors each section with an
// id-bearing heading, so "the tables after anchor X" is how sections are
// located.
func tablesAfter(nodes []*html.Node, id string) []*html.Node {
	start := -1
	for i, n := range nodes {
		if n.Type == html.ElementNode && attr(n, "id") == id {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	var tables []*html.Node
	for _, n := range nodes[start+1:] {
		if n.Type == html.ElementNode && n.Data == "table" {
			tables = append(tables, n)
		}
	}
	return tables
}

// findAll returns descendant elements with the given tag name.
func findAll(n *html.Node, tag string) []*html.Node {
	var found []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			found = append(found, n)
			// Tables do not nest on this page; no need to descend
			// into a matched element.
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c)
	}
	return found
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// text returns the concatenated text content of a node.
func text(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
