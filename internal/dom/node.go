package dom

import (
	"slices"
	"strings"

	"golang.org/x/net/html"
)

func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	n.Attr = slices.DeleteFunc(n.Attr, func(a html.Attribute) bool {
		return a.Namespace == "" && a.Key == key
	})
}

// Data reads a data-* attribute, e.g. Data(n, "email") for data-email.
func Data(n *html.Node, name string) string {
	return Attr(n, "data-"+name)
}

func HasClass(n *html.Node, class string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	return slices.Contains(strings.Fields(Attr(n, "class")), class)
}

// Closest returns n or its nearest ancestor carrying class, or nil.
func Closest(n *html.Node, class string) *html.Node {
	for p := n; p != nil; p = p.Parent {
		if HasClass(p, class) {
			return p
		}
	}
	return nil
}

// SetDisabled toggles the disabled attribute. It works on detached
// elements too; they are just no longer visible.
func SetDisabled(n *html.Node, disabled bool) {
	if n == nil {
		return
	}
	if disabled {
		setAttr(n, "disabled", "")
		return
	}
	removeAttr(n, "disabled")
}

func Disabled(n *html.Node) bool {
	return n != nil && hasAttr(n, "disabled")
}

func TextContent(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	})
	return sb.String()
}

// FindAll returns the descendants of n (n included) that carry class, in
// document order.
func FindAll(n *html.Node, class string) []*html.Node {
	var out []*html.Node
	walk(n, func(c *html.Node) {
		if HasClass(c, class) {
			out = append(out, c)
		}
	})
	return out
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}
