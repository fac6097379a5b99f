// Package dom is the console's view: an HTML document held in memory whose
// regions are rewritten by the renderer and shipped to the browser.
//
// Every element gets a data-nid attribute when it is attached. The browser
// reports clicks by that id, and ids of detached elements stop resolving, so
// a click on markup from an older render is simply not found.
package dom

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const NodeIDAttr = "data-nid"

// Region ids present in every document.
const (
	ActivitiesList = "activities-list"
	ActivitySelect = "activity"
	EmailInput     = "email"
	SignupForm     = "signup-form"
	Message        = "message"
)

const skeleton = `<!DOCTYPE html><html><head><title>Activities</title></head><body>
<div id="activities-list"><p>Loading activities...</p></div>
<form id="signup-form">
<input type="email" id="email" name="email" required placeholder="your-email@mergington.edu">
<select id="activity" name="activity" required><option value="">-- Select an activity --</option></select>
<button type="submit">Sign Up</button>
</form>
<div id="message" class="hidden"></div>
</body></html>`

type Document struct {
	root    *html.Node
	regions map[string]*html.Node
	nodes   map[string]*html.Node
	next    uint64
}

func New() *Document {
	root, err := html.Parse(strings.NewReader(skeleton))
	if err != nil {
		// The skeleton is a constant; the HTML5 parser accepts any input.
		panic(fmt.Sprintf("dom: parse skeleton: %v", err))
	}

	d := &Document{
		root:    root,
		regions: make(map[string]*html.Node),
		nodes:   make(map[string]*html.Node),
	}
	d.attach(root, true)
	return d
}

// attach assigns ids to n and its subtree. Regions are only indexed from
// the skeleton; rendered markup cannot introduce or shadow one.
func (d *Document) attach(n *html.Node, regions bool) {
	if n.Type == html.ElementNode {
		d.next++
		id := "n" + strconv.FormatUint(d.next, 10)
		setAttr(n, NodeIDAttr, id)
		d.nodes[id] = n
		if rid := Attr(n, "id"); regions && rid != "" {
			d.regions[rid] = n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.attach(c, regions)
	}
}

func (d *Document) detach(n *html.Node) {
	if n.Type == html.ElementNode {
		delete(d.nodes, Attr(n, NodeIDAttr))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.detach(c)
	}
}

// Region returns the element with the given id attribute.
func (d *Document) Region(id string) (*html.Node, error) {
	n, ok := d.regions[id]
	if !ok {
		return nil, fmt.Errorf("dom: no region %q", id)
	}
	return n, nil
}

// Node resolves a node id. Detached elements are not found.
func (d *Document) Node(nid string) *html.Node {
	return d.nodes[nid]
}

// NodeID returns the id the document assigned to n.
func NodeID(n *html.Node) string {
	return Attr(n, NodeIDAttr)
}

// ReplaceChildren clears the region and parses markup into it.
func (d *Document) ReplaceChildren(region, markup string) error {
	parent, err := d.Region(region)
	if err != nil {
		return err
	}
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		d.detach(c)
		parent.RemoveChild(c)
		c = next
	}
	return d.append(parent, markup)
}

// AppendMarkup parses markup as children of the region's element and appends them.
func (d *Document) AppendMarkup(region, markup string) error {
	parent, err := d.Region(region)
	if err != nil {
		return err
	}
	return d.append(parent, markup)
}

func (d *Document) append(parent *html.Node, markup string) error {
	if markup == "" {
		return nil
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), parent)
	if err != nil {
		return fmt.Errorf("dom: parse fragment: %w", err)
	}
	for _, n := range nodes {
		// Ids come from the document only, never from markup.
		stripNodeIDs(n)
		parent.AppendChild(n)
		d.attach(n, false)
	}
	return nil
}

func stripNodeIDs(n *html.Node) {
	if n.Type == html.ElementNode {
		removeAttr(n, NodeIDAttr)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		stripNodeIDs(c)
	}
}

// Contains reports whether n is the region element or one of its descendants.
func (d *Document) Contains(region string, n *html.Node) bool {
	r, ok := d.regions[region]
	if !ok {
		return false
	}
	for p := n; p != nil; p = p.Parent {
		if p == r {
			return true
		}
	}
	return false
}

// InnerHTML serializes the region's children without node ids: what the
// user sees, independent of how many times it was rendered.
func (d *Document) InnerHTML(region string) (string, error) {
	return d.serialize(region, false)
}

// WireHTML serializes the region's children with node ids for the browser.
func (d *Document) WireHTML(region string) (string, error) {
	return d.serialize(region, true)
}

func (d *Document) serialize(region string, withIDs bool) (string, error) {
	parent, err := d.Region(region)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		n := c
		if !withIDs {
			n = cloneWithout(c, NodeIDAttr)
		}
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("dom: render %s: %w", region, err)
		}
	}
	return buf.String(), nil
}

func cloneWithout(n *html.Node, attr string) *html.Node {
	out := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == attr {
			continue
		}
		out.Attr = append(out.Attr, a)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out.AppendChild(cloneWithout(c, attr))
	}
	return out
}

// Text returns the concatenated text content of the region.
func (d *Document) Text(region string) string {
	n, ok := d.regions[region]
	if !ok {
		return ""
	}
	return TextContent(n)
}

// SetText replaces the region's children with a single text node.
func (d *Document) SetText(region, text string) error {
	parent, err := d.Region(region)
	if err != nil {
		return err
	}
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		d.detach(c)
		parent.RemoveChild(c)
		c = next
	}
	if text != "" {
		parent.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
	return nil
}

// SetClass overwrites the class attribute of the region.
func (d *Document) SetClass(region, class string) error {
	n, err := d.Region(region)
	if err != nil {
		return err
	}
	setAttr(n, "class", class)
	return nil
}

// ToggleClass adds or removes a single class on the region.
func (d *Document) ToggleClass(region, class string, on bool) error {
	n, err := d.Region(region)
	if err != nil {
		return err
	}
	classes := strings.Fields(Attr(n, "class"))
	has := slices.Contains(classes, class)
	switch {
	case on && !has:
		classes = append(classes, class)
	case !on && has:
		classes = slices.DeleteFunc(classes, func(c string) bool { return c == class })
	default:
		return nil
	}
	setAttr(n, "class", strings.Join(classes, " "))
	return nil
}

// Value reads a form control: an input's value or a select's chosen option.
func (d *Document) Value(region string) string {
	n, ok := d.regions[region]
	if !ok {
		return ""
	}
	if n.DataAtom != atom.Select {
		return Attr(n, "value")
	}
	var first *html.Node
	var chosen string
	var found bool
	walk(n, func(o *html.Node) {
		if o.Type != html.ElementNode || o.DataAtom != atom.Option {
			return
		}
		if first == nil {
			first = o
		}
		if !found && hasAttr(o, "selected") {
			chosen, found = optionValue(o), true
		}
	})
	if found {
		return chosen
	}
	if first != nil {
		return optionValue(first)
	}
	return ""
}

// SetValue writes a form control. For a select the first option whose value
// matches becomes selected; an unknown value falls back to the first option.
func (d *Document) SetValue(region, value string) error {
	n, err := d.Region(region)
	if err != nil {
		return err
	}
	if n.DataAtom != atom.Select {
		setAttr(n, "value", value)
		return nil
	}
	matched := false
	walk(n, func(o *html.Node) {
		if o.Type != html.ElementNode || o.DataAtom != atom.Option {
			return
		}
		removeAttr(o, "selected")
		if !matched && optionValue(o) == value {
			setAttr(o, "selected", "")
			matched = true
		}
	})
	return nil
}

// ResetForm clears every input and select inside the form region.
func (d *Document) ResetForm(region string) error {
	form, err := d.Region(region)
	if err != nil {
		return err
	}
	walk(form, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch n.DataAtom {
		case atom.Input:
			removeAttr(n, "value")
		case atom.Option:
			removeAttr(n, "selected")
		}
	})
	return nil
}

func optionValue(o *html.Node) string {
	for _, a := range o.Attr {
		if a.Namespace == "" && a.Key == "value" {
			return a.Val
		}
	}
	return strings.TrimSpace(TextContent(o))
}
