package memdom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/entrhq/pagekeeper/pkg/dom"
)

// Element is an element of a memdom Document.
type Element struct {
	doc  *Document
	node *html.Node
}

var _ dom.Element = (*Element)(nil)

// QuerySelector returns the first matching descendant.
func (e *Element) QuerySelector(selector string) dom.Element {
	return e.doc.first(e.node, selector)
}

// QuerySelectorAll returns all matching descendants.
func (e *Element) QuerySelectorAll(selector string) []dom.Element {
	return e.doc.all(e.node, selector)
}

// TagName returns the lower-case tag name.
func (e *Element) TagName() string {
	return strings.ToLower(e.node.Data)
}

// Attr returns an attribute value.
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets an attribute and records the change.
func (e *Element) SetAttr(name, value string) error {
	if current, ok := e.Attr(name); ok && current == value {
		return nil
	}
	e.setAttr(name, value)
	return nil
}

func (e *Element) setAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr[i].Val = value
			e.recordAttr(name)
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
	e.recordAttr(name)
}

func (e *Element) removeAttr(name string) {
	for i, a := range e.node.Attr {
		if a.Namespace == "" && a.Key == name {
			e.node.Attr = append(e.node.Attr[:i], e.node.Attr[i+1:]...)
			e.recordAttr(name)
			return
		}
	}
}

func (e *Element) recordAttr(name string) {
	e.doc.record(dom.MutationRecord{
		Type:      dom.MutationAttributes,
		Target:    e.TagName(),
		Attribute: name,
	})
}

// Text returns the concatenated text of all descendant text nodes.
func (e *Element) Text() string {
	var b strings.Builder
	var rec func(n *html.Node)
	rec = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				b.WriteString(c.Data)
			}
			rec(c)
		}
	}
	rec(e.node)
	return b.String()
}

// Value returns the live value of a form control. Until SetValue is called
// the value comes from markup: the value attribute of an input, the text of
// a textarea.
func (e *Element) Value() string {
	if v, ok := e.doc.values[e.node]; ok {
		return v
	}
	switch e.TagName() {
	case "textarea":
		return e.Text()
	case "input", "select", "option", "button":
		v, _ := e.Attr("value")
		return v
	}
	return ""
}

// SetValue sets the live value. Like the DOM value property it does not
// touch markup and records no mutation.
func (e *Element) SetValue(value string) error {
	e.doc.values[e.node] = value
	return nil
}

// Closest returns the nearest inclusive ancestor matching selector.
func (e *Element) Closest(selector string) dom.Element {
	sel := e.doc.compile(selector)
	if sel == nil {
		return nil
	}
	for n := e.node; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && sel.Match(n) {
			return e.doc.wrap(n)
		}
	}
	return nil
}

// NextElementSibling returns the next sibling element.
func (e *Element) NextElementSibling() dom.Element {
	for n := e.node.NextSibling; n != nil; n = n.NextSibling {
		if n.Type == html.ElementNode {
			return e.doc.wrap(n)
		}
	}
	return nil
}

// After moves other to immediately follow e. As in a browser the move is
// recorded as a removal from the old parent and an addition to the new one.
func (e *Element) After(other dom.Element) error {
	o, ok := other.(*Element)
	if !ok || o.doc != e.doc {
		return fmt.Errorf("element belongs to another document")
	}
	parent := e.node.Parent
	if parent == nil {
		return fmt.Errorf("element %s has no parent", e.TagName())
	}
	for n := e.node; n != nil; n = n.Parent {
		if n == o.node {
			return fmt.Errorf("cannot move %s after its own descendant", o.TagName())
		}
	}

	if old := o.node.Parent; old != nil {
		old.RemoveChild(o.node)
		e.doc.record(dom.MutationRecord{
			Type:    dom.MutationChildList,
			Target:  nodeName(old),
			Removed: 1,
		})
	}
	parent.InsertBefore(o.node, e.node.NextSibling)
	e.doc.record(dom.MutationRecord{
		Type:   dom.MutationChildList,
		Target: nodeName(parent),
		Added:  1,
	})
	return nil
}

// Same reports whether other wraps the same node.
func (e *Element) Same(other dom.Element) bool {
	o, ok := other.(*Element)
	return ok && o != nil && o.node == e.node
}

// Style returns an inline style property.
func (e *Element) Style(property string) string {
	for _, decl := range e.declarations() {
		if decl[0] == property {
			return decl[1]
		}
	}
	return ""
}

// SetStyle sets or removes an inline style property.
func (e *Element) SetStyle(property, value string) error {
	decls := e.declarations()
	idx := -1
	for i, decl := range decls {
		if decl[0] == property {
			idx = i
			break
		}
	}

	switch {
	case value == "" && idx < 0:
		return nil
	case value == "":
		decls = append(decls[:idx], decls[idx+1:]...)
	case idx >= 0 && decls[idx][1] == value:
		return nil
	case idx >= 0:
		decls[idx][1] = value
	default:
		decls = append(decls, [2]string{property, value})
	}

	if len(decls) == 0 {
		e.removeAttr("style")
		return nil
	}
	parts := make([]string, len(decls))
	for i, decl := range decls {
		parts[i] = decl[0] + ": " + decl[1] + ";"
	}
	e.setAttr("style", strings.Join(parts, " "))
	return nil
}

func (e *Element) declarations() [][2]string {
	raw, _ := e.Attr("style")
	var decls [][2]string
	for _, part := range strings.Split(raw, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		value = strings.TrimSpace(value)
		if name == "" {
			continue
		}
		decls = append(decls, [2]string{name, value})
	}
	return decls
}

// HasClass reports whether the class attribute contains name.
func (e *Element) HasClass(name string) bool {
	for _, c := range e.classes() {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass appends missing class names.
func (e *Element) AddClass(names ...string) error {
	classes := e.classes()
	changed := false
	for _, name := range names {
		if !contains(classes, name) {
			classes = append(classes, name)
			changed = true
		}
	}
	if changed {
		e.setAttr("class", strings.Join(classes, " "))
	}
	return nil
}

// RemoveClass drops class names that are present.
func (e *Element) RemoveClass(names ...string) error {
	classes := e.classes()
	kept := classes[:0]
	for _, c := range classes {
		if !contains(names, c) {
			kept = append(kept, c)
		}
	}
	if len(kept) != len(e.classes()) {
		e.setAttr("class", strings.Join(kept, " "))
	}
	return nil
}

func (e *Element) classes() []string {
	raw, _ := e.Attr("class")
	return strings.Fields(raw)
}

// Click dispatches a click event.
func (e *Element) Click() error {
	return e.DispatchEvent("click")
}

// DispatchEvent runs the listeners for eventType on e and then on each of its
// ancestors, synchronously.
func (e *Element) DispatchEvent(eventType string) error {
	for n := e.node; n != nil; n = n.Parent {
		byType, ok := e.doc.listeners[n]
		if !ok {
			continue
		}
		fns := append([]func(){}, byType[eventType]...)
		for _, fn := range fns {
			fn()
		}
	}
	return nil
}

// AddEventListener registers fn for eventType on e.
func (e *Element) AddEventListener(eventType string, fn func()) error {
	byType, ok := e.doc.listeners[e.node]
	if !ok {
		byType = make(map[string][]func())
		e.doc.listeners[e.node] = byType
	}
	byType[eventType] = append(byType[eventType], fn)
	return nil
}

// ListenerCount returns the number of listeners registered for eventType.
func (e *Element) ListenerCount(eventType string) int {
	return len(e.doc.listeners[e.node][eventType])
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func nodeName(n *html.Node) string {
	if n.Type == html.DocumentNode {
		return "#document"
	}
	return strings.ToLower(n.Data)
}
