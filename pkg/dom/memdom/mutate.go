package memdom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/entrhq/pagekeeper/pkg/dom"
)

// The helpers below change the tree the way the host application does. Each
// records the same childList mutations a browser would.

// AppendHTML parses fragment in the context of parent and appends the
// resulting nodes to it.
func (d *Document) AppendHTML(parent dom.Element, fragment string) error {
	p, ok := parent.(*Element)
	if !ok || p.doc != d {
		return fmt.Errorf("parent belongs to another document")
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), p.node)
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}
	for _, n := range nodes {
		p.node.AppendChild(n)
	}
	if len(nodes) > 0 {
		d.record(dom.MutationRecord{
			Type:   dom.MutationChildList,
			Target: p.TagName(),
			Added:  len(nodes),
		})
	}
	return nil
}

// SetText replaces the children of el with a single text node, like
// assigning textContent.
func (d *Document) SetText(el dom.Element, text string) error {
	e, ok := el.(*Element)
	if !ok || e.doc != d {
		return fmt.Errorf("element belongs to another document")
	}
	removed := countNodes(e.node)
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
	added := 0
	if text != "" {
		e.node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
		added = 1
	}
	if removed > 0 || added > 0 {
		d.record(dom.MutationRecord{
			Type:    dom.MutationChildList,
			Target:  e.TagName(),
			Added:   added,
			Removed: removed,
		})
	}
	return nil
}

// Remove detaches el from its parent.
func (d *Document) Remove(el dom.Element) error {
	e, ok := el.(*Element)
	if !ok || e.doc != d {
		return fmt.Errorf("element belongs to another document")
	}
	parent := e.node.Parent
	if parent == nil {
		return nil
	}
	parent.RemoveChild(e.node)
	d.record(dom.MutationRecord{
		Type:    dom.MutationChildList,
		Target:  nodeName(parent),
		Removed: 1,
	})
	return nil
}

// Type sets the value of a form control and fires an input event, the way
// a user typing into it would.
func (d *Document) Type(el dom.Element, value string) error {
	if err := el.SetValue(value); err != nil {
		return err
	}
	return el.DispatchEvent("input")
}
