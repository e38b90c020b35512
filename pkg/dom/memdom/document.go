// Package memdom is an in-memory live document.
//
// It parses HTML with golang.org/x/net/html, matches CSS selectors with
// cascadia and records every tree change the way a browser MutationObserver
// would. Records are queued and handed to observers as one batch when Flush
// is called, which plays the role of the host environment's microtask
// checkpoint. Event listeners run synchronously inside DispatchEvent.
//
// A Document is not safe for concurrent use.
package memdom

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/entrhq/pagekeeper/pkg/dom"
)

// Document is an in-memory dom.Document that is also dom.Observable.
type Document struct {
	root *html.Node

	selectors map[string]cascadia.Selector
	values    map[*html.Node]string
	listeners map[*html.Node]map[string][]func()

	observers  map[int]func(dom.MutationBatch)
	nextID     int
	pending    []dom.MutationRecord
	delivering bool
}

var (
	_ dom.Document   = (*Document)(nil)
	_ dom.Observable = (*Document)(nil)
)

// Parse builds a Document from an HTML stream.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{
		root:      root,
		selectors: make(map[string]cascadia.Selector),
		values:    make(map[*html.Node]string),
		listeners: make(map[*html.Node]map[string][]func()),
		observers: make(map[int]func(dom.MutationBatch)),
	}, nil
}

// ParseString builds a Document from an HTML string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// MustParse is ParseString for fixtures; it panics on error.
func MustParse(s string) *Document {
	doc, err := ParseString(s)
	if err != nil {
		panic(err)
	}
	return doc
}

// QuerySelector returns the first element in the document matching selector.
func (d *Document) QuerySelector(selector string) dom.Element {
	return d.first(d.root, selector)
}

// QuerySelectorAll returns all elements in the document matching selector.
func (d *Document) QuerySelectorAll(selector string) []dom.Element {
	return d.all(d.root, selector)
}

// Body returns the body element.
func (d *Document) Body() dom.Element {
	return d.QuerySelector("body")
}

// HTML renders the current tree.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return ""
	}
	return buf.String()
}

// Observe subscribes fn to mutation batches delivered by Flush.
func (d *Document) Observe(fn func(dom.MutationBatch)) (stop func()) {
	id := d.nextID
	d.nextID++
	d.observers[id] = fn

	stopped := false
	return func() {
		if stopped {
			return
		}
		stopped = true
		delete(d.observers, id)
	}
}

// Pending returns the number of queued mutation records.
func (d *Document) Pending() int {
	return len(d.pending)
}

// Flush delivers the queued records as a single batch to every observer.
// Records produced by observers while the batch is delivered are queued for
// the next Flush. It reports whether a batch was delivered.
func (d *Document) Flush() bool {
	if len(d.pending) == 0 || d.delivering {
		return false
	}

	batch := dom.MutationBatch(d.pending)
	d.pending = nil

	ids := make([]int, 0, len(d.observers))
	for id := range d.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	d.delivering = true
	defer func() { d.delivering = false }()

	for _, id := range ids {
		if fn, ok := d.observers[id]; ok {
			fn(batch)
		}
	}
	return true
}

// Settle flushes until no records are pending or limit deliveries have been
// made. It returns the number of deliveries and whether the tree came to rest.
func (d *Document) Settle(limit int) (int, bool) {
	rounds := 0
	for rounds < limit {
		if !d.Flush() {
			return rounds, true
		}
		rounds++
	}
	return rounds, len(d.pending) == 0
}

func (d *Document) record(r dom.MutationRecord) {
	if len(d.observers) == 0 {
		return
	}
	d.pending = append(d.pending, r)
}

func (d *Document) compile(selector string) cascadia.Selector {
	if sel, ok := d.selectors[selector]; ok {
		return sel
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		// An invalid selector matches nothing.
		sel = nil
	}
	d.selectors[selector] = sel
	return sel
}

func (d *Document) first(scope *html.Node, selector string) dom.Element {
	sel := d.compile(selector)
	if sel == nil {
		return nil
	}
	var found *html.Node
	walk(scope, func(n *html.Node) bool {
		if sel.Match(n) {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return d.wrap(found)
}

func (d *Document) all(scope *html.Node, selector string) []dom.Element {
	sel := d.compile(selector)
	if sel == nil {
		return nil
	}
	var out []dom.Element
	walk(scope, func(n *html.Node) bool {
		if sel.Match(n) {
			out = append(out, d.wrap(n))
		}
		return true
	})
	return out
}

func (d *Document) wrap(n *html.Node) *Element {
	return &Element{doc: d, node: n}
}

// walk visits the element descendants of scope in document order, excluding
// scope itself. Returning false from visit stops the walk.
func walk(scope *html.Node, visit func(*html.Node) bool) {
	var rec func(n *html.Node) bool
	rec = func(n *html.Node) bool {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && !visit(c) {
				return false
			}
			if !rec(c) {
				return false
			}
		}
		return true
	}
	rec(scope)
}

func countNodes(n *html.Node) int {
	count := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		count++
	}
	return count
}
