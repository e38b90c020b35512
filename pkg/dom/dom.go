// Package dom defines the document capabilities the page patches operate on.
//
// A Document is a live, externally mutated tree. Rules query it with CSS
// selectors and patch it in place. Queries never fail: an element that
// cannot be found, for whatever reason, is reported as nil. Mutating calls
// return an error because a live browser document can reject them, but an
// error is never more than "nothing happened".
//
// Two implementations exist: memdom, an in-memory tree used by tests and the
// check command, and the playwright-backed page in package browser.
package dom

// Node is anything that can be searched with a CSS selector.
type Node interface {
	// QuerySelector returns the first matching descendant, or nil.
	QuerySelector(selector string) Element

	// QuerySelectorAll returns all matching descendants in document order.
	QuerySelectorAll(selector string) []Element
}

// Document is the root of a page.
type Document interface {
	Node
}

// Element is a single element of a Document.
type Element interface {
	Node

	// TagName returns the lower-case tag name.
	TagName() string

	// Attr returns the attribute value and whether it is present.
	Attr(name string) (string, bool)

	// SetAttr sets an attribute.
	SetAttr(name, value string) error

	// Text returns the text content of the element and its descendants.
	Text() string

	// Value returns the current value of a form control.
	Value() string

	// SetValue sets the value of a form control without firing events.
	SetValue(value string) error

	// Closest returns the nearest inclusive ancestor matching selector, or nil.
	Closest(selector string) Element

	// NextElementSibling returns the next sibling element, or nil.
	NextElementSibling() Element

	// After moves other so that it immediately follows this element.
	After(other Element) error

	// Same reports whether other refers to the same element.
	Same(other Element) bool

	// Style returns an inline style property (kebab-case), or "".
	Style(property string) string

	// SetStyle sets an inline style property. An empty value removes it.
	SetStyle(property, value string) error

	// HasClass reports whether the class list contains name.
	HasClass(name string) bool

	// AddClass adds class names that are not present yet.
	AddClass(names ...string) error

	// RemoveClass removes class names that are present.
	RemoveClass(names ...string) error

	// Click invokes the element's activation behavior, like element.click().
	Click() error

	// DispatchEvent fires a bubbling event of the given type at the element.
	DispatchEvent(eventType string) error

	// AddEventListener registers fn for events of the given type.
	AddEventListener(eventType string, fn func()) error
}

// Releaser is implemented by documents that hold resources per pass, such as
// remote element handles. Release is called once a pass is complete.
type Releaser interface {
	Release()
}
