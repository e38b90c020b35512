package browser

import (
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/pagekeeper/pkg/dom"
)

// Element is a remote element handle of a Page.
type Element struct {
	page   *Page
	handle playwright.ElementHandle
}

var _ dom.Element = (*Element)(nil)

// QuerySelector returns the first descendant matching selector.
func (e *Element) QuerySelector(selector string) dom.Element {
	handle, err := e.handle.QuerySelector(selector)
	if err != nil {
		e.page.logger.Debugf("query %q: %v", selector, err)
		return nil
	}
	return e.page.wrap(handle)
}

// QuerySelectorAll returns all descendants matching selector.
func (e *Element) QuerySelectorAll(selector string) []dom.Element {
	handles, err := e.handle.QuerySelectorAll(selector)
	if err != nil {
		e.page.logger.Debugf("query all %q: %v", selector, err)
		return nil
	}
	return e.page.wrapAll(handles)
}

// TagName returns the lower-case tag name.
func (e *Element) TagName() string {
	return e.evalString(scriptTagName)
}

// Attr returns the attribute value and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	v, err := e.handle.Evaluate(scriptAttr, name)
	if err != nil || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// SetAttr sets an attribute.
func (e *Element) SetAttr(name, value string) error {
	return e.exec(scriptSetAttr, []interface{}{name, value})
}

// Text returns the element's textContent.
func (e *Element) Text() string {
	return e.evalString(scriptText)
}

// Value returns the value property of a form control.
func (e *Element) Value() string {
	return e.evalString(scriptValue)
}

// SetValue assigns the value property.
func (e *Element) SetValue(value string) error {
	return e.exec(scriptSetValue, value)
}

// Closest returns the nearest inclusive ancestor matching selector.
func (e *Element) Closest(selector string) dom.Element {
	return e.evalElement(scriptClosest, selector)
}

// NextElementSibling returns the next sibling element.
func (e *Element) NextElementSibling() dom.Element {
	return e.evalElement(scriptNextSibling)
}

// After moves other to immediately follow e.
func (e *Element) After(other dom.Element) error {
	o, ok := other.(*Element)
	if !ok {
		return fmt.Errorf("element belongs to another document")
	}
	return e.exec(scriptAfter, o.handle)
}

// Same reports whether other refers to the same DOM element.
func (e *Element) Same(other dom.Element) bool {
	o, ok := other.(*Element)
	if !ok || o == nil {
		return false
	}
	v, err := e.handle.Evaluate(scriptSame, o.handle)
	if err != nil {
		return false
	}
	same, _ := v.(bool)
	return same
}

// Style returns an inline style property as the browser serializes it.
func (e *Element) Style(property string) string {
	return e.evalString(scriptStyle, property)
}

// SetStyle sets or, with an empty value, removes an inline style property.
func (e *Element) SetStyle(property, value string) error {
	return e.exec(scriptSetStyle, []interface{}{property, value})
}

// HasClass reports whether the class list contains name.
func (e *Element) HasClass(name string) bool {
	v, err := e.handle.Evaluate(scriptHasClass, name)
	if err != nil {
		return false
	}
	has, _ := v.(bool)
	return has
}

// AddClass adds class names that are not present yet.
func (e *Element) AddClass(names ...string) error {
	return e.exec(scriptAddClass, toArgs(names))
}

// RemoveClass removes class names that are present.
func (e *Element) RemoveClass(names ...string) error {
	return e.exec(scriptRemoveClass, toArgs(names))
}

// Click calls the element's click method. Unlike a Playwright click it does
// not wait for the element to become actionable.
func (e *Element) Click() error {
	return e.exec(scriptClick)
}

// DispatchEvent fires a bubbling event of eventType at the element.
func (e *Element) DispatchEvent(eventType string) error {
	return e.exec(scriptDispatch, eventType)
}

// AddEventListener registers fn for eventType. fn is handed to the page's
// dispatch function when the event fires.
func (e *Element) AddEventListener(eventType string, fn func()) error {
	id := e.page.addListener(fn)
	if err := e.exec(scriptListen, []interface{}{eventType, id}); err != nil {
		e.page.removeListener(id)
		return err
	}
	return nil
}

func (e *Element) exec(script string, arg ...interface{}) error {
	if _, err := e.handle.Evaluate(script, arg...); err != nil {
		return fmt.Errorf("evaluate failed: %w", err)
	}
	return nil
}

func (e *Element) evalString(script string, arg ...interface{}) string {
	v, err := e.handle.Evaluate(script, arg...)
	if err != nil {
		e.page.logger.Debugf("evaluate: %v", err)
		return ""
	}
	s, _ := v.(string)
	return s
}

func (e *Element) evalElement(script string, arg ...interface{}) dom.Element {
	h, err := e.handle.EvaluateHandle(script, arg...)
	if err != nil {
		e.page.logger.Debugf("evaluate handle: %v", err)
		return nil
	}
	el := h.AsElement()
	if el == nil {
		_ = h.Dispose()
		return nil
	}
	return e.page.wrap(el)
}

func toArgs(names []string) []interface{} {
	out := make([]interface{}, len(names))
	for i, n := range names {
		out[i] = n
	}
	return out
}
