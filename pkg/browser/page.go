package browser

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/pagekeeper/pkg/dom"
	"github.com/entrhq/pagekeeper/pkg/logging"
)

// Page is a live playwright page seen as a dom.Document.
//
// Element operations must not run concurrently; the agent runs them all on
// its event loop. Binding callbacks only touch the fields guarded by mu
// before handing off to dispatch.
type Page struct {
	page   playwright.Page
	logger *logging.Logger

	mu        sync.Mutex
	dispatch  func(func())
	observers map[int]func(dom.MutationBatch)
	nextID    int
	installed bool
	listeners map[string]func()
	onLoad    []func()

	// handles created since the last Release; owned by the loop
	handles []playwright.JSHandle
}

var (
	_ dom.Document   = (*Page)(nil)
	_ dom.Observable = (*Page)(nil)
	_ dom.Releaser   = (*Page)(nil)
)

// Attach exposes the page bindings and returns the live document of page.
func Attach(page playwright.Page, logger *logging.Logger) (*Page, error) {
	if logger == nil {
		logger = logging.Discard("browser")
	}
	p := &Page{
		page:      page,
		logger:    logger,
		dispatch:  func(fn func()) { fn() },
		observers: make(map[int]func(dom.MutationBatch)),
		listeners: make(map[string]func()),
	}

	if err := page.ExposeBinding(bindingMutations, p.onMutations); err != nil {
		return nil, fmt.Errorf("failed to expose mutation binding: %w", err)
	}
	if err := page.ExposeBinding(bindingEvent, p.onEvent); err != nil {
		return nil, fmt.Errorf("failed to expose event binding: %w", err)
	}
	page.OnLoad(func(playwright.Page) {
		p.handleLoad()
	})
	return p, nil
}

// SetDispatch sets the function binding callbacks are handed to.
func (p *Page) SetDispatch(post func(func())) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatch = post
}

// OnLoad registers fn to run after every load of a new document. fn runs on
// a Playwright goroutine.
func (p *Page) OnLoad(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onLoad = append(p.onLoad, fn)
}

// URL returns the address of the loaded document.
func (p *Page) URL() string {
	return p.page.URL()
}

// Reload reloads the page and waits for the load event.
func (p *Page) Reload(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.Release()
	if _, err := p.page.Reload(); err != nil {
		return fmt.Errorf("reload failed: %w", err)
	}
	return nil
}

// AddStyle adds a style element with css to the document.
func (p *Page) AddStyle(ctx context.Context, css string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	el, err := p.page.AddStyleTag(playwright.PageAddStyleTagOptions{
		Content: playwright.String(css),
	})
	if err != nil {
		return fmt.Errorf("failed to add style tag: %w", err)
	}
	if el != nil {
		_ = el.Dispose()
	}
	return nil
}

// QuerySelector returns the first element in the document matching selector.
func (p *Page) QuerySelector(selector string) dom.Element {
	handle, err := p.page.QuerySelector(selector)
	if err != nil {
		p.logger.Debugf("query %q: %v", selector, err)
		return nil
	}
	return p.wrap(handle)
}

// QuerySelectorAll returns all elements in the document matching selector.
func (p *Page) QuerySelectorAll(selector string) []dom.Element {
	handles, err := p.page.QuerySelectorAll(selector)
	if err != nil {
		p.logger.Debugf("query all %q: %v", selector, err)
		return nil
	}
	return p.wrapAll(handles)
}

// Observe subscribes fn to the page's mutation batches. The page observer
// is installed with the first subscription and disconnected with the last.
func (p *Page) Observe(fn func(dom.MutationBatch)) (stop func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.observers[id] = fn
	install := !p.installed
	p.installed = true
	p.mu.Unlock()

	if install {
		if _, err := p.page.Evaluate(observeScript); err != nil {
			p.logger.Warnf("failed to install mutation observer: %v", err)
			p.mu.Lock()
			p.installed = false
			p.mu.Unlock()
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.observers, id)
			disconnect := len(p.observers) == 0 && p.installed
			if disconnect {
				p.installed = false
			}
			p.mu.Unlock()

			if disconnect {
				if _, err := p.page.Evaluate(disconnectScript); err != nil {
					p.logger.Debugf("failed to disconnect mutation observer: %v", err)
				}
			}
		})
	}
}

// Release disposes every element handle created since the previous call.
func (p *Page) Release() {
	for _, h := range p.handles {
		_ = h.Dispose()
	}
	p.handles = nil
}

func (p *Page) onMutations(_ *playwright.BindingSource, args ...interface{}) interface{} {
	if len(args) == 0 {
		return nil
	}
	batch := decodeBatch(args[0])
	if len(batch) == 0 {
		return nil
	}

	p.mu.Lock()
	dispatch := p.dispatch
	p.mu.Unlock()

	dispatch(func() {
		for _, fn := range p.currentObservers() {
			fn(batch)
		}
	})
	return nil
}

func (p *Page) onEvent(_ *playwright.BindingSource, args ...interface{}) interface{} {
	if len(args) == 0 {
		return nil
	}
	id, _ := args[0].(string)

	p.mu.Lock()
	fn := p.listeners[id]
	dispatch := p.dispatch
	p.mu.Unlock()

	if fn == nil {
		return nil
	}
	dispatch(func() {
		fn()
		p.Release()
	})
	return nil
}

// handleLoad forgets everything that lived in the previous document.
func (p *Page) handleLoad() {
	p.mu.Lock()
	p.installed = false
	p.listeners = make(map[string]func())
	callbacks := append([]func(){}, p.onLoad...)
	p.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

func (p *Page) currentObservers() []func(dom.MutationBatch) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]int, 0, len(p.observers))
	for id := range p.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	fns := make([]func(dom.MutationBatch), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, p.observers[id])
	}
	return fns
}

func (p *Page) addListener(fn func()) string {
	id := uuid.New().String()
	p.mu.Lock()
	p.listeners[id] = fn
	p.mu.Unlock()
	return id
}

func (p *Page) removeListener(id string) {
	p.mu.Lock()
	delete(p.listeners, id)
	p.mu.Unlock()
}

func (p *Page) wrap(handle playwright.ElementHandle) dom.Element {
	if handle == nil {
		return nil
	}
	p.handles = append(p.handles, handle)
	return &Element{page: p, handle: handle}
}

func (p *Page) wrapAll(handles []playwright.ElementHandle) []dom.Element {
	out := make([]dom.Element, 0, len(handles))
	for _, h := range handles {
		if el := p.wrap(h); el != nil {
			out = append(out, el)
		}
	}
	return out
}

// decodeBatch converts the records reported by the page observer.
func decodeBatch(v interface{}) dom.MutationBatch {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	batch := make(dom.MutationBatch, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		typ, _ := m["type"].(string)
		target, _ := m["target"].(string)
		attribute, _ := m["attribute"].(string)
		batch = append(batch, dom.MutationRecord{
			Type:      dom.MutationType(typ),
			Target:    target,
			Attribute: attribute,
			Added:     toInt(m["added"]),
			Removed:   toInt(m["removed"]),
		})
	}
	return batch
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
