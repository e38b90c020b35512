// Package agent attaches the page patches to one page and keeps them applied
// for as long as the page lives.
//
// An Agent owns a single event loop. Everything that touches the page runs
// on it: the initial pass, the passes triggered by mutation batches, event
// listeners and settings-driven reloads. Pages that call back from other
// goroutines hand their callbacks to the loop with Post, so no two passes
// ever overlap.
//
// Tests and one-shot callers can skip the loop and call Init directly on
// the goroutine that owns the page.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/entrhq/pagekeeper/pkg/bridge"
	"github.com/entrhq/pagekeeper/pkg/dom"
	"github.com/entrhq/pagekeeper/pkg/logging"
	"github.com/entrhq/pagekeeper/pkg/metrics"
	"github.com/entrhq/pagekeeper/pkg/reconcile"
	"github.com/entrhq/pagekeeper/pkg/rules"
	"github.com/entrhq/pagekeeper/pkg/settings"
	"github.com/entrhq/pagekeeper/pkg/watch"
)

// ErrStopped is returned by Start once the agent has been shut down.
var ErrStopped = errors.New("agent has been shut down")

// Page is a live page the agent can patch.
type Page interface {
	dom.Document
	dom.Observable

	// URL returns the address of the loaded document.
	URL() string

	// Reload reloads the page and waits for the new document.
	Reload(ctx context.Context) error

	// AddStyle adds a stylesheet to the document.
	AddStyle(ctx context.Context, css string) error
}

// Dispatching is implemented by pages that invoke mutation and event
// callbacks from goroutines of their own. The agent installs its Post so
// those callbacks run on the event loop.
type Dispatching interface {
	SetDispatch(post func(func()))
}

// LoadNotifier is implemented by pages that report when a new document has
// loaded, whether through Reload or through navigation in the browser.
type LoadNotifier interface {
	OnLoad(fn func())
}

// Agent runs the patch pipeline for one page.
type Agent struct {
	page       Page
	store      settings.Store
	reconciler *reconcile.Reconciler
	watcher    *watch.Watcher
	bridge     *bridge.Bridge
	matches    func(url string) bool
	logger     *logging.Logger
	metrics    *metrics.Metrics

	snapMu sync.RWMutex
	snap   settings.Snapshot

	queueMu sync.Mutex
	queue   []func()
	wake    chan struct{}

	running  bool
	stopped  bool
	runMu    sync.Mutex
	shutdown chan struct{}
	done     chan struct{}
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger sets the root logger. Components log under their own names.
func WithLogger(logger *logging.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithMetrics sets the collectors the pipeline records into.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Agent) {
		a.metrics = m
	}
}

// WithURLMatcher restricts the agent to pages whose URL satisfies match.
// Other pages are left untouched.
func WithURLMatcher(match func(url string) bool) Option {
	return func(a *Agent) {
		a.matches = match
	}
}

// New creates an Agent for page with settings read from store.
func New(page Page, store settings.Store, opts ...Option) *Agent {
	a := &Agent{
		page:     page,
		store:    store,
		matches:  func(string) bool { return true },
		snap:     settings.Defaults(),
		wake:     make(chan struct{}, 1),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = logging.Discard("agent")
	}
	if a.metrics == nil {
		a.metrics = metrics.New(nil)
	}

	a.reconciler = reconcile.New(
		reconcile.WithLogger(a.logger.Named("reconcile")),
		reconcile.WithMetrics(a.metrics),
	)
	a.watcher = watch.New(page, a.reconciler,
		watch.WithLogger(a.logger.Named("watch")),
		watch.WithMetrics(a.metrics),
	)
	a.bridge = bridge.New(store, bridge.ReloaderFunc(a.requestReload), a.logger.Named("bridge"))

	if d, ok := page.(Dispatching); ok {
		d.SetDispatch(a.Post)
	}
	return a
}

// Init reads a fresh snapshot, runs the initial pass and arms the watcher.
// Pages outside the configured URL patterns are left alone. Init must run on
// the goroutine that owns the page: the event loop once Start was called.
func (a *Agent) Init(ctx context.Context) error {
	a.watcher.Disarm()

	snap, err := settings.Read(a.store)
	if err != nil {
		a.logger.Warnf("using default settings: %v", err)
	}
	a.snapMu.Lock()
	a.snap = snap
	a.snapMu.Unlock()

	url := a.page.URL()
	if !a.matches(url) {
		a.logger.Infof("ignoring %s: not a target page", url)
		return nil
	}

	if err := a.page.AddStyle(ctx, rules.ProminentPackAllCSS); err != nil {
		a.logger.Warnf("failed to add stylesheet: %v", err)
	}

	result := a.reconciler.Reconcile(a.page, snap)
	armed := a.watcher.Arm(snap)
	a.logger.Infof("initialized %s with %s: applied %v, watcher %s", url, snap, result.Applied, a.watcher.State())
	if !armed {
		a.logger.Debugf("all rules disabled, not observing")
	}
	return nil
}

// Reload tears the watcher down, reloads the page and initializes the new
// document with a fresh snapshot. For pages that report loads themselves the
// load notification does the initialization.
func (a *Agent) Reload(ctx context.Context) error {
	a.watcher.Disarm()
	if err := a.page.Reload(ctx); err != nil {
		return fmt.Errorf("failed to reload page: %w", err)
	}
	a.metrics.IncrementReloads()

	if _, ok := a.page.(LoadNotifier); ok {
		return nil
	}
	return a.Init(ctx)
}

// requestReload queues a reload on the event loop. It is what the settings
// bridge calls, from whatever goroutine changed the settings. Pages outside
// the URL patterns are never reloaded.
func (a *Agent) requestReload(ctx context.Context) error {
	a.Post(func() {
		if url := a.page.URL(); !a.matches(url) {
			a.logger.Debugf("settings changed, not reloading %s: not a target page", url)
			return
		}
		if err := a.Reload(ctx); err != nil {
			a.logger.Errorf("%v", err)
		}
	})
	return nil
}

// Start initializes the page on a new event loop and subscribes to settings
// changes. An Agent runs once: Start fails after Shutdown.
func (a *Agent) Start(ctx context.Context) error {
	a.runMu.Lock()
	if a.stopped {
		a.runMu.Unlock()
		return ErrStopped
	}
	if a.running {
		a.runMu.Unlock()
		return fmt.Errorf("agent is already running")
	}
	a.running = true
	a.runMu.Unlock()

	if n, ok := a.page.(LoadNotifier); ok {
		n.OnLoad(func() {
			a.Post(func() {
				if err := a.Init(ctx); err != nil {
					a.logger.Errorf("failed to initialize page: %v", err)
				}
			})
		})
	}

	a.Post(func() {
		if err := a.Init(ctx); err != nil {
			a.logger.Errorf("failed to initialize page: %v", err)
		}
	})
	a.bridge.Start(ctx)

	go a.eventLoop(ctx)
	return nil
}

// Shutdown stops the event loop and waits for it to exit.
func (a *Agent) Shutdown(ctx context.Context) error {
	a.runMu.Lock()
	running := a.running
	a.running = false
	if running {
		a.stopped = true
	}
	a.runMu.Unlock()
	if !running {
		return nil
	}

	a.bridge.Stop()
	close(a.shutdown)

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the event loop has exited.
func (a *Agent) Done() <-chan struct{} {
	return a.done
}

// Post queues fn to run on the event loop. It never blocks, so it can be
// called from page callbacks while the loop waits on the page.
func (a *Agent) Post(fn func()) {
	a.queueMu.Lock()
	a.queue = append(a.queue, fn)
	a.queueMu.Unlock()

	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Snapshot returns the snapshot of the current page load.
func (a *Agent) Snapshot() settings.Snapshot {
	a.snapMu.RLock()
	defer a.snapMu.RUnlock()
	return a.snap
}

// WatcherState returns the watcher state. Call it on the event loop.
func (a *Agent) WatcherState() watch.State {
	return a.watcher.State()
}

func (a *Agent) eventLoop(ctx context.Context) {
	defer close(a.done)
	defer a.watcher.Disarm()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.shutdown:
			return
		case <-a.wake:
			for _, task := range a.drain() {
				a.run(task)
			}
		}
	}
}

func (a *Agent) drain() []func() {
	a.queueMu.Lock()
	defer a.queueMu.Unlock()
	tasks := a.queue
	a.queue = nil
	return tasks
}

func (a *Agent) run(task func()) {
	defer func() {
		if p := recover(); p != nil {
			a.logger.Errorf("task panicked: %v", p)
		}
	}()
	task()
}
