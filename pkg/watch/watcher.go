// Package watch re-runs the reconciler whenever the host application adds
// nodes to the page.
package watch

import (
	"github.com/entrhq/pagekeeper/pkg/dom"
	"github.com/entrhq/pagekeeper/pkg/logging"
	"github.com/entrhq/pagekeeper/pkg/metrics"
	"github.com/entrhq/pagekeeper/pkg/reconcile"
	"github.com/entrhq/pagekeeper/pkg/settings"
)

// State is the lifecycle state of a Watcher.
type State int

const (
	// StateIdle means no subscription is held.
	StateIdle State = iota

	// StateObserving means batches from the page trigger passes.
	StateObserving
)

func (s State) String() string {
	if s == StateObserving {
		return "observing"
	}
	return "idle"
}

// Page is an observable document.
type Page interface {
	dom.Document
	dom.Observable
}

// Reconciler runs one pass over a document.
type Reconciler interface {
	Reconcile(doc dom.Document, snap settings.Snapshot) reconcile.Result
}

// Watcher subscribes to a page's mutation batches and runs one reconcile
// pass for each batch that added nodes. It is owned by a single goroutine:
// batches, Arm and Disarm must not be called concurrently.
//
// There is no debounce. The rules converge, so the batches caused by a
// pass's own writes lead to at most a few more passes before the page is
// quiet again.
type Watcher struct {
	page       Page
	reconciler Reconciler
	logger     *logging.Logger
	metrics    *metrics.Metrics

	state  State
	snap   settings.Snapshot
	stop   func()
	passes int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithMetrics sets the collectors batches are counted in.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Watcher) {
		w.metrics = m
	}
}

// New creates an idle Watcher for page.
func New(page Page, reconciler Reconciler, opts ...Option) *Watcher {
	w := &Watcher{
		page:       page,
		reconciler: reconciler,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.Discard("watch")
	}
	if w.metrics == nil {
		w.metrics = metrics.New(nil)
	}
	return w
}

// Arm subscribes to the page with snap as the snapshot every pass uses. It
// does nothing and reports false when snap enables no rule. Arming an armed
// watcher replaces its subscription, so at most one is ever live.
func (w *Watcher) Arm(snap settings.Snapshot) bool {
	w.Disarm()
	if !snap.AnyEnabled() {
		w.logger.Debugf("no rule enabled, staying idle")
		return false
	}

	w.snap = snap
	w.stop = w.page.Observe(w.handle)
	w.state = StateObserving
	w.metrics.SetObserving(true)
	w.logger.Debugf("observing page with %s", snap)
	return true
}

// Disarm drops the subscription. It is safe to call in any state.
func (w *Watcher) Disarm() {
	if w.stop != nil {
		w.stop()
		w.stop = nil
	}
	if w.state == StateObserving {
		w.metrics.SetObserving(false)
	}
	w.state = StateIdle
}

// State returns the current state.
func (w *Watcher) State() State {
	return w.state
}

// Passes returns the number of passes the watcher has triggered.
func (w *Watcher) Passes() int {
	return w.passes
}

func (w *Watcher) handle(batch dom.MutationBatch) {
	if w.state != StateObserving {
		return
	}

	triggered := false
	for _, record := range batch {
		if record.IsStructuralAddition() {
			triggered = true
			break
		}
	}
	w.metrics.IncrementBatch(triggered)
	if !triggered {
		return
	}

	w.passes++
	result := w.reconciler.Reconcile(w.page, w.snap)
	if len(result.Failed) > 0 {
		w.logger.Debugf("pass %d finished with %d failed rules", w.passes, len(result.Failed))
	}
}
