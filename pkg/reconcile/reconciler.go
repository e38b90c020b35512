// Package reconcile runs the enabled page rules against a document.
package reconcile

import (
	"fmt"
	"time"

	"github.com/entrhq/pagekeeper/pkg/dom"
	"github.com/entrhq/pagekeeper/pkg/logging"
	"github.com/entrhq/pagekeeper/pkg/metrics"
	"github.com/entrhq/pagekeeper/pkg/rules"
	"github.com/entrhq/pagekeeper/pkg/settings"
)

// Reconciler applies the enabled subset of a rule table in table order.
// It holds no per-pass state, so one Reconciler can serve every pass of a
// page load. It is not safe to run two passes on the same document at once;
// callers serialize passes.
type Reconciler struct {
	rules   []rules.Rule
	logger  *logging.Logger
	metrics *metrics.Metrics
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithRules replaces the rule table.
func WithRules(table []rules.Rule) Option {
	return func(r *Reconciler) {
		r.rules = table
	}
}

// WithLogger sets the logger rule failures are written to.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithMetrics sets the collectors passes are recorded in.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// New creates a Reconciler over rules.NewTable. Errors from the listeners
// the rules install are logged at debug level and counted like pass
// failures.
func New(opts ...Option) *Reconciler {
	r := &Reconciler{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logging.Discard("reconcile")
	}
	if r.metrics == nil {
		r.metrics = metrics.New(nil)
	}
	if r.rules == nil {
		r.rules = rules.NewTable(r.listenerError)
	}
	return r
}

func (r *Reconciler) listenerError(rule string, err error) {
	r.metrics.IncrementRuleError(rule)
	r.logger.Debugf("rule %s listener: %v", rule, err)
}

// Result summarizes one pass.
type Result struct {
	// Applied lists the rules that ran without error, in order.
	Applied []string

	// Failed maps a rule to the error it returned or the panic it raised.
	Failed map[string]error

	Duration time.Duration
}

// Reconcile runs one pass: every rule enabled by snap is applied to doc in
// table order. A failing rule never stops the pass. If doc is a
// dom.Releaser it is released once the pass is over.
func (r *Reconciler) Reconcile(doc dom.Document, snap settings.Snapshot) Result {
	start := time.Now()
	result := Result{}

	for _, rule := range r.rules {
		if !rule.Enabled(snap) {
			continue
		}
		if err := r.apply(rule, doc, snap); err != nil {
			if result.Failed == nil {
				result.Failed = make(map[string]error)
			}
			result.Failed[rule.ID] = err
			r.metrics.IncrementRuleError(rule.ID)
			r.logger.Debugf("rule %s: %v", rule.ID, err)
			continue
		}
		result.Applied = append(result.Applied, rule.ID)
		r.metrics.IncrementRule(rule.ID)
	}

	if rel, ok := doc.(dom.Releaser); ok {
		rel.Release()
	}

	result.Duration = time.Since(start)
	r.metrics.ObservePass(result.Duration.Seconds())
	return result
}

func (r *Reconciler) apply(rule rules.Rule, doc dom.Document, snap settings.Snapshot) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return rule.Apply(doc, snap)
}
