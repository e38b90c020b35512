// Package bridge turns settings changes into page reloads.
//
// A snapshot is read once per page load and never refreshed in place. When
// the user edits a setting, the page is reloaded and the whole pipeline is
// rebuilt from a fresh snapshot.
package bridge

import (
	"context"
	"sync"

	"github.com/entrhq/pagekeeper/pkg/logging"
	"github.com/entrhq/pagekeeper/pkg/settings"
)

// Reloader reloads the page the agent is attached to.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ReloaderFunc adapts a function to a Reloader.
type ReloaderFunc func(ctx context.Context) error

// Reload calls f(ctx).
func (f ReloaderFunc) Reload(ctx context.Context) error {
	return f(ctx)
}

// Subscriber is the part of settings.Store the bridge needs.
type Subscriber interface {
	Subscribe(fn func(settings.Change)) (unsubscribe func())
}

// Bridge forwards settings changes to a Reloader.
type Bridge struct {
	store    Subscriber
	reloader Reloader
	logger   *logging.Logger

	mu          sync.Mutex
	unsubscribe func()
}

// New creates a Bridge. It does nothing until Start is called.
func New(store Subscriber, reloader Reloader, logger *logging.Logger) *Bridge {
	if logger == nil {
		logger = logging.Discard("bridge")
	}
	return &Bridge{
		store:    store,
		reloader: reloader,
		logger:   logger,
	}
}

// Start subscribes to the store. Every change to the sync area that touches
// at least one key triggers one reload with ctx. Changes to other areas are
// ignored. Starting a started bridge is a no-op.
func (b *Bridge) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unsubscribe != nil {
		return
	}
	b.unsubscribe = b.store.Subscribe(func(change settings.Change) {
		b.handle(ctx, change)
	})
}

// Stop unsubscribes from the store.
func (b *Bridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.unsubscribe != nil {
		b.unsubscribe()
		b.unsubscribe = nil
	}
}

func (b *Bridge) handle(ctx context.Context, change settings.Change) {
	if change.Area != settings.AreaSync || len(change.Keys) == 0 {
		return
	}
	if ctx.Err() != nil {
		return
	}

	b.logger.Infof("settings changed (%v), reloading page", change.ChangedKeys())
	if err := b.reloader.Reload(ctx); err != nil {
		b.logger.Warnf("reload failed: %v", err)
	}
}
