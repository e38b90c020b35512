package agent

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pagekeeper/internal/testing/pagetest"
	"github.com/entrhq/pagekeeper/pkg/dom/memdom"
	"github.com/entrhq/pagekeeper/pkg/logging"
	"github.com/entrhq/pagekeeper/pkg/metrics"
	"github.com/entrhq/pagekeeper/pkg/settings"
	"github.com/entrhq/pagekeeper/pkg/watch"
)

// fakePage is a memdom document that can be reloaded from its source.
type fakePage struct {
	*memdom.Document
	src       string
	url       string
	reloads   int
	styles    []string
	reloadErr error
}

func newFakePage(t *testing.T, src string) *fakePage {
	return &fakePage{
		Document: pagetest.New(t, src),
		src:      src,
		url:      "https://app.piyovi.io/shipments/42",
	}
}

func (p *fakePage) URL() string { return p.url }

func (p *fakePage) Reload(context.Context) error {
	if p.reloadErr != nil {
		return p.reloadErr
	}
	p.reloads++
	p.Document = memdom.MustParse(p.src)
	return nil
}

func (p *fakePage) AddStyle(_ context.Context, css string) error {
	p.styles = append(p.styles, css)
	return nil
}

func newStore(t *testing.T) *settings.FileStore {
	t.Helper()
	store, err := settings.NewFileStore(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	return store
}

func disableAll(t *testing.T, store settings.Store) {
	t.Helper()
	values := map[string]any{}
	for _, f := range settings.Flags {
		values[f.Key] = false
	}
	require.NoError(t, store.Set(settings.AreaSync, values))
}

// onLoop runs fn on the agent's event loop and waits for it.
func onLoop(t *testing.T, a *Agent, fn func()) {
	t.Helper()
	done := make(chan struct{})
	a.Post(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event loop did not run the task")
	}
}

func TestInit_PatchesAndArms(t *testing.T) {
	page := newFakePage(t, pagetest.ShipmentPage)
	a := New(page, newStore(t))

	require.NoError(t, a.Init(context.Background()))

	assert.Equal(t, watch.StateObserving, a.WatcherState())
	require.Len(t, page.styles, 1)
	assert.Contains(t, page.styles[0], ".prominent-pack-all")
	assert.Equal(t, "111-111-1111", page.QuerySelector(`input[formcontrolname="phone"]`).Value())
	assert.Equal(t, "bold", page.QuerySelector(`.ag-row[row-id="p1"]`).Style("font-weight"))

	// Nodes rendered later are patched by the watcher.
	grid := page.QuerySelector(".tms-shipment-product")
	require.NoError(t, page.AppendHTML(grid, `<div class="ag-row" row-id="p3"><div col-id="DG"><yesno-cell>Yes</yesno-cell></div></div>`))
	_, stable := page.Settle(10)
	assert.True(t, stable)
	assert.Equal(t, "bold", page.QuerySelector(`.ag-row[row-id="p3"]`).Style("font-weight"))
}

func TestInit_AllDisabledLeavesPageAlone(t *testing.T) {
	page := newFakePage(t, pagetest.ShipmentPage)
	store := newStore(t)
	disableAll(t, store)
	before := page.HTML()

	a := New(page, store)
	require.NoError(t, a.Init(context.Background()))

	assert.Equal(t, before, page.HTML())
	assert.Equal(t, watch.StateIdle, a.WatcherState())
	assert.False(t, a.Snapshot().AnyEnabled())
}

func TestInit_IgnoresOtherPages(t *testing.T) {
	page := newFakePage(t, pagetest.ShipmentPage)
	page.url = "https://example.com/"
	before := page.HTML()

	a := New(page, newStore(t), WithURLMatcher(func(url string) bool {
		return strings.Contains(url, "piyovi.io")
	}))
	require.NoError(t, a.Init(context.Background()))

	assert.Equal(t, before, page.HTML())
	assert.Empty(t, page.styles)
	assert.Equal(t, watch.StateIdle, a.WatcherState())
}

func TestStart_SettingsChangeLeavesOtherPagesAlone(t *testing.T) {
	page := newFakePage(t, pagetest.ShipmentPage)
	page.url = "https://example.com/"
	store := newStore(t)
	a := New(page, store, WithURLMatcher(func(url string) bool {
		return strings.Contains(url, "piyovi.io")
	}))

	require.NoError(t, a.Start(context.Background()))
	defer a.Shutdown(context.Background())

	require.NoError(t, store.Set(settings.AreaSync, map[string]any{settings.KeyAutoPack: true}))

	var reloads int
	onLoop(t, a, func() { reloads = page.reloads })
	assert.Equal(t, 0, reloads)
}

type brokenStore struct {
	settings.Store
}

func (brokenStore) Get(string) (map[string]any, error) {
	return nil, errors.New("permission denied")
}

func TestInit_SettingsFailureFallsBackToDefaults(t *testing.T) {
	var buf bytes.Buffer
	page := newFakePage(t, pagetest.ShipmentPage)
	a := New(page, brokenStore{}, WithLogger(logging.NewWriterLogger("agent", &buf)))

	require.NoError(t, a.Init(context.Background()))

	assert.Equal(t, settings.Defaults().Data(), a.Snapshot().Data())
	assert.Equal(t, watch.StateObserving, a.WatcherState())
	assert.Contains(t, buf.String(), "[agent] [WARN] using default settings")
}

func TestReload_UsesFreshSnapshot(t *testing.T) {
	page := newFakePage(t, pagetest.ShipmentPage)
	store := newStore(t)
	m := metrics.New(nil)
	a := New(page, store, WithMetrics(m))
	require.NoError(t, a.Init(context.Background()))

	require.NoError(t, store.Set(settings.AreaSync, map[string]any{settings.KeyUPSPhoneNumber: "555-0100"}))
	require.NoError(t, a.Reload(context.Background()))

	assert.Equal(t, 1, page.reloads)
	assert.Equal(t, "555-0100", a.Snapshot().UPSPhoneNumber())
	assert.Equal(t, "555-0100", page.QuerySelector(`input[formcontrolname="phone"]`).Value())
	assert.Equal(t, watch.StateObserving, a.WatcherState())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Reloads))
}

func TestReload_Failure(t *testing.T) {
	page := newFakePage(t, pagetest.ShipmentPage)
	a := New(page, newStore(t))
	require.NoError(t, a.Init(context.Background()))

	page.reloadErr = errors.New("target closed")
	err := a.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "target closed")
	assert.Equal(t, watch.StateIdle, a.WatcherState())
}

func TestStart_SettingsChangeReloads(t *testing.T) {
	page := newFakePage(t, pagetest.ShipmentPage)
	store := newStore(t)
	a := New(page, store)

	require.NoError(t, a.Start(context.Background()))
	defer a.Shutdown(context.Background())

	assert.Error(t, a.Start(context.Background()), "second start must fail")

	var state watch.State
	onLoop(t, a, func() { state = a.WatcherState() })
	assert.Equal(t, watch.StateObserving, state)

	disableAll(t, store)

	require.Eventually(t, func() bool {
		var reloads int
		onLoop(t, a, func() {
			reloads = page.reloads
			state = a.WatcherState()
		})
		return reloads == 1 && state == watch.StateIdle
	}, 2*time.Second, 10*time.Millisecond)
	assert.False(t, a.Snapshot().AnyEnabled())
}

func TestShutdown(t *testing.T) {
	a := New(newFakePage(t, pagetest.LoadingPage), newStore(t))
	require.NoError(t, a.Shutdown(context.Background()), "shutdown before start is a no-op")

	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.Shutdown(context.Background()))

	select {
	case <-a.Done():
	default:
		t.Fatal("event loop still running")
	}

	assert.ErrorIs(t, a.Start(context.Background()), ErrStopped)
	assert.NoError(t, a.Shutdown(context.Background()))
}

func TestEventLoop_RecoversPanickingTask(t *testing.T) {
	var buf bytes.Buffer
	a := New(newFakePage(t, pagetest.LoadingPage), newStore(t), WithLogger(logging.NewWriterLogger("agent", &buf)))
	require.NoError(t, a.Start(context.Background()))
	defer a.Shutdown(context.Background())

	a.Post(func() { panic("boom") })
	ran := false
	onLoop(t, a, func() { ran = true })

	assert.True(t, ran)
	assert.Contains(t, buf.String(), "task panicked: boom")
}

// loadingPage reports its own loads, like a browser page does.
type loadingPage struct {
	*fakePage
	onLoad func()
}

func (p *loadingPage) OnLoad(fn func()) { p.onLoad = fn }

func (p *loadingPage) Reload(ctx context.Context) error {
	if err := p.fakePage.Reload(ctx); err != nil {
		return err
	}
	if p.onLoad != nil {
		p.onLoad()
	}
	return nil
}

func TestStart_LoadNotificationInitializes(t *testing.T) {
	page := &loadingPage{fakePage: newFakePage(t, pagetest.ShipmentPage)}
	a := New(page, newStore(t))
	require.NoError(t, a.Start(context.Background()))
	defer a.Shutdown(context.Background())

	var reloadErr error
	onLoop(t, a, func() { reloadErr = a.Reload(context.Background()) })
	require.NoError(t, reloadErr)

	require.Eventually(t, func() bool {
		var phone string
		onLoop(t, a, func() {
			phone = page.QuerySelector(`input[formcontrolname="phone"]`).Value()
		})
		return phone == "111-111-1111"
	}, 2*time.Second, 10*time.Millisecond)
}
