package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
)

// Store persists settings in named areas and reports changes to them.
type Store interface {
	// Load reloads the store from its backing medium
	Load() error

	// Save persists the store
	Save() error

	// Get returns a copy of the values stored in area
	Get(area string) (map[string]any, error)

	// Set merges values into area and notifies subscribers of the keys
	// whose value actually changed
	Set(area string, values map[string]any) error

	// Remove deletes keys from area and notifies subscribers
	Remove(area string, keys ...string) error

	// Subscribe registers fn for change notifications
	Subscribe(fn func(Change)) (unsubscribe func())
}

// ErrCorrupt is returned when the settings file exists but cannot be
// decoded. NewFileStore still returns a usable, empty store with it.
var ErrCorrupt = errors.New("settings file is corrupt")

// ValueChange holds the old and new value of one key. A nil value means the
// key was absent.
type ValueChange struct {
	OldValue any `json:"oldValue,omitempty"`
	NewValue any `json:"newValue,omitempty"`
}

// Change is one change notification for a single area.
type Change struct {
	Area string
	Keys map[string]ValueChange
}

// ChangedKeys returns the changed keys in sorted order.
func (c Change) ChangedKeys() []string {
	keys := make([]string, 0, len(c.Keys))
	for k := range c.Keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FileStore implements Store using a JSON file.
type FileStore struct {
	path     string
	data     map[string]map[string]any
	mu       sync.RWMutex
	version  string
	modified bool

	subMu       sync.Mutex
	subscribers map[int]func(Change)
	nextSubID   int
}

type fileContents struct {
	Version string                    `json:"version"`
	Areas   map[string]map[string]any `json:"areas"`
}

// DefaultPath returns ~/.pagekeeper/settings.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".pagekeeper", "settings.json"), nil
}

// NewFileStore creates a file-backed store. If path is empty the default
// path is used. A missing file is not an error. A corrupt file yields an
// empty store together with an error wrapping ErrCorrupt, so callers that
// can live with the defaults may carry on.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	store := &FileStore{
		path:        path,
		data:        make(map[string]map[string]any),
		version:     "1.0",
		subscribers: make(map[int]func(Change)),
	}

	if err := store.Load(); err != nil {
		if errors.Is(err, ErrCorrupt) {
			return store, fmt.Errorf("failed to load settings from %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to load settings from %s: %w", path, err)
	}

	return store, nil
}

// Load replaces the in-memory areas with the file contents. Changes against
// the previous contents are reported to subscribers, which is how edits made
// by another process become visible.
func (s *FileStore) Load() error {
	areas, version, err := s.read()
	if err != nil {
		return err
	}

	s.mu.Lock()
	previous := s.data
	s.data = areas
	if version != "" {
		s.version = version
	}
	s.modified = false
	s.mu.Unlock()

	for _, change := range diffAreas(previous, areas) {
		s.notify(change)
	}
	return nil
}

func (s *FileStore) read() (map[string]map[string]any, string, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]map[string]any), "", nil
		}
		return nil, "", fmt.Errorf("failed to open settings file: %w", err)
	}
	defer file.Close()

	var contents fileContents
	if err := json.NewDecoder(file).Decode(&contents); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if contents.Areas == nil {
		contents.Areas = make(map[string]map[string]any)
	}
	return contents.Areas, contents.Version, nil
}

// Save writes the store to disk atomically.
func (s *FileStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp settings file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(fileContents{Version: s.version, Areas: s.data}); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.modified = false
	return nil
}

// Get returns a copy of the values in area. An unknown area is empty.
func (s *FileStore) Get(area string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyValues(s.data[area]), nil
}

// Set merges values into area.
func (s *FileStore) Set(area string, values map[string]any) error {
	s.mu.Lock()
	current, ok := s.data[area]
	if !ok {
		current = make(map[string]any)
		s.data[area] = current
	}

	change := Change{Area: area, Keys: make(map[string]ValueChange)}
	for k, v := range values {
		old, existed := current[k]
		if existed && reflect.DeepEqual(old, v) {
			continue
		}
		change.Keys[k] = ValueChange{OldValue: old, NewValue: v}
		current[k] = v
	}
	if len(change.Keys) > 0 {
		s.modified = true
	}
	s.mu.Unlock()

	if len(change.Keys) > 0 {
		s.notify(change)
	}
	return nil
}

// Remove deletes keys from area.
func (s *FileStore) Remove(area string, keys ...string) error {
	s.mu.Lock()
	current := s.data[area]
	change := Change{Area: area, Keys: make(map[string]ValueChange)}
	for _, k := range keys {
		if old, ok := current[k]; ok {
			change.Keys[k] = ValueChange{OldValue: old}
			delete(current, k)
		}
	}
	if len(change.Keys) > 0 {
		s.modified = true
	}
	s.mu.Unlock()

	if len(change.Keys) > 0 {
		s.notify(change)
	}
	return nil
}

// Subscribe registers fn for change notifications. fn runs on the goroutine
// that caused the change and must not block.
func (s *FileStore) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subscribers, id)
			s.subMu.Unlock()
		})
	}
}

func (s *FileStore) notify(change Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subscribers))
	ids := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fns = append(fns, s.subscribers[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(change)
	}
}

// IsModified returns true if the store has unsaved changes.
func (s *FileStore) IsModified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// Path returns the file path of the store.
func (s *FileStore) Path() string {
	return s.path
}

func copyValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

// diffAreas returns one Change per area whose values differ.
func diffAreas(before, after map[string]map[string]any) []Change {
	names := make(map[string]struct{})
	for area := range before {
		names[area] = struct{}{}
	}
	for area := range after {
		names[area] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for area := range names {
		sorted = append(sorted, area)
	}
	sort.Strings(sorted)

	var changes []Change
	for _, area := range sorted {
		old, cur := before[area], after[area]
		change := Change{Area: area, Keys: make(map[string]ValueChange)}
		for k, v := range cur {
			if prev, ok := old[k]; !ok || !reflect.DeepEqual(prev, v) {
				change.Keys[k] = ValueChange{OldValue: prev, NewValue: v}
			}
		}
		for k, v := range old {
			if _, ok := cur[k]; !ok {
				change.Keys[k] = ValueChange{OldValue: v}
			}
		}
		if len(change.Keys) > 0 {
			changes = append(changes, change)
		}
	}
	return changes
}
