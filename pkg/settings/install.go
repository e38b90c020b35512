package settings

import "fmt"

// InstallDefaults writes the full default snapshot to the sync area if the
// area is empty, which is the first-install case. It reports whether
// anything was written.
func InstallDefaults(store Store) (bool, error) {
	current, err := store.Get(AreaSync)
	if err != nil {
		return false, fmt.Errorf("failed to read settings: %w", err)
	}
	if len(current) > 0 {
		return false, nil
	}

	if err := store.Set(AreaSync, DefaultData()); err != nil {
		return false, fmt.Errorf("failed to write default settings: %w", err)
	}
	if err := store.Save(); err != nil {
		return false, fmt.Errorf("failed to save default settings: %w", err)
	}
	return true, nil
}

// Reset replaces the sync area with the defaults, keeping the options
// editor's own keys.
func Reset(store Store) error {
	current, err := store.Get(AreaSync)
	if err != nil {
		return fmt.Errorf("failed to read settings: %w", err)
	}

	defaults := DefaultData()
	var stale []string
	for k := range current {
		if _, known := defaults[k]; !known && k != KeyDarkMode {
			stale = append(stale, k)
		}
	}
	if len(stale) > 0 {
		if err := store.Remove(AreaSync, stale...); err != nil {
			return err
		}
	}
	if err := store.Set(AreaSync, defaults); err != nil {
		return err
	}
	return store.Save()
}
