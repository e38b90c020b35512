package settings

import (
	"fmt"
	"strings"
)

// Snapshot is an immutable read of the feature toggles and their parameters.
// The zero value is not useful; build one with FromData or Defaults.
type Snapshot struct {
	flags          map[string]bool
	upsPhoneNumber string
}

// Defaults returns the snapshot used when nothing is stored.
func Defaults() Snapshot {
	return FromData(nil)
}

// FromData builds a snapshot from raw area data. Missing keys and values of
// the wrong type fall back to the defaults.
func FromData(data map[string]any) Snapshot {
	s := Snapshot{
		flags:          make(map[string]bool, len(Flags)),
		upsPhoneNumber: DefaultUPSPhoneValue,
	}
	for _, f := range Flags {
		s.flags[f.Key] = f.Default
		if v, ok := data[f.Key].(bool); ok {
			s.flags[f.Key] = v
		}
	}
	if v, ok := data[KeyUPSPhoneNumber].(string); ok {
		s.upsPhoneNumber = v
	}
	return s
}

// Read takes a snapshot of the sync area. If the store cannot be read the
// defaults are returned along with the error.
func Read(store Store) (Snapshot, error) {
	data, err := store.Get(AreaSync)
	if err != nil {
		return Defaults(), fmt.Errorf("failed to read settings: %w", err)
	}
	return FromData(data), nil
}

// Enabled reports whether the flag stored under key is on. Unknown keys are
// off.
func (s Snapshot) Enabled(key string) bool {
	return s.flags[key]
}

// AnyEnabled reports whether at least one flag is on.
func (s Snapshot) AnyEnabled() bool {
	for _, on := range s.flags {
		if on {
			return true
		}
	}
	return false
}

// UPSPhoneNumber returns the phone number used by the UPS autofill.
func (s Snapshot) UPSPhoneNumber() string {
	return s.upsPhoneNumber
}

// With returns a copy of s with key set to value. Values of the wrong type
// are ignored.
func (s Snapshot) With(key string, value any) Snapshot {
	data := s.Data()
	data[key] = value
	return FromData(data)
}

// Data returns the snapshot as area data.
func (s Snapshot) Data() map[string]any {
	data := make(map[string]any, len(s.flags)+1)
	for k, v := range s.flags {
		data[k] = v
	}
	data[KeyUPSPhoneNumber] = s.upsPhoneNumber
	return data
}

// String lists the enabled flags.
func (s Snapshot) String() string {
	var on []string
	for _, f := range Flags {
		if s.flags[f.Key] {
			on = append(on, f.Key)
		}
	}
	if len(on) == 0 {
		return "none"
	}
	return strings.Join(on, ",")
}
