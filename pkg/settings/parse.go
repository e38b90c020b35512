package settings

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseValue converts a textual value for key into the type the schema
// stores.
func ParseValue(key, raw string) (any, error) {
	if _, ok := LookupFlag(key); ok || key == KeyDarkMode {
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected true or false, got %q", key, raw)
		}
		return v, nil
	}
	if key == KeyUPSPhoneNumber {
		return strings.TrimSpace(raw), nil
	}
	return nil, fmt.Errorf("unknown setting %q", key)
}

// ParseAssignment splits "key=value" and parses the value.
func ParseAssignment(arg string) (string, any, error) {
	key, raw, ok := strings.Cut(arg, "=")
	if !ok {
		return "", nil, fmt.Errorf("expected key=value, got %q", arg)
	}
	key = strings.TrimSpace(key)
	value, err := ParseValue(key, raw)
	if err != nil {
		return "", nil, err
	}
	return key, value, nil
}
