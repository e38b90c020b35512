package config

import (
	"fmt"

	"github.com/gobwas/glob"
)

// URLMatcher decides which pages belong to the target application.
type URLMatcher struct {
	match   []glob.Glob
	exclude []glob.Glob
}

// NewURLMatcher compiles match and exclude patterns with '/' as separator.
func NewURLMatcher(match, exclude []string) (*URLMatcher, error) {
	m := &URLMatcher{}

	for _, pattern := range match {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid match pattern '%s': %w", pattern, err)
		}
		m.match = append(m.match, g)
	}

	for _, pattern := range exclude {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)
		}
		m.exclude = append(m.exclude, g)
	}

	return m, nil
}

// Matches reports whether url matches a match pattern and no exclude
// pattern.
func (m *URLMatcher) Matches(url string) bool {
	for _, g := range m.exclude {
		if g.Match(url) {
			return false
		}
	}
	for _, g := range m.match {
		if g.Match(url) {
			return true
		}
	}
	return false
}
