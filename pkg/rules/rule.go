// Package rules contains the page patches.
//
// Every rule is a plain function over a dom.Document. A rule must be safe to
// apply any number of times: once its postcondition holds, applying it again
// changes nothing, which is what lets the change watcher's feedback loop come
// to rest. A rule whose targets are missing returns nil without doing
// anything; absence is the normal state while the page is loading.
package rules

import (
	"github.com/entrhq/pagekeeper/pkg/dom"
	"github.com/entrhq/pagekeeper/pkg/settings"
)

// Rule identifiers.
const (
	IDHighlightRows    = "highlight-rows"
	IDRepositionNotes  = "reposition-notes"
	IDNotesEmphasis    = "notes-emphasis"
	IDPackAllProminent = "pack-all-prominent"
	IDAutoPack         = "auto-pack"
	IDUPSPhone         = "ups-phone"
)

// ApplyFunc patches doc according to snap.
type ApplyFunc func(doc dom.Document, snap settings.Snapshot) error

// Rule is one named patch gated by a settings flag.
type Rule struct {
	ID    string
	Flag  string
	Apply ApplyFunc
}

// Enabled reports whether snap turns the rule on.
func (r Rule) Enabled(snap settings.Snapshot) bool {
	return snap.Enabled(r.Flag)
}

// ErrorFunc receives an error a rule hit outside a pass, in a page listener
// the rule installed.
type ErrorFunc func(rule string, err error)

// Table returns every rule in the order a pass runs them.
func Table() []Rule {
	return NewTable(nil)
}

// NewTable is Table with listener errors reported to onError. A nil onError
// drops them.
func NewTable(onError ErrorFunc) []Rule {
	emphasize := func(doc dom.Document, snap settings.Snapshot) error {
		return emphasizeNotes(doc, snap, onError)
	}
	return []Rule{
		{ID: IDHighlightRows, Flag: settings.KeyHighlighting, Apply: HighlightRows},
		{ID: IDRepositionNotes, Flag: settings.KeyRepositioning, Apply: RepositionNotes},
		{ID: IDNotesEmphasis, Flag: settings.KeyNotesHighlight, Apply: emphasize},
		{ID: IDPackAllProminent, Flag: settings.KeyPackAllProminent, Apply: ProminentPackAll},
		{ID: IDAutoPack, Flag: settings.KeyAutoPack, Apply: AutoPackAll},
		{ID: IDUPSPhone, Flag: settings.KeyUPSPhone, Apply: FillUPSPhone},
	}
}

// Lookup returns the rule registered under id.
func Lookup(id string) (Rule, bool) {
	for _, r := range Table() {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// declaration is one inline style property and its value.
type declaration struct {
	property string
	value    string
}

func applyStyles(el dom.Element, decls []declaration) error {
	for _, d := range decls {
		if err := el.SetStyle(d.property, d.value); err != nil {
			return err
		}
	}
	return nil
}

func clearStyles(el dom.Element, decls []declaration) error {
	for _, d := range decls {
		if err := el.SetStyle(d.property, ""); err != nil {
			return err
		}
	}
	return nil
}

// hasStyles reports whether every declaration is currently applied.
func hasStyles(el dom.Element, decls []declaration) bool {
	for _, d := range decls {
		if el.Style(d.property) != d.value {
			return false
		}
	}
	return true
}
