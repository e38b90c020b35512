package rules

import (
	"github.com/entrhq/pagekeeper/pkg/dom"
	"github.com/entrhq/pagekeeper/pkg/settings"
)

// RepositionNotes moves the Notes box so it directly follows the Tax ID box.
//
// Moving a node is a structural change that re-triggers the watcher, so the
// move only happens when the boxes are not adjacent yet.
func RepositionNotes(doc dom.Document, _ settings.Snapshot) error {
	notes := doc.QuerySelector(selectorNotesItem)
	taxID := doc.QuerySelector(selectorTaxIDItem)
	if notes == nil || taxID == nil {
		return nil
	}

	if next := taxID.NextElementSibling(); next != nil && next.Same(notes) {
		return nil
	}
	return taxID.After(notes)
}
