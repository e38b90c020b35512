package rules

import (
	"strings"

	"github.com/entrhq/pagekeeper/pkg/dom"
	"github.com/entrhq/pagekeeper/pkg/settings"
)

var (
	notesBoxEmphasis = []declaration{
		{property: "background-color", value: "rgba(255, 248, 225, 1)"},
		{property: "border-radius", value: "5px"},
		{property: "border", value: "1px solid #f0ad4e"},
		{property: "transition", value: "all 0.3s ease-in-out"},
	}
	notesGroupSpacing = []declaration{
		{property: "margin-top", value: "8px"},
		{property: "margin-bottom", value: "8px"},
		{property: "font-size", value: "13px"},
	}
)

// EmphasizeNotes frames the Notes box while its textarea holds text and
// removes the frame again when it is emptied.
//
// Typing does not change the tree, so the textarea also gets an input
// listener that re-applies the rule. The listener is attached once per
// textarea element, tracked by a marker attribute. Errors the listener hits
// are dropped; use NewTable to receive them.
func EmphasizeNotes(doc dom.Document, snap settings.Snapshot) error {
	return emphasizeNotes(doc, snap, nil)
}

func emphasizeNotes(doc dom.Document, snap settings.Snapshot, onError ErrorFunc) error {
	box := doc.QuerySelector(selectorNotesItem)
	if box == nil {
		return nil
	}
	textarea := box.QuerySelector(selectorTextArea)
	if textarea == nil {
		return nil
	}
	group := box.QuerySelector(selectorFormGroup)
	if group == nil {
		return nil
	}

	if err := styleNotes(box, group, textarea); err != nil {
		return err
	}

	if _, attached := textarea.Attr(attrNoteListener); attached {
		return nil
	}
	listener := func() {
		if err := emphasizeNotes(doc, snap, onError); err != nil && onError != nil {
			onError(IDNotesEmphasis, err)
		}
	}
	if err := textarea.AddEventListener("input", listener); err != nil {
		return err
	}
	return textarea.SetAttr(attrNoteListener, "true")
}

func styleNotes(box, group, textarea dom.Element) error {
	if strings.TrimSpace(textarea.Value()) != "" {
		if err := applyStyles(box, notesBoxEmphasis); err != nil {
			return err
		}
		return applyStyles(group, notesGroupSpacing)
	}

	if err := clearStyles(box, notesBoxEmphasis); err != nil {
		return err
	}
	return clearStyles(group, notesGroupSpacing)
}
