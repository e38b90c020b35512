package rules

import (
	"errors"

	"github.com/entrhq/pagekeeper/pkg/dom"
	"github.com/entrhq/pagekeeper/pkg/settings"
)

// ProminentPackAll enlarges the Pack all button and hides the other buttons
// of its fieldset.
func ProminentPackAll(doc dom.Document, _ settings.Snapshot) error {
	button := doc.QuerySelector(selectorPackAll)
	if button == nil {
		return nil
	}

	if err := button.RemoveClass(classButtonSmall, classButtonOutline, classButtonPrimary); err != nil {
		return err
	}
	if err := button.AddClass(classProminentPackAll); err != nil {
		return err
	}

	fieldset := button.Closest(selectorFieldset)
	if fieldset == nil {
		return nil
	}
	var errs []error
	for _, other := range fieldset.QuerySelectorAll(selectorOtherButtons) {
		if other.Same(button) {
			continue
		}
		errs = append(errs, other.SetStyle("display", "none"))
	}
	return errors.Join(errs...)
}

// AutoPackAll clicks Pack all when the product grid has rows and the package
// grid has none.
//
// The click is a real action in the host application, not an idempotent
// patch. It stays safe under repeated passes because packing fills the
// package grid, which turns the precondition off.
func AutoPackAll(doc dom.Document, _ settings.Snapshot) error {
	button := doc.QuerySelector(selectorPackAll)
	productGrid := doc.QuerySelector(selectorProductGrid)
	packageGrid := doc.QuerySelector(selectorPackageGrid)
	if button == nil || productGrid == nil || packageGrid == nil {
		return nil
	}

	if len(productGrid.QuerySelectorAll(selectorDataRow)) == 0 {
		return nil
	}
	if len(packageGrid.QuerySelectorAll(selectorDataRow)) > 0 {
		return nil
	}
	return button.Click()
}
