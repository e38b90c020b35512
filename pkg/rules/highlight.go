package rules

import (
	"errors"
	"strings"

	"github.com/entrhq/pagekeeper/pkg/dom"
	"github.com/entrhq/pagekeeper/pkg/settings"
)

var rowHighlight = []declaration{
	{property: "background-color", value: "rgba(255, 0, 0, 0.15)"},
	{property: "font-weight", value: "bold"},
}

// HighlightRows tints every grid row whose dangerous goods cell reads Yes.
//
// The grid recycles row elements and updates cells in place, so every pass
// re-reads the cell. A row that carries the highlight but no longer reads
// Yes is cleared.
func HighlightRows(doc dom.Document, _ settings.Snapshot) error {
	var errs []error
	for _, column := range doc.QuerySelectorAll(selectorDGColumn) {
		row := column.Closest(selectorGridRow)
		if row == nil {
			continue
		}

		cell := column.QuerySelector(selectorYesNoCell)
		if cell != nil && strings.TrimSpace(cell.Text()) == dangerousGoodsText {
			errs = append(errs, applyStyles(row, rowHighlight))
			continue
		}
		if hasStyles(row, rowHighlight) {
			errs = append(errs, clearStyles(row, rowHighlight))
		}
	}
	return errors.Join(errs...)
}
