// Package pagetest provides shipment page fixtures for tests.
package pagetest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/entrhq/pagekeeper/pkg/dom"
	"github.com/entrhq/pagekeeper/pkg/dom/memdom"
)

// ShipmentPage is a trimmed-down shipment screen of the target application
// with every rule target present and nothing patched yet.
const ShipmentPage = `<html><body>
<div class="tms-shipment-product">
  <div class="ag-row" row-id="p1"><div col-id="DG"><yesno-cell>Yes</yesno-cell></div></div>
  <div class="ag-row" row-id="p2"><div col-id="DG"><yesno-cell>No</yesno-cell></div></div>
</div>
<fieldset>
  <button class="btn btn-sm btn-outline-secondary" ngbtooltip="Pack one">One</button>
  <button class="btn btn-sm btn-primary" ngbtooltip="Pack all">All</button>
</fieldset>
<div class="py-shipment-package-grid"></div>
<form>
  <py-form-group-item label="common.field.notes"><div class="form-group"><textarea>fragile</textarea></div></py-form-group-item>
  <py-form-group-item label="Tax ID"><div class="form-group"><input formcontrolname="taxId"></div></py-form-group-item>
  <ng-select formcontrolname="carrier"><span class="ng-value-label">UPS</span></ng-select>
  <input formcontrolname="phone">
</form>
</body></html>`

// LoadingPage is the same screen before the host application has rendered
// anything.
const LoadingPage = `<html><body><app-root></app-root></body></html>`

// New parses src into a document.
func New(t *testing.T, src string) *memdom.Document {
	t.Helper()
	doc, err := memdom.ParseString(src)
	require.NoError(t, err)
	return doc
}

// Recorder observes doc and returns a function that flushes it and hands
// back every record produced since the previous call.
func Recorder(doc *memdom.Document) func() []dom.MutationRecord {
	var records []dom.MutationRecord
	doc.Observe(func(b dom.MutationBatch) { records = append(records, b...) })
	return func() []dom.MutationRecord {
		doc.Flush()
		out := records
		records = nil
		return out
	}
}

// ErrStyleRejected is returned by SetStyle on a StyleFault document while it
// is failing.
var ErrStyleRejected = errors.New("style rejected")

// StyleFault wraps a document so that SetStyle fails on every element
// reached through it while Failing is set.
type StyleFault struct {
	dom.Document
	Failing bool
}

func (d *StyleFault) QuerySelector(selector string) dom.Element {
	return d.wrap(d.Document.QuerySelector(selector))
}

func (d *StyleFault) QuerySelectorAll(selector string) []dom.Element {
	return d.wrapAll(d.Document.QuerySelectorAll(selector))
}

func (d *StyleFault) wrap(el dom.Element) dom.Element {
	if el == nil {
		return nil
	}
	return &faultyElement{Element: el, doc: d}
}

func (d *StyleFault) wrapAll(els []dom.Element) []dom.Element {
	out := make([]dom.Element, len(els))
	for i, el := range els {
		out[i] = d.wrap(el)
	}
	return out
}

type faultyElement struct {
	dom.Element
	doc *StyleFault
}

func (e *faultyElement) QuerySelector(selector string) dom.Element {
	return e.doc.wrap(e.Element.QuerySelector(selector))
}

func (e *faultyElement) QuerySelectorAll(selector string) []dom.Element {
	return e.doc.wrapAll(e.Element.QuerySelectorAll(selector))
}

func (e *faultyElement) Closest(selector string) dom.Element {
	return e.doc.wrap(e.Element.Closest(selector))
}

func (e *faultyElement) NextElementSibling() dom.Element {
	return e.doc.wrap(e.Element.NextElementSibling())
}

func (e *faultyElement) SetStyle(property, value string) error {
	if e.doc.Failing {
		return ErrStyleRejected
	}
	return e.Element.SetStyle(property, value)
}

// RenderShipment appends the rendered shipment screen to the app root of a
// LoadingPage, the way the host application does once its data arrives.
func RenderShipment(t *testing.T, doc *memdom.Document) {
	t.Helper()
	root := doc.QuerySelector("app-root")
	require.NotNil(t, root)
	require.NoError(t, doc.AppendHTML(root, shipmentBody))
}

const shipmentBody = `<div class="tms-shipment-product">
  <div class="ag-row" row-id="p1"><div col-id="DG"><yesno-cell>Yes</yesno-cell></div></div>
</div>
<fieldset>
  <button class="btn btn-sm btn-primary" ngbtooltip="Pack all">All</button>
  <button class="btn btn-sm" ngbtooltip="Unpack">Unpack</button>
</fieldset>
<div class="py-shipment-package-grid"></div>
<form>
  <py-form-group-item label="common.field.notes"><div class="form-group"><textarea></textarea></div></py-form-group-item>
  <py-form-group-item label="Tax ID"><div class="form-group"><input formcontrolname="taxId"></div></py-form-group-item>
  <ng-select formcontrolname="carrier"><span class="ng-value-label">UPS</span></ng-select>
  <input formcontrolname="phone">
</form>`
