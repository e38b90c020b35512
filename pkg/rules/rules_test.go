package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pagekeeper/internal/testing/pagetest"
	"github.com/entrhq/pagekeeper/pkg/dom"
	"github.com/entrhq/pagekeeper/pkg/dom/memdom"
	"github.com/entrhq/pagekeeper/pkg/settings"
)

// shipmentPage is a trimmed-down shipment screen of the target application.
const shipmentPage = `<html><body>
<div class="tms-shipment-product">
  <div class="ag-row ag-row-pinned" row-id="p-total"><div col-id="DG"><yesno-cell>Yes</yesno-cell></div></div>
  <div class="ag-row" row-id="p1"><div col-id="DG"><yesno-cell> Yes </yesno-cell></div></div>
  <div class="ag-row" row-id="p2"><div col-id="DG"><yesno-cell>No</yesno-cell></div></div>
  <div class="ag-row" row-id="p3"><div col-id="DG"><yesno-cell>yes</yesno-cell></div></div>
</div>
<fieldset>
  <button class="btn btn-sm btn-outline-secondary" ngbtooltip="Pack one">One</button>
  <button class="btn btn-sm btn-primary" ngbtooltip="Pack all">All</button>
  <button class="btn btn-sm" ngbtooltip="Unpack">Unpack</button>
</fieldset>
<div class="py-shipment-package-grid">
  <div class="ag-row ag-row-pinned" row-id="pkg-total"></div>
</div>
<form>
  <py-form-group-item label="common.field.notes"><div class="form-group"><textarea></textarea></div></py-form-group-item>
  <py-form-group-item label="Tax ID"><div class="form-group"><input formcontrolname="taxId"></div></py-form-group-item>
  <py-form-group-item label="Reference"><div class="form-group"><input formcontrolname="reference"></div></py-form-group-item>
  <ng-select formcontrolname="carrier"><div class="ng-value"><span class="ng-value-label">UPS</span></div></ng-select>
  <input formcontrolname="phone" value="">
</form>
</body></html>`

func newPage(t *testing.T) *memdom.Document {
	t.Helper()
	doc, err := memdom.ParseString(shipmentPage)
	require.NoError(t, err)
	return doc
}

// recorder collects every record the document produces.
func recorder(doc *memdom.Document) func() []dom.MutationRecord {
	var records []dom.MutationRecord
	doc.Observe(func(b dom.MutationBatch) { records = append(records, b...) })
	return func() []dom.MutationRecord {
		doc.Flush()
		out := records
		records = nil
		return out
	}
}

func rowByID(t *testing.T, doc dom.Document, id string) dom.Element {
	t.Helper()
	row := doc.QuerySelector(`.ag-row[row-id="` + id + `"]`)
	require.NotNil(t, row, "row %s", id)
	return row
}

func labels(doc dom.Document) []string {
	var out []string
	for _, item := range doc.QuerySelectorAll("py-form-group-item") {
		label, _ := item.Attr("label")
		out = append(out, label)
	}
	return out
}

func TestTable(t *testing.T) {
	ids := []string{}
	for _, r := range Table() {
		ids = append(ids, r.ID)
		_, known := settings.LookupFlag(r.Flag)
		assert.True(t, known, "rule %s is gated by unknown flag %s", r.ID, r.Flag)
	}
	assert.Equal(t, []string{
		IDHighlightRows, IDRepositionNotes, IDNotesEmphasis,
		IDPackAllProminent, IDAutoPack, IDUPSPhone,
	}, ids)

	r, ok := Lookup(IDAutoPack)
	require.True(t, ok)
	assert.False(t, r.Enabled(settings.Defaults()))
	assert.True(t, r.Enabled(settings.Defaults().With(settings.KeyAutoPack, true)))

	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestHighlightRows(t *testing.T) {
	doc := newPage(t)
	require.NoError(t, HighlightRows(doc, settings.Defaults()))

	p1 := rowByID(t, doc, "p1")
	assert.Equal(t, "rgba(255, 0, 0, 0.15)", p1.Style("background-color"))
	assert.Equal(t, "bold", p1.Style("font-weight"))

	assert.Equal(t, "", rowByID(t, doc, "p2").Style("background-color"))
	assert.Equal(t, "", rowByID(t, doc, "p3").Style("background-color"), "match is case-sensitive")
	assert.Equal(t, "bold", rowByID(t, doc, "p-total").Style("font-weight"))
}

func TestHighlightRows_CellUpdatedInPlace(t *testing.T) {
	doc := newPage(t)
	require.NoError(t, HighlightRows(doc, settings.Defaults()))

	p1 := rowByID(t, doc, "p1")
	p2 := rowByID(t, doc, "p2")
	require.NoError(t, doc.SetText(p1.QuerySelector("yesno-cell"), "No"))
	require.NoError(t, doc.SetText(p2.QuerySelector("yesno-cell"), "Yes"))

	require.NoError(t, HighlightRows(doc, settings.Defaults()))
	assert.Equal(t, "", p1.Style("background-color"))
	assert.Equal(t, "", p1.Style("font-weight"))
	assert.Equal(t, "bold", p2.Style("font-weight"))
}

func TestHighlightRows_LeavesForeignStyles(t *testing.T) {
	doc := memdom.MustParse(`<div class="ag-row" style="font-weight: bold;"><div col-id="DG"><yesno-cell>No</yesno-cell></div></div>`)
	require.NoError(t, HighlightRows(doc, settings.Defaults()))
	assert.Equal(t, "bold", doc.QuerySelector(".ag-row").Style("font-weight"))
}

func TestRepositionNotes(t *testing.T) {
	doc := newPage(t)
	records := recorder(doc)

	assert.Equal(t, []string{"common.field.notes", "Tax ID", "Reference"}, labels(doc))

	require.NoError(t, RepositionNotes(doc, settings.Defaults()))
	assert.Equal(t, []string{"Tax ID", "common.field.notes", "Reference"}, labels(doc))
	assert.NotEmpty(t, records())

	require.NoError(t, RepositionNotes(doc, settings.Defaults()))
	assert.Equal(t, []string{"Tax ID", "common.field.notes", "Reference"}, labels(doc))
	assert.Empty(t, records(), "second pass must not touch the tree")
}

func TestRepositionNotes_MissingSection(t *testing.T) {
	doc := memdom.MustParse(`<py-form-group-item label="common.field.notes"></py-form-group-item>`)
	before := doc.HTML()
	require.NoError(t, RepositionNotes(doc, settings.Defaults()))
	assert.Equal(t, before, doc.HTML())
}

func TestEmphasizeNotes(t *testing.T) {
	doc := newPage(t)
	box := doc.QuerySelector(selectorNotesItem)
	group := box.QuerySelector(".form-group")
	textarea := box.QuerySelector("textarea")

	require.NoError(t, doc.Type(textarea, "  "))
	require.NoError(t, EmphasizeNotes(doc, settings.Defaults()))
	assert.Equal(t, "", box.Style("background-color"))
	_, hasStyle := box.Attr("style")
	assert.False(t, hasStyle)

	// Typing updates the styles without another pass.
	require.NoError(t, doc.Type(textarea, "hello"))
	assert.Equal(t, "rgba(255, 248, 225, 1)", box.Style("background-color"))
	assert.Equal(t, "5px", box.Style("border-radius"))
	assert.Equal(t, "1px solid #f0ad4e", box.Style("border"))
	assert.Equal(t, "8px", group.Style("margin-top"))
	assert.Equal(t, "13px", group.Style("font-size"))

	require.NoError(t, doc.Type(textarea, " \n "))
	_, hasStyle = box.Attr("style")
	assert.False(t, hasStyle, "emptying the notes must restore the default appearance")
	_, hasStyle = group.Attr("style")
	assert.False(t, hasStyle)

	for i := 0; i < 5; i++ {
		require.NoError(t, EmphasizeNotes(doc, settings.Defaults()))
	}
	assert.Equal(t, 1, textarea.(*memdom.Element).ListenerCount("input"))
	marker, _ := textarea.Attr("data-note-listener-attached")
	assert.Equal(t, "true", marker)
}

func TestEmphasizeNotes_ReplacedTextarea(t *testing.T) {
	doc := newPage(t)
	require.NoError(t, EmphasizeNotes(doc, settings.Defaults()))

	group := doc.QuerySelector(selectorNotesItem + " .form-group")
	require.NoError(t, doc.Remove(group.QuerySelector("textarea")))
	require.NoError(t, doc.AppendHTML(group, `<textarea>kept</textarea>`))

	require.NoError(t, EmphasizeNotes(doc, settings.Defaults()))
	textarea := group.QuerySelector("textarea")
	assert.Equal(t, 1, textarea.(*memdom.Element).ListenerCount("input"))
	assert.Equal(t, "5px", doc.QuerySelector(selectorNotesItem).Style("border-radius"))
}

func TestNewTable_ReportsListenerErrors(t *testing.T) {
	page := newPage(t)
	doc := &pagetest.StyleFault{Document: page}

	var ids []string
	var errs []error
	table := NewTable(func(rule string, err error) {
		ids = append(ids, rule)
		errs = append(errs, err)
	})
	var emphasize Rule
	for _, r := range table {
		if r.ID == IDNotesEmphasis {
			emphasize = r
		}
	}
	require.NotNil(t, emphasize.Apply)
	require.NoError(t, emphasize.Apply(doc, settings.Defaults()))

	textarea := page.QuerySelector(selectorNotesItem + " textarea")
	require.NoError(t, page.Type(textarea, "hello"))
	assert.Empty(t, errs)

	doc.Failing = true
	require.NoError(t, page.Type(textarea, ""))
	assert.Equal(t, []string{IDNotesEmphasis}, ids)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], pagetest.ErrStyleRejected)
}

func TestEmphasizeNotes_ListenerErrorsWithoutSink(t *testing.T) {
	page := newPage(t)
	doc := &pagetest.StyleFault{Document: page}
	require.NoError(t, EmphasizeNotes(doc, settings.Defaults()))

	doc.Failing = true
	textarea := page.QuerySelector(selectorNotesItem + " textarea")
	assert.NotPanics(t, func() {
		require.NoError(t, page.Type(textarea, "hello"))
	})
}

func TestProminentPackAll(t *testing.T) {
	doc := newPage(t)
	records := recorder(doc)

	require.NoError(t, ProminentPackAll(doc, settings.Defaults()))

	button := doc.QuerySelector(selectorPackAll)
	class, _ := button.Attr("class")
	assert.Equal(t, "btn prominent-pack-all", class)
	assert.Equal(t, "", button.Style("display"))

	for _, other := range doc.QuerySelectorAll("fieldset " + selectorOtherButtons) {
		assert.Equal(t, "none", other.Style("display"))
	}
	records()

	before := doc.HTML()
	require.NoError(t, ProminentPackAll(doc, settings.Defaults()))
	assert.Equal(t, before, doc.HTML())
	assert.Empty(t, records())
}

func TestProminentPackAll_NoFieldset(t *testing.T) {
	doc := memdom.MustParse(`<div><button class="btn-sm" ngbtooltip="Pack all"></button><button id="other"></button></div>`)
	require.NoError(t, ProminentPackAll(doc, settings.Defaults()))
	assert.True(t, doc.QuerySelector(selectorPackAll).HasClass("prominent-pack-all"))
	assert.Equal(t, "", doc.QuerySelector("#other").Style("display"))
}

func TestAutoPackAll(t *testing.T) {
	doc := newPage(t)
	button := doc.QuerySelector(selectorPackAll)
	packageGrid := doc.QuerySelector(selectorPackageGrid)

	clicks := 0
	require.NoError(t, button.AddEventListener("click", func() { clicks++ }))

	// The host has not reacted yet: every pass clicks again.
	require.NoError(t, AutoPackAll(doc, settings.Defaults()))
	require.NoError(t, AutoPackAll(doc, settings.Defaults()))
	assert.Equal(t, 2, clicks)

	require.NoError(t, doc.AppendHTML(packageGrid, `<div class="ag-row" row-id="pkg1"></div>`))
	for i := 0; i < 3; i++ {
		require.NoError(t, AutoPackAll(doc, settings.Defaults()))
	}
	assert.Equal(t, 2, clicks, "a packed shipment must never be packed again")
}

func TestAutoPackAll_Preconditions(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{
			name: "no button",
			html: `<div class="tms-shipment-product"><div class="ag-row"></div></div><div class="py-shipment-package-grid"></div>`,
		},
		{
			name: "only pinned product rows",
			html: `<button ngbtooltip="Pack all"></button><div class="tms-shipment-product"><div class="ag-row ag-row-pinned"></div></div><div class="py-shipment-package-grid"></div>`,
		},
		{
			name: "no package grid",
			html: `<button ngbtooltip="Pack all"></button><div class="tms-shipment-product"><div class="ag-row"></div></div>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := memdom.MustParse(tt.html)
			clicks := 0
			if b := doc.QuerySelector("button"); b != nil {
				require.NoError(t, b.AddEventListener("click", func() { clicks++ }))
			}
			require.NoError(t, AutoPackAll(doc, settings.Defaults()))
			assert.Zero(t, clicks)
		})
	}
}

func TestFillUPSPhone(t *testing.T) {
	tests := []struct {
		name      string
		carrier   string
		phone     string
		setting   string
		wantPhone string
		wantEvent bool
	}{
		{name: "UPS and empty phone", carrier: "UPS", phone: "", setting: "111-111-1111", wantPhone: "111-111-1111", wantEvent: true},
		{name: "UPS with padding", carrier: " UPS ", phone: "   ", setting: "555-000-1234", wantPhone: "555-000-1234", wantEvent: true},
		{name: "wrong case", carrier: "ups", phone: "", setting: "111-111-1111", wantPhone: ""},
		{name: "other carrier", carrier: "FedEx", phone: "", setting: "111-111-1111", wantPhone: ""},
		{name: "phone already set", carrier: "UPS", phone: "999", setting: "111-111-1111", wantPhone: "999"},
		{name: "empty configured number", carrier: "UPS", phone: "", setting: " ", wantPhone: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newPage(t)
			require.NoError(t, doc.SetText(doc.QuerySelector(".ng-value-label"), tt.carrier))
			input := doc.QuerySelector(selectorPhoneInput)
			require.NoError(t, input.SetValue(tt.phone))

			var events []string
			require.NoError(t, input.AddEventListener("input", func() { events = append(events, "input") }))
			require.NoError(t, input.AddEventListener("change", func() { events = append(events, "change") }))

			snap := settings.Defaults().With(settings.KeyUPSPhoneNumber, tt.setting)
			require.NoError(t, FillUPSPhone(doc, snap))
			require.NoError(t, FillUPSPhone(doc, snap))

			if tt.wantEvent {
				assert.Equal(t, tt.wantPhone, input.Value())
				assert.Equal(t, []string{"input", "change"}, events, "events fire once, on the first pass only")
				return
			}
			assert.Equal(t, tt.phone, input.Value())
			assert.Empty(t, events)
		})
	}
}

func TestRules_MissingTargetsAreNoOps(t *testing.T) {
	doc := memdom.MustParse(`<html><body><p>loading…</p></body></html>`)
	records := recorder(doc)
	before := doc.HTML()

	for _, r := range Table() {
		assert.NoError(t, r.Apply(doc, settings.Defaults()), r.ID)
	}
	assert.Equal(t, before, doc.HTML())
	assert.Empty(t, records())
}

func TestRules_Idempotent(t *testing.T) {
	snap := settings.Defaults()
	for _, r := range Table() {
		if r.ID == IDAutoPack {
			// Clicking is a host action; its guard is covered by TestAutoPackAll.
			continue
		}
		t.Run(r.ID, func(t *testing.T) {
			doc := newPage(t)
			require.NoError(t, doc.Type(doc.QuerySelector("textarea"), "fragile"))
			records := recorder(doc)

			require.NoError(t, r.Apply(doc, snap))
			once := doc.HTML()
			records()

			require.NoError(t, r.Apply(doc, snap))
			assert.Equal(t, once, doc.HTML())
			assert.Empty(t, records(), "re-applying %s must not mutate the tree", r.ID)
		})
	}
}
