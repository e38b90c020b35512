package rules

// Markup of the target application. These strings are matched bit-for-bit;
// when the site changes them the affected rule silently stops matching.
const (
	// Grid rows and the dangerous goods column.
	selectorDGColumn   = `div[col-id="DG"]`
	selectorYesNoCell  = `yesno-cell`
	selectorGridRow    = `.ag-row`
	selectorDataRow    = `.ag-row:not(.ag-row-pinned)`
	dangerousGoodsText = "Yes"

	// Form sections.
	selectorNotesItem = `py-form-group-item[label="common.field.notes"]`
	selectorTaxIDItem = `py-form-group-item[label="Tax ID"]`
	selectorTextArea  = `textarea`
	selectorFormGroup = `.form-group`

	// Marker attribute set on a notes textarea once its input listener is
	// attached.
	attrNoteListener = "data-note-listener-attached"

	// Packing.
	selectorPackAll       = `button[ngbtooltip="Pack all"]`
	selectorOtherButtons  = `button:not([ngbtooltip="Pack all"])`
	selectorFieldset      = `fieldset`
	selectorProductGrid   = `.tms-shipment-product`
	selectorPackageGrid   = `.py-shipment-package-grid`
	classProminentPackAll = "prominent-pack-all"
	classButtonSmall      = "btn-sm"
	classButtonOutline    = "btn-outline-secondary"
	classButtonPrimary    = "btn-primary"

	// Carrier and recipient phone.
	selectorCarrierLabel = `ng-select[formcontrolname="carrier"] .ng-value-label`
	selectorPhoneInput   = `input[formcontrolname="phone"]`
	carrierUPS           = "UPS"
)

// ProminentPackAllCSS styles the class added to the Pack all button. It is
// injected into the page once per load.
const ProminentPackAllCSS = `button.prominent-pack-all {
  font-size: 1.25rem;
  font-weight: 600;
  padding: 0.6rem 1.6rem;
  color: #fff;
  background-color: #198754;
  border-color: #198754;
}`
