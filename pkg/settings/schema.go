// Package settings holds the persisted feature toggles shared by the content
// agent and the options editor, and the immutable snapshots read from them.
package settings

const (
	// AreaSync is the storage area holding the feature toggles.
	AreaSync = "sync"

	// AreaLocal is reserved for machine-local values. Nothing reacts to it.
	AreaLocal = "local"
)

// Setting keys. They are shared with the options editor and must not change.
const (
	KeyHighlighting      = "highlightingEnabled"
	KeyNotesHighlight    = "notesHighlightEnabled"
	KeyRepositioning     = "repositioningEnabled"
	KeyPackAllProminent  = "packAllProminentEnabled"
	KeyAutoPack          = "autoPackEnabled"
	KeyUPSPhone          = "upsPhoneEnabled"
	KeyUPSPhoneNumber    = "upsPhoneNumber"
	KeyDarkMode          = "darkModeEnabled"
	DefaultUPSPhoneValue = "111-111-1111"
)

// Flag describes one boolean feature toggle.
type Flag struct {
	Key         string
	Title       string
	Description string
	Default     bool
}

// Flags lists the feature toggles in display order.
var Flags = []Flag{
	{
		Key:         KeyHighlighting,
		Title:       "Highlight dangerous goods rows",
		Description: "Tint and bold grid rows whose DG column reads Yes.",
		Default:     true,
	},
	{
		Key:         KeyNotesHighlight,
		Title:       "Emphasize populated notes",
		Description: "Frame the Notes box while it contains text.",
		Default:     true,
	},
	{
		Key:         KeyRepositioning,
		Title:       "Move notes below Tax ID",
		Description: "Place the Notes box directly after the Tax ID box.",
		Default:     true,
	},
	{
		Key:         KeyPackAllProminent,
		Title:       "Prominent Pack all",
		Description: "Enlarge Pack all and hide the other packing buttons.",
		Default:     true,
	},
	{
		Key:         KeyAutoPack,
		Title:       "Auto Pack all",
		Description: "Click Pack all when products are loaded and nothing is packed yet.",
		Default:     false,
	},
	{
		Key:         KeyUPSPhone,
		Title:       "UPS phone autofill",
		Description: "Fill an empty phone number when the carrier is UPS.",
		Default:     true,
	},
}

// LookupFlag returns the flag registered under key.
func LookupFlag(key string) (Flag, bool) {
	for _, f := range Flags {
		if f.Key == key {
			return f, true
		}
	}
	return Flag{}, false
}

// DefaultData returns the full default contents of the sync area, as written
// on first install.
func DefaultData() map[string]any {
	data := make(map[string]any, len(Flags)+1)
	for _, f := range Flags {
		data[f.Key] = f.Default
	}
	data[KeyUPSPhoneNumber] = DefaultUPSPhoneValue
	return data
}
