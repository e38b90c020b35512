package rules

import (
	"strings"

	"github.com/entrhq/pagekeeper/pkg/dom"
	"github.com/entrhq/pagekeeper/pkg/settings"
)

// FillUPSPhone puts the configured phone number into the empty recipient
// phone field when the selected carrier is UPS. Input and change events are
// fired so the host application's form model picks the value up.
func FillUPSPhone(doc dom.Document, snap settings.Snapshot) error {
	carrier := doc.QuerySelector(selectorCarrierLabel)
	if carrier == nil || strings.TrimSpace(carrier.Text()) != carrierUPS {
		return nil
	}

	input := doc.QuerySelector(selectorPhoneInput)
	if input == nil || strings.TrimSpace(input.Value()) != "" {
		return nil
	}

	// An empty number would leave the field empty and fire events on every
	// pass.
	phone := strings.TrimSpace(snap.UPSPhoneNumber())
	if phone == "" {
		return nil
	}

	if err := input.SetValue(phone); err != nil {
		return err
	}
	if err := input.DispatchEvent("input"); err != nil {
		return err
	}
	return input.DispatchEvent("change")
}
