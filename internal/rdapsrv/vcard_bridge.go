package rdapsrv

import (
	"encoding/json"

	"github.com/rdaptools/rdap/internal/response"
)

// jsContactFromRawVCard decodes a raw vcardArray JSON value through
// response.VCard's custom unmarshaler and bridges it to JSContact via
// Contact, mirroring the client-side conversion path in
// internal/response/jscontact.go.
func jsContactFromRawVCard(raw json.RawMessage) (response.JSContact, bool) {
	var vc response.VCard
	if err := json.Unmarshal(raw, &vc); err != nil {
		return response.JSContact{}, false
	}
	contact := response.FromVCard(vc)
	return contact.ToJSContact(), true
}
