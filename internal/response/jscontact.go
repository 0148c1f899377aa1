package response

// ConversionMode selects how JSContact (RFC 9553) relates to jCard in a
// served or rendered entity, per §4.1 "JSContact conversion".
type ConversionMode string

const (
	ConversionNone ConversionMode = "none"
	ConversionAlso ConversionMode = "also"
	ConversionOnly ConversionMode = "only"
)

// ParseConversionMode parses the RDAP_SRV_JSCONTACT_CONVERSION /
// --to-jscontact values; an unrecognized value defaults to "none".
func ParseConversionMode(s string) ConversionMode {
	switch ConversionMode(s) {
	case ConversionAlso, ConversionOnly:
		return ConversionMode(s)
	default:
		return ConversionNone
	}
}

// JSContact is a reduced RFC 9553 representation: the mapping is defined at
// Contact granularity, and properties with no JSContact analog (jCard
// params, unknown Extras) are dropped with no error, per §4.1.
type JSContact struct {
	Type         string              `json:"@type"`
	Kind         string              `json:"kind,omitempty"`
	FullName     string              `json:"fullName,omitempty"`
	Organization string              `json:"organization,omitempty"`
	Titles       []string            `json:"titles,omitempty"`
	Addresses    []JSContactAddress  `json:"addresses,omitempty"`
	Phones       []JSContactPhone    `json:"phones,omitempty"`
	Emails       []JSContactEmail    `json:"emails,omitempty"`
	Links        []string            `json:"links,omitempty"`
	Language     string              `json:"preferredLanguage,omitempty"`
}

type JSContactAddress struct {
	PostOfficeBox string `json:"postOfficeBox,omitempty"`
	Extension     string `json:"extension,omitempty"`
	Street        string `json:"street,omitempty"`
	Locality      string `json:"locality,omitempty"`
	Region        string `json:"region,omitempty"`
	PostalCode    string `json:"postcode,omitempty"`
	Country       string `json:"country,omitempty"`
}

type JSContactPhone struct {
	Number   string `json:"number"`
	Feature  string `json:"feature,omitempty"`
	IsPref   bool   `json:"isPreferred,omitempty"`
}

type JSContactEmail struct {
	Address string `json:"address"`
	IsPref  bool   `json:"isPreferred,omitempty"`
}

// ToJSContact converts a Contact to its JSContact representation. This is
// intentionally lossy: jCard ordering and unknown Extras have no JSContact
// analog, matching the one-directional lossiness documented in §3.
func (c Contact) ToJSContact() JSContact {
	js := JSContact{
		Type:         "Card",
		Kind:         c.Kind,
		FullName:     c.FullName,
		Organization: c.Organization,
		Titles:       append([]string(nil), c.Titles...),
	}
	for _, a := range c.Addresses {
		js.Addresses = append(js.Addresses, JSContactAddress{
			PostOfficeBox: a.POBox,
			Extension:     a.Ext,
			Street:        a.Street,
			Locality:      a.Locality,
			Region:        a.Region,
			PostalCode:    a.Code,
			Country:       a.Country,
		})
	}
	for _, p := range c.Phones {
		feature := "voice"
		if p.IsFax {
			feature = "fax"
		} else if len(p.Types) > 0 {
			feature = p.Types[0]
		}
		js.Phones = append(js.Phones, JSContactPhone{
			Number:  p.Value,
			Feature: feature,
			IsPref:  p.Preference > 0,
		})
	}
	for _, e := range c.Emails {
		js.Emails = append(js.Emails, JSContactEmail{Address: e.Value, IsPref: e.Preference > 0})
	}
	js.Links = append(js.Links, c.URLs...)
	if len(c.Languages) > 0 {
		js.Language = c.Languages[0].Value
	}
	return js
}

// FromJSContact converts a JSContact back to a Contact. Preference order is
// not recoverable (JSContact uses a boolean isPreferred, not a rank), so
// round-tripping through JSContact is not loss-free the way vcard
// round-tripping is; this is intentional per §3.
func FromJSContact(js JSContact) Contact {
	c := Contact{
		Kind:         js.Kind,
		FullName:     js.FullName,
		Organization: js.Organization,
		Titles:       append([]string(nil), js.Titles...),
		URLs:         append([]string(nil), js.Links...),
	}
	for _, a := range js.Addresses {
		c.Addresses = append(c.Addresses, Address{
			POBox:    a.PostOfficeBox,
			Ext:      a.Extension,
			Street:   a.Street,
			Locality: a.Locality,
			Region:   a.Region,
			Code:     a.PostalCode,
			Country:  a.Country,
		})
	}
	for _, p := range js.Phones {
		pref := 0
		if p.IsPref {
			pref = 1
		}
		c.Phones = append(c.Phones, Phone{
			Value:      p.Number,
			Preference: pref,
			IsFax:      p.Feature == "fax",
			Types:      typesOf(p.Feature),
		})
	}
	for _, e := range js.Emails {
		pref := 0
		if e.IsPref {
			pref = 1
		}
		c.Emails = append(c.Emails, Email{Value: e.Address, Preference: pref})
	}
	if js.Language != "" {
		c.Languages = append(c.Languages, Language{Value: js.Language, Preference: 1})
	}
	return c
}

func typesOf(feature string) []string {
	if feature == "" {
		return nil
	}
	return []string{feature}
}
