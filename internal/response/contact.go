package response

import (
	"strconv"
	"strings"
)

// Contact is an RDAP-independent representation of a natural or legal
// person, used to bridge jCard and JSContact. See §3 "Contact".
type Contact struct {
	FullName     string
	Kind         string // individual|org|group|location|application|device
	Organization string
	Titles       []string
	Addresses    []Address
	Phones       []Phone
	Emails       []Email
	URLs         []string
	Languages    []Language

	// Extras preserves jCard properties with no Contact analog so that
	// from_vcard/to_vcard round-trips losslessly for the properties this
	// model understands, per §3's invariant.
	Extras []VCardProperty
}

// Address is the 7-component structured postal address plus country, per
// jCard's ADR property (RFC 6350 §6.3.1).
type Address struct {
	POBox    string
	Ext      string
	Street   string
	Locality string
	Region   string
	Code     string
	Country  string
}

// Phone carries a telephone number, its preference order, and its type set
// (e.g. "voice", "cell", "fax").
type Phone struct {
	Value      string
	Preference int
	Types      []string
	IsFax      bool
}

type Email struct {
	Value      string
	Preference int
}

// Language is a preference-ordered language tag (jCard LANG property).
type Language struct {
	Value      string
	Preference int
}

func normalizeKind(k string) string {
	switch strings.ToLower(strings.TrimSpace(k)) {
	case "individual", "org", "group", "location", "application", "device":
		return strings.ToLower(k)
	default:
		return "individual"
	}
}

// FromVCard converts a parsed jCard into a Contact. Unknown properties are
// preserved in Extras rather than dropped, and jCard's adr array components
// map positionally to Address per RFC 6350 §6.3.1: a scalar (non-array) adr
// value is placed wholesale into Street with the other components left
// empty, matching how permissive real-world jCard producers emit it.
func FromVCard(vc VCard) Contact {
	var c Contact
	for _, vp := range vc {
		switch vp.Name {
		case "fn":
			c.FullName = vp.firstValue()
		case "kind":
			c.Kind = normalizeKind(vp.firstValue())
		case "org":
			c.Organization = vp.firstValue()
		case "title":
			if v := vp.firstValue(); v != "" {
				c.Titles = append(c.Titles, v)
			}
		case "adr":
			c.Addresses = append(c.Addresses, addressFromValues(vp))
		case "tel":
			c.Phones = append(c.Phones, phoneFromProperty(vp))
		case "email":
			c.Emails = append(c.Emails, Email{
				Value:      vp.firstValue(),
				Preference: preferenceOf(vp.Params),
			})
		case "url":
			if v := vp.firstValue(); v != "" {
				c.URLs = append(c.URLs, v)
			}
		case "lang":
			c.Languages = append(c.Languages, Language{
				Value:      vp.firstValue(),
				Preference: preferenceOf(vp.Params),
			})
		case "version":
			// structural jCard marker, not contact data.
		default:
			c.Extras = append(c.Extras, vp)
		}
	}
	return c
}

func preferenceOf(params map[string][]string) int {
	for _, v := range params["pref"] {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

func addressFromValues(vp VCardProperty) Address {
	var a Address
	// structured adr: [pobox, ext, street, locality, region, code, country]
	if len(vp.Values) == 1 {
		if arr, ok := vp.Values[0].([]interface{}); ok {
			get := func(i int) string {
				if i >= len(arr) {
					return ""
				}
				s, _ := arr[i].(string)
				return s
			}
			a.POBox = get(0)
			a.Ext = get(1)
			a.Street = get(2)
			a.Locality = get(3)
			a.Region = get(4)
			a.Code = get(5)
			a.Country = get(6)
			return a
		}
		if s, ok := vp.Values[0].(string); ok {
			a.Street = s
		}
	}
	return a
}

func phoneFromProperty(vp VCardProperty) Phone {
	p := Phone{
		Value:      vp.firstValue(),
		Preference: preferenceOf(vp.Params),
		Types:      vp.Params["type"],
	}
	p.IsFax = hasParamValue(vp.Params, "type", "fax")
	return p
}

// ToVCard converts a Contact back into jCard form. Extras are appended
// verbatim, and a "version":"4.0" property is always emitted first since
// every jCard requires one (§4.6 JCARD_VERSION_MISSING check depends on
// it being present on responses this package produces).
func ToVCard(c Contact) VCard {
	vc := VCard{
		{Name: "version", Params: map[string][]string{}, Type: "text", Values: []interface{}{"4.0"}},
	}
	if c.FullName != "" {
		vc = append(vc, VCardProperty{Name: "fn", Params: map[string][]string{}, Type: "text", Values: []interface{}{c.FullName}})
	}
	if c.Kind != "" {
		vc = append(vc, VCardProperty{Name: "kind", Params: map[string][]string{}, Type: "text", Values: []interface{}{c.Kind}})
	}
	if c.Organization != "" {
		vc = append(vc, VCardProperty{Name: "org", Params: map[string][]string{}, Type: "text", Values: []interface{}{c.Organization}})
	}
	for _, t := range c.Titles {
		vc = append(vc, VCardProperty{Name: "title", Params: map[string][]string{}, Type: "text", Values: []interface{}{t}})
	}
	for _, a := range c.Addresses {
		vc = append(vc, VCardProperty{
			Name:   "adr",
			Params: map[string][]string{},
			Type:   "text",
			Values: []interface{}{[]interface{}{a.POBox, a.Ext, a.Street, a.Locality, a.Region, a.Code, a.Country}},
		})
	}
	for _, p := range c.Phones {
		params := map[string][]string{}
		if len(p.Types) > 0 {
			params["type"] = p.Types
		}
		if p.IsFax && !hasParamValue(params, "type", "fax") {
			params["type"] = append(params["type"], "fax")
		}
		if p.Preference > 0 {
			params["pref"] = []string{strconv.Itoa(p.Preference)}
		}
		vc = append(vc, VCardProperty{Name: "tel", Params: params, Type: "text", Values: []interface{}{p.Value}})
	}
	for _, e := range c.Emails {
		params := map[string][]string{}
		if e.Preference > 0 {
			params["pref"] = []string{strconv.Itoa(e.Preference)}
		}
		vc = append(vc, VCardProperty{Name: "email", Params: params, Type: "text", Values: []interface{}{e.Value}})
	}
	for _, u := range c.URLs {
		vc = append(vc, VCardProperty{Name: "url", Params: map[string][]string{}, Type: "uri", Values: []interface{}{u}})
	}
	for _, l := range c.Languages {
		params := map[string][]string{}
		if l.Preference > 0 {
			params["pref"] = []string{strconv.Itoa(l.Preference)}
		}
		vc = append(vc, VCardProperty{Name: "lang", Params: params, Type: "language-tag", Values: []interface{}{l.Value}})
	}
	vc = append(vc, c.Extras...)
	return vc
}
