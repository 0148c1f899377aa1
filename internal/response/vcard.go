// Package response: VCard is the raw token-stream representation of a
// jCard (RFC 7095 "vcardArray"):
// ["vcard", [ [name, params, type, value...], ... ]].
//
// Keeping both this and Contact around lets serialization choose either
// side, per the design note in §9: jCard is intentionally not modeled as a
// strict schema, since unknown properties are part of the contract.
package response

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

type VCard []VCardProperty

type VCardProperty struct {
	Name   string
	Params map[string][]string
	Type   string
	Values []interface{}
}

func (pv *VCard) UnmarshalJSON(bs []byte) error {

	vc := make([]interface{}, 0, 2)
	if err := json.Unmarshal(bs, &vc); err != nil {
		return errors.WithMessage(err, "vcardArray")
	}

	if len(vc) < 2 {
		return errors.New("vcardArray: invalid -- not enough items in array")
	}

	head, ok := vc[0].(string)
	if !ok || head != "vcard" {
		return errors.New("vcardArray: invalid -- missing 'vcard' header")
	}

	props, ok := vc[1].([]interface{})
	if !ok {
		return errors.New("vcardArray: invalid -- properties are not an array")
	}

	out := make(VCard, 0, len(props))
	for pi := range props {

		arProp, ok := props[pi].([]interface{})
		if !ok {
			continue
		}
		var vp VCardProperty

		for i := range arProp {
			switch i {
			case 0:
				// property names are lowercased per §4.1.
				if s, ok := arProp[i].(string); ok {
					vp.Name = strings.ToLower(s)
				}
			case 1:
				tmp, _ := arProp[i].(map[string]interface{})
				vp.Params = make(map[string][]string, len(tmp))
				for tkey, tval := range tmp {
					switch v := tval.(type) {
					case []interface{}:
						for _, iv := range v {
							if s, ok := iv.(string); ok {
								vp.Params[tkey] = append(vp.Params[tkey], s)
							}
						}
					case string:
						vp.Params[tkey] = []string{v}
					}
				}
			case 2:
				if s, ok := arProp[i].(string); ok {
					vp.Type = s
				}
			default:
				vp.Values = append(vp.Values, arProp[i])
			}
		}
		out = append(out, vp)
	}

	*pv = out
	return nil
}

// MarshalJSON writes the vcardArray back out in jCard form. Unlike parsing,
// the write side never needs to recover a lost order: VCard already stores
// properties in the order they were parsed or appended.
func (pv VCard) MarshalJSON() ([]byte, error) {
	props := make([]interface{}, 0, len(pv))
	for _, vp := range pv {
		params := map[string]interface{}{}
		for k, v := range vp.Params {
			if len(v) == 1 {
				params[k] = v[0]
			} else if len(v) > 1 {
				params[k] = v
			}
		}
		entry := []interface{}{vp.Name, params, vp.Type}
		entry = append(entry, vp.Values...)
		props = append(props, entry)
	}
	return json.Marshal([]interface{}{"vcard", props})
}

func (vp VCardProperty) firstValue() string {
	if len(vp.Values) == 0 {
		return ""
	}
	s, _ := vp.Values[0].(string)
	return s
}

func hasParamValue(params map[string][]string, key, want string) bool {
	for _, v := range params[key] {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
