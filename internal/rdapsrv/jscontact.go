package rdapsrv

import "encoding/json"

// convertEntities performs the JSContact conversion named by
// RDAP_SRV_JSCONTACT_CONVERSION on every entity encountered in body, per
// §4.8 "The dispatcher performs the JSContact conversion ... on every
// entity encountered in the response before serialization" and §9's open-
// question resolution ("per-entity inside the server pipeline").
//
// Conversion operates structurally (walking the decoded JSON tree for any
// object carrying a vcardArray member) rather than through response.Object,
// since a stored body may be a domain, nameserver, autnum, or ip network
// that nests zero or more entities at arbitrary depth via "entities".
func (d *Dispatcher) convertEntities(body json.RawMessage) json.RawMessage {
	if d.JSContactMode == "" || d.JSContactMode == "none" {
		return body
	}
	var node interface{}
	if err := json.Unmarshal(body, &node); err != nil {
		return body
	}
	node = convertNode(node, jsContactMode(d.JSContactMode))
	out, err := json.Marshal(node)
	if err != nil {
		return body
	}
	return out
}

func convertNode(node interface{}, mode jsContactMode) interface{} {
	switch v := node.(type) {
	case map[string]interface{}:
		if _, ok := v["vcardArray"]; ok && v["objectClassName"] == "entity" {
			convertVCardMember(v, mode)
		}
		for k, child := range v {
			v[k] = convertNode(child, mode)
		}
		return v
	case []interface{}:
		for i, child := range v {
			v[i] = convertNode(child, mode)
		}
		return v
	default:
		return node
	}
}

type jsContactMode = string

// convertVCardMember rewrites a single entity's vcardArray/jsContact
// members in place according to mode ("also"|"only"); "none" is handled by
// the convertEntities early return and never reaches here.
func convertVCardMember(entity map[string]interface{}, mode jsContactMode) {
	raw, err := json.Marshal(entity["vcardArray"])
	if err != nil {
		return
	}

	// re-decode through the typed vcard/contact bridge to build the
	// JSContact representation; a structural walk has no access to the
	// response package's typed VCard, so it's rebuilt here from the raw
	// jCard array using the same unmarshaler.
	jsContact, ok := jsContactFromRawVCard(raw)
	if !ok {
		return
	}

	switch mode {
	case "also":
		entity["jscontact"] = jsContact
	case "only":
		entity["jscontact"] = jsContact
		delete(entity, "vcardArray")
	}
}
