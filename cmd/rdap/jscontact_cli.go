package main

import (
	"encoding/json"

	"github.com/rdaptools/rdap/internal/response"
)

// applyJSContact performs the §9-resolved "across all entities in the
// CLI's top-level response" JSContact conversion: re-marshal obj, walk
// every nested entity's vcardArray, and append/replace it with the
// converted jscontact member before the CLI prints the result. This
// mirrors internal/rdapsrv's per-entity conversion but operates over the
// single top-level object a client query produces rather than a stored
// template body.
func applyJSContact(obj response.Object, mode response.ConversionMode) (response.Object, error) {
	if mode == response.ConversionNone {
		return obj, nil
	}

	bs, err := response.Serialize(obj)
	if err != nil {
		return obj, err
	}

	var node interface{}
	if err := json.Unmarshal(bs, &node); err != nil {
		return obj, err
	}
	node = walkEntitiesCLI(node, mode)

	out, err := json.Marshal(node)
	if err != nil {
		return obj, err
	}
	return response.Parse(out)
}

func walkEntitiesCLI(node interface{}, mode response.ConversionMode) interface{} {
	switch v := node.(type) {
	case map[string]interface{}:
		if _, ok := v["vcardArray"]; ok && v["objectClassName"] == "entity" {
			convertEntityVCard(v, mode)
		}
		for k, child := range v {
			v[k] = walkEntitiesCLI(child, mode)
		}
		return v
	case []interface{}:
		for i, child := range v {
			v[i] = walkEntitiesCLI(child, mode)
		}
		return v
	default:
		return node
	}
}

func convertEntityVCard(entity map[string]interface{}, mode response.ConversionMode) {
	raw, err := json.Marshal(entity["vcardArray"])
	if err != nil {
		return
	}
	var vc response.VCard
	if err := json.Unmarshal(raw, &vc); err != nil {
		return
	}
	contact := response.FromVCard(vc)
	js := contact.ToJSContact()

	switch mode {
	case response.ConversionAlso:
		entity["jscontact"] = js
	case response.ConversionOnly:
		entity["jscontact"] = js
		delete(entity, "vcardArray")
	}
}
