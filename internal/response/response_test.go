package response

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSerializeRoundTrip_Domain(t *testing.T) {
	body := []byte(`{
		"objectClassName": "domain",
		"rdapConformance": ["rdap_level_0"],
		"handle": "EXAMPLE",
		"ldhName": "example.com",
		"links": [{"value": "https://example/", "rel": "self", "href": "https://example/domain/example.com", "type": "application/rdap+json"}],
		"entities": [{
			"objectClassName": "entity",
			"handle": "REG-1",
			"roles": ["registrant"]
		}]
	}`)

	obj, err := Parse(body)
	require.NoError(t, err)
	require.Equal(t, ClassDomain, obj.Class())

	domain, ok := obj.(Domain)
	require.True(t, ok)
	assert.Equal(t, "example.com", domain.LdhName)
	assert.Equal(t, "EXAMPLE", domain.Handle)
	assert.Len(t, domain.Entities, 1)
	assert.Equal(t, "REG-1", domain.Entities[0].Handle)

	out, err := Serialize(obj)
	require.NoError(t, err)

	reparsed, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, obj, reparsed)
}

func TestParseSerializeRoundTrip_PreservesExtensionMembers(t *testing.T) {
	body := []byte(`{
		"objectClassName": "domain",
		"ldhName": "example.com",
		"arin_originas0_originautnums": [15169],
		"entities": [{
			"objectClassName": "entity",
			"handle": "REG-1",
			"roles": ["registrant"],
			"vendorExt:score": 42
		}]
	}`)

	obj, err := Parse(body)
	require.NoError(t, err)

	domain, ok := obj.(Domain)
	require.True(t, ok)
	require.Contains(t, domain.Extensions, "arin_originas0_originautnums")
	require.Len(t, domain.Entities, 1)
	require.Contains(t, domain.Entities[0].Extensions, "vendorExt:score")

	out, err := Serialize(obj)
	require.NoError(t, err)

	var node map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &node))
	assert.JSONEq(t, `[15169]`, string(node["arin_originas0_originautnums"]))

	var entities []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(node["entities"], &entities))
	require.Len(t, entities, 1)
	assert.JSONEq(t, `42`, string(entities[0]["vendorExt:score"]))

	reparsed, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, obj, reparsed)
}

func TestSerialize_NoExtensionsPreservesFieldDeclarationOrder(t *testing.T) {
	body := []byte(`{"objectClassName": "domain", "handle": "EXAMPLE", "ldhName": "example.com"}`)
	obj, err := Parse(body)
	require.NoError(t, err)

	out, err := Serialize(obj)
	require.NoError(t, err)

	direct, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Equal(t, string(direct), string(out))
}

func TestParse_ErrorResponse(t *testing.T) {
	body := []byte(`{"errorCode": 404, "title": "Not Found", "description": ["no such domain"]}`)
	obj, err := Parse(body)
	require.NoError(t, err)
	errResp, ok := obj.(ErrorResponse)
	require.True(t, ok)
	assert.Equal(t, 404, errResp.ErrorCode)
}

func TestParse_SearchResults(t *testing.T) {
	body := []byte(`{"domainSearchResults": [{"objectClassName": "domain", "ldhName": "a.com"}]}`)
	obj, err := Parse(body)
	require.NoError(t, err)
	sr, ok := obj.(SearchResults)
	require.True(t, ok)
	require.Len(t, sr.DomainSearchResults, 1)
	assert.Equal(t, "a.com", sr.DomainSearchResults[0].LdhName)
}

func TestParse_UnknownObjectClass(t *testing.T) {
	_, err := Parse([]byte(`{"objectClassName": "bogus"}`))
	assert.ErrorIs(t, err, ErrUnknownObjectClass)
}

func TestParse_NotJSON(t *testing.T) {
	_, err := Parse([]byte(`not json`))
	assert.ErrorIs(t, err, ErrNotJSON)
}

// TestContactVCardRoundTrip exercises §8's "Contact round-trip" invariant:
// from_vcard(to_vcard(c)) == c for a Contact with no extras.
func TestContactVCardRoundTrip(t *testing.T) {
	c := Contact{
		FullName:     "Jane Doe",
		Kind:         "individual",
		Organization: "Example Org",
		Titles:       []string{"Engineer"},
		Addresses: []Address{
			{Street: "123 Main St", Locality: "Springfield", Region: "IL", Code: "62704", Country: "US"},
		},
		Phones: []Phone{
			{Value: "tel:+1-555-0100", Preference: 1, Types: []string{"voice"}},
		},
		Emails: []Email{
			{Value: "jane@example.com", Preference: 1},
		},
		URLs:      []string{"https://example.com/jane"},
		Languages: []Language{{Value: "en", Preference: 1}},
	}

	vc := ToVCard(c)
	back := FromVCard(vc)

	assert.Equal(t, c, back)
}

func TestVCardJSONRoundTrip(t *testing.T) {
	raw := []byte(`["vcard",[
		["version",{},"text","4.0"],
		["fn",{},"text","Joe User"],
		["email",{"pref":"1"},"text","joe@example.com"]
	]]`)

	var vc VCard
	require.NoError(t, vc.UnmarshalJSON(raw))
	require.Len(t, vc, 3)
	assert.Equal(t, "fn", vc[1].Name)
	assert.Equal(t, "Joe User", vc[1].Values[0])

	out, err := vc.MarshalJSON()
	require.NoError(t, err)

	var vc2 VCard
	require.NoError(t, vc2.UnmarshalJSON(out))
	assert.Equal(t, vc, vc2)
}

func TestToJSContactFromVCard(t *testing.T) {
	vc := VCard{
		{Name: "version", Params: map[string][]string{}, Values: []interface{}{"4.0"}},
		{Name: "fn", Params: map[string][]string{}, Values: []interface{}{"Joe User"}},
	}
	contact := FromVCard(vc)
	js := contact.ToJSContact()
	assert.Equal(t, "Joe User", js.FullName)

	back := FromJSContact(js)
	assert.Equal(t, "Joe User", back.FullName)
}
