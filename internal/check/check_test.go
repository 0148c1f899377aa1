package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdaptools/rdap/internal/response"
)

func u32(n uint32) *uint32 { return &n }

func TestCheck_LdhNameNonASCII(t *testing.T) {
	d := response.Domain{
		Common:      response.Common{ObjectClassName: "domain", Conformance: []string{"rdap_level_0"}},
		LdhName:     "xn--mnchen-3ya.de",
		UnicodeName: "münchen.de",
	}
	// overwrite with a deliberately non-ASCII ldhName to trigger the rule.
	d.LdhName = "münchen.de"
	d.UnicodeName = ""

	tree := Check(d, Context{})
	findings := tree.All()

	errs := FilterByClass(findings, StandardsError)
	require.Len(t, errs, 1)
	assert.Equal(t, uint16(3001), errs[0].Code)

	warns := FilterByClass(findings, StandardsWarning)
	require.Len(t, warns, 1)
	assert.Equal(t, uint16(3002), warns[0].Code)
}

func TestCheck_VCardFnMissing(t *testing.T) {
	e := response.Entity{
		Common: response.Common{ObjectClassName: "entity", Handle: "REG-1"},
		VCard: response.VCard{
			{Name: "version", Params: map[string][]string{}, Values: []interface{}{"4.0"}},
		},
	}

	tree := Check(e, Context{})
	findings := FilterByClass(tree.All(), StandardsError)

	var foundFnMissing bool
	for _, f := range findings {
		if f.Code == 3003 {
			foundFnMissing = true
			assert.Equal(t, "$.vcardArray", f.Path)
		}
	}
	assert.True(t, foundFnMissing, "expected JCARD_FN_MISSING finding")
}

func TestCheck_AutnumRangeInverted(t *testing.T) {
	a := response.Autnum{
		Common:      response.Common{ObjectClassName: "autnum", Conformance: []string{"rdap_level_0"}},
		StartAutnum: u32(200),
		EndAutnum:   u32(100),
	}
	tree := Check(a, Context{})
	errs := FilterByClass(tree.All(), StandardsError)
	require.Len(t, errs, 1)
	assert.Equal(t, uint16(3006), errs[0].Code)
}

func TestCheck_IPNetworkRangeInverted(t *testing.T) {
	ip := response.IPNetwork{
		Common:       response.Common{ObjectClassName: "ip network"},
		StartAddress: "192.0.2.255",
		EndAddress:   "192.0.2.0",
	}
	tree := Check(ip, Context{})
	errs := FilterByClass(tree.All(), StandardsError)

	var found bool
	for _, f := range errs {
		if f.Code == 3007 {
			found = true
		}
	}
	assert.True(t, found, "expected endAddress < startAddress finding")
}

func TestCheck_ErrorCodeAbsent(t *testing.T) {
	e := response.ErrorResponse{Common: response.Common{ObjectClassName: "error", Conformance: []string{"rdap_level_0"}}}
	tree := Check(e, Context{})
	errs := FilterByClass(tree.All(), StandardsError)
	require.Len(t, errs, 1)
	assert.Equal(t, uint16(5001), errs[0].Code)
}

func TestCheck_Purity(t *testing.T) {
	d := response.Domain{
		Common:  response.Common{ObjectClassName: "domain"},
		LdhName: "café.fr",
	}
	t1 := Check(d, Context{})
	t2 := Check(d, Context{})
	assert.Equal(t, t1.All(), t2.All())
}

func TestCheck_NestedEntities(t *testing.T) {
	d := response.Domain{
		Common: response.Common{
			ObjectClassName: "domain",
			Entities: []response.Entity{
				{
					Common: response.Common{ObjectClassName: "entity", Handle: "REG-1"},
					VCard:  response.VCard{},
				},
			},
		},
		LdhName: "example.com",
	}
	tree := Check(d, Context{})
	require.NotEmpty(t, tree.Children)
}

func TestIsSimplifiable(t *testing.T) {
	assert.True(t, IsSimplifiable(response.RedactedDirective{
		PathLang: "jsonpath",
		PrePath:  "$.entities[0].vcardArray[1][2]",
	}))
	assert.False(t, IsSimplifiable(response.RedactedDirective{
		PathLang: "jsonpath",
		PrePath:  "$.entities[*].vcardArray",
	}))
	assert.False(t, IsSimplifiable(response.RedactedDirective{
		PathLang: "other",
		PrePath:  "$.foo",
	}))
}
