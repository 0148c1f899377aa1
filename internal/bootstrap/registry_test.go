package bootstrap

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdaptools/rdap/internal/query"
)

const dnsRegistryJSON = `{
	"version": "1.0",
	"publication": "2024-01-01T00:00:00Z",
	"description": "test dns registry",
	"services": [
		[["example"], ["https://rdap.example.com/"]],
		[["com", "net"], ["https://rdap.verisign.com/"]]
	]
}`

const ipv4RegistryJSON = `{
	"version": "1.0",
	"services": [
		[["192.0.2.0/24"], ["https://rdap.one.example/"]],
		[["192.0.0.0/8"], ["https://rdap.two.example/"]]
	]
}`

const asnRegistryJSON = `{
	"version": "1.0",
	"services": [
		[["100-200"], ["https://rdap.asn.example/"]]
	]
}`

const objectTagRegistryJSON = `{
	"version": "1.0",
	"services": [
		[["RIR"], ["https://rdap.rir.example/"]]
	]
}`

func TestParseRegistry_DNSLongestSuffixMatch(t *testing.T) {
	reg, err := ParseRegistry(KindDNS, []byte(dnsRegistryJSON))
	require.NoError(t, err)
	assert.Equal(t, "1.0", reg.Version)

	urls := reg.LookupDomain("foo.example.com")
	require.Equal(t, []string{"https://rdap.verisign.com/"}, urls)

	urls = reg.LookupDomain("example")
	require.Equal(t, []string{"https://rdap.example.com/"}, urls)

	assert.Nil(t, reg.LookupDomain("org"))
}

func TestParseRegistry_IPv4LongestPrefixMatch(t *testing.T) {
	reg, err := ParseRegistry(KindIPv4, []byte(ipv4RegistryJSON))
	require.NoError(t, err)

	urls := reg.LookupIP(netip.MustParseAddr("192.0.2.10"))
	assert.Equal(t, []string{"https://rdap.one.example/"}, urls)

	urls = reg.LookupIP(netip.MustParseAddr("192.1.2.3"))
	assert.Equal(t, []string{"https://rdap.two.example/"}, urls)

	assert.Nil(t, reg.LookupIP(netip.MustParseAddr("198.51.100.1")))
}

func TestParseRegistry_ASNRange(t *testing.T) {
	reg, err := ParseRegistry(KindASN, []byte(asnRegistryJSON))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://rdap.asn.example/"}, reg.LookupASN(150))
	assert.Nil(t, reg.LookupASN(250))
}

func TestParseRegistry_ObjectTag(t *testing.T) {
	reg, err := ParseRegistry(KindObjectTag, []byte(objectTagRegistryJSON))
	require.NoError(t, err)

	assert.Equal(t, []string{"https://rdap.rir.example/"}, reg.LookupObjectTag("rir"))
	assert.Nil(t, reg.LookupObjectTag("nope"))
}

func TestLookup_DispatchesByQueryKind(t *testing.T) {
	reg, err := ParseRegistry(KindDNS, []byte(dnsRegistryJSON))
	require.NoError(t, err)

	q := query.Query{Kind: query.KindDomain, ALabel: "foo.com"}
	assert.Equal(t, []string{"https://rdap.verisign.com/"}, Lookup(reg, q))
}

func TestLookup_EntityObjectTagSuffix(t *testing.T) {
	reg, err := ParseRegistry(KindObjectTag, []byte(objectTagRegistryJSON))
	require.NoError(t, err)

	q := query.Query{Kind: query.KindEntity, Handle: "ABC123-RIR"}
	assert.Equal(t, []string{"https://rdap.rir.example/"}, Lookup(reg, q))

	q2 := query.Query{Kind: query.KindEntity, Handle: "NOSUFFIX"}
	assert.Nil(t, Lookup(reg, q2))
}

func TestRegistryKindFor(t *testing.T) {
	k, ok := RegistryKindFor(query.Query{Kind: query.KindDomain})
	require.True(t, ok)
	assert.Equal(t, KindDNS, k)

	k, ok = RegistryKindFor(query.Query{Kind: query.KindAutNum})
	require.True(t, ok)
	assert.Equal(t, KindASN, k)

	k, ok = RegistryKindFor(query.Query{Kind: query.KindReverseDNS, CIDR: netip.MustParsePrefix("192.0.2.0/24")})
	require.True(t, ok)
	assert.Equal(t, KindIPv4, k)

	_, ok = RegistryKindFor(query.Query{Kind: query.KindURL})
	assert.False(t, ok)
}

func TestCompatibleVersion(t *testing.T) {
	assert.True(t, CompatibleVersion(""))
	assert.True(t, CompatibleVersion("1.0"))
	assert.True(t, CompatibleVersion("1.5"))
	assert.False(t, CompatibleVersion("2.0"))
	assert.True(t, CompatibleVersion("not-a-version"))
}
