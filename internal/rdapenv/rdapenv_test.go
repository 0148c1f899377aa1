package rdapenv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rdaptools/rdap/internal/response"
)

func TestOutput_DefaultsWhenUnset(t *testing.T) {
	assert.Equal(t, "markdown", Output())
}

func TestOutput_HonorsEnv(t *testing.T) {
	t.Setenv("RDAP_OUTPUT", "json")
	assert.Equal(t, "json", Output())
}

func TestNoCache_ParsesBool(t *testing.T) {
	assert.False(t, NoCache())
	t.Setenv("RDAP_NO_CACHE", "true")
	assert.True(t, NoCache())
	t.Setenv("RDAP_NO_CACHE", "not-a-bool")
	assert.False(t, NoCache(), "an unparseable value falls back to the default")
}

func TestMaxRetries_ParsesInt(t *testing.T) {
	assert.Equal(t, 2, MaxRetries())
	t.Setenv("RDAP_MAX_RETRIES", "5")
	assert.Equal(t, 5, MaxRetries())
	t.Setenv("RDAP_MAX_RETRIES", "garbage")
	assert.Equal(t, 2, MaxRetries())
}

func TestMaxRetrySecs_ParsesSeconds(t *testing.T) {
	assert.Equal(t, 60*time.Second, MaxRetrySecs())
	t.Setenv("RDAP_MAX_RETRY_SECS", "30")
	assert.Equal(t, 30*time.Second, MaxRetrySecs())
}

func TestRedactionFlags_ParsesCommaList(t *testing.T) {
	highlight, show, doNotSimplify, doRedactions := RedactionFlags()
	assert.False(t, highlight)
	assert.False(t, show)
	assert.False(t, doNotSimplify)
	assert.False(t, doRedactions)

	t.Setenv("RDAP_REDACTION_FLAGS", "highlight-simple, do-rfc9537-redactions")
	highlight, show, doNotSimplify, doRedactions = RedactionFlags()
	assert.True(t, highlight)
	assert.False(t, show)
	assert.False(t, doNotSimplify)
	assert.True(t, doRedactions)
}

func TestSrvJSContactConversion_DefaultsToNone(t *testing.T) {
	assert.Equal(t, response.ConversionNone, SrvJSContactConversion())
	t.Setenv("RDAP_SRV_JSCONTACT_CONVERSION", "only")
	assert.Equal(t, response.ConversionOnly, SrvJSContactConversion())
}

func TestBase_AndBaseURL_EmptyWhenUnset(t *testing.T) {
	assert.Equal(t, "", Base())
	assert.Equal(t, "", BaseURL())
	t.Setenv("RDAP_BASE", "TAG1")
	t.Setenv("RDAP_BASE_URL", "https://rdap.example/")
	assert.Equal(t, "TAG1", Base())
	assert.Equal(t, "https://rdap.example/", BaseURL())
}

func TestSrvListenAddrAndPort_Defaults(t *testing.T) {
	assert.Equal(t, "0.0.0.0", SrvListenAddr())
	assert.Equal(t, "8080", SrvListenPort())
}

func TestDefaultCacheDir(t *testing.T) {
	dir, err := DefaultCacheDir("rdap")
	require.NoError(t, err)
	assert.Contains(t, dir, "/.cache/rdap")
}
