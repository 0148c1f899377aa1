// Package rdapenv implements the environment-variable configuration
// table as typed accessor functions: each computes a default and allows
// an environment-variable override.
package rdapenv

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rdaptools/rdap/internal/response"
)

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvSeconds(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(secs) * time.Second
}

// Resolver/client overrides.
func Base() string              { return os.Getenv("RDAP_BASE") }
func BaseURL() string           { return os.Getenv("RDAP_BASE_URL") }
func Output() string            { return getenv("RDAP_OUTPUT", "markdown") }
func LogLevel() string          { return getenv("RDAP_LOG", "warn") }
func Paging() string            { return getenv("RDAP_PAGING", "auto") }
func NoCache() bool             { return getenvBool("RDAP_NO_CACHE", false) }
func MaxRetries() int           { return getenvInt("RDAP_MAX_RETRIES", 2) }
func MaxRetrySecs() time.Duration { return getenvSeconds("RDAP_MAX_RETRY_SECS", 60*time.Second) }
func DefRetrySecs() time.Duration { return getenvSeconds("RDAP_DEF_RETRY_SECS", 5*time.Second) }
func AllowHTTP() bool            { return getenvBool("RDAP_ALLOW_HTTP", false) }
func AllowInvalidHostnames() bool { return getenvBool("RDAP_ALLOW_INVALID_HOST_NAMES", false) }
func AllowInvalidCertificates() bool { return getenvBool("RDAP_ALLOW_INVALID_CERTIFICATES", false) }

// RedactionFlags parses RDAP_REDACTION_FLAGS, a comma-separated list of
// "highlight-simple|show-rfc9537|do-not-simplify-rfc9537|do-rfc9537-redactions",
// per §6 and §4.6.
func RedactionFlags() (highlightSimple, showRFC9537, doNotSimplify, doRedactions bool) {
	v := os.Getenv("RDAP_REDACTION_FLAGS")
	for _, flag := range strings.Split(v, ",") {
		switch strings.TrimSpace(flag) {
		case "highlight-simple":
			highlightSimple = true
		case "show-rfc9537":
			showRFC9537 = true
		case "do-not-simplify-rfc9537":
			doNotSimplify = true
		case "do-rfc9537-redactions":
			doRedactions = true
		}
	}
	return
}

// Server-side variables.
func SrvListenAddr() string { return getenv("RDAP_SRV_LISTEN_ADDR", "0.0.0.0") }
func SrvListenPort() string { return getenv("RDAP_SRV_LISTEN_PORT", "8080") }
func SrvDataDir() string    { return getenv("RDAP_SRV_DATA_DIR", "./data") }
func SrvLogLevel() string   { return getenv("RDAP_SRV_LOG", "info") }
func SrvBootstrap() bool    { return getenvBool("RDAP_SRV_BOOTSTRAP", false) }
func SrvUpdateOnBootstrap() bool { return getenvBool("RDAP_SRV_UPDATE_ON_BOOTSTRAP", false) }

// SrvJSContactConversion parses RDAP_SRV_JSCONTACT_CONVERSION, per §6.
func SrvJSContactConversion() response.ConversionMode {
	return response.ParseConversionMode(getenv("RDAP_SRV_JSCONTACT_CONVERSION", "none"))
}

func SrvDomainSearchByName() bool     { return getenvBool("RDAP_SRV_DOMAIN_SEARCH_BY_NAME", false) }
func SrvNameserverSearchByName() bool { return getenvBool("RDAP_SRV_NAMESERVER_SEARCH_BY_NAME", false) }
func SrvNameserverSearchByIP() bool   { return getenvBool("RDAP_SRV_NAMESERVER_SEARCH_BY_IP", false) }

// DefaultCacheDir computes os.UserHomeDir()/.cache/<appName>.
func DefaultCacheDir(appName string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return home + "/.cache/" + appName, nil
}
