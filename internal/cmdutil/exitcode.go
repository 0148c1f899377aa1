// Package cmdutil holds the CLI exit-code table shared between the rdap
// client binary and its tests.
package cmdutil

// ExitCode enumerates the CLI exit codes: 0 success; 1-3 test outcomes;
// 40 I/O; 42-43 client errors; 60-72 transport/bootstrap errors; 100-105
// RDAP-specific errors; 200-204 user errors; 250 internal invariant
// violation.
type ExitCode int

const (
	ExitSuccess ExitCode = 0

	// Check-engine outcomes, only produced with --error-on-checks.
	ExitChecksClean           ExitCode = 1
	ExitChecksWarning         ExitCode = 2
	ExitChecksError           ExitCode = 3

	ExitIO ExitCode = 40

	ExitBadQuery    ExitCode = 42
	ExitClassifyErr ExitCode = 43

	ExitTransportTimeout  ExitCode = 60
	ExitTransportConnect  ExitCode = 61
	ExitTransportTLS      ExitCode = 62
	ExitTransportBadStatus ExitCode = 63
	ExitWrongMediaType    ExitCode = 64
	ExitRetryExhausted    ExitCode = 65
	ExitBootstrapUnavailable ExitCode = 70
	ExitNoBase            ExitCode = 71
	ExitTooManyRedirects  ExitCode = 72

	ExitRDAPNotFound    ExitCode = 100
	ExitRDAPBadRequest  ExitCode = 101
	ExitRDAPParseError  ExitCode = 102
	ExitRDAPUnknownClass ExitCode = 103
	ExitRDAPErrorResponse ExitCode = 104
	ExitRDAPRedirectLoop ExitCode = 105

	ExitUserBadFlag    ExitCode = 200
	ExitUserBadHint    ExitCode = 201
	ExitUserBadPreset  ExitCode = 202
	ExitUserBadEnv     ExitCode = 203
	ExitUserAborted    ExitCode = 204

	ExitInternal ExitCode = 250
)
