package store

import (
	"regexp"
	"strings"
)

// globToRegexp translates the restricted glob syntax of §4.7 ("* = any
// sequence, ? = any one character") into an anchored, case-insensitive
// regexp.
func globToRegexp(pattern string) *regexp.Regexp {
	var sb strings.Builder
	sb.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")
	re, err := regexp.Compile(sb.String())
	if err != nil {
		// an unparseable pattern matches nothing rather than panicking.
		return regexp.MustCompile("$^")
	}
	return re
}
