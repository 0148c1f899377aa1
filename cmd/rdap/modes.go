package main

import (
	"io"
	"os"
	"strconv"
	"strings"
)

// Modes holds the CLI's display/behavior switches (Color, Pretty) plus
// the query-pipeline options the lookup tool needs.
type Modes struct {
	Color  bool
	Pretty bool

	Hint            string
	LinkTargets     string
	ToJSContact     string
	ErrorOnChecks   bool
	ShowChecks      bool
	JSON            bool
}

// AnsiMsg writes a title/message pair to iWri, wrapping title in an ANSI
// color escape when m.Color is set. Copied near-verbatim from the
// teacher's nicsearch.go, since the CLI's error/status reporting follows
// exactly the same shape.
func (m *Modes) AnsiMsg(iWri io.Writer, title, msg string, sCsi []uint8) (int, error) {
	if m.Color && len(sCsi) > 0 {
		sCodes := make([]string, len(sCsi))
		for ix := range sCsi {
			sCodes[ix] = strconv.Itoa(int(sCsi[ix]))
		}
		title = "\x1b[" + strings.Join(sCodes, ";") + "m" + title + "\x1b[0m"
	}
	if len(msg) > 0 {
		return iWri.Write([]byte(title + ": " + msg + "\n"))
	}
	return iWri.Write([]byte(title + "\n"))
}

func (m *Modes) printErr(err error) {
	if err != nil {
		m.AnsiMsg(os.Stderr, "error", err.Error(), []uint8{1, 91})
	}
}

func (m *Modes) printWarn(msg string) {
	m.AnsiMsg(os.Stderr, "warning", msg, []uint8{1, 93})
}
