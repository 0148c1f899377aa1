// Package colwriter renders tabular output: fixed-width, left/right
// aligned columns separated by a spacer, with an optional header row
// derived from each column's title.
package colwriter

import (
	"fmt"
	"io"
	"strings"
)

// Cfg controls how a Table lays out its columns: the separator placed
// between them and whether values are padded/truncated to Wid.
type Cfg struct {
	Spacer string
	Pad    bool
}

// ColCfg describes one column: its header title, a fixed width (0 means
// unconstrained), and whether its value is right- rather than
// left-aligned.
type ColCfg struct {
	Title string
	Wid   uint16
	Rt    bool
}

// RowWriter writes one already-formatted row to w.
type RowWriter func(w io.Writer, fields ...interface{}) (int, error)

// Table formats rows for a fixed set of columns under one Cfg. Unlike a
// bare RowWriter, it knows each column's title, so it can print its own
// header without the caller repeating the titles by hand.
type Table struct {
	cols []ColCfg
	row  RowWriter
}

// NewTable builds a Table for sCfg under wc's spacing/padding rules.
func (wc Cfg) NewTable(sCfg []ColCfg) Table {
	return Table{cols: sCfg, row: wc.newRowWriter(sCfg)}
}

// Header writes each column's Title as the first row.
func (t Table) Header(w io.Writer) (int, error) {
	titles := make([]interface{}, len(t.cols))
	for i, c := range t.cols {
		titles[i] = c.Title
	}
	return t.row(w, titles...)
}

// Row writes one data row using the same column format as Header.
func (t Table) Row(w io.Writer, fields ...interface{}) (int, error) {
	return t.row(w, fields...)
}

// NewWriterFuncs returns a bare RowWriter for sCfg, for callers that
// format their own header (or print none at all).
func (wc Cfg) NewWriterFuncs(sCfg []ColCfg) RowWriter {
	return wc.newRowWriter(sCfg)
}

func (wc Cfg) newRowWriter(sCfg []ColCfg) RowWriter {
	sParts := make([]string, len(sCfg))
	for i, cfg := range sCfg {
		if wc.Pad && (cfg.Wid > 0) {
			if cfg.Rt {
				sParts[i] = fmt.Sprintf("%%%d.%ds", cfg.Wid, cfg.Wid)
			} else {
				sParts[i] = fmt.Sprintf("%%-%d.%ds", cfg.Wid, cfg.Wid)
			}
		} else {
			sParts[i] = "%s"
		}
	}

	spcr := wc.Spacer
	if wc.Pad {
		spcr = " " + wc.Spacer + " "
	}
	szFmt := strings.Join(sParts, spcr) + "\n"

	return func(iWri io.Writer, sFields ...interface{}) (int, error) {
		return fmt.Fprintf(iWri, szFmt, sFields...)
	}
}
