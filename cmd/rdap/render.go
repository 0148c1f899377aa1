package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/rdaptools/rdap/colwriter"
	"github.com/rdaptools/rdap/internal/check"
	"github.com/rdaptools/rdap/internal/response"
)

var findingCols = []colwriter.ColCfg{
	{Title: "CLASS", Wid: 22},
	{Title: "CODE", Wid: 6, Rt: true},
	{Title: "PATH", Wid: 30},
	{Title: "MESSAGE"},
}

// printObject serializes obj as RDAP JSON. compact prints the wire-exact
// RDAP JSON (--json); otherwise output is indented for a human reader.
func printObject(w io.Writer, obj response.Object, compact bool) error {
	bs, err := response.Serialize(obj)
	if err != nil {
		return err
	}
	if compact {
		_, err = fmt.Fprintln(w, string(bs))
		return err
	}

	var buf interface{}
	if err := json.Unmarshal(bs, &buf); err != nil {
		return err
	}
	pretty, err := json.MarshalIndent(buf, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(pretty))
	return err
}

// printFindings renders a check.Tree as a colwriter table: one row per
// finding, worst class first.
func printFindings(w io.Writer, tree *check.Tree, pretty bool) error {
	findings := tree.All()
	if len(findings) == 0 {
		return nil
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Class > findings[j].Class
	})

	cfg := colwriter.Cfg{Spacer: "|", Pad: pretty}
	table := cfg.NewTable(findingCols)

	if _, err := table.Header(w); err != nil {
		return err
	}
	for _, f := range findings {
		if _, err := table.Row(w, f.Class.String(), fmt.Sprintf("%d", f.Code), f.Path, f.Message); err != nil {
			return err
		}
	}
	return nil
}

// worstClass returns the most severe check.Class present in findings, or
// -1 if findings is empty, used to pick an --error-on-checks exit code.
func worstClass(findings []check.Finding) check.Class {
	worst := check.Class(-1)
	for _, f := range findings {
		if f.Class > worst {
			worst = f.Class
		}
	}
	return worst
}
