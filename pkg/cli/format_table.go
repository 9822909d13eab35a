// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/util/humanizeutil"
	"github.com/olekukonko/tablewriter"
)

// printRows renders rows as a table. If every row has type rt, there is a
// column per column of rt; otherwise each row shows its type, its hkey and
// its values.
func printRows(w io.Writer, rows []*rowenc.Row, rt *rowenc.RowType) error {
	var cols []string
	if rt != nil {
		cols = rt.Names
	} else {
		cols = []string{"type", "hkey", "values"}
	}
	cells := make([][]string, len(rows))
	for i, row := range rows {
		vals, err := row.Datums()
		if err != nil {
			return err
		}
		if rt != nil {
			cells[i] = datumStrings(vals)
			continue
		}
		hkey, err := row.DecodedHKey()
		if err != nil {
			return err
		}
		cells[i] = []string{row.Type.String(), hkey.String(), strings.Join(datumStrings(vals), ", ")}
	}

	// Initialize tablewriter and set column names as the header row.
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(cols)
	table.AppendBulk(cells)
	table.Render()
	n := int64(len(rows))
	fmt.Fprintf(w, "(%s row%s)\n", humanizeutil.Count(n), pluralize(n))
	return nil
}

func datumStrings(vals tree.Datums) []string {
	res := make([]string, len(vals))
	for i, d := range vals {
		if s, ok := d.(*tree.DString); ok {
			res[i] = expandTabsAndNewLines(string(*s))
			continue
		}
		res[i] = expandTabsAndNewLines(d.String())
	}
	return res
}

func expandTabsAndNewLines(s string) string {
	return strings.NewReplacer("\t", "  ", "\n", "\\n").Replace(s)
}

func pluralize(n int64) string {
	if n == 1 {
		return ""
	}
	return "s"
}
