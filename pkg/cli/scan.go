// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/exec"
	"github.com/cockroachdb/groupsql/pkg/sql/exec/explain"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan --schema <file> --group <root>",
	Short: "output the rows of a table group",
	Long: `
Outputs the rows of a table group in hkey order: every row is followed by
the rows of its child tables.
`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var explainCmd = &cobra.Command{
	Use:   "explain --schema <file> --group <root> [--format text|json|dot]",
	Short: "show the plan of a group scan",
	Long: `
Shows the operator tree that the scan command with the same flags runs.
`,
	Args: cobra.NoArgs,
	RunE: runExplain,
}

// groupPlan is a scan of a group, optionally restricted to one table and a
// number of rows.
type groupPlan struct {
	op exec.RowOperator
	// rowType is the type of every output row, or nil if rows of several
	// tables are produced.
	rowType *rowenc.RowType
}

func buildGroupPlan(s *catalog.Schema, group, table string, limit int) (groupPlan, error) {
	if group == "" {
		return groupPlan{}, errors.New("no group given: use --group")
	}
	g, err := s.GroupByName(group)
	if err != nil {
		return groupPlan{}, err
	}
	p := groupPlan{op: exec.NewGroupScan(g)}
	if table != "" {
		t, err := s.TableByName(table)
		if err != nil {
			return groupPlan{}, err
		}
		if t.RootID != g.ID() {
			return groupPlan{}, errors.Newf("table %q is not in group %q", table, group)
		}
		p.rowType = rowenc.NewTableRowType(t)
		p.op = exec.NewFilter(p.op, p.rowType)
	} else if len(g.Tables()) == 1 {
		p.rowType = rowenc.NewTableRowType(g.Root())
	}
	if limit > 0 {
		l, err := exec.NewLimit(p.op, limit)
		if err != nil {
			return groupPlan{}, err
		}
		p.op = l
	}
	return p, nil
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()
	p, err := buildGroupPlan(e.schema(), cliCtx.group, cliCtx.table, cliCtx.limit)
	if err != nil {
		return err
	}
	rows, err := e.collect(ctx, p.op)
	if err != nil {
		return err
	}
	return printRows(cmd.OutOrStdout(), rows, p.rowType)
}

func runExplain(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()
	p, err := buildGroupPlan(e.schema(), cliCtx.group, cliCtx.table, cliCtx.limit)
	if err != nil {
		return err
	}
	ob := explain.Explain(p.op)
	w := cmd.OutOrStdout()
	switch cliCtx.format {
	case "text":
		fmt.Fprint(w, ob.BuildString())
	case "json":
		js, err := ob.BuildJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(js))
	case "dot":
		fmt.Fprint(w, ob.BuildDOT())
	default:
		return errors.Newf("unknown explain format %q: use text, json or dot", cliCtx.format)
	}
	return nil
}
