// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"context"
	"strings"

	"github.com/cockroachdb/groupsql/pkg/sql/vtable"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog <view>",
	Short: "output a catalog view",
	Long: `
Outputs one of the built-in catalog views: tables, columns, indexes or
groups. With --schema, the tables of the schema file are listed along
with the views themselves.
`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalog,
}

func runCatalog(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()
	name := args[0]
	if !strings.Contains(name, ".") {
		name = vtable.CatalogSchemaName + "." + name
	}
	p, err := buildGroupPlan(e.schema(), name, "" /* table */, cliCtx.limit)
	if err != nil {
		return err
	}
	rows, err := e.collect(ctx, p.op)
	if err != nil {
		return err
	}
	return printRows(cmd.OutOrStdout(), rows, p.rowType)
}
