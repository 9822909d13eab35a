// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package cli implements the groupsql command-line tool.
package cli

import (
	"fmt"
	"os"

	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgerror"
	"github.com/spf13/cobra"
)

var groupsqlCmd = &cobra.Command{
	Use:   "groupsql [command] (flags)",
	Short: "groupsql command-line interface",
	Long: `
Load, scan and explain table groups stored in a transactional
key-value store.
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return resolveConfig(cmd.Flags())
	},
}

func init() {
	cobra.EnableCommandSorting = false

	groupsqlCmd.AddCommand(
		loadCmd,
		scanCmd,
		explainCmd,
		catalogCmd,
	)
}

// Main is the entry point of the groupsql binary.
func Main() {
	if err := Run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, formatError(err))
		os.Exit(1)
	}
}

// Run executes the command line args.
func Run(args []string) error {
	groupsqlCmd.SetArgs(args)
	return groupsqlCmd.Execute()
}

// formatError renders err with its SQLSTATE, if it has one.
func formatError(err error) string {
	code := pgerror.GetPGCode(err)
	if code == pgcode.Uncategorized {
		return fmt.Sprintf("ERROR: %v", err)
	}
	return fmt.Sprintf("ERROR: %v\nSQLSTATE: %s", err, code)
}
