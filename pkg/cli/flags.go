// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"os"
	"time"

	"github.com/cockroachdb/groupsql/pkg/cli/cliflags"
	"github.com/cockroachdb/groupsql/pkg/util/humanizeutil"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func setFlagFromEnv(f *pflag.FlagSet, flagInfo cliflags.FlagInfo) {
	if flagInfo.EnvVar != "" {
		if value, set := os.LookupEnv(flagInfo.EnvVar); set {
			if err := f.Set(flagInfo.Name, value); err != nil {
				panic(err)
			}
		}
	}
}

// StringFlag creates a string flag and registers it with the FlagSet.
func StringFlag(f *pflag.FlagSet, valPtr *string, flagInfo cliflags.FlagInfo, defaultVal string) {
	f.StringVarP(valPtr, flagInfo.Name, flagInfo.Shorthand, defaultVal, flagInfo.Usage())

	setFlagFromEnv(f, flagInfo)
}

// IntFlag creates an int flag and registers it with the FlagSet.
func IntFlag(f *pflag.FlagSet, valPtr *int, flagInfo cliflags.FlagInfo, defaultVal int) {
	f.IntVarP(valPtr, flagInfo.Name, flagInfo.Shorthand, defaultVal, flagInfo.Usage())

	setFlagFromEnv(f, flagInfo)
}

// Int32Flag creates an int32 flag and registers it with the FlagSet.
func Int32Flag(f *pflag.FlagSet, valPtr *int32, flagInfo cliflags.FlagInfo, defaultVal int32) {
	f.Int32VarP(valPtr, flagInfo.Name, flagInfo.Shorthand, defaultVal, flagInfo.Usage())

	setFlagFromEnv(f, flagInfo)
}

// BoolFlag creates a bool flag and registers it with the FlagSet.
func BoolFlag(f *pflag.FlagSet, valPtr *bool, flagInfo cliflags.FlagInfo, defaultVal bool) {
	f.BoolVarP(valPtr, flagInfo.Name, flagInfo.Shorthand, defaultVal, flagInfo.Usage())

	setFlagFromEnv(f, flagInfo)
}

// DurationFlag creates a duration flag and registers it with the FlagSet.
func DurationFlag(
	f *pflag.FlagSet, valPtr *time.Duration, flagInfo cliflags.FlagInfo, defaultVal time.Duration,
) {
	f.DurationVarP(valPtr, flagInfo.Name, flagInfo.Shorthand, defaultVal, flagInfo.Usage())

	setFlagFromEnv(f, flagInfo)
}

// VarFlag creates a custom-variable flag and registers it with the FlagSet.
func VarFlag(f *pflag.FlagSet, value pflag.Value, flagInfo cliflags.FlagInfo) {
	f.VarP(value, flagInfo.Name, flagInfo.Shorthand, flagInfo.Usage())

	setFlagFromEnv(f, flagInfo)
}

func init() {
	initCLIDefaults()

	// Every command accepts the store and session settings.
	{
		f := groupsqlCmd.PersistentFlags()
		cfg := &cliCtx.config

		StringFlag(f, &cliCtx.configFile, cliflags.Config, cliCtx.configFile)
		StringFlag(f, &cfg.StoreDir, cliflags.StoreDir, cfg.StoreDir)
		BoolFlag(f, &cfg.InMemory, cliflags.InMemory, cfg.InMemory)
		StringFlag(f, &cfg.Engine, cliflags.Engine, cfg.Engine)
		VarFlag(f, humanizeutil.NewBytesValue(&cfg.CacheSize), cliflags.CacheSize)
		Int32Flag(f, &cfg.Verbosity, cliflags.Verbosity, cfg.Verbosity)
		DurationFlag(f, &cfg.StmtTimeout, cliflags.StmtTimeout, cfg.StmtTimeout)
		StringFlag(f, &cfg.User, cliflags.User, cfg.User)
	}

	// Commands that declare the schema.
	for _, cmd := range []*cobra.Command{loadCmd, scanCmd, explainCmd, catalogCmd} {
		StringFlag(cmd.Flags(), &cliCtx.schemaFile, cliflags.Schema, cliCtx.schemaFile)
	}

	StringFlag(loadCmd.Flags(), &cliCtx.dataFile, cliflags.Data, cliCtx.dataFile)

	// Commands that read a group.
	for _, cmd := range []*cobra.Command{scanCmd, explainCmd} {
		f := cmd.Flags()
		StringFlag(f, &cliCtx.group, cliflags.Group, cliCtx.group)
		StringFlag(f, &cliCtx.table, cliflags.Table, cliCtx.table)
		IntFlag(f, &cliCtx.limit, cliflags.Limit, cliCtx.limit)
	}
	IntFlag(catalogCmd.Flags(), &cliCtx.limit, cliflags.Limit, cliCtx.limit)

	StringFlag(explainCmd.Flags(), &cliCtx.format, cliflags.Format, cliCtx.format)
}
