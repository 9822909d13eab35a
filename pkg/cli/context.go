// Copyright 2016 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"github.com/cockroachdb/groupsql/pkg/base"
	"github.com/cockroachdb/groupsql/pkg/cli/cliflags"
	"github.com/spf13/pflag"
)

// cliContext holds the parameters of the commands. Flags write into it
// directly.
type cliContext struct {
	config     base.Config
	configFile string

	schemaFile string
	dataFile   string
	group      string
	table      string
	limit      int
	format     string
}

var cliCtx cliContext

// initCLIDefaults sets the parameters to their defaults. Tests call it to
// reset the state left by a previous command.
func initCLIDefaults() {
	cliCtx = cliContext{
		config: base.MakeDefaultConfig(),
		format: "text",
	}
}

// resolveConfig loads the config file, if any, and applies the settings
// given on the command line on top of it.
func resolveConfig(flags *pflag.FlagSet) error {
	if cliCtx.configFile == "" {
		return cliCtx.config.Validate()
	}
	cfg := base.MakeDefaultConfig()
	if err := cfg.LoadConfigFile(cliCtx.configFile); err != nil {
		return err
	}
	fromFlags := cliCtx.config
	changed := func(fi cliflags.FlagInfo) bool {
		f := flags.Lookup(fi.Name)
		return f != nil && f.Changed
	}
	if changed(cliflags.StoreDir) {
		cfg.StoreDir = fromFlags.StoreDir
	}
	if changed(cliflags.InMemory) {
		cfg.InMemory = fromFlags.InMemory
	}
	if changed(cliflags.Engine) {
		cfg.Engine = fromFlags.Engine
	}
	if changed(cliflags.CacheSize) {
		cfg.CacheSize = fromFlags.CacheSize
	}
	if changed(cliflags.Verbosity) {
		cfg.Verbosity = fromFlags.Verbosity
	}
	if changed(cliflags.StmtTimeout) {
		cfg.StmtTimeout = fromFlags.StmtTimeout
	}
	if changed(cliflags.User) {
		cfg.User = fromFlags.User
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cliCtx.config = cfg
	return nil
}
