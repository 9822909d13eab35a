// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package cliflags describes the command-line flags of groupsql.
package cliflags

import "strings"

// FlagInfo contains the static information for a CLI flag and helper
// to format the description.
type FlagInfo struct {
	// Name of the flag as used on the command line.
	Name string

	// Shorthand is the short form of the flag (optional).
	Shorthand string

	// EnvVar is the name of the environment variable through which the flag
	// can also be set (optional).
	EnvVar string

	// Description of the flag.
	Description string
}

// Usage returns the description, with the environment variable appended if
// there is one.
func (f FlagInfo) Usage() string {
	s := strings.TrimSpace(f.Description)
	if f.EnvVar != "" {
		s += "\nEnvironment variable: " + f.EnvVar
	}
	return s
}

// Flags shared by every command.
var (
	Config = FlagInfo{
		Name:        "config",
		EnvVar:      "GROUPSQL_CONFIG",
		Description: `YAML file with settings. Flags override the settings of the file.`,
	}

	StoreDir = FlagInfo{
		Name:        "store-dir",
		Shorthand:   "s",
		EnvVar:      "GROUPSQL_STORE_DIR",
		Description: `Directory of a persistent store. The store is kept in memory if unset.`,
	}

	InMemory = FlagInfo{
		Name:        "in-memory",
		Description: `Keep the store in memory even if a directory is set.`,
	}

	Engine = FlagInfo{
		Name:        "engine",
		EnvVar:      "GROUPSQL_ENGINE",
		Description: `Storage engine: pebble or btree. The btree engine is memory-only.`,
	}

	CacheSize = FlagInfo{
		Name: "cache-size",
		Description: `
Size of the pebble block cache, in bytes or with a unit suffix
such as 64MiB or 1GB.`,
	}

	Verbosity = FlagInfo{
		Name:        "verbosity",
		Shorthand:   "v",
		Description: `Log trace events up to this level.`,
	}

	StmtTimeout = FlagInfo{
		Name:        "statement-timeout",
		Description: `Cancel statements that run longer than this duration. Zero disables the timeout.`,
	}

	User = FlagInfo{
		Name:        "user",
		Shorthand:   "u",
		EnvVar:      "GROUPSQL_USER",
		Description: `User the session runs as.`,
	}
)

// Command flags.
var (
	Schema = FlagInfo{
		Name:        "schema",
		Description: `YAML file declaring the tables.`,
	}

	Data = FlagInfo{
		Name: "data",
		Description: `
YAML file with the rows to load: a list of entries with a table
name and a list of rows, each row a list of column values.`,
	}

	Group = FlagInfo{
		Name:        "group",
		Shorthand:   "g",
		Description: `Name of the root table of the group to read.`,
	}

	Table = FlagInfo{
		Name:        "table",
		Description: `Only output the rows of this table.`,
	}

	Limit = FlagInfo{
		Name:        "limit",
		Description: `Output at most this many rows. Zero means no limit.`,
	}

	Format = FlagInfo{
		Name:        "format",
		Description: `Explain output format: text, json or dot.`,
	}
)
