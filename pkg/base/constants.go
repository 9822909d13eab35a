// Copyright 2016 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package base

import "time"

const (
	// DefaultCacheSize is the default size of the pebble block cache.
	DefaultCacheSize = 128 << 20

	// DefaultEngine is the engine used when none is configured.
	DefaultEngine = "pebble"

	// DefaultStmtTimeout is the statement timeout of CLI sessions. Zero
	// disables the timeout.
	DefaultStmtTimeout time.Duration = 0

	// DefaultUser is the user CLI sessions run as.
	DefaultUser = "root"

	// ApplicationName is the application name of CLI sessions.
	ApplicationName = "groupsql"
)
