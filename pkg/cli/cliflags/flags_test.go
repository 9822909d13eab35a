// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cliflags_test

import (
	"testing"

	"github.com/cockroachdb/groupsql/pkg/cli/cliflags"
	"github.com/stretchr/testify/require"
)

func TestUsage(t *testing.T) {
	require.Equal(t, "Output at most this many rows. Zero means no limit.", cliflags.Limit.Usage())
	require.Equal(t,
		"YAML file with settings. Flags override the settings of the file.\nEnvironment variable: GROUPSQL_CONFIG",
		cliflags.Config.Usage())
}
