// Copyright 2014 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// This is the entry point of the groupsql binary.
package main

import "github.com/cockroachdb/groupsql/pkg/cli"

func main() {
	cli.Main()
}
