// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package grouptest provides a shared schema fixture for tests: a customer
// group with orders, items and addresses.
package grouptest

import (
	"context"
	"testing"

	"github.com/cockroachdb/groupsql/pkg/kv"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// SchemaYAML declares the fixture group:
//
//	customer
//	├── orders
//	│   └── item
//	└── address
const SchemaYAML = `
tables:
  - name: customer
    columns:
      - {name: cid, type: int}
      - {name: name, type: string, nullable: true}
    primary_key: [cid]
    indexes:
      - {name: customer_name, columns: [name]}
  - name: orders
    parent: customer
    grouping_columns: [cid]
    columns:
      - {name: oid, type: int}
      - {name: cid, type: int, nullable: true}
      - {name: odate, type: timestamp, nullable: true}
    primary_key: [oid]
    indexes:
      - {name: orders_date, columns: [odate DESC]}
  - name: item
    parent: orders
    grouping_columns: [oid]
    columns:
      - {name: iid, type: int}
      - {name: oid, type: int, nullable: true}
      - {name: sku, type: string}
      - {name: qty, type: int}
    primary_key: [iid]
    indexes:
      - {name: item_sku_qty, columns: [sku, qty], unique: true}
  - name: address
    parent: customer
    grouping_columns: [cid]
    columns:
      - {name: aid, type: int}
      - {name: cid, type: int, nullable: true}
      - {name: city, type: string}
    primary_key: [aid]
    indexes:
      - {name: address_city, columns: [city], unique: true}
`

// Schema builds the fixture schema.
func Schema(t testing.TB) *catalog.Schema {
	s, err := catalog.LoadYAML(nil, []byte(SchemaYAML))
	require.NoError(t, err)
	return s
}

// Row builds a row of datums from Go values: ints, strings and nil.
func Row(vals ...interface{}) tree.Datums {
	row := make(tree.Datums, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case nil:
			row[i] = tree.DNull
		case int:
			row[i] = tree.NewDInt(tree.DInt(x))
		case string:
			row[i] = tree.NewDString(x)
		case tree.Datum:
			row[i] = x
		default:
			panic("unsupported fixture value")
		}
	}
	return row
}

// NewDB returns a store backed by an in-memory engine that is closed when
// the test ends.
func NewDB(t testing.TB) *kv.DB {
	eng, err := storage.Open(context.Background(), storage.Config{Kind: storage.EngineBTree, InMemory: true})
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return kv.NewDB(eng, kv.MakeMetrics(prometheus.NewRegistry()))
}
