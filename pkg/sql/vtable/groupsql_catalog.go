// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package vtable

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/lib/pq/oid"
)

// CatalogSchemaName is the prefix of the names of the built-in catalog
// views.
const CatalogSchemaName = "groupsql_catalog"

// GroupsqlCatalogTables describes the schema of the groupsql_catalog.tables
// table.
var GroupsqlCatalogTables = `
name: groupsql_catalog.tables
virtual: true
columns:
  - {name: table_id, type: int}
  - {name: name, type: string}
  - {name: group_name, type: string}
  - {name: parent_name, type: string, nullable: true}
  - {name: ordinal, type: int}
  - {name: depth, type: int}
  - {name: storage, type: string}
primary_key: [table_id]
`

// GroupsqlCatalogColumns describes the schema of the
// groupsql_catalog.columns table.
var GroupsqlCatalogColumns = `
name: groupsql_catalog.columns
virtual: true
columns:
  - {name: table_id, type: int}
  - {name: ordinal, type: int}
  - {name: name, type: string}
  - {name: type_name, type: string}
  - {name: type_oid, type: int}
  - {name: pg_type, type: string}
  - {name: nullable, type: bool}
  - {name: grouping, type: bool}
primary_key: [table_id, ordinal]
`

// GroupsqlCatalogIndexes describes the schema of the
// groupsql_catalog.indexes table.
var GroupsqlCatalogIndexes = `
name: groupsql_catalog.indexes
virtual: true
columns:
  - {name: table_id, type: int}
  - {name: index_id, type: int}
  - {name: name, type: string}
  - {name: is_primary, type: bool}
  - {name: is_unique, type: bool}
  - {name: columns, type: string}
primary_key: [table_id, index_id]
`

// GroupsqlCatalogGroups describes the schema of the groupsql_catalog.groups
// table.
var GroupsqlCatalogGroups = `
name: groupsql_catalog.groups
virtual: true
columns:
  - {name: group_id, type: int}
  - {name: root_name, type: string}
  - {name: num_tables, type: int}
  - {name: max_depth, type: int}
  - {name: storage, type: string}
primary_key: [group_id]
`

type catalogView struct {
	schema   string
	populate func(s *catalog.Schema, addRow func(...tree.Datum))
}

var catalogViews = []catalogView{
	{schema: GroupsqlCatalogTables, populate: populateTables},
	{schema: GroupsqlCatalogColumns, populate: populateColumns},
	{schema: GroupsqlCatalogIndexes, populate: populateIndexes},
	{schema: GroupsqlCatalogGroups, populate: populateGroups},
}

// catalogBatchSize is the number of rows a catalog view produces per batch.
const catalogBatchSize = 64

// CatalogTableDefs returns the definitions of the built-in catalog views.
func CatalogTableDefs() ([]catalog.TableDef, error) {
	defs := make([]catalog.TableDef, len(catalogViews))
	for i, v := range catalogViews {
		def, err := catalog.ParseTableYAML([]byte(v.schema))
		if err != nil {
			return nil, errors.NewAssertionErrorWithWrappedErrf(err, "catalog view %d", i)
		}
		defs[i] = def
	}
	return defs, nil
}

// InstallCatalog declares the built-in catalog views in b.
func InstallCatalog(b *catalog.Builder) error {
	defs, err := CatalogTableDefs()
	if err != nil {
		return err
	}
	return b.CreateTables(defs...)
}

// RegisterCatalog binds the built-in catalog views declared in s to their
// factories.
func RegisterCatalog(r *Registry, s *catalog.Schema) error {
	defs, err := CatalogTableDefs()
	if err != nil {
		return err
	}
	for i, def := range defs {
		t, err := s.TableByName(def.Name)
		if err != nil {
			return err
		}
		populate := catalogViews[i].populate
		f := NewGeneratorFactory(def.Name, int64(len(s.Tables())),
			func(_ context.Context, view AdapterView, _ *catalog.Table) (Generator, error) {
				var rows []tree.Datums
				populate(view.Schema(), func(vals ...tree.Datum) {
					rows = append(rows, vals)
				})
				return SliceGenerator(rows, catalogBatchSize), nil
			})
		if err := r.Register(t, f); err != nil {
			return err
		}
	}
	return nil
}

func dInt(i int) tree.Datum { return tree.NewDInt(tree.DInt(i)) }

func populateTables(s *catalog.Schema, addRow func(...tree.Datum)) {
	for _, t := range s.Tables() {
		parent := tree.DNull
		if p := t.Parent(); p != nil {
			parent = tree.NewDString(p.Name)
		}
		addRow(
			dInt(int(t.ID)),
			tree.NewDString(t.Name),
			tree.NewDString(t.Group().Name()),
			parent,
			dInt(t.Ordinal),
			dInt(t.Depth()),
			tree.NewDString(t.Storage.String()),
		)
	}
}

func populateColumns(s *catalog.Schema, addRow func(...tree.Datum)) {
	for _, t := range s.Tables() {
		grouping := make(map[int]bool, len(t.GroupingColumns))
		for _, ord := range t.GroupingColumns {
			grouping[ord] = true
		}
		for i, c := range t.Columns {
			typOid := c.Type.Oid()
			pgName, ok := oid.TypeName[typOid]
			if !ok {
				pgName = "UNKNOWN"
			}
			addRow(
				dInt(int(t.ID)),
				dInt(i+1),
				tree.NewDString(c.Name),
				tree.NewDString(c.Type.Name()),
				dInt(int(typOid)),
				tree.NewDString(pgName),
				tree.MakeDBool(c.Nullable),
				tree.MakeDBool(grouping[i]),
			)
		}
	}
}

func populateIndexes(s *catalog.Schema, addRow func(...tree.Datum)) {
	for _, t := range s.Tables() {
		for _, idx := range t.Indexes {
			cols := idx.ColumnNames(t)
			for i, dir := range idx.Directions {
				cols[i] += " " + dir.String()
			}
			addRow(
				dInt(int(t.ID)),
				dInt(int(idx.ID)),
				tree.NewDString(idx.Name),
				tree.MakeDBool(idx.IsPrimary()),
				tree.MakeDBool(idx.Unique),
				tree.NewDString(strings.Join(cols, ", ")),
			)
		}
	}
}

func populateGroups(s *catalog.Schema, addRow func(...tree.Datum)) {
	for _, g := range s.Groups() {
		tables := g.Tables()
		maxDepth := 0
		for _, t := range tables {
			if d := t.Depth(); d > maxDepth {
				maxDepth = d
			}
		}
		addRow(
			dInt(int(g.ID())),
			tree.NewDString(g.Name()),
			dInt(len(tables)),
			dInt(maxDepth),
			tree.NewDString(g.Root().Storage.String()),
		)
	}
}
