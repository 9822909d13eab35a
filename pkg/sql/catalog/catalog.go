// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package catalog describes tables, the groups they are interleaved into and
// the hierarchical keys that order their rows.
//
// Tables are arranged in groups: a group is a tree of tables rooted at one
// table in which every child table references its parent's primary key through
// its grouping columns. All rows of a group are stored under a single ordered
// key, the hkey, so that a parent row sorts immediately before the rows of its
// descendant tables.
//
// A Schema is an immutable snapshot. Schema changes go through a Builder that
// produces a new snapshot with a higher version; snapshots already handed out
// are never modified.
package catalog

import (
	"fmt"

	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/types"
	"github.com/cockroachdb/groupsql/pkg/util/encoding"
)

// TableID identifies a table. IDs are never reused within a schema lineage.
type TableID uint32

// InvalidTableID is the zero TableID, used for tables without a parent.
const InvalidTableID TableID = 0

func (id TableID) String() string { return fmt.Sprintf("%d", uint32(id)) }

// IndexID identifies an index within its table.
type IndexID uint32

// PrimaryIndexID is the ID of every table's primary index.
const PrimaryIndexID IndexID = 1

// StorageFormat describes where the rows of a table live.
type StorageFormat int

const (
	// StorageDefault tables are stored in the transactional key-value store.
	StorageDefault StorageFormat = iota
	// StorageVirtual tables are computed on demand by a registered factory.
	StorageVirtual
)

func (f StorageFormat) String() string {
	if f == StorageVirtual {
		return "virtual"
	}
	return "default"
}

// Column is a column of a table.
type Column struct {
	Name     string
	Type     *types.T
	Nullable bool
}

// Index describes a primary or secondary index of a table.
type Index struct {
	ID      IndexID
	Name    string
	TableID TableID
	Unique  bool
	// ColumnOrdinals are positions in the table's Columns.
	ColumnOrdinals []int
	Directions     []encoding.Direction
}

// IsPrimary returns true for the table's primary index.
func (idx *Index) IsPrimary() bool { return idx.ID == PrimaryIndexID }

// ColumnNames returns the names of the indexed columns.
func (idx *Index) ColumnNames(t *Table) []string {
	names := make([]string, len(idx.ColumnOrdinals))
	for i, ord := range idx.ColumnOrdinals {
		names[i] = t.Columns[ord].Name
	}
	return names
}

// Table is a table of a schema snapshot. Tables are owned by their Schema and
// must not be modified once the schema has been built.
type Table struct {
	ID   TableID
	Name string
	// Ordinal is unique within the table's group and is written into every
	// hkey that passes through this table.
	Ordinal  int
	ParentID TableID
	ChildIDs []TableID
	RootID   TableID
	// GroupingColumns are ordinals of the columns that reference the parent's
	// primary key, positionally.
	GroupingColumns []int
	Columns         []Column
	// Indexes holds the primary index first, followed by the secondary
	// indexes in creation order.
	Indexes []*Index
	Storage StorageFormat

	nextIndexID IndexID
	schema      *Schema
}

// IsVirtual returns true if rows of the table are produced by a virtual
// table factory rather than read from storage.
func (t *Table) IsVirtual() bool { return t.Storage == StorageVirtual }

// IsRoot returns true if the table is the root of its group.
func (t *Table) IsRoot() bool { return t.ParentID == InvalidTableID }

// PrimaryIndex returns the table's primary index.
func (t *Table) PrimaryIndex() *Index { return t.Indexes[0] }

// SecondaryIndexes returns the indexes other than the primary index.
func (t *Table) SecondaryIndexes() []*Index { return t.Indexes[1:] }

// Schema returns the snapshot the table belongs to.
func (t *Table) Schema() *Schema { return t.schema }

// Group returns the group the table belongs to.
func (t *Table) Group() *Group { return &Group{schema: t.schema, rootID: t.RootID} }

// Parent returns the parent table, or nil for a group root.
func (t *Table) Parent() *Table {
	if t.IsRoot() {
		return nil
	}
	return t.schema.tables[t.ParentID]
}

// Children returns the child tables in creation order.
func (t *Table) Children() []*Table {
	res := make([]*Table, len(t.ChildIDs))
	for i, id := range t.ChildIDs {
		res[i] = t.schema.tables[id]
	}
	return res
}

// Ancestors returns the ancestors of the table, root first.
func (t *Table) Ancestors() []*Table {
	var res []*Table
	for p := t.Parent(); p != nil; p = p.Parent() {
		res = append(res, p)
	}
	for i, j := 0, len(res)-1; i < j; i, j = i+1, j-1 {
		res[i], res[j] = res[j], res[i]
	}
	return res
}

// Depth returns the number of ancestors of the table.
func (t *Table) Depth() int {
	d := 0
	for p := t.Parent(); p != nil; p = p.Parent() {
		d++
	}
	return d
}

// IsAncestorOf returns true if t is a strict ancestor of other.
func (t *Table) IsAncestorOf(other *Table) bool {
	for p := other.Parent(); p != nil; p = p.Parent() {
		if p.ID == t.ID {
			return true
		}
	}
	return false
}

// ColumnOrdinal returns the position of the named column.
func (t *Table) ColumnOrdinal(name string) (int, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

// ColumnTypes returns the types of the table's columns.
func (t *Table) ColumnTypes() []*types.T {
	res := make([]*types.T, len(t.Columns))
	for i := range t.Columns {
		res[i] = t.Columns[i].Type
	}
	return res
}

// ColumnNames returns the names of the table's columns.
func (t *Table) ColumnNames() []string {
	res := make([]string, len(t.Columns))
	for i := range t.Columns {
		res[i] = t.Columns[i].Name
	}
	return res
}

// FindIndexByName returns the named index.
func (t *Table) FindIndexByName(name string) (*Index, bool) {
	for _, idx := range t.Indexes {
		if idx.Name == name {
			return idx, true
		}
	}
	return nil, false
}

// FindIndexByID returns the index with the given ID.
func (t *Table) FindIndexByID(id IndexID) (*Index, bool) {
	for _, idx := range t.Indexes {
		if idx.ID == id {
			return idx, true
		}
	}
	return nil, false
}

// PrimaryKeyValues extracts the primary key values from a full row.
func (t *Table) PrimaryKeyValues(row tree.Datums) tree.Datums {
	return project(row, t.PrimaryIndex().ColumnOrdinals)
}

// GroupingValues extracts the grouping column values from a full row. The
// values identify the parent row by its primary key.
func (t *Table) GroupingValues(row tree.Datums) tree.Datums {
	return project(row, t.GroupingColumns)
}

// IndexValues extracts the key column values of idx from a full row.
func (t *Table) IndexValues(idx *Index, row tree.Datums) tree.Datums {
	return project(row, idx.ColumnOrdinals)
}

func project(row tree.Datums, ords []int) tree.Datums {
	res := make(tree.Datums, len(ords))
	for i, ord := range ords {
		res[i] = row[ord]
	}
	return res
}

func (t *Table) String() string { return t.Name }
