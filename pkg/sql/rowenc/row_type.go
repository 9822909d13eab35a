// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package rowenc describes the rows that flow between operators and how
// they are laid out in the key-value store.
package rowenc

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/types"
)

// RowTypeKind is the kind of rows a RowType describes.
type RowTypeKind int

const (
	// TableRow is a full row of a stored table.
	TableRow RowTypeKind = iota
	// IndexRow is an entry of a secondary index: the index key columns and
	// the hkey of the indexed row.
	IndexRow
	// FlattenedRow is the concatenation of a parent row and a child row.
	FlattenedRow
	// ValuesRow is a synthetic row produced from expressions.
	ValuesRow
	// VirtualRow is a row produced by a virtual table.
	VirtualRow
)

var rowTypeKindNames = [...]string{
	TableRow:     "table",
	IndexRow:     "index",
	FlattenedRow: "flatten",
	ValuesRow:    "values",
	VirtualRow:   "virtual",
}

func (k RowTypeKind) String() string {
	if int(k) < len(rowTypeKindNames) {
		return rowTypeKindNames[k]
	}
	return fmt.Sprintf("RowTypeKind(%d)", int(k))
}

// RowTypeID identifies a RowType. IDs of table, index and flattened row types
// derive from table and index IDs only, so they compare equal across schema
// snapshots. Synthetic row types get a process-unique sequence number.
type RowTypeID struct {
	Kind    RowTypeKind
	TableID catalog.TableID
	IndexID catalog.IndexID
	// ChildID is the child table of a flattened row type.
	ChildID catalog.TableID
	Seq     uint64
}

func (id RowTypeID) String() string {
	switch id.Kind {
	case TableRow, VirtualRow:
		return fmt.Sprintf("%s/%d", id.Kind, id.TableID)
	case IndexRow:
		return fmt.Sprintf("%s/%d/%d", id.Kind, id.TableID, id.IndexID)
	case FlattenedRow:
		return fmt.Sprintf("%s/%d/%d", id.Kind, id.TableID, id.ChildID)
	}
	return fmt.Sprintf("%s/#%d", id.Kind, id.Seq)
}

var rowTypeSeq atomic.Uint64

// RowType describes the shape of a stream of rows.
type RowType struct {
	ID      RowTypeID
	Kind    RowTypeKind
	Types   []*types.T
	Names   []string
	Table   *catalog.Table
	Index   *catalog.Index
	// Parent and Child are the inputs of a flattened row type.
	Parent, Child *RowType

	label string
}

// NewTableRowType returns the row type of the rows of t. For a virtual table
// the row type has kind VirtualRow.
func NewTableRowType(t *catalog.Table) *RowType {
	kind := TableRow
	if t.IsVirtual() {
		kind = VirtualRow
	}
	return &RowType{
		ID:    RowTypeID{Kind: kind, TableID: t.ID},
		Kind:  kind,
		Types: t.ColumnTypes(),
		Names: t.ColumnNames(),
		Table: t,
		label: t.Name,
	}
}

// NewIndexRowType returns the row type of the entries of a secondary index:
// the index key columns in index order.
func NewIndexRowType(t *catalog.Table, idx *catalog.Index) *RowType {
	rt := &RowType{
		ID:    RowTypeID{Kind: IndexRow, TableID: t.ID, IndexID: idx.ID},
		Kind:  IndexRow,
		Table: t,
		Index: idx,
		label: fmt.Sprintf("%s@%s", t.Name, idx.Name),
	}
	for _, ord := range idx.ColumnOrdinals {
		rt.Types = append(rt.Types, t.Columns[ord].Type)
		rt.Names = append(rt.Names, t.Columns[ord].Name)
	}
	return rt
}

// NewFlattenedRowType returns the row type of the concatenation of a parent
// row and a child row. The columns of the child follow those of the parent.
func NewFlattenedRowType(parent, child *RowType) *RowType {
	rt := &RowType{
		ID:     RowTypeID{Kind: FlattenedRow, TableID: parent.ID.TableID, ChildID: child.ID.TableID},
		Kind:   FlattenedRow,
		Table:  child.Table,
		Parent: parent,
		Child:  child,
		label:  fmt.Sprintf("flatten(%s, %s)", parent, child),
	}
	rt.Types = append(append(rt.Types, parent.Types...), child.Types...)
	for _, n := range parent.Names {
		rt.Names = append(rt.Names, parent.label+"."+n)
	}
	for _, n := range child.Names {
		rt.Names = append(rt.Names, child.label+"."+n)
	}
	return rt
}

// NewValuesRowType returns a synthetic row type with the given columns.
func NewValuesRowType(names []string, typs []*types.T) *RowType {
	seq := rowTypeSeq.Add(1)
	return &RowType{
		ID:    RowTypeID{Kind: ValuesRow, Seq: seq},
		Kind:  ValuesRow,
		Types: typs,
		Names: names,
		label: fmt.Sprintf("values(%s)", strings.Join(names, ", ")),
	}
}

// NumColumns returns the number of columns.
func (rt *RowType) NumColumns() int { return len(rt.Types) }

// ColumnOrdinal returns the position of the named column.
func (rt *RowType) ColumnOrdinal(name string) (int, bool) {
	for i, n := range rt.Names {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// Is returns true if rt and other describe the same rows.
func (rt *RowType) Is(other *RowType) bool {
	return rt != nil && other != nil && rt.ID == other.ID
}

// IsTable returns true if rows of rt are full rows of table t.
func (rt *RowType) IsTable(t *catalog.Table) bool {
	return (rt.Kind == TableRow || rt.Kind == VirtualRow) && rt.ID.TableID == t.ID
}

func (rt *RowType) String() string { return rt.label }
