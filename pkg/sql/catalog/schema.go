// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package catalog

import (
	"sort"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/sqlerrors"
)

// Schema is an immutable snapshot of every table and group.
type Schema struct {
	version int64
	tables  map[TableID]*Table
	byName  map[string]*Table
	nextID  TableID
}

// Empty is the schema snapshot with no tables, at version 0.
var Empty = &Schema{
	tables: map[TableID]*Table{},
	byName: map[string]*Table{},
	nextID: 1,
}

// Version returns the version of the snapshot. Every schema change produces
// a snapshot with a strictly greater version.
func (s *Schema) Version() int64 { return s.version }

// TableByID returns the table with the given ID.
func (s *Schema) TableByID(id TableID) (*Table, bool) {
	t, ok := s.tables[id]
	return t, ok
}

// TableByName returns the named table, or an undefined_table error.
func (s *Schema) TableByName(name string) (*Table, error) {
	if t, ok := s.byName[name]; ok {
		return t, nil
	}
	return nil, sqlerrors.NewUndefinedTableError(name)
}

// MustTableByName is like TableByName but panics if the table is missing.
func (s *Schema) MustTableByName(name string) *Table {
	t, err := s.TableByName(name)
	if err != nil {
		panic(err)
	}
	return t
}

// Tables returns every table ordered by ID.
func (s *Schema) Tables() []*Table {
	res := make([]*Table, 0, len(s.tables))
	for _, t := range s.tables {
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// Groups returns every group ordered by root table ID.
func (s *Schema) Groups() []*Group {
	var res []*Group
	for _, t := range s.Tables() {
		if t.IsRoot() {
			res = append(res, &Group{schema: s, rootID: t.ID})
		}
	}
	return res
}

// GroupByName returns the group rooted at the named table.
func (s *Schema) GroupByName(root string) (*Group, error) {
	t, err := s.TableByName(root)
	if err != nil {
		return nil, err
	}
	if !t.IsRoot() {
		return nil, errors.Newf("table %q is not the root of a group", root)
	}
	return t.Group(), nil
}

// Group is a tree of tables sharing one hkey space. A Group only references
// its schema arena and its root; all navigation goes through table IDs.
type Group struct {
	schema *Schema
	rootID TableID
}

// ID returns the group identifier, which is the ID of its root table.
func (g *Group) ID() TableID { return g.rootID }

// Name returns the name of the root table.
func (g *Group) Name() string { return g.Root().Name }

// Root returns the root table of the group.
func (g *Group) Root() *Table { return g.schema.tables[g.rootID] }

// Schema returns the snapshot the group belongs to.
func (g *Group) Schema() *Schema { return g.schema }

// Tables returns the tables of the group in pre-order, the order in which
// their rows first appear in a group scan.
func (g *Group) Tables() []*Table {
	var res []*Table
	var walk func(t *Table)
	walk = func(t *Table) {
		res = append(res, t)
		for _, c := range t.Children() {
			walk(c)
		}
	}
	walk(g.Root())
	return res
}

// TableByOrdinal returns the member table with the given ordinal.
func (g *Group) TableByOrdinal(ord int) (*Table, bool) {
	for _, t := range g.Tables() {
		if t.Ordinal == ord {
			return t, true
		}
	}
	return nil, false
}

// IsVirtual returns true if the group's tables are virtual.
func (g *Group) IsVirtual() bool { return g.Root().IsVirtual() }

// Holder publishes the current schema snapshot. Readers obtain the snapshot
// once and keep using it for the lifetime of the operator trees planned
// against it.
type Holder struct {
	current atomic.Pointer[Schema]
}

// NewHolder returns a Holder publishing s, or the empty schema if s is nil.
func NewHolder(s *Schema) *Holder {
	if s == nil {
		s = Empty
	}
	h := &Holder{}
	h.current.Store(s)
	return h
}

// Current returns the most recently published snapshot.
func (h *Holder) Current() *Schema { return h.current.Load() }

// Publish replaces the current snapshot. The new snapshot must have a greater
// version than the current one.
func (h *Holder) Publish(s *Schema) error {
	for {
		cur := h.current.Load()
		if s.version <= cur.version {
			return errors.AssertionFailedf(
				"cannot publish schema version %d over version %d", s.version, cur.version)
		}
		if h.current.CompareAndSwap(cur, s) {
			return nil
		}
	}
}
