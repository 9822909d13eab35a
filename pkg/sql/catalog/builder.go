// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package catalog

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/groupsql/pkg/sql/sqlerrors"
	"github.com/cockroachdb/groupsql/pkg/sql/types"
	"github.com/cockroachdb/groupsql/pkg/util/encoding"
)

// ColumnDef declares a column.
type ColumnDef struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable,omitempty"`
}

// IndexDef declares a secondary index. Each entry of Columns is a column name
// optionally followed by ASC or DESC.
type IndexDef struct {
	Name    string   `yaml:"name"`
	Columns []string `yaml:"columns"`
	Unique  bool     `yaml:"unique,omitempty"`
}

// TableDef declares a table. A table with a Parent is grouped under it: its
// GroupingColumns reference the parent's primary key columns positionally.
type TableDef struct {
	Name            string      `yaml:"name"`
	Columns         []ColumnDef `yaml:"columns"`
	PrimaryKey      []string    `yaml:"primary_key"`
	Parent          string      `yaml:"parent,omitempty"`
	GroupingColumns []string    `yaml:"grouping_columns,omitempty"`
	Indexes         []IndexDef  `yaml:"indexes,omitempty"`
	Virtual         bool        `yaml:"virtual,omitempty"`
}

// Builder accumulates schema changes against a base snapshot. Each method
// either applies completely or leaves the builder unchanged. Build validates
// the result and produces a new snapshot; the base is never modified.
type Builder struct {
	base   *Schema
	tables map[TableID]*Table
	byName map[string]TableID
	nextID TableID
}

// NewBuilder returns a builder starting from base, or from the empty schema
// if base is nil.
func NewBuilder(base *Schema) *Builder {
	if base == nil {
		base = Empty
	}
	b := &Builder{
		base:   base,
		tables: make(map[TableID]*Table, len(base.tables)),
		byName: make(map[string]TableID, len(base.tables)),
		nextID: base.nextID,
	}
	for id, t := range base.tables {
		b.tables[id] = cloneTable(t)
		b.byName[t.Name] = id
	}
	return b
}

func (b *Builder) clone() *Builder {
	c := &Builder{
		base:   b.base,
		tables: make(map[TableID]*Table, len(b.tables)),
		byName: make(map[string]TableID, len(b.byName)),
		nextID: b.nextID,
	}
	for id, t := range b.tables {
		c.tables[id] = cloneTable(t)
		c.byName[t.Name] = id
	}
	return c
}

func cloneTable(t *Table) *Table {
	c := *t
	c.ChildIDs = append([]TableID(nil), t.ChildIDs...)
	c.GroupingColumns = append([]int(nil), t.GroupingColumns...)
	c.Columns = append([]Column(nil), t.Columns...)
	c.Indexes = make([]*Index, len(t.Indexes))
	for i, idx := range t.Indexes {
		ic := *idx
		ic.ColumnOrdinals = append([]int(nil), idx.ColumnOrdinals...)
		ic.Directions = append([]encoding.Direction(nil), idx.Directions...)
		c.Indexes[i] = &ic
	}
	c.schema = nil
	return &c
}

// apply runs fn against a copy of the builder's state and keeps the result
// only if fn succeeds.
func (b *Builder) apply(fn func(*Builder) error) error {
	next := b.clone()
	if err := fn(next); err != nil {
		return err
	}
	*b = *next
	return nil
}

func (b *Builder) lookup(name string) (*Table, error) {
	if id, ok := b.byName[name]; ok {
		return b.tables[id], nil
	}
	return nil, sqlerrors.NewUndefinedTableError(name)
}

// CreateTable adds a table.
func (b *Builder) CreateTable(def TableDef) error {
	return b.CreateTables(def)
}

// CreateTables adds several tables at once. Parents may be declared in the
// same batch in any order; the batch is rejected if the grouping references
// between its tables form a cycle.
func (b *Builder) CreateTables(defs ...TableDef) error {
	return b.apply(func(b *Builder) error {
		batch := make(map[string]*TableDef, len(defs))
		for i := range defs {
			def := &defs[i]
			if def.Name == "" {
				return sqlerrors.NewInvalidTableDefinitionError("empty table name")
			}
			if _, ok := batch[def.Name]; ok {
				return sqlerrors.NewRelationAlreadyExistsError(def.Name)
			}
			if _, ok := b.byName[def.Name]; ok {
				return sqlerrors.NewRelationAlreadyExistsError(def.Name)
			}
			batch[def.Name] = def
		}

		const (
			unvisited = iota
			visiting
			done
		)
		state := make(map[string]int, len(defs))
		var visit func(def *TableDef, path []string) error
		visit = func(def *TableDef, path []string) error {
			switch state[def.Name] {
			case done:
				return nil
			case visiting:
				return sqlerrors.NewInvalidSchemaDefinitionError(
					"cyclic grouping: %s", strings.Join(append(path, def.Name), " -> "))
			}
			state[def.Name] = visiting
			if def.Parent != "" {
				if parent, ok := batch[def.Parent]; ok {
					if err := visit(parent, append(path, def.Name)); err != nil {
						return err
					}
				} else if _, ok := b.byName[def.Parent]; !ok {
					return errors.Wrapf(sqlerrors.NewUndefinedTableError(def.Parent),
						"parent of table %q", def.Name)
				}
			}
			state[def.Name] = done
			return b.addTable(def)
		}
		for i := range defs {
			if err := visit(&defs[i], nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Builder) addTable(def *TableDef) error {
	t := &Table{
		ID:          b.nextID,
		Name:        def.Name,
		nextIndexID: PrimaryIndexID + 1,
	}
	if def.Virtual {
		t.Storage = StorageVirtual
	}
	if len(def.Columns) == 0 {
		return sqlerrors.NewInvalidTableDefinitionError("table %q must have at least one column", def.Name)
	}
	for _, cd := range def.Columns {
		if cd.Name == "" {
			return sqlerrors.NewInvalidTableDefinitionError("table %q: empty column name", def.Name)
		}
		if _, ok := t.ColumnOrdinal(cd.Name); ok {
			return sqlerrors.NewColumnAlreadyExistsError(cd.Name, def.Name)
		}
		typ, err := types.ByName(cd.Type)
		if err != nil {
			return pgerror.Wrapf(err, pgcode.InvalidTableDefinition, "table %q, column %q", def.Name, cd.Name)
		}
		t.Columns = append(t.Columns, Column{Name: cd.Name, Type: typ, Nullable: cd.Nullable})
	}

	if len(def.PrimaryKey) == 0 {
		return sqlerrors.NewInvalidTableDefinitionError("table %q has no primary key", def.Name)
	}
	pk := &Index{
		ID:      PrimaryIndexID,
		Name:    def.Name + "_pkey",
		TableID: t.ID,
		Unique:  true,
	}
	if err := resolveIndexColumns(t, pk, def.PrimaryKey); err != nil {
		return err
	}
	for i, ord := range pk.ColumnOrdinals {
		if pk.Directions[i] != encoding.Ascending {
			return sqlerrors.NewFeatureNotSupportedError(
				"table %q: primary key column %q must be ascending", def.Name, t.Columns[ord].Name)
		}
		// Primary key columns are implicitly NOT NULL.
		t.Columns[ord].Nullable = false
	}
	t.Indexes = []*Index{pk}

	if def.Parent == "" {
		if len(def.GroupingColumns) != 0 {
			return sqlerrors.NewInvalidTableDefinitionError(
				"table %q declares grouping columns without a parent", def.Name)
		}
		t.Ordinal = 1
		t.RootID = t.ID
	} else {
		parent, err := b.lookup(def.Parent)
		if err != nil {
			return err
		}
		if parent.Storage != t.Storage {
			return sqlerrors.NewInvalidSchemaDefinitionError(
				"table %q (%s storage) cannot be grouped under table %q (%s storage)",
				def.Name, t.Storage, parent.Name, parent.Storage)
		}
		parentPK := parent.PrimaryIndex()
		if len(def.GroupingColumns) != len(parentPK.ColumnOrdinals) {
			return sqlerrors.NewInvalidTableDefinitionError(
				"table %q: %d grouping columns do not match the %d primary key columns of %q",
				def.Name, len(def.GroupingColumns), len(parentPK.ColumnOrdinals), parent.Name)
		}
		for i, name := range def.GroupingColumns {
			ord, ok := t.ColumnOrdinal(name)
			if !ok {
				return errors.Wrapf(sqlerrors.NewUndefinedColumnError(name), "grouping column of table %q", def.Name)
			}
			parentCol := parent.Columns[parentPK.ColumnOrdinals[i]]
			if t.Columns[ord].Type.Family() != parentCol.Type.Family() {
				return sqlerrors.NewInvalidTableDefinitionError(
					"table %q: grouping column %q of type %s does not match %s.%s of type %s",
					def.Name, name, t.Columns[ord].Type, parent.Name, parentCol.Name, parentCol.Type)
			}
			t.GroupingColumns = append(t.GroupingColumns, ord)
		}
		t.ParentID = parent.ID
		t.RootID = parent.RootID
		t.Ordinal = b.maxOrdinal(parent.RootID) + 1
		parent.ChildIDs = append(parent.ChildIDs, t.ID)
	}

	if t.IsVirtual() && len(def.Indexes) > 0 {
		return sqlerrors.NewInvalidTableDefinitionError(
			"virtual table %q cannot have secondary indexes", def.Name)
	}
	for _, id := range def.Indexes {
		if err := addIndex(t, id); err != nil {
			return err
		}
	}

	b.tables[t.ID] = t
	b.byName[t.Name] = t.ID
	b.nextID++
	return nil
}

func (b *Builder) maxOrdinal(rootID TableID) int {
	m := 0
	for _, t := range b.tables {
		if t.RootID == rootID && t.Ordinal > m {
			m = t.Ordinal
		}
	}
	return m
}

func resolveIndexColumns(t *Table, idx *Index, cols []string) error {
	if len(cols) == 0 {
		return sqlerrors.NewInvalidTableDefinitionError("index %q has no columns", idx.Name)
	}
	seen := make(map[int]struct{}, len(cols))
	for _, c := range cols {
		fields := strings.Fields(c)
		if len(fields) == 0 || len(fields) > 2 {
			return sqlerrors.NewInvalidTableDefinitionError("index %q: invalid column %q", idx.Name, c)
		}
		dir := encoding.Ascending
		if len(fields) == 2 {
			switch strings.ToUpper(fields[1]) {
			case "ASC":
			case "DESC":
				dir = encoding.Descending
			default:
				return sqlerrors.NewInvalidTableDefinitionError("index %q: invalid direction %q", idx.Name, fields[1])
			}
		}
		ord, ok := t.ColumnOrdinal(fields[0])
		if !ok {
			return errors.Wrapf(sqlerrors.NewUndefinedColumnError(fields[0]), "index %q", idx.Name)
		}
		if _, ok := seen[ord]; ok {
			return sqlerrors.NewInvalidTableDefinitionError(
				"index %q contains column %q more than once", idx.Name, fields[0])
		}
		seen[ord] = struct{}{}
		idx.ColumnOrdinals = append(idx.ColumnOrdinals, ord)
		idx.Directions = append(idx.Directions, dir)
	}
	return nil
}

func addIndex(t *Table, def IndexDef) error {
	if def.Name == "" {
		return sqlerrors.NewInvalidTableDefinitionError("table %q: empty index name", t.Name)
	}
	if _, ok := t.FindIndexByName(def.Name); ok {
		return sqlerrors.NewIndexAlreadyExistsError(def.Name, t.Name)
	}
	idx := &Index{
		ID:      t.nextIndexID,
		Name:    def.Name,
		TableID: t.ID,
		Unique:  def.Unique,
	}
	if err := resolveIndexColumns(t, idx, def.Columns); err != nil {
		return err
	}
	t.nextIndexID++
	t.Indexes = append(t.Indexes, idx)
	return nil
}

// DropTable removes a table. Tables that still have child tables cannot be
// dropped.
func (b *Builder) DropTable(name string) error {
	return b.apply(func(b *Builder) error {
		t, err := b.lookup(name)
		if err != nil {
			return err
		}
		if len(t.ChildIDs) > 0 {
			return sqlerrors.NewDependentObjectsError(name, b.tables[t.ChildIDs[0]].Name)
		}
		if !t.IsRoot() {
			parent := b.tables[t.ParentID]
			for i, id := range parent.ChildIDs {
				if id == t.ID {
					parent.ChildIDs = append(parent.ChildIDs[:i], parent.ChildIDs[i+1:]...)
					break
				}
			}
		}
		delete(b.tables, t.ID)
		delete(b.byName, name)
		return nil
	})
}

// CreateIndex adds a secondary index to a table.
func (b *Builder) CreateIndex(table string, def IndexDef) error {
	return b.apply(func(b *Builder) error {
		t, err := b.lookup(table)
		if err != nil {
			return err
		}
		if t.IsVirtual() {
			return sqlerrors.NewInvalidTableDefinitionError(
				"virtual table %q cannot have secondary indexes", table)
		}
		return addIndex(t, def)
	})
}

// DropIndex removes a secondary index.
func (b *Builder) DropIndex(table, index string) error {
	return b.apply(func(b *Builder) error {
		t, err := b.lookup(table)
		if err != nil {
			return err
		}
		idx, ok := t.FindIndexByName(index)
		if !ok {
			return sqlerrors.NewUndefinedIndexError(table, index)
		}
		if idx.IsPrimary() {
			return sqlerrors.NewInvalidTableDefinitionError("cannot drop primary index %q", index)
		}
		for i := range t.Indexes {
			if t.Indexes[i].ID == idx.ID {
				t.Indexes = append(t.Indexes[:i], t.Indexes[i+1:]...)
				break
			}
		}
		return nil
	})
}

// Build validates the accumulated changes and returns the new snapshot.
func (b *Builder) Build() (*Schema, error) {
	s := &Schema{
		version: b.base.version + 1,
		tables:  make(map[TableID]*Table, len(b.tables)),
		byName:  make(map[string]*Table, len(b.tables)),
		nextID:  b.nextID,
	}
	for id, t := range b.tables {
		c := cloneTable(t)
		c.schema = s
		s.tables[id] = c
		s.byName[c.Name] = c
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// validate checks the structural invariants of a snapshot: every group is a
// rooted tree and ordinals are unique within each group.
func (s *Schema) validate() error {
	ordinals := make(map[TableID]map[int]string)
	for _, t := range s.Tables() {
		if len(t.Indexes) == 0 || !t.Indexes[0].IsPrimary() {
			return sqlerrors.NewInvalidTableDefinitionError("table %q has no primary index", t.Name)
		}
		seen := map[TableID]struct{}{t.ID: {}}
		root := t
		for !root.IsRoot() {
			parent, ok := s.tables[root.ParentID]
			if !ok {
				return errors.Wrapf(sqlerrors.NewUndefinedTableIDError(root.ParentID, s.version),
					"parent of table %q", root.Name)
			}
			if _, ok := seen[parent.ID]; ok {
				return sqlerrors.NewInvalidSchemaDefinitionError("cyclic grouping at table %q", parent.Name)
			}
			seen[parent.ID] = struct{}{}
			found := false
			for _, id := range parent.ChildIDs {
				found = found || id == root.ID
			}
			if !found {
				return sqlerrors.NewInvalidSchemaDefinitionError(
					"table %q is missing from the children of %q", root.Name, parent.Name)
			}
			root = parent
		}
		if root.ID != t.RootID {
			return sqlerrors.NewInvalidSchemaDefinitionError(
				"table %q belongs to group %q, not %d", t.Name, root.Name, t.RootID)
		}
		m, ok := ordinals[t.RootID]
		if !ok {
			m = make(map[int]string)
			ordinals[t.RootID] = m
		}
		if other, ok := m[t.Ordinal]; ok {
			return sqlerrors.NewInvalidSchemaDefinitionError(
				"tables %q and %q share ordinal %d", other, t.Name, t.Ordinal)
		}
		m[t.Ordinal] = t.Name
	}
	return nil
}
