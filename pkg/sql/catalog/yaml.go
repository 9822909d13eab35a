// Copyright 2014 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package catalog

import (
	"bytes"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/util/encoding"
	"gopkg.in/yaml.v3"
)

// SchemaDef is the declarative form of a schema, as read from YAML.
type SchemaDef struct {
	Tables []TableDef `yaml:"tables"`
}

// ParseYAML parses a schema definition.
func ParseYAML(in []byte) (SchemaDef, error) {
	var def SchemaDef
	dec := yaml.NewDecoder(bytes.NewReader(in))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return SchemaDef{}, errors.Wrap(err, "parsing schema")
	}
	return def, nil
}

// ParseTableYAML parses the definition of a single table.
func ParseTableYAML(in []byte) (TableDef, error) {
	var def TableDef
	dec := yaml.NewDecoder(bytes.NewReader(in))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return TableDef{}, errors.Wrap(err, "parsing table")
	}
	return def, nil
}

// LoadYAML parses a schema definition and builds it on top of base.
func LoadYAML(base *Schema, in []byte) (*Schema, error) {
	def, err := ParseYAML(in)
	if err != nil {
		return nil, err
	}
	b := NewBuilder(base)
	if err := b.CreateTables(def.Tables...); err != nil {
		return nil, err
	}
	return b.Build()
}

// Def returns the declarative form of the table.
func (t *Table) Def() TableDef {
	def := TableDef{
		Name:    t.Name,
		Virtual: t.IsVirtual(),
	}
	for _, c := range t.Columns {
		def.Columns = append(def.Columns, ColumnDef{
			Name:     c.Name,
			Type:     strings.ToLower(c.Type.Name()),
			Nullable: c.Nullable,
		})
	}
	def.PrimaryKey = t.PrimaryIndex().ColumnNames(t)
	if p := t.Parent(); p != nil {
		def.Parent = p.Name
		for _, ord := range t.GroupingColumns {
			def.GroupingColumns = append(def.GroupingColumns, t.Columns[ord].Name)
		}
	}
	for _, idx := range t.SecondaryIndexes() {
		id := IndexDef{Name: idx.Name, Unique: idx.Unique}
		for i, ord := range idx.ColumnOrdinals {
			col := t.Columns[ord].Name
			if idx.Directions[i] == encoding.Descending {
				col += " DESC"
			}
			id.Columns = append(id.Columns, col)
		}
		def.Indexes = append(def.Indexes, id)
	}
	return def
}

// ToYAML marshals the schema into YAML. Tables are listed in pre-order of
// their groups, so the output can be loaded back with LoadYAML.
func (s *Schema) ToYAML() ([]byte, error) {
	var def SchemaDef
	for _, g := range s.Groups() {
		for _, t := range g.Tables() {
			def.Tables = append(def.Tables, t.Def())
		}
	}
	return yaml.Marshal(&def)
}
