// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rowenc

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
)

// Row is a row produced by a cursor. Rows are created fresh for every cursor
// step and never modified afterwards; consumers that keep a row past the
// next step of its cursor should keep the result of Copy.
type Row struct {
	Type *RowType
	// HKey is the encoded hkey of a stored row, or of the row an index entry
	// points to. It is nil for synthetic rows.
	HKey   []byte
	Values EncDatumRow
}

// NewRow returns a row of type rt backed by decoded datums.
func NewRow(rt *RowType, hkey []byte, datums tree.Datums) *Row {
	return &Row{Type: rt, HKey: hkey, Values: EncDatumRowFromDatums(rt.Types, datums)}
}

// Datum returns the decoded value of column i.
func (r *Row) Datum(i int) (tree.Datum, error) {
	if i < 0 || i >= len(r.Values) {
		return nil, errors.AssertionFailedf("column %d out of range for %s", i, r.Type)
	}
	if r.Values[i].IsUnset() {
		return tree.DNull, nil
	}
	if err := r.Values[i].EnsureDecoded(r.Type.Types[i]); err != nil {
		return nil, err
	}
	return r.Values[i].Datum, nil
}

// Datums returns every decoded value of the row.
func (r *Row) Datums() (tree.Datums, error) {
	return r.Values.Datums(r.Type.Types)
}

// Copy returns a copy of the row that does not share buffers with r.
func (r *Row) Copy() *Row {
	c := &Row{Type: r.Type, Values: make(EncDatumRow, len(r.Values))}
	if r.HKey != nil {
		c.HKey = append([]byte(nil), r.HKey...)
	}
	for i := range r.Values {
		c.Values[i].Datum = r.Values[i].Datum
		if enc := r.Values[i].encoded; enc != nil {
			c.Values[i].encoded = append([]byte(nil), enc...)
		}
	}
	return c
}

// IsDescendantOf returns true if r is stored below other in the same group:
// the hkey of other is a strict prefix of the hkey of r.
func (r *Row) IsDescendantOf(other *Row) bool {
	return len(other.HKey) > 0 && len(r.HKey) > len(other.HKey) && bytes.HasPrefix(r.HKey, other.HKey)
}

// DecodedHKey parses the row's hkey. The row must belong to a stored table.
func (r *Row) DecodedHKey() (catalog.HKey, error) {
	if r.Type.Table == nil || r.HKey == nil {
		return nil, errors.AssertionFailedf("row of %s has no hkey", r.Type)
	}
	return catalog.DecodeHKey(r.Type.Table.Group(), r.HKey)
}

// String formats the row for debugging and tests, as
// `type hkey (v1, v2, ...)`.
func (r *Row) String() string {
	var buf bytes.Buffer
	buf.WriteString(r.Type.String())
	if r.HKey != nil {
		buf.WriteByte(' ')
		if h, err := r.DecodedHKey(); err == nil {
			buf.WriteString(h.String())
		} else {
			buf.WriteString("<bad hkey>")
		}
	}
	buf.WriteByte(' ')
	buf.WriteString(r.Values.String(r.Type.Types))
	return buf.String()
}
