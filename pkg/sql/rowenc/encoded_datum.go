// Copyright 2016 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rowenc

import (
	"bytes"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc/keyside"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/types"
	"github.com/cockroachdb/groupsql/pkg/util/encoding"
)

// EncDatum represents a datum that is "backed" by an encoding and/or by a
// tree.Datum. It allows "passing through" a Datum without decoding and
// reencoding. The encoding is always the ascending key encoding.
type EncDatum struct {
	// Encoded datum.
	encoded []byte

	// Decoded datum.
	Datum tree.Datum
}

// EncDatumFromEncoded initializes an EncDatum with the given encoded
// value. The encoded value is stored as a shallow copy, so the caller must
// make sure the slice is not modified for the lifetime of the EncDatum.
func EncDatumFromEncoded(encoded []byte) EncDatum {
	if len(encoded) == 0 {
		panic(errors.AssertionFailedf("empty encoded value"))
	}
	return EncDatum{encoded: encoded}
}

// EncDatumFromBuffer initializes an EncDatum with an encoding that is
// possibly followed by other data, and returns the rest of the buffer.
func EncDatumFromBuffer(buf []byte) (EncDatum, []byte, error) {
	if len(buf) == 0 {
		return EncDatum{}, nil, errors.New("empty encoded value")
	}
	encLen, err := encoding.PeekLength(buf)
	if err != nil {
		return EncDatum{}, nil, err
	}
	return EncDatumFromEncoded(buf[:encLen]), buf[encLen:], nil
}

// DatumToEncDatum initializes an EncDatum with the given Datum.
func DatumToEncDatum(typ *types.T, d tree.Datum) EncDatum {
	if d == nil {
		panic(errors.AssertionFailedf("cannot convert nil datum to EncDatum"))
	}
	if d != tree.DNull && !typ.Equivalent(d.ResolvedType()) {
		panic(errors.AssertionFailedf("invalid datum type given: %s, expected %s",
			d.ResolvedType(), typ))
	}
	return EncDatum{Datum: d}
}

// IsUnset returns true if neither an encoding nor a datum was set.
func (ed *EncDatum) IsUnset() bool {
	return ed.encoded == nil && ed.Datum == nil
}

// IsNull returns true if the EncDatum value is NULL.
func (ed *EncDatum) IsNull() bool {
	if ed.Datum != nil {
		return ed.Datum == tree.DNull
	}
	if ed.encoded == nil {
		panic(errors.AssertionFailedf("IsNull on unset EncDatum"))
	}
	_, isNull := encoding.DecodeIfNull(ed.encoded)
	return isNull
}

// EncodedBytes returns the encoding, or nil if only the datum is set.
func (ed *EncDatum) EncodedBytes() []byte { return ed.encoded }

// EnsureDecoded ensures that the Datum field is set (decoding if it is not).
func (ed *EncDatum) EnsureDecoded(typ *types.T) error {
	if ed.Datum != nil {
		return nil
	}
	if ed.encoded == nil {
		return errors.AssertionFailedf("decoding unset EncDatum")
	}
	d, rem, err := keyside.Decode(typ, ed.encoded, encoding.Ascending)
	if err != nil {
		return errors.Wrapf(err, "decoding %s value", typ)
	}
	if len(rem) != 0 {
		return errors.Newf("%d trailing bytes in encoded value", len(rem))
	}
	ed.Datum = d
	return nil
}

// Encode appends the encoded datum to the given slice.
func (ed *EncDatum) Encode(typ *types.T, appendTo []byte) ([]byte, error) {
	if ed.encoded != nil {
		return append(appendTo, ed.encoded...), nil
	}
	if err := ed.EnsureDecoded(typ); err != nil {
		return nil, err
	}
	return keyside.Encode(appendTo, ed.Datum, encoding.Ascending)
}

// Compare returns -1, 0 or +1 as the receiver is less than, equal to or
// greater than rhs.
func (ed *EncDatum) Compare(typ *types.T, rhs *EncDatum) (int, error) {
	if ed.encoded != nil && rhs.encoded != nil {
		return bytes.Compare(ed.encoded, rhs.encoded), nil
	}
	if err := ed.EnsureDecoded(typ); err != nil {
		return 0, err
	}
	if err := rhs.EnsureDecoded(typ); err != nil {
		return 0, err
	}
	return ed.Datum.Compare(rhs.Datum)
}

func (ed *EncDatum) String(typ *types.T) string {
	if ed.Datum == nil {
		if ed.encoded == nil {
			return "<unset>"
		}
		if err := ed.EnsureDecoded(typ); err != nil {
			return "<error: " + err.Error() + ">"
		}
	}
	return ed.Datum.String()
}

// EncDatumRow is a row of EncDatums.
type EncDatumRow []EncDatum

// EncDatumRowFromDatums returns a row backed by the given datums.
func EncDatumRowFromDatums(typs []*types.T, datums tree.Datums) EncDatumRow {
	row := make(EncDatumRow, len(datums))
	for i, d := range datums {
		row[i] = DatumToEncDatum(typs[i], d)
	}
	return row
}

// Datums decodes every value of the row. Unset values decode to NULL.
func (r EncDatumRow) Datums(typs []*types.T) (tree.Datums, error) {
	if len(typs) != len(r) {
		return nil, errors.AssertionFailedf("mismatched types (%v) and row (%d values)", typs, len(r))
	}
	datums := make(tree.Datums, len(r))
	for i := range r {
		if r[i].IsUnset() {
			datums[i] = tree.DNull
			continue
		}
		if err := r[i].EnsureDecoded(typs[i]); err != nil {
			return nil, err
		}
		datums[i] = r[i].Datum
	}
	return datums, nil
}

// Copy returns a copy of the row that shares no EncDatums with r.
func (r EncDatumRow) Copy() EncDatumRow {
	return append(EncDatumRow(nil), r...)
}

// String formats the row as (v1, v2, ...).
func (r EncDatumRow) String(typs []*types.T) string {
	var b strings.Builder
	b.WriteByte('(')
	for i := range r {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(r[i].String(typs[i]))
	}
	b.WriteByte(')')
	return b.String()
}
