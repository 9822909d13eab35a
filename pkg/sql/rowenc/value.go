// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rowenc

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/sqlerrors"
	"github.com/cockroachdb/groupsql/pkg/sql/types"
)

// ErrNoValueAvailable is returned by CopyValue when the source holds neither
// a decoded datum nor an encoding.
var ErrNoValueAvailable = errors.New("no value available")

// ValueSource is a single value that may be available decoded, encoded or
// both.
type ValueSource interface {
	// Type returns the type of the value.
	Type() *types.T
	// Datum returns the decoded value, or nil if it has not been decoded.
	Datum() tree.Datum
	// EncodedBytes returns the ascending key encoding of the value, or nil if
	// no encoding is available.
	EncodedBytes() []byte
}

// ValueTarget receives a value copied by CopyValue.
type ValueTarget interface {
	// Type returns the type of the values the target accepts.
	Type() *types.T
	// PutDatum stores a decoded value.
	PutDatum(tree.Datum) error
	// PutEncoded stores an encoded value.
	PutEncoded([]byte) error
}

// CopyValue copies the value of src into dst, passing the encoding through
// without decoding when src has not been decoded.
func CopyValue(src ValueSource, dst ValueTarget, colName string) error {
	if !dst.Type().Equivalent(src.Type()) {
		return sqlerrors.NewDatatypeMismatchError(colName, src.Type(), dst.Type())
	}
	if d := src.Datum(); d != nil {
		if d != tree.DNull && !dst.Type().Equivalent(d.ResolvedType()) {
			return sqlerrors.NewDatatypeMismatchError(colName, d.ResolvedType(), dst.Type())
		}
		return dst.PutDatum(d)
	}
	if enc := src.EncodedBytes(); enc != nil {
		return dst.PutEncoded(enc)
	}
	return errors.Wrapf(ErrNoValueAvailable, "column %q", colName)
}

// EncDatumValue adapts one value of an EncDatumRow to ValueSource and
// ValueTarget.
type EncDatumValue struct {
	Typ *types.T
	Val *EncDatum
}

var _ ValueSource = EncDatumValue{}
var _ ValueTarget = EncDatumValue{}

// Type implements ValueSource and ValueTarget.
func (v EncDatumValue) Type() *types.T { return v.Typ }

// Datum implements ValueSource.
func (v EncDatumValue) Datum() tree.Datum { return v.Val.Datum }

// EncodedBytes implements ValueSource.
func (v EncDatumValue) EncodedBytes() []byte { return v.Val.encoded }

// PutDatum implements ValueTarget.
func (v EncDatumValue) PutDatum(d tree.Datum) error {
	*v.Val = EncDatum{Datum: d}
	return nil
}

// PutEncoded implements ValueTarget.
func (v EncDatumValue) PutEncoded(enc []byte) error {
	if len(enc) == 0 {
		return errors.AssertionFailedf("empty encoded value")
	}
	*v.Val = EncDatum{encoded: enc}
	return nil
}

// RowValue returns column i of row as a ValueSource.
func RowValue(row *Row, i int) EncDatumValue {
	return EncDatumValue{Typ: row.Type.Types[i], Val: &row.Values[i]}
}

// CopyRowValues copies the values of src into the columns of dst starting at
// offset. The encodings of src are shared, not duplicated.
func CopyRowValues(src *Row, dst EncDatumRow, dstTypes []*types.T, offset int) error {
	for i := range src.Values {
		target := EncDatumValue{Typ: dstTypes[offset+i], Val: &dst[offset+i]}
		if err := CopyValue(RowValue(src, i), target, src.Type.Names[i]); err != nil {
			return err
		}
	}
	return nil
}
