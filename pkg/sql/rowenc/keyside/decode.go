// Copyright 2021 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package keyside

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/types"
	"github.com/cockroachdb/groupsql/pkg/util/encoding"
	"github.com/google/uuid"
)

// Decode decodes a value encoded by Encode from a key.
func Decode(
	valType *types.T, key []byte, dir encoding.Direction,
) (_ tree.Datum, remainingKey []byte, _ error) {
	if (dir != encoding.Ascending) && (dir != encoding.Descending) {
		return nil, nil, errors.Errorf("invalid direction: %d", dir)
	}
	var isNull bool
	if key, isNull = encoding.DecodeIfNull(key); isNull {
		return tree.DNull, key, nil
	}
	var rkey []byte
	var err error

	switch valType.Family() {
	case types.BoolFamily:
		var i int64
		if dir == encoding.Ascending {
			rkey, i, err = encoding.DecodeVarintAscending(key)
		} else {
			rkey, i, err = encoding.DecodeVarintDescending(key)
		}
		return tree.MakeDBool(i != 0), rkey, err
	case types.IntFamily:
		var i int64
		if dir == encoding.Ascending {
			rkey, i, err = encoding.DecodeVarintAscending(key)
		} else {
			rkey, i, err = encoding.DecodeVarintDescending(key)
		}
		return tree.NewDInt(tree.DInt(i)), rkey, err
	case types.FloatFamily:
		var f float64
		if dir == encoding.Ascending {
			rkey, f, err = encoding.DecodeFloatAscending(key)
		} else {
			rkey, f, err = encoding.DecodeFloatDescending(key)
		}
		return tree.NewDFloat(tree.DFloat(f)), rkey, err
	case types.DecimalFamily:
		dd := &tree.DDecimal{}
		if dir == encoding.Ascending {
			rkey, dd.Decimal, err = encoding.DecodeDecimalAscending(key)
		} else {
			rkey, dd.Decimal, err = encoding.DecodeDecimalDescending(key)
		}
		return dd, rkey, err
	case types.StringFamily:
		var r string
		if dir == encoding.Ascending {
			rkey, r, err = encoding.DecodeStringAscending(key, nil)
		} else {
			rkey, r, err = encoding.DecodeStringDescending(key, nil)
		}
		return tree.NewDString(r), rkey, err
	case types.BytesFamily:
		var r string
		if dir == encoding.Ascending {
			rkey, r, err = encoding.DecodeStringAscending(key, nil)
		} else {
			rkey, r, err = encoding.DecodeStringDescending(key, nil)
		}
		return tree.NewDBytes(tree.DBytes(r)), rkey, err
	case types.TimestampFamily:
		var t tree.DTimestamp
		if dir == encoding.Ascending {
			rkey, t.Time, err = encoding.DecodeTimeAscending(key)
		} else {
			rkey, t.Time, err = encoding.DecodeTimeDescending(key)
		}
		return &t, rkey, err
	case types.UuidFamily:
		var r []byte
		if dir == encoding.Ascending {
			rkey, r, err = encoding.DecodeBytesAscending(key, nil)
		} else {
			rkey, r, err = encoding.DecodeBytesDescending(key, nil)
		}
		if err != nil {
			return nil, nil, err
		}
		u, err := uuid.FromBytes(r)
		return tree.NewDUuid(u), rkey, err
	}
	return nil, nil, errors.Errorf("unable to decode table key: %s", valType)
}

// Skip returns the remainder of key after the first encoded value.
func Skip(key []byte) ([]byte, error) {
	n, err := encoding.PeekLength(key)
	if err != nil {
		return nil, err
	}
	return key[n:], nil
}
