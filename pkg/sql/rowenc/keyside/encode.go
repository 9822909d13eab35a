// Copyright 2021 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package keyside

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/util/encoding"
)

// Encode encodes a value in a manner that preserves the sort order of the
// value, appending it to b.
func Encode(b []byte, val tree.Datum, dir encoding.Direction) ([]byte, error) {
	if (dir != encoding.Ascending) && (dir != encoding.Descending) {
		return nil, errors.Errorf("invalid direction: %d", dir)
	}

	if val == tree.DNull {
		if dir == encoding.Ascending {
			return encoding.EncodeNullAscending(b), nil
		}
		return encoding.EncodeNullDescending(b), nil
	}

	switch t := val.(type) {
	case *tree.DBool:
		if dir == encoding.Ascending {
			return encoding.EncodeBoolAscending(b, bool(*t)), nil
		}
		return encoding.EncodeBoolDescending(b, bool(*t)), nil
	case *tree.DInt:
		if dir == encoding.Ascending {
			return encoding.EncodeVarintAscending(b, int64(*t)), nil
		}
		return encoding.EncodeVarintDescending(b, int64(*t)), nil
	case *tree.DFloat:
		if dir == encoding.Ascending {
			return encoding.EncodeFloatAscending(b, float64(*t)), nil
		}
		return encoding.EncodeFloatDescending(b, float64(*t)), nil
	case *tree.DDecimal:
		if dir == encoding.Ascending {
			return encoding.EncodeDecimalAscending(b, &t.Decimal), nil
		}
		return encoding.EncodeDecimalDescending(b, &t.Decimal), nil
	case *tree.DString:
		if dir == encoding.Ascending {
			return encoding.EncodeStringAscending(b, string(*t)), nil
		}
		return encoding.EncodeStringDescending(b, string(*t)), nil
	case *tree.DBytes:
		if dir == encoding.Ascending {
			return encoding.EncodeStringAscending(b, string(*t)), nil
		}
		return encoding.EncodeStringDescending(b, string(*t)), nil
	case *tree.DTimestamp:
		if dir == encoding.Ascending {
			return encoding.EncodeTimeAscending(b, t.Time), nil
		}
		return encoding.EncodeTimeDescending(b, t.Time), nil
	case *tree.DUuid:
		if dir == encoding.Ascending {
			return encoding.EncodeBytesAscending(b, t.UUID[:]), nil
		}
		return encoding.EncodeBytesDescending(b, t.UUID[:]), nil
	}
	return nil, errors.Errorf("unable to encode table key: %T", val)
}

// EncodeDatums encodes every datum with the matching direction. A nil
// directions slice encodes every value ascending.
func EncodeDatums(b []byte, vals tree.Datums, dirs []encoding.Direction) ([]byte, error) {
	var err error
	for i, v := range vals {
		dir := encoding.Ascending
		if dirs != nil {
			dir = dirs[i]
		}
		if b, err = Encode(b, v, dir); err != nil {
			return nil, err
		}
	}
	return b, nil
}
