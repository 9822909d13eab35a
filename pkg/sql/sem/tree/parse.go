// Copyright 2016 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package tree

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/types"
	"github.com/google/uuid"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// ParseDatum parses s as a value of type t. The string "NULL" (any case)
// parses as DNull for every type.
func ParseDatum(t *types.T, s string) (Datum, error) {
	if strings.EqualFold(s, "null") {
		return DNull, nil
	}
	switch t.Family() {
	case types.BoolFamily:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, errors.Wrapf(err, "could not parse %q as type bool", s)
		}
		return MakeDBool(b), nil
	case types.IntFamily:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "could not parse %q as type int", s)
		}
		return NewDInt(DInt(i)), nil
	case types.FloatFamily:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "could not parse %q as type float", s)
		}
		return NewDFloat(DFloat(f)), nil
	case types.DecimalFamily:
		return ParseDDecimal(strings.TrimSpace(s))
	case types.StringFamily:
		return NewDString(s), nil
	case types.BytesFamily:
		if strings.HasPrefix(s, `\x`) {
			b, err := hex.DecodeString(s[2:])
			if err != nil {
				return nil, errors.Wrapf(err, "could not parse %q as type bytes", s)
			}
			return NewDBytes(DBytes(b)), nil
		}
		return NewDBytes(DBytes(s)), nil
	case types.TimestampFamily:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return MakeDTimestamp(ts), nil
			}
		}
		return nil, errors.Newf("could not parse %q as type timestamp", s)
	case types.UuidFamily:
		u, err := uuid.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, errors.Wrapf(err, "could not parse %q as type uuid", s)
		}
		return NewDUuid(u), nil
	}
	return nil, errors.AssertionFailedf("unsupported type %s", t)
}

// MakeDatum converts a Go value (as produced by a YAML or JSON decoder) into
// a datum of type t.
func MakeDatum(t *types.T, v interface{}) (Datum, error) {
	switch x := v.(type) {
	case nil:
		return DNull, nil
	case Datum:
		if !t.Equivalent(x.ResolvedType()) {
			return nil, errors.Newf("value %s is not of type %s", x, t)
		}
		return x, nil
	case string:
		return ParseDatum(t, x)
	case bool:
		if t.Family() != types.BoolFamily {
			return nil, errors.Newf("value %t is not of type %s", x, t)
		}
		return MakeDBool(x), nil
	case int:
		return makeNumeric(t, int64(x), float64(x))
	case int64:
		return makeNumeric(t, x, float64(x))
	case uint64:
		if x > math.MaxInt64 {
			return nil, errors.Newf("value %d out of range for type %s", x, t)
		}
		return makeNumeric(t, int64(x), float64(x))
	case float64:
		if t.Family() == types.IntFamily {
			if x != math.Trunc(x) {
				return nil, errors.Newf("value %g is not of type %s", x, t)
			}
			return NewDInt(DInt(int64(x))), nil
		}
		return makeNumeric(t, int64(x), x)
	case time.Time:
		if t.Family() != types.TimestampFamily {
			return nil, errors.Newf("value %s is not of type %s", x, t)
		}
		return MakeDTimestamp(x), nil
	case []byte:
		if t.Family() != types.BytesFamily {
			return nil, errors.Newf("byte value is not of type %s", t)
		}
		return NewDBytes(DBytes(x)), nil
	}
	return nil, errors.Newf("unsupported value %v (%T)", v, v)
}

func makeNumeric(t *types.T, i int64, f float64) (Datum, error) {
	switch t.Family() {
	case types.IntFamily:
		return NewDInt(DInt(i)), nil
	case types.FloatFamily:
		return NewDFloat(DFloat(f)), nil
	case types.DecimalFamily:
		if float64(i) == f {
			return ParseDDecimal(strconv.FormatInt(i, 10))
		}
		return ParseDDecimal(strconv.FormatFloat(f, 'g', -1, 64))
	case types.StringFamily:
		if float64(i) == f {
			return NewDString(strconv.FormatInt(i, 10)), nil
		}
		return NewDString(strconv.FormatFloat(f, 'g', -1, 64)), nil
	}
	return nil, errors.Newf("numeric value is not of type %s", t)
}
