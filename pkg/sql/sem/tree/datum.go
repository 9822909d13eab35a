// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package tree

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/types"
	"github.com/google/uuid"
)

// Datum represents a SQL value.
type Datum interface {
	// ResolvedType returns the type of the datum.
	ResolvedType() *types.T
	// Compare returns -1 if the receiver is less than other, 0 if they are
	// equal and +1 if the receiver is greater. NULL sorts before every other
	// value and compares equal to NULL. Comparing datums of different
	// families is an error.
	Compare(other Datum) (int, error)
	// String formats the datum as a SQL literal.
	String() string
}

// Datums is a slice of Datum values.
type Datums []Datum

// String formats the datums as a parenthesized list.
func (d Datums) String() string {
	var buf strings.Builder
	buf.WriteByte('(')
	for i, v := range d {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(v.String())
	}
	buf.WriteByte(')')
	return buf.String()
}

// Compare compares the datums lexicographically.
func (d Datums) Compare(other Datums) (int, error) {
	for i := 0; i < len(d) && i < len(other); i++ {
		c, err := d[i].Compare(other[i])
		if err != nil || c != 0 {
			return c, err
		}
	}
	switch {
	case len(d) < len(other):
		return -1, nil
	case len(d) > len(other):
		return 1, nil
	}
	return 0, nil
}

// HasNull returns true if any of the datums is NULL.
func (d Datums) HasNull() bool {
	for _, v := range d {
		if v == DNull {
			return true
		}
	}
	return false
}

func makeUnsupportedComparisonMessage(d1, d2 Datum) error {
	return errors.AssertionFailedf("unsupported comparison: %s to %s",
		d1.ResolvedType(), d2.ResolvedType())
}

func cmpNull(d, other Datum) (int, bool) {
	if other == DNull {
		if d == DNull {
			return 0, true
		}
		return 1, true
	}
	if d == DNull {
		return -1, true
	}
	return 0, false
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

type dNull struct{}

// DNull is the NULL Datum.
var DNull Datum = dNull{}

func (dNull) ResolvedType() *types.T { return types.Unknown }

func (d dNull) Compare(other Datum) (int, error) {
	c, _ := cmpNull(d, other)
	return c, nil
}

func (dNull) String() string { return "NULL" }

// DBool is the boolean Datum.
type DBool bool

// DBoolTrue is a pointer to the DBool(true) value and can be used in
// comparisons.
var DBoolTrue = func() *DBool { b := DBool(true); return &b }()

// DBoolFalse is a pointer to the DBool(false) value and can be used in
// comparisons.
var DBoolFalse = func() *DBool { b := DBool(false); return &b }()

// MakeDBool converts its argument to a *DBool, returning either DBoolTrue or
// DBoolFalse.
func MakeDBool(b bool) *DBool {
	if b {
		return DBoolTrue
	}
	return DBoolFalse
}

// ResolvedType implements the Datum interface.
func (*DBool) ResolvedType() *types.T { return types.Bool }

// Compare implements the Datum interface.
func (d *DBool) Compare(other Datum) (int, error) {
	if c, ok := cmpNull(d, other); ok {
		return c, nil
	}
	v, ok := other.(*DBool)
	if !ok {
		return 0, makeUnsupportedComparisonMessage(d, other)
	}
	switch {
	case !bool(*d) && bool(*v):
		return -1, nil
	case bool(*d) && !bool(*v):
		return 1, nil
	}
	return 0, nil
}

func (d *DBool) String() string { return strconv.FormatBool(bool(*d)) }

// DInt is the int Datum.
type DInt int64

// NewDInt is a helper routine to create a *DInt initialized from its
// argument.
func NewDInt(d DInt) *DInt {
	return &d
}

// ResolvedType implements the Datum interface.
func (*DInt) ResolvedType() *types.T { return types.Int }

// Compare implements the Datum interface.
func (d *DInt) Compare(other Datum) (int, error) {
	if c, ok := cmpNull(d, other); ok {
		return c, nil
	}
	switch v := other.(type) {
	case *DInt:
		return compareInts(int64(*d), int64(*v)), nil
	case *DFloat:
		return compareFloats(float64(*d), float64(*v)), nil
	}
	return 0, makeUnsupportedComparisonMessage(d, other)
}

func (d *DInt) String() string { return strconv.FormatInt(int64(*d), 10) }

// DFloat is the float Datum.
type DFloat float64

// NewDFloat is a helper routine to create a *DFloat initialized from its
// argument.
func NewDFloat(d DFloat) *DFloat {
	return &d
}

// ResolvedType implements the Datum interface.
func (*DFloat) ResolvedType() *types.T { return types.Float }

func compareFloats(a, b float64) int {
	// NaN sorts before every other value, matching the key encoding.
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return -1
	case math.IsNaN(b):
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Compare implements the Datum interface.
func (d *DFloat) Compare(other Datum) (int, error) {
	if c, ok := cmpNull(d, other); ok {
		return c, nil
	}
	switch v := other.(type) {
	case *DFloat:
		return compareFloats(float64(*d), float64(*v)), nil
	case *DInt:
		return compareFloats(float64(*d), float64(*v)), nil
	}
	return 0, makeUnsupportedComparisonMessage(d, other)
}

func (d *DFloat) String() string {
	f := float64(*d)
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// DDecimal is the decimal Datum.
type DDecimal struct {
	apd.Decimal
}

// ParseDDecimal parses and returns the *DDecimal Datum value represented by
// the provided string, or an error if parsing is unsuccessful.
func ParseDDecimal(s string) (*DDecimal, error) {
	dd := &DDecimal{}
	if _, _, err := dd.SetString(s); err != nil {
		return nil, errors.Wrapf(err, "could not parse %q as type decimal", s)
	}
	if dd.Form != apd.Finite {
		return nil, errors.Newf("could not parse %q as type decimal: non-finite values are not supported", s)
	}
	return dd, nil
}

// ResolvedType implements the Datum interface.
func (*DDecimal) ResolvedType() *types.T { return types.Decimal }

// Compare implements the Datum interface.
func (d *DDecimal) Compare(other Datum) (int, error) {
	if c, ok := cmpNull(d, other); ok {
		return c, nil
	}
	v, ok := other.(*DDecimal)
	if !ok {
		return 0, makeUnsupportedComparisonMessage(d, other)
	}
	return d.Cmp(&v.Decimal), nil
}

func (d *DDecimal) String() string { return d.Decimal.String() }

// DString is the string Datum.
type DString string

// NewDString is a helper routine to create a *DString initialized from its
// argument.
func NewDString(d string) *DString {
	r := DString(d)
	return &r
}

// ResolvedType implements the Datum interface.
func (*DString) ResolvedType() *types.T { return types.String }

// Compare implements the Datum interface.
func (d *DString) Compare(other Datum) (int, error) {
	if c, ok := cmpNull(d, other); ok {
		return c, nil
	}
	v, ok := other.(*DString)
	if !ok {
		return 0, makeUnsupportedComparisonMessage(d, other)
	}
	return strings.Compare(string(*d), string(*v)), nil
}

func (d *DString) String() string {
	return "'" + strings.ReplaceAll(string(*d), "'", "''") + "'"
}

// DBytes is the bytes Datum. The underlying type is a string because we want
// the immutability, but this may contain arbitrary bytes.
type DBytes string

// NewDBytes is a helper routine to create a *DBytes initialized from its
// argument.
func NewDBytes(d DBytes) *DBytes {
	return &d
}

// ResolvedType implements the Datum interface.
func (*DBytes) ResolvedType() *types.T { return types.Bytes }

// Compare implements the Datum interface.
func (d *DBytes) Compare(other Datum) (int, error) {
	if c, ok := cmpNull(d, other); ok {
		return c, nil
	}
	v, ok := other.(*DBytes)
	if !ok {
		return 0, makeUnsupportedComparisonMessage(d, other)
	}
	return bytes.Compare([]byte(*d), []byte(*v)), nil
}

func (d *DBytes) String() string { return fmt.Sprintf(`'\x%x'`, string(*d)) }

// DTimestamp is the timestamp Datum.
type DTimestamp struct {
	time.Time
}

// MakeDTimestamp creates a DTimestamp rounded to microseconds and
// normalized to UTC.
func MakeDTimestamp(t time.Time) *DTimestamp {
	return &DTimestamp{Time: t.Round(time.Microsecond).UTC()}
}

// ResolvedType implements the Datum interface.
func (*DTimestamp) ResolvedType() *types.T { return types.Timestamp }

// Compare implements the Datum interface.
func (d *DTimestamp) Compare(other Datum) (int, error) {
	if c, ok := cmpNull(d, other); ok {
		return c, nil
	}
	v, ok := other.(*DTimestamp)
	if !ok {
		return 0, makeUnsupportedComparisonMessage(d, other)
	}
	switch {
	case d.Before(v.Time):
		return -1, nil
	case v.Before(d.Time):
		return 1, nil
	}
	return 0, nil
}

const timestampFormat = "2006-01-02 15:04:05.999999"

func (d *DTimestamp) String() string {
	return "'" + d.UTC().Format(timestampFormat) + "'"
}

// DUuid is the UUID Datum.
type DUuid struct {
	uuid.UUID
}

// NewDUuid is a helper routine to create a *DUuid initialized from its
// argument.
func NewDUuid(u uuid.UUID) *DUuid {
	return &DUuid{UUID: u}
}

// ResolvedType implements the Datum interface.
func (*DUuid) ResolvedType() *types.T { return types.Uuid }

// Compare implements the Datum interface.
func (d *DUuid) Compare(other Datum) (int, error) {
	if c, ok := cmpNull(d, other); ok {
		return c, nil
	}
	v, ok := other.(*DUuid)
	if !ok {
		return 0, makeUnsupportedComparisonMessage(d, other)
	}
	return bytes.Compare(d.UUID[:], v.UUID[:]), nil
}

func (d *DUuid) String() string { return "'" + d.UUID.String() + "'" }

// MustCompare is like Compare but panics on a type mismatch. It is meant for
// callers that have already checked the types.
func MustCompare(a, b Datum) int {
	c, err := a.Compare(b)
	if err != nil {
		panic(err)
	}
	return c
}
