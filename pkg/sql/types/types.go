// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package types describes the SQL column types understood by the
// execution layer.
package types

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lib/pq/oid"
)

// Family groups types that share a datum representation.
type Family int

// Family values.
const (
	UnknownFamily Family = iota
	BoolFamily
	IntFamily
	FloatFamily
	DecimalFamily
	StringFamily
	BytesFamily
	TimestampFamily
	UuidFamily
)

var familyNames = [...]string{
	UnknownFamily:   "unknown",
	BoolFamily:      "bool",
	IntFamily:       "int",
	FloatFamily:     "float",
	DecimalFamily:   "decimal",
	StringFamily:    "string",
	BytesFamily:     "bytes",
	TimestampFamily: "timestamp",
	UuidFamily:      "uuid",
}

func (f Family) String() string {
	if int(f) < len(familyNames) {
		return familyNames[f]
	}
	return "unknown"
}

// T is a SQL type. Instances are shared and can be compared with ==.
type T struct {
	family Family
	oid    oid.Oid
	name   string
}

var (
	// Unknown is the type of an untyped NULL.
	Unknown = &T{family: UnknownFamily, oid: oid.T_unknown, name: "unknown"}
	// Bool is the type of a boolean.
	Bool = &T{family: BoolFamily, oid: oid.T_bool, name: "BOOL"}
	// Int is the type of a 64-bit signed integer.
	Int = &T{family: IntFamily, oid: oid.T_int8, name: "INT8"}
	// Float is the type of a 64-bit floating point number.
	Float = &T{family: FloatFamily, oid: oid.T_float8, name: "FLOAT8"}
	// Decimal is the type of an arbitrary precision decimal.
	Decimal = &T{family: DecimalFamily, oid: oid.T_numeric, name: "DECIMAL"}
	// String is the type of a text value.
	String = &T{family: StringFamily, oid: oid.T_text, name: "STRING"}
	// Bytes is the type of a byte array.
	Bytes = &T{family: BytesFamily, oid: oid.T_bytea, name: "BYTES"}
	// Timestamp is the type of a timestamp without time zone.
	Timestamp = &T{family: TimestampFamily, oid: oid.T_timestamp, name: "TIMESTAMP"}
	// Uuid is the type of a UUID.
	Uuid = &T{family: UuidFamily, oid: oid.T_uuid, name: "UUID"}
)

// Scalar lists every supported column type.
var Scalar = []*T{Bool, Int, Float, Decimal, String, Bytes, Timestamp, Uuid}

// OidToType maps Postgres object IDs to types.
var OidToType = func() map[oid.Oid]*T {
	m := make(map[oid.Oid]*T, len(Scalar)+1)
	for _, t := range Scalar {
		m[t.oid] = t
	}
	m[oid.T_unknown] = Unknown
	return m
}()

// typeAliases maps accepted type names to types.
var typeAliases = map[string]*T{
	"bool":      Bool,
	"boolean":   Bool,
	"int":       Int,
	"int8":      Int,
	"integer":   Int,
	"bigint":    Int,
	"float":     Float,
	"float8":    Float,
	"double":    Float,
	"decimal":   Decimal,
	"numeric":   Decimal,
	"string":    String,
	"text":      String,
	"varchar":   String,
	"bytes":     Bytes,
	"bytea":     Bytes,
	"timestamp": Timestamp,
	"uuid":      Uuid,
}

// Family returns the type's family.
func (t *T) Family() Family { return t.family }

// Oid returns the type's Postgres object ID.
func (t *T) Oid() oid.Oid { return t.oid }

// Name returns the canonical SQL name of the type.
func (t *T) Name() string { return t.name }

// SQLString returns the canonical SQL name of the type.
func (t *T) SQLString() string { return t.name }

// String implements fmt.Stringer.
func (t *T) String() string { return t.name }

// Equivalent returns true if a value of type other can be stored in a
// column of type t. Unknown is equivalent to every type.
func (t *T) Equivalent(other *T) bool {
	if t.family == UnknownFamily || other.family == UnknownFamily {
		return true
	}
	return t.family == other.family
}

// ByName returns the type with the given SQL name. Names are case
// insensitive.
func ByName(name string) (*T, error) {
	if t, ok := typeAliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return t, nil
	}
	return nil, errors.Newf("type %q does not exist", name)
}
