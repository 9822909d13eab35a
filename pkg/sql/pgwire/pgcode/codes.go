// Copyright 2019 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package pgcode defines the PostgreSQL error codes attached to errors
// produced by the SQL layer.
package pgcode

// Code is a PostgreSQL error code.
type Code struct {
	code string
}

// MakeCode converts a string into a Code.
func MakeCode(s string) Code {
	return Code{code: s}
}

// String returns the underlying pg code string.
func (c Code) String() string {
	return c.code
}

// PG error codes from: http://www.postgresql.org/docs/current/static/errcodes-appendix.html.
var (
	// Section: Class 0A - Feature Not Supported
	FeatureNotSupported = MakeCode("0A000")
	// Section: Class 22 - Data Exception
	InvalidParameterValue = MakeCode("22023")
	// Section: Class 23 - Integrity Constraint Violation
	NotNullViolation    = MakeCode("23502")
	ForeignKeyViolation = MakeCode("23503")
	UniqueViolation     = MakeCode("23505")
	// Section: Class 2B - Dependent Privilege Descriptors Still Exist
	DependentObjectsStillExist = MakeCode("2BP01")
	// Section: Class 40 - Transaction Rollback
	SerializationFailure = MakeCode("40001")
	// Section: Class 42 - Syntax Error or Access Rule Violation
	DatatypeMismatch        = MakeCode("42804")
	WrongObjectType         = MakeCode("42809")
	UndefinedColumn         = MakeCode("42703")
	UndefinedTable          = MakeCode("42P01")
	UndefinedObject         = MakeCode("42704")
	DuplicateColumn         = MakeCode("42701")
	DuplicateRelation       = MakeCode("42P07")
	DuplicateObject         = MakeCode("42710")
	UndefinedParameter      = MakeCode("42P02")
	InvalidSchemaDefinition = MakeCode("42P15")
	InvalidTableDefinition  = MakeCode("42P16")
	// Section: Class 55 - Object Not In Prerequisite State
	ObjectNotInPrerequisiteState = MakeCode("55000")
	// Section: Class 57 - Operator Intervention
	QueryCanceled = MakeCode("57014")
	// Section: Class XX - Internal Error
	Internal = MakeCode("XX000")

	// Uncategorized is used for errors that flow out to a client when there's
	// no code known yet.
	Uncategorized = MakeCode("XXUUU")
)
