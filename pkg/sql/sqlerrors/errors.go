// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package sqlerrors exports errors which can occur in the sql package.
package sqlerrors

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/types"
)

// NewUniquenessConstraintViolationError creates an error that represents a
// violation of a UNIQUE constraint.
func NewUniquenessConstraintViolationError(
	indexName string, colNames []string, vals tree.Datums,
) error {
	valStrs := make([]string, 0, len(vals))
	for _, val := range vals {
		valStrs = append(valStrs, val.String())
	}
	return pgerror.Newf(pgcode.UniqueViolation,
		"duplicate key value (%s)=(%s) violates unique constraint %q",
		strings.Join(colNames, ","),
		strings.Join(valStrs, ","),
		indexName)
}

// IsUniquenessConstraintViolationError returns true if the error is for a
// uniqueness constraint violation.
func IsUniquenessConstraintViolationError(err error) bool {
	return pgerror.HasCode(err, pgcode.UniqueViolation)
}

// NewNonNullViolationError creates an error for a violation of a non-NULL
// constraint.
func NewNonNullViolationError(columnName string) error {
	return pgerror.Newf(pgcode.NotNullViolation, "null value in column %q violates not-null constraint", columnName)
}

// NewPrimaryKeyInUseError creates an error for a change of the primary key
// of a row that other rows of its group still reference.
func NewPrimaryKeyInUseError(table string, pk tree.Datums) error {
	return errors.WithHint(
		pgerror.Newf(pgcode.ForeignKeyViolation,
			"cannot change primary key %s of table %q: child rows reference it", pk, table),
		"delete or move the child rows first")
}

// NewDatatypeMismatchError creates an error for a value whose type does not
// match the column it is written to.
func NewDatatypeMismatchError(columnName string, got, want *types.T) error {
	return pgerror.Newf(pgcode.DatatypeMismatch,
		"value type %s doesn't match type %s of column %q", got, want, columnName)
}

// NewUndefinedTableError creates an error that represents a missing table.
func NewUndefinedTableError(name string) error {
	return pgerror.Newf(pgcode.UndefinedTable, "relation %q does not exist", name)
}

// NewUndefinedTableIDError creates an error for a table ID that is absent
// from the schema version a statement was planned against.
func NewUndefinedTableIDError(id fmt.Stringer, version int64) error {
	return pgerror.Newf(pgcode.UndefinedTable,
		"relation [%s] does not exist in schema version %d", id, version)
}

// NewUndefinedColumnError creates an error that represents a missing column.
func NewUndefinedColumnError(name string) error {
	return pgerror.Newf(pgcode.UndefinedColumn, "column %q does not exist", name)
}

// NewUndefinedIndexError creates an error that represents a missing index.
func NewUndefinedIndexError(table, index string) error {
	return pgerror.Newf(pgcode.UndefinedObject, "index %q does not exist on table %q", index, table)
}

// NewRelationAlreadyExistsError creates an error for a preexisting relation.
func NewRelationAlreadyExistsError(name string) error {
	return pgerror.Newf(pgcode.DuplicateRelation, "relation %q already exists", name)
}

// NewColumnAlreadyExistsError creates an error for a preexisting column.
func NewColumnAlreadyExistsError(name, relation string) error {
	return pgerror.Newf(pgcode.DuplicateColumn, "column %q of relation %q already exists", name, relation)
}

// NewIndexAlreadyExistsError creates an error for a preexisting index.
func NewIndexAlreadyExistsError(name, relation string) error {
	return pgerror.Newf(pgcode.DuplicateRelation, "index %q already exists on relation %q", name, relation)
}

// NewInvalidTableDefinitionError creates an error for a table definition
// that cannot be accepted into the schema.
func NewInvalidTableDefinitionError(format string, args ...interface{}) error {
	return pgerror.WithCandidateCode(errors.NewWithDepthf(1, format, args...), pgcode.InvalidTableDefinition)
}

// NewInvalidSchemaDefinitionError creates an error for a schema whose group
// structure is inconsistent.
func NewInvalidSchemaDefinitionError(format string, args ...interface{}) error {
	return pgerror.WithCandidateCode(errors.NewWithDepthf(1, format, args...), pgcode.InvalidSchemaDefinition)
}

// NewDependentObjectsError creates an error for a drop that would leave
// dependent objects behind.
func NewDependentObjectsError(name, dependent string) error {
	return pgerror.Newf(pgcode.DependentObjectsStillExist,
		"cannot drop %q because %q depends on it", name, dependent)
}

// NewReadOnlyTableError creates an error for a write against a table whose
// rows are generated.
func NewReadOnlyTableError(name string) error {
	return pgerror.Newf(pgcode.WrongObjectType, "%q is a virtual table and cannot be modified", name)
}

// NewFeatureNotSupportedError creates an error for an unsupported operation.
func NewFeatureNotSupportedError(format string, args ...interface{}) error {
	return pgerror.WithCandidateCode(errors.NewWithDepthf(1, format, args...), pgcode.FeatureNotSupported)
}
