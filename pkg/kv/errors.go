// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package kv

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/keys"
	"github.com/cockroachdb/groupsql/pkg/roachpb"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgerror"
	"github.com/google/uuid"
)

// ErrTxnFinished is returned by operations on a transaction that has already
// committed or rolled back.
var ErrTxnFinished = errors.New("transaction already finished")

// ErrAutoRetryLimitExhausted is returned by DB.Txn when a transaction keeps
// failing with retryable errors.
var ErrAutoRetryLimitExhausted = errors.New("retry limit exhausted")

// TransactionRetryError is returned by Commit when a key written by the
// transaction was committed by another transaction after this one started.
// The transaction has been rolled back and can be run again from the start.
type TransactionRetryError struct {
	TxnID uuid.UUID
	Key   roachpb.Key
}

func (e *TransactionRetryError) Error() string {
	return fmt.Sprintf("restart transaction: TransactionRetryError: write conflict on key %s (txn %s)",
		keys.PrettyPrint(e.Key), e.TxnID.String()[:8])
}

func newTransactionRetryError(txnID uuid.UUID, key roachpb.Key) error {
	return pgerror.WithCandidateCode(
		&TransactionRetryError{TxnID: txnID, Key: append(roachpb.Key(nil), key...)},
		pgcode.SerializationFailure)
}

// IsRetryable returns true if err indicates that the transaction failed on a
// conflict and can be retried.
func IsRetryable(err error) bool {
	return errors.HasType(err, (*TransactionRetryError)(nil))
}
