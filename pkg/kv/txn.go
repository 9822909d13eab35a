// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package kv

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/keys"
	"github.com/cockroachdb/groupsql/pkg/roachpb"
	"github.com/cockroachdb/groupsql/pkg/storage"
	"github.com/cockroachdb/groupsql/pkg/util/log"
	"github.com/cockroachdb/logtags"
	"github.com/google/uuid"
)

type txnStatus int

const (
	pending txnStatus = iota
	committed
	aborted
)

func (s txnStatus) String() string {
	switch s {
	case pending:
		return "PENDING"
	case committed:
		return "COMMITTED"
	}
	return "ABORTED"
}

// Txn is an open transaction. Reads observe the snapshot taken when the
// transaction started together with the transaction's own writes. A Txn is
// not safe for concurrent use.
type Txn struct {
	db       *DB
	id       uuid.UUID
	startSeq uint64
	snap     storage.Reader
	writes   *storage.MemTable
	status   txnStatus
	start    time.Time

	// commitTriggers are run upon successful commit.
	commitTriggers []func(ctx context.Context)
}

// ID returns the transaction's ID.
func (txn *Txn) ID() uuid.UUID { return txn.id }

// AnnotateCtx adds the transaction's ID to the log tags of ctx.
func (txn *Txn) AnnotateCtx(ctx context.Context) context.Context {
	return logtags.AddTag(ctx, "txn", txn.id.String()[:8])
}

// IsFinalized returns true once the transaction has committed or rolled back.
func (txn *Txn) IsFinalized() bool { return txn.status != pending }

// IsCommitted returns true if the transaction committed.
func (txn *Txn) IsCommitted() bool { return txn.status == committed }

func (txn *Txn) checkPending() error {
	if txn.status != pending {
		return errors.Wrapf(ErrTxnFinished, "txn %s is %s", txn.id.String()[:8], txn.status)
	}
	return nil
}

// Get returns the value of key, or nil if the key is absent.
func (txn *Txn) Get(ctx context.Context, key roachpb.Key) ([]byte, error) {
	if err := txn.checkPending(); err != nil {
		return nil, err
	}
	if v, ok := txn.writes.Get(key); ok {
		return v, nil
	}
	return txn.snap.Get(key)
}

// Put sets the value of key. The write is visible to the transaction's own
// reads immediately and to other transactions once it commits.
func (txn *Txn) Put(ctx context.Context, key roachpb.Key, value []byte) error {
	if err := txn.checkPending(); err != nil {
		return err
	}
	if value == nil {
		value = []byte{}
	}
	if log.V(3) {
		log.VEventf(ctx, 3, "Put %s", keys.PrettyPrint(key))
	}
	txn.writes.Set(key, value)
	return nil
}

// Del deletes key.
func (txn *Txn) Del(ctx context.Context, key roachpb.Key) error {
	if err := txn.checkPending(); err != nil {
		return err
	}
	if log.V(3) {
		log.VEventf(ctx, 3, "Del %s", keys.PrettyPrint(key))
	}
	txn.writes.Set(key, nil)
	return nil
}

// DelRange deletes every key in span and returns the number of keys deleted.
func (txn *Txn) DelRange(ctx context.Context, span roachpb.Span) (int, error) {
	iter, err := txn.NewIterator(span, false)
	if err != nil {
		return 0, err
	}
	var toDelete []roachpb.Key
	for iter.SeekStart(); ; iter.Next() {
		ok, err := iter.Valid()
		if err != nil {
			iter.Close()
			return 0, err
		}
		if !ok {
			break
		}
		toDelete = append(toDelete, append(roachpb.Key(nil), iter.UnsafeKey()...))
	}
	iter.Close()
	for _, k := range toDelete {
		if err := txn.Del(ctx, k); err != nil {
			return 0, err
		}
	}
	return len(toDelete), nil
}

// NewIterator returns an iterator over the keys of span as seen by the
// transaction. The iterator reads a frozen copy of the write buffer, so
// writes made while it is open are not visible to it.
func (txn *Txn) NewIterator(span roachpb.Span, reverse bool) (storage.Iterator, error) {
	if err := txn.checkPending(); err != nil {
		return nil, err
	}
	opts := storage.SpanOptions(span, reverse)
	base, err := txn.snap.NewIterator(opts)
	if err != nil {
		return nil, err
	}
	return newMergedIterator(base, txn.writes.NewIterator(opts), reverse), nil
}

// AddCommitTrigger adds a closure to be executed on successful commit.
func (txn *Txn) AddCommitTrigger(trigger func(ctx context.Context)) {
	txn.commitTriggers = append(txn.commitTriggers, trigger)
}

// Commit applies the transaction's writes. If another transaction committed
// a write to one of the same keys after this transaction started, Commit
// fails with a TransactionRetryError and the transaction is rolled back.
func (txn *Txn) Commit(ctx context.Context) error {
	if err := txn.checkPending(); err != nil {
		return err
	}
	if err := txn.db.commit(txn); err != nil {
		txn.finish(aborted)
		txn.db.metrics.Aborts.Inc()
		log.VEventf(ctx, 2, "commit failed: %v", err)
		return err
	}
	txn.finish(committed)
	txn.db.metrics.Commits.Inc()
	txn.db.metrics.Durations.Observe(time.Since(txn.start).Seconds())
	for _, t := range txn.commitTriggers {
		t(ctx)
	}
	return nil
}

// Rollback discards the transaction's writes. Rolling back a finished
// transaction is a no-op.
func (txn *Txn) Rollback(ctx context.Context) {
	if txn.status != pending {
		return
	}
	txn.finish(aborted)
	txn.db.release(txn)
	txn.db.metrics.Aborts.Inc()
	log.VEventf(ctx, 2, "rolled back")
}

func (txn *Txn) finish(s txnStatus) {
	txn.status = s
	txn.snap.Close()
	txn.writes = storage.NewMemTable()
}
