// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package kv layers serializable-snapshot transactions over a storage
// engine. Every transaction reads from a snapshot taken when it starts and
// buffers its writes until Commit. Write-write conflicts are resolved by
// first-committer-wins: a transaction whose writes overlap keys committed
// after it started fails with a retryable TransactionRetryError.
package kv

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/roachpb"
	"github.com/cockroachdb/groupsql/pkg/storage"
	"github.com/cockroachdb/groupsql/pkg/util/log"
	"github.com/cockroachdb/groupsql/pkg/util/syncutil"
	"github.com/google/uuid"
)

// DefaultMaxRetries is the number of times DB.Txn reruns a transaction
// that failed with a retryable error.
const DefaultMaxRetries = 100

// rootSpan covers every key.
var rootSpan = roachpb.Span{}

// DB is a transactional database over a storage engine.
type DB struct {
	eng     storage.Engine
	metrics *Metrics

	// MaxRetries bounds the automatic retries of DB.Txn.
	MaxRetries int

	mu struct {
		syncutil.Mutex
		// seq is the sequence number of the last commit.
		seq uint64
		// lastWrite maps a key to the sequence number of the last commit that
		// wrote it. Entries older than every active transaction are pruned.
		lastWrite map[string]uint64
		// active counts the open transactions by start sequence number.
		active map[uint64]int
	}
}

// restartWarnEvery rate limits the warnings about transactions that keep
// conflicting.
var restartWarnEvery = log.Every(10 * time.Second)

// NewDB returns a DB over eng. A nil metrics uses unregistered counters.
func NewDB(eng storage.Engine, metrics *Metrics) *DB {
	if metrics == nil {
		metrics = MakeMetrics(nil)
	}
	db := &DB{eng: eng, metrics: metrics, MaxRetries: DefaultMaxRetries}
	db.mu.lastWrite = map[string]uint64{}
	db.mu.active = map[uint64]int{}
	return db
}

// Engine returns the underlying storage engine.
func (db *DB) Engine() storage.Engine { return db.eng }

// Metrics returns the transaction metrics.
func (db *DB) Metrics() *Metrics { return db.metrics }

// NewTxn starts a transaction. The caller must finish it with Commit or
// Rollback.
func (db *DB) NewTxn(ctx context.Context) *Txn {
	db.mu.Lock()
	defer db.mu.Unlock()
	txn := &Txn{
		db:       db,
		id:       uuid.New(),
		startSeq: db.mu.seq,
		snap:     db.eng.NewSnapshot(),
		writes:   storage.NewMemTable(),
		start:    time.Now(),
	}
	db.mu.active[txn.startSeq]++
	log.VEventf(txn.AnnotateCtx(ctx), 2, "began transaction at seq %d", txn.startSeq)
	return txn
}

// Txn runs fn in a transaction and commits it if fn returns nil. If fn or the
// commit fails with a retryable error, the transaction is rolled back and fn
// runs again in a new transaction, up to MaxRetries times. Any other error
// rolls the transaction back and is returned.
func (db *DB) Txn(ctx context.Context, fn func(context.Context, *Txn) error) error {
	backoff := time.Millisecond
	const maxBackoff = 50 * time.Millisecond
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "txn exec")
		}
		txn := db.NewTxn(ctx)
		txnCtx := txn.AnnotateCtx(ctx)
		err := fn(txnCtx, txn)
		if err == nil && !txn.IsFinalized() {
			err = txn.Commit(txnCtx)
		}
		if err == nil {
			return nil
		}
		txn.Rollback(txnCtx)
		if !IsRetryable(err) {
			return err
		}
		if attempt >= db.MaxRetries {
			return errors.Wrapf(errors.Mark(err, ErrAutoRetryLimitExhausted),
				"giving up after %d attempts", attempt+1)
		}
		db.metrics.Restarts.Inc()
		log.VEventf(txnCtx, 1, "retrying transaction after: %v", err)
		if attempt > 0 && restartWarnEvery.ShouldLog() {
			log.Warningf(txnCtx, "transaction restarted %d times, last after: %v", attempt+1, err)
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "txn exec")
		}
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// commit validates and applies the writes of txn. It is called with the
// transaction's write buffer frozen.
func (db *DB) commit(txn *Txn) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	defer db.releaseLocked(txn)

	if txn.writes.Len() == 0 {
		return nil
	}
	var conflict error
	txn.writes.Ascend(rootSpan, func(key roachpb.Key, _ []byte) bool {
		if seq, ok := db.mu.lastWrite[string(key)]; ok && seq > txn.startSeq {
			conflict = newTransactionRetryError(txn.id, key)
			return false
		}
		return true
	})
	if conflict != nil {
		return conflict
	}

	b := db.eng.NewBatch()
	defer b.Close()
	var err error
	txn.writes.Ascend(rootSpan, func(key roachpb.Key, value []byte) bool {
		if value == nil {
			err = b.Delete(key)
		} else {
			err = b.Put(key, value)
		}
		return err == nil
	})
	if err != nil {
		return err
	}
	if err := b.Commit(); err != nil {
		return errors.Wrap(err, "applying transaction writes")
	}
	db.mu.seq++
	txn.writes.Ascend(rootSpan, func(key roachpb.Key, _ []byte) bool {
		db.mu.lastWrite[string(key)] = db.mu.seq
		return true
	})
	return nil
}

// release forgets an open transaction.
func (db *DB) release(txn *Txn) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.releaseLocked(txn)
}

func (db *DB) releaseLocked(txn *Txn) {
	db.mu.AssertHeld()
	if n := db.mu.active[txn.startSeq]; n > 1 {
		db.mu.active[txn.startSeq] = n - 1
	} else {
		delete(db.mu.active, txn.startSeq)
	}
	db.pruneLocked()
}

// pruneLocked drops the lastWrite entries that no open transaction can
// conflict with: those committed at or before the oldest active start.
func (db *DB) pruneLocked() {
	if len(db.mu.active) == 0 {
		if len(db.mu.lastWrite) > 0 {
			db.mu.lastWrite = map[string]uint64{}
		}
		return
	}
	oldest := db.mu.seq
	for seq := range db.mu.active {
		if seq < oldest {
			oldest = seq
		}
	}
	for k, seq := range db.mu.lastWrite {
		if seq <= oldest {
			delete(db.mu.lastWrite, k)
		}
	}
}
