// Copyright 2019 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/roachpb"
	"github.com/cockroachdb/groupsql/pkg/util/log"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

const defaultCacheSize = 8 << 20

// pebbleLogger routes pebble's event logging to the log package.
type pebbleLogger struct {
	ctx   context.Context
	depth int
}

var _ pebble.Logger = pebbleLogger{}

func (l pebbleLogger) Infof(format string, args ...interface{}) {
	log.InfofDepth(l.ctx, l.depth, format, args...)
}

func (l pebbleLogger) Errorf(format string, args ...interface{}) {
	log.ErrorfDepth(l.ctx, l.depth, format, args...)
}

func (l pebbleLogger) Fatalf(format string, args ...interface{}) {
	log.FatalfDepth(l.ctx, l.depth, format, args...)
}

// Pebble is an Engine backed by a pebble database.
type Pebble struct {
	db  *pebble.DB
	dir string
}

var _ Engine = (*Pebble)(nil)

// NewPebble opens a pebble engine. The store lives in memory unless cfg names
// a directory.
func NewPebble(ctx context.Context, cfg Config) (*Pebble, error) {
	cacheSize := cfg.CacheSize
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache := pebble.NewCache(cacheSize)
	defer cache.Unref()
	opts := &pebble.Options{
		Cache:  cache,
		Logger: pebbleLogger{ctx: ctx, depth: 1},
	}
	dir := cfg.Dir
	if cfg.InMemory || dir == "" {
		opts.FS = vfs.NewMem()
		dir = ""
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening pebble store in %q", dir)
	}
	log.VEventf(ctx, 1, "opened pebble store (dir=%q)", dir)
	return &Pebble{db: db, dir: dir}, nil
}

// Kind implements Engine.
func (p *Pebble) Kind() EngineKind { return EnginePebble }

// Get implements Reader.
func (p *Pebble) Get(key roachpb.Key) ([]byte, error) {
	return pebbleGet(p.db, key)
}

// NewIterator implements Reader.
func (p *Pebble) NewIterator(opts IterOptions) (Iterator, error) {
	return newPebbleIterator(p.db, opts)
}

// Close implements Reader.
func (p *Pebble) Close() {
	if err := p.db.Close(); err != nil {
		log.Errorf(context.Background(), "closing pebble store: %v", err)
	}
}

// NewBatch implements Engine.
func (p *Pebble) NewBatch() Batch {
	return &pebbleBatch{batch: p.db.NewBatch()}
}

// NewSnapshot implements Engine.
func (p *Pebble) NewSnapshot() Reader {
	return &pebbleSnapshot{snap: p.db.NewSnapshot()}
}

// DiskUsage implements Engine.
func (p *Pebble) DiskUsage() uint64 {
	return p.db.Metrics().DiskSpaceUsage()
}

func (p *Pebble) String() string {
	if p.dir == "" {
		return "pebble(in-memory)"
	}
	return fmt.Sprintf("pebble(%s)", p.dir)
}

type pebbleReader interface {
	Get(key []byte) ([]byte, io.Closer, error)
	NewIter(o *pebble.IterOptions) (*pebble.Iterator, error)
}

func pebbleGet(r pebbleReader, key roachpb.Key) ([]byte, error) {
	val, closer, err := r.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	defer func() { _ = closer.Close() }()
	return append([]byte(nil), val...), nil
}

type pebbleSnapshot struct {
	snap *pebble.Snapshot
}

func (s *pebbleSnapshot) Get(key roachpb.Key) ([]byte, error) {
	return pebbleGet(s.snap, key)
}

func (s *pebbleSnapshot) NewIterator(opts IterOptions) (Iterator, error) {
	return newPebbleIterator(s.snap, opts)
}

func (s *pebbleSnapshot) Close() {
	_ = s.snap.Close()
}

type pebbleBatch struct {
	batch     *pebble.Batch
	committed bool
}

func (b *pebbleBatch) Put(key roachpb.Key, value []byte) error {
	return b.batch.Set(key, value, nil)
}

func (b *pebbleBatch) Delete(key roachpb.Key) error {
	return b.batch.Delete(key, nil)
}

func (b *pebbleBatch) Len() int { return int(b.batch.Count()) }

func (b *pebbleBatch) Commit() error {
	if b.committed {
		return errors.AssertionFailedf("batch already committed")
	}
	b.committed = true
	return b.batch.Commit(pebble.Sync)
}

func (b *pebbleBatch) Close() {
	_ = b.batch.Close()
}

type pebbleIterator struct {
	iter    *pebble.Iterator
	reverse bool
	valid   bool
}

func newPebbleIterator(r pebbleReader, opts IterOptions) (*pebbleIterator, error) {
	iter, err := r.NewIter(&pebble.IterOptions{
		LowerBound: opts.LowerBound,
		UpperBound: opts.UpperBound,
	})
	if err != nil {
		return nil, err
	}
	return &pebbleIterator{iter: iter, reverse: opts.Reverse}, nil
}

func (i *pebbleIterator) SeekStart() {
	if i.reverse {
		i.valid = i.iter.Last()
	} else {
		i.valid = i.iter.First()
	}
}

func (i *pebbleIterator) Valid() (bool, error) {
	if err := i.iter.Error(); err != nil {
		return false, err
	}
	return i.valid, nil
}

func (i *pebbleIterator) Next() {
	if i.reverse {
		i.valid = i.iter.Prev()
	} else {
		i.valid = i.iter.Next()
	}
}

func (i *pebbleIterator) UnsafeKey() roachpb.Key { return i.iter.Key() }

func (i *pebbleIterator) UnsafeValue() []byte { return i.iter.Value() }

func (i *pebbleIterator) Close() {
	_ = i.iter.Close()
}
