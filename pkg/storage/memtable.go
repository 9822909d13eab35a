// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package storage

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/roachpb"
	"github.com/cockroachdb/groupsql/pkg/util/syncutil"
	"github.com/google/btree"
)

// The degree of the memtable btrees.
const memTableBtreeDegree = 16

// iterChunkSize is the number of entries an iterator copies out of the tree
// at a time.
const iterChunkSize = 64

type memEntry struct {
	key roachpb.Key
	// value is nil for a tombstone.
	value []byte
}

// Less implements the btree.Item interface.
func (a *memEntry) Less(b btree.Item) bool {
	return a.key.Compare(b.(*memEntry).key) < 0
}

// MemTable is an ordered in-memory map from keys to values. A key may map to
// a tombstone, which records a deletion that must shadow an underlying
// store. A MemTable is not safe for concurrent mutation.
type MemTable struct {
	t     *btree.BTree
	bytes int64
}

// NewMemTable returns an empty MemTable.
func NewMemTable() *MemTable {
	return &MemTable{t: btree.New(memTableBtreeDegree)}
}

// Set maps key to a copy of value. A nil value writes a tombstone.
func (m *MemTable) Set(key roachpb.Key, value []byte) {
	e := &memEntry{key: append(roachpb.Key(nil), key...)}
	if value != nil {
		e.value = append(make([]byte, 0, len(value)), value...)
	}
	if old := m.t.ReplaceOrInsert(e); old != nil {
		m.bytes -= entrySize(old.(*memEntry))
	}
	m.bytes += entrySize(e)
}

// Remove drops key from the table entirely, leaving no tombstone.
func (m *MemTable) Remove(key roachpb.Key) {
	if old := m.t.Delete(&memEntry{key: key}); old != nil {
		m.bytes -= entrySize(old.(*memEntry))
	}
}

// Get returns the value of key. The second result is false if the table has
// no entry for key; a tombstone is returned as a nil value and true.
func (m *MemTable) Get(key roachpb.Key) ([]byte, bool) {
	item := m.t.Get(&memEntry{key: key})
	if item == nil {
		return nil, false
	}
	return item.(*memEntry).value, true
}

// Len returns the number of entries, tombstones included.
func (m *MemTable) Len() int { return m.t.Len() }

// Bytes returns the size of the keys and values held by the table.
func (m *MemTable) Bytes() int64 { return m.bytes }

// Clone returns a copy of the table. The copy shares structure with the
// original lazily; both can be mutated independently. Clone writes to the
// original's copy-on-write state and so counts as a mutation.
func (m *MemTable) Clone() *MemTable {
	return &MemTable{t: m.t.Clone(), bytes: m.bytes}
}

// Ascend calls f for every entry with a key in span, in key order, until f
// returns false.
func (m *MemTable) Ascend(span roachpb.Span, f func(key roachpb.Key, value []byte) bool) {
	fn := func(i btree.Item) bool {
		e := i.(*memEntry)
		return f(e.key, e.value)
	}
	switch {
	case span.Key == nil && span.EndKey == nil:
		m.t.Ascend(fn)
	case span.EndKey == nil:
		m.t.AscendGreaterOrEqual(&memEntry{key: span.Key}, fn)
	default:
		m.t.AscendRange(&memEntry{key: span.Key}, &memEntry{key: span.EndKey}, fn)
	}
}

// Descend calls f for every entry with a key in span, in reverse key order,
// until f returns false.
func (m *MemTable) Descend(span roachpb.Span, f func(key roachpb.Key, value []byte) bool) {
	fn := func(i btree.Item) bool {
		e := i.(*memEntry)
		if span.Key != nil && e.key.Compare(span.Key) < 0 {
			return false
		}
		if span.EndKey != nil && e.key.Compare(span.EndKey) >= 0 {
			return true
		}
		return f(e.key, e.value)
	}
	if span.EndKey == nil {
		m.t.Descend(fn)
		return
	}
	m.t.DescendLessOrEqual(&memEntry{key: span.EndKey}, fn)
}

// NewIterator returns an iterator over a frozen copy of the table. Tombstones
// are visited; MemIterator.IsTombstone tells them apart.
func (m *MemTable) NewIterator(opts IterOptions) *MemIterator {
	return &MemIterator{table: m.Clone(), opts: opts}
}

func entrySize(e *memEntry) int64 {
	return int64(len(e.key) + len(e.value))
}

// MemIterator iterates over a MemTable. It copies entries out of the tree in
// chunks so that it can be stepped without holding a callback open.
type MemIterator struct {
	table *MemTable
	opts  IterOptions

	chunk []memEntry
	pos   int
	// done is set once the tree has no entries past the current chunk.
	done bool
}

var _ Iterator = (*MemIterator)(nil)

// SeekStart implements Iterator.
func (i *MemIterator) SeekStart() {
	i.chunk, i.pos, i.done = i.chunk[:0], 0, false
	i.fill(roachpb.Span{Key: i.opts.LowerBound, EndKey: i.opts.UpperBound})
}

// fill loads the next chunk of entries within span.
func (i *MemIterator) fill(span roachpb.Span) {
	i.chunk, i.pos = i.chunk[:0], 0
	collect := func(key roachpb.Key, value []byte) bool {
		if len(i.chunk) == iterChunkSize {
			return false
		}
		i.chunk = append(i.chunk, memEntry{key: key, value: value})
		return true
	}
	if i.opts.Reverse {
		i.table.Descend(span, collect)
	} else {
		i.table.Ascend(span, collect)
	}
	i.done = len(i.chunk) < iterChunkSize
}

// Valid implements Iterator.
func (i *MemIterator) Valid() (bool, error) {
	if i.table == nil {
		return false, errors.AssertionFailedf("iterator used after Close")
	}
	return i.pos < len(i.chunk), nil
}

// Next implements Iterator.
func (i *MemIterator) Next() {
	i.pos++
	if i.pos < len(i.chunk) || i.done {
		return
	}
	last := i.chunk[len(i.chunk)-1].key
	if i.opts.Reverse {
		i.fill(roachpb.Span{Key: i.opts.LowerBound, EndKey: last})
	} else {
		i.fill(roachpb.Span{Key: last.Next(), EndKey: i.opts.UpperBound})
	}
}

// UnsafeKey implements Iterator.
func (i *MemIterator) UnsafeKey() roachpb.Key { return i.chunk[i.pos].key }

// UnsafeValue implements Iterator.
func (i *MemIterator) UnsafeValue() []byte { return i.chunk[i.pos].value }

// IsTombstone returns true if the current entry is a tombstone.
func (i *MemIterator) IsTombstone() bool { return i.chunk[i.pos].value == nil }

// Close implements Iterator.
func (i *MemIterator) Close() {
	i.table, i.chunk = nil, nil
}

// InMem is an Engine that keeps its data in a btree. It never holds
// tombstones: deletes remove keys outright.
type InMem struct {
	mu struct {
		syncutil.RWMutex
		data *MemTable
	}
}

var _ Engine = (*InMem)(nil)

// NewInMem returns an empty in-memory engine.
func NewInMem() *InMem {
	e := &InMem{}
	e.mu.data = NewMemTable()
	return e
}

// Kind implements Engine.
func (e *InMem) Kind() EngineKind { return EngineBTree }

// Get implements Reader.
func (e *InMem) Get(key roachpb.Key) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, _ := e.mu.data.Get(key)
	return v, nil
}

// NewIterator implements Reader.
func (e *InMem) NewIterator(opts IterOptions) (Iterator, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mu.data.NewIterator(opts), nil
}

// Close implements Reader.
func (e *InMem) Close() {}

// NewSnapshot implements Engine.
func (e *InMem) NewSnapshot() Reader {
	e.mu.Lock()
	defer e.mu.Unlock()
	return &memSnapshot{data: e.mu.data.Clone()}
}

// NewBatch implements Engine.
func (e *InMem) NewBatch() Batch {
	return &memBatch{engine: e}
}

// DiskUsage implements Engine.
func (e *InMem) DiskUsage() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return uint64(e.mu.data.Bytes())
}

type memSnapshot struct {
	data *MemTable
}

func (s *memSnapshot) Get(key roachpb.Key) ([]byte, error) {
	v, _ := s.data.Get(key)
	return v, nil
}

// NewIterator iterates over the snapshot directly: its table is never
// mutated once taken.
func (s *memSnapshot) NewIterator(opts IterOptions) (Iterator, error) {
	return &MemIterator{table: s.data, opts: opts}, nil
}

func (s *memSnapshot) Close() { s.data = nil }

type memBatch struct {
	engine    *InMem
	writes    []memEntry
	committed bool
}

func (b *memBatch) Put(key roachpb.Key, value []byte) error {
	b.writes = append(b.writes, memEntry{
		key:   append(roachpb.Key(nil), key...),
		value: append(make([]byte, 0, len(value)), value...),
	})
	return nil
}

func (b *memBatch) Delete(key roachpb.Key) error {
	b.writes = append(b.writes, memEntry{key: append(roachpb.Key(nil), key...)})
	return nil
}

func (b *memBatch) Len() int { return len(b.writes) }

func (b *memBatch) Commit() error {
	if b.committed {
		return errors.AssertionFailedf("batch already committed")
	}
	b.committed = true
	e := b.engine
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, w := range b.writes {
		if w.value == nil {
			e.mu.data.Remove(w.key)
		} else {
			e.mu.data.Set(w.key, w.value)
		}
	}
	return nil
}

func (b *memBatch) Close() { b.writes = nil }
