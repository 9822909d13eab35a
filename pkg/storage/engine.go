// Copyright 2014 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package storage provides ordered key-value engines. An Engine exposes
// point reads, ordered range iteration, consistent snapshots and atomic
// batches of puts and deletes; transactions are layered on top by package kv.
package storage

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/roachpb"
)

// IterOptions bounds an iterator. LowerBound is inclusive and UpperBound is
// exclusive; nil bounds are open. A Reverse iterator visits keys from the
// upper bound down.
type IterOptions struct {
	LowerBound roachpb.Key
	UpperBound roachpb.Key
	Reverse    bool
}

// SpanOptions returns the options iterating over a span.
func SpanOptions(span roachpb.Span, reverse bool) IterOptions {
	return IterOptions{LowerBound: span.Key, UpperBound: span.EndKey, Reverse: reverse}
}

// Iterator walks the keys of a Reader in order. The slices returned by
// UnsafeKey and UnsafeValue are only valid until the next call to Next,
// SeekStart or Close.
type Iterator interface {
	// SeekStart positions the iterator at the first key in its direction.
	SeekStart()
	// Valid returns true if the iterator is positioned at a key, or an
	// error if the iteration failed.
	Valid() (bool, error)
	// Next advances the iterator in its direction.
	Next()
	// UnsafeKey returns the current key.
	UnsafeKey() roachpb.Key
	// UnsafeValue returns the current value.
	UnsafeValue() []byte
	// Close releases the iterator.
	Close()
}

// Reader is the read interface to an engine's data.
type Reader interface {
	// Get returns the value for key, or nil if the key is absent.
	Get(key roachpb.Key) ([]byte, error)
	// NewIterator returns an iterator over the keys within the bounds.
	NewIterator(opts IterOptions) (Iterator, error)
	// Close releases the reader. Closing an engine closes the store.
	Close()
}

// Writer is the write interface to an engine's data.
type Writer interface {
	// Put sets the value for key.
	Put(key roachpb.Key, value []byte) error
	// Delete removes key.
	Delete(key roachpb.Key) error
}

// Batch accumulates writes that are applied atomically by Commit.
type Batch interface {
	Writer
	// Commit applies the writes. A batch cannot be reused after Commit.
	Commit() error
	// Len returns the number of writes in the batch.
	Len() int
	// Close releases the batch without applying it if it was not committed.
	Close()
}

// Engine is an ordered key-value store.
type Engine interface {
	Reader
	// NewBatch returns a batch of writes against the engine.
	NewBatch() Batch
	// NewSnapshot returns a consistent view of the engine at the time of the
	// call, unaffected by later writes.
	NewSnapshot() Reader
	// DiskUsage returns the approximate number of bytes held by the engine.
	DiskUsage() uint64
	// Kind returns the engine kind.
	Kind() EngineKind
}

// EngineKind selects an Engine implementation.
type EngineKind int

const (
	// EnginePebble is the pebble LSM engine.
	EnginePebble EngineKind = iota
	// EngineBTree is an in-memory btree engine.
	EngineBTree
)

func (k EngineKind) String() string {
	switch k {
	case EnginePebble:
		return "pebble"
	case EngineBTree:
		return "btree"
	}
	return "unknown"
}

// ParseEngineKind parses an engine kind name.
func ParseEngineKind(s string) (EngineKind, error) {
	switch strings.ToLower(s) {
	case "pebble":
		return EnginePebble, nil
	case "btree", "memory":
		return EngineBTree, nil
	}
	return 0, errors.Newf("unknown engine %q", s)
}

// Config configures Open.
type Config struct {
	Kind EngineKind
	// Dir is the directory of a persistent pebble store. An empty Dir, or
	// InMemory, keeps the data in memory.
	Dir      string
	InMemory bool
	// CacheSize is the pebble block cache size in bytes.
	CacheSize int64
}

// Open opens an engine.
func Open(ctx context.Context, cfg Config) (Engine, error) {
	switch cfg.Kind {
	case EnginePebble:
		return NewPebble(ctx, cfg)
	case EngineBTree:
		if cfg.Dir != "" && !cfg.InMemory {
			return nil, errors.Newf("the %s engine cannot persist to %q", cfg.Kind, cfg.Dir)
		}
		return NewInMem(), nil
	}
	return nil, errors.AssertionFailedf("unknown engine kind %d", cfg.Kind)
}

// Scan returns up to max key/value pairs within span, copying them out of
// the reader. A max of zero means no limit.
func Scan(r Reader, span roachpb.Span, max int) ([]KeyValue, error) {
	iter, err := r.NewIterator(SpanOptions(span, false))
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var res []KeyValue
	for iter.SeekStart(); ; iter.Next() {
		ok, err := iter.Valid()
		if err != nil {
			return nil, err
		}
		if !ok || (max > 0 && len(res) >= max) {
			break
		}
		res = append(res, KeyValue{
			Key:   append(roachpb.Key(nil), iter.UnsafeKey()...),
			Value: append([]byte(nil), iter.UnsafeValue()...),
		})
	}
	return res, nil
}

// KeyValue is a key and its value.
type KeyValue struct {
	Key   roachpb.Key
	Value []byte
}
