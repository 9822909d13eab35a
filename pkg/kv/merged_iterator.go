// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package kv

import (
	"bytes"

	"github.com/cockroachdb/groupsql/pkg/roachpb"
	"github.com/cockroachdb/groupsql/pkg/storage"
)

// mergedIterator overlays a transaction's buffered writes on a snapshot
// iterator. Where both hold a key the buffered write wins, and buffered
// tombstones hide the keys they delete.
type mergedIterator struct {
	base    storage.Iterator
	buf     *storage.MemIterator
	reverse bool

	baseOK, bufOK bool
	// onBuf is set when the iterator is positioned on a buffered write.
	onBuf bool
	err   error
}

var _ storage.Iterator = (*mergedIterator)(nil)

func newMergedIterator(
	base storage.Iterator, buf *storage.MemIterator, reverse bool,
) *mergedIterator {
	return &mergedIterator{base: base, buf: buf, reverse: reverse}
}

func (m *mergedIterator) SeekStart() {
	m.err = nil
	m.base.SeekStart()
	m.buf.SeekStart()
	m.settle()
}

// settle positions the iterator on the next visible key, stepping past
// tombstones and past snapshot keys shadowed by buffered writes.
func (m *mergedIterator) settle() {
	for {
		if m.baseOK, m.err = m.base.Valid(); m.err != nil {
			return
		}
		if m.bufOK, m.err = m.buf.Valid(); m.err != nil {
			return
		}
		if !m.bufOK {
			m.onBuf = false
			return
		}
		if m.baseOK {
			c := bytes.Compare(m.buf.UnsafeKey(), m.base.UnsafeKey())
			if m.reverse {
				c = -c
			}
			if c > 0 {
				m.onBuf = false
				return
			}
			if c == 0 {
				m.base.Next()
				if m.baseOK, m.err = m.base.Valid(); m.err != nil {
					return
				}
			}
		}
		if !m.buf.IsTombstone() {
			m.onBuf = true
			return
		}
		m.buf.Next()
	}
}

func (m *mergedIterator) Valid() (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.baseOK || m.bufOK, nil
}

func (m *mergedIterator) Next() {
	if m.onBuf {
		m.buf.Next()
	} else {
		m.base.Next()
	}
	m.settle()
}

func (m *mergedIterator) UnsafeKey() roachpb.Key {
	if m.onBuf {
		return m.buf.UnsafeKey()
	}
	return m.base.UnsafeKey()
}

func (m *mergedIterator) UnsafeValue() []byte {
	if m.onBuf {
		return m.buf.UnsafeValue()
	}
	return m.base.UnsafeValue()
}

func (m *mergedIterator) Close() {
	m.base.Close()
	m.buf.Close()
}
