// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package storeadapter

import (
	"bytes"
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/keys"
	"github.com/cockroachdb/groupsql/pkg/kv"
	"github.com/cockroachdb/groupsql/pkg/roachpb"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/execinfra"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/storage"
	"github.com/cockroachdb/groupsql/pkg/util/log"
)

// kvSource is the rowSource of stored tables. Rows of a group live under the
// group's key prefix, keyed by hkey; index entries live under the prefix of
// their index.
type kvSource struct {
	txn *kv.Txn
}

var _ rowSource = &kvSource{}

func (s *kvSource) groupCursor(g *catalog.Group, _ FlushFunc) (execinfra.Cursor, error) {
	c := &kvGroupCursor{
		txn:      s.txn,
		group:    g,
		span:     rowenc.MakeGroupSpan(g),
		rowTypes: make(map[catalog.TableID]*rowenc.RowType),
	}
	c.Init("group scan " + g.Name())
	return c, nil
}

// spanForRange returns the span of the entries of idx within r.
func spanForRange(t *catalog.Table, idx *catalog.Index, r IndexKeyRange) (roachpb.Span, error) {
	span := rowenc.MakeIndexSpan(t, idx)
	if r.Start != nil {
		prefix, err := rowenc.EncodeIndexKeyPrefix(t, idx, r.Start.Values)
		if err != nil {
			return roachpb.Span{}, err
		}
		if r.Start.Inclusive {
			span.Key = prefix
		} else {
			span.Key = prefix.PrefixEnd()
		}
	}
	if r.End != nil {
		prefix, err := rowenc.EncodeIndexKeyPrefix(t, idx, r.End.Values)
		if err != nil {
			return roachpb.Span{}, err
		}
		if r.End.Inclusive {
			span.EndKey = prefix.PrefixEnd()
		} else {
			span.EndKey = prefix
		}
	}
	return span, nil
}

func (s *kvSource) indexCursor(
	rt *rowenc.RowType, r IndexKeyRange, o Ordering,
) (execinfra.Cursor, error) {
	span, err := spanForRange(rt.Table, rt.Index, r)
	if err != nil {
		return nil, err
	}
	c := &kvIndexCursor{txn: s.txn, rt: rt, span: span, reverse: o == Reverse}
	c.Init("index scan " + rt.String())
	return c, nil
}

func (s *kvSource) lookupRow(
	ctx context.Context, t *catalog.Table, hkey []byte,
) (*rowenc.Row, error) {
	owner, err := rowenc.TableForHKey(t.Group(), hkey)
	if err != nil {
		return nil, err
	}
	if owner.ID != t.ID {
		return nil, errors.AssertionFailedf("hkey of a %s row used to look up %s", owner.Name, t.Name)
	}
	value, err := s.txn.Get(ctx, rowenc.MakeGroupRowKey(t, hkey))
	if err != nil || value == nil {
		return nil, err
	}
	vals, err := rowenc.DecodeRowValue(t.ColumnTypes(), value)
	if err != nil {
		return nil, err
	}
	return &rowenc.Row{
		Type:   rowenc.NewTableRowType(t),
		HKey:   append([]byte(nil), hkey...),
		Values: vals,
	}, nil
}

// locate returns the encoded hkey of the row of t with the given primary
// key, or nil.
func (s *kvSource) locate(ctx context.Context, t *catalog.Table, pk tree.Datums) ([]byte, error) {
	key, err := rowenc.EncodeIndexKeyPrefix(t, t.PrimaryIndex(), pk)
	if err != nil {
		return nil, err
	}
	return s.txn.Get(ctx, key)
}

func (s *kvSource) lookupByPrimaryKey(
	ctx context.Context, t *catalog.Table, pk tree.Datums,
) (*rowenc.Row, error) {
	if pk.HasNull() {
		return nil, nil
	}
	hkey, err := s.locate(ctx, t, pk)
	if err != nil || hkey == nil {
		return nil, err
	}
	return s.lookupRow(ctx, t, hkey)
}

// kvGroupCursor iterates over the group rows of one group, in hkey order.
type kvGroupCursor struct {
	execinfra.Lifecycle
	txn   *kv.Txn
	group *catalog.Group
	span  roachpb.Span
	// rowTypes caches the row type of each table of the group.
	rowTypes map[catalog.TableID]*rowenc.RowType
	iter     storage.Iterator
}

var _ execinfra.Cursor = &kvGroupCursor{}

func (c *kvGroupCursor) Open(ctx context.Context) error {
	if err := c.StartOpen(); err != nil {
		return err
	}
	iter, err := c.txn.NewIterator(c.span, false /* reverse */)
	if err != nil {
		c.Finish()
		return err
	}
	log.VEventf(ctx, 2, "Scan %s", c.span)
	iter.SeekStart()
	c.iter = iter
	return nil
}

func (c *kvGroupCursor) Next(ctx context.Context) (*rowenc.Row, error) {
	if err := c.CheckNext(); err != nil {
		return nil, err
	}
	ok, err := c.iter.Valid()
	if err != nil || !ok {
		c.Close(ctx)
		return nil, err
	}
	row, err := c.decode(c.iter.UnsafeKey(), c.iter.UnsafeValue())
	if err != nil {
		c.Close(ctx)
		return nil, err
	}
	c.iter.Next()
	c.Advance()
	return row, nil
}

func (c *kvGroupCursor) decode(key roachpb.Key, value []byte) (*rowenc.Row, error) {
	_, hkey, err := keys.DecodeGroupRowKey(key)
	if err != nil {
		return nil, err
	}
	t, err := rowenc.TableForHKey(c.group, hkey)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding row key %s", keys.PrettyPrint(key))
	}
	rt, ok := c.rowTypes[t.ID]
	if !ok {
		rt = rowenc.NewTableRowType(t)
		c.rowTypes[t.ID] = rt
	}
	vals, err := rowenc.DecodeRowValue(rt.Types, append([]byte(nil), value...))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding row %s", keys.PrettyPrint(key))
	}
	return &rowenc.Row{Type: rt, HKey: append([]byte(nil), hkey...), Values: vals}, nil
}

func (c *kvGroupCursor) Close(context.Context) {
	if c.Finish() && c.iter != nil {
		c.iter.Close()
		c.iter = nil
	}
}

// kvIndexCursor iterates over the entries of one index within a span.
type kvIndexCursor struct {
	execinfra.Lifecycle
	txn     *kv.Txn
	rt      *rowenc.RowType
	span    roachpb.Span
	reverse bool
	iter    storage.Iterator
}

var _ execinfra.Cursor = &kvIndexCursor{}

func (c *kvIndexCursor) Open(ctx context.Context) error {
	if err := c.StartOpen(); err != nil {
		return err
	}
	iter, err := c.txn.NewIterator(c.span, c.reverse)
	if err != nil {
		c.Finish()
		return err
	}
	if c.reverse {
		log.VEventf(ctx, 2, "ReverseScan %s", c.span)
	} else {
		log.VEventf(ctx, 2, "Scan %s", c.span)
	}
	iter.SeekStart()
	c.iter = iter
	return nil
}

func (c *kvIndexCursor) Next(ctx context.Context) (*rowenc.Row, error) {
	if err := c.CheckNext(); err != nil {
		return nil, err
	}
	ok, err := c.iter.Valid()
	if err != nil || !ok {
		c.Close(ctx)
		return nil, err
	}
	key := append(roachpb.Key(nil), c.iter.UnsafeKey()...)
	value := append([]byte(nil), c.iter.UnsafeValue()...)
	row, err := rowenc.DecodeIndexEntry(c.rt, key, value)
	if err != nil {
		c.Close(ctx)
		return nil, err
	}
	c.iter.Next()
	c.Advance()
	return row, nil
}

func (c *kvIndexCursor) Close(context.Context) {
	if c.Finish() && c.iter != nil {
		c.iter.Close()
		c.iter = nil
	}
}

// subtreeRow is a stored row read during a relocation.
type subtreeRow struct {
	table *catalog.Table
	hkey  []byte
	vals  tree.Datums
}

// readSubtree returns the rows stored strictly below hkey, in hkey order.
func (s *kvSource) readSubtree(
	ctx context.Context, t *catalog.Table, hkey []byte,
) ([]subtreeRow, error) {
	g := t.Group()
	iter, err := s.txn.NewIterator(rowenc.MakeSubtreeSpan(t, hkey), false /* reverse */)
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var rows []subtreeRow
	for iter.SeekStart(); ; iter.Next() {
		ok, err := iter.Valid()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		_, h, err := keys.DecodeGroupRowKey(iter.UnsafeKey())
		if err != nil {
			return nil, err
		}
		if bytes.Equal(h, hkey) {
			continue
		}
		rt, err := rowenc.TableForHKey(g, h)
		if err != nil {
			return nil, err
		}
		encRow, err := rowenc.DecodeRowValue(rt.ColumnTypes(), append([]byte(nil), iter.UnsafeValue()...))
		if err != nil {
			return nil, err
		}
		vals, err := encRow.Datums(rt.ColumnTypes())
		if err != nil {
			return nil, err
		}
		rows = append(rows, subtreeRow{table: rt, hkey: append([]byte(nil), h...), vals: vals})
	}
}

// hasDescendants returns true if any row is stored strictly below hkey.
func (s *kvSource) hasDescendants(ctx context.Context, t *catalog.Table, hkey []byte) (bool, error) {
	span := rowenc.MakeSubtreeSpan(t, hkey)
	// The row itself is the first key of its subtree span.
	span.Key = span.Key.Next()
	iter, err := s.txn.NewIterator(span, false /* reverse */)
	if err != nil {
		return false, err
	}
	defer iter.Close()
	iter.SeekStart()
	return iter.Valid()
}
