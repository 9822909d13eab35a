// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rowenc

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/keys"
	"github.com/cockroachdb/groupsql/pkg/roachpb"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc/keyside"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/types"
	"github.com/cockroachdb/groupsql/pkg/util/encoding"
)

// MakeGroupRowKey returns the key under which the row of t with the given
// encoded hkey is stored. Every table of a group shares the group's key
// space, so rows are ordered by hkey across tables.
func MakeGroupRowKey(t *catalog.Table, hkey []byte) roachpb.Key {
	return keys.MakeGroupRowKey(uint32(t.RootID), hkey)
}

// MakeGroupSpan returns the span of every row of g.
func MakeGroupSpan(g *catalog.Group) roachpb.Span {
	return roachpb.MakePrefixSpan(keys.MakeGroupPrefix(uint32(g.ID())))
}

// MakeSubtreeSpan returns the span of the rows stored at or below hkey.
func MakeSubtreeSpan(t *catalog.Table, hkey []byte) roachpb.Span {
	return roachpb.MakePrefixSpan(MakeGroupRowKey(t, hkey))
}

// EncodeRowValue encodes every column of a row into the value of its group
// row: the ascending key encodings of the values, concatenated.
func EncodeRowValue(typs []*types.T, datums tree.Datums) ([]byte, error) {
	if len(typs) != len(datums) {
		return nil, errors.AssertionFailedf("got %d values but expected %d", len(datums), len(typs))
	}
	var b []byte
	for i, d := range datums {
		if d != tree.DNull && !typs[i].Equivalent(d.ResolvedType()) {
			return nil, errors.AssertionFailedf("value %s is not of type %s", d, typs[i])
		}
		var err error
		if b, err = keyside.Encode(b, d, encoding.Ascending); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// DecodeRowValue splits a group row value into lazily decoded values.
func DecodeRowValue(typs []*types.T, value []byte) (EncDatumRow, error) {
	row := make(EncDatumRow, len(typs))
	for i := range typs {
		var err error
		if row[i], value, err = EncDatumFromBuffer(value); err != nil {
			return nil, errors.Wrapf(err, "decoding column %d", i)
		}
	}
	if len(value) != 0 {
		return nil, errors.Newf("%d trailing bytes in row value", len(value))
	}
	return row, nil
}

// IndexEntry is a key/value pair of an index. Every table has entries in its
// primary index, which map primary keys to hkeys, and in each secondary
// index.
type IndexEntry struct {
	Key   roachpb.Key
	Value []byte
}

// MakeIndexPrefix returns the key prefix of the entries of idx.
func MakeIndexPrefix(t *catalog.Table, idx *catalog.Index) roachpb.Key {
	return keys.MakeIndexPrefix(uint32(t.ID), uint32(idx.ID))
}

// MakeIndexSpan returns the span of every entry of idx.
func MakeIndexSpan(t *catalog.Table, idx *catalog.Index) roachpb.Span {
	return roachpb.MakePrefixSpan(MakeIndexPrefix(t, idx))
}

// EncodeIndexKeyPrefix encodes the leading index key values vals into a key
// prefix of idx. Fewer values than key columns may be given.
func EncodeIndexKeyPrefix(t *catalog.Table, idx *catalog.Index, vals tree.Datums) (roachpb.Key, error) {
	if len(vals) > len(idx.ColumnOrdinals) {
		return nil, errors.AssertionFailedf("index %s has %d columns, got %d values",
			idx.Name, len(idx.ColumnOrdinals), len(vals))
	}
	return keyside.EncodeDatums(MakeIndexPrefix(t, idx), vals, idx.Directions[:len(vals)])
}

// IndexEntryUnique returns true if the entry for the given key values is
// stored without the hkey suffix, so that a second row with equal values
// would collide. Entries of unique indexes are unique unless a key value is
// NULL.
func IndexEntryUnique(idx *catalog.Index, vals tree.Datums) bool {
	return idx.Unique && !vals.HasNull()
}

// EncodeIndexEntry encodes the entry of idx for the row with the given values
// and encoded hkey.
func EncodeIndexEntry(
	t *catalog.Table, idx *catalog.Index, values tree.Datums, hkey []byte,
) (IndexEntry, error) {
	vals := t.IndexValues(idx, values)
	key, err := EncodeIndexKeyPrefix(t, idx, vals)
	if err != nil {
		return IndexEntry{}, err
	}
	if !IndexEntryUnique(idx, vals) {
		key = append(key, hkey...)
	}
	return IndexEntry{Key: key, Value: append([]byte(nil), hkey...)}, nil
}

// EncodeIndexEntries encodes the entries of every index of t, primary index
// first, for one row.
func EncodeIndexEntries(t *catalog.Table, values tree.Datums, hkey []byte) ([]IndexEntry, error) {
	entries := make([]IndexEntry, 0, len(t.Indexes))
	for _, idx := range t.Indexes {
		e, err := EncodeIndexEntry(t, idx, values, hkey)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// DecodeIndexEntry decodes the key values of an index entry and returns them
// as an index row. The key and value are referenced by the row, not copied. The value of the entry is the hkey of the indexed row.
func DecodeIndexEntry(rt *RowType, key roachpb.Key, value []byte) (*Row, error) {
	idx := rt.Index
	tableID, indexID, rest, err := keys.DecodeIndexKeyPrefix(key)
	if err != nil {
		return nil, err
	}
	if catalog.TableID(tableID) != rt.Table.ID || catalog.IndexID(indexID) != idx.ID {
		return nil, errors.AssertionFailedf("key %s does not belong to index %s", keys.PrettyPrint(key), rt)
	}
	row := &Row{Type: rt, HKey: value, Values: make(EncDatumRow, len(idx.ColumnOrdinals))}
	for i, dir := range idx.Directions {
		if dir == encoding.Ascending {
			var n int
			if n, err = encoding.PeekLength(rest); err != nil {
				return nil, err
			}
			row.Values[i] = EncDatumFromEncoded(rest[:n])
			rest = rest[n:]
			continue
		}
		var d tree.Datum
		if d, rest, err = keyside.Decode(rt.Types[i], rest, dir); err != nil {
			return nil, errors.Wrapf(err, "decoding %s", rt)
		}
		row.Values[i] = EncDatum{Datum: d}
	}
	return row, nil
}
