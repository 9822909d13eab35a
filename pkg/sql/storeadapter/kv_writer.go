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
	"github.com/cockroachdb/groupsql/pkg/roachpb"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/sqlerrors"
	"github.com/cockroachdb/groupsql/pkg/util/log"
)

// checkRow validates the values of a full row of t before it is written.
func checkRow(t *catalog.Table, row tree.Datums) error {
	if len(row) != len(t.Columns) {
		return errors.AssertionFailedf("table %q has %d columns, got %d values",
			t.Name, len(t.Columns), len(row))
	}
	for i, col := range t.Columns {
		if row[i] == tree.DNull {
			if !col.Nullable {
				return sqlerrors.NewNonNullViolationError(col.Name)
			}
			continue
		}
		if !col.Type.Equivalent(row[i].ResolvedType()) {
			return sqlerrors.NewDatatypeMismatchError(col.Name, row[i].ResolvedType(), col.Type)
		}
	}
	return nil
}

func sameDatums(a, b tree.Datums) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	c, err := a.Compare(b)
	return c == 0, err
}

// computeHKey returns the encoded hkey a row of t with the given values is
// stored under. The row of a child table goes below its parent row if the
// parent exists, and into the orphan space of the parent otherwise.
func (s *kvSource) computeHKey(ctx context.Context, t *catalog.Table, row tree.Datums) ([]byte, error) {
	pk := t.PrimaryKeyValues(row)
	if t.IsRoot() {
		h, err := t.MakeHKey(pk)
		if err != nil {
			return nil, err
		}
		return h.Encode(nil)
	}
	grouping := t.GroupingValues(row)
	if !grouping.HasNull() {
		parentHKey, err := s.locate(ctx, t.Parent(), grouping)
		if err != nil {
			return nil, err
		}
		if parentHKey != nil {
			own := catalog.HKey{{Ordinal: t.Ordinal, Values: pk}}
			return own.Encode(append([]byte(nil), parentHKey...))
		}
	}
	return t.OrphanHKey(grouping, pk).Encode(nil)
}

// checkUnique returns a uniqueness violation if another row already holds
// the key values of row in one of the given indexes.
func (s *kvSource) checkUnique(
	ctx context.Context, t *catalog.Table, indexes []*catalog.Index, row tree.Datums,
) error {
	for _, idx := range indexes {
		vals := t.IndexValues(idx, row)
		if !rowenc.IndexEntryUnique(idx, vals) {
			continue
		}
		key, err := rowenc.EncodeIndexKeyPrefix(t, idx, vals)
		if err != nil {
			return err
		}
		existing, err := s.txn.Get(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return sqlerrors.NewUniquenessConstraintViolationError(idx.Name, idx.ColumnNames(t), vals)
		}
	}
	return nil
}

// putRow writes the group row and the index entries of a row.
func (s *kvSource) putRow(ctx context.Context, t *catalog.Table, hkey []byte, row tree.Datums) error {
	value, err := rowenc.EncodeRowValue(t.ColumnTypes(), row)
	if err != nil {
		return err
	}
	key := rowenc.MakeGroupRowKey(t, hkey)
	if log.V(2) {
		log.VEventf(ctx, 2, "Put %s -> %s", keys.PrettyPrint(key), row)
	}
	if err := s.txn.Put(ctx, key, value); err != nil {
		return err
	}
	entries, err := rowenc.EncodeIndexEntries(t, row, hkey)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if log.V(2) {
			log.VEventf(ctx, 2, "Put %s", keys.PrettyPrint(e.Key))
		}
		if err := s.txn.Put(ctx, e.Key, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// delRow removes the group row and the index entries of a row.
func (s *kvSource) delRow(ctx context.Context, t *catalog.Table, hkey []byte, row tree.Datums) error {
	entries, err := rowenc.EncodeIndexEntries(t, row, hkey)
	if err != nil {
		return err
	}
	toDelete := make([]roachpb.Key, 0, len(entries)+1)
	toDelete = append(toDelete, rowenc.MakeGroupRowKey(t, hkey))
	for _, e := range entries {
		toDelete = append(toDelete, e.Key)
	}
	for _, key := range toDelete {
		if log.V(2) {
			log.VEventf(ctx, 2, "Del %s", keys.PrettyPrint(key))
		}
		if err := s.txn.Del(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// readRow returns the stored values of the row of t at hkey.
func (s *kvSource) readRow(ctx context.Context, t *catalog.Table, hkey []byte) (tree.Datums, error) {
	value, err := s.txn.Get(ctx, rowenc.MakeGroupRowKey(t, hkey))
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, errors.AssertionFailedf("index entry of %s points to missing row %s",
			t.Name, keys.PrettyPrint(rowenc.MakeGroupRowKey(t, hkey)))
	}
	encRow, err := rowenc.DecodeRowValue(t.ColumnTypes(), value)
	if err != nil {
		return nil, err
	}
	return encRow.Datums(t.ColumnTypes())
}

// relocate moves every row stored strictly below the hkey prefix from to the
// same position below to, rewriting their index entries.
func (s *kvSource) relocate(ctx context.Context, t *catalog.Table, from, to []byte) error {
	rows, err := s.readSubtree(ctx, t, from)
	if err != nil || len(rows) == 0 {
		return err
	}
	for _, r := range rows {
		newHKey := make([]byte, 0, len(to)+len(r.hkey)-len(from))
		newHKey = append(append(newHKey, to...), r.hkey[len(from):]...)
		if err := s.delRow(ctx, r.table, r.hkey, r.vals); err != nil {
			return err
		}
		if err := s.putRow(ctx, r.table, newHKey, r.vals); err != nil {
			return err
		}
	}
	log.VEventf(ctx, 2, "relocated %d rows below %s", len(rows), t.Name)
	return nil
}

// adopt moves the orphans waiting for the row of t with the given primary
// key below the row's hkey.
func (s *kvSource) adopt(ctx context.Context, t *catalog.Table, pk tree.Datums, hkey []byte) error {
	if len(t.ChildIDs) == 0 {
		return nil
	}
	from, err := t.OrphanPrefix(pk).Encode(nil)
	if err != nil {
		return err
	}
	if bytes.Equal(from, hkey) {
		return nil
	}
	return s.relocate(ctx, t, from, hkey)
}

// orphan moves the descendants of a deleted row of t into the orphan space,
// where a later row with the same primary key adopts them again.
func (s *kvSource) orphan(ctx context.Context, t *catalog.Table, pk tree.Datums, hkey []byte) error {
	if len(t.ChildIDs) == 0 {
		return nil
	}
	to, err := t.OrphanPrefix(pk).Encode(nil)
	if err != nil {
		return err
	}
	if bytes.Equal(to, hkey) {
		return nil
	}
	return s.relocate(ctx, t, hkey, to)
}

func (s *kvSource) insert(
	ctx context.Context, t *catalog.Table, row tree.Datums,
) (MutationOutcome, error) {
	if err := checkRow(t, row); err != nil {
		return 0, err
	}
	hkey, err := s.computeHKey(ctx, t, row)
	if err != nil {
		return 0, err
	}
	// Every constraint is checked before the first write, so a failed insert
	// leaves nothing behind.
	if err := s.checkUnique(ctx, t, t.Indexes, row); err != nil {
		return 0, err
	}
	if err := s.putRow(ctx, t, hkey, row); err != nil {
		return 0, err
	}
	if err := s.adopt(ctx, t, t.PrimaryKeyValues(row), hkey); err != nil {
		return 0, err
	}
	return Modified, nil
}

func (s *kvSource) update(
	ctx context.Context, t *catalog.Table, oldRow, newRow tree.Datums,
) (MutationOutcome, error) {
	if err := checkRow(t, newRow); err != nil {
		return 0, err
	}
	if len(oldRow) != len(t.Columns) {
		return 0, errors.AssertionFailedf("table %q has %d columns, got %d old values",
			t.Name, len(t.Columns), len(oldRow))
	}
	oldPK := t.PrimaryKeyValues(oldRow)
	if oldPK.HasNull() {
		return NotFound, nil
	}
	oldHKey, err := s.locate(ctx, t, oldPK)
	if err != nil {
		return 0, err
	}
	if oldHKey == nil {
		return NotFound, nil
	}
	oldHKey = append([]byte(nil), oldHKey...)
	stored, err := s.readRow(ctx, t, oldHKey)
	if err != nil {
		return 0, err
	}
	if same, err := sameDatums(stored, newRow); err != nil || same {
		return Unchanged, err
	}

	newPK := t.PrimaryKeyValues(newRow)
	pkSame, err := sameDatums(oldPK, newPK)
	if err != nil {
		return 0, err
	}
	groupingSame := true
	if !t.IsRoot() {
		if groupingSame, err = sameDatums(t.GroupingValues(stored), t.GroupingValues(newRow)); err != nil {
			return 0, err
		}
	}
	if !pkSame {
		hasChildren, err := s.hasDescendants(ctx, t, oldHKey)
		if err != nil {
			return 0, err
		}
		if hasChildren {
			return 0, sqlerrors.NewPrimaryKeyInUseError(t.Name, oldPK)
		}
	}
	newHKey := oldHKey
	if !pkSame || !groupingSame {
		if newHKey, err = s.computeHKey(ctx, t, newRow); err != nil {
			return 0, err
		}
	}

	var changed []*catalog.Index
	for _, idx := range t.Indexes {
		same, err := sameDatums(t.IndexValues(idx, stored), t.IndexValues(idx, newRow))
		if err != nil {
			return 0, err
		}
		if !same {
			changed = append(changed, idx)
		}
	}
	if err := s.checkUnique(ctx, t, changed, newRow); err != nil {
		return 0, err
	}

	if err := s.delRow(ctx, t, oldHKey, stored); err != nil {
		return 0, err
	}
	if err := s.putRow(ctx, t, newHKey, newRow); err != nil {
		return 0, err
	}
	if !bytes.Equal(oldHKey, newHKey) {
		if err := s.relocate(ctx, t, oldHKey, newHKey); err != nil {
			return 0, err
		}
	}
	if !pkSame {
		if err := s.adopt(ctx, t, newPK, newHKey); err != nil {
			return 0, err
		}
	}
	return Modified, nil
}

func (s *kvSource) delete(
	ctx context.Context, t *catalog.Table, row tree.Datums,
) (MutationOutcome, error) {
	if len(row) != len(t.Columns) {
		return 0, errors.AssertionFailedf("table %q has %d columns, got %d values",
			t.Name, len(t.Columns), len(row))
	}
	pk := t.PrimaryKeyValues(row)
	if pk.HasNull() {
		return NotFound, nil
	}
	hkey, err := s.locate(ctx, t, pk)
	if err != nil {
		return 0, err
	}
	if hkey == nil {
		return NotFound, nil
	}
	hkey = append([]byte(nil), hkey...)
	if err := s.deleteAt(ctx, t, hkey); err != nil {
		return 0, err
	}
	return Modified, nil
}

// deleteAt deletes the row of t at hkey, using its stored values to find its
// index entries.
func (s *kvSource) deleteAt(ctx context.Context, t *catalog.Table, hkey []byte) error {
	stored, err := s.readRow(ctx, t, hkey)
	if err != nil {
		return err
	}
	if err := s.delRow(ctx, t, hkey, stored); err != nil {
		return err
	}
	return s.orphan(ctx, t, t.PrimaryKeyValues(stored), hkey)
}

// primaryHKeys returns the hkeys of every row of t, in primary key order.
func (s *kvSource) primaryHKeys(t *catalog.Table) ([][]byte, error) {
	iter, err := s.txn.NewIterator(rowenc.MakeIndexSpan(t, t.PrimaryIndex()), false /* reverse */)
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var hkeys [][]byte
	for iter.SeekStart(); ; iter.Next() {
		ok, err := iter.Valid()
		if err != nil {
			return nil, err
		}
		if !ok {
			return hkeys, nil
		}
		hkeys = append(hkeys, append([]byte(nil), iter.UnsafeValue()...))
	}
}

func (s *kvSource) truncate(ctx context.Context, t *catalog.Table) (int, error) {
	hkeys, err := s.primaryHKeys(t)
	if err != nil {
		return 0, err
	}
	for _, hkey := range hkeys {
		if err := s.deleteAt(ctx, t, hkey); err != nil {
			return 0, err
		}
	}
	log.VEventf(ctx, 2, "truncated %d rows of %s", len(hkeys), t.Name)
	return len(hkeys), nil
}

func (s *kvSource) backfillIndex(ctx context.Context, t *catalog.Table, idx *catalog.Index) (int, error) {
	hkeys, err := s.primaryHKeys(t)
	if err != nil {
		return 0, err
	}
	for _, hkey := range hkeys {
		row, err := s.readRow(ctx, t, hkey)
		if err != nil {
			return 0, err
		}
		if err := s.checkUnique(ctx, t, []*catalog.Index{idx}, row); err != nil {
			return 0, err
		}
		e, err := rowenc.EncodeIndexEntry(t, idx, row, hkey)
		if err != nil {
			return 0, err
		}
		if err := s.txn.Put(ctx, e.Key, e.Value); err != nil {
			return 0, err
		}
	}
	log.VEventf(ctx, 2, "backfilled %d entries of %s@%s", len(hkeys), t.Name, idx.Name)
	return len(hkeys), nil
}
