// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package rowenc

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/util/encoding"
)

// HKeyLevel is one level of an encoded hkey.
type HKeyLevel struct {
	Table *catalog.Table
	// End is the length of the hkey prefix that ends with this level, which
	// is the encoded hkey of the row at this level.
	End int
}

// SplitHKey returns the levels of an encoded hkey of group g without
// decoding the key values.
func SplitHKey(g *catalog.Group, hkey []byte) ([]HKeyLevel, error) {
	var levels []HKeyLevel
	var parent *catalog.Table
	b := hkey
	for len(b) > 0 {
		rest, ord, err := encoding.DecodeUvarintAscending(b)
		if err != nil {
			return nil, errors.Wrap(err, "decoding hkey ordinal")
		}
		t, ok := g.TableByOrdinal(int(ord))
		if !ok {
			return nil, errors.Newf("group %q has no table with ordinal %d", g.Name(), ord)
		}
		if (parent == nil && !t.IsRoot()) || (parent != nil && t.ParentID != parent.ID) {
			return nil, errors.Newf("hkey level %d: table %q out of place", len(levels), t.Name)
		}
		for range t.PrimaryIndex().ColumnOrdinals {
			n, err := encoding.PeekLength(rest)
			if err != nil {
				return nil, errors.Wrapf(err, "decoding hkey value of %s", t.Name)
			}
			rest = rest[n:]
		}
		levels = append(levels, HKeyLevel{Table: t, End: len(hkey) - len(rest)})
		parent = t
		b = rest
	}
	if len(levels) == 0 {
		return nil, errors.New("empty hkey")
	}
	return levels, nil
}

// TableForHKey returns the table whose rows carry the encoded hkey.
func TableForHKey(g *catalog.Group, hkey []byte) (*catalog.Table, error) {
	levels, err := SplitHKey(g, hkey)
	if err != nil {
		return nil, err
	}
	return levels[len(levels)-1].Table, nil
}

// AncestorHKey returns the prefix of an encoded hkey that is the hkey of
// the row of ancestor a. It returns false if the hkey does not pass through
// a.
func AncestorHKey(g *catalog.Group, hkey []byte, a *catalog.Table) ([]byte, bool, error) {
	levels, err := SplitHKey(g, hkey)
	if err != nil {
		return nil, false, err
	}
	for _, l := range levels {
		if l.Table.ID == a.ID {
			return hkey[:l.End], true, nil
		}
	}
	return nil, false, nil
}
