// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package catalog

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc/keyside"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/util/encoding"
)

// HKeySegment is one level of an hkey: the ordinal of the table at that
// level and the primary key values of the ancestor (or own) row.
type HKeySegment struct {
	Ordinal int
	Values  tree.Datums
}

// HKey is a hierarchical key. It has one segment per level, from the group
// root down to the row's own table.
//
// An hkey whose ancestor segments hold NULL values belongs to an orphan: a
// row whose parent did not exist when it was written. Orphans sort before
// every real row at the level where the NULLs appear, and are moved under
// their parent once it is inserted.
type HKey []HKeySegment

// Encode appends the order-preserving encoding of the hkey to b. For two
// hkeys of one group, bytes.Compare of their encodings agrees with Compare,
// and the encoding of an hkey is a prefix of the encodings of all its
// descendants.
func (h HKey) Encode(b []byte) ([]byte, error) {
	var err error
	for _, seg := range h {
		b = encoding.EncodeUvarintAscending(b, uint64(seg.Ordinal))
		if b, err = keyside.EncodeDatums(b, seg.Values, nil); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// MustEncode is like Encode but panics on error.
func (h HKey) MustEncode() []byte {
	b, err := h.Encode(nil)
	if err != nil {
		panic(err)
	}
	return b
}

// Compare orders hkeys in pre-order depth-first order: a key sorts before
// the keys of its descendants, and siblings sort by primary key.
func (h HKey) Compare(o HKey) int {
	for i := 0; i < len(h) && i < len(o); i++ {
		switch {
		case h[i].Ordinal < o[i].Ordinal:
			return -1
		case h[i].Ordinal > o[i].Ordinal:
			return 1
		}
		c, err := h[i].Values.Compare(o[i].Values)
		if err != nil {
			panic(errors.NewAssertionErrorWithWrappedErrf(err, "comparing hkeys %s and %s", h, o))
		}
		if c != 0 {
			return c
		}
	}
	switch {
	case len(h) < len(o):
		return -1
	case len(h) > len(o):
		return 1
	}
	return 0
}

// IsPrefixOf returns true if o is h or a descendant of h.
func (h HKey) IsPrefixOf(o HKey) bool {
	return len(h) <= len(o) && o[:len(h)].Compare(h) == 0
}

// Parent returns the hkey of the parent level, or nil for a root hkey.
func (h HKey) Parent() HKey {
	if len(h) == 0 {
		return nil
	}
	return h[:len(h)-1]
}

// IsOrphan returns true if any ancestor level of the hkey holds NULLs.
func (h HKey) IsOrphan() bool {
	for _, seg := range h {
		if seg.Values.HasNull() {
			return true
		}
	}
	return false
}

// Copy returns a copy of the hkey that does not share segment slices.
func (h HKey) Copy() HKey {
	res := make(HKey, len(h))
	for i, seg := range h {
		res[i] = HKeySegment{Ordinal: seg.Ordinal, Values: append(tree.Datums(nil), seg.Values...)}
	}
	return res
}

// String formats the hkey as /ordinal/value/.../ordinal/value.
func (h HKey) String() string {
	var buf strings.Builder
	for _, seg := range h {
		buf.WriteByte('/')
		buf.WriteString(strconv.Itoa(seg.Ordinal))
		for _, v := range seg.Values {
			buf.WriteByte('/')
			buf.WriteString(v.String())
		}
	}
	return buf.String()
}

// CompareHKeys is the physical ordering of encoded hkeys.
func CompareHKeys(a, b []byte) int {
	return bytes.Compare(a, b)
}

// DecodeHKey parses an encoded hkey of a group.
func DecodeHKey(g *Group, b []byte) (HKey, error) {
	var h HKey
	var parent *Table
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
			return nil, errors.Newf("hkey level %d: table %q out of place", len(h), t.Name)
		}
		pk := t.PrimaryIndex()
		seg := HKeySegment{Ordinal: t.Ordinal, Values: make(tree.Datums, len(pk.ColumnOrdinals))}
		for i, colOrd := range pk.ColumnOrdinals {
			seg.Values[i], rest, err = keyside.Decode(t.Columns[colOrd].Type, rest, encoding.Ascending)
			if err != nil {
				return nil, errors.Wrapf(err, "decoding hkey value of %s", t.Name)
			}
		}
		h = append(h, seg)
		parent = t
		b = rest
	}
	return h, nil
}

// TableOf returns the table whose rows carry hkeys like h, which is the
// table at the last level.
func (g *Group) TableOf(h HKey) (*Table, bool) {
	if len(h) == 0 {
		return nil, false
	}
	return g.TableByOrdinal(h[len(h)-1].Ordinal)
}

// MakeHKey builds the hkey of a row of t from the primary key values of
// every level, root first. Only the row's own level must be free of NULLs.
func (t *Table) MakeHKey(levels ...tree.Datums) (HKey, error) {
	chain := append(t.Ancestors(), t)
	if len(levels) != len(chain) {
		return nil, errors.Newf("table %q needs %d hkey levels, got %d", t.Name, len(chain), len(levels))
	}
	h := make(HKey, len(chain))
	for i, lt := range chain {
		pk := lt.PrimaryIndex()
		if len(levels[i]) != len(pk.ColumnOrdinals) {
			return nil, errors.Newf("hkey level %s needs %d values, got %d",
				lt.Name, len(pk.ColumnOrdinals), len(levels[i]))
		}
		for j, colOrd := range pk.ColumnOrdinals {
			if typ := lt.Columns[colOrd].Type; !typ.Equivalent(levels[i][j].ResolvedType()) {
				return nil, errors.Newf("hkey level %s: value %s is not of type %s", lt.Name, levels[i][j], typ)
			}
		}
		h[i] = HKeySegment{Ordinal: lt.Ordinal, Values: levels[i]}
	}
	if h[len(h)-1].Values.HasNull() {
		return nil, errors.Newf("primary key of %q cannot contain NULL", t.Name)
	}
	return h, nil
}

// ChildHKey returns the hkey of a row of t whose parent row has hkey parent.
func (t *Table) ChildHKey(parent HKey, pk tree.Datums) HKey {
	h := make(HKey, 0, len(parent)+1)
	h = append(h, parent...)
	return append(h, HKeySegment{Ordinal: t.Ordinal, Values: pk})
}

// nullPrefix returns the hkey levels of the ancestors of t with every value
// NULL.
func (t *Table) nullPrefix() HKey {
	ancestors := t.Ancestors()
	h := make(HKey, len(ancestors))
	for i, a := range ancestors {
		vals := make(tree.Datums, len(a.PrimaryIndex().ColumnOrdinals))
		for j := range vals {
			vals[j] = tree.DNull
		}
		h[i] = HKeySegment{Ordinal: a.Ordinal, Values: vals}
	}
	return h
}

// OrphanHKey returns the hkey of a row of t whose parent, identified by the
// grouping values, does not exist.
func (t *Table) OrphanHKey(grouping, pk tree.Datums) HKey {
	parent := t.Parent()
	h := parent.nullPrefix()
	h = append(h, HKeySegment{Ordinal: parent.Ordinal, Values: grouping})
	return append(h, HKeySegment{Ordinal: t.Ordinal, Values: pk})
}

// OrphanPrefix returns the hkey prefix shared by the orphaned descendants of
// the row of t with the given primary key.
func (t *Table) OrphanPrefix(pk tree.Datums) HKey {
	h := t.nullPrefix()
	return append(h, HKeySegment{Ordinal: t.Ordinal, Values: pk})
}
