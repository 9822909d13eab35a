// Copyright 2020 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package catalog_test

import (
	"bytes"
	"math/rand"
	"sort"
	"testing"

	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/testutils/grouptest"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestHKeyEncodeDecode(t *testing.T) {
	s := grouptest.Schema(t)
	item := s.MustTableByName("item")
	h, err := item.MakeHKey(grouptest.Row(1), grouptest.Row(10), grouptest.Row(100))
	require.NoError(t, err)
	require.Equal(t, "/1/1/2/10/3/100", h.String())

	enc, err := h.Encode(nil)
	require.NoError(t, err)
	dec, err := catalog.DecodeHKey(item.Group(), enc)
	require.NoError(t, err)
	require.Equal(t, 0, h.Compare(dec))
	require.Equal(t, h.String(), dec.String())

	tbl, ok := item.Group().TableOf(dec)
	require.True(t, ok)
	require.Equal(t, item, tbl)

	_, err = item.MakeHKey(grouptest.Row(1), grouptest.Row(10))
	require.Error(t, err)
	_, err = item.MakeHKey(grouptest.Row(1), grouptest.Row(10), grouptest.Row(nil))
	require.Error(t, err)
	_, err = item.MakeHKey(grouptest.Row(1), grouptest.Row(10), grouptest.Row("x"))
	require.Error(t, err)

	// Levels out of place are rejected.
	bad := catalog.HKey{{Ordinal: 2, Values: grouptest.Row(10)}}
	_, err = catalog.DecodeHKey(item.Group(), bad.MustEncode())
	require.Error(t, err)
}

// TestHKeyPreOrder checks that encoded hkeys sort parents before their
// descendants and keep siblings together, whatever order rows are created
// in.
func TestHKeyPreOrder(t *testing.T) {
	s := grouptest.Schema(t)
	customer := s.MustTableByName("customer")
	orders := s.MustTableByName("orders")
	item := s.MustTableByName("item")
	address := s.MustTableByName("address")

	var keys []catalog.HKey
	for c := 1; c <= 3; c++ {
		ch := customer.ChildHKey(nil, grouptest.Row(c))
		keys = append(keys, ch)
		for o := 1; o <= 2; o++ {
			oh := orders.ChildHKey(ch, grouptest.Row(c*10+o))
			keys = append(keys, oh)
			for i := 1; i <= 2; i++ {
				keys = append(keys, item.ChildHKey(oh, grouptest.Row(c*100+o*10+i)))
			}
		}
		keys = append(keys, address.ChildHKey(ch, grouptest.Row(c)))
	}
	expected := make([]string, len(keys))
	for i, k := range keys {
		expected[i] = k.String()
	}

	rng := rand.New(rand.NewSource(int64(len(keys))))
	encoded := make([][]byte, len(keys))
	for i, k := range keys {
		encoded[i] = k.MustEncode()
	}
	rng.Shuffle(len(encoded), func(i, j int) { encoded[i], encoded[j] = encoded[j], encoded[i] })
	sort.Slice(encoded, func(i, j int) bool { return catalog.CompareHKeys(encoded[i], encoded[j]) < 0 })

	actual := make([]string, len(encoded))
	for i, b := range encoded {
		h, err := catalog.DecodeHKey(customer.Group(), b)
		require.NoError(t, err)
		actual[i] = h.String()
	}
	if diff := cmp.Diff(expected, actual); diff != "" {
		t.Fatalf("unexpected order (-want +got):\n%s", diff)
	}

	// Semantic comparison agrees with the byte order.
	for i := range keys {
		for j := range keys {
			exp := bytes.Compare(keys[i].MustEncode(), keys[j].MustEncode())
			require.Equal(t, exp, keys[i].Compare(keys[j]), "%s vs %s", keys[i], keys[j])
		}
	}
}

func TestHKeyPrefix(t *testing.T) {
	s := grouptest.Schema(t)
	customer := s.MustTableByName("customer")
	orders := s.MustTableByName("orders")
	item := s.MustTableByName("item")

	ch := customer.ChildHKey(nil, grouptest.Row(1))
	oh := orders.ChildHKey(ch, grouptest.Row(10))
	ih := item.ChildHKey(oh, grouptest.Row(100))

	require.True(t, ch.IsPrefixOf(ih))
	require.True(t, oh.IsPrefixOf(oh))
	require.False(t, ih.IsPrefixOf(oh))
	require.True(t, bytes.HasPrefix(ih.MustEncode(), ch.MustEncode()))
	require.Equal(t, oh.String(), ih.Parent().String())

	// A customer whose key extends another's is not its descendant.
	other := customer.ChildHKey(nil, grouptest.Row(1000))
	require.False(t, bytes.HasPrefix(other.MustEncode(), ch.MustEncode()))
}

func TestOrphanHKey(t *testing.T) {
	s := grouptest.Schema(t)
	customer := s.MustTableByName("customer")
	orders := s.MustTableByName("orders")
	item := s.MustTableByName("item")

	// An item whose order does not exist.
	orphan := item.OrphanHKey(grouptest.Row(10), grouptest.Row(100))
	require.Equal(t, "/1/NULL/2/10/3/100", orphan.String())
	require.True(t, orphan.IsOrphan())

	prefix := orders.OrphanPrefix(grouptest.Row(10))
	require.True(t, prefix.IsPrefixOf(orphan))

	// Orphans sort before every real row of the group.
	root := customer.ChildHKey(nil, grouptest.Row(-1000))
	require.Equal(t, -1, orphan.Compare(root))
	require.Equal(t, -1, bytes.Compare(orphan.MustEncode(), root.MustEncode()))

	dec, err := catalog.DecodeHKey(customer.Group(), orphan.MustEncode())
	require.NoError(t, err)
	require.Equal(t, tree.DNull, dec[0].Values[0])

	// Adoption rewrites the prefix.
	adopted := orders.ChildHKey(root, grouptest.Row(10))
	require.False(t, adopted.IsOrphan())
	moved := append(adopted.Copy(), orphan[len(prefix):]...)
	require.Equal(t, "/1/-1000/2/10/3/100", moved.String())
}
