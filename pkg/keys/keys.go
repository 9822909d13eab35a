// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package keys defines the layout of the physical key space.
//
//	/1/<group id>/<hkey>                       -> row of a group
//	/2/<table id>/<index id>/<index key>[...]   -> secondary index entry
//
// Every component is order-preserving, so all rows of a group form one
// contiguous span sorted by hkey, and the entries of an index form one
// contiguous span sorted by index key.
package keys

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/roachpb"
	"github.com/cockroachdb/groupsql/pkg/util/encoding"
)

const (
	groupRowsSpace = 1
	indexSpace     = 2
)

func makeKey(space uint64, ids ...uint64) roachpb.Key {
	key := make(roachpb.Key, 0, 16)
	key = encoding.EncodeUvarintAscending(key, space)
	for _, id := range ids {
		key = encoding.EncodeUvarintAscending(key, id)
	}
	return key
}

// MakeGroupPrefix returns the prefix of every row of a group.
func MakeGroupPrefix(groupID uint32) roachpb.Key {
	return makeKey(groupRowsSpace, uint64(groupID))
}

// MakeGroupRowKey returns the key of the group row with the given encoded
// hkey.
func MakeGroupRowKey(groupID uint32, hkey []byte) roachpb.Key {
	return append(MakeGroupPrefix(groupID), hkey...)
}

// MakeIndexPrefix returns the prefix of every entry of an index.
func MakeIndexPrefix(tableID, indexID uint32) roachpb.Key {
	return makeKey(indexSpace, uint64(tableID), uint64(indexID))
}

// DecodeGroupRowKey splits a group row key into its group ID and encoded
// hkey.
func DecodeGroupRowKey(key roachpb.Key) (groupID uint32, hkey []byte, err error) {
	rest, space, err := encoding.DecodeUvarintAscending(key)
	if err != nil {
		return 0, nil, err
	}
	if space != groupRowsSpace {
		return 0, nil, errors.Newf("key %s is not a group row key", key)
	}
	rest, id, err := encoding.DecodeUvarintAscending(rest)
	if err != nil {
		return 0, nil, err
	}
	return uint32(id), rest, nil
}

// DecodeIndexKeyPrefix strips the index prefix from an index entry key.
func DecodeIndexKeyPrefix(key roachpb.Key) (tableID, indexID uint32, rest []byte, err error) {
	rest, space, err := encoding.DecodeUvarintAscending(key)
	if err != nil {
		return 0, 0, nil, err
	}
	if space != indexSpace {
		return 0, 0, nil, errors.Newf("key %s is not an index key", key)
	}
	var t, i uint64
	if rest, t, err = encoding.DecodeUvarintAscending(rest); err != nil {
		return 0, 0, nil, err
	}
	if rest, i, err = encoding.DecodeUvarintAscending(rest); err != nil {
		return 0, 0, nil, err
	}
	return uint32(t), uint32(i), rest, nil
}

// PrettyPrint returns a human readable form of a key, naming the key space.
func PrettyPrint(key roachpb.Key) string {
	if _, _, err := DecodeGroupRowKey(key); err == nil {
		return "/Group" + encoding.PrettyPrintValue(key[1:], "/")
	}
	if _, _, _, err := DecodeIndexKeyPrefix(key); err == nil {
		return "/Index" + encoding.PrettyPrintValue(key[1:], "/")
	}
	return key.String()
}
