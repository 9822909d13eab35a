// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package storeadapter

import (
	"bytes"
	"context"

	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/execinfra"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/sqlerrors"
	"github.com/cockroachdb/groupsql/pkg/sql/vtable"
	"github.com/cockroachdb/groupsql/pkg/util/log"
)

// virtualSource is the rowSource of virtual tables. Virtual tables are
// read-only and have no indexes; lookups scan the group.
type virtualSource struct {
	adapter  *Adapter
	registry *vtable.Registry
}

var _ rowSource = &virtualSource{}

func (s *virtualSource) groupCursor(g *catalog.Group, flush FlushFunc) (execinfra.Cursor, error) {
	f, ok := s.registry.Lookup(g.Name())
	if !ok {
		return nil, sqlerrors.NewUndefinedTableError(g.Name())
	}
	vc, err := f.GroupScan(s.adapter, g)
	if err != nil {
		return nil, err
	}
	c := &virtualCursor{vc: vc, flush: flush}
	c.Init("virtual scan " + g.Name())
	return c, nil
}

func (s *virtualSource) indexCursor(
	rt *rowenc.RowType, _ IndexKeyRange, _ Ordering,
) (execinfra.Cursor, error) {
	return nil, sqlerrors.NewFeatureNotSupportedError("index scan of virtual table %q", rt.Table.Name)
}

// scanFor returns the first row of t accepted by match.
func (s *virtualSource) scanFor(
	ctx context.Context, t *catalog.Table, match func(*rowenc.Row) (bool, error),
) (*rowenc.Row, error) {
	c, err := s.groupCursor(t.Group(), nil /* flush */)
	if err != nil {
		return nil, err
	}
	if err := c.Open(ctx); err != nil {
		return nil, err
	}
	defer c.Close(ctx)
	for {
		row, err := c.Next(ctx)
		if err != nil || row == nil {
			return nil, err
		}
		if !row.Type.IsTable(t) {
			continue
		}
		if ok, err := match(row); err != nil || ok {
			return row, err
		}
	}
}

func (s *virtualSource) lookupRow(
	ctx context.Context, t *catalog.Table, hkey []byte,
) (*rowenc.Row, error) {
	return s.scanFor(ctx, t, func(row *rowenc.Row) (bool, error) {
		return bytes.Equal(row.HKey, hkey), nil
	})
}

func (s *virtualSource) lookupByPrimaryKey(
	ctx context.Context, t *catalog.Table, pk tree.Datums,
) (*rowenc.Row, error) {
	return s.scanFor(ctx, t, func(row *rowenc.Row) (bool, error) {
		vals, err := row.Datums()
		if err != nil {
			return false, err
		}
		return sameDatums(t.PrimaryKeyValues(vals), pk)
	})
}

func (s *virtualSource) insert(
	_ context.Context, t *catalog.Table, _ tree.Datums,
) (MutationOutcome, error) {
	return 0, sqlerrors.NewReadOnlyTableError(t.Name)
}

func (s *virtualSource) update(
	_ context.Context, t *catalog.Table, _, _ tree.Datums,
) (MutationOutcome, error) {
	return 0, sqlerrors.NewReadOnlyTableError(t.Name)
}

func (s *virtualSource) delete(
	_ context.Context, t *catalog.Table, _ tree.Datums,
) (MutationOutcome, error) {
	return 0, sqlerrors.NewReadOnlyTableError(t.Name)
}

// virtualCursor adapts the batches of a VirtualGroupCursor to the row at a
// time Cursor protocol. When the virtual cursor asks for a flush, the flush
// hook of the cursor, if any, runs before the cursor is polled again.
type virtualCursor struct {
	execinfra.Lifecycle
	vc    vtable.VirtualGroupCursor
	flush FlushFunc

	buf  []*rowenc.Row
	done bool
}

var _ execinfra.Cursor = &virtualCursor{}

func (c *virtualCursor) Open(ctx context.Context) error {
	if err := c.StartOpen(); err != nil {
		return err
	}
	if err := c.vc.Open(ctx); err != nil {
		c.Finish()
		return err
	}
	c.buf, c.done = c.buf[:0], false
	return nil
}

func (c *virtualCursor) Next(ctx context.Context) (*rowenc.Row, error) {
	if err := c.CheckNext(); err != nil {
		return nil, err
	}
	for len(c.buf) == 0 {
		if c.done {
			c.Close(ctx)
			return nil, nil
		}
		rows, more, err := c.vc.Next(ctx)
		if err != nil {
			c.Close(ctx)
			return nil, err
		}
		c.buf = append(c.buf, rows...)
		c.done = !more
		if more && len(rows) == 0 {
			log.VEventf(ctx, 2, "virtual scan requested a flush")
			if c.flush != nil {
				if err := c.flush(ctx); err != nil {
					c.Close(ctx)
					return nil, err
				}
			}
		}
	}
	row := c.buf[0]
	c.buf = c.buf[1:]
	c.Advance()
	return row, nil
}

func (c *virtualCursor) Close(ctx context.Context) {
	if c.Finish() {
		c.vc.Close(ctx)
		c.buf = nil
	}
}
