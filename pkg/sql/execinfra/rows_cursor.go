// Copyright 2016 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package execinfra

import (
	"context"

	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
)

// RowsCursor is a Cursor over rows that are already materialized. The rows
// are produced again from the start every time the cursor is opened.
type RowsCursor struct {
	Lifecycle
	rows []*rowenc.Row
	pos  int
}

var _ Cursor = &RowsCursor{}

// NewRowsCursor returns a closed cursor over rows.
func NewRowsCursor(name string, rows []*rowenc.Row) *RowsCursor {
	c := &RowsCursor{rows: rows}
	c.Init(name)
	return c
}

// Open is part of the Cursor interface.
func (c *RowsCursor) Open(context.Context) error {
	if err := c.StartOpen(); err != nil {
		return err
	}
	c.pos = 0
	return nil
}

// Next is part of the Cursor interface.
func (c *RowsCursor) Next(ctx context.Context) (*rowenc.Row, error) {
	if err := c.CheckNext(); err != nil {
		return nil, err
	}
	if c.pos >= len(c.rows) {
		c.Close(ctx)
		return nil, nil
	}
	row := c.rows[c.pos]
	c.pos++
	c.Advance()
	return row, nil
}

// Close is part of the Cursor interface.
func (c *RowsCursor) Close(context.Context) {
	c.Finish()
}
