// Copyright 2016 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package execinfra contains the protocol shared by every source of rows:
// scans, operators and virtual tables all hand out Cursors.
package execinfra

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
)

// CursorState is the lifecycle state of a Cursor.
type CursorState int

const (
	// StateClosed is the state of a cursor that was never opened, was
	// exhausted or was closed. It holds no resources.
	StateClosed CursorState = iota
	// StateIdle is the state of an opened cursor that has not produced a row
	// yet.
	StateIdle
	// StateActive is the state of a cursor that has produced at least one row
	// and may produce more.
	StateActive
)

func (s CursorState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateIdle:
		return "IDLE"
	case StateActive:
		return "ACTIVE"
	}
	return fmt.Sprintf("CursorState(%d)", int(s))
}

// ErrCursorNotOpen marks errors returned by Next on a closed cursor.
var ErrCursorNotOpen = errors.New("cursor is not open")

// ErrCursorAlreadyOpen marks errors returned by Open on a cursor that is not
// closed.
var ErrCursorAlreadyOpen = errors.New("cursor is already open")

// Cursor is a pull-based stream of rows.
//
// A cursor starts CLOSED. Open moves it to IDLE, and Next returns rows until
// the stream ends, at which point it returns (nil, nil), releases its
// resources and moves back to CLOSED. A closed cursor may be opened again,
// which restarts the stream from the beginning.
//
// Cursors are not safe for concurrent use.
type Cursor interface {
	// Open prepares the cursor. It returns an error marked with
	// ErrCursorAlreadyOpen if the cursor is not CLOSED.
	Open(ctx context.Context) error
	// Next returns the next row, or nil once the stream is exhausted. Calling
	// Next on a CLOSED cursor returns an error marked with ErrCursorNotOpen.
	Next(ctx context.Context) (*rowenc.Row, error)
	// Close releases the cursor's resources. It may be called in any state
	// and any number of times.
	Close(ctx context.Context)
	// State returns the current state.
	State() CursorState
}

// Lifecycle implements the state machine of a Cursor. Implementations embed
// it and call its methods at the start of Open, Next and Close.
type Lifecycle struct {
	name  string
	state CursorState
}

// Init sets the name used in error messages.
func (l *Lifecycle) Init(name string) { l.name = name }

// State implements the Cursor interface.
func (l *Lifecycle) State() CursorState { return l.state }

// IsOpen returns true in the IDLE and ACTIVE states.
func (l *Lifecycle) IsOpen() bool { return l.state != StateClosed }

// StartOpen moves the cursor from CLOSED to IDLE.
func (l *Lifecycle) StartOpen() error {
	if l.state != StateClosed {
		return errors.WithAssertionFailure(errors.Mark(
			errors.Newf("%s: Open called on %s cursor", l.name, l.state),
			ErrCursorAlreadyOpen))
	}
	l.state = StateIdle
	return nil
}

// CheckNext returns an error if the cursor is CLOSED.
func (l *Lifecycle) CheckNext() error {
	if l.state == StateClosed {
		return errors.WithAssertionFailure(errors.Mark(
			errors.Newf("%s: Next called on closed cursor", l.name),
			ErrCursorNotOpen))
	}
	return nil
}

// Advance records that a row was produced.
func (l *Lifecycle) Advance() { l.state = StateActive }

// Finish moves the cursor to CLOSED. It returns true if the cursor was open,
// in which case the caller releases its resources.
func (l *Lifecycle) Finish() bool {
	wasOpen := l.state != StateClosed
	l.state = StateClosed
	return wasOpen
}

// Drain opens c, collects every row and closes it again.
func Drain(ctx context.Context, c Cursor) ([]*rowenc.Row, error) {
	if err := c.Open(ctx); err != nil {
		return nil, err
	}
	defer c.Close(ctx)
	var rows []*rowenc.Row
	for {
		row, err := c.Next(ctx)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return rows, nil
		}
		rows = append(rows, row)
	}
}
