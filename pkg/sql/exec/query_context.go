// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/execinfra"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgcode"
	"github.com/cockroachdb/groupsql/pkg/sql/pgwire/pgerror"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/sessiondata"
	"github.com/cockroachdb/groupsql/pkg/sql/storeadapter"
	"github.com/cockroachdb/groupsql/pkg/util/log"
)

// QueryContext is the state of one execution of an operator tree. Operators
// are immutable and can be executed any number of times; everything that
// changes during an execution lives in its QueryContext and in the cursors
// handed out through it.
type QueryContext struct {
	Adapter  storeadapter.StoreAdapter
	Bindings Bindings
	Session  *sessiondata.SessionData
	Metrics  *Metrics

	flush   storeadapter.FlushFunc
	cursors []execinfra.Cursor
}

// NewQueryContext returns the context of an execution against adapter with
// the given parameter bindings. A nil metrics uses unregistered counters.
func NewQueryContext(
	adapter storeadapter.StoreAdapter, bindings Bindings, metrics *Metrics,
) *QueryContext {
	if metrics == nil {
		metrics = MakeMetrics(nil)
	}
	return &QueryContext{
		Adapter:  adapter,
		Bindings: bindings,
		Session:  adapter.Session(),
		Metrics:  metrics,
	}
}

// SetFlushHook installs the function run when a virtual table scanned by this
// execution asks for the output buffered so far to be flushed.
func (qctx *QueryContext) SetFlushHook(fn storeadapter.FlushFunc) {
	qctx.flush = fn
}

// Flush runs the flush hook, if any.
func (qctx *QueryContext) Flush(ctx context.Context) error {
	if qctx.flush == nil {
		return nil
	}
	return qctx.flush(ctx)
}

// track records a cursor handed out by this execution so that CloseAll can
// close it.
func (qctx *QueryContext) track(c execinfra.Cursor) execinfra.Cursor {
	qctx.cursors = append(qctx.cursors, c)
	qctx.Metrics.CursorsOpened.Inc()
	return c
}

// OpenCursors returns the number of tracked cursors that are not closed.
func (qctx *QueryContext) OpenCursors() int {
	var n int
	for _, c := range qctx.cursors {
		if c.State() != execinfra.StateClosed {
			n++
		}
	}
	return n
}

// CloseAll closes every cursor handed out by this execution, the most
// recently created first. It is used when an execution is abandoned, for
// example on timeout, and is safe to call more than once.
func (qctx *QueryContext) CloseAll(ctx context.Context) {
	for i := len(qctx.cursors) - 1; i >= 0; i-- {
		qctx.cursors[i].Close(ctx)
	}
	qctx.cursors = qctx.cursors[:0]
}

// canceledError converts the error of a canceled or timed out context into
// a query_canceled error.
func canceledError(ctx context.Context) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return pgerror.Wrapf(err, pgcode.QueryCanceled, "query execution canceled due to statement timeout")
	}
	return pgerror.Wrapf(err, pgcode.QueryCanceled, "query execution canceled")
}

// Collect executes a read operator and returns every row it produces. Rows
// are copied so that they outlive the cursor. The session's statement
// timeout applies; when the execution fails every cursor it opened is
// closed.
func Collect(ctx context.Context, qctx *QueryContext, op RowOperator) (_ []*rowenc.Row, retErr error) {
	ctx = qctx.Session.AnnotateCtx(ctx)
	ctx, cancel := qctx.Session.WithTimeout(ctx)
	defer cancel()
	defer func() {
		if retErr != nil {
			qctx.CloseAll(ctx)
		}
	}()

	c, err := op.Cursor(qctx)
	if err != nil {
		return nil, err
	}
	if err := c.Open(ctx); err != nil {
		return nil, err
	}
	defer c.Close(ctx)
	var rows []*rowenc.Row
	for {
		if err := canceledError(ctx); err != nil {
			return nil, err
		}
		row, err := c.Next(ctx)
		if err != nil {
			return nil, err
		}
		if row == nil {
			log.VEventf(ctx, 2, "collected %d rows", len(rows))
			return rows, nil
		}
		rows = append(rows, row.Copy())
	}
}
