// Copyright 2019 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package listener_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/listener"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/sessiondata"
	"github.com/cockroachdb/groupsql/pkg/testutils/grouptest"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type countingListener struct {
	listener.NoopTableListener
	creates atomic.Int64
	onCreate func()
	err      error
}

func (l *countingListener) OnCreate(
	context.Context, *sessiondata.SessionData, *catalog.Table,
) error {
	l.creates.Add(1)
	if l.onCreate != nil {
		l.onCreate()
	}
	return l.err
}

type rowRecorder struct {
	listener.NoopRowListener
	events []string
}

func (r *rowRecorder) OnInsert(
	_ context.Context, _ *sessiondata.SessionData, t *catalog.Table, row tree.Datums,
) error {
	r.events = append(r.events, "insert "+t.Name+" "+row.String())
	return nil
}

func (r *rowRecorder) OnDelete(
	_ context.Context, _ *sessiondata.SessionData, t *catalog.Table, row tree.Datums,
) error {
	r.events = append(r.events, "delete "+t.Name+" "+row.String())
	return nil
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()
	sd := sessiondata.New("root", "test")
	customer := grouptest.Schema(t).MustTableByName("customer")

	r := listener.NewRegistry()
	a, b := &countingListener{}, &countingListener{}
	require.True(t, r.RegisterTableListener(a))
	require.False(t, r.RegisterTableListener(a))
	require.True(t, r.RegisterTableListener(b))
	require.NoError(t, r.NotifyCreate(ctx, sd, customer))
	require.Equal(t, int64(1), a.creates.Load())
	require.Equal(t, int64(1), b.creates.Load())

	// The first failing listener stops the notification.
	a.err = errors.New("boom")
	err := r.NotifyCreate(ctx, sd, customer)
	require.ErrorContains(t, err, `create listener for table "customer": boom`)
	require.Equal(t, int64(1), b.creates.Load())

	require.True(t, r.UnregisterTableListener(a))
	require.False(t, r.UnregisterTableListener(a))
	require.NoError(t, r.NotifyCreate(ctx, sd, customer))
	require.Equal(t, int64(2), b.creates.Load())
	require.NoError(t, r.NotifyDrop(ctx, sd, customer))

	rec := &rowRecorder{}
	require.False(t, r.HasRowListeners())
	r.RegisterRowListener(rec)
	require.True(t, r.HasRowListeners())
	require.NoError(t, r.NotifyInsert(ctx, sd, customer, grouptest.Row(1, "bob")))
	require.NoError(t, r.NotifyUpdate(ctx, sd, customer, grouptest.Row(1, "bob"), grouptest.Row(1, "al")))
	require.NoError(t, r.NotifyDelete(ctx, sd, customer, grouptest.Row(1, "al")))
	require.Equal(t, []string{"insert customer (1, 'bob')", "delete customer (1, 'al')"}, rec.events)

	var nilRegistry *listener.Registry
	require.NoError(t, nilRegistry.NotifyInsert(ctx, sd, customer, grouptest.Row(1, "bob")))
}

// TestRegisterDuringNotify checks that a notification in progress iterates
// the membership it started with.
func TestRegisterDuringNotify(t *testing.T) {
	ctx := context.Background()
	customer := grouptest.Schema(t).MustTableByName("customer")
	r := listener.NewRegistry()
	late := &countingListener{}
	early := &countingListener{}
	early.onCreate = func() {
		r.RegisterTableListener(late)
		r.UnregisterTableListener(early)
	}
	r.RegisterTableListener(early)
	require.NoError(t, r.NotifyCreate(ctx, nil, customer))
	require.Equal(t, int64(1), early.creates.Load())
	require.Equal(t, int64(0), late.creates.Load())

	require.NoError(t, r.NotifyCreate(ctx, nil, customer))
	require.Equal(t, int64(1), early.creates.Load())
	require.Equal(t, int64(1), late.creates.Load())
}

func TestConcurrentRegistration(t *testing.T) {
	ctx := context.Background()
	customer := grouptest.Schema(t).MustTableByName("customer")
	r := listener.NewRegistry()
	stable := &countingListener{}
	r.RegisterTableListener(stable)

	const workers, iters = 4, 200
	g, gCtx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			l := &countingListener{}
			for i := 0; i < iters; i++ {
				r.RegisterTableListener(l)
				r.UnregisterTableListener(l)
			}
			return nil
		})
		g.Go(func() error {
			for i := 0; i < iters; i++ {
				if err := r.NotifyCreate(gCtx, nil, customer); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.Equal(t, int64(workers*iters), stable.creates.Load())
	require.Len(t, r.TableListeners(), 1)
}
