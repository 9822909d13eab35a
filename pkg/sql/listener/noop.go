// Copyright 2019 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package listener

import (
	"context"

	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/sem/tree"
	"github.com/cockroachdb/groupsql/pkg/sql/sessiondata"
)

// NoopTableListener implements TableListener with callbacks that do nothing.
// Embed it to implement only some of the callbacks.
type NoopTableListener struct{}

var _ TableListener = NoopTableListener{}

// OnCreate is part of the TableListener interface.
func (NoopTableListener) OnCreate(context.Context, *sessiondata.SessionData, *catalog.Table) error {
	return nil
}

// OnDrop is part of the TableListener interface.
func (NoopTableListener) OnDrop(context.Context, *sessiondata.SessionData, *catalog.Table) error {
	return nil
}

// OnTruncate is part of the TableListener interface.
func (NoopTableListener) OnTruncate(context.Context, *sessiondata.SessionData, *catalog.Table) error {
	return nil
}

// OnCreateIndex is part of the TableListener interface.
func (NoopTableListener) OnCreateIndex(
	context.Context, *sessiondata.SessionData, *catalog.Table, *catalog.Index,
) error {
	return nil
}

// OnDropIndex is part of the TableListener interface.
func (NoopTableListener) OnDropIndex(
	context.Context, *sessiondata.SessionData, *catalog.Table, *catalog.Index,
) error {
	return nil
}

// NoopRowListener implements RowListener with callbacks that do nothing.
type NoopRowListener struct{}

var _ RowListener = NoopRowListener{}

// OnInsert is part of the RowListener interface.
func (NoopRowListener) OnInsert(context.Context, *sessiondata.SessionData, *catalog.Table, tree.Datums) error {
	return nil
}

// OnUpdate is part of the RowListener interface.
func (NoopRowListener) OnUpdate(
	context.Context, *sessiondata.SessionData, *catalog.Table, tree.Datums, tree.Datums,
) error {
	return nil
}

// OnDelete is part of the RowListener interface.
func (NoopRowListener) OnDelete(context.Context, *sessiondata.SessionData, *catalog.Table, tree.Datums) error {
	return nil
}
