// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package cli

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/groupsql/pkg/kv"
	"github.com/cockroachdb/groupsql/pkg/sql/catalog"
	"github.com/cockroachdb/groupsql/pkg/sql/exec"
	"github.com/cockroachdb/groupsql/pkg/sql/listener"
	"github.com/cockroachdb/groupsql/pkg/sql/rowenc"
	"github.com/cockroachdb/groupsql/pkg/sql/schemachange"
	"github.com/cockroachdb/groupsql/pkg/sql/sessiondata"
	"github.com/cockroachdb/groupsql/pkg/sql/storeadapter"
	"github.com/cockroachdb/groupsql/pkg/sql/vtable"
	"github.com/cockroachdb/groupsql/pkg/storage"
	"github.com/cockroachdb/groupsql/pkg/util/log"
	"github.com/prometheus/client_golang/prometheus"
)

// env is the store and catalog a command runs against.
type env struct {
	eng       storage.Engine
	db        *kv.DB
	session   *sessiondata.SessionData
	changer   *schemachange.Changer
	virtual   *vtable.Registry
	listeners *listener.Registry
	metrics   *exec.Metrics
}

// ddlLogger logs the tables created while a command sets up its schema.
type ddlLogger struct {
	listener.NoopTableListener
}

func (ddlLogger) OnCreate(ctx context.Context, _ *sessiondata.SessionData, t *catalog.Table) error {
	log.VEventf(ctx, 1, "created table %s (%s, group %s)", t.Name, t.Storage, t.Group().Name())
	return nil
}

// openEnv opens the configured store and declares the catalog views and
// the tables of the schema file, if one is given.
func openEnv(ctx context.Context) (*env, error) {
	cfg := &cliCtx.config
	log.SetVerbosity(cfg.Verbosity)

	eng, err := cfg.OpenEngine(ctx)
	if err != nil {
		return nil, err
	}
	reg := prometheus.NewRegistry()
	e := &env{
		eng:       eng,
		db:        kv.NewDB(eng, kv.MakeMetrics(reg)),
		session:   cfg.NewSession(),
		virtual:   vtable.NewRegistry(),
		listeners: listener.NewRegistry(),
		metrics:   exec.MakeMetrics(reg),
	}
	e.listeners.RegisterTableListener(ddlLogger{})
	e.changer = schemachange.NewChanger(schemachange.Config{
		DB:        e.db,
		Virtual:   e.virtual,
		Listeners: e.listeners,
		Session:   e.session,
	})
	ctx = e.session.AnnotateCtx(ctx)

	defs, err := vtable.CatalogTableDefs()
	if err != nil {
		e.close()
		return nil, err
	}
	if cliCtx.schemaFile != "" {
		data, err := os.ReadFile(cliCtx.schemaFile)
		if err != nil {
			e.close()
			return nil, errors.Wrap(err, "reading schema")
		}
		def, err := catalog.ParseYAML(data)
		if err != nil {
			e.close()
			return nil, errors.Wrapf(err, "in %s", cliCtx.schemaFile)
		}
		defs = append(defs, def.Tables...)
	}
	s, err := e.changer.CreateTables(ctx, defs...)
	if err != nil {
		e.close()
		return nil, err
	}
	if err := vtable.RegisterCatalog(e.virtual, s); err != nil {
		e.close()
		return nil, err
	}
	return e, nil
}

func (e *env) close() {
	e.eng.Close()
}

func (e *env) schema() *catalog.Schema { return e.changer.Current() }

func (e *env) newQueryContext(txn *kv.Txn) *exec.QueryContext {
	a := storeadapter.New(storeadapter.Config{
		Schema:    e.schema(),
		Txn:       txn,
		Virtual:   e.virtual,
		Listeners: e.listeners,
		Session:   e.session,
	})
	return exec.NewQueryContext(a, nil /* bindings */, e.metrics)
}

// collect runs op in a transaction and returns its rows.
func (e *env) collect(ctx context.Context, op exec.RowOperator) ([]*rowenc.Row, error) {
	var rows []*rowenc.Row
	err := e.db.Txn(ctx, func(ctx context.Context, txn *kv.Txn) error {
		var err error
		rows, err = exec.Collect(ctx, e.newQueryContext(txn), op)
		return err
	})
	return rows, err
}
