// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package exec

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the execution counters shared by the executions of a
// process.
type Metrics struct {
	RowsTouched   prometheus.Counter
	RowsModified  prometheus.Counter
	CursorsOpened prometheus.Counter
	// DMLErrors is labeled with the failed operation: insert, update or
	// delete.
	DMLErrors *prometheus.CounterVec
}

// MakeMetrics returns execution metrics registered with reg. A nil reg
// leaves them unregistered.
func MakeMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RowsTouched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groupsql",
			Subsystem: "exec",
			Name:      "rows_touched_total",
			Help:      "Number of source rows visited by DML operators",
		}),
		RowsModified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groupsql",
			Subsystem: "exec",
			Name:      "rows_modified_total",
			Help:      "Number of rows inserted, changed or removed by DML operators",
		}),
		CursorsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groupsql",
			Subsystem: "exec",
			Name:      "cursors_total",
			Help:      "Number of cursors handed out to executions",
		}),
		DMLErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "groupsql",
			Subsystem: "exec",
			Name:      "dml_errors_total",
			Help:      "Number of DML executions that failed",
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.RowsTouched, m.RowsModified, m.CursorsOpened, m.DMLErrors)
	}
	return m
}
