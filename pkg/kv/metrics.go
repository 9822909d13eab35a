// Copyright 2016 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package kv

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the transaction counters of a DB.
type Metrics struct {
	Commits   prometheus.Counter
	Aborts    prometheus.Counter
	Restarts  prometheus.Counter
	Durations prometheus.Histogram
}

// MakeMetrics returns transaction metrics registered with reg. A nil reg
// leaves them unregistered.
func MakeMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groupsql",
			Subsystem: "txn",
			Name:      "commits_total",
			Help:      "Number of committed KV transactions",
		}),
		Aborts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groupsql",
			Subsystem: "txn",
			Name:      "aborts_total",
			Help:      "Number of aborted KV transactions",
		}),
		Restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "groupsql",
			Subsystem: "txn",
			Name:      "restarts_total",
			Help:      "Number of KV transaction restarts caused by write conflicts",
		}),
		Durations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "groupsql",
			Subsystem: "txn",
			Name:      "duration_seconds",
			Help:      "Latency of committed KV transactions",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Commits, m.Aborts, m.Restarts, m.Durations)
	}
	return m
}
