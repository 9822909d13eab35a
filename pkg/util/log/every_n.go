// Copyright 2017 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package log

import (
	"time"

	"github.com/cockroachdb/groupsql/pkg/util/syncutil"
)

// EveryN rate limits a repeated log message: ShouldLog returns true at most
// once per interval. The zero value lets every message through.
type EveryN struct {
	// N is the minimum interval between two messages.
	N time.Duration

	mu struct {
		syncutil.Mutex
		last time.Time
	}
}

// Every returns an EveryN allowing one message per interval n.
func Every(n time.Duration) *EveryN {
	return &EveryN{N: n}
}

// ShouldLog returns true if the last message let through is at least N old.
// Every message is let through at verbosity 2 and above.
func (e *EveryN) ShouldLog() bool {
	return e.shouldLog(time.Now())
}

func (e *EveryN) shouldLog(now time.Time) bool {
	if V(2) {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if now.Sub(e.mu.last) < e.N {
		return false
	}
	e.mu.last = now
	return true
}
