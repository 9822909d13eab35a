// Copyright 2018 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

package sessiondata

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/logtags"
	"github.com/google/uuid"
)

// SessionData contains session parameters. A session owns one SessionData for
// its lifetime; executions started by the session read it but never modify
// it.
type SessionData struct {
	// ID identifies the session in logs and listener callbacks.
	ID uuid.UUID
	// ApplicationName is the name of the application running the
	// current session. This can be used for logging and per-application
	// statistics.
	ApplicationName string
	// User is the name of the user logged into the session.
	User string
	// StmtTimeout is the duration a query is permitted to run before it is
	// canceled by the session. If set to 0, there is no timeout.
	StmtTimeout time.Duration
	// MaxRetries bounds the number of times a statement is retried after a
	// retriable transaction conflict. Zero means the store default.
	MaxRetries int
}

// New returns session data with a fresh ID.
func New(user, appName string) *SessionData {
	return &SessionData{
		ID:              uuid.New(),
		User:            user,
		ApplicationName: appName,
	}
}

// ShortID returns the first eight characters of the session ID.
func (s *SessionData) ShortID() string {
	return s.ID.String()[:8]
}

// AnnotateCtx returns a context tagged with the session ID, so that log
// messages emitted on behalf of the session can be attributed to it.
func (s *SessionData) AnnotateCtx(ctx context.Context) context.Context {
	if s == nil {
		return ctx
	}
	return logtags.AddTag(ctx, "session", s.ShortID())
}

// WithTimeout returns a context that is canceled once the statement timeout
// of the session expires. The cancel function must be called.
func (s *SessionData) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s == nil || s.StmtTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.StmtTimeout)
}

func (s *SessionData) String() string {
	return fmt.Sprintf("session %s (user %s, application %q)", s.ShortID(), s.User, s.ApplicationName)
}
