// Copyright 2015 The Cockroach Authors.
//
// Use of this software is governed by the CockroachDB Software License
// included in the /LICENSE file.

// Package log implements leveled, context-tagged logging.
//
// Every logging call takes a context.Context; tags attached to the context
// with logtags.AddTag are rendered in brackets before the message. Arguments
// are formatted through redact so that values not marked safe can be
// stripped from redactable output.
package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/groupsql/pkg/util/syncutil"
	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
)

// Severity identifies the importance of a log entry.
type Severity int32

// Severity values.
const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

var severityChar = [...]byte{'I', 'W', 'E', 'F'}

// String implements fmt.Stringer.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityFatal:
		return "FATAL"
	default:
		return fmt.Sprintf("Severity(%d)", int32(s))
	}
}

// SeverityByName returns the severity with the given name.
func SeverityByName(name string) (Severity, bool) {
	for s := SeverityInfo; s <= SeverityFatal; s++ {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

type loggingT struct {
	verbosity   atomic.Int32
	minSeverity atomic.Int32

	mu struct {
		syncutil.Mutex
		out        io.Writer
		redactable bool
		exitFunc   func(int)
	}
}

var logging = func() *loggingT {
	l := &loggingT{}
	l.mu.out = os.Stderr
	return l
}()

// SetOutput redirects log output to w. The returned function restores the
// previous destination.
func SetOutput(w io.Writer) (restore func()) {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	prev := logging.mu.out
	logging.mu.out = w
	return func() {
		logging.mu.Lock()
		defer logging.mu.Unlock()
		logging.mu.out = prev
	}
}

// SetRedactable controls whether redaction markers are kept in the output.
// When false (the default) the markers are stripped and all values are
// printed verbatim.
func SetRedactable(redactable bool) {
	logging.mu.Lock()
	defer logging.mu.Unlock()
	logging.mu.redactable = redactable
}

// SetVerbosity sets the level at which V and VEventf start emitting
// messages. Returns the previous level.
func SetVerbosity(level int32) int32 {
	return logging.verbosity.Swap(level)
}

// SetMinSeverity drops entries below the given severity.
func SetMinSeverity(s Severity) {
	logging.minSeverity.Store(int32(s))
}

// V returns true if the logging verbosity is set to the specified level or
// higher.
func V(level int32) bool {
	return logging.verbosity.Load() >= level
}

// Infof logs to the INFO log.
func Infof(ctx context.Context, format string, args ...interface{}) {
	logDepth(ctx, 1, SeverityInfo, format, args)
}

// Warningf logs to the WARNING and INFO logs.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	logDepth(ctx, 1, SeverityWarning, format, args)
}

// Errorf logs to the ERROR, WARNING, and INFO logs.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	logDepth(ctx, 1, SeverityError, format, args)
}

// Fatalf logs to the FATAL log and then exits the process (or invokes the
// function installed with SetExitFunc).
func Fatalf(ctx context.Context, format string, args ...interface{}) {
	logDepth(ctx, 1, SeverityFatal, format, args)
	exit()
}

func exit() {
	logging.mu.Lock()
	f := logging.mu.exitFunc
	logging.mu.Unlock()
	if f != nil {
		f(255)
		return
	}
	os.Exit(255)
}

// VEventf logs the message at INFO if the verbosity is at least the given
// level.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	if V(level) {
		logDepth(ctx, 1, SeverityInfo, format, args)
	}
}

// InfofDepth logs to the INFO log, attributing the entry to the caller
// depth frames up the stack.
func InfofDepth(ctx context.Context, depth int, format string, args ...interface{}) {
	logDepth(ctx, depth+1, SeverityInfo, format, args)
}

// ErrorfDepth is like InfofDepth, for the ERROR log.
func ErrorfDepth(ctx context.Context, depth int, format string, args ...interface{}) {
	logDepth(ctx, depth+1, SeverityError, format, args)
}

// FatalfDepth is like Fatalf, attributing the entry depth frames up the
// stack.
func FatalfDepth(ctx context.Context, depth int, format string, args ...interface{}) {
	logDepth(ctx, depth+1, SeverityFatal, format, args)
	exit()
}

func logDepth(ctx context.Context, depth int, s Severity, format string, args []interface{}) {
	if s < Severity(logging.minSeverity.Load()) {
		return
	}
	_, file, line, ok := runtime.Caller(depth + 1)
	if !ok {
		file, line = "???", 1
	} else {
		file = filepath.Base(file)
	}
	msg := makeMessage(ctx, format, args)

	logging.mu.Lock()
	defer logging.mu.Unlock()
	if !logging.mu.redactable {
		msg = redact.RedactableString(msg.StripMarkers())
	}
	var buf bytes.Buffer
	formatHeader(&buf, s, time.Now().UTC(), file, line)
	buf.WriteString(string(msg))
	if buf.Len() == 0 || buf.Bytes()[buf.Len()-1] != '\n' {
		buf.WriteByte('\n')
	}
	_, _ = logging.mu.out.Write(buf.Bytes())
}

// makeMessage renders the context tags and the formatted message.
func makeMessage(ctx context.Context, format string, args []interface{}) redact.RedactableString {
	var buf redact.StringBuilder
	if tags := logtags.FromContext(ctx); tags != nil {
		buf.SafeRune('[')
		for i, t := range tags.Get() {
			if i > 0 {
				buf.SafeRune(',')
			}
			buf.Print(redact.SafeString(t.Key()))
			if v := t.Value(); v != nil {
				if len(t.Key()) > 1 {
					buf.SafeRune('=')
				}
				buf.Print(v)
			}
		}
		buf.SafeString("] ")
	}
	if len(format) == 0 {
		buf.Print(args...)
	} else {
		buf.Printf(format, args...)
	}
	return buf.RedactableString()
}

// formatHeader writes a log header of the form
//
//	Lyymmdd hh:mm:ss.uuuuuu file:line
func formatHeader(buf *bytes.Buffer, s Severity, now time.Time, file string, line int) {
	buf.WriteByte(severityChar[s])
	buf.WriteString(now.Format("060102 15:04:05.000000"))
	fmt.Fprintf(buf, " %s:%d ", file, line)
}
