package logger

import (
	"context"
	"time"
)

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext carries the fields worth attaching to every log line
// produced while handling one RPC call: who called, what they called,
// and when the call started. Handlers never populate this directly —
// the dispatch path builds one per call and stores it on the call's
// context.Context via WithContext.
type LogContext struct {
	TraceID    string
	SpanID     string
	Procedure  string
	Share      string
	ClientIP   string
	UID        uint32
	GID        uint32
	AuthFlavor uint32
	StartTime  time.Time
}

// WithContext attaches lc to ctx so DebugCtx/InfoCtx/WarnCtx/ErrorCtx can
// find it later.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext returns the LogContext attached to ctx, or nil if none was
// ever attached (e.g. a background goroutine not tied to a call).
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext starts a LogContext for a call arriving from clientIP,
// stamped with the current time so Duration(lc.StartTime) later reports
// how long the call took.
func NewLogContext(clientIP string) *LogContext {
	return &LogContext{ClientIP: clientIP, StartTime: time.Now()}
}

func (lc *LogContext) clone() *LogContext {
	if lc == nil {
		return nil
	}
	cp := *lc
	return &cp
}

// WithProcedure returns a copy of lc with Procedure set, leaving lc
// itself untouched.
func (lc *LogContext) WithProcedure(procedure string) *LogContext {
	cp := lc.clone()
	if cp != nil {
		cp.Procedure = procedure
	}
	return cp
}

// WithAuth returns a copy of lc with the caller's credentials set.
func (lc *LogContext) WithAuth(uid, gid, authFlavor uint32) *LogContext {
	cp := lc.clone()
	if cp != nil {
		cp.UID, cp.GID, cp.AuthFlavor = uid, gid, authFlavor
	}
	return cp
}
