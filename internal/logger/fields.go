package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so aggregation and
// querying in a log backend can rely on a stable schema.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// RPC & Procedure
	// ========================================================================
	KeyProgram   = "program"   // RPC program number (NFS, MOUNT, PORTMAP)
	KeyProcedure = "procedure" // Procedure name: GETATTR, LOOKUP, WRITE, etc.
	KeyHandle    = "handle"    // File handle (hex-encoded opaque bytes)
	KeyShare     = "share"     // Exported path, e.g. "/"
	KeyStatus    = "status"    // nfsstat3 / mountstat3 numeric status
	KeyStatusMsg = "status_msg"
	KeyXID       = "xid" // RPC transaction id

	// ========================================================================
	// File System Operations
	// ========================================================================
	KeyPath       = "path"
	KeyFilename   = "filename"
	KeyParentPath = "parent_path"
	KeyOldPath    = "old_path"
	KeyNewPath    = "new_path"
	KeyType       = "type"
	KeySize       = "size"
	KeyMode       = "mode"

	// ========================================================================
	// I/O Operations
	// ========================================================================
	KeyOffset       = "offset"
	KeyCount        = "count"
	KeyBytesRead    = "bytes_read"
	KeyBytesWritten = "bytes_written"
	KeyEOF          = "eof"
	KeyStable       = "stable"

	// ========================================================================
	// Client Identification
	// ========================================================================
	KeyClientIP   = "client_ip"
	KeyClientPort = "client_port"
	KeyUID        = "uid"
	KeyGID        = "gid"
	KeyAuth       = "auth"

	// ========================================================================
	// Connection & Transaction
	// ========================================================================
	KeyConnectionID = "connection_id"
	KeyRequestID    = "request_id"

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyErrorCode  = "error_code"

	// ========================================================================
	// Directory Operations
	// ========================================================================
	KeyEntries    = "entries"
	KeyCookie     = "cookie"
	KeyCookieverf = "cookieverf"
	KeyMaxEntries = "max_entries"

	// ========================================================================
	// Link Operations
	// ========================================================================
	KeyLinkTarget = "link_target"
	KeyLinkCount  = "link_count"
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for OpenTelemetry span ID.
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// Program returns a slog.Attr for an RPC program number.
func Program(p uint32) slog.Attr { return slog.Any(KeyProgram, p) }

// Procedure returns a slog.Attr for a procedure name.
func Procedure(name string) slog.Attr { return slog.String(KeyProcedure, name) }

// Handle returns a slog.Attr for a file handle, formatted as hex.
func Handle(h []byte) slog.Attr { return slog.String(KeyHandle, fmt.Sprintf("%x", h)) }

// Share returns a slog.Attr for the exported share path.
func Share(name string) slog.Attr { return slog.String(KeyShare, name) }

// Status returns a slog.Attr for an operation status code.
func Status(code uint32) slog.Attr { return slog.Any(KeyStatus, code) }

// StatusMsg returns a slog.Attr for a human-readable status message.
func StatusMsg(msg string) slog.Attr { return slog.String(KeyStatusMsg, msg) }

// XID returns a slog.Attr for the RPC transaction id, formatted as hex.
func XID(xid uint32) slog.Attr { return slog.String(KeyXID, fmt.Sprintf("0x%x", xid)) }

// Path returns a slog.Attr for a file or directory path.
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// Filename returns a slog.Attr for a file or directory basename.
func Filename(name string) slog.Attr { return slog.String(KeyFilename, name) }

// Size returns a slog.Attr for a file size.
func Size(s uint64) slog.Attr { return slog.Uint64(KeySize, s) }

// Mode returns a slog.Attr for a file mode.
func Mode(m uint32) slog.Attr { return slog.Any(KeyMode, m) }

// Offset returns a slog.Attr for an I/O offset.
func Offset(off uint64) slog.Attr { return slog.Uint64(KeyOffset, off) }

// Count returns a slog.Attr for a requested byte count.
func Count(c uint32) slog.Attr { return slog.Any(KeyCount, c) }

// BytesRead returns a slog.Attr for the actual bytes read.
func BytesRead(n int) slog.Attr { return slog.Int(KeyBytesRead, n) }

// BytesWritten returns a slog.Attr for the actual bytes written.
func BytesWritten(n int) slog.Attr { return slog.Int(KeyBytesWritten, n) }

// EOF returns a slog.Attr for an end-of-file indicator.
func EOF(eof bool) slog.Attr { return slog.Bool(KeyEOF, eof) }

// Stable returns a slog.Attr for a write stability level.
func Stable(s uint32) slog.Attr { return slog.Any(KeyStable, s) }

// ClientIP returns a slog.Attr for the client IP address.
func ClientIP(addr string) slog.Attr { return slog.String(KeyClientIP, addr) }

// UID returns a slog.Attr for a user id.
func UID(uid uint32) slog.Attr { return slog.Any(KeyUID, uid) }

// GID returns a slog.Attr for a group id.
func GID(gid uint32) slog.Attr { return slog.Any(KeyGID, gid) }

// Auth returns a slog.Attr for an RPC auth flavor.
func Auth(flavor uint32) slog.Attr { return slog.Any(KeyAuth, flavor) }

// ConnectionID returns a slog.Attr for a connection identifier.
func ConnectionID(id string) slog.Attr { return slog.String(KeyConnectionID, id) }

// DurationMs returns a slog.Attr for an operation duration in milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error, or a zero Attr if err is nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Entries returns a slog.Attr for a directory entry count.
func Entries(n int) slog.Attr { return slog.Int(KeyEntries, n) }

// Cookie returns a slog.Attr for a READDIR cookie.
func Cookie(c uint64) slog.Attr { return slog.Uint64(KeyCookie, c) }

// Cookieverf returns a slog.Attr for a READDIR cookie verifier.
func Cookieverf(v uint64) slog.Attr { return slog.Uint64(KeyCookieverf, v) }

// LinkTarget returns a slog.Attr for a symlink target.
func LinkTarget(target string) slog.Attr { return slog.String(KeyLinkTarget, target) }

// LinkCount returns a slog.Attr for a hard link count.
func LinkCount(count uint32) slog.Attr { return slog.Any(KeyLinkCount, count) }
