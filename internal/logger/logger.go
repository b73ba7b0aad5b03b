package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level is the server's own small level enum, mapped onto slog.Level at
// the point a handler is built so that callers never need to import
// log/slog themselves just to call SetLevel.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config drives Init: the minimum level to emit, the wire format, and
// where records go.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

var (
	currentLevel  atomic.Int32
	currentFormat atomic.Value // "text" or "json"

	mu       sync.RWMutex
	slogger  *slog.Logger
	output   io.Writer = os.Stdout
	useColor           = true
)

func init() {
	currentLevel.Store(int32(LevelInfo))
	currentFormat.Store("text")
	if f, ok := output.(*os.File); ok {
		useColor = isTerminal(f.Fd())
	}
	reconfigure()
}

// reconfigure rebuilds the slog.Logger from the current level, format,
// output, and color settings. Called whenever any of those change.
func reconfigure() {
	mu.Lock()
	defer mu.Unlock()

	level := Level(currentLevel.Load())
	format, _ := currentFormat.Load().(string)

	levelVar := new(slog.LevelVar)
	levelVar.Set(level.slog())
	opts := &slog.HandlerOptions{Level: levelVar}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = NewColorTextHandler(output, opts, useColor)
	}
	slogger = slog.New(handler)
}

// Init points the package logger at cfg's output, level, and format. An
// empty field in cfg leaves that setting unchanged, so callers can call
// Init more than once (e.g. after reading a config file) without
// clobbering settings they didn't touch.
func Init(cfg Config) error {
	if cfg.Output != "" {
		w, color, err := openOutput(cfg.Output)
		if err != nil {
			return err
		}
		mu.Lock()
		output, useColor = w, color
		mu.Unlock()
	}
	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	if cfg.Format != "" {
		SetFormat(cfg.Format)
	}
	return nil
}

func openOutput(dest string) (io.Writer, bool, error) {
	switch strings.ToLower(dest) {
	case "stdout":
		return os.Stdout, isTerminal(os.Stdout.Fd()), nil
	case "stderr":
		return os.Stderr, isTerminal(os.Stderr.Fd()), nil
	default:
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, false, fmt.Errorf("open log file %q: %w", dest, err)
		}
		return f, false, nil
	}
}

// InitWithWriter points the package logger at an arbitrary io.Writer,
// bypassing the stdout/stderr/file resolution Init does. Tests use this
// to capture output in a buffer.
func InitWithWriter(w io.Writer, level, format string, enableColor bool) {
	mu.Lock()
	output, useColor = w, enableColor
	mu.Unlock()
	if level != "" {
		SetLevel(level)
	}
	if format != "" {
		SetFormat(format)
	}
}

// SetLevel changes the minimum emitted level. An unrecognized level
// string is ignored rather than rejected, since it's almost always
// reached from a config value that was validated elsewhere.
func SetLevel(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel.Store(int32(LevelDebug))
	case "INFO":
		currentLevel.Store(int32(LevelInfo))
	case "WARN":
		currentLevel.Store(int32(LevelWarn))
	case "ERROR":
		currentLevel.Store(int32(LevelError))
	default:
		return
	}
	reconfigure()
}

// SetFormat switches between "text" (colorized when the destination is
// a terminal) and "json" output.
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	currentFormat.Store(format)
	reconfigure()
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// log is the common path for every level-filtered entry point below: it
// re-checks the level against the live atomic (not a snapshot) so a
// concurrent SetLevel call takes effect on the very next log call.
func log(min Level, msg string, args []any) {
	if min < Level(currentLevel.Load()) {
		return
	}
	switch min {
	case LevelDebug:
		getLogger().Debug(msg, args...)
	case LevelWarn:
		getLogger().Warn(msg, args...)
	case LevelError:
		getLogger().Error(msg, args...)
	default:
		getLogger().Info(msg, args...)
	}
}

// Debug logs msg with structured key/value pairs, e.g.
// Debug("cache lookup", "xid", xid, "hit", true).
func Debug(msg string, args ...any) { log(LevelDebug, msg, args) }

// Info logs msg at info level with structured key/value pairs.
func Info(msg string, args ...any) { log(LevelInfo, msg, args) }

// Warn logs msg at warn level with structured key/value pairs.
func Warn(msg string, args ...any) { log(LevelWarn, msg, args) }

// Error always logs msg at error level, regardless of the configured
// minimum level.
func Error(msg string, args ...any) { getLogger().Error(msg, args...) }

// DebugCtx is Debug plus whatever request-scoped fields ctx carries via
// LogContext (trace id, client IP, procedure, ...).
func DebugCtx(ctx context.Context, msg string, args ...any) {
	log(LevelDebug, msg, appendContextFields(ctx, args))
}

// InfoCtx is Info plus the LogContext fields carried by ctx.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	log(LevelInfo, msg, appendContextFields(ctx, args))
}

// WarnCtx is Warn plus the LogContext fields carried by ctx.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	log(LevelWarn, msg, appendContextFields(ctx, args))
}

// ErrorCtx is Error plus the LogContext fields carried by ctx.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	getLogger().Error(msg, appendContextFields(ctx, args)...)
}

// appendContextFields prepends any populated LogContext fields to args
// so they show up before the call's own fields in the rendered record.
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	out := make([]any, 0, 14+len(args))
	if lc.TraceID != "" {
		out = append(out, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		out = append(out, KeySpanID, lc.SpanID)
	}
	if lc.Procedure != "" {
		out = append(out, KeyProcedure, lc.Procedure)
	}
	if lc.Share != "" {
		out = append(out, KeyShare, lc.Share)
	}
	if lc.ClientIP != "" {
		out = append(out, KeyClientIP, lc.ClientIP)
	}
	if lc.UID != 0 {
		out = append(out, KeyUID, lc.UID)
	}
	if lc.GID != 0 {
		out = append(out, KeyGID, lc.GID)
	}
	return append(out, args...)
}

// With returns a slog.Logger with args pre-bound, for a caller that logs
// several related records and doesn't want to repeat common fields.
func With(args ...any) *slog.Logger {
	return getLogger().With(args...)
}

// Duration reports the time since start in fractional milliseconds, the
// unit every duration field in this package's log records uses.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

// Debugf, Infof, Warnf, and Errorf take a printf-style format instead of
// key/value pairs, for call sites where there's exactly one thing to say
// and structuring it would just be noise.
func Debugf(format string, v ...any) { log(LevelDebug, fmt.Sprintf(format, v...), nil) }
func Infof(format string, v ...any)  { log(LevelInfo, fmt.Sprintf(format, v...), nil) }
func Warnf(format string, v ...any)  { log(LevelWarn, fmt.Sprintf(format, v...), nil) }
func Errorf(format string, v ...any) { getLogger().Error(fmt.Sprintf(format, v...)) }
