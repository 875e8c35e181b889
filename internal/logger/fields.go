package logger

import (
	"log/slog"
	"time"
)

// Standard field keys for structured logging. Use them consistently so that
// navigation and cache events can be correlated across components.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// ========================================================================
	// Session & Navigation
	// ========================================================================
	KeySessionID = "session_id" // Navigation session identifier
	KeyStrategy  = "strategy"   // current-dir-alphabetical, traverse-tree-by-time, ...
	KeyOperation = "operation"  // display, next, previous, reload, switch
	KeyPath      = "path"       // Image file path
	KeyDir       = "dir"        // Directory path
	KeyRoot      = "root"       // Traversal root
	KeyWindow    = "window"     // Window or half-width size
	KeyMoved     = "moved"      // Positions actually moved

	// ========================================================================
	// Prefetch Cache
	// ========================================================================
	KeyGroup   = "group"   // Prefetch group name
	KeyKey     = "key"     // Cache key
	KeyState   = "state"   // Handle state: queued, running, done, failed
	KeyWorkers = "workers" // Worker pool size
	KeyPending = "pending" // Queued productions
	KeyEntries = "entries" // Cached entries
	KeyEvicted = "evicted" // Evicted entries
	KeyReason  = "reason"  // Eviction reason

	// ========================================================================
	// Image Loading
	// ========================================================================
	KeyFormat = "format" // Decoded image format
	KeyWidth  = "width"
	KeyHeight = "height"
	KeySize   = "size" // File size in bytes

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyCount      = "count"
	KeyDurationMs = "duration_ms"
	KeyError      = "error"
	KeyEvent      = "event" // Filesystem event kind
)

// TraceID creates a trace ID attribute
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID creates a span ID attribute
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// SessionID creates a session ID attribute
func SessionID(id string) slog.Attr { return slog.String(KeySessionID, id) }

// Strategy creates a strategy attribute
func Strategy(s string) slog.Attr { return slog.String(KeyStrategy, s) }

// Path creates a file path attribute
func Path(p string) slog.Attr { return slog.String(KeyPath, p) }

// Dir creates a directory attribute
func Dir(p string) slog.Attr { return slog.String(KeyDir, p) }

func Window(n int) slog.Attr { return slog.Int(KeyWindow, n) }

func Group(name string) slog.Attr { return slog.String(KeyGroup, name) }

// Key creates a cache key attribute. Keys are rendered with %v.
func Key(k any) slog.Attr { return slog.Any(KeyKey, k) }

func State(s string) slog.Attr { return slog.String(KeyState, s) }

func Count(n int) slog.Attr { return slog.Int(KeyCount, n) }

func Size(n int64) slog.Attr { return slog.Int64(KeySize, n) }

// DurationMs creates a duration attribute in milliseconds since start
func DurationMs(start time.Time) slog.Attr {
	return slog.Float64(KeyDurationMs, Duration(start))
}

// Err creates an error attribute. A nil error yields an empty attribute which
// handlers skip.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
