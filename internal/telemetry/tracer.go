package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for navigation and prefetch spans.
const (
	AttrSessionID = "picseq.session_id"
	AttrStrategy  = "picseq.strategy"
	AttrOperation = "picseq.operation"
	AttrPath      = "picseq.path"
	AttrWindow    = "picseq.window"
	AttrMoved     = "picseq.moved"

	AttrCacheGroup = "cache.group"
	AttrCacheState = "cache.state"
	AttrCacheHit   = "cache.hit"

	AttrImageFormat = "image.format"
	AttrImageWidth  = "image.width"
	AttrImageHeight = "image.height"
	AttrImageSize   = "image.size"
)

// Span names
const (
	SpanDisplay   = "navigator.display"
	SpanNavigate  = "navigator.navigate"
	SpanReload    = "navigator.reload"
	SpanDecode    = "imageload.decode"
	SpanAPIPrefix = "api."
)

func SessionID(id string) attribute.KeyValue { return attribute.String(AttrSessionID, id) }

func Strategy(s string) attribute.KeyValue { return attribute.String(AttrStrategy, s) }

func Operation(op string) attribute.KeyValue { return attribute.String(AttrOperation, op) }

func Path(p string) attribute.KeyValue { return attribute.String(AttrPath, p) }

func Window(n int) attribute.KeyValue { return attribute.Int(AttrWindow, n) }

func Moved(n int) attribute.KeyValue { return attribute.Int(AttrMoved, n) }

func CacheGroup(g string) attribute.KeyValue { return attribute.String(AttrCacheGroup, g) }

func CacheState(s string) attribute.KeyValue { return attribute.String(AttrCacheState, s) }

func CacheHit(hit bool) attribute.KeyValue { return attribute.Bool(AttrCacheHit, hit) }

func ImageFormat(f string) attribute.KeyValue { return attribute.String(AttrImageFormat, f) }

func ImageWidth(w int) attribute.KeyValue { return attribute.Int(AttrImageWidth, w) }

func ImageHeight(h int) attribute.KeyValue { return attribute.Int(AttrImageHeight, h) }

func ImageSize(n int64) attribute.KeyValue { return attribute.Int64(AttrImageSize, n) }

// StartNavigationSpan starts a span for a navigator operation on path.
func StartNavigationSpan(ctx context.Context, name, sessionID, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{SessionID(sessionID), Path(path)}, attrs...)
	return StartSpan(ctx, name, trace.WithAttributes(all...), trace.WithSpanKind(trace.SpanKindInternal))
}

// StartDecodeSpan starts a span around decoding one image file.
func StartDecodeSpan(ctx context.Context, path string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanDecode, trace.WithAttributes(Path(path)))
}

// StartAPISpan starts a server span for an HTTP operation.
func StartAPISpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	all := append([]attribute.KeyValue{Operation(op)}, attrs...)
	return StartSpan(ctx, SpanAPIPrefix+op, trace.WithAttributes(all...), trace.WithSpanKind(trace.SpanKindServer))
}
