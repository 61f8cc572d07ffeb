// Package tracer is a small tracing abstraction over OpenTelemetry so the
// API client can emit spans without depending on OTel APIs directly.
//
// Implementations:
//   - NoopTracer: tests
//   - OTelTracer: production, uses the global tracer provider
package tracer

import (
	"context"
	"time"
)

// Span is an active trace span.
type Span interface {
	// End completes the span. A non-nil err marks the span failed.
	// End must be called exactly once.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to a span.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration records value in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span name prefix for backend calls; the operation name is appended.
const SpanBackendPrefix = "backend."

// Attribute keys used by the API client.
const (
	AttrHTTPMethod     = "http.request.method"
	AttrHTTPPath       = "url.path"
	AttrHTTPStatus     = "http.response.status_code"
	AttrOutcome        = "backend.outcome"
	AttrAuthenticated  = "backend.authenticated"
	AttrBreakerRejects = "backend.breaker_open"
)

// Event names.
const (
	EventSessionCleared = "session.cleared"
)
