// Package requestcontext carries per-request values (request ID, client
// metadata, device label) through context.Context.
package requestcontext

import "context"

type (
	requestIDKey struct{}
	clientKey    struct{}
	deviceKey    struct{}
)

type clientMetadata struct {
	ip        string
	userAgent string
}

// WithRequestID stores the request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request ID, or "" when none was set.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithClientMetadata stores the client IP and User-Agent in the context.
func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, clientKey{}, clientMetadata{ip: ip, userAgent: userAgent})
}

// ClientIP returns the client IP extracted by the metadata middleware.
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(clientKey{}).(clientMetadata); ok {
		return v.ip
	}
	return ""
}

// UserAgent returns the raw User-Agent header.
func UserAgent(ctx context.Context) string {
	if v, ok := ctx.Value(clientKey{}).(clientMetadata); ok {
		return v.userAgent
	}
	return ""
}

// WithDevice stores a human-readable device label ("Chrome on macOS").
func WithDevice(ctx context.Context, label string) context.Context {
	return context.WithValue(ctx, deviceKey{}, label)
}

// Device returns the device label, or "" when none was computed.
func Device(ctx context.Context) string {
	if v, ok := ctx.Value(deviceKey{}).(string); ok {
		return v
	}
	return ""
}
