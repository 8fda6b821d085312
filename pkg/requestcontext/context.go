// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets the values; services read them. Keeping this package free
// of net/http lets services stay callable outside any transport, which also
// keeps the caller identity an explicit, testable input.
package requestcontext

import (
	"context"
	"time"

	id "attestor/pkg/domain"
)

type (
	callerKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
)

// Caller retrieves the authenticated caller identity from the context.
// Returns the zero identity if not set.
func Caller(ctx context.Context) id.Identity {
	if caller, ok := ctx.Value(callerKey{}).(id.Identity); ok {
		return caller
	}
	return ""
}

// WithCaller injects the authenticated caller identity into the context.
func WithCaller(ctx context.Context, caller id.Identity) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request timestamp from the context, falling back to the
// wall clock. Tests inject a fixed time with WithTime.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a fixed request timestamp into the context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// UserAgent retrieves the parsed User-Agent summary from the context.
func UserAgent(ctx context.Context) string {
	if ua, ok := ctx.Value(userAgentKey{}).(string); ok {
		return ua
	}
	return ""
}

// WithClientMetadata injects client IP and User-Agent summary into a context.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	ctx = context.WithValue(ctx, userAgentKey{}, userAgent)
	return ctx
}
