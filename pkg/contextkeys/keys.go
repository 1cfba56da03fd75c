// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here so that
// producers and consumers agree on key and value type.
//
//	import "github.com/platinummonkey/chapteradmin/pkg/contextkeys"
//	ctx = contextkeys.WithCaller(ctx, caller)
//	callerID := contextkeys.GetCallerID(ctx)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// CallerKey contains Caller
	// Set by: middleware.Authenticate (pkg/middleware/auth.go)
	// Required by: every /api/v1 handler, identity.Provider
	CallerKey Key = "caller"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestID
	// Used by: Logger, audit trail
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: middleware.RequestID
	LoggerKey Key = "logger"
)

// Caller is the authenticated identity of the current request
type Caller struct {
	ID          string
	Email       string
	GlobalAdmin bool
}

// WithCaller adds the authenticated caller to the context
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

// GetCaller retrieves the authenticated caller from context
func GetCaller(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(CallerKey).(Caller)
	if !ok || caller.ID == "" {
		return Caller{}, false
	}
	return caller, true
}

// GetCallerID retrieves the authenticated caller id, or "" when unauthenticated
func GetCallerID(ctx context.Context) string {
	caller, _ := GetCaller(ctx)
	return caller.ID
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}
