// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/porticohq/portico/pkg/contextkeys"
//   ctx = contextkeys.WithActor(ctx, actor)
//   actor, ok := ctx.Value(contextkeys.ActorKey).(*directory.Actor)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// ActorKey contains *directory.Actor
	// Set by: authn.Middleware (pkg/authn/middleware.go)
	// Required by: policy gate, all protected API endpoints
	// Type: *directory.Actor
	ActorKey Key = "actor"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestID (pkg/middleware/requestid.go)
	// Used by: logger, audit trail
	// Type: string
	RequestIDKey Key = "request_id"
)

// WithActor adds the authenticated actor to the context
func WithActor(ctx context.Context, actor interface{}) context.Context {
	return context.WithValue(ctx, ActorKey, actor)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID, or "" when unset
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
