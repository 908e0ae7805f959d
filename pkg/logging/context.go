package logging

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

// requestIDKey is the context key for the request ID
const requestIDKey contextKey = "request_id"

// WithRequestID returns a new context with the given request ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithNewRequestID returns a new context carrying a freshly generated request ID
func WithNewRequestID(ctx context.Context) context.Context {
	return WithRequestID(ctx, uuid.NewString())
}

// GetRequestID returns the request ID from the context
func GetRequestID(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(requestIDKey).(string)
	return requestID, ok && requestID != ""
}
