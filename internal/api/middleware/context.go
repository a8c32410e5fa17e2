package middleware

import (
	"context"

	"github.com/TWRT/sprint-manager/internal/models"
)

type contextKey int

const (
	callerKey contextKey = iota
	requestIDKey
)

func WithCaller(ctx context.Context, caller models.Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFromContext returns the caller resolved by RequireIdentity.
func CallerFromContext(ctx context.Context) (models.Caller, bool) {
	caller, ok := ctx.Value(callerKey).(models.Caller)
	return caller, ok
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
