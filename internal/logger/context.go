package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey string

const attemptIDKey ctxKey = "attempt_id"

// WithAttemptID tags the context with the external order identifier of a
// payment attempt so every log line of the flow carries it.
func WithAttemptID(ctx context.Context, attemptID string) context.Context {
	return context.WithValue(ctx, attemptIDKey, attemptID)
}

func AttemptIDFrom(ctx context.Context) string {
	if v := ctx.Value(attemptIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// FromCtx returns logger with attempt_id automatically added
func FromCtx(ctx context.Context) *zap.Logger {
	id := AttemptIDFrom(ctx)
	if id == "" {
		return L()
	}
	return L().With(zap.String("attempt_id", id))
}
