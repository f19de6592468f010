package auth

import (
	"context"

	"goalpad/internal/core"
)

type contextKey string

const sessionKey contextKey = "session"

func WithSession(ctx context.Context, s core.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func SessionFromContext(ctx context.Context) (core.Session, bool) {
	s, ok := ctx.Value(sessionKey).(core.Session)
	return s, ok
}
