package logging

import (
	"context"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type contextKey string

const identityKey contextKey = "identity"

// ContextWithIdentity returns a context carrying the caller identity.
func ContextWithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the caller identity, or "" if none is set.
func IdentityFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(identityKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the global logger enriched with the request id and identity
// found in ctx.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()
	c := l.With()
	if id := middleware.GetReqID(ctx); id != "" {
		c = c.Str("request_id", id)
	}
	if id := IdentityFromContext(ctx); id != "" {
		c = c.Str("identity", id)
	}
	l = c.Logger()
	return &l
}
