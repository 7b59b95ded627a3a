package api

import (
	"context"

	"github.com/shoplist/shoplist-go/internal/identity"
)

type contextKey string

const (
	// SessionContextKey is the context key for the current session.
	SessionContextKey contextKey = "session"
	// UserContextKey is the context key for the current user.
	UserContextKey contextKey = "user"
)

// WithSession attaches a session and user to the context.
func WithSession(ctx context.Context, session *identity.Session, user *identity.User) context.Context {
	ctx = context.WithValue(ctx, SessionContextKey, session)
	return context.WithValue(ctx, UserContextKey, user)
}

// SessionFromContext returns the session from request context.
func SessionFromContext(ctx context.Context) *identity.Session {
	session, _ := ctx.Value(SessionContextKey).(*identity.Session)
	return session
}

// UserFromContext returns the authenticated user from request context.
func UserFromContext(ctx context.Context) *identity.User {
	user, _ := ctx.Value(UserContextKey).(*identity.User)
	return user
}
