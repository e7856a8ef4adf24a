package middleware

import (
	"context"

	"github.com/handidevproject/pos-dashboard/internal/supabase"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserKey is the context key for the authenticated *supabase.User.
	UserKey contextKey = "user"

	loggedUserKey contextKey = "logged_user"
)

// loggedUser is placed in the context by Logging so the user resolved
// further down the chain can be logged after the request.
type loggedUser struct {
	user *supabase.User
}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user *supabase.User) context.Context {
	if lu, ok := ctx.Value(loggedUserKey).(*loggedUser); ok {
		lu.user = user
	}
	return context.WithValue(ctx, UserKey, user)
}

// UserFromContext returns the user set by the session guard, or nil.
func UserFromContext(ctx context.Context) *supabase.User {
	user, _ := ctx.Value(UserKey).(*supabase.User)
	return user
}
