package auth

import (
	"context"

	"github.com/librisapp/libris-server/internal/domain"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// currentUserKey is the context key for the authenticated user.
const currentUserKey ctxKey = "currentUser"

// WithUser stores the authenticated user in the context.
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, currentUserKey, user)
}

// UserFrom returns the authenticated user from the context, or nil if the
// request carried no valid credentials. Absence is not an error: queries are
// open to unauthenticated clients.
func UserFrom(ctx context.Context) *domain.User {
	user, _ := ctx.Value(currentUserKey).(*domain.User)
	return user
}
