package domain

import "context"

type userKey struct{}

// WithUser returns a context carrying the acting user's id.
func WithUser(ctx context.Context, id UserID) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

// UserFromContext returns the acting user's id, if one was set.
func UserFromContext(ctx context.Context) (UserID, bool) {
	id, ok := ctx.Value(userKey{}).(UserID)
	return id, ok && id != ""
}
