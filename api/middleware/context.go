package middleware

import (
	"context"

	"github.com/shopsense/storefront-backend/internal/identity"
)

type (
	userIDKey    struct{}
	identityKey  struct{}
	requestIDKey struct{}
)

func valueOf[T any](ctx context.Context, key any) T {
	var zero T
	if ctx == nil {
		return zero
	}
	v, _ := ctx.Value(key).(T)
	return v
}

func withValue(ctx context.Context, key, value any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

// UserIDFromContext is the account id from a verified access token, or "".
func UserIDFromContext(ctx context.Context) string {
	return valueOf[string](ctx, userIDKey{})
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, userIDKey{}, userID)
}

// IdentityFromContext returns the shopper identity resolved by Session.
func IdentityFromContext(ctx context.Context) identity.Identity {
	return valueOf[identity.Identity](ctx, identityKey{})
}

func WithIdentity(ctx context.Context, id identity.Identity) context.Context {
	return withValue(ctx, identityKey{}, id)
}

// RequestIDFromContext returns the id assigned by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	return valueOf[string](ctx, requestIDKey{})
}

func withRequestID(ctx context.Context, id string) context.Context {
	return withValue(ctx, requestIDKey{}, id)
}
