package auth

import "context"

type identityKey struct{}

// WithIdentity attaches the authenticated claims to the request context.
func WithIdentity(ctx context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(ctx, identityKey{}, claims)
}

// Identity returns the authenticated claims, if the request carried any.
func Identity(ctx context.Context) (*AccessClaims, bool) {
	claims, ok := ctx.Value(identityKey{}).(*AccessClaims)
	return claims, ok && claims != nil
}
