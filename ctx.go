package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(r context.Context, claims AuthClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// GetRouterClaims extracts the AuthClaims from the router context
func GetRouterClaims(ctx router.Context, key string) (AuthClaims, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(AuthClaims)
	return claims, ok
}

// ClaimsCan checks the action policy for the role in the context claims.
// No claims means no permission.
func ClaimsCan(ctx context.Context, action Action) bool {
	claims, ok := GetClaims(ctx)
	if !ok {
		return false
	}
	return claims.CanPerformAction(string(action))
}

// ClaimsCanAccess checks the page policy for the role in the context claims
func ClaimsCanAccess(ctx context.Context, page Page) bool {
	claims, ok := GetClaims(ctx)
	if !ok {
		return false
	}
	return claims.CanAccessPage(string(page))
}

// CanFromRouter checks the action policy against claims stored on the
// router context
func CanFromRouter(ctx router.Context, key string, action Action) bool {
	claims, ok := GetRouterClaims(ctx, key)
	if !ok {
		return false
	}
	return claims.CanPerformAction(string(action))
}
