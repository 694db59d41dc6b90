package auth

import (
	"context"

	"github.com/goliatone/go-router"

	"github.com/goliatone/go-pharmacy-auth/middleware/jwtware"
)

// ValidationListener runs after a token validates and before the handler
type ValidationListener = jwtware.ValidationListener

// ContextEnricherAdapter stores validated claims in the standard context
// so services can run ClaimsCan checks without the router.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}
	return WithClaimsContext(c, authClaims)
}

// RegisterValidationListeners appends listeners to cfg, skipping nil configs
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}

// SameOrganization rejects requests whose route parameter names another
// organization than the one the token was issued for. Routes without the
// parameter pass.
func SameOrganization(param string) ValidationListener {
	return func(c router.Context, claims jwtware.AuthClaims) error {
		id := c.Param(param)
		if id == "" || id == claims.OrganizationID() {
			return nil
		}
		return ErrForbidden
	}
}
