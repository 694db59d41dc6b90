package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

// WSTokenValidator implements go-router's WSTokenValidator interface on
// top of the session TokenService
type WSTokenValidator struct {
	tokenService TokenService
}

// NewWSTokenValidator creates a WebSocket token validator
func NewWSTokenValidator(tokenService TokenService) *WSTokenValidator {
	return &WSTokenValidator{
		tokenService: tokenService,
	}
}

// Validate validates a token string and returns WebSocket claims
func (w *WSTokenValidator) Validate(tokenString string) (router.WSAuthClaims, error) {
	claims, err := w.tokenService.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return &WSAuthClaimsAdapter{claims: claims}, nil
}

// WSAuthClaimsAdapter maps go-router's resource checks onto the page and
// action policy. Reading a resource means opening its page, the other
// verbs look up "<resource>.<verb>" in the action table.
type WSAuthClaimsAdapter struct {
	claims AuthClaims
}

func (w *WSAuthClaimsAdapter) Subject() string {
	return w.claims.Subject()
}

func (w *WSAuthClaimsAdapter) UserID() string {
	return w.claims.UserID()
}

func (w *WSAuthClaimsAdapter) Role() string {
	return w.claims.Role()
}

func (w *WSAuthClaimsAdapter) CanRead(resource string) bool {
	return w.claims.CanAccessPage(resource)
}

func (w *WSAuthClaimsAdapter) CanEdit(resource string) bool {
	return w.claims.CanPerformAction(resource + ".edit")
}

func (w *WSAuthClaimsAdapter) CanCreate(resource string) bool {
	return w.claims.CanPerformAction(resource + ".create")
}

func (w *WSAuthClaimsAdapter) CanDelete(resource string) bool {
	return w.claims.CanPerformAction(resource + ".delete")
}

// HasRole compares canonical roles, so aliases match
func (w *WSAuthClaimsAdapter) HasRole(role string) bool {
	have, ok := ParseRole(w.claims.Role())
	if !ok {
		return false
	}
	want, ok := ParseRole(role)
	return ok && have == want
}

func (w *WSAuthClaimsAdapter) IsAtLeast(minRole string) bool {
	return UserRole(w.claims.Role()).IsAtLeast(UserRole(minRole))
}

// NewWSAuthMiddleware returns WebSocket middleware that accepts the same
// session tokens as the HTTP routes
func (a *Auther) NewWSAuthMiddleware(config ...router.WSAuthConfig) router.WebSocketMiddleware {
	var cfg router.WSAuthConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	cfg.TokenValidator = NewWSTokenValidator(a.tokenService)
	return router.NewWSAuth(cfg)
}

// WSAuthClaimsFromContext returns the session claims of an authenticated
// WebSocket connection
func WSAuthClaimsFromContext(ctx context.Context) (AuthClaims, bool) {
	wsAuthClaims, ok := router.WSAuthClaimsFromContext(ctx)
	if !ok {
		return nil, false
	}
	if adapter, ok := wsAuthClaims.(*WSAuthClaimsAdapter); ok {
		return adapter.claims, true
	}
	return nil, false
}
