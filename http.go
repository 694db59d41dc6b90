package auth

import (
	"net/http"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"

	"github.com/goliatone/go-pharmacy-auth/middleware/jwtware"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// RouteAuthenticator protects routes with bearer tokens issued by an Auther
type RouteAuthenticator struct {
	auth             *Auther
	cfg              Config
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

// NewHTTPAuthenticator wires auther into go-router middleware
func NewHTTPAuthenticator(auther *Auther, cfg Config) (*RouteAuthenticator, error) {
	if auther == nil {
		return nil, errors.New("authenticator is required", errors.CategoryInternal)
	}
	if cfg == nil {
		cfg = Options{}
	}

	a := &RouteAuthenticator{
		auth:   auther,
		cfg:    cfg,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

// WithLogger sets the logger
func (a *RouteAuthenticator) WithLogger(l Logger) *RouteAuthenticator {
	a.Logger = ensureLogger(l)
	return a
}

// TokenValidator adapts the authenticator to the jwtware validator
func (a *RouteAuthenticator) TokenValidator() jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(token string) (jwtware.AuthClaims, error) {
		claims, err := a.auth.ValidateToken(token)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

// ProtectedRoute requires a valid bearer token. Claims end up in the router
// locals under the configured context key and in the request context.
func (a *RouteAuthenticator) ProtectedRoute(listeners ...ValidationListener) router.MiddlewareFunc {
	cfg := jwtware.Config{
		ErrorHandler:    func(c router.Context, err error) error { return a.AuthErrorHandler(c, err) },
		TokenValidator:  a.TokenValidator(),
		ContextKey:      a.cfg.GetContextKey(),
		TokenLookup:     a.cfg.GetTokenLookup(),
		AuthScheme:      a.cfg.GetAuthScheme(),
		ContextEnricher: ContextEnricherAdapter,
	}
	RegisterValidationListeners(&cfg, listeners...)
	return jwtware.New(cfg)
}

// RequirePage answers 403 unless the caller's role may open page.
// It must run after ProtectedRoute.
func (a *RouteAuthenticator) RequirePage(page Page) router.MiddlewareFunc {
	return a.guard(func(claims AuthClaims) bool {
		return claims.CanAccessPage(string(page))
	})
}

// RequireAction answers 403 unless the caller's role may perform action.
// It must run after ProtectedRoute.
func (a *RouteAuthenticator) RequireAction(action Action) router.MiddlewareFunc {
	return a.guard(func(claims AuthClaims) bool {
		return claims.CanPerformAction(string(action))
	})
}

func (a *RouteAuthenticator) guard(allow func(AuthClaims) bool) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			claims, ok := GetRouterClaims(c, a.cfg.GetContextKey())
			if !ok {
				return a.AuthErrorHandler(c, ErrTokenInvalid)
			}
			if !allow(claims) {
				a.Logger.Info("access denied",
					"user_id", claims.UserID(),
					"role", claims.Role(),
					"path", c.OriginalURL(),
				)
				return a.ErrorHandler(c, ErrForbidden)
			}
			return next(c)
		}
	}
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	switch {
	case IsTokenExpiredError(err):
		richErr = ErrTokenExpired
	case errors.Is(err, jwtware.ErrAccessDenied), errors.Is(err, ErrForbidden):
		richErr = ErrForbidden
	case errors.As(err, &richErr) && richErr.Category == errors.CategoryAuth:
	default:
		richErr = ErrTokenInvalid
	}

	a.Logger.Info(
		"authentication error",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	return writeError(c, richErr)
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	richErr := asRichError(err)

	a.Logger.Info(
		"route error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	return writeError(c, richErr)
}

// ErrorStatus maps an error category to the HTTP status we answer with
func ErrorStatus(err error) int {
	richErr := asRichError(err)
	switch richErr.Category {
	case errors.CategoryConflict, errors.CategoryBadInput, errors.CategoryValidation:
		return http.StatusBadRequest
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse builds the client facing body for err. Internal
// errors are reduced to a generic message.
func NewErrorResponse(err error) ErrorResponse {
	richErr := asRichError(err)
	if ErrorStatus(richErr) >= http.StatusInternalServerError {
		return ErrorResponse{Error: "internal server error", Code: "INTERNAL"}
	}
	return ErrorResponse{
		Error:  richErr.Message,
		Code:   richErr.TextCode,
		Fields: validationFields(richErr),
	}
}

func writeError(c router.Context, err error) error {
	return c.JSON(ErrorStatus(err), NewErrorResponse(err))
}

func asRichError(err error) *errors.Error {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr
	}
	return errors.Wrap(err, errors.CategoryInternal, "an unexpected server error occurred").
		WithCode(errors.CodeInternal)
}
