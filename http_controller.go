package auth

import (
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the JSON auth endpoints on app and returns
// the controller serving them.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	public := []router.MiddlewareFunc{}
	if controller.RateLimiter != nil {
		public = append(public, controller.RateLimiter)
	}

	app.Post(controller.Routes.Register, controller.Register, public...).
		SetName("auth.register")

	app.Post(controller.Routes.Login, controller.Login, public...).
		SetName("auth.login")

	app.Get(controller.Routes.Me, controller.Me, controller.Guard.ProtectedRoute()).
		SetName("auth.me")

	app.Get(controller.Routes.Policy, controller.Policy, controller.Guard.ProtectedRoute()).
		SetName("auth.policy")

	return controller
}

type AuthControllerRoutes struct {
	Register string
	Login    string
	Me       string
	Policy   string
}

type AuthController struct {
	Debug       bool
	Logger      Logger
	Registrar   *RegisterUserHandler
	Auther      *Auther
	Guard       *RouteAuthenticator
	Routes      *AuthControllerRoutes
	RateLimiter router.MiddlewareFunc
	ContextKey  string
}

type AuthControllerOption func(*AuthController) *AuthController

// WithControllerLogger sets the controller logger
func WithControllerLogger(l Logger) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Logger = ensureLogger(l)
		return a
	}
}

// WithControllerDebug dumps request payloads, passwords excluded
func WithControllerDebug(debug bool) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Debug = debug
		return a
	}
}

// WithRegistrar sets the registration handler
func WithRegistrar(r *RegisterUserHandler) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Registrar = r
		return a
	}
}

// WithAuther sets the authenticator and derives the route guard from it
func WithAuther(auther *Auther, cfg Config) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Auther = auther
		if cfg != nil {
			a.ContextKey = cfg.GetContextKey()
		}
		if guard, err := NewHTTPAuthenticator(auther, cfg); err == nil {
			a.Guard = guard.WithLogger(a.Logger)
		}
		return a
	}
}

// WithRouteGuard overrides the bearer middleware provider
func WithRouteGuard(g *RouteAuthenticator) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Guard = g
		return a
	}
}

// WithRateLimiter guards register and login
func WithRateLimiter(mw router.MiddlewareFunc) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.RateLimiter = mw
		return a
	}
}

// WithRoutes overrides the default paths
func WithRoutes(routes AuthControllerRoutes) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if routes.Register != "" {
			a.Routes.Register = routes.Register
		}
		if routes.Login != "" {
			a.Routes.Login = routes.Login
		}
		if routes.Me != "" {
			a.Routes.Me = routes.Me
		}
		if routes.Policy != "" {
			a.Routes.Policy = routes.Policy
		}
		return a
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:     defLogger{},
		ContextKey: DefaultContextKey,
		Routes: &AuthControllerRoutes{
			Register: "/auth/register",
			Login:    "/auth/login",
			Me:       "/auth/me",
			Policy:   "/auth/policy",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Registrar == nil {
		panic("Missing RegisterUserHandler in auth controller...")
	}

	if c.Auther == nil || c.Guard == nil {
		panic("Missing Auther in auth controller...")
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// Register handles POST /auth/register
func (a *AuthController) Register(ctx router.Context) error {
	payload := new(RegisterUserMessage)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return a.fail(ctx, validationError(err, "request body is not valid JSON"))
	}

	if a.Debug {
		a.Logger.Debug("register payload", "payload", print.MaybePrettyJSON(redactedRegistration(*payload)))
	}

	res, err := a.Registrar.Execute(ctx.Context(), *payload)
	if err != nil {
		return a.fail(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, res)
}

// Login handles POST /auth/login
func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.fail(ctx, validationError(err, "request body is not valid JSON"))
	}

	if err := payload.Validate(); err != nil {
		return a.fail(ctx, validationError(err, "email and password are required"))
	}

	if a.Debug {
		a.Logger.Debug("login attempt", "email", NormalizeEmail(payload.Email))
	}

	res, err := a.Auther.Login(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return a.fail(ctx, err)
	}

	return ctx.JSON(http.StatusOK, res)
}

// Me handles GET /auth/me, the identity behind the bearer token
func (a *AuthController) Me(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.identityFailed(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"user": user,
	})
}

// PolicyResponse describes what the caller's role may do
type PolicyResponse struct {
	Role       UserRole  `json:"role"`
	Mode       Mode      `json:"mode"`
	Navigation []NavItem `json:"navigation"`
	Actions    []Action  `json:"actions"`
}

// Policy handles GET /auth/policy. The mode comes from the user's
// organization unless a valid ?mode= overrides it.
func (a *AuthController) Policy(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.identityFailed(ctx, err)
	}

	mode := ModeRetail
	if user.Organization != nil {
		mode = ModeFor(user.Organization.Type)
	}
	if m, err := ParseMode(ctx.Query("mode", "")); err == nil {
		mode = m
	}

	return ctx.JSON(http.StatusOK, PolicyResponse{
		Role:       user.Role,
		Mode:       mode,
		Navigation: Navigation(mode, user.Role),
		Actions:    AllowedActions(user.Role),
	})
}

func (a *AuthController) currentUser(ctx router.Context) (*User, error) {
	claims, ok := GetRouterClaims(ctx, a.ContextKey)
	if !ok {
		return nil, ErrTokenInvalid
	}
	return a.Auther.IdentityFromClaims(ctx.Context(), claims)
}

// identityFailed answers token problems through the guard and store
// faults through the regular error writer
func (a *AuthController) identityFailed(ctx router.Context, err error) error {
	if IsTokenInvalidError(err) || IsTokenExpiredError(err) {
		return a.Guard.AuthErrorHandler(ctx, err)
	}
	return a.fail(ctx, err)
}

func (a *AuthController) fail(ctx router.Context, err error) error {
	status := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		a.Logger.Error("auth request failed", "path", ctx.OriginalURL(), "error", err)
	} else {
		a.Logger.Info("auth request rejected", "path", ctx.OriginalURL(), "code", textCode(err))
	}
	return writeError(ctx, err)
}

func redactedRegistration(msg RegisterUserMessage) RegisterUserMessage {
	if msg.Password != "" {
		msg.Password = "********"
	}
	return msg
}
