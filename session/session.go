package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-pharmacy-auth"
)

// DefaultNamespace is the storage key the session record lives under
const DefaultNamespace = "pharmacy-auth"

// State is the client view of the current identity. It is also the
// persisted record.
type State struct {
	User            *auth.User `json:"user"`
	Token           string     `json:"token"`
	Mode            auth.Mode  `json:"mode"`
	IsAuthenticated bool       `json:"isAuthenticated"`
}

func (s State) clone() State {
	s.User = s.User.Sanitized()
	return s
}

func unauthenticated(mode auth.Mode) State {
	if mode == "" {
		mode = auth.ModeRetail
	}
	return State{Mode: mode}
}

// Manager owns the session state of one client. Every transition holds
// the manager lock, so a pending login can not interleave with another.
type Manager struct {
	mu        sync.Mutex
	state     State
	storage   Storage
	validator auth.TokenValidator
	namespace string
	logger    auth.Logger
}

// Option configures a Manager
type Option func(*Manager)

// WithNamespace sets the storage key
func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

// WithLogger sets the logger
func WithLogger(l auth.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewManager returns an unauthenticated manager backed by storage.
// Call Restore to load a persisted session.
func NewManager(storage Storage, validator auth.TokenValidator, opts ...Option) *Manager {
	if storage == nil {
		storage = NewMemoryStorage()
	}

	m := &Manager{
		state:     unauthenticated(auth.ModeRetail),
		storage:   storage,
		validator: validator,
		namespace: DefaultNamespace,
		logger:    nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Namespace returns the storage key
func (m *Manager) Namespace() string {
	return m.namespace
}

// Login stores the identity returned by registration or login. The token
// must validate and belong to user, otherwise the state is left as is.
func (m *Manager) Login(ctx context.Context, user *auth.User, token string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user == nil {
		return m.state.clone(), auth.ErrTokenInvalid
	}

	claims, err := m.validate(token)
	if err != nil {
		return m.state.clone(), err
	}
	if claims.UserID() != user.ID.String() {
		m.logger.Warn("session token does not belong to user", "user_id", user.ID)
		return m.state.clone(), auth.ErrTokenInvalid
	}

	mode := m.state.Mode
	if user.Organization != nil {
		mode = auth.ModeFor(user.Organization.Type)
	}

	next := State{
		User:            user.Sanitized(),
		Token:           token,
		Mode:            mode,
		IsAuthenticated: true,
	}
	if err := m.persist(ctx, next); err != nil {
		return m.state.clone(), err
	}

	m.state = next
	m.logger.Info("session started", "user_id", user.ID, "role", user.Role, "mode", mode)
	return m.state.clone(), nil
}

// Logout clears the identity and keeps the mode. Tokens are not revoked.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := unauthenticated(m.state.Mode)
	if err := m.persist(ctx, next); err != nil {
		return err
	}
	m.state = next
	m.logger.Info("session ended")
	return nil
}

// Restore loads the persisted record. A missing or unreadable record,
// and a record whose token no longer validates, restore as
// unauthenticated. The stale record is overwritten in that case.
func (m *Manager) Restore(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, err := m.storage.Load(ctx, m.namespace)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			m.state = unauthenticated(m.state.Mode)
			return m.state.clone(), nil
		}
		return m.state.clone(), err
	}

	var rec State
	if err := json.Unmarshal(raw, &rec); err != nil {
		m.logger.Warn("discarding unreadable session record", "namespace", m.namespace, "error", err)
		return m.reset(ctx, m.state.Mode)
	}
	if _, err := auth.ParseMode(string(rec.Mode)); err != nil {
		rec.Mode = auth.ModeRetail
	}

	if !rec.IsAuthenticated || rec.Token == "" || rec.User == nil {
		return m.reset(ctx, rec.Mode)
	}

	claims, err := m.validate(rec.Token)
	if err != nil {
		m.logger.Info("restored session is no longer valid",
			"namespace", m.namespace,
			"expired", auth.IsTokenExpiredError(err),
		)
		return m.reset(ctx, rec.Mode)
	}
	if claims.UserID() != rec.User.ID.String() || claims.Role() != string(rec.User.Role) {
		m.logger.Warn("restored session does not match its token", "namespace", m.namespace)
		return m.reset(ctx, rec.Mode)
	}

	m.state = State{
		User:            rec.User.Sanitized(),
		Token:           rec.Token,
		Mode:            rec.Mode,
		IsAuthenticated: true,
	}
	return m.state.clone(), nil
}

// SetMode selects the navigation set. It never changes what the role
// may do.
func (m *Manager) SetMode(ctx context.Context, mode auth.Mode) error {
	parsed, err := auth.ParseMode(string(mode))
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state
	next.Mode = parsed
	if err := m.persist(ctx, next); err != nil {
		return err
	}
	m.state = next
	return nil
}

// Snapshot returns a copy of the current state
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

// CanAccessPage checks page against the signed in role. Signed out
// sessions are denied.
func (m *Manager) CanAccessPage(page auth.Page) bool {
	role, ok := m.role()
	return ok && auth.CanAccessPage(role, page)
}

// CanPerformAction checks action against the signed in role
func (m *Manager) CanPerformAction(action auth.Action) bool {
	role, ok := m.role()
	return ok && auth.CanPerformAction(role, action)
}

// Navigation lists the pages the signed in role may open, labelled for
// the current mode
func (m *Manager) Navigation() []auth.NavItem {
	m.mu.Lock()
	mode := m.state.Mode
	m.mu.Unlock()

	role, ok := m.role()
	if !ok {
		return []auth.NavItem{}
	}
	return auth.Navigation(mode, role)
}

func (m *Manager) role() (auth.UserRole, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.IsAuthenticated || m.state.User == nil {
		return "", false
	}
	return m.state.User.Role, true
}

func (m *Manager) validate(token string) (auth.AuthClaims, error) {
	if m.validator == nil || token == "" {
		return nil, auth.ErrTokenInvalid
	}
	claims, err := m.validator.Validate(token)
	if err != nil {
		if auth.IsTokenExpiredError(err) {
			return nil, auth.ErrTokenExpired
		}
		return nil, auth.ErrTokenInvalid
	}
	return claims, nil
}

func (m *Manager) reset(ctx context.Context, mode auth.Mode) (State, error) {
	next := unauthenticated(mode)
	if err := m.persist(ctx, next); err != nil {
		return m.state.clone(), err
	}
	m.state = next
	return m.state.clone(), nil
}

func (m *Manager) persist(ctx context.Context, s State) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to encode session")
	}
	if err := m.storage.Save(ctx, m.namespace, raw); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to persist session")
	}
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
