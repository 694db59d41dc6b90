package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the read side of a verified session token
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Role() string
	OrganizationID() string
	CanAccessPage(page string) bool
	CanPerformAction(action string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID       string `json:"uid,omitempty"`
	UserEmail string `json:"email,omitempty"`
	UserRole  string `json:"role,omitempty"`
	OrgID     string `json:"org,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// ClaimsForUser builds the claim set embedded in tokens for user
func ClaimsForUser(user *User) *JWTClaims {
	return &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.ID.String(),
		},
		UID:       user.ID.String(),
		UserEmail: user.Email,
		UserRole:  string(user.Role),
		OrgID:     user.OrganizationID.String(),
	}
}

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Email returns the email claim
func (c *JWTClaims) Email() string {
	return c.UserEmail
}

// Role returns the role claim
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// OrganizationID returns the organization the token is scoped to
func (c *JWTClaims) OrganizationID() string {
	return c.OrgID
}

// CanAccessPage checks the page policy for the token role
func (c *JWTClaims) CanAccessPage(page string) bool {
	return CanAccessPage(UserRole(c.UserRole), Page(page))
}

// CanPerformAction checks the action policy for the token role
func (c *JWTClaims) CanPerformAction(action string) bool {
	return CanPerformAction(UserRole(c.UserRole), Action(action))
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
