package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OrganizationType is the kind of tenant
type OrganizationType string

const (
	// OrganizationRetailPharmacy is a retail pharmacy tenant
	OrganizationRetailPharmacy OrganizationType = "RETAIL_PHARMACY"
	// OrganizationHospital is a hospital tenant
	OrganizationHospital OrganizationType = "HOSPITAL"
)

// IsValid reports whether t is a known organization type
func (t OrganizationType) IsValid() bool {
	return t == OrganizationRetailPharmacy || t == OrganizationHospital
}

// Mode selects the navigation set presented to a tenant
type Mode string

const (
	ModeRetail   Mode = "RETAIL"
	ModeHospital Mode = "HOSPITAL"
)

// ParseMode normalizes and validates a mode string
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeRetail:
		return ModeRetail, nil
	case ModeHospital:
		return ModeHospital, nil
	default:
		return "", ErrInvalidMode
	}
}

// OrganizationType returns the organization type a new tenant
// registered under this mode gets.
func (m Mode) OrganizationType() OrganizationType {
	if m == ModeHospital {
		return OrganizationHospital
	}
	return OrganizationRetailPharmacy
}

// Label is the display word for the tenant kind
func (m Mode) Label() string {
	if m == ModeHospital {
		return "Hospital"
	}
	return "Pharmacy"
}

// ModeFor maps an organization type back to its mode
func ModeFor(t OrganizationType) Mode {
	if t == OrganizationHospital {
		return ModeHospital
	}
	return ModeRetail
}

// Organization is a tenant: one pharmacy or hospital
type Organization struct {
	bun.BaseModel `bun:"table:organizations,alias:org"`
	ID            uuid.UUID        `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Name          string           `bun:"name,notnull" json:"name"`
	Type          OrganizationType `bun:"type,notnull" json:"type"`
	JoinCode      string           `bun:"join_code,notnull,unique" json:"join_code,omitempty"`
	Address       string           `bun:"address" json:"address,omitempty"`
	Phone         string           `bun:"phone" json:"phone,omitempty"`
	Email         string           `bun:"email" json:"email,omitempty"`
	CreatedAt     *time.Time       `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time       `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// User is the user model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID     `bun:"id,pk,nullzero,type:uuid" json:"id"`
	Email          string        `bun:"email,notnull,unique" json:"email"`
	PasswordHash   string        `bun:"password_hash,notnull" json:"-"`
	FirstName      string        `bun:"first_name,notnull" json:"first_name"`
	LastName       string        `bun:"last_name,notnull" json:"last_name"`
	Role           UserRole      `bun:"role,notnull" json:"role"`
	OrganizationID uuid.UUID     `bun:"organization_id,notnull,type:uuid" json:"organization_id"`
	Organization   *Organization `bun:"rel:belongs-to,join:organization_id=id" json:"organization,omitempty"`
	LoggedInAt     *time.Time    `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time    `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time    `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Sanitized returns a copy that is safe to hand to clients
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	if u.Organization != nil {
		org := *u.Organization
		out.Organization = &org
	}
	return &out
}

// NormalizeEmail lower cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SplitName splits a display name on the first run of whitespace.
// The remainder, possibly empty, is the last name.
func SplitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	idx := strings.IndexFunc(name, isSpace)
	if idx < 0 {
		return name, ""
	}
	return name[:idx], strings.TrimSpace(name[idx:])
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

// DefaultOrganizationName is the name a tenant gets when the
// registrant does not supply one.
func DefaultOrganizationName(firstName string, mode Mode) string {
	return fmt.Sprintf("%s's %s", firstName, mode.Label())
}
