package auth

import "strings"

// UserRole is the user's role. A user holds exactly one.
type UserRole string

const (
	// RoleAdmin runs the organization
	RoleAdmin UserRole = "ADMIN"
	// RoleManager manages inventory, orders and settings
	RoleManager UserRole = "MANAGER"
	// RolePharmacist dispenses and sells
	RolePharmacist UserRole = "PHARMACIST"
	// RoleProcurement only sees the dashboard
	RoleProcurement UserRole = "PROCUREMENT"
)

// roleAliases maps alternative spellings to their canonical role
var roleAliases = map[string]UserRole{
	"INVENTORY_MANAGER": RoleManager,
}

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RolePharmacist, RoleProcurement:
		return true
	default:
		return false
	}
}

func (r UserRole) String() string {
	return string(r)
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleAdmin,
		RoleManager,
		RolePharmacist,
		RoleProcurement,
	}
}

// ParseRole parses a string into a UserRole, resolving aliases
func ParseRole(roleStr string) (UserRole, bool) {
	key := strings.ToUpper(strings.TrimSpace(roleStr))
	if alias, ok := roleAliases[key]; ok {
		return alias, true
	}
	role := UserRole(key)
	return role, role.IsValid()
}

var roleRank = map[UserRole]int{
	RoleProcurement: 1,
	RolePharmacist:  2,
	RoleManager:     3,
	RoleAdmin:       4,
}

// IsAtLeast reports whether r ranks at or above minRole. Unknown roles
// rank below everything.
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	have, ok := ParseRole(string(r))
	if !ok {
		return false
	}
	want, ok := ParseRole(string(minRole))
	if !ok {
		return false
	}
	return roleRank[have] >= roleRank[want]
}
