package auth

import (
	"github.com/goliatone/go-router"
)

var TemplateUserKey = "current_user"

// TemplateHelpers returns helper functions for server rendered views so
// templates gate menus and buttons with the same policy as the API.
//
// Usage:
//
//	renderer, err := template.NewRenderer(
//	    template.WithBaseDir("./templates"),
//	    template.WithGlobalData(auth.TemplateHelpers()),
//	)
//
// In templates:
//
//	{% if current_user|can_access_page:"settings" %}
//	{% if current_user|can_perform:"inventory.delete" %}
//	{% for item in current_user|navigation:"HOSPITAL" %}
func TemplateHelpers() map[string]any {
	return map[string]any{
		"is_authenticated": isAuthenticated,
		"has_role":         hasRole,
		"is_at_least":      isAtLeast,
		"can_access_page":  canAccessPage,
		"can_perform":      canPerform,
		"navigation":       navigationFor,

		"roles": map[string]string{
			"admin":       string(RoleAdmin),
			"manager":     string(RoleManager),
			"pharmacist":  string(RolePharmacist),
			"procurement": string(RoleProcurement),
		},
	}
}

// TemplateHelpersWithUser returns template helpers with user set as current_user
func TemplateHelpersWithUser(user *User) map[string]any {
	helpers := TemplateHelpers()
	helpers[TemplateUserKey] = user.Sanitized()
	return helpers
}

// TemplateHelpersWithRouter returns template helpers with the claims the
// auth middleware stored on the request as current_user
func TemplateHelpersWithRouter(ctx router.Context, claimsKey string) map[string]any {
	helpers := TemplateHelpers()
	if claims, ok := GetRouterClaims(ctx, claimsKey); ok {
		helpers[TemplateUserKey] = claims
	}
	return helpers
}

// roleOf extracts the role from the values templates see as current_user
func roleOf(user any) (UserRole, bool) {
	switch u := user.(type) {
	case *User:
		if u == nil {
			return "", false
		}
		return ParseRole(string(u.Role))
	case User:
		return ParseRole(string(u.Role))
	case AuthClaims:
		if u == nil || u.UserID() == "" {
			return "", false
		}
		return ParseRole(u.Role())
	case map[string]any:
		// JSON decoded users
		if raw, ok := u["role"].(string); ok {
			return ParseRole(raw)
		}
		return "", false
	default:
		return "", false
	}
}

func isAuthenticated(user any) bool {
	_, ok := roleOf(user)
	return ok
}

func hasRole(user any, role string) bool {
	have, ok := roleOf(user)
	if !ok {
		return false
	}
	want, ok := ParseRole(role)
	return ok && have == want
}

func isAtLeast(user any, minRole string) bool {
	have, ok := roleOf(user)
	return ok && have.IsAtLeast(UserRole(minRole))
}

func canAccessPage(user any, page string) bool {
	role, ok := roleOf(user)
	return ok && CanAccessPage(role, Page(page))
}

func canPerform(user any, action string) bool {
	role, ok := roleOf(user)
	return ok && CanPerformAction(role, Action(action))
}

// navigationFor defaults to the retail labels when mode is not valid
func navigationFor(user any, mode string) []NavItem {
	role, ok := roleOf(user)
	if !ok {
		return []NavItem{}
	}
	m, err := ParseMode(mode)
	if err != nil {
		m = ModeRetail
	}
	return Navigation(m, role)
}
