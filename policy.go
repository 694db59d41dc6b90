package auth

// Page is a navigable area of the application
type Page string

const (
	PageDashboard  Page = "dashboard"
	PagePOS        Page = "pos"
	PageInventory  Page = "inventory"
	PageAnalytics  Page = "analytics"
	PageAutomation Page = "automation"
	PageSettings   Page = "settings"
)

// Action is an operation a role may be allowed to perform
type Action string

const (
	ActionSaleCreate      Action = "sale.create"
	ActionSaleComplete    Action = "sale.complete"
	ActionInventoryEdit   Action = "inventory.edit"
	ActionInventoryDelete Action = "inventory.delete"
	ActionOrderCreate     Action = "order.create"
	ActionSettingsEdit    Action = "settings.edit"
	ActionSettingsRoles   Action = "settings.roles"
	ActionAnalyticsView   Action = "analytics.view"
	ActionAutomationEdit  Action = "automation.edit"
)

type roleSet map[UserRole]struct{}

func roles(rs ...UserRole) roleSet {
	out := make(roleSet, len(rs))
	for _, r := range rs {
		out[r] = struct{}{}
	}
	return out
}

var pagePolicy = map[Page]roleSet{
	PageDashboard:  roles(RoleAdmin, RoleManager, RolePharmacist, RoleProcurement),
	PagePOS:        roles(RoleAdmin, RoleManager, RolePharmacist),
	PageInventory:  roles(RoleAdmin, RoleManager, RolePharmacist),
	PageAnalytics:  roles(RoleAdmin, RoleManager),
	PageAutomation: roles(RoleAdmin, RoleManager),
	PageSettings:   roles(RoleAdmin, RoleManager),
}

var actionPolicy = map[Action]roleSet{
	ActionSaleCreate:      roles(RoleAdmin, RoleManager, RolePharmacist),
	ActionSaleComplete:    roles(RoleAdmin, RoleManager),
	ActionInventoryEdit:   roles(RoleAdmin, RoleManager),
	ActionInventoryDelete: roles(RoleAdmin),
	ActionOrderCreate:     roles(RoleAdmin, RoleManager),
	ActionSettingsEdit:    roles(RoleAdmin, RoleManager),
	ActionSettingsRoles:   roles(RoleAdmin),
	ActionAnalyticsView:   roles(RoleAdmin, RoleManager),
	ActionAutomationEdit:  roles(RoleAdmin, RoleManager),
}

// pageOrder is the order pages appear in navigation
var pageOrder = []Page{
	PageDashboard,
	PagePOS,
	PageInventory,
	PageAnalytics,
	PageAutomation,
	PageSettings,
}

// actionOrder is the order actions are listed in
var actionOrder = []Action{
	ActionSaleCreate,
	ActionSaleComplete,
	ActionInventoryEdit,
	ActionInventoryDelete,
	ActionOrderCreate,
	ActionSettingsEdit,
	ActionSettingsRoles,
	ActionAnalyticsView,
	ActionAutomationEdit,
}

// CanAccessPage reports whether role may open page. Unknown
// pages and roles are denied.
func CanAccessPage(role UserRole, page Page) bool {
	return allowed(pagePolicy[page], role)
}

// CanPerformAction reports whether role may perform action.
// Unknown actions and roles are denied.
func CanPerformAction(role UserRole, action Action) bool {
	return allowed(actionPolicy[action], role)
}

// AllowedActions lists the actions role may perform
func AllowedActions(role UserRole) []Action {
	out := make([]Action, 0, len(actionOrder))
	for _, a := range actionOrder {
		if CanPerformAction(role, a) {
			out = append(out, a)
		}
	}
	return out
}

func allowed(set roleSet, role UserRole) bool {
	if set == nil {
		return false
	}
	r, ok := ParseRole(string(role))
	if !ok {
		return false
	}
	_, ok = set[r]
	return ok
}
