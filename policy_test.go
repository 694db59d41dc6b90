package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-pharmacy-auth"
)

func TestCanAccessPage(t *testing.T) {
	allow := map[auth.Page][]auth.UserRole{
		auth.PageDashboard:  {auth.RoleAdmin, auth.RoleManager, auth.RolePharmacist, auth.RoleProcurement},
		auth.PagePOS:        {auth.RoleAdmin, auth.RoleManager, auth.RolePharmacist},
		auth.PageInventory:  {auth.RoleAdmin, auth.RoleManager, auth.RolePharmacist},
		auth.PageAnalytics:  {auth.RoleAdmin, auth.RoleManager},
		auth.PageAutomation: {auth.RoleAdmin, auth.RoleManager},
		auth.PageSettings:   {auth.RoleAdmin, auth.RoleManager},
	}

	for page, roles := range allow {
		for _, role := range auth.GetAllRoles() {
			want := contains(roles, role)
			assert.Equal(t, want, auth.CanAccessPage(role, page), "%s on %s", role, page)
		}
	}
}

func TestCanPerformAction(t *testing.T) {
	allow := map[auth.Action][]auth.UserRole{
		auth.ActionSaleCreate:      {auth.RoleAdmin, auth.RoleManager, auth.RolePharmacist},
		auth.ActionSaleComplete:    {auth.RoleAdmin, auth.RoleManager},
		auth.ActionInventoryEdit:   {auth.RoleAdmin, auth.RoleManager},
		auth.ActionInventoryDelete: {auth.RoleAdmin},
		auth.ActionOrderCreate:     {auth.RoleAdmin, auth.RoleManager},
		auth.ActionSettingsEdit:    {auth.RoleAdmin, auth.RoleManager},
		auth.ActionSettingsRoles:   {auth.RoleAdmin},
		auth.ActionAnalyticsView:   {auth.RoleAdmin, auth.RoleManager},
		auth.ActionAutomationEdit:  {auth.RoleAdmin, auth.RoleManager},
	}

	for action, roles := range allow {
		for _, role := range auth.GetAllRoles() {
			want := contains(roles, role)
			assert.Equal(t, want, auth.CanPerformAction(role, action), "%s on %s", role, action)
		}
	}

	assert.Empty(t, auth.AllowedActions(auth.RoleProcurement))
}

func TestPolicy_PharmacistScenario(t *testing.T) {
	assert.False(t, auth.CanAccessPage("PHARMACIST", "settings"))
	assert.True(t, auth.CanAccessPage("PHARMACIST", "pos"))
}

func TestPolicy_FailsClosed(t *testing.T) {
	tests := []struct {
		name string
		role auth.UserRole
		page auth.Page
		act  auth.Action
	}{
		{"unknown page", auth.RoleAdmin, "billing", "billing.refund"},
		{"unknown role", "JANITOR", auth.PageDashboard, auth.ActionSaleCreate},
		{"empty role", "", auth.PageDashboard, auth.ActionSaleCreate},
		{"empty keys", auth.RoleAdmin, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, auth.CanAccessPage(tt.role, tt.page))
			assert.False(t, auth.CanPerformAction(tt.role, tt.act))
		})
	}
}

func TestPolicy_AliasAndCase(t *testing.T) {
	assert.True(t, auth.CanAccessPage("inventory_manager", auth.PageSettings))
	assert.True(t, auth.CanPerformAction(" manager ", auth.ActionOrderCreate))
	assert.False(t, auth.CanPerformAction("inventory_manager", auth.ActionInventoryDelete))
}

func TestPolicy_Idempotent(t *testing.T) {
	for i := 0; i < 100; i++ {
		assert.False(t, auth.CanAccessPage(auth.RolePharmacist, auth.PageSettings))
		assert.True(t, auth.CanAccessPage(auth.RolePharmacist, auth.PagePOS))
	}
	assert.Equal(t, auth.AllowedActions(auth.RoleManager), auth.AllowedActions(auth.RoleManager))
}

func TestNavigation(t *testing.T) {
	retail := auth.Navigation(auth.ModeRetail, auth.RolePharmacist)
	hospital := auth.Navigation(auth.ModeHospital, auth.RolePharmacist)

	pages := func(items []auth.NavItem) []auth.Page {
		out := make([]auth.Page, 0, len(items))
		for _, item := range items {
			out = append(out, item.Page)
		}
		return out
	}

	assert.Equal(t, []auth.Page{auth.PageDashboard, auth.PagePOS, auth.PageInventory}, pages(retail))
	assert.Equal(t, pages(retail), pages(hospital), "mode only changes labels")

	assert.Equal(t, "Point of Sale", retail[1].Label)
	assert.Equal(t, "Dispensing", hospital[1].Label)
	assert.Equal(t, "Ward Stock", hospital[2].Label)
	assert.Equal(t, "/pos", retail[1].Path)

	assert.Len(t, auth.Navigation(auth.ModeRetail, auth.RoleAdmin), 6)
	assert.Equal(t, []auth.Page{auth.PageDashboard}, pages(auth.Navigation(auth.ModeHospital, auth.RoleProcurement)))
	assert.Empty(t, auth.Navigation(auth.ModeRetail, "JANITOR"))
	assert.Len(t, auth.Navigation("CLINIC", auth.RoleAdmin), 6)
}

func contains(roles []auth.UserRole, role auth.UserRole) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
