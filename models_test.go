package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-pharmacy-auth"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		in, first, last string
	}{
		{"Jane Doe", "Jane", "Doe"},
		{"  Jane   Doe  ", "Jane", "Doe"},
		{"Gregory House MD", "Gregory", "House MD"},
		{"Cher", "Cher", ""},
		{"Jane\tDoe", "Jane", "Doe"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			first, last := auth.SplitName(tt.in)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}

func TestDefaultOrganizationName(t *testing.T) {
	assert.Equal(t, "Jane's Pharmacy", auth.DefaultOrganizationName("Jane", auth.ModeRetail))
	assert.Equal(t, "Jane's Hospital", auth.DefaultOrganizationName("Jane", auth.ModeHospital))
}

func TestParseMode(t *testing.T) {
	m, err := auth.ParseMode(" hospital ")
	require.NoError(t, err)
	assert.Equal(t, auth.ModeHospital, m)
	assert.Equal(t, auth.OrganizationHospital, m.OrganizationType())

	m, err = auth.ParseMode("RETAIL")
	require.NoError(t, err)
	assert.Equal(t, auth.OrganizationRetailPharmacy, m.OrganizationType())

	_, err = auth.ParseMode("CLINIC")
	assert.ErrorIs(t, err, auth.ErrInvalidMode)

	assert.Equal(t, auth.ModeHospital, auth.ModeFor(auth.OrganizationHospital))
	assert.Equal(t, auth.ModeRetail, auth.ModeFor(auth.OrganizationRetailPharmacy))
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want auth.UserRole
		ok   bool
	}{
		{"ADMIN", auth.RoleAdmin, true},
		{"manager", auth.RoleManager, true},
		{"INVENTORY_MANAGER", auth.RoleManager, true},
		{" inventory_manager ", auth.RoleManager, true},
		{"Pharmacist", auth.RolePharmacist, true},
		{"PROCUREMENT", auth.RoleProcurement, true},
		{"OWNER", "OWNER", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := auth.ParseRole(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@x.com", auth.NormalizeEmail("  Jane@X.COM "))
}

func TestUserSanitized(t *testing.T) {
	user := testUser()
	user.PasswordHash = "secret-hash"
	user.Organization = &auth.Organization{Name: "Org"}

	out := user.Sanitized()
	assert.Empty(t, out.PasswordHash)
	assert.Equal(t, "secret-hash", user.PasswordHash, "original untouched")

	out.Organization.Name = "Changed"
	assert.Equal(t, "Org", user.Organization.Name)

	var nilUser *auth.User
	assert.Nil(t, nilUser.Sanitized())
	assert.Equal(t, "Jane Doe", user.FullName())
}
