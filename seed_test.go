package auth_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-pharmacy-auth"
)

func demoFixture() auth.SeedFixture {
	return auth.SeedFixture{
		Organization: auth.SeedOrganization{
			Name:     "Demo Hospital",
			Mode:     "HOSPITAL",
			JoinCode: "01HDEMO0000000000000000000",
		},
		Accounts: []auth.SeedAccount{
			{Name: "Demo Admin", Email: "Admin@Demo.test", Password: "admin-pass-1", Role: "ADMIN"},
			{Name: "Demo Pharmacist", Email: "pharmacist@demo.test", Password: "pharm-pass-1", Role: "PHARMACIST"},
		},
	}
}

func TestSeedAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seeded, err := auth.SeedAccounts(ctx, f.repo, f.hasher, demoFixture(),
		auth.WithSeedActivitySink(f.activity),
	)
	require.NoError(t, err)
	require.Len(t, seeded, 2)

	assert.Equal(t, "admin@demo.test", seeded[0].Email)
	assert.Equal(t, auth.RoleAdmin, seeded[0].Role)
	assert.Empty(t, seeded[0].PasswordHash)
	require.NotNil(t, seeded[0].Organization)
	assert.Equal(t, auth.OrganizationHospital, seeded[0].Organization.Type)
	assert.Equal(t, seeded[0].OrganizationID, seeded[1].OrganizationID)

	stored, err := f.repo.Users().FindByEmail(ctx, "admin@demo.test")
	require.NoError(t, err)
	assert.NotEqual(t, "admin-pass-1", stored.PasswordHash)

	res, err := f.auther.Login(ctx, "pharmacist@demo.test", "pharm-pass-1")
	require.NoError(t, err)
	assert.Equal(t, auth.RolePharmacist, res.User.Role)

	assert.Equal(t, []auth.ActivityEventType{
		auth.ActivityEventSeeded,
		auth.ActivityEventSeeded,
	}, f.activity.types()[:2])
}

func TestSeedAccounts_Repeatable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := auth.SeedAccounts(ctx, f.repo, f.hasher, demoFixture())
	require.NoError(t, err)

	fixture := demoFixture()
	fixture.Accounts[0].Password = "rotated-pass-2"
	_, err = auth.SeedAccounts(ctx, f.repo, f.hasher, fixture)
	require.NoError(t, err)

	assert.Equal(t, 1, f.countRows(t, (*auth.Organization)(nil)))
	assert.Equal(t, 2, f.countRows(t, (*auth.User)(nil)))

	_, err = f.auther.Login(ctx, "admin@demo.test", "admin-pass-1")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = f.auther.Login(ctx, "admin@demo.test", "rotated-pass-2")
	assert.NoError(t, err)
}

func TestSeedAccounts_JoinableOrganization(t *testing.T) {
	f := newFixture(t)

	_, err := auth.SeedAccounts(context.Background(), f.repo, f.hasher, demoFixture())
	require.NoError(t, err)

	msg := janeDoe()
	msg.OrgCode = "01hdemo0000000000000000000"
	res := f.mustRegister(t, msg)
	assert.Equal(t, auth.OrganizationHospital, res.User.Organization.Type)
}

func TestSeedFixture_Validate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*auth.SeedFixture)
	}{
		{"no accounts", func(f *auth.SeedFixture) { f.Accounts = nil }},
		{"missing join code", func(f *auth.SeedFixture) { f.Organization.JoinCode = "" }},
		{"bad mode", func(f *auth.SeedFixture) { f.Organization.Mode = "CLINIC" }},
		{"short password", func(f *auth.SeedFixture) { f.Accounts[1].Password = "pw" }},
		{"bad role", func(f *auth.SeedFixture) { f.Accounts[0].Role = "ROOT" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := demoFixture()
			tt.edit(&fixture)

			err := fixture.Validate()
			require.Error(t, err)

			var richErr *goerrors.Error
			require.True(t, goerrors.As(err, &richErr))
			assert.Equal(t, goerrors.CategoryValidation, richErr.Category)
		})
	}
}

func TestSeedAccounts_InvalidFixtureWritesNothing(t *testing.T) {
	f := newFixture(t)

	fixture := demoFixture()
	fixture.Accounts[1].Email = "nope"

	_, err := auth.SeedAccounts(context.Background(), f.repo, f.hasher, fixture)
	require.Error(t, err)
	assert.Equal(t, 0, f.countRows(t, (*auth.Organization)(nil)))
}

func TestSeedAccounts_DoesNotMoveExistingUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	jane := f.mustRegister(t, janeDoe())

	fixture := demoFixture()
	fixture.Accounts = append(fixture.Accounts, auth.SeedAccount{
		Name: "Jane Doe", Email: " JANE@x.com", Password: "other-pass-1", Role: "PHARMACIST",
	})

	_, err := auth.SeedAccounts(ctx, f.repo, f.hasher, fixture)
	assert.ErrorIs(t, err, auth.ErrOrganizationChange)

	stored, err := f.repo.Users().FindByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, jane.User.OrganizationID, stored.OrganizationID)
	assert.Equal(t, auth.RoleAdmin, stored.Role)

	_, err = f.repo.Users().FindByEmail(ctx, "admin@demo.test")
	assert.ErrorIs(t, err, auth.ErrRecordNotFound, "whole seed rolled back")
}

func TestSeedAccount_ValidateTrimsEmail(t *testing.T) {
	account := auth.SeedAccount{Name: "Demo", Email: "  demo@demo.test ", Password: "demo-pass-1", Role: "ADMIN"}
	assert.NoError(t, account.Validate())
}
