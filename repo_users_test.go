package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/goliatone/go-pharmacy-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func createOrg(t *testing.T, repo auth.RepositoryManager) *auth.Organization {
	t.Helper()
	org, err := repo.Organizations().Create(context.Background(), &auth.Organization{
		Name: "Main Street Pharmacy",
		Type: auth.OrganizationRetailPharmacy,
	})
	require.NoError(t, err)
	return org
}

func TestUsers_CreateAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	require.NoError(t, repo.Validate())
	ctx := context.Background()

	org := createOrg(t, repo)

	created, err := repo.Users().Create(ctx, &auth.User{
		Email:          "  Sam@Example.COM ",
		PasswordHash:   "$2a$04$placeholderplaceholderplaceholderplaceholderplaceho",
		FirstName:      "Sam",
		Role:           auth.UserRole("inventory_manager"),
		OrganizationID: org.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", created.Email)
	assert.Equal(t, auth.RoleManager, created.Role)
	assert.NotEqual(t, uuid.Nil, created.ID)

	byEmail, err := repo.Users().FindByEmail(ctx, "SAM@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	require.NotNil(t, byEmail.Organization)
	assert.Equal(t, org.Name, byEmail.Organization.Name)

	byID, err := repo.Users().FindByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", byID.Email)
}

func TestUsers_NotFound(t *testing.T) {
	repo := auth.NewRepositoryManager(newTestDB(t))
	ctx := context.Background()

	_, err := repo.Users().FindByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, auth.ErrRecordNotFound)

	_, err = repo.Users().FindByEmail(ctx, "   ")
	assert.ErrorIs(t, err, auth.ErrRecordNotFound)

	_, err = repo.Users().FindByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, auth.ErrRecordNotFound)

	_, err = repo.Users().FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, auth.ErrRecordNotFound)
}

func TestUsers_UniqueEmail(t *testing.T) {
	repo := auth.NewRepositoryManager(newTestDB(t))
	ctx := context.Background()
	org := createOrg(t, repo)

	newUser := func(email string) *auth.User {
		return &auth.User{
			Email:          email,
			PasswordHash:   "hash",
			FirstName:      "Dup",
			Role:           auth.RolePharmacist,
			OrganizationID: org.ID,
		}
	}

	_, err := repo.Users().Create(ctx, newUser("dup@example.com"))
	require.NoError(t, err)

	_, err = repo.Users().Create(ctx, newUser(" DUP@example.com"))
	assert.ErrorIs(t, err, auth.ErrDuplicateIdentity)
}

func TestUsers_RequiresOrganization(t *testing.T) {
	repo := auth.NewRepositoryManager(newTestDB(t))

	_, err := repo.Users().Create(context.Background(), &auth.User{
		Email:          "orphan@example.com",
		PasswordHash:   "hash",
		FirstName:      "Orphan",
		Role:           auth.RolePharmacist,
		OrganizationID: uuid.New(),
	})
	assert.Error(t, err)
}

func TestUsers_UpsertByEmail(t *testing.T) {
	repo := auth.NewRepositoryManager(newTestDB(t))
	ctx := context.Background()
	org := createOrg(t, repo)

	first, err := repo.Users().UpsertByEmail(ctx, "admin@demo.test", &auth.User{
		PasswordHash:   "hash-1",
		FirstName:      "Demo",
		LastName:       "Admin",
		Role:           auth.RoleAdmin,
		OrganizationID: org.ID,
	})
	require.NoError(t, err)

	second, err := repo.Users().UpsertByEmail(ctx, "ADMIN@demo.test", &auth.User{
		PasswordHash:   "hash-2",
		FirstName:      "Demo",
		LastName:       "Manager",
		Role:           auth.RoleManager,
		OrganizationID: org.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	stored, err := repo.Users().FindByEmail(ctx, "admin@demo.test")
	require.NoError(t, err)
	assert.Equal(t, "hash-2", stored.PasswordHash)
	assert.Equal(t, auth.RoleManager, stored.Role)
	assert.Equal(t, "Manager", stored.LastName)
}

func TestUsers_UpsertByEmail_KeepsOrganization(t *testing.T) {
	repo := auth.NewRepositoryManager(newTestDB(t))
	ctx := context.Background()
	home := createOrg(t, repo)
	other := createOrg(t, repo)

	_, err := repo.Users().UpsertByEmail(ctx, "admin@demo.test", &auth.User{
		PasswordHash:   "hash-1",
		FirstName:      "Demo",
		Role:           auth.RoleAdmin,
		OrganizationID: home.ID,
	})
	require.NoError(t, err)

	_, err = repo.Users().UpsertByEmail(ctx, "admin@demo.test", &auth.User{
		PasswordHash:   "hash-2",
		FirstName:      "Demo",
		Role:           auth.RoleAdmin,
		OrganizationID: other.ID,
	})
	assert.ErrorIs(t, err, auth.ErrOrganizationChange)

	stored, err := repo.Users().FindByEmail(ctx, "admin@demo.test")
	require.NoError(t, err)
	assert.Equal(t, home.ID, stored.OrganizationID)
	assert.Equal(t, "hash-1", stored.PasswordHash)
}

func TestUsers_TrackSuccessfulLogin(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db, auth.WithUsersOptions(
		auth.WithUsersClock(func() time.Time { return at }),
	))
	ctx := context.Background()
	org := createOrg(t, repo)

	user, err := repo.Users().Create(ctx, &auth.User{
		Email:          "login@example.com",
		PasswordHash:   "hash",
		FirstName:      "Login",
		Role:           auth.RolePharmacist,
		OrganizationID: org.ID,
	})
	require.NoError(t, err)

	require.NoError(t, repo.Users().TrackSuccessfulLogin(ctx, user))
	require.NotNil(t, user.LoggedInAt)

	stored, err := repo.Users().FindByID(ctx, user.ID.String())
	require.NoError(t, err)
	require.NotNil(t, stored.LoggedInAt)
	assert.True(t, at.Equal(stored.LoggedInAt.UTC()))
}

func TestUsers_IDGenerator(t *testing.T) {
	fixed := uuid.MustParse("7b0c8d5e-1f2a-4b3c-9d4e-5f6a7b8c9d0e")
	repo := auth.NewRepositoryManager(newTestDB(t), auth.WithUsersOptions(
		auth.WithUserIDGenerator(func(string) uuid.UUID { return fixed }),
	))
	org := createOrg(t, repo)

	user, err := repo.Users().Create(context.Background(), &auth.User{
		Email:          "fixed@example.com",
		PasswordHash:   "hash",
		FirstName:      "Fixed",
		Role:           auth.RoleAdmin,
		OrganizationID: org.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, fixed, user.ID)
}

func TestRepositoryManager_RunInTxCancelled(t *testing.T) {
	repo := auth.NewRepositoryManager(newTestDB(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := repo.RunInTx(ctx, nil, func(context.Context, bun.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
