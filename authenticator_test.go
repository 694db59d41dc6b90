package auth_test

import (
	"context"
	"testing"
	"time"

	auth "github.com/goliatone/go-pharmacy-auth"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	registered := f.mustRegister(t, janeDoe())

	res, err := f.auther.Login(context.Background(), "  Jane@X.com ", "pw123456")
	require.NoError(t, err)

	assert.Equal(t, registered.User.ID, res.User.ID)
	assert.Empty(t, res.User.PasswordHash)
	require.NotEmpty(t, res.Token)

	claims, err := f.tokens.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID.String(), claims.UserID())
	assert.Equal(t, registered.User.OrganizationID.String(), claims.OrganizationID())
	assert.Equal(t, "ADMIN", claims.Role())

	stored, err := f.repo.Users().FindByEmail(context.Background(), "jane@x.com")
	require.NoError(t, err)
	assert.NotNil(t, stored.LoggedInAt)

	assert.Contains(t, f.activity.types(), auth.ActivityEventLoginSuccess)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newFixture(t)
	f.mustRegister(t, janeDoe())

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "jane@x.com", "wrong-password"},
		{"unknown email", "nobody@x.com", "pw123456"},
		{"empty password", "jane@x.com", ""},
		{"empty email", "", "pw123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.auther.Login(context.Background(), tt.email, tt.password)
			assert.Nil(t, res, "no token on failure")
			require.Error(t, err)
			assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
			assert.Equal(t, auth.ErrInvalidCredentials.Error(), err.Error())
		})
	}
}

func TestLogin_FailureEventHasNoPassword(t *testing.T) {
	f := newFixture(t)
	f.mustRegister(t, janeDoe())

	_, err := f.auther.Login(context.Background(), "jane@x.com", "super-secret-guess")
	require.Error(t, err)

	f.activity.mu.Lock()
	defer f.activity.mu.Unlock()
	last := f.activity.events[len(f.activity.events)-1]
	assert.Equal(t, auth.ActivityEventLoginFailure, last.EventType)
	assert.Equal(t, "jane@x.com", last.Email)
	for _, v := range last.Metadata {
		assert.NotEqual(t, "super-secret-guess", v)
	}
}

func TestIdentityFromToken(t *testing.T) {
	f := newFixture(t)
	registered := f.mustRegister(t, janeDoe())

	user, claims, err := f.auther.IdentityFromToken(context.Background(), registered.Token)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, user.ID)
	assert.Empty(t, user.PasswordHash)
	assert.Equal(t, "ADMIN", claims.Role())
}

func TestIdentityFromToken_Failures(t *testing.T) {
	f := newFixture(t)
	registered := f.mustRegister(t, janeDoe())

	expired, err := f.tokens.Issue(auth.ClaimsForUser(registered.User), -time.Second)
	require.NoError(t, err)

	_, _, err = f.auther.IdentityFromToken(context.Background(), expired)
	assert.ErrorIs(t, err, auth.ErrTokenExpired)

	_, _, err = f.auther.IdentityFromToken(context.Background(), "garbage")
	assert.ErrorIs(t, err, auth.ErrTokenInvalid)

	ghost := testUser()
	token, err := f.tokens.Generate(ghost)
	require.NoError(t, err)
	_, _, err = f.auther.IdentityFromToken(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid, "unknown user")

	moved := *registered.User
	moved.OrganizationID = testUser().OrganizationID
	token, err = f.tokens.Generate(&moved)
	require.NoError(t, err)
	_, _, err = f.auther.IdentityFromToken(context.Background(), token)
	assert.ErrorIs(t, err, auth.ErrTokenInvalid, "organization mismatch")
}

func TestAuther_Metrics(t *testing.T) {
	f := newFixture(t)
	f.mustRegister(t, janeDoe())

	reg := prometheus.NewRegistry()
	collector := auth.NewCollector(reg)
	f.auther.WithMetrics(collector)

	_, err := f.auther.Login(context.Background(), "jane@x.com", "pw123456")
	require.NoError(t, err)
	_, err = f.auther.Login(context.Background(), "jane@x.com", "nope-nope")
	require.Error(t, err)
	_, err = f.auther.ValidateToken("garbage")
	require.Error(t, err)

	assert.Equal(t, 1.0, counterValue(t, reg, "pharmacy_auth_logins_total", auth.OutcomeSuccess))
	assert.Equal(t, 1.0, counterValue(t, reg, "pharmacy_auth_logins_total", auth.TextCodeInvalidCredentials))
	assert.Equal(t, 1.0, counterValue(t, reg, "pharmacy_auth_token_validations_total", auth.TextCodeTokenInvalid))
}

// counterValue reads one labelled counter from reg
func counterValue(t *testing.T, reg *prometheus.Registry, name, outcome string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" && label.GetValue() == outcome {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestIsCredentialsError(t *testing.T) {
	assert.True(t, auth.IsCredentialsError(auth.ErrInvalidCredentials))
	assert.True(t, auth.IsCredentialsError(auth.ErrRecordNotFound))
	assert.True(t, auth.IsCredentialsError(auth.ErrMismatchedHashAndPassword))
	assert.False(t, auth.IsCredentialsError(auth.ErrTokenExpired))
	assert.False(t, auth.IsCredentialsError(nil))
}
