package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-pharmacy-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := auth.HashPassword(tt.password)

			if tt.wantErr {
				assert.ErrorIs(t, err, auth.ErrNoEmptyString)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, hash)
			assert.NotEqual(t, tt.password, hash)
			assert.NoError(t, auth.ComparePasswordAndHash(tt.password, hash))
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	password := "testPassword123!"
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		hash     string
		wantErr  error
	}{
		{
			name:     "Matching password",
			password: password,
			hash:     hash,
		},
		{
			name:     "Non-matching password",
			password: "wrongPassword",
			hash:     hash,
			wantErr:  auth.ErrMismatchedHashAndPassword,
		},
		{
			name:     "Case sensitive",
			password: "TESTPASSWORD123!",
			hash:     hash,
			wantErr:  auth.ErrMismatchedHashAndPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.ComparePasswordAndHash(tt.password, tt.hash)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	t.Run("Invalid hash is not a mismatch", func(t *testing.T) {
		err := auth.ComparePasswordAndHash(password, "not-a-bcrypt-hash")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
	})
}

func TestHasher_Cost(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero uses default", 0, auth.DefaultPasswordCost},
		{"below minimum is clamped", 1, bcrypt.MinCost},
		{"above maximum is clamped", 99, bcrypt.MaxCost},
		{"explicit", 6, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.NewHasher(tt.in).Cost())
		})
	}

	t.Run("hash embeds the configured cost", func(t *testing.T) {
		h := auth.NewHasher(bcrypt.MinCost)
		hash, err := h.HashPassword("pw123456")
		require.NoError(t, err)

		cost, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, bcrypt.MinCost, cost)
	})
}

func TestHasher_Verify(t *testing.T) {
	h := auth.NewHasher(bcrypt.MinCost)

	first, err := h.HashPassword("p1-secret")
	require.NoError(t, err)
	second, err := h.HashPassword("p1-secret")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "salted hashes differ")
	assert.True(t, h.Verify("p1-secret", first))
	assert.True(t, h.Verify("p1-secret", second))
	assert.False(t, h.Verify("p2-secret", first))
	assert.False(t, h.Verify("", first))
}
