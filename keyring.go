package auth

import (
	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultSigningKeyID is the kid stamped on tokens when none is configured
const DefaultSigningKeyID = "primary"

const signingAlg = "HS256"

// KeyRing holds the active HMAC signing key plus retired keys that are
// still accepted for verification. Rotating the secret moves the old
// one to the retired set so sessions issued before the rotation keep
// working until they expire; dropping a retired key revokes them.
type KeyRing struct {
	activeID  string
	activeKey []byte
	jwks      *keyfunc.JWKS
}

// NewKeyRing builds a key ring. An empty active key is rejected.
func NewKeyRing(activeID string, activeKey []byte, retired map[string][]byte) (*KeyRing, error) {
	if len(activeKey) == 0 {
		return nil, ErrMissingSigningKey
	}
	if activeID == "" {
		activeID = DefaultSigningKeyID
	}

	given := make(map[string]keyfunc.GivenKey, len(retired)+1)
	for kid, key := range retired {
		if kid == "" || len(key) == 0 {
			continue
		}
		given[kid] = keyfunc.NewGivenCustom(key, keyfunc.GivenKeyOptions{
			Algorithm: signingAlg,
		})
	}
	given[activeID] = keyfunc.NewGivenCustom(activeKey, keyfunc.GivenKeyOptions{
		Algorithm: signingAlg,
	})

	return &KeyRing{
		activeID:  activeID,
		activeKey: activeKey,
		jwks:      keyfunc.NewGiven(given),
	}, nil
}

// ActiveID is the kid new tokens are signed with
func (k *KeyRing) ActiveID() string {
	return k.activeID
}

// KIDs lists every key id accepted for verification
func (k *KeyRing) KIDs() []string {
	return k.jwks.KIDs()
}

// Sign signs claims with the active key
func (k *KeyRing) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = k.activeID
	return token.SignedString(k.activeKey)
}

// Keyfunc resolves the verification key from the token kid header
func (k *KeyRing) Keyfunc(token *jwt.Token) (any, error) {
	return k.jwks.Keyfunc(token)
}
