package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agriconnect/marketplace-service/internal/domain"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)

	token, expiresAt, err := tm.GenerateToken("user-42", domain.RoleFarmer)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expiresAt, time.Minute)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.UserID)
	assert.Equal(t, domain.RoleFarmer, claims.Role)
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	issued, _, err := NewTokenManager("secret-a", 30).GenerateToken("user-42", domain.RoleClient)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", 30).ParseToken(issued)
	assert.Error(t, err)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	tm := NewTokenManager("test-secret", 30)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := tm.ParseToken(token)
		assert.Error(t, err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("orchard-gate", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "orchard-gate", hash)

	assert.NoError(t, ComparePassword(hash, "orchard-gate"))
	assert.Error(t, ComparePassword(hash, "wrong-password"))
}
