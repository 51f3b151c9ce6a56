package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-min-32-chars-long!!!!")

func TestBuildAndParseJWT(t *testing.T) {
	tok, err := BuildJWT(testSecret, "user-123", RoleTherapist, "Ana", time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(testSecret, tok)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, RoleTherapist, claims.Role)
	assert.Equal(t, "Ana", claims.Name)
	assert.Equal(t, "user-123", claims.Subject)
}

func TestParseJWTWrongSecret(t *testing.T) {
	tok, err := BuildJWT(testSecret, "user-123", RoleTherapist, "", time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT([]byte("another-secret-min-32-chars-long!!"), tok)
	assert.Error(t, err)
}

func TestParseJWTExpired(t *testing.T) {
	tok, err := BuildJWT(testSecret, "user-123", RoleTherapist, "", -time.Minute)
	require.NoError(t, err)
	_, err = ParseJWT(testSecret, tok)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestClaimsContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", TherapistIDFrom(ctx))
	assert.False(t, IsSuperAdmin(ctx))

	ctx = WithClaims(ctx, &Claims{UserID: "t1", Role: RoleSuperAdmin})
	assert.Equal(t, "t1", TherapistIDFrom(ctx))
	assert.Equal(t, RoleSuperAdmin, RoleFrom(ctx))
	assert.True(t, IsSuperAdmin(ctx))
}
