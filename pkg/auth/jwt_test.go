package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken("u-1", RoleNominee)
	require.NoError(t, err)

	claims, err := ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, RoleNominee, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestTokensAreUnique(t *testing.T) {
	a, _ := GenerateToken("u-1", RoleAdmin)
	b, _ := GenerateToken("u-1", RoleAdmin)
	ca, _ := ValidateToken(a)
	cb, _ := ValidateToken(b)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UserID: "u-1", Role: RoleAdmin}).
		SignedString([]byte("someone-else"))
	require.NoError(t, err)

	_, err = ValidateToken(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHashAndCheck(t *testing.T) {
	h, err := Hash("1005")
	require.NoError(t, err)
	assert.NotEqual(t, "1005", h)
	assert.True(t, Check(h, "1005"))
	assert.False(t, Check(h, "1006"))
}

func TestIdentityContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{ID: "u-2", Role: RoleStrategist})
	id, ok := FromContext(ctx)
	require.True(t, ok)
	assert.True(t, id.Is(RoleStrategist))
}
