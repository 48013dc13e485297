package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonatan-cruz/proyecto-intermodular-dam-25-26--Jonatan-Jose/internal/utils"
)

const testSecret = "unit-test-secret"

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT(1000001, "ana@example.com", "Ana", testSecret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, utils.Code(1000001), claims.UserCode)
	assert.Equal(t, "ana@example.com", claims.Login)
	assert.Equal(t, "Ana", claims.Name)
	assert.Equal(t, "1000001", claims.Subject)
}

func TestValidateJWT_WrongSecret(t *testing.T) {
	token, err := GenerateJWT(1000001, "ana@example.com", "Ana", testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "some-other-secret")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateJWT_Expired(t *testing.T) {
	token, err := GenerateJWT(1000001, "ana@example.com", "Ana", testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateJWT(token, testSecret)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateJWT_MissingAndGarbage(t *testing.T) {
	_, err := ValidateJWT("", testSecret)
	assert.ErrorIs(t, err, ErrTokenMissing)

	_, err = ValidateJWT("not.a.jwt", testSecret)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateJWT_RejectsUnexpectedAlg(t *testing.T) {
	// A token signed with "none" must never validate, even with a
	// matching payload shape.
	claims := &Claims{
		UserCode: 1000001,
		Login:    "ana@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ValidateJWT(tokenString, testSecret)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateJWT_RejectsOutOfRangeUserCode(t *testing.T) {
	token, err := GenerateJWT(0, "ana@example.com", "Ana", testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ValidateJWT(token, testSecret)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestMaybeRefresh_InsideWindow(t *testing.T) {
	expiry := time.Now().Add(10 * time.Minute)
	claims := &Claims{
		UserCode: 1000001,
		Login:    "ana@example.com",
		Name:     "Ana",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}

	newToken, rotated := MaybeRefresh(claims, testSecret, time.Hour, 30*time.Minute)
	require.True(t, rotated)

	newClaims, err := ValidateJWT(newToken, testSecret)
	require.NoError(t, err)
	assert.Equal(t, claims.UserCode, newClaims.UserCode)
	assert.True(t, newClaims.ExpiresAt.Time.After(expiry))
}

func TestMaybeRefresh_WindowBoundaries(t *testing.T) {
	secret := testSecret
	ttl := time.Hour
	threshold := 30 * time.Minute
	now := time.Now()

	claimsExpiringAt := func(expiry time.Time) *Claims {
		return &Claims{
			UserCode: 1000001,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(expiry),
			},
		}
	}

	// Fresh token, remaining lifetime above the threshold: no rotation.
	_, rotated := maybeRefreshAt(claimsExpiringAt(now.Add(45*time.Minute)), secret, ttl, threshold, now)
	assert.False(t, rotated)

	// Exactly at the threshold still counts as fresh.
	_, rotated = maybeRefreshAt(claimsExpiringAt(now.Add(threshold)), secret, ttl, threshold, now)
	assert.False(t, rotated)

	// Just inside the window rotates.
	_, rotated = maybeRefreshAt(claimsExpiringAt(now.Add(threshold-time.Second)), secret, ttl, threshold, now)
	assert.True(t, rotated)

	// Already expired never rotates.
	_, rotated = maybeRefreshAt(claimsExpiringAt(now.Add(-time.Second)), secret, ttl, threshold, now)
	assert.False(t, rotated)

	// Expiring this instant never rotates either.
	_, rotated = maybeRefreshAt(claimsExpiringAt(now), secret, ttl, threshold, now)
	assert.False(t, rotated)
}

func TestMaybeRefresh_NilClaims(t *testing.T) {
	_, rotated := MaybeRefresh(nil, testSecret, time.Hour, 30*time.Minute)
	assert.False(t, rotated)

	_, rotated = MaybeRefresh(&Claims{}, testSecret, time.Hour, 30*time.Minute)
	assert.False(t, rotated)
}
