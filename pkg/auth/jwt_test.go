package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/orderly/config"
	"github.com/shashiranjanraj/orderly/pkg/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	token, exp, err := auth.GenerateToken("admin", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(config.JWTTTL()), exp, 5*time.Second)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, config.JWTIssuer(), claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateRejectsForeignTokens(t *testing.T) {
	wrongKey := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			Issuer:    config.JWTIssuer(),
			Audience:  jwt.ClaimStrings{config.JWTAudience()},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := wrongKey.SignedString([]byte("some-other-secret"))
	require.NoError(t, err)
	_, err = auth.ValidateToken(signed)
	assert.Error(t, err)

	wrongAudience := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "admin",
			Issuer:    config.JWTIssuer(),
			Audience:  jwt.ClaimStrings{"someone-else"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err = wrongAudience.SignedString([]byte(config.JWTSecret()))
	require.NoError(t, err)
	_, err = auth.ValidateToken(signed)
	assert.Error(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    config.JWTIssuer(),
			Audience:  jwt.ClaimStrings{config.JWTAudience()},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err = expired.SignedString([]byte(config.JWTSecret()))
	require.NoError(t, err)
	_, err = auth.ValidateToken(signed)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("admin")
	require.NoError(t, err)
	assert.True(t, auth.IsHash(hash))
	assert.False(t, auth.IsHash("admin"))
	assert.True(t, auth.CheckPassword(hash, "admin"))
	assert.False(t, auth.CheckPassword(hash, "Admin"))
}
