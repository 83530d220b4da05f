package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mlocoes/BolsaV2/src/config"
)

func testConfig(t *testing.T) {
	t.Helper()
	previous := config.Cfg
	config.Cfg = &config.AppConfig{
		JWTSecret:          "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 7 * 24 * time.Hour,
	}
	t.Cleanup(func() { config.Cfg = previous })
}

func TestTokenRoundTrip(t *testing.T) {
	testConfig(t)
	svc := NewAuthService("test-secret")

	token, err := svc.GenerateToken("42")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	sub, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "42", sub)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	testConfig(t)
	token, err := NewAuthService("secret-a").GenerateToken("42")
	require.NoError(t, err)

	_, err = NewAuthService("secret-b").ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	testConfig(t)
	_, err := NewAuthService("test-secret").ValidateToken("not.a.jwt")
	assert.Error(t, err)
}

func TestPasswordHashRoundTrip(t *testing.T) {
	svc := NewAuthService("test-secret")

	hash, err := svc.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, svc.CompareHashAndPassword(hash, "correct horse battery staple"))
	assert.Error(t, svc.CompareHashAndPassword(hash, "wrong password"))
}

func TestGenerateRefreshToken_Unique(t *testing.T) {
	svc := NewAuthService("test-secret")

	a, err := svc.GenerateRefreshToken()
	require.NoError(t, err)
	b, err := svc.GenerateRefreshToken()
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
