package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/emify?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "emify-backend", cfg.TokenIssuer)
	assert.Equal(t, 10*time.Minute, cfg.OTPTTL)
	assert.Equal(t, time.Hour, cfg.PrimaryTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, "keys/es256_private.pem", cfg.PrivateKeyPath)
	assert.Equal(t, "keys/es256_public.pem", cfg.PublicKeyPath)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/emify?sslmode=disable")
	t.Setenv("PORT", "9090")
	t.Setenv("OTP_TTL", "5m")
	t.Setenv("PRIMARY_TOKEN_TTL", "30m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 30*time.Minute, cfg.PrimaryTokenTTL)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/emify?sslmode=disable")
	t.Setenv("OTP_TTL", "not-a-duration")

	_, err := Load()
	require.Error(t, err)
}
