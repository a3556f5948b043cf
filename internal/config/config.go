package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the application configuration. The signing key pair and the
// store handle built from it are constructed once at startup and injected
// into each component; nothing reads the environment after Load returns.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	Port        string `env:"PORT" envDefault:"8080"`

	// PEM-encoded ECDSA P-256 key pair for ES256 token signing. The process
	// refuses to start if either file is unreadable.
	PrivateKeyPath string `env:"JWT_PRIVATE_KEY_PATH" envDefault:"keys/es256_private.pem"`
	PublicKeyPath  string `env:"JWT_PUBLIC_KEY_PATH" envDefault:"keys/es256_public.pem"`

	TokenIssuer     string        `env:"TOKEN_ISSUER" envDefault:"emify-backend"`
	OTPTTL          time.Duration `env:"OTP_TTL" envDefault:"10m"`
	PrimaryTokenTTL time.Duration `env:"PRIMARY_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
