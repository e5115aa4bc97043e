package identity

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/smartcity/civicdash/internal/pkg/env"
)

const devSecret = "civicdash-dev-secret-change-me"

// Config holds token and signup settings
type Config struct {
	JWTSecret        []byte
	Issuer           string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	AllowAdminSignup bool
	CookieSecure     bool
}

// LoadConfig loads identity configuration from environment variables
func LoadConfig() (*Config, error) {
	secret := env.GetEnv("JWT_SECRET", "")
	if secret == "" {
		if !env.IsDev() {
			return nil, errors.New("JWT_SECRET is required outside of development")
		}
		log.Warn("[Identity] JWT_SECRET not set, using the development secret")
		secret = devSecret
	}

	return &Config{
		JWTSecret:        []byte(secret),
		Issuer:           env.GetEnv("JWT_ISSUER", "civicdash"),
		AccessTokenTTL:   env.GetDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:  env.GetDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		AllowAdminSignup: env.GetBool("ALLOW_ADMIN_SIGNUP", false),
		CookieSecure:     !env.IsDev(),
	}, nil
}
