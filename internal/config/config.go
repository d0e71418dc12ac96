package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Defaults mirror the path layout served by the API. Admin patterns gate
// catalog management and cross-user operations; exempt patterns keep the
// login, registration and 2FA endpoints reachable before the second factor
// is completed.
const (
	defaultAdminPaths  = "/api/role-permission/**,/api/user/get-all,/api/user/delete/**,/api/user/changeRole/**"
	defaultExemptPaths = "/auth/**,/login**,/error**,/2fa/**"
)

// Config carries every runtime knob the service reads from the environment.
type Config struct {
	Addr        string
	PostgresDSN string

	// Token signing.
	JWTSecret string
	TokenTTL  time.Duration

	// Seed encryption for two-factor secrets. Distinct from JWTSecret.
	EncryptionSecret string

	// Shared secret presented by the front door on every internal call.
	InternalKey string

	AdminPathPatterns       []string
	TwoFactorExemptPatterns []string

	// Interactive clients are pointed here when the second factor is missing.
	TwoFactorRedirectURL string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func splitPatterns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	c := &Config{
		Addr:                 getenv("IDENTRA_ADDR", ":8080"),
		PostgresDSN:          getenv("IDENTRA_PG_DSN", ""),
		JWTSecret:            getenv("IDENTRA_JWT_SECRET", ""),
		EncryptionSecret:     getenv("IDENTRA_ENCRYPTION_SECRET", ""),
		InternalKey:          getenv("IDENTRA_INTERNAL_KEY", ""),
		TwoFactorRedirectURL: getenv("IDENTRA_TWOFA_REDIRECT_URL", ""),
	}

	ttlRaw := getenv("IDENTRA_JWT_TTL", "15m")
	ttl, err := time.ParseDuration(ttlRaw)
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("invalid IDENTRA_JWT_TTL: %s", ttlRaw)
	}
	c.TokenTTL = ttl

	c.AdminPathPatterns = splitPatterns(getenv("IDENTRA_ADMIN_PATHS", defaultAdminPaths))
	c.TwoFactorExemptPatterns = splitPatterns(getenv("IDENTRA_TWOFA_EXEMPT_PATHS", defaultExemptPaths))

	if c.JWTSecret == "" {
		return nil, errors.New("IDENTRA_JWT_SECRET must be set")
	}
	if c.EncryptionSecret == "" {
		return nil, errors.New("IDENTRA_ENCRYPTION_SECRET must be set")
	}
	if c.EncryptionSecret == c.JWTSecret {
		return nil, errors.New("IDENTRA_ENCRYPTION_SECRET must differ from IDENTRA_JWT_SECRET")
	}
	return c, nil
}
