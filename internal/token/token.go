package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "identra"

var (
	// ErrInvalidToken covers any signature, structure or decoding failure.
	// Callers surface this generic value; the underlying parser error is
	// logged server-side only.
	ErrInvalidToken = errors.New("token: invalid token")

	// ErrExpiredToken indicates a well-formed, correctly signed token whose
	// expiry has passed. Kept distinct from ErrInvalidToken so callers can
	// tell a forged token from a stale one.
	ErrExpiredToken = errors.New("token: expired token")
)

// Claims is the signed claim set carried by every issued token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS256-signed tokens over a shared secret.
// Methods are pure functions over the signing key; the codec holds no
// mutable state.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source, useful for tests.
func WithClock(fn func() time.Time) Option {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec builds a Codec with a fixed token lifetime.
func NewCodec(secret string, ttl time.Duration, opts ...Option) (*Codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token: signing secret is required")
	}
	if ttl <= 0 {
		return nil, errors.New("token: ttl must be greater than zero")
	}
	c := &Codec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a token for the given subject and role name. The lifetime is
// the codec's configured TTL; there is no per-call override.
func (c *Codec) Issue(username, roleName string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", errors.New("token: username is required")
	}
	roleName = strings.TrimSpace(roleName)
	if roleName == "" {
		return "", errors.New("token: role name is required")
	}

	now := c.now().UTC()
	claims := Claims{
		Role: roleName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", err
	}
	return signed, nil
}

// ParseAndVerify checks the signature and structural validity of a token
// and returns its claims. Expiry is deliberately not evaluated here so the
// caller can distinguish malformed from expired; use CheckExpiry or IsValid
// for the time check.
func (c *Codec) ParseAndVerify(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return c.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != issuer {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" || strings.TrimSpace(claims.Role) == "" {
		return nil, ErrInvalidToken
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt.Time.Before(claims.IssuedAt.Time) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// CheckExpiry reports whether previously verified claims are still current.
func (c *Codec) CheckExpiry(claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return ErrInvalidToken
	}
	if !c.now().Before(claims.ExpiresAt.Time) {
		return ErrExpiredToken
	}
	return nil
}

// IsValid reports whether the token verifies, belongs to expectedUsername
// and has not expired.
func (c *Codec) IsValid(raw, expectedUsername string) bool {
	claims, err := c.ParseAndVerify(raw)
	if err != nil {
		return false
	}
	if claims.Subject != expectedUsername {
		return false
	}
	return c.CheckExpiry(claims) == nil
}
