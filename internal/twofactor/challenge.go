// Package twofactor generates and verifies time-based one-time codes. The
// TOTP seed is encrypted at rest with a key distinct from the token-signing
// secret; the plaintext form exists only inside this package and in the
// one-time enrollment response.
package twofactor

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrDecrypt reports a decryption or key failure. A merely wrong code is
// not an error; Verify returns false for that.
var ErrDecrypt = errors.New("twofactor: cannot decrypt stored seed")

const (
	codeDigits = otp.DigitsSix
	stepPeriod = 30
	// One step of skew either side tolerates client clock drift.
	stepSkew = 1
)

// Challenge issues and checks TOTP codes over encrypted seeds.
type Challenge struct {
	key    []byte
	issuer string
	now    func() time.Time
}

// Option configures a Challenge.
type Option func(*Challenge)

// WithClock overrides the time source, useful for tests.
func WithClock(fn func() time.Time) Option {
	return func(c *Challenge) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewChallenge derives a 256-bit seed-encryption key from the configured
// secret.
func NewChallenge(encryptionSecret, issuer string, opts ...Option) (*Challenge, error) {
	if strings.TrimSpace(encryptionSecret) == "" {
		return nil, errors.New("twofactor: encryption secret is required")
	}
	if strings.TrimSpace(issuer) == "" {
		return nil, errors.New("twofactor: issuer is required")
	}
	sum := sha256.Sum256([]byte(encryptionSecret))
	c := &Challenge{
		key:    sum[:],
		issuer: issuer,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Enrollment is the result of provisioning a fresh seed. Seed and URL are
// for one-time display; only Encrypted may be persisted.
type Enrollment struct {
	Seed      string
	Encrypted string
	URL       string
}

// Enroll generates a fresh random seed for the account.
func (c *Challenge) Enroll(account string) (Enrollment, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return Enrollment{}, errors.New("twofactor: account is required")
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      c.issuer,
		AccountName: account,
		Period:      stepPeriod,
		Digits:      codeDigits,
	})
	if err != nil {
		return Enrollment{}, fmt.Errorf("twofactor: generate seed: %w", err)
	}
	encrypted, err := c.encrypt(key.Secret())
	if err != nil {
		return Enrollment{}, err
	}
	return Enrollment{
		Seed:      key.Secret(),
		Encrypted: encrypted,
		URL:       key.URL(),
	}, nil
}

// IssueCurrentCode computes the code for the current time step. Used only
// for out-of-band delivery, not interactive pairing.
func (c *Challenge) IssueCurrentCode(encryptedSeed string) (string, error) {
	seed, err := c.decrypt(encryptedSeed)
	if err != nil {
		return "", err
	}
	code, err := totp.GenerateCode(seed, c.now())
	if err != nil {
		return "", fmt.Errorf("twofactor: generate code: %w", err)
	}
	return code, nil
}

// Verify checks a submitted code against the current step plus or minus
// one. A wrong code returns (false, nil); only decryption or key problems
// produce an error.
func (c *Challenge) Verify(encryptedSeed, submittedCode string) (bool, error) {
	seed, err := c.decrypt(encryptedSeed)
	if err != nil {
		return false, err
	}
	ok, err := totp.ValidateCustom(strings.TrimSpace(submittedCode), seed, c.now(), totp.ValidateOpts{
		Period:    stepPeriod,
		Skew:      stepSkew,
		Digits:    codeDigits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		// ValidateCustom only errors on malformed input; treat it as a
		// failed attempt rather than a fault.
		return false, nil
	}
	return ok, nil
}

func (c *Challenge) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("twofactor: init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("twofactor: init gcm: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("twofactor: nonce: %w", err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *Challenge) decrypt(encrypted string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", ErrDecrypt
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", ErrDecrypt
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", ErrDecrypt
	}
	if len(raw) < gcm.NonceSize() {
		return "", ErrDecrypt
	}
	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
