// Package token issues and verifies the signed, expiring bearer tokens that
// bind a request to a subject (username). Verification is stateless: a token
// is valid purely on signature and time, with no revocation store.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is the token lifetime used when none is configured.
const DefaultTTL = 86_400_000 * time.Millisecond

// MinKeyBytes is the minimum HMAC key length (256 bits).
const MinKeyBytes = 32

var (
	// ErrTokenInvalid covers malformed tokens, bad signatures and bad claims.
	ErrTokenInvalid = errors.New("token: invalid")
	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = errors.New("token: expired")
	// ErrEmptySubject is returned when issuing a token without a subject.
	ErrEmptySubject = errors.New("token: subject required")
)

// Codec creates and verifies HMAC-signed JWTs. It is safe for concurrent use;
// its key is read-only after construction.
type Codec struct {
	key    []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

// NewCodec builds a Codec from a shared secret and a token lifetime.
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token: signing secret required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token: ttl must be positive, got %s", ttl)
	}
	key := DeriveKey(secret)
	return &Codec{
		key:    key,
		method: methodForKey(key),
		ttl:    ttl,
	}, nil
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Algorithm returns the JWS algorithm used for signing.
func (c *Codec) Algorithm() string {
	return c.method.Alg()
}

// Issue signs a token for subject with issued-at = now and expiry = now + TTL.
// Times are truncated to whole seconds.
func (c *Codec) Issue(subject string, now time.Time) (string, error) {
	if strings.TrimSpace(subject) == "" {
		return "", ErrEmptySubject
	}
	issuedAt := now.Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.ttl)),
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and validity window of raw at time now and
// returns the subject it binds. There is no clock-skew leeway.
func (c *Codec) Verify(raw string, now time.Time) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods(hmacAlgorithms),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	)
	var claims jwt.RegisteredClaims
	parsed, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid {
		return "", ErrTokenInvalid
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	return claims.Subject, nil
}

var hmacAlgorithms = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// methodForKey picks the strongest HMAC algorithm the key length supports.
func methodForKey(key []byte) jwt.SigningMethod {
	switch {
	case len(key) >= 64:
		return jwt.SigningMethodHS512
	case len(key) >= 48:
		return jwt.SigningMethodHS384
	default:
		return jwt.SigningMethodHS256
	}
}
