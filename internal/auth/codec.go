package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAlgorithm is used when no signing algorithm is configured.
const DefaultAlgorithm = "HS256"

// Clock returns the current time.
type Clock func() time.Time

// Claims are the decoded contents of an access token.
type Claims struct {
	Subject string
	Expiry  time.Time
}

// Codec signs and verifies HMAC JWT access tokens carrying a subject and an
// expiry. Decode verifies signature and shape only; expiry is left to the
// caller.
type Codec struct {
	secret []byte
	method *jwt.SigningMethodHMAC
	now    Clock
}

// CodecOption customises a Codec.
type CodecOption func(*Codec)

// WithCodecClock overrides the time source used when issuing tokens.
func WithCodecClock(now Clock) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCodec builds a Codec for an HMAC algorithm (HS256, HS384 or HS512).
func NewCodec(secret, algorithm string, opts ...CodecOption) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("auth: signing secret must not be empty")
	}
	if algorithm == "" {
		algorithm = DefaultAlgorithm
	}
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", algorithm)
	}
	c := &Codec{secret: []byte(secret), method: method, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Algorithm returns the JWT alg header value produced by Issue.
func (c *Codec) Algorithm() string {
	return c.method.Alg()
}

// Issue signs a token for subject that expires after ttl.
func (c *Codec) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("auth: token subject must not be empty")
	}
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(c.now().Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies token and returns its claims.
func (c *Codec) Decode(token string) (Claims, error) {
	var registered jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &registered, func(*jwt.Token) (any, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{c.method.Alg()}), jwt.WithoutClaimsValidation())
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if registered.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing sub claim", ErrInvalidToken)
	}
	if registered.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: missing exp claim", ErrInvalidToken)
	}
	return Claims{Subject: registered.Subject, Expiry: registered.ExpiresAt.Time}, nil
}
