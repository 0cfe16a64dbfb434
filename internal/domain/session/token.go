package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Sentinel errors returned by Verify.
var (
	ErrMissingToken = errors.New("session token is required")
	ErrInvalidToken = errors.New("session token is invalid")
	ErrExpired      = errors.New("session token is expired")
	ErrNoSecret     = errors.New("session secret is empty")
)

const secretBytes = 32

// Claims is the validated content of a session token.
type Claims struct {
	Key       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer mints and verifies HS256 session tokens. The session key travels
// as the jti claim.
type Issuer struct {
	secret []byte
	name   string
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer creates an Issuer signing with secret.
func NewIssuer(secret []byte, opts ...IssuerOption) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}
	i := &Issuer{
		secret: append([]byte(nil), secret...),
		name:   defaultIssuer,
		ttl:    defaultTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// RandomSecret returns a fresh 32-byte secret for processes that were not
// given one; tokens then do not survive a restart.
func RandomSecret() ([]byte, error) {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	return b, nil
}

// NewKey returns a new url-safe session key.
func NewKey() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// TTL returns the configured token lifetime.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue mints a token for a new session key.
func (i *Issuer) Issue(_ context.Context) (token string, claims Claims, err error) {
	now := i.now().UTC().Truncate(time.Second)
	claims = Claims{
		Key:       NewKey(),
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        claims.Key,
		Issuer:    i.name,
		IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
	})
	token, err = t.SignedString(i.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, claims, nil
}

// Verify checks signature, algorithm, issuer and expiry of token.
func (i *Issuer) Verify(_ context.Context, token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrMissingToken
	}

	var parsed jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.name),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}
	if parsed.ID == "" {
		return Claims{}, fmt.Errorf("%w: jti is required", ErrInvalidToken)
	}

	c := Claims{Key: parsed.ID, ExpiresAt: parsed.ExpiresAt.Time.UTC()}
	if parsed.IssuedAt != nil {
		c.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return c, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: %w", ErrExpired, err)
	}
	return fmt.Errorf("%w: %w", ErrInvalidToken, err)
}
