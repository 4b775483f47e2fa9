// Package token implements domain.TokenIssuer with interchangeable storage
// strategies: HMAC-signed payloads or random strings looked up in a store.
package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"marketplace/internal/domain"
)

// RandomBytes is the entropy of every random token.
const RandomBytes = 32

// Random returns a URL-safe random token carrying RandomBytes of entropy.
func Random() (string, error) {
	b := make([]byte, RandomBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Signed issues HS256 JWTs whose audience is the purpose and whose subject
// is the bound identity. Nothing is stored.
type Signed struct {
	secret []byte
	issuer string
	now    func() time.Time
}

var _ domain.TokenIssuer = (*Signed)(nil)

// NewSigned creates a Signed issuer using secret for HMAC.
func NewSigned(secret, issuer string) *Signed {
	return &Signed{secret: []byte(secret), issuer: issuer, now: time.Now}
}

type claims struct {
	jwt.RegisteredClaims
}

// Issue implements domain.TokenIssuer.
func (s *Signed) Issue(_ context.Context, purpose domain.Purpose, subject string, ttl time.Duration) (string, error) {
	id, err := Random()
	if err != nil {
		return "", err
	}
	now := s.now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{jwt.RegisteredClaims{
		ID:        id,
		Issuer:    s.issuer,
		Subject:   subject,
		Audience:  jwt.ClaimStrings{string(purpose)},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}})
	return t.SignedString(s.secret)
}

// Consume implements domain.TokenIssuer. Single use is enforced by the
// caller's state transition, not by the token itself.
func (s *Signed) Consume(_ context.Context, raw string, purpose domain.Purpose) (string, error) {
	var c claims
	t, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(string(purpose)),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.InvalidToken("token expired")
		}
		return "", domain.InvalidToken("invalid token")
	}
	if !t.Valid || c.Subject == "" {
		return "", domain.InvalidToken("invalid token")
	}
	return c.Subject, nil
}

// Record is what an Opaque issuer stores per token.
type Record struct {
	Purpose   domain.Purpose `json:"purpose"`
	Subject   string         `json:"subject"`
	ExpiresAt time.Time      `json:"expires_at"`
}

// Store persists opaque token records. Take removes and returns the record
// atomically and fails with domain.ErrNotFound when it does not exist.
type Store interface {
	Put(ctx context.Context, token string, rec Record, ttl time.Duration) error
	Take(ctx context.Context, token string) (*Record, error)
}

// Opaque issues random tokens and resolves them through a Store. Tokens are
// single use: Consume removes the record whether or not it matches.
type Opaque struct {
	store Store
	now   func() time.Time
}

var _ domain.TokenIssuer = (*Opaque)(nil)

// NewOpaque creates an Opaque issuer backed by store.
func NewOpaque(store Store) *Opaque {
	return &Opaque{store: store, now: time.Now}
}

// Issue implements domain.TokenIssuer.
func (o *Opaque) Issue(ctx context.Context, purpose domain.Purpose, subject string, ttl time.Duration) (string, error) {
	tok, err := Random()
	if err != nil {
		return "", err
	}
	rec := Record{Purpose: purpose, Subject: subject, ExpiresAt: o.now().Add(ttl)}
	if err := o.store.Put(ctx, tok, rec, ttl); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return tok, nil
}

// Consume implements domain.TokenIssuer.
func (o *Opaque) Consume(ctx context.Context, tok string, purpose domain.Purpose) (string, error) {
	if tok == "" {
		return "", domain.InvalidToken("invalid token")
	}
	rec, err := o.store.Take(ctx, tok)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.InvalidToken("invalid token")
	}
	if err != nil {
		return "", err
	}
	if rec.Purpose != purpose {
		return "", domain.InvalidToken("invalid token")
	}
	if !o.now().Before(rec.ExpiresAt) {
		return "", domain.InvalidToken("token expired")
	}
	return rec.Subject, nil
}
