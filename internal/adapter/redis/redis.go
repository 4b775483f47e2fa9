// Package redis implements session storage and opaque token storage on Redis.
// Keys expire natively so no sweeping is needed.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"marketplace/internal/domain"
	"marketplace/internal/token"
)

// Key prefixes.
const (
	SessionPrefix = "session:"
	TokenPrefix   = "verify-token:"
)

// NewClient creates a client and verifies the server is reachable.
func NewClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	c := goredis.NewClient(&goredis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return c, nil
}

type sessionRecord struct {
	UserID    uuid.UUID `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionRepo implements domain.SessionRepository on Redis.
type SessionRepo struct {
	client *goredis.Client
	now    func() time.Time
}

var _ domain.SessionRepository = (*SessionRepo)(nil)

// NewSessionRepo creates a Redis backed session repository.
func NewSessionRepo(client *goredis.Client) *SessionRepo {
	return &SessionRepo{client: client, now: time.Now}
}

// Create stores the session with a TTL matching its expiry.
func (r *SessionRepo) Create(ctx context.Context, s domain.Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(sessionRecord{UserID: s.UserID, CreatedAt: s.CreatedAt, ExpiresAt: s.ExpiresAt})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return r.client.Set(ctx, SessionPrefix+s.Token, data, ttl).Err()
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, tok string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, SessionPrefix+tok).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &domain.Session{Token: tok, UserID: rec.UserID, CreatedAt: rec.CreatedAt, ExpiresAt: rec.ExpiresAt}, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, tok string) error {
	return r.client.Del(ctx, SessionPrefix+tok).Err()
}

// DeleteExpired is a no-op: Redis expires session keys itself.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	return nil
}

// TokenStore implements token.Store on Redis.
type TokenStore struct {
	client *goredis.Client
}

var _ token.Store = (*TokenStore)(nil)

// NewTokenStore creates a Redis backed opaque token store.
func NewTokenStore(client *goredis.Client) *TokenStore {
	return &TokenStore{client: client}
}

// Put stores rec under tok for ttl.
func (s *TokenStore) Put(ctx context.Context, tok string, rec token.Record, ttl time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	return s.client.Set(ctx, TokenPrefix+tok, data, ttl).Err()
}

// Take atomically removes and returns the record stored under tok.
func (s *TokenStore) Take(ctx context.Context, tok string) (*token.Record, error) {
	data, err := s.client.GetDel(ctx, TokenPrefix+tok).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take token: %w", err)
	}

	var rec token.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal token: %w", err)
	}
	return &rec, nil
}
