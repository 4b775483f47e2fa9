// Package domain contains the core business entities and interfaces.
package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logical user fields understood by UserRepository filters and sorting.
const (
	UserFieldEmail       = "email"
	UserFieldFirstName   = "first_name"
	UserFieldLastName    = "last_name"
	UserFieldPhoneNumber = "phone_number"
	UserFieldIsActive    = "is_active"
	UserFieldIsVerified  = "is_verified"
	UserFieldIsSuperuser = "is_superuser"
	UserFieldIsBanned    = "is_banned"
	UserFieldCreatedAt   = "created_at"
)

// DefaultProfilePicture is the relative static path given to new users.
const DefaultProfilePicture = "profiles/default.png"

// UserState is the authentication state a user is in.
type UserState uint8

// User states.
const (
	StateUnverified UserState = iota
	StateActive
	StateBanned
)

func (s UserState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateBanned:
		return "banned"
	default:
		return "unverified"
	}
}

// User represents a registered marketplace user.
type User struct {
	ID             uuid.UUID
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	PhoneNumber    string
	ProfilePicture string
	IsActive       bool
	IsVerified     bool
	IsSuperuser    bool
	IsBanned       bool
	CreatedAt      time.Time
}

// State derives the user's position in the registration/ban state machine.
// A ban takes precedence over verification.
func (u *User) State() UserState {
	switch {
	case u.IsBanned:
		return StateBanned
	case !u.IsVerified:
		return StateUnverified
	default:
		return StateActive
	}
}

// Session represents an issued login session.
type Session struct {
	Token     string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ProfilePatch is a self-service profile update. Only present fields are
// applied; an explicit null clears the field.
type ProfilePatch struct {
	FirstName   Optional[string] `json:"first_name"`
	LastName    Optional[string] `json:"last_name"`
	PhoneNumber Optional[string] `json:"phone_number"`
}

// Present returns the fields set in the patch keyed by logical field name.
func (p ProfilePatch) Present() map[string]string {
	out := make(map[string]string, 3)
	for field, o := range map[string]Optional[string]{
		UserFieldFirstName:   p.FirstName,
		UserFieldLastName:    p.LastName,
		UserFieldPhoneNumber: p.PhoneNumber,
	} {
		if o.Set {
			out[field] = strings.TrimSpace(o.Value)
		}
	}
	return out
}

// Apply writes the present fields of the patch onto u.
func (p ProfilePatch) Apply(u *User) {
	for field, v := range p.Present() {
		switch field {
		case UserFieldFirstName:
			u.FirstName = v
		case UserFieldLastName:
			u.LastName = v
		case UserFieldPhoneNumber:
			u.PhoneNumber = v
		}
	}
}

// UserRepository defines the port for user persistence operations.
type UserRepository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, plan Plan) ([]User, error)
	Count(ctx context.Context, filters []Filter) (int, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch) (*User, error)
	MarkVerified(ctx context.Context, id uuid.UUID) (*User, error)
	SetBanned(ctx context.Context, id uuid.UUID, banned bool) (*User, error)
}

// SessionRepository defines the port for session persistence operations.
type SessionRepository interface {
	Create(ctx context.Context, s Session) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) error
}

// Purpose scopes a verification token to one flow.
type Purpose string

// PurposeVerifyEmail binds a token to email verification.
const PurposeVerifyEmail Purpose = "verify-email"

// TokenIssuer issues and consumes opaque, externally verifiable tokens.
// Consume returns the bound subject or an ErrInvalidToken error.
type TokenIssuer interface {
	Issue(ctx context.Context, purpose Purpose, subject string, ttl time.Duration) (string, error)
	Consume(ctx context.Context, token string, purpose Purpose) (string, error)
}

// Mailer delivers a transactional email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
