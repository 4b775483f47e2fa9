package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/domain"
)

const userSelect = `SELECT u.id, u.email, u.hashed_password, u.first_name, u.last_name, u.phone_number,
u.profile_picture, u.is_active, u.is_verified, u.is_superuser, u.is_banned, u.created_at FROM users u`

const userReturning = ` RETURNING id, email, hashed_password, first_name, last_name, phone_number,
profile_picture, is_active, is_verified, is_superuser, is_banned, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.PhoneNumber,
		&u.ProfilePicture, &u.IsActive, &u.IsVerified, &u.IsSuperuser, &u.IsBanned, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserRepo implements domain.UserRepository on DB.
type UserRepo struct {
	db *DB
}

var _ domain.UserRepository = (*UserRepo)(nil)

// NewUserRepo wraps a DB as a UserRepository.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

// Create inserts a new user. A duplicate email yields domain.ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	created, err := scanUser(r.db.sql.QueryRowContext(ctx,
		`INSERT INTO users (id, email, hashed_password, first_name, last_name, phone_number, profile_picture,
is_active, is_verified, is_superuser, is_banned, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`+userReturning,
		u.ID, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.PhoneNumber, u.ProfilePicture,
		u.IsActive, u.IsVerified, u.IsSuperuser, u.IsBanned, u.CreatedAt.UTC(),
	))
	if isUniqueViolation(err) {
		return nil, domain.Conflict("user already registered")
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := scanUser(r.db.sql.QueryRowContext(ctx, userSelect+" WHERE u.id = $1", id))
	if err != nil {
		return nil, notFound(err, "user %s not found", id)
	}
	return u, nil
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.db.sql.QueryRowContext(ctx, userSelect+" WHERE lower(u.email) = lower($1)", email))
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return u, nil
}

// List returns one page of users matching plan.
func (r *UserRepo) List(ctx context.Context, plan domain.Plan) ([]domain.User, error) {
	var b builder
	where, err := b.where(userColumns, plan.Filters)
	if err != nil {
		return nil, err
	}
	page, err := b.page(userColumns, "u.id", plan)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.sql.QueryContext(ctx, userSelect+where+page, b.args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// Count returns the number of users matching filters.
func (r *UserRepo) Count(ctx context.Context, filters []domain.Filter) (int, error) {
	var b builder
	where, err := b.where(userColumns, filters)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM users u"+where, b.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// UpdateProfile sets the present fields of patch. Fields absent from the
// patch are never written.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, patch domain.ProfilePatch) (*domain.User, error) {
	present := patch.Present()
	if len(present) == 0 {
		return r.GetByID(ctx, id)
	}

	var b builder
	sets := make([]string, 0, len(present))
	for _, field := range []string{domain.UserFieldFirstName, domain.UserFieldLastName, domain.UserFieldPhoneNumber} {
		if v, ok := present[field]; ok {
			sets = append(sets, field+" = "+b.arg(v))
		}
	}
	stmt := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = " + b.arg(id) + userReturning

	u, err := scanUser(r.db.sql.QueryRowContext(ctx, stmt, b.args...))
	if err != nil {
		return nil, notFound(err, "user %s not found", id)
	}
	return u, nil
}

// MarkVerified sets the user verified and active.
func (r *UserRepo) MarkVerified(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, err := scanUser(r.db.sql.QueryRowContext(ctx,
		"UPDATE users SET is_verified = TRUE, is_active = TRUE WHERE id = $1"+userReturning, id))
	if err != nil {
		return nil, notFound(err, "user %s not found", id)
	}
	return u, nil
}

// SetBanned sets or clears the ban flag.
func (r *UserRepo) SetBanned(ctx context.Context, id uuid.UUID, banned bool) (*domain.User, error) {
	u, err := scanUser(r.db.sql.QueryRowContext(ctx,
		"UPDATE users SET is_banned = $1 WHERE id = $2"+userReturning, banned, id))
	if err != nil {
		return nil, notFound(err, "user %s not found", id)
	}
	return u, nil
}

// SessionRepo implements session repository operations on DB.
type SessionRepo struct {
	db  *DB
	now func() time.Time
}

var _ domain.SessionRepository = (*SessionRepo)(nil)

// NewSessionRepo wraps a DB as a SessionRepository.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db, now: time.Now}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, s domain.Session) error {
	_, err := r.db.sql.ExecContext(ctx,
		"INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)",
		s.Token, s.UserID, s.CreatedAt.UTC(), s.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT token, user_id, created_at, expires_at FROM sessions WHERE token = $1",
		token,
	).Scan(&s.Token, &s.UserID, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE token = $1", token)
	return err
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	_, err := r.db.sql.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= $1", r.now().UTC())
	return err
}
