// Package app holds the application services and business logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"marketplace/internal/domain"
	"marketplace/internal/token"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// mailTimeout bounds a background verification email send.
const mailTimeout = 15 * time.Second

const verifyEmailBody = `Welcome!

Please verify your email address by opening the link below:

%s

The link expires in %v.
`

// AuthConfig holds the tunables of AuthService.
type AuthConfig struct {
	// AllowedDomain is the institutional email domain, e.g. "ufl.edu".
	AllowedDomain  string
	SessionTTL     time.Duration
	VerifyTokenTTL time.Duration
	// VerifyURL is the absolute URL of the GET verification endpoint.
	VerifyURL string
}

// RegisterInput is the payload of a registration.
type RegisterInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

// AuthService handles registration, verification, authentication and
// session management.
type AuthService struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	tokens   domain.TokenIssuer
	mailer   domain.Mailer
	log      *slog.Logger
	cfg      AuthConfig

	now   func() time.Time
	async func(func())
}

// NewAuthService creates a new authentication service.
func NewAuthService(users domain.UserRepository, sessions domain.SessionRepository, tokens domain.TokenIssuer,
	mailer domain.Mailer, log *slog.Logger, cfg AuthConfig) *AuthService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	if cfg.VerifyTokenTTL <= 0 {
		cfg.VerifyTokenTTL = time.Hour
	}
	return &AuthService{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		mailer:   mailer,
		log:      log,
		cfg:      cfg,
		now:      time.Now,
		async:    func(fn func()) { go fn() },
	}
}

// SessionTTL is the fixed lifetime of issued sessions.
func (s *AuthService) SessionTTL() time.Duration {
	return s.cfg.SessionTTL
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) checkDomain(email string) error {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return domain.InvalidArgument("invalid email address '%s'", email)
	}
	if !strings.EqualFold(email[at+1:], s.cfg.AllowedDomain) {
		return domain.InvalidArgument("must be institutional email (@%s)", s.cfg.AllowedDomain)
	}
	return nil
}

// Register creates an unverified user and sends a verification email. A
// failure to send is logged and does not fail the registration.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if err := s.checkDomain(email); err != nil {
		return nil, err
	}
	if len(in.Password) < MinPasswordLength {
		return nil, domain.InvalidArgument("password must be at least %d characters", MinPasswordLength)
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, domain.InvalidArgument("user already registered")
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, &domain.User{
		ID:             uuid.New(),
		Email:          email,
		PasswordHash:   string(hash),
		FirstName:      strings.TrimSpace(in.FirstName),
		LastName:       strings.TrimSpace(in.LastName),
		PhoneNumber:    strings.TrimSpace(in.PhoneNumber),
		ProfilePicture: domain.DefaultProfilePicture,
		CreatedAt:      s.now().UTC(),
	})
	if errors.Is(err, domain.ErrConflict) {
		return nil, domain.InvalidArgument("user already registered")
	}
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user registered", "user_id", user.ID)
	s.requestVerify(ctx, user)
	return user, nil
}

// RequestVerify re-issues a verification token for email. Unknown,
// verified and banned addresses are ignored so the response never reveals
// which accounts exist.
func (s *AuthService) RequestVerify(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.State() != domain.StateUnverified {
		return nil
	}
	s.requestVerify(ctx, user)
	return nil
}

func (s *AuthService) requestVerify(ctx context.Context, user *domain.User) {
	tok, err := s.tokens.Issue(ctx, domain.PurposeVerifyEmail, user.ID.String(), s.cfg.VerifyTokenTTL)
	if err != nil {
		s.log.ErrorContext(ctx, "issue verification token", "user_id", user.ID, "err", err)
		return
	}

	link := s.cfg.VerifyURL + "?token=" + url.QueryEscape(tok)
	body := fmt.Sprintf(verifyEmailBody, link, s.cfg.VerifyTokenTTL)

	to := user.Email
	bg := context.WithoutCancel(ctx)
	s.async(func() {
		ctx, cancel := context.WithTimeout(bg, mailTimeout)
		defer cancel()
		if err := s.mailer.Send(ctx, to, "Verify your email", body); err != nil {
			s.log.WarnContext(ctx, "send verification email", "user_id", user.ID, "err", err)
		}
	})
}

// Verify consumes a verification token and activates its user.
func (s *AuthService) Verify(ctx context.Context, tok string) (*domain.User, error) {
	sub, err := s.tokens.Consume(ctx, tok, domain.PurposeVerifyEmail)
	if err != nil {
		return nil, err
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, domain.InvalidToken("invalid token")
	}

	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.InvalidToken("invalid token or user does not exist")
	}
	if err != nil {
		return nil, err
	}
	if user.IsVerified {
		return nil, &domain.Error{Kind: domain.KindAlreadyVerified, Msg: "user is already verified"}
	}

	user, err = s.users.MarkVerified(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "user verified", "user_id", user.ID)
	return user, nil
}

func invalidCredentials(msg string) error {
	return &domain.Error{Kind: domain.KindInvalidCredentials, Msg: msg}
}

// Login authenticates a user and creates a session. Concurrent sessions for
// the same user are allowed.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, invalidCredentials("invalid email or password")
	}
	if err != nil {
		return nil, err
	}

	if user.PasswordHash == "" {
		return nil, invalidCredentials("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, invalidCredentials("invalid email or password")
	}
	if !user.IsVerified {
		return nil, invalidCredentials("email not verified")
	}
	if !user.IsActive {
		return nil, invalidCredentials("invalid email or password")
	}
	if user.IsBanned {
		return nil, domain.Forbidden("account is banned")
	}

	return s.issueSession(ctx, user)
}

func (s *AuthService) issueSession(ctx context.Context, user *domain.User) (*domain.Session, error) {
	tok, err := token.Random()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := domain.Session{
		Token:     tok,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Logout invalidates a session.
func (s *AuthService) Logout(ctx context.Context, tok string) error {
	if tok == "" {
		return nil
	}
	return s.sessions.Delete(ctx, tok)
}

// ResolveSession returns a fresh snapshot of the user owning a live session.
func (s *AuthService) ResolveSession(ctx context.Context, tok string) (*domain.User, error) {
	if tok == "" {
		return nil, domain.Unauthenticated("not authenticated")
	}

	session, err := s.sessions.GetByToken(ctx, tok)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Unauthenticated("not authenticated")
	}
	if err != nil {
		return nil, err
	}

	if session.Expired(s.now()) {
		_ = s.sessions.Delete(ctx, tok)
		return nil, domain.Unauthenticated("session expired")
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		_ = s.sessions.Delete(ctx, tok)
		return nil, domain.Unauthenticated("not authenticated")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SweepSessions removes expired sessions from the store.
func (s *AuthService) SweepSessions(ctx context.Context) error {
	return s.sessions.DeleteExpired(ctx)
}

// CreateSuperuser creates a verified, active administrator. It fails if a
// user with that email already exists.
func (s *AuthService) CreateSuperuser(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, domain.InvalidArgument("invalid email address '%s'", email)
	}
	if len(password) < MinPasswordLength {
		return nil, domain.InvalidArgument("password must be at least %d characters", MinPasswordLength)
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, domain.Conflict("user already exists")
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return s.users.Create(ctx, &domain.User{
		ID:             uuid.New(),
		Email:          email,
		PasswordHash:   string(hash),
		ProfilePicture: domain.DefaultProfilePicture,
		IsActive:       true,
		IsVerified:     true,
		IsSuperuser:    true,
		CreatedAt:      s.now().UTC(),
	})
}

// LoginWithEmail creates a session for an identity already proven by an
// external provider (SSO). Unknown users are provisioned verified; pending
// users are verified.
func (s *AuthService) LoginWithEmail(ctx context.Context, email string) (*domain.Session, error) {
	email = normalizeEmail(email)
	if err := s.checkDomain(email); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		user, err = s.users.Create(ctx, &domain.User{
			ID:             uuid.New(),
			Email:          email,
			ProfilePicture: domain.DefaultProfilePicture,
			IsActive:       true,
			IsVerified:     true,
			CreatedAt:      s.now().UTC(),
		})
		if errors.Is(err, domain.ErrConflict) {
			// Lost a race with a concurrent provisioning.
			user, err = s.users.GetByEmail(ctx, email)
		}
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case !user.IsVerified:
		if user, err = s.users.MarkVerified(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	if user.IsBanned {
		return nil, domain.Forbidden("account is banned")
	}
	return s.issueSession(ctx, user)
}
