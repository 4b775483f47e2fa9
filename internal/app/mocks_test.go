package app

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockUserRepo struct {
	createFn        func(ctx context.Context, u *domain.User) (*domain.User, error)
	getByIDFn       func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	getByEmailFn    func(ctx context.Context, email string) (*domain.User, error)
	listFn          func(ctx context.Context, plan domain.Plan) ([]domain.User, error)
	countFn         func(ctx context.Context, filters []domain.Filter) (int, error)
	updateProfileFn func(ctx context.Context, id uuid.UUID, patch domain.ProfilePatch) (*domain.User, error)
	markVerifiedFn  func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	setBannedFn     func(ctx context.Context, id uuid.UUID, banned bool) (*domain.User, error)
}

func (m *mockUserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	if m.createFn != nil {
		return m.createFn(ctx, u)
	}
	return u, nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getByEmailFn != nil {
		return m.getByEmailFn(ctx, email)
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) List(ctx context.Context, plan domain.Plan) ([]domain.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx, plan)
	}
	return nil, nil
}

func (m *mockUserRepo) Count(ctx context.Context, filters []domain.Filter) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, filters)
	}
	return 0, nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, patch domain.ProfilePatch) (*domain.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, id, patch)
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) MarkVerified(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.markVerifiedFn != nil {
		return m.markVerifiedFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockUserRepo) SetBanned(ctx context.Context, id uuid.UUID, banned bool) (*domain.User, error) {
	if m.setBannedFn != nil {
		return m.setBannedFn(ctx, id, banned)
	}
	return nil, domain.ErrNotFound
}

type mockSessionRepo struct {
	createFn        func(ctx context.Context, s domain.Session) error
	getByTokenFn    func(ctx context.Context, token string) (*domain.Session, error)
	deleteFn        func(ctx context.Context, token string) error
	deleteExpiredFn func(ctx context.Context) error
}

func (m *mockSessionRepo) Create(ctx context.Context, s domain.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, s)
	}
	return nil
}

func (m *mockSessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.getByTokenFn != nil {
		return m.getByTokenFn(ctx, token)
	}
	return nil, domain.ErrNotFound
}

func (m *mockSessionRepo) Delete(ctx context.Context, token string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, token)
	}
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) error {
	if m.deleteExpiredFn != nil {
		return m.deleteExpiredFn(ctx)
	}
	return nil
}

type mockListingRepo struct {
	createFn       func(ctx context.Context, l *domain.Listing) (*domain.Listing, error)
	getFn          func(ctx context.Context, id int64) (*domain.ListingWithSeller, error)
	listFn         func(ctx context.Context, plan domain.Plan) ([]domain.ListingWithSeller, error)
	listPlainFn    func(ctx context.Context, plan domain.Plan) ([]domain.Listing, error)
	countFn        func(ctx context.Context, filters []domain.Filter) (int, error)
	updateFn       func(ctx context.Context, id int64, patch domain.ListingPatch, at time.Time) (*domain.Listing, error)
	updateStatusFn func(ctx context.Context, filters []domain.Filter, status domain.ListingStatus, at time.Time) ([]domain.Listing, error)
}

func (m *mockListingRepo) Create(ctx context.Context, l *domain.Listing) (*domain.Listing, error) {
	if m.createFn != nil {
		return m.createFn(ctx, l)
	}
	out := *l
	out.ID = 1
	return &out, nil
}

func (m *mockListingRepo) Get(ctx context.Context, id int64) (*domain.ListingWithSeller, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockListingRepo) List(ctx context.Context, plan domain.Plan) ([]domain.ListingWithSeller, error) {
	if m.listFn != nil {
		return m.listFn(ctx, plan)
	}
	return nil, nil
}

func (m *mockListingRepo) ListPlain(ctx context.Context, plan domain.Plan) ([]domain.Listing, error) {
	if m.listPlainFn != nil {
		return m.listPlainFn(ctx, plan)
	}
	return nil, nil
}

func (m *mockListingRepo) Count(ctx context.Context, filters []domain.Filter) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, filters)
	}
	return 0, nil
}

func (m *mockListingRepo) Update(ctx context.Context, id int64, patch domain.ListingPatch, at time.Time) (*domain.Listing, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, id, patch, at)
	}
	return nil, domain.ErrNotFound
}

func (m *mockListingRepo) UpdateStatus(ctx context.Context, filters []domain.Filter, status domain.ListingStatus, at time.Time) ([]domain.Listing, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, filters, status, at)
	}
	return nil, nil
}

type mockTokens struct {
	issueFn   func(ctx context.Context, purpose domain.Purpose, subject string, ttl time.Duration) (string, error)
	consumeFn func(ctx context.Context, token string, purpose domain.Purpose) (string, error)
}

func (m *mockTokens) Issue(ctx context.Context, purpose domain.Purpose, subject string, ttl time.Duration) (string, error) {
	if m.issueFn != nil {
		return m.issueFn(ctx, purpose, subject, ttl)
	}
	return "tok-" + subject, nil
}

func (m *mockTokens) Consume(ctx context.Context, token string, purpose domain.Purpose) (string, error) {
	if m.consumeFn != nil {
		return m.consumeFn(ctx, token, purpose)
	}
	return "", domain.InvalidToken("invalid token")
}

type sentMail struct {
	to, subject, body string
}

type mockMailer struct {
	sent []sentMail
	err  error
}

func (m *mockMailer) Send(_ context.Context, to, subject, body string) error {
	m.sent = append(m.sent, sentMail{to, subject, body})
	return m.err
}
