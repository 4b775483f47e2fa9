// Package memory implements an in-memory repository for development and testing.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/domain"
	"marketplace/internal/token"
)

// DB implements an in-memory database storage. Records are copied in and
// out so callers never share state with the store.
type DB struct {
	mu       sync.Mutex
	users    []*domain.User
	listings []*domain.Listing
	sessions map[string]*domain.Session
	tokens   map[string]token.Record

	listingIDCounter int64
	now              func() time.Time
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		sessions: make(map[string]*domain.Session),
		tokens:   make(map[string]token.Record),
		now:      time.Now,
	}
}

// Ensure interfaces are met.
var _ domain.UserRepository = (*UserRepo)(nil)
var _ domain.ListingRepository = (*ListingRepo)(nil)
var _ domain.SessionRepository = (*SessionRepo)(nil)
var _ token.Store = (*TokenStore)(nil)

// --- UserRepository ---

// UserRepo is the user view of DB.
type UserRepo struct {
	db *DB
}

// Users returns the user repository backed by db.
func (db *DB) Users() *UserRepo {
	return &UserRepo{db: db}
}

func (db *DB) userByID(id uuid.UUID) *domain.User {
	for _, u := range db.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func userCopy(u *domain.User) *domain.User {
	cp := *u
	return &cp
}

// Create adds a user. A duplicate email, ignoring case, yields
// domain.ErrConflict.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.users {
		if strings.EqualFold(existing.Email, u.Email) || existing.ID == u.ID {
			return nil, domain.Conflict("user already registered")
		}
	}
	stored := userCopy(u)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = r.db.now().UTC()
	}
	r.db.users = append(r.db.users, stored)
	return userCopy(stored), nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if u := r.db.userByID(id); u != nil {
		return userCopy(u), nil
	}
	return nil, domain.NotFound("user %s not found", id)
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			return userCopy(u), nil
		}
	}
	return nil, domain.NotFound("user not found")
}

func byUserID(a, b *domain.User) bool {
	return a.ID.String() < b.ID.String()
}

// List returns one page of users matching plan.
func (r *UserRepo) List(ctx context.Context, plan domain.Plan) ([]domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	page, err := selectPage(r.db.users, userFields, byUserID, plan)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, len(page))
	for i, u := range page {
		out[i] = *u
	}
	return out, nil
}

// Count returns the number of users matching filters.
func (r *UserRepo) Count(ctx context.Context, filters []domain.Filter) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return countMatching(r.db.users, userFields, filters)
}

func (r *UserRepo) mutate(id uuid.UUID, fn func(u *domain.User)) (*domain.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u := r.db.userByID(id)
	if u == nil {
		return nil, domain.NotFound("user %s not found", id)
	}
	fn(u)
	return userCopy(u), nil
}

// UpdateProfile applies the present fields of patch.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, patch domain.ProfilePatch) (*domain.User, error) {
	return r.mutate(id, patch.Apply)
}

// MarkVerified sets the user verified and active.
func (r *UserRepo) MarkVerified(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.mutate(id, func(u *domain.User) {
		u.IsVerified = true
		u.IsActive = true
	})
}

// SetBanned sets or clears the ban flag.
func (r *UserRepo) SetBanned(ctx context.Context, id uuid.UUID, banned bool) (*domain.User, error) {
	return r.mutate(id, func(u *domain.User) { u.IsBanned = banned })
}

// --- ListingRepository ---

// ListingRepo is the listing view of DB.
type ListingRepo struct {
	db *DB
}

// Listings returns the listing repository backed by db.
func (db *DB) Listings() *ListingRepo {
	return &ListingRepo{db: db}
}

func listingCopy(l *domain.Listing) *domain.Listing {
	cp := *l
	if l.Category != nil {
		c := *l.Category
		cp.Category = &c
	}
	if l.Condition != nil {
		c := *l.Condition
		cp.Condition = &c
	}
	return &cp
}

func (db *DB) withSeller(l *domain.Listing) domain.ListingWithSeller {
	lw := domain.ListingWithSeller{Listing: *listingCopy(l)}
	if u := db.userByID(l.SellerID); u != nil {
		lw.Seller = domain.Seller{FirstName: u.FirstName, LastName: u.LastName, PhoneNumber: u.PhoneNumber, Email: u.Email}
	}
	return lw
}

func byListingID(a, b *domain.Listing) bool {
	return a.ID < b.ID
}

// Create adds a listing and assigns its id.
func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) (*domain.Listing, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if r.db.userByID(l.SellerID) == nil {
		return nil, domain.NotFound("seller %s not found", l.SellerID)
	}
	r.db.listingIDCounter++
	stored := listingCopy(l)
	stored.ID = r.db.listingIDCounter
	r.db.listings = append(r.db.listings, stored)
	return listingCopy(stored), nil
}

func (db *DB) listingByID(id int64) *domain.Listing {
	for _, l := range db.listings {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// Get retrieves a listing joined with its seller summary.
func (r *ListingRepo) Get(ctx context.Context, id int64) (*domain.ListingWithSeller, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	l := r.db.listingByID(id)
	if l == nil {
		return nil, domain.NotFound("listing %d not found", id)
	}
	lw := r.db.withSeller(l)
	return &lw, nil
}

// List returns one page of listings matching plan with seller summaries.
func (r *ListingRepo) List(ctx context.Context, plan domain.Plan) ([]domain.ListingWithSeller, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	page, err := selectPage(r.db.listings, listingFields, byListingID, plan)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ListingWithSeller, len(page))
	for i, l := range page {
		out[i] = r.db.withSeller(l)
	}
	return out, nil
}

// ListPlain returns one page of listings matching plan.
func (r *ListingRepo) ListPlain(ctx context.Context, plan domain.Plan) ([]domain.Listing, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	page, err := selectPage(r.db.listings, listingFields, byListingID, plan)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Listing, len(page))
	for i, l := range page {
		out[i] = *listingCopy(l)
	}
	return out, nil
}

// Count returns the number of listings matching filters.
func (r *ListingRepo) Count(ctx context.Context, filters []domain.Filter) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	return countMatching(r.db.listings, listingFields, filters)
}

// Update applies the present fields of patch and refreshes updated_at.
func (r *ListingRepo) Update(ctx context.Context, id int64, patch domain.ListingPatch, at time.Time) (*domain.Listing, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	l := r.db.listingByID(id)
	if l == nil {
		return nil, domain.NotFound("listing %d not found", id)
	}
	patch.Apply(l)
	l.UpdatedAt = at.UTC()
	return listingCopy(l), nil
}

// UpdateStatus sets the status of every listing matching filters.
func (r *ListingRepo) UpdateStatus(ctx context.Context, filters []domain.Filter, status domain.ListingStatus, at time.Time) ([]domain.Listing, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	out := []domain.Listing{}
	for _, l := range r.db.listings {
		ok, err := matchesAll(listingFields(l), filters)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		l.Status = status
		l.UpdatedAt = at.UTC()
		out = append(out, *listingCopy(l))
	}
	return out, nil
}

// --- SessionRepository ---

// SessionRepo implements in-memory session storage.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo returns a new session repository.
func (db *DB) NewSessionRepo() *SessionRepo {
	return &SessionRepo{db: db}
}

// Create creates a new session.
func (r *SessionRepo) Create(ctx context.Context, s domain.Session) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.sessions[s.Token] = &s
	return nil
}

// GetByToken retrieves a session by token.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// Delete deletes a session by token.
func (r *SessionRepo) Delete(ctx context.Context, token string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	delete(r.db.sessions, token)
	return nil
}

// DeleteExpired deletes all expired sessions.
func (r *SessionRepo) DeleteExpired(ctx context.Context) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := r.db.now()
	for k, s := range r.db.sessions {
		if s.Expired(now) {
			delete(r.db.sessions, k)
		}
	}
	return nil
}

// --- token.Store ---

// TokenStore keeps opaque verification token records in memory.
type TokenStore struct {
	db *DB
}

// TokenStore returns the opaque token store backed by db.
func (db *DB) TokenStore() *TokenStore {
	return &TokenStore{db: db}
}

// Put stores rec under tok. The ttl is carried by rec.ExpiresAt.
func (s *TokenStore) Put(ctx context.Context, tok string, rec token.Record, _ time.Duration) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := s.db.now()
	for k, r := range s.db.tokens {
		if !now.Before(r.ExpiresAt) {
			delete(s.db.tokens, k)
		}
	}
	s.db.tokens[tok] = rec
	return nil
}

// Take removes and returns the record stored under tok.
func (s *TokenStore) Take(ctx context.Context, tok string) (*token.Record, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	rec, ok := s.db.tokens[tok]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(s.db.tokens, tok)
	return &rec, nil
}
