package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/domain"
	"marketplace/internal/query"
)

// UserService implements self-service profile and user moderation use cases.
type UserService struct {
	users    domain.UserRepository
	listings domain.ListingRepository
	log      *slog.Logger
	now      func() time.Time
}

// NewUserService creates a new user service.
func NewUserService(users domain.UserRepository, listings domain.ListingRepository, log *slog.Logger) *UserService {
	return &UserService{users: users, listings: listings, log: log, now: time.Now}
}

// Profile returns a fresh snapshot of the caller.
func (s *UserService) Profile(ctx context.Context, caller *domain.User) (*domain.User, error) {
	if caller == nil {
		return nil, domain.Unauthenticated("not authenticated")
	}
	return s.users.GetByID(ctx, caller.ID)
}

// UpdateProfile applies the present name and phone fields of patch to the
// caller. Other fields cannot be changed through this path.
func (s *UserService) UpdateProfile(ctx context.Context, caller *domain.User, patch domain.ProfilePatch) (*domain.User, error) {
	if d := Authorize(caller, ActionUpdateProfile, Target{User: caller}); !d.Allowed {
		return nil, d.Err
	}
	if len(patch.Present()) == 0 {
		return s.users.GetByID(ctx, caller.ID)
	}
	return s.users.UpdateProfile(ctx, caller.ID, patch)
}

func requireAdmin(caller *domain.User) error {
	if d := Authorize(caller, ActionViewAdmin, Target{}); !d.Allowed {
		return d.Err
	}
	return nil
}

// List returns a page of users. Caller must be an administrator.
func (s *UserService) List(ctx context.Context, caller *domain.User, f query.UserFilter, req query.Request) (Page[domain.User], error) {
	var page Page[domain.User]
	if err := requireAdmin(caller); err != nil {
		return page, err
	}

	filters, err := f.Filters()
	if err != nil {
		return page, err
	}
	plan, err := query.UserSorting.Compose(req, filters...)
	if err != nil {
		return page, err
	}

	items, err := s.users.List(ctx, plan)
	if err != nil {
		return page, err
	}
	total, err := s.users.Count(ctx, plan.Filters)
	if err != nil {
		return page, err
	}
	return Page[domain.User]{Items: items, PageNum: plan.Page, CardNum: plan.Limit, Total: total}, nil
}

// Get returns a single user. Caller must be an administrator.
func (s *UserService) Get(ctx context.Context, caller *domain.User, id uuid.UUID) (*domain.User, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, id)
}

// Total returns the number of registered users. Caller must be an
// administrator.
func (s *UserService) Total(ctx context.Context, caller *domain.User) (int, error) {
	if err := requireAdmin(caller); err != nil {
		return 0, err
	}
	return s.users.Count(ctx, nil)
}

// ListingsOf returns a user's listings without the seller join. Caller must
// be an administrator.
func (s *UserService) ListingsOf(ctx context.Context, caller *domain.User, id uuid.UUID, req query.Request) (Page[domain.Listing], error) {
	var page Page[domain.Listing]
	if err := requireAdmin(caller); err != nil {
		return page, err
	}
	if _, err := s.users.GetByID(ctx, id); err != nil {
		return page, err
	}

	plan, err := query.ListingSorting.Compose(req, domain.Eq(domain.ListingFieldSellerID, id))
	if err != nil {
		return page, err
	}
	items, err := s.listings.ListPlain(ctx, plan)
	if err != nil {
		return page, err
	}
	total, err := s.listings.Count(ctx, plan.Filters)
	if err != nil {
		return page, err
	}
	return Page[domain.Listing]{Items: items, PageNum: plan.Page, CardNum: plan.Limit, Total: total}, nil
}

// Ban bans a user and deactivates all of their listings. Banning a user who
// is already banned changes nothing.
func (s *UserService) Ban(ctx context.Context, caller *domain.User, id uuid.UUID) (*domain.User, error) {
	return s.setBanned(ctx, caller, id, true)
}

// Unban lifts a ban and reactivates all of the user's listings. Unbanning a
// user who is not banned changes nothing.
func (s *UserService) Unban(ctx context.Context, caller *domain.User, id uuid.UUID) (*domain.User, error) {
	return s.setBanned(ctx, caller, id, false)
}

func (s *UserService) setBanned(ctx context.Context, caller *domain.User, id uuid.UUID, banned bool) (*domain.User, error) {
	action, status := ActionBan, domain.StatusInactive
	if !banned {
		action, status = ActionUnban, domain.StatusActive
	}

	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	target, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := Authorize(caller, action, Target{User: target}); !d.Allowed {
		return nil, d.Err
	}
	if target.IsBanned == banned {
		return target, nil
	}

	// The flag must be committed before the cascade is issued.
	updated, err := s.users.SetBanned(ctx, id, banned)
	if err != nil {
		return nil, err
	}
	affected, err := s.listings.UpdateStatus(ctx, []domain.Filter{domain.Eq(domain.ListingFieldSellerID, id)}, status, s.now().UTC())
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user ban updated",
		"admin_id", caller.ID, "user_id", id, "banned", banned, "listings", len(affected))
	return updated, nil
}
