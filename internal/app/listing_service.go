package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/domain"
	"marketplace/internal/query"
)

// Page is one page of a directory query together with the total number of
// records matching the same filters.
type Page[T any] struct {
	Items   []T
	PageNum int
	CardNum int
	Total   int
}

// NewListing is the payload of a listing creation. Enumerated values are
// raw tokens in any casing.
type NewListing struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	Status      string `json:"status"`
	Category    string `json:"category"`
	Condition   string `json:"condition"`
}

// ListingChanges is the payload of a partial listing update. Absent fields
// are left unchanged; null clears category or condition.
type ListingChanges struct {
	Title       domain.Optional[string] `json:"title"`
	Description domain.Optional[string] `json:"description"`
	PriceCents  domain.Optional[int64]  `json:"price_cents"`
	Status      domain.Optional[string] `json:"status"`
	Category    domain.Optional[string] `json:"category"`
	Condition   domain.Optional[string] `json:"condition"`
}

// Patch validates c and converts it into a domain.ListingPatch.
func (c ListingChanges) Patch() (domain.ListingPatch, error) {
	var p domain.ListingPatch

	if c.Title.Set {
		title := strings.TrimSpace(c.Title.Value)
		if title == "" {
			return p, domain.InvalidArgument("title must not be empty")
		}
		p.Title = domain.Some(title)
	}
	if c.Description.Set {
		p.Description = domain.Some(strings.TrimSpace(c.Description.Value))
	}
	if c.PriceCents.Set {
		if c.PriceCents.Null {
			return p, domain.InvalidArgument("price_cents must not be null")
		}
		if c.PriceCents.Value < 0 {
			return p, domain.InvalidArgument("invalid price_cents value '%d': must be non-negative", c.PriceCents.Value)
		}
		p.PriceCents = domain.Some(c.PriceCents.Value)
	}
	if c.Status.Set {
		if c.Status.Null {
			return p, domain.InvalidArgument("status must not be null")
		}
		s, err := domain.ParseListingStatus(c.Status.Value)
		if err != nil {
			return p, err
		}
		p.Status = domain.Some(s)
	}
	if c.Category.Set {
		if c.Category.Null || c.Category.Value == "" {
			p.Category = domain.Null[domain.ListingCategory]()
		} else {
			v, err := domain.ParseListingCategory(c.Category.Value)
			if err != nil {
				return p, err
			}
			p.Category = domain.Some(v)
		}
	}
	if c.Condition.Set {
		if c.Condition.Null || c.Condition.Value == "" {
			p.Condition = domain.Null[domain.ListingCondition]()
		} else {
			v, err := domain.ParseListingCondition(c.Condition.Value)
			if err != nil {
				return p, err
			}
			p.Condition = domain.Some(v)
		}
	}
	return p, nil
}

// ListingService implements the listing directory use cases.
type ListingService struct {
	listings domain.ListingRepository
	log      *slog.Logger
	now      func() time.Time
}

// NewListingService creates a new listing service.
func NewListingService(listings domain.ListingRepository, log *slog.Logger) *ListingService {
	return &ListingService{listings: listings, log: log, now: time.Now}
}

// Browse returns the public listing page. Without a status filter only
// active listings are returned.
func (s *ListingService) Browse(ctx context.Context, f query.ListingFilter, req query.Request) (Page[domain.ListingWithSeller], error) {
	if len(f.Status) == 0 {
		f.Status = []string{string(domain.StatusActive)}
	}
	return s.browse(ctx, f, req)
}

// AdminBrowse returns listings of any status. Caller must be an administrator.
func (s *ListingService) AdminBrowse(ctx context.Context, caller *domain.User, f query.ListingFilter, req query.Request) (Page[domain.ListingWithSeller], error) {
	if d := Authorize(caller, ActionViewAdmin, Target{}); !d.Allowed {
		return Page[domain.ListingWithSeller]{}, d.Err
	}
	return s.browse(ctx, f, req)
}

func (s *ListingService) browse(ctx context.Context, f query.ListingFilter, req query.Request) (Page[domain.ListingWithSeller], error) {
	var page Page[domain.ListingWithSeller]

	filters, err := f.Filters()
	if err != nil {
		return page, err
	}
	plan, err := query.ListingSorting.Compose(req, filters...)
	if err != nil {
		return page, err
	}

	items, err := s.listings.List(ctx, plan)
	if err != nil {
		return page, err
	}
	total, err := s.listings.Count(ctx, plan.Filters)
	if err != nil {
		return page, err
	}
	return Page[domain.ListingWithSeller]{Items: items, PageNum: plan.Page, CardNum: plan.Limit, Total: total}, nil
}

// Get returns a single listing with its seller summary.
func (s *ListingService) Get(ctx context.Context, id int64) (*domain.ListingWithSeller, error) {
	return s.listings.Get(ctx, id)
}

// Mine returns the caller's own listings without the seller join.
func (s *ListingService) Mine(ctx context.Context, caller *domain.User, req query.Request) (Page[domain.Listing], error) {
	if caller == nil {
		return Page[domain.Listing]{}, domain.Unauthenticated("not authenticated")
	}
	return s.forSeller(ctx, caller.ID, req)
}

func (s *ListingService) forSeller(ctx context.Context, seller uuid.UUID, req query.Request) (Page[domain.Listing], error) {
	var page Page[domain.Listing]

	plan, err := query.ListingSorting.Compose(req, domain.Eq(domain.ListingFieldSellerID, seller))
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

// Create adds a listing owned by caller. Status defaults to active.
func (s *ListingService) Create(ctx context.Context, caller *domain.User, in NewListing) (*domain.Listing, error) {
	if d := Authorize(caller, ActionCreateListing, Target{}); !d.Allowed {
		return nil, d.Err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.InvalidArgument("title must not be empty")
	}
	if in.PriceCents < 0 {
		return nil, domain.InvalidArgument("invalid price_cents value '%d': must be non-negative", in.PriceCents)
	}

	l := &domain.Listing{
		SellerID:    caller.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		PriceCents:  in.PriceCents,
		Status:      domain.StatusActive,
		Image:       domain.DefaultListingImage,
	}
	if in.Status != "" {
		st, err := domain.ParseListingStatus(in.Status)
		if err != nil {
			return nil, err
		}
		l.Status = st
	}
	if in.Category != "" {
		c, err := domain.ParseListingCategory(in.Category)
		if err != nil {
			return nil, err
		}
		l.Category = &c
	}
	if in.Condition != "" {
		c, err := domain.ParseListingCondition(in.Condition)
		if err != nil {
			return nil, err
		}
		l.Condition = &c
	}

	now := s.now().UTC()
	l.CreatedAt, l.UpdatedAt = now, now

	created, err := s.listings.Create(ctx, l)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "listing created", "listing_id", created.ID, "seller_id", caller.ID)
	return created, nil
}

// Update applies a partial update to a listing owned by caller, or to any
// listing when caller is an administrator.
func (s *ListingService) Update(ctx context.Context, caller *domain.User, id int64, changes ListingChanges) (*domain.Listing, error) {
	if caller == nil {
		return nil, domain.Unauthenticated("not authenticated")
	}

	patch, err := changes.Patch()
	if err != nil {
		return nil, err
	}

	current, err := s.listings.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := Authorize(caller, ActionUpdateListing, Target{Listing: &current.Listing}); !d.Allowed {
		return nil, d.Err
	}
	if patch.Empty() {
		return &current.Listing, nil
	}

	return s.listings.Update(ctx, id, patch, s.now().UTC())
}
