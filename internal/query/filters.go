package query

import (
	"strings"

	"github.com/google/uuid"

	"marketplace/internal/domain"
)

// ListingFilter holds the raw listing filter parameters. Enumerated values
// accept any casing and either underscores or spaces; repeated values are
// OR-ed.
type ListingFilter struct {
	Status    []string
	Category  []string
	Condition []string
	MinPrice  *int64
	MaxPrice  *int64
	Keyword   string
	SellerID  *uuid.UUID
}

// Filters validates f and returns its predicates. Nothing is returned unless
// every value is valid.
func (f ListingFilter) Filters() ([]domain.Filter, error) {
	var out []domain.Filter

	if len(f.Status) > 0 {
		vs := make([]any, 0, len(f.Status))
		for _, raw := range f.Status {
			s, err := domain.ParseListingStatus(raw)
			if err != nil {
				return nil, err
			}
			vs = append(vs, string(s))
		}
		out = append(out, enumFilter(domain.ListingFieldStatus, vs))
	}
	if len(f.Category) > 0 {
		vs := make([]any, 0, len(f.Category))
		for _, raw := range f.Category {
			c, err := domain.ParseListingCategory(raw)
			if err != nil {
				return nil, err
			}
			vs = append(vs, string(c))
		}
		out = append(out, enumFilter(domain.ListingFieldCategory, vs))
	}
	if len(f.Condition) > 0 {
		vs := make([]any, 0, len(f.Condition))
		for _, raw := range f.Condition {
			c, err := domain.ParseListingCondition(raw)
			if err != nil {
				return nil, err
			}
			vs = append(vs, string(c))
		}
		out = append(out, enumFilter(domain.ListingFieldCondition, vs))
	}

	if f.MinPrice != nil {
		if *f.MinPrice < 0 {
			return nil, domain.InvalidArgument("invalid min_price value '%d': must be non-negative", *f.MinPrice)
		}
		out = append(out, domain.Gte(domain.ListingFieldPrice, *f.MinPrice))
	}
	if f.MaxPrice != nil {
		if *f.MaxPrice < 0 {
			return nil, domain.InvalidArgument("invalid max_price value '%d': must be non-negative", *f.MaxPrice)
		}
		out = append(out, domain.Lte(domain.ListingFieldPrice, *f.MaxPrice))
	}

	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		out = append(out, domain.Contains(kw, domain.ListingFieldTitle, domain.ListingFieldDescription))
	}
	if f.SellerID != nil {
		out = append(out, domain.Eq(domain.ListingFieldSellerID, *f.SellerID))
	}
	return out, nil
}

func enumFilter(field string, vs []any) domain.Filter {
	if len(vs) == 1 {
		return domain.Eq(field, vs[0])
	}
	return domain.In(field, vs...)
}

// UserFilter holds the raw admin user filter parameters. Flag values are
// "yes" or "no" in any casing.
type UserFilter struct {
	IsActive   string
	IsAdmin    string
	IsVerified string
	IsBanned   string
	Keyword    string
}

// Filters validates f and returns its predicates.
func (f UserFilter) Filters() ([]domain.Filter, error) {
	var out []domain.Filter
	for _, flag := range []struct {
		name, raw, field string
	}{
		{"is_active", f.IsActive, domain.UserFieldIsActive},
		{"is_admin", f.IsAdmin, domain.UserFieldIsSuperuser},
		{"is_verified", f.IsVerified, domain.UserFieldIsVerified},
		{"is_banned", f.IsBanned, domain.UserFieldIsBanned},
	} {
		if flag.raw == "" {
			continue
		}
		switch strings.ToLower(flag.raw) {
		case "yes":
			out = append(out, domain.Eq(flag.field, true))
		case "no":
			out = append(out, domain.Eq(flag.field, false))
		default:
			return nil, domain.InvalidArgument("invalid %s value '%s': must be 'yes' or 'no'", flag.name, flag.raw)
		}
	}
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		out = append(out, domain.Contains(kw, domain.UserFieldFirstName, domain.UserFieldLastName))
	}
	return out, nil
}
