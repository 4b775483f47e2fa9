package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"marketplace/internal/domain"
)

// fieldFunc resolves a logical field of a record to a comparable value:
// string, bool, int64, uuid.UUID or time.Time.
type fieldFunc func(field string) (any, bool)

func userFields(u *domain.User) fieldFunc {
	return func(field string) (any, bool) {
		switch field {
		case domain.UserFieldEmail:
			return u.Email, true
		case domain.UserFieldFirstName:
			return u.FirstName, true
		case domain.UserFieldLastName:
			return u.LastName, true
		case domain.UserFieldPhoneNumber:
			return u.PhoneNumber, true
		case domain.UserFieldIsActive:
			return u.IsActive, true
		case domain.UserFieldIsVerified:
			return u.IsVerified, true
		case domain.UserFieldIsSuperuser:
			return u.IsSuperuser, true
		case domain.UserFieldIsBanned:
			return u.IsBanned, true
		case domain.UserFieldCreatedAt:
			return u.CreatedAt, true
		}
		return nil, false
	}
}

func listingFields(l *domain.Listing) fieldFunc {
	return func(field string) (any, bool) {
		switch field {
		case domain.ListingFieldID:
			return l.ID, true
		case domain.ListingFieldSellerID:
			return l.SellerID, true
		case domain.ListingFieldTitle:
			return l.Title, true
		case domain.ListingFieldDescription:
			return l.Description, true
		case domain.ListingFieldPrice:
			return l.PriceCents, true
		case domain.ListingFieldStatus:
			return string(l.Status), true
		case domain.ListingFieldCategory:
			if l.Category == nil {
				return nil, true
			}
			return string(*l.Category), true
		case domain.ListingFieldCondition:
			if l.Condition == nil {
				return nil, true
			}
			return string(*l.Condition), true
		case domain.ListingFieldCreatedAt:
			return l.CreatedAt, true
		case domain.ListingFieldUpdatedAt:
			return l.UpdatedAt, true
		}
		return nil, false
	}
}

// compareText orders strings case-insensitively, the way a database
// collation does, falling back to bytes so the order stays total.
func compareText(a, b string) int {
	if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// compare orders two values of the same kind. A nil value sorts first.
func compare(a, b any) (int, error) {
	switch {
	case a == nil && b == nil:
		return 0, nil
	case a == nil:
		return -1, nil
	case b == nil:
		return 1, nil
	}

	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return compareText(x, y), nil
		}
	case int64:
		switch y := b.(type) {
		case int64:
			return cmpOrdered(x, y), nil
		case int:
			return cmpOrdered(x, int64(y)), nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			default:
				return 1, nil
			}
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y), nil
		}
	case uuid.UUID:
		if y, ok := b.(uuid.UUID); ok {
			return strings.Compare(x.String(), y.String()), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %T with %T", a, b)
}

func cmpOrdered[T int64 | int](x, y T) int {
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

func matches(get fieldFunc, f domain.Filter) (bool, error) {
	v, ok := get(f.Field)
	if !ok {
		return false, fmt.Errorf("unknown filter field %q", f.Field)
	}
	if len(f.Values) == 0 {
		return false, fmt.Errorf("filter on %q has no value", f.Field)
	}

	switch f.Op {
	case domain.OpEq, domain.OpIn:
		if v == nil {
			return false, nil
		}
		for _, want := range f.Values {
			if c, err := compare(v, want); err == nil && c == 0 {
				return true, nil
			}
		}
		return false, nil
	case domain.OpGte, domain.OpLte:
		if v == nil {
			return false, nil
		}
		c, err := compare(v, f.Values[0])
		if err != nil {
			return false, err
		}
		if f.Op == domain.OpGte {
			return c >= 0, nil
		}
		return c <= 0, nil
	case domain.OpContains:
		needle := strings.ToLower(fmt.Sprint(f.Values[0]))
		for _, field := range append([]string{f.Field}, f.Or...) {
			s, ok := get(field)
			if !ok {
				return false, fmt.Errorf("unknown filter field %q", field)
			}
			if str, ok := s.(string); ok && strings.Contains(strings.ToLower(str), needle) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, fmt.Errorf("unsupported filter operator %v", f.Op)
}

func matchesAll(get fieldFunc, filters []domain.Filter) (bool, error) {
	for _, f := range filters {
		ok, err := matches(get, f)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// selectPage filters, sorts and pages items the way the PostgreSQL adapter
// does: ties on the sort field are broken by ascending id.
func selectPage[T any](items []T, fields func(T) fieldFunc, less func(a, b T) bool, plan domain.Plan) ([]T, error) {
	var out []T
	for _, it := range items {
		ok, err := matchesAll(fields(it), plan.Filters)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, it)
		}
	}

	if len(out) > 0 {
		if _, ok := fields(out[0])(plan.SortField); !ok {
			return nil, fmt.Errorf("unknown sort field %q", plan.SortField)
		}
	}

	var sortErr error
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := fields(out[i])(plan.SortField)
		b, _ := fields(out[j])(plan.SortField)
		c, err := compare(a, b)
		if err != nil {
			sortErr = err
			return false
		}
		if c == 0 {
			return less(out[i], out[j])
		}
		if plan.Desc {
			return c > 0
		}
		return c < 0
	})
	if sortErr != nil {
		return nil, sortErr
	}

	if plan.Limit <= 0 {
		return out, nil
	}
	if plan.Offset >= len(out) {
		return []T{}, nil
	}
	end := plan.Offset + plan.Limit
	if end > len(out) {
		end = len(out)
	}
	return out[plan.Offset:end], nil
}

func countMatching[T any](items []T, fields func(T) fieldFunc, filters []domain.Filter) (int, error) {
	n := 0
	for _, it := range items {
		ok, err := matchesAll(fields(it), filters)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}
