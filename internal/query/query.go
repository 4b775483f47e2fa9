// Package query turns optional sort, order and pagination parameters plus
// filter predicates into a validated domain.Plan.
package query

import (
	"strings"

	"marketplace/internal/domain"
)

// Pagination bounds.
const (
	DefaultPage     = 1
	MaxPage         = 500000
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Order is a sort direction.
type Order string

// Sort directions.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// SortKey maps a public sort key name to a logical record field.
type SortKey struct {
	Name  string
	Field string
}

// Sorting describes the sort keys a directory accepts.
type Sorting struct {
	Keys         []SortKey
	Default      string
	DefaultOrder Order
}

// Request carries the caller's raw sort and pagination parameters. Zero
// values select the defaults.
type Request struct {
	SortBy   string
	Order    string
	Page     int
	PageSize int
}

// Offset is the row offset of page for the given page size. It holds
// uniformly for every page, including the first.
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}

// Compose validates req against s and returns the plan for filters.
func (s Sorting) Compose(req Request, filters ...domain.Filter) (domain.Plan, error) {
	field, err := s.field(req.SortBy)
	if err != nil {
		return domain.Plan{}, err
	}
	order, err := s.order(req.Order)
	if err != nil {
		return domain.Plan{}, err
	}

	page := req.Page
	if page == 0 {
		page = DefaultPage
	}
	if page < 1 || page > MaxPage {
		return domain.Plan{}, domain.InvalidArgument("invalid page_num value '%d': must be between 1 and %d", req.Page, MaxPage)
	}
	size := req.PageSize
	if size == 0 {
		size = DefaultPageSize
	}
	if size < 1 || size > MaxPageSize {
		return domain.Plan{}, domain.InvalidArgument("invalid card_num value '%d': must be between 1 and %d", req.PageSize, MaxPageSize)
	}

	return domain.Plan{
		Filters:   filters,
		SortField: field,
		Desc:      order == Desc,
		Page:      page,
		Limit:     size,
		Offset:    Offset(page, size),
	}, nil
}

func (s Sorting) field(name string) (string, error) {
	if name == "" {
		name = s.Default
	}
	for _, k := range s.Keys {
		if k.Name == name {
			return k.Field, nil
		}
	}
	names := make([]string, len(s.Keys))
	for i, k := range s.Keys {
		names[i] = "'" + k.Name + "'"
	}
	return "", domain.InvalidArgument("unsupported sort field '%s': must be one of %s", name, strings.Join(names, ", "))
}

func (s Sorting) order(raw string) (Order, error) {
	if raw == "" {
		if s.DefaultOrder == "" {
			return Desc, nil
		}
		return s.DefaultOrder, nil
	}
	switch o := Order(strings.ToLower(raw)); o {
	case Asc, Desc:
		return o, nil
	}
	return "", domain.InvalidArgument("invalid order value '%s': must be 'asc' or 'desc'", raw)
}

// ListingSorting is the sort contract of the listing directory.
var ListingSorting = Sorting{
	Keys: []SortKey{
		{Name: "created_at", Field: domain.ListingFieldCreatedAt},
		{Name: "updated_at", Field: domain.ListingFieldUpdatedAt},
		{Name: "price", Field: domain.ListingFieldPrice},
		{Name: "title", Field: domain.ListingFieldTitle},
	},
	Default:      "created_at",
	DefaultOrder: Desc,
}

// UserSorting is the sort contract of the admin user directory.
var UserSorting = Sorting{
	Keys: []SortKey{
		{Name: "first_name", Field: domain.UserFieldFirstName},
		{Name: "last_name", Field: domain.UserFieldLastName},
		{Name: "phone_number", Field: domain.UserFieldPhoneNumber},
		{Name: "email", Field: domain.UserFieldEmail},
	},
	Default:      "first_name",
	DefaultOrder: Asc,
}
