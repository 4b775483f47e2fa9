package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"marketplace/internal/domain"
)

// columns maps logical record fields to SQL expressions.
type columns map[string]string

var userColumns = columns{
	domain.UserFieldEmail:       "u.email",
	domain.UserFieldFirstName:   "u.first_name",
	domain.UserFieldLastName:    "u.last_name",
	domain.UserFieldPhoneNumber: "u.phone_number",
	domain.UserFieldIsActive:    "u.is_active",
	domain.UserFieldIsVerified:  "u.is_verified",
	domain.UserFieldIsSuperuser: "u.is_superuser",
	domain.UserFieldIsBanned:    "u.is_banned",
	domain.UserFieldCreatedAt:   "u.created_at",
}

var listingColumns = columns{
	domain.ListingFieldID:          "l.id",
	domain.ListingFieldSellerID:    "l.seller_id",
	domain.ListingFieldTitle:       "l.title",
	domain.ListingFieldDescription: "l.description",
	domain.ListingFieldPrice:       "l.price_cents",
	domain.ListingFieldStatus:      "l.status",
	domain.ListingFieldCategory:    "l.category",
	domain.ListingFieldCondition:   "l.condition",
	domain.ListingFieldCreatedAt:   "l.created_at",
	domain.ListingFieldUpdatedAt:   "l.updated_at",
}

// enumColumns are stored as PostgreSQL enum types and compared as text.
var enumColumns = map[string]bool{
	"l.status":    true,
	"l.category":  true,
	"l.condition": true,
}

// builder accumulates positional arguments while rendering a statement.
type builder struct {
	args []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (b *builder) where(cols columns, filters []domain.Filter) (string, error) {
	if len(filters) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		col, ok := cols[f.Field]
		if !ok {
			return "", fmt.Errorf("unknown filter field %q", f.Field)
		}
		if len(f.Values) == 0 {
			return "", fmt.Errorf("filter on %q has no value", f.Field)
		}
		if enumColumns[col] {
			col += "::text"
		}

		switch f.Op {
		case domain.OpEq:
			parts = append(parts, col+" = "+b.arg(f.Values[0]))
		case domain.OpIn:
			vs := make([]string, len(f.Values))
			for i, v := range f.Values {
				vs[i] = fmt.Sprint(v)
			}
			parts = append(parts, col+" = ANY("+b.arg(pq.Array(vs))+")")
		case domain.OpGte:
			parts = append(parts, col+" >= "+b.arg(f.Values[0]))
		case domain.OpLte:
			parts = append(parts, col+" <= "+b.arg(f.Values[0]))
		case domain.OpContains:
			p := b.arg("%" + likeEscaper.Replace(fmt.Sprint(f.Values[0])) + "%")
			ors := []string{col + " ILIKE " + p}
			for _, field := range f.Or {
				other, ok := cols[field]
				if !ok {
					return "", fmt.Errorf("unknown filter field %q", field)
				}
				ors = append(ors, other+" ILIKE "+p)
			}
			parts = append(parts, "("+strings.Join(ors, " OR ")+")")
		default:
			return "", fmt.Errorf("unsupported filter operator %v", f.Op)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

// page renders ORDER BY, LIMIT and OFFSET. Ties are broken by idCol so
// paging is stable.
func (b *builder) page(cols columns, idCol string, plan domain.Plan) (string, error) {
	col, ok := cols[plan.SortField]
	if !ok {
		return "", fmt.Errorf("unknown sort field %q", plan.SortField)
	}
	dir := "ASC"
	if plan.Desc {
		dir = "DESC"
	}
	s := fmt.Sprintf(" ORDER BY %s %s, %s ASC", col, dir, idCol)
	if plan.Limit > 0 {
		s += " LIMIT " + b.arg(plan.Limit) + " OFFSET " + b.arg(plan.Offset)
	}
	return s, nil
}
