package domain

// Op is a filter predicate operator.
type Op uint8

// Filter operators.
const (
	OpEq Op = iota
	OpIn
	OpGte
	OpLte
	// OpContains is a case-insensitive substring match of Values[0] against
	// Field and every field in Or.
	OpContains
)

func (o Op) String() string {
	switch o {
	case OpEq:
		return "="
	case OpIn:
		return "in"
	case OpGte:
		return ">="
	case OpLte:
		return "<="
	case OpContains:
		return "contains"
	default:
		return "?"
	}
}

// Filter is a single predicate over a logical record field. Field names are
// the directory's own vocabulary; storage adapters map them to columns.
type Filter struct {
	Field  string
	Op     Op
	Values []any
	Or     []string
}

// Eq matches records whose field equals v.
func Eq(field string, v any) Filter {
	return Filter{Field: field, Op: OpEq, Values: []any{v}}
}

// In matches records whose field equals any of vs.
func In(field string, vs ...any) Filter {
	return Filter{Field: field, Op: OpIn, Values: vs}
}

// Gte matches records whose field is greater than or equal to v.
func Gte(field string, v any) Filter {
	return Filter{Field: field, Op: OpGte, Values: []any{v}}
}

// Lte matches records whose field is less than or equal to v.
func Lte(field string, v any) Filter {
	return Filter{Field: field, Op: OpLte, Values: []any{v}}
}

// Contains matches records where text occurs, ignoring case, in field or in
// any of the other fields.
func Contains(text string, field string, others ...string) Filter {
	return Filter{Field: field, Op: OpContains, Values: []any{text}, Or: others}
}

// Plan is a validated, storage-independent read query:
//
//	WHERE <Filters AND-ed> ORDER BY <SortField> <Desc> LIMIT <Limit> OFFSET <Offset>
type Plan struct {
	Filters   []Filter
	SortField string
	Desc      bool
	Page      int
	Limit     int
	Offset    int
}
