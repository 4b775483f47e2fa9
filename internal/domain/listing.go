package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Logical listing fields understood by ListingRepository filters and sorting.
const (
	ListingFieldID          = "id"
	ListingFieldSellerID    = "seller_id"
	ListingFieldTitle       = "title"
	ListingFieldDescription = "description"
	ListingFieldPrice       = "price_cents"
	ListingFieldStatus      = "status"
	ListingFieldCategory    = "category"
	ListingFieldCondition   = "condition"
	ListingFieldCreatedAt   = "created_at"
	ListingFieldUpdatedAt   = "updated_at"
)

// DefaultListingImage is the relative static path of the listing placeholder.
const DefaultListingImage = "listings/placeholder.png"

// ListingStatus is the lifecycle status of a listing.
type ListingStatus string

// Listing statuses.
const (
	StatusDraft    ListingStatus = "draft"
	StatusActive   ListingStatus = "active"
	StatusSold     ListingStatus = "sold"
	StatusInactive ListingStatus = "inactive"
	StatusArchived ListingStatus = "archived"
)

// ListingStatuses lists every status in declaration order.
var ListingStatuses = []ListingStatus{StatusDraft, StatusActive, StatusSold, StatusInactive, StatusArchived}

// ListingCategory is the optional category of a listing.
type ListingCategory string

// Listing categories.
const (
	CategoryElectronics    ListingCategory = "electronics"
	CategorySchoolSupplies ListingCategory = "school supplies"
	CategoryFurniture      ListingCategory = "furniture"
	CategoryAppliances     ListingCategory = "appliances"
	CategoryClothing       ListingCategory = "clothing"
	CategoryTextbooks      ListingCategory = "textbooks"
	CategoryMiscellaneous  ListingCategory = "miscellaneous"
)

// ListingCategories lists every category in declaration order.
var ListingCategories = []ListingCategory{
	CategoryElectronics, CategorySchoolSupplies, CategoryFurniture, CategoryAppliances,
	CategoryClothing, CategoryTextbooks, CategoryMiscellaneous,
}

// ListingCondition is the optional condition of a listed item.
type ListingCondition string

// Listing conditions.
const (
	ConditionNew      ListingCondition = "new"
	ConditionLikeNew  ListingCondition = "like new"
	ConditionVeryGood ListingCondition = "very good"
	ConditionGood     ListingCondition = "good"
	ConditionUsed     ListingCondition = "used"
)

// ListingConditions lists every condition in declaration order.
var ListingConditions = []ListingCondition{ConditionNew, ConditionLikeNew, ConditionVeryGood, ConditionGood, ConditionUsed}

// CanonicalToken normalizes an enum token to its display form: lower-case,
// underscores replaced by spaces, inner whitespace collapsed. "VERY_GOOD",
// "very good" and " Very  Good " all become "very good".
func CanonicalToken(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(raw, "_", " "))), " ")
}

func parseEnum[T ~string](name, raw string, allowed []T) (T, error) {
	tok := CanonicalToken(raw)
	for _, v := range allowed {
		if string(v) == tok {
			return v, nil
		}
	}
	var zero T
	return zero, InvalidArgument("invalid %s value '%s'", name, raw)
}

// ParseListingStatus parses a status token in any casing or separator style.
func ParseListingStatus(raw string) (ListingStatus, error) {
	return parseEnum("status", raw, ListingStatuses)
}

// ParseListingCategory parses a category token in any casing or separator style.
func ParseListingCategory(raw string) (ListingCategory, error) {
	return parseEnum("category", raw, ListingCategories)
}

// ParseListingCondition parses a condition token in any casing or separator style.
func ParseListingCondition(raw string) (ListingCondition, error) {
	return parseEnum("condition", raw, ListingConditions)
}

// Listing is an item offered for sale by a single seller.
type Listing struct {
	ID          int64             `json:"id"`
	SellerID    uuid.UUID         `json:"seller_id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	PriceCents  int64             `json:"price_cents"`
	Status      ListingStatus     `json:"status"`
	Category    *ListingCategory  `json:"category"`
	Condition   *ListingCondition `json:"condition"`
	Image       string            `json:"-"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Seller is the public summary of a listing's owner.
type Seller struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}

// ListingWithSeller is a listing joined with its seller summary.
type ListingWithSeller struct {
	Listing
	Seller Seller `json:"seller"`
}

// ListingPatch is a partial listing update. Only present fields are applied.
type ListingPatch struct {
	Title       Optional[string]
	Description Optional[string]
	PriceCents  Optional[int64]
	Status      Optional[ListingStatus]
	Category    Optional[ListingCategory]
	Condition   Optional[ListingCondition]
}

// Empty reports whether no field is present.
func (p ListingPatch) Empty() bool {
	return !p.Title.Set && !p.Description.Set && !p.PriceCents.Set &&
		!p.Status.Set && !p.Category.Set && !p.Condition.Set
}

// Apply writes the present fields of the patch onto l.
func (p ListingPatch) Apply(l *Listing) {
	if p.Title.Set {
		l.Title = p.Title.Value
	}
	if p.Description.Set {
		l.Description = p.Description.Value
	}
	if p.PriceCents.Set {
		l.PriceCents = p.PriceCents.Value
	}
	if p.Status.Set {
		l.Status = p.Status.Value
	}
	if p.Category.Set {
		l.Category = nil
		if !p.Category.Null {
			c := p.Category.Value
			l.Category = &c
		}
	}
	if p.Condition.Set {
		l.Condition = nil
		if !p.Condition.Null {
			c := p.Condition.Value
			l.Condition = &c
		}
	}
}

// ListingRepository is the port for listing persistence. List joins the
// seller summary; ListPlain does not.
type ListingRepository interface {
	Create(ctx context.Context, l *Listing) (*Listing, error)
	Get(ctx context.Context, id int64) (*ListingWithSeller, error)
	List(ctx context.Context, plan Plan) ([]ListingWithSeller, error)
	ListPlain(ctx context.Context, plan Plan) ([]Listing, error)
	Count(ctx context.Context, filters []Filter) (int, error)
	Update(ctx context.Context, id int64, patch ListingPatch, at time.Time) (*Listing, error)
	UpdateStatus(ctx context.Context, filters []Filter, status ListingStatus, at time.Time) ([]Listing, error)
}
