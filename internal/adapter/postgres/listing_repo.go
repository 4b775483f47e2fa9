package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"marketplace/internal/domain"
)

const listingFields = `l.id, l.seller_id, l.title, l.description, l.price_cents, l.status, l.category,
l.condition, l.image, l.created_at, l.updated_at`

const listingSelect = "SELECT " + listingFields + " FROM listings l"

const listingWithSellerSelect = "SELECT " + listingFields + `, u.first_name, u.last_name, u.phone_number, u.email
FROM listings l JOIN users u ON u.id = l.seller_id`

const listingReturning = " RETURNING " + listingFields

func listingDest(l *domain.Listing, category, condition *sql.NullString) []any {
	return []any{&l.ID, &l.SellerID, &l.Title, &l.Description, &l.PriceCents, &l.Status,
		category, condition, &l.Image, &l.CreatedAt, &l.UpdatedAt}
}

func setEnums(l *domain.Listing, category, condition sql.NullString) {
	if category.Valid {
		c := domain.ListingCategory(category.String)
		l.Category = &c
	}
	if condition.Valid {
		c := domain.ListingCondition(condition.String)
		l.Condition = &c
	}
}

func scanListing(row rowScanner) (*domain.Listing, error) {
	var (
		l                   domain.Listing
		category, condition sql.NullString
	)
	if err := row.Scan(listingDest(&l, &category, &condition)...); err != nil {
		return nil, err
	}
	setEnums(&l, category, condition)
	return &l, nil
}

func scanListingWithSeller(row rowScanner) (*domain.ListingWithSeller, error) {
	var (
		lw                  domain.ListingWithSeller
		category, condition sql.NullString
	)
	dest := append(listingDest(&lw.Listing, &category, &condition),
		&lw.Seller.FirstName, &lw.Seller.LastName, &lw.Seller.PhoneNumber, &lw.Seller.Email)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	setEnums(&lw.Listing, category, condition)
	return &lw, nil
}

func nullable[T ~string](v *T) any {
	if v == nil {
		return nil
	}
	return string(*v)
}

// ListingRepo implements domain.ListingRepository on DB.
type ListingRepo struct {
	db *DB
}

var _ domain.ListingRepository = (*ListingRepo)(nil)

// NewListingRepo wraps a DB as a ListingRepository.
func NewListingRepo(db *DB) *ListingRepo {
	return &ListingRepo{db: db}
}

// Create inserts a new listing and returns it with its assigned id.
func (r *ListingRepo) Create(ctx context.Context, l *domain.Listing) (*domain.Listing, error) {
	created, err := scanListing(r.db.sql.QueryRowContext(ctx,
		`INSERT INTO listings AS l (seller_id, title, description, price_cents, status, category, condition, image,
created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`+listingReturning,
		l.SellerID, l.Title, l.Description, l.PriceCents, string(l.Status), nullable(l.Category), nullable(l.Condition),
		l.Image, l.CreatedAt.UTC(), l.UpdatedAt.UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("create listing: %w", err)
	}
	return created, nil
}

// Get retrieves a listing joined with its seller summary.
func (r *ListingRepo) Get(ctx context.Context, id int64) (*domain.ListingWithSeller, error) {
	lw, err := scanListingWithSeller(r.db.sql.QueryRowContext(ctx, listingWithSellerSelect+" WHERE l.id = $1", id))
	if err != nil {
		return nil, notFound(err, "listing %d not found", id)
	}
	return lw, nil
}

// List returns one page of listings matching plan, each joined with its
// seller summary.
func (r *ListingRepo) List(ctx context.Context, plan domain.Plan) ([]domain.ListingWithSeller, error) {
	var b builder
	where, err := b.where(listingColumns, plan.Filters)
	if err != nil {
		return nil, err
	}
	page, err := b.page(listingColumns, "l.id", plan)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.sql.QueryContext(ctx, listingWithSellerSelect+where+page, b.args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()

	out := []domain.ListingWithSeller{}
	for rows.Next() {
		lw, err := scanListingWithSeller(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *lw)
	}
	return out, rows.Err()
}

// ListPlain returns one page of listings matching plan without the seller
// join.
func (r *ListingRepo) ListPlain(ctx context.Context, plan domain.Plan) ([]domain.Listing, error) {
	var b builder
	where, err := b.where(listingColumns, plan.Filters)
	if err != nil {
		return nil, err
	}
	page, err := b.page(listingColumns, "l.id", plan)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.sql.QueryContext(ctx, listingSelect+where+page, b.args...)
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}
	defer rows.Close()
	return collectListings(rows)
}

func collectListings(rows *sql.Rows) ([]domain.Listing, error) {
	out := []domain.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// Count returns the number of listings matching filters.
func (r *ListingRepo) Count(ctx context.Context, filters []domain.Filter) (int, error) {
	var b builder
	where, err := b.where(listingColumns, filters)
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.sql.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings l"+where, b.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return n, nil
}

// Update applies the present fields of patch and refreshes updated_at.
func (r *ListingRepo) Update(ctx context.Context, id int64, patch domain.ListingPatch, at time.Time) (*domain.Listing, error) {
	var b builder
	var sets []string
	if patch.Title.Set {
		sets = append(sets, "title = "+b.arg(patch.Title.Value))
	}
	if patch.Description.Set {
		sets = append(sets, "description = "+b.arg(patch.Description.Value))
	}
	if patch.PriceCents.Set {
		sets = append(sets, "price_cents = "+b.arg(patch.PriceCents.Value))
	}
	if patch.Status.Set {
		sets = append(sets, "status = "+b.arg(string(patch.Status.Value)))
	}
	if patch.Category.Set {
		if patch.Category.Null {
			sets = append(sets, "category = NULL")
		} else {
			sets = append(sets, "category = "+b.arg(string(patch.Category.Value)))
		}
	}
	if patch.Condition.Set {
		if patch.Condition.Null {
			sets = append(sets, "condition = NULL")
		} else {
			sets = append(sets, "condition = "+b.arg(string(patch.Condition.Value)))
		}
	}
	sets = append(sets, "updated_at = "+b.arg(at.UTC()))

	stmt := "UPDATE listings AS l SET " + strings.Join(sets, ", ") + " WHERE l.id = " + b.arg(id) + listingReturning
	l, err := scanListing(r.db.sql.QueryRowContext(ctx, stmt, b.args...))
	if err != nil {
		return nil, notFound(err, "listing %d not found", id)
	}
	return l, nil
}

// UpdateStatus sets the status of every listing matching filters in one
// statement and returns the affected listings.
func (r *ListingRepo) UpdateStatus(ctx context.Context, filters []domain.Filter, status domain.ListingStatus, at time.Time) ([]domain.Listing, error) {
	var b builder
	sets := "status = " + b.arg(string(status)) + ", updated_at = " + b.arg(at.UTC())
	where, err := b.where(listingColumns, filters)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.sql.QueryContext(ctx, "UPDATE listings AS l SET "+sets+where+listingReturning, b.args...)
	if err != nil {
		return nil, fmt.Errorf("update listing status: %w", err)
	}
	defer rows.Close()
	return collectListings(rows)
}
