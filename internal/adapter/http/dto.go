package adapthttp

import (
	"time"

	"github.com/google/uuid"

	"marketplace/internal/app"
	"marketplace/internal/domain"
)

type userResponse struct {
	ID                uuid.UUID `json:"id"`
	Email             string    `json:"email"`
	FirstName         string    `json:"first_name"`
	LastName          string    `json:"last_name"`
	PhoneNumber       string    `json:"phone_number"`
	ProfilePictureURL string    `json:"profile_picture_url"`
	IsActive          bool      `json:"is_active"`
	IsVerified        bool      `json:"is_verified"`
	IsSuperuser       bool      `json:"is_superuser"`
	IsBanned          bool      `json:"is_banned"`
	CreatedAt         time.Time `json:"created_at"`
}

type listingResponse struct {
	domain.Listing
	ImageURL string         `json:"image_url"`
	Seller   *domain.Seller `json:"seller,omitempty"`
}

type pageResponse[T any] struct {
	Items   []T `json:"items"`
	PageNum int `json:"page_num"`
	CardNum int `json:"card_num"`
	Total   int `json:"total"`
}

func (s *Server) user(u *domain.User) userResponse {
	return userResponse{
		ID:                u.ID,
		Email:             u.Email,
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		PhoneNumber:       u.PhoneNumber,
		ProfilePictureURL: domain.StaticURL(s.opts.BaseURL, u.ProfilePicture),
		IsActive:          u.IsActive,
		IsVerified:        u.IsVerified,
		IsSuperuser:       u.IsSuperuser,
		IsBanned:          u.IsBanned,
		CreatedAt:         u.CreatedAt,
	}
}

func (s *Server) listing(l domain.Listing) listingResponse {
	return listingResponse{Listing: l, ImageURL: domain.StaticURL(s.opts.BaseURL, l.Image)}
}

func (s *Server) listingWithSeller(lw domain.ListingWithSeller) listingResponse {
	out := s.listing(lw.Listing)
	seller := lw.Seller
	out.Seller = &seller
	return out
}

func mapPage[T, R any](p app.Page[T], conv func(T) R) pageResponse[R] {
	items := make([]R, len(p.Items))
	for i, it := range p.Items {
		items[i] = conv(it)
	}
	return pageResponse[R]{Items: items, PageNum: p.PageNum, CardNum: p.CardNum, Total: p.Total}
}
