package adapthttp

import (
	"net/http"

	"marketplace/internal/app"
	"marketplace/internal/domain"
	"marketplace/internal/query"
)

// pageParams are the sort and pagination query parameters shared by every
// directory endpoint.
type pageParams struct {
	PageNum int    `schema:"page_num"`
	CardNum int    `schema:"card_num"`
	SortBy  string `schema:"sort_by"`
	Order   string `schema:"order"`
}

func (p pageParams) request() query.Request {
	return query.Request{SortBy: p.SortBy, Order: p.Order, Page: p.PageNum, PageSize: p.CardNum}
}

type listingParams struct {
	PageNum   int      `schema:"page_num"`
	CardNum   int      `schema:"card_num"`
	SortBy    string   `schema:"sort_by"`
	Order     string   `schema:"order"`
	Status    []string `schema:"status"`
	Category  []string `schema:"category"`
	Condition []string `schema:"condition"`
	MinPrice  *int64   `schema:"min_price"`
	MaxPrice  *int64   `schema:"max_price"`
	Keyword   string   `schema:"keyword"`
}

func (p listingParams) request() query.Request {
	return query.Request{SortBy: p.SortBy, Order: p.Order, Page: p.PageNum, PageSize: p.CardNum}
}

func (p listingParams) filter() query.ListingFilter {
	return query.ListingFilter{
		Status:    p.Status,
		Category:  p.Category,
		Condition: p.Condition,
		MinPrice:  p.MinPrice,
		MaxPrice:  p.MaxPrice,
		Keyword:   p.Keyword,
	}
}

func (s *Server) handleBrowseListings(w http.ResponseWriter, r *http.Request) {
	var p listingParams
	if err := parseForm(r, &p); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	page, err := s.listings.Browse(r.Context(), p.filter(), p.request())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPage(page, s.listingWithSeller))
}

func (s *Server) handleAdminListings(w http.ResponseWriter, r *http.Request) {
	var p listingParams
	if err := parseForm(r, &p); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	page, err := s.listings.AdminBrowse(r.Context(), callerFrom(r), p.filter(), p.request())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPage(page, s.listingWithSeller))
}

func (s *Server) handleGetListing(w http.ResponseWriter, r *http.Request) {
	id, err := pathListingID(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	lw, err := s.listings.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s.listingWithSeller(*lw))
}

func (s *Server) handleMyListings(w http.ResponseWriter, r *http.Request) {
	var p pageParams
	if err := parseForm(r, &p); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	page, err := s.listings.Mine(r.Context(), callerFrom(r), p.request())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPage(page, s.listing))
}

func (s *Server) handleCreateListing(w http.ResponseWriter, r *http.Request) {
	var req app.NewListing
	if err := parseJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	l, err := s.listings.Create(r.Context(), callerFrom(r), req)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.listing(*l))
}

func (s *Server) handleUpdateListing(w http.ResponseWriter, r *http.Request) {
	id, err := pathListingID(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	var req app.ListingChanges
	if err := parseJSONPatch(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	l, err := s.listings.Update(r.Context(), callerFrom(r), id, req)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s.listing(*l))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.Profile(r.Context(), callerFrom(r))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s.user(user))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProfilePatch
	if err := parseJSONPatch(r, &patch); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	user, err := s.users.UpdateProfile(r.Context(), callerFrom(r), patch)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s.user(user))
}
