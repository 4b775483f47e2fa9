package adapthttp

import (
	"net/http"

	"marketplace/internal/domain"
	"marketplace/internal/query"
)

type userParams struct {
	PageNum    int    `schema:"page_num"`
	CardNum    int    `schema:"card_num"`
	SortBy     string `schema:"sort_by"`
	Order      string `schema:"order"`
	IsActive   string `schema:"is_active"`
	IsAdmin    string `schema:"is_admin"`
	IsVerified string `schema:"is_verified"`
	IsBanned   string `schema:"is_banned"`
	Keyword    string `schema:"keyword"`
}

func (p userParams) request() query.Request {
	return query.Request{SortBy: p.SortBy, Order: p.Order, Page: p.PageNum, PageSize: p.CardNum}
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	var p userParams
	if err := parseForm(r, &p); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	f := query.UserFilter{
		IsActive:   p.IsActive,
		IsAdmin:    p.IsAdmin,
		IsVerified: p.IsVerified,
		IsBanned:   p.IsBanned,
		Keyword:    p.Keyword,
	}
	page, err := s.users.List(r.Context(), callerFrom(r), f, p.request())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPage(page, func(u domain.User) userResponse { return s.user(&u) }))
}

func (s *Server) handleAdminUsersTotal(w http.ResponseWriter, r *http.Request) {
	n, err := s.users.Total(r.Context(), callerFrom(r))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total": n})
}

func (s *Server) handleAdminUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathUserID(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	user, err := s.users.Get(r.Context(), callerFrom(r), id)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s.user(user))
}

func (s *Server) handleAdminUserListings(w http.ResponseWriter, r *http.Request) {
	id, err := pathUserID(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	var p pageParams
	if err := parseForm(r, &p); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	page, err := s.users.ListingsOf(r.Context(), callerFrom(r), id, p.request())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, mapPage(page, s.listing))
}

func (s *Server) handleBan(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, true)
}

func (s *Server) handleUnban(w http.ResponseWriter, r *http.Request) {
	s.moderate(w, r, false)
}

func (s *Server) moderate(w http.ResponseWriter, r *http.Request, ban bool) {
	id, err := pathUserID(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	var user *domain.User
	if ban {
		user, err = s.users.Ban(r.Context(), callerFrom(r), id)
	} else {
		user, err = s.users.Unban(r.Context(), callerFrom(r), id)
	}
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s.user(user))
}
