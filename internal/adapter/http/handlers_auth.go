// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"net/http"
	"net/url"
	"strings"

	"marketplace/internal/app"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req app.RegisterInput
	if err := parseJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}

	user, err := s.auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.user(user))
}

// loginRequest accepts the url-encoded username/password form used by
// browser clients, or a JSON body with email and password.
type loginRequest struct {
	Username string `schema:"username" json:"username"`
	Email    string `schema:"email" json:"email"`
	Password string `schema:"password" json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		err = parseJSON(r, &req)
	} else {
		err = parseForm(r, &req)
	}
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	email := req.Email
	if email == "" {
		email = req.Username
	}

	sess, err := s.auth.Login(r.Context(), email, req.Password)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	s.setSessionCookie(w, sess)
	w.WriteHeader(http.StatusNoContent)
}

// handleLogout clears any session cookie, live or stale. Only a request
// carrying no cookie at all is rejected.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(s.opts.Cookie.Name)
	if err != nil || cookie.Value == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "not authenticated"})
		return
	}
	if err := s.auth.Logout(r.Context(), cookie.Value); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// handleVerifyEmailLink is the target of the emailed link. Success redirects
// the browser to the frontend; failures are reported as JSON.
func (s *Server) handleVerifyEmailLink(w http.ResponseWriter, r *http.Request) {
	if _, err := s.auth.Verify(r.Context(), r.URL.Query().Get("token")); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	http.Redirect(w, r, s.frontendURL("verified", "True"), http.StatusFound)
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	user, err := s.auth.Verify(r.Context(), req.Token)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, s.user(user))
}

func (s *Server) handleRequestVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if err := s.auth.RequestVerify(r.Context(), req.Email); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := callerFrom(r)
	if user == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "not authenticated"})
		return
	}
	writeJSON(w, http.StatusOK, s.user(user))
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	base := strings.TrimRight(s.opts.BaseURL, "/") + "/static/images/about/"
	writeJSON(w, http.StatusOK, map[string]string{
		"Anders": base + "anders.jpg",
		"Alex":   base + "alex.jpg",
		"Evelyn": base + "evelyn.jpg",
		"Kali":   base + "kali.jpg",
	})
}

// frontendURL returns FrontendURL with one query parameter added.
func (s *Server) frontendURL(key, value string) string {
	u, err := url.Parse(s.opts.FrontendURL)
	if err != nil || s.opts.FrontendURL == "" {
		return "/?" + url.Values{key: {value}}.Encode()
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}
