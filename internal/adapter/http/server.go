package adapthttp

import (
	"log/slog"
	"net/http"

	"marketplace/internal/app"
)

// CookieOptions controls the session cookie transport.
type CookieOptions struct {
	Name   string
	Domain string
	Secure bool
}

// Options configures a Server.
type Options struct {
	// BaseURL prefixes static file URLs in responses.
	BaseURL string
	// FrontendURL receives the browser after email verification and SSO.
	FrontendURL string
	// StaticDir is served under /static/ when set.
	StaticDir string
	Cookie    CookieOptions
	// SSO enables the /auth/sso routes when non-nil.
	SSO *SSO
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	auth     *app.AuthService
	listings *app.ListingService
	users    *app.UserService
	log      *slog.Logger
	opts     Options
}

// New creates a Server wired to the given application services.
func New(auth *app.AuthService, listings *app.ListingService, users *app.UserService, log *slog.Logger, opts Options) *Server {
	if opts.Cookie.Name == "" {
		opts.Cookie.Name = "snickerdoodle"
	}
	return &Server{auth: auth, listings: listings, users: users, log: log, opts: opts}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	mux.HandleFunc("GET /about", s.handleAbout)

	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("GET /auth/verify-email", s.handleVerifyEmailLink)
	mux.HandleFunc("POST /auth/verify-email", s.handleVerifyEmail)
	mux.HandleFunc("POST /auth/verify", s.handleVerifyEmail)
	mux.HandleFunc("POST /auth/request-verify-token", s.handleRequestVerifyToken)
	mux.HandleFunc("GET /auth/me", s.handleMe)
	mux.HandleFunc("PUT /auth/me", s.handleUpdateProfile)
	mux.HandleFunc("GET /auth/sso/login", s.handleSSOLogin)
	mux.HandleFunc("GET /auth/sso/callback", s.handleSSOCallback)

	mux.HandleFunc("GET /profile", s.handleProfile)
	mux.HandleFunc("PUT /profile", s.handleUpdateProfile)
	mux.HandleFunc("GET /profile/listings", s.handleMyListings)

	mux.HandleFunc("GET /listings", s.handleBrowseListings)
	mux.HandleFunc("GET /listings/me", s.handleMyListings)
	mux.HandleFunc("GET /listings/{id}", s.handleGetListing)
	mux.HandleFunc("POST /listings", s.handleCreateListing)
	mux.HandleFunc("POST /listings/new", s.handleCreateListing)
	mux.HandleFunc("PUT /listings/{id}", s.handleUpdateListing)

	mux.HandleFunc("GET /admin/users", s.handleAdminUsers)
	mux.HandleFunc("GET /admin/users/total", s.handleAdminUsersTotal)
	mux.HandleFunc("GET /admin/users/{id}", s.handleAdminUser)
	mux.HandleFunc("GET /admin/users/{id}/listings", s.handleAdminUserListings)
	mux.HandleFunc("POST /admin/users/{id}/ban", s.handleBan)
	mux.HandleFunc("POST /admin/users/{id}/unban", s.handleUnban)
	mux.HandleFunc("GET /admin/listings", s.handleAdminListings)

	if s.opts.StaticDir != "" {
		mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(s.opts.StaticDir))))
	}

	var h http.Handler = mux
	h = s.sessionMiddleware(h)
	h = withNoCache(h)
	h = withCORS([]string{s.opts.BaseURL, s.opts.FrontendURL}, h)
	return s.loggingMiddleware(h)
}
