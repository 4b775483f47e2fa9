package adapthttp

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const stateCookie = "oauth_state"

// SSO holds an OpenID Connect relying party.
type SSO struct {
	Provider     *oidc.Provider
	OAuth2Config oauth2.Config
}

// NewSSO discovers issuer and configures the authorization code flow.
func NewSSO(ctx context.Context, issuer, clientID, clientSecret, redirectURL string) (*SSO, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}
	return &SSO{
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  redirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
		},
	}, nil
}

func (s *Server) handleSSOLogin(w http.ResponseWriter, r *http.Request) {
	if s.opts.SSO == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "sso disabled"})
		return
	}
	state := generateState()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})
	http.Redirect(w, r, s.opts.SSO.OAuth2Config.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request) {
	sso := s.opts.SSO
	if sso == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "sso disabled"})
		return
	}

	state, err := r.Cookie(stateCookie)
	if err != nil || r.URL.Query().Get("state") != state.Value {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid state"})
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, MaxAge: -1, Path: "/"})

	tok, err := sso.OAuth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		s.log.WarnContext(r.Context(), "sso token exchange", "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "failed to exchange token"})
		return
	}
	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "no id_token"})
		return
	}
	idToken, err := sso.Provider.Verifier(&oidc.Config{ClientID: sso.OAuth2Config.ClientID}).Verify(r.Context(), rawIDToken)
	if err != nil {
		s.log.WarnContext(r.Context(), "sso id token", "err", err)
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "failed to verify token"})
		return
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified *bool  `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil || claims.Email == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "identity has no email"})
		return
	}
	if claims.EmailVerified != nil && !*claims.EmailVerified {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "identity email is not verified"})
		return
	}

	sess, err := s.auth.LoginWithEmail(r.Context(), claims.Email)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	s.setSessionCookie(w, sess)
	http.Redirect(w, r, s.frontendURL("login", "sso"), http.StatusFound)
}

func generateState() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}
