package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	adapthttp "marketplace/internal/adapter/http"
	"marketplace/internal/adapter/memory"
	"marketplace/internal/app"
	"marketplace/internal/domain"
	"marketplace/internal/token"
)

const cookieName = "snickerdoodle"

// ---------------------------------------------------------------------------
// Harness: the real services over the in-memory adapter
// ---------------------------------------------------------------------------

type chanMailer struct {
	bodies chan string
}

func (m *chanMailer) Send(_ context.Context, to, subject, body string) error {
	select {
	case m.bodies <- body:
	default:
	}
	return nil
}

type harness struct {
	t      *testing.T
	db     *memory.DB
	h      http.Handler
	mailer *chanMailer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := memory.New()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mailer := &chanMailer{bodies: make(chan string, 8)}

	auth := app.NewAuthService(db.Users(), db.NewSessionRepo(), token.NewSigned("test-secret", "marketplace"), mailer, log,
		app.AuthConfig{AllowedDomain: "ufl.edu", VerifyURL: "http://api.test/auth/verify-email"})
	listings := app.NewListingService(db.Listings(), log)
	users := app.NewUserService(db.Users(), db.Listings(), log)

	srv := adapthttp.New(auth, listings, users, log, adapthttp.Options{
		BaseURL:     "http://api.test",
		FrontendURL: "http://app.test",
	})
	return &harness{t: t, db: db, h: srv.Handler(), mailer: mailer}
}

func (h *harness) seedUser(email, password string, admin bool) *domain.User {
	h.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		h.t.Fatal(err)
	}
	u, err := h.db.Users().Create(context.Background(), &domain.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    strings.Split(email, "@")[0],
		IsActive:     true,
		IsVerified:   true,
		IsSuperuser:  admin,
	})
	if err != nil {
		h.t.Fatal(err)
	}
	return u
}

func (h *harness) do(method, path string, body any, session string) *httptest.ResponseRecorder {
	h.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			h.t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: session})
	}
	w := httptest.NewRecorder()
	h.h.ServeHTTP(w, req)
	return w
}

func (h *harness) login(email, password string) *httptest.ResponseRecorder {
	h.t.Helper()
	form := url.Values{"username": {email}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.h.ServeHTTP(w, req)
	return w
}

func (h *harness) session(email, password string) string {
	h.t.Helper()
	w := h.login(email, password)
	if w.Code != http.StatusNoContent {
		h.t.Fatalf("login %s: status %d body %s", email, w.Code, w.Body.String())
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName {
			return c.Value
		}
	}
	h.t.Fatal("no session cookie")
	return ""
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	d, _ := decode(t, w)["detail"].(string)
	return d
}

func items(t *testing.T, w *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	raw, _ := decode(t, w)["items"].([]any)
	out := make([]map[string]any, len(raw))
	for i, it := range raw {
		out[i] = it.(map[string]any)
	}
	return out
}

// ---------------------------------------------------------------------------
// Auth flow
// ---------------------------------------------------------------------------

var tokenRe = regexp.MustCompile(`token=(\S+)`)

func TestAuth_RegisterVerifyLogin(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/auth/register", map[string]string{"email": "foo@gmail.com", "password": "password123"}, "")
	expectStatus(t, w, http.StatusBadRequest)
	if !strings.Contains(detail(t, w), "must be institutional email") {
		t.Errorf("unexpected detail %q", detail(t, w))
	}

	w = h.do(http.MethodPost, "/auth/register", map[string]string{
		"email": "Albert@UFL.edu", "password": "password123", "first_name": "Albert",
	}, "")
	expectStatus(t, w, http.StatusCreated)
	body := decode(t, w)
	if body["email"] != "albert@ufl.edu" || body["is_verified"] != false {
		t.Errorf("unexpected user %v", body)
	}
	if body["profile_picture_url"] != "http://api.test/static/profiles/default.png" {
		t.Errorf("unexpected picture url %v", body["profile_picture_url"])
	}

	w = h.login("albert@ufl.edu", "password123")
	expectStatus(t, w, http.StatusBadRequest)
	if detail(t, w) != "email not verified" {
		t.Errorf("unexpected detail %q", detail(t, w))
	}

	var mail string
	select {
	case mail = <-h.mailer.bodies:
	case <-time.After(2 * time.Second):
		t.Fatal("verification email was not sent")
	}
	m := tokenRe.FindStringSubmatch(mail)
	if m == nil {
		t.Fatalf("no token in %q", mail)
	}
	tok, err := url.QueryUnescape(m[1])
	if err != nil {
		t.Fatal(err)
	}

	w = h.do(http.MethodGet, "/auth/verify-email?token="+url.QueryEscape(tok), nil, "")
	expectStatus(t, w, http.StatusFound)
	if loc := w.Header().Get("Location"); loc != "http://app.test?verified=True" {
		t.Errorf("unexpected redirect %q", loc)
	}

	w = h.do(http.MethodPost, "/auth/verify-email", map[string]string{"token": tok}, "")
	expectStatus(t, w, http.StatusBadRequest)
	if detail(t, w) != "user is already verified" {
		t.Errorf("unexpected detail %q", detail(t, w))
	}

	sess := h.session("albert@ufl.edu", "password123")
	w = h.do(http.MethodGet, "/auth/me", nil, sess)
	expectStatus(t, w, http.StatusOK)
	if decode(t, w)["is_active"] != true {
		t.Error("expected active user after verification")
	}
}

func TestAuth_LoginCookie(t *testing.T) {
	h := newHarness(t)
	h.seedUser("a@ufl.edu", "password123", false)

	w := h.login("a@ufl.edu", "wrong-password")
	expectStatus(t, w, http.StatusBadRequest)

	w = h.login("a@ufl.edu", "password123")
	expectStatus(t, w, http.StatusNoContent)
	var c *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == cookieName {
			c = ck
		}
	}
	if c == nil {
		t.Fatal("expected session cookie")
	}
	if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode || c.MaxAge != 3600 {
		t.Errorf("unexpected cookie attributes %+v", c)
	}
}

func TestAuth_VerifyInvalidToken(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/auth/verify-email?token=garbage", nil, "")
	expectStatus(t, w, http.StatusBadRequest)
}

func TestAuth_RequestVerifyTokenAlwaysAccepted(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodPost, "/auth/request-verify-token", map[string]string{"email": "ghost@ufl.edu"}, "")
	expectStatus(t, w, http.StatusAccepted)
}

func TestAuth_Logout(t *testing.T) {
	h := newHarness(t)
	h.seedUser("a@ufl.edu", "password123", false)
	sess := h.session("a@ufl.edu", "password123")

	expectStatus(t, h.do(http.MethodGet, "/auth/me", nil, sess), http.StatusOK)
	expectStatus(t, h.do(http.MethodPost, "/auth/logout", nil, sess), http.StatusNoContent)
	expectStatus(t, h.do(http.MethodGet, "/auth/me", nil, sess), http.StatusUnauthorized)
	expectStatus(t, h.do(http.MethodGet, "/auth/me", nil, "not-a-session"), http.StatusUnauthorized)

	w := h.do(http.MethodPost, "/auth/logout", nil, sess)
	expectStatus(t, w, http.StatusNoContent)
	var cleared bool
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected stale session cookie to be cleared")
	}
	expectStatus(t, h.do(http.MethodPost, "/auth/logout", nil, ""), http.StatusUnauthorized)
}

// ---------------------------------------------------------------------------
// Listings
// ---------------------------------------------------------------------------

func (h *harness) createListing(sess string, body map[string]any) map[string]any {
	h.t.Helper()
	w := h.do(http.MethodPost, "/listings/new", body, sess)
	expectStatus(h.t, w, http.StatusCreated)
	return decode(h.t, w)
}

func TestListings_BrowseFilterSort(t *testing.T) {
	h := newHarness(t)
	h.seedUser("seller@ufl.edu", "password123", false)
	sess := h.session("seller@ufl.edu", "password123")

	h.createListing(sess, map[string]any{"title": "Desk", "price_cents": 4000, "category": "FURNITURE"})
	h.createListing(sess, map[string]any{"title": "Chair", "price_cents": 1500, "category": "furniture", "condition": "VERY_GOOD"})
	h.createListing(sess, map[string]any{"title": "Lamp", "price_cents": 900, "category": "furniture"})
	h.createListing(sess, map[string]any{"title": "Calculus", "price_cents": 2500, "category": "textbooks"})
	h.createListing(sess, map[string]any{"title": "Old couch", "price_cents": 100, "category": "furniture", "status": "draft"})

	w := h.do(http.MethodGet, "/listings?category=furniture&sort_by=price&order=asc&card_num=2", nil, "")
	expectStatus(t, w, http.StatusOK)
	page := decode(t, w)
	if page["total"] != float64(3) || page["page_num"] != float64(1) || page["card_num"] != float64(2) {
		t.Errorf("unexpected page metadata %v", page)
	}
	got := items(t, w)
	if len(got) != 2 || got[0]["title"] != "Lamp" || got[1]["title"] != "Chair" {
		t.Fatalf("unexpected items %v", got)
	}
	if got[1]["condition"] != "very good" {
		t.Errorf("expected canonical condition, got %v", got[1]["condition"])
	}
	seller, _ := got[0]["seller"].(map[string]any)
	if seller["email"] != "seller@ufl.edu" {
		t.Errorf("expected seller summary, got %v", got[0]["seller"])
	}
	if got[0]["image_url"] != "http://api.test/static/listings/placeholder.png" {
		t.Errorf("unexpected image url %v", got[0]["image_url"])
	}

	w = h.do(http.MethodGet, "/listings?category=furniture&category=textbooks&min_price=1000&keyword=CALC", nil, "")
	expectStatus(t, w, http.StatusOK)
	if got := items(t, w); len(got) != 1 || got[0]["title"] != "Calculus" {
		t.Errorf("unexpected filtered items %v", got)
	}

	w = h.do(http.MethodGet, "/listings?category=furniture&page_num=2&card_num=2&sort_by=price&order=asc", nil, "")
	expectStatus(t, w, http.StatusOK)
	if got := items(t, w); len(got) != 1 || got[0]["title"] != "Desk" {
		t.Errorf("unexpected second page %v", got)
	}
}

func TestListings_RejectsBadParameters(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		query string
		want  string
	}{
		{"sort_by=bogus", "bogus"},
		{"order=sideways", "sideways"},
		{"condition=broken", "broken"},
		{"page_num=abc", "page_num"},
		{"card_num=500", "card_num"},
		{"min_price=-1", "min_price"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := h.do(http.MethodGet, "/listings?"+tt.query, nil, "")
			expectStatus(t, w, http.StatusBadRequest)
			if !strings.Contains(detail(t, w), tt.want) {
				t.Errorf("detail %q does not name %q", detail(t, w), tt.want)
			}
		})
	}
}

func TestListings_GetAndUpdate(t *testing.T) {
	h := newHarness(t)
	h.seedUser("owner@ufl.edu", "password123", false)
	h.seedUser("other@ufl.edu", "password123", false)
	owner := h.session("owner@ufl.edu", "password123")
	other := h.session("other@ufl.edu", "password123")

	created := h.createListing(owner, map[string]any{"title": "Desk", "price_cents": 4000, "category": "furniture"})
	if created["status"] != "active" {
		t.Errorf("expected default status active, got %v", created["status"])
	}

	w := h.do(http.MethodGet, "/listings/1", nil, "")
	expectStatus(t, w, http.StatusOK)
	expectStatus(t, h.do(http.MethodGet, "/listings/999", nil, ""), http.StatusNotFound)
	expectStatus(t, h.do(http.MethodGet, "/listings/abc", nil, ""), http.StatusBadRequest)

	expectStatus(t, h.do(http.MethodPut, "/listings/1", map[string]any{"title": "Mine now"}, other), http.StatusForbidden)
	expectStatus(t, h.do(http.MethodPut, "/listings/1", map[string]any{"title": "x"}, ""), http.StatusUnauthorized)

	w = h.do(http.MethodPut, "/listings/1", map[string]any{"price_cents": 3500, "category": nil}, owner)
	expectStatus(t, w, http.StatusOK)
	body := decode(t, w)
	if body["price_cents"] != float64(3500) || body["category"] != nil || body["title"] != "Desk" {
		t.Errorf("unexpected updated listing %v", body)
	}

	w = h.do(http.MethodPut, "/listings/1", map[string]any{"title": "Oak desk", "seller_id": "nope", "id": 99}, owner)
	expectStatus(t, w, http.StatusOK)
	body = decode(t, w)
	if body["title"] != "Oak desk" || body["id"] != float64(1) || body["price_cents"] != float64(3500) {
		t.Errorf("unknown keys must be ignored, got %v", body)
	}

	w = h.do(http.MethodGet, "/listings/me", nil, owner)
	expectStatus(t, w, http.StatusOK)
	if got := items(t, w); len(got) != 1 || got[0]["seller"] != nil {
		t.Errorf("expected one listing without seller join, got %v", got)
	}
	expectStatus(t, h.do(http.MethodGet, "/listings/me", nil, ""), http.StatusUnauthorized)
}

// ---------------------------------------------------------------------------
// Profile
// ---------------------------------------------------------------------------

func TestProfile_Update(t *testing.T) {
	h := newHarness(t)
	h.seedUser("a@ufl.edu", "password123", false)
	sess := h.session("a@ufl.edu", "password123")

	w := h.do(http.MethodPut, "/profile", map[string]any{"phone_number": "352-555-0100"}, sess)
	expectStatus(t, w, http.StatusOK)
	body := decode(t, w)
	if body["phone_number"] != "352-555-0100" || body["first_name"] != "a" {
		t.Errorf("unexpected profile %v", body)
	}

	w = h.do(http.MethodPut, "/profile", map[string]any{"first_name": "Zed", "is_superuser": true, "email": "x@ufl.edu"}, sess)
	expectStatus(t, w, http.StatusOK)
	body = decode(t, w)
	if body["first_name"] != "Zed" || body["is_superuser"] != false || body["email"] != "a@ufl.edu" || body["phone_number"] != "352-555-0100" {
		t.Errorf("unknown keys must be ignored, got %v", body)
	}

	w = h.do(http.MethodPut, "/auth/me", map[string]any{"last_name": "Gator"}, sess)
	expectStatus(t, w, http.StatusOK)
	body = decode(t, w)
	if body["last_name"] != "Gator" || body["first_name"] != "Zed" {
		t.Errorf("unexpected profile after PUT /auth/me %v", body)
	}

	w = h.do(http.MethodGet, "/profile/listings", nil, sess)
	expectStatus(t, w, http.StatusOK)
	if decode(t, w)["total"] != float64(0) {
		t.Error("expected no listings")
	}
}

// ---------------------------------------------------------------------------
// Admin
// ---------------------------------------------------------------------------

func TestAdmin_AccessControl(t *testing.T) {
	h := newHarness(t)
	h.seedUser("user@ufl.edu", "password123", false)
	sess := h.session("user@ufl.edu", "password123")

	expectStatus(t, h.do(http.MethodGet, "/admin/users", nil, ""), http.StatusUnauthorized)
	expectStatus(t, h.do(http.MethodGet, "/admin/users", nil, sess), http.StatusForbidden)
	expectStatus(t, h.do(http.MethodGet, "/admin/listings", nil, sess), http.StatusForbidden)
	expectStatus(t, h.do(http.MethodGet, "/admin/users/total", nil, sess), http.StatusForbidden)
}

func TestAdmin_BanCascade(t *testing.T) {
	h := newHarness(t)
	admin := h.seedUser("admin@ufl.edu", "password123", true)
	other := h.seedUser("admin2@ufl.edu", "password123", true)
	seller := h.seedUser("seller@ufl.edu", "password123", false)
	adminSess := h.session("admin@ufl.edu", "password123")
	sellerSess := h.session("seller@ufl.edu", "password123")

	h.createListing(sellerSess, map[string]any{"title": "Desk", "price_cents": 4000})
	h.createListing(sellerSess, map[string]any{"title": "Lamp", "price_cents": 900})

	w := h.do(http.MethodPost, "/admin/users/"+admin.ID.String()+"/ban", nil, adminSess)
	expectStatus(t, w, http.StatusBadRequest)
	if detail(t, w) != "administrators cannot ban themselves" {
		t.Errorf("unexpected detail %q", detail(t, w))
	}
	w = h.do(http.MethodPost, "/admin/users/"+other.ID.String()+"/ban", nil, adminSess)
	expectStatus(t, w, http.StatusBadRequest)
	if detail(t, w) != "cannot ban other administrators" {
		t.Errorf("unexpected detail %q", detail(t, w))
	}
	expectStatus(t, h.do(http.MethodPost, "/admin/users/"+uuid.NewString()+"/ban", nil, adminSess), http.StatusNotFound)
	expectStatus(t, h.do(http.MethodPost, "/admin/users/not-a-uuid/ban", nil, adminSess), http.StatusBadRequest)

	w = h.do(http.MethodPost, "/admin/users/"+seller.ID.String()+"/ban", nil, adminSess)
	expectStatus(t, w, http.StatusOK)
	if decode(t, w)["is_banned"] != true {
		t.Error("expected banned user")
	}

	w = h.do(http.MethodGet, "/listings", nil, "")
	if decode(t, w)["total"] != float64(0) {
		t.Error("banned seller's listings must leave the public directory")
	}
	w = h.do(http.MethodGet, "/admin/listings?status=inactive", nil, adminSess)
	expectStatus(t, w, http.StatusOK)
	if decode(t, w)["total"] != float64(2) {
		t.Errorf("expected both listings inactive, got %s", w.Body.String())
	}

	w = h.do(http.MethodPost, "/listings/new", map[string]any{"title": "Sneaky", "price_cents": 1}, sellerSess)
	expectStatus(t, w, http.StatusForbidden)

	w = h.do(http.MethodGet, "/admin/users?is_banned=yes", nil, adminSess)
	expectStatus(t, w, http.StatusOK)
	if got := items(t, w); len(got) != 1 || got[0]["email"] != "seller@ufl.edu" {
		t.Errorf("unexpected banned users %v", got)
	}
	expectStatus(t, h.do(http.MethodGet, "/admin/users?is_banned=maybe", nil, adminSess), http.StatusBadRequest)

	w = h.do(http.MethodGet, "/admin/users/"+seller.ID.String()+"/listings", nil, adminSess)
	expectStatus(t, w, http.StatusOK)
	if decode(t, w)["total"] != float64(2) {
		t.Errorf("unexpected user listings %s", w.Body.String())
	}

	w = h.do(http.MethodPost, "/admin/users/"+seller.ID.String()+"/unban", nil, adminSess)
	expectStatus(t, w, http.StatusOK)
	w = h.do(http.MethodGet, "/listings", nil, "")
	if decode(t, w)["total"] != float64(2) {
		t.Error("unban must restore listings")
	}

	w = h.do(http.MethodGet, "/admin/users/total", nil, adminSess)
	expectStatus(t, w, http.StatusOK)
	if decode(t, w)["total"] != float64(3) {
		t.Errorf("unexpected total %s", w.Body.String())
	}
}
