package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/mtmsolution/site/internal/auth"
	"github.com/mtmsolution/site/internal/model"
	"github.com/mtmsolution/site/internal/store"
)

func setupAdmin(t *testing.T, role string) (*store.AdminAccountStore, *store.AdminSessionStore, *model.AdminAccount, string) {
	t.Helper()
	db := setupTestDB(t)
	accounts := store.NewAdminAccountStore(db)
	sessions := store.NewAdminSessionStore(db)

	account, err := accounts.Create("carla", "carla@mtmsolution.com.br", "hash", role)
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	secret, _, err := sessions.Create(account.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return accounts, sessions, account, secret
}

func TestRequireAdminNoCookieRedirects(t *testing.T) {
	_, sessions, _, _ := setupAdmin(t, "admin")
	handler := RequireAdmin(sessions, auth.RoleReader)(okHandler())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/admin/leads", nil)
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/admin/login?next=%2Fadmin%2Fleads" {
		t.Errorf("Location = %q", loc)
	}
}

func TestRequireAdminNoCookieAPIPath(t *testing.T) {
	_, sessions, _, _ := setupAdmin(t, "admin")
	handler := RequireAdmin(sessions, auth.RoleReader)(okHandler())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/admin/api/uploads", nil)
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireAdminValidSession(t *testing.T) {
	_, sessions, account, secret := setupAdmin(t, "editor")

	var got auth.AdminContext
	handler := RequireAdmin(sessions, auth.RoleReader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = auth.AdminFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/admin", nil)
	r.AddCookie(&http.Cookie{Name: AdminCookieName, Value: secret})
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got.AdminID != account.ID || got.Username != "carla" || got.Role != auth.RoleEditor {
		t.Errorf("unexpected admin context: %+v", got)
	}
	if got.CSRFToken == "" {
		t.Error("csrf token should be populated")
	}
}

func TestRequireAdminInsufficientRole(t *testing.T) {
	_, sessions, _, secret := setupAdmin(t, "reader")
	handler := RequireAdmin(sessions, auth.RoleAdmin)(okHandler())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/admin/accounts", nil)
	r.AddCookie(&http.Cookie{Name: AdminCookieName, Value: secret})
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/admin/login?next=%2Fadmin%2Faccounts" {
		t.Errorf("Location = %q", loc)
	}
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == AdminCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("admin cookie should be cleared")
	}
}

func TestRequireAdminInactiveAccount(t *testing.T) {
	accounts, sessions, account, secret := setupAdmin(t, "admin")
	if err := accounts.SetActive(account.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	handler := RequireAdmin(sessions, auth.RoleReader)(okHandler())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/admin", nil)
	r.AddCookie(&http.Cookie{Name: AdminCookieName, Value: secret})
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", w.Code)
	}
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == AdminCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("admin cookie should be cleared")
	}
}

func TestRequireAdminUnknownSecret(t *testing.T) {
	_, sessions, _, _ := setupAdmin(t, "admin")
	handler := RequireAdmin(sessions, auth.RoleReader)(okHandler())

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/admin", nil)
	r.AddCookie(&http.Cookie{Name: AdminCookieName, Value: "bogus"})
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want 303", w.Code)
	}
}

func postForm(t *testing.T, handler http.Handler, secret string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/admin/leads/1", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.AddCookie(&http.Cookie{Name: AdminCookieName, Value: secret})
	handler.ServeHTTP(w, r)
	return w
}

func TestRequireAdminCSRFValid(t *testing.T) {
	_, sessions, _, secret := setupAdmin(t, "admin")

	sess, _, err := sessions.GetBySecret(secret)
	if err != nil || sess == nil {
		t.Fatalf("get session: %v", err)
	}

	handler := RequireAdmin(sessions, auth.RoleReader)(RequireAdminCSRF(sessions)(okHandler()))
	w := postForm(t, handler, secret, url.Values{"csrf_token": {sess.CSRFToken}})

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRequireAdminCSRFMismatchDestroysSession(t *testing.T) {
	_, sessions, _, secret := setupAdmin(t, "admin")

	handler := RequireAdmin(sessions, auth.RoleReader)(RequireAdminCSRF(sessions)(okHandler()))
	w := postForm(t, handler, secret, url.Values{"csrf_token": {"forged"}})

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}

	// The session must be gone; a follow-up request with the same cookie
	// bounces to login.
	sess, _, err := sessions.GetBySecret(secret)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if sess != nil {
		t.Error("session should be destroyed after csrf mismatch")
	}
}
