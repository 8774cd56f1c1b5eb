package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/mtmsolution/site/internal/auth"
	"github.com/mtmsolution/site/internal/store"
)

func newAdminAccountsFixture(t *testing.T) (*AdminAccountsHandler, *store.AdminAccountStore, *store.AdminSessionStore) {
	t.Helper()
	db := setupTestDB(t)
	accounts := store.NewAdminAccountStore(db)
	sessions := store.NewAdminSessionStore(db)
	audit := store.NewAuditLogStore(db)
	tmpl := testTemplates(t, "admin_accounts.html")
	h := NewAdminAccountsHandler(accounts, sessions, audit, tmpl, "http://localhost:8080", discardLogger())

	// The acting admin occupies id 1, matching the context in withAdmin.
	if _, err := accounts.Create("carla", "", "hash", "admin"); err != nil {
		t.Fatalf("create acting admin: %v", err)
	}
	return h, accounts, sessions
}

func createAccountRequest(form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/admin/accounts", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestAdminAccountCreate(t *testing.T) {
	h, accounts, _ := newAdminAccountsFixture(t)

	form := url.Values{
		"username": {"joao"},
		"password": {"a-long-enough-password"},
		"role":     {"editor"},
	}
	w := do(h.Create, withAdmin(createAccountRequest(form), auth.RoleAdmin))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	account, err := accounts.GetByUsername("joao")
	if err != nil || account == nil {
		t.Fatalf("account missing: %v", err)
	}
	if account.Role != "editor" {
		t.Errorf("role = %q", account.Role)
	}
}

func TestAdminAccountCreateCannotEscalate(t *testing.T) {
	h, accounts, _ := newAdminAccountsFixture(t)

	form := url.Values{
		"username": {"joao"},
		"password": {"a-long-enough-password"},
		"role":     {"super_admin"},
	}
	w := do(h.Create, withAdmin(createAccountRequest(form), auth.RoleAdmin))

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "acima do seu") {
		t.Fatalf("escalation should be rejected: %d %s", w.Code, w.Body.String())
	}
	if account, _ := accounts.GetByUsername("joao"); account != nil {
		t.Error("account must not be created")
	}
}

func TestAdminAccountCreateWeakPassword(t *testing.T) {
	h, accounts, _ := newAdminAccountsFixture(t)

	form := url.Values{
		"username": {"joao"},
		"password": {"short"},
		"role":     {"reader"},
	}
	w := do(h.Create, withAdmin(createAccountRequest(form), auth.RoleAdmin))

	if !strings.Contains(w.Body.String(), "12 caracteres") {
		t.Errorf("body = %s", w.Body.String())
	}
	if account, _ := accounts.GetByUsername("joao"); account != nil {
		t.Error("account must not be created")
	}
}

func TestAdminAccountDeactivateKillsSessions(t *testing.T) {
	h, accounts, sessions := newAdminAccountsFixture(t)

	target, err := accounts.Create("joao", "", "hash", "reader")
	if err != nil {
		t.Fatalf("create target: %v", err)
	}
	secret, _, err := sessions.Create(target.ID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	form := url.Values{"active": {"false"}}
	r := httptest.NewRequest(http.MethodPost, "/admin/accounts/2/active", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.SetPathValue("id", "2")
	w := do(h.SetActive, withAdmin(r, auth.RoleAdmin))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", w.Code)
	}
	account, _ := accounts.GetByID(target.ID)
	if account.IsActive {
		t.Error("account should be inactive")
	}
	if sess, _, _ := sessions.GetBySecret(secret); sess != nil {
		t.Error("sessions of a deactivated account must be destroyed")
	}
}

func TestAdminAccountCannotDeactivateSelf(t *testing.T) {
	h, _, _ := newAdminAccountsFixture(t)

	form := url.Values{"active": {"false"}}
	r := httptest.NewRequest(http.MethodPost, "/admin/accounts/1/active", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.SetPathValue("id", "1")
	w := do(h.SetActive, withAdmin(r, auth.RoleAdmin))

	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestAdminAccountDelete(t *testing.T) {
	h, accounts, _ := newAdminAccountsFixture(t)

	target, err := accounts.Create("joao", "", "hash", "reader")
	if err != nil {
		t.Fatalf("create target: %v", err)
	}

	r := httptest.NewRequest(http.MethodPost, "/admin/accounts/2/delete", nil)
	r.SetPathValue("id", "2")
	w := do(h.Delete, withAdmin(r, auth.RoleSuperAdmin))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", w.Code)
	}
	if account, _ := accounts.GetByID(target.ID); account != nil {
		t.Error("account should be deleted")
	}
}
