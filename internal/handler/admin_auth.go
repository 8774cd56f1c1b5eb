package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mtmsolution/site/internal/email"
	"github.com/mtmsolution/site/internal/middleware"
	"github.com/mtmsolution/site/internal/store"
)

const (
	adminSessionMaxAge = 7 * 24 * 60 * 60

	loginAttemptLimit  = 10
	loginAttemptWindow = 15 * time.Minute
)

// AdminAuthHandler owns admin login, logout and the first-run bootstrap.
type AdminAuthHandler struct {
	renderer
	accounts    *store.AdminAccountStore
	sessions    *store.AdminSessionStore
	audit       *store.AuditLogStore
	emailClient *email.Client
	limiter     middleware.RateLimiter
}

func NewAdminAuthHandler(
	as *store.AdminAccountStore,
	ss *store.AdminSessionStore,
	al *store.AuditLogStore,
	ec *email.Client,
	limiter middleware.RateLimiter,
	tmpl map[string]*template.Template,
	baseURL string,
	logger *slog.Logger,
) *AdminAuthHandler {
	return &AdminAuthHandler{
		renderer:    renderer{templates: tmpl, baseURL: baseURL, logger: logger},
		accounts:    as,
		sessions:    ss,
		audit:       al,
		emailClient: ec,
		limiter:     limiter,
	}
}

func (h *AdminAuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "admin_login.html", map[string]any{
		"Title": "Admin — MTM Solution",
		"Next":  safeRedirect(r.URL.Query().Get("next"), "/admin"),
	})
}

// Login authenticates username and password. Failures are answered with one
// generic message regardless of which half was wrong, and repeated failures
// lock the account.
func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := middleware.RealIP(r)
	if _, ok := h.limiter.Consume("admin-login:"+ip, loginAttemptLimit, loginAttemptWindow); !ok {
		http.Error(w, "Muitas tentativas. Tente novamente em alguns minutos.", http.StatusTooManyRequests)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Dados inválidos.", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	next := safeRedirect(r.FormValue("next"), "/admin")

	fail := func(msg string) {
		h.render(w, "admin_login.html", map[string]any{
			"Title":    "Admin — MTM Solution",
			"Next":     next,
			"Username": username,
			"Error":    msg,
		})
	}

	account, err := h.accounts.GetByUsername(username)
	if err != nil {
		h.logger.Error("get admin account", "error", err)
		fail("Erro interno. Tente novamente.")
		return
	}
	if account == nil || !account.IsActive {
		// Burn a bcrypt comparison so unknown usernames take as long as
		// wrong passwords.
		bcrypt.CompareHashAndPassword([]byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"), []byte(password))
		fail("Credenciais inválidas.")
		return
	}

	if account.LockedUntil != nil && account.LockedUntil.After(time.Now()) {
		fail("Conta temporariamente bloqueada. Tente novamente mais tarde.")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		count, locked, err := h.accounts.RecordFailure(account.ID)
		if err != nil {
			h.logger.Error("record login failure", "admin_id", account.ID, "error", err)
		}
		h.auditWrite(nil, "admin.login_failed", "admin_account", strconv.FormatInt(account.ID, 10), map[string]string{
			"ip": ip, "failures": strconv.Itoa(count),
		})
		if locked {
			h.auditWrite(nil, "admin.locked", "admin_account", strconv.FormatInt(account.ID, 10), map[string]string{"ip": ip})
			if h.emailClient != nil && h.emailClient.Configured() {
				if err := h.emailClient.SendLockoutNotification(account.Username, ip); err != nil {
					h.logger.Error("lockout notification", "admin_id", account.ID, "error", err)
				}
			}
			fail("Conta temporariamente bloqueada. Tente novamente mais tarde.")
			return
		}
		fail("Credenciais inválidas.")
		return
	}

	if err := h.accounts.ResetFailures(account.ID); err != nil {
		h.logger.Warn("reset login failures", "admin_id", account.ID, "error", err)
	}
	h.limiter.Reset("admin-login:" + ip)

	secret, _, err := h.sessions.Create(account.ID)
	if err != nil {
		h.logger.Error("create admin session", "admin_id", account.ID, "error", err)
		fail("Erro interno. Tente novamente.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    secret,
		Path:     "/admin",
		MaxAge:   adminSessionMaxAge,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	h.auditWrite(&account.ID, "admin.login", "admin_account", strconv.FormatInt(account.ID, 10), map[string]string{"ip": ip})
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// Logout destroys the current session.
func (h *AdminAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.AdminCookieName); err == nil && cookie.Value != "" {
		sess, account, err := h.sessions.GetBySecret(cookie.Value)
		if err == nil && sess != nil {
			if err := h.sessions.Delete(sess.ID); err != nil {
				h.logger.Error("delete admin session", "session_id", sess.ID, "error", err)
			}
			if account != nil {
				h.auditWrite(&account.ID, "admin.logout", "admin_account", strconv.FormatInt(account.ID, 10), nil)
			}
		}
	}

	middleware.ClearAdminCookie(w)
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

func (h *AdminAuthHandler) auditWrite(actorID *int64, action, entityType, entityID string, metadata map[string]string) {
	if err := h.audit.Write(actorID, action, entityType, entityID, metadata); err != nil {
		h.logger.Warn("audit write", "action", action, "error", err)
	}
}

// Bootstrap creates the first super admin from the environment when the
// accounts table is empty. Weak or missing passwords leave the admin area
// unreachable rather than weakly protected.
func Bootstrap(accounts *store.AdminAccountStore, username, password string, logger *slog.Logger) error {
	count, err := accounts.Count()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if username == "" || len(password) < 12 {
		logger.Warn("no admin accounts and no valid bootstrap credentials, admin area disabled")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := accounts.Create(username, "", string(hash), "super_admin"); err != nil {
		return err
	}
	logger.Info("bootstrap admin account created", "username", username)
	return nil
}
