package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/mtmsolution/site/internal/auth"
	"github.com/mtmsolution/site/internal/store"
)

// AdminCookieName carries the admin session secret, scoped to /admin.
const AdminCookieName = "mtm_admin_session"

// ClearAdminCookie expires the admin session cookie on the client.
func ClearAdminCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AdminCookieName,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireAdmin authenticates the admin session cookie and enforces a minimum
// role. API paths get a bare 401; page requests are redirected to the admin
// login with the original URL preserved.
func RequireAdmin(sessions *store.AdminSessionStore, minRole auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(AdminCookieName)
			if err != nil || cookie.Value == "" {
				denyAdmin(w, r)
				return
			}

			sess, account, err := sessions.GetBySecret(cookie.Value)
			if err != nil {
				slog.Error("admin session lookup failed", "error", err)
				http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
				return
			}
			if sess == nil || account == nil || !account.IsActive {
				ClearAdminCookie(w)
				denyAdmin(w, r)
				return
			}

			role := auth.Role(account.Role)
			if !role.AtLeast(minRole) {
				ClearAdminCookie(w)
				denyAdmin(w, r)
				return
			}

			ctx := auth.WithAdmin(r.Context(), auth.AdminContext{
				AdminID:   account.ID,
				Username:  account.Username,
				Role:      role,
				SessionID: sess.ID,
				CSRFToken: sess.CSRFToken,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdminCSRF validates the csrf_token form field on state-changing admin
// requests. A token mismatch is treated as a hijacked session: the session is
// destroyed, the cookie cleared, and the request rejected.
func RequireAdminCSRF(sessions *store.AdminSessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, ok := auth.AdminFromContext(r.Context())
			if !ok {
				denyAdmin(w, r)
				return
			}

			if r.FormValue("csrf_token") != admin.CSRFToken {
				if err := sessions.Delete(admin.SessionID); err != nil {
					slog.Error("session delete failed", "session_id", admin.SessionID, "error", err)
				}
				ClearAdminCookie(w)
				slog.Warn("csrf token mismatch, session destroyed", "admin", admin.Username)
				http.Error(w, "Sessão inválida. Faça login novamente.", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func denyAdmin(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/admin/api/") {
		http.Error(w, "Não autorizado.", http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/admin/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
}
