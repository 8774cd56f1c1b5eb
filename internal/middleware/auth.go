package middleware

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/mtmsolution/site/internal/auth"
	"github.com/mtmsolution/site/internal/lead"
	"github.com/mtmsolution/site/internal/model"
	"github.com/mtmsolution/site/internal/store"
	"github.com/mtmsolution/site/internal/token"
)

// AccessCookieName carries the visitor's identity token issued at login.
const AccessCookieName = "mtm_access_token"

// RequireAuth redirects visitors without an access token cookie to the login
// page, preserving the requested URL so login can bounce them back.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(AccessCookieName)
		if err != nil || cookie.Value == "" {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		claims := token.Decode(cookie.Value)
		if claims == nil || claims.Subject == "" {
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// RequireLeadComplete gates protected pages behind a complete lead record.
// Visitors whose lead is missing or incomplete are sent to the quick lead
// form; visitors with a complete lead pass through, with the lead's source
// widened to record the area of interest that brought them here.
func RequireLeadComplete(leads *store.LeadStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := auth.ClaimsFromContext(r.Context())
			if claims == nil {
				http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
				return
			}

			ld, err := lookupLead(leads, claims)
			if err != nil {
				slog.Error("lead lookup failed", "subject", claims.Subject, "error", err)
				http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
				return
			}

			src := lead.InferSource(r.URL.Path)
			if ld == nil || lead.StateOf(ld) != lead.StateComplete {
				redirect := "/lead-rapido?next=" + url.QueryEscape(r.URL.RequestURI()) + "&src=" + url.QueryEscape(src)
				http.Redirect(w, r, redirect, http.StatusSeeOther)
				return
			}

			if widened := lead.ResolveSource(ld.Source, src); widened != ld.Source {
				if err := leads.UpdateSource(ld.SubjectID, widened); err != nil {
					slog.Warn("lead source update failed", "lead_id", ld.ID, "error", err)
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// lookupLead finds the visitor's lead by subject first, falling back to the
// token email for leads created before the visitor's first login.
func lookupLead(leads *store.LeadStore, claims *token.Claims) (*model.Lead, error) {
	ld, err := leads.GetBySubjectID(claims.Subject)
	if err != nil {
		return nil, err
	}
	if ld != nil {
		return ld, nil
	}
	if claims.Email == "" {
		return nil, nil
	}
	return leads.GetByEmail(claims.Email)
}
