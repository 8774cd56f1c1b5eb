package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mtmsolution/site/internal/auth"
	"github.com/mtmsolution/site/internal/lead"
	"github.com/mtmsolution/site/internal/store"
)

// ProfileHandler owns the JSON endpoints the browser calls around login:
// stashing form data before authentication, and reconciling it into the
// visitor's profile afterwards.
type ProfileHandler struct {
	pending  *store.PendingProfileStore
	profiles *store.ProfileStore
	leads    *store.LeadStore
	logger   *slog.Logger
}

func NewProfileHandler(pp *store.PendingProfileStore, ps *store.ProfileStore, ls *store.LeadStore, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{pending: pp, profiles: ps, leads: ls, logger: logger}
}

type pendingRequest struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
}

// PendingCreate stashes contact data submitted before login. The row expires
// on its own if the visitor never completes authentication.
func (h *ProfileHandler) PendingCreate(w http.ResponseWriter, r *http.Request) {
	var req pendingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Dados inválidos.")
		return
	}

	email := store.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		writeJSONError(w, http.StatusUnprocessableEntity, "Informe um email válido.")
		return
	}

	phone := ""
	if strings.TrimSpace(req.Phone) != "" {
		phone = lead.NormalizePhone(req.Phone)
		if phone == "" {
			writeJSONError(w, http.StatusUnprocessableEntity, "Informe um telefone válido com DDD.")
			return
		}
	}

	if _, err := h.pending.Upsert(email, strings.TrimSpace(req.Name), strings.TrimSpace(req.Company), phone); err != nil {
		h.logger.Error("upsert pending profile", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Erro interno. Tente novamente.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type completeRequest struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
}

// Complete merges profile data for the authenticated visitor. Data stashed
// before login takes precedence over whatever the request carries, then the
// stash is consumed.
func (h *ProfileHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if r.Body != nil {
		// An empty body is fine: the stash may carry everything.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	h.reconcile(w, r, req.Name, req.Company, req.Phone)
}

// LoginEvent runs the same reconciliation as Complete but carries no
// overrides. The client fires it once per login so stashed data lands even
// when the visitor skips the profile form.
func (h *ProfileHandler) LoginEvent(w http.ResponseWriter, r *http.Request) {
	h.reconcile(w, r, "", "", "")
}

func (h *ProfileHandler) reconcile(w http.ResponseWriter, r *http.Request, name, company, phone string) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil || claims.Subject == "" {
		writeJSONError(w, http.StatusUnauthorized, "Não autenticado.")
		return
	}
	email := store.NormalizeEmail(claims.Email)

	name = strings.TrimSpace(name)
	company = strings.TrimSpace(company)
	if strings.TrimSpace(phone) != "" {
		phone = lead.NormalizePhone(phone)
		if phone == "" {
			writeJSONError(w, http.StatusUnprocessableEntity, "Informe um telefone válido com DDD.")
			return
		}
	} else {
		phone = ""
	}

	if email != "" {
		stash, err := h.pending.GetValidByEmail(email)
		if err != nil {
			h.logger.Error("get pending profile", "email", email, "error", err)
		}
		if stash != nil {
			if stash.Name != "" {
				name = stash.Name
			}
			if stash.Company != "" {
				company = stash.Company
			}
			if p := lead.NormalizePhone(stash.Phone); p != "" {
				phone = p
			}
		}
	}

	profile, err := h.profiles.Merge(claims.Subject, email, name, company, phone, claims.Provider)
	if err != nil {
		h.logger.Error("merge profile", "subject", claims.Subject, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Erro interno. Tente novamente.")
		return
	}

	if email != "" {
		if err := h.pending.DeleteByEmail(email); err != nil {
			h.logger.Warn("delete pending profile", "email", email, "error", err)
		}
	}

	needLead, err := h.needLead(claims.Subject, email)
	if err != nil {
		h.logger.Error("need-lead check", "subject", claims.Subject, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"needLead": needLead,
		"profile":  profile,
	})
}

func (h *ProfileHandler) needLead(subjectID, email string) (bool, error) {
	ld, err := h.leads.GetBySubjectID(subjectID)
	if err != nil {
		return true, err
	}
	if ld == nil && email != "" {
		ld, err = h.leads.GetByEmail(email)
		if err != nil {
			return true, err
		}
	}
	return ld == nil || !lead.IsComplete(ld), nil
}

// NeedLead reports whether the visitor still has to fill the quick lead form.
func (h *ProfileHandler) NeedLead(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil || claims.Subject == "" {
		writeJSONError(w, http.StatusUnauthorized, "Não autenticado.")
		return
	}

	needLead, err := h.needLead(claims.Subject, store.NormalizeEmail(claims.Email))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "Erro interno. Tente novamente.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"needLead": needLead})
}
