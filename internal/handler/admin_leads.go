package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mtmsolution/site/internal/auth"
	"github.com/mtmsolution/site/internal/model"
	"github.com/mtmsolution/site/internal/store"
)

// AdminLeadsHandler is the CRM side of the admin area.
type AdminLeadsHandler struct {
	renderer
	leads     *store.LeadStore
	events    *store.LeadEventStore
	materials *store.MaterialStore
	audit     *store.AuditLogStore
}

func NewAdminLeadsHandler(
	ls *store.LeadStore,
	es *store.LeadEventStore,
	ms *store.MaterialStore,
	al *store.AuditLogStore,
	tmpl map[string]*template.Template,
	baseURL string,
	logger *slog.Logger,
) *AdminLeadsHandler {
	return &AdminLeadsHandler{
		renderer:  renderer{templates: tmpl, baseURL: baseURL, logger: logger},
		leads:     ls,
		events:    es,
		materials: ms,
		audit:     al,
	}
}

func (h *AdminLeadsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	leadCount, err := h.leads.Count()
	if err != nil {
		h.logger.Error("count leads", "error", err)
	}
	materials, err := h.materials.List()
	if err != nil {
		h.logger.Error("list materials", "error", err)
	}

	h.render(w, "admin_dashboard.html", map[string]any{
		"Title":             "Painel — MTM Solution",
		"Admin":             admin,
		"LeadCount":         leadCount,
		"MaterialCount":     len(materials),
		"CanManageAccounts": admin.Role.AtLeast(auth.RoleAdmin),
	})
}

func (h *AdminLeadsHandler) List(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	leads, err := h.leads.List()
	if err != nil {
		h.logger.Error("list leads", "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}
	h.render(w, "admin_leads.html", map[string]any{
		"Title": "Leads — MTM Solution",
		"Admin": admin,
		"Leads": leads,
	})
}

func (h *AdminLeadsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	ld, err := h.leads.GetByID(id)
	if err != nil {
		h.logger.Error("get lead", "id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}
	if ld == nil {
		http.NotFound(w, r)
		return
	}
	events, err := h.events.ListByLead(id)
	if err != nil {
		h.logger.Error("list lead events", "lead_id", id, "error", err)
	}

	h.render(w, "admin_lead_detail.html", map[string]any{
		"Title":  "Lead: " + ld.Name + " — MTM Solution",
		"Admin":  admin,
		"Lead":   ld,
		"Events": events,
	})
}

// Update applies CRM edits from the lead detail form. Status changes get
// their own event row so the history stays reconstructable.
func (h *AdminLeadsHandler) Update(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	ld, err := h.leads.GetByID(id)
	if err != nil {
		h.logger.Error("get lead", "id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}
	if ld == nil {
		http.NotFound(w, r)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Dados inválidos.", http.StatusBadRequest)
		return
	}

	update := store.CRMUpdate{
		CRMStatus:      strings.TrimSpace(r.FormValue("crm_status")),
		Urgency:        strings.TrimSpace(r.FormValue("urgency")),
		NextActionType: strings.TrimSpace(r.FormValue("next_action_type")),
		Notes:          r.FormValue("notes"),
	}
	if tags := strings.TrimSpace(r.FormValue("interest_tags")); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if t := strings.TrimSpace(tag); t != "" {
				update.InterestTags = append(update.InterestTags, t)
			}
		}
	}
	if raw := r.FormValue("next_action_at"); raw != "" {
		at, err := time.Parse("2006-01-02T15:04", raw)
		if err != nil {
			http.Error(w, "Data de próxima ação inválida.", http.StatusBadRequest)
			return
		}
		update.NextActionAt = &at
	}

	if err := h.leads.UpdateCRM(id, update); err != nil {
		h.logger.Error("update lead crm", "id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}

	if update.CRMStatus != "" && update.CRMStatus != ld.CRMStatus {
		if err := h.events.Record(id, store.LeadEventStatusChanged, model.LeadEventMeta{
			FromStatus: ld.CRMStatus,
			ToStatus:   update.CRMStatus,
			Actor:      admin.Username,
		}); err != nil {
			h.logger.Warn("record status change", "lead_id", id, "error", err)
		}
	}

	h.auditWrite(admin, "lead.update", strconv.FormatInt(id, 10), map[string]string{"status": update.CRMStatus})
	http.Redirect(w, r, "/admin/leads/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}

// Delete removes a lead and its stashed form data. Restricted to super
// admins at the routing layer.
func (h *AdminLeadsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := h.leads.DeleteCascade(id); err != nil {
		h.logger.Error("delete lead", "id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}

	h.auditWrite(admin, "lead.delete", strconv.FormatInt(id, 10), nil)
	http.Redirect(w, r, "/admin/leads", http.StatusSeeOther)
}

func (h *AdminLeadsHandler) auditWrite(admin auth.AdminContext, action, entityID string, metadata map[string]string) {
	if err := h.audit.Write(&admin.AdminID, action, "lead", entityID, metadata); err != nil {
		h.logger.Warn("audit write", "action", action, "error", err)
	}
}
