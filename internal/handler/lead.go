package handler

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mtmsolution/site/internal/auth"
	"github.com/mtmsolution/site/internal/email"
	"github.com/mtmsolution/site/internal/lead"
	"github.com/mtmsolution/site/internal/model"
	"github.com/mtmsolution/site/internal/store"
	"github.com/mtmsolution/site/internal/webhook"
)

// LeadHandler owns the quick lead form and the qualifier submission. Both
// feed the CRM; neither blocks the visitor on downstream failures.
type LeadHandler struct {
	renderer
	leads       *store.LeadStore
	events      *store.LeadEventStore
	webhook     *webhook.Client
	emailClient *email.Client
}

func NewLeadHandler(
	ls *store.LeadStore,
	es *store.LeadEventStore,
	wh *webhook.Client,
	ec *email.Client,
	tmpl map[string]*template.Template,
	baseURL string,
	logger *slog.Logger,
) *LeadHandler {
	return &LeadHandler{
		renderer:    renderer{templates: tmpl, baseURL: baseURL, logger: logger},
		leads:       ls,
		events:      es,
		webhook:     wh,
		emailClient: ec,
	}
}

// QuickLeadPage renders the short contact form shown to authenticated
// visitors whose lead record is still incomplete.
func (h *LeadHandler) QuickLeadPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "lead_rapido.html", map[string]any{
		"Title": "Complete seu cadastro — MTM Solution",
		"Next":  safeRedirect(r.URL.Query().Get("next"), "/materiais"),
		"Src":   r.URL.Query().Get("src"),
	})
}

// QuickLeadSubmit validates the form and upserts the lead. Validation errors
// re-render the form with the submitted values preserved.
func (h *LeadHandler) QuickLeadSubmit(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil || claims.Subject == "" {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Dados inválidos.", http.StatusBadRequest)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	company := strings.TrimSpace(r.FormValue("company"))
	rawPhone := strings.TrimSpace(r.FormValue("phone"))
	next := safeRedirect(r.FormValue("next"), "/materiais")
	src := r.FormValue("src")

	data := map[string]any{
		"Title":   "Complete seu cadastro — MTM Solution",
		"Next":    next,
		"Src":     src,
		"Name":    name,
		"Company": company,
		"Phone":   rawPhone,
	}

	switch {
	case name == "":
		data["Error"] = "Informe seu nome."
	case company == "":
		data["Error"] = "Informe sua empresa."
	case rawPhone == "":
		data["Error"] = "Informe seu telefone com DDD."
	}
	if data["Error"] != nil {
		h.render(w, "lead_rapido.html", data)
		return
	}

	phone := lead.NormalizePhone(rawPhone)
	if phone == "" {
		data["Error"] = "Telefone inválido. Use o formato (11) 98765-4321."
		h.render(w, "lead_rapido.html", data)
		return
	}

	existing, err := h.lookup(claims.Subject, store.NormalizeEmail(claims.Email))
	if err != nil {
		h.logger.Error("lead lookup", "subject", claims.Subject, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}

	current := ""
	if existing != nil {
		current = existing.Source
	}

	ld, err := h.leads.Upsert(store.UpsertParams{
		SubjectID: claims.Subject,
		Email:     store.NormalizeEmail(claims.Email),
		Name:      name,
		Company:   company,
		PhoneE164: phone,
		Provider:  claims.Provider,
		Source:    lead.ResolveSource(current, src),
	})
	if errors.Is(err, store.ErrPhoneConflict) {
		data["Error"] = "Este telefone já está cadastrado para outro email. Entre em contato conosco."
		h.render(w, "lead_rapido.html", data)
		return
	}
	if err != nil {
		h.logger.Error("upsert lead", "subject", claims.Subject, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}

	created := existing == nil
	eventType := store.LeadEventUpdated
	if created {
		eventType = store.LeadEventCreated
	}
	if err := h.events.Record(ld.ID, eventType, model.LeadEventMeta{Source: ld.Source}); err != nil {
		h.logger.Warn("record lead event", "lead_id", ld.ID, "error", err)
	}

	h.notify(ld, created)

	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *LeadHandler) lookup(subjectID, email string) (*model.Lead, error) {
	ld, err := h.leads.GetBySubjectID(subjectID)
	if err != nil || ld != nil {
		return ld, err
	}
	if email == "" {
		return nil, nil
	}
	return h.leads.GetByEmail(email)
}

// notify fans out to the CRM webhook and the sales inbox. Failures are
// logged, never surfaced to the visitor.
func (h *LeadHandler) notify(ld *model.Lead, created bool) {
	event := webhook.EventLeadUpdated
	if created {
		event = webhook.EventLeadCreated
	}

	if h.webhook != nil && h.webhook.Configured() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.webhook.SendLead(ctx, event, ld.Name, ld.Company, ld.Email, ld.PhoneE164, ld.Source, ld.Provider); err != nil {
			h.logger.Error("crm webhook", "lead_id", ld.ID, "error", err)
		}
	}

	if h.emailClient != nil && h.emailClient.Configured() {
		if err := h.emailClient.SendLeadNotification(ld, created); err != nil {
			h.logger.Error("lead notification email", "lead_id", ld.ID, "error", err)
		}
	}
}

// Qualifier receives the long qualification form. The "website" field is a
// honeypot: bots that fill it get a success response and nothing else.
func (h *LeadHandler) Qualifier(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Dados inválidos.")
		return
	}

	if r.FormValue("website") != "" {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	emailAddr := store.NormalizeEmail(r.FormValue("email"))
	rawPhone := strings.TrimSpace(r.FormValue("phone"))

	if name == "" || emailAddr == "" || !strings.Contains(emailAddr, "@") {
		writeJSONError(w, http.StatusUnprocessableEntity, "Informe nome e email válidos.")
		return
	}

	idea := strings.TrimSpace(r.FormValue("idea"))
	dealType := strings.TrimSpace(r.FormValue("deal_type"))
	if idea == "" || dealType == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "Conte sua ideia e escolha o tipo de negócio.")
		return
	}

	phone := ""
	if rawPhone != "" {
		phone = lead.NormalizePhone(rawPhone)
		if phone == "" {
			writeJSONError(w, http.StatusUnprocessableEntity, "Informe um telefone válido com DDD.")
			return
		}
	}

	answers := webhook.QualifierAnswers{
		Idea:          idea,
		DealType:      dealType,
		City:          strings.TrimSpace(r.FormValue("city")),
		RentalDetails: strings.TrimSpace(r.FormValue("rental_details")),
		EventLocation: strings.TrimSpace(r.FormValue("event_location")),
	}

	if h.webhook != nil && h.webhook.Configured() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.webhook.SendQualifier(ctx, name, emailAddr, phone, answers); err != nil {
			h.logger.Error("qualifier webhook", "email", emailAddr, "error", err)
			writeJSONError(w, http.StatusBadGateway, "Não foi possível enviar. Tente novamente.")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
