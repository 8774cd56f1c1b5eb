package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mtmsolution/site/internal/auth"
	"github.com/mtmsolution/site/internal/store"
)

const minAdminPasswordLen = 12

// AdminAccountsHandler manages the admin accounts themselves. List and
// create require the admin role; delete is wired super-admin-only.
type AdminAccountsHandler struct {
	renderer
	accounts *store.AdminAccountStore
	sessions *store.AdminSessionStore
	audit    *store.AuditLogStore
}

func NewAdminAccountsHandler(
	as *store.AdminAccountStore,
	ss *store.AdminSessionStore,
	al *store.AuditLogStore,
	tmpl map[string]*template.Template,
	baseURL string,
	logger *slog.Logger,
) *AdminAccountsHandler {
	return &AdminAccountsHandler{
		renderer: renderer{templates: tmpl, baseURL: baseURL, logger: logger},
		accounts: as,
		sessions: ss,
		audit:    al,
	}
}

func (h *AdminAccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	accounts, err := h.accounts.List()
	if err != nil {
		h.logger.Error("list admin accounts", "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}

	h.render(w, "admin_accounts.html", map[string]any{
		"Title":    "Contas — MTM Solution",
		"Admin":    admin,
		"Accounts": accounts,
	})
}

// Create adds an account. An admin can only grant roles up to their own, so
// an editor-level operator can never mint a super admin.
func (h *AdminAccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "Dados inválidos.", http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	emailAddr := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	role, roleOK := auth.ParseRole(r.FormValue("role"))

	fail := func(msg string) {
		accounts, _ := h.accounts.List()
		h.render(w, "admin_accounts.html", map[string]any{
			"Title":    "Contas — MTM Solution",
			"Admin":    admin,
			"Accounts": accounts,
			"Error":    msg,
		})
	}

	switch {
	case username == "":
		fail("Informe um nome de usuário.")
		return
	case len(password) < minAdminPasswordLen:
		fail("A senha deve ter pelo menos 12 caracteres.")
		return
	case !roleOK:
		fail("Perfil inválido.")
		return
	case !admin.Role.AtLeast(role):
		fail("Você não pode criar uma conta com perfil acima do seu.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}

	account, err := h.accounts.Create(username, emailAddr, string(hash), string(role))
	if err != nil {
		h.logger.Error("create admin account", "username", username, "error", err)
		fail("Não foi possível criar a conta. O usuário já existe?")
		return
	}

	h.auditWrite(admin, "admin_account.create", strconv.FormatInt(account.ID, 10), map[string]string{
		"username": username, "role": string(role),
	})
	http.Redirect(w, r, "/admin/accounts", http.StatusSeeOther)
}

// SetActive toggles an account. Deactivating also kills its live sessions.
func (h *AdminAccountsHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if id == admin.AdminID {
		http.Error(w, "Você não pode desativar a própria conta.", http.StatusUnprocessableEntity)
		return
	}

	active := r.FormValue("active") == "true"
	if err := h.accounts.SetActive(id, active); err != nil {
		h.logger.Error("set admin active", "id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}
	if !active {
		if err := h.sessions.DeleteByAdminID(id); err != nil {
			h.logger.Warn("delete sessions for deactivated admin", "id", id, "error", err)
		}
	}

	h.auditWrite(admin, "admin_account.set_active", strconv.FormatInt(id, 10), map[string]string{
		"active": strconv.FormatBool(active),
	})
	http.Redirect(w, r, "/admin/accounts", http.StatusSeeOther)
}

// Delete removes an account and its sessions. Wired super-admin-only.
func (h *AdminAccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	if id == admin.AdminID {
		http.Error(w, "Você não pode excluir a própria conta.", http.StatusUnprocessableEntity)
		return
	}

	if err := h.sessions.DeleteByAdminID(id); err != nil {
		h.logger.Warn("delete sessions for removed admin", "id", id, "error", err)
	}
	if err := h.accounts.Delete(id); err != nil {
		h.logger.Error("delete admin account", "id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}

	h.auditWrite(admin, "admin_account.delete", strconv.FormatInt(id, 10), nil)
	http.Redirect(w, r, "/admin/accounts", http.StatusSeeOther)
}

func (h *AdminAccountsHandler) auditWrite(admin auth.AdminContext, action, entityID string, metadata map[string]string) {
	if err := h.audit.Write(&admin.AdminID, action, "admin_account", entityID, metadata); err != nil {
		h.logger.Warn("audit write", "action", action, "error", err)
	}
}
