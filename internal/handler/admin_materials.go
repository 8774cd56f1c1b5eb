package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mtmsolution/site/internal/auth"
	"github.com/mtmsolution/site/internal/store"
)

// uploadURLTTL gives an operator enough time to push a large PDF.
const uploadURLTTL = 15 * time.Minute

// UploadStorage is the slice of object storage the admin material handlers
// need.
type UploadStorage interface {
	SignedUploadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}

// AdminMaterialsHandler manages the gated materials catalog.
type AdminMaterialsHandler struct {
	renderer
	materials *store.MaterialStore
	downloads *store.DownloadEventStore
	audit     *store.AuditLogStore
	storage   UploadStorage
}

func NewAdminMaterialsHandler(
	ms *store.MaterialStore,
	ds *store.DownloadEventStore,
	al *store.AuditLogStore,
	st UploadStorage,
	tmpl map[string]*template.Template,
	baseURL string,
	logger *slog.Logger,
) *AdminMaterialsHandler {
	return &AdminMaterialsHandler{
		renderer:  renderer{templates: tmpl, baseURL: baseURL, logger: logger},
		materials: ms,
		downloads: ds,
		audit:     al,
		storage:   st,
	}
}

type materialRow struct {
	Material  any
	Downloads int64
}

func (h *AdminMaterialsHandler) List(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	materials, err := h.materials.List()
	if err != nil {
		h.logger.Error("list materials", "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}

	rows := make([]materialRow, 0, len(materials))
	for _, m := range materials {
		count, err := h.downloads.CountByMaterial(m.ID)
		if err != nil {
			h.logger.Warn("count downloads", "material_id", m.ID, "error", err)
		}
		rows = append(rows, materialRow{Material: m, Downloads: count})
	}

	h.render(w, "admin_materials.html", map[string]any{
		"Title":     "Materiais — MTM Solution",
		"Admin":     admin,
		"Materials": rows,
	})
}

func (h *AdminMaterialsHandler) Create(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	title, description, storagePath, published, publishAt, ok := h.parseMaterialForm(w, r)
	if !ok {
		return
	}

	material, err := h.materials.Create(title, description, storagePath, published, publishAt)
	if err != nil {
		h.logger.Error("create material", "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}

	h.auditWrite(admin, "material.create", strconv.FormatInt(material.ID, 10), map[string]string{"title": title})
	http.Redirect(w, r, "/admin/materials", http.StatusSeeOther)
}

func (h *AdminMaterialsHandler) Update(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	existing, err := h.materials.GetByID(id)
	if err != nil {
		h.logger.Error("get material", "id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		http.NotFound(w, r)
		return
	}

	title, description, storagePath, published, publishAt, ok := h.parseMaterialForm(w, r)
	if !ok {
		return
	}

	if err := h.materials.Update(id, title, description, storagePath, published, publishAt); err != nil {
		h.logger.Error("update material", "id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}

	h.auditWrite(admin, "material.update", strconv.FormatInt(id, 10), map[string]string{"title": title})
	http.Redirect(w, r, "/admin/materials", http.StatusSeeOther)
}

// Delete removes the catalog row and best-effort deletes the stored object.
func (h *AdminMaterialsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	material, err := h.materials.GetByID(id)
	if err != nil {
		h.logger.Error("get material", "id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}
	if material == nil {
		http.NotFound(w, r)
		return
	}

	if err := h.materials.Delete(id); err != nil {
		h.logger.Error("delete material", "id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}

	if h.storage != nil && material.StoragePath != "" {
		if err := h.storage.Remove(r.Context(), material.StoragePath); err != nil {
			h.logger.Warn("remove stored object", "key", material.StoragePath, "error", err)
		}
	}

	h.auditWrite(admin, "material.delete", strconv.FormatInt(id, 10), nil)
	http.Redirect(w, r, "/admin/materials", http.StatusSeeOther)
}

type uploadRequest struct {
	Filename string `json:"filename"`
}

// SignUpload hands the admin UI a presigned PUT URL for a new material file.
// Keys are prefixed with a uuid so re-uploads never clobber a live object.
func (h *AdminMaterialsHandler) SignUpload(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		writeJSONError(w, http.StatusInternalServerError, "Armazenamento não configurado.")
		return
	}

	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Dados inválidos.")
		return
	}

	filename := path.Base(strings.TrimSpace(req.Filename))
	if filename == "" || filename == "." || filename == "/" {
		writeJSONError(w, http.StatusUnprocessableEntity, "Informe um nome de arquivo.")
		return
	}

	key := "materials/" + uuid.NewString() + "/" + filename
	url, err := h.storage.SignedUploadURL(r.Context(), key, uploadURLTTL)
	if err != nil {
		h.logger.Error("sign upload url", "key", key, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "Erro interno. Tente novamente.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url, "key": key})
}

func (h *AdminMaterialsHandler) parseMaterialForm(w http.ResponseWriter, r *http.Request) (title, description, storagePath string, published bool, publishAt sql.NullTime, ok bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Dados inválidos.", http.StatusBadRequest)
		return
	}

	title = strings.TrimSpace(r.FormValue("title"))
	description = strings.TrimSpace(r.FormValue("description"))
	storagePath = strings.TrimSpace(r.FormValue("storage_path"))
	published = r.FormValue("published") == "on" || r.FormValue("published") == "true"

	if title == "" || storagePath == "" {
		http.Error(w, "Título e arquivo são obrigatórios.", http.StatusUnprocessableEntity)
		return
	}

	if raw := r.FormValue("publish_at"); raw != "" {
		at, err := time.Parse("2006-01-02T15:04", raw)
		if err != nil {
			http.Error(w, "Data de publicação inválida.", http.StatusUnprocessableEntity)
			return
		}
		publishAt = sql.NullTime{Time: at, Valid: true}
	}

	ok = true
	return
}

func (h *AdminMaterialsHandler) auditWrite(admin auth.AdminContext, action, entityID string, metadata map[string]string) {
	if err := h.audit.Write(&admin.AdminID, action, "material", entityID, metadata); err != nil {
		h.logger.Warn("audit write", "action", action, "error", err)
	}
}
