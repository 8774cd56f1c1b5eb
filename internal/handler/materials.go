package handler

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mtmsolution/site/internal/auth"
	"github.com/mtmsolution/site/internal/store"
)

// downloadURLTTL is how long a signed material link stays valid.
const downloadURLTTL = 600 * time.Second

// URLSigner is the slice of object storage the materials handlers need.
type URLSigner interface {
	SignedDownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// MaterialsHandler serves the gated materials portal. Files live in object
// storage and are only reachable through short-lived signed URLs.
type MaterialsHandler struct {
	renderer
	materials *store.MaterialStore
	downloads *store.DownloadEventStore
	signer    URLSigner
}

func NewMaterialsHandler(
	ms *store.MaterialStore,
	ds *store.DownloadEventStore,
	signer URLSigner,
	tmpl map[string]*template.Template,
	baseURL string,
	logger *slog.Logger,
) *MaterialsHandler {
	return &MaterialsHandler{
		renderer:  renderer{templates: tmpl, baseURL: baseURL, logger: logger},
		materials: ms,
		downloads: ds,
		signer:    signer,
	}
}

// List renders the visible materials.
func (h *MaterialsHandler) List(w http.ResponseWriter, r *http.Request) {
	materials, err := h.materials.ListVisible()
	if err != nil {
		h.logger.Error("list materials", "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}
	h.render(w, "materiais.html", map[string]any{
		"Title":     "Materiais — MTM Solution",
		"Materials": materials,
	})
}

// Download signs a download URL for a visible material and redirects to it.
// Hidden or unknown materials 404 without revealing which case applies.
func (h *MaterialsHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	material, err := h.materials.GetVisibleByID(id)
	if err != nil {
		h.logger.Error("get material", "id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}
	if material == nil {
		http.NotFound(w, r)
		return
	}

	if h.signer == nil {
		h.logger.Error("download requested but storage not configured", "material_id", id)
		http.Error(w, "Downloads indisponíveis no momento.", http.StatusInternalServerError)
		return
	}

	url, err := h.signer.SignedDownloadURL(r.Context(), material.StoragePath, downloadURLTTL)
	if err != nil {
		h.logger.Error("sign download url", "material_id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}

	if err := h.downloads.Record(id, auth.SubjectFromContext(r.Context())); err != nil {
		h.logger.Warn("record download", "material_id", id, "error", err)
	}

	http.Redirect(w, r, url, http.StatusSeeOther)
}
