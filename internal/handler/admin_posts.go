package handler

import (
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mtmsolution/site/internal/auth"
	"github.com/mtmsolution/site/internal/model"
	"github.com/mtmsolution/site/internal/store"
)

// AdminPostsHandler manages the blog posts that feed the public /blog pages.
type AdminPostsHandler struct {
	renderer
	posts *store.PostStore
	audit *store.AuditLogStore
}

func NewAdminPostsHandler(
	ps *store.PostStore,
	al *store.AuditLogStore,
	tmpl map[string]*template.Template,
	baseURL string,
	logger *slog.Logger,
) *AdminPostsHandler {
	return &AdminPostsHandler{
		renderer: renderer{templates: tmpl, baseURL: baseURL, logger: logger},
		posts:    ps,
		audit:    al,
	}
}

func (h *AdminPostsHandler) List(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	posts, err := h.posts.List()
	if err != nil {
		h.logger.Error("list posts", "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}

	h.render(w, "admin_posts.html", map[string]any{
		"Title": "Blog — MTM Solution",
		"Admin": admin,
		"Posts": posts,
	})
}

func (h *AdminPostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	post, ok := h.parsePostForm(w, r)
	if !ok {
		return
	}

	created, err := h.posts.Create(post)
	if err != nil {
		h.logger.Error("create post", "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}

	h.auditPost(admin, "post.create", created.ID, created.Title)
	http.Redirect(w, r, "/admin/posts", http.StatusSeeOther)
}

func (h *AdminPostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	existing, err := h.posts.GetByID(id)
	if err != nil {
		h.logger.Error("get post", "id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}
	if existing == nil {
		http.NotFound(w, r)
		return
	}

	post, ok := h.parsePostForm(w, r)
	if !ok {
		return
	}
	post.ID = id
	slug, err := h.posts.EnsureUniqueSlug(post.Title, post.Slug, id)
	if err != nil {
		h.logger.Error("resolve slug", "id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}
	post.Slug = slug

	if err := h.posts.Update(post); err != nil {
		h.logger.Error("update post", "id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}

	h.auditPost(admin, "post.update", id, post.Title)
	http.Redirect(w, r, "/admin/posts", http.StatusSeeOther)
}

func (h *AdminPostsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.AdminFromContext(r.Context())

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	post, err := h.posts.GetByID(id)
	if err != nil {
		h.logger.Error("get post", "id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}
	if post == nil {
		http.NotFound(w, r)
		return
	}

	if err := h.posts.Delete(id); err != nil {
		h.logger.Error("delete post", "id", id, "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}

	h.auditPost(admin, "post.delete", id, post.Title)
	http.Redirect(w, r, "/admin/posts", http.StatusSeeOther)
}

func (h *AdminPostsHandler) parsePostForm(w http.ResponseWriter, r *http.Request) (*model.Post, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Dados inválidos.", http.StatusBadRequest)
		return nil, false
	}

	post := &model.Post{
		Title:    strings.TrimSpace(r.FormValue("title")),
		Slug:     strings.TrimSpace(r.FormValue("slug")),
		Excerpt:  strings.TrimSpace(r.FormValue("excerpt")),
		Content:  r.FormValue("content"),
		Tags:     strings.TrimSpace(r.FormValue("tags")),
		Category: strings.TrimSpace(r.FormValue("category")),
		ReadTime: strings.TrimSpace(r.FormValue("read_time")),
		ImageURL: strings.TrimSpace(r.FormValue("image_url")),
		VideoURL: strings.TrimSpace(r.FormValue("video_url")),
	}

	if post.Title == "" || strings.TrimSpace(post.Content) == "" {
		http.Error(w, "Título e conteúdo são obrigatórios.", http.StatusUnprocessableEntity)
		return nil, false
	}

	return post, true
}

func (h *AdminPostsHandler) auditPost(admin auth.AdminContext, action string, id int64, title string) {
	if err := h.audit.Write(&admin.AdminID, action, "post", strconv.FormatInt(id, 10), map[string]string{"title": title}); err != nil {
		h.logger.Warn("audit write", "action", action, "error", err)
	}
}
