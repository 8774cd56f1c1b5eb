package handler

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/mtmsolution/site/internal/store"
)

// MarketingHandler renders the public pages.
type MarketingHandler struct {
	renderer
	posts         *store.PostStore
	whatsappPhone string
}

func NewMarketingHandler(ps *store.PostStore, whatsappPhone string, tmpl map[string]*template.Template, baseURL string, logger *slog.Logger) *MarketingHandler {
	return &MarketingHandler{
		renderer:      renderer{templates: tmpl, baseURL: baseURL, logger: logger},
		posts:         ps,
		whatsappPhone: whatsappPhone,
	}
}

func (h *MarketingHandler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.render(w, "home.html", map[string]any{
		"Title":    "MTM Solution — Estruturas e eventos",
		"WhatsApp": h.whatsappPhone,
	})
}

func (h *MarketingHandler) Sobre(w http.ResponseWriter, r *http.Request) {
	h.render(w, "sobre.html", map[string]any{"Title": "Sobre — MTM Solution"})
}

func (h *MarketingHandler) Servicos(w http.ResponseWriter, r *http.Request) {
	h.render(w, "servicos.html", map[string]any{"Title": "Serviços — MTM Solution"})
}

// NaoSabe is the guided page for visitors who don't yet know what they need.
func (h *MarketingHandler) NaoSabe(w http.ResponseWriter, r *http.Request) {
	h.render(w, "nao_sabe.html", map[string]any{
		"Title":    "Não sabe por onde começar? — MTM Solution",
		"WhatsApp": h.whatsappPhone,
	})
}

func (h *MarketingHandler) Diagnostico(w http.ResponseWriter, r *http.Request) {
	h.render(w, "diagnostico.html", map[string]any{"Title": "Diagnóstico — MTM Solution"})
}

func (h *MarketingHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, "login.html", map[string]any{
		"Title": "Entrar — MTM Solution",
		"Next":  safeRedirect(r.URL.Query().Get("next"), "/materiais"),
	})
}

func (h *MarketingHandler) BlogList(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List()
	if err != nil {
		h.logger.Error("list posts", "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}
	h.render(w, "blog.html", map[string]any{
		"Title": "Blog — MTM Solution",
		"Posts": posts,
	})
}

func (h *MarketingHandler) BlogPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetBySlug(r.PathValue("slug"))
	if err != nil {
		h.logger.Error("get post", "slug", r.PathValue("slug"), "error", err)
		http.Error(w, "Erro interno. Tente novamente.", http.StatusInternalServerError)
		return
	}
	if post == nil {
		http.NotFound(w, r)
		return
	}
	h.render(w, "blog_post.html", map[string]any{
		"Title": post.Title + " — MTM Solution",
		"Post":  post,
	})
}
