package server

import (
	"database/sql"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/mtmsolution/site/internal/auth"
	"github.com/mtmsolution/site/internal/email"
	"github.com/mtmsolution/site/internal/handler"
	"github.com/mtmsolution/site/internal/middleware"
	"github.com/mtmsolution/site/internal/storage"
	"github.com/mtmsolution/site/internal/store"
	"github.com/mtmsolution/site/internal/webhook"
)

const (
	downloadLimit  = 30
	downloadWindow = 10 * time.Minute

	publicFormLimit  = 10
	publicFormWindow = time.Minute
)

type Config struct {
	BaseURL       string
	TemplatesDir  string
	WhatsAppPhone string
	EmailClient   *email.Client
	WebhookClient *webhook.Client
	Storage       *storage.Client
}

type Server struct {
	db *sql.DB

	pendingStore  *store.PendingProfileStore
	profileStore  *store.ProfileStore
	leadStore     *store.LeadStore
	eventStore    *store.LeadEventStore
	materialStore *store.MaterialStore
	downloadStore *store.DownloadEventStore
	accountStore  *store.AdminAccountStore
	sessionStore  *store.AdminSessionStore
	auditStore    *store.AuditLogStore
	postStore     *store.PostStore

	profileH        *handler.ProfileHandler
	leadH           *handler.LeadHandler
	materialsH      *handler.MaterialsHandler
	marketingH      *handler.MarketingHandler
	adminAuthH      *handler.AdminAuthHandler
	adminLeadsH     *handler.AdminLeadsHandler
	adminMaterialsH *handler.AdminMaterialsHandler
	adminAccountsH  *handler.AdminAccountsHandler
	adminPostsH     *handler.AdminPostsHandler

	loginLimiter    *middleware.MemoryLimiter
	downloadLimiter *middleware.MemoryLimiter
	formLimiter     *middleware.MemoryLimiter
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	pendingStore := store.NewPendingProfileStore(db)
	profileStore := store.NewProfileStore(db)
	leadStore := store.NewLeadStore(db)
	eventStore := store.NewLeadEventStore(db)
	materialStore := store.NewMaterialStore(db)
	downloadStore := store.NewDownloadEventStore(db)
	accountStore := store.NewAdminAccountStore(db)
	sessionStore := store.NewAdminSessionStore(db)
	auditStore := store.NewAuditLogStore(db)
	postStore := store.NewPostStore(db)

	tmplDir := cfg.TemplatesDir
	if tmplDir == "" {
		tmplDir = "web/templates"
	}
	layoutFile := tmplDir + "/layout.html"
	templates := make(map[string]*template.Template)
	pages := []string{
		"home.html", "sobre.html", "servicos.html", "nao_sabe.html", "diagnostico.html",
		"login.html", "lead_rapido.html", "materiais.html", "blog.html", "blog_post.html",
		"admin_login.html", "admin_dashboard.html", "admin_leads.html", "admin_lead_detail.html",
		"admin_materials.html", "admin_accounts.html", "admin_posts.html",
	}
	for _, page := range pages {
		templates[page] = template.Must(template.ParseFiles(layoutFile, tmplDir+"/"+page))
	}

	// A nil *storage.Client must stay a nil interface in the handlers.
	var downloadSigner handler.URLSigner
	var uploadStorage handler.UploadStorage
	if cfg.Storage != nil {
		downloadSigner = cfg.Storage
		uploadStorage = cfg.Storage
	}

	loginLimiter := middleware.NewMemoryLimiter()
	downloadLimiter := middleware.NewMemoryLimiter()
	formLimiter := middleware.NewMemoryLimiter()

	return &Server{
		db:            db,
		pendingStore:  pendingStore,
		profileStore:  profileStore,
		leadStore:     leadStore,
		eventStore:    eventStore,
		materialStore: materialStore,
		downloadStore: downloadStore,
		accountStore:  accountStore,
		sessionStore:  sessionStore,
		auditStore:    auditStore,
		postStore:     postStore,

		profileH: handler.NewProfileHandler(pendingStore, profileStore, leadStore, logger.With("component", "profile")),
		leadH: handler.NewLeadHandler(leadStore, eventStore, cfg.WebhookClient, cfg.EmailClient,
			templates, cfg.BaseURL, logger.With("component", "lead")),
		materialsH: handler.NewMaterialsHandler(materialStore, downloadStore, downloadSigner,
			templates, cfg.BaseURL, logger.With("component", "materials")),
		marketingH: handler.NewMarketingHandler(postStore, cfg.WhatsAppPhone,
			templates, cfg.BaseURL, logger.With("component", "marketing")),
		adminAuthH: handler.NewAdminAuthHandler(accountStore, sessionStore, auditStore, cfg.EmailClient,
			loginLimiter, templates, cfg.BaseURL, logger.With("component", "admin-auth")),
		adminLeadsH: handler.NewAdminLeadsHandler(leadStore, eventStore, materialStore, auditStore,
			templates, cfg.BaseURL, logger.With("component", "admin-leads")),
		adminMaterialsH: handler.NewAdminMaterialsHandler(materialStore, downloadStore, auditStore, uploadStorage,
			templates, cfg.BaseURL, logger.With("component", "admin-materials")),
		adminAccountsH: handler.NewAdminAccountsHandler(accountStore, sessionStore, auditStore,
			templates, cfg.BaseURL, logger.With("component", "admin-accounts")),
		adminPostsH: handler.NewAdminPostsHandler(postStore, auditStore,
			templates, cfg.BaseURL, logger.With("component", "admin-posts")),

		loginLimiter:    loginLimiter,
		downloadLimiter: downloadLimiter,
		formLimiter:     formLimiter,
	}
}

// AdminAccountStore returns the account store for bootstrap.
func (s *Server) AdminAccountStore() *store.AdminAccountStore {
	return s.accountStore
}

// SessionStore returns the admin session store for cleanup tasks.
func (s *Server) SessionStore() *store.AdminSessionStore {
	return s.sessionStore
}

// PendingProfileStore returns the pending profile store for cleanup tasks.
func (s *Server) PendingProfileStore() *store.PendingProfileStore {
	return s.pendingStore
}

// CleanupLimiters drops expired rate limiter entries.
func (s *Server) CleanupLimiters() {
	s.loginLimiter.Cleanup()
	s.downloadLimiter.Cleanup()
	s.formLimiter.Cleanup()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public pages
	mux.HandleFunc("GET /{$}", s.marketingH.Home)
	mux.HandleFunc("GET /sobre", s.marketingH.Sobre)
	mux.HandleFunc("GET /servicos", s.marketingH.Servicos)
	mux.HandleFunc("GET /nao-sabe", s.marketingH.NaoSabe)
	mux.HandleFunc("GET /blog", s.marketingH.BlogList)
	mux.HandleFunc("GET /blog/{slug}", s.marketingH.BlogPost)
	mux.HandleFunc("GET /login", s.marketingH.LoginPage)
	mux.HandleFunc("GET /health", s.healthCheck)

	formRL := middleware.RateLimit(s.formLimiter, middleware.RealIP, publicFormLimit, publicFormWindow)

	// Pre-login stash and qualifier (public, rate-limited)
	mux.Handle("POST /api/profile/pending", formRL(http.HandlerFunc(s.profileH.PendingCreate)))
	mux.Handle("POST /qualificador", formRL(http.HandlerFunc(s.leadH.Qualifier)))

	// Authenticated JSON endpoints
	authMw := middleware.RequireAuth
	mux.Handle("POST /api/profile/complete", authMw(http.HandlerFunc(s.profileH.Complete)))
	mux.Handle("POST /api/profile/login-event", authMw(http.HandlerFunc(s.profileH.LoginEvent)))
	mux.Handle("GET /auth/need-lead", authMw(http.HandlerFunc(s.profileH.NeedLead)))

	// Quick lead form (authenticated, not lead-gated)
	mux.Handle("GET /lead-rapido", authMw(http.HandlerFunc(s.leadH.QuickLeadPage)))
	mux.Handle("POST /lead-rapido", authMw(formRL(http.HandlerFunc(s.leadH.QuickLeadSubmit))))

	// Lead-gated pages
	leadGate := middleware.RequireLeadComplete(s.leadStore)
	gated := func(h http.HandlerFunc) http.Handler {
		return authMw(leadGate(h))
	}
	mux.Handle("GET /materiais", gated(s.materialsH.List))
	mux.Handle("GET /diagnostico", gated(s.marketingH.Diagnostico))

	downloadRL := middleware.RateLimit(s.downloadLimiter, middleware.RealIP, downloadLimit, downloadWindow)
	mux.Handle("GET /materiais/{id}/download", authMw(leadGate(downloadRL(http.HandlerFunc(s.materialsH.Download)))))

	// Admin area
	mux.HandleFunc("GET /admin/login", s.adminAuthH.LoginPage)
	mux.HandleFunc("POST /admin/login", s.adminAuthH.Login)
	mux.HandleFunc("POST /admin/logout", s.adminAuthH.Logout)

	reader := middleware.RequireAdmin(s.sessionStore, auth.RoleReader)
	editor := middleware.RequireAdmin(s.sessionStore, auth.RoleEditor)
	adminRole := middleware.RequireAdmin(s.sessionStore, auth.RoleAdmin)
	superAdmin := middleware.RequireAdmin(s.sessionStore, auth.RoleSuperAdmin)
	csrf := middleware.RequireAdminCSRF(s.sessionStore)

	mux.Handle("GET /admin", reader(http.HandlerFunc(s.adminLeadsH.Dashboard)))
	mux.Handle("GET /admin/leads", reader(http.HandlerFunc(s.adminLeadsH.List)))
	mux.Handle("GET /admin/leads/{id}", reader(http.HandlerFunc(s.adminLeadsH.Detail)))
	mux.Handle("POST /admin/leads/{id}", editor(csrf(http.HandlerFunc(s.adminLeadsH.Update))))
	mux.Handle("POST /admin/leads/{id}/delete", superAdmin(csrf(http.HandlerFunc(s.adminLeadsH.Delete))))

	mux.Handle("GET /admin/materials", reader(http.HandlerFunc(s.adminMaterialsH.List)))
	mux.Handle("POST /admin/materials", editor(csrf(http.HandlerFunc(s.adminMaterialsH.Create))))
	mux.Handle("POST /admin/materials/{id}", editor(csrf(http.HandlerFunc(s.adminMaterialsH.Update))))
	mux.Handle("POST /admin/materials/{id}/delete", editor(csrf(http.HandlerFunc(s.adminMaterialsH.Delete))))
	mux.Handle("POST /admin/api/uploads", editor(http.HandlerFunc(s.adminMaterialsH.SignUpload)))

	mux.Handle("GET /admin/posts", reader(http.HandlerFunc(s.adminPostsH.List)))
	mux.Handle("POST /admin/posts", editor(csrf(http.HandlerFunc(s.adminPostsH.Create))))
	mux.Handle("POST /admin/posts/{id}", editor(csrf(http.HandlerFunc(s.adminPostsH.Update))))
	mux.Handle("POST /admin/posts/{id}/delete", editor(csrf(http.HandlerFunc(s.adminPostsH.Delete))))

	mux.Handle("GET /admin/accounts", adminRole(http.HandlerFunc(s.adminAccountsH.List)))
	mux.Handle("POST /admin/accounts", adminRole(csrf(http.HandlerFunc(s.adminAccountsH.Create))))
	mux.Handle("POST /admin/accounts/{id}/active", adminRole(csrf(http.HandlerFunc(s.adminAccountsH.SetActive))))
	mux.Handle("POST /admin/accounts/{id}/delete", superAdmin(csrf(http.HandlerFunc(s.adminAccountsH.Delete))))

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir("web/static"))))

	return middleware.RequestLogger(mux)
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
