package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mtmsolution/site/internal/database"
	"github.com/mtmsolution/site/internal/email"
	"github.com/mtmsolution/site/internal/handler"
	"github.com/mtmsolution/site/internal/logging"
	"github.com/mtmsolution/site/internal/server"
	"github.com/mtmsolution/site/internal/storage"
	"github.com/mtmsolution/site/internal/webhook"
)

func main() {
	logger := logging.Setup(os.Getenv("SITE_LOG_LEVEL"))

	port := os.Getenv("SITE_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("SITE_DB_PATH")
	if dbPath == "" {
		dbPath = "site.db"
	}

	baseURL := os.Getenv("SITE_BASE_URL")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%s", port)
	}

	db, err := database.Open(dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	emailClient := email.NewClient(
		os.Getenv("SITE_POSTMARK_TOKEN"),
		os.Getenv("SITE_FROM_EMAIL"),
		os.Getenv("SITE_NOTIFY_EMAIL"),
	)
	webhookClient := webhook.NewClient(os.Getenv("CRM_WEBHOOK_URL"))
	storageClient := storage.New(storage.Config{
		Endpoint:  os.Getenv("S3_ENDPOINT"),
		Bucket:    os.Getenv("S3_BUCKET"),
		Region:    os.Getenv("S3_REGION"),
		AccessKey: os.Getenv("S3_ACCESS_KEY"),
		SecretKey: os.Getenv("S3_SECRET_KEY"),
	})

	cfg := server.Config{
		BaseURL:       baseURL,
		WhatsAppPhone: os.Getenv("WHATSAPP_PHONE"),
		EmailClient:   emailClient,
		WebhookClient: webhookClient,
		Storage:       storageClient,
	}

	srv := server.New(db, cfg, logger)

	if err := handler.Bootstrap(
		srv.AdminAccountStore(),
		os.Getenv("ADMIN_BOOTSTRAP_USERNAME"),
		os.Getenv("ADMIN_BOOTSTRAP_PASSWORD"),
		logger,
	); err != nil {
		slog.Error("bootstrap admin account", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Background cleanup goroutine
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := srv.SessionStore().DeleteExpired(); err != nil {
					slog.Error("cleanup expired admin sessions", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired admin sessions", "count", n)
				}
				if n, err := srv.PendingProfileStore().DeleteExpired(); err != nil {
					slog.Error("cleanup expired pending profiles", "error", err)
				} else if n > 0 {
					slog.Info("cleaned up expired pending profiles", "count", n)
				}
				srv.CleanupLimiters()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("site starting", "addr", ":"+port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
