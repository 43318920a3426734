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

	"github.com/joho/godotenv"
	"github.com/procurio/procurio/internal/config"
	httpserver "github.com/procurio/procurio/internal/http"
	"github.com/procurio/procurio/internal/http/middleware"
	"github.com/procurio/procurio/internal/notification"
	"github.com/procurio/procurio/pkg/invite"
	"github.com/procurio/procurio/pkg/repository"
	"github.com/procurio/procurio/pkg/sequence"
	"github.com/procurio/procurio/pkg/tenancy"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := repository.NewDB(repository.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("connected to database")

	// Initialize repositories
	tenantsRepo := repository.NewTenantsRepository(db)
	domainsRepo := repository.NewDomainsRepository(db)
	membershipsRepo := repository.NewMembershipsRepository(db)
	invitationsRepo := repository.NewInvitationsRepository(db)
	sequencesRepo := repository.NewSequencesRepository()
	gate := tenancy.NewGate()
	documentsRepo := repository.NewDocumentsRepository(db, gate)

	// Initialize tenancy core
	resolver := tenancy.NewResolver(tenantsRepo, membershipsRepo, cfg.BaseDomain, logger)
	authority := tenancy.NewAuthority(membershipsRepo)

	// Initialize sequence allocator
	allocator := sequence.NewAllocator(db, sequencesRepo, sequence.Config{
		MaxAttempts: cfg.SequenceMaxAttempts,
		BaseBackoff: cfg.SequenceBaseBackoff,
	}, logger)

	// Initialize invitation service; email dispatch is optional
	var notifier invite.Notifier
	if cfg.HasSMTP() {
		notifier = notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
		})
		logger.Info("invitation email dispatch enabled")
	} else {
		logger.Warn("SMTP not configured, invitation emails disabled")
	}
	inviteService := invite.NewService(invite.Config{
		AppBaseURL: cfg.AppBaseURL,
		DefaultTTL: cfg.InviteTTL,
	}, db, invitationsRepo, membershipsRepo, tenantsRepo, notifier, logger)

	// Create router
	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:          logger,
		DB:              db,
		TokenValidator:  middleware.NewTokenValidator([]byte(cfg.JWTSecret), cfg.JWTIssuer),
		Resolver:        resolver,
		Authority:       authority,
		Allocator:       allocator,
		InviteService:   inviteService,
		TenantsRepo:     tenantsRepo,
		DomainsRepo:     domainsRepo,
		MembershipsRepo: membershipsRepo,
		DocumentsRepo:   documentsRepo,
		RateLimitConfig: cfg.RateLimit,
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
