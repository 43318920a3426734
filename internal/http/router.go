package http

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/procurio/procurio/internal/config"
	"github.com/procurio/procurio/internal/http/features/documents"
	"github.com/procurio/procurio/internal/http/features/domains"
	"github.com/procurio/procurio/internal/http/features/invites"
	"github.com/procurio/procurio/internal/http/features/members"
	"github.com/procurio/procurio/internal/http/features/tenants"
	"github.com/procurio/procurio/internal/http/middleware"
	"github.com/procurio/procurio/internal/httputil"
	"github.com/procurio/procurio/pkg/invite"
	"github.com/procurio/procurio/pkg/repository"
	"github.com/procurio/procurio/pkg/sequence"
	"github.com/procurio/procurio/pkg/tenancy"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	DB              *sql.DB
	TokenValidator  *middleware.TokenValidator
	Resolver        *tenancy.Resolver
	Authority       *tenancy.Authority
	Allocator       *sequence.Allocator
	InviteService   *invite.Service
	TenantsRepo     *repository.TenantsRepository
	DomainsRepo     *repository.DomainsRepository
	MembershipsRepo *repository.MembershipsRepository
	DocumentsRepo   *repository.DocumentsRepository
	RateLimitConfig config.RateLimitConfig
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)
	auth := middleware.Auth(cfg.TokenValidator)
	resolveTenant := middleware.ResolveTenant(cfg.Resolver)

	tenantsHandler := tenants.NewHandler(cfg.Logger, cfg.DB, cfg.TenantsRepo, cfg.MembershipsRepo, cfg.Authority)
	domainsHandler := domains.NewHandler(cfg.Logger, cfg.DomainsRepo, cfg.Authority)
	membersHandler := members.NewHandler(cfg.Logger, cfg.MembershipsRepo, cfg.Authority)
	invitesHandler := invites.NewHandler(cfg.Logger, cfg.InviteService, cfg.Authority)
	documentsHandler := documents.NewHandler(cfg.Logger, cfg.DocumentsRepo, cfg.Allocator)

	// Onboarding and invitation acceptance need a caller but no resolved
	// tenant: onboarding creates the tenant, acceptance takes it from the
	// token.
	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.With(rateLimiters["api"]).Post("/v1/tenants", tenantsHandler.Create)
		r.With(rateLimiters["accept"]).Post("/v1/invites/accept", invitesHandler.Accept)
	})

	// Everything under /v1/tenant operates on the resolved tenant.
	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Use(resolveTenant)
		r.Use(rateLimiters["api"])

		r.Get("/v1/tenant", tenantsHandler.Get)
		r.Get("/v1/tenant/domains", domainsHandler.List)
		r.Get("/v1/tenant/members", membersHandler.List)
		r.Get("/v1/tenant/invites", invitesHandler.List)
		r.Get("/v1/tenant/documents", documentsHandler.List)
		r.Get("/v1/tenant/documents/{id}", documentsHandler.Get)
		r.Post("/v1/tenant/documents", documentsHandler.Create)
		r.Delete("/v1/tenant/documents/{id}", documentsHandler.Delete)

		// Administrative mutations
		r.Group(func(r chi.Router) {
			r.Use(rateLimiters["admin"])
			r.Patch("/v1/tenant", tenantsHandler.Update)
			r.Delete("/v1/tenant", tenantsHandler.Deactivate)
			r.Post("/v1/tenant/transfer-ownership", tenantsHandler.TransferOwnership)
			r.Post("/v1/tenant/domains", domainsHandler.Create)
			r.Post("/v1/tenant/domains/{id}/primary", domainsHandler.SetPrimary)
			r.Delete("/v1/tenant/domains/{id}", domainsHandler.Delete)
			r.Delete("/v1/tenant/members/{userID}", membersHandler.Remove)
			r.Post("/v1/tenant/invites", invitesHandler.Create)
			r.Post("/v1/tenant/invites/{id}/resend", invitesHandler.Resend)
			r.Delete("/v1/tenant/invites/{id}", invitesHandler.Revoke)
		})
	})

	return r
}
