package domains

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/procurio/procurio/internal/http/middleware"
	"github.com/procurio/procurio/internal/httputil"
	"github.com/procurio/procurio/pkg/domain"
	"github.com/procurio/procurio/pkg/repository"
	"github.com/procurio/procurio/pkg/tenancy"
)

// Handler handles tenant domain (hostname mapping) endpoints.
type Handler struct {
	logger    *slog.Logger
	domains   *repository.DomainsRepository
	authority *tenancy.Authority
}

// NewHandler creates a new domains handler.
func NewHandler(logger *slog.Logger, domains *repository.DomainsRepository, authority *tenancy.Authority) *Handler {
	return &Handler{logger: logger, domains: domains, authority: authority}
}

// CreateRequest represents a hostname mapping request.
type CreateRequest struct {
	Hostname  string `json:"hostname"`
	IsPrimary bool   `json:"is_primary"`
}

// DomainResponse is the wire representation of a domain mapping.
type DomainResponse struct {
	ID        string `json:"id"`
	Hostname  string `json:"hostname"`
	IsPrimary bool   `json:"is_primary"`
	CreatedAt string `json:"created_at"`
}

func toResponse(d *domain.TenantDomain) DomainResponse {
	return DomainResponse{
		ID:        d.ID.String(),
		Hostname:  d.Hostname,
		IsPrimary: d.IsPrimary,
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
	}
}

// List returns the tenant's hostname mappings.
// GET /v1/tenant/domains
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenancy.FromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "no tenant resolved")
		return
	}

	list, err := h.domains.ListByTenant(r.Context(), tenant.ID)
	if err != nil {
		h.logger.Error("failed to list domains", "tenant_id", tenant.ID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to list domains")
		return
	}

	out := make([]DomainResponse, 0, len(list))
	for _, d := range list {
		out = append(out, toResponse(d))
	}
	httputil.JSON(w, http.StatusOK, out)
}

// Create maps a hostname to the tenant. Requires admin.
// POST /v1/tenant/domains
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, _, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	hostname := strings.ToLower(strings.TrimSpace(req.Hostname))
	if hostname == "" || strings.ContainsAny(hostname, " /:") {
		httputil.Error(w, http.StatusBadRequest, "invalid hostname")
		return
	}

	now := time.Now()
	d := &domain.TenantDomain{
		ID:        uuid.New(),
		TenantID:  tenant.ID,
		Hostname:  hostname,
		IsPrimary: false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.domains.Create(r.Context(), d); err != nil {
		if errors.Is(err, domain.ErrHostnameTaken) {
			httputil.Error(w, http.StatusConflict, "hostname already mapped")
			return
		}
		h.logger.Error("failed to create domain", "tenant_id", tenant.ID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to create domain")
		return
	}

	if req.IsPrimary {
		if err := h.domains.SetPrimary(r.Context(), tenant.ID, d.ID); err != nil {
			h.logger.Error("failed to set primary domain", "tenant_id", tenant.ID, "error", err)
		} else {
			d.IsPrimary = true
		}
	}

	httputil.JSON(w, http.StatusCreated, toResponse(d))
}

// SetPrimary flags a domain as the tenant's primary. Requires admin.
// POST /v1/tenant/domains/{id}/primary
func (h *Handler) SetPrimary(w http.ResponseWriter, r *http.Request) {
	tenant, _, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid domain id")
		return
	}

	if err := h.domains.SetPrimary(r.Context(), tenant.ID, id); err != nil {
		if errors.Is(err, domain.ErrDomainNotFound) {
			httputil.Error(w, http.StatusNotFound, "domain not found")
			return
		}
		h.logger.Error("failed to set primary domain", "tenant_id", tenant.ID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to set primary domain")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "primary"})
}

// Delete retires a hostname mapping. Requires admin.
// DELETE /v1/tenant/domains/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	tenant, _, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid domain id")
		return
	}

	if err := h.domains.Delete(r.Context(), tenant.ID, id); err != nil {
		if errors.Is(err, domain.ErrDomainNotFound) {
			httputil.Error(w, http.StatusNotFound, "domain not found")
			return
		}
		h.logger.Error("failed to delete domain", "tenant_id", tenant.ID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to delete domain")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) (*domain.Tenant, uuid.UUID, bool) {
	tenant, ok := tenancy.FromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "no tenant resolved")
		return nil, uuid.Nil, false
	}
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return nil, uuid.Nil, false
	}
	if err := h.authority.Require(r.Context(), userID, tenant.ID, domain.RoleAdmin); err != nil {
		if errors.Is(err, domain.ErrInsufficientRole) {
			httputil.Error(w, http.StatusForbidden, "insufficient role")
			return nil, uuid.Nil, false
		}
		h.logger.Error("role check failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "authorization check failed")
		return nil, uuid.Nil, false
	}
	return tenant, userID, true
}
