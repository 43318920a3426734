package tenants

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/procurio/procurio/internal/http/middleware"
	"github.com/procurio/procurio/internal/httputil"
	"github.com/procurio/procurio/pkg/domain"
	"github.com/procurio/procurio/pkg/repository"
	"github.com/procurio/procurio/pkg/tenancy"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{1,38}[a-z0-9])?$`)

// Handler handles tenant onboarding and administration endpoints.
type Handler struct {
	logger      *slog.Logger
	db          *sql.DB
	tenants     *repository.TenantsRepository
	memberships *repository.MembershipsRepository
	authority   *tenancy.Authority
}

// NewHandler creates a new tenants handler.
func NewHandler(
	logger *slog.Logger,
	db *sql.DB,
	tenants *repository.TenantsRepository,
	memberships *repository.MembershipsRepository,
	authority *tenancy.Authority,
) *Handler {
	return &Handler{
		logger:      logger,
		db:          db,
		tenants:     tenants,
		memberships: memberships,
		authority:   authority,
	}
}

// CreateRequest represents a tenant onboarding request.
type CreateRequest struct {
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	ContactEmail *string `json:"contact_email,omitempty"`
}

// UpdateRequest represents a tenant branding/settings update.
type UpdateRequest struct {
	Name         *string `json:"name,omitempty"`
	LogoURL      *string `json:"logo_url,omitempty"`
	ThemeColor   *string `json:"theme_color,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
}

// TransferOwnershipRequest names the member receiving ownership.
type TransferOwnershipRequest struct {
	UserID string `json:"user_id"`
}

// TenantResponse is the wire representation of a tenant.
type TenantResponse struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	Active       bool    `json:"active"`
	LogoURL      *string `json:"logo_url,omitempty"`
	ThemeColor   *string `json:"theme_color,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

func toResponse(t *domain.Tenant) TenantResponse {
	return TenantResponse{
		ID:           t.ID.String(),
		Name:         t.Name,
		Slug:         t.Slug,
		Active:       t.Active,
		LogoURL:      t.LogoURL,
		ThemeColor:   t.ThemeColor,
		ContactEmail: t.ContactEmail,
		CreatedAt:    t.CreatedAt.Format(time.RFC3339),
	}
}

// Create handles self-service tenant onboarding. The caller becomes the
// tenant's owner; tenant and owner membership are created in one transaction.
// POST /v1/tenants
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Slug == "" {
		httputil.Error(w, http.StatusBadRequest, "name and slug are required")
		return
	}
	if !slugPattern.MatchString(req.Slug) {
		httputil.Error(w, http.StatusBadRequest, "invalid slug: lowercase letters, digits and hyphens, 1-40 characters")
		return
	}

	now := time.Now()
	tenant := &domain.Tenant{
		ID:           uuid.New(),
		Name:         req.Name,
		Slug:         req.Slug,
		Active:       true,
		ContactEmail: req.ContactEmail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	membership := &domain.Membership{
		ID:        uuid.New(),
		TenantID:  tenant.ID,
		UserID:    userID,
		Role:      domain.RoleOwner,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := repository.Tx(r.Context(), h.db, func(tx *sql.Tx) error {
		if err := h.tenants.CreateTx(r.Context(), tx, tenant); err != nil {
			return err
		}
		return h.memberships.CreateTx(r.Context(), tx, membership)
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlugTaken) {
			httputil.Error(w, http.StatusConflict, "slug already in use")
			return
		}
		h.logger.Error("tenant onboarding failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to create tenant")
		return
	}

	h.logger.Info("tenant created", "tenant_id", tenant.ID, "slug", tenant.Slug, "owner", userID)
	httputil.JSON(w, http.StatusCreated, toResponse(tenant))
}

// Get returns the tenant resolved for the request.
// GET /v1/tenant
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenancy.FromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "no tenant resolved")
		return
	}
	httputil.JSON(w, http.StatusOK, toResponse(tenant))
}

// Update changes branding and contact settings. Requires admin.
// PATCH /v1/tenant
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	tenant, userID, ok := h.requireRole(w, r, domain.RoleAdmin)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated := *tenant
	if req.Name != nil {
		updated.Name = *req.Name
	}
	if req.LogoURL != nil {
		updated.LogoURL = req.LogoURL
	}
	if req.ThemeColor != nil {
		updated.ThemeColor = req.ThemeColor
	}
	if req.ContactEmail != nil {
		updated.ContactEmail = req.ContactEmail
	}

	if err := h.tenants.Update(r.Context(), &updated); err != nil {
		h.logger.Error("tenant update failed", "tenant_id", tenant.ID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to update tenant")
		return
	}

	h.logger.Info("tenant updated", "tenant_id", tenant.ID, "by", userID)
	httputil.JSON(w, http.StatusOK, toResponse(&updated))
}

// TransferOwnership promotes another member to owner and demotes the caller
// to admin. Requires owner.
// POST /v1/tenant/transfer-ownership
func (h *Handler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	tenant, userID, ok := h.requireRole(w, r, domain.RoleOwner)
	if !ok {
		return
	}

	var req TransferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	target, err := uuid.Parse(req.UserID)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid user_id")
		return
	}
	if target == userID {
		httputil.Error(w, http.StatusBadRequest, "cannot transfer ownership to yourself")
		return
	}

	if err := h.authority.TransferOwnership(r.Context(), tenant.ID, userID, target); err != nil {
		if errors.Is(err, domain.ErrMembershipNotFound) {
			httputil.Error(w, http.StatusNotFound, "target user is not an active member")
			return
		}
		h.logger.Error("ownership transfer failed", "tenant_id", tenant.ID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to transfer ownership")
		return
	}

	h.logger.Info("ownership transferred", "tenant_id", tenant.ID, "from", userID, "to", target)
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

// Deactivate soft-deactivates the tenant. Requires owner. Data is preserved;
// the tenant simply stops resolving.
// DELETE /v1/tenant
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	tenant, userID, ok := h.requireRole(w, r, domain.RoleOwner)
	if !ok {
		return
	}

	if err := h.tenants.Deactivate(r.Context(), tenant.ID); err != nil {
		h.logger.Error("tenant deactivation failed", "tenant_id", tenant.ID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to deactivate tenant")
		return
	}

	h.logger.Info("tenant deactivated", "tenant_id", tenant.ID, "by", userID)
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

// requireRole extracts the resolved tenant and caller, enforcing a minimum
// role. Writes the error response itself when the check fails.
func (h *Handler) requireRole(w http.ResponseWriter, r *http.Request, min domain.Role) (*domain.Tenant, uuid.UUID, bool) {
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
	if err := h.authority.Require(r.Context(), userID, tenant.ID, min); err != nil {
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
