package invites

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/procurio/procurio/internal/http/middleware"
	"github.com/procurio/procurio/internal/httputil"
	"github.com/procurio/procurio/pkg/domain"
	"github.com/procurio/procurio/pkg/invite"
	"github.com/procurio/procurio/pkg/tenancy"
)

// Handler handles invitation lifecycle endpoints.
type Handler struct {
	logger    *slog.Logger
	invites   *invite.Service
	authority *tenancy.Authority
}

// NewHandler creates a new invites handler.
func NewHandler(logger *slog.Logger, invites *invite.Service, authority *tenancy.Authority) *Handler {
	return &Handler{logger: logger, invites: invites, authority: authority}
}

// CreateRequest represents an invitation creation request. Omitting email
// with max_uses > 1 creates a reusable link.
type CreateRequest struct {
	Email   *string `json:"email,omitempty"`
	Role    string  `json:"role"`
	MaxUses int     `json:"max_uses,omitempty"`
	Message *string `json:"message,omitempty"`
}

// ResendRequest represents an invitation resend request.
type ResendRequest struct {
	RotateToken bool `json:"rotate_token,omitempty"`
}

// AcceptRequest represents a token redemption request.
type AcceptRequest struct {
	Token string `json:"token"`
}

// InvitationResponse is the wire representation of an invitation. The raw
// token only appears on create and rotation; it is never retrievable later.
type InvitationResponse struct {
	ID        string  `json:"id"`
	Email     *string `json:"email,omitempty"`
	Role      string  `json:"role"`
	Status    string  `json:"status"`
	ExpiresAt string  `json:"expires_at"`
	MaxUses   int     `json:"max_uses"`
	UsedCount int     `json:"used_count"`
	Token     string  `json:"token,omitempty"`
}

func toResponse(inv *domain.Invitation, rawToken string) InvitationResponse {
	return InvitationResponse{
		ID:        inv.ID.String(),
		Email:     inv.Email,
		Role:      string(inv.Role),
		Status:    string(inv.Status),
		ExpiresAt: inv.ExpiresAt.Format(time.RFC3339),
		MaxUses:   inv.MaxUses,
		UsedCount: inv.UsedCount,
		Token:     rawToken,
	}
}

// Create issues a new invitation. Requires admin.
// POST /v1/tenant/invites
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, userID, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	role := domain.Role(req.Role)
	if !role.Valid() {
		httputil.Error(w, http.StatusBadRequest, "invalid role")
		return
	}
	if role == domain.RoleOwner {
		httputil.Error(w, http.StatusBadRequest, "ownership is transferred, not granted by invitation")
		return
	}

	inv, rawToken, err := h.invites.Create(r.Context(), invite.CreateOpts{
		TenantID:  tenant.ID,
		Email:     req.Email,
		Role:      role,
		MaxUses:   req.MaxUses,
		Message:   req.Message,
		InvitedBy: userID,
	})
	if err != nil {
		h.logger.Error("failed to create invitation", "tenant_id", tenant.ID, "error", err)
		httputil.Error(w, http.StatusBadRequest, "failed to create invitation")
		return
	}

	httputil.JSON(w, http.StatusCreated, toResponse(inv, rawToken))
}

// List returns the tenant's invitations. Requires admin.
// GET /v1/tenant/invites
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenant, _, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	list, err := h.invites.List(r.Context(), tenant.ID)
	if err != nil {
		h.logger.Error("failed to list invitations", "tenant_id", tenant.ID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to list invitations")
		return
	}

	out := make([]InvitationResponse, 0, len(list))
	for _, inv := range list {
		out = append(out, toResponse(inv, ""))
	}
	httputil.JSON(w, http.StatusOK, out)
}

// Resend extends a pending invitation's expiration and redispatches the
// email. Requires admin.
// POST /v1/tenant/invites/{id}/resend
func (h *Handler) Resend(w http.ResponseWriter, r *http.Request) {
	tenant, _, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid invitation id")
		return
	}

	var req ResendRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	inv, rawToken, err := h.invites.Resend(r.Context(), tenant.ID, id, req.RotateToken)
	if err != nil {
		h.respondLifecycleError(w, tenant.ID, err, "failed to resend invitation")
		return
	}

	httputil.JSON(w, http.StatusOK, toResponse(inv, rawToken))
}

// Revoke terminates a pending invitation. Requires admin.
// DELETE /v1/tenant/invites/{id}
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	tenant, _, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid invitation id")
		return
	}

	if err := h.invites.Revoke(r.Context(), tenant.ID, id); err != nil {
		h.respondLifecycleError(w, tenant.ID, err, "failed to revoke invitation")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// Accept redeems an invitation token for the calling user. Does not require
// a resolved tenant; the token itself names the tenant.
// POST /v1/invites/accept
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req AcceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		httputil.Error(w, http.StatusBadRequest, "token is required")
		return
	}

	membership, err := h.invites.Accept(r.Context(), req.Token, userID)
	if err != nil {
		if errors.Is(err, domain.ErrInvitationInvalid) {
			httputil.Error(w, http.StatusGone, "invitation is no longer valid")
			return
		}
		h.logger.Error("invitation acceptance failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to accept invitation")
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{
		"tenant_id": membership.TenantID.String(),
		"role":      string(membership.Role),
	})
}

func (h *Handler) respondLifecycleError(w http.ResponseWriter, tenantID uuid.UUID, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvitationNotFound):
		httputil.Error(w, http.StatusNotFound, "invitation not found")
	case errors.Is(err, domain.ErrInvitationInvalid):
		httputil.Error(w, http.StatusGone, "invitation is no longer pending")
	default:
		h.logger.Error(fallback, "tenant_id", tenantID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, fallback)
	}
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
