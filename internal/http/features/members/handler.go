package members

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/procurio/procurio/internal/http/middleware"
	"github.com/procurio/procurio/internal/httputil"
	"github.com/procurio/procurio/pkg/domain"
	"github.com/procurio/procurio/pkg/repository"
	"github.com/procurio/procurio/pkg/tenancy"
)

// Handler handles tenant membership endpoints.
type Handler struct {
	logger      *slog.Logger
	memberships *repository.MembershipsRepository
	authority   *tenancy.Authority
}

// NewHandler creates a new members handler.
func NewHandler(logger *slog.Logger, memberships *repository.MembershipsRepository, authority *tenancy.Authority) *Handler {
	return &Handler{logger: logger, memberships: memberships, authority: authority}
}

// MemberResponse is the wire representation of a membership.
type MemberResponse struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

// List returns the tenant's memberships, including deactivated ones for
// audit visibility.
// GET /v1/tenant/members
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenancy.FromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "no tenant resolved")
		return
	}

	list, err := h.memberships.ListByTenant(r.Context(), tenant.ID)
	if err != nil {
		h.logger.Error("failed to list members", "tenant_id", tenant.ID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to list members")
		return
	}

	out := make([]MemberResponse, 0, len(list))
	for _, m := range list {
		out = append(out, MemberResponse{
			UserID:    m.UserID.String(),
			Role:      string(m.Role),
			Active:    m.Active,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}
	httputil.JSON(w, http.StatusOK, out)
}

// Remove deactivates a member. Requires admin; removing a member who ranks
// at or above the caller requires outranking them, so an admin cannot remove
// the owner or a fellow admin.
// DELETE /v1/tenant/members/{userID}
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenancy.FromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "no tenant resolved")
		return
	}
	callerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	targetID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	caller, err := h.memberships.GetByUserAndTenant(r.Context(), callerID, tenant.ID)
	if err != nil || !caller.IsActive() || !caller.Role.AtLeast(domain.RoleAdmin) {
		httputil.Error(w, http.StatusForbidden, "insufficient role")
		return
	}

	target, err := h.memberships.GetByUserAndTenant(r.Context(), targetID, tenant.ID)
	if err != nil {
		if errors.Is(err, domain.ErrMembershipNotFound) {
			httputil.Error(w, http.StatusNotFound, "member not found")
			return
		}
		h.logger.Error("member lookup failed", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to remove member")
		return
	}
	if targetID != callerID && target.Role.Rank() >= caller.Role.Rank() {
		httputil.Error(w, http.StatusForbidden, "cannot remove a member of equal or higher role")
		return
	}

	if err := h.authority.Revoke(r.Context(), targetID, tenant.ID); err != nil {
		if errors.Is(err, domain.ErrMembershipNotFound) {
			httputil.Error(w, http.StatusNotFound, "member not found")
			return
		}
		h.logger.Error("failed to remove member", "tenant_id", tenant.ID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to remove member")
		return
	}

	h.logger.Info("membership revoked", "tenant_id", tenant.ID, "user_id", targetID, "by", callerID)
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
