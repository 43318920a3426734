package tenancy

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/procurio/procurio/pkg/domain"
)

// MembershipStore extends MembershipSource with the mutations the authority
// performs. Satisfied by repository.MembershipsRepository.
type MembershipStore interface {
	MembershipSource
	UpsertActive(ctx context.Context, m *domain.Membership) error
	Deactivate(ctx context.Context, tenantID, userID uuid.UUID) error
	TransferOwnership(ctx context.Context, tenantID, fromUserID, toUserID uuid.UUID) error
}

// Authority answers role questions and mutates memberships. It backs the
// resolver's fallback path and the authorization checks on mutation
// endpoints.
type Authority struct {
	memberships MembershipStore
}

// NewAuthority creates a new membership authority.
func NewAuthority(memberships MembershipStore) *Authority {
	return &Authority{memberships: memberships}
}

// MembershipsFor returns the user's active memberships, highest role rank
// first, ties broken by earliest creation.
func (a *Authority) MembershipsFor(ctx context.Context, userID uuid.UUID) ([]*domain.Membership, error) {
	return a.memberships.ActiveForUser(ctx, userID)
}

// HasRole reports whether the user holds an active membership in the tenant
// at or above the minimum role.
func (a *Authority) HasRole(ctx context.Context, userID, tenantID uuid.UUID, min domain.Role) (bool, error) {
	m, err := a.memberships.GetByUserAndTenant(ctx, userID, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrMembershipNotFound) {
			return false, nil
		}
		return false, err
	}
	return m.IsActive() && m.Role.AtLeast(min), nil
}

// Require returns ErrInsufficientRole unless the user holds at least the
// minimum role in the tenant.
func (a *Authority) Require(ctx context.Context, userID, tenantID uuid.UUID, min domain.Role) error {
	ok, err := a.HasRole(ctx, userID, tenantID, min)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInsufficientRole
	}
	return nil
}

// Grant creates a membership, or reactivates an existing one for the same
// (user, tenant) pair with the given role.
func (a *Authority) Grant(ctx context.Context, userID, tenantID uuid.UUID, role domain.Role) (*domain.Membership, error) {
	now := time.Now()
	m := &domain.Membership{
		ID:        uuid.New(),
		TenantID:  tenantID,
		UserID:    userID,
		Role:      role,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.memberships.UpsertActive(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Revoke deactivates the user's membership in the tenant. The row survives
// for audit history.
func (a *Authority) Revoke(ctx context.Context, userID, tenantID uuid.UUID) error {
	return a.memberships.Deactivate(ctx, tenantID, userID)
}

// TransferOwnership promotes the target to owner and demotes the current
// owner to admin, in one transaction.
func (a *Authority) TransferOwnership(ctx context.Context, tenantID, fromUserID, toUserID uuid.UUID) error {
	return a.memberships.TransferOwnership(ctx, tenantID, fromUserID, toUserID)
}
