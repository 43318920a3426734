package tenancy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/procurio/procurio/pkg/domain"
)

type fakeMembershipStore struct {
	*fakeMemberships
	deactivated  [][2]uuid.UUID
	transferred  bool
	transferArgs [3]uuid.UUID
}

func newFakeMembershipStore() *fakeMembershipStore {
	return &fakeMembershipStore{fakeMemberships: newFakeMemberships()}
}

func (f *fakeMembershipStore) UpsertActive(_ context.Context, m *domain.Membership) error {
	f.add(m)
	return nil
}

func (f *fakeMembershipStore) Deactivate(_ context.Context, tenantID, userID uuid.UUID) error {
	f.deactivated = append(f.deactivated, [2]uuid.UUID{tenantID, userID})
	if m, ok := f.byPair[userID.String()+"/"+tenantID.String()]; ok {
		m.Active = false
	}
	return nil
}

func (f *fakeMembershipStore) TransferOwnership(_ context.Context, tenantID, fromUserID, toUserID uuid.UUID) error {
	f.transferred = true
	f.transferArgs = [3]uuid.UUID{tenantID, fromUserID, toUserID}
	return nil
}

func TestAuthorityHasRole(t *testing.T) {
	store := newFakeMembershipStore()
	tenantID := uuid.New()
	adminID := uuid.New()
	memberID := uuid.New()
	strangerID := uuid.New()
	inactiveID := uuid.New()

	store.add(membership(adminID, tenantID, domain.RoleAdmin))
	store.add(membership(memberID, tenantID, domain.RoleMember))
	inactive := membership(inactiveID, tenantID, domain.RoleOwner)
	inactive.Active = false
	store.add(inactive)

	auth := NewAuthority(store)

	tests := []struct {
		name   string
		userID uuid.UUID
		min    domain.Role
		want   bool
	}{
		{"admin meets admin", adminID, domain.RoleAdmin, true},
		{"admin meets member", adminID, domain.RoleMember, true},
		{"admin below owner", adminID, domain.RoleOwner, false},
		{"member below admin", memberID, domain.RoleAdmin, false},
		{"non-member has nothing", strangerID, domain.RoleGuest, false},
		{"inactive membership grants nothing", inactiveID, domain.RoleGuest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := auth.HasRole(context.Background(), tt.userID, tenantID, tt.min)
			if err != nil {
				t.Fatalf("HasRole() = %v", err)
			}
			if got != tt.want {
				t.Errorf("HasRole() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthorityRequire(t *testing.T) {
	store := newFakeMembershipStore()
	tenantID := uuid.New()
	memberID := uuid.New()
	store.add(membership(memberID, tenantID, domain.RoleMember))

	auth := NewAuthority(store)

	if err := auth.Require(context.Background(), memberID, tenantID, domain.RoleMember); err != nil {
		t.Errorf("Require(member) = %v, want nil", err)
	}
	if err := auth.Require(context.Background(), memberID, tenantID, domain.RoleAdmin); !errors.Is(err, domain.ErrInsufficientRole) {
		t.Errorf("Require(admin) = %v, want ErrInsufficientRole", err)
	}
}

func TestAuthorityGrantAndRevoke(t *testing.T) {
	store := newFakeMembershipStore()
	tenantID := uuid.New()
	userID := uuid.New()

	auth := NewAuthority(store)

	m, err := auth.Grant(context.Background(), userID, tenantID, domain.RoleManager)
	if err != nil {
		t.Fatalf("Grant() = %v", err)
	}
	if m.Role != domain.RoleManager || !m.Active {
		t.Errorf("granted membership = %+v, want active manager", m)
	}

	ok, err := auth.HasRole(context.Background(), userID, tenantID, domain.RoleManager)
	if err != nil || !ok {
		t.Fatalf("HasRole() after grant = %v, %v", ok, err)
	}

	if err := auth.Revoke(context.Background(), userID, tenantID); err != nil {
		t.Fatalf("Revoke() = %v", err)
	}
	ok, err = auth.HasRole(context.Background(), userID, tenantID, domain.RoleGuest)
	if err != nil || ok {
		t.Errorf("HasRole() after revoke = %v, %v; want false", ok, err)
	}
}

func TestAuthorityTransferOwnership(t *testing.T) {
	store := newFakeMembershipStore()
	tenantID := uuid.New()
	from := uuid.New()
	to := uuid.New()

	auth := NewAuthority(store)
	if err := auth.TransferOwnership(context.Background(), tenantID, from, to); err != nil {
		t.Fatalf("TransferOwnership() = %v", err)
	}
	if !store.transferred || store.transferArgs != [3]uuid.UUID{tenantID, from, to} {
		t.Errorf("transfer not delegated with expected args: %v", store.transferArgs)
	}
}
