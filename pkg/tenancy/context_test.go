package tenancy

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/procurio/procurio/pkg/domain"
)

func TestTenantIDFailsClosed(t *testing.T) {
	if _, err := TenantID(context.Background()); !errors.Is(err, domain.ErrTenantRequired) {
		t.Errorf("TenantID() on bare context = %v, want ErrTenantRequired", err)
	}
}

func TestTenantIDRoundTrip(t *testing.T) {
	tenant := &domain.Tenant{ID: uuid.New(), Active: true}
	ctx := WithTenant(context.Background(), tenant)

	id, err := TenantID(ctx)
	if err != nil {
		t.Fatalf("TenantID() = %v, want nil", err)
	}
	if id != tenant.ID {
		t.Errorf("TenantID() = %s, want %s", id, tenant.ID)
	}

	got, ok := FromContext(ctx)
	if !ok || got != tenant {
		t.Errorf("FromContext() = %v, %v; want stored tenant", got, ok)
	}
}

func TestTenantIDNilTenant(t *testing.T) {
	ctx := WithTenant(context.Background(), nil)
	if _, err := TenantID(ctx); !errors.Is(err, domain.ErrTenantRequired) {
		t.Errorf("TenantID() with nil tenant = %v, want ErrTenantRequired", err)
	}
}
