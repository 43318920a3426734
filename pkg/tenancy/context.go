package tenancy

import (
	"context"

	"github.com/google/uuid"
	"github.com/procurio/procurio/pkg/domain"
)

type contextKey string

const tenantKey contextKey = "tenant"

// WithTenant returns a context carrying the resolved tenant. Set exactly once
// per request by the resolution middleware; the tenant for a request never
// changes after resolution.
func WithTenant(ctx context.Context, tenant *domain.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, tenant)
}

// FromContext extracts the resolved tenant from the context.
func FromContext(ctx context.Context) (*domain.Tenant, bool) {
	tenant, ok := ctx.Value(tenantKey).(*domain.Tenant)
	return tenant, ok
}

// TenantID returns the resolved tenant's ID, failing closed with
// ErrTenantRequired when no tenant is present. Every tenant-scoped data
// operation goes through this check; there is no "all tenants" default.
func TenantID(ctx context.Context) (uuid.UUID, error) {
	tenant, ok := FromContext(ctx)
	if !ok || tenant == nil {
		return uuid.Nil, domain.ErrTenantRequired
	}
	return tenant.ID, nil
}
