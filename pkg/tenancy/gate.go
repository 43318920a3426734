package tenancy

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/procurio/procurio/pkg/domain"
)

// Owned is implemented by entities carrying a tenant reference. The gate uses
// it to stamp the resolved tenant onto new entities.
type Owned interface {
	SetTenantID(id uuid.UUID)
}

// Gate is the mandatory interception point for tenant-owned data access.
// Repositories build statements through it so the tenant predicate cannot be
// forgotten on an individual query; a missing tenant in the context fails
// closed rather than widening the statement to all tenants.
type Gate struct{}

// NewGate creates a new data gate.
func NewGate() *Gate {
	return &Gate{}
}

// ScopedSelect constrains a select to the context tenant.
func (g *Gate) ScopedSelect(ctx context.Context, b sq.SelectBuilder) (sq.SelectBuilder, error) {
	tenantID, err := TenantID(ctx)
	if err != nil {
		return b, err
	}
	return b.Where(sq.Eq{"tenant_id": tenantID}), nil
}

// ScopedUpdate constrains an update to the context tenant.
func (g *Gate) ScopedUpdate(ctx context.Context, b sq.UpdateBuilder) (sq.UpdateBuilder, error) {
	tenantID, err := TenantID(ctx)
	if err != nil {
		return b, err
	}
	return b.Where(sq.Eq{"tenant_id": tenantID}), nil
}

// ScopedDelete constrains a delete to the context tenant.
func (g *Gate) ScopedDelete(ctx context.Context, b sq.DeleteBuilder) (sq.DeleteBuilder, error) {
	tenantID, err := TenantID(ctx)
	if err != nil {
		return b, err
	}
	return b.Where(sq.Eq{"tenant_id": tenantID}), nil
}

// Stamp forcibly sets the entity's tenant to the context tenant, overriding
// any caller-supplied value. Returns the tenant ID that was applied.
func (g *Gate) Stamp(ctx context.Context, entity Owned) (uuid.UUID, error) {
	tenantID, err := TenantID(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	entity.SetTenantID(tenantID)
	return tenantID, nil
}

// ensure the gate can stamp documents
var _ Owned = (*domain.Document)(nil)
