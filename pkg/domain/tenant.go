package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant represents an isolated customer organization. All tenants share one
// schema; every owned record carries a tenant reference.
type Tenant struct {
	ID           uuid.UUID
	Name         string
	Slug         string // globally unique, immutable once assigned
	Active       bool
	LogoURL      *string
	ThemeColor   *string
	ContactEmail *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// IsActive returns true if the tenant can serve requests.
func (t *Tenant) IsActive() bool {
	return t.Active && t.DeletedAt == nil
}

// TenantDomain maps a hostname to exactly one tenant. At most one domain per
// tenant may be flagged primary.
type TenantDomain struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Hostname  string // globally unique
	IsPrimary bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
