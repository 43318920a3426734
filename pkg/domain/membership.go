package domain

import (
	"time"

	"github.com/google/uuid"
)

// Membership associates a user with a tenant under a ranked role. A given
// (user, tenant) pair holds at most one membership; removal deactivates the
// row rather than deleting it so audit history survives.
type Membership struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	UserID    uuid.UUID
	Role      Role
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// IsActive returns true if the membership grants access.
func (m *Membership) IsActive() bool {
	return m.Active && m.DeletedAt == nil
}
