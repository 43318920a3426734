package domain

import (
	"time"

	"github.com/google/uuid"
)

// InvitationStatus represents the state of an invitation. Transitions are
// one-directional: pending is the only non-terminal state.
type InvitationStatus string

const (
	InvitationStatusPending   InvitationStatus = "pending"
	InvitationStatusAccepted  InvitationStatus = "accepted"
	InvitationStatusExpired   InvitationStatus = "expired"
	InvitationStatusRevoked   InvitationStatus = "revoked"
	InvitationStatusExhausted InvitationStatus = "exhausted"
)

// Invitation grants a membership in a tenant on acceptance. Email-bound
// invitations are single-use; a nil email with MaxUses > 1 is a reusable
// link redeemable until the usage cap is reached.
type Invitation struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Email     *string // nil for reusable links
	Role      Role
	TokenHash string // SHA-256 of the raw token; raw token is never stored
	Status    InvitationStatus
	ExpiresAt time.Time
	MaxUses   int
	UsedCount int
	Message   *string
	InvitedBy uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Reusable returns true for golden-ticket invitations not bound to an email.
func (i *Invitation) Reusable() bool {
	return i.Email == nil && i.MaxUses > 1
}

// ExpiredAt returns true if the invitation is past its expiration at the
// given instant, regardless of stored status. Expiry is checked lazily on
// access rather than by a background sweep.
func (i *Invitation) ExpiredAt(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// Redeemable reports whether the invitation can be accepted at the given
// instant. Callers performing the actual redemption must re-check under a
// row lock; this is the pure state-machine rule.
func (i *Invitation) Redeemable(now time.Time) error {
	if i.Status != InvitationStatusPending {
		return ErrInvitationInvalid
	}
	if i.ExpiredAt(now) {
		return ErrInvitationInvalid
	}
	if i.UsedCount >= i.MaxUses {
		return ErrInvitationInvalid
	}
	return nil
}
