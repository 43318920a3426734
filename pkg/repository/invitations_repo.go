package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/procurio/procurio/pkg/domain"
)

// InvitationsRepository handles invitation persistence.
type InvitationsRepository struct {
	db *sql.DB
}

// NewInvitationsRepository creates a new invitations repository.
func NewInvitationsRepository(db *sql.DB) *InvitationsRepository {
	return &InvitationsRepository{db: db}
}

const invitationColumns = `id, tenant_id, email, role, token_hash, status, expires_at, max_uses, used_count, message, invited_by, created_at, updated_at`

func scanInvitation(row interface{ Scan(...any) error }) (*domain.Invitation, error) {
	inv := &domain.Invitation{}
	err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.Email, &inv.Role, &inv.TokenHash,
		&inv.Status, &inv.ExpiresAt, &inv.MaxUses, &inv.UsedCount,
		&inv.Message, &inv.InvitedBy, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvitationNotFound
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// Create creates a new invitation.
func (r *InvitationsRepository) Create(ctx context.Context, inv *domain.Invitation) error {
	query := `
		INSERT INTO invitations (id, tenant_id, email, role, token_hash, status, expires_at, max_uses, used_count, message, invited_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		inv.ID, inv.TenantID, inv.Email, inv.Role, inv.TokenHash,
		inv.Status, inv.ExpiresAt, inv.MaxUses, inv.UsedCount,
		inv.Message, inv.InvitedBy, inv.CreatedAt, inv.UpdatedAt,
	)
	return err
}

// GetByID retrieves an invitation by ID within a tenant.
func (r *InvitationsRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE id = $1 AND tenant_id = $2
	`
	return scanInvitation(r.db.QueryRowContext(ctx, query, id, tenantID))
}

// GetByTokenHashForUpdateTx retrieves an invitation by token hash with an
// exclusive row lock. Concurrent redemptions of the same token serialize
// here; the second caller blocks until the first commits.
func (r *InvitationsRepository) GetByTokenHashForUpdateTx(ctx context.Context, q Querier, tokenHash string) (*domain.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE token_hash = $1
		FOR UPDATE
	`
	return scanInvitation(q.QueryRowContext(ctx, query, tokenHash))
}

// ListByTenant retrieves all invitations of a tenant, newest first.
func (r *InvitationsRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []*domain.Invitation
	for rows.Next() {
		inv := &domain.Invitation{}
		err := rows.Scan(
			&inv.ID, &inv.TenantID, &inv.Email, &inv.Role, &inv.TokenHash,
			&inv.Status, &inv.ExpiresAt, &inv.MaxUses, &inv.UsedCount,
			&inv.Message, &inv.InvitedBy, &inv.CreatedAt, &inv.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// UpdateStatusTx sets the invitation status within a transaction.
func (r *InvitationsRepository) UpdateStatusTx(ctx context.Context, q Querier, id uuid.UUID, status domain.InvitationStatus) error {
	query := `
		UPDATE invitations
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	result, err := q.ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrInvitationNotFound
	}
	return nil
}

// RecordUseTx increments the usage counter and applies the resulting status
// within a transaction. Callers must hold the row lock.
func (r *InvitationsRepository) RecordUseTx(ctx context.Context, q Querier, id uuid.UUID, status domain.InvitationStatus) error {
	query := `
		UPDATE invitations
		SET used_count = used_count + 1, status = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := q.ExecContext(ctx, query, id, status)
	return err
}

// Renew extends a pending invitation's expiration, optionally rotating the
// token hash. Used by resend; pending is the only state it applies to.
func (r *InvitationsRepository) Renew(ctx context.Context, id uuid.UUID, expiresAt time.Time, tokenHash *string) error {
	query := `
		UPDATE invitations
		SET expires_at = $2,
		    token_hash = COALESCE($3, token_hash),
		    updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	result, err := r.db.ExecContext(ctx, query, id, expiresAt, tokenHash)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrInvitationNotFound
	}
	return nil
}
