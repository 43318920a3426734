package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/procurio/procurio/pkg/domain"
)

// MembershipsRepository handles membership data persistence.
type MembershipsRepository struct {
	db *sql.DB
}

// NewMembershipsRepository creates a new memberships repository.
func NewMembershipsRepository(db *sql.DB) *MembershipsRepository {
	return &MembershipsRepository{db: db}
}

const membershipColumns = `id, tenant_id, user_id, role, active, created_at, updated_at, deleted_at`

// roleRankSQL orders memberships by role rank. Must stay in step with the
// ranks in pkg/domain.
const roleRankSQL = `
	CASE role
		WHEN 'owner' THEN 4
		WHEN 'admin' THEN 3
		WHEN 'manager' THEN 2
		WHEN 'member' THEN 1
		ELSE 0
	END
`

func scanMembership(row interface{ Scan(...any) error }) (*domain.Membership, error) {
	m := &domain.Membership{}
	err := row.Scan(
		&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.Active,
		&m.CreatedAt, &m.UpdatedAt, &m.DeletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMembershipNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Create creates a new membership.
func (r *MembershipsRepository) Create(ctx context.Context, m *domain.Membership) error {
	return r.CreateTx(ctx, r.db, m)
}

// CreateTx creates a new membership within a transaction.
func (r *MembershipsRepository) CreateTx(ctx context.Context, q Querier, m *domain.Membership) error {
	query := `
		INSERT INTO memberships (id, tenant_id, user_id, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := q.ExecContext(ctx, query,
		m.ID, m.TenantID, m.UserID, m.Role, m.Active, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

// GetByUserAndTenant retrieves the membership for a user in a tenant.
func (r *MembershipsRepository) GetByUserAndTenant(ctx context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE user_id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`
	return scanMembership(r.db.QueryRowContext(ctx, query, userID, tenantID))
}

// ActiveForUser retrieves all active memberships for a user, highest role
// rank first, ties broken by earliest creation.
func (r *MembershipsRepository) ActiveForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE user_id = $1 AND active AND deleted_at IS NULL
		ORDER BY ` + roleRankSQL + ` DESC, created_at ASC
	`
	return r.queryMemberships(ctx, query, userID)
}

// ListByTenant retrieves all memberships of a tenant, including deactivated
// rows, newest last.
func (r *MembershipsRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Membership, error) {
	query := `
		SELECT ` + membershipColumns + `
		FROM memberships
		WHERE tenant_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC
	`
	return r.queryMemberships(ctx, query, tenantID)
}

func (r *MembershipsRepository) queryMemberships(ctx context.Context, query string, arg any) ([]*domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*domain.Membership
	for rows.Next() {
		m := &domain.Membership{}
		err := rows.Scan(
			&m.ID, &m.TenantID, &m.UserID, &m.Role, &m.Active,
			&m.CreatedAt, &m.UpdatedAt, &m.DeletedAt,
		)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

// UpsertActive inserts a membership, or reactivates the existing row for the
// same (tenant, user) pair with the given role.
func (r *MembershipsRepository) UpsertActive(ctx context.Context, m *domain.Membership) error {
	return r.UpsertActiveTx(ctx, r.db, m)
}

// UpsertActiveTx is UpsertActive within a caller-owned transaction, so
// invitation acceptance can grant the membership atomically with the token
// state change.
func (r *MembershipsRepository) UpsertActiveTx(ctx context.Context, q Querier, m *domain.Membership) error {
	query := `
		INSERT INTO memberships (id, tenant_id, user_id, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6)
		ON CONFLICT (tenant_id, user_id)
		DO UPDATE SET role = EXCLUDED.role, active = TRUE, deleted_at = NULL, updated_at = NOW()
	`
	_, err := q.ExecContext(ctx, query,
		m.ID, m.TenantID, m.UserID, m.Role, m.CreatedAt, m.UpdatedAt,
	)
	return err
}

// UpdateRole changes the role on an active membership.
func (r *MembershipsRepository) UpdateRole(ctx context.Context, tenantID, userID uuid.UUID, role domain.Role) error {
	return r.UpdateRoleTx(ctx, r.db, tenantID, userID, role)
}

// UpdateRoleTx changes the role on an active membership within a transaction.
func (r *MembershipsRepository) UpdateRoleTx(ctx context.Context, q Querier, tenantID, userID uuid.UUID, role domain.Role) error {
	query := `
		UPDATE memberships
		SET role = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND user_id = $2 AND active AND deleted_at IS NULL
	`
	result, err := q.ExecContext(ctx, query, tenantID, userID, role)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}

// TransferOwnership promotes toUserID to owner and demotes fromUserID to
// admin in one transaction. Both must hold active memberships in the tenant.
func (r *MembershipsRepository) TransferOwnership(ctx context.Context, tenantID, fromUserID, toUserID uuid.UUID) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		if err := r.UpdateRoleTx(ctx, tx, tenantID, toUserID, domain.RoleOwner); err != nil {
			return err
		}
		return r.UpdateRoleTx(ctx, tx, tenantID, fromUserID, domain.RoleAdmin)
	})
}

// Deactivate deactivates a membership, preserving the row for audit history.
func (r *MembershipsRepository) Deactivate(ctx context.Context, tenantID, userID uuid.UUID) error {
	query := `
		UPDATE memberships
		SET active = FALSE, updated_at = NOW()
		WHERE tenant_id = $1 AND user_id = $2 AND active AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, tenantID, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrMembershipNotFound
	}
	return nil
}
