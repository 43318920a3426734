package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/procurio/procurio/pkg/domain"
)

// DomainsRepository handles hostname-to-tenant mapping persistence.
type DomainsRepository struct {
	db *sql.DB
}

// NewDomainsRepository creates a new domains repository.
func NewDomainsRepository(db *sql.DB) *DomainsRepository {
	return &DomainsRepository{db: db}
}

// Create creates a new domain mapping.
func (r *DomainsRepository) Create(ctx context.Context, d *domain.TenantDomain) error {
	query := `
		INSERT INTO tenant_domains (id, tenant_id, hostname, is_primary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		d.ID, d.TenantID, d.Hostname, d.IsPrimary, d.CreatedAt, d.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domain.ErrHostnameTaken
	}
	return err
}

// GetByHostname retrieves a domain by exact hostname.
func (r *DomainsRepository) GetByHostname(ctx context.Context, hostname string) (*domain.TenantDomain, error) {
	query := `
		SELECT id, tenant_id, hostname, is_primary, created_at, updated_at
		FROM tenant_domains
		WHERE hostname = $1
	`
	d := &domain.TenantDomain{}
	err := r.db.QueryRowContext(ctx, query, hostname).Scan(
		&d.ID, &d.TenantID, &d.Hostname, &d.IsPrimary, &d.CreatedAt, &d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDomainNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListByTenant retrieves all domains mapped to a tenant, primary first.
func (r *DomainsRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.TenantDomain, error) {
	query := `
		SELECT id, tenant_id, hostname, is_primary, created_at, updated_at
		FROM tenant_domains
		WHERE tenant_id = $1
		ORDER BY is_primary DESC, created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var domains []*domain.TenantDomain
	for rows.Next() {
		d := &domain.TenantDomain{}
		err := rows.Scan(&d.ID, &d.TenantID, &d.Hostname, &d.IsPrimary, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return nil, err
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

// SetPrimary marks one domain as the tenant's primary, clearing the flag on
// all others in the same transaction so at most one primary ever exists.
func (r *DomainsRepository) SetPrimary(ctx context.Context, tenantID, domainID uuid.UUID) error {
	return Tx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE tenant_domains
			SET is_primary = FALSE, updated_at = NOW()
			WHERE tenant_id = $1 AND is_primary
		`, tenantID)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE tenant_domains
			SET is_primary = TRUE, updated_at = NOW()
			WHERE id = $1 AND tenant_id = $2
		`, domainID, tenantID)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrDomainNotFound
		}
		return nil
	})
}

// Delete removes a retired hostname mapping.
func (r *DomainsRepository) Delete(ctx context.Context, tenantID, domainID uuid.UUID) error {
	query := `DELETE FROM tenant_domains WHERE id = $1 AND tenant_id = $2`
	result, err := r.db.ExecContext(ctx, query, domainID, tenantID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrDomainNotFound
	}
	return nil
}
