package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/procurio/procurio/pkg/domain"
)

// SequencesRepository handles sequence counter persistence. All methods take
// a Querier because counter access only makes sense inside the allocator's
// transaction.
type SequencesRepository struct{}

// NewSequencesRepository creates a new sequences repository.
func NewSequencesRepository() *SequencesRepository {
	return &SequencesRepository{}
}

// EnsureTx lazily creates the counter row at zero. A no-op when the row
// already exists; safe to race, the conflict target absorbs concurrent
// first-use inserts.
func (r *SequencesRepository) EnsureTx(ctx context.Context, q Querier, tenantID uuid.UUID, docType domain.DocType) error {
	query := `
		INSERT INTO sequence_counters (tenant_id, doc_type, value, updated_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (tenant_id, doc_type) DO NOTHING
	`
	_, err := q.ExecContext(ctx, query, tenantID, docType)
	return err
}

// LockTx acquires an exclusive row lock on the counter and returns its
// current value. The caller's transaction is the serialization point for the
// (tenant, doc type) pair; counters for other pairs never contend.
func (r *SequencesRepository) LockTx(ctx context.Context, q Querier, tenantID uuid.UUID, docType domain.DocType) (int64, error) {
	query := `
		SELECT value
		FROM sequence_counters
		WHERE tenant_id = $1 AND doc_type = $2
		FOR UPDATE
	`
	var value int64
	err := q.QueryRowContext(ctx, query, tenantID, docType).Scan(&value)
	return value, err
}

// SetTx persists a new counter value under the lock held by LockTx.
func (r *SequencesRepository) SetTx(ctx context.Context, q Querier, tenantID uuid.UUID, docType domain.DocType, value int64) error {
	query := `
		UPDATE sequence_counters
		SET value = $3, updated_at = NOW()
		WHERE tenant_id = $1 AND doc_type = $2
	`
	_, err := q.ExecContext(ctx, query, tenantID, docType, value)
	return err
}
