package repository

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/procurio/procurio/pkg/domain"
	"github.com/procurio/procurio/pkg/metrics"
	"github.com/procurio/procurio/pkg/tenancy"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DocumentsRepository handles numbered business documents. Every statement
// goes through the tenancy gate: reads are constrained to the resolved
// tenant and writes are stamped with it, so a query scoped to the wrong
// tenant cannot be expressed here.
type DocumentsRepository struct {
	db   *sql.DB
	gate *tenancy.Gate
}

// NewDocumentsRepository creates a new documents repository.
func NewDocumentsRepository(db *sql.DB, gate *tenancy.Gate) *DocumentsRepository {
	return &DocumentsRepository{db: db, gate: gate}
}

const documentColumns = "id, tenant_id, doc_type, number, reference, created_by, created_at"

// Create inserts a document. The tenant reference is forcibly overwritten
// with the context tenant; a caller-supplied tenant is ignored.
func (r *DocumentsRepository) Create(ctx context.Context, doc *domain.Document) error {
	if _, err := r.gate.Stamp(ctx, doc); err != nil {
		metrics.TenantContextMissingTotal.Inc()
		return err
	}

	query, args, err := psql.Insert("documents").
		Columns("id", "tenant_id", "doc_type", "number", "reference", "created_by", "created_at").
		Values(doc.ID, doc.TenantID, doc.DocType, doc.Number, doc.Reference, doc.CreatedBy, doc.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

// GetByID retrieves a document within the resolved tenant.
func (r *DocumentsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Document, error) {
	b, err := r.gate.ScopedSelect(ctx, psql.Select(documentColumns).
		From("documents").
		Where(sq.Eq{"id": id}))
	if err != nil {
		metrics.TenantContextMissingTotal.Inc()
		return nil, err
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{}
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&doc.ID, &doc.TenantID, &doc.DocType, &doc.Number,
		&doc.Reference, &doc.CreatedBy, &doc.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// List retrieves the resolved tenant's documents, optionally filtered by
// type, in issue order.
func (r *DocumentsRepository) List(ctx context.Context, docType *domain.DocType) ([]*domain.Document, error) {
	b := psql.Select(documentColumns).
		From("documents").
		OrderBy("doc_type ASC", "number ASC")
	if docType != nil {
		b = b.Where(sq.Eq{"doc_type": *docType})
	}

	b, err := r.gate.ScopedSelect(ctx, b)
	if err != nil {
		metrics.TenantContextMissingTotal.Inc()
		return nil, err
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var documents []*domain.Document
	for rows.Next() {
		doc := &domain.Document{}
		err := rows.Scan(
			&doc.ID, &doc.TenantID, &doc.DocType, &doc.Number,
			&doc.Reference, &doc.CreatedBy, &doc.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}
	return documents, rows.Err()
}

// Delete removes a document within the resolved tenant.
func (r *DocumentsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	b, err := r.gate.ScopedDelete(ctx, psql.Delete("documents").Where(sq.Eq{"id": id}))
	if err != nil {
		metrics.TenantContextMissingTotal.Inc()
		return err
	}

	query, args, err := b.ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
