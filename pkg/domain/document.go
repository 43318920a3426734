package domain

import (
	"time"

	"github.com/google/uuid"
)

// DocType identifies a numbered document series within a tenant.
type DocType string

const (
	DocTypePurchaseOrder DocType = "purchase_order"
	DocTypeSalesOrder    DocType = "sales_order"
	DocTypeInvoice       DocType = "invoice"
)

// Valid returns true if the document type is a known series.
func (d DocType) Valid() bool {
	switch d {
	case DocTypePurchaseOrder, DocTypeSalesOrder, DocTypeInvoice:
		return true
	}
	return false
}

// Document is a numbered business document owned by a tenant. Number is
// issued by the sequence allocator and is unique per (tenant, doc type).
type Document struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	DocType   DocType
	Number    int64
	Reference string
	CreatedBy uuid.UUID
	CreatedAt time.Time
}

// SetTenantID satisfies the tenancy gate's ownership contract. The gate
// overwrites any caller-supplied tenant with the one resolved for the request.
func (d *Document) SetTenantID(id uuid.UUID) {
	d.TenantID = id
}

// SequenceCounter is the per-(tenant, doc type) serialization point for
// document numbering. Value only ever increases; rows are created lazily on
// first use and never deleted.
type SequenceCounter struct {
	TenantID  uuid.UUID
	DocType   DocType
	Value     int64
	UpdatedAt time.Time
}
