package documents

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/procurio/procurio/internal/http/middleware"
	"github.com/procurio/procurio/internal/httputil"
	"github.com/procurio/procurio/pkg/domain"
	"github.com/procurio/procurio/pkg/repository"
	"github.com/procurio/procurio/pkg/sequence"
	"github.com/procurio/procurio/pkg/tenancy"
)

// Handler handles numbered business document endpoints.
type Handler struct {
	logger    *slog.Logger
	documents *repository.DocumentsRepository
	allocator *sequence.Allocator
}

// NewHandler creates a new documents handler.
func NewHandler(logger *slog.Logger, documents *repository.DocumentsRepository, allocator *sequence.Allocator) *Handler {
	return &Handler{logger: logger, documents: documents, allocator: allocator}
}

// CreateRequest represents a document creation request. Any tenant_id a
// client smuggles into the payload is ignored; the data gate stamps the
// resolved tenant.
type CreateRequest struct {
	DocType   string `json:"doc_type"`
	Reference string `json:"reference,omitempty"`
}

// DocumentResponse is the wire representation of a document.
type DocumentResponse struct {
	ID        string `json:"id"`
	DocType   string `json:"doc_type"`
	Number    int64  `json:"number"`
	Reference string `json:"reference,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toResponse(d *domain.Document) DocumentResponse {
	return DocumentResponse{
		ID:        d.ID.String(),
		DocType:   string(d.DocType),
		Number:    d.Number,
		Reference: d.Reference,
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
	}
}

// Create issues the next number in the tenant's series for the document type
// and persists the document.
// POST /v1/tenant/documents
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenancy.FromContext(r.Context())
	if !ok {
		httputil.Error(w, http.StatusBadRequest, "no tenant resolved")
		return
	}
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	docType := domain.DocType(req.DocType)
	if !docType.Valid() {
		httputil.Error(w, http.StatusBadRequest, "doc_type must be purchase_order, sales_order or invoice")
		return
	}

	number, err := h.allocator.NextNumber(r.Context(), tenant.ID, docType)
	if err != nil {
		if errors.Is(err, domain.ErrSequenceExhausted) {
			h.logger.Error("sequence allocation failed", "tenant_id", tenant.ID, "doc_type", docType, "error", err)
			httputil.Error(w, http.StatusServiceUnavailable, "document numbering temporarily unavailable")
			return
		}
		h.logger.Error("sequence allocation error", "tenant_id", tenant.ID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to allocate document number")
		return
	}

	doc := &domain.Document{
		ID:        uuid.New(),
		DocType:   docType,
		Number:    number,
		Reference: req.Reference,
		CreatedBy: userID,
		CreatedAt: time.Now(),
	}
	if err := h.documents.Create(r.Context(), doc); err != nil {
		h.logger.Error("failed to create document", "tenant_id", tenant.ID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to create document")
		return
	}

	httputil.JSON(w, http.StatusCreated, toResponse(doc))
}

// Get returns a single document within the resolved tenant.
// GET /v1/tenant/documents/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	doc, err := h.documents.GetByID(r.Context(), id)
	if err != nil {
		h.respondLookupError(w, err, "failed to get document")
		return
	}
	httputil.JSON(w, http.StatusOK, toResponse(doc))
}

// Delete removes a document within the resolved tenant.
// DELETE /v1/tenant/documents/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid document id")
		return
	}

	if err := h.documents.Delete(r.Context(), id); err != nil {
		h.respondLookupError(w, err, "failed to delete document")
		return
	}
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) respondLookupError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		httputil.Error(w, http.StatusNotFound, "document not found")
	case errors.Is(err, domain.ErrTenantRequired):
		httputil.Error(w, http.StatusBadRequest, "no tenant resolved")
	default:
		h.logger.Error(fallback, "error", err)
		httputil.Error(w, http.StatusInternalServerError, fallback)
	}
}

// List returns the tenant's documents, optionally filtered by ?type=.
// GET /v1/tenant/documents
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var docType *domain.DocType
	if t := r.URL.Query().Get("type"); t != "" {
		dt := domain.DocType(t)
		if !dt.Valid() {
			httputil.Error(w, http.StatusBadRequest, "unknown document type")
			return
		}
		docType = &dt
	}

	list, err := h.documents.List(r.Context(), docType)
	if err != nil {
		if errors.Is(err, domain.ErrTenantRequired) {
			httputil.Error(w, http.StatusBadRequest, "no tenant resolved")
			return
		}
		h.logger.Error("failed to list documents", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	out := make([]DocumentResponse, 0, len(list))
	for _, d := range list {
		out = append(out, toResponse(d))
	}
	httputil.JSON(w, http.StatusOK, out)
}
