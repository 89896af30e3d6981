package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bygghuset-as/procurement-api/internal/domain"
	"github.com/bygghuset-as/procurement-api/internal/http/middleware"
	"github.com/bygghuset-as/procurement-api/internal/remote"
	"github.com/bygghuset-as/procurement-api/internal/store"
)

type PurchaseOrderHandler struct {
	store  *store.PurchaseOrderStore
	logger *zap.Logger
}

func NewPurchaseOrderHandler(s *store.PurchaseOrderStore, logger *zap.Logger) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{store: s, logger: logger}
}

// List returns one page of the corporation's purchase orders.
func (h *PurchaseOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q, ok := listQueryFromRequest(w, r)
	if !ok {
		return
	}

	docs, pagination, err := h.store.List(r.Context(), q)
	if err != nil {
		respondStoreError(w, h.logger, err, "Failed to list purchase orders")
		return
	}
	respondJSON(w, http.StatusOK, domain.PaginatedResponse{Data: docs, Pagination: pagination})
}

// GetByID returns one purchase order aggregate.
func (h *PurchaseOrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	corp := middleware.CorporationFromContext(r.Context())
	if corp == "" {
		respondWithError(w, http.StatusBadRequest, "corporation_uuid is required")
		return
	}

	doc, err := h.store.FetchOne(r.Context(), corp, id)
	if err != nil {
		respondStoreError(w, h.logger, err, "Failed to fetch purchase order")
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// Create saves a new purchase order. When the document's quantities exceed
// the originating estimate and force is not set, the save is halted and the
// exceeded set is returned with 409 for review.
func (h *PurchaseOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSaveRequest(w, r)
	if !ok {
		return
	}

	result, review, err := h.store.Create(r.Context(), &req.Document, req.Force)
	if err != nil {
		respondStoreError(w, h.logger, err, "Failed to create purchase order")
		return
	}
	if review != nil {
		respondJSON(w, http.StatusConflict, review)
		return
	}
	respondJSON(w, http.StatusCreated, domain.SaveDocumentResponse{
		Data:     result.Document,
		Warnings: result.WarningDTOs(),
	})
}

// Update saves an existing purchase order, with the same exceeded-quantity
// review as Create.
func (h *PurchaseOrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSaveRequest(w, r)
	if !ok {
		return
	}
	req.Document.UUID = chi.URLParam(r, "id")

	result, review, err := h.store.Update(r.Context(), &req.Document, req.Force)
	if err != nil {
		respondStoreError(w, h.logger, err, "Failed to update purchase order")
		return
	}
	if review != nil {
		respondJSON(w, http.StatusConflict, review)
		return
	}
	respondJSON(w, http.StatusOK, domain.SaveDocumentResponse{
		Data:     result.Document,
		Warnings: result.WarningDTOs(),
	})
}

// Delete marks the purchase order inactive.
func (h *PurchaseOrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	corp := middleware.CorporationFromContext(r.Context())
	if corp == "" {
		respondWithError(w, http.StatusBadRequest, "corporation_uuid is required")
		return
	}

	if err := h.store.Delete(r.Context(), corp, id); err != nil {
		respondStoreError(w, h.logger, err, "Failed to delete purchase order")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// RaiseChangeOrder clamps the purchase order to the estimate ceiling, saves
// it, and returns the drafted change order carrying the exceeded delta.
func (h *PurchaseOrderHandler) RaiseChangeOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSaveRequest(w, r)
	if !ok {
		return
	}
	if id := chi.URLParam(r, "id"); id != "" {
		req.Document.UUID = id
	}

	resp, err := h.store.RaiseChangeOrder(r.Context(), &req.Document)
	if err != nil {
		if errors.Is(err, store.ErrNothingExceeded) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondStoreError(w, h.logger, err, "Failed to raise change order")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// ImportEstimateItems replaces the document's items with the estimate
// snapshot and returns the imported list.
func (h *PurchaseOrderHandler) ImportEstimateItems(w http.ResponseWriter, r *http.Request) {
	var po domain.PurchaseOrder
	if err := json.NewDecoder(r.Body).Decode(&po); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if po.CorporationUUID == "" {
		po.CorporationUUID = middleware.CorporationFromContext(r.Context())
	}

	items, err := h.store.ImportEstimateItems(r.Context(), &po)
	if err != nil {
		respondStoreError(w, h.logger, err, "Failed to import estimate items")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"data": items})
}

func decodeSaveRequest(w http.ResponseWriter, r *http.Request) (*domain.SavePurchaseOrderRequest, bool) {
	var req domain.SavePurchaseOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return nil, false
	}
	if req.Document.CorporationUUID == "" {
		req.Document.CorporationUUID = middleware.CorporationFromContext(r.Context())
	}
	if req.Document.CorporationUUID == "" {
		respondWithError(w, http.StatusBadRequest, "corporation_uuid is required")
		return nil, false
	}
	return &req, true
}

// listQueryFromRequest builds and validates the shared list query.
func listQueryFromRequest(w http.ResponseWriter, r *http.Request) (domain.ListQuery, bool) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 {
		pageSize = 20
	}

	q := domain.ListQuery{
		CorporationUUID: middleware.CorporationFromContext(r.Context()),
		ProjectUUID:     r.URL.Query().Get("project_uuid"),
		VendorUUID:      r.URL.Query().Get("vendor_uuid"),
		Page:            page,
		PageSize:        pageSize,
	}
	if err := validate.Struct(q); err != nil {
		respondValidationError(w, err)
		return domain.ListQuery{}, false
	}
	return q, true
}

// respondStoreError maps store and remote failures onto HTTP statuses:
// validation to 400, remote 404 passthrough, other remote failures to 502.
func respondStoreError(w http.ResponseWriter, logger *zap.Logger, err error, message string) {
	var reqErr *remote.RequestError
	switch {
	case errors.Is(err, store.ErrValidation):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &reqErr):
		logger.Error(message, zap.Error(err))
		if reqErr.StatusCode == http.StatusNotFound {
			respondWithError(w, http.StatusNotFound, "Document not found")
			return
		}
		respondWithError(w, http.StatusBadGateway, message)
	default:
		logger.Error(message, zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, message)
	}
}
