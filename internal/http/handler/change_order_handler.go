package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bygghuset-as/procurement-api/internal/domain"
	"github.com/bygghuset-as/procurement-api/internal/http/middleware"
	"github.com/bygghuset-as/procurement-api/internal/store"
)

type ChangeOrderHandler struct {
	store  *store.ChangeOrderStore
	logger *zap.Logger
}

func NewChangeOrderHandler(s *store.ChangeOrderStore, logger *zap.Logger) *ChangeOrderHandler {
	return &ChangeOrderHandler{store: s, logger: logger}
}

// List returns one page of the corporation's change orders.
func (h *ChangeOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q, ok := listQueryFromRequest(w, r)
	if !ok {
		return
	}

	docs, pagination, err := h.store.List(r.Context(), q)
	if err != nil {
		respondStoreError(w, h.logger, err, "Failed to list change orders")
		return
	}
	respondJSON(w, http.StatusOK, domain.PaginatedResponse{Data: docs, Pagination: pagination})
}

// GetByID returns one change order aggregate.
func (h *ChangeOrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	corp := middleware.CorporationFromContext(r.Context())
	if corp == "" {
		respondWithError(w, http.StatusBadRequest, "corporation_uuid is required")
		return
	}

	doc, err := h.store.FetchOne(r.Context(), corp, id)
	if err != nil {
		respondStoreError(w, h.logger, err, "Failed to fetch change order")
		return
	}
	respondJSON(w, http.StatusOK, doc)
}

// Create saves a new change order. The confirmation step of the auto-CO
// workflow posts the drafted change order here.
func (h *ChangeOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSaveRequest(w, r)
	if !ok {
		return
	}

	result, err := h.store.Create(r.Context(), &req.Document)
	if err != nil {
		respondStoreError(w, h.logger, err, "Failed to create change order")
		return
	}
	respondJSON(w, http.StatusCreated, domain.SaveDocumentResponse{
		Data:     result.Document,
		Warnings: result.WarningDTOs(),
	})
}

// Update saves an existing change order.
func (h *ChangeOrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeSaveRequest(w, r)
	if !ok {
		return
	}
	req.Document.UUID = chi.URLParam(r, "id")

	result, err := h.store.Update(r.Context(), &req.Document)
	if err != nil {
		respondStoreError(w, h.logger, err, "Failed to update change order")
		return
	}
	respondJSON(w, http.StatusOK, domain.SaveDocumentResponse{
		Data:     result.Document,
		Warnings: result.WarningDTOs(),
	})
}

// Delete marks the change order inactive.
func (h *ChangeOrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	corp := middleware.CorporationFromContext(r.Context())
	if corp == "" {
		respondWithError(w, http.StatusBadRequest, "corporation_uuid is required")
		return
	}

	if err := h.store.Delete(r.Context(), corp, id); err != nil {
		respondStoreError(w, h.logger, err, "Failed to delete change order")
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (h *ChangeOrderHandler) decodeSaveRequest(w http.ResponseWriter, r *http.Request) (*domain.SaveChangeOrderRequest, bool) {
	var req domain.SaveChangeOrderRequest
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
