package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/bygghuset-as/procurement-api/internal/cache"
	"github.com/bygghuset-as/procurement-api/internal/domain"
	"github.com/bygghuset-as/procurement-api/internal/finance"
)

// PurchaseOrderStore orchestrates the purchase order aggregate across the
// remote API, the local cache and the attachment uploader. Reads degrade to
// the cache; writes never do.
type PurchaseOrderStore struct {
	remote    RemoteAPI
	cache     DocumentCache
	uploader  AttachmentUploader
	estimates EstimateSource
	logger    *zap.Logger
	locks     *lockRegistry

	mu    sync.RWMutex
	state PurchaseOrderState
}

func NewPurchaseOrderStore(remote RemoteAPI, documentCache DocumentCache, uploader AttachmentUploader, estimates EstimateSource, logger *zap.Logger) *PurchaseOrderStore {
	return &PurchaseOrderStore{
		remote:    remote,
		cache:     documentCache,
		uploader:  uploader,
		estimates: estimates,
		logger:    logger,
		locks:     newLockRegistry(),
		state:     PurchaseOrderState{Status: StatusUnloaded},
	}
}

// State returns a snapshot of the store's current state record.
func (s *PurchaseOrderStore) State() PurchaseOrderState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *PurchaseOrderStore) transition(fn func(PurchaseOrderState) PurchaseOrderState) {
	s.mu.Lock()
	s.state = fn(s.state)
	s.mu.Unlock()
}

// List returns one page of the corporation's purchase orders. A page already
// present in the cache is served without a remote call; a failed remote
// fetch falls back to whatever the cache holds, and only when the cache is
// empty does the error reach the caller.
func (s *PurchaseOrderStore) List(ctx context.Context, q domain.ListQuery) ([]domain.PurchaseOrder, *domain.Pagination, error) {
	if q.CorporationUUID == "" {
		return nil, nil, ErrMissingCorporation
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	s.transition(poLoading)

	if payloads, pagination, err := s.cache.ListPage(ctx, q.CorporationUUID, domain.DocTypePurchaseOrder, q.Page); err == nil {
		docs, decodeErr := decodePurchaseOrders(payloads)
		if decodeErr == nil {
			s.transition(func(st PurchaseOrderState) PurchaseOrderState {
				return poLoaded(st, docs, pagination)
			})
			return docs, pagination, nil
		}
		s.logger.Warn("discarding undecodable cached page",
			zap.String("corporationUUID", q.CorporationUUID),
			zap.Error(decodeErr),
		)
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("cache read failed", zap.Error(err))
	}

	docs, pagination, err := s.remote.ListPurchaseOrders(ctx, q)
	if err != nil {
		if payloads, fullErr := s.cache.ListFallback(ctx, q.CorporationUUID, domain.DocTypePurchaseOrder); fullErr == nil {
			if cached, decodeErr := decodePurchaseOrders(payloads); decodeErr == nil {
				s.logger.Warn("remote list failed, serving cached purchase orders",
					zap.String("corporationUUID", q.CorporationUUID),
					zap.Error(err),
				)
				s.transition(func(st PurchaseOrderState) PurchaseOrderState {
					return poLoaded(st, cached, nil)
				})
				return cached, nil, nil
			}
		}
		s.transition(func(st PurchaseOrderState) PurchaseOrderState {
			return poFailed(st, err.Error())
		})
		return nil, nil, err
	}

	for i := range docs {
		s.prepare(&docs[i])
	}
	s.cachePage(ctx, q, docs, pagination)
	s.transition(func(st PurchaseOrderState) PurchaseOrderState {
		return poLoaded(st, docs, pagination)
	})
	return docs, pagination, nil
}

// FetchOne loads one purchase order aggregate. On remote failure the cached
// copy is served when present; otherwise the error is returned and any
// already-loaded state is left untouched.
func (s *PurchaseOrderStore) FetchOne(ctx context.Context, corporationUUID, id string) (*domain.PurchaseOrder, error) {
	if corporationUUID == "" {
		return nil, ErrMissingCorporation
	}

	doc, err := s.remote.GetPurchaseOrder(ctx, corporationUUID, id)
	if err != nil {
		if payload, cacheErr := s.cache.GetDocument(ctx, corporationUUID, domain.DocTypePurchaseOrder, id); cacheErr == nil {
			var cached domain.PurchaseOrder
			if decodeErr := json.Unmarshal(payload, &cached); decodeErr == nil {
				s.logger.Warn("remote fetch failed, serving cached purchase order",
					zap.String("purchaseOrderUUID", id),
					zap.Error(err),
				)
				s.transition(func(st PurchaseOrderState) PurchaseOrderState {
					return poSetCurrent(st, &cached)
				})
				return &cached, nil
			}
		}
		return nil, err
	}

	s.prepare(doc)
	s.cacheDocument(ctx, doc)
	s.transition(func(st PurchaseOrderState) PurchaseOrderState {
		return poSetCurrent(poUpsert(st, *doc), doc)
	})
	return doc, nil
}

// Create saves a new purchase order. Unless force is set, a document whose
// quantities exceed the originating estimate halts the save and returns the
// exceeded set for review instead.
func (s *PurchaseOrderStore) Create(ctx context.Context, po *domain.PurchaseOrder, force bool) (*PurchaseOrderSaveResult, *domain.ExceededReviewResponse, error) {
	return s.saveWithReview(ctx, po, force, true)
}

// Update saves an existing purchase order, with the same exceeded-quantity
// review as Create.
func (s *PurchaseOrderStore) Update(ctx context.Context, po *domain.PurchaseOrder, force bool) (*PurchaseOrderSaveResult, *domain.ExceededReviewResponse, error) {
	return s.saveWithReview(ctx, po, force, false)
}

func (s *PurchaseOrderStore) saveWithReview(ctx context.Context, po *domain.PurchaseOrder, force, isNew bool) (*PurchaseOrderSaveResult, *domain.ExceededReviewResponse, error) {
	if po.CorporationUUID == "" {
		return nil, nil, ErrMissingCorporation
	}

	s.recompute(po)

	if !force && po.ItemImportMode == domain.ImportFromEstimate {
		if exceeded := DetectExceeded(po.ActiveItems()); len(exceeded) > 0 {
			return nil, &domain.ExceededReviewResponse{
				PurchaseOrderUUID: po.UUID,
				Exceeded:          exceeded,
			}, nil
		}
	}

	release := s.locks.acquire(po.UUID)
	defer release()

	result, err := s.save(ctx, po, isNew)
	if err != nil {
		return nil, nil, err
	}
	return result, nil, nil
}

// save runs the three-phase pipeline: header write, item-list write,
// attachment upload. The header is the durable identity; later phases
// failing produce warnings, never rollbacks. The caller's reconciled form is
// re-applied on top of the server echo before the result is returned.
func (s *PurchaseOrderStore) save(ctx context.Context, po *domain.PurchaseOrder, isNew bool) (*PurchaseOrderSaveResult, error) {
	form := *po

	var echo *domain.PurchaseOrder
	var err error
	if isNew {
		echo, err = s.remote.CreatePurchaseOrder(ctx, po)
	} else {
		echo, err = s.remote.UpdatePurchaseOrder(ctx, po)
	}
	if err != nil {
		s.transition(func(st PurchaseOrderState) PurchaseOrderState {
			return poFailed(st, err.Error())
		})
		return nil, err
	}

	var warnings []PhaseWarning

	items := form.ActiveItems()
	saved, err := s.remote.SavePurchaseOrderItems(ctx, form.CorporationUUID, echo.UUID, items, form.RemovedItems)
	if err != nil {
		warnings = append(warnings, PhaseWarning{Phase: PhaseItems, Err: err})
		s.logger.Error("item-list write failed after header commit",
			zap.String("purchaseOrderUUID", echo.UUID),
			zap.Error(err),
		)
	} else if len(saved) > 0 {
		setPurchaseOrderItems(&form, saved)
	}

	uploaded, err := s.uploader.UploadPending(ctx, form.CorporationUUID, echo.UUID, form.Attachments)
	if err != nil {
		warnings = append(warnings, PhaseWarning{Phase: PhaseAttachments, Err: err})
		s.logger.Error("attachment upload failed after header commit",
			zap.String("purchaseOrderUUID", echo.UUID),
			zap.Error(err),
		)
	} else if len(uploaded) > 0 {
		echo.Attachments = replacePending(form.Attachments, uploaded)
	}

	merged := &domain.PurchaseOrder{}
	if mergeErr := MergeOverlay(echo, &form, purchaseOrderOverlayFields, merged); mergeErr != nil {
		s.logger.Error("overlay merge failed, returning server echo", zap.Error(mergeErr))
		merged = echo
	}

	s.cacheDocument(ctx, merged)
	if err := s.cache.InvalidatePages(ctx, merged.CorporationUUID, domain.DocTypePurchaseOrder); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Error(err))
	}

	s.transition(func(st PurchaseOrderState) PurchaseOrderState {
		return poSetCurrent(poUpsert(st, *merged), merged)
	})
	return &PurchaseOrderSaveResult{Document: merged, Warnings: warnings}, nil
}

// Delete marks the purchase order inactive remotely, then drops it from the
// list and invalidates the corporation's cache partition. Remote failures
// are returned to the caller, never swallowed.
func (s *PurchaseOrderStore) Delete(ctx context.Context, corporationUUID, id string) error {
	if corporationUUID == "" {
		return ErrMissingCorporation
	}
	if err := s.remote.DeletePurchaseOrder(ctx, corporationUUID, id); err != nil {
		s.transition(func(st PurchaseOrderState) PurchaseOrderState {
			return poFailed(st, err.Error())
		})
		return err
	}

	if err := s.cache.DeleteDocument(ctx, corporationUUID, domain.DocTypePurchaseOrder, id); err != nil {
		s.logger.Warn("cache delete failed", zap.Error(err))
	}
	if err := s.cache.InvalidatePages(ctx, corporationUUID, domain.DocTypePurchaseOrder); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Error(err))
	}

	s.transition(func(st PurchaseOrderState) PurchaseOrderState {
		return poRemove(st, id)
	})
	return nil
}

// RaiseChangeOrder clamps the purchase order's exceeded quantities down to
// the estimate ceiling, saves it, and drafts a change order carrying only
// the exceeded delta per item. The draft is returned for confirmation; it is
// not persisted here.
func (s *PurchaseOrderStore) RaiseChangeOrder(ctx context.Context, po *domain.PurchaseOrder) (*domain.RaiseChangeOrderResponse, error) {
	if po.CorporationUUID == "" {
		return nil, ErrMissingCorporation
	}

	s.recompute(po)
	exceeded := DetectExceeded(po.ActiveItems())
	if len(exceeded) == 0 {
		return nil, ErrNothingExceeded
	}

	// Resolve the next CO number before any write so a numbering failure
	// aborts cleanly.
	existing, _, err := s.remote.ListChangeOrders(ctx, domain.ListQuery{
		CorporationUUID: po.CorporationUUID,
		PageSize:        500,
	})
	if err != nil {
		return nil, err
	}
	numbers := make([]string, 0, len(existing))
	for _, co := range existing {
		numbers = append(numbers, co.CONumber)
	}
	coNumber := NextChangeOrderNumber(numbers)

	setPurchaseOrderItems(po, ClampToEstimate(po.ActiveItems()))
	s.recompute(po)

	release := s.locks.acquire(po.UUID)
	result, err := s.save(ctx, po, po.UUID == "")
	release()
	if err != nil {
		return nil, err
	}

	draft := DraftChangeOrder(result.Document, exceeded, coNumber)
	recomputeChangeOrder(draft)

	return &domain.RaiseChangeOrderResponse{
		PurchaseOrder: result.Document,
		DraftedCO:     draft,
		Warnings:      warningDTOs(result.Warnings),
	}, nil
}

// RefreshPage refetches one remote page and rewrites the corresponding cache
// entries, without touching the caller-visible state. Used by the background
// cache refresh job to keep the fallback copy fresh.
func (s *PurchaseOrderStore) RefreshPage(ctx context.Context, corporationUUID string, page int) error {
	if page <= 0 {
		page = 1
	}
	q := domain.ListQuery{CorporationUUID: corporationUUID, Page: page}
	docs, pagination, err := s.remote.ListPurchaseOrders(ctx, q)
	if err != nil {
		return err
	}
	for i := range docs {
		s.prepare(&docs[i])
	}
	s.cachePage(ctx, q, docs, pagination)
	return nil
}

// ImportEstimateItems replaces the purchase order's line items with the
// estimate snapshot. This explicit re-import is the only path that writes
// the estimate triple.
func (s *PurchaseOrderStore) ImportEstimateItems(ctx context.Context, po *domain.PurchaseOrder) ([]domain.LineItem, error) {
	if po.CorporationUUID == "" {
		return nil, ErrMissingCorporation
	}
	if po.ProjectUUID == "" || po.EstimateUUID == "" {
		return nil, ErrMissingEstimate
	}

	items, err := s.estimates.GetEstimateItems(ctx, po.CorporationUUID, po.ProjectUUID, po.EstimateUUID)
	if err != nil {
		return nil, err
	}

	for i := range items {
		items[i].POQuantity, items[i].POUnitPrice, items[i].POTotal = nil, nil, nil
		items[i].COQuantity, items[i].COUnitPrice, items[i].COTotal = nil, nil, nil
	}
	items = finance.ReconcileItems(items, domain.DocTypePurchaseOrder)

	setPurchaseOrderItems(po, items)
	po.ItemImportMode = domain.ImportFromEstimate
	return items, nil
}

// recompute runs the full financial pipeline over the document: item
// reconciliation, aggregate item total, breakdown recompute, flat-field
// projection.
func (s *PurchaseOrderStore) recompute(po *domain.PurchaseOrder) {
	items := finance.ReconcileItems(po.ActiveItems(), domain.DocTypePurchaseOrder)
	setPurchaseOrderItems(po, items)

	itemTotal := finance.AggregateItemTotal(items, po.RemovedItems, domain.DocTypePurchaseOrder)
	breakdown := finance.ComputeBreakdown(itemTotal, finance.NormalizeBreakdown(po.BreakdownRaw()))
	po.FinancialBreakdown = finance.EncodeBreakdown(&breakdown)
	po.FinancialBreakdownAlt = nil
	finance.ApplyTotals(&po.FlatTotals, po.FinancialBreakdown)
}

// prepare normalizes a document arriving from the remote or the cache:
// totals projected from the breakdown, items reconciled, removed items
// filtered out, and labor orders swapped onto their labor item set.
func (s *PurchaseOrderStore) prepare(po *domain.PurchaseOrder) {
	if b := finance.ApplyTotals(&po.FlatTotals, po.BreakdownRaw()); b != nil {
		po.FinancialBreakdown = finance.EncodeBreakdown(b)
		po.FinancialBreakdownAlt = nil
	}
	items := finance.FilterRemoved(finance.ReconcileItems(po.ActiveItems(), domain.DocTypePurchaseOrder), po.RemovedItems)
	if po.OrderKind == domain.OrderKindLabor {
		po.LaborItems = items
		po.Items = nil
	} else {
		po.Items = items
	}
}

func (s *PurchaseOrderStore) cacheDocument(ctx context.Context, po *domain.PurchaseOrder) {
	payload, err := json.Marshal(po)
	if err != nil {
		s.logger.Warn("failed to encode purchase order for cache", zap.Error(err))
		return
	}
	if err := s.cache.SaveDocument(ctx, po.CorporationUUID, domain.DocTypePurchaseOrder, po.UUID, payload); err != nil {
		s.logger.Warn("cache write failed", zap.Error(err))
	}
}

func (s *PurchaseOrderStore) cachePage(ctx context.Context, q domain.ListQuery, docs []domain.PurchaseOrder, pagination *domain.Pagination) {
	entries := make([]cache.CachedEntry, 0, len(docs))
	for i := range docs {
		payload, err := json.Marshal(&docs[i])
		if err != nil {
			s.logger.Warn("failed to encode purchase order for cache", zap.Error(err))
			return
		}
		entries = append(entries, cache.CachedEntry{UUID: docs[i].UUID, Payload: payload})
	}
	if err := s.cache.SavePage(ctx, q.CorporationUUID, domain.DocTypePurchaseOrder, q.Page, entries, pagination); err != nil {
		s.logger.Warn("cache page write failed", zap.Error(err))
	}
}

func setPurchaseOrderItems(po *domain.PurchaseOrder, items []domain.LineItem) {
	if po.OrderKind == domain.OrderKindLabor {
		po.LaborItems = items
		po.Items = nil
		return
	}
	po.Items = items
}

// replacePending keeps the attachments that were already uploaded and swaps
// the pending placeholders for the persisted descriptors.
func replacePending(attachments, uploaded []domain.Attachment) []domain.Attachment {
	out := make([]domain.Attachment, 0, len(attachments))
	for _, a := range attachments {
		if a.Uploaded() {
			out = append(out, a)
		}
	}
	return append(out, uploaded...)
}

func decodePurchaseOrders(payloads []json.RawMessage) ([]domain.PurchaseOrder, error) {
	docs := make([]domain.PurchaseOrder, 0, len(payloads))
	for _, payload := range payloads {
		var doc domain.PurchaseOrder
		if err := json.Unmarshal(payload, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
