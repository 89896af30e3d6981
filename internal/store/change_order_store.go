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

// ChangeOrderStore mirrors PurchaseOrderStore for change orders. The co_type
// discriminator selects between the material and labor item sets, and a
// saved change order only enters the visible list when it belongs to the
// corporation the list was loaded for.
type ChangeOrderStore struct {
	remote   RemoteAPI
	cache    DocumentCache
	uploader AttachmentUploader
	logger   *zap.Logger
	locks    *lockRegistry

	mu    sync.RWMutex
	state ChangeOrderState
	// activeCorporation is the corporation the visible list was loaded for.
	activeCorporation string
}

func NewChangeOrderStore(remote RemoteAPI, documentCache DocumentCache, uploader AttachmentUploader, logger *zap.Logger) *ChangeOrderStore {
	return &ChangeOrderStore{
		remote:   remote,
		cache:    documentCache,
		uploader: uploader,
		logger:   logger,
		locks:    newLockRegistry(),
		state:    ChangeOrderState{Status: StatusUnloaded},
	}
}

// State returns a snapshot of the store's current state record.
func (s *ChangeOrderStore) State() ChangeOrderState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *ChangeOrderStore) transition(fn func(ChangeOrderState) ChangeOrderState) {
	s.mu.Lock()
	s.state = fn(s.state)
	s.mu.Unlock()
}

// List returns one page of the corporation's change orders, with the same
// cache-first and fallback-on-error behavior as the purchase order store.
func (s *ChangeOrderStore) List(ctx context.Context, q domain.ListQuery) ([]domain.ChangeOrder, *domain.Pagination, error) {
	if q.CorporationUUID == "" {
		return nil, nil, ErrMissingCorporation
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	s.mu.Lock()
	s.activeCorporation = q.CorporationUUID
	s.mu.Unlock()
	s.transition(coLoading)

	if payloads, pagination, err := s.cache.ListPage(ctx, q.CorporationUUID, domain.DocTypeChangeOrder, q.Page); err == nil {
		docs, decodeErr := decodeChangeOrders(payloads)
		if decodeErr == nil {
			s.transition(func(st ChangeOrderState) ChangeOrderState {
				return coLoaded(st, docs, pagination)
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

	docs, pagination, err := s.remote.ListChangeOrders(ctx, q)
	if err != nil {
		if payloads, fullErr := s.cache.ListFallback(ctx, q.CorporationUUID, domain.DocTypeChangeOrder); fullErr == nil {
			if cached, decodeErr := decodeChangeOrders(payloads); decodeErr == nil {
				s.logger.Warn("remote list failed, serving cached change orders",
					zap.String("corporationUUID", q.CorporationUUID),
					zap.Error(err),
				)
				s.transition(func(st ChangeOrderState) ChangeOrderState {
					return coLoaded(st, cached, nil)
				})
				return cached, nil, nil
			}
		}
		s.transition(func(st ChangeOrderState) ChangeOrderState {
			return coFailed(st, err.Error())
		})
		return nil, nil, err
	}

	for i := range docs {
		s.prepare(&docs[i])
	}
	s.cachePage(ctx, q, docs, pagination)
	s.transition(func(st ChangeOrderState) ChangeOrderState {
		return coLoaded(st, docs, pagination)
	})
	return docs, pagination, nil
}

// FetchOne loads one change order aggregate, degrading to the cache when the
// remote read fails.
func (s *ChangeOrderStore) FetchOne(ctx context.Context, corporationUUID, id string) (*domain.ChangeOrder, error) {
	if corporationUUID == "" {
		return nil, ErrMissingCorporation
	}

	doc, err := s.remote.GetChangeOrder(ctx, corporationUUID, id)
	if err != nil {
		if payload, cacheErr := s.cache.GetDocument(ctx, corporationUUID, domain.DocTypeChangeOrder, id); cacheErr == nil {
			var cached domain.ChangeOrder
			if decodeErr := json.Unmarshal(payload, &cached); decodeErr == nil {
				s.logger.Warn("remote fetch failed, serving cached change order",
					zap.String("changeOrderUUID", id),
					zap.Error(err),
				)
				s.transition(func(st ChangeOrderState) ChangeOrderState {
					return coSetCurrent(st, &cached)
				})
				return &cached, nil
			}
		}
		return nil, err
	}

	s.prepare(doc)
	s.cacheDocument(ctx, doc)
	s.transition(func(st ChangeOrderState) ChangeOrderState {
		return coSetCurrent(coUpsert(st, *doc, s.activeCorporation), doc)
	})
	return doc, nil
}

// Create saves a new change order. When no number is set, the next CO-{n}
// number for the corporation is resolved first.
func (s *ChangeOrderStore) Create(ctx context.Context, co *domain.ChangeOrder) (*ChangeOrderSaveResult, error) {
	if co.CorporationUUID == "" {
		return nil, ErrMissingCorporation
	}
	if co.CONumber == "" {
		existing, _, err := s.remote.ListChangeOrders(ctx, domain.ListQuery{
			CorporationUUID: co.CorporationUUID,
			PageSize:        500,
		})
		if err != nil {
			return nil, err
		}
		numbers := make([]string, 0, len(existing))
		for _, d := range existing {
			numbers = append(numbers, d.CONumber)
		}
		co.CONumber = NextChangeOrderNumber(numbers)
	}

	release := s.locks.acquire(co.UUID)
	defer release()
	return s.save(ctx, co, true)
}

// Update saves an existing change order.
func (s *ChangeOrderStore) Update(ctx context.Context, co *domain.ChangeOrder) (*ChangeOrderSaveResult, error) {
	if co.CorporationUUID == "" {
		return nil, ErrMissingCorporation
	}
	release := s.locks.acquire(co.UUID)
	defer release()
	return s.save(ctx, co, false)
}

func (s *ChangeOrderStore) save(ctx context.Context, co *domain.ChangeOrder, isNew bool) (*ChangeOrderSaveResult, error) {
	recomputeChangeOrder(co)
	form := *co

	var echo *domain.ChangeOrder
	var err error
	if isNew {
		echo, err = s.remote.CreateChangeOrder(ctx, co)
	} else {
		echo, err = s.remote.UpdateChangeOrder(ctx, co)
	}
	if err != nil {
		s.transition(func(st ChangeOrderState) ChangeOrderState {
			return coFailed(st, err.Error())
		})
		return nil, err
	}

	var warnings []PhaseWarning

	items := form.ActiveItems()
	saved, err := s.remote.SaveChangeOrderItems(ctx, form.CorporationUUID, echo.UUID, form.COType, items, form.RemovedItems)
	if err != nil {
		warnings = append(warnings, PhaseWarning{Phase: PhaseItems, Err: err})
		s.logger.Error("item-list write failed after header commit",
			zap.String("changeOrderUUID", echo.UUID),
			zap.Error(err),
		)
	} else if len(saved) > 0 {
		setChangeOrderItems(&form, saved)
	}

	uploaded, err := s.uploader.UploadPending(ctx, form.CorporationUUID, echo.UUID, form.Attachments)
	if err != nil {
		warnings = append(warnings, PhaseWarning{Phase: PhaseAttachments, Err: err})
		s.logger.Error("attachment upload failed after header commit",
			zap.String("changeOrderUUID", echo.UUID),
			zap.Error(err),
		)
	} else if len(uploaded) > 0 {
		echo.Attachments = replacePending(form.Attachments, uploaded)
	}

	merged := &domain.ChangeOrder{}
	if mergeErr := MergeOverlay(echo, &form, changeOrderOverlayFields, merged); mergeErr != nil {
		s.logger.Error("overlay merge failed, returning server echo", zap.Error(mergeErr))
		merged = echo
	}

	s.cacheDocument(ctx, merged)
	if err := s.cache.InvalidatePages(ctx, merged.CorporationUUID, domain.DocTypeChangeOrder); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Error(err))
	}

	// The current-document reference always follows the save, even when the
	// document belongs to another corporation than the visible list.
	s.mu.Lock()
	activeCorp := s.activeCorporation
	s.mu.Unlock()
	s.transition(func(st ChangeOrderState) ChangeOrderState {
		return coSetCurrent(coUpsert(st, *merged, activeCorp), merged)
	})
	return &ChangeOrderSaveResult{Document: merged, Warnings: warnings}, nil
}

// RefreshPage refetches one remote page and rewrites the corresponding cache
// entries without touching the caller-visible state.
func (s *ChangeOrderStore) RefreshPage(ctx context.Context, corporationUUID string, page int) error {
	if page <= 0 {
		page = 1
	}
	q := domain.ListQuery{CorporationUUID: corporationUUID, Page: page}
	docs, pagination, err := s.remote.ListChangeOrders(ctx, q)
	if err != nil {
		return err
	}
	for i := range docs {
		s.prepare(&docs[i])
	}
	s.cachePage(ctx, q, docs, pagination)
	return nil
}

// Delete marks the change order inactive remotely and drops it locally.
func (s *ChangeOrderStore) Delete(ctx context.Context, corporationUUID, id string) error {
	if corporationUUID == "" {
		return ErrMissingCorporation
	}
	if err := s.remote.DeleteChangeOrder(ctx, corporationUUID, id); err != nil {
		s.transition(func(st ChangeOrderState) ChangeOrderState {
			return coFailed(st, err.Error())
		})
		return err
	}

	if err := s.cache.DeleteDocument(ctx, corporationUUID, domain.DocTypeChangeOrder, id); err != nil {
		s.logger.Warn("cache delete failed", zap.Error(err))
	}
	if err := s.cache.InvalidatePages(ctx, corporationUUID, domain.DocTypeChangeOrder); err != nil {
		s.logger.Warn("cache invalidation failed", zap.Error(err))
	}

	s.transition(func(st ChangeOrderState) ChangeOrderState {
		return coRemove(st, id)
	})
	return nil
}

func (s *ChangeOrderStore) prepare(co *domain.ChangeOrder) {
	if b := finance.ApplyTotals(&co.FlatTotals, co.BreakdownRaw()); b != nil {
		co.FinancialBreakdown = finance.EncodeBreakdown(b)
		co.FinancialBreakdownAlt = nil
	}
	items := finance.FilterRemoved(finance.ReconcileItems(co.ActiveItems(), domain.DocTypeChangeOrder), co.RemovedItems)
	if co.COType == domain.OrderKindLabor {
		co.LaborItems = items
		co.Items = nil
	} else {
		co.Items = items
	}
}

func (s *ChangeOrderStore) cacheDocument(ctx context.Context, co *domain.ChangeOrder) {
	payload, err := json.Marshal(co)
	if err != nil {
		s.logger.Warn("failed to encode change order for cache", zap.Error(err))
		return
	}
	if err := s.cache.SaveDocument(ctx, co.CorporationUUID, domain.DocTypeChangeOrder, co.UUID, payload); err != nil {
		s.logger.Warn("cache write failed", zap.Error(err))
	}
}

func (s *ChangeOrderStore) cachePage(ctx context.Context, q domain.ListQuery, docs []domain.ChangeOrder, pagination *domain.Pagination) {
	entries := make([]cache.CachedEntry, 0, len(docs))
	for i := range docs {
		payload, err := json.Marshal(&docs[i])
		if err != nil {
			s.logger.Warn("failed to encode change order for cache", zap.Error(err))
			return
		}
		entries = append(entries, cache.CachedEntry{UUID: docs[i].UUID, Payload: payload})
	}
	if err := s.cache.SavePage(ctx, q.CorporationUUID, domain.DocTypeChangeOrder, q.Page, entries, pagination); err != nil {
		s.logger.Warn("cache page write failed", zap.Error(err))
	}
}

// recomputeChangeOrder runs the financial pipeline over a change order.
func recomputeChangeOrder(co *domain.ChangeOrder) {
	items := finance.ReconcileItems(co.ActiveItems(), domain.DocTypeChangeOrder)
	setChangeOrderItems(co, items)

	itemTotal := finance.AggregateItemTotal(items, co.RemovedItems, domain.DocTypeChangeOrder)
	breakdown := finance.ComputeBreakdown(itemTotal, finance.NormalizeBreakdown(co.BreakdownRaw()))
	co.FinancialBreakdown = finance.EncodeBreakdown(&breakdown)
	co.FinancialBreakdownAlt = nil
	finance.ApplyTotals(&co.FlatTotals, co.FinancialBreakdown)
}

func setChangeOrderItems(co *domain.ChangeOrder, items []domain.LineItem) {
	if co.COType == domain.OrderKindLabor {
		co.LaborItems = items
		co.Items = nil
		return
	}
	co.Items = items
}

func decodeChangeOrders(payloads []json.RawMessage) ([]domain.ChangeOrder, error) {
	docs := make([]domain.ChangeOrder, 0, len(payloads))
	for _, payload := range payloads {
		var doc domain.ChangeOrder
		if err := json.Unmarshal(payload, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
