package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/bygghuset-as/procurement-api/internal/cache"
	"github.com/bygghuset-as/procurement-api/internal/domain"
)

// fakeRemote is an in-memory stand-in for the remote document API. Each
// method records its name so tests can assert which calls were made and in
// what order.
type fakeRemote struct {
	mu    sync.Mutex
	calls []string

	purchaseOrders []domain.PurchaseOrder
	changeOrders   []domain.ChangeOrder

	listPOErr   error
	getPOErr    error
	createPOErr error
	updatePOErr error
	deletePOErr error
	poItemsErr  error

	listCOErr   error
	getCOErr    error
	createCOErr error
	updateCOErr error
	deleteCOErr error
	coItemsErr  error
}

func (f *fakeRemote) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeRemote) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeRemote) ListPurchaseOrders(ctx context.Context, q domain.ListQuery) ([]domain.PurchaseOrder, *domain.Pagination, error) {
	f.record("ListPurchaseOrders")
	if f.listPOErr != nil {
		return nil, nil, f.listPOErr
	}
	docs := make([]domain.PurchaseOrder, len(f.purchaseOrders))
	copy(docs, f.purchaseOrders)
	return docs, &domain.Pagination{Page: q.Page, PageSize: 20, TotalRecords: len(docs), TotalPages: 1}, nil
}

func (f *fakeRemote) GetPurchaseOrder(ctx context.Context, corporationUUID, id string) (*domain.PurchaseOrder, error) {
	f.record("GetPurchaseOrder")
	if f.getPOErr != nil {
		return nil, f.getPOErr
	}
	for _, po := range f.purchaseOrders {
		if po.UUID == id {
			cp := po
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("purchase order %s not found", id)
}

func (f *fakeRemote) CreatePurchaseOrder(ctx context.Context, po *domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	f.record("CreatePurchaseOrder")
	if f.createPOErr != nil {
		return nil, f.createPOErr
	}
	echo := *po
	if echo.UUID == "" {
		echo.UUID = "po-created"
	}
	return &echo, nil
}

func (f *fakeRemote) UpdatePurchaseOrder(ctx context.Context, po *domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	f.record("UpdatePurchaseOrder")
	if f.updatePOErr != nil {
		return nil, f.updatePOErr
	}
	echo := *po
	return &echo, nil
}

func (f *fakeRemote) DeletePurchaseOrder(ctx context.Context, corporationUUID, id string) error {
	f.record("DeletePurchaseOrder")
	return f.deletePOErr
}

func (f *fakeRemote) SavePurchaseOrderItems(ctx context.Context, corporationUUID, poUUID string, items []domain.LineItem, removed []domain.RemovedItem) ([]domain.LineItem, error) {
	f.record("SavePurchaseOrderItems")
	if f.poItemsErr != nil {
		return nil, f.poItemsErr
	}
	return items, nil
}

func (f *fakeRemote) ListChangeOrders(ctx context.Context, q domain.ListQuery) ([]domain.ChangeOrder, *domain.Pagination, error) {
	f.record("ListChangeOrders")
	if f.listCOErr != nil {
		return nil, nil, f.listCOErr
	}
	docs := make([]domain.ChangeOrder, len(f.changeOrders))
	copy(docs, f.changeOrders)
	return docs, &domain.Pagination{Page: q.Page, PageSize: 20, TotalRecords: len(docs), TotalPages: 1}, nil
}

func (f *fakeRemote) GetChangeOrder(ctx context.Context, corporationUUID, id string) (*domain.ChangeOrder, error) {
	f.record("GetChangeOrder")
	if f.getCOErr != nil {
		return nil, f.getCOErr
	}
	for _, co := range f.changeOrders {
		if co.UUID == id {
			cp := co
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("change order %s not found", id)
}

func (f *fakeRemote) CreateChangeOrder(ctx context.Context, co *domain.ChangeOrder) (*domain.ChangeOrder, error) {
	f.record("CreateChangeOrder")
	if f.createCOErr != nil {
		return nil, f.createCOErr
	}
	echo := *co
	if echo.UUID == "" {
		echo.UUID = "co-created"
	}
	return &echo, nil
}

func (f *fakeRemote) UpdateChangeOrder(ctx context.Context, co *domain.ChangeOrder) (*domain.ChangeOrder, error) {
	f.record("UpdateChangeOrder")
	if f.updateCOErr != nil {
		return nil, f.updateCOErr
	}
	echo := *co
	return &echo, nil
}

func (f *fakeRemote) DeleteChangeOrder(ctx context.Context, corporationUUID, id string) error {
	f.record("DeleteChangeOrder")
	return f.deleteCOErr
}

func (f *fakeRemote) SaveChangeOrderItems(ctx context.Context, corporationUUID, coUUID string, coType domain.OrderKind, items []domain.LineItem, removed []domain.RemovedItem) ([]domain.LineItem, error) {
	f.record("SaveChangeOrderItems")
	if f.coItemsErr != nil {
		return nil, f.coItemsErr
	}
	return items, nil
}

// fakeCache is an in-memory DocumentCache.
type fakeCache struct {
	mu sync.Mutex

	pages       map[string][]json.RawMessage
	pagination  map[string]*domain.Pagination
	docs        map[string]json.RawMessage
	docOrder    []string
	invalidated int

	listPageErr error
	savePageErr error
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		pages:      make(map[string][]json.RawMessage),
		pagination: make(map[string]*domain.Pagination),
		docs:       make(map[string]json.RawMessage),
	}
}

func pageKey(corp string, docType domain.DocumentType, page int) string {
	return fmt.Sprintf("%s|%s|%d", corp, docType, page)
}

func docKey(corp string, docType domain.DocumentType, uuid string) string {
	return fmt.Sprintf("%s|%s|%s", corp, docType, uuid)
}

func (f *fakeCache) ListPage(ctx context.Context, corporationUUID string, docType domain.DocumentType, page int) ([]json.RawMessage, *domain.Pagination, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listPageErr != nil {
		return nil, nil, f.listPageErr
	}
	key := pageKey(corporationUUID, docType, page)
	payloads, ok := f.pages[key]
	if !ok {
		return nil, nil, cache.ErrMiss
	}
	return payloads, f.pagination[key], nil
}

func (f *fakeCache) ListFallback(ctx context.Context, corporationUUID string, docType domain.DocumentType) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := docKey(corporationUUID, docType, "")
	var out []json.RawMessage
	for _, key := range f.docOrder {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			out = append(out, f.docs[key])
		}
	}
	if len(out) == 0 {
		return nil, cache.ErrMiss
	}
	return out, nil
}

func (f *fakeCache) SavePage(ctx context.Context, corporationUUID string, docType domain.DocumentType, page int, docs []cache.CachedEntry, pagination *domain.Pagination) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.savePageErr != nil {
		return f.savePageErr
	}
	key := pageKey(corporationUUID, docType, page)
	payloads := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		payloads = append(payloads, d.Payload)
		f.saveDocLocked(docKey(corporationUUID, docType, d.UUID), d.Payload)
	}
	f.pages[key] = payloads
	f.pagination[key] = pagination
	return nil
}

func (f *fakeCache) GetDocument(ctx context.Context, corporationUUID string, docType domain.DocumentType, documentUUID string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payload, ok := f.docs[docKey(corporationUUID, docType, documentUUID)]
	if !ok {
		return nil, cache.ErrMiss
	}
	return payload, nil
}

func (f *fakeCache) SaveDocument(ctx context.Context, corporationUUID string, docType domain.DocumentType, documentUUID string, payload json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveDocLocked(docKey(corporationUUID, docType, documentUUID), payload)
	return nil
}

func (f *fakeCache) saveDocLocked(key string, payload json.RawMessage) {
	if _, ok := f.docs[key]; !ok {
		f.docOrder = append(f.docOrder, key)
	}
	f.docs[key] = payload
}

func (f *fakeCache) DeleteDocument(ctx context.Context, corporationUUID string, docType domain.DocumentType, documentUUID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := docKey(corporationUUID, docType, documentUUID)
	delete(f.docs, key)
	for i, k := range f.docOrder {
		if k == key {
			f.docOrder = append(f.docOrder[:i], f.docOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeCache) InvalidatePages(ctx context.Context, corporationUUID string, docType domain.DocumentType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
	for key := range f.pages {
		delete(f.pages, key)
		delete(f.pagination, key)
	}
	return nil
}

// fakeUploader returns its configured attachments or error.
type fakeUploader struct {
	uploaded []domain.Attachment
	err      error
	calls    int
}

func (f *fakeUploader) UploadPending(ctx context.Context, corporationUUID, documentUUID string, attachments []domain.Attachment) ([]domain.Attachment, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.uploaded, nil
}

// fakeEstimates serves a fixed estimate snapshot.
type fakeEstimates struct {
	items []domain.LineItem
	err   error
}

func (f *fakeEstimates) GetEstimateItems(ctx context.Context, corporationUUID, projectUUID, estimateUUID string) ([]domain.LineItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]domain.LineItem, len(f.items))
	copy(out, f.items)
	return out, nil
}
