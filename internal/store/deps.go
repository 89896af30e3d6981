// Package store holds the document reconciliation stores: explicit state
// records plus command methods orchestrating the remote API, the local cache
// and the attachment uploader around the pure finance functions.
package store

import (
	"context"
	"encoding/json"

	"github.com/bygghuset-as/procurement-api/internal/cache"
	"github.com/bygghuset-as/procurement-api/internal/domain"
)

// RemoteAPI is the remote document store as the reconciliation stores
// consume it. Implemented by remote.Client; tests substitute fakes.
type RemoteAPI interface {
	ListPurchaseOrders(ctx context.Context, q domain.ListQuery) ([]domain.PurchaseOrder, *domain.Pagination, error)
	GetPurchaseOrder(ctx context.Context, corporationUUID, id string) (*domain.PurchaseOrder, error)
	CreatePurchaseOrder(ctx context.Context, po *domain.PurchaseOrder) (*domain.PurchaseOrder, error)
	UpdatePurchaseOrder(ctx context.Context, po *domain.PurchaseOrder) (*domain.PurchaseOrder, error)
	DeletePurchaseOrder(ctx context.Context, corporationUUID, id string) error
	SavePurchaseOrderItems(ctx context.Context, corporationUUID, poUUID string, items []domain.LineItem, removed []domain.RemovedItem) ([]domain.LineItem, error)

	ListChangeOrders(ctx context.Context, q domain.ListQuery) ([]domain.ChangeOrder, *domain.Pagination, error)
	GetChangeOrder(ctx context.Context, corporationUUID, id string) (*domain.ChangeOrder, error)
	CreateChangeOrder(ctx context.Context, co *domain.ChangeOrder) (*domain.ChangeOrder, error)
	UpdateChangeOrder(ctx context.Context, co *domain.ChangeOrder) (*domain.ChangeOrder, error)
	DeleteChangeOrder(ctx context.Context, corporationUUID, id string) error
	SaveChangeOrderItems(ctx context.Context, corporationUUID, coUUID string, coType domain.OrderKind, items []domain.LineItem, removed []domain.RemovedItem) ([]domain.LineItem, error)
}

// DocumentCache is the corporation-partitioned shadow of the remote store.
// Every failure from it is logged and swallowed; the cache is a performance
// optimization, never a source of truth for writes.
type DocumentCache interface {
	ListPage(ctx context.Context, corporationUUID string, docType domain.DocumentType, page int) ([]json.RawMessage, *domain.Pagination, error)
	ListFallback(ctx context.Context, corporationUUID string, docType domain.DocumentType) ([]json.RawMessage, error)
	SavePage(ctx context.Context, corporationUUID string, docType domain.DocumentType, page int, docs []cache.CachedEntry, pagination *domain.Pagination) error
	GetDocument(ctx context.Context, corporationUUID string, docType domain.DocumentType, documentUUID string) (json.RawMessage, error)
	SaveDocument(ctx context.Context, corporationUUID string, docType domain.DocumentType, documentUUID string, payload json.RawMessage) error
	DeleteDocument(ctx context.Context, corporationUUID string, docType domain.DocumentType, documentUUID string) error
	InvalidatePages(ctx context.Context, corporationUUID string, docType domain.DocumentType) error
}

// AttachmentUploader transports pending attachments and returns persisted
// descriptors. Implemented by the storage package.
type AttachmentUploader interface {
	UploadPending(ctx context.Context, corporationUUID, documentUUID string, attachments []domain.Attachment) ([]domain.Attachment, error)
}

// EstimateSource is the read-only provider of estimate line-item snapshots.
// The stores consume it for explicit re-import; it is never written.
type EstimateSource interface {
	GetEstimateItems(ctx context.Context, corporationUUID, projectUUID, estimateUUID string) ([]domain.LineItem, error)
}
