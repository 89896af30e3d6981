package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bygghuset-as/procurement-api/internal/domain"
)

// ErrMiss is returned when the requested page or document is not cached.
var ErrMiss = errors.New("cache miss")

// Partition tracks which pages of a corporation's document list are cached.
// Partitions for different corporations never share documents; a cache write
// only ever touches the partition it is keyed on.
type Partition struct {
	CorporationUUID string `gorm:"primaryKey;size:64"`
	DocType         string `gorm:"primaryKey;size:32"`
	// Pages is a JSON array of cached page numbers
	Pages        string
	TotalRecords int
	TotalPages   int
	PageSize     int
	UpdatedAt    time.Time
}

// CachedDocument is one remote document stored as its raw JSON payload.
// Page and Position preserve list order so a cached page can be replayed
// exactly as the remote returned it.
type CachedDocument struct {
	CorporationUUID string `gorm:"primaryKey;size:64"`
	DocType         string `gorm:"primaryKey;size:32"`
	DocumentUUID    string `gorm:"primaryKey;size:64"`
	Page            int    `gorm:"index"`
	Position        int
	Payload         string
	UpdatedAt       time.Time
}

// Cache is the corporation-partitioned shadow of the remote document store.
// It is read-through only: writes go to the remote first, then the cache is
// updated or invalidated.
type Cache struct {
	db     *gorm.DB
	logger *zap.Logger
}

func New(db *gorm.DB, logger *zap.Logger) *Cache {
	return &Cache{db: db, logger: logger}
}

// ListPage returns the cached page of documents for the partition, in list
// order, together with the pagination snapshot recorded when the page was
// stored. ErrMiss is returned when the page has not been cached.
func (c *Cache) ListPage(ctx context.Context, corporationUUID string, docType domain.DocumentType, page int) ([]json.RawMessage, *domain.Pagination, error) {
	var part Partition
	err := c.db.WithContext(ctx).
		Where("corporation_uuid = ? AND doc_type = ?", corporationUUID, string(docType)).
		First(&part).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrMiss
		}
		return nil, nil, fmt.Errorf("failed to read cache partition: %w", err)
	}

	pages, err := decodePages(part.Pages)
	if err != nil {
		return nil, nil, err
	}
	if !containsPage(pages, page) {
		return nil, nil, ErrMiss
	}

	var rows []CachedDocument
	err = c.db.WithContext(ctx).
		Where("corporation_uuid = ? AND doc_type = ? AND page = ?", corporationUUID, string(docType), page).
		Order("position asc").
		Find(&rows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read cached page: %w", err)
	}

	payloads := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		payloads = append(payloads, json.RawMessage(row.Payload))
	}

	pagination := &domain.Pagination{
		Page:         page,
		PageSize:     part.PageSize,
		TotalRecords: part.TotalRecords,
		TotalPages:   part.TotalPages,
		HasMore:      page < part.TotalPages,
	}
	return payloads, pagination, nil
}

// SavePage replaces the cached copy of one page with a fresh remote result.
func (c *Cache) SavePage(ctx context.Context, corporationUUID string, docType domain.DocumentType, page int, docs []CachedEntry, pagination *domain.Pagination) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var part Partition
		err := tx.Where("corporation_uuid = ? AND doc_type = ?", corporationUUID, string(docType)).
			First(&part).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to read cache partition: %w", err)
		}

		pages, err := decodePages(part.Pages)
		if err != nil {
			pages = nil
		}
		if !containsPage(pages, page) {
			pages = append(pages, page)
		}
		encoded, err := json.Marshal(pages)
		if err != nil {
			return fmt.Errorf("failed to encode cached pages: %w", err)
		}

		part.CorporationUUID = corporationUUID
		part.DocType = string(docType)
		part.Pages = string(encoded)
		part.UpdatedAt = time.Now().UTC()
		if pagination != nil {
			part.TotalRecords = pagination.TotalRecords
			part.TotalPages = pagination.TotalPages
			part.PageSize = pagination.PageSize
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&part).Error; err != nil {
			return fmt.Errorf("failed to save cache partition: %w", err)
		}

		err = tx.Where("corporation_uuid = ? AND doc_type = ? AND page = ?", corporationUUID, string(docType), page).
			Delete(&CachedDocument{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear cached page: %w", err)
		}

		for i, doc := range docs {
			row := CachedDocument{
				CorporationUUID: corporationUUID,
				DocType:         string(docType),
				DocumentUUID:    doc.UUID,
				Page:            page,
				Position:        i,
				Payload:         string(doc.Payload),
				UpdatedAt:       time.Now().UTC(),
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
				return fmt.Errorf("failed to save cached document: %w", err)
			}
		}
		return nil
	})
}

// CachedEntry pairs a document uuid with its raw payload for page writes.
type CachedEntry struct {
	UUID    string
	Payload json.RawMessage
}

// ListFallback returns every cached document for the partition in list
// order, ignoring the page set. Used when a remote list fetch fails and a
// stale copy is better than nothing.
func (c *Cache) ListFallback(ctx context.Context, corporationUUID string, docType domain.DocumentType) ([]json.RawMessage, error) {
	var rows []CachedDocument
	err := c.db.WithContext(ctx).
		Where("corporation_uuid = ? AND doc_type = ?", corporationUUID, string(docType)).
		Order("page asc, position asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read cached documents: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrMiss
	}
	payloads := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		payloads = append(payloads, json.RawMessage(row.Payload))
	}
	return payloads, nil
}

// GetDocument returns one cached document payload, or ErrMiss.
func (c *Cache) GetDocument(ctx context.Context, corporationUUID string, docType domain.DocumentType, documentUUID string) (json.RawMessage, error) {
	var row CachedDocument
	err := c.db.WithContext(ctx).
		Where("corporation_uuid = ? AND doc_type = ? AND document_uuid = ?", corporationUUID, string(docType), documentUUID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read cached document: %w", err)
	}
	return json.RawMessage(row.Payload), nil
}

// SaveDocument upserts one document payload. A document not yet on any
// cached page is stored with page 0 and surfaces on the next page refresh.
func (c *Cache) SaveDocument(ctx context.Context, corporationUUID string, docType domain.DocumentType, documentUUID string, payload json.RawMessage) error {
	var existing CachedDocument
	err := c.db.WithContext(ctx).
		Where("corporation_uuid = ? AND doc_type = ? AND document_uuid = ?", corporationUUID, string(docType), documentUUID).
		First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to read cached document: %w", err)
	}

	row := CachedDocument{
		CorporationUUID: corporationUUID,
		DocType:         string(docType),
		DocumentUUID:    documentUUID,
		Page:            existing.Page,
		Position:        existing.Position,
		Payload:         string(payload),
		UpdatedAt:       time.Now().UTC(),
	}
	if err := c.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save cached document: %w", err)
	}
	return nil
}

// DeleteDocument removes one document from the partition.
func (c *Cache) DeleteDocument(ctx context.Context, corporationUUID string, docType domain.DocumentType, documentUUID string) error {
	err := c.db.WithContext(ctx).
		Where("corporation_uuid = ? AND doc_type = ? AND document_uuid = ?", corporationUUID, string(docType), documentUUID).
		Delete(&CachedDocument{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete cached document: %w", err)
	}
	return nil
}

// InvalidatePages forgets which pages are cached without dropping the
// per-document payloads, forcing the next list to refetch from the remote.
func (c *Cache) InvalidatePages(ctx context.Context, corporationUUID string, docType domain.DocumentType) error {
	err := c.db.WithContext(ctx).
		Model(&Partition{}).
		Where("corporation_uuid = ? AND doc_type = ?", corporationUUID, string(docType)).
		Updates(map[string]interface{}{"pages": "[]", "updated_at": time.Now().UTC()}).Error
	if err != nil {
		return fmt.Errorf("failed to invalidate cache partition: %w", err)
	}
	return nil
}

// Clear drops a corporation's partition entirely.
func (c *Cache) Clear(ctx context.Context, corporationUUID string, docType domain.DocumentType) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("corporation_uuid = ? AND doc_type = ?", corporationUUID, string(docType)).
			Delete(&CachedDocument{}).Error; err != nil {
			return fmt.Errorf("failed to clear cached documents: %w", err)
		}
		if err := tx.Where("corporation_uuid = ? AND doc_type = ?", corporationUUID, string(docType)).
			Delete(&Partition{}).Error; err != nil {
			return fmt.Errorf("failed to clear cache partition: %w", err)
		}
		return nil
	})
}

// Partitions lists every (corporation, document type) pair with cached data,
// used by the refresh job to know what to refetch.
func (c *Cache) Partitions(ctx context.Context) ([]Partition, error) {
	var parts []Partition
	if err := c.db.WithContext(ctx).Find(&parts).Error; err != nil {
		return nil, fmt.Errorf("failed to list cache partitions: %w", err)
	}
	return parts, nil
}

func decodePages(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	var pages []int
	if err := json.Unmarshal([]byte(raw), &pages); err != nil {
		return nil, fmt.Errorf("failed to decode cached pages: %w", err)
	}
	return pages, nil
}

func containsPage(pages []int, page int) bool {
	for _, p := range pages {
		if p == page {
			return true
		}
	}
	return false
}
