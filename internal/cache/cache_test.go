package cache

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bygghuset-as/procurement-api/internal/config"
	"github.com/bygghuset-as/procurement-api/internal/domain"
)

func setupTestCache(t *testing.T) *Cache {
	t.Helper()
	db, err := Open(&config.CacheConfig{
		Driver:       "sqlite",
		DSN:          filepath.Join(t.TempDir(), "cache.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return New(db, zap.NewNop())
}

func entry(uuid string) CachedEntry {
	return CachedEntry{UUID: uuid, Payload: json.RawMessage(`{"uuid":"` + uuid + `"}`)}
}

func TestCache_SavePageAndListPage(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	_, _, err := c.ListPage(ctx, "corp-1", domain.DocTypePurchaseOrder, 1)
	assert.ErrorIs(t, err, ErrMiss)

	pagination := &domain.Pagination{Page: 1, PageSize: 2, TotalRecords: 3, TotalPages: 2}
	err = c.SavePage(ctx, "corp-1", domain.DocTypePurchaseOrder, 1, []CachedEntry{entry("a"), entry("b")}, pagination)
	require.NoError(t, err)

	payloads, p, err := c.ListPage(ctx, "corp-1", domain.DocTypePurchaseOrder, 1)
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.JSONEq(t, `{"uuid":"a"}`, string(payloads[0]))
	assert.JSONEq(t, `{"uuid":"b"}`, string(payloads[1]))
	require.NotNil(t, p)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 3, p.TotalRecords)
	assert.True(t, p.HasMore)

	// Only the saved page is considered cached.
	_, _, err = c.ListPage(ctx, "corp-1", domain.DocTypePurchaseOrder, 2)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestCache_SavePage_ReplacesPageContents(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	pagination := &domain.Pagination{Page: 1, PageSize: 20, TotalRecords: 2, TotalPages: 1}
	require.NoError(t, c.SavePage(ctx, "corp-1", domain.DocTypePurchaseOrder, 1, []CachedEntry{entry("a"), entry("b")}, pagination))
	require.NoError(t, c.SavePage(ctx, "corp-1", domain.DocTypePurchaseOrder, 1, []CachedEntry{entry("c")}, pagination))

	payloads, _, err := c.ListPage(ctx, "corp-1", domain.DocTypePurchaseOrder, 1)
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	assert.JSONEq(t, `{"uuid":"c"}`, string(payloads[0]))
}

func TestCache_PartitionsAreIsolated(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	pagination := &domain.Pagination{Page: 1, PageSize: 20, TotalRecords: 1, TotalPages: 1}
	require.NoError(t, c.SavePage(ctx, "corp-1", domain.DocTypePurchaseOrder, 1, []CachedEntry{entry("a")}, pagination))

	// Another corporation and another document type both miss.
	_, _, err := c.ListPage(ctx, "corp-2", domain.DocTypePurchaseOrder, 1)
	assert.ErrorIs(t, err, ErrMiss)
	_, _, err = c.ListPage(ctx, "corp-1", domain.DocTypeChangeOrder, 1)
	assert.ErrorIs(t, err, ErrMiss)
	_, err = c.GetDocument(ctx, "corp-2", domain.DocTypePurchaseOrder, "a")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestCache_SaveAndGetDocument(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	_, err := c.GetDocument(ctx, "corp-1", domain.DocTypePurchaseOrder, "a")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.SaveDocument(ctx, "corp-1", domain.DocTypePurchaseOrder, "a", json.RawMessage(`{"uuid":"a","v":1}`)))
	payload, err := c.GetDocument(ctx, "corp-1", domain.DocTypePurchaseOrder, "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"uuid":"a","v":1}`, string(payload))

	// Upsert replaces the payload.
	require.NoError(t, c.SaveDocument(ctx, "corp-1", domain.DocTypePurchaseOrder, "a", json.RawMessage(`{"uuid":"a","v":2}`)))
	payload, err = c.GetDocument(ctx, "corp-1", domain.DocTypePurchaseOrder, "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"uuid":"a","v":2}`, string(payload))
}

func TestCache_SaveDocument_KeepsPagePlacement(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	pagination := &domain.Pagination{Page: 1, PageSize: 20, TotalRecords: 2, TotalPages: 1}
	require.NoError(t, c.SavePage(ctx, "corp-1", domain.DocTypePurchaseOrder, 1, []CachedEntry{entry("a"), entry("b")}, pagination))

	require.NoError(t, c.SaveDocument(ctx, "corp-1", domain.DocTypePurchaseOrder, "b", json.RawMessage(`{"uuid":"b","updated":true}`)))

	payloads, _, err := c.ListPage(ctx, "corp-1", domain.DocTypePurchaseOrder, 1)
	require.NoError(t, err)
	require.Len(t, payloads, 2)
	assert.JSONEq(t, `{"uuid":"b","updated":true}`, string(payloads[1]))
}

func TestCache_DeleteDocument(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SaveDocument(ctx, "corp-1", domain.DocTypePurchaseOrder, "a", json.RawMessage(`{"uuid":"a"}`)))
	require.NoError(t, c.DeleteDocument(ctx, "corp-1", domain.DocTypePurchaseOrder, "a"))

	_, err := c.GetDocument(ctx, "corp-1", domain.DocTypePurchaseOrder, "a")
	assert.ErrorIs(t, err, ErrMiss)

	// Deleting an absent document is not an error.
	assert.NoError(t, c.DeleteDocument(ctx, "corp-1", domain.DocTypePurchaseOrder, "a"))
}

func TestCache_InvalidatePages(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	pagination := &domain.Pagination{Page: 1, PageSize: 20, TotalRecords: 1, TotalPages: 1}
	require.NoError(t, c.SavePage(ctx, "corp-1", domain.DocTypePurchaseOrder, 1, []CachedEntry{entry("a")}, pagination))
	require.NoError(t, c.InvalidatePages(ctx, "corp-1", domain.DocTypePurchaseOrder))

	// The page set is forgotten, forcing a remote refetch.
	_, _, err := c.ListPage(ctx, "corp-1", domain.DocTypePurchaseOrder, 1)
	assert.ErrorIs(t, err, ErrMiss)

	// The document payloads survive for single-document reads and fallback.
	_, err = c.GetDocument(ctx, "corp-1", domain.DocTypePurchaseOrder, "a")
	assert.NoError(t, err)
	payloads, err := c.ListFallback(ctx, "corp-1", domain.DocTypePurchaseOrder)
	require.NoError(t, err)
	assert.Len(t, payloads, 1)
}

func TestCache_ListFallback(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	_, err := c.ListFallback(ctx, "corp-1", domain.DocTypePurchaseOrder)
	assert.ErrorIs(t, err, ErrMiss)

	pagination := &domain.Pagination{PageSize: 2, TotalRecords: 4, TotalPages: 2}
	require.NoError(t, c.SavePage(ctx, "corp-1", domain.DocTypePurchaseOrder, 2, []CachedEntry{entry("c"), entry("d")}, pagination))
	require.NoError(t, c.SavePage(ctx, "corp-1", domain.DocTypePurchaseOrder, 1, []CachedEntry{entry("a"), entry("b")}, pagination))

	payloads, err := c.ListFallback(ctx, "corp-1", domain.DocTypePurchaseOrder)
	require.NoError(t, err)
	require.Len(t, payloads, 4)
	// Page order first, position within the page second.
	assert.JSONEq(t, `{"uuid":"a"}`, string(payloads[0]))
	assert.JSONEq(t, `{"uuid":"b"}`, string(payloads[1]))
	assert.JSONEq(t, `{"uuid":"c"}`, string(payloads[2]))
	assert.JSONEq(t, `{"uuid":"d"}`, string(payloads[3]))
}

func TestCache_Clear(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	pagination := &domain.Pagination{Page: 1, PageSize: 20, TotalRecords: 1, TotalPages: 1}
	require.NoError(t, c.SavePage(ctx, "corp-1", domain.DocTypePurchaseOrder, 1, []CachedEntry{entry("a")}, pagination))
	require.NoError(t, c.SavePage(ctx, "corp-2", domain.DocTypePurchaseOrder, 1, []CachedEntry{entry("b")}, pagination))

	require.NoError(t, c.Clear(ctx, "corp-1", domain.DocTypePurchaseOrder))

	_, err := c.GetDocument(ctx, "corp-1", domain.DocTypePurchaseOrder, "a")
	assert.ErrorIs(t, err, ErrMiss)
	// Other partitions are untouched.
	_, err = c.GetDocument(ctx, "corp-2", domain.DocTypePurchaseOrder, "b")
	assert.NoError(t, err)
}

func TestCache_Partitions(t *testing.T) {
	c := setupTestCache(t)
	ctx := context.Background()

	parts, err := c.Partitions(ctx)
	require.NoError(t, err)
	assert.Empty(t, parts)

	pagination := &domain.Pagination{Page: 1, PageSize: 20, TotalRecords: 1, TotalPages: 1}
	require.NoError(t, c.SavePage(ctx, "corp-1", domain.DocTypePurchaseOrder, 1, []CachedEntry{entry("a")}, pagination))
	require.NoError(t, c.SavePage(ctx, "corp-1", domain.DocTypeChangeOrder, 1, []CachedEntry{entry("b")}, pagination))

	parts, err = c.Partitions(ctx)
	require.NoError(t, err)
	assert.Len(t, parts, 2)
}
