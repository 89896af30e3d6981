package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bygghuset-as/procurement-api/internal/domain"
)

func TestPurchaseOrderStateTransitions(t *testing.T) {
	s := PurchaseOrderState{Status: StatusUnloaded}

	s = poLoading(s)
	assert.Equal(t, StatusLoading, s.Status)

	docs := []domain.PurchaseOrder{{UUID: "a"}, {UUID: "b"}}
	s = poLoaded(s, docs, &domain.Pagination{Page: 1, TotalPages: 3})
	assert.Equal(t, StatusLoaded, s.Status)
	assert.Len(t, s.Documents, 2)

	// A failed refresh records the error but keeps the loaded documents.
	s = poFailed(s, "remote unavailable")
	assert.Equal(t, StatusError, s.Status)
	assert.Equal(t, "remote unavailable", s.Err)
	assert.Len(t, s.Documents, 2)

	s = poLoaded(s, docs, nil)
	assert.Empty(t, s.Err)
}

func TestPoUpsert(t *testing.T) {
	s := PurchaseOrderState{Documents: []domain.PurchaseOrder{
		{UUID: "a", Description: "old"},
		{UUID: "b"},
	}}

	replaced := poUpsert(s, domain.PurchaseOrder{UUID: "a", Description: "new"})
	require.Len(t, replaced.Documents, 2)
	assert.Equal(t, "new", replaced.Documents[0].Description)
	// The original state's slice is untouched.
	assert.Equal(t, "old", s.Documents[0].Description)

	appended := poUpsert(s, domain.PurchaseOrder{UUID: "c"})
	require.Len(t, appended.Documents, 3)
	assert.Equal(t, "c", appended.Documents[2].UUID)
}

func TestPoRemove(t *testing.T) {
	current := &domain.PurchaseOrder{UUID: "a"}
	s := PurchaseOrderState{
		Documents: []domain.PurchaseOrder{{UUID: "a"}, {UUID: "b"}},
		Current:   current,
	}

	s = poRemove(s, "a")
	require.Len(t, s.Documents, 1)
	assert.Equal(t, "b", s.Documents[0].UUID)
	assert.Nil(t, s.Current)

	s.Current = &domain.PurchaseOrder{UUID: "b"}
	s = poRemove(s, "missing")
	assert.Len(t, s.Documents, 1)
	assert.NotNil(t, s.Current)
}

func TestCoUpsert_CorporationGuard(t *testing.T) {
	s := ChangeOrderState{Documents: []domain.ChangeOrder{
		{UUID: "a", CorporationUUID: "corp-1"},
	}}

	// A document from another corporation never enters the visible list.
	out := coUpsert(s, domain.ChangeOrder{UUID: "b", CorporationUUID: "corp-2"}, "corp-1")
	assert.Len(t, out.Documents, 1)

	out = coUpsert(s, domain.ChangeOrder{UUID: "b", CorporationUUID: "corp-1"}, "corp-1")
	require.Len(t, out.Documents, 2)
	assert.Equal(t, "b", out.Documents[1].UUID)

	replaced := coUpsert(out, domain.ChangeOrder{UUID: "a", CorporationUUID: "corp-1", Reason: "updated"}, "corp-1")
	require.Len(t, replaced.Documents, 2)
	assert.Equal(t, "updated", replaced.Documents[0].Reason)
}

func TestCoRemove(t *testing.T) {
	s := ChangeOrderState{
		Documents: []domain.ChangeOrder{{UUID: "a"}, {UUID: "b"}},
		Current:   &domain.ChangeOrder{UUID: "b"},
	}

	s = coRemove(s, "b")
	require.Len(t, s.Documents, 1)
	assert.Equal(t, "a", s.Documents[0].UUID)
	assert.Nil(t, s.Current)
}
