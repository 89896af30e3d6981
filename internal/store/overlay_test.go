package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bygghuset-as/procurement-api/internal/domain"
)

func TestMergeOverlay_FormWinsOnAllowListedFields(t *testing.T) {
	server := &domain.PurchaseOrder{
		UUID:            "po-1",
		PONumber:        "PO-42",
		CorporationUUID: "corp-1",
		Description:     "server description",
		FlatTotals: domain.FlatTotals{
			GrandTotal: floatPtr(100),
		},
		Items: []domain.LineItem{{ItemUUID: "stale"}},
	}
	form := &domain.PurchaseOrder{
		UUID:        "po-1",
		Description: "form description",
		FlatTotals: domain.FlatTotals{
			ItemTotal:  floatPtr(200),
			GrandTotal: floatPtr(250),
		},
		Items: []domain.LineItem{{ItemUUID: "fresh", POTotal: floatPtr(200)}},
	}

	merged := &domain.PurchaseOrder{}
	err := MergeOverlay(server, form, purchaseOrderOverlayFields, merged)
	require.NoError(t, err)

	// Financials and items come from the form.
	assert.Equal(t, 200.0, *merged.ItemTotal)
	assert.Equal(t, 250.0, *merged.GrandTotal)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, "fresh", merged.Items[0].ItemUUID)

	// Everything outside the allow-list comes from the server.
	assert.Equal(t, "server description", merged.Description)
	assert.Equal(t, "PO-42", merged.PONumber)
	assert.Equal(t, "corp-1", merged.CorporationUUID)
}

func TestMergeOverlay_AbsentFormFieldsKeepServerValues(t *testing.T) {
	server := &domain.PurchaseOrder{
		UUID: "po-1",
		FlatTotals: domain.FlatTotals{
			ItemTotal:  floatPtr(100),
			GrandTotal: floatPtr(110),
		},
		Items: []domain.LineItem{{ItemUUID: "kept"}},
	}
	form := &domain.PurchaseOrder{UUID: "po-1"}

	merged := &domain.PurchaseOrder{}
	err := MergeOverlay(server, form, purchaseOrderOverlayFields, merged)
	require.NoError(t, err)

	assert.Equal(t, 100.0, *merged.ItemTotal)
	assert.Equal(t, 110.0, *merged.GrandTotal)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, "kept", merged.Items[0].ItemUUID)
}

func TestMergeOverlay_BreakdownBothKeys(t *testing.T) {
	server := &domain.PurchaseOrder{UUID: "po-1"}
	form := &domain.PurchaseOrder{
		UUID:                  "po-1",
		FinancialBreakdown:    json.RawMessage(`{"totals":{"grand_total":50}}`),
		FinancialBreakdownAlt: json.RawMessage(`{"totals":{"grand_total":60}}`),
	}

	merged := &domain.PurchaseOrder{}
	err := MergeOverlay(server, form, purchaseOrderOverlayFields, merged)
	require.NoError(t, err)

	assert.JSONEq(t, `{"totals":{"grand_total":50}}`, string(merged.FinancialBreakdown))
	assert.JSONEq(t, `{"totals":{"grand_total":60}}`, string(merged.FinancialBreakdownAlt))
}

func TestMergeOverlay_ChangeOrderItemLists(t *testing.T) {
	server := &domain.ChangeOrder{
		UUID:     "co-1",
		CONumber: "CO-2",
		Items:    []domain.LineItem{{ItemUUID: "stale"}},
	}
	form := &domain.ChangeOrder{
		UUID:  "co-1",
		Items: []domain.LineItem{{ItemUUID: "fresh"}},
		RemovedItems: []domain.RemovedItem{
			{LineItem: domain.LineItem{ItemUUID: "gone"}},
		},
	}

	merged := &domain.ChangeOrder{}
	err := MergeOverlay(server, form, changeOrderOverlayFields, merged)
	require.NoError(t, err)

	assert.Equal(t, "CO-2", merged.CONumber)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, "fresh", merged.Items[0].ItemUUID)
	require.Len(t, merged.RemovedItems, 1)
	assert.Equal(t, "gone", merged.RemovedItems[0].ItemUUID)
}
