package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bygghuset-as/procurement-api/internal/domain"
)

func floatPtr(v float64) *float64 { return &v }

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, 10.56, RoundMoney(10.555))
	assert.Equal(t, 10.55, RoundMoney(10.554))
	assert.Equal(t, 0.0, RoundMoney(0))
	assert.Equal(t, -2.35, RoundMoney(-2.345))
}

func TestRoundQuantity(t *testing.T) {
	assert.Equal(t, 3.3333, RoundQuantity(10.0/3.0))
	assert.Equal(t, 2.0, RoundQuantity(2))
	assert.Equal(t, 0.0001, RoundQuantity(0.00005))
}

func TestReconcileItem_EstimateQuantityDerived(t *testing.T) {
	item := domain.LineItem{
		Quantity:  floatPtr(99),
		UnitPrice: floatPtr(250),
		Total:     floatPtr(1000),
	}

	out := ReconcileItem(item, domain.DocTypePurchaseOrder)

	require.NotNil(t, out.Quantity)
	assert.Equal(t, 4.0, *out.Quantity)
	// Estimate price and total pass through untouched.
	assert.Equal(t, 250.0, *out.UnitPrice)
	assert.Equal(t, 1000.0, *out.Total)
}

func TestReconcileItem_EstimateZeroPriceKeepsQuantity(t *testing.T) {
	item := domain.LineItem{
		Quantity:  floatPtr(7),
		UnitPrice: floatPtr(0),
		Total:     floatPtr(0),
	}

	out := ReconcileItem(item, domain.DocTypePurchaseOrder)

	require.NotNil(t, out.Quantity)
	assert.Equal(t, 7.0, *out.Quantity)
}

func TestReconcileItem_DocumentTriple(t *testing.T) {
	tests := []struct {
		name      string
		item      domain.LineItem
		wantQty   *float64
		wantPrice *float64
		wantTotal *float64
	}{
		{
			name: "quantity and price give total",
			item: domain.LineItem{
				POQuantity:  floatPtr(2),
				POUnitPrice: floatPtr(50.25),
			},
			wantQty:   floatPtr(2),
			wantPrice: floatPtr(50.25),
			wantTotal: floatPtr(100.5),
		},
		{
			name: "total and quantity give price",
			item: domain.LineItem{
				POQuantity: floatPtr(4),
				POTotal:    floatPtr(100),
			},
			wantQty:   floatPtr(4),
			wantPrice: floatPtr(25),
			wantTotal: floatPtr(100),
		},
		{
			name: "total and price give quantity",
			item: domain.LineItem{
				POUnitPrice: floatPtr(25),
				POTotal:     floatPtr(100),
			},
			wantQty:   floatPtr(4),
			wantPrice: floatPtr(25),
			wantTotal: floatPtr(100),
		},
		{
			name: "price only falls back to estimate quantity",
			item: domain.LineItem{
				Quantity:    floatPtr(3),
				POUnitPrice: floatPtr(10),
			},
			wantQty:   floatPtr(3),
			wantPrice: floatPtr(10),
			wantTotal: floatPtr(30),
		},
		{
			name: "quantity only falls back to estimate price",
			item: domain.LineItem{
				UnitPrice:  floatPtr(12.5),
				POQuantity: floatPtr(4),
			},
			wantQty:   floatPtr(4),
			wantPrice: floatPtr(12.5),
			wantTotal: floatPtr(50),
		},
		{
			name:      "no document values stays untouched",
			item:      domain.LineItem{Quantity: floatPtr(5), UnitPrice: floatPtr(10), Total: floatPtr(50)},
			wantQty:   nil,
			wantPrice: nil,
			wantTotal: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := ReconcileItem(tt.item, domain.DocTypePurchaseOrder)
			assertFloatPtr(t, tt.wantQty, out.POQuantity, "quantity")
			assertFloatPtr(t, tt.wantPrice, out.POUnitPrice, "price")
			assertFloatPtr(t, tt.wantTotal, out.POTotal, "total")
		})
	}
}

func TestReconcileItem_ChangeOrderTriple(t *testing.T) {
	item := domain.LineItem{
		COQuantity:  floatPtr(3),
		COUnitPrice: floatPtr(100),
	}

	out := ReconcileItem(item, domain.DocTypeChangeOrder)

	require.NotNil(t, out.COTotal)
	assert.Equal(t, 300.0, *out.COTotal)
	assert.Nil(t, out.POQuantity)
	assert.Nil(t, out.POTotal)
}

func TestReconcileItem_TripleConsistency(t *testing.T) {
	out := ReconcileItem(domain.LineItem{
		POQuantity:  floatPtr(3.3333),
		POUnitPrice: floatPtr(29.99),
	}, domain.DocTypePurchaseOrder)

	require.NotNil(t, out.POTotal)
	assert.InDelta(t, *out.POQuantity**out.POUnitPrice, *out.POTotal, 0.01)
}

func TestFilterRemoved(t *testing.T) {
	items := []domain.LineItem{
		{ItemUUID: "item-1"},
		{ItemUUID: "item-2"},
		{CostCodeUUID: "cc-1", ItemTypeUUID: "type-1"},
		{CostCodeUUID: "cc-2", ItemTypeUUID: "type-1"},
	}
	removed := []domain.RemovedItem{
		{LineItem: domain.LineItem{ItemUUID: "item-2"}},
		{LineItem: domain.LineItem{CostCodeUUID: "cc-1", ItemTypeUUID: "type-1"}},
	}

	filtered := FilterRemoved(items, removed)

	require.Len(t, filtered, 2)
	assert.Equal(t, "item-1", filtered[0].ItemUUID)
	assert.Equal(t, "cc-2", filtered[1].CostCodeUUID)

	// Filtering again changes nothing.
	again := FilterRemoved(filtered, removed)
	assert.Equal(t, filtered, again)
}

func TestFilterRemoved_UUIDWinsOverCompositeKey(t *testing.T) {
	// An item with a uuid is keyed on the uuid even when its cost code and
	// type match a removed composite key.
	items := []domain.LineItem{
		{ItemUUID: "item-1", CostCodeUUID: "cc-1", ItemTypeUUID: "type-1"},
	}
	removed := []domain.RemovedItem{
		{LineItem: domain.LineItem{CostCodeUUID: "cc-1", ItemTypeUUID: "type-1"}},
	}

	filtered := FilterRemoved(items, removed)
	assert.Len(t, filtered, 1)
}

func TestAggregateItemTotal(t *testing.T) {
	items := []domain.LineItem{
		{ItemUUID: "a", POTotal: floatPtr(100.5)},
		{ItemUUID: "b", POTotal: floatPtr(49.5)},
		{ItemUUID: "c", POTotal: floatPtr(999)},
	}
	removed := []domain.RemovedItem{
		{LineItem: domain.LineItem{ItemUUID: "c"}},
	}

	assert.Equal(t, 150.0, AggregateItemTotal(items, removed, domain.DocTypePurchaseOrder))
}

func TestAggregateItemTotal_EstimateOnlyRowsCountZero(t *testing.T) {
	items := []domain.LineItem{
		{ItemUUID: "a", Quantity: floatPtr(5), UnitPrice: floatPtr(145.1), Total: floatPtr(725.5)},
		{ItemUUID: "b", Quantity: floatPtr(4), UnitPrice: floatPtr(78.1), Total: floatPtr(312.4)},
	}

	assert.Equal(t, 0.0, AggregateItemTotal(items, nil, domain.DocTypePurchaseOrder))
	assert.Equal(t, 0.0, AggregateItemTotal(items, nil, domain.DocTypeChangeOrder))
}

func assertFloatPtr(t *testing.T, want, got *float64, field string) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got, field)
		return
	}
	require.NotNil(t, got, field)
	assert.InDelta(t, *want, *got, 0.0001, field)
}
