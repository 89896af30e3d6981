package finance

import (
	"github.com/shopspring/decimal"

	"github.com/bygghuset-as/procurement-api/internal/domain"
)

// RoundMoney rounds a monetary value to 2 decimals.
func RoundMoney(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// RoundQuantity rounds a quantity to 4 decimals.
func RoundQuantity(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return f
}

// ReconcileItem derives the missing scalars of a line item's triples.
//
// Estimate triple: when total and unit price are both present and the price
// is non-zero, quantity is recomputed as total/price at 4 decimals. This
// guards against the quantity having been overwritten elsewhere; the estimate
// price and total pass through unchanged and are never back-derived.
//
// Document-specific triple: filled deterministically from whichever two of
// the three are present, falling back to the estimate quantity and unit
// price when needed. An item with no document-specific value at all keeps
// all three nil and contributes zero to aggregate totals.
func ReconcileItem(item domain.LineItem, docType domain.DocumentType) domain.LineItem {
	if item.Total != nil && item.UnitPrice != nil && *item.UnitPrice != 0 {
		q := RoundQuantity(*item.Total / *item.UnitPrice)
		item.Quantity = &q
	}

	qty, price, total := docTriple(&item, docType)
	if qty == nil && price == nil && total == nil {
		return item
	}

	if total == nil && price != nil && qty != nil {
		t := RoundMoney(*qty * *price)
		total = &t
	}
	if price == nil && total != nil && qty != nil && *qty != 0 {
		p := RoundMoney(*total / *qty)
		price = &p
	}
	if qty == nil && total != nil && price != nil && *price != 0 {
		q := RoundMoney(*total / *price)
		qty = &q
	}

	// Estimate fallbacks, each followed by another attempt at the total.
	if qty == nil && item.Quantity != nil {
		q := *item.Quantity
		qty = &q
		if total == nil && price != nil {
			t := RoundMoney(*qty * *price)
			total = &t
		}
	}
	if price == nil && item.UnitPrice != nil {
		p := *item.UnitPrice
		price = &p
		if total == nil && qty != nil {
			t := RoundMoney(*qty * *price)
			total = &t
		}
	}

	setDocTriple(&item, docType, qty, price, total)
	return item
}

// ReconcileItems reconciles every item in a list.
func ReconcileItems(items []domain.LineItem, docType domain.DocumentType) []domain.LineItem {
	out := make([]domain.LineItem, len(items))
	for i, item := range items {
		out[i] = ReconcileItem(item, docType)
	}
	return out
}

// FilterRemoved drops every active item whose key appears in the removed set.
// The filter is idempotent: applying it twice yields the same result as once.
func FilterRemoved(items []domain.LineItem, removed []domain.RemovedItem) []domain.LineItem {
	if len(removed) == 0 {
		return items
	}
	removedKeys := make(map[string]struct{}, len(removed))
	for i := range removed {
		removedKeys[removed[i].Key()] = struct{}{}
	}
	out := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		if _, gone := removedKeys[item.Key()]; gone {
			continue
		}
		out = append(out, item)
	}
	return out
}

// AggregateItemTotal sums the document-specific total across active
// (non-removed) items. Items without a document-specific total contribute
// zero: estimate-only rows are not counted until a value is committed.
func AggregateItemTotal(items []domain.LineItem, removed []domain.RemovedItem, docType domain.DocumentType) float64 {
	sum := 0.0
	for _, item := range FilterRemoved(items, removed) {
		_, _, total := docTriple(&item, docType)
		if total != nil {
			sum += *total
		}
	}
	return RoundMoney(sum)
}

func docTriple(item *domain.LineItem, docType domain.DocumentType) (qty, price, total *float64) {
	if docType == domain.DocTypeChangeOrder {
		return copyFloat(item.COQuantity), copyFloat(item.COUnitPrice), copyFloat(item.COTotal)
	}
	return copyFloat(item.POQuantity), copyFloat(item.POUnitPrice), copyFloat(item.POTotal)
}

func setDocTriple(item *domain.LineItem, docType domain.DocumentType, qty, price, total *float64) {
	if docType == domain.DocTypeChangeOrder {
		item.COQuantity, item.COUnitPrice, item.COTotal = qty, price, total
		return
	}
	item.POQuantity, item.POUnitPrice, item.POTotal = qty, price, total
}
