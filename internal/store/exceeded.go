package store

import (
	"fmt"
	"time"

	"github.com/bygghuset-as/procurement-api/internal/domain"
	"github.com/bygghuset-as/procurement-api/internal/finance"
)

// DetectExceeded returns the items whose purchase-order quantity surpasses
// their estimate quantity. An estimate quantity of zero or less never counts
// as exceeded; uninitialized rows must not trigger the review.
func DetectExceeded(items []domain.LineItem) []domain.ExceededItemDTO {
	var exceeded []domain.ExceededItemDTO
	for _, item := range items {
		if item.Quantity == nil || item.POQuantity == nil {
			continue
		}
		estQty := *item.Quantity
		poQty := *item.POQuantity
		if estQty <= 0 || poQty <= estQty {
			continue
		}
		exceeded = append(exceeded, domain.ExceededItemDTO{
			Item:             item,
			EstimateQuantity: estQty,
			POQuantity:       poQty,
			ExceededQuantity: poQty - estQty,
		})
	}
	return exceeded
}

// ClampToEstimate lowers every exceeded item's purchase-order quantity and
// total to the estimate ceiling. This is the only place document quantities
// are rewritten without the caller asking for the exact value.
func ClampToEstimate(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, len(items))
	for i, item := range items {
		if item.Quantity != nil && item.POQuantity != nil && *item.Quantity > 0 && *item.POQuantity > *item.Quantity {
			q := *item.Quantity
			item.POQuantity = &q
			if item.POUnitPrice != nil {
				t := finance.RoundMoney(q * *item.POUnitPrice)
				item.POTotal = &t
			}
		}
		out[i] = item
	}
	return out
}

// DraftChangeOrder builds the change order carrying only the exceeded delta
// per item: co_quantity is the exceeded quantity, co_unit_price the purchase
// order's price, co_total their product. The draft links back to the source
// purchase order and is presented for confirmation before any remote write.
func DraftChangeOrder(po *domain.PurchaseOrder, exceeded []domain.ExceededItemDTO, coNumber string) *domain.ChangeOrder {
	items := make([]domain.LineItem, 0, len(exceeded))
	for _, ex := range exceeded {
		item := ex.Item
		item.POQuantity, item.POUnitPrice, item.POTotal = nil, nil, nil

		q := ex.ExceededQuantity
		item.COQuantity = &q
		if ex.Item.POUnitPrice != nil {
			p := *ex.Item.POUnitPrice
			item.COUnitPrice = &p
			t := finance.RoundMoney(q * p)
			item.COTotal = &t
		}
		items = append(items, item)
	}

	co := &domain.ChangeOrder{
		CONumber:                  coNumber,
		CorporationUUID:           po.CorporationUUID,
		ProjectUUID:               po.ProjectUUID,
		VendorUUID:                po.VendorUUID,
		EstimateUUID:              po.EstimateUUID,
		OriginalPurchaseOrderUUID: po.UUID,
		Reason:                    fmt.Sprintf("Quantities exceeding the estimate on purchase order %s", po.PONumber),
		Status:                    domain.StatusDraft,
		COType:                    po.OrderKind,
		ItemImportMode:            po.ItemImportMode,
		OrderDate:                 time.Now().UTC().Format("2006-01-02"),
	}
	if co.COType == domain.OrderKindLabor {
		co.LaborItems = items
	} else {
		co.Items = items
	}
	return co
}
