package store

import (
	"encoding/json"
	"fmt"
)

// purchaseOrderOverlayFields are the caller-authored fields re-applied on top
// of the server echo after a purchase order save. The server is trusted for
// identity and metadata; the in-flight form is trusted for financials and
// item lists, since the round-trip may lag behind the user's last edit.
var purchaseOrderOverlayFields = []string{
	"item_total",
	"charges_total",
	"tax_total",
	"grand_total",
	"financial_breakdown",
	"financialBreakdown",
	"po_items",
	"labor_po_items",
	"removed_po_items",
}

// changeOrderOverlayFields mirror the purchase order set for change orders.
var changeOrderOverlayFields = []string{
	"item_total",
	"charges_total",
	"tax_total",
	"grand_total",
	"financial_breakdown",
	"financialBreakdown",
	"co_items",
	"labor_co_items",
	"removed_co_items",
}

// MergeOverlay copies the allow-listed fields from the form document onto the
// server document and decodes the result into out. Fields absent from the
// form are left as the server returned them; nothing outside the allow-list
// is ever taken from the form.
func MergeOverlay(serverDoc, formDoc interface{}, allowList []string, out interface{}) error {
	serverMap, err := toFieldMap(serverDoc)
	if err != nil {
		return fmt.Errorf("failed to encode server document: %w", err)
	}
	formMap, err := toFieldMap(formDoc)
	if err != nil {
		return fmt.Errorf("failed to encode form document: %w", err)
	}

	for _, field := range allowList {
		if v, ok := formMap[field]; ok {
			serverMap[field] = v
		}
	}

	merged, err := json.Marshal(serverMap)
	if err != nil {
		return fmt.Errorf("failed to encode merged document: %w", err)
	}
	if err := json.Unmarshal(merged, out); err != nil {
		return fmt.Errorf("failed to decode merged document: %w", err)
	}
	return nil
}

func toFieldMap(doc interface{}) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}
