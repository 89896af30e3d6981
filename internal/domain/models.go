package domain

import (
	"encoding/json"
	"time"
)

// DocumentType identifies the remote document collection a record belongs to.
type DocumentType string

const (
	DocTypePurchaseOrder DocumentType = "purchase_order"
	DocTypeChangeOrder   DocumentType = "change_order"
)

// DocumentStatus represents the lifecycle status of a purchase or change order
type DocumentStatus string

const (
	StatusDraft             DocumentStatus = "Draft"
	StatusReady             DocumentStatus = "Ready"
	StatusApproved          DocumentStatus = "Approved"
	StatusRejected          DocumentStatus = "Rejected"
	StatusPartiallyReceived DocumentStatus = "Partially_Received"
	StatusCompleted         DocumentStatus = "Completed"
)

// IsValid checks if the DocumentStatus is a valid enum value
func (ds DocumentStatus) IsValid() bool {
	switch ds {
	case StatusDraft, StatusReady, StatusApproved, StatusRejected, StatusPartiallyReceived, StatusCompleted:
		return true
	}
	return false
}

// OrderKind distinguishes material and labor item sets on a document
type OrderKind string

const (
	OrderKindMaterial OrderKind = "MATERIAL"
	OrderKindLabor    OrderKind = "LABOR"
)

// IsValid checks if the OrderKind is a valid enum value
func (ok OrderKind) IsValid() bool {
	return ok == OrderKindMaterial || ok == OrderKindLabor
}

// ItemImportMode describes where a document's line items were sourced from
type ItemImportMode string

const (
	ImportFromEstimate ItemImportMode = "from_estimate"
	ImportManual       ItemImportMode = "manual"
)

// LineItem is the shared shape for purchase-order and change-order items.
//
// It carries two quantity/price/total triples: the estimate snapshot
// (Quantity, UnitPrice, Total), which is authoritative and never mutated by
// document edits, and the document-specific triple (POQuantity... or
// COQuantity..., depending on the owning document). Absent values are nil;
// the reconciliation unit fills in whichever of the three can be derived.
type LineItem struct {
	ItemUUID     string `json:"item_uuid,omitempty"`
	CostCodeUUID string `json:"cost_code_uuid,omitempty"`
	ItemTypeUUID string `json:"item_type_uuid,omitempty"`
	UnitUUID     string `json:"unit_uuid,omitempty"`

	// Display metadata, denormalized for rendering. Derived, never authoritative.
	ItemName     string `json:"item_name,omitempty"`
	CostCodeName string `json:"cost_code_name,omitempty"`
	DivisionName string `json:"division_name,omitempty"`
	UnitName     string `json:"unit_name,omitempty"`

	// Estimate triple (snapshot from the originating estimate)
	Quantity  *float64 `json:"quantity,omitempty"`
	UnitPrice *float64 `json:"unit_price,omitempty"`
	Total     *float64 `json:"total,omitempty"`

	// Purchase-order specific triple
	POQuantity  *float64 `json:"po_quantity,omitempty"`
	POUnitPrice *float64 `json:"po_unit_price,omitempty"`
	POTotal     *float64 `json:"po_total,omitempty"`

	// Change-order specific triple
	COQuantity  *float64 `json:"co_quantity,omitempty"`
	COUnitPrice *float64 `json:"co_unit_price,omitempty"`
	COTotal     *float64 `json:"co_total,omitempty"`
}

// Key returns the identity key for removed-item matching: the item UUID when
// present, otherwise a composite of cost code and item type.
func (li *LineItem) Key() string {
	if li.ItemUUID != "" {
		return li.ItemUUID
	}
	return li.CostCodeUUID + "::" + li.ItemTypeUUID
}

// RemovedItem is a line item moved out of the active set, with the time of removal.
type RemovedItem struct {
	LineItem
	RemovedAt *time.Time `json:"removed_at,omitempty"`
}

// ChargeLine is a single auxiliary charge on a financial breakdown.
// Amount may be given directly or derived from Percentage of the item total.
type ChargeLine struct {
	Percentage *float64 `json:"percentage,omitempty"`
	Amount     *float64 `json:"amount,omitempty"`
	Taxable    bool     `json:"taxable,omitempty"`
}

// TaxLine is one sales-tax tier on a financial breakdown.
type TaxLine struct {
	Percentage *float64 `json:"percentage,omitempty"`
	Amount     *float64 `json:"amount,omitempty"`
}

// BreakdownCharges groups the auxiliary charges of a document.
type BreakdownCharges struct {
	Freight ChargeLine `json:"freight,omitempty"`
	Packing ChargeLine `json:"packing,omitempty"`
	Customs ChargeLine `json:"customs,omitempty"`
	Other   ChargeLine `json:"other,omitempty"`
}

// BreakdownTotals holds the computed totals of a financial breakdown.
type BreakdownTotals struct {
	ItemTotal    *float64 `json:"item_total,omitempty"`
	ChargesTotal *float64 `json:"charges_total,omitempty"`
	TaxTotal     *float64 `json:"tax_total,omitempty"`
	GrandTotal   *float64 `json:"grand_total,omitempty"`
}

// FinancialBreakdown is the nested charges/taxes/totals structure that is the
// source of truth for a document's flat total fields. The flat fields on the
// parent document are a cached projection kept in sync by the normalizer.
type FinancialBreakdown struct {
	Charges    BreakdownCharges `json:"charges"`
	SalesTaxes []TaxLine        `json:"sales_taxes,omitempty"`
	Totals     BreakdownTotals  `json:"totals"`
}

// FlatTotals are the denormalized totals persisted on the document header.
// They are only overwritten from the breakdown when the breakdown carries a
// finite value for the corresponding field.
type FlatTotals struct {
	ItemTotal    *float64 `json:"item_total,omitempty"`
	ChargesTotal *float64 `json:"charges_total,omitempty"`
	TaxTotal     *float64 `json:"tax_total,omitempty"`
	GrandTotal   *float64 `json:"grand_total,omitempty"`
}

// Attachment describes a document attachment. Pending attachments carry
// FileData (or a source URL) and no UUID; the upload endpoint returns
// persisted descriptors carrying a UUID.
type Attachment struct {
	UUID     string `json:"uuid,omitempty"`
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Size     int64  `json:"size,omitempty"`
	FileData string `json:"file_data,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Uploaded reports whether the attachment has already been persisted remotely.
// Uploaded attachments are never re-submitted.
func (a *Attachment) Uploaded() bool {
	return a.UUID != ""
}

// PurchaseOrder is the purchase order aggregate: header fields, the active
// and removed line-item sets, attachments, and the financial breakdown.
type PurchaseOrder struct {
	UUID            string `json:"uuid,omitempty"`
	PONumber        string `json:"po_number,omitempty"`
	CorporationUUID string `json:"corporation_uuid"`
	ProjectUUID     string `json:"project_uuid,omitempty"`
	VendorUUID      string `json:"vendor_uuid,omitempty"`
	EstimateUUID    string `json:"estimate_uuid,omitempty"`

	Status         DocumentStatus `json:"status,omitempty"`
	OrderKind      OrderKind      `json:"po_type,omitempty"`
	ItemImportMode ItemImportMode `json:"item_import_mode,omitempty"`
	OrderDate      string         `json:"order_date,omitempty"`
	DeliveryDate   string         `json:"delivery_date,omitempty"`
	Description    string         `json:"description,omitempty"`
	IsActive       *bool          `json:"is_active,omitempty"`

	FlatTotals

	// The breakdown may arrive as a structured object or as a serialized
	// string; both are preserved verbatim until normalized. Some remote
	// responses use the camelCase key.
	FinancialBreakdown    json.RawMessage `json:"financial_breakdown,omitempty"`
	FinancialBreakdownAlt json.RawMessage `json:"financialBreakdown,omitempty"`

	Items        []LineItem    `json:"po_items,omitempty"`
	LaborItems   []LineItem    `json:"labor_po_items,omitempty"`
	RemovedItems []RemovedItem `json:"removed_po_items,omitempty"`
	Attachments  []Attachment  `json:"attachments,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// BreakdownRaw returns the raw breakdown payload, preferring the snake_case key.
func (po *PurchaseOrder) BreakdownRaw() json.RawMessage {
	if len(po.FinancialBreakdown) > 0 {
		return po.FinancialBreakdown
	}
	return po.FinancialBreakdownAlt
}

// ActiveItems returns the item set in effect for this order: labor orders
// carry their items in the labor set and an empty material set.
func (po *PurchaseOrder) ActiveItems() []LineItem {
	if po.OrderKind == OrderKindLabor {
		return po.LaborItems
	}
	return po.Items
}

// ChangeOrder is the change order aggregate. It mirrors PurchaseOrder and
// additionally links back to the purchase order that triggered it.
type ChangeOrder struct {
	UUID            string `json:"uuid,omitempty"`
	CONumber        string `json:"co_number,omitempty"`
	CorporationUUID string `json:"corporation_uuid"`
	ProjectUUID     string `json:"project_uuid,omitempty"`
	VendorUUID      string `json:"vendor_uuid,omitempty"`
	EstimateUUID    string `json:"estimate_uuid,omitempty"`

	// OriginalPurchaseOrderUUID links an auto-drafted change order to the
	// purchase order whose quantities exceeded the estimate.
	OriginalPurchaseOrderUUID string `json:"original_purchase_order_uuid,omitempty"`
	Reason                    string `json:"reason,omitempty"`

	Status         DocumentStatus `json:"status,omitempty"`
	COType         OrderKind      `json:"co_type,omitempty"`
	ItemImportMode ItemImportMode `json:"item_import_mode,omitempty"`
	OrderDate      string         `json:"order_date,omitempty"`
	Description    string         `json:"description,omitempty"`
	IsActive       *bool          `json:"is_active,omitempty"`

	FlatTotals

	FinancialBreakdown    json.RawMessage `json:"financial_breakdown,omitempty"`
	FinancialBreakdownAlt json.RawMessage `json:"financialBreakdown,omitempty"`

	Items        []LineItem    `json:"co_items,omitempty"`
	LaborItems   []LineItem    `json:"labor_co_items,omitempty"`
	RemovedItems []RemovedItem `json:"removed_co_items,omitempty"`
	Attachments  []Attachment  `json:"attachments,omitempty"`

	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// BreakdownRaw returns the raw breakdown payload, preferring the snake_case key.
func (co *ChangeOrder) BreakdownRaw() json.RawMessage {
	if len(co.FinancialBreakdown) > 0 {
		return co.FinancialBreakdown
	}
	return co.FinancialBreakdownAlt
}

// ActiveItems returns the item set selected by the co_type discriminator.
func (co *ChangeOrder) ActiveItems() []LineItem {
	if co.COType == OrderKindLabor {
		return co.LaborItems
	}
	return co.Items
}

// Pagination mirrors the remote list envelope's pagination block.
type Pagination struct {
	Page         int  `json:"page"`
	PageSize     int  `json:"pageSize"`
	TotalRecords int  `json:"totalRecords"`
	TotalPages   int  `json:"totalPages"`
	HasMore      bool `json:"hasMore"`
}
