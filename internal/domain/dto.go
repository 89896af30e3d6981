package domain

// ErrorResponse is the generic error envelope returned by the HTTP facade
type ErrorResponse struct {
	Error string `json:"error"`
}

// PaginatedResponse wraps list responses in the remote API's envelope shape
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// ListQuery holds the supported list-endpoint filters
type ListQuery struct {
	CorporationUUID string `json:"corporation_uuid" validate:"required,uuid"`
	ProjectUUID     string `json:"project_uuid,omitempty" validate:"omitempty,uuid"`
	VendorUUID      string `json:"vendor_uuid,omitempty" validate:"omitempty,uuid"`
	Page            int    `json:"page,omitempty" validate:"omitempty,gte=1"`
	PageSize        int    `json:"page_size,omitempty" validate:"omitempty,gte=1,lte=500"`
}

// SavePurchaseOrderRequest carries a purchase order save. The document is
// the caller's in-flight form; its financial and item-list fields are
// re-applied on top of the server echo after the write (overlay merge).
// Force skips the exceeded-quantity review and saves as-is.
type SavePurchaseOrderRequest struct {
	Document PurchaseOrder `json:"document" validate:"required"`
	Force    bool          `json:"force,omitempty"`
}

// SaveChangeOrderRequest carries a change order save
type SaveChangeOrderRequest struct {
	Document ChangeOrder `json:"document" validate:"required"`
}

// ExceededItemDTO is one line of the exceeded-quantity review set
type ExceededItemDTO struct {
	Item             LineItem `json:"item"`
	EstimateQuantity float64  `json:"estimate_quantity"`
	POQuantity       float64  `json:"po_quantity"`
	ExceededQuantity float64  `json:"exceeded_quantity"`
}

// ExceededReviewResponse is returned when a purchase order save is halted
// because document quantities exceed the originating estimate. The caller
// either re-submits with force=true or raises a change order for the delta.
type ExceededReviewResponse struct {
	PurchaseOrderUUID string            `json:"purchase_order_uuid,omitempty"`
	Exceeded          []ExceededItemDTO `json:"exceeded"`
}

// SaveWarningDTO reports a non-fatal phase failure from a document save
type SaveWarningDTO struct {
	Phase  string `json:"phase"`
	Detail string `json:"detail"`
}

// SaveDocumentResponse carries the committed document plus any phase warnings.
// A save with warnings still succeeded: the header is the durable identity.
type SaveDocumentResponse struct {
	Data     interface{}      `json:"data"`
	Warnings []SaveWarningDTO `json:"warnings,omitempty"`
}

// RaiseChangeOrderResponse returns the clamped purchase order together with
// the drafted change order for caller confirmation.
type RaiseChangeOrderResponse struct {
	PurchaseOrder *PurchaseOrder   `json:"purchase_order"`
	DraftedCO     *ChangeOrder     `json:"drafted_change_order"`
	Warnings      []SaveWarningDTO `json:"warnings,omitempty"`
}
