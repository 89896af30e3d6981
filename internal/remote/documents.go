package remote

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bygghuset-as/procurement-api/internal/domain"
)

func listQueryValues(q domain.ListQuery) url.Values {
	values := url.Values{}
	values.Set("corporation_uuid", q.CorporationUUID)
	if q.ProjectUUID != "" {
		values.Set("project_uuid", q.ProjectUUID)
	}
	if q.VendorUUID != "" {
		values.Set("vendor_uuid", q.VendorUUID)
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		values.Set("page_size", strconv.Itoa(q.PageSize))
	}
	return values
}

func corpQuery(corporationUUID string) url.Values {
	values := url.Values{}
	values.Set("corporation_uuid", corporationUUID)
	return values
}

// ListPurchaseOrders fetches a page of purchase orders for a corporation.
func (c *Client) ListPurchaseOrders(ctx context.Context, q domain.ListQuery) ([]domain.PurchaseOrder, *domain.Pagination, error) {
	var docs []domain.PurchaseOrder
	pagination, err := c.do(ctx, http.MethodGet, "/purchase-orders", listQueryValues(q), nil, &docs)
	if err != nil {
		return nil, nil, err
	}
	return docs, pagination, nil
}

// GetPurchaseOrder fetches a single purchase order aggregate.
func (c *Client) GetPurchaseOrder(ctx context.Context, corporationUUID, id string) (*domain.PurchaseOrder, error) {
	var doc domain.PurchaseOrder
	if _, err := c.do(ctx, http.MethodGet, "/purchase-orders/"+id, corpQuery(corporationUUID), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// CreatePurchaseOrder writes a new purchase order header and breakdown.
// Line items are persisted separately via SavePurchaseOrderItems.
func (c *Client) CreatePurchaseOrder(ctx context.Context, po *domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	var doc domain.PurchaseOrder
	if _, err := c.do(ctx, http.MethodPost, "/purchase-orders", nil, po, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdatePurchaseOrder updates an existing purchase order header and breakdown.
func (c *Client) UpdatePurchaseOrder(ctx context.Context, po *domain.PurchaseOrder) (*domain.PurchaseOrder, error) {
	var doc domain.PurchaseOrder
	if _, err := c.do(ctx, http.MethodPut, "/purchase-orders/"+po.UUID, nil, po, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeletePurchaseOrder marks a purchase order inactive remotely.
func (c *Client) DeletePurchaseOrder(ctx context.Context, corporationUUID, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/purchase-orders/"+id, corpQuery(corporationUUID), nil, nil)
	return err
}

// itemListPayload is the request body for the item-list endpoints.
type itemListPayload struct {
	CorporationUUID string               `json:"corporation_uuid"`
	DocumentUUID    string               `json:"document_uuid"`
	Items           []domain.LineItem    `json:"items"`
	RemovedItems    []domain.RemovedItem `json:"removed_items,omitempty"`
}

// SavePurchaseOrderItems persists the reconciled item list of a purchase
// order. Items are stored separately from the header.
func (c *Client) SavePurchaseOrderItems(ctx context.Context, corporationUUID, poUUID string, items []domain.LineItem, removed []domain.RemovedItem) ([]domain.LineItem, error) {
	payload := itemListPayload{
		CorporationUUID: corporationUUID,
		DocumentUUID:    poUUID,
		Items:           items,
		RemovedItems:    removed,
	}
	var saved []domain.LineItem
	if _, err := c.do(ctx, http.MethodPost, "/purchase-order-items", nil, payload, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// ListChangeOrders fetches a page of change orders for a corporation.
func (c *Client) ListChangeOrders(ctx context.Context, q domain.ListQuery) ([]domain.ChangeOrder, *domain.Pagination, error) {
	var docs []domain.ChangeOrder
	pagination, err := c.do(ctx, http.MethodGet, "/change-orders", listQueryValues(q), nil, &docs)
	if err != nil {
		return nil, nil, err
	}
	return docs, pagination, nil
}

// GetChangeOrder fetches a single change order aggregate.
func (c *Client) GetChangeOrder(ctx context.Context, corporationUUID, id string) (*domain.ChangeOrder, error) {
	var doc domain.ChangeOrder
	if _, err := c.do(ctx, http.MethodGet, "/change-orders/"+id, corpQuery(corporationUUID), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// CreateChangeOrder writes a new change order header and breakdown.
func (c *Client) CreateChangeOrder(ctx context.Context, co *domain.ChangeOrder) (*domain.ChangeOrder, error) {
	var doc domain.ChangeOrder
	if _, err := c.do(ctx, http.MethodPost, "/change-orders", nil, co, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateChangeOrder updates an existing change order header and breakdown.
func (c *Client) UpdateChangeOrder(ctx context.Context, co *domain.ChangeOrder) (*domain.ChangeOrder, error) {
	var doc domain.ChangeOrder
	if _, err := c.do(ctx, http.MethodPut, "/change-orders/"+co.UUID, nil, co, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// DeleteChangeOrder marks a change order inactive remotely.
func (c *Client) DeleteChangeOrder(ctx context.Context, corporationUUID, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/change-orders/"+id, corpQuery(corporationUUID), nil, nil)
	return err
}

// SaveChangeOrderItems persists the reconciled item list of a change order.
// Labor change orders use a dedicated collection.
func (c *Client) SaveChangeOrderItems(ctx context.Context, corporationUUID, coUUID string, coType domain.OrderKind, items []domain.LineItem, removed []domain.RemovedItem) ([]domain.LineItem, error) {
	path := "/change-order-items"
	if coType == domain.OrderKindLabor {
		path = "/labor-change-order-items"
	}
	payload := itemListPayload{
		CorporationUUID: corporationUUID,
		DocumentUUID:    coUUID,
		Items:           items,
		RemovedItems:    removed,
	}
	var saved []domain.LineItem
	if _, err := c.do(ctx, http.MethodPost, path, nil, payload, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}

// attachmentUploadPayload is the request body for the attachment endpoint.
type attachmentUploadPayload struct {
	CorporationUUID string              `json:"corporation_uuid"`
	DocumentUUID    string              `json:"document_uuid"`
	Attachments     []domain.Attachment `json:"attachments"`
}

// UploadAttachments submits not-yet-uploaded attachments and returns the
// persisted descriptors. Attachments that already carry a UUID must not be
// passed here.
func (c *Client) UploadAttachments(ctx context.Context, corporationUUID, documentUUID string, pending []domain.Attachment) ([]domain.Attachment, error) {
	payload := attachmentUploadPayload{
		CorporationUUID: corporationUUID,
		DocumentUUID:    documentUUID,
		Attachments:     pending,
	}
	var saved []domain.Attachment
	if _, err := c.do(ctx, http.MethodPost, "/attachments", nil, payload, &saved); err != nil {
		return nil, err
	}
	return saved, nil
}
