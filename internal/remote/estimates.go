package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bygghuset-as/procurement-api/internal/domain"
)

// GetEstimateItems returns the estimate line-item snapshot for the given
// corporation, project and estimate. The estimate source is read-only: this
// client never writes estimate data.
func (c *Client) GetEstimateItems(ctx context.Context, corporationUUID, projectUUID, estimateUUID string) ([]domain.LineItem, error) {
	values := url.Values{}
	values.Set("corporation_uuid", corporationUUID)
	values.Set("project_uuid", projectUUID)

	var items []domain.LineItem
	if _, err := c.do(ctx, http.MethodGet, "/estimates/"+estimateUUID+"/items", values, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}
