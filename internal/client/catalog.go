package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dfgutierrez/sigr-sales/internal/domain"
	"github.com/dfgutierrez/sigr-sales/internal/session"
	"github.com/dfgutierrez/sigr-sales/pkg/httpclient"
)

// CatalogClient talks to the product catalog collaborator.
type CatalogClient struct {
	base
}

// NewCatalogClient creates a product catalog client.
func NewCatalogClient(doer Doer, baseURL string, sess session.Session) *CatalogClient {
	return &CatalogClient{base{doer: doer, baseURL: baseURL, sess: sess}}
}

// ProductsWithStock lists products with their location-scoped stock and
// price fields.
func (c *CatalogClient) ProductsWithStock(ctx context.Context, locationID string, onlyInStock bool) ([]domain.Product, error) {
	path := fmt.Sprintf("/api/v1/products?location_id=%s&in_stock=%t",
		url.QueryEscape(locationID), onlyInStock)

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call catalog service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "catalog")
	}

	var out struct {
		Data []struct {
			ID            string `json:"id"`
			Name          string `json:"name"`
			Code          string `json:"code"`
			SalePrice     int64  `json:"sale_price"`
			FallbackPrice int64  `json:"fallback_price"`
			Stock         int    `json:"stock"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode products response: %w", err)
	}

	products := make([]domain.Product, len(out.Data))
	for i, p := range out.Data {
		products[i] = domain.Product{
			ID:            p.ID,
			Name:          p.Name,
			Code:          p.Code,
			SalePrice:     p.SalePrice,
			FallbackPrice: p.FallbackPrice,
			Stock:         p.Stock,
		}
	}
	return products, nil
}
