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

// InventoryClient talks to the inventory collaborator.
type InventoryClient struct {
	base
}

// NewInventoryClient creates an inventory client.
func NewInventoryClient(doer Doer, baseURL string, sess session.Session) *InventoryClient {
	return &InventoryClient{base{doer: doer, baseURL: baseURL, sess: sess}}
}

// GetByProductAndLocation fetches the stock record for a (product, location)
// pair. An absent record surfaces as errors.ErrNotFound; transport failures
// come back as wrapped errors so the caller can distinguish the degraded-mode
// branch from a definitive miss.
func (c *InventoryClient) GetByProductAndLocation(ctx context.Context, productID, locationID string) (*domain.InventoryRecord, error) {
	path := fmt.Sprintf("/api/v1/inventory?product_id=%s&location_id=%s",
		url.QueryEscape(productID), url.QueryEscape(locationID))

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call inventory service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "inventory")
	}

	var out struct {
		Data struct {
			ID         string `json:"id"`
			ProductID  string `json:"product_id"`
			LocationID string `json:"location_id"`
			Quantity   int    `json:"quantity"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode inventory response: %w", err)
	}

	return &domain.InventoryRecord{
		ID:         out.Data.ID,
		ProductID:  out.Data.ProductID,
		LocationID: out.Data.LocationID,
		Quantity:   out.Data.Quantity,
	}, nil
}

// Deduct requests an atomic stock decrement against an inventory record.
func (c *InventoryClient) Deduct(ctx context.Context, d *domain.Deduction) (*domain.InventoryRecord, error) {
	type deductRequest struct {
		Quantity   int    `json:"quantity"`
		LocationID string `json:"location_id"`
		Reason     string `json:"reason"`
		SaleRef    string `json:"sale_ref"`
		Notes      string `json:"notes,omitempty"`
	}

	payload := deductRequest{
		Quantity:   d.Quantity,
		LocationID: d.LocationID,
		Reason:     d.Reason,
		SaleRef:    d.SaleRef,
		Notes:      d.Notes,
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/inventory/"+url.PathEscape(d.RecordID)+"/deduct", payload)
	if err != nil {
		return nil, err
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call inventory service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "inventory")
	}

	var out struct {
		Data struct {
			ID         string `json:"id"`
			ProductID  string `json:"product_id"`
			LocationID string `json:"location_id"`
			Quantity   int    `json:"quantity"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode deduct response: %w", err)
	}

	return &domain.InventoryRecord{
		ID:         out.Data.ID,
		ProductID:  out.Data.ProductID,
		LocationID: out.Data.LocationID,
		Quantity:   out.Data.Quantity,
	}, nil
}
