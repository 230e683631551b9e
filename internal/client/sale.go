package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dfgutierrez/sigr-sales/internal/domain"
	"github.com/dfgutierrez/sigr-sales/internal/session"
	"github.com/dfgutierrez/sigr-sales/pkg/httpclient"
)

// SaleClient talks to the sales backend collaborator.
type SaleClient struct {
	base
}

// NewSaleClient creates a sales backend client.
func NewSaleClient(doer Doer, baseURL string, sess session.Session) *SaleClient {
	return &SaleClient{base{doer: doer, baseURL: baseURL, sess: sess}}
}

// Submit persists the sale record (Phase A) and returns its identifier.
func (c *SaleClient) Submit(ctx context.Context, payload *domain.SalePayload) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/sales", payload)
	if err != nil {
		return "", err
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call sales backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", httpclient.ParseResponseError(resp, "sales")
	}

	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode sale response: %w", err)
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("sales backend returned no sale id")
	}

	return out.Data.ID, nil
}
