package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dfgutierrez/sigr-sales/pkg/httpclient"
)

// TokenClaims is the operator identity returned by the auth backend for a
// validated bearer token.
type TokenClaims struct {
	OperatorID string `json:"operator_id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
}

// AuthClient talks to the backend auth service.
type AuthClient struct {
	base
}

// NewAuthClient creates an auth backend client.
func NewAuthClient(doer Doer, baseURL string) *AuthClient {
	return &AuthClient{base{doer: doer, baseURL: baseURL}}
}

// ValidateToken asks the auth backend to validate a bearer token and returns
// the operator claims it carries. The token under validation rides on the
// request itself, never the ambient session.
func (c *AuthClient) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/auth/validate", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call auth service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "auth")
	}

	var out struct {
		Data TokenClaims `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode auth validate response: %w", err)
	}
	if out.Data.OperatorID == "" {
		return nil, fmt.Errorf("auth backend returned no operator id")
	}

	return &out.Data, nil
}
