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

// VehicleClient talks to the vehicle registry collaborator.
type VehicleClient struct {
	base
}

// NewVehicleClient creates a vehicle registry client.
func NewVehicleClient(doer Doer, baseURL string, sess session.Session) *VehicleClient {
	return &VehicleClient{base{doer: doer, baseURL: baseURL, sess: sess}}
}

// SearchByPlate returns suggestion candidates for a plate fragment, scoped to
// a location. An empty result is a normal outcome, not an error.
func (c *VehicleClient) SearchByPlate(ctx context.Context, locationID, fragment string) ([]domain.Vehicle, error) {
	path := fmt.Sprintf("/api/v1/vehicles/search?location_id=%s&plate=%s",
		url.QueryEscape(locationID), url.QueryEscape(fragment))

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call vehicle service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "vehicle")
	}

	var out struct {
		Data []struct {
			ID         string `json:"id"`
			Plate      string `json:"plate"`
			LocationID string `json:"location_id"`
			Brand      string `json:"brand"`
			Model      string `json:"model"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode vehicle search response: %w", err)
	}

	vehicles := make([]domain.Vehicle, len(out.Data))
	for i, v := range out.Data {
		vehicles[i] = domain.Vehicle{
			ID:         v.ID,
			Plate:      v.Plate,
			LocationID: v.LocationID,
			Brand:      v.Brand,
			Model:      v.Model,
		}
	}
	return vehicles, nil
}

// FindForSale performs the definitive sale-eligibility lookup for a plate.
// A miss is reported through the result, not as an error.
func (c *VehicleClient) FindForSale(ctx context.Context, locationID, plate string) (*domain.VehicleSearchResult, error) {
	path := fmt.Sprintf("/api/v1/vehicles/for-sale?location_id=%s&plate=%s",
		url.QueryEscape(locationID), url.QueryEscape(plate))

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call vehicle service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &domain.VehicleSearchResult{Found: false, Message: "vehicle not found"}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, httpclient.ParseResponseError(resp, "vehicle")
	}

	var out struct {
		Data struct {
			Found   bool   `json:"found"`
			Message string `json:"message"`
			Vehicle *struct {
				ID         string `json:"id"`
				Plate      string `json:"plate"`
				LocationID string `json:"location_id"`
				Brand      string `json:"brand"`
				Model      string `json:"model"`
			} `json:"vehicle"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode vehicle lookup response: %w", err)
	}

	result := &domain.VehicleSearchResult{
		Found:   out.Data.Found,
		Message: out.Data.Message,
	}
	if out.Data.Vehicle != nil {
		result.Vehicle = &domain.Vehicle{
			ID:         out.Data.Vehicle.ID,
			Plate:      out.Data.Vehicle.Plate,
			LocationID: out.Data.Vehicle.LocationID,
			Brand:      out.Data.Vehicle.Brand,
			Model:      out.Data.Vehicle.Model,
		}
	}
	return result, nil
}

// Create registers a new vehicle with the registry.
func (c *VehicleClient) Create(ctx context.Context, nv *domain.NewVehicle) (*domain.Vehicle, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/vehicles", nv)
	if err != nil {
		return nil, err
	}

	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call vehicle service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, httpclient.ParseResponseError(resp, "vehicle")
	}

	var out struct {
		Data struct {
			ID         string `json:"id"`
			Plate      string `json:"plate"`
			LocationID string `json:"location_id"`
			Brand      string `json:"brand"`
			Model      string `json:"model"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode vehicle create response: %w", err)
	}

	return &domain.Vehicle{
		ID:         out.Data.ID,
		Plate:      out.Data.Plate,
		LocationID: out.Data.LocationID,
		Brand:      out.Data.Brand,
		Model:      out.Data.Model,
	}, nil
}
