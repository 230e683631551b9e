package domain

// Vehicle is a vehicle registry record eligible for attachment to a sale.
type Vehicle struct {
	ID         string `json:"id"`
	Plate      string `json:"plate"`
	LocationID string `json:"location_id"`
	Brand      string `json:"brand,omitempty"`
	Model      string `json:"model,omitempty"`
}

// NewVehicle is the payload for creating a vehicle in the registry.
type NewVehicle struct {
	Plate      string `json:"plate"`
	LocationID string `json:"location_id"`
	Brand      string `json:"brand,omitempty"`
	Model      string `json:"model,omitempty"`
}

// VehicleSearchResult is the outcome of a definitive plate lookup.
type VehicleSearchResult struct {
	Found   bool     `json:"found"`
	Vehicle *Vehicle `json:"vehicle,omitempty"`
	Message string   `json:"message,omitempty"`
}
