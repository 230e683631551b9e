package domain

import "time"

// Stage is the lifecycle stage of a sale workflow.
type Stage string

const (
	StageSelectingLocation Stage = "selecting_location"
	StageSearchingVehicle  Stage = "searching_vehicle"
	StageBuildingCart      Stage = "building_cart"
	StageSubmitting        Stage = "submitting"
	StageCompleted         Stage = "completed"
	StageCancelled         Stage = "cancelled"
)

// Terminal reports whether the stage is final.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageCancelled
}

// SaleWorkflow is one draft sale being assembled by an operator. It owns the
// cart exclusively for the lifetime of one sale.
type SaleWorkflow struct {
	ID         string     `json:"id"`
	OperatorID string     `json:"operator_id"`
	Stage      Stage      `json:"stage"`
	LocationID string     `json:"location_id,omitempty"`
	Vehicle    *Vehicle   `json:"vehicle,omitempty"`
	Lines      []LineItem `json:"lines"`
	Version    int        `json:"version"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// LineItem is one product entry in the cart.
type LineItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`

	// AvailableStock is the stock observed when the line was added or last
	// incremented. It is an upper bound hint only; the authoritative check
	// happens server-side at deduction time.
	AvailableStock int `json:"available_stock"`

	// StockChecked is false when the line was added in degraded mode, with
	// the inventory endpoint unreachable. Such lines carry no stock bound.
	StockChecked bool `json:"stock_checked"`
}

// Recompute refreshes the derived subtotal from its inputs. It must be called
// after every mutation of quantity or unit price.
func (li *LineItem) Recompute() {
	li.Subtotal = int64(li.Quantity) * li.UnitPrice
}

// Total returns the sum of all line subtotals, always recomputed.
func (w *SaleWorkflow) Total() int64 {
	var total int64
	for i := range w.Lines {
		total += int64(w.Lines[i].Quantity) * w.Lines[i].UnitPrice
	}
	return total
}

// FindLineIndex returns the index of the line matching the product ID, or -1.
func (w *SaleWorkflow) FindLineIndex(productID string) int {
	for i := range w.Lines {
		if w.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// RemoveLine deletes the line at the given index preserving display order.
func (w *SaleWorkflow) RemoveLine(idx int) {
	w.Lines = append(w.Lines[:idx], w.Lines[idx+1:]...)
}

// ResetForLocation clears the vehicle and all line items. Cart contents are
// location-scoped and invalidated whenever the location changes.
func (w *SaleWorkflow) ResetForLocation(locationID string) {
	w.LocationID = locationID
	w.Vehicle = nil
	w.Lines = nil
	w.Stage = StageSearchingVehicle
}
