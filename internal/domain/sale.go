package domain

import (
	"fmt"
	"strings"
	"time"
)

// SalePayload is the Phase A submission sent to the sales backend.
type SalePayload struct {
	LocationID string         `json:"location_id"`
	VehicleID  string         `json:"vehicle_id"`
	Lines      []SaleLineItem `json:"line_items"`
}

// SaleLineItem is the wire form of a cart line inside a sale payload.
type SaleLineItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

// DeductionFailure records one Phase B stock deduction that did not go
// through. The sale record itself is never rolled back because of it.
type DeductionFailure struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	Reason      string `json:"reason"`
}

// SubmissionOutcome is the aggregate result of a two-phase submission.
type SubmissionOutcome struct {
	SaleID      string             `json:"sale_id"`
	Total       int64              `json:"total"`
	Failures    []DeductionFailure `json:"failures,omitempty"`
	SubmittedAt time.Time          `json:"submitted_at"`
}

// FullSuccess reports whether every Phase B deduction succeeded.
func (o *SubmissionOutcome) FullSuccess() bool {
	return len(o.Failures) == 0
}

// maxNamedFailures bounds how many product names appear in the operator
// message before the list is truncated.
const maxNamedFailures = 3

// Message renders the operator-facing notification for the outcome.
func (o *SubmissionOutcome) Message() string {
	if o.FullSuccess() {
		return fmt.Sprintf("sale %s processed", o.SaleID)
	}

	names := make([]string, 0, maxNamedFailures)
	for i, f := range o.Failures {
		if i == maxNamedFailures {
			names = append(names, fmt.Sprintf("and %d more", len(o.Failures)-maxNamedFailures))
			break
		}
		names = append(names, f.ProductName)
	}
	return fmt.Sprintf("sale %s processed, but inventory update failed for %s",
		o.SaleID, strings.Join(names, ", "))
}

// ReconciliationStatus marks the operator-resolution state of a recorded
// deduction failure.
type ReconciliationStatus string

const (
	ReconciliationPending  ReconciliationStatus = "pending"
	ReconciliationResolved ReconciliationStatus = "resolved"
)

// ReconciliationEntry is a persisted Phase B failure awaiting operator
// attention.
type ReconciliationEntry struct {
	ID          string               `json:"id"`
	SaleID      string               `json:"sale_id"`
	LocationID  string               `json:"location_id"`
	ProductID   string               `json:"product_id"`
	ProductName string               `json:"product_name"`
	Quantity    int                  `json:"quantity"`
	Reason      string               `json:"reason"`
	Status      ReconciliationStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	ResolvedAt  *time.Time           `json:"resolved_at,omitempty"`
	ResolvedBy  string               `json:"resolved_by,omitempty"`
}
