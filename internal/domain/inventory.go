package domain

// DeductionReasonSale tags stock deductions issued by the sale workflow.
const DeductionReasonSale = "sale"

// InventoryRecord is the stock record for a (product, location) pair.
type InventoryRecord struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	Quantity   int    `json:"quantity"`
}

// Deduction is a stock decrement request against an inventory record.
type Deduction struct {
	RecordID   string `json:"record_id"`
	Quantity   int    `json:"quantity"`
	LocationID string `json:"location_id"`
	Reason     string `json:"reason"`
	SaleRef    string `json:"sale_ref"`
	Notes      string `json:"notes,omitempty"`
}

// Product is a catalog product with its location-scoped stock and prices.
type Product struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Code          string `json:"code"`
	SalePrice     int64  `json:"sale_price"`
	FallbackPrice int64  `json:"fallback_price"`
	Stock         int    `json:"stock"`
}

// EffectivePrice returns the price a new line item defaults to: the sale
// price, falling back to the secondary price, then zero.
func (p *Product) EffectivePrice() int64 {
	if p.SalePrice > 0 {
		return p.SalePrice
	}
	if p.FallbackPrice > 0 {
		return p.FallbackPrice
	}
	return 0
}
