package dto

import "github.com/shopspring/decimal"

// ImportItemInput is one parsed record from an item import.
type ImportItemInput struct {
	ID              string          `json:"id"` // optional; generated when empty
	Name            string          `json:"name"`
	Unit            string          `json:"unit"`
	MinThreshold    float64         `json:"min_threshold"`
	CostPerUnit     decimal.Decimal `json:"cost_per_unit"`
	SupplierCode    string          `json:"supplier_code"`
	VendorCode      string          `json:"vendor_code"`
	OpeningQuantity *float64        `json:"opening_quantity"` // counted stock in Unit, posted through the ledger
	Actor           string          `json:"actor"`
}
