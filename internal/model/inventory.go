package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockStatus string

const (
	StockNormal     StockStatus = "normal"
	StockLow        StockStatus = "low"
	StockCritical   StockStatus = "critical"
	StockOutOfStock StockStatus = "out_of_stock"
)

// lowStockFactor puts the low tier at 1.5x the minimum threshold.
const lowStockFactor = 1.5

// InventoryItem is the current-state record for one stocked ingredient or supply.
// OnHandQuantity is always expressed in Unit and only moves through ledger postings.
type InventoryItem struct {
	ID             string          `db:"id" json:"id"`
	Name           string          `db:"name" json:"name"`
	Unit           string          `db:"unit" json:"unit"`
	OnHandQuantity float64         `db:"on_hand_quantity" json:"on_hand_quantity"`
	MinThreshold   float64         `db:"min_threshold" json:"min_threshold"`
	CostPerUnit    decimal.Decimal `db:"cost_per_unit" json:"cost_per_unit"`
	SupplierCode   *string         `db:"supplier_code" json:"supplier_code"`
	VendorCode     *string         `db:"vendor_code" json:"vendor_code"`
	Status         StockStatus     `db:"status" json:"status"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// DeriveStatus returns the stock tier for quantity against minThreshold.
func DeriveStatus(quantity, minThreshold float64) StockStatus {
	switch {
	case quantity <= 0:
		return StockOutOfStock
	case quantity <= minThreshold:
		return StockCritical
	case quantity <= minThreshold*lowStockFactor:
		return StockLow
	default:
		return StockNormal
	}
}
