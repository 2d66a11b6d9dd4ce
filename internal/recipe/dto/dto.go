package dto

import "github.com/shopspring/decimal"

type CostLine struct {
	InventoryItemID string          `json:"inventory_item_id"`
	Name            string          `json:"name"`
	Quantity        float64         `json:"quantity"` // as required by the recipe
	Unit            string          `json:"unit"`
	ItemQuantity    float64         `json:"item_quantity"` // in the item's unit of record
	ItemUnit        string          `json:"item_unit"`
	CostPerUnit     decimal.Decimal `json:"cost_per_unit"`
	Cost            decimal.Decimal `json:"cost"`
	Compatible      bool            `json:"compatible"`
	Missing         bool            `json:"missing"`
}

type CostResult struct {
	SellableID string          `json:"sellable_id"`
	TotalCost  decimal.Decimal `json:"total_cost"`
	// Complete is false when an item is missing or a unit did not convert.
	Complete bool       `json:"complete"`
	Lines    []CostLine `json:"lines"`
}

type CapacityLine struct {
	InventoryItemID string  `json:"inventory_item_id"`
	Name            string  `json:"name"`
	Unit            string  `json:"unit"`
	RequiredPerSale float64 `json:"required_per_sale"`
	OnHand          float64 `json:"on_hand"`
	Capacity        int64   `json:"capacity"`
	Compatible      bool    `json:"compatible"`
	Missing         bool    `json:"missing"`
}

type CapacityResult struct {
	SellableID               string         `json:"sellable_id"`
	Capacity                 int64          `json:"capacity"`
	AllRequirementsHaveStock bool           `json:"all_requirements_have_stock"`
	Breakdown                []CapacityLine `json:"breakdown"`
}
