package dto

import "github.com/fekuna/omnipos-inventory-ledger/internal/model"

type InventoryFilters struct {
	IDs      []string
	Statuses []model.StockStatus
	LowStock bool // critical, low and out of stock
	Page     int
	PageSize int
}

type ItemError struct {
	Row    int    `json:"row"`
	ItemID string `json:"item_id"`
	Error  string `json:"error"`
}

type EnrollResult struct {
	Processed int         `json:"processed"`
	Created   int         `json:"created"`
	Updated   int         `json:"updated"`
	Errored   int         `json:"errored"`
	Errors    []ItemError `json:"errors"`
}
