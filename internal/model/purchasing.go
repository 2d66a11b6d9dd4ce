package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderDraft             OrderStatus = "draft"
	OrderSent              OrderStatus = "sent"
	OrderPartiallyReceived OrderStatus = "partially_received"
	OrderReceived          OrderStatus = "received"
	OrderCancelled         OrderStatus = "cancelled"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderDraft, OrderSent, OrderPartiallyReceived, OrderReceived, OrderCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown purchase order status %q", s)
}

// AllowsReceiving reports whether receipts against an order in this status
// should be reflected in the ledger.
func (s OrderStatus) AllowsReceiving() bool {
	return s == OrderReceived || s == OrderPartiallyReceived
}

// PurchaseOrder is the purchasing collaborator's view of an order. The ledger
// must match QuantityReceived of every line while the order allows receiving.
type PurchaseOrder struct {
	ID     string              `db:"id" json:"id"`
	Number string              `db:"number" json:"number"`
	Status OrderStatus         `db:"status" json:"status"`
	Lines  []PurchaseOrderLine `db:"-" json:"lines"`
}

type PurchaseOrderLine struct {
	ID               string          `db:"id" json:"id"`
	OrderID          string          `db:"order_id" json:"order_id"`
	InventoryItemID  string          `db:"inventory_item_id" json:"inventory_item_id"`
	QuantityOrdered  float64         `db:"quantity_ordered" json:"quantity_ordered"`
	QuantityReceived float64         `db:"quantity_received" json:"quantity_received"`
	Unit             string          `db:"unit" json:"unit"`
	UnitCost         decimal.Decimal `db:"unit_cost" json:"unit_cost"`
}

// WasteLog is one record from the waste-logging collaborator.
type WasteLog struct {
	ExternalLogID   string    `db:"external_log_id" json:"external_log_id"`
	InventoryItemID string    `db:"inventory_item_id" json:"inventory_item_id"`
	Quantity        float64   `db:"quantity" json:"quantity"`
	Unit            string    `db:"unit" json:"unit"`
	Date            time.Time `db:"logged_at" json:"date"`
	Reason          string    `db:"reason" json:"reason"`
}
