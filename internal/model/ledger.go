package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type LedgerKind string

const (
	KindReceiving       LedgerKind = "receiving"
	KindWaste           LedgerKind = "waste"
	KindAdjustment      LedgerKind = "adjustment"
	KindSaleConsumption LedgerKind = "sale_consumption"
	KindCountAdjustment LedgerKind = "count_adjustment"
	KindTransferIn      LedgerKind = "transfer_in"
	KindTransferOut     LedgerKind = "transfer_out"
)

var ledgerKinds = map[LedgerKind]bool{
	KindReceiving:       true,
	KindWaste:           true,
	KindAdjustment:      true,
	KindSaleConsumption: true,
	KindCountAdjustment: true,
	KindTransferIn:      true,
	KindTransferOut:     true,
}

// ParseLedgerKind accepts the persisted spelling as well as the hyphenated
// form used by older imports ("sale-consumption", "transfer-in").
func ParseLedgerKind(s string) (LedgerKind, error) {
	k := LedgerKind(s)
	if ledgerKinds[k] {
		return k, nil
	}
	switch s {
	case "sale-consumption":
		return KindSaleConsumption, nil
	case "count-adjustment":
		return KindCountAdjustment, nil
	case "transfer-in":
		return KindTransferIn, nil
	case "transfer-out":
		return KindTransferOut, nil
	}
	return "", fmt.Errorf("unknown ledger kind %q", s)
}

func (k LedgerKind) Valid() bool {
	return ledgerKinds[k]
}

// Reference types recorded on ledger entries.
const (
	ReferencePurchaseOrder = "purchase_order"
	ReferenceWasteLog      = "waste_log"
	ReferenceManual        = "manual"
	ReferenceCount         = "physical_count"
)

// ActorSystemReconciler tags postings made by automated reconciliation.
const ActorSystemReconciler = "SYSTEM_RECONCILER"

// CostPlaces is the scale cost totals are rounded to (banker's rounding).
const CostPlaces = 4

// LedgerEntry is an immutable stock-affecting fact. Only the reversal fields
// may change after the entry is written.
type LedgerEntry struct {
	ID              string          `db:"id" json:"id"`
	InventoryItemID string          `db:"inventory_item_id" json:"inventory_item_id"`
	Kind            LedgerKind      `db:"kind" json:"kind"`
	QuantityDelta   float64         `db:"quantity_delta" json:"quantity_delta"`
	Unit            string          `db:"unit" json:"unit"`
	SourceQuantity  float64         `db:"source_quantity" json:"source_quantity"`
	SourceUnit      string          `db:"source_unit" json:"source_unit"`
	UnitCost        decimal.Decimal `db:"unit_cost" json:"unit_cost"`
	TotalCost       decimal.Decimal `db:"total_cost" json:"total_cost"`
	BalanceBefore   float64         `db:"balance_before" json:"balance_before"`
	BalanceAfter    float64         `db:"balance_after" json:"balance_after"`
	Clamped         bool            `db:"clamped" json:"clamped"`
	ReferenceType   string          `db:"reference_type" json:"reference_type"`
	ReferenceID     string          `db:"reference_id" json:"reference_id"`
	ReferenceNumber string          `db:"reference_number" json:"reference_number"`
	ReversalOf      *string         `db:"reversal_of" json:"reversal_of,omitempty"`
	IsReversed      bool            `db:"is_reversed" json:"is_reversed"`
	ReversedDate    *time.Time      `db:"reversed_date" json:"reversed_date,omitempty"`
	ReversalReason  *string         `db:"reversal_reason" json:"reversal_reason,omitempty"`
	Actor           string          `db:"actor" json:"actor"`
	Notes           string          `db:"notes" json:"notes"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// RoundCost applies the cost rounding policy.
func RoundCost(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(CostPlaces)
}
