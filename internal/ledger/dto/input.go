package dto

import (
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/shopspring/decimal"
)

type PostEntryInput struct {
	InventoryItemID string
	Kind            model.LedgerKind
	Quantity        float64 // signed delta expressed in Unit
	Unit            string
	UnitCost        decimal.Decimal // per Unit
	ReferenceType   string
	ReferenceID     string
	ReferenceNumber string
	Actor           string
	Notes           string
	// UniqueReference rejects the post with ErrDuplicateReference when an entry
	// of the same kind already carries ReferenceType/ReferenceID.
	UniqueReference bool
}

type CountInput struct {
	InventoryItemID string
	CountedQuantity float64
	Unit            string
	ReferenceID     string
	Actor           string
	Notes           string
}

// SettleInput moves the active total of entries matching Kind and
// ReferenceType/ReferenceID on one item to Target. Target is in Unit.
type SettleInput struct {
	InventoryItemID string
	Kind            model.LedgerKind
	Target          float64
	Unit            string
	UnitCost        decimal.Decimal // per Unit
	ReferenceType   string
	ReferenceID     string
	ReferenceNumber string
	Actor           string
	// Notes is recorded when the total rises, CorrectionNotes when it falls.
	Notes           string
	CorrectionNotes string
}
