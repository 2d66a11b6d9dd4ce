package dto

import (
	"time"

	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
)

// ActiveFilter selects non-reversed entries. Empty fields match anything.
type ActiveFilter struct {
	InventoryItemID string
	Kind            model.LedgerKind
	ReferenceType   string
	ReferenceID     string
}

type EntryFilters struct {
	InventoryItemID string
	Kind            model.LedgerKind
	ReferenceType   string
	ReferenceID     string
	IncludeReversed bool
	StartDate       *time.Time
	EndDate         *time.Time
	Page            int
	PageSize        int
}
