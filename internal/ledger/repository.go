package ledger

import (
	"context"

	"github.com/fekuna/omnipos-inventory-ledger/internal/ledger/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
)

type Repository interface {
	// GetByID returns nil, nil when the entry does not exist.
	GetByID(ctx context.Context, id string) (*model.LedgerEntry, error)

	// ApplyEntry persists entry and the item's new balance and status in one
	// transaction. It fails with ErrConcurrentUpdate when the stored on-hand
	// quantity no longer equals entry.BalanceBefore.
	ApplyEntry(ctx context.Context, item *model.InventoryItem, entry *model.LedgerEntry) error

	// ApplyReversal flags original as reversed and applies compensating in one
	// transaction. It fails with ErrAlreadyReversed when original is already flagged.
	ApplyReversal(ctx context.Context, item *model.InventoryItem, original, compensating *model.LedgerEntry) error

	// Queries over non-reversed entries
	SumActive(ctx context.Context, f dto.ActiveFilter) (float64, error)
	FindActive(ctx context.Context, f dto.ActiveFilter) ([]model.LedgerEntry, error)

	ExistsByReference(ctx context.Context, kind model.LedgerKind, referenceType, referenceID string) (bool, error)
	ListEntries(ctx context.Context, f *dto.EntryFilters) ([]model.LedgerEntry, int, error)
}
