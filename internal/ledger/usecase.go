package ledger

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-inventory-ledger/internal/ledger/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
)

var (
	ErrEntryNotFound      = errors.New("ledger entry not found")
	ErrAlreadyReversed    = errors.New("ledger entry already reversed")
	ErrDuplicateReference = errors.New("ledger entry with this reference already exists")
	ErrConcurrentUpdate   = errors.New("inventory balance changed concurrently")
	ErrInvalidEntry       = errors.New("invalid ledger entry")
)

type UseCase interface {
	// Post normalises the delta into the item's unit of record and applies it.
	Post(ctx context.Context, input *dto.PostEntryInput) (*model.LedgerEntry, error)
	// Reverse flags entryID and posts the compensating adjustment. It returns
	// nil, nil when the entry was already reversed.
	Reverse(ctx context.Context, entryID, reason, actor string) (*model.LedgerEntry, error)
	// Settle posts the difference between input.Target and the active total
	// of the matching entries, read inside the item's critical section. It
	// returns nil, nil when the two already agree.
	Settle(ctx context.Context, input *dto.SettleInput) (*model.LedgerEntry, error)
	// RecordCount posts the count_adjustment that brings on-hand to a physical count.
	RecordCount(ctx context.Context, input *dto.CountInput) (*model.LedgerEntry, error)

	SumActiveQuantity(ctx context.Context, f dto.ActiveFilter) (float64, error)
	ActiveEntries(ctx context.Context, f dto.ActiveFilter) ([]model.LedgerEntry, error)
	HasReference(ctx context.Context, kind model.LedgerKind, referenceType, referenceID string) (bool, error)
	ListEntries(ctx context.Context, filters *dto.EntryFilters) ([]model.LedgerEntry, int, error)
}

// Locker serialises the read-modify-write of one item's balance.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Indexer mirrors posted entries into a search index for audit queries.
type Indexer interface {
	Index(ctx context.Context, index, id string, doc any) error
}
