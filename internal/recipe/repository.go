package recipe

import (
	"context"

	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
)

type Repository interface {
	// GetBySellableID returns nil, nil when the sellable item has no mapping.
	GetBySellableID(ctx context.Context, sellableID string) (*model.MenuMapping, error)
	ListSellableIDs(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, mapping *model.MenuMapping) error
}
