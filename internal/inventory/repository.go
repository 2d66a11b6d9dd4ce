package inventory

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-inventory-ledger/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
)

var ErrItemNotFound = errors.New("inventory item not found")

type Repository interface {
	// GetByID returns nil, nil when the item does not exist.
	GetByID(ctx context.Context, id string) (*model.InventoryItem, error)
	BatchGetByIDs(ctx context.Context, ids []string) ([]model.InventoryItem, error)
	FindAll(ctx context.Context, filters *dto.InventoryFilters) ([]model.InventoryItem, int, error)

	Create(ctx context.Context, item *model.InventoryItem) error
	// UpdateDetails writes descriptive fields and status. On-hand quantity is
	// owned by the ledger and is never written here.
	UpdateDetails(ctx context.Context, item *model.InventoryItem) error
}
