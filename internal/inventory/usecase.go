package inventory

import (
	"context"

	"github.com/fekuna/omnipos-inventory-ledger/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
)

type UseCase interface {
	GetItem(ctx context.Context, id string) (*model.InventoryItem, error)
	ListLowStock(ctx context.Context, page, pageSize int) ([]model.InventoryItem, int, error)
	EnrollItems(ctx context.Context, items []dto.ImportItemInput) (*dto.EnrollResult, error)
}
