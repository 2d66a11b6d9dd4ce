package reconcile

import (
	"context"

	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
)

// PurchaseOrderSource is the purchasing collaborator: the source of truth for
// received quantities.
type PurchaseOrderSource interface {
	// GetOrder returns nil, nil when the order does not exist.
	GetOrder(ctx context.Context, id string) (*model.PurchaseOrder, error)
	ListOrderIDs(ctx context.Context) ([]string, error)
}

// WasteLogSource is the waste-logging collaborator.
type WasteLogSource interface {
	ListByItem(ctx context.Context, itemID string) ([]model.WasteLog, error)
	ListItemIDs(ctx context.Context) ([]string, error)
}
