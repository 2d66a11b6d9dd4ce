package reconcile

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-inventory-ledger/internal/reconcile/dto"
)

var ErrOrderNotFound = errors.New("purchase order not found")

// ReasonSourceInvalidated is recorded on receiving entries reversed because
// their order no longer allows receiving.
const ReasonSourceInvalidated = "source invalidated"

type UseCase interface {
	// ReconcileReceiving brings the ledger's receiving total for every line
	// of the order to the quantity received to date.
	ReconcileReceiving(ctx context.Context, orderID string) (*dto.ReconcileResult, error)
	ReverseReceivingForOrder(ctx context.Context, orderID, reason string) (*dto.ReconcileResult, error)
	// ReconcileWaste posts one waste entry per waste log not yet in the ledger.
	ReconcileWaste(ctx context.Context, itemID string) (*dto.ReconcileResult, error)

	ReconcileAllReceiving(ctx context.Context) (*dto.ReconcileResult, error)
	ReconcileAllWaste(ctx context.Context) (*dto.ReconcileResult, error)
}
