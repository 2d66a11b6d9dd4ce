package recipe

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/fekuna/omnipos-inventory-ledger/internal/recipe/dto"
)

var (
	ErrInvalidQuantity = errors.New("quantity multiplier must be positive and finite")
	ErrInvalidMapping  = errors.New("invalid menu mapping")
)

type UseCase interface {
	// Explode flattens sellableID into inventory draws for quantity sales.
	// visited holds the sellable items on the current path; any item already
	// in it contributes nothing.
	Explode(ctx context.Context, sellableID string, quantity float64, visited VisitedSet) (Requirements, error)
	ComputeCost(ctx context.Context, sellableID string) (*dto.CostResult, error)
	ComputeCapacity(ctx context.Context, sellableID string) (*dto.CapacityResult, error)
	// DetectCycles lists every path reachable from sellableID that returns to
	// one of its own ancestors.
	DetectCycles(ctx context.Context, sellableID string) ([][]string, error)

	SaveMapping(ctx context.Context, mapping *model.MenuMapping) error
}
