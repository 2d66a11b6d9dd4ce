package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-ledger/internal/inventory"
	"github.com/fekuna/omnipos-inventory-ledger/internal/inventory/dto"
	ledgerdto "github.com/fekuna/omnipos-inventory-ledger/internal/ledger/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/fekuna/omnipos-inventory-ledger/internal/units"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// stockCounter is the slice of the ledger the enrolment flow needs: opening
// quantities are posted as physical counts, never written directly.
type stockCounter interface {
	RecordCount(ctx context.Context, input *ledgerdto.CountInput) (*model.LedgerEntry, error)
}

type inventoryUseCase struct {
	repo    inventory.Repository
	counter stockCounter
	logger  logger.ZapLogger
}

func NewInventoryUseCase(repo inventory.Repository, counter stockCounter, log logger.ZapLogger) inventory.UseCase {
	return &inventoryUseCase{
		repo:    repo,
		counter: counter,
		logger:  log,
	}
}

func (uc *inventoryUseCase) GetItem(ctx context.Context, id string) (*model.InventoryItem, error) {
	item, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, inventory.ErrItemNotFound
	}
	return item, nil
}

func (uc *inventoryUseCase) ListLowStock(ctx context.Context, page, pageSize int) ([]model.InventoryItem, int, error) {
	return uc.repo.FindAll(ctx, &dto.InventoryFilters{
		LowStock: true,
		Page:     page,
		PageSize: pageSize,
	})
}

// EnrollItems creates or updates items row by row. A failing row is recorded
// and the import continues.
func (uc *inventoryUseCase) EnrollItems(ctx context.Context, items []dto.ImportItemInput) (*dto.EnrollResult, error) {
	result := &dto.EnrollResult{Errors: []dto.ItemError{}}

	for i, input := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++

		created, err := uc.enrollOne(ctx, &input)
		if err != nil {
			uc.logger.Warn("Failed to enroll inventory item",
				zap.Int("row", i+1),
				zap.String("inventory_item_id", input.ID),
				zap.Error(err),
			)
			result.Errored++
			result.Errors = append(result.Errors, dto.ItemError{
				Row:    i + 1,
				ItemID: input.ID,
				Error:  err.Error(),
			})
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	uc.logger.Info("Inventory enrolment finished",
		zap.Int("processed", result.Processed),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("errored", result.Errored),
	)
	return result, nil
}

func (uc *inventoryUseCase) enrollOne(ctx context.Context, input *dto.ImportItemInput) (bool, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return false, errors.New("name is required")
	}
	unit := units.Normalize(input.Unit)
	if unit == "" {
		return false, errors.New("unit is required")
	}
	if input.MinThreshold < 0 {
		return false, fmt.Errorf("min threshold cannot be negative, got %v", input.MinThreshold)
	}
	if input.CostPerUnit.IsNegative() {
		return false, errors.New("cost per unit cannot be negative")
	}
	if input.OpeningQuantity != nil && *input.OpeningQuantity < 0 {
		return false, errors.New("opening quantity cannot be negative")
	}
	if input.ID == "" {
		input.ID = uuid.New().String()
	}

	existing, err := uc.repo.GetByID(ctx, input.ID)
	if err != nil {
		return false, err
	}

	now := time.Now().UTC()
	created := existing == nil
	if created {
		item := &model.InventoryItem{
			ID:             input.ID,
			Name:           name,
			Unit:           unit,
			OnHandQuantity: 0,
			MinThreshold:   input.MinThreshold,
			CostPerUnit:    input.CostPerUnit,
			SupplierCode:   optional(input.SupplierCode),
			VendorCode:     optional(input.VendorCode),
			Status:         model.DeriveStatus(0, input.MinThreshold),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := uc.repo.Create(ctx, item); err != nil {
			return false, fmt.Errorf("failed to create item: %w", err)
		}
	} else {
		if units.Normalize(existing.Unit) != unit {
			return false, fmt.Errorf("unit of record cannot change from %q to %q", existing.Unit, unit)
		}
		existing.Name = name
		existing.MinThreshold = input.MinThreshold
		existing.CostPerUnit = input.CostPerUnit
		existing.SupplierCode = optional(input.SupplierCode)
		existing.VendorCode = optional(input.VendorCode)
		existing.Status = model.DeriveStatus(existing.OnHandQuantity, input.MinThreshold)
		existing.UpdatedAt = now
		if err := uc.repo.UpdateDetails(ctx, existing); err != nil {
			return false, fmt.Errorf("failed to update item: %w", err)
		}
	}

	if input.OpeningQuantity != nil {
		_, err := uc.counter.RecordCount(ctx, &ledgerdto.CountInput{
			InventoryItemID: input.ID,
			CountedQuantity: *input.OpeningQuantity,
			Unit:            unit,
			ReferenceID:     "import",
			Actor:           input.Actor,
			Notes:           "opening quantity from item import",
		})
		if err != nil {
			return created, fmt.Errorf("failed to post opening quantity: %w", err)
		}
	}
	return created, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
