package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/fekuna/omnipos-inventory-ledger/internal/inventory"
	"github.com/fekuna/omnipos-inventory-ledger/internal/ledger"
	"github.com/fekuna/omnipos-inventory-ledger/internal/ledger/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/fekuna/omnipos-inventory-ledger/internal/units"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	maxApplyAttempts = 3
	ledgerIndex      = "inventory_ledger"

	// active totals closer than this to the target are settled
	settleTolerance = 1e-9
)

const ledgerIndexMapping = `{
	"mappings": {
		"properties": {
			"inventory_item_id": { "type": "keyword" },
			"kind": { "type": "keyword" },
			"reference_type": { "type": "keyword" },
			"reference_id": { "type": "keyword" },
			"reference_number": { "type": "keyword" },
			"quantity_delta": { "type": "double" },
			"total_cost": { "type": "keyword" },
			"is_reversed": { "type": "boolean" },
			"actor": { "type": "keyword" },
			"created_at": { "type": "date" }
		}
	}
}`

type ledgerUseCase struct {
	repo      ledger.Repository
	items     inventory.Repository
	locker    ledger.Locker
	indexer   ledger.Indexer
	indexOnce sync.Once
	logger    logger.ZapLogger
}

// indexCreator is implemented by indexers that can prepare their index.
type indexCreator interface {
	CreateIndex(ctx context.Context, index, mapping string) error
}

// NewLedgerUseCase wires the ledger. indexer may be nil.
func NewLedgerUseCase(repo ledger.Repository, items inventory.Repository, locker ledger.Locker, indexer ledger.Indexer, log logger.ZapLogger) ledger.UseCase {
	return &ledgerUseCase{
		repo:    repo,
		items:   items,
		locker:  locker,
		indexer: indexer,
		logger:  log,
	}
}

func (uc *ledgerUseCase) Post(ctx context.Context, input *dto.PostEntryInput) (*model.LedgerEntry, error) {
	if err := validatePost(input); err != nil {
		return nil, err
	}

	return uc.withItem(ctx, input.InventoryItemID, func(item *model.InventoryItem) (*model.LedgerEntry, error) {
		if input.UniqueReference {
			exists, err := uc.repo.ExistsByReference(ctx, input.Kind, input.ReferenceType, input.ReferenceID)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, ledger.ErrDuplicateReference
			}
		}

		delta, ok := units.ConvertChecked(input.Quantity, input.Unit, item.Unit)
		if !ok {
			return nil, fmt.Errorf("%w: unit %q does not convert to %q", ledger.ErrInvalidEntry, input.Unit, item.Unit)
		}

		entry := uc.newEntry(item, input.Kind, delta)
		entry.SourceQuantity = input.Quantity
		entry.SourceUnit = units.Normalize(input.Unit)
		entry.UnitCost = input.UnitCost
		entry.TotalCost = model.RoundCost(input.UnitCost.Mul(decimal.NewFromFloat(math.Abs(input.Quantity))))
		entry.ReferenceType = input.ReferenceType
		entry.ReferenceID = input.ReferenceID
		entry.ReferenceNumber = input.ReferenceNumber
		entry.Actor = input.Actor
		entry.Notes = input.Notes
		return entry, nil
	})
}

func (uc *ledgerUseCase) Settle(ctx context.Context, input *dto.SettleInput) (*model.LedgerEntry, error) {
	if err := validateSettle(input); err != nil {
		return nil, err
	}
	filter := dto.ActiveFilter{
		InventoryItemID: input.InventoryItemID,
		Kind:            input.Kind,
		ReferenceType:   input.ReferenceType,
		ReferenceID:     input.ReferenceID,
	}

	return uc.withItem(ctx, input.InventoryItemID, func(item *model.InventoryItem) (*model.LedgerEntry, error) {
		target, ok := units.ConvertChecked(input.Target, input.Unit, item.Unit)
		if !ok {
			return nil, fmt.Errorf("%w: unit %q does not convert to %q", ledger.ErrInvalidEntry, input.Unit, item.Unit)
		}
		active, err := uc.repo.SumActive(ctx, filter)
		if err != nil {
			return nil, err
		}

		delta := target - active
		if math.Abs(delta) < settleTolerance {
			return nil, nil
		}

		entry := uc.newEntry(item, input.Kind, delta)
		entry.SourceQuantity = delta
		entry.SourceUnit = entry.Unit
		unitCost := input.UnitCost.Mul(decimal.NewFromFloat(units.Convert(1, item.Unit, input.Unit)))
		entry.UnitCost = unitCost
		entry.TotalCost = model.RoundCost(unitCost.Mul(decimal.NewFromFloat(math.Abs(delta))))
		entry.ReferenceType = input.ReferenceType
		entry.ReferenceID = input.ReferenceID
		entry.ReferenceNumber = input.ReferenceNumber
		entry.Actor = actorOrSystem(input.Actor)
		entry.Notes = input.Notes
		if delta < 0 && input.CorrectionNotes != "" {
			entry.Notes = input.CorrectionNotes
		}
		return entry, nil
	})
}

func (uc *ledgerUseCase) RecordCount(ctx context.Context, input *dto.CountInput) (*model.LedgerEntry, error) {
	if input.InventoryItemID == "" || input.CountedQuantity < 0 || math.IsNaN(input.CountedQuantity) || math.IsInf(input.CountedQuantity, 0) {
		return nil, fmt.Errorf("%w: count needs an item and a non-negative quantity", ledger.ErrInvalidEntry)
	}

	return uc.withItem(ctx, input.InventoryItemID, func(item *model.InventoryItem) (*model.LedgerEntry, error) {
		counted, ok := units.ConvertChecked(input.CountedQuantity, input.Unit, item.Unit)
		if !ok {
			return nil, fmt.Errorf("%w: count unit %q does not convert to %q", ledger.ErrInvalidEntry, input.Unit, item.Unit)
		}

		entry := uc.newEntry(item, model.KindCountAdjustment, counted-item.OnHandQuantity)
		entry.SourceQuantity = entry.QuantityDelta
		entry.SourceUnit = entry.Unit
		entry.UnitCost = item.CostPerUnit
		entry.TotalCost = model.RoundCost(item.CostPerUnit.Mul(decimal.NewFromFloat(math.Abs(entry.QuantityDelta))))
		entry.ReferenceType = model.ReferenceCount
		entry.ReferenceID = input.ReferenceID
		entry.Actor = actorOrSystem(input.Actor)
		entry.Notes = input.Notes
		return entry, nil
	})
}

func (uc *ledgerUseCase) Reverse(ctx context.Context, entryID, reason, actor string) (*model.LedgerEntry, error) {
	original, err := uc.repo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, ledger.ErrEntryNotFound
	}
	if original.IsReversed {
		return nil, nil
	}

	unlock, err := uc.locker.Lock(ctx, lockKey(original.InventoryItemID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		compensating, err := uc.reverse(ctx, entryID, reason, actor)
		if errors.Is(err, ledger.ErrConcurrentUpdate) {
			continue
		}
		if errors.Is(err, ledger.ErrAlreadyReversed) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if compensating != nil {
			uc.logPosted(compensating)
			go uc.syncToElastic(context.Background(), compensating)
		}
		return compensating, nil
	}
	return nil, ledger.ErrConcurrentUpdate
}

func (uc *ledgerUseCase) reverse(ctx context.Context, entryID, reason, actor string) (*model.LedgerEntry, error) {
	// re-read under the lock: another reversal may have won the race
	original, err := uc.repo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, ledger.ErrEntryNotFound
	}
	if original.IsReversed {
		return nil, ledger.ErrAlreadyReversed
	}

	item, err := uc.getItem(ctx, original.InventoryItemID)
	if err != nil {
		return nil, err
	}

	compensating := uc.newEntry(item, model.KindAdjustment, -appliedDelta(original))
	compensating.Unit = original.Unit
	compensating.SourceQuantity = -original.SourceQuantity
	compensating.SourceUnit = original.SourceUnit
	compensating.UnitCost = original.UnitCost
	compensating.TotalCost = original.TotalCost
	compensating.ReferenceType = original.ReferenceType
	compensating.ReferenceID = original.ReferenceID
	compensating.ReferenceNumber = original.ReferenceNumber
	compensating.ReversalOf = &original.ID
	compensating.Actor = actorOrSystem(actor)
	compensating.Notes = fmt.Sprintf("reversal of %s: %s", original.ID, reason)
	if original.Clamped {
		applied := appliedDelta(original)
		compensating.SourceQuantity = -applied
		compensating.SourceUnit = original.Unit
		if original.QuantityDelta != 0 {
			share := decimal.NewFromFloat(math.Abs(applied / original.QuantityDelta))
			compensating.TotalCost = model.RoundCost(original.TotalCost.Mul(share))
		}
		compensating.Notes += fmt.Sprintf(" (original delta %v clamped to %v)", original.QuantityDelta, applied)
	}

	now := compensating.CreatedAt
	original.IsReversed = true
	original.ReversedDate = &now
	original.ReversalReason = &reason

	if err := uc.repo.ApplyReversal(ctx, item, original, compensating); err != nil {
		return nil, err
	}
	return compensating, nil
}

func (uc *ledgerUseCase) SumActiveQuantity(ctx context.Context, f dto.ActiveFilter) (float64, error) {
	return uc.repo.SumActive(ctx, f)
}

func (uc *ledgerUseCase) ActiveEntries(ctx context.Context, f dto.ActiveFilter) ([]model.LedgerEntry, error) {
	return uc.repo.FindActive(ctx, f)
}

func (uc *ledgerUseCase) HasReference(ctx context.Context, kind model.LedgerKind, referenceType, referenceID string) (bool, error) {
	return uc.repo.ExistsByReference(ctx, kind, referenceType, referenceID)
}

func (uc *ledgerUseCase) ListEntries(ctx context.Context, filters *dto.EntryFilters) ([]model.LedgerEntry, int, error) {
	return uc.repo.ListEntries(ctx, filters)
}

// withItem runs build against a fresh read of the item inside the item's
// critical section, then applies the resulting entry. A nil entry from build
// means there is nothing to apply.
func (uc *ledgerUseCase) withItem(ctx context.Context, itemID string, build func(item *model.InventoryItem) (*model.LedgerEntry, error)) (*model.LedgerEntry, error) {
	unlock, err := uc.locker.Lock(ctx, lockKey(itemID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		item, err := uc.getItem(ctx, itemID)
		if err != nil {
			return nil, err
		}

		entry, err := build(item)
		if err != nil || entry == nil {
			return nil, err
		}

		err = uc.repo.ApplyEntry(ctx, item, entry)
		if errors.Is(err, ledger.ErrConcurrentUpdate) {
			uc.logger.Warn("Balance changed during posting, retrying",
				zap.String("inventory_item_id", itemID),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		uc.logPosted(entry)
		go uc.syncToElastic(context.Background(), entry)
		return entry, nil
	}
	return nil, ledger.ErrConcurrentUpdate
}

// newEntry builds an entry for delta (in the item's unit) and moves item to
// the after-balance. The balance is floored at zero.
func (uc *ledgerUseCase) newEntry(item *model.InventoryItem, kind model.LedgerKind, delta float64) *model.LedgerEntry {
	now := time.Now().UTC()
	before := item.OnHandQuantity
	after := before + delta
	clamped := false
	if after < 0 {
		uc.logger.Warn("Ledger balance clamped at zero",
			zap.String("inventory_item_id", item.ID),
			zap.String("kind", string(kind)),
			zap.Float64("balance_before", before),
			zap.Float64("quantity_delta", delta),
			zap.Float64("unclamped_after", after),
		)
		after = 0
		clamped = true
	}

	item.OnHandQuantity = after
	item.Status = model.DeriveStatus(after, item.MinThreshold)
	item.UpdatedAt = now

	return &model.LedgerEntry{
		ID:              uuid.New().String(),
		InventoryItemID: item.ID,
		Kind:            kind,
		QuantityDelta:   delta,
		Unit:            units.Normalize(item.Unit),
		UnitCost:        decimal.Zero,
		TotalCost:       decimal.Zero,
		BalanceBefore:   before,
		BalanceAfter:    after,
		Clamped:         clamped,
		CreatedAt:       now,
	}
}

func (uc *ledgerUseCase) getItem(ctx context.Context, id string) (*model.InventoryItem, error) {
	item, err := uc.items.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", inventory.ErrItemNotFound, id)
	}
	return item, nil
}

func (uc *ledgerUseCase) logPosted(entry *model.LedgerEntry) {
	uc.logger.Info("Ledger entry posted",
		zap.String("entry_id", entry.ID),
		zap.String("inventory_item_id", entry.InventoryItemID),
		zap.String("kind", string(entry.Kind)),
		zap.Float64("quantity_delta", entry.QuantityDelta),
		zap.Float64("balance_after", entry.BalanceAfter),
		zap.String("reference_id", entry.ReferenceID),
	)
}

func (uc *ledgerUseCase) syncToElastic(ctx context.Context, entry *model.LedgerEntry) {
	if uc.indexer == nil {
		return
	}
	uc.indexOnce.Do(func() {
		if creator, ok := uc.indexer.(indexCreator); ok {
			if err := creator.CreateIndex(ctx, ledgerIndex, ledgerIndexMapping); err != nil {
				uc.logger.Warn("failed to create ledger index", zap.Error(err))
			}
		}
	})
	if err := uc.indexer.Index(ctx, ledgerIndex, entry.ID, entry); err != nil {
		uc.logger.Error("failed to index ledger entry", zap.String("entry_id", entry.ID), zap.Error(err))
	}
}

// appliedDelta is the change e actually made to on-hand, which differs from
// QuantityDelta when the balance was floored at zero.
func appliedDelta(e *model.LedgerEntry) float64 {
	if e.Clamped {
		return e.BalanceAfter - e.BalanceBefore
	}
	return e.QuantityDelta
}

func validateSettle(input *dto.SettleInput) error {
	if input.InventoryItemID == "" || input.ReferenceID == "" {
		return fmt.Errorf("%w: settling needs an item and a reference id", ledger.ErrInvalidEntry)
	}
	if !input.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ledger.ErrInvalidEntry, input.Kind)
	}
	if input.Target < 0 || math.IsNaN(input.Target) || math.IsInf(input.Target, 0) {
		return fmt.Errorf("%w: target must be finite and non-negative", ledger.ErrInvalidEntry)
	}
	return nil
}

func validatePost(input *dto.PostEntryInput) error {
	if input.InventoryItemID == "" {
		return fmt.Errorf("%w: inventory item id is required", ledger.ErrInvalidEntry)
	}
	if !input.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ledger.ErrInvalidEntry, input.Kind)
	}
	if math.IsNaN(input.Quantity) || math.IsInf(input.Quantity, 0) {
		return fmt.Errorf("%w: quantity must be finite", ledger.ErrInvalidEntry)
	}
	if input.UniqueReference && input.ReferenceID == "" {
		return fmt.Errorf("%w: unique reference requires a reference id", ledger.ErrInvalidEntry)
	}
	if input.Actor == "" {
		input.Actor = model.ActorSystemReconciler
	}
	return nil
}

func actorOrSystem(actor string) string {
	if actor == "" {
		return model.ActorSystemReconciler
	}
	return actor
}

func lockKey(itemID string) string {
	return "lock:inventory:" + itemID
}
