package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/fekuna/omnipos-inventory-ledger/internal/inventory"
	"github.com/fekuna/omnipos-inventory-ledger/internal/ledger"
	ledgerdto "github.com/fekuna/omnipos-inventory-ledger/internal/ledger/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/fekuna/omnipos-inventory-ledger/internal/reconcile"
	"github.com/fekuna/omnipos-inventory-ledger/internal/reconcile/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/units"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// received totals below this are treated as zero
const quantityEpsilon = 1e-9

const defaultConcurrency = 4

type reconcileUseCase struct {
	ledger      ledger.UseCase
	items       inventory.Repository
	orders      reconcile.PurchaseOrderSource
	waste       reconcile.WasteLogSource
	concurrency int
	logger      logger.ZapLogger
}

func NewReconcileUseCase(
	ledgerUC ledger.UseCase,
	items inventory.Repository,
	orders reconcile.PurchaseOrderSource,
	waste reconcile.WasteLogSource,
	concurrency int,
	log logger.ZapLogger,
) reconcile.UseCase {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &reconcileUseCase{
		ledger:      ledgerUC,
		items:       items,
		orders:      orders,
		waste:       waste,
		concurrency: concurrency,
		logger:      log,
	}
}

// itemReceipt is every line of one order that targets the same item, folded
// into the item's unit of record.
type itemReceipt struct {
	itemID   string
	lines    []model.PurchaseOrderLine
	received float64
	cost     decimal.Decimal
}

func (uc *reconcileUseCase) ReconcileReceiving(ctx context.Context, orderID string) (*dto.ReconcileResult, error) {
	order, err := uc.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load purchase order %s: %w", orderID, err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %s", reconcile.ErrOrderNotFound, orderID)
	}

	if !order.Status.AllowsReceiving() {
		uc.logger.Info("Purchase order no longer allows receiving, invalidating",
			zap.String("order_id", order.ID),
			zap.String("status", string(order.Status)),
		)
		return uc.ReverseReceivingForOrder(ctx, order.ID, reconcile.ReasonSourceInvalidated)
	}

	groups, err := uc.receiptGroups(ctx, order)
	if err != nil {
		return nil, err
	}

	result := dto.NewResult(order.ID)
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++

		item, err := uc.items.GetByID(ctx, group.itemID)
		if err != nil {
			result.AddError(order.ID, group.itemID, err)
			continue
		}
		if item == nil {
			uc.logger.Warn("Purchase order line references a missing inventory item",
				zap.String("order_id", order.ID),
				zap.String("inventory_item_id", group.itemID),
			)
			result.AddError(order.ID, group.itemID, inventory.ErrItemNotFound)
			continue
		}

		if err := foldReceipt(&group, item); err != nil {
			uc.logger.Warn("Purchase order line unit does not convert to the item's unit",
				zap.String("order_id", order.ID),
				zap.String("inventory_item_id", item.ID),
				zap.Error(err),
			)
			result.AddError(order.ID, item.ID, err)
			continue
		}

		entry, err := uc.reconcileLine(ctx, order, item, &group)
		if err != nil {
			uc.logger.Error("Failed to reconcile purchase order line",
				zap.String("order_id", order.ID),
				zap.String("inventory_item_id", item.ID),
				zap.Error(err),
			)
			result.AddError(order.ID, item.ID, err)
			continue
		}
		if entry == nil {
			result.Unchanged++
			continue
		}
		result.AddEntry(entry)
	}

	uc.logResult("Receiving reconciled", result)
	return result, nil
}

// receiptGroups returns the order's lines grouped per item, plus an empty
// group for every item that still holds receiving entries for the order but
// no longer has a line on it.
func (uc *reconcileUseCase) receiptGroups(ctx context.Context, order *model.PurchaseOrder) ([]itemReceipt, error) {
	groups := groupLines(order.Lines)

	posted, err := uc.ledger.ActiveEntries(ctx, ledgerdto.ActiveFilter{
		Kind:          model.KindReceiving,
		ReferenceType: model.ReferencePurchaseOrder,
		ReferenceID:   order.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load receiving entries for %s: %w", order.ID, err)
	}

	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		seen[g.itemID] = true
	}
	for _, e := range posted {
		if seen[e.InventoryItemID] {
			continue
		}
		seen[e.InventoryItemID] = true
		groups = append(groups, itemReceipt{itemID: e.InventoryItemID})
	}
	return groups, nil
}

// reconcileLine moves the order's active receiving total for the item to what
// purchasing says was received. It returns nil when the two agree.
func (uc *reconcileUseCase) reconcileLine(ctx context.Context, order *model.PurchaseOrder, item *model.InventoryItem, group *itemReceipt) (*model.LedgerEntry, error) {
	return uc.ledger.Settle(ctx, &ledgerdto.SettleInput{
		InventoryItemID: item.ID,
		Kind:            model.KindReceiving,
		Target:          group.received,
		Unit:            item.Unit,
		UnitCost:        group.cost,
		ReferenceType:   model.ReferencePurchaseOrder,
		ReferenceID:     order.ID,
		ReferenceNumber: order.Number,
		Actor:           model.ActorSystemReconciler,
		Notes:           "receiving backfill",
		CorrectionNotes: "receiving correction: received quantity lowered",
	})
}

func (uc *reconcileUseCase) ReverseReceivingForOrder(ctx context.Context, orderID, reason string) (*dto.ReconcileResult, error) {
	entries, err := uc.ledger.ActiveEntries(ctx, ledgerdto.ActiveFilter{
		Kind:          model.KindReceiving,
		ReferenceType: model.ReferencePurchaseOrder,
		ReferenceID:   orderID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load receiving entries for %s: %w", orderID, err)
	}

	result := dto.NewResult(orderID)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++

		compensating, err := uc.ledger.Reverse(ctx, entry.ID, reason, model.ActorSystemReconciler)
		if err != nil {
			uc.logger.Error("Failed to reverse receiving entry",
				zap.String("order_id", orderID),
				zap.String("entry_id", entry.ID),
				zap.Error(err),
			)
			result.AddError(entry.ID, entry.InventoryItemID, err)
			continue
		}
		if compensating == nil {
			result.Unchanged++
			continue
		}
		result.Reversed++
		result.Entries = append(result.Entries, *compensating)
	}

	uc.logResult("Receiving reversed", result)
	return result, nil
}

func (uc *reconcileUseCase) ReconcileWaste(ctx context.Context, itemID string) (*dto.ReconcileResult, error) {
	item, err := uc.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", inventory.ErrItemNotFound, itemID)
	}

	logs, err := uc.waste.ListByItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load waste logs for %s: %w", itemID, err)
	}

	result := dto.NewResult(itemID)
	for _, log := range logs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Processed++

		if log.ExternalLogID == "" {
			result.AddError("", itemID, errors.New("waste log without external id"))
			continue
		}

		seen, err := uc.ledger.HasReference(ctx, model.KindWaste, model.ReferenceWasteLog, log.ExternalLogID)
		if err != nil {
			result.AddError(log.ExternalLogID, itemID, err)
			continue
		}
		if seen {
			result.Unchanged++
			continue
		}

		quantity := math.Abs(log.Quantity)
		entry, err := uc.ledger.Post(ctx, &ledgerdto.PostEntryInput{
			InventoryItemID: itemID,
			Kind:            model.KindWaste,
			Quantity:        -quantity,
			Unit:            log.Unit,
			UnitCost:        costPer(item, log.Unit),
			ReferenceType:   model.ReferenceWasteLog,
			ReferenceID:     log.ExternalLogID,
			ReferenceNumber: log.ExternalLogID,
			Actor:           model.ActorSystemReconciler,
			Notes:           log.Reason,
			UniqueReference: true,
		})
		if errors.Is(err, ledger.ErrDuplicateReference) {
			result.Unchanged++
			continue
		}
		if err != nil {
			uc.logger.Error("Failed to post waste entry",
				zap.String("inventory_item_id", itemID),
				zap.String("external_log_id", log.ExternalLogID),
				zap.Error(err),
			)
			result.AddError(log.ExternalLogID, itemID, err)
			continue
		}
		result.AddEntry(entry)
	}

	uc.logResult("Waste reconciled", result)
	return result, nil
}

func (uc *reconcileUseCase) ReconcileAllReceiving(ctx context.Context) (*dto.ReconcileResult, error) {
	ids, err := uc.orders.ListOrderIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	return uc.runAll(ctx, "receiving", ids, uc.ReconcileReceiving)
}

func (uc *reconcileUseCase) ReconcileAllWaste(ctx context.Context) (*dto.ReconcileResult, error) {
	ids, err := uc.waste.ListItemIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list wasted items: %w", err)
	}
	return uc.runAll(ctx, "waste", ids, uc.ReconcileWaste)
}

// runAll fans pass out over ids with bounded concurrency. A failing id is
// recorded in the merged result; only cancellation stops the run.
func (uc *reconcileUseCase) runAll(ctx context.Context, name string, ids []string, pass func(context.Context, string) (*dto.ReconcileResult, error)) (*dto.ReconcileResult, error) {
	total := dto.NewResult(name)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := pass(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			if res != nil {
				total.Merge(res)
			}
			if err != nil {
				if gctx.Err() != nil {
					return err
				}
				total.AddError(id, "", err)
			}
			return nil
		})
	}
	err := g.Wait()

	uc.logResult("Batch reconciliation finished", total)
	return total, err
}

func (uc *reconcileUseCase) logResult(msg string, r *dto.ReconcileResult) {
	fields := []zap.Field{
		zap.String("reference", r.Reference),
		zap.Int("processed", r.Processed),
		zap.Int("created", r.Created),
		zap.Int("reversed", r.Reversed),
		zap.Int("unchanged", r.Unchanged),
		zap.Int("errored", r.Errored),
	}
	if r.Errored > 0 {
		uc.logger.Warn(msg, fields...)
		return
	}
	uc.logger.Info(msg, fields...)
}

// groupLines collects lines per inventory item, keeping first-seen order.
func groupLines(lines []model.PurchaseOrderLine) []itemReceipt {
	var groups []itemReceipt
	index := map[string]int{}
	for _, line := range lines {
		i, ok := index[line.InventoryItemID]
		if !ok {
			i = len(groups)
			index[line.InventoryItemID] = i
			groups = append(groups, itemReceipt{itemID: line.InventoryItemID})
		}
		groups[i].lines = append(groups[i].lines, line)
	}
	return groups
}

// foldReceipt converts every line of group into item's unit and sets the
// received total and its weighted average cost per unit of record.
func foldReceipt(group *itemReceipt, item *model.InventoryItem) error {
	received := 0.0
	spend := decimal.Zero
	for _, line := range group.lines {
		q, ok := units.ConvertChecked(line.QuantityReceived, line.Unit, item.Unit)
		if !ok {
			return fmt.Errorf("line %s: unit %q does not convert to %q", line.ID, line.Unit, item.Unit)
		}
		received += q
		spend = spend.Add(line.UnitCost.Mul(decimal.NewFromFloat(line.QuantityReceived)))
	}

	group.received = received
	switch {
	case received > quantityEpsilon:
		group.cost = spend.Div(decimal.NewFromFloat(received))
	case len(group.lines) > 0:
		group.cost = group.lines[0].UnitCost.Mul(decimal.NewFromFloat(units.Convert(1, item.Unit, group.lines[0].Unit)))
	default:
		group.cost = item.CostPerUnit
	}
	return nil
}

// costPer returns the item's cost of record expressed per one unit.
func costPer(item *model.InventoryItem, unit string) decimal.Decimal {
	perUnit := units.Convert(1, unit, item.Unit)
	return item.CostPerUnit.Mul(decimal.NewFromFloat(perUnit))
}
