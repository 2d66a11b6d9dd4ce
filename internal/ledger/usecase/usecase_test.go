package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-ledger/internal/inventory"
	"github.com/fekuna/omnipos-inventory-ledger/internal/ledger"
	"github.com/fekuna/omnipos-inventory-ledger/internal/ledger/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/fekuna/omnipos-inventory-ledger/internal/storage/memory"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/cache"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestLedger(t *testing.T, indexer ledger.Indexer) (*memory.Store, ledger.UseCase, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	store := memory.NewStore()
	uc := NewLedgerUseCase(store.Ledger(), store.Items(), cache.NewLocalLocker(), indexer, logger.Wrap(zap.New(core)))
	return store, uc, logs
}

func seedItem(t *testing.T, store *memory.Store, id, unit string, onHand, minThreshold float64, cost string) {
	t.Helper()
	now := time.Now().UTC()
	err := store.Items().Create(context.Background(), &model.InventoryItem{
		ID:             id,
		Name:           id,
		Unit:           unit,
		OnHandQuantity: onHand,
		MinThreshold:   minThreshold,
		CostPerUnit:    decimal.RequireFromString(cost),
		Status:         model.DeriveStatus(onHand, minThreshold),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("Failed to seed item %s: %v", id, err)
	}
}

func onHand(t *testing.T, store *memory.Store, id string) *model.InventoryItem {
	t.Helper()
	item, err := store.Items().GetByID(context.Background(), id)
	if err != nil || item == nil {
		t.Fatalf("Failed to load item %s: %v", id, err)
	}
	return item
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPost_NormalizesIntoUnitOfRecord(t *testing.T) {
	store, uc, _ := newTestLedger(t, nil)
	seedItem(t, store, "flour", "oz", 0, 10, "0.25")

	entry, err := uc.Post(context.Background(), &dto.PostEntryInput{
		InventoryItemID: "flour",
		Kind:            model.KindReceiving,
		Quantity:        2,
		Unit:            "lbs",
		UnitCost:        decimal.RequireFromString("4.00"),
		ReferenceType:   model.ReferencePurchaseOrder,
		ReferenceID:     "PO-1",
	})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	if !almostEqual(entry.QuantityDelta, 32) {
		t.Errorf("Expected delta 32 oz, got %v", entry.QuantityDelta)
	}
	if entry.Unit != "oz" {
		t.Errorf("Expected entry unit oz, got %s", entry.Unit)
	}
	if entry.SourceQuantity != 2 || entry.SourceUnit != "lb" {
		t.Errorf("Expected source 2 lb, got %v %s", entry.SourceQuantity, entry.SourceUnit)
	}
	if !entry.TotalCost.Equal(decimal.RequireFromString("8")) {
		t.Errorf("Expected total cost 8, got %s", entry.TotalCost)
	}
	if entry.Actor != model.ActorSystemReconciler {
		t.Errorf("Expected default actor %s, got %s", model.ActorSystemReconciler, entry.Actor)
	}
	if entry.BalanceBefore != 0 || !almostEqual(entry.BalanceAfter, 32) {
		t.Errorf("Expected balance 0 -> 32, got %v -> %v", entry.BalanceBefore, entry.BalanceAfter)
	}

	item := onHand(t, store, "flour")
	if !almostEqual(item.OnHandQuantity, 32) {
		t.Errorf("Expected on hand 32, got %v", item.OnHandQuantity)
	}
}

func TestPost_DerivesStockStatus(t *testing.T) {
	tests := []struct {
		name     string
		delta    float64
		expected model.StockStatus
	}{
		{"empty", 0, model.StockOutOfStock},
		{"below_min", 5, model.StockCritical},
		{"at_min", 10, model.StockCritical},
		{"below_low_band", 14, model.StockLow},
		{"at_low_band", 15, model.StockLow},
		{"above_low_band", 16, model.StockNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, uc, _ := newTestLedger(t, nil)
			seedItem(t, store, "milk", "l", 0, 10, "1")

			_, err := uc.Post(context.Background(), &dto.PostEntryInput{
				InventoryItemID: "milk",
				Kind:            model.KindAdjustment,
				Quantity:        tt.delta,
				Unit:            "l",
			})
			if err != nil {
				t.Fatalf("Post failed: %v", err)
			}

			if got := onHand(t, store, "milk").Status; got != tt.expected {
				t.Errorf("Expected status %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestPost_ClampsAtZeroAndLogs(t *testing.T) {
	store, uc, logs := newTestLedger(t, nil)
	seedItem(t, store, "eggs", "each", 5, 2, "0.30")

	entry, err := uc.Post(context.Background(), &dto.PostEntryInput{
		InventoryItemID: "eggs",
		Kind:            model.KindWaste,
		Quantity:        -8,
		Unit:            "each",
	})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	if !entry.Clamped {
		t.Error("Expected entry to be flagged as clamped")
	}
	if entry.QuantityDelta != -8 {
		t.Errorf("Expected recorded delta -8, got %v", entry.QuantityDelta)
	}
	if entry.BalanceAfter != 0 {
		t.Errorf("Expected balance after 0, got %v", entry.BalanceAfter)
	}
	if got := onHand(t, store, "eggs"); got.OnHandQuantity != 0 || got.Status != model.StockOutOfStock {
		t.Errorf("Expected on hand 0 out_of_stock, got %v %s", got.OnHandQuantity, got.Status)
	}
	if n := logs.FilterMessage("Ledger balance clamped at zero").Len(); n != 1 {
		t.Errorf("Expected 1 clamp log, got %d", n)
	}
}

func TestPost_Rejections(t *testing.T) {
	store, uc, _ := newTestLedger(t, nil)
	seedItem(t, store, "salt", "g", 100, 10, "0.01")

	tests := []struct {
		name  string
		input dto.PostEntryInput
		err   error
	}{
		{
			name:  "missing_item",
			input: dto.PostEntryInput{InventoryItemID: "pepper", Kind: model.KindAdjustment, Quantity: 1, Unit: "g"},
			err:   inventory.ErrItemNotFound,
		},
		{
			name:  "unknown_kind",
			input: dto.PostEntryInput{InventoryItemID: "salt", Kind: "gift", Quantity: 1, Unit: "g"},
			err:   ledger.ErrInvalidEntry,
		},
		{
			name:  "nan_quantity",
			input: dto.PostEntryInput{InventoryItemID: "salt", Kind: model.KindAdjustment, Quantity: math.NaN(), Unit: "g"},
			err:   ledger.ErrInvalidEntry,
		},
		{
			name:  "incompatible_unit",
			input: dto.PostEntryInput{InventoryItemID: "salt", Kind: model.KindWaste, Quantity: -4, Unit: "l"},
			err:   ledger.ErrInvalidEntry,
		},
		{
			name:  "unknown_unit",
			input: dto.PostEntryInput{InventoryItemID: "salt", Kind: model.KindAdjustment, Quantity: 1, Unit: "pinch"},
			err:   ledger.ErrInvalidEntry,
		},
		{
			name:  "unique_without_reference",
			input: dto.PostEntryInput{InventoryItemID: "salt", Kind: model.KindWaste, Quantity: -1, Unit: "g", UniqueReference: true},
			err:   ledger.ErrInvalidEntry,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := tt.input
			_, err := uc.Post(context.Background(), &input)
			if !errors.Is(err, tt.err) {
				t.Errorf("Expected error %v, got %v", tt.err, err)
			}
		})
	}

	if got := onHand(t, store, "salt").OnHandQuantity; got != 100 {
		t.Errorf("Expected on hand untouched at 100, got %v", got)
	}
}

func TestPost_UniqueReferenceRejectsDuplicate(t *testing.T) {
	store, uc, _ := newTestLedger(t, nil)
	seedItem(t, store, "basil", "oz", 20, 2, "1.5")

	input := dto.PostEntryInput{
		InventoryItemID: "basil",
		Kind:            model.KindWaste,
		Quantity:        -2,
		Unit:            "oz",
		ReferenceType:   model.ReferenceWasteLog,
		ReferenceID:     "W-1",
		UniqueReference: true,
	}
	first := input
	if _, err := uc.Post(context.Background(), &first); err != nil {
		t.Fatalf("First post failed: %v", err)
	}
	second := input
	if _, err := uc.Post(context.Background(), &second); !errors.Is(err, ledger.ErrDuplicateReference) {
		t.Fatalf("Expected ErrDuplicateReference, got %v", err)
	}

	if got := onHand(t, store, "basil").OnHandQuantity; got != 18 {
		t.Errorf("Expected on hand 18, got %v", got)
	}
}

func TestReverse_RestoresBalance(t *testing.T) {
	store, uc, _ := newTestLedger(t, nil)
	seedItem(t, store, "rice", "kg", 10, 2, "2")
	ctx := context.Background()

	posted, err := uc.Post(ctx, &dto.PostEntryInput{
		InventoryItemID: "rice",
		Kind:            model.KindReceiving,
		Quantity:        6,
		Unit:            "kg",
		UnitCost:        decimal.RequireFromString("2"),
		ReferenceType:   model.ReferencePurchaseOrder,
		ReferenceID:     "PO-9",
		ReferenceNumber: "PO-0009",
	})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	compensating, err := uc.Reverse(ctx, posted.ID, "entered twice", "alice")
	if err != nil {
		t.Fatalf("Reverse failed: %v", err)
	}
	if compensating == nil {
		t.Fatal("Expected a compensating entry")
	}

	if compensating.QuantityDelta != -posted.QuantityDelta {
		t.Errorf("Expected delta %v, got %v", -posted.QuantityDelta, compensating.QuantityDelta)
	}
	if compensating.Kind != model.KindAdjustment {
		t.Errorf("Expected kind adjustment, got %s", compensating.Kind)
	}
	if compensating.ReversalOf == nil || *compensating.ReversalOf != posted.ID {
		t.Errorf("Expected reversal_of %s, got %v", posted.ID, compensating.ReversalOf)
	}
	if compensating.ReferenceID != "PO-9" || compensating.ReferenceNumber != "PO-0009" {
		t.Errorf("Expected reference carried over, got %s/%s", compensating.ReferenceID, compensating.ReferenceNumber)
	}
	if compensating.Actor != "alice" {
		t.Errorf("Expected actor alice, got %s", compensating.Actor)
	}
	if got := onHand(t, store, "rice").OnHandQuantity; got != 10 {
		t.Errorf("Expected on hand back at 10, got %v", got)
	}

	original, err := store.Ledger().GetByID(ctx, posted.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !original.IsReversed || original.ReversedDate == nil || original.ReversalReason == nil || *original.ReversalReason != "entered twice" {
		t.Errorf("Expected original flagged as reversed, got %+v", original)
	}
	if original.QuantityDelta != 6 || original.ReferenceID != "PO-9" {
		t.Error("Expected original delta and reference unchanged")
	}
}

func TestReverse_IsIdempotent(t *testing.T) {
	store, uc, _ := newTestLedger(t, nil)
	seedItem(t, store, "oil", "l", 0, 1, "3")
	ctx := context.Background()

	posted, err := uc.Post(ctx, &dto.PostEntryInput{InventoryItemID: "oil", Kind: model.KindReceiving, Quantity: 4, Unit: "l"})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if _, err := uc.Reverse(ctx, posted.ID, "first", ""); err != nil {
		t.Fatalf("First reverse failed: %v", err)
	}

	again, err := uc.Reverse(ctx, posted.ID, "second", "")
	if err != nil {
		t.Fatalf("Second reverse failed: %v", err)
	}
	if again != nil {
		t.Errorf("Expected no compensating entry on repeat, got %+v", again)
	}

	_, total, err := uc.ListEntries(ctx, &dto.EntryFilters{InventoryItemID: "oil", IncludeReversed: true})
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected 2 entries, got %d", total)
	}
	if got := onHand(t, store, "oil").OnHandQuantity; got != 0 {
		t.Errorf("Expected on hand 0, got %v", got)
	}
}

func TestReverse_ClampsAtZero(t *testing.T) {
	store, uc, logs := newTestLedger(t, nil)
	seedItem(t, store, "sugar", "kg", 0, 1, "1")
	ctx := context.Background()

	posted, err := uc.Post(ctx, &dto.PostEntryInput{InventoryItemID: "sugar", Kind: model.KindReceiving, Quantity: 20, Unit: "kg"})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if _, err := uc.Post(ctx, &dto.PostEntryInput{InventoryItemID: "sugar", Kind: model.KindSaleConsumption, Quantity: -15, Unit: "kg"}); err != nil {
		t.Fatalf("Consumption failed: %v", err)
	}

	compensating, err := uc.Reverse(ctx, posted.ID, "source invalidated", "")
	if err != nil {
		t.Fatalf("Reverse failed: %v", err)
	}
	if compensating.QuantityDelta != -20 || !compensating.Clamped {
		t.Errorf("Expected clamped -20 compensation, got %v clamped=%v", compensating.QuantityDelta, compensating.Clamped)
	}
	if got := onHand(t, store, "sugar").OnHandQuantity; got != 0 {
		t.Errorf("Expected on hand floored at 0, got %v", got)
	}
	if logs.FilterMessage("Ledger balance clamped at zero").Len() != 1 {
		t.Error("Expected the clamp to be logged")
	}
}

func TestReverse_ClampedEntryRestoresPrePostBalance(t *testing.T) {
	store, uc, _ := newTestLedger(t, nil)
	seedItem(t, store, "flour", "lb", 3, 1, "2")
	ctx := context.Background()

	wasted, err := uc.Post(ctx, &dto.PostEntryInput{
		InventoryItemID: "flour",
		Kind:            model.KindWaste,
		Quantity:        -10,
		Unit:            "lb",
		UnitCost:        decimal.RequireFromString("2"),
	})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if !wasted.Clamped || wasted.BalanceAfter != 0 {
		t.Fatalf("Expected the waste to clamp at 0, got %+v", wasted)
	}

	compensating, err := uc.Reverse(ctx, wasted.ID, "logged against the wrong item", "")
	if err != nil {
		t.Fatalf("Reverse failed: %v", err)
	}
	if compensating.QuantityDelta != 3 {
		t.Errorf("Expected the applied 3 to be reversed, got %v", compensating.QuantityDelta)
	}
	if !compensating.TotalCost.Equal(decimal.NewFromInt(6)) {
		t.Errorf("Expected total cost 6 for the applied share, got %s", compensating.TotalCost)
	}
	if !strings.Contains(compensating.Notes, "clamped") {
		t.Errorf("Expected notes to record the clamp, got %q", compensating.Notes)
	}
	if got := onHand(t, store, "flour").OnHandQuantity; got != 3 {
		t.Errorf("Expected on hand back at the pre-post 3, got %v", got)
	}
}

func TestReverse_UnknownEntry(t *testing.T) {
	_, uc, _ := newTestLedger(t, nil)
	if _, err := uc.Reverse(context.Background(), "missing", "x", ""); !errors.Is(err, ledger.ErrEntryNotFound) {
		t.Errorf("Expected ErrEntryNotFound, got %v", err)
	}
}

func TestSumActiveQuantity_IgnoresReversed(t *testing.T) {
	store, uc, _ := newTestLedger(t, nil)
	seedItem(t, store, "beans", "lb", 0, 1, "2")
	ctx := context.Background()

	post := func(q float64) *model.LedgerEntry {
		e, err := uc.Post(ctx, &dto.PostEntryInput{
			InventoryItemID: "beans",
			Kind:            model.KindReceiving,
			Quantity:        q,
			Unit:            "lb",
			ReferenceType:   model.ReferencePurchaseOrder,
			ReferenceID:     "PO-3",
		})
		if err != nil {
			t.Fatalf("Post failed: %v", err)
		}
		return e
	}
	post(4)
	second := post(3)
	if _, err := uc.Reverse(ctx, second.ID, "typo", ""); err != nil {
		t.Fatalf("Reverse failed: %v", err)
	}

	filter := dto.ActiveFilter{
		InventoryItemID: "beans",
		Kind:            model.KindReceiving,
		ReferenceType:   model.ReferencePurchaseOrder,
		ReferenceID:     "PO-3",
	}
	sum, err := uc.SumActiveQuantity(ctx, filter)
	if err != nil {
		t.Fatalf("SumActiveQuantity failed: %v", err)
	}
	if sum != 4 {
		t.Errorf("Expected active sum 4, got %v", sum)
	}

	active, err := uc.ActiveEntries(ctx, filter)
	if err != nil {
		t.Fatalf("ActiveEntries failed: %v", err)
	}
	if len(active) != 1 {
		t.Errorf("Expected 1 active entry, got %d", len(active))
	}

	has, err := uc.HasReference(ctx, model.KindReceiving, model.ReferencePurchaseOrder, "PO-3")
	if err != nil || !has {
		t.Errorf("Expected reference PO-3 to exist, got %v %v", has, err)
	}
}

func TestRecordCount(t *testing.T) {
	store, uc, _ := newTestLedger(t, nil)
	seedItem(t, store, "cream", "qt", 10, 2, "4")
	ctx := context.Background()

	entry, err := uc.RecordCount(ctx, &dto.CountInput{InventoryItemID: "cream", CountedQuantity: 7, Unit: "qt", ReferenceID: "count-1"})
	if err != nil {
		t.Fatalf("RecordCount failed: %v", err)
	}
	if entry.Kind != model.KindCountAdjustment || entry.QuantityDelta != -3 {
		t.Errorf("Expected count_adjustment of -3, got %s %v", entry.Kind, entry.QuantityDelta)
	}
	if !entry.TotalCost.Equal(decimal.NewFromInt(12)) {
		t.Errorf("Expected total cost 12, got %s", entry.TotalCost)
	}
	if got := onHand(t, store, "cream").OnHandQuantity; got != 7 {
		t.Errorf("Expected on hand 7, got %v", got)
	}

	if _, err := uc.RecordCount(ctx, &dto.CountInput{InventoryItemID: "cream", CountedQuantity: 1, Unit: "kg"}); !errors.Is(err, ledger.ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry for a mass count on a volume item, got %v", err)
	}
}

func TestPost_ConcurrentPostsAreSerialised(t *testing.T) {
	store, uc, _ := newTestLedger(t, nil)
	seedItem(t, store, "cups", "each", 0, 0, "0.05")

	const workers = 50
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Post(context.Background(), &dto.PostEntryInput{
				InventoryItemID: "cups",
				Kind:            model.KindReceiving,
				Quantity:        1,
				Unit:            "each",
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent post failed: %v", err)
	}
	if got := onHand(t, store, "cups").OnHandQuantity; got != workers {
		t.Errorf("Expected on hand %d, got %v", workers, got)
	}
	sum, _ := uc.SumActiveQuantity(context.Background(), dto.ActiveFilter{InventoryItemID: "cups"})
	if sum != workers {
		t.Errorf("Expected ledger sum %d, got %v", workers, sum)
	}
}

type recordingIndexer struct {
	docs chan any
}

func (r *recordingIndexer) Index(ctx context.Context, index, id string, doc any) error {
	r.docs <- doc
	return nil
}

func TestPost_MirrorsToIndexer(t *testing.T) {
	indexer := &recordingIndexer{docs: make(chan any, 1)}
	store, uc, _ := newTestLedger(t, indexer)
	seedItem(t, store, "tea", "g", 0, 0, "0.1")

	posted, err := uc.Post(context.Background(), &dto.PostEntryInput{InventoryItemID: "tea", Kind: model.KindReceiving, Quantity: 100, Unit: "g"})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	select {
	case doc := <-indexer.docs:
		entry, ok := doc.(*model.LedgerEntry)
		if !ok || entry.ID != posted.ID {
			t.Errorf("Expected indexed entry %s, got %+v", posted.ID, doc)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the entry to be indexed")
	}
}

func TestSettle_PostsDifferenceToTarget(t *testing.T) {
	store, uc, _ := newTestLedger(t, nil)
	seedItem(t, store, "oil", "fl_oz", 0, 1, "0.25")
	ctx := context.Background()

	settle := func(target float64, unit string) (*model.LedgerEntry, error) {
		return uc.Settle(ctx, &dto.SettleInput{
			InventoryItemID: "oil",
			Kind:            model.KindReceiving,
			Target:          target,
			Unit:            unit,
			UnitCost:        decimal.RequireFromString("32"),
			ReferenceType:   model.ReferencePurchaseOrder,
			ReferenceID:     "PO-1",
			Notes:           "backfill",
			CorrectionNotes: "correction",
		})
	}

	first, err := settle(1, "qt")
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	if first.QuantityDelta != 32 || first.Notes != "backfill" {
		t.Errorf("Expected +32 fl_oz backfill, got %v %q", first.QuantityDelta, first.Notes)
	}
	if !first.UnitCost.Equal(decimal.NewFromInt(1)) || !first.TotalCost.Equal(decimal.NewFromInt(32)) {
		t.Errorf("Expected cost 1 per fl_oz totalling 32, got %s / %s", first.UnitCost, first.TotalCost)
	}

	same, err := settle(32, "fl_oz")
	if err != nil {
		t.Fatalf("Repeat Settle failed: %v", err)
	}
	if same != nil {
		t.Errorf("Expected nothing to post at the target, got %+v", same)
	}

	lowered, err := settle(0.5, "qt")
	if err != nil {
		t.Fatalf("Lowering Settle failed: %v", err)
	}
	if lowered.QuantityDelta != -16 || lowered.Notes != "correction" {
		t.Errorf("Expected -16 correction, got %v %q", lowered.QuantityDelta, lowered.Notes)
	}
	if got := onHand(t, store, "oil").OnHandQuantity; got != 16 {
		t.Errorf("Expected on hand 16, got %v", got)
	}

	if _, err := settle(1, "kg"); !errors.Is(err, ledger.ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry for an incompatible unit, got %v", err)
	}
	if _, err := uc.Settle(ctx, &dto.SettleInput{InventoryItemID: "oil", Kind: model.KindReceiving, Target: 1, Unit: "qt"}); !errors.Is(err, ledger.ErrInvalidEntry) {
		t.Errorf("Expected ErrInvalidEntry without a reference, got %v", err)
	}
}

// slowSumRepository stretches the read of active totals the way a database
// round trip would.
type slowSumRepository struct {
	ledger.Repository
}

func (r slowSumRepository) SumActive(ctx context.Context, f dto.ActiveFilter) (float64, error) {
	time.Sleep(2 * time.Millisecond)
	return r.Repository.SumActive(ctx, f)
}

func TestSettle_ConcurrentCallersPostOnce(t *testing.T) {
	store := memory.NewStore()
	seedItem(t, store, "flour", "lb", 0, 1, "2")
	uc := NewLedgerUseCase(slowSumRepository{store.Ledger()}, store.Items(), cache.NewLocalLocker(), nil, logger.Wrap(zap.NewNop()))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Settle(context.Background(), &dto.SettleInput{
				InventoryItemID: "flour",
				Kind:            model.KindReceiving,
				Target:          50,
				Unit:            "lb",
				ReferenceType:   model.ReferencePurchaseOrder,
				ReferenceID:     "PO-1",
			})
			if err != nil {
				t.Errorf("Settle failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := onHand(t, store, "flour").OnHandQuantity; got != 50 {
		t.Errorf("Expected on hand 50, got %v", got)
	}
	_, total, err := uc.ListEntries(context.Background(), &dto.EntryFilters{InventoryItemID: "flour"})
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if total != 1 {
		t.Errorf("Expected a single receiving entry, got %d", total)
	}
}
