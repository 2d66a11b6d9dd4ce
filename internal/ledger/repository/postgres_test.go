package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	itemrepo "github.com/fekuna/omnipos-inventory-ledger/internal/inventory/repository"
	"github.com/fekuna/omnipos-inventory-ledger/internal/ledger"
	"github.com/fekuna/omnipos-inventory-ledger/internal/ledger/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/fekuna/omnipos-inventory-ledger/internal/schema"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/database"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := schema.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	return db
}

func seedItem(t *testing.T, db *sqlx.DB, id string) *model.InventoryItem {
	t.Helper()
	now := time.Now().UTC()
	item := &model.InventoryItem{
		ID:          id,
		Name:        id,
		Unit:        "kg",
		CostPerUnit: decimal.RequireFromString("1.25"),
		Status:      model.StockOutOfStock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := itemrepo.NewPGRepository(db).Create(context.Background(), item); err != nil {
		t.Fatalf("Failed to seed item: %v", err)
	}
	return item
}

// move advances item by delta and returns the matching entry.
func move(item *model.InventoryItem, kind model.LedgerKind, delta float64, refType, refID string) *model.LedgerEntry {
	before := item.OnHandQuantity
	item.OnHandQuantity += delta
	item.Status = model.DeriveStatus(item.OnHandQuantity, item.MinThreshold)
	item.UpdatedAt = time.Now().UTC()
	return &model.LedgerEntry{
		ID:              uuid.New().String(),
		InventoryItemID: item.ID,
		Kind:            kind,
		QuantityDelta:   delta,
		Unit:            item.Unit,
		SourceQuantity:  delta,
		SourceUnit:      item.Unit,
		UnitCost:        item.CostPerUnit,
		TotalCost:       item.CostPerUnit.Mul(decimal.NewFromFloat(delta)).Abs(),
		BalanceBefore:   before,
		BalanceAfter:    item.OnHandQuantity,
		ReferenceType:   refType,
		ReferenceID:     refID,
		Actor:           model.ActorSystemReconciler,
		CreatedAt:       item.UpdatedAt,
	}
}

func TestApplyEntry(t *testing.T) {
	db := newTestDB(t)
	repo := NewPGRepository(db)
	items := itemrepo.NewPGRepository(db)
	ctx := context.Background()
	item := seedItem(t, db, "flour")

	entry := move(item, model.KindReceiving, 12.5, model.ReferencePurchaseOrder, "PO-1")
	if err := repo.ApplyEntry(ctx, item, entry); err != nil {
		t.Fatalf("ApplyEntry failed: %v", err)
	}

	stored, err := repo.GetByID(ctx, entry.ID)
	if err != nil || stored == nil {
		t.Fatalf("Failed to read back entry: %v", err)
	}
	if stored.QuantityDelta != 12.5 || stored.ReferenceID != "PO-1" || stored.IsReversed {
		t.Errorf("Unexpected stored entry %+v", stored)
	}
	if !stored.TotalCost.Equal(decimal.RequireFromString("15.625")) {
		t.Errorf("Expected total cost 15.625, got %s", stored.TotalCost)
	}

	current, err := items.GetByID(ctx, "flour")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if current.OnHandQuantity != 12.5 || current.Status != model.StockNormal {
		t.Errorf("Expected 12.5 on hand, got %v %s", current.OnHandQuantity, current.Status)
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Expected nil for a missing entry, got %v %v", missing, err)
	}
}

func TestApplyEntry_StaleBalance(t *testing.T) {
	db := newTestDB(t)
	repo := NewPGRepository(db)
	ctx := context.Background()
	item := seedItem(t, db, "rice")

	entry := move(item, model.KindReceiving, 5, "", "")
	entry.BalanceBefore = 3
	if err := repo.ApplyEntry(ctx, item, entry); !errors.Is(err, ledger.ErrConcurrentUpdate) {
		t.Fatalf("Expected ErrConcurrentUpdate, got %v", err)
	}
	if got, _ := repo.GetByID(ctx, entry.ID); got != nil {
		t.Error("Expected the entry not to be written")
	}
}

func TestApplyEntry_DuplicateWasteReference(t *testing.T) {
	db := newTestDB(t)
	repo := NewPGRepository(db)
	items := itemrepo.NewPGRepository(db)
	ctx := context.Background()
	item := seedItem(t, db, "basil")

	if err := repo.ApplyEntry(ctx, item, move(item, model.KindReceiving, 10, "", "")); err != nil {
		t.Fatalf("Receiving failed: %v", err)
	}
	if err := repo.ApplyEntry(ctx, item, move(item, model.KindWaste, -1, model.ReferenceWasteLog, "W-1")); err != nil {
		t.Fatalf("First waste failed: %v", err)
	}

	dup := move(item, model.KindWaste, -1, model.ReferenceWasteLog, "W-1")
	if err := repo.ApplyEntry(ctx, item, dup); !errors.Is(err, ledger.ErrDuplicateReference) {
		t.Fatalf("Expected ErrDuplicateReference, got %v", err)
	}

	current, err := items.GetByID(ctx, "basil")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if current.OnHandQuantity != 9 {
		t.Errorf("Expected the failed post to roll back leaving 9, got %v", current.OnHandQuantity)
	}

	// manual waste carries no waste log reference and is never unique
	item.OnHandQuantity = current.OnHandQuantity
	for i := 0; i < 2; i++ {
		if err := repo.ApplyEntry(ctx, item, move(item, model.KindWaste, -1, model.ReferenceManual, "")); err != nil {
			t.Fatalf("Manual waste %d failed: %v", i, err)
		}
	}
}

func TestApplyReversal(t *testing.T) {
	db := newTestDB(t)
	repo := NewPGRepository(db)
	ctx := context.Background()
	item := seedItem(t, db, "oil")

	original := move(item, model.KindReceiving, 8, model.ReferencePurchaseOrder, "PO-2")
	if err := repo.ApplyEntry(ctx, item, original); err != nil {
		t.Fatalf("ApplyEntry failed: %v", err)
	}

	reason := "source invalidated"
	now := time.Now().UTC()
	original.IsReversed = true
	original.ReversedDate = &now
	original.ReversalReason = &reason
	compensating := move(item, model.KindAdjustment, -8, model.ReferencePurchaseOrder, "PO-2")
	compensating.ReversalOf = &original.ID

	if err := repo.ApplyReversal(ctx, item, original, compensating); err != nil {
		t.Fatalf("ApplyReversal failed: %v", err)
	}

	stored, err := repo.GetByID(ctx, original.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !stored.IsReversed || stored.ReversalReason == nil || *stored.ReversalReason != reason {
		t.Errorf("Expected the original to be flagged, got %+v", stored)
	}

	again := move(item, model.KindAdjustment, -8, model.ReferencePurchaseOrder, "PO-2")
	if err := repo.ApplyReversal(ctx, item, original, again); !errors.Is(err, ledger.ErrAlreadyReversed) {
		t.Errorf("Expected ErrAlreadyReversed, got %v", err)
	}

	sum, err := repo.SumActive(ctx, dto.ActiveFilter{InventoryItemID: "oil"})
	if err != nil {
		t.Fatalf("SumActive failed: %v", err)
	}
	if sum != -8 {
		t.Errorf("Expected only the compensating entry to stay active, got %v", sum)
	}

	receiving, err := repo.SumActive(ctx, dto.ActiveFilter{
		InventoryItemID: "oil",
		Kind:            model.KindReceiving,
		ReferenceType:   model.ReferencePurchaseOrder,
		ReferenceID:     "PO-2",
	})
	if err != nil {
		t.Fatalf("SumActive failed: %v", err)
	}
	if receiving != 0 {
		t.Errorf("Expected no active receiving, got %v", receiving)
	}
}

func TestListEntries(t *testing.T) {
	db := newTestDB(t)
	repo := NewPGRepository(db)
	ctx := context.Background()
	item := seedItem(t, db, "salt")

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		entry := move(item, model.KindReceiving, 1, model.ReferencePurchaseOrder, "PO-3")
		entry.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if err := repo.ApplyEntry(ctx, item, entry); err != nil {
			t.Fatalf("ApplyEntry %d failed: %v", i, err)
		}
		ids = append(ids, entry.ID)
	}

	tests := []struct {
		name    string
		filters dto.EntryFilters
		total   int
		first   string
		count   int
	}{
		{"all_newest_first", dto.EntryFilters{InventoryItemID: "salt"}, 5, ids[4], 5},
		{"second_page", dto.EntryFilters{InventoryItemID: "salt", Page: 2, PageSize: 2}, 5, ids[2], 2},
		{"kind_mismatch", dto.EntryFilters{Kind: model.KindWaste}, 0, "", 0},
		{"date_window", dto.EntryFilters{StartDate: ptr(base.Add(time.Hour)), EndDate: ptr(base.Add(3 * time.Hour))}, 2, ids[2], 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters := tt.filters
			entries, total, err := repo.ListEntries(ctx, &filters)
			if err != nil {
				t.Fatalf("ListEntries failed: %v", err)
			}
			if total != tt.total || len(entries) != tt.count {
				t.Fatalf("Expected total %d count %d, got %d %d", tt.total, tt.count, total, len(entries))
			}
			if tt.count > 0 && entries[0].ID != tt.first {
				t.Errorf("Expected first entry %s, got %s", tt.first, entries[0].ID)
			}
		})
	}

	exists, err := repo.ExistsByReference(ctx, model.KindReceiving, model.ReferencePurchaseOrder, "PO-3")
	if err != nil || !exists {
		t.Errorf("Expected PO-3 receiving to exist, got %v %v", exists, err)
	}
}

func ptr(t time.Time) *time.Time {
	return &t
}
