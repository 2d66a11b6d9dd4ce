package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-ledger/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
	"github.com/fekuna/omnipos-inventory-ledger/internal/schema"
	"github.com/fekuna/omnipos-inventory-ledger/pkg/database"
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

func newItem(id, name string, onHand, minThreshold float64) *model.InventoryItem {
	now := time.Now().UTC()
	return &model.InventoryItem{
		ID:             id,
		Name:           name,
		Unit:           "kg",
		OnHandQuantity: onHand,
		MinThreshold:   minThreshold,
		CostPerUnit:    decimal.RequireFromString("2.125"),
		Status:         model.DeriveStatus(onHand, minThreshold),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func TestCreateAndGet(t *testing.T) {
	repo := NewPGRepository(newTestDB(t))
	ctx := context.Background()

	supplier := "SUP-9"
	item := newItem("flour", "Flour", 0, 5)
	item.SupplierCode = &supplier
	if err := repo.Create(ctx, item); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "flour")
	if err != nil || got == nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Flour" || got.Status != model.StockOutOfStock {
		t.Errorf("Unexpected item %+v", got)
	}
	if !got.CostPerUnit.Equal(decimal.RequireFromString("2.125")) {
		t.Errorf("Expected cost 2.125, got %s", got.CostPerUnit)
	}
	if got.SupplierCode == nil || *got.SupplierCode != "SUP-9" || got.VendorCode != nil {
		t.Errorf("Expected supplier SUP-9 and no vendor, got %v %v", got.SupplierCode, got.VendorCode)
	}

	missing, err := repo.GetByID(ctx, "ghost")
	if err != nil || missing != nil {
		t.Errorf("Expected nil for a missing item, got %v %v", missing, err)
	}

	if err := repo.Create(ctx, newItem("flour", "Again", 0, 0)); !database.IsUniqueViolation(err) {
		t.Errorf("Expected a unique violation, got %v", err)
	}
}

func TestUpdateDetails_LeavesOnHandAlone(t *testing.T) {
	repo := NewPGRepository(newTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, newItem("milk", "Milk", 7, 2)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	update := newItem("milk", "Whole Milk", 999, 10)
	update.Status = model.DeriveStatus(7, 10)
	if err := repo.UpdateDetails(ctx, update); err != nil {
		t.Fatalf("UpdateDetails failed: %v", err)
	}

	got, err := repo.GetByID(ctx, "milk")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Whole Milk" || got.MinThreshold != 10 || got.OnHandQuantity != 7 || got.Status != model.StockCritical {
		t.Errorf("Unexpected item after update %+v", got)
	}

	if err := repo.UpdateDetails(ctx, newItem("ghost", "Ghost", 0, 0)); err == nil {
		t.Error("Expected updating a missing item to fail")
	}
}

func TestFindAll(t *testing.T) {
	repo := NewPGRepository(newTestDB(t))
	ctx := context.Background()

	for _, item := range []*model.InventoryItem{
		newItem("a", "Apples", 100, 10),
		newItem("b", "Bananas", 12, 10),
		newItem("c", "Cherries", 5, 10),
		newItem("d", "Dates", 0, 10),
	} {
		if err := repo.Create(ctx, item); err != nil {
			t.Fatalf("Create %s failed: %v", item.ID, err)
		}
	}

	tests := []struct {
		name     string
		filters  dto.InventoryFilters
		total    int
		expected []string
	}{
		{"all", dto.InventoryFilters{}, 4, []string{"d", "c", "b", "a"}},
		{"low_stock", dto.InventoryFilters{LowStock: true}, 3, []string{"d", "c", "b"}},
		{"by_status", dto.InventoryFilters{Statuses: []model.StockStatus{model.StockCritical}}, 1, []string{"c"}},
		{"by_ids", dto.InventoryFilters{IDs: []string{"a", "c"}}, 2, []string{"c", "a"}},
		{"paged", dto.InventoryFilters{Page: 2, PageSize: 3}, 4, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filters := tt.filters
			items, total, err := repo.FindAll(ctx, &filters)
			if err != nil {
				t.Fatalf("FindAll failed: %v", err)
			}
			if total != tt.total {
				t.Errorf("Expected total %d, got %d", tt.total, total)
			}
			if len(items) != len(tt.expected) {
				t.Fatalf("Expected %d items, got %d", len(tt.expected), len(items))
			}
			for i, id := range tt.expected {
				if items[i].ID != id {
					t.Errorf("Expected item %d to be %s, got %s", i, id, items[i].ID)
				}
			}
		})
	}

	batch, err := repo.BatchGetByIDs(ctx, []string{"a", "ghost", "d"})
	if err != nil {
		t.Fatalf("BatchGetByIDs failed: %v", err)
	}
	if len(batch) != 2 {
		t.Errorf("Expected 2 items, got %d", len(batch))
	}
}
