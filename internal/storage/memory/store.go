// Package memory keeps every store the service needs in process memory. It
// backs the use-case tests and local runs without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fekuna/omnipos-inventory-ledger/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
)

// Store holds the shared state; the typed views below implement the
// repository interfaces on top of it.
type Store struct {
	mu        sync.RWMutex
	items     map[string]model.InventoryItem
	entries   []model.LedgerEntry
	entryIdx  map[string]int
	orders    map[string]model.PurchaseOrder
	wasteLogs map[string]model.WasteLog
	mappings  map[string]model.MenuMapping
}

func NewStore() *Store {
	return &Store{
		items:     make(map[string]model.InventoryItem),
		entryIdx:  make(map[string]int),
		orders:    make(map[string]model.PurchaseOrder),
		wasteLogs: make(map[string]model.WasteLog),
		mappings:  make(map[string]model.MenuMapping),
	}
}

func (s *Store) Items() *ItemRepository               { return &ItemRepository{s: s} }
func (s *Store) Ledger() *LedgerRepository            { return &LedgerRepository{s: s} }
func (s *Store) PurchaseOrders() *PurchaseOrderSource { return &PurchaseOrderSource{s: s} }
func (s *Store) WasteLogs() *WasteLogSource           { return &WasteLogSource{s: s} }
func (s *Store) MenuMappings() *MenuMappingRepository { return &MenuMappingRepository{s: s} }

// PutOrder replaces the purchasing collaborator's view of an order.
func (s *Store) PutOrder(order model.PurchaseOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order.Lines = append([]model.PurchaseOrderLine(nil), order.Lines...)
	s.orders[order.ID] = order
}

// PutWasteLog records a waste log from the waste-logging collaborator.
func (s *Store) PutWasteLog(log model.WasteLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wasteLogs[log.ExternalLogID] = log
}

// ItemRepository implements inventory.Repository.
type ItemRepository struct {
	s *Store
}

func (r *ItemRepository) GetByID(ctx context.Context, id string) (*model.InventoryItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	item, ok := r.s.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (r *ItemRepository) BatchGetByIDs(ctx context.Context, ids []string) ([]model.InventoryItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	items := []model.InventoryItem{}
	for _, id := range ids {
		if item, ok := r.s.items[id]; ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (r *ItemRepository) FindAll(ctx context.Context, f *dto.InventoryFilters) ([]model.InventoryItem, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := map[string]bool{}
	for _, id := range f.IDs {
		ids[id] = true
	}
	statuses := map[model.StockStatus]bool{}
	for _, st := range f.Statuses {
		statuses[st] = true
	}
	if f.LowStock {
		statuses = map[model.StockStatus]bool{model.StockLow: true, model.StockCritical: true, model.StockOutOfStock: true}
	}

	var matched []model.InventoryItem
	for _, item := range r.s.items {
		if len(ids) > 0 && !ids[item.ID] {
			continue
		}
		if len(statuses) > 0 && !statuses[item.Status] {
			continue
		}
		matched = append(matched, item)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].OnHandQuantity != matched[j].OnHandQuantity {
			return matched[i].OnHandQuantity < matched[j].OnHandQuantity
		}
		return matched[i].Name < matched[j].Name
	})

	total := len(matched)
	return paginate(matched, f.Page, f.PageSize), total, nil
}

func (r *ItemRepository) Create(ctx context.Context, item *model.InventoryItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[item.ID]; ok {
		return fmt.Errorf("inventory item %s already exists", item.ID)
	}
	r.s.items[item.ID] = *item
	return nil
}

func (r *ItemRepository) UpdateDetails(ctx context.Context, item *model.InventoryItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.items[item.ID]
	if !ok {
		return fmt.Errorf("update item %s: not found", item.ID)
	}
	stored.Name = item.Name
	stored.MinThreshold = item.MinThreshold
	stored.CostPerUnit = item.CostPerUnit
	stored.SupplierCode = item.SupplierCode
	stored.VendorCode = item.VendorCode
	stored.Status = item.Status
	stored.UpdatedAt = item.UpdatedAt
	r.s.items[item.ID] = stored
	return nil
}

func paginate[T any](list []T, page, pageSize int) []T {
	if pageSize <= 0 {
		return list
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(list) {
		return []T{}
	}
	end := start + pageSize
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}
