package memory

import (
	"context"
	"sort"

	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
)

// PurchaseOrderSource implements reconcile.PurchaseOrderSource.
type PurchaseOrderSource struct {
	s *Store
}

func (r *PurchaseOrderSource) GetOrder(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	order, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	order.Lines = append([]model.PurchaseOrderLine(nil), order.Lines...)
	return &order, nil
}

func (r *PurchaseOrderSource) ListOrderIDs(ctx context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := make([]string, 0, len(r.s.orders))
	for id := range r.s.orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// WasteLogSource implements reconcile.WasteLogSource.
type WasteLogSource struct {
	s *Store
}

func (r *WasteLogSource) ListByItem(ctx context.Context, itemID string) ([]model.WasteLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var logs []model.WasteLog
	for _, l := range r.s.wasteLogs {
		if l.InventoryItemID == itemID {
			logs = append(logs, l)
		}
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].Date.Equal(logs[j].Date) {
			return logs[i].Date.Before(logs[j].Date)
		}
		return logs[i].ExternalLogID < logs[j].ExternalLogID
	})
	return logs, nil
}

func (r *WasteLogSource) ListItemIDs(ctx context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := map[string]bool{}
	var ids []string
	for _, l := range r.s.wasteLogs {
		if !seen[l.InventoryItemID] {
			seen[l.InventoryItemID] = true
			ids = append(ids, l.InventoryItemID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// MenuMappingRepository implements recipe.Repository.
type MenuMappingRepository struct {
	s *Store
}

func (r *MenuMappingRepository) GetBySellableID(ctx context.Context, sellableID string) (*model.MenuMapping, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.mappings[sellableID]
	if !ok {
		return nil, nil
	}
	m.Components = cloneComponents(m.Components)
	return &m, nil
}

func (r *MenuMappingRepository) ListSellableIDs(ctx context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := make([]string, 0, len(r.s.mappings))
	for id := range r.s.mappings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *MenuMappingRepository) Upsert(ctx context.Context, mapping *model.MenuMapping) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m := *mapping
	m.Components = cloneComponents(m.Components)
	r.s.mappings[m.SellableID] = m
	return nil
}

func cloneComponents(in []model.Component) []model.Component {
	if in == nil {
		return nil
	}
	out := make([]model.Component, len(in))
	for i, c := range in {
		c.Overrides = cloneComponents(c.Overrides)
		out[i] = c
	}
	return out
}
