package memory

import (
	"context"
	"sort"

	"github.com/fekuna/omnipos-inventory-ledger/internal/ledger"
	"github.com/fekuna/omnipos-inventory-ledger/internal/ledger/dto"
	"github.com/fekuna/omnipos-inventory-ledger/internal/model"
)

// LedgerRepository implements ledger.Repository with the same optimistic
// balance check and waste-reference uniqueness the SQL schema enforces.
type LedgerRepository struct {
	s *Store
}

func (r *LedgerRepository) GetByID(ctx context.Context, id string) (*model.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	i, ok := r.s.entryIdx[id]
	if !ok {
		return nil, nil
	}
	entry := r.s.entries[i]
	return &entry, nil
}

func (r *LedgerRepository) ApplyEntry(ctx context.Context, item *model.InventoryItem, entry *model.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.check(item, entry); err != nil {
		return err
	}
	r.apply(item, entry)
	return nil
}

func (r *LedgerRepository) ApplyReversal(ctx context.Context, item *model.InventoryItem, original, compensating *model.LedgerEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i, ok := r.s.entryIdx[original.ID]
	if !ok {
		return ledger.ErrEntryNotFound
	}
	if r.s.entries[i].IsReversed {
		return ledger.ErrAlreadyReversed
	}
	if err := r.check(item, compensating); err != nil {
		return err
	}

	r.s.entries[i].IsReversed = true
	r.s.entries[i].ReversedDate = original.ReversedDate
	r.s.entries[i].ReversalReason = original.ReversalReason
	r.apply(item, compensating)
	return nil
}

func (r *LedgerRepository) check(item *model.InventoryItem, entry *model.LedgerEntry) error {
	stored, ok := r.s.items[item.ID]
	if !ok || stored.OnHandQuantity != entry.BalanceBefore {
		return ledger.ErrConcurrentUpdate
	}
	if entry.Kind == model.KindWaste && entry.ReferenceType == model.ReferenceWasteLog {
		for _, e := range r.s.entries {
			if e.Kind == model.KindWaste && e.ReferenceType == entry.ReferenceType && e.ReferenceID == entry.ReferenceID {
				return ledger.ErrDuplicateReference
			}
		}
	}
	return nil
}

func (r *LedgerRepository) apply(item *model.InventoryItem, entry *model.LedgerEntry) {
	stored := r.s.items[item.ID]
	stored.OnHandQuantity = item.OnHandQuantity
	stored.Status = item.Status
	stored.UpdatedAt = item.UpdatedAt
	r.s.items[item.ID] = stored

	r.s.entryIdx[entry.ID] = len(r.s.entries)
	r.s.entries = append(r.s.entries, *entry)
}

func matchesActive(e model.LedgerEntry, f dto.ActiveFilter) bool {
	if e.IsReversed {
		return false
	}
	if f.InventoryItemID != "" && e.InventoryItemID != f.InventoryItemID {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.ReferenceType != "" && e.ReferenceType != f.ReferenceType {
		return false
	}
	if f.ReferenceID != "" && e.ReferenceID != f.ReferenceID {
		return false
	}
	return true
}

func (r *LedgerRepository) SumActive(ctx context.Context, f dto.ActiveFilter) (float64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var sum float64
	for _, e := range r.s.entries {
		if matchesActive(e, f) {
			sum += e.QuantityDelta
		}
	}
	return sum, nil
}

func (r *LedgerRepository) FindActive(ctx context.Context, f dto.ActiveFilter) ([]model.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var entries []model.LedgerEntry
	for _, e := range r.s.entries {
		if matchesActive(e, f) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (r *LedgerRepository) ExistsByReference(ctx context.Context, kind model.LedgerKind, referenceType, referenceID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.entries {
		if e.Kind == kind && e.ReferenceType == referenceType && e.ReferenceID == referenceID {
			return true, nil
		}
	}
	return false, nil
}

func (r *LedgerRepository) ListEntries(ctx context.Context, f *dto.EntryFilters) ([]model.LedgerEntry, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []model.LedgerEntry
	for _, e := range r.s.entries {
		if !f.IncludeReversed && e.IsReversed {
			continue
		}
		if f.InventoryItemID != "" && e.InventoryItemID != f.InventoryItemID {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.ReferenceType != "" && e.ReferenceType != f.ReferenceType {
			continue
		}
		if f.ReferenceID != "" && e.ReferenceID != f.ReferenceID {
			continue
		}
		if f.StartDate != nil && e.CreatedAt.Before(*f.StartDate) {
			continue
		}
		if f.EndDate != nil && !e.CreatedAt.Before(*f.EndDate) {
			continue
		}
		matched = append(matched, e)
	}
	// newest first, insertion order breaks ties
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	return paginate(matched, f.Page, f.PageSize), total, nil
}
