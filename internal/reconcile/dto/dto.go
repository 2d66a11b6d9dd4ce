package dto

import "github.com/fekuna/omnipos-inventory-ledger/internal/model"

// LineError records one unit of work that failed without aborting the run.
type LineError struct {
	Reference       string `json:"reference"` // order id, waste log id or item id
	InventoryItemID string `json:"inventory_item_id"`
	Error           string `json:"error"`
}

type ReconcileResult struct {
	Reference string              `json:"reference"`
	Processed int                 `json:"processed"`
	Created   int                 `json:"created"`
	Reversed  int                 `json:"reversed"`
	Unchanged int                 `json:"unchanged"`
	Errored   int                 `json:"errored"`
	Errors    []LineError         `json:"errors"`
	Entries   []model.LedgerEntry `json:"entries"` // entries posted by this run
}

func NewResult(reference string) *ReconcileResult {
	return &ReconcileResult{
		Reference: reference,
		Errors:    []LineError{},
		Entries:   []model.LedgerEntry{},
	}
}

func (r *ReconcileResult) AddError(reference, itemID string, err error) {
	r.Errored++
	r.Errors = append(r.Errors, LineError{
		Reference:       reference,
		InventoryItemID: itemID,
		Error:           err.Error(),
	})
}

func (r *ReconcileResult) AddEntry(entry *model.LedgerEntry) {
	r.Created++
	r.Entries = append(r.Entries, *entry)
}

// Merge folds other into r.
func (r *ReconcileResult) Merge(other *ReconcileResult) {
	r.Processed += other.Processed
	r.Created += other.Created
	r.Reversed += other.Reversed
	r.Unchanged += other.Unchanged
	r.Errored += other.Errored
	r.Errors = append(r.Errors, other.Errors...)
	r.Entries = append(r.Entries, other.Entries...)
}
